package unit

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/saltproc/internal/errs"
)

// Definition is the configured form of a unit before construction.
type Definition struct {
	Name       string
	Kind       string
	Attributes Attributes
	Efficiency map[string]any
	Params     map[string]any
}

// Factory constructs a unit from its definition.
type Factory func(Definition) (Unit, error)

// Registry maintains known unit factories keyed by kind.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	aliases   map[string]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}, aliases: map[string]string{}}
}

// Default returns a registry with the built-in unit kinds.
func Default() *Registry {
	r := NewRegistry()
	r.MustRegister(string(KindConstant), buildConstant)
	r.MustRegister(string(KindContactor), buildContactor)
	r.MustRegister(string(KindSeparator), buildSeparator)
	r.MustAlias("sparger", string(KindContactor))
	r.MustAlias("entrainment_separator", string(KindSeparator))
	return r
}

// Register installs a factory. Returns an error if the kind already exists.
func (r *Registry) Register(kind string, factory Factory) error {
	kind = normalizeKind(kind)
	if kind == "" {
		return fmt.Errorf("unit: kind is required")
	}
	if factory == nil {
		return fmt.Errorf("unit: factory is required for %s", kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[kind]; exists {
		return fmt.Errorf("unit: %s already registered", kind)
	}
	if _, exists := r.aliases[kind]; exists {
		return fmt.Errorf("unit: %s already registered as an alias", kind)
	}
	r.factories[kind] = factory
	return nil
}

// MustRegister panics if registration fails.
func (r *Registry) MustRegister(kind string, factory Factory) {
	if err := r.Register(kind, factory); err != nil {
		panic(err)
	}
}

// Alias makes alias resolve to the registered kind target.
func (r *Registry) Alias(alias, target string) error {
	alias, target = normalizeKind(alias), normalizeKind(target)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[target]; !ok {
		return fmt.Errorf("unit: alias %s targets unknown kind %s", alias, target)
	}
	if _, exists := r.factories[alias]; exists {
		return fmt.Errorf("unit: %s already registered", alias)
	}
	if _, exists := r.aliases[alias]; exists {
		return fmt.Errorf("unit: alias %s already registered", alias)
	}
	r.aliases[alias] = target
	return nil
}

// MustAlias panics if aliasing fails.
func (r *Registry) MustAlias(alias, target string) {
	if err := r.Alias(alias, target); err != nil {
		panic(err)
	}
}

// Build constructs a unit from def. Unknown kinds are configuration errors.
func (r *Registry) Build(def Definition) (Unit, error) {
	kind := normalizeKind(def.Kind)
	r.mu.RLock()
	if target, ok := r.aliases[kind]; ok {
		kind = target
	}
	factory, ok := r.factories[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, errs.New(errs.KindConfig, "unit: build", def.Name, "unknown type %q", def.Kind)
	}
	def.Kind = kind
	def.Attributes.Name = def.Name
	return factory(def)
}

// Kinds returns the registered kinds and aliases in sorted order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.factories)+len(r.aliases))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	for k := range r.aliases {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

func normalizeKind(kind string) string {
	return strings.ToLower(strings.TrimSpace(kind))
}

func buildConstant(def Definition) (Unit, error) {
	if len(def.Params) > 0 {
		return nil, errs.New(errs.KindConfig, "unit: build", def.Name, "constant units take no params")
	}
	table, err := ParseTable(def.Name, def.Efficiency)
	if err != nil {
		return nil, err
	}
	return NewConstant(def.Attributes, table)
}

func buildContactor(def Definition) (Unit, error) {
	if len(def.Efficiency) > 0 {
		return nil, errs.New(errs.KindConfig, "unit: build", def.Name, "contactor efficiencies are derived; remove the efficiency table")
	}
	params := DefaultContactorParams()
	if err := decodeParams(def.Params, &params); err != nil {
		return nil, errs.Wrap(errs.KindConfig, "unit: build", def.Name, err)
	}
	return NewContactor(def.Attributes, params)
}

func buildSeparator(def Definition) (Unit, error) {
	if len(def.Efficiency) > 0 {
		return nil, errs.New(errs.KindConfig, "unit: build", def.Name, "separator efficiencies are derived; remove the efficiency table")
	}
	params := DefaultSeparatorParams()
	if err := decodeParams(def.Params, &params); err != nil {
		return nil, errs.Wrap(errs.KindConfig, "unit: build", def.Name, err)
	}
	return NewSeparator(def.Attributes, params)
}

// decodeParams overlays raw onto out, rejecting unknown keys.
func decodeParams(raw map[string]any, out any) error {
	if len(raw) == 0 {
		return nil
	}
	data, err := yaml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode params: %w", err)
	}
	return nil
}
