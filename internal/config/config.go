// Package config loads a reprocessing project: the per-material unit,
// feed and topology configuration, plus the output directory layout a run
// writes into.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/saltproc/internal/errs"
	"github.com/kingrea/saltproc/internal/flowsheet"
	"github.com/kingrea/saltproc/internal/nuclide"
	"github.com/kingrea/saltproc/internal/reprocess"
	"github.com/kingrea/saltproc/internal/stream"
	"github.com/kingrea/saltproc/internal/unit"
)

const (
	// DefaultOutputDir is where run artifacts go when no --out is given.
	DefaultOutputDir = "saltproc-out"

	defaultFeedTemperature = 900.0
)

const exampleProjectYAML = `# saltproc project configuration
version: 1

runtime:
  parallelism: 1

materials:
  fuel:
    topology:
      dot_file: fuel.dot
    units:
      core_outlet:
        type: constant
        mass_flowrate: 9920000
      sparger:
        type: contactor
        mass_flowrate: 9920000
        volume: 10
        params:
          q_salt: 0.1
          q_gas: 0.005
          length: 10
          dp: 0.1
          db: 0.001
          temp_salt: 900
          correlation: ranz-marshall
      entrainment_separator:
        type: separator
        mass_flowrate: 9920000
        params:
          q_liquid: 0.1
          q_gas: 0.005
          pressure: 10
          x: 0.05
      nickel_filter:
        type: constant
        mass_flowrate: 9920000
        efficiency:
          Xe: 1.0
          Kr: "9.5/mass_flowrate"
    feeds:
      leu:
        density: 2.3
        volume: 1.0e6
        composition:
          U235: 0.05
          U238: 0.95
`

const exampleDOT = `digraph fuel {
	material = "fuel";
	core_outlet -> sparger -> entrainment_separator -> nickel_filter -> core_inlet;
}
`

const exampleSnapshotYAML = `# material state before reprocessing
materials:
  fuel:
    mass: 2.3e6
    density: 2.3
    volume: 1.0e6
    temperature: 900
    mass_flowrate: 9920000
    composition:
      U235: 0.03
      U238: 0.95
      Xe135: 0.004
      Xe136: 0.006
      Kr86: 0.005
      H1: 0.005
  ctrlPois:
    mass: 1000
    density: 2.5
    volume: 400
    temperature: 900
    composition:
      B10: 0.2
      B11: 0.8
`

// ExampleSnapshotFile is the material snapshot written next to the example
// project.
const ExampleSnapshotFile = "materials.yaml"

// RuntimeConfig captures execution preferences.
type RuntimeConfig struct {
	Parallelism int    `yaml:"parallelism,omitempty"`
	LogLevel    string `yaml:"log_level,omitempty"`
}

// TopologyConfig names exactly one source for a material's flowsheet.
type TopologyConfig struct {
	DOTFile string              `yaml:"dot_file,omitempty"`
	DOT     string              `yaml:"dot,omitempty"`
	Graph   flowsheet.Adjacency `yaml:"graph,omitempty"`
}

// UnitConfig declares one separation unit.
type UnitConfig struct {
	Type         string         `yaml:"type"`
	MassFlowrate float64        `yaml:"mass_flowrate"`
	Capacity     float64        `yaml:"capacity,omitempty"`
	Volume       float64        `yaml:"volume,omitempty"`
	Efficiency   map[string]any `yaml:"efficiency,omitempty"`
	Params       map[string]any `yaml:"params,omitempty"`
}

// FeedConfig declares a refill template. Its nominal mass is
// density * volume.
type FeedConfig struct {
	Density     float64            `yaml:"density"`
	Volume      float64            `yaml:"volume"`
	Temperature float64            `yaml:"temperature,omitempty"`
	Composition map[string]float64 `yaml:"composition"`
	Fraction    float64            `yaml:"fraction,omitempty"`
}

// MaterialConfig is the reprocessing scheme of one material.
type MaterialConfig struct {
	Topology      TopologyConfig        `yaml:"topology"`
	TotalFlowrate float64               `yaml:"total_flowrate,omitempty"`
	Units         map[string]UnitConfig `yaml:"units"`
	Feeds         map[string]FeedConfig `yaml:"feeds,omitempty"`
}

// ProjectConfig models the project file.
type ProjectConfig struct {
	Version   int                       `yaml:"version"`
	Runtime   RuntimeConfig             `yaml:"runtime,omitempty"`
	Materials map[string]MaterialConfig `yaml:"materials"`
}

// Config is a loaded project.
type Config struct {
	// Path is the project file; relative paths inside it resolve against
	// its directory.
	Path    string
	BaseDir string
	Project ProjectConfig
}

// Load reads, normalizes and validates the project file at path. Problems
// are reported as configuration errors before any step runs.
func Load(path string) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s: %w", path, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, errs.Wrap(errs.KindConfig, "config: read", abs, err)
	}
	var parsed ProjectConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&parsed); err != nil {
		return nil, errs.Wrap(errs.KindConfig, "config: parse", abs, err)
	}
	c := &Config{Path: abs, BaseDir: filepath.Dir(abs), Project: parsed}
	c.Project.applyDefaults()
	c.Project.normalize(c.BaseDir)
	if err := c.Project.validate(); err != nil {
		return nil, errs.Wrap(errs.KindConfig, "config", abs, err)
	}
	return c, nil
}

// MaterialNames returns the configured materials in sorted order.
func (c *Config) MaterialNames() []string {
	out := make([]string, 0, len(c.Project.Materials))
	for name := range c.Project.Materials {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Plans builds one reprocessing plan per material using reg to construct
// units.
func (c *Config) Plans(reg *unit.Registry) ([]*reprocess.Plan, error) {
	if reg == nil {
		reg = unit.Default()
	}
	plans := make([]*reprocess.Plan, 0, len(c.Project.Materials))
	for _, name := range c.MaterialNames() {
		plan, err := c.Plan(reg, name)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

// Plan builds the plan of a single material.
func (c *Config) Plan(reg *unit.Registry, material string) (*reprocess.Plan, error) {
	mc, ok := c.Project.Materials[material]
	if !ok {
		return nil, errs.New(errs.KindConfig, "config", material, "material is not configured")
	}
	if reg == nil {
		reg = unit.Default()
	}
	graph, err := mc.graph(material)
	if err != nil {
		return nil, err
	}
	units, err := mc.units(reg)
	if err != nil {
		return nil, fmt.Errorf("config: material %s: %w", material, err)
	}
	feeds, err := mc.feeds(material)
	if err != nil {
		return nil, err
	}
	return reprocess.NewPlan(material, graph, units, feeds)
}

func (mc MaterialConfig) graph(material string) (*flowsheet.Graph, error) {
	var (
		g   *flowsheet.Graph
		err error
	)
	switch {
	case mc.Topology.DOTFile != "":
		g, err = flowsheet.ReadDOT(mc.Topology.DOTFile)
	case mc.Topology.DOT != "":
		g, err = flowsheet.ParseDOT([]byte(mc.Topology.DOT))
	default:
		return flowsheet.New(mc.Topology.Graph, flowsheet.WithMaterial(material), flowsheet.WithTotalFlowrate(mc.TotalFlowrate))
	}
	if err != nil {
		return nil, err
	}
	if g.Material() != "" && g.Material() != material {
		return nil, errs.New(errs.KindConfig, "config: topology", material, "graph is for material %q", g.Material())
	}
	total := g.TotalFlowrate()
	if mc.TotalFlowrate > 0 {
		if total > 0 && total != mc.TotalFlowrate {
			return nil, errs.New(errs.KindConfig, "config: topology", material, "total_flowrate %g conflicts with graph attribute %g", mc.TotalFlowrate, total)
		}
		total = mc.TotalFlowrate
	}
	return flowsheet.New(g.Adjacency(), flowsheet.WithMaterial(material), flowsheet.WithTotalFlowrate(total))
}

func (mc MaterialConfig) units(reg *unit.Registry) ([]unit.Unit, error) {
	names := make([]string, 0, len(mc.Units))
	for name := range mc.Units {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]unit.Unit, 0, len(names))
	for _, name := range names {
		uc := mc.Units[name]
		u, err := reg.Build(unit.Definition{
			Name: name,
			Kind: uc.Type,
			Attributes: unit.Attributes{
				MassFlowrate: uc.MassFlowrate,
				Capacity:     uc.Capacity,
				Volume:       uc.Volume,
			},
			Efficiency: uc.Efficiency,
			Params:     uc.Params,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

func (mc MaterialConfig) feeds(material string) ([]reprocess.Feed, error) {
	names := make([]string, 0, len(mc.Feeds))
	for name := range mc.Feeds {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]reprocess.Feed, 0, len(names))
	for _, name := range names {
		fc := mc.Feeds[name]
		comp, err := ParseComposition(fc.Composition)
		if err != nil {
			return nil, errs.Wrap(errs.KindComposition, "config: feed", material+"/"+name, err)
		}
		s, err := stream.New(stream.Properties{
			Mass:        fc.Density * fc.Volume,
			Density:     fc.Density,
			Volume:      fc.Volume,
			Temperature: fc.Temperature,
		}, comp)
		if err != nil {
			return nil, fmt.Errorf("config: feed %s/%s: %w", material, name, err)
		}
		out = append(out, reprocess.Feed{Name: name, Stream: s, Share: fc.Fraction})
	}
	return out, nil
}

// ParseComposition converts nuclide names to identifiers. Two names for
// the same nuclide are an error.
func ParseComposition(raw map[string]float64) (stream.Composition, error) {
	comp := make(stream.Composition, len(raw))
	for key, f := range raw {
		n, err := nuclide.Parse(key)
		if err != nil {
			return nil, err
		}
		if _, dup := comp[n]; dup {
			return nil, fmt.Errorf("nuclide %s listed twice", n)
		}
		comp[n] = f
	}
	return comp, nil
}

// InitOutputDir creates the run output layout:
//
//	<dir>/
//	├── logs/      <- structured log
//	└── results/   <- step results
func InitOutputDir(dir string) error {
	for _, sub := range []string{LogsDir(dir), ResultsDir(dir)} {
		if err := os.MkdirAll(sub, 0o755); err != nil {
			return fmt.Errorf("config: ensure %s: %w", sub, err)
		}
	}
	return nil
}

// LogsDir returns the directory holding the structured log.
func LogsDir(out string) string { return filepath.Join(out, "logs") }

// ResultsDir returns the directory holding step results.
func ResultsDir(out string) string { return filepath.Join(out, "results") }

// JournalPath returns the human-readable step journal.
func JournalPath(out string) string { return filepath.Join(out, "journal.log") }

// ResultPath returns the result file of the run with id runID.
func ResultPath(out, runID string) string {
	return filepath.Join(ResultsDir(out), "step-"+runID+".yaml")
}

// WriteExample writes an example project, its DOT topology and a material
// snapshot into dir unless a project file already exists there.
func WriteExample(dir string) (string, error) {
	path := filepath.Join(dir, "saltproc.yaml")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("config: ensure %s: %w", dir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "fuel.dot"), []byte(exampleDOT), 0o644); err != nil {
		return "", fmt.Errorf("config: write example topology: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ExampleSnapshotFile), []byte(exampleSnapshotYAML), 0o644); err != nil {
		return "", fmt.Errorf("config: write example snapshot: %w", err)
	}
	if err := os.WriteFile(path, []byte(exampleProjectYAML), 0o644); err != nil {
		return "", fmt.Errorf("config: write example project: %w", err)
	}
	return path, nil
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if pc.Runtime.Parallelism == 0 {
		pc.Runtime.Parallelism = 1
	}
	if pc.Runtime.LogLevel == "" {
		pc.Runtime.LogLevel = "info"
	}
	for name, mc := range pc.Materials {
		for feed, fc := range mc.Feeds {
			if fc.Temperature == 0 {
				fc.Temperature = defaultFeedTemperature
			}
			mc.Feeds[feed] = fc
		}
		pc.Materials[name] = mc
	}
}

func (pc *ProjectConfig) normalize(base string) {
	pc.Runtime.LogLevel = strings.ToLower(strings.TrimSpace(pc.Runtime.LogLevel))
	for name, mc := range pc.Materials {
		mc.Topology.DOTFile = resolvePath(base, mc.Topology.DOTFile)
		for unitName, uc := range mc.Units {
			uc.Type = strings.ToLower(strings.TrimSpace(uc.Type))
			mc.Units[unitName] = uc
		}
		pc.Materials[name] = mc
	}
}

func (pc *ProjectConfig) validate() error {
	if pc.Version != 1 {
		return fmt.Errorf("unsupported config version %d", pc.Version)
	}
	if pc.Runtime.Parallelism < 1 {
		return fmt.Errorf("runtime.parallelism must be >= 1")
	}
	switch pc.Runtime.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("runtime.log_level must be debug, info, warn or error")
	}
	if len(pc.Materials) == 0 {
		return fmt.Errorf("at least one material is required")
	}
	for name, mc := range pc.Materials {
		if err := mc.validate(); err != nil {
			return fmt.Errorf("materials[%s]: %w", name, err)
		}
	}
	return nil
}

func (mc MaterialConfig) validate() error {
	sources := 0
	if mc.Topology.DOTFile != "" {
		sources++
	}
	if strings.TrimSpace(mc.Topology.DOT) != "" {
		sources++
	}
	if len(mc.Topology.Graph) > 0 {
		sources++
	}
	if sources != 1 {
		return fmt.Errorf("topology needs exactly one of dot_file, dot or graph")
	}
	if mc.TotalFlowrate < 0 {
		return fmt.Errorf("total_flowrate must be >= 0")
	}
	if len(mc.Units) == 0 {
		return fmt.Errorf("at least one unit is required")
	}
	for name, uc := range mc.Units {
		if uc.Type == "" {
			return fmt.Errorf("units[%s]: type is required", name)
		}
	}
	for name, fc := range mc.Feeds {
		if fc.Density < 0 || fc.Volume < 0 {
			return fmt.Errorf("feeds[%s]: density and volume must be >= 0", name)
		}
		if len(fc.Composition) == 0 {
			return fmt.Errorf("feeds[%s]: composition is required", name)
		}
	}
	return nil
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}
