package unit

import (
	"fmt"
	"math"
	"sort"

	"github.com/kingrea/saltproc/internal/errs"
	"github.com/kingrea/saltproc/internal/nuclide"
)

// Fraction is one element's removal efficiency: either a constant or a
// value derived from the owning unit's attributes at call time.
type Fraction struct {
	value  float64
	expr   string
	derive func(Attributes) (float64, error)
}

// Const is a fixed removal fraction.
func Const(v float64) Fraction {
	return Fraction{value: v}
}

// Derived is a removal fraction computed by fn from the unit's attributes
// whenever the unit processes a stream. expr is kept for reporting.
func Derived(expr string, fn func(Attributes) (float64, error)) Fraction {
	return Fraction{expr: expr, derive: fn}
}

// IsDerived reports whether the fraction is computed at call time.
func (f Fraction) IsDerived() bool {
	return f.derive != nil
}

// Expr returns the source expression of a derived fraction.
func (f Fraction) Expr() string {
	return f.expr
}

func (f Fraction) String() string {
	if f.IsDerived() {
		return fmt.Sprintf("%q", f.expr)
	}
	return fmt.Sprintf("%g", f.value)
}

// Resolve returns the fraction for attrs. It never mutates the unit.
func (f Fraction) Resolve(attrs Attributes) (float64, error) {
	if !f.IsDerived() {
		return f.value, nil
	}
	return f.derive(attrs)
}

// Table maps an element symbol to its removal fraction.
type Table map[string]Fraction

// Validate checks element symbols and constant entries. Constants outside
// [0,1] are configuration errors; derived entries are range-checked when
// they are resolved.
func (t Table) Validate(unitName string) error {
	for _, el := range t.Elements() {
		if nuclide.ZOf(el) == 0 {
			return errs.New(errs.KindConfig, "unit: efficiency", unitName, "unknown element %q", el)
		}
		f := t[el]
		if f.IsDerived() {
			continue
		}
		if f.value < 0 || f.value > 1 || math.IsNaN(f.value) {
			return errs.New(errs.KindConfig, "unit: efficiency", unitName, "%s efficiency %v outside [0,1]", el, f.value)
		}
	}
	return nil
}

// Elements returns the table's element symbols in sorted order.
func (t Table) Elements() []string {
	out := make([]string, 0, len(t))
	for el := range t {
		out = append(out, el)
	}
	sort.Strings(out)
	return out
}

// Resolve evaluates every entry against attrs, keyed by canonical symbol.
func (t Table) Resolve(attrs Attributes) (map[string]float64, error) {
	out := make(map[string]float64, len(t))
	for _, el := range t.Elements() {
		v, err := t[el].Resolve(attrs)
		if err != nil {
			return nil, errs.Wrap(errs.KindEvaluation, "unit: efficiency", attrs.Name, fmt.Errorf("%s: %w", el, err))
		}
		if err := checkFraction(attrs.Name, el, v); err != nil {
			return nil, err
		}
		out[nuclide.CanonicalSymbol(el)] = v
	}
	return out, nil
}

// ParseTable converts decoded configuration (element -> number or formula
// string) into a Table. Numeric strings are constants; other strings are
// compiled with CompileFormula and fail with an evaluation error when they
// do not compile.
func ParseTable(unitName string, raw map[string]any) (Table, error) {
	t := make(Table, len(raw))
	for el, value := range raw {
		sym := nuclide.CanonicalSymbol(el)
		if sym == "" {
			return nil, errs.New(errs.KindConfig, "unit: efficiency", unitName, "unknown element %q", el)
		}
		f, err := parseFraction(value)
		if err != nil {
			kind := errs.KindConfig
			if _, isFormula := value.(string); isFormula {
				kind = errs.KindEvaluation
			}
			return nil, errs.Wrap(kind, "unit: efficiency", unitName, fmt.Errorf("%s: %w", el, err))
		}
		t[sym] = f
	}
	if err := t.Validate(unitName); err != nil {
		return nil, err
	}
	return t, nil
}

func parseFraction(value any) (Fraction, error) {
	switch v := value.(type) {
	case float64:
		return Const(v), nil
	case float32:
		return Const(float64(v)), nil
	case int:
		return Const(float64(v)), nil
	case int64:
		return Const(float64(v)), nil
	case string:
		if f, ok := parseNumber(v); ok {
			return Const(f), nil
		}
		fn, err := CompileFormula(v)
		if err != nil {
			return Fraction{}, err
		}
		return Derived(v, fn), nil
	default:
		return Fraction{}, fmt.Errorf("unsupported efficiency value %v (%T)", value, value)
	}
}
