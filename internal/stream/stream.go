// Package stream models a quantity of one process material at one instant:
// bulk properties plus an isotopic composition in mass fractions.
//
// Streams are values. Every operation returns a new Stream with its own
// composition map, so a stream handed to a separation unit can never be
// changed through an alias held elsewhere.
package stream

import (
	"fmt"
	"math"

	"github.com/kingrea/saltproc/internal/errs"
	"github.com/kingrea/saltproc/internal/nuclide"
)

// Epsilon is the relative tolerance for composition closure and mass balance.
const Epsilon = 1e-9

// Composition maps a nuclide to its mass fraction of the stream.
type Composition map[nuclide.Nuc]float64

// Clone returns a copy of the composition.
func (c Composition) Clone() Composition {
	if c == nil {
		return nil
	}
	out := make(Composition, len(c))
	for n, f := range c {
		out[n] = f
	}
	return out
}

// Sum adds up all fractions.
func (c Composition) Sum() float64 {
	total := 0.0
	for _, f := range c {
		total += f
	}
	return total
}

// Properties are the bulk attributes of a stream.
type Properties struct {
	Mass         float64 // g
	Volume       float64 // cm3
	Density      float64 // g/cm3
	Temperature  float64 // K
	MassFlowrate float64 // g/s
	VoidFraction float64
	Burnup       float64 // MWd/kgHM
}

// Stream is a material with bulk properties and a composition.
type Stream struct {
	Properties
	comp Composition
}

// New validates comp and builds a stream. Fractions must be finite and
// non-negative and must sum to 1 within Epsilon; the stored composition is
// renormalised. A mass that is negative only by floating-point noise is
// clamped to zero.
func New(props Properties, comp Composition) (Stream, error) {
	if len(comp) == 0 {
		return Stream{}, errs.New(errs.KindComposition, "stream: new", "", "composition is empty")
	}
	for n, f := range comp {
		if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
			return Stream{}, errs.New(errs.KindComposition, "stream: new", n.String(), "fraction %v is not a finite non-negative number", f)
		}
	}
	if sum := comp.Sum(); math.Abs(sum-1) > Epsilon {
		return Stream{}, errs.New(errs.KindComposition, "stream: new", "", "fractions sum to %.12g, want 1", sum)
	}
	if math.IsNaN(props.Mass) || math.IsInf(props.Mass, 0) {
		return Stream{}, errs.New(errs.KindRange, "stream: new", "", "mass %v is not finite", props.Mass)
	}
	mass := ClampMass(props.Mass, props.Mass)
	if mass < 0 {
		return Stream{}, errs.New(errs.KindRange, "stream: new", "", "mass %v is negative", props.Mass)
	}
	props.Mass = mass
	return Stream{Properties: props, comp: normalized(comp)}, nil
}

// MustNew is New for fixtures; it panics on invalid input.
func MustNew(props Properties, comp Composition) Stream {
	s, err := New(props, comp)
	if err != nil {
		panic(err)
	}
	return s
}

// FromMasses builds a stream whose mass and composition come from absolute
// nuclide masses. When the masses add up to zero the fallback composition
// is kept, mirroring Scale(0). Other properties are taken from props.
func FromMasses(props Properties, masses map[nuclide.Nuc]float64, fallback Composition) Stream {
	total := 0.0
	clean := make(map[nuclide.Nuc]float64, len(masses))
	for n, m := range masses {
		m = ClampMass(m, m)
		if m < 0 {
			m = 0
		}
		clean[n] = m
		total += m
	}
	props.Mass = total
	if total <= 0 {
		return Stream{Properties: props, comp: fallback.Clone()}
	}
	comp := make(Composition, len(clean))
	for n, m := range clean {
		comp[n] = m / total
	}
	return Stream{Properties: props, comp: normalized(comp)}
}

// IsZero reports whether s is the zero Stream (no composition, no mass).
func (s Stream) IsZero() bool {
	return len(s.comp) == 0 && s.Mass == 0
}

// Composition returns a copy of the mass fractions.
func (s Stream) Composition() Composition {
	return s.comp.Clone()
}

// Fraction returns the mass fraction of n (0 when absent).
func (s Stream) Fraction(n nuclide.Nuc) float64 {
	return s.comp[n]
}

// NuclideMass returns mass * fraction of n. Unknown nuclides have zero mass.
func (s Stream) NuclideMass(n nuclide.Nuc) float64 {
	return s.Mass * s.comp[n]
}

// ElementMass sums the masses of every isotope of the chemical element symbol.
func (s Stream) ElementMass(symbol string) float64 {
	sym := nuclide.CanonicalSymbol(symbol)
	total := 0.0
	for n, f := range s.comp {
		if n.Element() == sym {
			total += s.Mass * f
		}
	}
	return total
}

// Masses returns the absolute mass of every nuclide in the stream.
func (s Stream) Masses() map[nuclide.Nuc]float64 {
	out := make(map[nuclide.Nuc]float64, len(s.comp))
	for n, f := range s.comp {
		out[n] = s.Mass * f
	}
	return out
}

// Nuclides returns the stream's nuclides in (Z, A, state) order.
func (s Stream) Nuclides() []nuclide.Nuc {
	ids := make([]nuclide.Nuc, 0, len(s.comp))
	for n := range s.comp {
		ids = append(ids, n)
	}
	return nuclide.Sorted(ids)
}

// Clone returns a deep copy.
func (s Stream) Clone() Stream {
	return Stream{Properties: s.Properties, comp: s.comp.Clone()}
}

// Validate checks invariants I1 (closure) and I2 (non-negative finite mass).
func (s Stream) Validate() error {
	if math.IsNaN(s.Mass) || math.IsInf(s.Mass, 0) || s.Mass < 0 {
		return errs.New(errs.KindComposition, "stream: validate", "", "mass %v is invalid", s.Mass)
	}
	if len(s.comp) == 0 {
		return errs.New(errs.KindComposition, "stream: validate", "", "composition is empty")
	}
	if sum := s.comp.Sum(); math.IsNaN(sum) || math.Abs(sum-1) > Epsilon {
		return errs.New(errs.KindComposition, "stream: validate", "", "fractions sum to %.12g, want 1", sum)
	}
	return nil
}

func (s Stream) String() string {
	return fmt.Sprintf("Stream{mass=%.6g g, volume=%.6g cm3, T=%.6g K, nuclides=%d}",
		s.Mass, s.Volume, s.Temperature, len(s.comp))
}

// ClampMass returns 0 when v is negative by no more than Epsilon relative
// to scale (absolute Epsilon when scale is tiny). Other values pass through.
func ClampMass(v, scale float64) float64 {
	if v < 0 && -v <= Epsilon*math.Max(1, math.Abs(scale)) {
		return 0
	}
	return v
}

func normalized(c Composition) Composition {
	sum := c.Sum()
	out := make(Composition, len(c))
	if sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		for n, f := range c {
			out[n] = f
		}
		return out
	}
	for n, f := range c {
		out[n] = f / sum
	}
	return out
}
