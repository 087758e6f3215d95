package stream

import (
	"math"

	"github.com/kingrea/saltproc/internal/nuclide"
)

// Scale returns a proportional copy: mass, volume and mass flow rate are
// multiplied by factor, intensive properties are kept and the composition
// is renormalised. Scale(0) yields a zero-mass stream that keeps its
// fractions. A negative factor clamps mass to zero.
func (s Stream) Scale(factor float64) Stream {
	out := Stream{Properties: s.Properties, comp: normalized(s.comp)}
	out.Mass = s.Mass * factor
	out.Volume = s.Volume * factor
	out.MassFlowrate = s.MassFlowrate * factor
	if out.Mass < 0 {
		out.Mass = 0
		out.Volume = 0
		out.MassFlowrate = 0
	}
	return out
}

// Add merges other into a copy of s.
//
// Mass and mass flow rate add up. The composition is rebuilt from both
// operands' absolute nuclide masses. Temperature and density are taken from
// s (the first operand), burnup is mass-weighted, void fraction is
// volume-weighted, and volume is recomputed as mass/density. Adding to the
// zero Stream returns a copy of other.
func (s Stream) Add(other Stream) Stream {
	if s.IsZero() {
		return other.Clone()
	}
	if other.IsZero() {
		return s.Clone()
	}
	total := s.Mass + other.Mass

	masses := make(map[nuclide.Nuc]float64, len(s.comp)+len(other.comp))
	for n, f := range s.comp {
		masses[n] += s.Mass * f
	}
	for n, f := range other.comp {
		masses[n] += other.Mass * f
	}

	var comp Composition
	if total > 0 {
		comp = make(Composition, len(masses))
		for n, m := range masses {
			comp[n] = m / total
		}
		comp = normalized(comp)
	} else {
		comp = s.comp.Clone()
		if len(comp) == 0 {
			comp = other.comp.Clone()
		}
	}

	props := s.Properties
	props.Mass = total
	props.MassFlowrate = s.MassFlowrate + other.MassFlowrate
	if total > 0 {
		props.Burnup = (s.Burnup*s.Mass + other.Burnup*other.Mass) / total
	}
	if vol := s.Volume + other.Volume; vol > 0 {
		props.VoidFraction = (s.VoidFraction*s.Volume + other.VoidFraction*other.Volume) / vol
	}
	if s.Density > 0 {
		props.Volume = total / s.Density
	} else {
		props.Volume = s.Volume + other.Volume
	}
	return Stream{Properties: props, comp: comp}
}

// Sum folds streams with Add, left to right.
func Sum(streams ...Stream) Stream {
	var acc Stream
	for _, s := range streams {
		acc = acc.Add(s)
	}
	return acc
}

// Equal compares bulk properties and every composition fraction within the
// default tolerance.
func (s Stream) Equal(other Stream) bool {
	return s.EqualWithin(other, Epsilon)
}

// EqualWithin compares like Equal with a caller-supplied relative tolerance.
func (s Stream) EqualWithin(other Stream, tol float64) bool {
	if !approx(s.Mass, other.Mass, tol) ||
		!approx(s.Volume, other.Volume, tol) ||
		!approx(s.Density, other.Density, tol) ||
		!approx(s.Temperature, other.Temperature, tol) ||
		!approx(s.MassFlowrate, other.MassFlowrate, tol) {
		return false
	}
	for n, f := range s.comp {
		if !approx(f, other.comp[n], tol) {
			return false
		}
	}
	for n, f := range other.comp {
		if _, ok := s.comp[n]; !ok && !approx(f, 0, tol) {
			return false
		}
	}
	return true
}

func approx(a, b, tol float64) bool {
	if a == b {
		return true
	}
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= tol*scale
}
