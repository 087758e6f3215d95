// Package unit implements the separation components a salt stream is routed
// through: a table-driven constant-efficiency unit and two physics-derived
// units, a gas-stripping contactor and a bubble separator.
//
// Every variant resolves a per-element removal fraction and then applies
// the same element-grouped removal: each isotope of an element loses the
// element's fraction of its mass to the waste stream and keeps the rest.
package unit

import (
	"fmt"
	"math"

	"github.com/kingrea/saltproc/internal/errs"
	"github.com/kingrea/saltproc/internal/nuclide"
	"github.com/kingrea/saltproc/internal/stream"
)

// Kind names a unit variant.
type Kind string

const (
	KindConstant  Kind = "constant"
	KindContactor Kind = "contactor"
	KindSeparator Kind = "separator"
)

// Attributes are the design parameters shared by every unit. Formula
// efficiencies are evaluated against these.
type Attributes struct {
	Name         string  `yaml:"-"`
	MassFlowrate float64 `yaml:"mass_flowrate"` // g/s
	Capacity     float64 `yaml:"capacity"`      // g/s
	Volume       float64 `yaml:"volume"`        // cm3
}

// Validate ensures the attributes are usable.
func (a Attributes) Validate() error {
	if a.Name == "" {
		return errs.New(errs.KindConfig, "unit", "", "name is required")
	}
	for _, v := range []float64{a.MassFlowrate, a.Capacity, a.Volume} {
		if !(v >= 0) || math.IsInf(v, 0) {
			return errs.New(errs.KindConfig, "unit", a.Name, "mass_flowrate, capacity and volume must be finite and >= 0")
		}
	}
	return nil
}

// Unit is implemented by every separation component.
type Unit interface {
	Name() string
	Kind() Kind
	Attributes() Attributes
	// Efficiencies resolves the removal fraction per element symbol for the
	// unit's current attributes. Elements not listed are fully retained.
	Efficiencies() (map[string]float64, error)
	// Process splits in into the retained stream and the waste stream.
	Process(in stream.Stream) (retained, waste stream.Stream, err error)
}

func process(u Unit, in stream.Stream) (stream.Stream, stream.Stream, error) {
	eff, err := u.Efficiencies()
	if err != nil {
		return stream.Stream{}, stream.Stream{}, err
	}
	retained, waste := removeElements(in, eff)
	return retained, waste, nil
}

// removeElements moves eff[element] of every isotope's mass into the waste
// stream. Both outputs keep the input's intensive properties; volume and
// mass flow rate are split in proportion to mass.
func removeElements(in stream.Stream, eff map[string]float64) (retained, waste stream.Stream) {
	if in.Mass <= 0 {
		return in.Clone(), in.Scale(0)
	}
	kept := make(map[nuclide.Nuc]float64)
	removed := make(map[nuclide.Nuc]float64)
	for n, m := range in.Masses() {
		e, ok := eff[n.Element()]
		if !ok || e == 0 {
			kept[n] = m
			continue
		}
		w := m * e
		removed[n] = w
		kept[n] = m - w
	}
	fallback := in.Composition()
	retained = stream.FromMasses(in.Properties, kept, fallback)
	waste = stream.FromMasses(in.Properties, removed, fallback)
	retained = withShare(retained, in, retained.Mass/in.Mass)
	waste = withShare(waste, in, waste.Mass/in.Mass)
	return retained, waste
}

func withShare(s, in stream.Stream, share float64) stream.Stream {
	s.Volume = in.Volume * share
	s.MassFlowrate = in.MassFlowrate * share
	return s
}

func wrapEval(u Unit, err error) error {
	if err == nil {
		return nil
	}
	if _, classified := errs.KindOf(err); classified {
		return err
	}
	return errs.Wrap(errs.KindEvaluation, "unit: efficiency", u.Name(), err)
}

func checkFraction(unitName, element string, v float64) error {
	if math.IsNaN(v) {
		return errs.New(errs.KindEvaluation, "unit: efficiency", unitName, "%s evaluated to NaN", element)
	}
	if v < 0 || v > 1 {
		return errs.New(errs.KindRange, "unit: efficiency", unitName, "%s efficiency %v outside [0,1]", element, v)
	}
	return nil
}

func describe(u Unit) string {
	a := u.Attributes()
	return fmt.Sprintf("%s(%s, mass_flowrate=%g)", u.Kind(), a.Name, a.MassFlowrate)
}
