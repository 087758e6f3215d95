package unit

import (
	"math"

	"github.com/kingrea/saltproc/internal/errs"
	"github.com/kingrea/saltproc/internal/stream"
)

// separationConstant is the empirical k in the bubble separator relation.
const separationConstant = 1000.0

// SeparatorParams describe a bubble (entrainment) separator. Qe and Qg are
// the liquid and gas flow rates, P the pressure and X the gas injection
// fraction.
type SeparatorParams struct {
	QLiquid  float64 `yaml:"q_liquid"`
	QGas     float64 `yaml:"q_gas"`
	Pressure float64 `yaml:"pressure"`
	X        float64 `yaml:"x"`
}

// DefaultSeparatorParams returns the reference separator design.
func DefaultSeparatorParams() SeparatorParams {
	return SeparatorParams{QLiquid: 0.1, QGas: 0.005, Pressure: 10, X: 0.05}
}

func (p SeparatorParams) validate(name string) error {
	for key, v := range map[string]float64{"q_liquid": p.QLiquid, "q_gas": p.QGas, "pressure": p.Pressure, "x": p.X} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return errs.New(errs.KindConfig, "unit: separator", name, "%s must be a non-negative number, got %v", key, v)
		}
	}
	if p.QGas == 0 && p.X*p.QLiquid*p.Pressure == 0 {
		return errs.New(errs.KindConfig, "unit: separator", name, "q_gas and x*q_liquid*pressure are both zero")
	}
	return nil
}

// efficiency is k*Qg / (x*Qe*P + k*Qg).
func (p SeparatorParams) efficiency() float64 {
	gas := separationConstant * p.QGas
	return gas / (p.X*p.QLiquid*p.Pressure + gas)
}

// Separator removes H, Kr and Xe with one shared efficiency.
type Separator struct {
	attrs  Attributes
	params SeparatorParams
	eff    float64
}

// NewSeparator validates attrs and params.
func NewSeparator(attrs Attributes, params SeparatorParams) (*Separator, error) {
	if err := attrs.Validate(); err != nil {
		return nil, err
	}
	if err := params.validate(attrs.Name); err != nil {
		return nil, err
	}
	eff := params.efficiency()
	if err := checkFraction(attrs.Name, "gas", eff); err != nil {
		return nil, err
	}
	return &Separator{attrs: attrs, params: params, eff: eff}, nil
}

func (s *Separator) Name() string            { return s.attrs.Name }
func (s *Separator) Kind() Kind              { return KindSeparator }
func (s *Separator) Attributes() Attributes  { return s.attrs }
func (s *Separator) Params() SeparatorParams { return s.params }
func (s *Separator) String() string          { return describe(s) }

// Efficiencies implements Unit.
func (s *Separator) Efficiencies() (map[string]float64, error) {
	out := make(map[string]float64, len(strippedGases))
	for _, g := range gasSymbols() {
		out[g] = s.eff
	}
	return out, nil
}

// Process implements Unit.
func (s *Separator) Process(in stream.Stream) (stream.Stream, stream.Stream, error) {
	return process(s, in)
}
