package unit

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/kingrea/saltproc/internal/errs"
	"github.com/kingrea/saltproc/internal/stream"
)

// Correlation selects the Sherwood-number form used for the liquid-side
// mass-transfer coefficient.
type Correlation string

const (
	RanzMarshall Correlation = "ranz-marshall"
	Higbie       Correlation = "higbie"
)

// ParseCorrelation accepts the correlation names used in configuration.
// "sherwood" is an alias for ranz-marshall.
func ParseCorrelation(s string) (Correlation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ranz-marshall", "ranz_marshall", "sherwood":
		return RanzMarshall, nil
	case "higbie":
		return Higbie, nil
	default:
		return "", fmt.Errorf("unknown correlation %q", s)
	}
}

// sherwood returns Sh for Reynolds number re and Schmidt number sc.
func (c Correlation) sherwood(re, sc float64) float64 {
	if c == Higbie {
		return 2 / math.Sqrt(math.Pi) * math.Sqrt(re) * math.Sqrt(sc)
	}
	return 2 + 0.6*math.Sqrt(re)*math.Cbrt(sc)
}

// ContactorParams describe a gas-sparging contactor. Flow rates are in
// m3/s, lengths in m, temperature in K.
type ContactorParams struct {
	QSalt       float64     `yaml:"q_salt"`
	QGas        float64     `yaml:"q_gas"`
	Length      float64     `yaml:"length"`
	PipeDiam    float64     `yaml:"dp"`
	BubbleDiam  float64     `yaml:"db"`
	TempSalt    float64     `yaml:"temp_salt"`
	Correlation Correlation `yaml:"correlation"`
}

// DefaultContactorParams returns the reference contactor design.
func DefaultContactorParams() ContactorParams {
	return ContactorParams{
		QSalt:       0.1,
		QGas:        0.005,
		Length:      10,
		PipeDiam:    0.1,
		BubbleDiam:  0.001,
		TempSalt:    900,
		Correlation: RanzMarshall,
	}
}

func (p ContactorParams) validate(name string) error {
	positive := []struct {
		key string
		v   float64
	}{
		{"q_salt", p.QSalt}, {"q_gas", p.QGas}, {"length", p.Length},
		{"dp", p.PipeDiam}, {"db", p.BubbleDiam}, {"temp_salt", p.TempSalt},
	}
	for _, f := range positive {
		if !(f.v > 0) || math.IsInf(f.v, 0) {
			return errs.New(errs.KindConfig, "unit: contactor", name, "%s must be a positive number, got %v", f.key, f.v)
		}
	}
	if saltDensity(p.TempSalt) <= 0 {
		return errs.New(errs.KindConfig, "unit: contactor", name, "temp_salt %v K is above the salt correlation range", p.TempSalt)
	}
	if _, err := ParseCorrelation(string(p.Correlation)); err != nil {
		return errs.Wrap(errs.KindConfig, "unit: contactor", name, err)
	}
	return nil
}

// Contactor strips dissolved gases into a sparging gas stream.
type Contactor struct {
	attrs  Attributes
	params ContactorParams

	once sync.Once
	eff  map[string]float64
	err  error
}

// NewContactor validates attrs and params.
func NewContactor(attrs Attributes, params ContactorParams) (*Contactor, error) {
	if err := attrs.Validate(); err != nil {
		return nil, err
	}
	if err := params.validate(attrs.Name); err != nil {
		return nil, err
	}
	params.Correlation, _ = ParseCorrelation(string(params.Correlation))
	return &Contactor{attrs: attrs, params: params}, nil
}

func (c *Contactor) Name() string            { return c.attrs.Name }
func (c *Contactor) Kind() Kind              { return KindContactor }
func (c *Contactor) Attributes() Attributes  { return c.attrs }
func (c *Contactor) Params() ContactorParams { return c.params }
func (c *Contactor) String() string          { return describe(c) }

// Efficiencies returns the per-gas removal fraction. The result depends
// only on the parameters and is computed once.
func (c *Contactor) Efficiencies() (map[string]float64, error) {
	c.once.Do(func() {
		eff := make(map[string]float64, len(strippedGases))
		for _, g := range gasSymbols() {
			v := c.params.efficiency(strippedGases[g])
			if err := checkFraction(c.attrs.Name, g, v); err != nil {
				c.err = err
				return
			}
			eff[g] = v
		}
		c.eff = eff
	})
	if c.err != nil {
		return nil, c.err
	}
	out := make(map[string]float64, len(c.eff))
	for g, v := range c.eff {
		out[g] = v
	}
	return out, nil
}

// Process implements Unit.
func (c *Contactor) Process(in stream.Stream) (stream.Stream, stream.Stream, error) {
	return process(c, in)
}

// efficiency is (1 - exp(-beta)) / (1 + alpha) for one gas.
func (p ContactorParams) efficiency(g gasData) float64 {
	t := p.TempSalt
	rho := saltDensity(t)
	mu := saltViscosity(t)
	area := math.Pi * p.PipeDiam * p.PipeDiam / 4
	velocity := p.QSalt / area
	re := rho * velocity * p.BubbleDiam / mu
	diff := g.diffusivityAt(t)
	sc := mu / (rho * diff)
	kl := p.Correlation.sherwood(re, sc) * diff / p.BubbleDiam
	alpha := gasConstant * t / g.henryAt(t) * (p.QSalt / p.QGas)
	interfacial := 6 / p.BubbleDiam * (p.QGas / (p.QGas + p.QSalt))
	beta := kl * interfacial * area * p.Length * (1 + alpha) / p.QSalt
	return (1 - math.Exp(-beta)) / (1 + alpha)
}
