package errs

import (
	"fmt"
	"math"
)

// ConservationWarning records mass drift larger than the tolerance. It does
// not abort the step; it is logged, journaled and returned with the step
// result so an operator can inspect the configuration.
type ConservationWarning struct {
	Material string  `yaml:"material"`
	Stage    string  `yaml:"stage"`
	Expected float64 `yaml:"expected"`
	Actual   float64 `yaml:"actual"`
}

// Drift is Actual minus Expected.
func (w ConservationWarning) Drift() float64 {
	return w.Actual - w.Expected
}

// Relative is the drift relative to Expected (absolute drift when Expected is zero).
func (w ConservationWarning) Relative() float64 {
	if w.Expected == 0 {
		return math.Abs(w.Drift())
	}
	return math.Abs(w.Drift() / w.Expected)
}

func (w ConservationWarning) String() string {
	return fmt.Sprintf("conservation warning: %s %s: expected %.12g, got %.12g (drift %.3g)",
		w.Material, w.Stage, w.Expected, w.Actual, w.Drift())
}
