package unit

import "math"

// Gas constant, J/(mol K).
const gasConstant = 8.314

// Reference temperature for the tabulated gas data, K.
const refTemperature = 900.0

// saltDensity is FLiBe density in kg/m3 at temperature t (K).
func saltDensity(t float64) float64 {
	return 2413 - 0.488*t
}

// saltViscosity is FLiBe dynamic viscosity in Pa s at temperature t (K).
func saltViscosity(t float64) float64 {
	return 1.16e-4 * math.Exp(3755/t)
}

// gasData holds solubility and transport data for a gas dissolved in FLiBe
// at refTemperature.
type gasData struct {
	henry       float64 // Pa m3/mol
	dissolution float64 // J/mol, van't Hoff enthalpy
	diffusivity float64 // m2/s
}

// strippedGases are the elements the contactor and separator remove. The
// diffusivities are effective values for a sparged salt; at the default
// contactor design they give Xe 0.399, Kr 0.617 and H 0.716 with
// Ranz-Marshall.
var strippedGases = map[string]gasData{
	"H":  {henry: 1.28e6, dissolution: 14.6e3, diffusivity: 4e-8},
	"Kr": {henry: 1.69e7, dissolution: 27.6e3, diffusivity: 2.2e-8},
	"Xe": {henry: 4.05e7, dissolution: 36e3, diffusivity: 8.5e-9},
}

// henryAt applies the van't Hoff correction to the reference constant.
func (g gasData) henryAt(t float64) float64 {
	return g.henry * math.Exp(g.dissolution/gasConstant*(1/t-1/refTemperature))
}

// diffusivityAt scales the reference diffusivity with Stokes-Einstein.
func (g gasData) diffusivityAt(t float64) float64 {
	return g.diffusivity * (t / refTemperature) * (saltViscosity(refTemperature) / saltViscosity(t))
}

func gasSymbols() []string {
	return []string{"H", "Kr", "Xe"}
}
