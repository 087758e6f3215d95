package nuclide

import "strings"

var symbols = [...]string{
	"",
	"H", "He", "Li", "Be", "B", "C", "N", "O", "F", "Ne",
	"Na", "Mg", "Al", "Si", "P", "S", "Cl", "Ar", "K", "Ca",
	"Sc", "Ti", "V", "Cr", "Mn", "Fe", "Co", "Ni", "Cu", "Zn",
	"Ga", "Ge", "As", "Se", "Br", "Kr", "Rb", "Sr", "Y", "Zr",
	"Nb", "Mo", "Tc", "Ru", "Rh", "Pd", "Ag", "Cd", "In", "Sn",
	"Sb", "Te", "I", "Xe", "Cs", "Ba", "La", "Ce", "Pr", "Nd",
	"Pm", "Sm", "Eu", "Gd", "Tb", "Dy", "Ho", "Er", "Tm", "Yb",
	"Lu", "Hf", "Ta", "W", "Re", "Os", "Ir", "Pt", "Au", "Hg",
	"Tl", "Pb", "Bi", "Po", "At", "Rn", "Fr", "Ra", "Ac", "Th",
	"Pa", "U", "Np", "Pu", "Am", "Cm", "Bk", "Cf", "Es", "Fm",
	"Md", "No", "Lr", "Rf", "Db", "Sg", "Bh", "Hs", "Mt", "Ds",
	"Rg", "Cn", "Nh", "Fl", "Mc", "Lv", "Ts", "Og",
}

var byLowerSymbol = func() map[string]int {
	m := make(map[string]int, len(symbols))
	for z, s := range symbols {
		if s != "" {
			m[strings.ToLower(s)] = z
		}
	}
	return m
}()

// Symbol returns the chemical symbol for atomic number z, or "".
func Symbol(z int) string {
	if z <= 0 || z >= len(symbols) {
		return ""
	}
	return symbols[z]
}

// ZOf returns the atomic number for a chemical symbol (case-insensitive), or 0.
func ZOf(symbol string) int {
	return byLowerSymbol[strings.ToLower(strings.TrimSpace(symbol))]
}

// CanonicalSymbol normalises a symbol's case (xe -> Xe). Unknown symbols
// return "".
func CanonicalSymbol(symbol string) string {
	return Symbol(ZOf(symbol))
}
