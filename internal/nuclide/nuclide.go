// Package nuclide identifies isotopes by a numeric ZZZAAAMMMM code and maps
// them to their chemical element.
package nuclide

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// Nuc describes a nuclide in ZZZAAAMMMM format: atomic number, mass number
// and metastable state.
type Nuc int

// New builds a nuclide id from its parts.
func New(z, a, state int) Nuc {
	return Nuc(z*10000000 + a*10000 + state)
}

// Z returns the atomic number of a nuclide.
func (n Nuc) Z() int {
	return int(n) / 10000000
}

// A returns the mass number of a nuclide.
func (n Nuc) A() int {
	return (int(n) / 10000) % 1000
}

// State returns the metastable state (0 for the ground state).
func (n Nuc) State() int {
	return int(n) % 10000
}

// Element returns the chemical symbol, or "" for an unknown atomic number.
func (n Nuc) Element() string {
	return Symbol(n.Z())
}

// Valid reports whether n has a known element and a mass number.
func (n Nuc) Valid() bool {
	return n.Element() != "" && n.A() > 0
}

// String formats the nuclide as Xe135 or Am242_m1.
func (n Nuc) String() string {
	sym := n.Element()
	if sym == "" {
		return strconv.Itoa(int(n))
	}
	s := sym + strconv.Itoa(n.A())
	if st := n.State(); st > 0 {
		s += "_m" + strconv.Itoa(st)
	}
	return s
}

// MarshalText lets nuclides act as YAML/JSON map keys.
func (n Nuc) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// UnmarshalText parses the forms accepted by Parse.
func (n *Nuc) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

// Parse accepts Xe135, xe-135, Am242m1, Am242_m1 and plain ZZZAAAMMMM ids.
func Parse(s string) (Nuc, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, fmt.Errorf("nuclide: empty name")
	}
	if id, err := strconv.Atoi(raw); err == nil {
		n := Nuc(id)
		if !n.Valid() {
			return 0, fmt.Errorf("nuclide: %q is not a ZZZAAAMMMM id", s)
		}
		return n, nil
	}
	i := 0
	for i < len(raw) && unicode.IsLetter(rune(raw[i])) {
		i++
	}
	z := ZOf(raw[:i])
	if z == 0 {
		return 0, fmt.Errorf("nuclide: unknown element in %q", s)
	}
	rest := strings.TrimPrefix(raw[i:], "-")
	j := 0
	for j < len(rest) && rest[j] >= '0' && rest[j] <= '9' {
		j++
	}
	if j == 0 {
		return 0, fmt.Errorf("nuclide: missing mass number in %q", s)
	}
	a, _ := strconv.Atoi(rest[:j])
	if a <= 0 || a >= 1000 {
		return 0, fmt.Errorf("nuclide: mass number out of range in %q", s)
	}
	state := 0
	if suffix := strings.ToLower(strings.TrimPrefix(rest[j:], "_")); suffix != "" {
		if !strings.HasPrefix(suffix, "m") {
			return 0, fmt.Errorf("nuclide: bad metastable suffix in %q", s)
		}
		state = 1
		if digits := suffix[1:]; digits != "" {
			v, err := strconv.Atoi(digits)
			if err != nil || v < 0 || v >= 10000 {
				return 0, fmt.Errorf("nuclide: bad metastable state in %q", s)
			}
			state = v
		}
	}
	return New(z, a, state), nil
}

// MustParse is Parse for fixtures and tables; it panics on bad input.
func MustParse(s string) Nuc {
	n, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return n
}

// Sorted returns ids ordered by (Z, A, state).
func Sorted(ids []Nuc) []Nuc {
	out := append([]Nuc(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
