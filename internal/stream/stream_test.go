package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/saltproc/internal/errs"
	"github.com/kingrea/saltproc/internal/nuclide"
)

var (
	xe135 = nuclide.MustParse("Xe135")
	xe136 = nuclide.MustParse("Xe136")
	kr86  = nuclide.MustParse("Kr86")
	u235  = nuclide.MustParse("U235")
)

func fuel(t *testing.T) Stream {
	t.Helper()
	s, err := New(Properties{
		Mass: 100, Density: 2, Volume: 50, Temperature: 900,
		MassFlowrate: 10, VoidFraction: 0.1, Burnup: 5,
	}, Composition{xe135: 0.15, xe136: 0.05, u235: 0.8})
	require.NoError(t, err)
	return s
}

func coolant(t *testing.T) Stream {
	t.Helper()
	s, err := New(Properties{
		Mass: 300, Density: 3, Volume: 100, Temperature: 600,
		MassFlowrate: 30, VoidFraction: 0.3, Burnup: 1,
	}, Composition{kr86: 0.5, u235: 0.5})
	require.NoError(t, err)
	return s
}

func TestNewRejectsBadCompositions(t *testing.T) {
	cases := map[string]Composition{
		"empty":    {},
		"short":    {u235: 0.5, kr86: 0.4},
		"negative": {u235: 1.2, kr86: -0.2},
		"over":     {u235: 1.0, kr86: 0.1},
	}
	for name, comp := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New(Properties{Mass: 1}, comp)
			require.Error(t, err)
			assert.ErrorIs(t, err, errs.ErrComposition)
		})
	}
}

func TestNewClampsNoiseBelowZero(t *testing.T) {
	s, err := New(Properties{Mass: -1e-12}, Composition{u235: 1})
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.Mass)

	_, err = New(Properties{Mass: -1}, Composition{u235: 1})
	assert.ErrorIs(t, err, errs.ErrRange)
}

func TestNewRenormalisesWithinTolerance(t *testing.T) {
	s, err := New(Properties{Mass: 10}, Composition{u235: 0.5 + 4e-10, kr86: 0.5})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, s.Composition().Sum(), 1e-15)
}

func TestScaleIdentity(t *testing.T) {
	s := fuel(t)
	assert.True(t, s.Scale(1.0).Equal(s))
}

func TestScaleProportional(t *testing.T) {
	s := fuel(t).Scale(0.37)
	assert.InDelta(t, 37.0, s.Mass, 1e-12)
	assert.InDelta(t, 18.5, s.Volume, 1e-12)
	assert.InDelta(t, 3.7, s.MassFlowrate, 1e-12)
	assert.Equal(t, 900.0, s.Temperature)
	assert.Equal(t, 2.0, s.Density)
	assert.InDelta(t, 1.0, s.Composition().Sum(), 1e-9)
	assert.InDelta(t, 0.15, s.Fraction(xe135), 1e-15)
}

func TestScaleZeroKeepsFractions(t *testing.T) {
	s := fuel(t).Scale(0)
	assert.Equal(t, 0.0, s.Mass)
	assert.Equal(t, 0.0, s.Volume)
	assert.InDelta(t, 0.8, s.Fraction(u235), 1e-15)
	assert.InDelta(t, 1.0, s.Composition().Sum(), 1e-9)
	require.NoError(t, s.Validate())
}

func TestAddMergesByMass(t *testing.T) {
	sum := fuel(t).Add(coolant(t))

	assert.InDelta(t, 400.0, sum.Mass, 1e-12)
	assert.InDelta(t, 40.0, sum.MassFlowrate, 1e-12)
	assert.Equal(t, 900.0, sum.Temperature, "temperature comes from the first operand")
	assert.Equal(t, 2.0, sum.Density, "density comes from the first operand")
	assert.InDelta(t, 200.0, sum.Volume, 1e-12)
	assert.InDelta(t, 2.0, sum.Burnup, 1e-12)
	assert.InDelta(t, 35.0/150.0, sum.VoidFraction, 1e-12)

	assert.InDelta(t, 15.0/400, sum.Fraction(xe135), 1e-12)
	assert.InDelta(t, 5.0/400, sum.Fraction(xe136), 1e-12)
	assert.InDelta(t, 230.0/400, sum.Fraction(u235), 1e-12)
	assert.InDelta(t, 150.0/400, sum.Fraction(kr86), 1e-12)
	assert.InDelta(t, 1.0, sum.Composition().Sum(), 1e-9)
}

func TestAddIsAsymmetricInTemperature(t *testing.T) {
	ab := fuel(t).Add(coolant(t))
	ba := coolant(t).Add(fuel(t))
	assert.InDelta(t, ab.Mass, ba.Mass, 1e-12)
	assert.NotEqual(t, ab.Temperature, ba.Temperature)
}

func TestAddZeroIdentityAndSum(t *testing.T) {
	f := fuel(t)
	assert.True(t, Stream{}.Add(f).Equal(f))
	assert.True(t, f.Add(Stream{}).Equal(f))

	total := Sum(f.Scale(0.25), f.Scale(0.75))
	assert.InDelta(t, f.Mass, total.Mass, 1e-12)
	assert.InDelta(t, f.Fraction(xe135), total.Fraction(xe135), 1e-12)
}

func TestAddOfZeroMassStreamsKeepsFirstComposition(t *testing.T) {
	sum := fuel(t).Scale(0).Add(coolant(t).Scale(0))
	assert.Equal(t, 0.0, sum.Mass)
	assert.InDelta(t, 0.8, sum.Fraction(u235), 1e-15)
	require.NoError(t, sum.Validate())
}

func TestNuclideAndElementMass(t *testing.T) {
	s := fuel(t)
	assert.InDelta(t, 15.0, s.NuclideMass(xe135), 1e-12)
	assert.Equal(t, 0.0, s.NuclideMass(kr86))
	assert.InDelta(t, 20.0, s.ElementMass("xe"), 1e-12)
	assert.Equal(t, 0.0, s.ElementMass("Kr"))

	masses := s.Masses()
	assert.Len(t, masses, 3)
	assert.InDelta(t, 80.0, masses[u235], 1e-12)
}

func TestFromMassesUsesFallbackForZeroTotal(t *testing.T) {
	f := fuel(t)
	empty := FromMasses(f.Properties, map[nuclide.Nuc]float64{xe135: 0, u235: -1e-15}, f.Composition())
	assert.Equal(t, 0.0, empty.Mass)
	assert.InDelta(t, 0.15, empty.Fraction(xe135), 1e-15)

	built := FromMasses(f.Properties, map[nuclide.Nuc]float64{xe135: 3, u235: 1}, nil)
	assert.InDelta(t, 4.0, built.Mass, 1e-15)
	assert.InDelta(t, 0.75, built.Fraction(xe135), 1e-15)
}

func TestEqualComparesComponentWise(t *testing.T) {
	a := fuel(t)
	b := a.Clone()
	assert.True(t, a.Equal(b))

	b.Temperature += 1
	assert.False(t, a.Equal(b))

	c := MustNew(a.Properties, Composition{xe135: 0.2, u235: 0.8})
	assert.False(t, a.Equal(c))
}

func TestNuclidesSorted(t *testing.T) {
	ids := fuel(t).Nuclides()
	require.Len(t, ids, 3)
	assert.Equal(t, []nuclide.Nuc{xe135, xe136, u235}, ids)
}
