package unit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/saltproc/internal/errs"
	"github.com/kingrea/saltproc/internal/nuclide"
	"github.com/kingrea/saltproc/internal/stream"
)

var (
	xe135 = nuclide.MustParse("Xe135")
	xe136 = nuclide.MustParse("Xe136")
	kr86  = nuclide.MustParse("Kr86")
	h1    = nuclide.MustParse("H1")
	u235  = nuclide.MustParse("U235")
)

// salt is 100 g: 15 g Xe135, 5 g Xe136, 10 g Kr86, 2 g H1, 68 g U235.
func salt(t *testing.T) stream.Stream {
	t.Helper()
	s, err := stream.New(stream.Properties{
		Mass: 100, Density: 2, Volume: 50, Temperature: 900, MassFlowrate: 10,
	}, stream.Composition{xe135: 0.15, xe136: 0.05, kr86: 0.10, h1: 0.02, u235: 0.68})
	require.NoError(t, err)
	return s
}

func attrs(name string) Attributes {
	return Attributes{Name: name, MassFlowrate: 10, Capacity: 20, Volume: 5}
}

func assertConserved(t *testing.T, in, retained, waste stream.Stream) {
	t.Helper()
	w, drifted := CheckConservation("test", in, retained, waste, stream.Epsilon)
	assert.False(t, drifted, w.String())
	for _, n := range in.Nuclides() {
		assert.InDelta(t, in.NuclideMass(n), retained.NuclideMass(n)+waste.NuclideMass(n), 1e-9, n.String())
	}
}

func TestConstantRemovesWholeElements(t *testing.T) {
	u, err := NewConstant(attrs("filter"), Table{"Xe": Const(0.5), "Kr": Const(1)})
	require.NoError(t, err)

	in := salt(t)
	retained, waste, err := u.Process(in)
	require.NoError(t, err)

	assert.InDelta(t, 20.0, waste.Mass, 1e-12)
	assert.InDelta(t, 7.5, waste.NuclideMass(xe135), 1e-12)
	assert.InDelta(t, 2.5, waste.NuclideMass(xe136), 1e-12)
	assert.InDelta(t, 10.0, waste.NuclideMass(kr86), 1e-12)
	assert.Equal(t, 0.0, waste.NuclideMass(u235))

	assert.InDelta(t, 80.0, retained.Mass, 1e-12)
	assert.InDelta(t, 68.0, retained.NuclideMass(u235), 1e-12)
	assert.Equal(t, 0.0, retained.NuclideMass(kr86))

	assert.InDelta(t, 40.0, retained.Volume, 1e-12)
	assert.InDelta(t, 10.0, waste.Volume, 1e-12)
	assert.InDelta(t, 2.0, waste.MassFlowrate, 1e-12)
	assert.Equal(t, 900.0, waste.Temperature)
	assertConserved(t, in, retained, waste)
}

func TestConstantWithEmptyTableRetainsEverything(t *testing.T) {
	u, err := NewConstant(attrs("noop"), Table{})
	require.NoError(t, err)

	in := salt(t)
	retained, waste, err := u.Process(in)
	require.NoError(t, err)
	assert.True(t, retained.EqualWithin(in, 1e-12))
	assert.Equal(t, 0.0, waste.Mass)
	require.NoError(t, waste.Validate())
}

func TestConstantOnZeroMassStream(t *testing.T) {
	u, err := NewConstant(attrs("filter"), Table{"Xe": Const(1)})
	require.NoError(t, err)

	retained, waste, err := u.Process(salt(t).Scale(0))
	require.NoError(t, err)
	assert.Equal(t, 0.0, retained.Mass)
	assert.Equal(t, 0.0, waste.Mass)
}

func TestConstantTableValidation(t *testing.T) {
	_, err := NewConstant(attrs("filter"), Table{"Xe": Const(1.2)})
	assert.ErrorIs(t, err, errs.ErrConfig)

	_, err = NewConstant(attrs("filter"), Table{"Qq": Const(0.2)})
	assert.ErrorIs(t, err, errs.ErrConfig)

	_, err = NewConstant(Attributes{}, Table{})
	assert.ErrorIs(t, err, errs.ErrConfig)
}

func TestAttributesRejectNonFinite(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), -1} {
		a := attrs("filter")
		a.MassFlowrate = v
		_, err := NewConstant(a, Table{})
		assert.ErrorIs(t, err, errs.ErrConfig, "mass_flowrate %v", v)

		a = attrs("sparger")
		a.Volume = v
		_, err = NewContactor(a, DefaultContactorParams())
		assert.ErrorIs(t, err, errs.ErrConfig, "volume %v", v)
	}
}

func TestFormulaEfficiencyUsesAttributes(t *testing.T) {
	table, err := ParseTable("filter", map[string]any{"xe": "9.5/mass_flowrate", "Kr": 0.25})
	require.NoError(t, err)
	require.True(t, table["Xe"].IsDerived())
	assert.Equal(t, "9.5/mass_flowrate", table["Xe"].Expr())

	u, err := NewConstant(attrs("filter"), table)
	require.NoError(t, err)

	first, err := u.Efficiencies()
	require.NoError(t, err)
	assert.InDelta(t, 0.95, first["Xe"], 1e-12)
	assert.InDelta(t, 0.25, first["Kr"], 1e-12)

	second, err := u.Efficiencies()
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.True(t, u.Table()["Xe"].IsDerived(), "resolving must not replace the formula")

	faster := attrs("filter")
	faster.MassFlowrate = 19
	v, err := u.Table()["Xe"].Resolve(faster)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, v, 1e-12)
}

func TestFormulaMayUseMath(t *testing.T) {
	fn, err := CompileFormula("1 - math.Exp(-volume/capacity)")
	require.NoError(t, err)
	v, err := fn(attrs("x"))
	require.NoError(t, err)
	assert.InDelta(t, 0.22119921692859512, v, 1e-12)
}

func TestMalformedFormulaIsEvaluationError(t *testing.T) {
	for _, expr := range []string{"9.5/", "os.Exit(1)", "mass_flowrate + density", `"text"`} {
		_, err := ParseTable("filter", map[string]any{"Xe": expr})
		assert.ErrorIs(t, err, errs.ErrEvaluation, expr)
	}
}

func TestFormulaOutOfRange(t *testing.T) {
	table, err := ParseTable("filter", map[string]any{"Xe": "capacity/mass_flowrate"})
	require.NoError(t, err)
	u, err := NewConstant(attrs("filter"), table)
	require.NoError(t, err)

	_, _, err = u.Process(salt(t))
	assert.ErrorIs(t, err, errs.ErrRange)
}

func TestFormulaNaNIsEvaluationError(t *testing.T) {
	table, err := ParseTable("filter", map[string]any{"Xe": "volume/volume"})
	require.NoError(t, err)
	zero := attrs("filter")
	zero.Volume = 0
	u, err := NewConstant(zero, table)
	require.NoError(t, err)

	_, _, err = u.Process(salt(t))
	assert.ErrorIs(t, err, errs.ErrEvaluation)
}

func TestContactorDefaultEfficiencies(t *testing.T) {
	u, err := NewContactor(attrs("sparger"), DefaultContactorParams())
	require.NoError(t, err)

	eff, err := u.Efficiencies()
	require.NoError(t, err)
	require.Len(t, eff, 3)
	assert.InDelta(t, 0.39921360667755207, eff["Xe"], 1e-9)
	assert.InDelta(t, 0.616515138538617, eff["Kr"], 1e-9)
	assert.InDelta(t, 0.7159987569589175, eff["H"], 1e-9)

	in := salt(t)
	retained, waste, err := u.Process(in)
	require.NoError(t, err)
	assert.InDelta(t, 15*eff["Xe"], waste.NuclideMass(xe135), 1e-9)
	assert.InDelta(t, 10*eff["Kr"], waste.NuclideMass(kr86), 1e-9)
	assert.Equal(t, 0.0, waste.NuclideMass(u235))
	assertConserved(t, in, retained, waste)
}

func TestContactorCorrelations(t *testing.T) {
	params := DefaultContactorParams()
	params.Correlation = Higbie
	u, err := NewContactor(attrs("sparger"), params)
	require.NoError(t, err)
	eff, err := u.Efficiencies()
	require.NoError(t, err)
	assert.InDelta(t, 0.9254959092873389, eff["Xe"], 1e-9)
	assert.InDelta(t, 0.893808695874771, eff["H"], 1e-9)

	params = DefaultContactorParams()
	params.TempSalt = 1000
	hot, err := NewContactor(attrs("sparger"), params)
	require.NoError(t, err)
	eff, err = hot.Efficiencies()
	require.NoError(t, err)
	assert.InDelta(t, 0.5367863862755193, eff["Xe"], 1e-9)
	assert.InDelta(t, 0.7617317853809275, eff["Kr"], 1e-9)

	c, err := ParseCorrelation("Sherwood")
	require.NoError(t, err)
	assert.Equal(t, RanzMarshall, c)
	_, err = ParseCorrelation("film")
	assert.Error(t, err)
}

// referenceFuel is a depleted fuel whose Xe, Kr and H inventories put the
// three unit designs at their reference waste masses: 531.063 g through a
// Xe/Kr filter, 527.088 g through the default separator and 217.435 g
// through the default contactor.
func referenceFuel(t *testing.T) stream.Stream {
	t.Helper()
	masses := map[string]float64{
		"Xe131": 40.1201956447195,
		"Xe132": 100,
		"Xe134": 150,
		"Xe135": 19.727321854288796,
		"Xe136": 200,
		"Kr84":  3.7388534691203823,
		"Kr86":  18.59356162393632,
		"H3":    0.1794071048347592,
		"Li7":   7000,
		"F19":   20000,
		"U235":  1500,
		"U238":  48000,
	}
	byID := make(map[nuclide.Nuc]float64, len(masses))
	for name, m := range masses {
		byID[nuclide.MustParse(name)] = m
	}
	s := stream.FromMasses(stream.Properties{Density: 2, Temperature: 900, MassFlowrate: 10}, byID, nil)
	require.NoError(t, s.Validate())
	return s
}

func TestReferenceFuelAcrossUnitDesigns(t *testing.T) {
	in := referenceFuel(t)

	table, err := ParseTable("filter", map[string]any{"Xe": 1.0, "Kr": "9.5/mass_flowrate"})
	require.NoError(t, err)
	filter, err := NewConstant(attrs("filter"), table)
	require.NoError(t, err)
	retained, waste, err := filter.Process(in)
	require.NoError(t, err)
	assert.InDelta(t, 531.0633118374121, waste.Mass, 1e-9)
	assertConserved(t, in, retained, waste)

	separator, err := NewSeparator(attrs("separator"), DefaultSeparatorParams())
	require.NoError(t, err)
	retained, waste, err = separator.Process(in)
	require.NoError(t, err)
	assert.InDelta(t, 527.0884551454453, waste.Mass, 1e-9)
	assert.InDelta(t, 19.5320018359295, waste.NuclideMass(xe135), 1e-9)
	assertConserved(t, in, retained, waste)

	contactor, err := NewContactor(attrs("sparger"), DefaultContactorParams())
	require.NoError(t, err)
	retained, waste, err = contactor.Process(in)
	require.NoError(t, err)
	assert.InDelta(t, 217.43479356542446, waste.Mass, 1e-9)
	assert.InDelta(t, 11.463212220507412, waste.NuclideMass(kr86), 1e-9)
	assertConserved(t, in, retained, waste)
}

func TestContactorRejectsBadParams(t *testing.T) {
	params := DefaultContactorParams()
	params.QGas = 0
	_, err := NewContactor(attrs("sparger"), params)
	assert.ErrorIs(t, err, errs.ErrConfig)

	params = DefaultContactorParams()
	params.Correlation = "film"
	_, err = NewContactor(attrs("sparger"), params)
	assert.ErrorIs(t, err, errs.ErrConfig)
}

func TestSeparatorSharedEfficiency(t *testing.T) {
	u, err := NewSeparator(attrs("separator"), DefaultSeparatorParams())
	require.NoError(t, err)

	eff, err := u.Efficiencies()
	require.NoError(t, err)
	for _, g := range []string{"H", "Kr", "Xe"} {
		assert.InDelta(t, 5.0/5.05, eff[g], 1e-12, g)
	}

	in := salt(t)
	retained, waste, err := u.Process(in)
	require.NoError(t, err)
	assert.InDelta(t, 32*5.0/5.05, waste.Mass, 1e-9)
	assert.InDelta(t, 15*5.0/5.05, waste.NuclideMass(xe135), 1e-9)
	assertConserved(t, in, retained, waste)
}

func TestRegistryBuildsKindsAndAliases(t *testing.T) {
	r := Default()
	assert.Equal(t, []string{"constant", "contactor", "entrainment_separator", "separator", "sparger"}, r.Kinds())

	u, err := r.Build(Definition{
		Name: "sparger", Kind: "Sparger",
		Attributes: Attributes{MassFlowrate: 10},
		Params:     map[string]any{"correlation": "higbie", "temp_salt": 900},
	})
	require.NoError(t, err)
	assert.Equal(t, KindContactor, u.Kind())
	assert.Equal(t, "sparger", u.Name())
	assert.Equal(t, Higbie, u.(*Contactor).Params().Correlation)
	assert.Equal(t, 0.1, u.(*Contactor).Params().QSalt)

	u, err = r.Build(Definition{Name: "sep", Kind: "entrainment_separator", Params: map[string]any{"x": 0.1}})
	require.NoError(t, err)
	assert.Equal(t, 0.1, u.(*Separator).Params().X)

	u, err = r.Build(Definition{Name: "ni", Kind: "constant", Efficiency: map[string]any{"Xe": 1}})
	require.NoError(t, err)
	assert.Equal(t, KindConstant, u.Kind())
}

func TestRegistryRejectsBadDefinitions(t *testing.T) {
	r := Default()
	_, err := r.Build(Definition{Name: "x", Kind: "centrifuge"})
	assert.ErrorIs(t, err, errs.ErrConfig)

	_, err = r.Build(Definition{Name: "x", Kind: "contactor", Params: map[string]any{"q_slat": 1}})
	assert.ErrorIs(t, err, errs.ErrConfig)

	_, err = r.Build(Definition{Name: "x", Kind: "separator", Efficiency: map[string]any{"Xe": 1}})
	assert.ErrorIs(t, err, errs.ErrConfig)

	assert.Error(t, r.Register("constant", buildConstant))
	assert.Error(t, r.Register("sparger", buildConstant))
	assert.Error(t, r.Alias("filter", "centrifuge"))
}
