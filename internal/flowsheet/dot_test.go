package flowsheet

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/kingrea/saltproc/internal/errs"
)

const fuelDOT = `digraph fuel_salt {
	material = "fuel";
	total_flowrate = 9920000;
	core_outlet -> sparger -> entrainment_separator -> core_inlet;
	core_outlet -> nickel_filter -> core_inlet;
}
`

func TestParseDOT(t *testing.T) {
	g, err := ParseDOT([]byte(fuelDOT))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if g.Material() != "fuel" {
		t.Fatalf("material = %q", g.Material())
	}
	if g.TotalFlowrate() != 9920000 {
		t.Fatalf("total_flowrate = %v", g.TotalFlowrate())
	}
	want := [][]string{{"nickel_filter"}, {"sparger", "entrainment_separator"}}
	if got := g.SimplePaths(Source, Sink); !reflect.DeepEqual(got, want) {
		t.Fatalf("paths = %v, want %v", got, want)
	}
}

func TestParseDOTSubgraphAndGraphAttrStmt(t *testing.T) {
	src := `digraph "ctl" {
	graph [material="coolant"];
	core_outlet -> {a b} -> core_inlet;
}`
	g, err := ParseDOT([]byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if g.Material() != "coolant" {
		t.Fatalf("material = %q", g.Material())
	}
	if got := g.SimplePaths(Source, Sink); len(got) != 2 {
		t.Fatalf("expected 2 paths, got %v", got)
	}
}

func TestParseDOTFallsBackToGraphID(t *testing.T) {
	g, err := ParseDOT([]byte(`digraph fuel { core_outlet -> core_inlet }`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if g.Material() != "fuel" {
		t.Fatalf("material = %q", g.Material())
	}
}

func TestParseDOTErrors(t *testing.T) {
	cases := map[string]string{
		"undirected": `graph g { a -- b }`,
		"syntax":     `digraph { a -> }`,
		"flowrate":   `digraph g { total_flowrate = "fast"; a -> b }`,
		"two graphs": `digraph a { x -> y } digraph b { x -> y }`,
	}
	for name, src := range cases {
		if _, err := ParseDOT([]byte(src)); !errors.Is(err, errs.ErrConfig) {
			t.Fatalf("%s: expected config error, got %v", name, err)
		}
	}
}

func TestReadDOT(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fuel.dot")
	if err := os.WriteFile(path, []byte(fuelDOT), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	g, err := ReadDOT(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := g.Validate(map[string]bool{"sparger": true, "entrainment_separator": true, "nickel_filter": true}); err != nil {
		t.Fatalf("validate: %v", err)
	}
}
