// Package reprocess runs one reprocessing step: every configured material
// is split across the paths of its flowsheet, driven through the units on
// each path, recombined, and topped up with feed material to replace what
// was extracted.
package reprocess

import (
	"math"
	"sort"

	"github.com/kingrea/saltproc/internal/errs"
	"github.com/kingrea/saltproc/internal/flowsheet"
	"github.com/kingrea/saltproc/internal/stream"
	"github.com/kingrea/saltproc/internal/unit"
)

// Feed is a template stream added back after extraction. Share is the
// portion of the extracted mass this feed replaces; zero means an equal
// split among the material's feeds.
type Feed struct {
	Name   string
	Stream stream.Stream
	Share  float64
}

// Route is one source-to-sink path with the fraction of the inbound
// stream sent down it. A bypass route has no units.
type Route struct {
	Units   []string
	Divisor float64
}

// Bypass reports whether the route connects source and sink directly.
func (r Route) Bypass() bool { return len(r.Units) == 0 }

// Plan is the validated reprocessing scheme of one material.
type Plan struct {
	material string
	graph    *flowsheet.Graph
	units    map[string]unit.Unit
	feeds    []Feed
	routes   []Route
	total    float64
}

// NewPlan validates the topology against units and computes the route
// divisors. Units not on the graph are allowed; a unit named like the
// source node supplies the total flow rate when the graph declares none.
func NewPlan(material string, graph *flowsheet.Graph, units []unit.Unit, feeds []Feed) (*Plan, error) {
	if material == "" {
		return nil, errs.New(errs.KindConfig, "reprocess: plan", "", "material name is required")
	}
	if graph == nil {
		return nil, errs.New(errs.KindConfig, "reprocess: plan", material, "flowsheet is required")
	}
	p := &Plan{material: material, graph: graph, units: make(map[string]unit.Unit, len(units))}
	names := make(map[string]bool, len(units))
	for _, u := range units {
		if _, dup := p.units[u.Name()]; dup {
			return nil, errs.New(errs.KindConfig, "reprocess: plan", material, "duplicate unit %s", u.Name())
		}
		p.units[u.Name()] = u
		names[u.Name()] = true
	}
	if err := graph.Validate(names); err != nil {
		return nil, err
	}
	resolved, err := resolveShares(material, feeds)
	if err != nil {
		return nil, err
	}
	p.feeds = resolved
	if err := p.buildRoutes(); err != nil {
		return nil, err
	}
	return p, nil
}

// Material returns the material the plan reprocesses.
func (p *Plan) Material() string { return p.material }

// Graph returns the plan's flowsheet.
func (p *Plan) Graph() *flowsheet.Graph { return p.graph }

// Unit looks up a configured unit by name.
func (p *Plan) Unit(name string) (unit.Unit, bool) {
	u, ok := p.units[name]
	return u, ok
}

// UnitNames returns the configured unit names in sorted order.
func (p *Plan) UnitNames() []string {
	out := make([]string, 0, len(p.units))
	for name := range p.units {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Feeds returns the feeds with resolved shares.
func (p *Plan) Feeds() []Feed {
	return append([]Feed(nil), p.feeds...)
}

// Routes returns the source-to-sink paths with their divisors.
func (p *Plan) Routes() []Route {
	out := make([]Route, len(p.routes))
	for i, r := range p.routes {
		out[i] = Route{Units: append([]string(nil), r.Units...), Divisor: r.Divisor}
	}
	return out
}

// TotalFlowrate is the flow rate divisors are taken against, or 0 when
// every route is a bypass.
func (p *Plan) TotalFlowrate() float64 { return p.total }

func (p *Plan) buildRoutes() error {
	paths := p.graph.SimplePaths(flowsheet.Source, flowsheet.Sink)
	hasUnits := false
	for _, path := range paths {
		if len(path) > 0 {
			hasUnits = true
			break
		}
	}
	if hasUnits {
		total, err := p.totalCapacity(paths)
		if err != nil {
			return err
		}
		p.total = total
	}
	assigned := 0.0
	routes := make([]Route, len(paths))
	for i, path := range paths {
		routes[i] = Route{Units: path}
		if len(path) == 0 {
			continue
		}
		routes[i].Divisor = p.units[path[0]].Attributes().MassFlowrate / p.total
		assigned += routes[i].Divisor
	}
	for i := range routes {
		if routes[i].Bypass() {
			routes[i].Divisor = math.Max(0, 1-assigned)
		}
	}
	p.routes = routes
	return nil
}

func (p *Plan) totalCapacity(paths [][]string) (float64, error) {
	total := p.graph.TotalFlowrate()
	source := "declared total_flowrate"
	if total == 0 {
		if u, ok := p.units[flowsheet.Source]; ok {
			total = u.Attributes().MassFlowrate
			source = "unit " + flowsheet.Source
		} else {
			for _, path := range paths {
				if len(path) > 0 {
					total = p.units[path[0]].Attributes().MassFlowrate
					source = "unit " + path[0]
					break
				}
			}
		}
	}
	if !(total > 0) {
		return 0, errs.New(errs.KindDivision, "reprocess: plan", p.material, "total flow rate from %s is zero", source)
	}
	return total, nil
}

// resolveShares fills in equal shares when none are given and checks that
// explicit shares add up to one.
func resolveShares(material string, feeds []Feed) ([]Feed, error) {
	out := make([]Feed, len(feeds))
	copy(out, feeds)
	seen := map[string]bool{}
	explicit := 0
	sum := 0.0
	for _, f := range out {
		if f.Name == "" {
			return nil, errs.New(errs.KindConfig, "reprocess: feed", material, "feed name is required")
		}
		if seen[f.Name] {
			return nil, errs.New(errs.KindConfig, "reprocess: feed", material, "duplicate feed %s", f.Name)
		}
		seen[f.Name] = true
		if f.Share < 0 || math.IsNaN(f.Share) {
			return nil, errs.New(errs.KindConfig, "reprocess: feed", f.Name, "share %v must be >= 0", f.Share)
		}
		if f.Share > 0 {
			explicit++
			sum += f.Share
		}
	}
	switch {
	case len(out) == 0:
		return out, nil
	case explicit == 0:
		for i := range out {
			out[i].Share = 1 / float64(len(out))
		}
		return out, nil
	case explicit != len(out) || math.Abs(sum-1) > stream.Epsilon:
		return nil, errs.New(errs.KindConfig, "reprocess: feed", material, "feed shares must be given for every feed and sum to 1, got %d of %d summing to %g", explicit, len(out), sum)
	}
	return out, nil
}
