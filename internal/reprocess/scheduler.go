package reprocess

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/kingrea/saltproc/internal/errs"
	"github.com/kingrea/saltproc/internal/stream"
	"github.com/kingrea/saltproc/internal/unit"
)

// Prefixes of the named sub-streams recorded per material.
const (
	WastePrefix = "waste_"
	FeedPrefix  = "feed_"
)

// Outcome is the result of reprocessing one material.
type Outcome struct {
	Material  string
	Input     stream.Stream
	Output    stream.Stream
	Streams   map[string]stream.Stream
	Extracted float64
	Warnings  []errs.ConservationWarning
	// Invocations lists every unit call in execution order.
	Invocations []string
}

// WasteMass sums every waste sub-stream.
func (o Outcome) WasteMass() float64 {
	total := 0.0
	for name, s := range o.Streams {
		if strings.HasPrefix(name, WastePrefix) {
			total += s.Mass
		}
	}
	return total
}

// StreamNames returns the sub-stream keys in sorted order.
func (o Outcome) StreamNames() []string {
	out := make([]string, 0, len(o.Streams))
	for name := range o.Streams {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

type pathResult struct {
	thru     stream.Stream
	waste    map[string]stream.Stream
	calls    []string
	warnings []errs.ConservationWarning
}

// Reprocess splits in across the plan's routes and drives each share
// through its units. Any unit error aborts the material.
func (p *Plan) Reprocess(in stream.Stream) (Outcome, error) {
	out := Outcome{Material: p.material, Input: in, Streams: map[string]stream.Stream{}}

	split := 0.0
	results := make([]pathResult, 0, len(p.routes))
	for _, route := range p.routes {
		split += route.Divisor
		res, err := p.runRoute(route, in)
		if err != nil {
			return Outcome{}, err
		}
		results = append(results, res)
	}
	if math.Abs(split-1) > stream.Epsilon {
		out.Warnings = append(out.Warnings, errs.ConservationWarning{
			Material: p.material, Stage: "split", Expected: in.Mass, Actual: in.Mass * split,
		})
	}

	thrus := make([]stream.Stream, 0, len(results))
	for _, res := range results {
		thrus = append(thrus, res.thru)
		for _, key := range sortedKeys(res.waste) {
			if prev, ok := out.Streams[key]; ok {
				out.Streams[key] = prev.Add(res.waste[key])
			} else {
				out.Streams[key] = res.waste[key]
			}
		}
		out.Invocations = append(out.Invocations, res.calls...)
		out.Warnings = append(out.Warnings, res.warnings...)
	}
	out.Output = stream.Sum(thrus...)
	out.Output.Mass = stream.ClampMass(out.Output.Mass, in.Mass)
	if err := out.Output.Validate(); err != nil {
		return Outcome{}, errs.Wrap(errs.KindComposition, "reprocess: merge", p.material, err)
	}

	out.Extracted = stream.ClampMass(in.Mass-out.Output.Mass, in.Mass)
	balance := errs.ConservationWarning{
		Material: p.material, Stage: "balance", Expected: in.Mass * split, Actual: out.Output.Mass + out.WasteMass(),
	}
	if math.Abs(balance.Drift()) > stream.Epsilon*math.Max(1, in.Mass) {
		out.Warnings = append(out.Warnings, balance)
	}
	return out, nil
}

func (p *Plan) runRoute(route Route, in stream.Stream) (pathResult, error) {
	res := pathResult{waste: map[string]stream.Stream{}}
	flow := in.Scale(route.Divisor)
	for _, name := range route.Units {
		u := p.units[name]
		retained, waste, err := u.Process(flow)
		if err != nil {
			return pathResult{}, fmt.Errorf("reprocess: %s: unit %s: %w", p.material, name, err)
		}
		res.calls = append(res.calls, name)
		if w, drifted := unit.CheckConservation("unit "+name, flow, retained, waste, stream.Epsilon); drifted {
			w.Material = p.material
			res.warnings = append(res.warnings, w)
		}
		key := WastePrefix + name
		if prev, ok := res.waste[key]; ok {
			res.waste[key] = prev.Add(waste)
		} else {
			res.waste[key] = waste
		}
		flow = retained
	}
	res.thru = flow
	return res, nil
}

func sortedKeys(m map[string]stream.Stream) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
