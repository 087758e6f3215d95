package reprocess

import (
	"math"

	"github.com/kingrea/saltproc/internal/errs"
	"github.com/kingrea/saltproc/internal/stream"
)

// Refill scales each feed to replace its share of the extracted mass,
// merges the scaled feeds into the output and records them as feed_<name>
// sub-streams. A material without feeds is returned unchanged.
func (p *Plan) Refill(out Outcome) (Outcome, error) {
	if len(p.feeds) == 0 {
		return out, nil
	}
	streams := make(map[string]stream.Stream, len(out.Streams)+len(p.feeds))
	for k, v := range out.Streams {
		streams[k] = v
	}
	merged := out.Output
	added := 0.0
	for _, feed := range p.feeds {
		if !(feed.Stream.Mass > 0) {
			return Outcome{}, errs.New(errs.KindDivision, "reprocess: refill", p.material, "feed %s has zero mass", feed.Name)
		}
		factor := feed.Share * out.Extracted / feed.Stream.Mass
		refill := feed.Stream.Scale(factor)
		merged = merged.Add(refill)
		streams[FeedPrefix+feed.Name] = refill
		added += refill.Mass
	}
	if err := merged.Validate(); err != nil {
		return Outcome{}, errs.Wrap(errs.KindComposition, "reprocess: refill", p.material, err)
	}
	out.Output = merged
	out.Streams = streams
	w := errs.ConservationWarning{Material: p.material, Stage: "refill", Expected: out.Extracted, Actual: added}
	if math.Abs(w.Drift()) > stream.Epsilon*math.Max(1, out.Extracted) {
		out.Warnings = append(out.Warnings, w)
	}
	return out, nil
}

// Run reprocesses in and then refills it.
func (p *Plan) Run(in stream.Stream) (Outcome, error) {
	out, err := p.Reprocess(in)
	if err != nil {
		return Outcome{}, err
	}
	return p.Refill(out)
}
