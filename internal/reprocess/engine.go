package reprocess

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kingrea/saltproc/internal/errs"
	"github.com/kingrea/saltproc/internal/stream"
)

// Journal receives human-readable step events. *logbook.Logbook satisfies it.
type Journal interface {
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Recorder receives step measurements.
type Recorder interface {
	ObserveOutcome(out Outcome)
	ObserveFailure(material string, err error)
	ObserveWarning(w errs.ConservationWarning)
}

// Result is everything one step hands to the persistence layer.
type Result struct {
	RunID     string
	StartedAt time.Time
	Materials map[string]stream.Stream
	// Streams holds the waste_ and feed_ sub-streams of each material.
	Streams   map[string]map[string]stream.Stream
	Extracted map[string]float64
	Warnings  []errs.ConservationWarning
	Failures  map[string]error
	// Skipped lists configured materials absent from the step input.
	Skipped []string
}

// MaterialNames returns the output material names in sorted order.
func (r *Result) MaterialNames() []string {
	out := make([]string, 0, len(r.Materials))
	for name := range r.Materials {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Failed reports whether any material failed to reprocess.
func (r *Result) Failed() bool {
	return len(r.Failures) > 0
}

// Engine runs a set of plans once per step.
type Engine struct {
	plans       map[string]*Plan
	logger      *slog.Logger
	journal     Journal
	recorder    Recorder
	parallelism int
	clock       func() time.Time
	newID       func() string
}

// Option customizes the engine instance.
type Option func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithJournal records step events in j.
func WithJournal(j Journal) Option {
	return func(e *Engine) { e.journal = j }
}

// WithRecorder reports measurements to r.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithParallelism reprocesses up to n materials at once. Values below 1
// mean one at a time.
func WithParallelism(n int) Option {
	return func(e *Engine) { e.parallelism = n }
}

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// NewEngine wires plans into an engine. Material names must be unique.
func NewEngine(plans []*Plan, opts ...Option) (*Engine, error) {
	e := &Engine{
		plans:  make(map[string]*Plan, len(plans)),
		logger: slog.Default(),
		clock:  time.Now,
		newID:  func() string { return uuid.NewString() },
	}
	for _, p := range plans {
		if p == nil {
			return nil, fmt.Errorf("reprocess: nil plan")
		}
		if _, dup := e.plans[p.material]; dup {
			return nil, errs.New(errs.KindConfig, "reprocess: engine", p.material, "material configured twice")
		}
		e.plans[p.material] = p
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.parallelism < 1 {
		e.parallelism = 1
	}
	return e, nil
}

// Plan returns the plan for material.
func (e *Engine) Plan(material string) (*Plan, bool) {
	p, ok := e.plans[material]
	return p, ok
}

// Materials returns the configured material names in sorted order.
func (e *Engine) Materials() []string {
	out := make([]string, 0, len(e.plans))
	for name := range e.plans {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Step reprocesses every configured material in materials. Materials
// without a plan pass through unchanged. A material whose reprocessing
// fails keeps its input stream and is listed in Result.Failures; the other
// materials still complete. Only context cancellation returns an error.
func (e *Engine) Step(ctx context.Context, materials map[string]stream.Stream) (*Result, error) {
	res := &Result{
		RunID:     e.newID(),
		StartedAt: e.clock(),
		Materials: make(map[string]stream.Stream, len(materials)),
		Streams:   map[string]map[string]stream.Stream{},
		Extracted: map[string]float64{},
		Failures:  map[string]error{},
	}
	logger := e.logger.With("run_id", res.RunID)

	names := make([]string, 0, len(materials))
	for name := range materials {
		names = append(names, name)
	}
	sort.Strings(names)

	outcomes := make([]*Outcome, len(names))
	failures := make([]error, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	for i, name := range names {
		plan, ok := e.plans[name]
		if !ok {
			continue
		}
		in := materials[name]
		i := i // per-iteration copy; go.mod targets go 1.21 loop semantics
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := plan.Run(in)
			if err != nil {
				failures[i] = err
				return nil
			}
			outcomes[i] = &out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("reprocess: step %s: %w", res.RunID, err)
	}

	for i, name := range names {
		in := materials[name]
		switch {
		case failures[i] != nil:
			res.Materials[name] = in
			res.Failures[name] = failures[i]
			e.reportFailure(logger, name, failures[i])
		case outcomes[i] != nil:
			out := outcomes[i]
			res.Materials[name] = out.Output
			res.Streams[name] = out.Streams
			res.Extracted[name] = out.Extracted
			res.Warnings = append(res.Warnings, out.Warnings...)
			e.reportOutcome(logger, *out)
		default:
			res.Materials[name] = in
			logger.Debug("material has no reprocessing plan", "material", name)
		}
	}
	for _, name := range e.Materials() {
		if _, ok := materials[name]; ok {
			continue
		}
		res.Skipped = append(res.Skipped, name)
		logger.Warn("configured material missing from input, plan skipped", "material", name)
		if e.journal != nil {
			e.journal.Warn("%s: configured but missing from the step input, plan skipped", name)
		}
	}
	logger.Info("reprocessing step complete",
		"materials", len(names),
		"reprocessed", len(res.Extracted),
		"failures", len(res.Failures),
		"skipped", len(res.Skipped),
		"warnings", len(res.Warnings))
	if e.journal != nil {
		e.journal.Info("step %s: %d materials, %d reprocessed, %d failed, %d warnings",
			res.RunID, len(names), len(res.Extracted), len(res.Failures), len(res.Warnings))
	}
	return res, nil
}

func (e *Engine) reportOutcome(log *slog.Logger, out Outcome) {
	log.Info("material reprocessed",
		"material", out.Material,
		"input_mass", out.Input.Mass,
		"output_mass", out.Output.Mass,
		"extracted", out.Extracted,
		"units", len(out.Invocations))
	if e.journal != nil {
		e.journal.Info("%s: extracted %.6g g of %.6g g", out.Material, out.Extracted, out.Input.Mass)
	}
	for _, w := range out.Warnings {
		log.Warn("conservation drift",
			"material", w.Material,
			"stage", w.Stage,
			"expected", w.Expected,
			"actual", w.Actual)
		if e.journal != nil {
			e.journal.Warn("%s", w.String())
		}
		if e.recorder != nil {
			e.recorder.ObserveWarning(w)
		}
	}
	if e.recorder != nil {
		e.recorder.ObserveOutcome(out)
	}
}

func (e *Engine) reportFailure(log *slog.Logger, material string, err error) {
	kind, _ := errs.KindOf(err)
	log.Error("material reprocessing failed", "material", material, "kind", string(kind), "error", err)
	if e.journal != nil {
		e.journal.Error("%s: reprocessing failed, stream passed through: %v", material, err)
	}
	if e.recorder != nil {
		e.recorder.ObserveFailure(material, err)
	}
}
