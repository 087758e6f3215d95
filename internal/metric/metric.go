// Package metric exposes reprocessing step measurements as Prometheus
// collectors. A Recorder is handed to the engine and written out as a
// node-exporter textfile after the step.
package metric

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kingrea/saltproc/internal/errs"
	"github.com/kingrea/saltproc/internal/reprocess"
)

const namespace = "saltproc"

// Recorder holds the step collectors on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	Extracted        *prometheus.GaugeVec
	OutputMass       *prometheus.GaugeVec
	SubStreamMass    *prometheus.GaugeVec
	UnitInvocations  *prometheus.CounterVec
	Warnings         *prometheus.CounterVec
	MaterialFailures *prometheus.CounterVec
}

// NewRecorder creates and registers the collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		Extracted: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "material",
				Name:      "extracted_grams",
				Help:      "Mass removed from a material by reprocessing in the last step",
			},
			[]string{"material"},
		),
		OutputMass: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "material",
				Name:      "output_grams",
				Help:      "Mass of a material after reprocessing and refill",
			},
			[]string{"material"},
		),
		SubStreamMass: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "mass_grams",
				Help:      "Mass of each waste_ and feed_ sub-stream",
			},
			[]string{"material", "stream"},
		),
		UnitInvocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "unit",
				Name:      "invocations_total",
				Help:      "Number of times a unit processed a stream share",
			},
			[]string{"material", "unit"},
		),
		Warnings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "conservation",
				Name:      "warnings_total",
				Help:      "Mass balance drift beyond tolerance",
			},
			[]string{"material", "stage"},
		),
		MaterialFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "material",
				Name:      "failures_total",
				Help:      "Materials whose reprocessing failed and passed through unchanged",
			},
			[]string{"material", "kind"},
		),
	}
	r.registry.MustRegister(r.Extracted, r.OutputMass, r.SubStreamMass, r.UnitInvocations, r.Warnings, r.MaterialFailures)
	return r
}

// Registry returns the registry the collectors live on.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveOutcome implements reprocess.Recorder.
func (r *Recorder) ObserveOutcome(out reprocess.Outcome) {
	r.Extracted.WithLabelValues(out.Material).Set(out.Extracted)
	r.OutputMass.WithLabelValues(out.Material).Set(out.Output.Mass)
	for name, s := range out.Streams {
		r.SubStreamMass.WithLabelValues(out.Material, name).Set(s.Mass)
	}
	for _, u := range out.Invocations {
		r.UnitInvocations.WithLabelValues(out.Material, u).Inc()
	}
}

// ObserveFailure implements reprocess.Recorder.
func (r *Recorder) ObserveFailure(material string, err error) {
	kind, ok := errs.KindOf(err)
	if !ok {
		kind = "unknown"
	}
	r.MaterialFailures.WithLabelValues(material, string(kind)).Inc()
}

// ObserveWarning implements reprocess.Recorder.
func (r *Recorder) ObserveWarning(w errs.ConservationWarning) {
	r.Warnings.WithLabelValues(w.Material, w.Stage).Inc()
}

// WriteTextfile writes every collector in the Prometheus text format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("metric: write %s: %w", path, err)
	}
	return nil
}

var _ reprocess.Recorder = (*Recorder)(nil)
