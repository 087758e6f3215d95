package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/saltproc/internal/errs"
	"github.com/kingrea/saltproc/internal/reprocess"
	"github.com/kingrea/saltproc/internal/stream"
)

// StreamDoc is the file form of a stream.
type StreamDoc struct {
	Mass         float64            `yaml:"mass"`
	Volume       float64            `yaml:"volume,omitempty"`
	Density      float64            `yaml:"density,omitempty"`
	Temperature  float64            `yaml:"temperature,omitempty"`
	MassFlowrate float64            `yaml:"mass_flowrate,omitempty"`
	VoidFraction float64            `yaml:"void_fraction,omitempty"`
	Burnup       float64            `yaml:"burnup,omitempty"`
	Composition  map[string]float64 `yaml:"composition"`
}

// NewStreamDoc converts s for writing.
func NewStreamDoc(s stream.Stream) StreamDoc {
	doc := StreamDoc{
		Mass:         s.Mass,
		Volume:       s.Volume,
		Density:      s.Density,
		Temperature:  s.Temperature,
		MassFlowrate: s.MassFlowrate,
		VoidFraction: s.VoidFraction,
		Burnup:       s.Burnup,
		Composition:  map[string]float64{},
	}
	for n, f := range s.Composition() {
		doc.Composition[n.String()] = f
	}
	return doc
}

// Stream validates the document and builds the stream.
func (d StreamDoc) Stream() (stream.Stream, error) {
	comp, err := ParseComposition(d.Composition)
	if err != nil {
		return stream.Stream{}, errs.Wrap(errs.KindComposition, "config: stream", "", err)
	}
	return stream.New(stream.Properties{
		Mass:         d.Mass,
		Volume:       d.Volume,
		Density:      d.Density,
		Temperature:  d.Temperature,
		MassFlowrate: d.MassFlowrate,
		VoidFraction: d.VoidFraction,
		Burnup:       d.Burnup,
	}, comp)
}

// SnapshotDoc is the upstream interface: the state of every material
// before reprocessing.
type SnapshotDoc struct {
	Materials map[string]StreamDoc `yaml:"materials"`
}

// LoadMaterials reads a material snapshot.
func LoadMaterials(path string) (map[string]stream.Stream, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.KindConfig, "config: read", path, err)
	}
	var doc SnapshotDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errs.Wrap(errs.KindConfig, "config: parse", path, err)
	}
	if len(doc.Materials) == 0 {
		return nil, errs.New(errs.KindConfig, "config: parse", path, "no materials in snapshot")
	}
	out := make(map[string]stream.Stream, len(doc.Materials))
	for name, sd := range doc.Materials {
		s, err := sd.Stream()
		if err != nil {
			return nil, fmt.Errorf("config: material %s: %w", name, err)
		}
		out[name] = s
	}
	return out, nil
}

// WriteMaterials writes a material snapshot, e.g. a step's output for the
// next step.
func WriteMaterials(path string, materials map[string]stream.Stream) error {
	doc := SnapshotDoc{Materials: make(map[string]StreamDoc, len(materials))}
	for name, s := range materials {
		doc.Materials[name] = NewStreamDoc(s)
	}
	return writeYAML(path, doc)
}

// ResultDoc is the downstream interface: reprocessed materials, named
// sub-streams and extracted mass for one step.
type ResultDoc struct {
	RunID     string                          `yaml:"run_id"`
	StartedAt time.Time                       `yaml:"started_at"`
	Materials map[string]StreamDoc            `yaml:"materials"`
	Streams   map[string]map[string]StreamDoc `yaml:"streams"`
	Extracted map[string]float64              `yaml:"extracted"`
	Warnings  []errs.ConservationWarning      `yaml:"warnings,omitempty"`
	Failures  map[string]string               `yaml:"failures,omitempty"`
	Skipped   []string                        `yaml:"skipped,omitempty"`
}

// NewResultDoc converts res for writing.
func NewResultDoc(res *reprocess.Result) ResultDoc {
	doc := ResultDoc{
		RunID:     res.RunID,
		StartedAt: res.StartedAt,
		Materials: make(map[string]StreamDoc, len(res.Materials)),
		Streams:   make(map[string]map[string]StreamDoc, len(res.Streams)),
		Extracted: make(map[string]float64, len(res.Extracted)),
		Warnings:  append([]errs.ConservationWarning(nil), res.Warnings...),
		Skipped:   append([]string(nil), res.Skipped...),
	}
	for name, s := range res.Materials {
		doc.Materials[name] = NewStreamDoc(s)
	}
	for name, subs := range res.Streams {
		m := make(map[string]StreamDoc, len(subs))
		for key, s := range subs {
			m[key] = NewStreamDoc(s)
		}
		doc.Streams[name] = m
	}
	for name, v := range res.Extracted {
		doc.Extracted[name] = v
	}
	if len(res.Failures) > 0 {
		doc.Failures = make(map[string]string, len(res.Failures))
		for name, err := range res.Failures {
			doc.Failures[name] = err.Error()
		}
	}
	return doc
}

// MaterialNames returns every material in the result in sorted order.
func (d ResultDoc) MaterialNames() []string {
	out := make([]string, 0, len(d.Materials))
	for name := range d.Materials {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// WriteResult writes res to path.
func WriteResult(path string, res *reprocess.Result) error {
	return writeYAML(path, NewResultDoc(res))
}

// LoadResult reads a result written by WriteResult.
func LoadResult(path string) (ResultDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ResultDoc{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var doc ResultDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return ResultDoc{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return doc, nil
}

func writeYAML(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: ensure %s: %w", filepath.Dir(path), err)
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("config: encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
