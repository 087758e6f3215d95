package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kingrea/saltproc/internal/config"
	"github.com/kingrea/saltproc/internal/errs"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func initProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	out, err := execute(t, "init", "--dir", dir)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if !strings.Contains(out, filepath.Join(dir, "saltproc.yaml")) {
		t.Fatalf("init output missing project path: %q", out)
	}
	return dir
}

func TestValidateListsRoutes(t *testing.T) {
	dir := initProject(t)
	out, err := execute(t, "validate", "--config", filepath.Join(dir, "saltproc.yaml"))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, "sparger -> entrainment_separator -> nickel_filter") {
		t.Fatalf("validate output missing route:\n%s", out)
	}
	if !strings.HasSuffix(strings.TrimSpace(out), "OK") {
		t.Fatalf("validate should end with OK:\n%s", out)
	}
}

func TestPathsPrintsDivisors(t *testing.T) {
	dir := initProject(t)
	out, err := execute(t, "paths", "--config", filepath.Join(dir, "saltproc.yaml"), "--material", "fuel")
	if err != nil {
		t.Fatalf("paths: %v", err)
	}
	if !strings.Contains(out, "1.000000  sparger") {
		t.Fatalf("expected a single full-flow route:\n%s", out)
	}

	_, err = execute(t, "paths", "--config", filepath.Join(dir, "saltproc.yaml"), "--material", "blanket")
	if err == nil {
		t.Fatalf("expected unknown material to fail")
	}
}

func TestValidateMissingProjectIsConfigError(t *testing.T) {
	_, err := execute(t, "validate", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errs.IsFatal(err) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if code := exitCode(err); code != ExitConfig {
		t.Fatalf("exit code = %d, want %d", code, ExitConfig)
	}
}

func TestRunWritesStepArtifacts(t *testing.T) {
	dir := initProject(t)
	outDir := filepath.Join(dir, "out")
	metrics := filepath.Join(dir, "step.prom")
	next := filepath.Join(dir, "next.yaml")

	out, err := execute(t, "run",
		"--config", filepath.Join(dir, "saltproc.yaml"),
		"--materials", filepath.Join(dir, config.ExampleSnapshotFile),
		"--out", outDir,
		"--metrics-file", metrics,
		"--write-materials", next,
	)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	if !strings.Contains(out, "ctrlPois") || !strings.Contains(out, "pass-through") {
		t.Fatalf("report should list the unconfigured material:\n%s", out)
	}

	matches, err := filepath.Glob(filepath.Join(config.ResultsDir(outDir), "step-*.yaml"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one result file, got %v (%v)", matches, err)
	}
	doc, err := config.LoadResult(matches[0])
	if err != nil {
		t.Fatalf("load result: %v", err)
	}
	if doc.Extracted["fuel"] <= 0 {
		t.Fatalf("expected extraction from fuel, got %v", doc.Extracted)
	}
	if got := doc.Materials["ctrlPois"].Mass; got != 1000 {
		t.Fatalf("ctrlPois should pass through, mass %v", got)
	}
	if _, ok := doc.Streams["fuel"]["feed_leu"]; !ok {
		t.Fatalf("expected feed_leu sub-stream, got %v", doc.Streams["fuel"])
	}

	materials, err := config.LoadMaterials(next)
	if err != nil {
		t.Fatalf("load next snapshot: %v", err)
	}
	if len(materials) != 2 {
		t.Fatalf("expected both materials in next snapshot, got %d", len(materials))
	}

	data, err := os.ReadFile(metrics)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !strings.Contains(string(data), `saltproc_material_extracted_grams{material="fuel"}`) {
		t.Fatalf("metrics missing extracted gauge:\n%s", data)
	}
	if _, err := os.Stat(config.JournalPath(outDir)); err != nil {
		t.Fatalf("journal missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(config.LogsDir(outDir), "saltproc.log")); err != nil {
		t.Fatalf("log missing: %v", err)
	}
}

func TestRunRequiresMaterials(t *testing.T) {
	dir := initProject(t)
	if _, err := execute(t, "run", "--config", filepath.Join(dir, "saltproc.yaml")); err == nil {
		t.Fatalf("expected missing --materials to fail")
	}
}
