package logbook

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestTailReturnsRecentLinesAndTotal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.log")
	book, err := New(path)
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	for i := 0; i < 5; i++ {
		book.Info("entry-%d", i)
	}
	lines, total := book.Tail(3)
	if total != 5 {
		t.Fatalf("total lines = %d, want 5", total)
	}
	if len(lines) != 3 {
		t.Fatalf("len(lines) = %d, want 3", len(lines))
	}
	for idx, want := range []string{"entry-2", "entry-3", "entry-4"} {
		if !strings.Contains(lines[idx], want) {
			t.Fatalf("line %d = %q, missing %s", idx, lines[idx], want)
		}
	}
}

func TestEntriesRoundTripThroughParseLine(t *testing.T) {
	book, err := New(filepath.Join(t.TempDir(), "nested", "journal.log"))
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	book.clock = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	book.Warn("fuel: drift\nacross lines")
	book.Error("blanket: failed")

	lines, _ := book.Tail(10)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %v", lines)
	}
	warn, err := ParseLine(lines[0])
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if warn.Level != LevelWarn || warn.Message != "fuel: drift across lines" {
		t.Fatalf("unexpected entry %+v", warn)
	}
	if !warn.Time.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("time = %v", warn.Time)
	}
	if book.Count(LevelWarn) != 1 || book.Count(LevelError) != 1 || book.Count(LevelInfo) != 0 {
		t.Fatalf("unexpected counts")
	}
	if _, err := ParseLine("garbage"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestNilLogbookIsSafe(t *testing.T) {
	var book *Logbook
	book.Info("ignored")
	if lines, total := book.Tail(3); lines != nil || total != 0 {
		t.Fatalf("expected empty tail")
	}
}
