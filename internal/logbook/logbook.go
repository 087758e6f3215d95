// Package logbook keeps the operator-facing step journal: one plain text
// line per event, so conservation warnings and material failures of every
// step stay readable next to the result files.
package logbook

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a journal entry.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Entry is one parsed journal line.
type Entry struct {
	Time    time.Time
	Level   Level
	Message string
}

// Logbook appends entries to a text file.
type Logbook struct {
	path   string
	mu     sync.Mutex
	clock  func() time.Time
	counts map[Level]int
}

// New creates a logbook that writes to path, creating parent directories.
func New(path string) (*Logbook, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logbook: ensure dir: %w", err)
	}
	return &Logbook{path: path, clock: time.Now, counts: map[Level]int{}}, nil
}

// Path returns the file backing this logbook.
func (l *Logbook) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Append writes a single entry. Multi-line messages are folded onto one
// line so every entry stays parseable.
func (l *Logbook) Append(level Level, message string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	msg := strings.Join(strings.Fields(message), " ")
	line := fmt.Sprintf("%s %-5s %s\n", l.clock().UTC().Format(time.RFC3339), level, msg)
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer file.Close()
	if _, err := file.WriteString(line); err == nil {
		l.counts[level]++
	}
}

// Info appends an informational entry.
func (l *Logbook) Info(format string, args ...any) {
	l.Append(LevelInfo, fmt.Sprintf(format, args...))
}

// Warn appends a warning entry.
func (l *Logbook) Warn(format string, args ...any) {
	l.Append(LevelWarn, fmt.Sprintf(format, args...))
}

// Error appends an error entry.
func (l *Logbook) Error(format string, args ...any) {
	l.Append(LevelError, fmt.Sprintf(format, args...))
}

// Count returns how many entries of level this logbook value has written.
func (l *Logbook) Count(level Level) int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[level]
}

// Tail returns up to maxLines of the most recent lines and the total
// number of lines in the file.
func (l *Logbook) Tail(maxLines int) ([]string, int) {
	if l == nil || maxLines <= 0 {
		return nil, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	file, err := os.Open(l.path)
	if err != nil {
		return nil, 0
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	total := len(lines)
	if total > maxLines {
		lines = lines[total-maxLines:]
	}
	return lines, total
}

// ParseLine splits a journal line into its parts.
func ParseLine(line string) (Entry, error) {
	stamp, rest, ok := strings.Cut(line, " ")
	if !ok {
		return Entry{}, fmt.Errorf("logbook: malformed line %q", line)
	}
	ts, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return Entry{}, fmt.Errorf("logbook: timestamp: %w", err)
	}
	level, msg, _ := strings.Cut(strings.TrimLeft(rest, " "), " ")
	switch Level(level) {
	case LevelInfo, LevelWarn, LevelError:
	default:
		return Entry{}, fmt.Errorf("logbook: unknown level %q", level)
	}
	return Entry{Time: ts, Level: Level(level), Message: strings.TrimLeft(msg, " ")}, nil
}
