package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/saltproc/internal/config"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	labelStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	boxStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

// Report renders a step result as a boxed summary: one row per material,
// then conservation warnings, failures, skipped plans and the journal tail
// when given.
func Report(doc config.ResultDoc, journal []string) string {
	header := headerStyle.Render(fmt.Sprintf("⬡ SALTPROC · step %s", doc.RunID))
	sections := []string{header, boxStyle.Render(materialTable(doc))}

	if len(doc.Warnings) > 0 {
		lines := []string{warnStyle.Render(fmt.Sprintf("WARNINGS · %d", len(doc.Warnings)))}
		for _, w := range doc.Warnings {
			lines = append(lines, fmt.Sprintf("%s %-8s expected %.6g g, got %.6g g", w.Material, w.Stage, w.Expected, w.Actual))
		}
		sections = append(sections, boxStyle.Render(strings.Join(lines, "\n")))
	}
	if len(doc.Failures) > 0 {
		names := make([]string, 0, len(doc.Failures))
		for name := range doc.Failures {
			names = append(names, name)
		}
		sort.Strings(names)
		lines := []string{failStyle.Render(fmt.Sprintf("FAILURES · %d", len(names)))}
		for _, name := range names {
			lines = append(lines, fmt.Sprintf("%s: %s", name, doc.Failures[name]))
		}
		sections = append(sections, boxStyle.Render(strings.Join(lines, "\n")))
	}
	if len(doc.Skipped) > 0 {
		line := warnStyle.Render("SKIPPED") + " configured but not in the input: " + strings.Join(doc.Skipped, ", ")
		sections = append(sections, boxStyle.Render(line))
	}
	if len(journal) > 0 {
		body := labelStyle.Render("JOURNAL") + "\n" + mutedStyle.Render(strings.Join(journal, "\n"))
		sections = append(sections, boxStyle.Render(body))
	}
	return strings.Join(sections, "\n")
}

func materialTable(doc config.ResultDoc) string {
	rows := [][]string{{"MATERIAL", "MASS (g)", "EXTRACTED (g)", "STREAMS", "STATUS"}}
	for _, name := range doc.MaterialNames() {
		status := okStyle.Render("ok")
		extracted := "-"
		if v, ok := doc.Extracted[name]; ok {
			extracted = fmt.Sprintf("%.6g", v)
		} else {
			status = mutedStyle.Render("pass-through")
		}
		if _, failed := doc.Failures[name]; failed {
			status = failStyle.Render("failed")
		}
		rows = append(rows, []string{
			name,
			fmt.Sprintf("%.6g", doc.Materials[name].Mass),
			extracted,
			fmt.Sprintf("%d", len(doc.Streams[name])),
			status,
		})
	}
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	lines := make([]string, 0, len(rows))
	for r, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			pad := strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
			cells[i] = cell + pad
		}
		line := strings.TrimRight(strings.Join(cells, "  "), " ")
		if r == 0 {
			line = labelStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
