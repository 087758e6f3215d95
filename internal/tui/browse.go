// Package tui renders step results: a static report for the run command
// and an interactive browser over a result file.
//
// The browser follows The Elm Architecture used by bubbletea: the model
// holds the selection, Update reacts to keys and resizes, View renders.
package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/saltproc/internal/config"
)

// detailRows caps the nuclide table in the detail pane.
const detailRows = 15

type sortMode int

const (
	sortByMass sortMode = iota
	sortByName
)

// streamItem is one browsable stream: a material or one of its
// sub-streams.
type streamItem struct {
	material string
	key      string
	doc      config.StreamDoc
}

func (i streamItem) Title() string {
	if i.key == "" {
		return i.material
	}
	return "  " + i.key
}

func (i streamItem) Description() string {
	return fmt.Sprintf("%.6g g · %d nuclides", i.doc.Mass, len(i.doc.Composition))
}

func (i streamItem) FilterValue() string { return i.material + " " + i.key }

// Browser is the bubbletea model behind `saltproc browse`.
type Browser struct {
	doc    config.ResultDoc
	list   list.Model
	sort   sortMode
	width  int
	height int
}

// NewBrowser lists every material of doc followed by its sub-streams.
func NewBrowser(doc config.ResultDoc) *Browser {
	var items []list.Item
	for _, name := range doc.MaterialNames() {
		items = append(items, streamItem{material: name, doc: doc.Materials[name]})
		subs := doc.Streams[name]
		keys := make([]string, 0, len(subs))
		for key := range subs {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			items = append(items, streamItem{material: name, key: key, doc: subs[key]})
		}
	}
	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "⬡ STEP " + doc.RunID
	l.SetShowStatusBar(false)
	return &Browser{doc: doc, list: l}
}

// Init implements tea.Model.
func (b *Browser) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (b *Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.width = msg.Width
		b.height = msg.Height
		b.list.SetSize(max(20, msg.Width/2-2), max(5, msg.Height-2))
		return b, nil
	case tea.KeyMsg:
		if b.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return b, tea.Quit
		case "s":
			if b.sort == sortByMass {
				b.sort = sortByName
			} else {
				b.sort = sortByMass
			}
			return b, nil
		}
	}
	var cmd tea.Cmd
	b.list, cmd = b.list.Update(msg)
	return b, cmd
}

// View implements tea.Model.
func (b *Browser) View() string {
	left := b.list.View()
	right := boxStyle.Width(max(30, b.width/2-4)).Render(b.detail())
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

// Selected returns the highlighted stream's label.
func (b *Browser) Selected() string {
	item, ok := b.list.SelectedItem().(streamItem)
	if !ok {
		return ""
	}
	if item.key == "" {
		return item.material
	}
	return item.material + "/" + item.key
}

func (b *Browser) detail() string {
	item, ok := b.list.SelectedItem().(streamItem)
	if !ok {
		return mutedStyle.Render("No streams in this result.")
	}
	d := item.doc
	lines := []string{
		labelStyle.Render(b.Selected()),
		fmt.Sprintf("mass %.6g g · volume %.6g cm3 · T %.6g K", d.Mass, d.Volume, d.Temperature),
	}
	if item.key == "" {
		if v, ok := b.doc.Extracted[item.material]; ok {
			lines = append(lines, fmt.Sprintf("extracted %.6g g", v))
		}
		if msg, failed := b.doc.Failures[item.material]; failed {
			lines = append(lines, failStyle.Render("failed: "+msg))
		}
	}
	lines = append(lines, "")
	order := "mass"
	if b.sort == sortByName {
		order = "name"
	}
	lines = append(lines, mutedStyle.Render(fmt.Sprintf("NUCLIDE      MASS (g)     (by %s, s to toggle)", order)))
	lines = append(lines, nuclideRows(d, b.sort, detailRows)...)
	return strings.Join(lines, "\n")
}

func nuclideRows(d config.StreamDoc, mode sortMode, limit int) []string {
	type entry struct {
		name string
		mass float64
	}
	entries := make([]entry, 0, len(d.Composition))
	for name, f := range d.Composition {
		entries = append(entries, entry{name: name, mass: f * d.Mass})
	}
	sort.Slice(entries, func(i, j int) bool {
		if mode == sortByMass && entries[i].mass != entries[j].mass {
			return entries[i].mass > entries[j].mass
		}
		return entries[i].name < entries[j].name
	})
	rows := make([]string, 0, min(limit, len(entries)))
	for i, e := range entries {
		if i == limit {
			rows = append(rows, mutedStyle.Render(fmt.Sprintf("… %d more", len(entries)-limit)))
			break
		}
		rows = append(rows, fmt.Sprintf("%-12s %.6g", e.name, e.mass))
	}
	return rows
}

// Browse runs the browser until the user quits.
func Browse(doc config.ResultDoc) error {
	_, err := tea.NewProgram(NewBrowser(doc), tea.WithAltScreen()).Run()
	return err
}
