// internal/tui/app.go
//
// The browse TUI for a loaded catalog. It follows the bubbletea model:
// state lives on App, Update folds messages into it and View renders it.

package tui

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/paper-catalog/internal/catalog"
	"github.com/kingrea/paper-catalog/internal/logbook"
	"github.com/kingrea/paper-catalog/internal/paper"
	"github.com/kingrea/paper-catalog/internal/validator"
)

// appState represents which screen is shown.
type appState int

const (
	statePapers  appState = iota // list of valid papers
	stateDetail                  // one paper
	stateInvalid                 // failing records and their violations
)

var (
	accent = lipgloss.Color("#5B8DEF")
	muted  = lipgloss.Color("#AAAAAA")
	border = lipgloss.Color("#444444")
	alert  = lipgloss.Color("#FF6B6B")
)

// AppOption customizes App construction.
type AppOption func(*App)

// WithLogbook shows the tail of the run journal beside the list.
func WithLogbook(lb *logbook.Logbook) AppOption {
	return func(a *App) {
		a.logbook = lb
	}
}

// paperItem implements list.Item for a valid paper.
type paperItem struct {
	paper paper.Paper
}

func (i paperItem) Title() string { return i.paper.Identifier }
func (i paperItem) Description() string {
	desc := i.paper.Domain + " / " + i.paper.Subdomain
	if len(i.paper.Indicators) > 0 {
		desc += " · " + strings.Join(i.paper.Indicators, ", ")
	}
	return desc
}
func (i paperItem) FilterValue() string {
	return i.paper.Identifier + " " + i.paper.Domain + " " + strings.Join(i.paper.Indicators, " ")
}

// invalidItem implements list.Item for a failing record.
type invalidItem struct {
	result validator.Result
}

func (i invalidItem) Title() string {
	if i.result.Identifier != "" {
		return i.result.Identifier
	}
	return filepath.Base(i.result.Source)
}
func (i invalidItem) Description() string { return strings.Join(i.result.Messages(), "; ") }
func (i invalidItem) FilterValue() string { return i.result.Source }

// App is the browse model.
type App struct {
	state   appState
	catalog *catalog.Catalog
	logbook *logbook.Logbook

	papers   list.Model
	invalid  list.Model
	selected *paper.Paper

	statusMsg string

	width  int
	height int
}

// NewApp builds the browser over an already opened catalog.
func NewApp(cat *catalog.Catalog, opts ...AppOption) *App {
	var paperItems []list.Item
	for _, p := range cat.Papers() {
		paperItems = append(paperItems, paperItem{paper: p})
	}
	papers := list.New(paperItems, list.NewDefaultDelegate(), 0, 0)
	papers.Title = "PAPERS"
	papers.SetShowStatusBar(true)

	var invalidItems []list.Item
	for _, res := range cat.Report.Invalid() {
		invalidItems = append(invalidItems, invalidItem{result: res})
	}
	invalid := list.New(invalidItems, list.NewDefaultDelegate(), 0, 0)
	invalid.Title = "INVALID RECORDS"
	invalid.SetShowStatusBar(false)

	a := &App{
		state:   statePapers,
		catalog: cat,
		papers:  papers,
		invalid: invalid,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return nil
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		w, h := a.listSize()
		a.papers.SetSize(w, h)
		a.invalid.SetSize(w, h)
		return a, nil

	case tea.KeyMsg:
		if a.filtering() {
			break
		}
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit
		case "q":
			if a.state == statePapers {
				return a, tea.Quit
			}
			a.state = statePapers
			return a, nil
		case "esc":
			if a.state != statePapers {
				a.state = statePapers
				a.selected = nil
				return a, nil
			}
		case "i":
			if a.state == statePapers {
				if len(a.invalid.Items()) == 0 {
					a.statusMsg = "No invalid records."
					return a, nil
				}
				a.state = stateInvalid
				return a, nil
			}
		case "enter":
			if a.state == statePapers {
				if item, ok := a.papers.SelectedItem().(paperItem); ok {
					p := item.paper
					a.selected = &p
					a.state = stateDetail
				}
				return a, nil
			}
		}
	}

	var cmd tea.Cmd
	switch a.state {
	case statePapers:
		a.papers, cmd = a.papers.Update(msg)
	case stateInvalid:
		a.invalid, cmd = a.invalid.Update(msg)
	}
	return a, cmd
}

func (a *App) filtering() bool {
	return a.state == statePapers && a.papers.FilterState() == list.Filtering
}

func (a *App) listSize() (int, int) {
	left, _ := a.columns()
	return max(20, left-4), max(5, a.height-8)
}

func (a *App) columns() (int, int) {
	width := a.width
	if width <= 0 {
		width = 100
	}
	rightWidth := max(32, width/3)
	leftWidth := width - rightWidth - 4
	if leftWidth < 40 {
		return width - 4, 0
	}
	return leftWidth, rightWidth
}

// View renders the current screen.
func (a *App) View() string {
	leftWidth, rightWidth := a.columns()
	var content string
	switch a.state {
	case statePapers:
		content = a.papers.View()
	case stateDetail:
		content = a.renderDetail(leftWidth - 4)
	case stateInvalid:
		content = a.invalid.View()
	}

	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(alert).
		MarginBottom(1).
		Render("◆ PAPER CATALOG")
	leftBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		Width(leftWidth).
		Render(content)
	body := leftBox
	if rightWidth > 0 {
		rightBox := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1).
			Width(rightWidth).
			Render(a.renderSidebar())
		body = lipgloss.JoinHorizontal(lipgloss.Top, leftBox, rightBox)
	}
	footer := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		Render(a.footer())
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (a *App) footer() string {
	hint := "enter: open · i: invalid records · /: filter · q: quit"
	if a.state != statePapers {
		hint = "esc: back · ctrl+c: quit"
	}
	if a.statusMsg != "" {
		return a.statusMsg + "  " + hint
	}
	return hint
}

func (a *App) renderDetail(width int) string {
	if a.selected == nil {
		return "No paper selected."
	}
	p := a.selected
	title := lipgloss.NewStyle().Bold(true).Foreground(accent).Render(p.Identifier)
	label := lipgloss.NewStyle().Foreground(muted)
	lines := []string{
		title,
		"",
		label.Render("domain     ") + p.Domain,
		label.Render("subdomain  ") + p.Subdomain,
		label.Render("indicators ") + strings.Join(p.Indicators, ", "),
	}
	if len(p.Data) > 0 {
		lines = append(lines, "", label.Render("data"))
		keys := make([]string, 0, len(p.Data))
		for k := range p.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			lines = append(lines, fmt.Sprintf("  %s: %v", k, p.Data[k]))
		}
	}
	return lipgloss.NewStyle().Width(max(20, width)).Render(strings.Join(lines, "\n"))
}

func (a *App) renderSidebar() string {
	report := a.catalog.Report
	head := lipgloss.NewStyle().Bold(true).Foreground(accent)
	summary := lipgloss.NewStyle().Foreground(muted).Render(report.Summary())
	if !report.Valid() {
		summary = lipgloss.NewStyle().Foreground(alert).Render(report.Summary())
	}
	parts := []string{head.Render("REPORT"), summary}
	if a.catalog.Taxonomy != nil {
		parts = append(parts, "", head.Render("DOMAINS"),
			lipgloss.NewStyle().Foreground(muted).Render(strings.Join(a.catalog.Taxonomy.Domains(), "\n")))
	}
	if a.logbook != nil {
		if lines, _ := a.logbook.Tail(6); len(lines) > 0 {
			parts = append(parts, "", head.Render("HISTORY"),
				lipgloss.NewStyle().Foreground(muted).Render(strings.Join(lines, "\n")))
		}
	}
	return strings.Join(parts, "\n")
}
