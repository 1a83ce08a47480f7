// Package tui is an interactive terminal client for the search core: a query
// box with debounced ranking, a suggestion dropdown with circular keyboard
// navigation, and selection feedback into history and usage patterns.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kailas-cloud/partdex/internal/domain"
	searchuc "github.com/kailas-cloud/partdex/internal/usecase/search"
	suggestuc "github.com/kailas-cloud/partdex/internal/usecase/suggest"
)

const maxVisibleResults = 15

// PatternRecorder feeds selections back into the usage-pattern store.
type PatternRecorder interface {
	Record(ctx context.Context, query string, item domain.Item)
}

// HistoryRecorder feeds submitted queries into the search history.
type HistoryRecorder interface {
	Add(ctx context.Context, term string)
}

// tickMsg drives the debounce timer.
type tickMsg time.Time

// Model is the Bubble Tea model for the search TUI.
type Model struct {
	search   *searchuc.Service
	suggest  *suggestuc.Service
	patterns PatternRecorder
	history  HistoryRecorder

	input    textinput.Model
	viewport viewport.Model
	status   string
	ready    bool
}

// New creates the TUI model. The search and suggestion services must already
// hold the item collection.
func New(search *searchuc.Service, suggest *suggestuc.Service, patterns PatternRecorder, history HistoryRecorder) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type to search the inventory"
	ti.Focus()
	vp := viewport.New(0, 0)
	return Model{
		search:   search,
		suggest:  suggest,
		patterns: patterns,
		history:  history,
		input:    ti,
		viewport: vp,
		status:   "Ready.",
	}
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, tick, and window events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-10)
		m.viewport.SetContent(m.renderResults())
		return m, nil

	case tickMsg:
		if m.search.Tick(time.Time(msg)) {
			m.status = fmt.Sprintf("%d results for %q", len(m.search.Results()), m.search.DebouncedQuery())
			m.viewport.SetContent(m.renderResults())
		}
		return m, m.scheduleTick()

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "down":
			m.suggest.MoveDown()
			return m, nil
		case "up":
			m.suggest.MoveUp()
			return m, nil
		case "esc":
			m.suggest.Escape()
			return m, nil
		case "enter":
			return m.handleEnter()
		}

		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		query := m.input.Value()
		m.search.SetQuery(query)
		m.suggest.Suggest(query)
		return m, tea.Batch(cmd, m.scheduleTick())
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleEnter selects the highlighted suggestion, or with no cursor treats
// the typed query as final and records the top result as the chosen item.
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	ctx := context.Background()

	if text, ok := m.suggest.Enter(ctx); ok {
		m.input.SetValue(text)
		m.input.CursorEnd()
		m.search.SetQuery(text)
		m.search.Flush()
		m.status = fmt.Sprintf("%d results for %q", len(m.search.Results()), text)
		m.viewport.SetContent(m.renderResults())
		return m, nil
	}

	m.search.Flush()
	query := m.search.DebouncedQuery()
	if query != "" {
		if m.history != nil {
			m.history.Add(ctx, query)
		}
		if results := m.search.Results(); len(results) > 0 && m.patterns != nil {
			m.patterns.Record(ctx, query, results[0])
		}
	}
	m.suggest.Escape()
	m.status = fmt.Sprintf("%d results for %q", len(m.search.Results()), query)
	m.viewport.SetContent(m.renderResults())
	return m, nil
}

// scheduleTick arms a timer for the pending debounce deadline, if any.
func (m Model) scheduleTick() tea.Cmd {
	deadline, pending := m.search.PendingAt()
	if !pending {
		return nil
	}
	wait := time.Until(deadline)
	if wait < 0 {
		wait = 0
	}
	return tea.Tick(wait, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// View renders the query box, suggestion dropdown, and result list.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render("partdex"))
	b.WriteString("\n")
	b.WriteString(queryBoxStyle.Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(m.renderSuggestions())
	b.WriteString(resultBoxStyle.Render(m.viewport.View()))
	b.WriteString("\n")
	b.WriteString(statusStyle.Render(m.status))
	return b.String()
}

func (m Model) renderSuggestions() string {
	list := m.suggest.List()
	if len(list) == 0 {
		return ""
	}
	var b strings.Builder
	cursor := m.suggest.Cursor()
	for i, sug := range list {
		line := fmt.Sprintf("%-9s %s", "["+string(sug.Type)+"]", sug.Text)
		if sug.Count > 0 {
			line += fmt.Sprintf(" (%d)", sug.Count)
		}
		if i == cursor {
			b.WriteString(selectedStyle.Render("▸ " + line))
		} else {
			b.WriteString(suggestionStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderResults() string {
	results := m.search.Results()
	if len(results) == 0 {
		if m.search.DebouncedQuery() == "" {
			return "No items loaded."
		}
		return "No matches."
	}
	shown := results
	if len(shown) > maxVisibleResults {
		shown = shown[:maxVisibleResults]
	}

	var b strings.Builder
	for i, it := range shown {
		name := domain.FieldPath("name").Resolve(it)
		desc := domain.FieldPath("description").Resolve(it)
		line := name
		if desc != "" {
			if line != "" {
				line += ": "
			}
			line += desc
		}
		line = m.search.HighlightQuery(line, markOpen, markClose)
		fmt.Fprintf(&b, "%2d. %s\n", i+1, line)
	}
	if len(results) > len(shown) {
		fmt.Fprintf(&b, "… and %d more\n", len(results)-len(shown))
	}
	return b.String()
}

// ANSI markers used by HighlightQuery inside the terminal view.
const (
	markOpen  = "\x1b[1;33m"
	markClose = "\x1b[0m"
)

var (
	headerStyle     = lipgloss.NewStyle().Bold(true)
	queryBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	resultBoxStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1)
	suggestionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	selectedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)
