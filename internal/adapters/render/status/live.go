package status

import (
	"strings"
	"time"

	"github.com/bnema/we-quota-cli/internal/application"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ClockTickMsg advances the clock line of the live view.
type ClockTickMsg time.Time

// RefreshResultMsg carries the outcome of a scheduled or manual refresh.
type RefreshResultMsg application.RefreshResult

// AccountsChangedMsg asks the live view to reload the stored statuses.
type AccountsChangedMsg struct{}

type statusesLoadedMsg struct {
	statuses []application.Status
	err      error
}

type liveKeyMap struct {
	Refresh key.Binding
	Quit    key.Binding
}

func (k liveKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Refresh, k.Quit}
}

func (k liveKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

func defaultLiveKeyMap() liveKeyMap {
	return liveKeyMap{
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh now"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

type LiveOptions struct {
	StaleAfter time.Duration
	// Refresh requests an immediate refresh and reports whether it was accepted.
	Refresh func() bool
	// Load reads the stored statuses without network access.
	Load func() ([]application.Status, error)
	Now  func() time.Time
}

// LiveModel is the long-running quota view: it shows the last statuses, a
// clock line updated every second and the outcome of the last refresh.
type LiveModel struct {
	opts       LiveOptions
	keys       liveKeyMap
	help       help.Model
	styles     styles
	statuses   []application.Status
	lastUpdate time.Time
	now        time.Time
	err        error
	refreshing bool
}

func NewLiveModel(statuses []application.Status, opts LiveOptions) LiveModel {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Refresh == nil {
		opts.Refresh = func() bool { return false }
	}

	return LiveModel{
		opts:       opts,
		keys:       defaultLiveKeyMap(),
		help:       help.New(),
		styles:     newStyles(),
		statuses:   statuses,
		now:        opts.Now(),
		refreshing: true,
	}
}

func (m LiveModel) Init() tea.Cmd {
	return clockTick()
}

func clockTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return ClockTickMsg(t)
	})
}

func (m LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Refresh):
			if m.opts.Refresh() {
				m.refreshing = true
			}
			return m, nil
		}
		return m, nil
	case ClockTickMsg:
		m.now = time.Time(msg)
		return m, clockTick()
	case RefreshResultMsg:
		m.refreshing = false
		m.lastUpdate = msg.FinishedAt
		m.err = msg.Err
		if msg.Statuses != nil {
			m.statuses = msg.Statuses
		}
		return m, nil
	case AccountsChangedMsg:
		return m, m.load()
	case statusesLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.statuses = msg.statuses
		return m, nil
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil
	default:
		return m, nil
	}
}

func (m LiveModel) load() tea.Cmd {
	if m.opts.Load == nil {
		return nil
	}

	load := m.opts.Load
	return func() tea.Msg {
		statuses, err := load()
		return statusesLoadedMsg{statuses: statuses, err: err}
	}
}

func (m LiveModel) View() string {
	parts := []string{
		renderView(m.statuses, RenderOptions{Now: m.now, StaleAfter: m.opts.StaleAfter}, m.styles),
		"",
		m.styles.clock.Render(ClockLine(m.lastUpdate, m.now)),
	}

	if m.refreshing {
		parts = append(parts, m.styles.empty.Render("refreshing..."))
	}
	if m.err != nil {
		parts = append(parts, m.styles.warning.Render("last refresh failed: "+firstLine(m.err.Error())))
	}

	parts = append(parts, m.styles.help.Render(m.help.View(m.keys)))

	return lipgloss.JoinVertical(lipgloss.Left, parts...) + "\n"
}

func (m LiveModel) Statuses() []application.Status {
	return m.statuses
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
