package status

import (
	"errors"
	"io"
	"time"

	"github.com/bnema/we-quota-cli/internal/application"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var ErrUnexpectedRenderModel = errors.New("unexpected final bubbletea model type")

type snapshotReadyMsg struct{}

// snapshotModel renders the statuses once and quits. It backs the one-shot
// commands so they print the same layout as the live view.
type snapshotModel struct {
	statuses []application.Status
	opts     RenderOptions
	styles   styles
	output   string
}

func newSnapshotModel(statuses []application.Status, opts RenderOptions) snapshotModel {
	return snapshotModel{
		statuses: statuses,
		opts:     opts,
		styles:   newStyles(),
	}
}

func (m snapshotModel) Init() tea.Cmd {
	return func() tea.Msg {
		return snapshotReadyMsg{}
	}
}

func (m snapshotModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg.(type) {
	case snapshotReadyMsg:
		m.output = m.render()
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m snapshotModel) View() string {
	return m.output
}

func (m snapshotModel) render() string {
	body := renderView(m.statuses, m.opts, m.styles)
	if m.opts.Now.IsZero() || len(m.statuses) == 0 {
		return body
	}

	footer := m.styles.clock.Render(ClockLine(latestCapture(m.statuses), m.opts.Now))
	return lipgloss.JoinVertical(lipgloss.Left, body, "", footer)
}

// latestCapture is the most recent snapshot time across accounts, zero when none was captured.
func latestCapture(statuses []application.Status) time.Time {
	var latest time.Time
	for _, status := range statuses {
		if captured := status.CapturedAt(); captured.After(latest) {
			latest = captured
		}
	}
	return latest
}

// Render produces the quota view for statuses as a string.
func Render(statuses []application.Status, opts RenderOptions) (string, error) {
	p := tea.NewProgram(
		newSnapshotModel(statuses, opts),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	)

	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}

	rendered, ok := finalModel.(snapshotModel)
	if !ok {
		return "", ErrUnexpectedRenderModel
	}

	return rendered.View(), nil
}
