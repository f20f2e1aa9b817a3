// Package status renders the main view: poller state, the most recent
// poll runs, and the activity feed from the history store.
package status

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jfiedler/invoicewatch/internal/classifier"
	"github.com/jfiedler/invoicewatch/internal/history"
	"github.com/jfiedler/invoicewatch/internal/poller"
	"github.com/jfiedler/invoicewatch/internal/theme"
)

// dataLoadedMsg carries refreshed history rows.
type dataLoadedMsg struct {
	runs   []history.Run
	events []history.Event
}

// Model is the Bubble Tea model for the status view.
type Model struct {
	hist *history.Store

	status         poller.Status
	runs           []history.Run
	events         []history.Event
	processResults []classifier.FileResult
	statusMsg      string

	width  int
	height int
}

// New creates a status view backed by the history store (may be nil).
func New(hist *history.Store, width, height int) Model {
	return Model{
		hist:   hist,
		width:  width,
		height: height,
	}
}

// Init loads the initial history data.
func (m Model) Init() tea.Cmd {
	return m.loadData()
}

// Reload refreshes the history panels, typically after a poll result.
func (m Model) Reload() tea.Cmd {
	return m.loadData()
}

// SetStatus updates the displayed poller status snapshot.
func (m *Model) SetStatus(s poller.Status) {
	m.status = s
}

// SetProcessResults shows the outcome of the latest classifier run.
func (m *Model) SetProcessResults(results []classifier.FileResult) {
	m.processResults = results
}

// SetStatusMessage shows a transient one-line notice.
func (m *Model) SetStatusMessage(msg string) {
	m.statusMsg = msg
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Update handles messages for the status view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case dataLoadedMsg:
		m.runs = msg.runs
		m.events = msg.events
		return m, nil
	}

	return m, nil
}

// View renders the status view.
func (m Model) View() string {
	var b strings.Builder

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).MarginBottom(1)
	b.WriteString(titleStyle.Render("Mailbox Monitor"))
	b.WriteString("\n\n")

	b.WriteString(m.viewPollerState())
	b.WriteString("\n\n")

	b.WriteString(m.viewRuns())
	b.WriteString("\n")
	b.WriteString(m.viewActivity())

	if len(m.processResults) > 0 {
		b.WriteString("\n")
		b.WriteString(m.viewProcessResults())
	}

	if m.statusMsg != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(theme.ColorYellow).Italic(true).Render(m.statusMsg))
	}

	return lipgloss.NewStyle().Padding(1, 2).Width(m.width).Height(m.height).Render(b.String())
}

func (m Model) viewPollerState() string {
	label := StateLabel(m.status)

	line := fmt.Sprintf("State: %s", theme.MonitorStateStyle(label).Render(label))

	if !m.status.LastCheck.IsZero() {
		line += fmt.Sprintf("   Last check: %s", m.status.LastCheck.Format("15:04:05"))
	}
	if m.status.Failures > 0 {
		line += lipgloss.NewStyle().Foreground(theme.ColorRed).Render(
			fmt.Sprintf("   Failures: %d", m.status.Failures),
		)
	}
	if m.status.LastErr != nil {
		line += "\n" + lipgloss.NewStyle().Foreground(theme.ColorRed).Render(
			fmt.Sprintf("Last error: %v", m.status.LastErr),
		)
	}

	return line
}

func (m Model) viewRuns() string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render("Recent checks"))
	b.WriteString("\n")

	if len(m.runs) == 0 {
		b.WriteString(theme.HelpStyle.Render("No checks recorded yet."))
		b.WriteString("\n")
		return b.String()
	}

	for i, run := range m.runs {
		if i >= 5 {
			break
		}
		line := fmt.Sprintf("%s  %-6s  %d new attachment(s)",
			run.StartedAt.Format("Jan 02 15:04:05"),
			run.Status,
			run.NewAttachments,
		)
		if run.Error != "" {
			line += "  " + run.Error
		}
		style := theme.ListItemStyle
		if run.Status == history.RunFailed {
			style = style.Foreground(theme.ColorRed)
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) viewActivity() string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render("Activity"))
	b.WriteString("\n")

	if len(m.events) == 0 {
		b.WriteString(theme.HelpStyle.Render("No activity yet."))
		b.WriteString("\n")
		return b.String()
	}

	max := m.activityRows()
	for i, ev := range m.events {
		if i >= max {
			break
		}
		line := fmt.Sprintf("%s  %-8s  %s",
			ev.CreatedAt.Format("Jan 02 15:04:05"),
			ev.Kind,
			ev.Message,
		)
		b.WriteString(theme.ListItemStyle.Render(line))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) viewProcessResults() string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render("Last invoice processing"))
	b.WriteString("\n")

	for _, res := range m.processResults {
		style := theme.ListItemStyle
		switch res.Outcome {
		case classifier.OutcomeMoved:
			style = style.Foreground(theme.ColorGreen)
		case classifier.OutcomeError, classifier.OutcomeExists:
			style = style.Foreground(theme.ColorRed)
		}
		b.WriteString(style.Render(res.String()))
		b.WriteString("\n")
	}

	return b.String()
}

// activityRows bounds the activity feed to the remaining screen space.
func (m Model) activityRows() int {
	rows := m.height - 18
	if rows < 5 {
		rows = 5
	}
	if rows > 20 {
		rows = 20
	}
	return rows
}

func (m Model) loadData() tea.Cmd {
	hist := m.hist
	return func() tea.Msg {
		if hist == nil {
			return dataLoadedMsg{}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		runs, _ := hist.RecentRuns(ctx, 5)
		events, _ := hist.RecentEvents(ctx, 20)
		return dataLoadedMsg{runs: runs, events: events}
	}
}

// StateLabel renders a poller status as the short label used in the
// header and the state line.
func StateLabel(s poller.Status) string {
	switch {
	case s.Paused:
		return "paused"
	case s.State == poller.StateChecking:
		return "checking"
	default:
		return "idle"
	}
}
