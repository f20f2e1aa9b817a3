// Package app wires the root Bubble Tea model: view routing between the
// status screen and the two editors, and handling of poller results.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jfiedler/invoicewatch/internal/classifier"
	"github.com/jfiedler/invoicewatch/internal/history"
	"github.com/jfiedler/invoicewatch/internal/keys"
	"github.com/jfiedler/invoicewatch/internal/poller"
	"github.com/jfiedler/invoicewatch/internal/ui"
	"github.com/jfiedler/invoicewatch/internal/ui/ignoremgr"
	"github.com/jfiedler/invoicewatch/internal/ui/rulemgr"
	"github.com/jfiedler/invoicewatch/internal/ui/status"
)

// Version is shown in the header bar.
const Version = "0.7.0"

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewStatus ViewState = iota
	ViewRules
	ViewIgnore
)

// processDoneMsg carries the results of an on-demand classifier run.
type processDoneMsg struct {
	results []classifier.FileResult
	err     error
}

// Model is the root Bubble Tea model.
type Model struct {
	currentView ViewState
	layout      ui.Layout
	keys        *keys.KeyMap

	poller *poller.Poller
	cls    *classifier.Classifier
	hist   *history.Store

	statusView status.Model
	ruleView   rulemgr.Model
	ignoreView ignoremgr.Model

	processing bool
	ready      bool
}

// New creates the root application model.
func New(p *poller.Poller, cls *classifier.Classifier, hist *history.Store, rulesPath, ignorePath string) Model {
	k := keys.DefaultKeyMap()

	return Model{
		currentView: ViewStatus,
		keys:        k,
		poller:      p,
		cls:         cls,
		hist:        hist,
		statusView:  status.New(hist, 80, 24),
		ruleView:    rulemgr.New(rulesPath, k, 80, 24),
		ignoreView:  ignoremgr.New(ignorePath, k, 80, 24),
	}
}

// Init starts the poller and loads the initial view data.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.statusView.Init(),
		m.ruleView.Init(),
		m.ignoreView.Init(),
		m.poller.Start(),
	)
}

// Update routes messages to the active view and reacts to poller results.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true

		contentMsg := tea.WindowSizeMsg{
			Width:  msg.Width,
			Height: m.layout.ContentHeight(),
		}
		var cmds []tea.Cmd
		var cmd tea.Cmd
		m.statusView, cmd = m.statusView.Update(contentMsg)
		cmds = append(cmds, cmd)
		m.ruleView, cmd = m.ruleView.Update(contentMsg)
		cmds = append(cmds, cmd)
		m.ignoreView, cmd = m.ignoreView.Update(contentMsg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)

	case poller.CheckResultMsg:
		m.statusView.SetStatus(m.poller.Status())
		if msg.Err != nil {
			m.statusView.SetStatusMessage(fmt.Sprintf(
				"Check failed, retrying in %s", msg.NextDelay.Round(time.Second),
			))
		} else if n := len(msg.Result.Downloaded); n > 0 {
			m.statusView.SetStatusMessage(fmt.Sprintf("Downloaded %d new attachment(s)", n))
		} else {
			m.statusView.SetStatusMessage("")
		}
		return m, tea.Batch(m.statusView.Reload(), m.poller.WaitForNextResult())

	case poller.PausedMsg:
		m.statusView.SetStatus(m.poller.Status())
		if msg.Paused {
			m.statusView.SetStatusMessage("Monitoring paused")
		} else {
			m.statusView.SetStatusMessage("Monitoring resumed")
		}
		return m, m.poller.WaitForNextResult()

	case processDoneMsg:
		m.processing = false
		if msg.err != nil {
			m.statusView.SetStatusMessage(fmt.Sprintf("Processing failed: %v", msg.err))
		} else {
			m.statusView.SetProcessResults(msg.results)
			m.statusView.SetStatusMessage(fmt.Sprintf("Processed %d file(s)", len(msg.results)))
		}
		return m, m.statusView.Reload()

	case rulemgr.CloseMsg:
		m.currentView = ViewStatus
		return m, nil

	case ignoremgr.CloseMsg:
		m.currentView = ViewStatus
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.routeToViews(msg)
}

// handleKey processes keys: global bindings on the status view, and
// pass-through to the active editor otherwise so typing in forms is
// never intercepted.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.currentView != ViewStatus {
		var cmd tea.Cmd
		switch m.currentView {
		case ViewRules:
			m.ruleView, cmd = m.ruleView.Update(msg)
		case ViewIgnore:
			m.ignoreView, cmd = m.ignoreView.Update(msg)
		}
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.poller.Stop()
		return m, tea.Quit

	case key.Matches(msg, m.keys.CheckNow):
		m.poller.CheckNow()
		m.statusView.SetStatusMessage("Checking now...")
		return m, nil

	case key.Matches(msg, m.keys.PauseResume):
		m.poller.SetPaused(!m.poller.Status().Paused)
		return m, nil

	case key.Matches(msg, m.keys.Process):
		if m.processing {
			return m, nil
		}
		m.processing = true
		m.statusView.SetStatusMessage("Processing invoices...")
		return m, m.runClassifier()

	case key.Matches(msg, m.keys.Rules):
		m.currentView = ViewRules
		return m, m.ruleView.Init()

	case key.Matches(msg, m.keys.Ignore):
		m.currentView = ViewIgnore
		return m, m.ignoreView.Init()
	}

	var cmd tea.Cmd
	m.statusView, cmd = m.statusView.Update(msg)
	return m, cmd
}

// routeToViews forwards non-key messages to every view so their
// internal load/save messages reach them regardless of focus.
func (m Model) routeToViews(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	m.statusView, cmd = m.statusView.Update(msg)
	cmds = append(cmds, cmd)
	m.ruleView, cmd = m.ruleView.Update(msg)
	cmds = append(cmds, cmd)
	m.ignoreView, cmd = m.ignoreView.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// runClassifier runs the invoice classifier off the UI goroutine and
// records the per-file outcomes in the activity store.
func (m Model) runClassifier() tea.Cmd {
	cls := m.cls
	hist := m.hist
	return func() tea.Msg {
		results, err := cls.Run()
		if err != nil {
			return processDoneMsg{err: err}
		}

		if hist != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			for _, res := range results {
				ev := history.Event{Message: res.String()}
				switch res.Outcome {
				case classifier.OutcomeMoved:
					ev.Kind = history.EventMove
				case classifier.OutcomeError:
					ev.Kind = history.EventError
				default:
					ev.Kind = history.EventSkip
				}
				_ = hist.RecordEvent(ctx, ev)
			}
		}

		return processDoneMsg{results: results}
	}
}

// View renders the full application frame.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader(
		fmt.Sprintf("invoicewatch v%s", Version),
		status.StateLabel(m.poller.Status()),
	)

	var content string
	switch m.currentView {
	case ViewRules:
		content = m.ruleView.View()
	case ViewIgnore:
		content = m.ignoreView.View()
	default:
		content = m.statusView.View()
	}

	statusBar := m.layout.RenderStatusBar(m.hints())

	return m.layout.RenderWithFrame(header, content, statusBar)
}

func (m Model) hints() string {
	switch m.currentView {
	case ViewRules, ViewIgnore:
		return "n new | e edit | d delete | esc back"
	default:
		return "c check now | p pause/resume | P process invoices | r rules | i ignore | q quit"
	}
}
