// Package ignoremgr edits the ignore-pattern list: filenames or
// patterns the user never wants touched. The list is persisted as a
// JSON artifact; enforcement is left to the operator's own tooling.
package ignoremgr

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/jfiedler/invoicewatch/internal/keys"
	"github.com/jfiedler/invoicewatch/internal/model"
	"github.com/jfiedler/invoicewatch/internal/theme"
)

// CloseMsg signals the parent to close the ignore view.
type CloseMsg struct{}

type ignoreMode int

const (
	modeList ignoreMode = iota
	modeForm
	modeConfirmDelete
)

type formBindings struct {
	pattern string
	confirm bool
}

type patternsLoadedMsg struct {
	patterns []string
	err      error
}

type patternsSavedMsg struct{ err error }

// Model is the Bubble Tea model for ignore-pattern management.
type Model struct {
	mode        ignoreMode
	ignorePath  string
	keys        *keys.KeyMap
	patterns    []string
	selectedIdx int
	editingIdx  int
	isNew       bool
	form        *huh.Form
	confirmForm *huh.Form
	fb          *formBindings
	statusMsg   string
	width       int
	height      int
}

// New creates an ignore-pattern manager editing the file at ignorePath.
func New(ignorePath string, k *keys.KeyMap, width, height int) Model {
	return Model{
		mode:       modeList,
		ignorePath: ignorePath,
		keys:       k,
		fb:         &formBindings{},
		width:      width, height: height,
	}
}

// Init loads patterns from the ignore file.
func (m Model) Init() tea.Cmd {
	return m.loadPatterns()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case patternsLoadedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
			return m, nil
		}
		m.patterns = msg.patterns
		if m.selectedIdx >= len(m.patterns) && m.selectedIdx > 0 {
			m.selectedIdx = len(m.patterns) - 1
		}
		return m, nil

	case patternsSavedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
		} else {
			m.statusMsg = "Patterns saved"
		}
		m.mode = modeList
		return m, m.loadPatterns()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateActiveForm(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch m.mode {
	case modeList:
		return m.handleListKey(msg)
	case modeForm:
		return m.updateForm(msg)
	case modeConfirmDelete:
		return m.updateConfirm(msg)
	}
	return m, nil
}

func (m Model) handleListKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return CloseMsg{} }

	case key.Matches(msg, m.keys.Down):
		if len(m.patterns) > 0 {
			m.selectedIdx = (m.selectedIdx + 1) % len(m.patterns)
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if len(m.patterns) > 0 {
			m.selectedIdx--
			if m.selectedIdx < 0 {
				m.selectedIdx = len(m.patterns) - 1
			}
		}
		return m, nil

	case msg.String() == "n":
		m.isNew = true
		m.editingIdx = -1
		m.fb.pattern = ""
		m.form = m.buildForm()
		m.mode = modeForm
		return m, m.form.Init()

	case msg.String() == "e":
		if len(m.patterns) == 0 {
			return m, nil
		}
		m.isNew = false
		m.editingIdx = m.selectedIdx
		m.fb.pattern = m.patterns[m.selectedIdx]
		m.form = m.buildForm()
		m.mode = modeForm
		return m, m.form.Init()

	case msg.String() == "d":
		if len(m.patterns) == 0 {
			return m, nil
		}
		m.fb.confirm = false
		m.confirmForm = m.buildConfirmForm()
		m.mode = modeConfirmDelete
		return m, m.confirmForm.Init()
	}
	return m, nil
}

func (m Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Filename or Pattern").
				Placeholder("statement-*.pdf").
				Value(&m.fb.pattern).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("pattern is required")
					}
					return nil
				}),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) buildConfirmForm() *huh.Form {
	pattern := ""
	if m.selectedIdx < len(m.patterns) {
		pattern = m.patterns[m.selectedIdx]
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Remove pattern %q?", pattern)).
				Affirmative("Yes, remove").
				Negative("Cancel").
				Value(&m.fb.confirm),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}
	if m.form.State == huh.StateCompleted {
		return m, m.savePattern()
	}
	if m.form.State == huh.StateAborted {
		m.mode = modeList
		return m, nil
	}
	return m, cmd
}

func (m Model) updateConfirm(msg tea.Msg) (Model, tea.Cmd) {
	if m.confirmForm == nil {
		return m, nil
	}
	mdl, cmd := m.confirmForm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.confirmForm = f
	}
	if m.confirmForm.State == huh.StateCompleted {
		if m.fb.confirm {
			return m, m.deletePattern(m.selectedIdx)
		}
		m.mode = modeList
		return m, nil
	}
	if m.confirmForm.State == huh.StateAborted {
		m.mode = modeList
		return m, nil
	}
	return m, cmd
}

func (m Model) updateActiveForm(msg tea.Msg) (Model, tea.Cmd) {
	switch m.mode {
	case modeForm:
		return m.updateForm(msg)
	case modeConfirmDelete:
		return m.updateConfirm(msg)
	}
	return m, nil
}

// View renders the ignore-pattern manager.
func (m Model) View() string {
	switch m.mode {
	case modeForm:
		return m.viewForm(m.form)
	case modeConfirmDelete:
		return m.viewForm(m.confirmForm)
	default:
		return m.viewList()
	}
}

func (m Model) viewList() string {
	var b strings.Builder

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).MarginBottom(1)
	b.WriteString(titleStyle.Render("Ignore Patterns"))
	b.WriteString("\n\n")

	if len(m.patterns) == 0 {
		b.WriteString(theme.HelpStyle.Render("No patterns yet. Press 'n' to add one."))
	} else {
		for i, p := range m.patterns {
			if i == m.selectedIdx {
				b.WriteString(theme.SelectedItemStyle.Render(p))
			} else {
				b.WriteString(theme.ListItemStyle.Render(p))
			}
			b.WriteString("\n")
		}
	}

	if m.statusMsg != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(theme.ColorYellow).Italic(true).Render(m.statusMsg))
	}

	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.ColorGray).Render(
		"n new | e edit | d delete | esc back",
	))

	return lipgloss.NewStyle().Padding(1, 2).Width(m.width).Height(m.height).Render(b.String())
}

func (m Model) viewForm(f *huh.Form) string {
	if f == nil {
		return ""
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(f.View())
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 4
	if h < 10 {
		h = 10
	}
	return h
}

func (m Model) loadPatterns() tea.Cmd {
	path := m.ignorePath
	return func() tea.Msg {
		patterns, err := model.LoadIgnorePatterns(path)
		return patternsLoadedMsg{patterns: patterns, err: err}
	}
}

func (m Model) savePattern() tea.Cmd {
	path := m.ignorePath
	fb := m.fb
	patterns := append([]string(nil), m.patterns...)
	editingIdx := m.editingIdx
	isNew := m.isNew
	return func() tea.Msg {
		p := strings.TrimSpace(fb.pattern)
		if isNew {
			patterns = append(patterns, p)
		} else if editingIdx >= 0 && editingIdx < len(patterns) {
			patterns[editingIdx] = p
		}
		return patternsSavedMsg{err: model.SaveIgnorePatterns(path, patterns)}
	}
}

func (m Model) deletePattern(idx int) tea.Cmd {
	path := m.ignorePath
	patterns := append([]string(nil), m.patterns...)
	return func() tea.Msg {
		if idx < 0 || idx >= len(patterns) {
			return patternsSavedMsg{}
		}
		patterns = append(patterns[:idx], patterns[idx+1:]...)
		return patternsSavedMsg{err: model.SaveIgnorePatterns(path, patterns)}
	}
}
