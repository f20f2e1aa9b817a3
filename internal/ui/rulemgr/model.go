// Package rulemgr implements the sender-rule editor: the table of
// per-sender rename rules with add/edit/delete forms. Edits are written
// straight back to the rule file; the classifier re-reads it on every
// run, so changes take effect immediately.
package rulemgr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/jfiedler/invoicewatch/internal/keys"
	"github.com/jfiedler/invoicewatch/internal/model"
	"github.com/jfiedler/invoicewatch/internal/theme"
)

// CloseMsg signals the parent to close the rule view.
type CloseMsg struct{}

type ruleMode int

const (
	modeList ruleMode = iota
	modeForm
	modeConfirmDelete
)

type formBindings struct {
	senderEmail string
	folderName  string
	fileName    string
	monthOffset string
	dayOffset   string
	confirm     bool
}

type rulesLoadedMsg struct {
	rules []model.Rule
	err   error
}

type rulesSavedMsg struct{ err error }

// Model is the Bubble Tea model for rule management.
type Model struct {
	mode        ruleMode
	rulesPath   string
	keys        *keys.KeyMap
	rules       []model.Rule
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

// New creates a rule manager editing the rule file at rulesPath.
func New(rulesPath string, k *keys.KeyMap, width, height int) Model {
	return Model{
		mode:      modeList,
		rulesPath: rulesPath,
		keys:      k,
		fb:        &formBindings{},
		width:     width, height: height,
	}
}

// Init loads rules from the rule file.
func (m Model) Init() tea.Cmd {
	return m.loadRules()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case rulesLoadedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
			return m, nil
		}
		m.rules = msg.rules
		if m.selectedIdx >= len(m.rules) && m.selectedIdx > 0 {
			m.selectedIdx = len(m.rules) - 1
		}
		return m, nil

	case rulesSavedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
		} else {
			m.statusMsg = "Rules saved"
		}
		m.mode = modeList
		return m, m.loadRules()

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
		if len(m.rules) > 0 {
			m.selectedIdx = (m.selectedIdx + 1) % len(m.rules)
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if len(m.rules) > 0 {
			m.selectedIdx--
			if m.selectedIdx < 0 {
				m.selectedIdx = len(m.rules) - 1
			}
		}
		return m, nil

	case msg.String() == "n":
		m.isNew = true
		m.editingIdx = -1
		m.fb.senderEmail = ""
		m.fb.folderName = ""
		m.fb.fileName = ""
		m.fb.monthOffset = "0"
		m.fb.dayOffset = "0"
		m.form = m.buildForm()
		m.mode = modeForm
		return m, m.form.Init()

	case msg.String() == "e":
		if len(m.rules) == 0 {
			return m, nil
		}
		r := m.rules[m.selectedIdx]
		m.isNew = false
		m.editingIdx = m.selectedIdx
		m.fb.senderEmail = r.SenderEmail
		m.fb.folderName = r.FolderName
		m.fb.fileName = r.FileName
		m.fb.monthOffset = strconv.Itoa(r.MonthOffset)
		m.fb.dayOffset = strconv.Itoa(r.DayOffset)
		m.form = m.buildForm()
		m.mode = modeForm
		return m, m.form.Init()

	case msg.String() == "d":
		if len(m.rules) == 0 {
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
				Title("Sender Email").
				Placeholder("alice@example.com").
				Value(&m.fb.senderEmail).
				Validate(func(s string) error {
					if !strings.Contains(s, "@") {
						return fmt.Errorf("an email address is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("File Name Prefix").
				Placeholder("Alice").
				Value(&m.fb.fileName).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("file name prefix is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Subfolder").
				Placeholder("Optional subfolder below the month folder").
				Value(&m.fb.folderName),
			huh.NewInput().
				Title("Month Offset").
				Placeholder("0").
				Value(&m.fb.monthOffset).
				Validate(validateOffset(-12, 12)),
			huh.NewInput().
				Title("Day Offset").
				Placeholder("0").
				Value(&m.fb.dayOffset).
				Validate(validateOffset(-31, 31)),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func validateOffset(min, max int) func(string) error {
	return func(s string) error {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("must be a number")
		}
		if n < min || n > max {
			return fmt.Errorf("must be between %d and %d", min, max)
		}
		return nil
	}
}

func (m Model) buildConfirmForm() *huh.Form {
	sender := ""
	if m.selectedIdx < len(m.rules) {
		sender = m.rules[m.selectedIdx].SenderEmail
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete rule for %q?", sender)).
				Description("Files from this sender will be reported as unrecognized.").
				Affirmative("Yes, delete").
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
		return m, m.saveRule()
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
			return m, m.deleteRule(m.selectedIdx)
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

// View renders the rule manager.
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
	b.WriteString(titleStyle.Render("Sender Rules"))
	b.WriteString("\n\n")

	if len(m.rules) == 0 {
		b.WriteString(theme.HelpStyle.Render("No rules yet. Press 'n' to create one."))
	} else {
		for i, r := range m.rules {
			label := fmt.Sprintf("%-35s  %-15s", r.SenderEmail, r.FileName)
			if r.FolderName != "" {
				label += "  /" + r.FolderName
			}
			if r.MonthOffset != 0 || r.DayOffset != 0 {
				label += fmt.Sprintf("  (%+dm %+dd)", r.MonthOffset, r.DayOffset)
			}

			if i == m.selectedIdx {
				b.WriteString(theme.SelectedItemStyle.Render(label))
			} else {
				b.WriteString(theme.ListItemStyle.Render(label))
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

func (m Model) loadRules() tea.Cmd {
	path := m.rulesPath
	return func() tea.Msg {
		rules, err := model.LoadRules(path)
		return rulesLoadedMsg{rules: rules, err: err}
	}
}

func (m Model) saveRule() tea.Cmd {
	path := m.rulesPath
	fb := m.fb
	rules := append([]model.Rule(nil), m.rules...)
	editingIdx := m.editingIdx
	isNew := m.isNew
	return func() tea.Msg {
		monthOffset, _ := strconv.Atoi(strings.TrimSpace(fb.monthOffset))
		dayOffset, _ := strconv.Atoi(strings.TrimSpace(fb.dayOffset))

		r := model.Rule{
			SenderEmail: strings.TrimSpace(fb.senderEmail),
			FolderName:  strings.TrimSpace(fb.folderName),
			FileName:    strings.TrimSpace(fb.fileName),
			MonthOffset: monthOffset,
			DayOffset:   dayOffset,
		}

		if isNew {
			rules = append(rules, r)
		} else if editingIdx >= 0 && editingIdx < len(rules) {
			rules[editingIdx] = r
		}

		return rulesSavedMsg{err: model.SaveRules(path, rules)}
	}
}

func (m Model) deleteRule(idx int) tea.Cmd {
	path := m.rulesPath
	rules := append([]model.Rule(nil), m.rules...)
	return func() tea.Msg {
		if idx < 0 || idx >= len(rules) {
			return rulesSavedMsg{}
		}
		rules = append(rules[:idx], rules[idx+1:]...)
		return rulesSavedMsg{err: model.SaveRules(path, rules)}
	}
}
