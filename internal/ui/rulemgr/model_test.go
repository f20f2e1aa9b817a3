package rulemgr

import (
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfiedler/invoicewatch/internal/keys"
	"github.com/jfiedler/invoicewatch/internal/model"
)

func newTestModel(t *testing.T, rules []model.Rule) Model {
	t.Helper()

	m := New(filepath.Join(t.TempDir(), "rules.json"), keys.DefaultKeyMap(), 80, 24)
	m, _ = m.Update(rulesLoadedMsg{rules: rules})
	return m
}

func TestListNavigationUsesKeyBindings(t *testing.T) {
	m := newTestModel(t, []model.Rule{
		{SenderEmail: "alice@x.com", FileName: "Alice"},
		{SenderEmail: "bob@y.com", FileName: "Bob"},
	})

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	assert.Equal(t, 1, m.selectedIdx)

	// The arrow keys are bound alongside j/k.
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 0, m.selectedIdx)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 1, m.selectedIdx)
}

func TestBackKeyEmitsCloseMsg(t *testing.T) {
	m := newTestModel(t, nil)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, CloseMsg{}, cmd())
}
