package ignoremgr

import (
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfiedler/invoicewatch/internal/keys"
)

func newTestModel(t *testing.T, patterns []string) Model {
	t.Helper()

	m := New(filepath.Join(t.TempDir(), "ignore.json"), keys.DefaultKeyMap(), 80, 24)
	m, _ = m.Update(patternsLoadedMsg{patterns: patterns})
	return m
}

func TestListNavigationUsesKeyBindings(t *testing.T) {
	m := newTestModel(t, []string{"newsletter", "terms_of_service"})

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	assert.Equal(t, 1, m.selectedIdx)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("k")})
	assert.Equal(t, 0, m.selectedIdx)
}

func TestBackKeyEmitsCloseMsg(t *testing.T) {
	m := newTestModel(t, nil)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.IsType(t, CloseMsg{}, cmd())
}
