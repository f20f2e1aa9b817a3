package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRulesMissingFile(t *testing.T) {
	rules, err := LoadRules(filepath.Join(t.TempDir(), "rules.json"))
	require.NoError(t, err)
	assert.Nil(t, rules)
}

func TestSaveAndLoadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "rules.json")
	want := []Rule{
		{SenderEmail: "alice@x.com", FolderName: "Utilities", FileName: "Power", MonthOffset: -1},
		{SenderEmail: "bob@y.com", FileName: "Bob", DayOffset: 3},
	}

	require.NoError(t, SaveRules(path, want))

	got, err := LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadRulesMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))

	_, err := LoadRules(path)
	assert.Error(t, err)
}

func TestSaveAndLoadIgnorePatterns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ignore.json")
	want := []string{"newsletter", "terms_of_service"}

	require.NoError(t, SaveIgnorePatterns(path, want))

	got, err := LoadIgnorePatterns(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadIgnorePatternsMissingFile(t *testing.T) {
	patterns, err := LoadIgnorePatterns(filepath.Join(t.TempDir(), "ignore.json"))
	require.NoError(t, err)
	assert.Nil(t, patterns)
}
