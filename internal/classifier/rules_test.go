package classifier

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfiedler/invoicewatch/internal/model"
)

func TestBuildTable(t *testing.T) {
	table := BuildTable([]model.Rule{
		{SenderEmail: " Alice@X.com ", FileName: "Alice"},
		{SenderEmail: "bob@y.com"},
		{SenderEmail: ""},
		{SenderEmail: "alice@x.com", FileName: "AliceOverride"},
	})

	require.Len(t, table, 2)

	// Keys are lowercased and trimmed; the later alice rule wins.
	assert.Equal(t, "AliceOverride", table["alice@x.com"].FileName)

	// An empty prefix defaults to NoName.
	assert.Equal(t, "NoName", table["bob@y.com"].FileName)
}

func TestParseTable(t *testing.T) {
	data := []byte(`[
    {
        "sender_email": "alice@x.com",
        "folder_name": "Utilities",
        "file_name": "Power",
        "month_offset": -1,
        "day_offset": 0
    }
]`)

	table, err := ParseTable(data)
	require.NoError(t, err)
	require.Len(t, table, 1)

	rule := table["alice@x.com"]
	assert.Equal(t, "Utilities", rule.FolderName)
	assert.Equal(t, "Power", rule.FileName)
	assert.Equal(t, -1, rule.MonthOffset)
}

func TestParseTableMalformed(t *testing.T) {
	_, err := ParseTable([]byte(`{"not": "an array"}`))
	assert.Error(t, err)
}

func TestLoadTableMissingFileYieldsEmptyTable(t *testing.T) {
	table, err := LoadTable(filepath.Join(t.TempDir(), "rules.json"))
	require.NoError(t, err)
	assert.Empty(t, table)
}
