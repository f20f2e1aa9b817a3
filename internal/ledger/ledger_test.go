package ledger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMissingFileStartsEmpty(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "uids.txt"))
	require.NoError(t, err)
	assert.Equal(t, 0, l.Count())
	assert.False(t, l.Contains("42"))
}

func TestMarkProcessedPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uids.txt")

	l, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, l.MarkProcessed("101"))
	require.NoError(t, l.MarkProcessed("102"))
	assert.True(t, l.Contains("101"))
	assert.Equal(t, 2, l.Count())

	// Reopen and verify the UIDs survived.
	reopened, err := Open(path)
	require.NoError(t, err)
	assert.True(t, reopened.Contains("101"))
	assert.True(t, reopened.Contains("102"))
	assert.Equal(t, 2, reopened.Count())
}

func TestMarkProcessedIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uids.txt")

	l, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, l.MarkProcessed("7"))
	require.NoError(t, l.MarkProcessed("7"))
	assert.Equal(t, 1, l.Count())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "7\n", string(data))
}

func TestOpenSkipsNonNumericLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uids.txt")
	require.NoError(t, os.WriteFile(path, []byte("55\n\nnot-a-uid\n 56\n57\n"), 0o644))

	l, err := Open(path)
	require.NoError(t, err)

	assert.True(t, l.Contains("55"))
	assert.True(t, l.Contains("57"))
	assert.False(t, l.Contains("not-a-uid"))
	// Leading whitespace makes a line non-numeric, same as line noise.
	assert.False(t, l.Contains("56"))
	assert.Equal(t, 2, l.Count())
}
