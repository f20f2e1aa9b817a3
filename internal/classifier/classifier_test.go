package classifier

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfiedler/invoicewatch/internal/model"
)

// newTestClassifier wires a classifier against temp dirs with a pinned
// clock and the given rules written to disk.
func newTestClassifier(t *testing.T, rules []model.Rule, today time.Time) *Classifier {
	t.Helper()

	root := t.TempDir()
	landingDir := filepath.Join(root, "landing")
	baseDir := filepath.Join(root, "archive")
	rulesPath := filepath.Join(root, "rules.json")

	require.NoError(t, os.MkdirAll(landingDir, 0o755))
	require.NoError(t, model.SaveRules(rulesPath, rules))

	return &Classifier{
		LandingDir: landingDir,
		BaseDir:    baseDir,
		RulesPath:  rulesPath,
		Now:        func() time.Time { return today },
	}
}

func writeLandingFile(t *testing.T, c *Classifier, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(c.LandingDir, name), []byte("%PDF"), 0o644))
}

func TestRunMovesMatchedFile(t *testing.T) {
	today := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	c := newTestClassifier(t, []model.Rule{
		{SenderEmail: "alice@x.com", FileName: "Alice"},
	}, today)

	writeLandingFile(t, c, "alice@x.com_Invoice_20240101_55_receipt.pdf")

	results, err := c.Run()
	require.NoError(t, err)
	require.Len(t, results, 1)

	want := filepath.Join(c.BaseDir, "2024", "March", "Alice-1.pdf")
	assert.Equal(t, OutcomeMoved, results[0].Outcome)
	assert.Equal(t, want, results[0].Dest)
	assert.FileExists(t, want)
	assert.NoFileExists(t, filepath.Join(c.LandingDir, "alice@x.com_Invoice_20240101_55_receipt.pdf"))
}

func TestRunUsesRuleSubfolderAndNextSequence(t *testing.T) {
	today := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	c := newTestClassifier(t, []model.Rule{
		{SenderEmail: "alice@x.com", FolderName: "Utilities", FileName: "Power"},
	}, today)

	folder := filepath.Join(c.BaseDir, "2024", "March", "Utilities")
	require.NoError(t, os.MkdirAll(folder, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(folder, "Power-1.pdf"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(folder, "Power-3.pdf"), nil, 0o644))

	writeLandingFile(t, c, "alice@x.com_bill.pdf")

	results, err := c.Run()
	require.NoError(t, err)
	require.Len(t, results, 1)

	// Gaps are never reused: max existing number is 3, so the next is 4.
	assert.Equal(t, OutcomeMoved, results[0].Outcome)
	assert.Equal(t, filepath.Join(folder, "Power-4.pdf"), results[0].Dest)
}

func TestRunLeavesUnmatchedFilesInPlace(t *testing.T) {
	today := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	c := newTestClassifier(t, []model.Rule{
		{SenderEmail: "alice@x.com", FileName: "Alice"},
	}, today)

	writeLandingFile(t, c, "notes.txt")
	writeLandingFile(t, c, "bob@y.com_statement.pdf")

	results, err := c.Run()
	require.NoError(t, err)
	require.Len(t, results, 2)

	byName := map[string]FileResult{}
	for _, r := range results {
		byName[r.Name] = r
	}

	assert.Equal(t, OutcomeNoSender, byName["notes.txt"].Outcome)
	assert.Equal(t, OutcomeNoRule, byName["bob@y.com_statement.pdf"].Outcome)
	assert.FileExists(t, filepath.Join(c.LandingDir, "notes.txt"))
	assert.FileExists(t, filepath.Join(c.LandingDir, "bob@y.com_statement.pdf"))
}

func TestRunSequenceScanIsExtensionBlind(t *testing.T) {
	today := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	c := newTestClassifier(t, []model.Rule{
		{SenderEmail: "alice@x.com", FileName: "Alice"},
	}, today)

	folder := filepath.Join(c.BaseDir, "2024", "March")
	require.NoError(t, os.MkdirAll(folder, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(folder, "Alice-1.txt"), nil, 0o644))

	writeLandingFile(t, c, "alice@x.com_bill.pdf")

	results, err := c.Run()
	require.NoError(t, err)
	require.Len(t, results, 1)

	// Alice-1.txt counts toward the sequence even though the new file is
	// a .pdf, so the move lands on Alice-2.pdf.
	assert.Equal(t, OutcomeMoved, results[0].Outcome)
	assert.Equal(t, filepath.Join(folder, "Alice-2.pdf"), results[0].Dest)
}

func TestRunTwoFilesSameRuleGetConsecutiveNumbers(t *testing.T) {
	today := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	c := newTestClassifier(t, []model.Rule{
		{SenderEmail: "alice@x.com", FileName: "Alice"},
	}, today)

	writeLandingFile(t, c, "alice@x.com_first.pdf")
	writeLandingFile(t, c, "alice@x.com_second.pdf")

	results, err := c.Run()
	require.NoError(t, err)
	require.Len(t, results, 2)

	// The sequence is re-scanned per file, so the second move sees the
	// first and takes the next number.
	folder := filepath.Join(c.BaseDir, "2024", "March")
	dests := []string{results[0].Dest, results[1].Dest}
	assert.ElementsMatch(t, []string{
		filepath.Join(folder, "Alice-1.pdf"),
		filepath.Join(folder, "Alice-2.pdf"),
	}, dests)
	assert.Equal(t, OutcomeMoved, results[0].Outcome)
	assert.Equal(t, OutcomeMoved, results[1].Outcome)
}

func TestMoveIntoSkipsExistingDestination(t *testing.T) {
	today := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	c := newTestClassifier(t, nil, today)

	writeLandingFile(t, c, "alice@x.com_bill.pdf")

	// A concurrent writer claimed the slot after the sequence scan.
	folder := filepath.Join(c.BaseDir, "2024", "March")
	require.NoError(t, os.MkdirAll(folder, 0o755))
	dest := filepath.Join(folder, "Alice-1.pdf")
	require.NoError(t, os.WriteFile(dest, []byte("other"), 0o644))

	res := c.moveInto("alice@x.com_bill.pdf", dest)

	assert.Equal(t, OutcomeExists, res.Outcome)
	assert.Equal(t, dest, res.Dest)

	// The landing file stays put and the occupant is untouched.
	assert.FileExists(t, filepath.Join(c.LandingDir, "alice@x.com_bill.pdf"))
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "other", string(data))
}

func TestRunMissingRuleFileReportsEveryFileUnrecognized(t *testing.T) {
	today := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	c := newTestClassifier(t, nil, today)
	require.NoError(t, os.Remove(c.RulesPath))

	writeLandingFile(t, c, "alice@x.com_bill.pdf")

	results, err := c.Run()
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, OutcomeNoRule, results[0].Outcome)
}

func TestTargetDate(t *testing.T) {
	cases := []struct {
		name        string
		today       time.Time
		monthOffset int
		dayOffset   int
		want        time.Time
	}{
		{
			name:  "no offsets",
			today: time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC),
			want:  time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name:        "previous month clamps missing day to the 1st",
			today:       time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
			monthOffset: -1,
			want:        time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:        "month offset crosses year boundary forward",
			today:       time.Date(2024, 11, 10, 0, 0, 0, 0, time.UTC),
			monthOffset: 3,
			want:        time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			name:        "month offset crosses year boundary backward",
			today:       time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
			monthOffset: -2,
			want:        time.Date(2023, 11, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "day offset past end of month clamps to the 1st",
			today:     time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC),
			dayOffset: 15,
			want:      time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "day offset below 1 clamps to the 1st",
			today:     time.Date(2024, 4, 5, 0, 0, 0, 0, time.UTC),
			dayOffset: -10,
			want:      time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := TargetDate(tc.today, tc.monthOffset, tc.dayOffset)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNextSequence(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Alice-1.pdf"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Alice-7.pdf"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Alice-3.txt"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Alicent-99.pdf"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Alice-12x.pdf"), nil, 0o644))

	n, err := NextSequence(dir, "Alice")
	require.NoError(t, err)
	// Alicent-99 has a different prefix and Alice-12x has no word
	// boundary after the digits; the max is Alice-7.
	assert.Equal(t, 8, n)
}

func TestNextSequenceEmptyDir(t *testing.T) {
	n, err := NextSequence(t.TempDir(), "Alice")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
