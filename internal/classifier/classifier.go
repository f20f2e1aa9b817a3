// Package classifier files landing-directory invoices into a dated
// archive tree according to per-sender rules: extract the sender from
// the filename, compute a target date, assign the next sequence number
// for that sender's prefix, and move the file.
package classifier

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/jfiedler/invoicewatch/internal/landing"
)

// Outcome describes what happened to one landing file.
type Outcome int

const (
	// OutcomeMoved: the file was renamed into the archive tree.
	OutcomeMoved Outcome = iota

	// OutcomeNoSender: no leading email address in the filename; the
	// file is left in place.
	OutcomeNoSender

	// OutcomeNoRule: the sender has no rule; the file is left in place.
	OutcomeNoRule

	// OutcomeExists: the destination already exists; the file is left
	// in place and no alternative number is tried.
	OutcomeExists

	// OutcomeError: an I/O error; the batch continues with the next file.
	OutcomeError
)

// FileResult reports the outcome for one landing file.
type FileResult struct {
	Name    string
	Outcome Outcome
	Dest    string
	Err     error
}

// String renders the result the way the status view shows it.
func (r FileResult) String() string {
	switch r.Outcome {
	case OutcomeMoved:
		return fmt.Sprintf("moved %s -> %s", r.Name, r.Dest)
	case OutcomeNoSender:
		return fmt.Sprintf("no email address in filename: %s", r.Name)
	case OutcomeNoRule:
		return fmt.Sprintf("sender not recognized: %s", r.Name)
	case OutcomeExists:
		return fmt.Sprintf("destination exists, not overwritten: %s", r.Dest)
	default:
		return fmt.Sprintf("error on %s: %v", r.Name, r.Err)
	}
}

// Classifier scans a landing directory and files invoices into the
// archive tree rooted at BaseDir.
type Classifier struct {
	// LandingDir is the directory the mail poller downloads into.
	LandingDir string

	// BaseDir is the root of the <year>/<MonthName> archive tree.
	BaseDir string

	// RulesPath is the JSON rule file, re-read on every run.
	RulesPath string

	// Now supplies "today" for date-offset arithmetic. Defaults to
	// time.Now; tests pin it.
	Now func() time.Time

	Log *zap.Logger
}

// Run loads the rule table and processes every plain file in the
// landing directory. Per-file failures are reported and do not abort
// the batch.
func (c *Classifier) Run() ([]FileResult, error) {
	table, err := LoadTable(c.RulesPath)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(c.LandingDir)
	if err != nil {
		return nil, fmt.Errorf("reading landing dir %s: %w", c.LandingDir, err)
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}

	var results []FileResult
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		res := c.processFile(entry.Name(), table, now())
		if c.Log != nil {
			c.Log.Info("classifier", zap.String("result", res.String()))
		}
		results = append(results, res)
	}

	return results, nil
}

// processFile applies the rule table to a single landing file.
func (c *Classifier) processFile(name string, table Table, today time.Time) FileResult {
	sender, ok := landing.ExtractSender(name)
	if !ok {
		return FileResult{Name: name, Outcome: OutcomeNoSender}
	}

	rule, ok := table[sender]
	if !ok {
		return FileResult{Name: name, Outcome: OutcomeNoRule}
	}

	target := TargetDate(today, rule.MonthOffset, rule.DayOffset)

	folder := filepath.Join(c.BaseDir, strconv.Itoa(target.Year()), target.Month().String())
	if rule.FolderName != "" {
		folder = filepath.Join(folder, rule.FolderName)
	}

	if err := os.MkdirAll(folder, 0o755); err != nil {
		return FileResult{Name: name, Outcome: OutcomeError, Err: err}
	}

	seq, err := NextSequence(folder, rule.FileName)
	if err != nil {
		return FileResult{Name: name, Outcome: OutcomeError, Err: err}
	}

	dest := filepath.Join(folder, fmt.Sprintf("%s-%d%s", rule.FileName, seq, filepath.Ext(name)))

	return c.moveInto(name, dest)
}

// moveInto renames a landing file to dest unless dest already exists.
// The existence check guards against a concurrent writer filling the
// same sequence slot between the scan and the rename; the file stays in
// the landing directory for the next run, no alternative number is
// tried.
func (c *Classifier) moveInto(name, dest string) FileResult {
	if _, err := os.Stat(dest); err == nil {
		return FileResult{Name: name, Outcome: OutcomeExists, Dest: dest}
	}

	if err := os.Rename(filepath.Join(c.LandingDir, name), dest); err != nil {
		return FileResult{Name: name, Outcome: OutcomeError, Err: err}
	}

	return FileResult{Name: name, Outcome: OutcomeMoved, Dest: dest}
}

// TargetDate shifts today by monthOffset months and dayOffset days. The
// month is normalized first; if the resulting day does not exist in that
// month (Feb 30, say), the date clamps to the 1st of the month rather
// than rolling over.
func TargetDate(today time.Time, monthOffset, dayOffset int) time.Time {
	year := today.Year()
	month := int(today.Month()) + monthOffset
	day := today.Day() + dayOffset

	for month > 12 {
		month -= 12
		year++
	}
	for month < 1 {
		month += 12
		year--
	}

	if day < 1 || day > daysInMonth(year, time.Month(month)) {
		day = 1
	}

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the following month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// NextSequence scans dir for files named <prefix>-<digits> (any
// extension) and returns max(digits)+1, or 1 if none exist. Gaps are
// tolerated and never reused.
func NextSequence(dir, prefix string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("scanning %s: %w", dir, err)
	}

	pattern, err := regexp.Compile(`^` + regexp.QuoteMeta(prefix) + `-(\d+)\b`)
	if err != nil {
		return 0, fmt.Errorf("bad prefix %q: %w", prefix, err)
	}

	max := 0
	for _, entry := range entries {
		m := pattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}

	return max + 1, nil
}
