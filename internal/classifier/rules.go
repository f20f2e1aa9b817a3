package classifier

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jfiedler/invoicewatch/internal/model"
)

// Table maps lowercased sender email addresses to their rename rules.
// A table is built fresh from the rule file on every classification run;
// nothing caches it across runs, so edits take effect immediately.
type Table map[string]model.Rule

// BuildTable indexes rules by lowercased sender address. A later rule
// for the same address wins. A rule without a file name prefix gets
// "NoName", matching what earlier tooling produced.
func BuildTable(rules []model.Rule) Table {
	t := make(Table, len(rules))
	for _, r := range rules {
		sender := strings.ToLower(strings.TrimSpace(r.SenderEmail))
		if sender == "" {
			continue
		}
		if r.FileName == "" {
			r.FileName = "NoName"
		}
		t[sender] = r
	}
	return t
}

// ParseTable builds a rule table from raw rule-file contents. Pure with
// respect to the filesystem; LoadTable is the file-reading wrapper.
func ParseTable(data []byte) (Table, error) {
	var rules []model.Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parsing rules: %w", err)
	}
	return BuildTable(rules), nil
}

// LoadTable reads the rule file at path and builds the table. A missing
// file yields an empty table: the classifier degrades to reporting every
// landing file as unrecognized.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Table{}, nil
		}
		return nil, fmt.Errorf("reading rules %s: %w", path, err)
	}
	return ParseTable(data)
}
