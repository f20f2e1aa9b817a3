package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Rule maps a sender email address to a file-naming and foldering policy.
// The on-disk rule file is a JSON array of these objects so that edits
// made by hand or by older tooling remain compatible.
type Rule struct {
	// SenderEmail identifies the sender this rule applies to. Matching
	// is case-insensitive; at most one rule per address is honored.
	SenderEmail string `json:"sender_email"`

	// FolderName, when non-empty, adds a subfolder below the dated
	// archive folder.
	FolderName string `json:"folder_name"`

	// FileName is the archive filename prefix ("Alice" yields
	// Alice-1.pdf, Alice-2.pdf, ...).
	FileName string `json:"file_name"`

	// MonthOffset and DayOffset shift the archive date relative to the
	// day the classifier runs.
	MonthOffset int `json:"month_offset"`
	DayOffset   int `json:"day_offset"`
}

// LoadRules reads the rule file at path. A missing file yields an empty
// slice, not an error; the classifier then reports every landing file as
// unrecognized.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading rules %s: %w", path, err)
	}

	var rules []Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parsing rules %s: %w", path, err)
	}
	return rules, nil
}

// SaveRules writes the rule list to path as indented JSON, creating
// parent directories if needed.
func SaveRules(path string, rules []Rule) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating rules directory: %w", err)
	}

	data, err := json.MarshalIndent(rules, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding rules: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing rules %s: %w", path, err)
	}
	return nil
}

// LoadIgnorePatterns reads the ignore-pattern file at path: a JSON array
// of filename patterns maintained by the UI. A missing file yields an
// empty slice.
func LoadIgnorePatterns(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading ignore patterns %s: %w", path, err)
	}

	var patterns []string
	if err := json.Unmarshal(data, &patterns); err != nil {
		return nil, fmt.Errorf("parsing ignore patterns %s: %w", path, err)
	}
	return patterns, nil
}

// SaveIgnorePatterns writes the ignore-pattern list to path as indented
// JSON, creating parent directories if needed.
func SaveIgnorePatterns(path string, patterns []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating ignore directory: %w", err)
	}

	data, err := json.MarshalIndent(patterns, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding ignore patterns: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing ignore patterns %s: %w", path, err)
	}
	return nil
}
