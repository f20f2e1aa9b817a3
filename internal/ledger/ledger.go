// Package ledger tracks which mailbox message UIDs have already been
// downloaded. UIDs are persisted to an append-only newline-delimited
// file so they survive restarts; once recorded, a UID is never
// reprocessed.
package ledger

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Ledger is the durable set of processed message UIDs.
type Ledger struct {
	mu   sync.Mutex
	uids map[string]struct{}
	file string
}

// Open loads (or creates) a ledger backed by filePath. The full file is
// read into memory; lines that are not purely numeric are skipped, since
// IMAP UIDs are decimal strings and anything else is line noise.
func Open(filePath string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}

	l := &Ledger{
		uids: make(map[string]struct{}),
		file: filePath,
	}

	f, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, fmt.Errorf("open ledger file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if isNumeric(line) {
			l.uids[line] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ledger file: %w", err)
	}

	return l, nil
}

// Contains reports whether uid has already been processed.
func (l *Ledger) Contains(uid string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.uids[uid]
	return ok
}

// MarkProcessed records uid and appends it to the backing file.
func (l *Ledger) MarkProcessed(uid string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.uids[uid]; exists {
		return nil
	}

	f, err := os.OpenFile(l.file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger file for append: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, uid); err != nil {
		return fmt.Errorf("write ledger uid: %w", err)
	}

	l.uids[uid] = struct{}{}
	return nil
}

// Count returns the number of recorded UIDs.
func (l *Ledger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.uids)
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
