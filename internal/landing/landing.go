// Package landing defines the naming scheme for files in the landing
// directory, shared by the mail downloader (which writes them) and the
// invoice classifier (which consumes them).
//
// Landing filenames have the form
//
//	<senderEmail>_<subject>_<yyyymmdd>_<uid>_<originalName>
//
// so that the classifier can recover the sender address without any
// side channel.
package landing

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// invalidChars are characters not allowed in filenames on Windows,
// the most restrictive target filesystem.
var invalidChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// senderPattern extracts a leading email address terminated by an
// underscore from a landing filename.
var senderPattern = regexp.MustCompile(`^([a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+)_`)

// Sanitize replaces filesystem-hostile characters with underscores and
// trims surrounding whitespace.
func Sanitize(name string) string {
	return strings.TrimSpace(invalidChars.ReplaceAllString(name, "_"))
}

// FileName builds the landing filename for one attachment. Sender,
// subject, and the original attachment name are sanitized; an empty
// subject becomes "No_Subject".
func FileName(sender, subject string, when time.Time, uid, original string) string {
	if subject == "" {
		subject = "No_Subject"
	}
	return fmt.Sprintf("%s_%s_%s_%s_%s",
		Sanitize(sender),
		Sanitize(subject),
		when.Format("20060102"),
		uid,
		Sanitize(original),
	)
}

// WithTimestamp appends a second-granularity timestamp before the
// extension, used to sidestep a name collision in the landing
// directory. Uniqueness is best-effort.
func WithTimestamp(name string, when time.Time) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	return fmt.Sprintf("%s_%s%s", base, when.Format("20060102150405"), ext)
}

// ExtractSender returns the leading email address embedded in a landing
// filename, lowercased, and whether one was found.
func ExtractSender(filename string) (string, bool) {
	m := senderPattern.FindStringSubmatch(filename)
	if m == nil {
		return "", false
	}
	return strings.ToLower(m[1]), true
}
