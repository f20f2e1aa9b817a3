package mail

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jfiedler/invoicewatch/internal/ledger"
)

// stubFetcher returns canned messages after filtering with the seen
// callback, the way the IMAP client filters search results.
type stubFetcher struct {
	messages []Message
	err      error
}

func (s *stubFetcher) FetchNew(ctx context.Context, seen func(uid string) bool) ([]Message, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []Message
	for _, m := range s.messages {
		if seen(m.UID) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func newTestDownloader(t *testing.T, fetcher Fetcher) (*Downloader, *ledger.Ledger, string) {
	t.Helper()

	dir := t.TempDir()
	l, err := ledger.Open(filepath.Join(dir, "uids.txt"))
	require.NoError(t, err)

	d := NewDownloader(fetcher, l, filepath.Join(dir, "landing"), zap.NewNop())
	d.now = func() time.Time {
		return time.Date(2024, 1, 15, 10, 30, 45, 0, time.UTC)
	}
	return d, l, filepath.Join(dir, "landing")
}

func TestSyncDownloadsAttachments(t *testing.T) {
	fetcher := &stubFetcher{messages: []Message{
		{
			UID:     "55",
			Sender:  "alice@x.com",
			Subject: "Invoice",
			Attachments: []Attachment{
				{Filename: "receipt.pdf", Data: []byte("%PDF")},
			},
		},
	}}

	d, l, dir := newTestDownloader(t, fetcher)

	result, err := d.Sync(context.Background())
	require.NoError(t, err)

	want := "alice@x.com_Invoice_20240115_55_receipt.pdf"
	assert.Equal(t, []string{want}, result.Downloaded)
	assert.Equal(t, 1, result.Processed)
	assert.True(t, l.Contains("55"))

	data, err := os.ReadFile(filepath.Join(dir, want))
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data))
}

func TestSyncMarksAttachmentlessMessages(t *testing.T) {
	fetcher := &stubFetcher{messages: []Message{
		{UID: "60", Sender: "bob@y.com", Subject: "FYI"},
	}}

	d, l, _ := newTestDownloader(t, fetcher)

	result, err := d.Sync(context.Background())
	require.NoError(t, err)

	assert.Empty(t, result.Downloaded)
	assert.Equal(t, 1, result.Processed)
	assert.True(t, l.Contains("60"))
}

func TestSyncSkipsAlreadyProcessedUIDs(t *testing.T) {
	fetcher := &stubFetcher{messages: []Message{
		{UID: "55", Sender: "alice@x.com", Subject: "Invoice",
			Attachments: []Attachment{{Filename: "a.pdf", Data: []byte("x")}}},
	}}

	d, l, _ := newTestDownloader(t, fetcher)
	require.NoError(t, l.MarkProcessed("55"))

	result, err := d.Sync(context.Background())
	require.NoError(t, err)

	assert.Empty(t, result.Downloaded)
	assert.Equal(t, 0, result.Processed)
}

func TestSyncCollisionGetsTimestampSuffix(t *testing.T) {
	fetcher := &stubFetcher{messages: []Message{
		{
			UID:     "55",
			Sender:  "alice@x.com",
			Subject: "Invoice",
			Attachments: []Attachment{
				{Filename: "receipt.pdf", Data: []byte("x")},
			},
		},
	}}

	d, _, dir := newTestDownloader(t, fetcher)

	require.NoError(t, os.MkdirAll(dir, 0o755))
	base := "alice@x.com_Invoice_20240115_55_receipt.pdf"
	require.NoError(t, os.WriteFile(filepath.Join(dir, base), []byte("old"), 0o644))

	result, err := d.Sync(context.Background())
	require.NoError(t, err)

	want := "alice@x.com_Invoice_20240115_55_receipt_20240115103045.pdf"
	assert.Equal(t, []string{want}, result.Downloaded)
	assert.FileExists(t, filepath.Join(dir, want))

	// The original file is untouched.
	data, err := os.ReadFile(filepath.Join(dir, base))
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestSyncNamelessAttachmentIsSkipped(t *testing.T) {
	fetcher := &stubFetcher{messages: []Message{
		{
			UID:     "70",
			Sender:  "alice@x.com",
			Subject: "Invoice",
			Attachments: []Attachment{
				{Filename: "", Data: []byte("x")},
				{Filename: "good.pdf", Data: []byte("y")},
			},
		},
	}}

	d, l, _ := newTestDownloader(t, fetcher)

	result, err := d.Sync(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Downloaded, 1)
	assert.Contains(t, result.Downloaded[0], "good.pdf")
	assert.True(t, l.Contains("70"))
}

func TestSyncFetchErrorPropagates(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("connection reset")}

	d, l, _ := newTestDownloader(t, fetcher)

	_, err := d.Sync(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, l.Count())
}
