package mail

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/jfiedler/invoicewatch/internal/landing"
	"github.com/jfiedler/invoicewatch/internal/ledger"
)

// SyncResult summarizes one successful mailbox synchronization.
type SyncResult struct {
	// Downloaded lists the landing filenames written during this sync.
	Downloaded []string

	// Processed is the number of message UIDs newly recorded in the
	// ledger, including messages that carried no attachments.
	Processed int
}

// Fetcher is the mailbox access needed by the Downloader. Satisfied by
// *Client; tests substitute a stub.
type Fetcher interface {
	FetchNew(ctx context.Context, seen func(uid string) bool) ([]Message, error)
}

// Downloader performs one mailbox synchronization per call: every
// unprocessed message with attachments has them written to the landing
// directory, then its UID is recorded in the ledger.
type Downloader struct {
	client Fetcher
	ledger *ledger.Ledger
	dir    string
	log    *zap.Logger

	// now is the clock used for landing filenames; replaceable in tests.
	now func() time.Time
}

// NewDownloader creates a Downloader writing into dir.
func NewDownloader(client Fetcher, l *ledger.Ledger, dir string, log *zap.Logger) *Downloader {
	return &Downloader{
		client: client,
		ledger: l,
		dir:    dir,
		log:    log,
		now:    time.Now,
	}
}

// Sync fetches unprocessed messages and persists their attachments.
// A session-level error fails the whole call; UIDs already recorded
// before the error stay recorded. Per-attachment write failures are
// logged and skipped, and the message is still marked processed once
// its attachment loop finishes.
func (d *Downloader) Sync(ctx context.Context) (SyncResult, error) {
	var result SyncResult

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return result, fmt.Errorf("creating download dir: %w", err)
	}

	messages, err := d.client.FetchNew(ctx, d.ledger.Contains)
	if err != nil {
		return result, err
	}

	for _, msg := range messages {
		if len(msg.Attachments) == 0 {
			d.log.Info("no attachments, marking processed", zap.String("uid", msg.UID))
			d.markProcessed(msg.UID, &result)
			continue
		}

		d.log.Info("processing message",
			zap.String("uid", msg.UID),
			zap.String("subject", msg.Subject),
			zap.Int("attachments", len(msg.Attachments)),
		)

		for _, att := range msg.Attachments {
			name, err := d.saveAttachment(msg, att)
			if err != nil {
				d.log.Error("failed saving attachment",
					zap.String("uid", msg.UID),
					zap.String("filename", att.Filename),
					zap.Error(err),
				)
				continue
			}
			if name == "" {
				continue
			}
			result.Downloaded = append(result.Downloaded, name)
		}

		d.markProcessed(msg.UID, &result)
	}

	return result, nil
}

// saveAttachment writes one attachment into the landing directory and
// returns the filename used. A nameless attachment is skipped with an
// empty return.
func (d *Downloader) saveAttachment(msg Message, att Attachment) (string, error) {
	original := landing.Sanitize(att.Filename)
	if original == "" {
		d.log.Warn("attachment with no filename, skipping", zap.String("uid", msg.UID))
		return "", nil
	}

	now := d.now()
	name := landing.FileName(msg.Sender, msg.Subject, now, msg.UID, original)
	path := filepath.Join(d.dir, name)

	if _, err := os.Stat(path); err == nil {
		name = landing.WithTimestamp(name, now)
		path = filepath.Join(d.dir, name)
	}

	if err := os.WriteFile(path, att.Data, 0o644); err != nil {
		return "", err
	}

	d.log.Info("downloaded attachment", zap.String("file", name))
	return name, nil
}

func (d *Downloader) markProcessed(uid string, result *SyncResult) {
	if err := d.ledger.MarkProcessed(uid); err != nil {
		d.log.Error("failed recording uid in ledger", zap.String("uid", uid), zap.Error(err))
		return
	}
	result.Processed++
}
