// Package mail implements the IMAP side of the invoice watcher:
// connecting to the mailbox, fetching messages that have not been
// processed yet, and decoding their attachments.
package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strconv"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	gomail "github.com/emersion/go-message/mail"
)

// Attachment is one decoded message attachment.
type Attachment struct {
	Filename string
	Data     []byte
}

// Message is a fetched mailbox message reduced to what the downloader
// needs: identity, labeling, and attachment payloads.
type Message struct {
	UID         string
	Sender      string
	Subject     string
	Attachments []Attachment
}

// Client holds the connection settings for the watched mailbox. Each
// fetch opens and closes its own session; no connection is held between
// ticks.
type Client struct {
	host     string
	port     int
	folder   string
	username string
	password string
	useTLS   bool
}

// NewClient creates a mailbox client configuration.
func NewClient(host string, port int, folder, username, password string, useTLS bool) *Client {
	if folder == "" {
		folder = "INBOX"
	}
	return &Client{
		host:     host,
		port:     port,
		folder:   folder,
		username: username,
		password: password,
		useTLS:   useTLS,
	}
}

// connect establishes a connection to the IMAP server and authenticates.
// The caller is responsible for calling Logout on the returned client.
func (c *Client) connect(_ context.Context) (*imapclient.Client, error) {
	addr := net.JoinHostPort(c.host, strconv.Itoa(c.port))

	var client *imapclient.Client
	var err error

	if c.useTLS {
		client, err = imapclient.DialTLS(addr, &imapclient.Options{
			TLSConfig: &tls.Config{ServerName: c.host},
		})
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(c.username, c.password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("authenticating %s: %w", c.username, err)
	}

	return client, nil
}

// FetchNew opens a mailbox session, lists every message in the
// configured folder, and returns full messages for the UIDs that seen
// reports as unprocessed. Any session-level error fails the whole fetch;
// the connection is closed on every exit path.
func (c *Client) FetchNew(ctx context.Context, seen func(uid string) bool) ([]Message, error) {
	client, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select(c.folder, nil).Wait(); err != nil {
		return nil, fmt.Errorf("selecting folder %s: %w", c.folder, err)
	}

	// All messages, read or unread; dedup is the ledger's job.
	searchData, err := client.UIDSearch(&imap.SearchCriteria{}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching folder %s: %w", c.folder, err)
	}

	var unseen []imap.UID
	for _, uid := range searchData.AllUIDs() {
		if !seen(strconv.FormatUint(uint64(uid), 10)) {
			unseen = append(unseen, uid)
		}
	}
	if len(unseen) == 0 {
		return nil, nil
	}

	uidSet := imap.UIDSetNum(unseen...)
	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchOpts := &imap.FetchOptions{
		Envelope:    true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	fetchCmd := client.Fetch(uidSet, fetchOpts)
	buffers, err := fetchCmd.Collect()
	if err != nil {
		return nil, fmt.Errorf("fetching messages: %w", err)
	}

	messages := make([]Message, 0, len(buffers))
	for _, buf := range buffers {
		msg := Message{
			UID: strconv.FormatUint(uint64(buf.UID), 10),
		}

		if buf.Envelope != nil {
			msg.Subject = buf.Envelope.Subject
			if len(buf.Envelope.From) > 0 {
				msg.Sender = buf.Envelope.From[0].Addr()
			}
		}

		if raw := buf.FindBodySection(bodySection); len(raw) > 0 {
			msg.Attachments = parseAttachments(raw)
		}

		messages = append(messages, msg)
	}

	return messages, nil
}

// parseAttachments decodes a raw RFC 2822 body with go-message and
// collects the attachment parts. Inline parts (the message text) are
// skipped; a body that fails to parse yields no attachments.
func parseAttachments(raw []byte) []Attachment {
	mr, err := gomail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil
	}
	defer mr.Close()

	var attachments []Attachment
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		h, ok := part.Header.(*gomail.AttachmentHeader)
		if !ok {
			continue
		}

		filename, _ := h.Filename()
		data, readErr := io.ReadAll(part.Body)
		if readErr != nil {
			continue
		}

		attachments = append(attachments, Attachment{
			Filename: filename,
			Data:     data,
		})
	}

	return attachments
}
