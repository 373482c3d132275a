// Package mailbox reads lead notification emails over IMAP and replays
// folder moves decided in the workflow reports.
package mailbox

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"

	"github.com/leadsieve/leadsieve/internal/config"
	"github.com/leadsieve/leadsieve/internal/extract"
)

const fetchBatchSize = 50

// moveTimeTolerance is how far a stored received timestamp may drift from
// the mailbox copy before falling back to date-only matching.
const moveTimeTolerance = 300 * time.Second

// Client handles the IMAP connection to the lead inbox
type Client struct {
	config config.InboxConfig
	conn   *imapclient.Client

	folderCache map[string]string
}

// NewClient creates a mailbox client from inbox settings
func NewClient(cfg config.InboxConfig) *Client {
	return &Client{
		config:      cfg,
		folderCache: make(map[string]string),
	}
}

// Connect establishes the IMAP connection
func (c *Client) Connect(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", c.config.Server, c.config.Port)

	log.Printf("Connecting to IMAP server %s...", addr)

	conn, err := imapclient.DialTLS(addr, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to IMAP server: %w", err)
	}

	log.Printf("Connected, logging in as %s...", c.config.Email)

	if err := conn.Login(c.config.Email, c.config.Password); err != nil {
		conn.Logout()
		return fmt.Errorf("failed to login: %w", err)
	}

	c.conn = conn
	log.Printf("Login successful")
	return nil
}

// Disconnect closes the IMAP connection
func (c *Client) Disconnect() error {
	if c.conn != nil {
		return c.conn.Logout()
	}
	return nil
}

// FetchLeads fetches messages in the date window whose subject contains
// one of the filters. An empty filter list fetches everything in range.
func (c *Client) FetchLeads(ctx context.Context, since, before time.Time, subjectFilters []string) ([]extract.Message, error) {
	if c.conn == nil {
		return nil, fmt.Errorf("not connected to IMAP server")
	}

	mbox, err := c.conn.Select(c.config.Folder, false)
	if err != nil {
		return nil, fmt.Errorf("failed to select mailbox %s: %w", c.config.Folder, err)
	}

	log.Printf("Mailbox %s has %d messages", c.config.Folder, mbox.Messages)
	if mbox.Messages == 0 {
		return nil, nil
	}

	criteria := imap.NewSearchCriteria()
	criteria.Since = since
	if !before.IsZero() {
		criteria.Before = before
	}

	uids, err := c.conn.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search emails: %w", err)
	}

	log.Printf("Found %d emails since %s", len(uids), since.Format("2006-01-02"))
	if len(uids) == 0 {
		return nil, nil
	}

	messages, err := c.fetchByUID(uids)
	if err != nil {
		return nil, err
	}
	messages = dedupeByID(messages)

	if len(subjectFilters) == 0 {
		return messages, nil
	}
	var matched []extract.Message
	for _, msg := range messages {
		if subjectMatches(msg.Subject, subjectFilters) {
			matched = append(matched, msg)
		}
	}
	log.Printf("Kept %d lead emails (out of %d in range)", len(matched), len(messages))
	return matched, nil
}

// dedupeByID drops later copies of a notification that share a
// Message-ID, keeping first-seen order. Messages without an ID are kept
// as-is.
func dedupeByID(messages []extract.Message) []extract.Message {
	seen := make(map[string]bool, len(messages))
	out := messages[:0]
	for _, msg := range messages {
		if msg.ID != "" {
			if seen[msg.ID] {
				continue
			}
			seen[msg.ID] = true
		}
		out = append(out, msg)
	}
	return out
}

func subjectMatches(subject string, filters []string) bool {
	lower := strings.ToLower(subject)
	for _, f := range filters {
		if strings.Contains(lower, strings.ToLower(f)) {
			return true
		}
	}
	return false
}

// fetchByUID fetches full messages in batches with Peek so the unread
// flags survive.
func (c *Client) fetchByUID(uids []uint32) ([]extract.Message, error) {
	var out []extract.Message
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, section.FetchItem()}

	for i := 0; i < len(uids); i += fetchBatchSize {
		end := i + fetchBatchSize
		if end > len(uids) {
			end = len(uids)
		}

		seqSet := new(imap.SeqSet)
		seqSet.AddNum(uids[i:end]...)

		messages := make(chan *imap.Message, fetchBatchSize)
		done := make(chan error, 1)
		go func() {
			done <- c.conn.UidFetch(seqSet, items, messages)
		}()

		for msg := range messages {
			parsed, err := parseMessage(msg, section)
			if err != nil {
				log.Printf("Warning: failed to parse message: %v", err)
				continue
			}
			if parsed != nil {
				out = append(out, *parsed)
			}
		}

		if err := <-done; err != nil {
			return nil, fmt.Errorf("failed to fetch messages: %w", err)
		}
	}
	return out, nil
}

// parseMessage converts an IMAP message into the extractor's input
func parseMessage(msg *imap.Message, section *imap.BodySectionName) (*extract.Message, error) {
	if msg == nil || msg.Envelope == nil {
		return nil, nil
	}

	out := &extract.Message{
		ID:         msg.Envelope.MessageId,
		Subject:    msg.Envelope.Subject,
		ReceivedAt: msg.Envelope.Date,
	}
	if out.ID == "" {
		out.ID = fmt.Sprintf("uid-%d", msg.Uid)
	}
	if len(msg.Envelope.From) > 0 {
		out.Sender = msg.Envelope.From[0].Address()
	}

	r := msg.GetBody(section)
	if r == nil {
		return out, nil
	}

	mr, err := mail.CreateReader(r)
	if err != nil {
		return out, nil // Keep envelope data on parse error
	}

	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		switch h := p.Header.(type) {
		case *mail.InlineHeader:
			ct, _, _ := h.ContentType()
			body, _ := io.ReadAll(p.Body)

			if strings.HasPrefix(ct, "text/plain") && out.Body == "" {
				out.Body = string(body)
			} else if strings.HasPrefix(ct, "text/html") && out.HTMLBody == "" {
				out.HTMLBody = string(body)
			}
		}
	}

	return out, nil
}

// EnsureFolderExists creates a folder if it doesn't already exist
func (c *Client) EnsureFolderExists(name string) error {
	if c.conn == nil {
		return fmt.Errorf("not connected to IMAP server")
	}

	mailboxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.conn.List("", "*", mailboxes)
	}()

	exists := false
	for mbox := range mailboxes {
		if strings.EqualFold(mbox.Name, name) {
			exists = true
		}
	}

	if err := <-done; err != nil {
		return fmt.Errorf("failed to list folders: %w", err)
	}

	if exists {
		return nil
	}
	if err := c.conn.Create(name); err != nil {
		return fmt.Errorf("failed to create folder '%s': %w", name, err)
	}

	log.Printf("Created folder '%s'", name)
	return nil
}

// MoveToFolder moves a single email to the folder by UID, falling back to
// COPY+DELETE when MOVE is unsupported.
func (c *Client) MoveToFolder(uid uint32, folder string) error {
	if c.conn == nil {
		return fmt.Errorf("not connected to IMAP server")
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	if err := c.conn.UidMove(seqSet, folder); err != nil {
		if err := c.conn.UidCopy(seqSet, folder); err != nil {
			return fmt.Errorf("failed to copy email to '%s': %w", folder, err)
		}

		item := imap.FormatFlagsOp(imap.AddFlags, true)
		flags := []interface{}{imap.DeletedFlag}
		if err := c.conn.UidStore(seqSet, item, flags, nil); err != nil {
			return fmt.Errorf("failed to mark email as deleted: %w", err)
		}
		if err := c.conn.Expunge(nil); err != nil {
			return fmt.Errorf("failed to expunge deleted email: %w", err)
		}
	}
	return nil
}
