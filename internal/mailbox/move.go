package mailbox

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/emersion/go-imap"
)

// folderAliases lists alternative mailbox names per canonical report
// folder, searched after the exact name.
var folderAliases = map[string][]string{
	"ebv/avnet":                   {"ebv", "avnet", "ebv/avnet"},
	"non-ebv leads":               {"non ebv", "non-ebv", "non ebv leads"},
	"other distribution partners": {"other distribution", "other dist"},
	"rejected marketing":          {"rejected", "rejected marketing"},
}

// MoveResult tallies one folder-move replay run.
type MoveResult struct {
	Moved          int
	Failed         int
	Skipped        int
	FolderNotFound int
}

// MoveRequest identifies one message to move and where to.
type MoveRequest struct {
	Subject    string
	ReceivedAt time.Time
	Folder     string
}

// NormalizeSubject lowercases a subject and strips reply/forward prefixes
// so report rows match the mailbox copies.
func NormalizeSubject(subject string) string {
	s := strings.ToLower(strings.TrimSpace(subject))
	for changed := true; changed; {
		changed = false
		for _, prefix := range []string{"re:", "fw:", "fwd:"} {
			if strings.HasPrefix(s, prefix) {
				s = strings.TrimSpace(strings.TrimPrefix(s, prefix))
				changed = true
			}
		}
	}
	return s
}

// sameMessage reports whether a mailbox envelope matches a report row,
// by normalized subject and received time within the tolerance. A zero
// wanted time, or one that only drifted across a timezone, falls back to
// date-only comparison.
func sameMessage(subject string, received time.Time, want MoveRequest) bool {
	if NormalizeSubject(subject) != NormalizeSubject(want.Subject) {
		return false
	}
	if want.ReceivedAt.IsZero() {
		return true
	}
	diff := received.Sub(want.ReceivedAt)
	if diff < 0 {
		diff = -diff
	}
	if diff <= moveTimeTolerance {
		return true
	}
	y1, m1, d1 := received.UTC().Date()
	y2, m2, d2 := want.ReceivedAt.UTC().Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// ResolveFolder finds the actual mailbox folder for a report folder name,
// trying the exact name first and then its aliases. Matches are cached.
func (c *Client) ResolveFolder(name string) (string, error) {
	if c.conn == nil {
		return "", fmt.Errorf("not connected to IMAP server")
	}
	key := strings.ToLower(strings.TrimSpace(name))
	if cached, ok := c.folderCache[key]; ok {
		return cached, nil
	}

	mailboxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.conn.List("", "*", mailboxes)
	}()

	var available []string
	for mbox := range mailboxes {
		available = append(available, mbox.Name)
	}
	if err := <-done; err != nil {
		return "", fmt.Errorf("failed to list folders: %w", err)
	}

	candidates := append([]string{name}, folderAliases[key]...)
	for _, candidate := range candidates {
		for _, folder := range available {
			// Match against the full name and its last path segment.
			leaf := folder
			if i := strings.LastIndexAny(folder, "/."); i >= 0 {
				leaf = folder[i+1:]
			}
			if strings.EqualFold(folder, candidate) || strings.EqualFold(leaf, candidate) {
				c.folderCache[key] = folder
				return folder, nil
			}
		}
	}
	return "", fmt.Errorf("folder %q not found", name)
}

// FindLeadUID locates a message in the configured folder by subject and
// received time.
func (c *Client) FindLeadUID(want MoveRequest) (uint32, error) {
	if c.conn == nil {
		return 0, fmt.Errorf("not connected to IMAP server")
	}
	if _, err := c.conn.Select(c.config.Folder, false); err != nil {
		return 0, fmt.Errorf("failed to select mailbox %s: %w", c.config.Folder, err)
	}

	criteria := imap.NewSearchCriteria()
	if !want.ReceivedAt.IsZero() {
		criteria.Since = want.ReceivedAt.AddDate(0, 0, -1)
		criteria.Before = want.ReceivedAt.AddDate(0, 0, 2)
	}

	uids, err := c.conn.UidSearch(criteria)
	if err != nil {
		return 0, fmt.Errorf("failed to search emails: %w", err)
	}
	if len(uids) == 0 {
		return 0, nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- c.conn.UidFetch(seqSet, []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid}, messages)
	}()

	var found uint32
	for msg := range messages {
		if msg == nil || msg.Envelope == nil {
			continue
		}
		if found == 0 && sameMessage(msg.Envelope.Subject, msg.Envelope.Date, want) {
			found = msg.Uid
		}
	}
	if err := <-done; err != nil {
		return 0, fmt.Errorf("failed to fetch messages: %w", err)
	}
	return found, nil
}

// MoveLeads replays folder moves. The callback receives the per-request
// outcome string ("Moved", "Failed: …", "Not found", "Folder not found")
// for writing back into history.
func (c *Client) MoveLeads(requests []MoveRequest, outcome func(i int, status string)) MoveResult {
	var result MoveResult
	for i, req := range requests {
		if req.Folder == "" {
			result.Skipped++
			continue
		}

		folder, err := c.ResolveFolder(req.Folder)
		if err != nil {
			log.Printf("Folder %q not found for %q", req.Folder, req.Subject)
			result.FolderNotFound++
			outcome(i, "Folder not found")
			continue
		}

		uid, err := c.FindLeadUID(req)
		if err != nil {
			log.Printf("Lookup failed for %q: %v", req.Subject, err)
			result.Failed++
			outcome(i, fmt.Sprintf("Failed: %v", err))
			continue
		}
		if uid == 0 {
			log.Printf("No message found for %q", req.Subject)
			result.Skipped++
			outcome(i, "Not found")
			continue
		}

		if err := c.MoveToFolder(uid, folder); err != nil {
			log.Printf("Move failed for %q: %v", req.Subject, err)
			result.Failed++
			outcome(i, fmt.Sprintf("Failed: %v", err))
			continue
		}
		result.Moved++
		outcome(i, "Moved")
	}
	return result
}
