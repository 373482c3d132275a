// Package crm resolves company names to CRM account names by driving
// the design-registration search UI through headless Chrome.
package crm

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/leadsieve/leadsieve/internal/browser"
	"github.com/leadsieve/leadsieve/internal/classify"
	"github.com/leadsieve/leadsieve/internal/config"
)

const (
	maxFieldLen     = 40
	maxStartsWords  = 3
	pageSettle      = 700 * time.Millisecond
	maxForwardPages = 50
)

// registration is one parsed row of the design-registration result table
type registration struct {
	Date   string `json:"date"`
	Status string `json:"status"`
	SoldTo string `json:"soldTo"`
}

// Lookup searches the CRM for the account behind a lead's company name.
// Results are cached per company, including misses.
type Lookup struct {
	browser *browser.Browser
	cfg     config.CRMConfig

	mu    sync.Mutex
	cache map[string]string
	ready bool
}

// NewLookup wraps an existing browser session
func NewLookup(b *browser.Browser, cfg config.CRMConfig) *Lookup {
	return &Lookup{
		browser: b,
		cfg:     cfg,
		cache:   make(map[string]string),
	}
}

// Account returns the most recently approved sold-to-party name for the
// company, or "" when the CRM has no match. The search tries "contains"
// over progressively shorter name candidates, then falls back to
// "starts with" on the first one to three words.
func (l *Lookup) Account(company string) (string, error) {
	key := strings.TrimSpace(company)
	if key == "" {
		return "", nil
	}

	l.mu.Lock()
	if cached, ok := l.cache[key]; ok {
		l.mu.Unlock()
		return cached, nil
	}
	l.mu.Unlock()

	if err := l.ensureSearchPage(); err != nil {
		return "", err
	}

	account, err := l.search(company)
	if err != nil {
		return "", err
	}

	l.mu.Lock()
	l.cache[key] = account
	l.mu.Unlock()
	return account, nil
}

func (l *Lookup) search(company string) (string, error) {
	for _, cand := range classify.Candidates(company) {
		account, err := l.searchOnce(operatorContains, cand)
		if err != nil {
			return "", err
		}
		if account != "" {
			return account, nil
		}
	}

	// Shorter prefixes with "starts with" catch registrations filed
	// under a truncated account name.
	tokens := strings.Fields(classify.CleanCompanyName(company))
	max := maxStartsWords
	if len(tokens) < max {
		max = len(tokens)
	}
	for n := 1; n <= max; n++ {
		cand := strings.Join(tokens[:n], " ")
		if len(cand) > maxFieldLen {
			cand = cand[:maxFieldLen]
		}
		account, err := l.searchOnce(operatorStartsWith, cand)
		if err != nil {
			return "", err
		}
		if account != "" {
			return account, nil
		}
	}

	return "", nil
}

// searchOnce runs a single search and scans the result pages from the
// end for the most recent approved registration.
func (l *Lookup) searchOnce(op operator, term string) (string, error) {
	if term == "" {
		return "", nil
	}
	if err := l.runSearch(op, term); err != nil {
		return "", fmt.Errorf("crm search %q: %w", term, err)
	}

	rows, err := l.collectLastPages(l.cfg.MaxPagesBck)
	if err != nil {
		return "", fmt.Errorf("crm results %q: %w", term, err)
	}
	return latestApproved(rows), nil
}

// latestApproved picks the sold-to-party of the most recent row whose
// status is Approved. Rows without a parseable date are skipped.
func latestApproved(rows []registration) string {
	var bestDate time.Time
	var bestSold string
	for _, row := range rows {
		if !strings.EqualFold(strings.TrimSpace(row.Status), "approved") {
			continue
		}
		dt, ok := parseRegistrationDate(row.Date)
		if !ok {
			continue
		}
		if bestSold == "" || dt.After(bestDate) {
			bestDate = dt
			bestSold = strings.TrimSpace(row.SoldTo)
		}
	}
	return bestSold
}

var registrationDateFormats = []string{
	"02.01.2006",
	"02/01/2006",
	"02-01-2006",
	"2006-01-02",
}

func parseRegistrationDate(text string) (time.Time, bool) {
	text = strings.TrimSpace(text)
	for _, layout := range registrationDateFormats {
		if dt, err := time.Parse(layout, text); err == nil {
			return dt, true
		}
	}
	return time.Time{}, false
}
