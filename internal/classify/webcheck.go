package classify

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// academicPageWords are counted in a homepage's title, headings, and lead
// paragraphs to decide whether a domain is academic.
var academicPageWords = []string{
	"university", "faculty", "campus", "bachelor", "master", "phd",
	"research", "students", "academic", "institute",
}

// webCheckMinHits is how many distinct academic words a page must carry.
const webCheckMinHits = 3

// HTTPWebChecker fetches a domain's homepage and scans it for academic
// vocabulary. Verdicts are cached per domain for the process lifetime,
// including negative ones from failed fetches.
type HTTPWebChecker struct {
	client *http.Client

	mu    sync.Mutex
	cache map[string]bool
}

// NewHTTPWebChecker builds a checker with the given request timeout.
func NewHTTPWebChecker(timeout time.Duration) *HTTPWebChecker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPWebChecker{
		client: &http.Client{Timeout: timeout},
		cache:  make(map[string]bool),
	}
}

// LooksAcademic fetches https://<domain> and counts academic vocabulary in
// the title, headings, and first paragraphs.
func (c *HTTPWebChecker) LooksAcademic(domain string) (bool, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return false, nil
	}

	c.mu.Lock()
	cached, ok := c.cache[domain]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	academic, err := c.fetch(domain)
	if err != nil {
		// A domain that cannot be fetched is treated as no evidence
		// and not retried this run.
		academic = false
	}

	c.mu.Lock()
	c.cache[domain] = academic
	c.mu.Unlock()
	return academic, err
}

func (c *HTTPWebChecker) fetch(domain string) (bool, error) {
	resp, err := c.client.Get("https://" + domain)
	if err != nil {
		return false, fmt.Errorf("fetching homepage of %s: %w", domain, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("homepage of %s returned status %d", domain, resp.StatusCode)
	}

	academic, err := scanAcademicPage(resp.Body)
	if err != nil {
		return false, fmt.Errorf("parsing homepage of %s: %w", domain, err)
	}
	return academic, nil
}

// scanAcademicPage reads an HTML page and reports whether its title,
// headings, and first paragraphs carry enough academic vocabulary.
func scanAcademicPage(r io.Reader) (bool, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return false, err
	}

	var text strings.Builder
	doc.Find("title, h1, h2, h3").Each(func(_ int, s *goquery.Selection) {
		text.WriteString(strings.ToLower(s.Text()))
		text.WriteByte(' ')
	})
	doc.Find("p").EachWithBreak(func(i int, s *goquery.Selection) bool {
		text.WriteString(strings.ToLower(s.Text()))
		text.WriteByte(' ')
		return i < 4
	})

	page := text.String()
	hits := 0
	for _, w := range academicPageWords {
		if strings.Contains(page, w) {
			hits++
		}
	}
	return hits >= webCheckMinHits, nil
}
