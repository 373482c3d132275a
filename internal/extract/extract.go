package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var (
	urlPattern       = regexp.MustCompile(`(?i)https?://[^\s"'>]+`)
	clickHerePattern = regexp.MustCompile(`(?i)click\s+(here|on\s+this\s+link)`)
)

// Message is the raw input to extraction, as delivered by the mail store.
type Message struct {
	ID         string
	Subject    string
	Sender     string
	ReceivedAt time.Time
	Body       string
	HTMLBody   string
}

// Extract parses a message into a LeadRecord. The HTML body is parsed
// first when present; plain-text values override HTML ones for the same
// field. Extraction never fails: unparseable sections yield no fields.
func Extract(msg Message) *LeadRecord {
	fields := make(map[string]string)
	if msg.HTMLBody != "" {
		parseHTML(msg.HTMLBody, fields)
	}
	parseText(msg.Body, fields)

	rec := &LeadRecord{
		ID:         msg.ID,
		Subject:    msg.Subject,
		Sender:     msg.Sender,
		ReceivedAt: msg.ReceivedAt,
		Fields:     fields,
	}
	rec.Set(FieldSubject, msg.Subject)
	rec.Set(FieldSender, msg.Sender)
	rec.Set(FieldReceivedTime, formatTime(msg.ReceivedAt))
	rec.Set(FieldAllEmailsFound, strings.Join(AllEmails(msg.Body), "; "))

	for _, f := range Fields {
		if _, ok := fields[f]; !ok {
			fields[f] = ""
		}
	}
	rec.Set(FieldHasContactSalesForm, HasContactSalesForm(rec.Get(FieldActivities)))
	return rec
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

// parseHTML walks every table row for label/value pairs and every anchor
// for qualification and profiler links.
func parseHTML(html string, fields map[string]string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return
	}

	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td, th")
		if cells.Length() < 2 {
			return
		}
		label := NormalizeLabel(cellText(cells.Eq(0)))
		if label == "" {
			return
		}
		valueCell := cells.Eq(1)
		value := cellText(valueCell)

		if href, ok := valueCell.Find("a").Attr("href"); ok && href != "" {
			lower := strings.ToLower(label)
			if strings.Contains(lower, "link") || strings.Contains(lower, "url") {
				fields[label] = UnwrapURL(href)
				return
			}
		}
		if value != "" {
			fields[label] = CleanValue(value)
		}
	})

	doc.Find("a").Each(func(_ int, anchor *goquery.Selection) {
		href, ok := anchor.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			return
		}
		text := strings.ToLower(strings.TrimSpace(anchor.Text()))
		switch {
		case strings.Contains(text, "click here"),
			strings.Contains(text, "qualify"),
			strings.Contains(text, "qualification"):
			fields[FieldValidationLink] = UnwrapURL(href)
		case strings.Contains(text, "profiler"):
			fields[FieldProfiler] = UnwrapURL(href)
		}
	})
}

func cellText(s *goquery.Selection) string {
	var b strings.Builder
	s.Contents().Each(func(_ int, n *goquery.Selection) {
		if goquery.NodeName(n) == "br" {
			b.WriteByte('\n')
			return
		}
		b.WriteString(n.Text())
	})
	return strings.TrimSpace(b.String())
}

// parseText scans the plain-text body line by line: a line matching a
// catalogue label opens a field, following lines accumulate as its value
// until the next label or the copyright footer.
func parseText(body string, fields map[string]string) {
	lines := strings.Split(body, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}

	currentField := ""
	var buffer []string
	flush := func() {
		if currentField != "" && len(buffer) > 0 {
			fields[currentField] = CleanValue(strings.TrimSpace(strings.Join(buffer, "\n")))
		}
		buffer = nil
	}

	for _, line := range lines {
		if strings.HasPrefix(line, "Copyright") {
			break
		}
		if normalized := NormalizeLabel(line); IsKnownField(normalized) {
			flush()
			currentField = normalized
			continue
		}
		if currentField != "" {
			buffer = append(buffer, line)
		}
	}
	flush()

	splitMatchingStatus(fields)

	if fields[FieldValidationLink] == "" {
		findValidationLink(lines, fields)
	}
}

// splitMatchingStatus repairs a validation-link value that swallowed the
// neighboring matching-status line in the plain-text layout.
func splitMatchingStatus(fields map[string]string) {
	value, ok := fields[FieldValidationLink]
	if !ok || !strings.Contains(value, FieldMatchingStatus) {
		return
	}
	parts := strings.Split(value, "\n")
	fields[FieldValidationLink] = strings.TrimSpace(parts[0])
	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		if p != "" && !strings.Contains(p, FieldMatchingStatus) {
			fields[FieldMatchingStatus] = p
			return
		}
	}
}

// findValidationLink locates a "click here" style line and takes the
// first URL within the following lines.
func findValidationLink(lines []string, fields map[string]string) {
	for i, line := range lines {
		if !clickHerePattern.MatchString(line) {
			continue
		}
		end := i + 5
		if end > len(lines) {
			end = len(lines)
		}
		window := strings.Join(lines[i:end], "\n")
		if url := urlPattern.FindString(window); url != "" {
			fields[FieldValidationLink] = UnwrapURL(url)
			return
		}
	}
}
