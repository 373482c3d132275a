package extract

import (
	"regexp"
	"sort"
	"strings"
)

var emailPattern = regexp.MustCompile(`(?i)([A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,})`)

// AllEmails returns every distinct email address in the text, lowercased
// and sorted. mailto: prefixes and angle brackets are ignored.
func AllEmails(text string) []string {
	text = strings.NewReplacer("mailto:", " ", "<", " ", ">", " ").Replace(text)

	seen := make(map[string]bool)
	var out []string
	for _, m := range emailPattern.FindAllString(text, -1) {
		m = strings.ToLower(m)
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out
}

// contactSalesMarkers flag a triggering-activity text as containing a
// contact-sales form submission.
var contactSalesMarkers = []string{
	"contact_sales_forms", "contact sales forms",
	"contact_sales_form", "contact sales form",
	"contactsalesforms", "contactsalesform",
}

// HasContactSalesForm reports "Yes" or "No" for a triggering-activity text.
func HasContactSalesForm(activities string) string {
	lower := strings.ToLower(activities)
	for _, marker := range contactSalesMarkers {
		if strings.Contains(lower, marker) {
			return "Yes"
		}
	}
	return "No"
}
