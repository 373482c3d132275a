package classify

import (
	"regexp"
	"strings"

	"github.com/leadsieve/leadsieve/internal/textnorm"
)

// MaxCandidateLen caps every generated search term to the CRM field width.
const MaxCandidateLen = 40

// maxPrefixWords bounds the word-prefix variants generated per company.
const maxPrefixWords = 5

var bracketChars = regexp.MustCompile(`[()\[\]{}]`)

// Candidates generates CRM search terms for a company name, from most to
// least specific: the cleaned full name first, then shrinking word
// prefixes. The result is deduplicated and every term fits MaxCandidateLen.
func Candidates(company string) []string {
	cleaned := CleanCompanyName(company)
	if cleaned == "" {
		return nil
	}

	words := strings.Fields(cleaned)
	var out []string
	seen := make(map[string]bool)
	emit := func(term string) {
		term = strings.TrimSpace(truncate(term, MaxCandidateLen))
		if term == "" || seen[term] {
			return
		}
		seen[term] = true
		out = append(out, term)
	}

	emit(cleaned)
	n := len(words)
	if n > maxPrefixWords {
		n = maxPrefixWords
	}
	for ; n >= 1; n-- {
		emit(strings.Join(words[:n], " "))
	}
	return out
}

// CleanCompanyName strips brackets, turns commas and dots into spaces,
// and drops corporate suffix tokens while keeping the original casing.
func CleanCompanyName(company string) string {
	company = bracketChars.ReplaceAllString(company, " ")
	company = strings.NewReplacer(",", " ", ".", " ").Replace(company)

	words := strings.Fields(company)
	kept := words[:0]
	for _, w := range words {
		if textnorm.StripCorporateSuffixes(w) == "" {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
