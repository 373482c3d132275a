// Package classify implements lead triage: company-vs-domain validation,
// university detection, CRM candidate name generation, and the status
// pipeline that combines them with the reference lists.
package classify

import (
	"strings"

	"github.com/leadsieve/leadsieve/internal/textnorm"
)

// Similarity scores two strings in [0,1]. Equal strings score 1.0, a
// substring relation scores 0.8, otherwise the score is the fraction of
// positions where the characters agree, over the longer length. Either
// side being empty scores 0.0.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0.0
	}
	if a == b {
		return 1.0
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return 0.8
	}

	max := len(a)
	if len(b) > max {
		max = len(b)
	}
	min := len(a)
	if len(b) < min {
		min = len(b)
	}
	matches := 0
	for i := 0; i < min; i++ {
		if a[i] == b[i] {
			matches++
		}
	}
	return float64(matches) / float64(max)
}

// CompanySimilarity compares a company name against the main label of an
// email domain, with corporate suffixes removed and spacing collapsed.
func CompanySimilarity(company, mainDomain string) float64 {
	a := textnorm.Compact(textnorm.StripCorporateSuffixes(company))
	b := textnorm.Compact(textnorm.StripCorporateSuffixes(mainDomain))
	return Similarity(a, b)
}
