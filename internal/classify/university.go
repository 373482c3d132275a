package classify

import (
	"fmt"
	"strings"

	"github.com/leadsieve/leadsieve/internal/refdata"
	"github.com/leadsieve/leadsieve/internal/textnorm"
)

// coreAcademicWords mark an organization name as academic when present as
// whole words after normalization.
var coreAcademicWords = map[string]bool{
	"university": true, "universitat": true, "universitaet": true,
	"universite": true, "universita": true, "universidad": true,
	"universidade": true, "hochschule": true, "fachhochschule": true,
	"college": true, "polytechnic": true, "polytechnique": true,
	"politecnico": true,
}

// commercialIndicators mark an organization name as a business.
var commercialIndicators = map[string]bool{
	"gmbh": true, "ag": true, "ltd": true, "limited": true, "inc": true,
	"corp": true, "corporation": true, "llc": true, "consulting": true,
	"consultancy": true, "solutions": true, "services": true,
	"systems": true, "technologies": true, "tech": true, "group": true,
	"holding": true, "holdings": true, "partner": true, "partners": true,
	"international": true, "global": true, "worldwide": true,
}

// academicDomainTokens flag a domain as academic when they appear as a
// standalone label or token inside it.
var academicDomainTokens = map[string]bool{
	"university": true, "college": true, "academic": true,
	"campus": true, "edu": true,
}

// UniversityVerdict is the outcome of the academic check.
type UniversityVerdict struct {
	Academic   bool
	Reason     string
	Confidence Confidence
}

// WebChecker answers whether a domain's homepage looks academic.
// Implementations must be safe for concurrent use and should cache per
// domain.
type WebChecker interface {
	LooksAcademic(domain string) (bool, error)
}

// UniversityDetector decides whether a lead belongs to an academic
// institution. Explicit knowledge beats heuristics beats keywords, and
// uncertainty skews toward not-academic.
type UniversityDetector struct {
	refs    *refdata.Store
	checker WebChecker
}

// NewUniversityDetector builds a detector. checker may be nil to disable
// the last-resort live lookup.
func NewUniversityDetector(refs *refdata.Store, checker WebChecker) *UniversityDetector {
	return &UniversityDetector{refs: refs, checker: checker}
}

// Detect classifies a lead's organization. email and country may be empty.
func (d *UniversityDetector) Detect(company, email, country string) UniversityVerdict {
	words := strings.Fields(textnorm.Normalize(company))
	wordSet := make(map[string]bool, len(words))
	for _, w := range words {
		wordSet[w] = true
	}

	if inst := d.matchInstitution(wordSet, country); inst != "" {
		return UniversityVerdict{
			Academic:   true,
			Reason:     fmt.Sprintf("Matches known institution %q", inst),
			Confidence: ConfidenceHigh,
		}
	}

	if entry := d.matchDirectAccount(words); entry != "" {
		return UniversityVerdict{
			Academic:   false,
			Reason:     fmt.Sprintf("%s is a known commercial account", entry),
			Confidence: ConfidenceHigh,
		}
	}

	domain := textnorm.DomainFromEmail(email)
	if domain != "" && !d.refs.FreemailDomains.ContainsDomain(domain) {
		if d.refs.AcademicDomains.ContainsDomain(domain) {
			return UniversityVerdict{
				Academic:   true,
				Reason:     fmt.Sprintf("%s is a known academic domain", domain),
				Confidence: ConfidenceHigh,
			}
		}
		if academicDomainShape(domain) {
			return UniversityVerdict{
				Academic:   true,
				Reason:     fmt.Sprintf("%s has an academic domain shape", domain),
				Confidence: ConfidenceHigh,
			}
		}
	}

	academic, academicWord := firstMatch(words, coreAcademicWords)
	commercial, commercialWord := firstMatch(words, commercialIndicators)
	switch {
	case academic && commercial:
		return UniversityVerdict{
			Academic:   false,
			Reason:     fmt.Sprintf("Name carries both academic (%q) and commercial (%q) signals", academicWord, commercialWord),
			Confidence: ConfidenceMedium,
		}
	case academic:
		return UniversityVerdict{
			Academic:   true,
			Reason:     fmt.Sprintf("Name contains academic keyword %q", academicWord),
			Confidence: ConfidenceMedium,
		}
	}

	if d.checker != nil && domain != "" && !d.refs.FreemailDomains.ContainsDomain(domain) {
		if found, err := d.checker.LooksAcademic(domain); err == nil && found {
			return UniversityVerdict{
				Academic:   true,
				Reason:     fmt.Sprintf("Homepage of %s mentions academic activity", domain),
				Confidence: ConfidenceLow,
			}
		}
	}

	return UniversityVerdict{
		Academic:   false,
		Reason:     "No clear university indicators",
		Confidence: ConfidenceHigh,
	}
}

// matchInstitution looks for a known institution of the lead's country
// whose normalized words are all present in the company name.
func (d *UniversityDetector) matchInstitution(companyWords map[string]bool, country string) string {
	inst := d.refs.InstitutionsFor(country)
	if inst == nil || len(companyWords) == 0 {
		return ""
	}
	for _, name := range inst.Entries() {
		instWords := strings.Fields(textnorm.Normalize(name))
		if len(instWords) == 0 {
			continue
		}
		all := true
		for _, w := range instWords {
			if !companyWords[w] {
				all = false
				break
			}
		}
		if all {
			return inst.DisplayName(name)
		}
	}
	return ""
}

// matchDirectAccount checks whether a known commercial account name occurs
// as a contiguous phrase inside the normalized company name.
func (d *UniversityDetector) matchDirectAccount(companyWords []string) string {
	if len(companyWords) == 0 {
		return ""
	}
	padded := " " + strings.Join(companyWords, " ") + " "
	for _, entry := range d.refs.DirectAccounts.Entries() {
		normalized := textnorm.Normalize(entry)
		if normalized == "" {
			continue
		}
		if strings.Contains(padded, " "+normalized+" ") {
			return d.refs.DirectAccounts.DisplayName(entry)
		}
	}
	return ""
}

// academicDomainShape reports domains that look academic by TLD or by a
// standalone university-indicating label, like tum.edu, ox.ac.uk, or
// university-of-somewhere.org.
func academicDomainShape(domain string) bool {
	if strings.HasSuffix(domain, ".edu") {
		return true
	}
	parts := strings.Split(domain, ".")
	for i, p := range parts {
		if p == "ac" && i > 0 && i < len(parts)-1 {
			return true
		}
		for _, token := range strings.Split(p, "-") {
			if academicDomainTokens[token] {
				return true
			}
		}
	}
	return false
}

func firstMatch(words []string, vocab map[string]bool) (bool, string) {
	for _, w := range words {
		if vocab[w] {
			return true, w
		}
	}
	return false, ""
}
