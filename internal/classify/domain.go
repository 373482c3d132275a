package classify

import (
	"fmt"

	"github.com/leadsieve/leadsieve/internal/refdata"
	"github.com/leadsieve/leadsieve/internal/textnorm"
)

// DomainMatch labels how well a lead's email domain fits the stated company.
type DomainMatch string

const (
	MatchNoEmailDomain  DomainMatch = "No Email Domain"
	MatchNoCompanyName  DomainMatch = "No Company Name"
	MatchFreeMailer     DomainMatch = "Free Mailer"
	MatchExcludedDomain DomainMatch = "Excluded Domain"
	MatchValid          DomainMatch = "Valid Company Domain"
	MatchPossible       DomainMatch = "Possible Domain Match"
	MatchMismatch       DomainMatch = "Domain Mismatch"
)

// Similarity thresholds for the company-vs-domain comparison.
const (
	validMatchThreshold    = 0.8
	possibleMatchThreshold = 0.5
)

// DomainVerdict is the outcome of ValidateDomain.
type DomainVerdict struct {
	Match      DomainMatch
	Similarity float64
	Domain     string
	Reason     string
	Confidence Confidence
}

// DomainValidator checks email domains against company names and the
// excluded and free-mailer lists.
type DomainValidator struct {
	refs *refdata.Store
}

// NewDomainValidator builds a validator over the loaded reference lists.
func NewDomainValidator(refs *refdata.Store) *DomainValidator {
	return &DomainValidator{refs: refs}
}

// ValidateDomain compares the lead's email domain against its company
// name. List checks run before the similarity comparison.
func (v *DomainValidator) ValidateDomain(email, company string) DomainVerdict {
	domain := textnorm.DomainFromEmail(email)
	if domain == "" {
		return DomainVerdict{
			Match:      MatchNoEmailDomain,
			Domain:     domain,
			Reason:     "No domain could be extracted from the email address",
			Confidence: ConfidenceHigh,
		}
	}
	if company == "" {
		return DomainVerdict{
			Match:      MatchNoCompanyName,
			Domain:     domain,
			Reason:     "Lead has no company name to compare against",
			Confidence: ConfidenceHigh,
		}
	}
	if v.refs.FreemailDomains.ContainsDomain(domain) {
		return DomainVerdict{
			Match:      MatchFreeMailer,
			Domain:     domain,
			Reason:     fmt.Sprintf("%s is a free mail provider", domain),
			Confidence: ConfidenceHigh,
		}
	}
	if v.refs.ExcludedDomains.ContainsDomain(domain) {
		return DomainVerdict{
			Match:      MatchExcludedDomain,
			Domain:     domain,
			Reason:     fmt.Sprintf("%s is on the excluded domain list", domain),
			Confidence: ConfidenceHigh,
		}
	}

	sim := CompanySimilarity(company, textnorm.MainDomain(domain))
	switch {
	case sim >= validMatchThreshold:
		return DomainVerdict{
			Match:      MatchValid,
			Similarity: sim,
			Domain:     domain,
			Reason:     fmt.Sprintf("Company name matches domain %s (similarity %.2f)", domain, sim),
			Confidence: ConfidenceHigh,
		}
	case sim >= possibleMatchThreshold:
		return DomainVerdict{
			Match:      MatchPossible,
			Similarity: sim,
			Domain:     domain,
			Reason:     fmt.Sprintf("Company name partially matches domain %s (similarity %.2f)", domain, sim),
			Confidence: ConfidenceMedium,
		}
	default:
		return DomainVerdict{
			Match:      MatchMismatch,
			Similarity: sim,
			Domain:     domain,
			Reason:     fmt.Sprintf("Company name does not match domain %s (similarity %.2f)", domain, sim),
			Confidence: ConfidenceHigh,
		}
	}
}
