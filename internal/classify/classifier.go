package classify

import (
	"fmt"

	"github.com/leadsieve/leadsieve/internal/refdata"
	"github.com/leadsieve/leadsieve/internal/textnorm"
)

// Lead is the minimal view of a lead the classifier needs.
type Lead struct {
	Email   string
	Company string
	Country string
	Status  Status
}

// Classifier runs the full triage pipeline over a lead.
type Classifier struct {
	refs     *refdata.Store
	domains  *DomainValidator
	academia *UniversityDetector
}

// NewClassifier wires the pipeline. checker may be nil to disable the
// live academic lookup.
func NewClassifier(refs *refdata.Store, checker WebChecker) *Classifier {
	return &Classifier{
		refs:     refs,
		domains:  NewDomainValidator(refs),
		academia: NewUniversityDetector(refs, checker),
	}
}

// Domains exposes the domain validator for standalone checks.
func (c *Classifier) Domains() *DomainValidator { return c.domains }

// Academia exposes the university detector for standalone checks.
func (c *Classifier) Academia() *UniversityDetector { return c.academia }

// Classify assigns a status to the lead. A protected existing status is
// returned unchanged; otherwise the reference-list checks run in priority
// order before the university detector, and leads that clear every check
// come out Valid. Running Classify twice yields the same result.
func (c *Classifier) Classify(lead Lead) Result {
	if IsProtected(lead.Status) {
		return Result{
			Status:     lead.Status,
			Reason:     fmt.Sprintf("Status %q is protected and was kept", lead.Status),
			Confidence: ConfidenceHigh,
		}
	}

	if lead.Country != "" && c.refs.BlacklistedCountries.Contains(lead.Country) {
		return Result{
			Status:     StatusBlacklistedCountry,
			Reason:     fmt.Sprintf("%s is a blacklisted country", lead.Country),
			Confidence: ConfidenceHigh,
		}
	}
	if lead.Company != "" && c.refs.DirectAccounts.Contains(lead.Company) {
		return Result{
			Status:     StatusDirectAccount,
			Reason:     fmt.Sprintf("%s is a direct account", lead.Company),
			Confidence: ConfidenceHigh,
		}
	}

	domain := textnorm.DomainFromEmail(lead.Email)
	if domain != "" {
		if c.refs.ExcludedDomains.ContainsDomain(domain) {
			return Result{
				Status:     StatusExcludedDomain,
				Reason:     fmt.Sprintf("%s is on the excluded domain list", domain),
				Confidence: ConfidenceHigh,
			}
		}
		if c.refs.AcademicDomains.ContainsDomain(domain) {
			return Result{
				Status:     StatusAcademic,
				Reason:     fmt.Sprintf("%s is a known academic domain", domain),
				Confidence: ConfidenceHigh,
			}
		}
		if c.refs.FreemailDomains.ContainsDomain(domain) {
			return Result{
				Status:     StatusFreemail,
				Reason:     fmt.Sprintf("%s is a free mail provider", domain),
				Confidence: ConfidenceHigh,
			}
		}
	}

	if verdict := c.academia.Detect(lead.Company, lead.Email, lead.Country); verdict.Academic {
		return Result{
			Status:     StatusAcademic,
			Reason:     verdict.Reason,
			Confidence: verdict.Confidence,
		}
	}

	return Result{
		Status:     StatusValid,
		Reason:     "Passed all triage checks",
		Confidence: ConfidenceHigh,
	}
}
