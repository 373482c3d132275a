// Package report writes workflow reports for the two Pre-MQL queues and
// reads human decisions back in. A report run emits one Validation file
// and one Review file; rows carry the full field catalogue plus the
// subject and received timestamp the replay stages need to locate the
// original message.
package report

import "github.com/leadsieve/leadsieve/internal/extract"

// Column groups. Filter columns steer triage, input columns collect the
// human verdict, status columns track replay outcomes.
var (
	FilterColumns = []string{
		extract.FieldHasContactSalesForm,
		extract.FieldDomainValidation,
		extract.FieldValidationStatus,
		extract.FieldStatus,
	}

	ValidationInputColumns = []string{
		extract.FieldTakeAction,
		extract.FieldValidRejectReason,
		extract.FieldInvalidCompanyReason,
		extract.FieldScoringInfo,
		extract.FieldSendTo,
		extract.FieldMoveToFolder,
	}

	ReviewInputColumns = []string{
		extract.FieldTakeAction,
		extract.FieldRejectReason,
		extract.FieldScoringInfo,
		extract.FieldSendTo,
		extract.FieldMoveToFolder,
	}

	StatusColumns = []string{
		extract.FieldActionTaken,
		extract.FieldFormSubmission,
		extract.FieldEmailMoveStatus,
	}
)

// Allowed values per input column. Reading a report back tolerates typos
// by fuzzy-matching against these.
var (
	TakeActionValidation = []string{
		"Valid Company → MQL",
		"Valid Company → Reject",
		"Invalid Company",
	}

	ValidRejectReasons = []string{
		"Not able to contact",
		"Not a Disti lead",
		"Contacted - no general potential",
		"Contacted - no current potential",
		"Not contacted - no general potential",
		"Insufficient lead profile information",
		"Lead already known",
		"University Contact",
		"Distribution Partner",
	}

	InvalidCompanyReasons = []string{
		"University Contact",
		"Distribution Partner",
		"Company - with no potential",
		"Agency",
		"Free-mailer with no potential",
		"Competitor",
	}

	TakeActionReview = []string{
		"MQL - Send to Sales",
		"Reject",
	}

	RejectReasonsReview = []string{
		"Not able to contact",
		"Not a Disti lead",
		"Contacted - no general potential",
		"Contacted - no current potential",
		"Not contacted - no general potential",
		"Insufficient lead profile information",
		"Lead already known",
		"University Contact",
		"Distribution Partner",
	}

	MoveToFolderOptions = []string{
		"Arrow",
		"EBV/Avnet",
		"Future",
		"Non-EBV Leads",
		"Other Distribution Partners",
		"Rutronik",
		"Rejected Marketing",
	}
)

// optionsFor returns the vocabulary of an input column, per sheet kind.
func optionsFor(column string, review bool) []string {
	switch column {
	case extract.FieldTakeAction:
		if review {
			return TakeActionReview
		}
		return TakeActionValidation
	case extract.FieldValidRejectReason:
		return ValidRejectReasons
	case extract.FieldInvalidCompanyReason:
		return InvalidCompanyReasons
	case extract.FieldRejectReason:
		return RejectReasonsReview
	case extract.FieldMoveToFolder:
		return MoveToFolderOptions
	}
	return nil
}
