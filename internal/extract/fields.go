// Package extract parses lead notification emails into structured records.
// It understands both the HTML table layout and the plain-text fallback of
// the notification format, unwraps tracking links, and scrubs footer
// boilerplate from values.
package extract

import "strings"

// Canonical names of the fields the extractor and the report layout agree
// on. Adding a name is safe; renaming or removing one breaks downstream
// reports and replay.
const (
	FieldSubject              = "Subject"
	FieldSender               = "Sender"
	FieldReceivedTime         = "ReceivedTime"
	FieldAllEmailsFound       = "All Emails Found"
	FieldFirstName            = "First Name"
	FieldLastName             = "Last Name"
	FieldEmailAddress         = "Email Address"
	FieldCompany              = "Company"
	FieldCountry              = "Country"
	FieldActivities           = "Lead Triggering Activities"
	FieldAccountType          = "Account Type"
	FieldValidationLink       = "PreMQL review/validation link"
	FieldMatchingStatus       = "Company Matching Status"
	FieldDistributionPartner  = "Potential Distribution Partner (matching in beta testing)"
	FieldProfiler             = "Eloqua Profiler"
	FieldHasContactSalesForm  = "Has Contact Sales Form"
	FieldStatus               = "Status"
	FieldActionTaken          = "Action Taken"
	FieldDomainValidation     = "Company Domain Validation"
	FieldValidationStatus     = "Validation Status"
	FieldValidationReason     = "Validation Reason"
	FieldTakeAction           = "Take Action"
	FieldValidRejectReason    = "Valid Company → Reject Reason"
	FieldInvalidCompanyReason = "Invalid Company Reason"
	FieldRejectReason         = "Reject Reason"
	FieldScoringInfo          = "Additional Scoring Information"
	FieldSendTo               = "Send to"
	FieldMoveToFolder         = "Move to Folder"
	FieldFormSubmission       = "Form Submission Status"
	FieldEmailMoveStatus      = "Email Move Status"
)

// Fields is the full catalogue in report column order.
var Fields = []string{
	FieldSubject, FieldSender, FieldReceivedTime, FieldAllEmailsFound,
	FieldFirstName, FieldLastName, FieldEmailAddress, FieldCompany,
	"Pages Viewed", "Submit Time", "Form Name", "URL Of Form",
	"Salutation", "Business Phone", FieldCountry, "City",
	"State/Province", "Researched State or Province", "Job Role",
	"Industry", FieldActivities, "Project yes/no", "Start of Production",
	"Project Volume", "Project Timeframe", "Rejection reason",
	"Rejection reason free text", "Lead Source - Most Recent",
	"Lead Source - Original", "Lead Source Name - Most Recent",
	"Lead Source Name - Original", "Lead Trigger", "Lead Lifecycle Count",
	FieldAccountType, "Lead Lifecycle ID", "Lead editor", "Subject Line",
	"Notification", FieldValidationLink, FieldMatchingStatus,
	FieldDistributionPartner, "Digital activity", FieldProfiler,
	"Initial Call Notes", FieldHasContactSalesForm, FieldStatus,
	FieldActionTaken, FieldDomainValidation, FieldValidationStatus,
	FieldValidationReason, FieldTakeAction, FieldValidRejectReason,
	FieldInvalidCompanyReason, FieldRejectReason, FieldScoringInfo,
	FieldSendTo, FieldMoveToFolder, FieldFormSubmission,
	FieldEmailMoveStatus,
}

// labelAliases map alternative label spellings to canonical field names.
var labelAliases = map[string]string{
	"lead qualification link": FieldValidationLink,
	"qualification link":      FieldValidationLink,
	"click here":              FieldValidationLink,
}

var canonicalLabels = func() map[string]string {
	m := make(map[string]string, len(Fields))
	for _, f := range Fields {
		m[strings.ToLower(f)] = f
	}
	return m
}()

// NormalizeLabel resolves a raw label to its canonical field name. Labels
// outside the catalogue come back trimmed but otherwise untouched, so
// unknown label/value pairs are kept verbatim.
func NormalizeLabel(text string) string {
	text = strings.TrimSpace(strings.ReplaceAll(text, ":", ""))
	lower := strings.ToLower(text)
	if canonical, ok := labelAliases[lower]; ok {
		return canonical
	}
	if canonical, ok := canonicalLabels[lower]; ok {
		return canonical
	}
	return text
}

// IsKnownField reports whether a normalized label is part of the catalogue.
func IsKnownField(label string) bool {
	_, ok := canonicalLabels[strings.ToLower(label)]
	return ok
}
