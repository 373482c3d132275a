package classify

// Status is the triage outcome assigned to a lead.
type Status string

const (
	StatusNotStarted         Status = "Not Started"
	StatusValid              Status = "Valid"
	StatusFreemail           Status = "Freemail"
	StatusAcademic           Status = "Academic"
	StatusExcludedDomain     Status = "Excluded Domain"
	StatusDirectAccount      Status = "Direct Account"
	StatusBlacklistedCountry Status = "Country"
	StatusCompleted          Status = "Completed"
	StatusUniversityContact  Status = "University Contact"
	StatusMassMarket         Status = "Mass Market"
)

// protectedStatuses are never overwritten by re-classification.
var protectedStatuses = map[Status]bool{
	StatusAcademic:           true,
	StatusCompleted:          true,
	StatusDirectAccount:      true,
	StatusBlacklistedCountry: true,
	StatusExcludedDomain:     true,
	StatusFreemail:           true,
	StatusUniversityContact:  true,
}

// IsProtected reports whether a status survives re-classification.
func IsProtected(s Status) bool {
	return protectedStatuses[s]
}

// Confidence grades how certain a classification is.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Result is a single classification verdict with its explanation.
type Result struct {
	Status     Status
	Reason     string
	Confidence Confidence
}
