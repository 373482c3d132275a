package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/leadsieve/leadsieve/internal/classify"
	"github.com/leadsieve/leadsieve/internal/extract"
	"github.com/leadsieve/leadsieve/internal/history"
)

// Writer emits workflow reports into a directory.
type Writer struct {
	Dir string
}

// Write renders the two files for one extraction run and returns their
// paths. Either slice may be empty; the file is still written so the
// reviewer sees an explicit empty queue.
func (w *Writer) Write(label string, validation, review []history.Lead) (validationPath, reviewPath string, err error) {
	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create report directory: %w", err)
	}

	MarkMassMarket(review)

	validationPath = UniquePath(w.Dir, label+"_Validation", ".csv")
	if err := writeSheet(validationPath, validation); err != nil {
		return "", "", err
	}
	reviewPath = UniquePath(w.Dir, label+"_Review", ".csv")
	if err := writeSheet(reviewPath, review); err != nil {
		return "", "", err
	}
	return validationPath, reviewPath, nil
}

func writeSheet(path string, leads []history.Lead) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(extract.Fields); err != nil {
		return fmt.Errorf("failed to write report header: %w", err)
	}

	row := make([]string, len(extract.Fields))
	for _, lead := range leads {
		for i, col := range extract.Fields {
			row[i] = rowValue(&lead, col)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write report row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush report: %w", err)
	}
	return nil
}

// rowValue resolves a column from the lead, preferring the classification
// columns over whatever the raw extraction carried.
func rowValue(lead *history.Lead, col string) string {
	switch col {
	case extract.FieldStatus:
		return string(lead.Status)
	case extract.FieldDomainValidation:
		return lead.DomainMatch
	case extract.FieldSubject:
		return lead.Subject
	case extract.FieldSender:
		return lead.Sender
	case extract.FieldReceivedTime:
		if lead.ReceivedAt.IsZero() {
			return lead.Fields[extract.FieldReceivedTime]
		}
		return lead.ReceivedAt.Format("2006-01-02 15:04:05")
	}
	return lead.Fields[col]
}

// MarkMassMarket relabels review leads whose account type names a mass
// market segment. Protected statuses are left alone.
func MarkMassMarket(review []history.Lead) int {
	marked := 0
	for i := range review {
		accountType := review[i].Fields[extract.FieldAccountType]
		if !strings.Contains(strings.ToLower(accountType), "mass market") {
			continue
		}
		if classify.IsProtected(review[i].Status) {
			continue
		}
		review[i].Status = classify.StatusMassMarket
		if review[i].Fields == nil {
			review[i].Fields = make(map[string]string)
		}
		review[i].Fields[extract.FieldActionTaken] = "Identified as Mass Market account"
		marked++
	}
	return marked
}
