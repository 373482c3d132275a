package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/leadsieve/leadsieve/internal/extract"
)

// maxOptionDistance is the edit distance tolerated when snapping a typed
// value onto a dropdown option.
const maxOptionDistance = 2

// RowDecision is one filled-in report row. Subject and ReceivedTime
// identify the original message for the replay stages.
type RowDecision struct {
	Subject      string
	ReceivedTime string
	Values       map[string]string
}

// Get returns a decision value, or "" when absent.
func (d *RowDecision) Get(column string) string {
	return d.Values[column]
}

// Read parses a filled-in report. Input-column values are snapped onto
// their dropdown vocabulary; unknown values survive as typed. Rows with
// no subject are skipped.
func Read(path string, review bool) ([]RowDecision, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open report: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read report header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.TrimSpace(col)] = i
	}
	if _, ok := index[extract.FieldSubject]; !ok {
		return nil, fmt.Errorf("report has no %s column", extract.FieldSubject)
	}

	inputColumns := ValidationInputColumns
	if review {
		inputColumns = ReviewInputColumns
	}

	var decisions []RowDecision
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read report row: %w", err)
		}

		cell := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		subject := cell(extract.FieldSubject)
		if subject == "" {
			continue
		}

		d := RowDecision{
			Subject:      subject,
			ReceivedTime: cell(extract.FieldReceivedTime),
			Values:       make(map[string]string),
		}
		for _, col := range inputColumns {
			d.Values[col] = MatchOption(cell(col), optionsFor(col, review))
		}
		for _, col := range StatusColumns {
			d.Values[col] = cell(col)
		}
		decisions = append(decisions, d)
	}
	return decisions, nil
}

// MatchOption snaps a typed value onto the closest vocabulary option.
// Case and surrounding space are ignored; small typos within edit
// distance 2 are corrected; anything further off is returned as typed.
func MatchOption(value string, options []string) string {
	value = strings.TrimSpace(value)
	if value == "" || len(options) == 0 {
		return value
	}

	lower := strings.ToLower(value)
	for _, opt := range options {
		if lower == strings.ToLower(opt) {
			return opt
		}
	}

	best := ""
	bestDist := maxOptionDistance + 1
	for _, opt := range options {
		d := levenshtein.ComputeDistance(lower, strings.ToLower(opt))
		if d < bestDist {
			bestDist = d
			best = opt
		}
	}
	if best != "" {
		return best
	}
	return value
}
