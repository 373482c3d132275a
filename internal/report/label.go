package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// DateRange is a half-open extraction window [Start, End).
type DateRange struct {
	Start time.Time
	End   time.Time
}

// DateLabel builds the report filename label for a set of extraction
// windows, like Extraction_14Mar26 or Extraction_14to20Mar26.
func DateLabel(ranges []DateRange) string {
	if len(ranges) == 0 {
		return "Extraction_selection"
	}

	sorted := append([]DateRange(nil), ranges...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	if len(sorted) == 1 {
		start, end := sorted[0].Start, sorted[0].End
		if end.Sub(start) == 24*time.Hour {
			return "Extraction_" + start.Format("02Jan06")
		}
		endInclusive := end.AddDate(0, 0, -1)
		if start.Month() == endInclusive.Month() && start.Year() == endInclusive.Year() {
			return fmt.Sprintf("Extraction_%sto%s", start.Format("02"), endInclusive.Format("02Jan06"))
		}
		return fmt.Sprintf("Extraction_%sto%s", start.Format("02Jan"), endInclusive.Format("02Jan06"))
	}

	first := sorted[0].Start
	last := sorted[len(sorted)-1].Start
	if first.Month() == last.Month() && first.Year() == last.Year() {
		return fmt.Sprintf("Extraction_%sto%s", first.Format("02"), last.Format("02Jan06"))
	}
	return fmt.Sprintf("Extraction_%sto%s", first.Format("02Jan"), last.Format("02Jan06"))
}

// UniquePath returns dir/base+ext, appending " (2)", " (3)", … until the
// name is free.
func UniquePath(dir, base, ext string) string {
	path := filepath.Join(dir, base+ext)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	for counter := 2; ; counter++ {
		path = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", base, counter, ext))
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
	}
}
