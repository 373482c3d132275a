package extract

import (
	"regexp"
	"strings"
)

var (
	copyrightBlock = regexp.MustCompile(`(?is)Copyright.*?All rights reserved\.?`)
	affiliateLine  = regexp.MustCompile(`(?i)Oracle and/or its affiliates\.?`)
	angleURL       = regexp.MustCompile(`<https?://[^>]+>`)
	trackingPixel  = regexp.MustCompile(`https?://\S*tinydot\.gif\S*`)
	imageHostURL   = regexp.MustCompile(`https?://img\d+\.en25\.com\S*`)
)

// CleanValue scrubs footer boilerplate, tracking URLs, and blank lines
// from an extracted field value.
func CleanValue(value string) string {
	if value == "" {
		return ""
	}

	if i := strings.Index(value, "Copyright"); i >= 0 {
		value = strings.TrimSpace(value[:i])
	}
	value = copyrightBlock.ReplaceAllString(value, "")
	value = affiliateLine.ReplaceAllString(value, "")
	value = angleURL.ReplaceAllString(value, "")
	value = trackingPixel.ReplaceAllString(value, "")
	value = imageHostURL.ReplaceAllString(value, "")

	// A value that is nothing but the stray neighboring label carries no
	// information.
	if strings.TrimSpace(value) == FieldMatchingStatus {
		return ""
	}

	var lines []string
	for _, line := range strings.Split(value, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
