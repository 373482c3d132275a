// Package textnorm provides the shared text normalization used by every
// classifier: ASCII folding, lowercasing, punctuation collapsing, and
// corporate-suffix stripping.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// German letters fold to their conventional ASCII digraphs before the
// generic diacritic stripping runs, which would otherwise reduce ä to a.
var umlautFolder = strings.NewReplacer(
	"ä", "a", "ö", "o", "ü", "u",
	"Ä", "A", "Ö", "O", "Ü", "U",
	"ß", "ss",
)

// asciiFolder decomposes and drops combining marks, then keeps ASCII only.
var asciiFolder = transform.Chain(
	norm.NFKD,
	runes.Remove(runes.In(unicode.Mn)),
	runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Normalize folds text to lowercase ASCII with single spaces between
// alphanumeric runs. It never fails; empty input yields empty output,
// and the function is idempotent.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	text = umlautFolder.Replace(text)

	folded, _, err := transform.String(asciiFolder, text)
	if err == nil {
		text = folded
	}

	text = strings.ToLower(text)
	text = nonAlnum.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// corporateSuffixes is the legal-entity and generic business vocabulary
// removed when comparing a company name against a domain fragment.
var corporateSuffixes = map[string]bool{
	"gmbh": true, "ag": true, "se": true, "ltd": true, "limited": true,
	"inc": true, "corp": true, "corporation": true, "llc": true, "plc": true,
	"sa": true, "srl": true, "bv": true, "nv": true, "kg": true, "ohg": true,
	"gbr": true, "co": true, "company": true, "group": true, "holding": true,
	"holdings": true, "international": true,
}

// StripCorporateSuffixes removes the suffix vocabulary as whole words from
// an already-normalized or raw string. The result is normalized.
func StripCorporateSuffixes(text string) string {
	words := strings.Fields(Normalize(text))
	kept := words[:0]
	for _, w := range words {
		if !corporateSuffixes[w] {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

// Compact removes all spaces, producing the compact form used for
// company-vs-domain similarity comparison.
func Compact(text string) string {
	return strings.ReplaceAll(text, " ", "")
}
