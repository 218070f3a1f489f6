package labs

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	reCRLF = regexp.MustCompile(`\r\n?`)

	// "12.5-96" / "Hct-96" where the scanner turned "%" into "96"
	rePercentMisread = regexp.MustCompile(`([\p{L}\d])-96([^\d.,]|$)`)
)

var dashReplacer = strings.NewReplacer(
	"‐", "-", // hyphen
	"‑", "-", // non-breaking hyphen
	"‒", "-", // figure dash
	"–", "-", // en dash
	"—", "-", // em dash
	"―", "-", // horizontal bar
	"−", "-", // minus sign
	"﹘", "-",
	"﹣", "-",
	"－", "-",
	"­", "", // soft hyphen
)

var quoteReplacer = strings.NewReplacer(
	"‘", "'",
	"’", "'",
	"‚", "'",
	"‛", "'",
	"“", `"`,
	"”", `"`,
	"„", `"`,
	"«", `"`,
	"»", `"`,
)

// Sanitize normalises raw OCR output before any field segmentation.
// It never fails and is idempotent.
func Sanitize(text string) string {
	if text == "" {
		return text
	}
	text = reCRLF.ReplaceAllString(text, "\n")
	text = stripStrayMarks(norm.NFC.String(text))
	text = dashReplacer.Replace(text)
	text = quoteReplacer.Replace(text)
	text = strings.ReplaceAll(text, "|", " ")
	// dropping soft hyphens and stray marks can leave composable neighbours
	text = norm.NFC.String(text)
	// adjacent matches share a boundary rune, so repeat until stable;
	// every pass removes at least one "-96" and the loop terminates
	for rePercentMisread.MatchString(text) {
		text = rePercentMisread.ReplaceAllString(text, "$1 %$2")
	}
	return text
}

// stripStrayMarks drops combining marks that did not compose onto a base
// letter under NFC.
func stripStrayMarks(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Mn, r) {
			return -1
		}
		return r
	}, s)
}
