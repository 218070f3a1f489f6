package ocr

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// PageBreak separates pages inside one recognised text.
const PageBreak = "---PAGE BREAK---"

var (
	pageMarkerPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^page\s*\d+(?:\s*(?:of|/)\s*\d+)?$`),        // "Page 1", "Page 1 of 3"
		regexp.MustCompile(`(?i)^стр(?:аница|\.)?\s*\d+(?:\s*(?:от|/)\s*\d+)?$`), // "Страница 1 от 2"
		regexp.MustCompile(`^\d+\s*/\s*\d+$`),                                  // "1/5"
		regexp.MustCompile(`^-\s*\d+\s*-$`),                                    // "- 2 -"
	}

	reSpaces = regexp.MustCompile(`[ \t\f\v]+`)
)

// artifacts are dropped from recognised text
var artifacts = []string{
	"\uFFFD", // replacement character from broken encodings
	"\uFEFF", // BOM
	"\u200B", // zero width space
}

// CleanPageText strips page markers, page numbers and encoding garbage from
// provider output and normalises whitespace per line. Lines that carry data
// are never dropped, so standalone numbers survive.
func CleanPageText(raw string) string {
	if raw == "" {
		return raw
	}
	text := strings.ReplaceAll(raw, PageBreak, "\n")
	text = strings.ReplaceAll(text, "\f", "\n")
	for _, a := range artifacts {
		text = strings.ReplaceAll(text, a, " ")
	}

	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(reSpaces.ReplaceAllString(line, " "))
		if isPageMarker(line) {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func isPageMarker(line string) bool {
	for _, p := range pageMarkerPatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

// TruncateForPrompt cuts text to at most limit bytes, preferring the last
// paragraph break in the second half so the LLM sees whole blocks.
func TruncateForPrompt(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	truncated := text[:cut]
	if idx := strings.LastIndex(truncated, "\n\n"); idx > limit/2 {
		truncated = truncated[:idx]
	}
	log.WithField("chars", len(text)).Warnf("text too long, truncated to %d bytes", len(truncated))
	return truncated
}
