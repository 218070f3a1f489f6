package labs

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minLineRunes = 6
	maxNameRunes = 60
	maxNameWords = 6
)

// headerPrefixes mark table header lines; compared against the lower-cased
// line start.
var headerPrefixes = []string{
	"резултат",
	"units",
	"референтни",
	"таблица",
	"panel",
	"показател",
	"изследване",
}

// trailing result flags some labs print after the unit
var resultFlags = map[string]bool{
	"H": true, "L": true, "*": true, "**": true, "!": true, "↑": true, "↓": true,
}

var (
	reValueIsDate = regexp.MustCompile(`^(?:\d{1,2}[./-]\d{1,2}[./-]\d{2,4}|\d{4}[./-]\d{1,2}[./-]\d{1,2})`)
	rePureNumber  = regexp.MustCompile(`^` + numberPattern + `$`)
)

// Extractor turns sanitized OCR text into lab rows, one candidate per line.
type Extractor struct {
	Resolver Resolver
}

// NewExtractor returns an extractor resolving names through r. r may be nil,
// in which case names are kept as printed.
func NewExtractor(r Resolver) *Extractor {
	return &Extractor{Resolver: r}
}

// Extract scans text line by line. Output follows document order and holds
// at most one row per canonical indicator name; the first occurrence wins.
func (e *Extractor) Extract(text string) []LabRow {
	var rows []LabRow
	seen := make(map[string]bool)
	for _, line := range strings.Split(text, "\n") {
		row, ok := e.extractLine(line)
		if !ok {
			continue
		}
		key := NormalizeKey(row.IndicatorName)
		if seen[key] {
			continue
		}
		seen[key] = true
		rows = append(rows, row)
	}
	return rows
}

func (e *Extractor) extractLine(line string) (LabRow, bool) {
	line = strings.TrimSpace(line)
	if utf8.RuneCountInString(line) < minLineRunes || isHeaderLine(line) {
		return LabRow{}, false
	}

	start, end, ok := valueAnchor(line)
	if !ok || reValueIsDate.MatchString(line[start:]) {
		return LabRow{}, false
	}

	name := strings.TrimRight(line[:start], " \t:=-")
	if name == "" || !plausibleName(name) {
		return LabRow{}, false
	}

	tail := line[end:]
	unit, low, high := splitTail(tail)

	canonical, meta := e.resolve(name)
	row := LabRow{
		IndicatorName: canonical,
		Value:         TextValue(line[start:end]),
		Unit:          CanonicalUnit(unit),
		RefLow:        low,
		RefHigh:       high,
	}
	if !row.HasBounds() && meta.HasBounds() {
		row.RefLow, row.RefHigh = meta.RefLow, meta.RefHigh
	}
	if row.HasBounds() {
		row.ReferenceRange = FormatRange(row.RefLow, row.RefHigh)
	}
	return row, true
}

func (e *Extractor) resolve(name string) (string, IndicatorMeta) {
	if e == nil || e.Resolver == nil {
		return strings.TrimSpace(name), IndicatorMeta{}
	}
	canonical, meta, _ := e.Resolver.Resolve(name)
	return canonical, meta
}

// valueAnchor finds the first number that is not part of the indicator name:
// the text before it must contain a letter and the number must not be glued
// to a preceding letter (HbA1c, B12, T4).
func valueAnchor(line string) (start, end int, ok bool) {
	for _, loc := range reNumber.FindAllStringIndex(line, -1) {
		start, end = loc[0], loc[1]
		if c := line[start]; c == '-' || c == '+' {
			// "CRP-5" is a separator, "Base excess: -2.1" is a sign
			if start > 0 {
				prev, _ := utf8.DecodeLastRuneInString(line[:start])
				if !unicode.IsSpace(prev) && prev != ':' && prev != '=' {
					start++
				}
			}
		}
		if start > 0 {
			prev, _ := utf8.DecodeLastRuneInString(line[:start])
			if unicode.IsLetter(prev) {
				continue
			}
		}
		if !containsLetter(line[:start]) {
			continue
		}
		return start, end, true
	}
	return 0, 0, false
}

// splitTail separates the unit from the reference range in the text after
// the value. A dash range wins; otherwise a comparator bound is looked for.
func splitTail(tail string) (unit string, low, high *float64) {
	if s, _, l, h, ok := findRange(tail); ok {
		return trimUnit(tail[:s]), l, h
	}
	unit = tail
	if s, l, h, ok := findBound(unit); ok {
		return trimUnit(unit[:s]), l, h
	}
	return trimUnit(unit), nil, nil
}

// trimUnit keeps the unit tokens: it stops at a bare number and drops result
// flags printed after the unit. The opening bracket of a range glued to the
// unit ("g/L (115-155)", "mmol/L [3.9") is not part of it.
func trimUnit(s string) string {
	raw := strings.Fields(s)
	fields := raw[:0:0]
	for _, f := range raw {
		if rePureNumber.MatchString(f) {
			break
		}
		f = strings.TrimRight(f, openBrackets)
		if strings.Trim(f, openBrackets+")]}") == "" {
			continue
		}
		fields = append(fields, f)
	}
	for len(fields) > 1 && resultFlags[fields[len(fields)-1]] {
		fields = fields[:len(fields)-1]
	}
	return strings.Join(fields, " ")
}

func isHeaderLine(line string) bool {
	lower := strings.ToLower(line)
	for _, p := range headerPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

// plausibleName rejects prose that happens to contain a number.
func plausibleName(name string) bool {
	if utf8.RuneCountInString(name) > maxNameRunes {
		return false
	}
	return len(strings.Fields(name)) <= maxNameWords
}

func containsLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
