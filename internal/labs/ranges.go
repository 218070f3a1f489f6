package labs

import (
	"regexp"
	"strings"
)

const numberPattern = `[-+]?\d+(?:[.,]\d+)?`

var (
	reRange  = regexp.MustCompile(`(` + numberPattern + `)\s*%?\s*-\s*(` + numberPattern + `)\s*%?`)
	reNumber = regexp.MustCompile(numberPattern)

	// "< 5.2", "≤5", "до 5", "над 3", "up to 40"
	reBound = regexp.MustCompile(`(?i)(<=|>=|<|>|≤|≥|до|над|под|up to|below|above)\s*(\d+(?:[.,]\d+)?)`)
)

// SplitRange pulls a low/high pair out of a reference range fragment. With a
// single number present it is returned as the low bound.
func SplitRange(text string) (low, high *float64) {
	if m := reRange.FindStringSubmatch(text); m != nil {
		return ParseFloatPtr(m[1]), ParseFloatPtr(m[2])
	}
	if m := reNumber.FindString(text); m != "" {
		return ParseFloatPtr(m), nil
	}
	return nil, nil
}

// findRange locates a dash separated range and returns its byte span.
func findRange(text string) (start, end int, low, high *float64, ok bool) {
	loc := reRange.FindStringSubmatchIndex(text)
	if loc == nil {
		return 0, 0, nil, nil, false
	}
	return loc[0], loc[1], ParseFloatPtr(text[loc[2]:loc[3]]), ParseFloatPtr(text[loc[4]:loc[5]]), true
}

// findBound locates a one-sided comparator bound.
func findBound(text string) (start int, low, high *float64, ok bool) {
	loc := reBound.FindStringSubmatchIndex(text)
	if loc == nil {
		return 0, nil, nil, false
	}
	op := strings.ToLower(text[loc[2]:loc[3]])
	v := ParseFloatPtr(text[loc[4]:loc[5]])
	switch op {
	case "<", "<=", "≤", "до", "под", "up to", "below":
		return loc[0], nil, v, true
	default:
		return loc[0], v, nil, true
	}
}

// FormatRange renders bounds as "low-high"; a missing side renders empty.
func FormatRange(low, high *float64) string {
	if low == nil && high == nil {
		return ""
	}
	return FormatNumber(low) + "-" + FormatNumber(high)
}
