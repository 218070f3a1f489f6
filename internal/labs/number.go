package labs

import (
	"math"
	"strconv"
	"strings"
)

// ParseFloat extracts a number from a noisy token. Everything except digits,
// separators and a leading sign is dropped. A comma is the decimal separator
// only when no period is present; input carrying both is rejected.
func ParseFloat(raw string) (float64, bool) {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9', r == ',', r == '.':
			b.WriteRune(r)
		case (r == '-' || r == '+') && b.Len() == 0:
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "" {
		return 0, false
	}
	if !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseFloatPtr is ParseFloat returning nil on a miss.
func ParseFloatPtr(raw string) *float64 {
	f, ok := ParseFloat(raw)
	if !ok {
		return nil
	}
	return &f
}

// FormatNumber renders integers without a fractional part and everything
// else with at most two decimals. nil renders as "".
func FormatNumber(v *float64) string {
	if v == nil {
		return ""
	}
	f := *v
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	s := strconv.FormatFloat(f, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}

func floatPtr(f float64) *float64 {
	return &f
}
