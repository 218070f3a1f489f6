package labs

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const isoDate = "2006-01-02"

// ISO first (2024-03-12, 2024.03.12, 2024/03/12), then day-first
// (12.03.2024, 12/03/2024, 12-03-2024).
var reDate = regexp.MustCompile(`(\d{4})[-./](\d{1,2})[-./](\d{1,2})|(\d{1,2})[-./](\d{1,2})[-./](\d{4})`)

// FindEventDate returns the first valid calendar date in text as YYYY-MM-DD.
func FindEventDate(text string) (string, bool) {
	for _, loc := range reDate.FindAllStringSubmatchIndex(text, -1) {
		if isDigitAt(text, loc[0]-1) || isDigitAt(text, loc[1]) {
			continue
		}
		group := func(i int) string {
			if loc[2*i] < 0 {
				return ""
			}
			return text[loc[2*i]:loc[2*i+1]]
		}
		var y, mo, d string
		if group(1) != "" {
			y, mo, d = group(1), group(2), group(3)
		} else {
			y, mo, d = group(6), group(5), group(4)
		}
		if s, ok := validDate(y, mo, d); ok {
			return s, true
		}
	}
	return "", false
}

// NormalizeDate accepts an externally supplied date in any of the supported
// shapes and returns it as YYYY-MM-DD.
func NormalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if t, err := time.Parse(isoDate, s); err == nil {
		return t.Format(isoDate), true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format(isoDate), true
	}
	return FindEventDate(s)
}

func validDate(ys, ms, ds string) (string, bool) {
	y, err1 := strconv.Atoi(ys)
	m, err2 := strconv.Atoi(ms)
	d, err3 := strconv.Atoi(ds)
	if err1 != nil || err2 != nil || err3 != nil {
		return "", false
	}
	if y < 1900 || y > 2100 || m < 1 || m > 12 || d < 1 {
		return "", false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	// time.Date normalises 31.02 into March; reject anything that moved
	if t.Day() != d || int(t.Month()) != m {
		return "", false
	}
	return t.Format(isoDate), true
}

func isDigitAt(s string, i int) bool {
	return i >= 0 && i < len(s) && s[i] >= '0' && s[i] <= '9'
}
