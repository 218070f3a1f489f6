// Package anonymize replaces personal data in free text with categorical
// placeholders before the text leaves the process.
package anonymize

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Rule is one named substitution. Rules run in ascending Priority; equal
// priorities keep their declaration order.
type Rule struct {
	Name        string
	Pattern     *regexp.Regexp
	Placeholder string
	Priority    int

	// Replace builds the replacement from the match indices (as returned by
	// FindStringSubmatchIndex). Nil means Placeholder.
	Replace func(text string, loc []int) string
}

// Anonymizer applies an ordered rule list. It holds no mutable state and is
// safe for concurrent use.
type Anonymizer struct {
	rules []Rule
}

// New sorts rules by priority and returns an Anonymizer over them.
func New(rules ...Rule) *Anonymizer {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})
	return &Anonymizer{rules: sorted}
}

// Rules returns the rules in application order.
func (a *Anonymizer) Rules() []Rule {
	out := make([]Rule, len(a.rules))
	copy(out, a.rules)
	return out
}

// Anonymize returns text with every rule applied in order.
func (a *Anonymizer) Anonymize(text string) string {
	out, _ := a.AnonymizeCount(text)
	return out
}

// AnonymizeCount is Anonymize that also reports how many spans each rule
// replaced, keyed by rule name.
func (a *Anonymizer) AnonymizeCount(text string) (string, map[string]int) {
	counts := make(map[string]int)
	if a == nil {
		return text, counts
	}
	for _, r := range a.rules {
		var n int
		text, n = r.apply(text)
		if n > 0 {
			counts[r.Name] += n
		}
	}
	return text, counts
}

func (r Rule) apply(text string) (string, int) {
	matches := r.Pattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text, 0
	}
	var b strings.Builder
	b.Grow(len(text))
	last, n := 0, 0
	for _, loc := range matches {
		if !atWordBoundary(text, loc[0], loc[1]) {
			continue
		}
		repl := r.Placeholder
		if r.Replace != nil {
			repl = r.Replace(text, loc)
		}
		if repl == text[loc[0]:loc[1]] {
			continue
		}
		b.WriteString(text[last:loc[0]])
		b.WriteString(repl)
		last = loc[1]
		n++
	}
	b.WriteString(text[last:])
	return b.String(), n
}

// atWordBoundary emulates \b for the whole Unicode range. RE2's \b only
// knows ASCII, so "Вита" would otherwise match inside "Витамин".
func atWordBoundary(text string, start, end int) bool {
	if start >= end {
		return false
	}
	first, _ := utf8.DecodeRuneInString(text[start:])
	if isWordRune(first) && start > 0 {
		prev, _ := utf8.DecodeLastRuneInString(text[:start])
		if isWordRune(prev) {
			return false
		}
	}
	lastRune, _ := utf8.DecodeLastRuneInString(text[:end])
	if isWordRune(lastRune) && end < len(text) {
		next, _ := utf8.DecodeRuneInString(text[end:])
		if isWordRune(next) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func group(text string, loc []int, i int) string {
	if 2*i+1 >= len(loc) || loc[2*i] < 0 {
		return ""
	}
	return text[loc[2*i]:loc[2*i+1]]
}
