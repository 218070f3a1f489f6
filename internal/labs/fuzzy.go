package labs

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// DefaultFuzzyThreshold is the minimum similarity accepted by FuzzyResolver.
const DefaultFuzzyThreshold = 0.86

// minFuzzyKeyLen keeps short codes (K, Na, PT) out of the fuzzy pass;
// one edit on a two letter code is a different analyte.
const minFuzzyKeyLen = 4

// FuzzyResolver runs an exact lookup first and falls back to the closest
// alias key by normalized Levenshtein similarity.
type FuzzyResolver struct {
	Index     *Index
	Threshold float64

	keys []string
}

// NewFuzzyResolver wraps idx. A threshold <= 0 selects DefaultFuzzyThreshold.
func NewFuzzyResolver(idx *Index, threshold float64) *FuzzyResolver {
	if threshold <= 0 {
		threshold = DefaultFuzzyThreshold
	}
	fr := &FuzzyResolver{Index: idx, Threshold: threshold}
	if idx != nil {
		fr.keys = idx.keys()
	}
	return fr
}

func (f *FuzzyResolver) Resolve(label string) (string, IndicatorMeta, bool) {
	name, meta, ok := f.Index.Resolve(label)
	if ok {
		return name, meta, true
	}
	key, score := f.Closest(label)
	if key == "" || score < f.Threshold {
		return name, meta, false
	}
	canon := f.Index.names[key]
	return canon, f.Index.meta[canon], true
}

// Closest returns the best scoring alias key for label and its similarity.
// Ties resolve to the lexicographically smallest key.
func (f *FuzzyResolver) Closest(label string) (string, float64) {
	q := NormalizeKey(label)
	if utf8.RuneCountInString(q) < minFuzzyKeyLen {
		return "", 0
	}
	best, bestScore := "", 0.0
	for _, k := range f.keys {
		if utf8.RuneCountInString(k) < minFuzzyKeyLen {
			continue
		}
		if s := Similarity(q, k); s > bestScore {
			best, bestScore = k, s
		}
	}
	return best, bestScore
}

// Similarity is 1 - levenshtein(a, b) / max(len(a), len(b)) over runes.
func Similarity(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1 - float64(d)/float64(longest)
}
