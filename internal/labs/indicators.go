package labs

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// IndicatorDefinition is one row of the indicator dictionary.
type IndicatorDefinition struct {
	Name    string
	Names   []string // other language variants of the name
	Unit    string
	RefLow  *float64
	RefHigh *float64
	Aliases []string
}

// IndicatorMeta is what the index remembers about a canonical indicator.
type IndicatorMeta struct {
	Unit    string
	RefLow  *float64
	RefHigh *float64
}

// HasBounds reports whether a default reference range is known.
func (m IndicatorMeta) HasBounds() bool {
	return m.RefLow != nil || m.RefHigh != nil
}

// Resolver maps a free-text label to a canonical indicator name.
type Resolver interface {
	Resolve(label string) (string, IndicatorMeta, bool)
}

// NormalizeKey folds a label into its lookup key: decomposed, diacritics
// stripped, lower-cased, with every run of characters other than letters,
// digits and '%' collapsed to a single space.
func NormalizeKey(s string) string {
	s = norm.NFKD.String(s)
	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '%':
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(unicode.ToLower(r))
		default:
			pendingSpace = true
		}
	}
	return b.String()
}

// Index is an immutable alias → canonical name lookup table.
type Index struct {
	names map[string]string
	meta  map[string]IndicatorMeta
}

// BuildIndex builds an index from definitions in order. When two definitions
// produce the same key the later one wins, so later dictionary rows override
// earlier ones. The canonical name is always registered as its own alias.
func BuildIndex(defs []IndicatorDefinition) *Index {
	idx := &Index{
		names: make(map[string]string),
		meta:  make(map[string]IndicatorMeta),
	}
	for _, d := range defs {
		name := strings.TrimSpace(d.Name)
		if name == "" {
			continue
		}
		idx.meta[name] = IndicatorMeta{
			Unit:    CanonicalUnit(d.Unit),
			RefLow:  d.RefLow,
			RefHigh: d.RefHigh,
		}
		labels := make([]string, 0, 1+len(d.Names)+len(d.Aliases))
		labels = append(labels, name)
		labels = append(labels, d.Names...)
		labels = append(labels, d.Aliases...)
		for _, l := range labels {
			if key := NormalizeKey(l); key != "" {
				idx.names[key] = name
			}
		}
	}
	return idx
}

// Resolve looks the label up by exact normalized key. On a miss it returns
// the trimmed label and empty metadata.
func (idx *Index) Resolve(label string) (string, IndicatorMeta, bool) {
	trimmed := strings.TrimSpace(label)
	if idx == nil {
		return trimmed, IndicatorMeta{}, false
	}
	name, ok := idx.names[NormalizeKey(label)]
	if !ok {
		return trimmed, IndicatorMeta{}, false
	}
	return name, idx.meta[name], true
}

// Meta returns the metadata of a canonical indicator.
func (idx *Index) Meta(name string) (IndicatorMeta, bool) {
	if idx == nil {
		return IndicatorMeta{}, false
	}
	m, ok := idx.meta[name]
	return m, ok
}

// Len is the number of canonical indicators.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.meta)
}

// Names lists canonical indicator names in sorted order.
func (idx *Index) Names() []string {
	if idx == nil {
		return nil
	}
	out := make([]string, 0, len(idx.meta))
	for n := range idx.meta {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// keys lists every alias key, sorted so fuzzy scans are deterministic.
func (idx *Index) keys() []string {
	out := make([]string, 0, len(idx.names))
	for k := range idx.names {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
