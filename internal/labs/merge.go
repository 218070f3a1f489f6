package labs

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	summaryHeadLines    = 4
	summaryMaxRunes     = 800
	maxOverviewFindings = 5

	TagLabResults = "Лабораторни резултати"
	TagBloodTests = "Кръвни изследвания"

	overviewAdvice  = "Results should be interpreted by a physician."
	fallbackSummary = "No readable text was recognised in the document."
)

// Merger reconciles LLM output with locally extracted rows.
type Merger struct {
	Resolver Resolver
	// Redact, when set, is applied to a summary built from the raw text.
	Redact func(string) string
}

// NewMerger returns a merger resolving through r.
func NewMerger(r Resolver) *Merger {
	return &Merger{Resolver: r}
}

// Merge builds the canonical result for one document. enrich may be nil when
// the LLM path failed or was skipped. It never fails: unusable fields fall
// back to their zero value.
func (m *Merger) Merge(enrich *Enrichment, text string, hints Hints) (string, AnalysisResult) {
	if enrich == nil {
		enrich = &Enrichment{}
	}
	local := NewExtractor(m.Resolver).Extract(text)
	rows := m.mergeRows(enrich.BloodTestResults, local)

	var abnormal []LabRow
	for _, r := range rows {
		if r.Status == StatusLow || r.Status == StatusHigh {
			abnormal = append(abnormal, r)
		}
	}

	res := AnalysisResult{
		DetectedSpecialty: strings.TrimSpace(enrich.DetectedSpecialty),
		BloodTestResults:  rows,
		AbnormalFindings:  abnormal,
		Diagnosis:         strings.TrimSpace(enrich.Diagnosis),
		TreatmentPlan:     strings.TrimSpace(enrich.TreatmentPlan),
		Doctors:           cleanDoctors(enrich.Doctors),
	}
	if res.DetectedSpecialty == "" {
		res.DetectedSpecialty = strings.TrimSpace(hints.Specialty)
	}
	if res.BloodTestResults == nil {
		res.BloodTestResults = []LabRow{}
	}
	if res.AbnormalFindings == nil {
		res.AbnormalFindings = []LabRow{}
	}

	res.Summary = m.summary(enrich.Summary, text, rows, abnormal)
	res.SuggestedTags = buildTags(enrich.SuggestedTags, hints, rows, abnormal)

	if d, ok := NormalizeDate(enrich.EventDate); ok {
		res.EventDate = d
	} else if d, ok := FindEventDate(text); ok {
		res.EventDate = d
	}
	return res.Summary, res
}

// --------------------------------------------------
// Rows
// --------------------------------------------------

type rowSet struct {
	order []string
	rows  map[string]*LabRow
}

func newRowSet() *rowSet {
	return &rowSet{rows: make(map[string]*LabRow)}
}

// add inserts r or fills the empty fields of the row already under key.
func (s *rowSet) add(key string, r LabRow) {
	if existing, ok := s.rows[key]; ok {
		fillEmpty(existing, r)
		return
	}
	rc := r
	s.rows[key] = &rc
	s.order = append(s.order, key)
}

func (s *rowSet) list() []LabRow {
	out := make([]LabRow, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, *s.rows[k])
	}
	return out
}

func fillEmpty(dst *LabRow, src LabRow) {
	if dst.Value.IsEmpty() {
		dst.Value = src.Value
	}
	if strings.TrimSpace(dst.Unit) == "" {
		dst.Unit = src.Unit
	}
	if dst.RefLow == nil {
		dst.RefLow = src.RefLow
	}
	if dst.RefHigh == nil {
		dst.RefHigh = src.RefHigh
	}
	if strings.TrimSpace(dst.ReferenceRange) == "" {
		dst.ReferenceRange = src.ReferenceRange
	}
}

func (m *Merger) resolve(label string) (string, IndicatorMeta) {
	if m.Resolver == nil {
		return strings.TrimSpace(label), IndicatorMeta{}
	}
	name, meta, _ := m.Resolver.Resolve(label)
	return name, meta
}

func (m *Merger) mergeRows(external, local []LabRow) []LabRow {
	working := newRowSet()
	for _, r := range external {
		name, _ := m.resolve(r.IndicatorName)
		if name == "" {
			continue
		}
		r.IndicatorName = name
		working.add(NormalizeKey(name), r)
	}
	for _, r := range local {
		name, _ := m.resolve(r.IndicatorName)
		if name == "" {
			continue
		}
		r.IndicatorName = name
		working.add(NormalizeKey(name), r)
	}

	final := newRowSet()
	for _, r := range working.list() {
		r = m.finalize(r)
		final.add(NormalizeKey(r.IndicatorName), r)
	}
	out := final.list()
	// folding may have filled a bound after finalize; recompute derived fields
	for i := range out {
		out[i] = derive(out[i])
	}
	return out
}

// finalize re-resolves the row and fills missing data from the indicator
// dictionary.
func (m *Merger) finalize(r LabRow) LabRow {
	name, meta := m.resolve(r.IndicatorName)
	r.IndicatorName = name

	if r.Value.Num == nil {
		r.Value = TextValue(r.Value.Raw)
	}

	r.Unit = CanonicalUnit(r.Unit)
	if r.Unit == "" {
		r.Unit = meta.Unit
	}

	if !r.HasBounds() && strings.TrimSpace(r.ReferenceRange) != "" {
		r.RefLow, r.RefHigh = parseReferenceText(r.ReferenceRange)
	}
	if !r.HasBounds() && meta.HasBounds() {
		r.RefLow, r.RefHigh = meta.RefLow, meta.RefHigh
	}
	return derive(r)
}

// parseReferenceText reads an LLM supplied reference string. A dash range
// or a comparator bound is used; a single bare number is too ambiguous.
func parseReferenceText(s string) (low, high *float64) {
	if _, _, l, h, ok := findRange(s); ok {
		return l, h
	}
	if _, l, h, ok := findBound(s); ok {
		return l, h
	}
	return nil, nil
}

func derive(r LabRow) LabRow {
	if r.HasBounds() {
		r.ReferenceRange = FormatRange(r.RefLow, r.RefHigh)
	} else {
		r.ReferenceRange = strings.TrimSpace(r.ReferenceRange)
	}
	r.Status = RowStatus(r)
	return r
}

// RowStatus compares a numeric value with whichever bounds are known.
func RowStatus(r LabRow) Status {
	if r.Value.Num == nil || !r.HasBounds() {
		return StatusUnknown
	}
	v := *r.Value.Num
	switch {
	case r.RefLow != nil && v < *r.RefLow:
		return StatusLow
	case r.RefHigh != nil && v > *r.RefHigh:
		return StatusHigh
	default:
		return StatusNormal
	}
}

// --------------------------------------------------
// Summary
// --------------------------------------------------

func (m *Merger) summary(external, text string, rows, abnormal []LabRow) string {
	summary := strings.TrimSpace(external)
	if summary == "" {
		summary = headLines(text, summaryHeadLines, summaryMaxRunes)
		if summary != "" && m.Redact != nil {
			summary = strings.TrimSpace(m.Redact(summary))
		}
	}
	if len(rows) > 0 {
		overview := LabOverview(rows, abnormal)
		if !strings.Contains(summary, overview) {
			if summary == "" {
				summary = overview
			} else {
				summary += "\n\n" + overview
			}
		}
	}
	if summary == "" {
		summary = fallbackSummary
	}
	return summary
}

// headLines joins the first n non-empty lines of text, cut to limit runes.
func headLines(text string, n, limit int) string {
	var parts []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		parts = append(parts, line)
		if len(parts) == n {
			break
		}
	}
	s := strings.Join(parts, " ")
	if utf8.RuneCountInString(s) > limit {
		s = strings.TrimSpace(string([]rune(s)[:limit]))
	}
	return s
}

// LabOverview renders the one-paragraph digest appended to summaries.
func LabOverview(rows, abnormal []LabRow) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Identified %d lab indicators", len(rows))
	if len(abnormal) == 0 {
		b.WriteString("; none outside the reference range.")
	} else {
		fmt.Fprintf(&b, "; %d outside the reference range: ", len(abnormal))
		shown := abnormal
		if len(shown) > maxOverviewFindings {
			shown = shown[:maxOverviewFindings]
		}
		for i, r := range shown {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(describeFinding(r))
		}
		if extra := len(abnormal) - len(shown); extra > 0 {
			fmt.Fprintf(&b, " and %d more", extra)
		}
		b.WriteString(".")
	}
	b.WriteString(" ")
	b.WriteString(overviewAdvice)
	return b.String()
}

func describeFinding(r LabRow) string {
	val := r.Value.String()
	if r.Unit != "" {
		val += " " + r.Unit
	}
	if r.ReferenceRange != "" {
		val += ", ref " + r.ReferenceRange
	}
	return fmt.Sprintf("%s %s (%s)", r.IndicatorName, r.Status, val)
}

// --------------------------------------------------
// Tags
// --------------------------------------------------

func buildTags(external []string, hints Hints, rows, abnormal []LabRow) []string {
	tags := newTagSet()
	for _, t := range external {
		tags.add(t)
	}
	tags.add(hints.DocType)
	tags.add(hints.Specialty)
	if len(rows) > 0 {
		tags.add(TagLabResults)
		tags.add(TagBloodTests)
	}
	for _, r := range abnormal {
		tags.add(r.IndicatorName)
	}
	return tags.list
}

type tagSet struct {
	seen map[string]bool
	list []string
}

func newTagSet() *tagSet {
	return &tagSet{seen: make(map[string]bool), list: []string{}}
}

func (t *tagSet) add(tag string) {
	tag = strings.Join(strings.Fields(tag), " ")
	if tag == "" {
		return
	}
	key := strings.ToLower(tag)
	if t.seen[key] {
		return
	}
	t.seen[key] = true
	t.list = append(t.list, tag)
}

func cleanDoctors(in []Doctor) []Doctor {
	out := make([]Doctor, 0, len(in))
	seen := make(map[string]bool)
	for _, d := range in {
		d.Name = strings.TrimSpace(d.Name)
		d.Title = strings.TrimSpace(d.Title)
		d.Specialty = strings.TrimSpace(d.Specialty)
		key := strings.ToLower(d.Name)
		if d.Name == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	return out
}
