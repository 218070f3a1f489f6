package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"medj/internal/labs"
)

// Enrich runs client over text and decodes the answer. Any error means the
// caller should continue with local extraction only.
func Enrich(ctx context.Context, client Client, text string, hints labs.Hints) (*labs.Enrichment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	raw, err := client.Analyze(ctx, text, hints)
	if err != nil {
		return nil, err
	}
	return ParseAnalysis(raw)
}

// ParseAnalysis decodes a model answer into an Enrichment. Text around the
// outermost JSON object is ignored.
func ParseAnalysis(raw string) (*labs.Enrichment, error) {
	body := extractJSON(raw)
	if body == "" {
		return nil, ErrInvalidJSON
	}
	var p analysisPayload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return p.enrichment(), nil
}

func (p analysisPayload) enrichment() *labs.Enrichment {
	e := &labs.Enrichment{
		Summary:           string(p.Summary),
		EventDate:         string(p.EventDate),
		DetectedSpecialty: string(p.DetectedSpecialty),
		SuggestedTags:     []string(p.SuggestedTags),
		BloodTestResults:  rowsOf(p.BloodTestResults),
		Diagnosis:         string(p.Diagnosis),
		TreatmentPlan:     string(p.TreatmentPlan),
		Doctors:           []labs.Doctor(p.Doctors),
	}

	var diagnoses, plans []string
	var narrativeDiagnosis, narrativePlan string
	for _, s := range p.StructuredData {
		switch s.Type {
		case "blood_test_panel":
			e.BloodTestResults = append(e.BloodTestResults, rowsOf(s.Results)...)
		case "detected_practitioner":
			if s.Name != "" {
				e.Doctors = append(e.Doctors, labs.Doctor{
					Name:      string(s.Name),
					Title:     string(s.Title),
					Specialty: string(s.InferredSpecialty),
				})
			}
		case "diagnosis":
			if d := string(s.DiagnosisText); d != "" {
				if s.ICD10Code != "" {
					d += " (" + string(s.ICD10Code) + ")"
				}
				diagnoses = append(diagnoses, d)
			}
		case "treatment_plan":
			plan := string(s.PlanText)
			if len(s.Medications) > 0 {
				meds := strings.Join(s.Medications, ", ")
				if plan == "" {
					plan = meds
				} else {
					plan += " (" + meds + ")"
				}
			}
			if plan != "" {
				plans = append(plans, plan)
			}
		case "narrative_section":
			title := strings.ToLower(string(s.SectionTitle))
			content := string(s.SectionContent)
			switch {
			case content == "":
			case narrativeDiagnosis == "" && containsAny(title, "диагноз", "diagnos"):
				narrativeDiagnosis = content
			case narrativePlan == "" && containsAny(title, "лечение", "препоръ", "treatment", "recommend"):
				narrativePlan = content
			}
		}
	}

	if e.Diagnosis == "" {
		e.Diagnosis = strings.Join(diagnoses, "; ")
	}
	if e.Diagnosis == "" {
		e.Diagnosis = narrativeDiagnosis
	}
	if e.TreatmentPlan == "" {
		e.TreatmentPlan = strings.Join(plans, "; ")
	}
	if e.TreatmentPlan == "" {
		e.TreatmentPlan = narrativePlan
	}
	return e
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// extractJSON returns the outermost {...} of text, or "".
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")

	if start == -1 || end == -1 || end <= start {
		return ""
	}

	return text[start : end+1]
}

// --------------------------------------------------
// Lenient field types
// --------------------------------------------------

// flexStrings accepts a JSON list of strings or one comma separated string.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = nil
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = splitList(s)
		return nil
	}
	var items []any
	if err := json.Unmarshal(data, &items); err != nil {
		// a number or an object; keep whatever text it carries
		var t flexText
		if json.Unmarshal(data, &t) == nil && t != "" {
			*f = []string{string(t)}
		} else {
			*f = nil
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s := strings.TrimSpace(fmt.Sprint(it)); s != "" && it != nil {
			out = append(out, s)
		}
	}
	*f = out
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// flexText accepts a string, a list of strings or an object and flattens it
// to text.
type flexText string

func (f *flexText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexText(strings.TrimSpace(s))
	case '[':
		var items []flexText
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		parts := make([]string, 0, len(items))
		for _, it := range items {
			if it != "" {
				parts = append(parts, string(it))
			}
		}
		*f = flexText(strings.Join(parts, "; "))
	case '{':
		var obj map[string]any
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		for _, key := range []string{"text", "diagnosis_text", "plan_text", "content"} {
			if s, ok := obj[key].(string); ok && strings.TrimSpace(s) != "" {
				*f = flexText(strings.TrimSpace(s))
				return nil
			}
		}
		*f = ""
	default:
		*f = flexText(string(data))
	}
	return nil
}

// flexFloat accepts a number or a numeric string. Anything else decodes to
// no value.
type flexFloat struct {
	v  float64
	ok bool
}

func (f flexFloat) ptr() *float64 {
	if !f.ok {
		return nil
	}
	v := f.v
	return &v
}

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	*f = flexFloat{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if json.Unmarshal(data, &s) == nil {
			f.v, f.ok = labs.ParseFloat(s)
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		if json.Unmarshal(data, &f.v) == nil {
			f.ok = true
		}
	}
	return nil
}

// flexDoctors accepts a list of doctor objects, plain name strings or a
// mix. Entries of any other shape are dropped.
type flexDoctors []labs.Doctor

func (f *flexDoctors) UnmarshalJSON(data []byte) error {
	*f = nil
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		// a lone name or object instead of a list
		items = []json.RawMessage{data}
	}
	for _, it := range items {
		it = bytes.TrimSpace(it)
		if len(it) == 0 {
			continue
		}
		switch it[0] {
		case '"':
			var name flexText
			if json.Unmarshal(it, &name) == nil && name != "" {
				*f = append(*f, labs.Doctor{Name: string(name)})
			}
		case '{':
			var d struct {
				Name      flexText `json:"name"`
				Title     flexText `json:"title"`
				Specialty flexText `json:"specialty"`
			}
			if json.Unmarshal(it, &d) == nil && d.Name != "" {
				*f = append(*f, labs.Doctor{Name: string(d.Name), Title: string(d.Title), Specialty: string(d.Specialty)})
			}
		}
	}
	return nil
}
