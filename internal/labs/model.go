package labs

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Status classifies a measurement against its reference range.
type Status string

const (
	StatusUnknown Status = "unknown"
	StatusNormal  Status = "normal"
	StatusLow     Status = "low"
	StatusHigh    Status = "high"
)

// Value is a measurement value. Num is set when the value parsed as a number,
// otherwise Raw keeps the original text ("positive", "++", ...).
type Value struct {
	Num *float64
	Raw string
}

// NumberValue wraps a float as a Value.
func NumberValue(f float64) Value {
	return Value{Num: &f}
}

// TextValue builds a Value from text, parsing it when possible.
func TextValue(s string) Value {
	s = strings.TrimSpace(s)
	if f, ok := ParseFloat(s); ok {
		return Value{Num: &f, Raw: s}
	}
	return Value{Raw: s}
}

// IsEmpty reports whether neither a number nor any text is present.
func (v Value) IsEmpty() bool {
	return v.Num == nil && strings.TrimSpace(v.Raw) == ""
}

// String renders the value for summaries.
func (v Value) String() string {
	if v.Num != nil {
		return FormatNumber(v.Num)
	}
	return strings.TrimSpace(v.Raw)
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.Num != nil {
		return []byte(strconv.FormatFloat(*v.Num, 'f', -1, 64)), nil
	}
	if v.Raw == "" {
		return []byte("null"), nil
	}
	return json.Marshal(v.Raw)
}

// UnmarshalJSON accepts numbers, numeric strings and free text.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Value{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = TextValue(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		// bools and objects from a sloppy model end up as raw text
		*v = Value{Raw: string(data)}
		return nil
	}
	*v = NumberValue(f)
	return nil
}

// LabRow is one measurement candidate, produced by the extractor or supplied
// by the LLM and reconciled by the Merger.
type LabRow struct {
	IndicatorName  string   `json:"indicator_name"`
	Value          Value    `json:"value"`
	Unit           string   `json:"unit,omitempty"`
	RefLow         *float64 `json:"ref_low,omitempty"`
	RefHigh        *float64 `json:"ref_high,omitempty"`
	ReferenceRange string   `json:"reference_range,omitempty"`
	Status         Status   `json:"status,omitempty"`
}

// HasBounds reports whether at least one reference bound is known.
func (r LabRow) HasBounds() bool {
	return r.RefLow != nil || r.RefHigh != nil
}

// Doctor is a practitioner mentioned in the document.
type Doctor struct {
	Name      string `json:"name"`
	Title     string `json:"title,omitempty"`
	Specialty string `json:"specialty,omitempty"`
}

// Hints carries the user-selected taxonomy labels for a document.
type Hints struct {
	Specialty string `json:"specialty,omitempty"`
	Category  string `json:"category,omitempty"`
	DocType   string `json:"doc_type,omitempty"`
}

// Enrichment is the decoded, untrusted payload of the LLM path.
// Every field is optional.
type Enrichment struct {
	Summary           string   `json:"summary"`
	EventDate         string   `json:"event_date"`
	DetectedSpecialty string   `json:"detected_specialty"`
	SuggestedTags     []string `json:"suggested_tags"`
	BloodTestResults  []LabRow `json:"blood_test_results"`
	Diagnosis         string   `json:"diagnosis"`
	TreatmentPlan     string   `json:"treatment_plan"`
	Doctors           []Doctor `json:"doctors"`
}

// AnalysisResult is the merged, canonical output for one document.
type AnalysisResult struct {
	Summary           string   `json:"summary"`
	EventDate         string   `json:"event_date,omitempty"`
	DetectedSpecialty string   `json:"detected_specialty"`
	SuggestedTags     []string `json:"suggested_tags"`
	BloodTestResults  []LabRow `json:"blood_test_results"`
	AbnormalFindings  []LabRow `json:"abnormal_findings"`
	Diagnosis         string   `json:"diagnosis"`
	TreatmentPlan     string   `json:"treatment_plan"`
	Doctors           []Doctor `json:"doctors"`
}
