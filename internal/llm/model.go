package llm

import "medj/internal/labs"

// --------------------------------------------------
// Gemini wire format
// --------------------------------------------------

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// --------------------------------------------------
// Analysis payload
// --------------------------------------------------

// analysisPayload is the model's answer. Both the flat keys and the
// structured_data list are accepted; models mix them freely.
type analysisPayload struct {
	Summary           flexText          `json:"summary"`
	EventDate         flexText          `json:"event_date"`
	DetectedSpecialty flexText          `json:"detected_specialty"`
	SuggestedTags     flexStrings       `json:"suggested_tags"`
	BloodTestResults  []labRow          `json:"blood_test_results"`
	Diagnosis         flexText          `json:"diagnosis"`
	TreatmentPlan     flexText          `json:"treatment_plan"`
	Doctors           flexDoctors       `json:"doctors"`
	StructuredData    []structuredEntry `json:"structured_data"`
}

// labRow is a measurement as the model writes it. Every field decodes
// leniently; a field of the wrong type ends up empty instead of failing the
// whole answer.
type labRow struct {
	IndicatorName  flexText   `json:"indicator_name"`
	Value          labs.Value `json:"value"`
	Unit           flexText   `json:"unit"`
	RefLow         flexFloat  `json:"ref_low"`
	RefHigh        flexFloat  `json:"ref_high"`
	ReferenceRange flexText   `json:"reference_range"`
}

func (r labRow) row() labs.LabRow {
	return labs.LabRow{
		IndicatorName:  string(r.IndicatorName),
		Value:          r.Value,
		Unit:           string(r.Unit),
		RefLow:         r.RefLow.ptr(),
		RefHigh:        r.RefHigh.ptr(),
		ReferenceRange: string(r.ReferenceRange),
	}
}

func rowsOf(in []labRow) []labs.LabRow {
	if len(in) == 0 {
		return nil
	}
	out := make([]labs.LabRow, 0, len(in))
	for _, r := range in {
		out = append(out, r.row())
	}
	return out
}

// structuredEntry is one typed item of structured_data. Only the fields of
// its type are populated.
type structuredEntry struct {
	Type flexText `json:"type"`

	// blood_test_panel
	PanelName flexText `json:"panel_name"`
	Results   []labRow `json:"results"`

	// narrative_section
	SectionTitle   flexText `json:"section_title"`
	SectionContent flexText `json:"section_content"`

	// detected_practitioner
	Name              flexText `json:"name"`
	Title             flexText `json:"title"`
	InferredSpecialty flexText `json:"inferred_specialty"`

	// diagnosis
	DiagnosisText flexText `json:"diagnosis_text"`
	ICD10Code     flexText `json:"icd10_code"`

	// treatment_plan
	PlanText    flexText    `json:"plan_text"`
	Medications flexStrings `json:"medications"`
}
