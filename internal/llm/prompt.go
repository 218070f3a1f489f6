package llm

import (
	"strings"

	"medj/internal/labs"
)

const unknownHint = "unknown"

// BuildAnalysisPrompt frames the anonymized document text with the user's
// taxonomy hints and the JSON schema the parser expects.
func BuildAnalysisPrompt(text string, hints labs.Hints) string {
	var b strings.Builder
	b.WriteString(systemPrompt(hints))
	b.WriteString("\nDOCUMENT TEXT:\n")
	b.WriteString(text)
	return b.String()
}

func systemPrompt(hints labs.Hints) string {
	return `
You are an expert assistant for medical documents in ` + orUnknown(hints.Specialty) + `.
Extract, structure and summarise the key medical information of this ` + orUnknown(hints.Category) + ` document (type: ` + orUnknown(hints.DocType) + `).

Rules:
- Output MUST be a single valid JSON object.
- Output MUST start with { and end with }.
- NO markdown, NO comments, NO extra text.
- All free text (summary, tags, diagnosis, plan) MUST be in Bulgarian.
- Copy lab names, values, units and reference ranges exactly as printed.
- Omit a key or leave it empty when the document does not contain it. Never use null.

Required JSON schema:
{
  "summary": "2-3 sentence summary",
  "event_date": "YYYY-MM-DD",
  "detected_specialty": "string",
  "suggested_tags": ["3 to 5 short tags"],
  "blood_test_results": [
    {
      "indicator_name": "string",
      "value": "string or number",
      "unit": "string",
      "reference_range": "low - high"
    }
  ],
  "diagnosis": "string",
  "treatment_plan": "string",
  "doctors": [
    {"name": "string", "title": "string", "specialty": "string"}
  ],
  "structured_data": [
    {"type": "blood_test_panel", "panel_name": "string", "results": [ ...same shape as blood_test_results... ]},
    {"type": "narrative_section", "section_title": "string", "section_content": "string"},
    {"type": "detected_practitioner", "name": "string", "title": "string", "inferred_specialty": "string"},
    {"type": "diagnosis", "diagnosis_text": "string", "icd10_code": "string"},
    {"type": "treatment_plan", "plan_text": "string", "medications": ["string"]}
  ]
}
`
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return unknownHint
	}
	return s
}
