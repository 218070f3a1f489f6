package labs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const labReport = "Клинична лаборатория\n" +
	"HGB 100 g/L 115-155\n" +
	"Глюкоза 5.1 mmol/L 3.9-6.1\n"

func TestRowStatus(t *testing.T) {
	row := func(v *float64) LabRow {
		r := LabRow{RefLow: floatPtr(115), RefHigh: floatPtr(155)}
		if v != nil {
			r.Value = NumberValue(*v)
		}
		return r
	}
	assert.Equal(t, StatusNormal, RowStatus(row(floatPtr(120))))
	assert.Equal(t, StatusLow, RowStatus(row(floatPtr(100))))
	assert.Equal(t, StatusHigh, RowStatus(row(floatPtr(200))))
	assert.Equal(t, StatusUnknown, RowStatus(row(nil)))
	assert.Equal(t, StatusUnknown, RowStatus(LabRow{Value: NumberValue(1)}))
	assert.Equal(t, StatusHigh, RowStatus(LabRow{Value: NumberValue(7), RefHigh: floatPtr(5)}))
}

func TestMergeLocalOnly(t *testing.T) {
	m := NewMerger(testIndex())
	summary, res := m.Merge(nil, labReport, Hints{})

	require.Len(t, res.BloodTestResults, 2)
	hgb := res.BloodTestResults[0]
	assert.Equal(t, "Хемоглобин", hgb.IndicatorName)
	assert.Equal(t, StatusLow, hgb.Status)
	assert.Equal(t, "115-155", hgb.ReferenceRange)
	assert.Equal(t, StatusNormal, res.BloodTestResults[1].Status)

	require.Len(t, res.AbnormalFindings, 1)
	assert.Equal(t, "Хемоглобин", res.AbnormalFindings[0].IndicatorName)

	assert.Equal(t, res.Summary, summary)
	assert.True(t, strings.HasPrefix(summary, "Клинична лаборатория HGB 100 g/L 115-155"))
	assert.Contains(t, summary, "Identified 2 lab indicators; 1 outside the reference range")
	assert.Contains(t, summary, "Хемоглобин low (100 g/L, ref 115-155)")
	assert.Contains(t, summary, overviewAdvice)

	assert.Equal(t, []string{TagLabResults, TagBloodTests, "Хемоглобин"}, res.SuggestedTags)
	assert.Empty(t, res.EventDate)
}

func TestMergeIsIdempotent(t *testing.T) {
	m := NewMerger(testIndex())
	_, first := m.Merge(nil, labReport, Hints{})
	_, second := m.Merge(nil, labReport, Hints{})
	assert.Equal(t, first, second)

	// feeding a finished result back in as external input changes nothing
	_, again := m.Merge(&Enrichment{
		Summary:          first.Summary,
		SuggestedTags:    first.SuggestedTags,
		BloodTestResults: first.BloodTestResults,
	}, labReport, Hints{})
	assert.Equal(t, first.BloodTestResults, again.BloodTestResults)
	assert.Equal(t, first.Summary, again.Summary)
	assert.Equal(t, first.SuggestedTags, again.SuggestedTags)
}

func TestMergeNeverOverwritesExternalFields(t *testing.T) {
	m := NewMerger(testIndex())
	enrich := &Enrichment{
		BloodTestResults: []LabRow{
			{IndicatorName: "Hemoglobin", Unit: "g/L"},
		},
	}
	_, res := m.Merge(enrich, "HGB 12.0 g/dL 11.5-15.5", Hints{})

	require.Len(t, res.BloodTestResults, 1)
	r := res.BloodTestResults[0]
	assert.Equal(t, "Хемоглобин", r.IndicatorName)
	assert.Equal(t, "g/L", r.Unit)
	assert.Equal(t, "12", r.Value.String())
	assert.Equal(t, floatPtr(11.5), r.RefLow)
	assert.Equal(t, floatPtr(15.5), r.RefHigh)
	assert.Equal(t, StatusNormal, r.Status)
}

func TestMergeExternalRows(t *testing.T) {
	m := NewMerger(testIndex())
	enrich := &Enrichment{
		BloodTestResults: []LabRow{
			{IndicatorName: "Glucose", Value: TextValue("7,2"), ReferenceRange: "3.9 - 6.1"},
			{IndicatorName: "CRP", Value: TextValue("positive")},
			{IndicatorName: "  "},
			{IndicatorName: "GLU", Unit: "mmol/l"},
		},
	}
	_, res := m.Merge(enrich, "", Hints{})

	require.Len(t, res.BloodTestResults, 2)
	glu := res.BloodTestResults[0]
	assert.Equal(t, "Глюкоза", glu.IndicatorName)
	assert.Equal(t, "mmol/L", glu.Unit)
	assert.Equal(t, StatusHigh, glu.Status)
	assert.Equal(t, "3.9-6.1", glu.ReferenceRange)

	crp := res.BloodTestResults[1]
	assert.Equal(t, "C-реактивен протеин", crp.IndicatorName)
	assert.Nil(t, crp.Value.Num)
	assert.Equal(t, "positive", crp.Value.Raw)
	assert.Equal(t, "mg/L", crp.Unit)
	assert.Equal(t, "-5", crp.ReferenceRange)
	assert.Equal(t, StatusUnknown, crp.Status)
}

func TestMergeSummaryAndTags(t *testing.T) {
	m := NewMerger(testIndex())
	m.Redact = strings.ToUpper

	enrich := &Enrichment{
		SuggestedTags:     []string{"Кардиология", "лабораторни резултати", " "},
		DetectedSpecialty: " Кардиология ",
		EventDate:         "not a date",
		Doctors:           []Doctor{{Name: " Д-р Иванов "}, {Name: "д-р иванов"}, {Name: ""}},
	}
	hints := Hints{Specialty: "Кардиология", DocType: "Лабораторни изследвания"}
	_, res := m.Merge(enrich, "Проба от 05.02.2024\n"+labReport, hints)

	assert.True(t, strings.HasPrefix(res.Summary, "ПРОБА ОТ 05.02.2024"))
	assert.Equal(t, "Кардиология", res.DetectedSpecialty)
	assert.Equal(t, "2024-02-05", res.EventDate)
	assert.Equal(t, []string{
		"Кардиология",
		"лабораторни резултати",
		"Лабораторни изследвания",
		TagBloodTests,
		"Хемоглобин",
	}, res.SuggestedTags)
	require.Len(t, res.Doctors, 1)
	assert.Equal(t, "Д-р Иванов", res.Doctors[0].Name)

	// an external summary is kept and not redacted
	enrich.Summary = "Кратко резюме."
	_, res = m.Merge(enrich, labReport, hints)
	assert.True(t, strings.HasPrefix(res.Summary, "Кратко резюме.\n\nIdentified 2 lab indicators"))
}

func TestMergeEmptyInput(t *testing.T) {
	summary, res := NewMerger(nil).Merge(nil, "", Hints{Specialty: "Ендокринология"})
	assert.Equal(t, fallbackSummary, summary)
	assert.NotNil(t, res.BloodTestResults)
	assert.NotNil(t, res.AbnormalFindings)
	assert.Equal(t, []string{"Ендокринология"}, res.SuggestedTags)
	assert.Equal(t, "Ендокринология", res.DetectedSpecialty)
	assert.Empty(t, res.Doctors)
}

func TestLabOverviewLimitsFindings(t *testing.T) {
	var abnormal []LabRow
	for _, name := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		abnormal = append(abnormal, LabRow{IndicatorName: name, Value: NumberValue(1), Status: StatusHigh})
	}
	s := LabOverview(abnormal, abnormal)
	assert.Contains(t, s, "Identified 7 lab indicators; 7 outside the reference range")
	assert.Contains(t, s, "E high (1)")
	assert.NotContains(t, s, "F high")
	assert.Contains(t, s, "and 2 more.")
}
