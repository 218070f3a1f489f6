package labs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSingleLine(t *testing.T) {
	rows := NewExtractor(nil).Extract("Еритроцити 4.87 T/L 3.70-5.4")
	require.Len(t, rows, 1)

	r := rows[0]
	assert.Equal(t, "Еритроцити", r.IndicatorName)
	require.NotNil(t, r.Value.Num)
	assert.InDelta(t, 4.87, *r.Value.Num, 1e-9)
	assert.Equal(t, "T/L", r.Unit)
	assert.Equal(t, floatPtr(3.70), r.RefLow)
	assert.Equal(t, floatPtr(5.4), r.RefHigh)
	assert.Equal(t, "3.7-5.4", r.ReferenceRange)
}

func TestExtractResolvesAndDeduplicates(t *testing.T) {
	text := Sanitize("HGB: 120 g/L 115 – 155\n" +
		"Hb 130 g/L 115-155\n" +
		"RBC 4,5 T/L 3,7-5,4\n")
	rows := NewExtractor(testIndex()).Extract(text)
	require.Len(t, rows, 2)

	assert.Equal(t, "Хемоглобин", rows[0].IndicatorName)
	assert.Equal(t, "120", rows[0].Value.String())
	assert.Equal(t, "g/L", rows[0].Unit)
	assert.Equal(t, floatPtr(115), rows[0].RefLow)
	assert.Equal(t, floatPtr(155), rows[0].RefHigh)

	assert.Equal(t, "Еритроцити", rows[1].IndicatorName)
	assert.Equal(t, "4.5", rows[1].Value.String())
}

func TestExtractNameWithDigits(t *testing.T) {
	rows := NewExtractor(nil).Extract("HbA1c 5.6 % 4-6\nVitamin B12 350 pg/mL 200-900")
	require.Len(t, rows, 2)
	assert.Equal(t, "HbA1c", rows[0].IndicatorName)
	assert.Equal(t, "5.6", rows[0].Value.String())
	assert.Equal(t, "%", rows[0].Unit)
	assert.Equal(t, "Vitamin B12", rows[1].IndicatorName)
	assert.Equal(t, "350", rows[1].Value.String())
	assert.Equal(t, "pg/mL", rows[1].Unit)
}

func TestExtractComparatorBound(t *testing.T) {
	rows := NewExtractor(nil).Extract("CRP 3.2 mg/L < 5")
	require.Len(t, rows, 1)
	assert.Equal(t, "mg/L", rows[0].Unit)
	assert.Nil(t, rows[0].RefLow)
	assert.Equal(t, floatPtr(5), rows[0].RefHigh)
}

func TestExtractBackfillsBoundsFromDictionary(t *testing.T) {
	rows := NewExtractor(testIndex()).Extract("Глюкоза 5.1 mmol/L")
	require.Len(t, rows, 1)
	assert.Equal(t, floatPtr(3.9), rows[0].RefLow)
	assert.Equal(t, floatPtr(6.1), rows[0].RefHigh)
	assert.Equal(t, "mmol/L", rows[0].Unit)
}

func TestExtractSkipsNoise(t *testing.T) {
	text := "Резултат 1 от 2\n" +
		"Panel 3\n" +
		"K 4.1\n" +
		"Дата: 12.03.2024 г.\n" +
		"12345 678\n" +
		"Без числа тук\n"
	assert.Empty(t, NewExtractor(nil).Extract(text))
}

func TestExtractFlagsAfterUnit(t *testing.T) {
	rows := NewExtractor(nil).Extract("Левкоцити 12.4 G/L H")
	require.Len(t, rows, 1)
	assert.Equal(t, "G/L", rows[0].Unit)
	assert.Nil(t, rows[0].RefLow)
}

func TestExtractSignedValue(t *testing.T) {
	rows := NewExtractor(nil).Extract("Base excess: -2.1 mmol/L\nCRP-5 mg/L")
	require.Len(t, rows, 2)
	assert.Equal(t, "-2.1", rows[0].Value.String())
	assert.Equal(t, "CRP", rows[1].IndicatorName)
	assert.Equal(t, "5", rows[1].Value.String())
}

func TestExtractBracketedRange(t *testing.T) {
	text := "Хемоглобин 120 g/L (115-155)\n" +
		"Глюкоза 5.1 mmol/L [3.9 - 6.1]\n" +
		"Креатинин 80 µmol/L (62 - 106) N\n" +
		"Калий 4.1 mmol/L ( 3.5-5.1 )\n"
	rows := NewExtractor(nil).Extract(text)
	require.Len(t, rows, 4)

	want := []struct {
		unit      string
		low, high float64
	}{
		{"g/L", 115, 155},
		{"mmol/L", 3.9, 6.1},
		{"µmol/L", 62, 106},
		{"mmol/L", 3.5, 5.1},
	}
	for i, w := range want {
		assert.Equal(t, w.unit, rows[i].Unit, rows[i].IndicatorName)
		assert.Equal(t, floatPtr(w.low), rows[i].RefLow, rows[i].IndicatorName)
		assert.Equal(t, floatPtr(w.high), rows[i].RefHigh, rows[i].IndicatorName)
	}
}
