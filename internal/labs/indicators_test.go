package labs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIndex() *Index {
	return BuildIndex([]IndicatorDefinition{
		{Name: "Хемоглобин", Names: []string{"Hemoglobin"}, Unit: "g/l", RefLow: floatPtr(115), RefHigh: floatPtr(155), Aliases: []string{"HGB", "Hb"}},
		{Name: "Глюкоза", Names: []string{"Glucose"}, Unit: "MMOL/L", RefLow: floatPtr(3.9), RefHigh: floatPtr(6.1), Aliases: []string{"GLU"}},
		{Name: "Еритроцити", Names: []string{"Erythrocytes"}, Unit: "T/L", Aliases: []string{"RBC"}},
		{Name: "C-реактивен протеин", Aliases: []string{"CRP", "ЦРП"}, Unit: "mg/L", RefHigh: floatPtr(5)},
	})
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "ca total", NormalizeKey("Ca++ (total)"))
	assert.Equal(t, "cafe creme", NormalizeKey("Café-Crème"))
	assert.Equal(t, "hba1c %", NormalizeKey("  HbA1c, % "))
	assert.Equal(t, "хемоглобин", NormalizeKey("ХЕМОГЛОБИН:"))
	assert.Equal(t, "", NormalizeKey(" -- "))
}

func TestResolve(t *testing.T) {
	idx := testIndex()

	name, meta, ok := idx.Resolve("hgb")
	require.True(t, ok)
	assert.Equal(t, "Хемоглобин", name)
	assert.Equal(t, "g/l", meta.Unit)
	require.NotNil(t, meta.RefLow)
	assert.Equal(t, 115.0, *meta.RefLow)

	name, _, ok = idx.Resolve("Hemoglobin")
	require.True(t, ok)
	assert.Equal(t, "Хемоглобин", name)

	name, _, ok = idx.Resolve("хемоглобин")
	require.True(t, ok)
	assert.Equal(t, "Хемоглобин", name)

	name, meta, ok = idx.Resolve(" unknown-token ")
	assert.False(t, ok)
	assert.Equal(t, "unknown-token", name)
	assert.Equal(t, IndicatorMeta{}, meta)
}

func TestBuildIndexStoresCanonicalUnit(t *testing.T) {
	meta, ok := testIndex().Meta("Глюкоза")
	require.True(t, ok)
	assert.Equal(t, "mmol/L", meta.Unit)
}

func TestBuildIndexLaterDefinitionWins(t *testing.T) {
	idx := BuildIndex([]IndicatorDefinition{
		{Name: "Калий", Aliases: []string{"K"}},
		{Name: "Kalium", Aliases: []string{"k"}},
	})
	name, _, ok := idx.Resolve("K")
	require.True(t, ok)
	assert.Equal(t, "Kalium", name)

	// the earlier definition still answers to its own name
	name, _, ok = idx.Resolve("калий")
	require.True(t, ok)
	assert.Equal(t, "Калий", name)
	assert.Equal(t, 2, idx.Len())
	assert.Equal(t, []string{"Kalium", "Калий"}, idx.Names())
}

func TestNilIndex(t *testing.T) {
	var idx *Index
	name, _, ok := idx.Resolve(" x ")
	assert.False(t, ok)
	assert.Equal(t, "x", name)
	assert.Zero(t, idx.Len())
}
