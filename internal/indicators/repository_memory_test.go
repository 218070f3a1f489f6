package indicators

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medj/internal/labs"
)

func f(v float64) *float64 { return &v }

func TestImportCreatesAndUpdates(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()

	stats, err := Import(ctx, repo, []labs.IndicatorDefinition{
		{Name: "Хемоглобин", Names: []string{"Hemoglobin"}, Unit: "g/L", RefLow: f(120), Aliases: []string{"HGB", "hb"}},
		{Name: "Глюкоза", Aliases: []string{"GLU"}},
	}, false)
	require.NoError(t, err)
	assert.Equal(t, ImportStats{Created: 2, Aliases: 3}, stats)

	// matched through the English name, not updated without the flag
	stats, err = Import(ctx, repo, []labs.IndicatorDefinition{
		{Name: "hemoglobin", RefLow: f(115), Aliases: []string{"HGB", "Хгб"}},
	}, false)
	require.NoError(t, err)
	assert.Equal(t, ImportStats{Skipped: 1, Aliases: 1}, stats)

	defs, _ := repo.LoadDefinitions(ctx)
	require.Len(t, defs, 2)
	assert.Equal(t, 120.0, *defs[0].RefLow)
	assert.Equal(t, []string{"hgb", "hb", "хгб"}, defs[0].Aliases)

	stats, err = Import(ctx, repo, []labs.IndicatorDefinition{
		{Name: "Хемоглобин", RefLow: f(115)},
	}, true)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Updated)

	defs, _ = repo.LoadDefinitions(ctx)
	assert.Equal(t, 115.0, *defs[0].RefLow)
	assert.Equal(t, "g/L", defs[0].Unit)
}
