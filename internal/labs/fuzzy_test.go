package labs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("abcd", "abcd"))
	assert.Equal(t, 1.0, Similarity("", ""))
	assert.InDelta(t, 0.9, Similarity("хемоглобин", "хемоглобн"), 1e-9)
	assert.InDelta(t, 0.0, Similarity("abc", "xyz"), 1e-9)
}

func TestFuzzyResolverFallsBackToClosestKey(t *testing.T) {
	fr := NewFuzzyResolver(testIndex(), 0)
	assert.Equal(t, DefaultFuzzyThreshold, fr.Threshold)

	name, meta, ok := fr.Resolve("Хемоглобн")
	require.True(t, ok)
	assert.Equal(t, "Хемоглобин", name)
	assert.NotNil(t, meta.RefHigh)

	name, _, ok = fr.Resolve("Erythrocytez")
	require.True(t, ok)
	assert.Equal(t, "Еритроцити", name)
}

func TestFuzzyResolverExactFirst(t *testing.T) {
	fr := NewFuzzyResolver(testIndex(), 0.99)
	name, _, ok := fr.Resolve("GLU")
	require.True(t, ok)
	assert.Equal(t, "Глюкоза", name)
}

func TestFuzzyResolverRejectsDistantAndShortLabels(t *testing.T) {
	fr := NewFuzzyResolver(testIndex(), 0)

	name, meta, ok := fr.Resolve("Холестерол")
	assert.False(t, ok)
	assert.Equal(t, "Холестерол", name)
	assert.Equal(t, IndicatorMeta{}, meta)

	// one edit away from "Hb", but too short for the fuzzy pass
	_, _, ok = fr.Resolve("Hc")
	assert.False(t, ok)
}
