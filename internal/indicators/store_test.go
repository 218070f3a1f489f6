package indicators

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medj/internal/labs"
)

type failingLoader struct{}

func (failingLoader) LoadDefinitions(ctx context.Context) ([]labs.IndicatorDefinition, error) {
	return nil, errors.New("db down")
}

func TestStoreReloadSwapsSnapshot(t *testing.T) {
	repo := NewInMemoryRepository(labs.IndicatorDefinition{Name: "Хемоглобин", Aliases: []string{"HGB"}})
	s := NewStore(repo, labs.DefaultFuzzyThreshold)

	assert.Equal(t, 0, s.Current().Len())
	assert.True(t, s.BuiltAt().IsZero())
	_, _, ok := s.Resolve("HGB")
	assert.False(t, ok)

	require.NoError(t, s.Reload(context.Background()))
	assert.Equal(t, 1, s.Current().Len())
	assert.False(t, s.BuiltAt().IsZero())

	name, _, ok := s.Resolve("hgb")
	require.True(t, ok)
	assert.Equal(t, "Хемоглобин", name)

	// fuzzy fallback through the snapshot resolver
	name, _, ok = s.Resolve("Хемоглобн")
	require.True(t, ok)
	assert.Equal(t, "Хемоглобин", name)
}

func TestStoreKeepsSnapshotOnFailure(t *testing.T) {
	s := NewStore(NewInMemoryRepository(labs.IndicatorDefinition{Name: "Глюкоза"}), 0)
	require.NoError(t, s.Reload(context.Background()))
	built := s.BuiltAt()

	s.loader = failingLoader{}
	assert.Error(t, s.Reload(context.Background()))
	assert.Equal(t, 1, s.Current().Len())
	assert.Equal(t, built, s.BuiltAt())
}

func TestStoreSnapshotIsPinned(t *testing.T) {
	s := NewStore(NewInMemoryRepository(labs.IndicatorDefinition{Name: "Хемоглобин", Aliases: []string{"HGB"}}), 0)
	require.NoError(t, s.Reload(context.Background()))
	pinned := s.Snapshot()

	s.loader = NewInMemoryRepository(labs.IndicatorDefinition{Name: "Hemoglobin", Aliases: []string{"HGB"}})
	require.NoError(t, s.Reload(context.Background()))

	name, _, ok := pinned.Resolve("HGB")
	require.True(t, ok)
	assert.Equal(t, "Хемоглобин", name)

	name, _, ok = s.Snapshot().Resolve("HGB")
	require.True(t, ok)
	assert.Equal(t, "Hemoglobin", name)
}

func TestPublishInvalidationWithoutRedis(t *testing.T) {
	assert.NoError(t, PublishInvalidation(context.Background(), nil))
}

func TestStoreConcurrentReadsDuringReload(t *testing.T) {
	s := NewStore(NewInMemoryRepository(Defaults()...), 0)
	require.NoError(t, s.Reload(context.Background()))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _, ok := s.Resolve("HGB")
				assert.True(t, ok)
			}
		}()
	}
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Reload(context.Background()))
	}
	wg.Wait()
}

func TestStoreWithoutLoader(t *testing.T) {
	s := NewStore(nil, 0)
	assert.Error(t, s.Reload(context.Background()))
	assert.Error(t, s.Invalidate(context.Background()))
}

func TestStartRefreshValidatesSpec(t *testing.T) {
	s := NewStore(NewInMemoryRepository(), 0)
	assert.NoError(t, s.StartRefresh(""))
	assert.Error(t, s.StartRefresh("not a schedule"))
	require.NoError(t, s.StartRefresh("@every 1h"))
	s.Stop()
}
