package indicators

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"medj/internal/labs"
)

// InvalidationChannel is the Redis channel reload requests travel on.
const InvalidationChannel = "medj:indicators:reload"

type snapshot struct {
	index    *labs.Index
	resolver *labs.FuzzyResolver
	builtAt  time.Time
}

// Store holds the current dictionary snapshot. Readers never block: a
// reload builds a complete new index and swaps the pointer.
type Store struct {
	loader    Loader
	threshold float64

	current  atomic.Pointer[snapshot]
	reloadMu sync.Mutex

	rdb  *redis.Client
	cron *cron.Cron
}

// NewStore returns a store with an empty snapshot. Call Reload to fill it.
func NewStore(loader Loader, fuzzyThreshold float64) *Store {
	s := &Store{loader: loader, threshold: fuzzyThreshold}
	s.swap(labs.BuildIndex(nil), time.Time{})
	return s
}

// WithRedis enables cross-process invalidation over pub/sub.
func (s *Store) WithRedis(rdb *redis.Client) *Store {
	s.rdb = rdb
	return s
}

func (s *Store) swap(idx *labs.Index, at time.Time) {
	s.current.Store(&snapshot{
		index:    idx,
		resolver: labs.NewFuzzyResolver(idx, s.threshold),
		builtAt:  at,
	})
}

// Current returns the active index.
func (s *Store) Current() *labs.Index {
	return s.current.Load().index
}

// BuiltAt is when the active snapshot was built; zero before the first
// successful Reload.
func (s *Store) BuiltAt() time.Time {
	return s.current.Load().builtAt
}

// Resolve implements labs.Resolver against the active snapshot, with fuzzy
// fallback.
func (s *Store) Resolve(label string) (string, labs.IndicatorMeta, bool) {
	return s.current.Load().resolver.Resolve(label)
}

// Snapshot returns the resolver of the active snapshot. Later reloads do not
// affect it, so one document is resolved against a single dictionary.
func (s *Store) Snapshot() labs.Resolver {
	return s.current.Load().resolver
}

// Reload loads the dictionary and swaps it in. On error the previous
// snapshot stays active.
func (s *Store) Reload(ctx context.Context) error {
	if s.loader == nil {
		return errors.New("indicators: no loader configured")
	}
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	started := time.Now()
	defs, err := s.loader.LoadDefinitions(ctx)
	if err != nil {
		log.WithError(err).Warn("⚠️ indicator reload failed, keeping previous snapshot")
		return err
	}
	idx := labs.BuildIndex(defs)
	s.swap(idx, time.Now())

	log.WithFields(logrus.Fields{
		"indicators": idx.Len(),
		"took":       time.Since(started).String(),
	}).Info("🔁 indicator snapshot rebuilt")
	return nil
}

// Invalidate reloads locally and asks every other process to reload.
func (s *Store) Invalidate(ctx context.Context) error {
	if err := s.Reload(ctx); err != nil {
		return err
	}
	if err := PublishInvalidation(ctx, s.rdb); err != nil {
		log.WithError(err).Warn("⚠️ could not publish indicator invalidation")
	}
	return nil
}

// PublishInvalidation asks every process watching InvalidationChannel to
// reload. A nil client is a no-op.
func PublishInvalidation(ctx context.Context, rdb *redis.Client) error {
	if rdb == nil {
		return nil
	}
	return rdb.Publish(ctx, InvalidationChannel, time.Now().UTC().Format(time.RFC3339)).Err()
}

// Watch reloads on every invalidation message until ctx is done. It returns
// immediately when Redis is not configured.
func (s *Store) Watch(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	sub := s.rdb.Subscribe(ctx, InvalidationChannel)
	defer sub.Close()

	log.WithField("channel", InvalidationChannel).Info("👂 listening for indicator invalidations")
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			_ = s.Reload(ctx)
		}
	}
}

// StartRefresh reloads on a standard cron schedule ("@every 15m",
// "0 3 * * *"). An empty expression disables refresh.
func (s *Store) StartRefresh(expr string) error {
	if expr == "" {
		return nil
	}
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return err
	}
	s.cron = cron.New()
	s.cron.Schedule(schedule, cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		_ = s.Reload(ctx)
	}))
	s.cron.Start()
	log.WithField("schedule", expr).Info("⏱️ indicator refresh scheduled")
	return nil
}

// Stop ends the refresh schedule.
func (s *Store) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}
