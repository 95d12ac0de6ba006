// Package repository provides the in-memory store for aggregated weekly
// comparisons, guarded by a per-entry staleness window.
package repository

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/trackwave/trackwave/internal/domain/model"
	"github.com/trackwave/trackwave/pkg/logger"
	"github.com/trackwave/trackwave/pkg/metrics"
)

// Default store configuration constants.
const (
	defaultTTL        = 6 * time.Hour
	defaultShardCount = 8
)

// Entry is one cached weekly comparison. Entries are written whole on a
// successful recomputation and never partially updated.
type Entry struct {
	Comparison model.WeeklyComparison
	ComputedAt time.Time
}

// RefreshFunc recomputes the comparison for an entry that is missing or
// expired.
type RefreshFunc func(ctx context.Context) (model.WeeklyComparison, error)

// Store provides read-through access to cached weekly comparisons.
type Store interface {
	// GetOrRefresh returns the entry for (accountID, region), recomputing
	// it when missing or older than the TTL. The bool reports whether the
	// returned entry came from the cache rather than a fresh computation.
	GetOrRefresh(ctx context.Context, accountID int64, region string, refresh RefreshFunc) (Entry, bool, error)

	// Peek returns the stored entry regardless of freshness.
	// Returns ErrNoEntry when nothing is stored.
	Peek(ctx context.Context, accountID int64, region string) (Entry, error)

	// Invalidate drops the entry for (accountID, region).
	Invalidate(ctx context.Context, accountID int64, region string)

	// Len returns the number of stored entries.
	Len(ctx context.Context) int
}

type entryKey struct {
	accountID int64
	region    string
}

type shard struct {
	mu      sync.RWMutex
	entries map[entryKey]Entry
}

// TTLStore implements Store with a sharded map. Concurrent refreshes for
// the same key are serialized through a per-key mutex; readers of other
// keys are never blocked by a refresh.
type TTLStore struct {
	ttl        time.Duration
	shardCount int
	shards     []*shard
	now        func() time.Time
	logger     logger.Logger

	refreshMu sync.Mutex
	refreshes map[entryKey]*sync.Mutex
}

// NewTTLStore creates a store with configuration options.
func NewTTLStore(opts ...Option) *TTLStore {
	s := &TTLStore{
		ttl:        defaultTTL,
		shardCount: defaultShardCount,
		now:        time.Now,
		logger:     logger.Get().Named("cache"),
		refreshes:  make(map[entryKey]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.shards = make([]*shard, s.shardCount)
	for i := range s.shards {
		s.shards[i] = &shard{entries: make(map[entryKey]Entry)}
	}
	return s
}

// GetOrRefresh implements Store.
//
// Failure semantics: a failed refresh leaves any previous entry intact and
// serves it stale, because stale-but-valid data beats no data. The error
// is returned only when there is no previous entry to fall back to.
func (s *TTLStore) GetOrRefresh(ctx context.Context, accountID int64, region string, refresh RefreshFunc) (Entry, bool, error) {
	k := entryKey{accountID, region}

	if entry, ok := s.freshEntry(k); ok {
		metrics.RecordCacheHit()
		return entry, true, nil
	}

	mu := s.keyLock(k)
	mu.Lock()
	defer mu.Unlock()

	// Another caller may have refreshed while this one waited.
	if entry, ok := s.freshEntry(k); ok {
		metrics.RecordCacheHit()
		return entry, true, nil
	}
	metrics.RecordCacheMiss()

	comparison, err := refresh(ctx)
	if err != nil {
		metrics.RecordCacheRefreshError()
		if prev, ok := s.anyEntry(k); ok {
			metrics.RecordCacheStaleServed()
			s.logger.Warn(ctx, "refresh failed, serving stale entry",
				logger.Int64("account_id", accountID),
				logger.String("region", region),
				logger.Error(err))
			return prev, true, nil
		}
		return Entry{}, false, fmt.Errorf("refreshing comparison for account %d region %s: %w", accountID, region, err)
	}

	entry := Entry{Comparison: comparison, ComputedAt: s.now()}
	sh := s.shard(k)
	sh.mu.Lock()
	sh.entries[k] = entry // whole-entry replacement
	sh.mu.Unlock()
	metrics.UpdateCacheEntries(s.Len(ctx))
	return entry, false, nil
}

// Peek implements Store.
func (s *TTLStore) Peek(_ context.Context, accountID int64, region string) (Entry, error) {
	entry, ok := s.anyEntry(entryKey{accountID, region})
	if !ok {
		return Entry{}, ErrNoEntry
	}
	return entry, nil
}

// Invalidate implements Store.
func (s *TTLStore) Invalidate(ctx context.Context, accountID int64, region string) {
	k := entryKey{accountID, region}
	sh := s.shard(k)
	sh.mu.Lock()
	delete(sh.entries, k)
	sh.mu.Unlock()
	metrics.UpdateCacheEntries(s.Len(ctx))
}

// Len implements Store.
func (s *TTLStore) Len(_ context.Context) int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		total += len(sh.entries)
		sh.mu.RUnlock()
	}
	return total
}

func (s *TTLStore) freshEntry(k entryKey) (Entry, bool) {
	entry, ok := s.anyEntry(k)
	if !ok {
		return Entry{}, false
	}
	if s.now().Sub(entry.ComputedAt) >= s.ttl {
		return Entry{}, false
	}
	return entry, true
}

func (s *TTLStore) anyEntry(k entryKey) (Entry, bool) {
	sh := s.shard(k)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	entry, ok := sh.entries[k]
	return entry, ok
}

func (s *TTLStore) shard(k entryKey) *shard {
	h := fnv.New32a()
	fmt.Fprintf(h, "%d/%s", k.accountID, k.region)
	return s.shards[h.Sum32()%uint32(s.shardCount)]
}

// keyLock returns the refresh mutex for k, creating it on first use. The
// lock table grows with the tracked entity set, which is bounded.
func (s *TTLStore) keyLock(k entryKey) *sync.Mutex {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	mu, ok := s.refreshes[k]
	if !ok {
		mu = &sync.Mutex{}
		s.refreshes[k] = mu
	}
	return mu
}
