package repository

import (
	"time"

	"github.com/trackwave/trackwave/pkg/logger"
)

// Option applies a configuration option to the TTLStore.
type Option func(*TTLStore)

// WithTTL sets the staleness window for cached entries.
func WithTTL(ttl time.Duration) Option {
	return func(s *TTLStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithShardCount sets the number of shards in the store.
func WithShardCount(count int) Option {
	return func(s *TTLStore) {
		if count > 0 {
			s.shardCount = count
		}
	}
}

// WithClock sets the time source, letting tests control staleness.
func WithClock(now func() time.Time) Option {
	return func(s *TTLStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the store.
func WithLogger(logger logger.Logger) Option {
	return func(s *TTLStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}
