// Package service provides the core engine service exposed to API and
// report collaborators.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/trackwave/trackwave/internal/adapters/repository"
	"github.com/trackwave/trackwave/internal/adapters/sink"
	"github.com/trackwave/trackwave/internal/adapters/warehouse"
	"github.com/trackwave/trackwave/internal/batch"
	"github.com/trackwave/trackwave/internal/domain/aggregate"
	"github.com/trackwave/trackwave/internal/domain/model"
	"github.com/trackwave/trackwave/internal/domain/reactivity"
	"github.com/trackwave/trackwave/internal/domain/resolve"
	"github.com/trackwave/trackwave/internal/domain/timeseries"
	"github.com/trackwave/trackwave/pkg/logger"
)

// ArtistMetrics is the aggregated weekly view returned to callers.
type ArtistMetrics struct {
	Identity   model.ArtistIdentity
	Comparison model.WeeklyComparison
	ComputedAt time.Time
}

// Service wires the resolver, aggregator, cache, scorer and batch
// orchestrator behind the exposed operations.
type Service struct {
	directory warehouse.AccountDirectory
	source    warehouse.MetricSource
	catalog   warehouse.Catalog

	resolver     *resolve.Resolver
	aggregator   *aggregate.Aggregator
	scorer       *reactivity.Scorer
	cache        repository.Store
	orchestrator *batch.Orchestrator

	// Configuration applied at construction.
	cacheTTL          time.Duration
	identityCacheSize int
	workerCount       int
	fetchRate         float64
	retryAttempts     int
	windowDays        int
	regions           []string

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithCacheTTL sets the weekly comparison staleness window.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithIdentityCacheSize bounds the external reference cache.
func WithIdentityCacheSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.identityCacheSize = size
		}
	}
}

// WithWorkerCount sets the batch fan-out.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithFetchRate caps batch warehouse fetches per second.
func WithFetchRate(perSecond float64) Option {
	return func(s *Service) {
		if perSecond > 0 {
			s.fetchRate = perSecond
		}
	}
}

// WithRetryAttempts sets how many times batch fetches are attempted.
func WithRetryAttempts(attempts int) Option {
	return func(s *Service) {
		if attempts > 0 {
			s.retryAttempts = attempts
		}
	}
}

// WithWindowDays sets the reactivity calculation window length.
func WithWindowDays(days int) Option {
	return func(s *Service) {
		if days >= 2 {
			s.windowDays = days
		}
	}
}

// WithRegions sets the regions batch runs score in.
func WithRegions(regions []string) Option {
	return func(s *Service) {
		if len(regions) > 0 {
			s.regions = regions
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates the service over the given collaborators.
func New(directory warehouse.AccountDirectory, source warehouse.MetricSource, catalog warehouse.Catalog, resultSink sink.Sink, opts ...Option) *Service {
	s := &Service{
		directory:         directory,
		source:            source,
		catalog:           catalog,
		cacheTTL:          6 * time.Hour,
		identityCacheSize: 10_000,
		workerCount:       8,
		fetchRate:         20,
		retryAttempts:     3,
		windowDays:        28,
		regions:           []string{"US"},
		logger:            logger.Get().Named("service"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.resolver = resolve.NewResolver(directory,
		resolve.WithCache(resolve.NewIdentityCache(resolve.WithCacheSize(s.identityCacheSize))),
		resolve.WithLogger(s.logger))
	s.aggregator = aggregate.New(source, aggregate.WithLogger(s.logger))
	s.scorer = reactivity.NewScorer()
	s.cache = repository.NewTTLStore(
		repository.WithTTL(s.cacheTTL),
		repository.WithLogger(s.logger))
	s.orchestrator = batch.New(catalog, source, s.scorer, resultSink,
		batch.WithWorkers(s.workerCount),
		batch.WithFetchRate(s.fetchRate),
		batch.WithRetryAttempts(s.retryAttempts),
		batch.WithWindowDays(s.windowDays),
		batch.WithRegions(s.regions),
		batch.WithLogger(s.logger))
	return s
}

// GetArtistMetrics resolves an external artist reference and returns its
// weekly comparison for the region, served from the cache when fresh. The
// bool reports whether the figures came from the cache. resolve.ErrNotFound
// passes through untouched when the reference has no account mapping.
func (s *Service) GetArtistMetrics(ctx context.Context, artistRef, region string) (ArtistMetrics, bool, error) {
	identity, err := s.resolver.Resolve(ctx, artistRef)
	if err != nil {
		return ArtistMetrics{}, false, err
	}

	refs, err := s.resolver.TrackRefs(ctx, identity.AccountID)
	if err != nil {
		return ArtistMetrics{}, false, err
	}
	songIDs, mapped, total := resolve.MappedSongIDs(refs)
	if mapped < total {
		s.logger.Info(ctx, "partial song mapping",
			logger.Int64("account_id", identity.AccountID),
			logger.Int("mapped", mapped),
			logger.Int("total", total))
	}

	entry, fromCache, err := s.cache.GetOrRefresh(ctx, identity.AccountID, region, func(ctx context.Context) (model.WeeklyComparison, error) {
		comparison, err := s.aggregator.Aggregate(ctx, identity.AccountID, songIDs, region)
		if err != nil {
			return model.WeeklyComparison{}, err
		}
		comparison.MappedTracks = mapped
		comparison.TotalTracks = total
		return comparison, nil
	})
	if err != nil {
		return ArtistMetrics{}, false, fmt.Errorf("aggregating metrics for %q: %w", artistRef, err)
	}

	return ArtistMetrics{
		Identity:   identity,
		Comparison: entry.Comparison,
		ComputedAt: entry.ComputedAt,
	}, fromCache, nil
}

// GetSongReactivity scores one song's streaming trend against its linked
// social activity over [start, end]. A song with no social linkage scores
// N/A: there is nothing to correlate, which is a result, not an error.
func (s *Service) GetSongReactivity(ctx context.Context, accountID, songID int64, region string, start, end time.Time) (model.ReactivityResult, error) {
	links, err := s.catalog.LinkedSongs(ctx, accountID)
	if err != nil {
		return model.ReactivityResult{}, fmt.Errorf("listing linked songs for account %d: %w", accountID, err)
	}
	var soundIDs []int64
	for _, link := range links {
		if link.UnifiedSongID == songID {
			soundIDs = link.SoundIDs
			break
		}
	}
	if len(soundIDs) == 0 {
		return model.ReactivityResult{Grade: model.GradeNA}, nil
	}

	streaming, err := s.source.DailyStreaming(ctx, songID, region, start, end)
	if err != nil {
		return model.ReactivityResult{}, fmt.Errorf("fetching streaming for song %d: %w", songID, err)
	}
	social, err := s.source.DailySocialActivity(ctx, soundIDs, start, end)
	if err != nil {
		return model.ReactivityResult{}, fmt.Errorf("fetching social activity for song %d: %w", songID, err)
	}

	return s.scorer.Score(ctx,
		timeseries.MergeLatest(streaming),
		timeseries.MergeSum(social),
		start, end), nil
}

// RunReactivityBatch recomputes reactivity for every tracked artist.
func (s *Service) RunReactivityBatch(ctx context.Context) (batch.Summary, error) {
	return s.orchestrator.RunAll(ctx)
}
