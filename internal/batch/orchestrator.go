// Package batch recomputes reactivity for every tracked artist on a
// bounded worker pool.
package batch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/trackwave/trackwave/internal/adapters/sink"
	"github.com/trackwave/trackwave/internal/adapters/warehouse"
	"github.com/trackwave/trackwave/internal/domain/model"
	"github.com/trackwave/trackwave/internal/domain/timeseries"
	"github.com/trackwave/trackwave/pkg/logger"
	"github.com/trackwave/trackwave/pkg/metrics"
)

// Default orchestrator configuration constants.
const (
	defaultWorkerCount   = 8
	defaultFetchRate     = rate.Limit(20)
	defaultRetryAttempts = 3
	defaultWindowDays    = 28
)

// Scorer computes a reactivity result from two daily series.
type Scorer interface {
	Score(ctx context.Context, streaming, social []model.DailyPoint, start, end time.Time) model.ReactivityResult
}

// Summary reports the outcome of one batch run. An artist counts as
// processed only when every one of its linked songs was scored and
// persisted; any failure moves it to Errors instead.
type Summary struct {
	Processed int
	Errors    int
}

// Orchestrator drives resolution, scoring and persistence across all
// tracked artists.
type Orchestrator struct {
	catalog warehouse.Catalog
	source  warehouse.MetricSource
	scorer  Scorer
	sink    sink.Sink

	workers    int
	limiter    *rate.Limiter
	retries    uint
	windowDays int
	regions    []string
	now        func() time.Time
	logger     logger.Logger
}

// New creates an orchestrator with configuration options.
func New(catalog warehouse.Catalog, source warehouse.MetricSource, scorer Scorer, resultSink sink.Sink, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		catalog:    catalog,
		source:     source,
		scorer:     scorer,
		sink:       resultSink,
		workers:    defaultWorkerCount,
		limiter:    rate.NewLimiter(defaultFetchRate, 1),
		retries:    defaultRetryAttempts,
		windowDays: defaultWindowDays,
		regions:    []string{"US"},
		now:        time.Now,
		logger:     logger.Get().Named("batch"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunAll recomputes reactivity for every tracked artist. Failures are
// isolated per artist: they are logged and counted, never escalated, so
// the run always completes with a summary. The returned error is non-nil
// only when the artist list itself cannot be fetched.
func (o *Orchestrator) RunAll(ctx context.Context) (Summary, error) {
	runID := uuid.NewString()
	log := o.logger
	began := o.now()

	artists, err := o.catalog.TrackedArtists(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("listing tracked artists: %w", err)
	}
	log.Info(ctx, "batch run starting",
		logger.String("run_id", runID),
		logger.Int("artists", len(artists)),
		logger.Int("workers", o.workers))

	jobs := make(chan model.ArtistIdentity)
	var processed, failed atomic.Int64
	var busy atomic.Int64

	var wg sync.WaitGroup
	for i := 0; i < o.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for artist := range jobs {
				metrics.UpdateBatchInFlightWorkers(int(busy.Add(1)))
				err := o.processArtist(ctx, artist)
				metrics.UpdateBatchInFlightWorkers(int(busy.Add(-1)))
				if err != nil {
					failed.Add(1)
					metrics.RecordBatchArtistFailed()
					log.Error(ctx, "artist failed, continuing",
						logger.String("run_id", runID),
						logger.Int64("account_id", artist.AccountID),
						logger.Error(err))
					continue
				}
				processed.Add(1)
				metrics.RecordBatchArtistProcessed()
			}
		}()
	}

feed:
	for _, artist := range artists {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- artist:
		}
	}
	close(jobs)
	wg.Wait()

	summary := Summary{Processed: int(processed.Load()), Errors: int(failed.Load())}
	metrics.RecordBatchRun(o.now().Sub(began).Seconds())
	log.Info(ctx, "batch run finished",
		logger.String("run_id", runID),
		logger.Int("processed", summary.Processed),
		logger.Int("errors", summary.Errors),
		logger.Duration("took", o.now().Sub(began)))
	return summary, nil
}

// processArtist scores every linked song of one artist in every region.
// The first failure is returned after the remaining songs were attempted.
func (o *Orchestrator) processArtist(ctx context.Context, artist model.ArtistIdentity) error {
	links, err := o.catalog.LinkedSongs(ctx, artist.AccountID)
	if err != nil {
		return fmt.Errorf("listing linked songs for account %d: %w", artist.AccountID, err)
	}
	if len(links) == 0 {
		// No social linkage: nothing to score, and not an error.
		o.logger.Debug(ctx, "artist has no linked songs, skipping",
			logger.Int64("account_id", artist.AccountID))
		return nil
	}

	end := timeseries.DateOf(o.now())
	start := end.AddDate(0, 0, -(o.windowDays - 1))

	var firstErr error
	for _, link := range links {
		for _, region := range o.regions {
			if err := o.processSong(ctx, link, region, start, end); err != nil {
				if firstErr == nil {
					firstErr = err
				}
				o.logger.Error(ctx, "song failed, continuing",
					logger.Int64("song_id", link.UnifiedSongID),
					logger.String("region", region),
					logger.Error(err))
			}
		}
	}
	return firstErr
}

func (o *Orchestrator) processSong(ctx context.Context, link model.SongLink, region string, start, end time.Time) error {
	streaming, err := o.fetchStreaming(ctx, link.UnifiedSongID, region, start, end)
	if err != nil {
		return fmt.Errorf("fetching streaming for song %d: %w", link.UnifiedSongID, err)
	}
	social, err := o.fetchSocial(ctx, link.SoundIDs, start, end)
	if err != nil {
		return fmt.Errorf("fetching social activity for song %d: %w", link.UnifiedSongID, err)
	}

	result := o.scorer.Score(ctx, streaming, social, start, end)

	key := sink.Key{
		UnifiedSongID: link.UnifiedSongID,
		Region:        region,
		WindowStart:   start,
		WindowEnd:     end,
	}
	if err := o.sink.PersistReactivity(ctx, key, result); err != nil {
		return fmt.Errorf("persisting reactivity for song %d: %w", link.UnifiedSongID, err)
	}
	return nil
}

// fetchStreaming pulls the song's daily streaming series, rate-limited and
// retried, with the latest-wins duplicate policy applied.
func (o *Orchestrator) fetchStreaming(ctx context.Context, songID int64, region string, start, end time.Time) ([]model.DailyPoint, error) {
	var points []model.DailyPoint
	err := o.fetch(ctx, func() error {
		var err error
		points, err = o.source.DailyStreaming(ctx, songID, region, start, end)
		return err
	})
	if err != nil {
		return nil, err
	}
	return timeseries.MergeLatest(points), nil
}

// fetchSocial pulls the linked sounds' activity series, rate-limited and
// retried, with per-day sums across sounds.
func (o *Orchestrator) fetchSocial(ctx context.Context, soundIDs []int64, start, end time.Time) ([]model.DailyPoint, error) {
	var points []model.DailyPoint
	err := o.fetch(ctx, func() error {
		var err error
		points, err = o.source.DailySocialActivity(ctx, soundIDs, start, end)
		return err
	})
	if err != nil {
		return nil, err
	}
	return timeseries.MergeSum(points), nil
}

func (o *Orchestrator) fetch(ctx context.Context, fn func() error) error {
	if err := o.limiter.Wait(ctx); err != nil {
		return err
	}
	began := time.Now()
	defer func() {
		metrics.RecordFetchLatency(float64(time.Since(began).Milliseconds()))
	}()
	return retry.Do(
		fn,
		retry.Attempts(o.retries),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
}
