// Package aggregate sums per-song weekly metrics into an artist total,
// falling back to the account-level record when no track-level signal
// exists.
package aggregate

import (
	"context"
	"fmt"

	"github.com/trackwave/trackwave/internal/adapters/warehouse"
	"github.com/trackwave/trackwave/internal/domain/model"
	"github.com/trackwave/trackwave/pkg/logger"
	"github.com/trackwave/trackwave/pkg/metrics"
)

// Aggregator combines weekly metric rows for one artist and region.
type Aggregator struct {
	source warehouse.MetricSource
	logger logger.Logger
}

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithLogger sets a custom logger for the aggregator.
func WithLogger(logger logger.Logger) Option {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates an aggregator over the given metric source.
func New(source warehouse.MetricSource, opts ...Option) *Aggregator {
	a := &Aggregator{
		source: source,
		logger: logger.Get().Named("aggregate"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate sums ThisWeek and LastWeek across the weekly rows of the given
// songs. Nil values count as zero at summation time only. When both sums
// are exactly zero the account-level record is used verbatim instead;
// track sums and account records are never blended.
//
// A zero/zero sum cannot distinguish "artist had no streams" from "no
// track carried a song mapping", so the fallback also fires for entirely
// unmapped catalogs; callers observe that through the coverage counts they
// attach to the result.
func (a *Aggregator) Aggregate(ctx context.Context, accountID int64, songIDs []int64, region string) (model.WeeklyComparison, error) {
	var thisWeek, lastWeek float64

	if len(songIDs) > 0 {
		rows, err := a.source.WeeklyBySongIDs(ctx, songIDs, region)
		if err != nil {
			return model.WeeklyComparison{}, fmt.Errorf("fetching weekly rows for %d songs: %w", len(songIDs), err)
		}
		for _, row := range rows {
			thisWeek += valueOrZero(row.ThisWeek)
			lastWeek += valueOrZero(row.LastWeek)
		}
	}

	fromFallback := false
	if thisWeek == 0 && lastWeek == 0 {
		row, err := a.source.WeeklyByAccount(ctx, accountID, region)
		if err != nil {
			return model.WeeklyComparison{}, fmt.Errorf("fetching account weekly row for %d: %w", accountID, err)
		}
		metrics.RecordAggregateFallback()
		a.logger.Debug(ctx, "no track-level signal, using account record",
			logger.Int64("account_id", accountID),
			logger.String("region", region),
			logger.Int("song_ids", len(songIDs)))
		if row != nil {
			thisWeek = valueOrZero(row.ThisWeek)
			lastWeek = valueOrZero(row.LastWeek)
		}
		fromFallback = true
	}

	return model.WeeklyComparison{
		ThisWeek:      thisWeek,
		LastWeek:      lastWeek,
		PercentChange: PercentChange(thisWeek, lastWeek),
		FromFallback:  fromFallback,
	}, nil
}

// PercentChange returns (this-last)/last, or nil when last is zero: a
// percentage from a zero base is undefined, not infinite. Callers must not
// "fix" the nil.
func PercentChange(thisWeek, lastWeek float64) *float64 {
	if lastWeek == 0 {
		return nil
	}
	change := (thisWeek - lastWeek) / lastWeek
	return &change
}

// valueOrZero is the single place a missing weekly value becomes zero.
func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
