// Package warehouse declares the data-access contracts the engine consumes.
//
// Implementations own row scanning and shape validation: the engine only
// ever sees the typed records from the model package, never raw warehouse
// rows. A timed-out fetch is reported the same way as a missing entity.
package warehouse

import (
	"context"
	"time"

	"github.com/trackwave/trackwave/internal/domain/model"
)

// MetricSource returns weekly and daily metric rows for songs and accounts.
type MetricSource interface {
	// WeeklyBySongIDs returns one row per song id that has data for the
	// region. Ids without data are simply absent from the result.
	WeeklyBySongIDs(ctx context.Context, songIDs []int64, region string) ([]model.WeeklyMetric, error)

	// WeeklyByAccount returns the account-level weekly record, or nil when
	// the account has no data in the region.
	WeeklyByAccount(ctx context.Context, accountID int64, region string) (*model.WeeklyMetric, error)

	// DailyStreaming returns the song's daily streaming points in
	// [start, end], sorted by date.
	DailyStreaming(ctx context.Context, songID int64, region string, start, end time.Time) ([]model.DailyPoint, error)

	// DailySocialActivity returns daily social-activity points for the
	// given sounds in [start, end], sorted by date. Points for the same
	// date across sounds are returned individually; the caller chooses
	// the merge policy.
	DailySocialActivity(ctx context.Context, soundIDs []int64, start, end time.Time) ([]model.DailyPoint, error)
}

// AccountDirectory maps external references onto internal identifiers.
type AccountDirectory interface {
	// ResolveExternalAccount returns nil, nil when no account matches ref.
	ResolveExternalAccount(ctx context.Context, ref string) (*model.ArtistIdentity, error)

	// ListTrackRefs returns every track for the account, including tracks
	// with no unified song mapping.
	ListTrackRefs(ctx context.Context, accountID int64) ([]model.TrackRef, error)
}

// Catalog enumerates the entities batch runs iterate over.
type Catalog interface {
	TrackedArtists(ctx context.Context) ([]model.ArtistIdentity, error)

	// LinkedSongs returns the account's songs that have at least one
	// social sound linked. An empty result is valid: the artist is
	// skipped, not failed.
	LinkedSongs(ctx context.Context, accountID int64) ([]model.SongLink, error)
}
