// Package model contains the canonical typed records passed between layers.
//
// Metric values are pointers where the warehouse can legitimately have no
// data: nil means "no data", which is distinct from zero and must not be
// coerced except at an explicitly documented boundary.
package model

import "time"

// ArtistIdentity binds an external artist reference to an internal account.
// It is created once per distinct external id and never updated beyond
// display metadata.
type ArtistIdentity struct {
	ExternalID  string // opaque external artist reference, unique key
	AccountID   int64  // internal numeric account id
	DisplayName string
	ImageURL    string
}

// TrackRef links an internal track to its cross-catalog song key.
// UnifiedSongID is nil when the track has no mapping; unmapped tracks are
// excluded from aggregation by the caller, never treated as errors.
type TrackRef struct {
	TrackID       int64
	UnifiedSongID *int64
}

// WeeklyMetric is one weekly warehouse row for a song or an account.
type WeeklyMetric struct {
	EntityID int64
	ThisWeek *float64
	LastWeek *float64
}

// DailyPoint is a single calendar-day observation. Date is a UTC calendar
// date (midnight, no time-of-day component).
type DailyPoint struct {
	Date  time.Time
	Value *float64
}

// WeeklyComparison is the aggregated weekly figure pair for an artist in
// one region, plus the track-to-song mapping coverage it was computed from.
type WeeklyComparison struct {
	ThisWeek      float64
	LastWeek      float64
	PercentChange *float64 // nil when LastWeek is zero: undefined, not infinity
	FromFallback  bool     // account-level record was used instead of track sums
	MappedTracks  int
	TotalTracks   int
}

// Grade buckets a correlation into a reportable letter.
type Grade string

// Reactivity grades. GradeNA is reserved for results with too few paired
// samples to compute a correlation at all.
const (
	GradeA  Grade = "A"
	GradeB  Grade = "B"
	GradeC  Grade = "C"
	GradeD  Grade = "D"
	GradeNA Grade = "N/A"
)

// ReactivityResult is the correlation between a song's streaming trend and
// its social-activity trend over a calculation window.
type ReactivityResult struct {
	Correlation *float64 // nil iff fewer than two paired samples existed
	Grade       Grade
	SampleCount int // paired samples the correlation was computed over
}

// SongLink ties a unified song to the social-platform sounds that
// reference it.
type SongLink struct {
	UnifiedSongID int64
	SoundIDs      []int64
	Title         string
}

// Float returns a pointer to v. Convenient for building metric records.
func Float(v float64) *float64 { return &v }

// Int64 returns a pointer to v. Convenient for building track refs.
func Int64(v int64) *int64 { return &v }
