package warehouse

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/trackwave/trackwave/internal/domain/model"
	"github.com/trackwave/trackwave/internal/domain/timeseries"
)

// Static is an in-memory implementation of MetricSource, AccountDirectory
// and Catalog. It backs tests and the bundled daemon; production deployments
// substitute a warehouse-backed implementation of the same interfaces.
type Static struct {
	mu             sync.RWMutex
	accounts       map[string]model.ArtistIdentity
	tracks         map[int64][]model.TrackRef
	weeklySongs    map[entityRegion]model.WeeklyMetric
	weeklyAccounts map[entityRegion]model.WeeklyMetric
	streaming      map[entityRegion][]model.DailyPoint
	social         map[int64][]model.DailyPoint
	links          map[int64][]model.SongLink
}

type entityRegion struct {
	id     int64
	region string
}

// NewStatic creates an empty in-memory warehouse.
func NewStatic() *Static {
	return &Static{
		accounts:       make(map[string]model.ArtistIdentity),
		tracks:         make(map[int64][]model.TrackRef),
		weeklySongs:    make(map[entityRegion]model.WeeklyMetric),
		weeklyAccounts: make(map[entityRegion]model.WeeklyMetric),
		streaming:      make(map[entityRegion][]model.DailyPoint),
		social:         make(map[int64][]model.DailyPoint),
		links:          make(map[int64][]model.SongLink),
	}
}

// AddArtist registers an artist identity and its track refs.
func (s *Static) AddArtist(identity model.ArtistIdentity, tracks []model.TrackRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[identity.ExternalID] = identity
	s.tracks[identity.AccountID] = tracks
}

// SetWeeklySong sets the weekly row for a song in a region.
func (s *Static) SetWeeklySong(songID int64, region string, row model.WeeklyMetric) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row.EntityID = songID
	s.weeklySongs[entityRegion{songID, region}] = row
}

// SetWeeklyAccount sets the account-level weekly row in a region.
func (s *Static) SetWeeklyAccount(accountID int64, region string, row model.WeeklyMetric) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row.EntityID = accountID
	s.weeklyAccounts[entityRegion{accountID, region}] = row
}

// SetStreaming sets the daily streaming series for a song in a region.
func (s *Static) SetStreaming(songID int64, region string, points []model.DailyPoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streaming[entityRegion{songID, region}] = points
}

// SetSocial sets the daily activity series for a sound.
func (s *Static) SetSocial(soundID int64, points []model.DailyPoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.social[soundID] = points
}

// SetLinks sets the social-linked songs for an account.
func (s *Static) SetLinks(accountID int64, links []model.SongLink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links[accountID] = links
}

// ResolveExternalAccount implements AccountDirectory.
func (s *Static) ResolveExternalAccount(_ context.Context, ref string) (*model.ArtistIdentity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity, ok := s.accounts[ref]
	if !ok {
		return nil, nil
	}
	return &identity, nil
}

// ListTrackRefs implements AccountDirectory.
func (s *Static) ListTrackRefs(_ context.Context, accountID int64) ([]model.TrackRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.TrackRef(nil), s.tracks[accountID]...), nil
}

// WeeklyBySongIDs implements MetricSource. Ids without a row are absent
// from the result.
func (s *Static) WeeklyBySongIDs(_ context.Context, songIDs []int64, region string) ([]model.WeeklyMetric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var rows []model.WeeklyMetric
	for _, id := range songIDs {
		if row, ok := s.weeklySongs[entityRegion{id, region}]; ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// WeeklyByAccount implements MetricSource.
func (s *Static) WeeklyByAccount(_ context.Context, accountID int64, region string) (*model.WeeklyMetric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.weeklyAccounts[entityRegion{accountID, region}]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

// DailyStreaming implements MetricSource.
func (s *Static) DailyStreaming(_ context.Context, songID int64, region string, start, end time.Time) ([]model.DailyPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clipRange(s.streaming[entityRegion{songID, region}], start, end), nil
}

// DailySocialActivity implements MetricSource. Points from different sounds
// keep their individual dates; the caller applies its merge policy.
func (s *Static) DailySocialActivity(_ context.Context, soundIDs []int64, start, end time.Time) ([]model.DailyPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var points []model.DailyPoint
	for _, id := range soundIDs {
		points = append(points, clipRange(s.social[id], start, end)...)
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points, nil
}

// TrackedArtists implements Catalog.
func (s *Static) TrackedArtists(_ context.Context) ([]model.ArtistIdentity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	artists := make([]model.ArtistIdentity, 0, len(s.accounts))
	for _, identity := range s.accounts {
		artists = append(artists, identity)
	}
	sort.Slice(artists, func(i, j int) bool { return artists[i].AccountID < artists[j].AccountID })
	return artists, nil
}

// LinkedSongs implements Catalog.
func (s *Static) LinkedSongs(_ context.Context, accountID int64) ([]model.SongLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.SongLink(nil), s.links[accountID]...), nil
}

func clipRange(points []model.DailyPoint, start, end time.Time) []model.DailyPoint {
	start, end = timeseries.DateOf(start), timeseries.DateOf(end)
	var out []model.DailyPoint
	for _, p := range points {
		d := timeseries.DateOf(p.Date)
		if d.Before(start) || d.After(end) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// fixture mirrors the JSON shape accepted by LoadFixture.
type fixture struct {
	Artists []struct {
		ExternalID  string `json:"external_id"`
		AccountID   int64  `json:"account_id"`
		DisplayName string `json:"display_name"`
		ImageURL    string `json:"image_url"`
		Tracks      []struct {
			TrackID       int64  `json:"track_id"`
			UnifiedSongID *int64 `json:"unified_song_id"`
		} `json:"tracks"`
		Links []struct {
			UnifiedSongID int64   `json:"unified_song_id"`
			SoundIDs      []int64 `json:"sound_ids"`
			Title         string  `json:"title"`
		} `json:"links"`
	} `json:"artists"`
	WeeklySongs    []fixtureWeekly `json:"weekly_songs"`
	WeeklyAccounts []fixtureWeekly `json:"weekly_accounts"`
	Streaming      []fixtureDaily  `json:"streaming"`
	Social         []fixtureDaily  `json:"social"`
}

type fixtureWeekly struct {
	EntityID int64    `json:"entity_id"`
	Region   string   `json:"region"`
	ThisWeek *float64 `json:"this_week"`
	LastWeek *float64 `json:"last_week"`
}

type fixtureDaily struct {
	EntityID int64    `json:"entity_id"`
	Region   string   `json:"region"`
	Date     string   `json:"date"`
	Value    *float64 `json:"value"`
}

// LoadFixture populates a Static warehouse from a JSON file.
func LoadFixture(path string) (*Static, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture %q: %w", path, err)
	}
	var f fixture
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parsing fixture %q: %w", path, err)
	}

	s := NewStatic()
	for _, a := range f.Artists {
		tracks := make([]model.TrackRef, 0, len(a.Tracks))
		for _, t := range a.Tracks {
			tracks = append(tracks, model.TrackRef{TrackID: t.TrackID, UnifiedSongID: t.UnifiedSongID})
		}
		s.AddArtist(model.ArtistIdentity{
			ExternalID:  a.ExternalID,
			AccountID:   a.AccountID,
			DisplayName: a.DisplayName,
			ImageURL:    a.ImageURL,
		}, tracks)
		links := make([]model.SongLink, 0, len(a.Links))
		for _, l := range a.Links {
			links = append(links, model.SongLink{UnifiedSongID: l.UnifiedSongID, SoundIDs: l.SoundIDs, Title: l.Title})
		}
		s.SetLinks(a.AccountID, links)
	}
	for _, w := range f.WeeklySongs {
		s.SetWeeklySong(w.EntityID, w.Region, model.WeeklyMetric{ThisWeek: w.ThisWeek, LastWeek: w.LastWeek})
	}
	for _, w := range f.WeeklyAccounts {
		s.SetWeeklyAccount(w.EntityID, w.Region, model.WeeklyMetric{ThisWeek: w.ThisWeek, LastWeek: w.LastWeek})
	}
	for _, d := range f.Streaming {
		date, err := time.Parse("2006-01-02", d.Date)
		if err != nil {
			return nil, fmt.Errorf("parsing streaming date %q: %w", d.Date, err)
		}
		key := entityRegion{d.EntityID, d.Region}
		s.streaming[key] = append(s.streaming[key], model.DailyPoint{Date: date, Value: d.Value})
	}
	for _, d := range f.Social {
		date, err := time.Parse("2006-01-02", d.Date)
		if err != nil {
			return nil, fmt.Errorf("parsing social date %q: %w", d.Date, err)
		}
		s.social[d.EntityID] = append(s.social[d.EntityID], model.DailyPoint{Date: date, Value: d.Value})
	}
	return s, nil
}
