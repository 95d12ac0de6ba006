package batch_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/trackwave/trackwave/internal/adapters/sink"
	"github.com/trackwave/trackwave/internal/adapters/warehouse"
	"github.com/trackwave/trackwave/internal/batch"
	"github.com/trackwave/trackwave/internal/domain/model"
	"github.com/trackwave/trackwave/internal/domain/reactivity"
	"github.com/trackwave/trackwave/pkg/logger"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "logger init:", err)
		os.Exit(1)
	}
	os.Exit(m.Run())
}

// flakySource fails DailyStreaming for one song id.
type flakySource struct {
	*warehouse.Static
	failSongID int64
}

func (f flakySource) DailyStreaming(ctx context.Context, songID int64, region string, start, end time.Time) ([]model.DailyPoint, error) {
	if songID == f.failSongID {
		return nil, errors.New("warehouse timeout")
	}
	return f.Static.DailyStreaming(ctx, songID, region, start, end)
}

func fixedNow() time.Time {
	return time.Date(2025, 3, 28, 14, 30, 0, 0, time.UTC)
}

// seedArtists registers n artists; each artist i has one linked song with
// id 100+i and one sound with id 200+i, with seven days of data ending at
// the fixed clock.
func seedArtists(wh *warehouse.Static, n int, region string) {
	end := time.Date(2025, 3, 28, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= n; i++ {
		accountID := int64(i)
		songID := int64(100 + i)
		soundID := int64(200 + i)
		wh.AddArtist(model.ArtistIdentity{
			ExternalID: fmt.Sprintf("ref-%d", i),
			AccountID:  accountID,
		}, nil)
		wh.SetLinks(accountID, []model.SongLink{
			{UnifiedSongID: songID, SoundIDs: []int64{soundID}},
		})
		var streaming, social []model.DailyPoint
		for d := 0; d < 7; d++ {
			date := end.AddDate(0, 0, -d)
			streaming = append(streaming, model.DailyPoint{Date: date, Value: model.Float(float64(100 + d))})
			social = append(social, model.DailyPoint{Date: date, Value: model.Float(float64(10 + d))})
		}
		wh.SetStreaming(songID, region, streaming)
		wh.SetSocial(soundID, social)
	}
}

func TestRunAll(t *testing.T) {
	ctx := context.Background()

	Convey("Given ten artists with linked songs", t, func() {
		wh := warehouse.NewStatic()
		seedArtists(wh, 10, "US")
		results := sink.NewMemory()
		scorer := reactivity.NewScorer()

		Convey("When every fetch succeeds", func() {
			orch := batch.New(wh, wh, scorer, results,
				batch.WithWorkers(4),
				batch.WithWindowDays(7),
				batch.WithClock(fixedNow),
				batch.WithFetchRate(10_000))
			summary, err := orch.RunAll(ctx)

			Convey("Then every artist is processed and persisted", func() {
				So(err, ShouldBeNil)
				So(summary.Processed, ShouldEqual, 10)
				So(summary.Errors, ShouldEqual, 0)
				So(results.Len(), ShouldEqual, 10)
			})

			Convey("And rerunning upserts instead of duplicating", func() {
				again, err := orch.RunAll(ctx)
				So(err, ShouldBeNil)
				So(again.Processed, ShouldEqual, 10)
				So(results.Len(), ShouldEqual, 10)
			})
		})

		Convey("When one artist's fetch keeps failing", func() {
			source := flakySource{Static: wh, failSongID: 104}
			orch := batch.New(wh, source, scorer, results,
				batch.WithWorkers(3),
				batch.WithWindowDays(7),
				batch.WithClock(fixedNow),
				batch.WithRetryAttempts(2),
				batch.WithFetchRate(10_000))
			summary, err := orch.RunAll(ctx)

			Convey("Then the failure is isolated and counted", func() {
				So(err, ShouldBeNil)
				So(summary.Processed, ShouldEqual, 9)
				So(summary.Errors, ShouldEqual, 1)
				So(results.Len(), ShouldEqual, 9)
			})
		})

		Convey("When an artist has no linked songs", func() {
			wh.SetLinks(3, nil)
			orch := batch.New(wh, wh, scorer, results,
				batch.WithWindowDays(7),
				batch.WithClock(fixedNow),
				batch.WithFetchRate(10_000))
			summary, err := orch.RunAll(ctx)

			Convey("Then the artist is skipped, not failed", func() {
				So(err, ShouldBeNil)
				So(summary.Processed, ShouldEqual, 10)
				So(summary.Errors, ShouldEqual, 0)
				So(results.Len(), ShouldEqual, 9)
			})
		})
	})

	Convey("Given an empty catalog", t, func() {
		wh := warehouse.NewStatic()
		orch := batch.New(wh, wh, reactivity.NewScorer(), sink.NewMemory())
		summary, err := orch.RunAll(ctx)

		Convey("Then the run finishes with an empty summary", func() {
			So(err, ShouldBeNil)
			So(summary, ShouldResemble, batch.Summary{})
		})
	})
}

func TestRunAllPersistsWindowKeys(t *testing.T) {
	ctx := context.Background()

	Convey("Given one artist scored over a seven day window", t, func() {
		wh := warehouse.NewStatic()
		seedArtists(wh, 1, "US")
		results := sink.NewMemory()
		orch := batch.New(wh, wh, reactivity.NewScorer(), results,
			batch.WithWindowDays(7),
			batch.WithClock(fixedNow),
			batch.WithFetchRate(10_000))

		_, err := orch.RunAll(ctx)
		So(err, ShouldBeNil)

		Convey("Then the key carries the calculation window", func() {
			key := sink.Key{
				UnifiedSongID: 101,
				Region:        "US",
				WindowStart:   time.Date(2025, 3, 22, 0, 0, 0, 0, time.UTC),
				WindowEnd:     time.Date(2025, 3, 28, 0, 0, 0, 0, time.UTC),
			}
			result, ok := results.Get(key)
			So(ok, ShouldBeTrue)
			So(result.Correlation, ShouldNotBeNil)
			So(result.SampleCount, ShouldEqual, 7)
		})
	})
}
