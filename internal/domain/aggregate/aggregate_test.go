package aggregate_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/trackwave/trackwave/internal/adapters/warehouse"
	"github.com/trackwave/trackwave/internal/domain/aggregate"
	"github.com/trackwave/trackwave/internal/domain/model"
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

// brokenSource fails on the account-level fetch only.
type brokenSource struct {
	*warehouse.Static
}

func (b brokenSource) WeeklyByAccount(context.Context, int64, string) (*model.WeeklyMetric, error) {
	return nil, errors.New("warehouse unavailable")
}

func TestAggregate(t *testing.T) {
	ctx := context.Background()

	Convey("Given song-level weekly rows", t, func() {
		wh := warehouse.NewStatic()
		wh.SetWeeklySong(100, "US", model.WeeklyMetric{ThisWeek: model.Float(300), LastWeek: model.Float(200)})
		wh.SetWeeklySong(101, "US", model.WeeklyMetric{ThisWeek: model.Float(100), LastWeek: nil})
		wh.SetWeeklyAccount(42, "US", model.WeeklyMetric{ThisWeek: model.Float(9999), LastWeek: model.Float(9999)})
		agg := aggregate.New(wh)

		Convey("When aggregating mapped songs", func() {
			cmp, err := agg.Aggregate(ctx, 42, []int64{100, 101, 102}, "US")

			Convey("Then sums treat nil as zero and ignore absent ids", func() {
				So(err, ShouldBeNil)
				So(cmp.ThisWeek, ShouldEqual, 400)
				So(cmp.LastWeek, ShouldEqual, 200)
				So(cmp.FromFallback, ShouldBeFalse)
			})

			Convey("And percent change is computed from the sums", func() {
				So(cmp.PercentChange, ShouldNotBeNil)
				So(*cmp.PercentChange, ShouldEqual, 1.0)
			})

			Convey("And the fallback never fires on a non-zero sum", func() {
				So(cmp.ThisWeek, ShouldNotEqual, 9999)
			})
		})

		Convey("When one week sums non-zero and the other zero", func() {
			wh2 := warehouse.NewStatic()
			wh2.SetWeeklySong(100, "US", model.WeeklyMetric{ThisWeek: nil, LastWeek: model.Float(50)})
			wh2.SetWeeklyAccount(42, "US", model.WeeklyMetric{ThisWeek: model.Float(1), LastWeek: model.Float(1)})
			cmp, err := aggregate.New(wh2).Aggregate(ctx, 42, []int64{100}, "US")

			Convey("Then track-level data is kept", func() {
				So(err, ShouldBeNil)
				So(cmp.FromFallback, ShouldBeFalse)
				So(cmp.ThisWeek, ShouldEqual, 0)
				So(cmp.LastWeek, ShouldEqual, 50)
			})
		})
	})

	Convey("Given no track-level signal", t, func() {
		wh := warehouse.NewStatic()
		wh.SetWeeklySong(100, "US", model.WeeklyMetric{ThisWeek: model.Float(0), LastWeek: model.Float(0)})
		wh.SetWeeklyAccount(42, "US", model.WeeklyMetric{ThisWeek: model.Float(500), LastWeek: model.Float(400)})
		agg := aggregate.New(wh)

		Convey("When aggregating", func() {
			cmp, err := agg.Aggregate(ctx, 42, []int64{100}, "US")

			Convey("Then the account record is used verbatim", func() {
				So(err, ShouldBeNil)
				So(cmp.FromFallback, ShouldBeTrue)
				So(cmp.ThisWeek, ShouldEqual, 500)
				So(cmp.LastWeek, ShouldEqual, 400)
				So(*cmp.PercentChange, ShouldAlmostEqual, 0.25, 1e-12)
			})
		})

		Convey("When the song id list is empty (fully unmapped catalog)", func() {
			cmp, err := agg.Aggregate(ctx, 42, nil, "US")

			Convey("Then the fallback fires without a song-level fetch", func() {
				So(err, ShouldBeNil)
				So(cmp.FromFallback, ShouldBeTrue)
				So(cmp.ThisWeek, ShouldEqual, 500)
			})
		})

		Convey("When the account record is also missing", func() {
			empty := warehouse.NewStatic()
			cmp, err := aggregate.New(empty).Aggregate(ctx, 7, []int64{1}, "US")

			Convey("Then the result is all zero with nil percent change", func() {
				So(err, ShouldBeNil)
				So(cmp.FromFallback, ShouldBeTrue)
				So(cmp.ThisWeek, ShouldEqual, 0)
				So(cmp.PercentChange, ShouldBeNil)
			})
		})

		Convey("When the fallback fetch fails", func() {
			agg := aggregate.New(brokenSource{wh})
			_, err := agg.Aggregate(ctx, 42, nil, "US")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestPercentChange(t *testing.T) {
	Convey("Given percent change inputs", t, func() {
		Convey("A zero base is undefined even with non-zero current", func() {
			So(aggregate.PercentChange(100, 0), ShouldBeNil)
			So(aggregate.PercentChange(0, 0), ShouldBeNil)
		})

		Convey("A non-zero base yields the plain ratio", func() {
			So(*aggregate.PercentChange(150, 100), ShouldAlmostEqual, 0.5, 1e-12)
			So(*aggregate.PercentChange(50, 100), ShouldAlmostEqual, -0.5, 1e-12)
			So(*aggregate.PercentChange(0, 100), ShouldAlmostEqual, -1.0, 1e-12)
		})
	})
}

// Aggregation is ephemeral per request; make sure nothing in the Static
// source mutates shared rows between calls.
func TestAggregateIsRepeatable(t *testing.T) {
	ctx := context.Background()

	Convey("Given repeated aggregations over the same source", t, func() {
		wh := warehouse.NewStatic()
		wh.SetWeeklySong(1, "GB", model.WeeklyMetric{ThisWeek: model.Float(10), LastWeek: model.Float(5)})
		agg := aggregate.New(wh)

		first, err := agg.Aggregate(ctx, 1, []int64{1}, "GB")
		So(err, ShouldBeNil)

		time.Sleep(time.Millisecond)
		second, err := agg.Aggregate(ctx, 1, []int64{1}, "GB")
		So(err, ShouldBeNil)
		So(second, ShouldResemble, first)
	})
}
