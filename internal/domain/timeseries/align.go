// Package timeseries builds shared daily date axes and aligns
// independently-sourced series onto them.
package timeseries

import (
	"time"

	"github.com/trackwave/trackwave/internal/domain/model"
)

const hoursPerDay = 24

// DateOf normalizes t to its UTC calendar day.
func DateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DayCount returns the number of days from start to end inclusive.
// It is zero when end is before start.
func DayCount(start, end time.Time) int {
	start, end = DateOf(start), DateOf(end)
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours()/hoursPerDay) + 1
}

// Aligned holds two series on one contiguous daily axis. Gaps are nil,
// never dropped: len(Days) == len(A) == len(B) == DayCount(start, end).
type Aligned struct {
	Days []time.Time
	A    []*float64
	B    []*float64
}

// Len returns the axis length.
func (al Aligned) Len() int { return len(al.Days) }

// Align places both series onto the inclusive daily axis [start, end].
// A day with no observation yields nil; values are never forward-filled,
// since a correlation over repeated prior values would be fabricated.
// Inputs are expected date-sorted and deduplicated (see MergeSum and
// MergeLatest); if duplicates remain, the later entry wins.
func Align(a, b []model.DailyPoint, start, end time.Time) Aligned {
	n := DayCount(start, end)
	if n == 0 {
		return Aligned{}
	}
	start = DateOf(start)

	ia, ib := indexByDay(a), indexByDay(b)
	al := Aligned{
		Days: make([]time.Time, 0, n),
		A:    make([]*float64, 0, n),
		B:    make([]*float64, 0, n),
	}
	for d := start; len(al.Days) < n; d = d.AddDate(0, 0, 1) {
		al.Days = append(al.Days, d)
		al.A = append(al.A, ia[d.Unix()])
		al.B = append(al.B, ib[d.Unix()])
	}
	return al
}

func indexByDay(points []model.DailyPoint) map[int64]*float64 {
	idx := make(map[int64]*float64, len(points))
	for _, p := range points {
		idx[DateOf(p.Date).Unix()] = p.Value
	}
	return idx
}
