package timeseries

import (
	"sort"

	"github.com/trackwave/trackwave/internal/domain/model"
)

// MergeSum collapses duplicate dates by summing their non-nil values.
// A date whose every occurrence is nil stays nil. This is the policy for
// social activity, where multiple sounds contribute to the same day.
func MergeSum(points []model.DailyPoint) []model.DailyPoint {
	byDay := make(map[int64]model.DailyPoint, len(points))
	for _, p := range points {
		day := DateOf(p.Date)
		key := day.Unix()
		cur, ok := byDay[key]
		if !ok {
			byDay[key] = model.DailyPoint{Date: day, Value: copyValue(p.Value)}
			continue
		}
		if p.Value == nil {
			continue
		}
		if cur.Value == nil {
			cur.Value = copyValue(p.Value)
		} else {
			sum := *cur.Value + *p.Value
			cur.Value = &sum
		}
		byDay[key] = cur
	}
	return sorted(byDay)
}

// MergeLatest collapses duplicate dates by keeping the last occurrence.
// This is the policy for per-song daily streaming, where a later row is a
// restatement of the same figure.
func MergeLatest(points []model.DailyPoint) []model.DailyPoint {
	byDay := make(map[int64]model.DailyPoint, len(points))
	for _, p := range points {
		day := DateOf(p.Date)
		byDay[day.Unix()] = model.DailyPoint{Date: day, Value: copyValue(p.Value)}
	}
	return sorted(byDay)
}

func sorted(byDay map[int64]model.DailyPoint) []model.DailyPoint {
	out := make([]model.DailyPoint, 0, len(byDay))
	for _, p := range byDay {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func copyValue(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
