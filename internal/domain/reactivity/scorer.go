// Package reactivity computes how closely a song's streaming trend tracks
// its social-activity trend.
package reactivity

import (
	"context"
	"math"
	"time"

	"github.com/trackwave/trackwave/internal/domain/model"
	"github.com/trackwave/trackwave/internal/domain/timeseries"
	"github.com/trackwave/trackwave/pkg/metrics"
)

// Default grading policy. Grades use strict "greater than" comparisons, so
// a correlation sitting exactly on a threshold falls into the lower bucket.
const (
	defaultThresholdA = 0.9
	defaultThresholdB = 0.8
	defaultThresholdC = 0.7

	// minPairedSamples is the smallest sample count a correlation is
	// defined over.
	minPairedSamples = 2
)

// Scorer aligns two daily series and grades their Pearson correlation.
type Scorer struct {
	thresholdA float64
	thresholdB float64
	thresholdC float64
}

// NewScorer creates a scorer with the default grading thresholds.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		thresholdA: defaultThresholdA,
		thresholdB: defaultThresholdB,
		thresholdC: defaultThresholdC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score aligns the streaming and social series over [start, end] and
// computes the sample Pearson correlation over the dates where both sides
// have a value. With fewer than two such pairs the correlation is
// undefined and the result is graded N/A. A zero-variance side yields
// correlation 0: a flat series is uncorrelated, not unscoreable.
func (s *Scorer) Score(_ context.Context, streaming, social []model.DailyPoint, start, end time.Time) model.ReactivityResult {
	began := time.Now()
	defer func() {
		metrics.RecordScoringLatency(float64(time.Since(began).Milliseconds()))
	}()

	aligned := timeseries.Align(streaming, social, start, end)
	xs, ys := pairedSamples(aligned)
	if len(xs) < minPairedSamples {
		return model.ReactivityResult{Grade: model.GradeNA, SampleCount: len(xs)}
	}

	r := pearson(xs, ys)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		r = 0
	}
	result := model.ReactivityResult{
		Correlation: &r,
		Grade:       s.grade(r),
		SampleCount: len(xs),
	}
	metrics.RecordReactivityGrade(string(result.Grade))
	return result
}

// pairedSamples keeps only the dates where both sides are non-nil.
func pairedSamples(aligned timeseries.Aligned) (xs, ys []float64) {
	for i := range aligned.Days {
		if aligned.A[i] == nil || aligned.B[i] == nil {
			continue
		}
		xs = append(xs, *aligned.A[i])
		ys = append(ys, *aligned.B[i])
	}
	return xs, ys
}

func (s *Scorer) grade(r float64) model.Grade {
	switch {
	case r > s.thresholdA:
		return model.GradeA
	case r > s.thresholdB:
		return model.GradeB
	case r > s.thresholdC:
		return model.GradeC
	default:
		return model.GradeD
	}
}

// pearson computes the sample Pearson correlation coefficient. It returns
// NaN when either side has zero variance; the caller decides what that
// means.
func pearson(xs, ys []float64) float64 {
	n := float64(len(xs))
	var sumX, sumY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX, meanY := sumX/n, sumY/n

	var cov, varX, varY float64
	for i := range xs {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	return cov / math.Sqrt(varX*varY)
}
