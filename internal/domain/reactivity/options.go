package reactivity

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithThresholds overrides the grading thresholds. Each threshold is the
// exclusive lower bound of its grade; a and b and c must descend.
func WithThresholds(a, b, c float64) Option {
	return func(s *Scorer) {
		if a > b && b > c {
			s.thresholdA = a
			s.thresholdB = b
			s.thresholdC = c
		}
	}
}
