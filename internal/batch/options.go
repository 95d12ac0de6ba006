package batch

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/trackwave/trackwave/pkg/logger"
)

// Option applies a configuration option to the Orchestrator.
type Option func(*Orchestrator)

// WithWorkers bounds the batch fan-out.
func WithWorkers(count int) Option {
	return func(o *Orchestrator) {
		if count > 0 {
			o.workers = count
		}
	}
}

// WithFetchRate caps warehouse fetches per second across all workers.
func WithFetchRate(perSecond float64) Option {
	return func(o *Orchestrator) {
		if perSecond > 0 {
			o.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithRetryAttempts sets how many times a fetch is attempted.
func WithRetryAttempts(attempts int) Option {
	return func(o *Orchestrator) {
		if attempts > 0 {
			o.retries = uint(attempts)
		}
	}
}

// WithWindowDays sets the calculation window length.
func WithWindowDays(days int) Option {
	return func(o *Orchestrator) {
		if days >= 2 {
			o.windowDays = days
		}
	}
}

// WithRegions sets the regions each song is scored in.
func WithRegions(regions []string) Option {
	return func(o *Orchestrator) {
		if len(regions) > 0 {
			o.regions = regions
		}
	}
}

// WithClock sets the time source used to anchor the window.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets a custom logger for the orchestrator.
func WithLogger(logger logger.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}
