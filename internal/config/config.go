// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// MetricsAddr configures the metrics listen address, e.g. ":9090".
	MetricsAddr string `koanf:"metrics_addr"`

	// Regions lists the metric partitions to compute and cache.
	Regions []string `koanf:"regions"`

	// CacheTTLMinutes controls how long a weekly comparison stays fresh.
	CacheTTLMinutes int `koanf:"cache_ttl_minutes"`

	// IdentityCacheSize bounds the external-to-internal id cache.
	IdentityCacheSize int `koanf:"identity_cache_size"`

	// WorkerCount sets the batch fan-out.
	WorkerCount int `koanf:"worker_count"`

	// FetchRatePerSec caps warehouse fetches during batch runs.
	FetchRatePerSec float64 `koanf:"fetch_rate_per_sec"`

	// RetryAttempts sets how many times a batch fetch is retried.
	RetryAttempts int `koanf:"retry_attempts"`

	// WindowDays is the reactivity calculation window length.
	WindowDays int `koanf:"window_days"`

	// BatchIntervalMinutes schedules recomputation runs; 0 disables the timer.
	BatchIntervalMinutes int `koanf:"batch_interval_minutes"`

	// SinkPath is the sqlite file the reactivity sink writes to.
	SinkPath string `koanf:"sink_path"`

	// FixturePath optionally seeds the in-memory warehouse from a JSON file.
	FixturePath string `koanf:"fixture_path"`
}

// New creates a Config populated with defaults.
func New() *Config {
	c := &Config{
		LogLevel:             "info",
		MetricsAddr:          ":9090",
		Regions:              []string{"US"},
		CacheTTLMinutes:      360,
		IdentityCacheSize:    10_000,
		WorkerCount:          runtime.NumCPU() * 4,
		FetchRatePerSec:      20,
		RetryAttempts:        3,
		WindowDays:           28,
		BatchIntervalMinutes: 0,
		SinkPath:             "trackwave.db",
	}
	return c
}
