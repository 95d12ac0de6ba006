package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if TRACKWAVE_CONFIG is set
//  3. env (prefix TRACKWAVE_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("TRACKWAVE_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Environment variables: TRACKWAVE_METRICS_ADDR, TRACKWAVE_WORKER_COUNT, ...
	// Keys map to the koanf tags on the struct; underscores are preserved.
	envProvider := env.Provider("TRACKWAVE_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "trackwave_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.Regions) == 0 {
		return fmt.Errorf("%w: at least one region is required", ErrInvalidConfig)
	}
	if c.CacheTTLMinutes <= 0 {
		return fmt.Errorf("%w: cache_ttl_minutes must be positive", ErrInvalidConfig)
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	}
	if c.WindowDays < 2 {
		return fmt.Errorf("%w: window_days must be at least 2", ErrInvalidConfig)
	}
	if c.FetchRatePerSec <= 0 {
		return fmt.Errorf("%w: fetch_rate_per_sec must be positive", ErrInvalidConfig)
	}
	return nil
}
