package resolve

import (
	"github.com/trackwave/trackwave/pkg/logger"
)

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithCache sets the identity cache used for resolutions.
func WithCache(cache *IdentityCache) Option {
	return func(r *Resolver) {
		if cache != nil {
			r.cache = cache
		}
	}
}

// WithLogger sets a custom logger for the resolver.
func WithLogger(logger logger.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}
