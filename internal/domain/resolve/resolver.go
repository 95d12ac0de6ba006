// Package resolve maps external artist references onto internal accounts
// and their track and song identifiers.
package resolve

import (
	"context"
	"fmt"

	"github.com/trackwave/trackwave/internal/adapters/warehouse"
	"github.com/trackwave/trackwave/internal/domain/model"
	"github.com/trackwave/trackwave/pkg/logger"
	"github.com/trackwave/trackwave/pkg/metrics"
)

// Resolver resolves external references through the account directory,
// caching successful resolutions. Identities are immutable once resolved,
// so cached entries never need refreshing, only eviction.
type Resolver struct {
	directory warehouse.AccountDirectory
	cache     *IdentityCache
	logger    logger.Logger
}

// NewResolver creates a resolver over the given directory.
func NewResolver(directory warehouse.AccountDirectory, opts ...Option) *Resolver {
	r := &Resolver{
		directory: directory,
		cache:     NewIdentityCache(),
		logger:    logger.Get().Named("resolve"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve maps an external artist reference to its internal identity.
// It returns ErrNotFound when no account matches; that is a valid negative
// result, not a failure.
func (r *Resolver) Resolve(ctx context.Context, ref string) (model.ArtistIdentity, error) {
	if identity, ok := r.cache.Get(ref); ok {
		metrics.RecordIdentityCacheHit()
		return identity, nil
	}
	metrics.RecordIdentityCacheMiss()

	identity, err := r.directory.ResolveExternalAccount(ctx, ref)
	if err != nil {
		return model.ArtistIdentity{}, fmt.Errorf("resolving external account %q: %w", ref, err)
	}
	if identity == nil {
		r.logger.Debug(ctx, "no account mapping", logger.String("ref", ref))
		return model.ArtistIdentity{}, fmt.Errorf("%w: %q", ErrNotFound, ref)
	}

	r.cache.Put(ref, *identity)
	return *identity, nil
}

// TrackRefs lists the account's tracks, including unmapped ones. The
// caller filters; reporting coverage is its job, see MappedSongIDs.
func (r *Resolver) TrackRefs(ctx context.Context, accountID int64) ([]model.TrackRef, error) {
	refs, err := r.directory.ListTrackRefs(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("listing tracks for account %d: %w", accountID, err)
	}
	return refs, nil
}

// MappedSongIDs extracts the unified song ids from refs, reporting how
// many of the account's tracks actually carried a mapping. Unmapped tracks
// are excluded, never errors.
func MappedSongIDs(refs []model.TrackRef) (ids []int64, mapped, total int) {
	total = len(refs)
	for _, ref := range refs {
		if ref.UnifiedSongID == nil {
			continue
		}
		ids = append(ids, *ref.UnifiedSongID)
	}
	mapped = len(ids)
	metrics.RecordTrackMapping(mapped, total)
	return ids, mapped, total
}
