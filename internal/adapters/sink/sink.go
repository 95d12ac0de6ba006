// Package sink persists computed reactivity results.
package sink

import (
	"context"
	"sync"
	"time"

	"github.com/trackwave/trackwave/internal/domain/model"
)

// Key identifies one reactivity figure: a song, in a region, over a
// calculation window. Persisting the same key twice replaces the figure.
type Key struct {
	UnifiedSongID int64
	Region        string
	WindowStart   time.Time
	WindowEnd     time.Time
}

// Sink stores reactivity results with idempotent upsert semantics.
type Sink interface {
	PersistReactivity(ctx context.Context, key Key, result model.ReactivityResult) error
}

// Memory is an in-memory Sink for tests and dry runs.
type Memory struct {
	mu      sync.RWMutex
	results map[Key]model.ReactivityResult
}

// NewMemory creates an empty in-memory sink.
func NewMemory() *Memory {
	return &Memory{results: make(map[Key]model.ReactivityResult)}
}

// PersistReactivity implements Sink.
func (m *Memory) PersistReactivity(_ context.Context, key Key, result model.ReactivityResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[key] = result
	return nil
}

// Get returns the stored result for key, if any.
func (m *Memory) Get(key Key) (model.ReactivityResult, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result, ok := m.results[key]
	return result, ok
}

// Len returns the number of stored results.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.results)
}
