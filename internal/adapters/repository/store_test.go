package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/trackwave/trackwave/internal/domain/model"
	"github.com/trackwave/trackwave/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "logger init:", err)
		os.Exit(1)
	}
	os.Exit(m.Run())
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func comparison(thisWeek, lastWeek float64) model.WeeklyComparison {
	return model.WeeklyComparison{ThisWeek: thisWeek, LastWeek: lastWeek}
}

func TestGetOrRefresh_FreshEntryIsReused(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(1_000_000, 0)}
	store := NewTTLStore(WithTTL(time.Hour), WithClock(clock.Now))

	calls := 0
	refresh := func(context.Context) (model.WeeklyComparison, error) {
		calls++
		return comparison(100, 50), nil
	}

	entry, fromCache, err := store.GetOrRefresh(ctx, 1, "US", refresh)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fromCache {
		t.Error("first read should not come from cache")
	}
	if entry.Comparison.ThisWeek != 100 {
		t.Errorf("expected 100, got %f", entry.Comparison.ThisWeek)
	}

	clock.Advance(30 * time.Minute)
	entry, fromCache, err = store.GetOrRefresh(ctx, 1, "US", refresh)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fromCache {
		t.Error("second read within TTL should come from cache")
	}
	if calls != 1 {
		t.Errorf("expected 1 refresh call, got %d", calls)
	}

	clock.Advance(time.Hour)
	_, fromCache, err = store.GetOrRefresh(ctx, 1, "US", refresh)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fromCache {
		t.Error("read past TTL should recompute")
	}
	if calls != 2 {
		t.Errorf("expected 2 refresh calls, got %d", calls)
	}
}

func TestGetOrRefresh_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	store := NewTTLStore()

	for _, region := range []string{"US", "GB"} {
		region := region
		_, _, err := store.GetOrRefresh(ctx, 1, region, func(context.Context) (model.WeeklyComparison, error) {
			return comparison(1, 1), nil
		})
		if err != nil {
			t.Fatalf("unexpected error for region %s: %v", region, err)
		}
	}
	if got := store.Len(ctx); got != 2 {
		t.Errorf("expected 2 entries, got %d", got)
	}

	store.Invalidate(ctx, 1, "US")
	if got := store.Len(ctx); got != 1 {
		t.Errorf("expected 1 entry after invalidation, got %d", got)
	}
	if _, err := store.Peek(ctx, 1, "GB"); err != nil {
		t.Errorf("GB entry should survive US invalidation: %v", err)
	}
	if _, err := store.Peek(ctx, 1, "US"); !errors.Is(err, ErrNoEntry) {
		t.Errorf("expected ErrNoEntry, got %v", err)
	}
}

func TestGetOrRefresh_FailedRefreshServesStale(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Unix(1_000_000, 0)}
	store := NewTTLStore(WithTTL(time.Minute), WithClock(clock.Now))

	_, _, err := store.GetOrRefresh(ctx, 1, "US", func(context.Context) (model.WeeklyComparison, error) {
		return comparison(500, 400), nil
	})
	if err != nil {
		t.Fatalf("seeding the entry failed: %v", err)
	}

	clock.Advance(time.Hour)
	failing := func(context.Context) (model.WeeklyComparison, error) {
		return model.WeeklyComparison{}, errors.New("warehouse down")
	}
	entry, fromCache, err := store.GetOrRefresh(ctx, 1, "US", failing)
	if err != nil {
		t.Fatalf("stale entry should be served without error, got %v", err)
	}
	if !fromCache {
		t.Error("stale serving should report fromCache")
	}
	if entry.Comparison.ThisWeek != 500 {
		t.Errorf("stale entry should be intact, got %f", entry.Comparison.ThisWeek)
	}

	// With no prior entry the failure propagates.
	_, _, err = store.GetOrRefresh(ctx, 2, "US", failing)
	if err == nil {
		t.Error("expected error when no prior entry exists")
	}
}

// Concurrent readers must never observe a half-written entry: every read
// returns a ThisWeek/LastWeek pair written by the same refresh.
func TestGetOrRefresh_ReplaceOnSuccessUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	// A nanosecond TTL with the real clock forces a refresh on nearly
	// every read, maximizing contention on the entry.
	store := NewTTLStore(WithTTL(time.Nanosecond))

	const goroutines = 16
	const iterations = 200

	var wg sync.WaitGroup
	errs := make(chan string, goroutines*iterations)
	for g := 0; g < goroutines; g++ {
		g := g
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				v := float64(g*iterations + i)
				entry, _, err := store.GetOrRefresh(ctx, 1, "US", func(context.Context) (model.WeeklyComparison, error) {
					return comparison(v, v*2), nil
				})
				if err != nil {
					errs <- err.Error()
					continue
				}
				if entry.Comparison.LastWeek != entry.Comparison.ThisWeek*2 {
					errs <- fmt.Sprintf("torn entry: this=%f last=%f",
						entry.Comparison.ThisWeek, entry.Comparison.LastWeek)
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for msg := range errs {
		t.Error(msg)
	}
}
