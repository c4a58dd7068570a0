package store

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func countingLoader(t *testing.T, calls *int, fail *bool) Loader {
	t.Helper()
	return func(ctx context.Context) (*Store, error) {
		*calls++
		if *fail {
			return nil, errors.New("fetch failed")
		}
		return Load(ctx, strings.NewReader(fixtureHeader+"\n"), slog.Default())
	}
}

func TestCache_ReusesStoreWithinTTL(t *testing.T) {
	var calls int
	fail := false
	c := NewCache(time.Hour, countingLoader(t, &calls, &fail), slog.Default())
	defer c.Close()

	first, err := c.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	second, err := c.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if calls != 1 {
		t.Errorf("loader calls = %d, want 1", calls)
	}
	if first != second {
		t.Error("Get() should return the same store within the TTL")
	}
}

func TestCache_RebuildsAfterExpiry(t *testing.T) {
	var calls int
	fail := false
	c := NewCache(time.Hour, countingLoader(t, &calls, &fail), slog.Default())
	defer c.Close()

	now := time.Now()
	c.now = func() time.Time { return now }

	if _, err := c.Get(context.Background()); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	now = now.Add(2 * time.Hour)

	if _, err := c.Get(context.Background()); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if calls != 2 {
		t.Errorf("loader calls = %d, want 2", calls)
	}
}

func TestCache_RetiredStoreStaysReadable(t *testing.T) {
	var calls int
	fail := false
	c := NewCache(time.Hour, countingLoader(t, &calls, &fail), slog.Default())
	defer c.Close()

	now := time.Now()
	c.now = func() time.Time { return now }

	held, err := c.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	now = now.Add(2 * time.Hour)

	fresh, err := c.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if held == fresh {
		t.Fatal("expected a rebuilt store after expiry")
	}

	// A render pass that obtained the old store before the rebuild must be
	// able to finish its remaining queries against it.
	var count int
	row := held.QueryRowContext(context.Background(), `SELECT COUNT(*) FROM orders`)
	if err := row.Scan(&count); err != nil {
		t.Errorf("query on retired store failed: %v", err)
	}
}

func TestCache_InvalidateForcesRebuild(t *testing.T) {
	var calls int
	fail := false
	c := NewCache(time.Hour, countingLoader(t, &calls, &fail), slog.Default())
	defer c.Close()

	if _, err := c.Get(context.Background()); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	c.Invalidate()

	if _, err := c.Get(context.Background()); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if calls != 2 {
		t.Errorf("loader calls = %d, want 2", calls)
	}
}

func TestCache_FailedRebuildRetriesNextGet(t *testing.T) {
	var calls int
	fail := true
	c := NewCache(time.Hour, countingLoader(t, &calls, &fail), slog.Default())
	defer c.Close()

	if _, err := c.Get(context.Background()); err == nil {
		t.Fatal("Get() expected error from failing loader")
	}

	fail = false
	if _, err := c.Get(context.Background()); err != nil {
		t.Fatalf("Get() after recovery error = %v", err)
	}

	if calls != 2 {
		t.Errorf("loader calls = %d, want 2", calls)
	}
}
