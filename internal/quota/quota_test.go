package quota

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestCounter(t *testing.T) (*Counter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := NewClient(mr.Addr(), "", 0)
	t.Cleanup(func() { client.Close() })

	counter := NewCounter(client, nil, time.UTC)
	counter.now = func() time.Time {
		return time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)
	}
	return counter, mr
}

func TestCheckAndIncrementSequential(t *testing.T) {
	counter, _ := newTestCounter(t)
	ctx := context.Background()

	const max = 3
	for i := int64(1); i <= max; i++ {
		d := counter.CheckAndIncrement(ctx, "user-1", max)
		if !d.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
		if d.Remaining != max-i {
			t.Errorf("request %d: remaining = %d, want %d", i, d.Remaining, max-i)
		}
	}

	for i := 0; i < 2; i++ {
		d := counter.CheckAndIncrement(ctx, "user-1", max)
		if d.Allowed {
			t.Fatal("request over the ceiling should be denied")
		}
		if d.Remaining != 0 {
			t.Errorf("denied request: remaining = %d, want 0", d.Remaining)
		}
	}
}

func TestCheckAndIncrementConcurrent(t *testing.T) {
	counter, _ := newTestCounter(t)
	ctx := context.Background()

	const (
		max     = 10
		callers = 25
	)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if counter.CheckAndIncrement(ctx, "shared", max).Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != max {
		t.Errorf("allowed %d of %d concurrent requests, want exactly %d", allowed, callers, max)
	}
}

func TestCheckAndIncrementFailOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := NewClient(mr.Addr(), "", 0)
	t.Cleanup(func() { client.Close() })
	mr.Close()

	counter := NewCounter(client, nil, time.UTC)
	d := counter.CheckAndIncrement(context.Background(), "user-1", 5)
	if !d.Allowed {
		t.Error("unreachable store must fail open")
	}
	if d.Remaining != 4 {
		t.Errorf("fail-open remaining = %d, want 4", d.Remaining)
	}
}

func TestDayRollover(t *testing.T) {
	counter, _ := newTestCounter(t)
	ctx := context.Background()

	const max = 5
	for i := 0; i < 3; i++ {
		counter.CheckAndIncrement(ctx, "user-1", max)
	}
	if got := counter.GetCurrentCount(ctx, "user-1"); got != 3 {
		t.Fatalf("count = %d, want 3", got)
	}

	counter.now = func() time.Time {
		return time.Date(2026, 3, 15, 0, 0, 1, 0, time.UTC)
	}

	if got := counter.GetCurrentCount(ctx, "user-1"); got != 0 {
		t.Errorf("yesterday's count leaked into the new day: %d", got)
	}
	d := counter.CheckAndIncrement(ctx, "user-1", max)
	if !d.Allowed || d.Remaining != max-1 {
		t.Errorf("first request of a new day: %+v", d)
	}
}

func TestKeyExpiresAtLocalMidnight(t *testing.T) {
	counter, mr := newTestCounter(t)
	counter.CheckAndIncrement(context.Background(), "user-1", 5)

	key := counter.dayKey("user-1", counter.now())
	ttl := mr.TTL(key)
	// Test clock sits at 15:30 UTC, so 8h30m remain until midnight.
	want := 8*time.Hour + 30*time.Minute
	if ttl != want {
		t.Errorf("ttl = %v, want %v", ttl, want)
	}
}

func TestResetLimit(t *testing.T) {
	counter, _ := newTestCounter(t)
	ctx := context.Background()

	const max = 2
	counter.CheckAndIncrement(ctx, "user-1", max)
	counter.CheckAndIncrement(ctx, "user-1", max)
	if d := counter.CheckAndIncrement(ctx, "user-1", max); d.Allowed {
		t.Fatal("expected denial before reset")
	}

	counter.ResetLimit(ctx, "user-1")

	if got := counter.GetCurrentCount(ctx, "user-1"); got != 0 {
		t.Errorf("count after reset = %d, want 0", got)
	}
	if d := counter.CheckAndIncrement(ctx, "user-1", max); !d.Allowed {
		t.Error("expected allowance after reset")
	}
}

func TestGetStats(t *testing.T) {
	counter, _ := newTestCounter(t)
	ctx := context.Background()

	counter.CheckAndIncrement(ctx, "10.0.0.1", 10)
	counter.CheckAndIncrement(ctx, "10.0.0.1", 10)
	counter.CheckAndIncrement(ctx, "key-abc", 10)

	stats := counter.GetStats(ctx)
	if stats.Day != "2026-03-14" {
		t.Errorf("day = %q, want 2026-03-14", stats.Day)
	}
	if stats.Total != 3 {
		t.Errorf("total = %d, want 3", stats.Total)
	}
	if stats.Identities["10.0.0.1"] != 2 || stats.Identities["key-abc"] != 1 {
		t.Errorf("identities = %#v", stats.Identities)
	}
}

func TestGetCurrentCountMissingIdentity(t *testing.T) {
	counter, _ := newTestCounter(t)
	if got := counter.GetCurrentCount(context.Background(), "never-seen"); got != 0 {
		t.Errorf("count = %d, want 0", got)
	}
}
