package modelcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

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

func newTestCache(load Loader[string]) (*Cache[string], *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New("generation_model", 5*time.Second, load)
	c.now = clock.Now
	return c, clock
}

func TestGetOrRefresh_CachesWithinTTL(t *testing.T) {
	var calls atomic.Int32
	c, clock := newTestCache(func(context.Context) (string, error) {
		calls.Add(1)
		return "gpt-4o", nil
	})

	for i := 0; i < 3; i++ {
		e, err := c.GetOrRefresh(context.Background())
		if err != nil || e.Value != "gpt-4o" || e.Stale {
			t.Fatalf("unexpected entry %+v err %v", e, err)
		}
		clock.Advance(time.Second)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 load within ttl, got %d", calls.Load())
	}

	clock.Advance(5 * time.Second)
	if _, err := c.GetOrRefresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected refresh after ttl, got %d loads", calls.Load())
	}
}

func TestGetOrRefresh_StaleOnRefreshFailure(t *testing.T) {
	fail := false
	loadErr := errors.New("settings store unavailable")
	c, clock := newTestCache(func(context.Context) (string, error) {
		if fail {
			return "", loadErr
		}
		return "gpt-4o", nil
	})

	if _, err := c.GetOrRefresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fail = true
	clock.Advance(6 * time.Second)

	e, err := c.GetOrRefresh(context.Background())
	if err != nil {
		t.Fatalf("expected stale fallback, got %v", err)
	}
	if e.Value != "gpt-4o" || !e.Stale || !errors.Is(e.RefreshErr, loadErr) {
		t.Fatalf("unexpected entry: %+v", e)
	}
}

func TestGetOrRefresh_ErrorWhenNeverLoaded(t *testing.T) {
	loadErr := errors.New("boom")
	c, _ := newTestCache(func(context.Context) (string, error) { return "", loadErr })
	if _, err := c.GetOrRefresh(context.Background()); !errors.Is(err, loadErr) {
		t.Fatalf("expected load error, got %v", err)
	}
}

func TestGetOrRefresh_SingleRefreshUnderConcurrency(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	c, _ := newTestCache(func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "gpt-4o-mini", nil
	})

	const callers = 20
	var wg sync.WaitGroup
	results := make(chan string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, err := c.GetOrRefresh(context.Background())
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			results <- e.Value
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(results)

	if calls.Load() != 1 {
		t.Fatalf("expected exactly one load, got %d", calls.Load())
	}
	for v := range results {
		if v != "gpt-4o-mini" {
			t.Fatalf("unexpected value: %s", v)
		}
	}
}

func TestInvalidate(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestCache(func(context.Context) (string, error) {
		calls.Add(1)
		return "m", nil
	})
	_, _ = c.GetOrRefresh(context.Background())
	c.Invalidate()
	_, _ = c.GetOrRefresh(context.Background())
	if calls.Load() != 2 {
		t.Fatalf("expected reload after invalidate, got %d", calls.Load())
	}
}

func TestGetOrRefresh_SlowRefreshServesLastKnownValue(t *testing.T) {
	var block atomic.Bool
	release := make(chan struct{})
	defer close(release)
	c, clock := newTestCache(func(context.Context) (string, error) {
		if block.Load() {
			<-release
		}
		return "gpt-4o", nil
	})
	c.staleGrace = 20 * time.Millisecond

	if _, err := c.GetOrRefresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	block.Store(true)
	clock.Advance(6 * time.Second)

	done := make(chan Entry[string], 1)
	go func() {
		e, err := c.GetOrRefresh(context.Background())
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		done <- e
	}()

	select {
	case e := <-done:
		if e.Value != "gpt-4o" || !e.Stale || !errors.Is(e.RefreshErr, ErrRefreshPending) {
			t.Fatalf("unexpected entry: %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("caller blocked on a hanging refresh although a cached value exists")
	}
}

func TestGetOrRefresh_LoadIsBoundedByRefreshTimeout(t *testing.T) {
	c := New("generation_model", 5*time.Second, func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}, WithRefreshTimeout(30*time.Millisecond))

	started := time.Now()
	_, err := c.GetOrRefresh(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(started); elapsed > time.Second {
		t.Fatalf("load was not bounded: took %s", elapsed)
	}
}
