// Package modelcache holds a single value loaded from a slow source and
// refreshes it at most once per TTL.
package modelcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	DefaultRefreshTimeout = 3 * time.Second
	DefaultStaleGrace     = 250 * time.Millisecond
)

// ErrRefreshPending marks an entry served stale because the refresh had
// not finished within the grace period.
var ErrRefreshPending = errors.New("refresh still in progress")

type Loader[T any] func(ctx context.Context) (T, error)

type Option func(*options)

type options struct {
	refreshTimeout time.Duration
	staleGrace     time.Duration
}

// WithRefreshTimeout bounds a single load call.
func WithRefreshTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.refreshTimeout = d
		}
	}
}

// WithStaleGrace sets how long callers wait for a refresh before falling
// back to the last known value.
func WithStaleGrace(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.staleGrace = d
		}
	}
}

type Entry[T any] struct {
	Value     T
	FetchedAt time.Time
	// Stale is set when the refresh failed and Value is the last known one.
	Stale      bool
	RefreshErr error
}

type Cache[T any] struct {
	name string
	ttl  time.Duration
	load Loader[T]
	now  func() time.Time

	refreshTimeout time.Duration
	staleGrace     time.Duration

	mu        sync.RWMutex
	value     T
	fetchedAt time.Time
	loaded    bool

	group singleflight.Group
}

func New[T any](name string, ttl time.Duration, load Loader[T], opts ...Option) *Cache[T] {
	o := options{refreshTimeout: DefaultRefreshTimeout, staleGrace: DefaultStaleGrace}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[T]{
		name:           name,
		ttl:            ttl,
		load:           load,
		now:            time.Now,
		refreshTimeout: o.refreshTimeout,
		staleGrace:     o.staleGrace,
	}
}

// GetOrRefresh returns the cached value while it is younger than the TTL.
// Otherwise one caller refreshes it and concurrent callers share that result.
// A failed or slow refresh falls back to the last known value; an error is
// returned only when no value was ever loaded.
func (c *Cache[T]) GetOrRefresh(ctx context.Context) (Entry[T], error) {
	if e, ok := c.fresh(); ok {
		return e, nil
	}

	ch := c.group.DoChan(c.name, func() (any, error) {
		if e, ok := c.fresh(); ok {
			return e, nil
		}
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTimeout)
		defer cancel()
		v, err := c.load(loadCtx)
		if err != nil {
			return nil, err
		}
		return c.store(v), nil
	})

	var grace <-chan time.Time
	if c.hasValue() {
		timer := time.NewTimer(c.staleGrace)
		defer timer.Stop()
		grace = timer.C
	}

	select {
	case <-ctx.Done():
		return c.fallback(ctx.Err())
	case <-grace:
		slog.Warn("cache refresh slow; serving last known value", "cache", c.name)
		return c.fallback(ErrRefreshPending)
	case res := <-ch:
		if res.Err != nil {
			slog.Warn("cache refresh failed", "cache", c.name, "error", res.Err)
			return c.fallback(res.Err)
		}
		return res.Val.(Entry[T]), nil
	}
}

// Invalidate forces the next call to refresh.
func (c *Cache[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetchedAt = time.Time{}
}

func (c *Cache[T]) fresh() (Entry[T], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.loaded || c.now().Sub(c.fetchedAt) >= c.ttl {
		return Entry[T]{}, false
	}
	return Entry[T]{Value: c.value, FetchedAt: c.fetchedAt}, true
}

func (c *Cache[T]) hasValue() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

func (c *Cache[T]) store(v T) Entry[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = v
	c.fetchedAt = c.now()
	c.loaded = true
	return Entry[T]{Value: v, FetchedAt: c.fetchedAt}
}

func (c *Cache[T]) fallback(cause error) (Entry[T], error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.loaded {
		return Entry[T]{}, fmt.Errorf("load %s: %w", c.name, cause)
	}
	return Entry[T]{Value: c.value, FetchedAt: c.fetchedAt, Stale: true, RefreshErr: cause}, nil
}
