package internal

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

type memoEntry[V any] struct {
	value    V
	storedAt time.Time
}

// MemoCache memoizes the results of keyed calls. Fresh results are served from
// a bounded TTL cache; concurrent calls for a key that is not cached share one
// in-flight call.
type MemoCache[V any] struct {
	mu       sync.Mutex
	entries  map[string]memoEntry[V]
	ttl      time.Duration
	capacity int
	group    singleflight.Group
	now      func() time.Time
}

// NewMemoCache creates a cache keeping at most capacity results for ttl
func NewMemoCache[V any](ttl time.Duration, capacity int) *MemoCache[V] {
	if capacity <= 0 {
		capacity = 1
	}
	return &MemoCache[V]{
		entries:  make(map[string]memoEntry[V]),
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
	}
}

// Get returns a cached value that has not expired
func (c *MemoCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if c.expired(e) {
		delete(c.entries, key)
		return zero, false
	}
	return e.value, true
}

// Put stores a value, evicting the oldest entry when full
func (c *MemoCache[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.capacity {
		c.evictOldest()
	}
	c.entries[key] = memoEntry[V]{value: value, storedAt: c.now()}
}

// Do returns the cached value for key or runs fn once for all concurrent
// callers of the same key. fn runs detached from the first caller's
// cancellation; each caller stops waiting when its own ctx is done.
// Errors are not cached.
func (c *MemoCache[V]) Do(ctx context.Context, key string, fn func(context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := fn(flightCtx)
		if err != nil {
			return v, err
		}
		c.Put(key, v)
		return v, nil
	})

	var zero V
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(V), nil
	}
}

// Sweep drops every expired entry and returns how many were removed
func (c *MemoCache[V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.entries {
		if c.expired(e) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Start sweeps expired entries every interval until ctx is done
func (c *MemoCache[V]) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := c.Sweep(); n > 0 {
					log.Debug().Int("removed", n).Msg("swept expired suggestions")
				}
			}
		}
	}()
}

// Len returns the number of stored entries, expired or not
func (c *MemoCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every entry
func (c *MemoCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]memoEntry[V])
}

func (c *MemoCache[V]) expired(e memoEntry[V]) bool {
	return c.ttl > 0 && c.now().Sub(e.storedAt) > c.ttl
}

// evictOldest must be called with mu held
func (c *MemoCache[V]) evictOldest() {
	var oldestKey string
	var oldest time.Time
	first := true
	for k, e := range c.entries {
		if first || e.storedAt.Before(oldest) {
			oldestKey, oldest, first = k, e.storedAt, false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}
