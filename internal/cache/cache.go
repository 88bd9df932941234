// Package cache provides the in-memory TTL response cache shared by every backend read.
// Entries expire lazily: an expired entry is removed by the lookup that finds it.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type entry struct {
	data      []byte
	expiresAt time.Time
}

// Cache maps request keys to response bodies until their TTL elapses. Safe for concurrent use.
// Entry count is unbounded; only time removes entries on its own.
type Cache struct {
	mu    sync.RWMutex
	m     map[Key]entry
	mode  MatchMode
	nowF  func() time.Time
	group singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithMatchMode sets how InvalidatePrefix matches keys. Default MatchPrefix.
func WithMatchMode(mode MatchMode) Option {
	return func(c *Cache) { c.mode = mode }
}

// WithClock replaces time.Now; used by tests to move time.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.nowF = now
		}
	}
}

// New returns an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		m:    make(map[Key]entry),
		mode: MatchPrefix,
		nowF: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mode returns the invalidation match mode.
func (c *Cache) Mode() MatchMode {
	return c.mode
}

// Get returns a copy of the data stored under k if present and not expired.
// An expired entry is deleted and reported as a miss.
func (c *Cache) Get(k Key) ([]byte, bool) {
	c.mu.RLock()
	e, ok := c.m[k]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.nowF().After(e.expiresAt) {
		c.mu.Lock()
		// Re-check: a concurrent Set may have replaced the entry.
		if cur, ok := c.m[k]; ok && c.nowF().After(cur.expiresAt) {
			delete(c.m, k)
		}
		c.mu.Unlock()
		return nil, false
	}
	return clone(e.data), true
}

// Set stores data under k until now+ttl. A non-positive ttl stores nothing.
func (c *Cache) Set(k Key, data []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[k] = entry{data: clone(data), expiresAt: c.nowF().Add(ttl)}
}

// Delete removes k. Missing keys are ignored.
func (c *Cache) Delete(k Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, k)
}

// Source tells where the data returned by Do came from.
type Source int

const (
	// Fetched means this caller ran fetch.
	Fetched Source = iota
	// Hit means a fresh entry answered the call.
	Hit
	// Joined means the caller shared a fetch started by another caller.
	Joined
)

func (s Source) String() string {
	switch s {
	case Hit:
		return "hit"
	case Joined:
		return "joined"
	default:
		return "fetched"
	}
}

// Do returns the cached data for k, or calls fetch, stores its result for ttl and returns it.
// Concurrent misses for the same key share a single fetch. fetch errors are returned unchanged
// and nothing is stored.
//
// The shared fetch runs detached from the cancellation of whichever caller started it, so it
// must bound itself (the API client's HTTP timeout does). Each caller still stops waiting when
// its own ctx is done.
func (c *Cache) Do(ctx context.Context, k Key, ttl time.Duration, fetch func(context.Context) ([]byte, error)) ([]byte, Source, error) {
	if data, ok := c.Get(k); ok {
		return data, Hit, nil
	}
	src := Joined
	ch := c.group.DoChan(k.String(), func() (interface{}, error) {
		// A fetch that finished between our lookup and joining the group already stored it.
		if b, ok := c.Get(k); ok {
			src = Hit
			return b, nil
		}
		src = Fetched
		b, err := fetch(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.Set(k, b, ttl)
		return b, nil
	})
	select {
	case <-ctx.Done():
		return nil, Joined, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, src, res.Err
		}
		return clone(res.Val.([]byte)), src, nil
	}
}

// InvalidatePrefix removes every entry matched by prefix under the cache's match mode
// and returns how many were removed.
func (c *Cache) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.m {
		if c.mode.matches(k, prefix) {
			delete(c.m, k)
			n++
		}
	}
	return n
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.m)
}

// Len returns the number of stored entries, expired ones included until a lookup evicts them.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
