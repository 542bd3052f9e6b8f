// Copyright 2026 The Kubefs Authors
// SPDX-License-Identifier: Apache-2.0

// Package viewcache bridges the blocking filesystem operation threads
// and the asynchronous cluster client. A Get either returns a fresh
// cached payload or parks the caller on the single in-flight fetch for
// that coordinate; the cluster remains the only source of truth.
//
// Policy, per coordinate:
//   - fresh hit: returned immediately, no network call
//   - miss or stale: at most one fetch in flight; concurrent callers
//     wait on the same flight
//   - stale-while-revalidate: a failed refetch serves the last known
//     payload instead of an error
//   - a caller whose context is cancelled stops waiting; the fetch
//     itself runs to completion on a detached context and populates
//     the cache for later callers
//   - entries idle past a threshold are evicted by a clock-driven
//     sweep; an entry with a flight in progress is never evicted
package viewcache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/kubefs-project/kubefs/lib/clock"
	"github.com/kubefs-project/kubefs/lib/coordinate"
)

// ErrInterrupted reports that the caller's wait for a fetch was cut
// short by its own context, not that the fetch failed.
var ErrInterrupted = errors.New("interrupted while waiting for fetch")

// Defaults. Directory listings go stale faster than file contents:
// membership changes (objects created and deleted) matter more for
// navigation than a slightly old document body.
const (
	DefaultDirTTL        = 5 * time.Second
	DefaultFileTTL       = 30 * time.Second
	DefaultIdleEviction  = 5 * time.Minute
	DefaultSweepInterval = time.Minute
	DefaultFetchTimeout  = 10 * time.Second
)

// DirEntry is one child in a directory payload.
type DirEntry struct {
	Name string
	Dir  bool
}

// Payload is what one coordinate materializes to: a directory listing
// in API server order, or file bytes.
type Payload struct {
	Dir     bool
	Entries []DirEntry
	Bytes   []byte
}

// Fetcher materializes a coordinate by asking the cluster. A returned
// error must be classified by the cluster error taxonomy.
type Fetcher interface {
	Fetch(ctx context.Context, coord coordinate.Coordinate) (Payload, error)
}

// Options configures a Cache.
type Options struct {
	// Fetcher materializes coordinates on cache misses. Required.
	Fetcher Fetcher

	// Clock supplies time. Nil uses the real clock.
	Clock clock.Clock

	// DirTTL and FileTTL bound how long a payload counts as fresh.
	// Zero uses the defaults.
	DirTTL  time.Duration
	FileTTL time.Duration

	// IdleEviction drops entries unused for this long. Zero uses the
	// default.
	IdleEviction time.Duration

	// SweepInterval is how often the eviction sweep runs. Zero uses
	// the default.
	SweepInterval time.Duration

	// FetchTimeout bounds each dispatched fetch. Zero uses the
	// default.
	FetchTimeout time.Duration

	// Logger receives diagnostic messages. If nil, a no-op logger is
	// used.
	Logger *slog.Logger
}

// Cache owns every cache entry. Entries are guarded per coordinate so
// unrelated paths never contend; the table lock is held only for map
// access.
type Cache struct {
	options Options

	mu      sync.Mutex
	entries map[string]*entry

	done      chan struct{}
	closeOnce sync.Once
}

type entry struct {
	coord coordinate.Coordinate

	mu         sync.Mutex
	hasPayload bool
	payload    Payload
	fetchedAt  time.Time
	lastUsed   time.Time
	flight     *flight
}

// flight is one dispatched fetch. Waiters select on done against
// their own context.
type flight struct {
	done    chan struct{}
	payload Payload
	err     error
}

// New builds a cache and starts its eviction sweep. Call Close at
// unmount.
func New(options Options) (*Cache, error) {
	if options.Fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.DirTTL <= 0 {
		options.DirTTL = DefaultDirTTL
	}
	if options.FileTTL <= 0 {
		options.FileTTL = DefaultFileTTL
	}
	if options.IdleEviction <= 0 {
		options.IdleEviction = DefaultIdleEviction
	}
	if options.SweepInterval <= 0 {
		options.SweepInterval = DefaultSweepInterval
	}
	if options.FetchTimeout <= 0 {
		options.FetchTimeout = DefaultFetchTimeout
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	cache := &Cache{
		options: options,
		entries: make(map[string]*entry),
		done:    make(chan struct{}),
	}
	go cache.sweepLoop()
	return cache, nil
}

// Close stops the eviction sweep. In-flight fetches finish on their
// own.
func (c *Cache) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Get returns the coordinate's payload, fetching on miss or staleness.
// Blocks the calling goroutine only, and only until this coordinate's
// fetch settles or ctx is cancelled (ErrInterrupted).
func (c *Cache) Get(ctx context.Context, coord coordinate.Coordinate) (Payload, error) {
	e := c.entry(coord)
	now := c.options.Clock.Now()

	e.mu.Lock()
	e.lastUsed = now
	if e.hasPayload && now.Sub(e.fetchedAt) < c.ttl(e.payload) {
		payload := e.payload
		e.mu.Unlock()
		return payload, nil
	}
	fl := e.flight
	if fl == nil {
		fl = &flight{done: make(chan struct{})}
		e.flight = fl
		go c.runFetch(e, fl)
	}
	e.mu.Unlock()

	select {
	case <-fl.done:
	case <-ctx.Done():
		return Payload{}, fmt.Errorf("%w: %v", ErrInterrupted, context.Cause(ctx))
	}

	if fl.err != nil {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.hasPayload {
			// Stale-while-revalidate: the last known payload beats an
			// error for a coordinate that once existed.
			return e.payload, nil
		}
		return Payload{}, fl.err
	}
	return fl.payload, nil
}

// Invalidate marks the coordinate stale so the next Get refetches. A
// no-op for unknown coordinates.
func (c *Cache) Invalidate(coord coordinate.Coordinate) {
	c.mu.Lock()
	e, ok := c.entries[coord.Path()]
	c.mu.Unlock()
	if !ok {
		return
	}
	e.mu.Lock()
	e.fetchedAt = time.Time{}
	e.mu.Unlock()
}

// Len returns the number of resident entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) entry(coord coordinate.Coordinate) *entry {
	key := coord.Path()
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry{coord: coord}
		c.entries[key] = e
	}
	return e
}

func (c *Cache) ttl(payload Payload) time.Duration {
	if payload.Dir {
		return c.options.DirTTL
	}
	return c.options.FileTTL
}

// runFetch executes one flight. The context is detached from every
// waiter: a caller abandoning its wait must not abort the fetch that
// later callers will benefit from.
func (c *Cache) runFetch(e *entry, fl *flight) {
	ctx, cancel := context.WithTimeout(context.Background(), c.options.FetchTimeout)
	defer cancel()

	payload, err := c.options.Fetcher.Fetch(ctx, e.coord)

	e.mu.Lock()
	if err == nil {
		e.payload = payload
		e.hasPayload = true
		e.fetchedAt = c.options.Clock.Now()
	} else {
		c.options.Logger.Warn("fetch failed",
			"coordinate", e.coord.Path(),
			"error", err,
		)
	}
	e.flight = nil
	e.mu.Unlock()

	fl.payload = payload
	fl.err = err
	close(fl.done)
}

func (c *Cache) sweepLoop() {
	ticker := c.options.Clock.NewTicker(c.options.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sweep(c.options.Clock.Now())
		case <-c.done:
			return
		}
	}
}

// sweep drops entries idle past the eviction threshold. Entries with
// a flight in progress stay.
func (c *Cache) sweep(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		e.mu.Lock()
		idle := e.flight == nil && now.Sub(e.lastUsed) >= c.options.IdleEviction
		e.mu.Unlock()
		if idle {
			delete(c.entries, key)
		}
	}
}
