// Package query is the in-process server-state cache: keyed entries with
// staleness, stale-while-revalidate reads, prefix invalidation and per-key
// request collapsing.
package query

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/taskmaster/console/internal/infrastructure/logger"
)

// State is what a read hands back to a view.
type State[T any] struct {
	Data      T
	HasData   bool
	Loading   bool
	Err       error
	UpdatedAt time.Time
}

type entry struct {
	data      interface{}
	updatedAt time.Time
	invalid   bool
}

// Cache holds the entries of one user agent. All methods are safe for
// concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	keys    map[string]Key
	pending map[string]Key
	// gens is bumped for a key whenever its entry is overwritten, removed or
	// invalidated; a fetch only stores its result if the generation it
	// started under is still current. epoch does the same for Clear.
	gens  map[string]uint64
	epoch uint64

	group     singleflight.Group
	wg        sync.WaitGroup
	clock     Clock
	staleTime time.Duration
	logger    *logger.Logger
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

func WithClock(clock Clock) CacheOption {
	return func(c *Cache) { c.clock = clock }
}

// WithDefaultStaleTime sets how long data counts as fresh when a query does
// not override it. Zero means always stale: every read revalidates.
func WithDefaultStaleTime(d time.Duration) CacheOption {
	return func(c *Cache) { c.staleTime = d }
}

func WithLogger(l *logger.Logger) CacheOption {
	return func(c *Cache) { c.logger = l.WithComponent("query") }
}

func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		entries: make(map[string]*entry),
		keys:    make(map[string]Key),
		pending: make(map[string]Key),
		gens:    make(map[string]uint64),
		clock:   RealClock(),
		logger:  logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// QueryOption tunes one read.
type QueryOption func(*queryOptions)

type queryOptions struct {
	staleTime *time.Duration
}

// WithStaleTime overrides the cache's default stale time for one query.
func WithStaleTime(d time.Duration) QueryOption {
	return func(o *queryOptions) { o.staleTime = &d }
}

// Query reads key through the cache.
//
//   - fresh entry: returned as is
//   - stale entry: returned with Loading set, and refetched in the background
//   - missing or invalidated entry: fetched before returning
//
// Concurrent fetches of one key share a single call. A failed fetch is not
// cached; the previous data, if any, comes back alongside the error.
func Query[T any](ctx context.Context, c *Cache, key Key, fetch func(context.Context) (T, error), opts ...QueryOption) State[T] {
	o := queryOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	staleTime := c.staleTime
	if o.staleTime != nil {
		staleTime = *o.staleTime
	}

	untyped := func(ctx context.Context) (interface{}, error) {
		return fetch(ctx)
	}

	id := key.id()
	c.mu.Lock()
	e, ok := c.entries[id]
	now := c.clock.Now()
	if ok && !e.invalid {
		state := stateOf[T](e)
		c.mu.Unlock()
		if now.Sub(e.updatedAt) >= staleTime {
			c.revalidate(ctx, key, untyped)
			state.Loading = true
		}
		return state
	}
	var previous State[T]
	if ok {
		previous = stateOf[T](e)
	}
	c.mu.Unlock()

	data, err := c.fetch(ctx, key, untyped)
	if err != nil {
		previous.Err = err
		return previous
	}
	typed, _ := data.(T)
	return State[T]{Data: typed, HasData: true, UpdatedAt: c.clock.Now()}
}

// Peek returns the cached state without fetching. Loading is set when
// nothing is cached yet but a fetch is in flight.
func Peek[T any](c *Cache, key Key) State[T] {
	id := key.id()
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[id]; ok {
		return stateOf[T](e)
	}
	_, loading := c.pending[id]
	return State[T]{Loading: loading}
}

func stateOf[T any](e *entry) State[T] {
	typed, ok := e.data.(T)
	return State[T]{Data: typed, HasData: ok, UpdatedAt: e.updatedAt}
}

// revalidate refetches key detached from the caller's cancellation.
func (c *Cache) revalidate(ctx context.Context, key Key, fetch func(context.Context) (interface{}, error)) {
	bg := context.WithoutCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if _, err := c.fetch(bg, key, fetch); err != nil {
			c.logger.Debugw("Background revalidation failed", "key", key.String(), "error", err)
		}
	}()
}

func (c *Cache) fetch(ctx context.Context, key Key, fetch func(context.Context) (interface{}, error)) (interface{}, error) {
	id := key.id()
	c.mu.Lock()
	gen, epoch := c.gens[id], c.epoch
	c.pending[id] = key
	c.mu.Unlock()

	flight := fmt.Sprintf("%s#%d.%d", id, epoch, gen)
	v, err, _ := c.group.Do(flight, func() (interface{}, error) {
		data, err := fetch(ctx)
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.pending, id)
		if err != nil {
			return nil, err
		}
		if c.epoch == epoch && c.gens[id] == gen {
			c.entries[id] = &entry{data: data, updatedAt: c.clock.Now()}
			c.keys[id] = key
		}
		return data, nil
	})
	return v, err
}

// SetData writes a fresh value for key computed from the current one.
// In-flight fetches for key that started earlier are discarded.
func SetData[T any](c *Cache, key Key, update func(old T, ok bool) T) {
	id := key.id()
	c.mu.Lock()
	defer c.mu.Unlock()

	var old T
	var ok bool
	if e, found := c.entries[id]; found {
		old, ok = e.data.(T)
	}
	c.entries[id] = &entry{data: update(old, ok), updatedAt: c.clock.Now()}
	c.keys[id] = key
	c.gens[id]++
}

// UpdateData rewrites the cached value for key in place when one is cached
// and reports whether it did. Unlike SetData it never creates an entry, so a
// list that was never read stays unread instead of holding a partial value.
func UpdateData[T any](c *Cache, key Key, update func(old T) T) bool {
	id := key.id()
	c.mu.Lock()
	defer c.mu.Unlock()

	e, found := c.entries[id]
	if !found {
		return false
	}
	old, ok := e.data.(T)
	if !ok {
		return false
	}
	c.entries[id] = &entry{data: update(old), updatedAt: c.clock.Now(), invalid: e.invalid}
	c.gens[id]++
	return true
}

// Invalidate marks every entry under prefix as needing a refetch on its next
// read and discards results of fetches already in flight. It returns how
// many entries were marked.
func (c *Cache) Invalidate(prefix Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for id, key := range c.keys {
		if key.HasPrefix(prefix) {
			c.entries[id].invalid = true
			c.gens[id]++
			n++
		}
	}
	c.bumpPending(prefix)
	return n
}

// Remove deletes every entry under prefix.
func (c *Cache) Remove(prefix Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for id, key := range c.keys {
		if key.HasPrefix(prefix) {
			delete(c.entries, id)
			delete(c.keys, id)
			c.gens[id]++
			n++
		}
	}
	c.bumpPending(prefix)
	return n
}

func (c *Cache) bumpPending(prefix Key) {
	for id, key := range c.pending {
		if _, cached := c.keys[id]; cached {
			continue
		}
		if key.HasPrefix(prefix) {
			c.gens[id]++
		}
	}
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry)
	c.keys = make(map[string]Key)
	c.gens = make(map[string]uint64)
	c.epoch++
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Wait blocks until background revalidations have finished.
func (c *Cache) Wait() {
	c.wg.Wait()
}
