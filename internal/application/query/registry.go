package query

import (
	"context"
	"sync"
	"time"

	"github.com/taskmaster/console/internal/infrastructure/logger"
)

// Registry hands out one Cache per browser session and forgets caches that
// have not been used for the idle TTL.
type Registry struct {
	mu      sync.Mutex
	caches  map[string]*slot
	idleTTL time.Duration
	clock   Clock
	factory func() *Cache
	logger  *logger.Logger
}

type slot struct {
	cache    *Cache
	lastUsed time.Time
}

func NewRegistry(idleTTL time.Duration, clock Clock, factory func() *Cache, log *logger.Logger) *Registry {
	if clock == nil {
		clock = RealClock()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Registry{
		caches:  make(map[string]*slot),
		idleTTL: idleTTL,
		clock:   clock,
		factory: factory,
		logger:  log.WithComponent("query"),
	}
}

// Get returns the cache for id, creating it on first use.
func (r *Registry) Get(id string) *Cache {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.caches[id]
	if !ok {
		s = &slot{cache: r.factory()}
		r.caches[id] = s
	}
	s.lastUsed = r.clock.Now()
	return s.cache
}

// Drop forgets the cache for id.
func (r *Registry) Drop(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.caches, id)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.caches)
}

// Sweep evicts caches idle for longer than the TTL and reports how many
// went.
func (r *Registry) Sweep() int {
	if r.idleTTL <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	n := 0
	for id, s := range r.caches {
		if now.Sub(s.lastUsed) > r.idleTTL {
			delete(r.caches, id)
			n++
		}
	}
	return n
}

// Run sweeps every half TTL until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	if r.idleTTL <= 0 {
		return
	}
	ticker := r.clock.NewTicker(r.idleTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if n := r.Sweep(); n > 0 {
				r.logger.Debugw("Evicted idle caches", "count", n)
			}
		}
	}
}
