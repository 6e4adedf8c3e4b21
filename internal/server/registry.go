package server

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/julianstephens/grove/internal/engine"
	"github.com/julianstephens/grove/internal/logger"
)

// entry is a cached engine and the requests currently holding it
type entry struct {
	key      string
	engine   *engine.Engine
	refs     int
	retired  bool // evicted from the cache
	flushing int
}

// Registry keeps one engine per identity. Engines are opened on first use and
// concurrent opens of the same identity share one load. When the cache is full the
// least recently used engine is retired: it stays reachable while a request holds it
// and is flushed once released, so an identity never has two live engines.
type Registry struct {
	store engine.Store
	opts  engine.Options
	cache *lru.Cache
	group singleflight.Group

	// guards cache mutations, entry counters, retiring and evicted
	mu       sync.Mutex
	retiring map[string]*entry
	evicted  []*entry
}

func NewRegistry(store engine.Store, opts engine.Options, size int) (*Registry, error) {
	if size <= 0 {
		return nil, fmt.Errorf("engine cache size must be positive, got %d", size)
	}
	r := &Registry{store: store, opts: opts, retiring: make(map[string]*entry)}
	// runs inside cache.Add, always with r.mu held
	cache, err := lru.NewWithEvict(size, func(_, value interface{}) {
		r.evicted = append(r.evicted, value.(*entry))
	})
	if err != nil {
		return nil, err
	}
	r.cache = cache
	return r, nil
}

// Get returns the engine for an identity key, opening it if needed. The caller
// must call release when done with the engine.
func (r *Registry) Get(ctx context.Context, key string) (e *engine.Engine, release func(), err error) {
	for {
		if ent := r.acquire(key); ent != nil {
			return ent.engine, func() { r.release(ent) }, nil
		}
		_, openErr, shared := r.group.Do(key, func() (interface{}, error) {
			return nil, r.open(ctx, key)
		})
		if openErr != nil {
			return nil, nil, openErr
		}
		if shared {
			logger.Debug("Shared engine load", "identity", key)
		}
	}
}

func (r *Registry) Len() int {
	return r.cache.Len()
}

// Flush saves every open engine, retired ones included
func (r *Registry) Flush(ctx context.Context) error {
	r.mu.Lock()
	var engines []*engine.Engine
	for _, k := range r.cache.Keys() {
		if v, ok := r.cache.Peek(k); ok {
			engines = append(engines, v.(*entry).engine)
		}
	}
	for _, ent := range r.retiring {
		engines = append(engines, ent.engine)
	}
	r.mu.Unlock()

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, e := range engines {
		g.Go(e.Flush)
	}
	return g.Wait()
}

// acquire takes a reference on a cached or retiring engine. A retiring engine is
// put back in the cache since it holds the newest state for the key.
func (r *Registry) acquire(key string) *entry {
	r.mu.Lock()
	if v, ok := r.cache.Get(key); ok {
		ent := v.(*entry)
		ent.refs++
		r.mu.Unlock()
		return ent
	}
	ent, ok := r.retiring[key]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	delete(r.retiring, key)
	ent.retired = false
	ent.refs++
	flush := r.insertLocked(ent)
	r.mu.Unlock()

	r.flush(flush)
	return ent
}

func (r *Registry) open(ctx context.Context, key string) error {
	r.mu.Lock()
	_, cached := r.cache.Peek(key)
	_, retiring := r.retiring[key]
	r.mu.Unlock()
	if cached || retiring {
		return nil
	}

	e, err := engine.Open(ctx, key, r.store, r.opts)
	if err != nil {
		return err
	}

	r.mu.Lock()
	flush := r.insertLocked(&entry{key: key, engine: e})
	r.mu.Unlock()

	r.flush(flush)
	return nil
}

// insertLocked adds ent to the cache and retires whatever that evicts. Evicted
// entries nobody holds are returned for flushing outside the lock.
func (r *Registry) insertLocked(ent *entry) []*entry {
	r.cache.Add(ent.key, ent)
	var flush []*entry
	for _, ev := range r.evicted {
		ev.retired = true
		r.retiring[ev.key] = ev
		if ev.refs == 0 {
			ev.flushing++
			flush = append(flush, ev)
		}
	}
	r.evicted = nil
	return flush
}

func (r *Registry) release(ent *entry) {
	r.mu.Lock()
	ent.refs--
	flush := ent.retired && ent.refs == 0
	if flush {
		ent.flushing++
	}
	r.mu.Unlock()

	if flush {
		r.flush([]*entry{ent})
	}
}

// flush saves retired entries and forgets them once no request or save is pending
func (r *Registry) flush(entries []*entry) {
	for _, ent := range entries {
		if err := ent.engine.Flush(); err != nil {
			logger.Warn("Failed to flush evicted engine", "identity", ent.key, "error", err)
		}

		r.mu.Lock()
		ent.flushing--
		if ent.retired && ent.refs == 0 && ent.flushing == 0 && r.retiring[ent.key] == ent {
			delete(r.retiring, ent.key)
		}
		r.mu.Unlock()
	}
}
