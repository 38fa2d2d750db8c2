package shared

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/sharecache/sharecache/pkg/types"
)

// Cache holds the SharedSet of every shareable node touched by one session.
// Its lifetime is bound to the session that created it.
//
// Cache is safe for concurrent use.
type Cache struct {
	store Store
	id    string
	log   *slog.Logger
	obs   Observer

	mu   sync.RWMutex
	sets map[types.NodeKey]*SharedSet
	gen  uint64 // last generation handed out; guarded by mu

	reassign singleflight.Group
}

// New creates an empty Cache backed by store.
func New(store Store, opts ...Option) *Cache {
	o := newOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache{
		store: store,
		id:    o.sessionID,
		log:   o.logger.With("session", o.sessionID),
		obs:   o.observer,
		sets:  make(map[types.NodeKey]*SharedSet),
	}
}

// ID returns the id of the session owning the cache.
func (c *Cache) ID() string { return c.id }

// Get returns the SharedSet for key without creating one.
func (c *Cache) Get(key types.NodeKey) (*SharedSet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	set, ok := c.sets[key]
	return set, ok
}

// GetOrCreate returns the SharedSet for the shareable node key, creating it
// on first access. The canonical object is resolved through the Store only
// on a miss. Concurrent callers always observe the same installed set.
func (c *Cache) GetOrCreate(ctx context.Context, key types.NodeKey) (*SharedSet, error) {
	if set, ok := c.Get(key); ok {
		return set, nil
	}
	node, err := c.store.Node(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("shared: resolve shareable node %s: %w", key, err)
	}
	return c.install(node), nil
}

// SharedSetOf returns the SharedSet that node belongs to. When no set exists
// yet, node becomes its canonical appearance. A *SharedNode is mapped to the
// current set of its shareable node.
func (c *Cache) SharedSetOf(ctx context.Context, node Node) (*SharedSet, error) {
	if sn, ok := node.(*SharedNode); ok {
		return c.GetOrCreate(ctx, sn.key)
	}
	if set, ok := c.Get(node.Key()); ok {
		return set, nil
	}
	return c.install(node), nil
}

// install publishes a set for canonical unless another goroutine won the race.
func (c *Cache) install(canonical Node) *SharedSet {
	key := canonical.Key()

	c.mu.Lock()
	set, ok := c.sets[key]
	if !ok {
		set = c.newSetLocked(canonical)
		c.sets[key] = set
	}
	c.mu.Unlock()

	if !ok {
		c.obs.SetCreated()
		c.log.Debug("shared: shared set created",
			"key", key, "parent", canonical.ParentKey(), "generation", set.gen)
	}
	return set
}

func (c *Cache) newSetLocked(canonical Node) *SharedSet {
	c.gen++
	return &SharedSet{
		cache:     c,
		key:       canonical.Key(),
		canonical: canonical,
		gen:       c.gen,
		shared:    make(map[types.NodeKey]*SharedNode),
	}
}

// Destroyed drops the SharedSet of a shareable node that no longer exists.
// It is a no-op when no set is cached.
func (c *Cache) Destroyed(key types.NodeKey) {
	c.mu.Lock()
	_, ok := c.sets[key]
	delete(c.sets, key)
	c.mu.Unlock()

	if ok {
		c.obs.SetDestroyed()
		c.log.Debug("shared: shared set destroyed", "key", key)
	}
}

// Removed signals that node was unlinked from its parent.
//
// For a canonical appearance the whole SharedSet is rebuilt around a freshly
// resolved object reflecting the node's new primary parent. A node with no
// cached set is treated as the canonical appearance of a new one. Shared nodes
// are detached from the current set of their key by parent.
func (c *Cache) Removed(ctx context.Context, node Node) error {
	if sn, ok := node.(*SharedNode); ok {
		if set, ok := c.Get(sn.key); ok {
			set.Detach(sn)
		}
		return nil
	}

	// Install node first so that a racing GetOrCreate holding the same stale
	// object either finds this set and sees it replaced, or installed its own
	// set earlier and has it replaced here.
	set := c.install(node)
	if set.canonical != node {
		c.log.Debug("shared: removal of superseded canonical ignored",
			"key", node.Key(), "generation", set.gen)
		return nil
	}
	return c.replaceCanonical(ctx, set)
}

// replaceCanonical swaps old for a set built around a new canonical object.
// Concurrent calls for the same generation share one store round trip.
func (c *Cache) replaceCanonical(ctx context.Context, old *SharedSet) error {
	flight := fmt.Sprintf("%s#%d", old.key, old.gen)
	// The flight is shared, so one caller's cancellation must not fail the rest.
	ctx = context.WithoutCancel(ctx)
	_, err, _ := c.reassign.Do(flight, func() (any, error) {
		c.store.Release(old.canonical)

		fresh, err := c.store.Node(ctx, old.key)
		if errors.Is(err, ErrNotFound) {
			// The last appearance went away with this removal.
			c.compareAndDelete(old)
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("shared: reassign canonical of %s: %w", old.key, err)
		}

		c.mu.Lock()
		cur, ok := c.sets[old.key]
		swapped := ok && cur == old
		var next *SharedSet
		if swapped {
			next = c.newSetLocked(fresh)
			c.sets[old.key] = next
		}
		c.mu.Unlock()

		if !swapped {
			c.log.Debug("shared: stale reassignment dropped", "key", old.key, "generation", old.gen)
			return nil, nil
		}
		c.obs.Reassigned()
		c.log.Debug("shared: canonical reassigned",
			"key", old.key,
			"old_parent", old.canonical.ParentKey(),
			"new_parent", fresh.ParentKey(),
			"generation", next.gen,
		)
		return nil, nil
	})
	return err
}

func (c *Cache) compareAndDelete(old *SharedSet) {
	c.mu.Lock()
	cur, ok := c.sets[old.key]
	deleted := ok && cur == old
	if deleted {
		delete(c.sets, old.key)
	}
	c.mu.Unlock()

	if deleted {
		c.obs.SetDestroyed()
		c.log.Debug("shared: shared set dropped, node no longer resolves", "key", old.key)
	}
}

// Len returns the number of cached SharedSets.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sets)
}

// Keys returns the keys of all cached SharedSets in a stable order.
func (c *Cache) Keys() []types.NodeKey {
	c.mu.RLock()
	out := make([]types.NodeKey, 0, len(c.sets))
	for k := range c.sets {
		out = append(out, k)
	}
	c.mu.RUnlock()

	slices.SortFunc(out, func(a, b types.NodeKey) int {
		return strings.Compare(a.String(), b.String())
	})
	return out
}
