package shared

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/sharecache/sharecache/pkg/types"
)

// SharedSet holds every appearance of one shareable node. The canonical
// appearance is fixed for the lifetime of the set; shared nodes for the
// additional parents are created on first access and memoized by parent key.
type SharedSet struct {
	cache     *Cache
	key       types.NodeKey
	canonical Node
	gen       uint64

	mu     sync.Mutex
	shared map[types.NodeKey]*SharedNode
}

// Key returns the key of the shareable node.
func (s *SharedSet) Key() types.NodeKey { return s.key }

// Canonical returns the appearance at the node's primary parent.
func (s *SharedSet) Canonical() Node { return s.canonical }

// Generation increases every time the cache installs a set. A set replaced
// after a canonical removal always has a higher generation than its
// predecessor.
func (s *SharedSet) Generation() uint64 { return s.gen }

// Cached returns the number of memoized shared nodes.
func (s *SharedSet) Cached() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.shared)
}

// ForParent returns the appearance of the node under parentKey. It never
// returns nil: when parentKey is not a valid additional parent the canonical
// appearance is returned. A Store failure panics with *ResolveError.
func (s *SharedSet) ForParent(ctx context.Context, parentKey types.NodeKey) Node {
	n, err := s.LookupForParent(ctx, parentKey)
	if err != nil {
		panic(&ResolveError{Key: s.key, Parent: parentKey, Err: err})
	}
	return n
}

// LookupForParent is ForParent with Store failures returned as errors.
func (s *SharedSet) LookupForParent(ctx context.Context, parentKey types.NodeKey) (Node, error) {
	if parentKey == s.canonical.ParentKey() {
		return s.canonical, nil
	}
	// Shared sets never cross workspaces.
	if !s.key.SameWorkspace(parentKey) {
		return s.canonical, nil
	}

	parents, err := s.cache.store.AdditionalParents(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("shared: additional parents of %s: %w", s.key, err)
	}
	if !slices.Contains(parents, parentKey) {
		return s.canonical, nil
	}

	exists, err := s.cache.store.NodeExists(ctx, parentKey)
	if err != nil {
		return nil, fmt.Errorf("shared: parent %s of %s: %w", parentKey, s.key, err)
	}
	if !exists {
		return s.canonical, nil
	}
	return s.sharedNode(parentKey), nil
}

func (s *SharedSet) sharedNode(parentKey types.NodeKey) *SharedNode {
	s.mu.Lock()
	n, ok := s.shared[parentKey]
	if !ok {
		n = &SharedNode{cache: s.cache, key: s.key, parent: parentKey}
		s.shared[parentKey] = n
	}
	s.mu.Unlock()

	if ok {
		s.cache.obs.AppearanceHit()
	} else {
		s.cache.obs.AppearanceCreated()
	}
	return n
}

// Detach forgets the shared node memoized for n's parent. n may come from a
// replaced set; the mapping for its parent key is dropped all the same.
func (s *SharedSet) Detach(n *SharedNode) {
	s.mu.Lock()
	_, detached := s.shared[n.parent]
	delete(s.shared, n.parent)
	s.mu.Unlock()

	if detached {
		s.cache.obs.Detached()
		s.cache.log.Debug("shared: shared node detached", "key", s.key, "parent", n.parent)
	}
}

// livingParents returns the additional parents that are in the node's
// workspace and currently exist, in Store order.
func (s *SharedSet) livingParents(ctx context.Context) ([]types.NodeKey, error) {
	parents, err := s.cache.store.AdditionalParents(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("shared: additional parents of %s: %w", s.key, err)
	}
	out := make([]types.NodeKey, 0, len(parents))
	for _, p := range parents {
		if !s.key.SameWorkspace(p) {
			continue
		}
		exists, err := s.cache.store.NodeExists(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("shared: parent %s of %s: %w", p, s.key, err)
		}
		if exists {
			out = append(out, p)
		}
	}
	return out, nil
}

// Size returns the number of appearances: the canonical one plus every
// additional parent that currently exists. It is recomputed on each call.
func (s *SharedSet) Size(ctx context.Context) (int, error) {
	parents, err := s.livingParents(ctx)
	if err != nil {
		return 0, err
	}
	return 1 + len(parents), nil
}

// All materializes the appearances of the node: the canonical one first,
// then one shared node per living additional parent in Store order.
func (s *SharedSet) All(ctx context.Context) (*NodeIterator, error) {
	parents, err := s.livingParents(ctx)
	if err != nil {
		return nil, err
	}
	nodes := make([]Node, 0, len(parents)+1)
	nodes = append(nodes, s.canonical)
	for _, p := range parents {
		nodes = append(nodes, s.sharedNode(p))
	}
	return newNodeIterator(nodes), nil
}

// FindAtOrBelow returns the first appearance, in All order, whose path is
// path or lies beneath it. When several qualify any one of them may be
// returned.
func (s *SharedSet) FindAtOrBelow(ctx context.Context, path types.Path) (Node, bool, error) {
	it, err := s.All(ctx)
	if err != nil {
		return nil, false, err
	}
	for it.Next() {
		n := it.Node()
		p, err := n.Path(ctx)
		if err != nil {
			return nil, false, fmt.Errorf("shared: path of %s under %s: %w", n.Key(), n.ParentKey(), err)
		}
		if p.IsAtOrBelow(path) {
			return n, true, nil
		}
	}
	return nil, false, nil
}
