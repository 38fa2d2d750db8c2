package shared

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sharecache/sharecache/pkg/types"
)

type fakeNode struct {
	key    types.NodeKey
	parent types.NodeKey
	path   types.Path
}

func (n *fakeNode) Key() types.NodeKey                        { return n.key }
func (n *fakeNode) ParentKey() types.NodeKey                  { return n.parent }
func (n *fakeNode) Path(context.Context) (types.Path, error) { return n.path, nil }

// fakeStore is a scripted Store. Parent nodes are given paths; a shareable
// node has a primary parent and a list of additional parents.
type fakeStore struct {
	mu         sync.Mutex
	paths      map[types.NodeKey]types.Path
	primary    map[types.NodeKey]types.NodeKey
	additional map[types.NodeKey][]types.NodeKey
	objects    map[types.NodeKey]*fakeNode
	released   []Node

	failParents error
	failExists  error
	failNode    error
	nodeCalls   atomic.Int32
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		paths:      make(map[types.NodeKey]types.Path),
		primary:    make(map[types.NodeKey]types.NodeKey),
		additional: make(map[types.NodeKey][]types.NodeKey),
		objects:    make(map[types.NodeKey]*fakeNode),
	}
}

// folder registers a parent node at path.
func (s *fakeStore) folder(ws, id, path string) types.NodeKey {
	k := types.NewNodeKey(ws, id)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths[k] = types.NewPath(path)
	return k
}

// shareable registers node id under primary, also appearing under extra.
func (s *fakeStore) shareable(ws, id string, primary types.NodeKey, extra ...types.NodeKey) types.NodeKey {
	k := types.NewNodeKey(ws, id)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.primary[k] = primary
	s.additional[k] = extra
	return k
}

func (s *fakeStore) setParents(k, primary types.NodeKey, extra ...types.NodeKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.primary[k] = primary
	s.additional[k] = extra
}

func (s *fakeStore) drop(k types.NodeKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.primary, k)
	delete(s.additional, k)
	delete(s.paths, k)
}

func (s *fakeStore) releasedNodes() []Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Node(nil), s.released...)
}

func (s *fakeStore) AdditionalParents(_ context.Context, key types.NodeKey) ([]types.NodeKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failParents != nil {
		return nil, s.failParents
	}
	if _, ok := s.primary[key]; !ok {
		return nil, fmt.Errorf("fake: %s: %w", key, ErrNotFound)
	}
	return append([]types.NodeKey(nil), s.additional[key]...), nil
}

func (s *fakeStore) NodeExists(_ context.Context, key types.NodeKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failExists != nil {
		return false, s.failExists
	}
	_, ok := s.paths[key]
	return ok, nil
}

func (s *fakeStore) Node(ctx context.Context, key types.NodeKey) (Node, error) {
	s.nodeCalls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNode != nil {
		return nil, s.failNode
	}
	if n, ok := s.objects[key]; ok {
		return n, nil
	}
	parent, ok := s.primary[key]
	if !ok {
		return nil, fmt.Errorf("fake: %s: %w", key, ErrNotFound)
	}
	n := &fakeNode{key: key, parent: parent, path: s.paths[parent].Child(key.ID)}
	s.objects[key] = n
	return n, nil
}

func (s *fakeStore) Release(node Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.objects[node.Key()]; ok && Node(cur) == node {
		delete(s.objects, node.Key())
	}
	s.released = append(s.released, node)
}

func (s *fakeStore) ChildPath(_ context.Context, parent, child types.NodeKey) (types.Path, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.paths[parent]
	if !ok {
		return "", fmt.Errorf("fake: parent %s: %w", parent, ErrNotFound)
	}
	return p.Child(child.ID), nil
}

// gatedStore parks the first armed Node call after it has resolved its
// object, until gate is closed.
type gatedStore struct {
	*fakeStore
	armed   atomic.Bool
	entered chan struct{}
	gate    chan struct{}
}

func newGatedStore(st *fakeStore) *gatedStore {
	g := &gatedStore{fakeStore: st, entered: make(chan struct{}), gate: make(chan struct{})}
	g.armed.Store(true)
	return g
}

func (s *gatedStore) Node(ctx context.Context, key types.NodeKey) (Node, error) {
	n, err := s.fakeStore.Node(ctx, key)
	if s.armed.CompareAndSwap(true, false) {
		close(s.entered)
		<-s.gate
	}
	return n, err
}

// countingObserver records every Observer call.
type countingObserver struct {
	created, destroyed, reassigned, appearances, hits, detached atomic.Int32
}

func (o *countingObserver) SetCreated()        { o.created.Add(1) }
func (o *countingObserver) SetDestroyed()      { o.destroyed.Add(1) }
func (o *countingObserver) Reassigned()        { o.reassigned.Add(1) }
func (o *countingObserver) AppearanceCreated() { o.appearances.Add(1) }
func (o *countingObserver) AppearanceHit()     { o.hits.Add(1) }
func (o *countingObserver) Detached()          { o.detached.Add(1) }
