package memstore

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/sharecache/sharecache/internal/shared"
	"github.com/sharecache/sharecache/pkg/types"
)

// Session is one client's view of a workspace. It keeps a per-session object
// cache so that the same node key resolves to the same *Node until the object
// is released, and lazily owns the shared.Cache for shareable nodes.
//
// Session implements shared.Store and is safe for concurrent use.
type Session struct {
	id   string
	ws   string
	repo *Repository
	log  *slog.Logger
	opts []shared.Option

	mu      sync.Mutex
	objects map[types.NodeKey]*Node

	cacheOnce sync.Once
	cache     *shared.Cache
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithCacheOptions passes options through to the session's shared.Cache.
func WithCacheOptions(opts ...shared.Option) SessionOption {
	return func(s *Session) { s.opts = append(s.opts, opts...) }
}

// Login opens a session on workspace ws.
func (r *Repository) Login(ws string, opts ...SessionOption) (*Session, error) {
	if !r.Exists(types.NewNodeKey(ws, RootID)) {
		return nil, fmt.Errorf("memstore: login: workspace %q: %w", ws, shared.ErrNotFound)
	}
	s := &Session{
		id:      uuid.NewString(),
		ws:      ws,
		repo:    r,
		log:     slog.Default(),
		objects: make(map[types.NodeKey]*Node),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("session", s.id, "workspace", ws)
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Workspace returns the workspace the session is bound to.
func (s *Session) Workspace() string { return s.ws }

// Repository returns the repository behind the session.
func (s *Session) Repository() *Repository { return s.repo }

// SharedCache returns the session's shared node cache, creating it on first use.
func (s *Session) SharedCache() *shared.Cache {
	s.cacheOnce.Do(func() {
		opts := append([]shared.Option{
			shared.WithSessionID(s.id),
			shared.WithLogger(s.log),
		}, s.opts...)
		s.cache = shared.New(s, opts...)
	})
	return s.cache
}

// AdditionalParents implements shared.Store.
func (s *Session) AdditionalParents(_ context.Context, key types.NodeKey) ([]types.NodeKey, error) {
	return s.repo.AdditionalParents(key)
}

// NodeExists implements shared.Store. Nodes outside the session workspace
// are not visible.
func (s *Session) NodeExists(_ context.Context, key types.NodeKey) (bool, error) {
	if key.Workspace != s.ws {
		return false, nil
	}
	return s.repo.Exists(key), nil
}

// ChildPath implements shared.Store.
func (s *Session) ChildPath(_ context.Context, parent, child types.NodeKey) (types.Path, error) {
	return s.repo.ChildPath(parent, child)
}

// Node returns the cached object for key, resolving a new one from the
// repository on a miss. The object records the node's primary parent at
// that moment.
func (s *Session) Node(_ context.Context, key types.NodeKey) (shared.Node, error) {
	n, err := s.node(key)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Session) node(key types.NodeKey) (*Node, error) {
	if key.Workspace != s.ws {
		return nil, fmt.Errorf("memstore: node %s outside workspace %q: %w", key, s.ws, shared.ErrNotFound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if n, ok := s.objects[key]; ok {
		return n, nil
	}
	info, ok := s.repo.Lookup(key)
	if !ok {
		return nil, fmt.Errorf("memstore: node %s: %w", key, shared.ErrNotFound)
	}
	n := &Node{
		session:   s,
		key:       key,
		parent:    info.Parent,
		name:      info.Name,
		shareable: info.Shareable,
	}
	s.objects[key] = n
	return n, nil
}

// Release implements shared.Store. Only the object currently cached for its
// key is evicted.
func (s *Session) Release(node shared.Node) {
	n, ok := node.(*Node)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.objects[n.key]; ok && cur == n {
		delete(s.objects, n.key)
	}
}

// NodeAt returns the appearance of key under parent. For a node that is not
// shareable the parent is ignored and the canonical object is returned.
func (s *Session) NodeAt(ctx context.Context, key, parent types.NodeKey) (shared.Node, error) {
	n, err := s.node(key)
	if err != nil {
		return nil, err
	}
	if !n.shareable {
		return n, nil
	}
	set, err := s.SharedCache().SharedSetOf(ctx, n)
	if err != nil {
		return nil, err
	}
	return set.LookupForParent(ctx, parent)
}

// NodeByPath resolves path in the session workspace to the appearance that
// was reached through the final link.
func (s *Session) NodeByPath(ctx context.Context, path types.Path) (shared.Node, error) {
	key, err := s.repo.NodeAt(s.ws, path)
	if err != nil {
		return nil, err
	}
	if path.IsRoot() {
		return s.Node(ctx, key)
	}
	parent, err := s.repo.NodeAt(s.ws, path.Parent())
	if err != nil {
		return nil, err
	}
	return s.NodeAt(ctx, key, parent)
}

// SharedSet returns the shared set of the shareable node key.
func (s *Session) SharedSet(ctx context.Context, key types.NodeKey) (*shared.SharedSet, error) {
	n, err := s.node(key)
	if err != nil {
		return nil, err
	}
	if !n.shareable {
		return nil, fmt.Errorf("memstore: shared set of %s: %w", key, ErrNotShareable)
	}
	return s.SharedCache().SharedSetOf(ctx, n)
}

// Share links the shareable node key under parent as name.
func (s *Session) Share(_ context.Context, key, parent types.NodeKey, name string) error {
	return s.repo.Share(key, parent, name)
}

// Remove unlinks the appearance node from its parent and brings the object
// cache and the shared cache up to date.
func (s *Session) Remove(ctx context.Context, node shared.Node) error {
	ch, err := s.repo.Unlink(node.Key(), node.ParentKey())
	if err != nil {
		return err
	}
	if sn, ok := node.(*shared.SharedNode); ok {
		if err := s.SharedCache().Removed(ctx, sn); err != nil {
			return err
		}
	}
	return s.apply(ctx, ch)
}

// Destroy removes key from the repository together with its subtree.
func (s *Session) Destroy(ctx context.Context, key types.NodeKey) error {
	ch, err := s.repo.Destroy(key)
	if err != nil {
		return err
	}
	return s.apply(ctx, ch)
}

func (s *Session) apply(ctx context.Context, ch Change) error {
	cache := s.SharedCache()
	for _, k := range ch.Destroyed {
		s.mu.Lock()
		delete(s.objects, k)
		s.mu.Unlock()
		cache.Destroyed(k)
	}
	for _, k := range ch.Reparented {
		if slices.Contains(ch.Destroyed, k) {
			continue
		}
		s.mu.Lock()
		n, ok := s.objects[k]
		s.mu.Unlock()
		if !ok {
			continue
		}
		if err := cache.Removed(ctx, n); err != nil {
			return err
		}
	}
	if len(ch.Destroyed)+len(ch.Reparented) > 0 {
		s.log.Debug("memstore: change applied",
			"destroyed", len(ch.Destroyed), "reparented", len(ch.Reparented))
	}
	return nil
}
