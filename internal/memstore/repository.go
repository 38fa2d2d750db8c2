package memstore

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/sharecache/sharecache/internal/shared"
	"github.com/sharecache/sharecache/pkg/types"
)

// RootID is the id of every workspace root node.
const RootID = "root"

var (
	// ErrNotShareable is returned when sharing a node that is not shareable.
	ErrNotShareable = errors.New("memstore: node is not shareable")

	// ErrExists is returned when an id or a child name is already taken.
	ErrExists = errors.New("memstore: already exists")

	// ErrCycle is returned when a share would make a node its own ancestor.
	ErrCycle = errors.New("memstore: share would create a cycle")
)

// link is one parent → child edge.
type link struct {
	parent types.NodeKey
	name   string
}

type record struct {
	key       types.NodeKey
	primary   link // zero parent for workspace roots
	extra     []link
	shareable bool
	children  []types.NodeKey
}

// nameUnder returns the child name of r below parent.
func (r *record) nameUnder(parent types.NodeKey) (string, bool) {
	if r.primary.parent == parent && !parent.IsZero() {
		return r.primary.name, true
	}
	for _, l := range r.extra {
		if l.parent == parent {
			return l.name, true
		}
	}
	return "", false
}

// Info is a read-only view of one node.
type Info struct {
	Key        types.NodeKey
	Name       string
	Parent     types.NodeKey
	Shareable  bool
	Additional []types.NodeKey
}

// Change lists the nodes affected by a structural mutation.
type Change struct {
	// Destroyed holds nodes that no longer exist.
	Destroyed []types.NodeKey
	// Reparented holds nodes whose primary parent changed.
	Reparented []types.NodeKey
}

// Repository is an in-memory content tree made of workspaces. Nodes flagged
// shareable may be linked under additional parents, possibly in other
// workspaces.
//
// Repository is safe for concurrent use.
type Repository struct {
	mu    sync.RWMutex
	nodes map[types.NodeKey]*record
}

// NewRepository creates an empty Repository.
func NewRepository() *Repository {
	return &Repository{nodes: make(map[types.NodeKey]*record)}
}

// CreateWorkspace creates ws with an empty root node and returns the root
// key. Creating an existing workspace is a no-op.
func (r *Repository) CreateWorkspace(ws string) types.NodeKey {
	key := types.NewNodeKey(ws, RootID)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.nodes[key]; !ok {
		r.nodes[key] = &record{key: key}
	}
	return key
}

// Workspaces returns the names of all workspaces.
func (r *Repository) Workspaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for k := range r.nodes {
		if k.ID == RootID {
			out = append(out, k.Workspace)
		}
	}
	slices.Sort(out)
	return out
}

// AddNode creates a node called name with the given id below parent, in the
// parent's workspace.
func (r *Repository) AddNode(parent types.NodeKey, name, id string, shareable bool) (types.NodeKey, error) {
	if name == "" || id == "" {
		return types.NodeKey{}, fmt.Errorf("memstore: add node: name and id are required")
	}
	key := types.NewNodeKey(parent.Workspace, id)

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.nodes[parent]
	if !ok {
		return types.NodeKey{}, fmt.Errorf("memstore: add node %s: parent %s: %w", key, parent, shared.ErrNotFound)
	}
	if _, ok := r.nodes[key]; ok {
		return types.NodeKey{}, fmt.Errorf("memstore: add node %s: %w", key, ErrExists)
	}
	if r.childLocked(p, name) != nil {
		return types.NodeKey{}, fmt.Errorf("memstore: add node %s: name %q under %s: %w", key, name, parent, ErrExists)
	}

	r.nodes[key] = &record{
		key:       key,
		primary:   link{parent: parent, name: name},
		shareable: shareable,
	}
	p.children = append(p.children, key)
	return key, nil
}

// Share links the shareable node key under parent as name. The parent may
// live in another workspace. An empty name reuses the primary name.
func (r *Repository) Share(key, parent types.NodeKey, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.nodes[key]
	if !ok {
		return fmt.Errorf("memstore: share %s: %w", key, shared.ErrNotFound)
	}
	if !n.shareable {
		return fmt.Errorf("memstore: share %s: %w", key, ErrNotShareable)
	}
	p, ok := r.nodes[parent]
	if !ok {
		return fmt.Errorf("memstore: share %s: parent %s: %w", key, parent, shared.ErrNotFound)
	}
	if _, linked := n.nameUnder(parent); linked {
		return fmt.Errorf("memstore: share %s under %s: %w", key, parent, ErrExists)
	}
	if name == "" {
		name = n.primary.name
	}
	if r.childLocked(p, name) != nil {
		return fmt.Errorf("memstore: share %s: name %q under %s: %w", key, name, parent, ErrExists)
	}
	for a := p; a != nil; a = r.nodes[a.primary.parent] {
		if a.key == key {
			return fmt.Errorf("memstore: share %s under %s: %w", key, parent, ErrCycle)
		}
		if a.primary.parent.IsZero() {
			break
		}
	}

	n.extra = append(n.extra, link{parent: parent, name: name})
	p.children = append(p.children, key)
	return nil
}

// Unlink removes the edge between key and parent. Removing the primary edge
// promotes the oldest additional parent; removing the last edge destroys the
// node and its subtree.
func (r *Repository) Unlink(key, parent types.NodeKey) (Change, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.nodes[key]
	if !ok {
		return Change{}, fmt.Errorf("memstore: unlink %s: %w", key, shared.ErrNotFound)
	}
	if n.primary.parent.IsZero() {
		return Change{}, fmt.Errorf("memstore: unlink %s: workspace root cannot be unlinked", key)
	}
	if _, linked := n.nameUnder(parent); !linked {
		return Change{}, fmt.Errorf("memstore: unlink %s: not a child of %s: %w", key, parent, shared.ErrNotFound)
	}

	var ch Change
	r.unlinkLocked(n, parent, &ch)
	return ch, nil
}

// Destroy removes key from every parent and destroys its subtree.
func (r *Repository) Destroy(key types.NodeKey) (Change, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.nodes[key]
	if !ok {
		return Change{}, fmt.Errorf("memstore: destroy %s: %w", key, shared.ErrNotFound)
	}
	if n.primary.parent.IsZero() {
		return Change{}, fmt.Errorf("memstore: destroy %s: workspace root cannot be destroyed", key)
	}

	var ch Change
	r.destroyLocked(n, &ch)
	return ch, nil
}

func (r *Repository) unlinkLocked(n *record, parent types.NodeKey, ch *Change) {
	if p, ok := r.nodes[parent]; ok {
		p.children = slices.DeleteFunc(p.children, func(k types.NodeKey) bool { return k == n.key })
	}
	if n.primary.parent != parent {
		n.extra = slices.DeleteFunc(n.extra, func(l link) bool { return l.parent == parent })
		return
	}
	// Only a parent in the node's own workspace can become primary.
	i := slices.IndexFunc(n.extra, func(l link) bool { return l.parent.SameWorkspace(n.key) })
	if i < 0 {
		n.primary = link{}
		r.destroyLocked(n, ch)
		return
	}
	n.primary = n.extra[i]
	n.extra = slices.Delete(n.extra, i, i+1)
	ch.Reparented = append(ch.Reparented, n.key)
}

func (r *Repository) destroyLocked(n *record, ch *Change) {
	if !n.primary.parent.IsZero() {
		if p, ok := r.nodes[n.primary.parent]; ok {
			p.children = slices.DeleteFunc(p.children, func(k types.NodeKey) bool { return k == n.key })
		}
	}
	for _, l := range n.extra {
		if p, ok := r.nodes[l.parent]; ok {
			p.children = slices.DeleteFunc(p.children, func(k types.NodeKey) bool { return k == n.key })
		}
	}
	delete(r.nodes, n.key)
	ch.Destroyed = append(ch.Destroyed, n.key)

	children := slices.Clone(n.children)
	n.children = nil
	for _, ck := range children {
		c, ok := r.nodes[ck]
		if !ok {
			continue
		}
		r.unlinkLocked(c, n.key, ch)
	}
}

func (r *Repository) childLocked(p *record, name string) *record {
	for _, ck := range p.children {
		c, ok := r.nodes[ck]
		if !ok {
			continue
		}
		if got, _ := c.nameUnder(p.key); got == name {
			return c
		}
	}
	return nil
}

// Exists reports whether key names a node.
func (r *Repository) Exists(key types.NodeKey) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.nodes[key]
	return ok
}

// Lookup returns a snapshot of the node at key.
func (r *Repository) Lookup(key types.NodeKey) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[key]
	if !ok {
		return Info{}, false
	}
	info := Info{
		Key:       n.key,
		Name:      n.primary.name,
		Parent:    n.primary.parent,
		Shareable: n.shareable,
	}
	for _, l := range n.extra {
		info.Additional = append(info.Additional, l.parent)
	}
	return info, true
}

// AdditionalParents returns every parent of key except the primary one, in
// the order the links were made.
func (r *Repository) AdditionalParents(key types.NodeKey) ([]types.NodeKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[key]
	if !ok {
		return nil, fmt.Errorf("memstore: additional parents of %s: %w", key, shared.ErrNotFound)
	}
	out := make([]types.NodeKey, 0, len(n.extra))
	for _, l := range n.extra {
		out = append(out, l.parent)
	}
	return out, nil
}

// Children returns the keys linked below key, shared links included.
func (r *Repository) Children(key types.NodeKey) ([]types.NodeKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[key]
	if !ok {
		return nil, fmt.Errorf("memstore: children of %s: %w", key, shared.ErrNotFound)
	}
	return slices.Clone(n.children), nil
}

// PathOf returns the path of key through its primary parents.
func (r *Repository) PathOf(key types.NodeKey) (types.Path, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pathLocked(key)
}

// ChildPath returns the path of child as reached through parent.
func (r *Repository) ChildPath(parent, child types.NodeKey) (types.Path, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.nodes[child]
	if !ok {
		return "", fmt.Errorf("memstore: path of %s: %w", child, shared.ErrInvalidState)
	}
	name, ok := c.nameUnder(parent)
	if !ok {
		return "", fmt.Errorf("memstore: %s is not a child of %s: %w", child, parent, shared.ErrNotFound)
	}
	pp, err := r.pathLocked(parent)
	if err != nil {
		return "", err
	}
	return pp.Child(name), nil
}

func (r *Repository) pathLocked(key types.NodeKey) (types.Path, error) {
	var names []string
	for k := key; ; {
		n, ok := r.nodes[k]
		if !ok {
			return "", fmt.Errorf("memstore: path of %s: %w", key, shared.ErrNotFound)
		}
		if n.primary.parent.IsZero() {
			break
		}
		names = append(names, n.primary.name)
		k = n.primary.parent
	}
	p := types.Root
	for i := len(names) - 1; i >= 0; i-- {
		p = p.Child(names[i])
	}
	return p, nil
}

// NodeAt resolves path in workspace ws, following shared links as well as
// primary ones.
func (r *Repository) NodeAt(ws string, path types.Path) (types.NodeKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cur, ok := r.nodes[types.NewNodeKey(ws, RootID)]
	if !ok {
		return types.NodeKey{}, fmt.Errorf("memstore: workspace %q: %w", ws, shared.ErrNotFound)
	}
	if path.IsRoot() {
		return cur.key, nil
	}
	rest := types.NewPath(string(path))
	var segs []string
	for p := rest; !p.IsRoot(); p = p.Parent() {
		segs = append(segs, p.Name())
	}
	for i := len(segs) - 1; i >= 0; i-- {
		next := r.childLocked(cur, segs[i])
		if next == nil {
			return types.NodeKey{}, fmt.Errorf("memstore: %s:%s: %w", ws, path, shared.ErrNotFound)
		}
		cur = next
	}
	return cur.key, nil
}
