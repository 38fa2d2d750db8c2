package shared

import (
	"context"

	"github.com/sharecache/sharecache/pkg/types"
)

// Node is one appearance of a node. Implementations must be comparable
// (pointer types in practice): appearances are matched by identity.
type Node interface {
	Key() types.NodeKey

	// ParentKey is the parent this appearance hangs under. For a canonical
	// appearance it is the primary parent at the time the object was resolved.
	ParentKey() types.NodeKey

	Path(ctx context.Context) (types.Path, error)
}

// Store is the session-side view of the repository the cache relies on.
type Store interface {
	// AdditionalParents returns the parents, besides the primary one, under
	// which the shareable node identified by key also appears.
	AdditionalParents(ctx context.Context, key types.NodeKey) ([]types.NodeKey, error)

	// NodeExists reports whether a node exists at key in the session's view.
	NodeExists(ctx context.Context, key types.NodeKey) (bool, error)

	// Node resolves the canonical object for key from current state. It
	// returns an error wrapping ErrNotFound when the node no longer exists.
	Node(ctx context.Context, key types.NodeKey) (Node, error)

	// Release evicts node from the session's object cache so the next call
	// to Node builds a replacement.
	Release(node Node)

	// ChildPath returns the path of child as reached through parent.
	ChildPath(ctx context.Context, parent, child types.NodeKey) (types.Path, error)
}
