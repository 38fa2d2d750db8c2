package shared

import (
	"context"
	"fmt"

	"github.com/sharecache/sharecache/pkg/types"
)

// SharedNode is the appearance of a shareable node under one of its
// additional parents. It refers to its SharedSet only through the key of the
// shareable node, so an orphaned SharedNode keeps no replaced set alive.
type SharedNode struct {
	cache  *Cache
	key    types.NodeKey
	parent types.NodeKey
}

// Key returns the key of the shareable node.
func (n *SharedNode) Key() types.NodeKey { return n.key }

// ParentKey returns the additional parent this appearance hangs under.
func (n *SharedNode) ParentKey() types.NodeKey { return n.parent }

// Path returns the path of the node as reached through this parent.
func (n *SharedNode) Path(ctx context.Context) (types.Path, error) {
	p, err := n.cache.store.ChildPath(ctx, n.parent, n.key)
	if err != nil {
		return "", fmt.Errorf("shared: path of %s under %s: %w", n.key, n.parent, err)
	}
	return p, nil
}

// SharedSet returns the current set of the shareable node, which may be a
// newer one than the set that created n.
func (n *SharedNode) SharedSet(ctx context.Context) (*SharedSet, error) {
	return n.cache.GetOrCreate(ctx, n.key)
}

func (n *SharedNode) String() string {
	return fmt.Sprintf("shared(%s under %s)", n.key, n.parent)
}
