package memstore

import (
	"context"
	"fmt"

	"github.com/sharecache/sharecache/internal/shared"
	"github.com/sharecache/sharecache/pkg/types"
)

// Node is the session object for a node at its primary parent.
type Node struct {
	session   *Session
	key       types.NodeKey
	parent    types.NodeKey
	name      string
	shareable bool
}

var _ shared.Node = (*Node)(nil)

// Key returns the node key.
func (n *Node) Key() types.NodeKey { return n.key }

// ParentKey returns the primary parent recorded when the object was resolved.
func (n *Node) ParentKey() types.NodeKey { return n.parent }

// Name returns the name under the primary parent.
func (n *Node) Name() string { return n.name }

// IsShareable reports whether the node may be linked under more parents.
func (n *Node) IsShareable() bool { return n.shareable }

// Path returns the node's path through the recorded parent.
func (n *Node) Path(_ context.Context) (types.Path, error) {
	if n.parent.IsZero() {
		if !n.session.repo.Exists(n.key) {
			return "", fmt.Errorf("memstore: path of %s: %w", n.key, shared.ErrInvalidState)
		}
		return types.Root, nil
	}
	return n.session.repo.ChildPath(n.parent, n.key)
}

func (n *Node) String() string {
	return fmt.Sprintf("node(%s under %s)", n.key, n.parent)
}
