package types

import (
	"fmt"
	"strings"
)

// NodeKey identifies a node within one workspace. The zero value is not a
// valid key.
type NodeKey struct {
	Workspace string
	ID        string
}

// NewNodeKey returns the key for id in workspace ws.
func NewNodeKey(ws, id string) NodeKey {
	return NodeKey{Workspace: ws, ID: id}
}

// WorkspaceKey returns the workspace the key is scoped to.
func (k NodeKey) WorkspaceKey() string { return k.Workspace }

// IsZero reports whether k is the zero key.
func (k NodeKey) IsZero() bool { return k.Workspace == "" && k.ID == "" }

// SameWorkspace reports whether k and other live in the same workspace.
func (k NodeKey) SameWorkspace(other NodeKey) bool { return k.Workspace == other.Workspace }

// String renders the key as "workspace:id".
func (k NodeKey) String() string { return k.Workspace + ":" + k.ID }

// ParseNodeKey parses the "workspace:id" form produced by String.
func ParseNodeKey(s string) (NodeKey, error) {
	ws, id, ok := strings.Cut(s, ":")
	if !ok || ws == "" || id == "" {
		return NodeKey{}, fmt.Errorf("types: malformed node key %q: want workspace:id", s)
	}
	return NodeKey{Workspace: ws, ID: id}, nil
}
