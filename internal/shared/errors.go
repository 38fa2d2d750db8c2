package shared

import (
	"errors"
	"fmt"

	"github.com/sharecache/sharecache/pkg/types"
)

var (
	// ErrNotFound means a referenced node or parent no longer resolves.
	ErrNotFound = errors.New("shared: node not found")

	// ErrInvalidState means the backing node was destroyed while an
	// appearance of it was still in use.
	ErrInvalidState = errors.New("shared: invalid item state")
)

// ResolveError is the panic value raised by SharedSet.ForParent when the
// Store fails. Recover it with errors.As.
type ResolveError struct {
	Key    types.NodeKey
	Parent types.NodeKey
	Err    error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("shared: resolve %s under %s: %v", e.Key, e.Parent, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }
