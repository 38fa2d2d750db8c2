package main

import (
	"context"
	"fmt"
	"io"

	"github.com/sharecache/sharecache/internal/memstore"
	"github.com/sharecache/sharecache/internal/shared"
	"github.com/sharecache/sharecache/pkg/types"
)

// printSet writes one line per appearance of key, canonical first.
func printSet(ctx context.Context, w io.Writer, s *memstore.Session, key types.NodeKey) error {
	set, err := s.SharedSet(ctx, key)
	if err != nil {
		return err
	}
	size, err := set.Size(ctx)
	if err != nil {
		return err
	}
	it, err := set.All(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s  generation=%d size=%d\n", key, set.Generation(), size)
	for n := range it.Seq() {
		if err := printNode(ctx, w, set, n); err != nil {
			return err
		}
	}
	return nil
}

func printNode(ctx context.Context, w io.Writer, set *shared.SharedSet, n shared.Node) error {
	p, err := n.Path(ctx)
	if err != nil {
		return err
	}
	role := "shared"
	if n == set.Canonical() {
		role = "canonical"
	}
	fmt.Fprintf(w, "  %-9s %-30s parent=%s obj=%p\n", role, p, n.ParentKey(), n)
	return nil
}
