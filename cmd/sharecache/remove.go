package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sharecache/sharecache/pkg/types"
)

var removeParent string

// removeCmd unlinks one appearance and prints the set before and after.
var removeCmd = &cobra.Command{
	Use:   "remove <workspace:id> --parent <workspace:id>",
	Short: "Remove one appearance of a shareable node",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

func init() {
	removeCmd.Flags().StringVar(&removeParent, "parent", "", "parent key of the appearance to remove (required)")
	_ = removeCmd.MarkFlagRequired("parent")
}

func runRemove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	key, err := types.ParseNodeKey(args[0])
	if err != nil {
		return err
	}
	parent, err := types.ParseNodeKey(removeParent)
	if err != nil {
		return err
	}
	e, err := setup(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	if err := printSet(ctx, out, e.session, key); err != nil {
		return err
	}
	n, err := e.session.NodeAt(ctx, key, parent)
	if err != nil {
		return err
	}
	if n.ParentKey() != parent {
		return fmt.Errorf("%s has no appearance under %s", key, parent)
	}
	if err := e.session.Remove(ctx, n); err != nil {
		return err
	}
	fmt.Fprintf(out, "removed %s from %s\n", key, parent)

	if _, ok := e.session.Repository().Lookup(key); !ok {
		fmt.Fprintf(out, "%s destroyed\n", key)
		return nil
	}
	return printSet(ctx, out, e.session, key)
}
