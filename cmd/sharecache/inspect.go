package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sharecache/sharecache/pkg/types"
)

var (
	inspectParent  string
	inspectUnder   string
	inspectMetrics bool
)

// inspectCmd prints the shared set of one shareable node.
var inspectCmd = &cobra.Command{
	Use:   "inspect <workspace:id>",
	Short: "Show every appearance of a shareable node",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectParent, "parent", "", "also resolve the appearance under this parent key")
	inspectCmd.Flags().StringVar(&inspectUnder, "under", "", "also find the first appearance at or below this path")
	inspectCmd.Flags().BoolVar(&inspectMetrics, "metrics", false, "dump cache metrics after inspecting")
}

func runInspect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	key, err := types.ParseNodeKey(args[0])
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

	set, err := e.session.SharedSet(ctx, key)
	if err != nil {
		return err
	}
	if inspectParent != "" {
		parent, err := types.ParseNodeKey(inspectParent)
		if err != nil {
			return err
		}
		n, err := set.LookupForParent(ctx, parent)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "under %s:\n", parent)
		if err := printNode(ctx, out, set, n); err != nil {
			return err
		}
	}
	if inspectUnder != "" {
		n, ok, err := set.FindAtOrBelow(ctx, types.NewPath(inspectUnder))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "at or below %s:\n", types.NewPath(inspectUnder))
		if !ok {
			fmt.Fprintln(out, "  none")
		} else if err := printNode(ctx, out, set, n); err != nil {
			return err
		}
	}
	if inspectMetrics {
		return writeMetrics(out, e)
	}
	return nil
}
