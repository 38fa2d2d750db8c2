package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sharecache/sharecache/internal/config"
	"github.com/sharecache/sharecache/pkg/types"
)

// watchCmd reprints a shared set whenever the config or fixture changes.
var watchCmd = &cobra.Command{
	Use:   "watch <workspace:id>",
	Short: "Reprint a shared set each time the fixture changes",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
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

	// Every reload discards the previous session, and its cache with it.
	return config.Watch(ctx, configPath, func(cfg *config.Config) {
		installLogger(cmd.ErrOrStderr(), cfg.Sharecache.Log)
		next, err := openSession(cfg)
		if err != nil {
			slog.Error("reload: keeping previous session", "err", err)
			return
		}
		fmt.Fprintln(out, "---")
		if err := printSet(ctx, out, next.session, key); err != nil {
			slog.Warn("reload: inspect failed", "key", key, "err", err)
		}
	})
}
