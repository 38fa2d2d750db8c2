package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sharecache/sharecache/internal/config"
	"github.com/sharecache/sharecache/internal/memstore"
	"github.com/sharecache/sharecache/internal/metrics"
	"github.com/sharecache/sharecache/internal/shared"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "sharecache",
	Short: "Inspect shared node sets of a fixture repository",
	Long: `sharecache loads a YAML repository fixture into memory, opens a session
on one workspace and reports how the session's shared node cache sees the
appearances of shareable nodes.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file")
	rootCmd.AddCommand(inspectCmd, removeCmd, watchCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// env is everything a command needs after config has been read.
type env struct {
	cfg       *config.Config
	session   *memstore.Session
	collector *metrics.Collector
}

// setup loads the config, installs the logger and opens a session on a
// freshly loaded fixture.
func setup(stderr io.Writer) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	installLogger(stderr, cfg.Sharecache.Log)
	slog.Info("config loaded",
		"fixture", cfg.Sharecache.Fixture,
		"workspace", cfg.Sharecache.Workspace,
		"metrics", cfg.Sharecache.Metrics.Enabled,
	)
	return openSession(cfg)
}

func openSession(cfg *config.Config) (*env, error) {
	repo, err := memstore.LoadFixtureFile(cfg.Sharecache.Fixture)
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg}
	var opts []memstore.SessionOption
	if cfg.Sharecache.Metrics.Enabled {
		e.collector = metrics.NewCollector(cfg.Sharecache.Metrics.Namespace,
			map[string]string{"workspace": cfg.Sharecache.Workspace})
		opts = append(opts, memstore.WithCacheOptions(shared.WithObserver(e.collector)))
	}
	e.session, err = repo.Login(cfg.Sharecache.Workspace, opts...)
	if err != nil {
		return nil, err
	}
	slog.Debug("session opened", "session", e.session.ID())
	return e, nil
}

func installLogger(w io.Writer, lc config.LogConfig) {
	hopts := &slog.HandlerOptions{Level: lc.SlogLevel()}
	var h slog.Handler = slog.NewJSONHandler(w, hopts)
	if lc.Format == "text" {
		h = slog.NewTextHandler(w, hopts)
	}
	slog.SetDefault(slog.New(h))
}

func writeMetrics(w io.Writer, e *env) error {
	if e.collector == nil {
		return fmt.Errorf("metrics are disabled in %s", configPath)
	}
	var buf bytes.Buffer
	if err := e.collector.WriteText(&buf); err != nil {
		return err
	}
	text := buf.String()
	sum, err := metrics.Summarize(strings.NewReader(text), e.collector.Namespace())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s# summary %s\n", text, sum)
	return err
}
