package config

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watch monitors the config file at path, and the fixture it names, and
// calls onChange with the newly loaded Config each time either is written.
// It runs until ctx is cancelled.
//
// If a reload fails (e.g., invalid YAML), the error is logged and the
// previous config remains active; Watch does not call onChange.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}
	fixture := ""
	if cfg, err := Load(path); err == nil {
		fixture = cfg.Sharecache.Fixture
		follow(watcher, "fixture", "", fixture)
	}

	slog.Info("config: watching for changes", "path", path, "fixture", fixture)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Only reload on write or create events. Editors often write via
			// rename (atomic save), so also catch fsnotify.Create.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg, err := Load(path)
			if err != nil {
				slog.Error("config: reload failed, keeping previous config",
					"path", path, "err", err)
				continue
			}

			slog.Info("config: reloaded", "path", path, "trigger", event.Name)
			onChange(cfg)

			// Re-add the files in case an atomic save replaced the inode,
			// and follow the fixture if the config now names another one.
			follow(watcher, "config", "", path)
			follow(watcher, "fixture", fixture, cfg.Sharecache.Fixture)
			fixture = cfg.Sharecache.Fixture

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}

// follow moves the watch for one file from prev to next, re-adding next even
// when unchanged. Failures are logged; the previous config stays in effect.
func follow(watcher *fsnotify.Watcher, what, prev, next string) {
	if prev != "" && prev != next {
		if err := watcher.Remove(prev); err != nil && !errors.Is(err, fsnotify.ErrNonExistentWatch) {
			slog.Warn("config: cannot unwatch "+what, "path", prev, "err", err)
		}
	}
	if next == "" {
		return
	}
	if err := watcher.Add(next); err != nil {
		slog.Warn("config: cannot watch "+what, "path", next, "err", err)
	}
}
