// Package config loads and watches the sharecache configuration file.
//
// Top-level types:
//   - Config{Sharecache}: full config tree parsed from YAML
//   - SharecacheConfig: fixture, workspace, log, metrics
//   - LogConfig: level (debug|info|warn|error), format (json|text);
//     SlogLevel() maps the level onto slog
//   - MetricsConfig: enabled, namespace
//
// Load(path) reads the YAML file, applies defaults (workspace "default",
// info/json logging, namespace "sharecache"), validates it, and resolves a
// relative fixture path against the config file's directory.
//
// Watch(ctx, path, onChange) uses fsnotify to detect writes to the config
// file or to the fixture it names and calls onChange with the newly parsed
// Config. It re-adds both watches after every reload to survive the
// rename then create pattern used by atomic-save editors.
package config
