package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultWorkspace        = "default"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
	DefaultMetricsNamespace = "sharecache"
)

// Config is the top-level configuration of the sharecache tool.
type Config struct {
	Sharecache SharecacheConfig `yaml:"sharecache"`
}

// SharecacheConfig holds every tool setting.
type SharecacheConfig struct {
	// Fixture is the YAML repository fixture to load. A relative path is
	// resolved against the directory of the config file.
	Fixture string `yaml:"fixture"`

	// Workspace is the workspace sessions log in to.
	Workspace string `yaml:"workspace"`

	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	// Level is one of: debug | info | warn | error.
	Level string `yaml:"level"`

	// Format is one of: json | text.
	Format string `yaml:"format"`
}

// SlogLevel maps Level onto a slog.Level.
func (l LogConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// MetricsConfig controls the cache event counters.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`

	// Namespace prefixes every metric name.
	Namespace string `yaml:"namespace"`
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if !filepath.IsAbs(cfg.Sharecache.Fixture) {
		cfg.Sharecache.Fixture = filepath.Join(filepath.Dir(path), cfg.Sharecache.Fixture)
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Sharecache: SharecacheConfig{
			Workspace: DefaultWorkspace,
			Log: LogConfig{
				Level:  DefaultLogLevel,
				Format: DefaultLogFormat,
			},
			Metrics: MetricsConfig{
				Namespace: DefaultMetricsNamespace,
			},
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	sc := cfg.Sharecache
	if sc.Fixture == "" {
		return fmt.Errorf("sharecache.fixture is required")
	}
	if sc.Workspace == "" {
		return fmt.Errorf("sharecache.workspace must not be empty")
	}
	switch sc.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("sharecache.log.level %q unknown: want debug|info|warn|error", sc.Log.Level)
	}
	switch sc.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("sharecache.log.format %q unknown: want json|text", sc.Log.Format)
	}
	if sc.Metrics.Enabled && sc.Metrics.Namespace == "" {
		return fmt.Errorf("sharecache.metrics.namespace is required when metrics are enabled")
	}
	return nil
}
