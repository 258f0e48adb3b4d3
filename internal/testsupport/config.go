package testsupport

import (
	"path/filepath"
	"testing"

	"capsum/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Gemini.APIKeys = []string{"test-key-one", "test-key-two"}
	cfg.Paths.InputDir = filepath.Join(base, "images")
	cfg.Paths.OutputDir = filepath.Join(base, "captions")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.CheckpointPath = filepath.Join(base, "checkpoint.db")

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithAPIKeys overrides the configured key set.
func WithAPIKeys(keys ...string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Gemini.APIKeys = keys
	}
}

// WithWorkers overrides the worker count.
func WithWorkers(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Processing.Workers = n
	}
}
