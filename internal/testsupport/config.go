package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"triage/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test:
// state and log directories, one scan root at <base>/media, and a quarantine
// folder at <base>/quarantine. The scan root is created; the quarantine is not.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Scan.Paths = []string{filepath.Join(base, "media")}
	cfgVal.Scan.QuarantineDir = filepath.Join(base, "quarantine")
	cfgVal.Server.Bind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	for _, root := range builder.cfg.Scan.Paths {
		if err := os.MkdirAll(root, 0o755); err != nil {
			t.Fatalf("mkdir scan root %s: %v", root, err)
		}
	}
	return builder.cfg
}

// WithRoots replaces the scan roots with the named subdirectories of the
// test base directory.
func WithRoots(names ...string) ConfigOption {
	return func(b *configBuilder) {
		roots := make([]string, 0, len(names))
		for _, name := range names {
			roots = append(roots, filepath.Join(b.baseDir, name))
		}
		b.cfg.Scan.Paths = roots
	}
}

// WithRootBackend switches the config to the capability-scoped backend.
func WithRootBackend() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Scan.Backend = config.BackendRoot
	}
}

// WithFilters overrides the scan filters.
func WithFilters(filters config.Filters) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Filters = filters
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}

// MediaRoot returns the first scan root of the generated config.
func MediaRoot(cfg *config.Config) string {
	return cfg.Scan.Paths[0]
}
