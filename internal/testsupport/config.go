package testsupport

import (
	"path/filepath"
	"testing"

	"novelkit/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// Cache timings default to values that keep tests fast and deterministic.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WorkspaceDir = base
	cfg.Paths.BlobDir = filepath.Join(base, "blobs")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.ExportDir = filepath.Join(base, "exports")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Storage.DatabasePath = filepath.Join(base, "novelkit.db")

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithQuotaMiB sets the storage quota on the test config.
func WithQuotaMiB(quota int64) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Storage.QuotaMiB = quota
	}
}

// WithCacheSeconds overrides the cache freshness/grace/sweep/stale windows.
func WithCacheSeconds(freshness, grace, sweep, stale int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Cache.FreshnessSeconds = freshness
		cfg.Cache.GraceSeconds = grace
		cfg.Cache.SweepSeconds = sweep
		cfg.Cache.StaleSeconds = stale
	}
}
