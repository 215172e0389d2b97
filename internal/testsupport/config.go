package testsupport

import (
	"path/filepath"
	"testing"

	"chromaflow/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The store is the sqlite database under the data directory and the API
// binds an ephemeral port.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Cache.Path = filepath.Join(cfgVal.Paths.DataDir, "items_cache.json")
	cfgVal.API.Bind = "127.0.0.1:0"
	cfgVal.Sync.PollInterval = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithStoreDSN overrides the store DSN.
func WithStoreDSN(dsn string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Store.DSN = dsn
	}
}

// WithoutCache disables the local item cache.
func WithoutCache() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.Enabled = false
	}
}

// WithAdmin sets the acting user and the administrator.
func WithAdmin(userID, adminID string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Identity.UserID = userID
		b.cfg.Identity.AdminID = adminID
	}
}

// WithSeedDemo toggles demo seeding of an empty store.
func WithSeedDemo(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sync.SeedDemo = enabled
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
