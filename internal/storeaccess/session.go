package storeaccess

import (
	"context"
	"fmt"
	"log/slog"

	"chromaflow/internal/cache"
	"chromaflow/internal/config"
	"chromaflow/internal/store"
	"chromaflow/internal/syncbridge"
)

// Session bundles the remote store, the local cache and the bridge built on
// them for one process.
type Session struct {
	Remote store.Remote
	Cache  *cache.File
	Bridge *syncbridge.Bridge
	close  func() error
}

// Close releases the remote store.
func (s Session) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Options derives store options from cfg.
func Options(cfg *config.Config, logger *slog.Logger) store.Options {
	return store.Options{
		DSN:             cfg.StoreDSN(),
		Collection:      cfg.Store.Collection,
		CredentialsFile: cfg.Store.CredentialsFile,
		ProjectID:       cfg.Store.ProjectID,
		PollInterval:    cfg.PollInterval(),
		Logger:          logger,
	}
}

// Open connects to the configured store. When the cache is enabled the
// bridge falls back to it whenever the remote cannot be read.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Session, error) {
	if cfg == nil {
		return Session{}, fmt.Errorf("open store: config is required")
	}
	remote, err := store.Open(ctx, Options(cfg, logger))
	if err != nil {
		return Session{}, fmt.Errorf("open store: %w", err)
	}
	return newSession(remote, cfg.CachePath(), logger), nil
}

// WithRemote wraps an already opened remote, typically a store.Memory in
// tests. The session closes it.
func WithRemote(remote store.Remote, cachePath string, logger *slog.Logger) Session {
	return newSession(remote, cachePath, logger)
}

func newSession(remote store.Remote, cachePath string, logger *slog.Logger) Session {
	session := Session{Remote: remote, close: remote.Close}
	if cachePath != "" {
		session.Cache = cache.NewFile(cachePath, logger)
		session.Bridge = syncbridge.New(remote, session.Cache, logger)
	} else {
		session.Bridge = syncbridge.New(remote, nil, logger)
	}
	return session
}
