package testsupport

import (
	"context"
	"testing"

	"chromaflow/internal/config"
	"chromaflow/internal/items"
	"chromaflow/internal/store"
)

// MustOpenStore opens the store configured by cfg and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) store.Remote {
	t.Helper()

	remote, err := store.Open(context.Background(), store.Options{
		DSN:          cfg.StoreDSN(),
		Collection:   cfg.Store.Collection,
		PollInterval: cfg.PollInterval(),
	})
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = remote.Close()
	})
	return remote
}

// SeedStore writes list into remote as its full contents.
func SeedStore(t testing.TB, remote store.Remote, list []items.Item) {
	t.Helper()

	records := make([]items.Record, len(list))
	for i, item := range list {
		records[i] = item.Record()
	}
	if err := remote.BatchWrite(context.Background(), nil, records); err != nil {
		t.Fatalf("seed store: %v", err)
	}
}
