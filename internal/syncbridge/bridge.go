// Package syncbridge reconciles the local item list with the shared store,
// falling back to the local cache whenever the store is unreachable.
package syncbridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"chromaflow/internal/items"
	"chromaflow/internal/logging"
	"chromaflow/internal/store"
)

// ErrNoRemote reports a bridge built without a store.
var ErrNoRemote = errors.New("no remote store configured")

// Cache is the local fallback copy of the collection.
type Cache interface {
	Get(ctx context.Context) ([]items.Record, bool, error)
	Set(ctx context.Context, records []items.Record) error
}

// Source tells where Load found its items.
type Source string

const (
	SourceRemote Source = "remote"
	SourceCache  Source = "cache"
	SourceEmpty  Source = "empty"
)

// Bridge moves item lists between the application and a store.Remote.
type Bridge struct {
	remote store.Remote
	cache  Cache
	logger *slog.Logger
}

// New builds a bridge. remote and cache may be nil.
func New(remote store.Remote, cache Cache, logger *slog.Logger) *Bridge {
	return &Bridge{
		remote: remote,
		cache:  cache,
		logger: logging.NewComponentLogger(logger, "syncbridge"),
	}
}

// Load returns the remote collection and refreshes the cache. When the
// remote cannot be read it returns the cached collection, or nothing.
func (b *Bridge) Load(ctx context.Context) ([]items.Item, Source) {
	docs, err := b.listRemote(ctx)
	if err == nil {
		list := b.decode(docs)
		b.writeCache(ctx, list)
		return list, SourceRemote
	}

	logging.WarnWithContext(b.logger, "remote load failed; using local cache", "remote_load_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check store.dsn and network connectivity"),
		logging.String(logging.FieldImpact, "showing the last cached items, which may be stale"),
	)
	if b.cache == nil {
		return nil, SourceEmpty
	}
	records, ok, cacheErr := b.cache.Get(ctx)
	if cacheErr != nil {
		logging.WarnWithContext(b.logger, "local cache unreadable", "cache_read_failed",
			logging.Error(cacheErr),
			logging.String(logging.FieldErrorHint, "delete the cache file to reset it"),
			logging.String(logging.FieldImpact, "starting with an empty item list"),
		)
		return nil, SourceEmpty
	}
	if !ok {
		return nil, SourceEmpty
	}
	return b.decode(store.DocumentsFromRecords(records)), SourceCache
}

func (b *Bridge) listRemote(ctx context.Context) ([]store.Document, error) {
	if b.remote == nil {
		return nil, ErrNoRemote
	}
	return b.remote.ListAll(ctx)
}

// Save makes the remote collection equal to list in one batch: remote
// documents missing from list are deleted and every item is upserted. The
// cache always receives list. On failure the remote is left as it was and
// the error is returned so the caller keeps its unsaved state.
func (b *Bridge) Save(ctx context.Context, list []items.Item) error {
	records := items.Records(list)
	err := b.saveRemote(ctx, records)
	b.writeCacheRecords(ctx, records)
	if err != nil {
		logging.WarnWithContext(b.logger, "remote save failed; kept local copy", "remote_save_failed",
			logging.Error(err),
			logging.Int("item_count", len(records)),
			logging.String(logging.FieldErrorHint, "retry the save once the store is reachable"),
			logging.String(logging.FieldImpact, "changes are only stored on this machine"),
		)
		return fmt.Errorf("save items: %w", err)
	}
	b.logger.Info("items saved",
		logging.Int("item_count", len(records)))
	return nil
}

func (b *Bridge) saveRemote(ctx context.Context, records []items.Record) error {
	existing, err := b.listRemote(ctx)
	if err != nil {
		return fmt.Errorf("list remote ids: %w", err)
	}
	keep := make(map[string]struct{}, len(records))
	for _, rec := range records {
		keep[rec.ID] = struct{}{}
	}
	var deletes []string
	for _, doc := range existing {
		if _, ok := keep[doc.ID]; !ok {
			deletes = append(deletes, doc.ID)
		}
	}
	if err := b.remote.BatchWrite(ctx, deletes, records); err != nil {
		return fmt.Errorf("batch write: %w", err)
	}
	b.logger.Debug("remote batch committed",
		logging.Int("deleted", len(deletes)),
		logging.Int("upserted", len(records)))
	return nil
}

// Subscribe forwards every remote snapshot to onChange and refreshes the
// cache. Subscription errors are logged and never retried here. When the
// remote cannot be watched the returned function does nothing.
func (b *Bridge) Subscribe(ctx context.Context, onChange func([]items.Item)) func() {
	if b.remote == nil {
		return func() {}
	}
	stop, err := b.remote.Subscribe(ctx,
		func(docs []store.Document) {
			list := b.decode(docs)
			b.writeCache(ctx, list)
			if onChange != nil {
				onChange(list)
			}
		},
		func(err error) {
			logging.WarnWithContext(b.logger, "remote subscription error", "subscription_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "restart the watcher once the store is reachable"),
				logging.String(logging.FieldImpact, "changes from other users may not appear"),
			)
		},
	)
	if err != nil {
		logging.WarnWithContext(b.logger, "remote subscription unavailable", "subscription_error",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check store.dsn"),
			logging.String(logging.FieldImpact, "changes from other users will not appear until reload"),
		)
		return func() {}
	}
	return stop
}

func (b *Bridge) decode(docs []store.Document) []items.Item {
	list := make([]items.Item, 0, len(docs))
	seen := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		rec := doc.Record
		if rec.ID == "" {
			rec.ID = doc.ID
		}
		item, err := rec.Decode()
		if err != nil {
			logging.WarnWithContext(b.logger, "normalized stored item", "record_normalized",
				logging.String("item_id", item.ID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "fix the stored status or shop value"),
				logging.String(logging.FieldImpact, "item shown with default status or shop"),
			)
		}
		if item.ID == "" {
			continue
		}
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		list = append(list, item)
	}
	return list
}

func (b *Bridge) writeCache(ctx context.Context, list []items.Item) {
	b.writeCacheRecords(ctx, items.Records(list))
}

func (b *Bridge) writeCacheRecords(ctx context.Context, records []items.Record) {
	if b.cache == nil {
		return
	}
	if err := b.cache.Set(ctx, records); err != nil {
		logging.WarnWithContext(b.logger, "local cache write failed", "cache_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on the cache directory"),
			logging.String(logging.FieldImpact, "offline fallback may be out of date"),
		)
	}
}
