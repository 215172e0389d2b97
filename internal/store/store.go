package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"chromaflow/internal/items"
)

// DefaultCollection names the item collection when none is configured.
const DefaultCollection = "products"

// DefaultPollInterval is how often watchers without push notifications
// re-check the store.
const DefaultPollInterval = 2 * time.Second

var (
	// ErrUnsupportedScheme reports a DSN whose scheme has no backend.
	ErrUnsupportedScheme = errors.New("unsupported store scheme")
	// ErrClosed reports use of a store after Close.
	ErrClosed = errors.New("store closed")
)

// Document is one stored record and its key.
type Document struct {
	ID     string
	Record items.Record
}

// ChangeFunc receives the full collection after a change.
type ChangeFunc func([]Document)

// ErrorFunc receives subscription failures. The subscription keeps running.
type ErrorFunc func(error)

// Remote is a shared document collection.
type Remote interface {
	// ListAll returns every document in the collection.
	ListAll(ctx context.Context) ([]Document, error)
	// BatchWrite deletes and upserts documents atomically. Either every
	// change lands or none does.
	BatchWrite(ctx context.Context, deletes []string, upserts []items.Record) error
	// Subscribe watches the collection until the returned function is
	// called or ctx ends. The returned function blocks until the watcher
	// has stopped and is safe to call more than once.
	Subscribe(ctx context.Context, onChange ChangeFunc, onError ErrorFunc) (func(), error)
	Close() error
}

// Options configures Open.
type Options struct {
	DSN             string
	Collection      string
	CredentialsFile string
	ProjectID       string
	PollInterval    time.Duration
	Logger          *slog.Logger
}

func (o Options) collection() string {
	if o.Collection == "" {
		return DefaultCollection
	}
	return o.Collection
}

func (o Options) pollInterval() time.Duration {
	if o.PollInterval <= 0 {
		return DefaultPollInterval
	}
	return o.PollInterval
}

// DocumentsFromRecords keys each record by its id.
func DocumentsFromRecords(records []items.Record) []Document {
	docs := make([]Document, len(records))
	for i, rec := range records {
		docs[i] = Document{ID: rec.ID, Record: rec}
	}
	return docs
}

// watch runs loop on its own goroutine and returns a stop function that
// cancels it and waits for it to return.
func watch(parent context.Context, loop func(ctx context.Context)) func() {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	go func() {
		defer close(done)
		loop(ctx)
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}

// deliver fetches the collection and hands it to onChange, or the error to
// onError. It reports whether the fetch succeeded.
func deliver(ctx context.Context, fetch func(context.Context) ([]Document, error), onChange ChangeFunc, onError ErrorFunc) bool {
	docs, err := fetch(ctx)
	if err != nil {
		if ctx.Err() == nil && onError != nil {
			onError(err)
		}
		return false
	}
	if ctx.Err() != nil {
		return false
	}
	if onChange != nil {
		onChange(docs)
	}
	return true
}
