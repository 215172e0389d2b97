package store

import (
	"context"
	"sync"

	"chromaflow/internal/items"
)

// Memory is a process-local Remote. It keeps insertion order and notifies
// subscribers after every batch.
type Memory struct {
	mu       sync.Mutex
	order    []string
	records  map[string]items.Record
	watchers map[int]chan struct{}
	nextID   int
	closed   bool

	failReads  error
	failWrites error
}

// NewMemory returns an empty in-memory collection.
func NewMemory() *Memory {
	return &Memory{
		records:  map[string]items.Record{},
		watchers: map[int]chan struct{}{},
	}
}

// FailReads makes ListAll return err until called again with nil.
func (m *Memory) FailReads(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failReads = err
}

// FailWrites makes BatchWrite return err until called again with nil.
func (m *Memory) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrites = err
}

func openMemory(context.Context, Options) (Remote, error) {
	return NewMemory(), nil
}

// ListAll returns documents in insertion order.
func (m *Memory) ListAll(ctx context.Context) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	if m.failReads != nil {
		return nil, m.failReads
	}
	docs := make([]Document, 0, len(m.order))
	for _, id := range m.order {
		docs = append(docs, Document{ID: id, Record: m.records[id]})
	}
	return docs, nil
}

// BatchWrite applies deletes then upserts. Upserted documents that already
// exist keep their position.
func (m *Memory) BatchWrite(ctx context.Context, deletes []string, upserts []items.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.failWrites != nil {
		err := m.failWrites
		m.mu.Unlock()
		return err
	}
	if len(deletes) > 0 {
		drop := make(map[string]struct{}, len(deletes))
		for _, id := range deletes {
			drop[id] = struct{}{}
			delete(m.records, id)
		}
		kept := m.order[:0]
		for _, id := range m.order {
			if _, gone := drop[id]; !gone {
				kept = append(kept, id)
			}
		}
		m.order = kept
	}
	for _, rec := range upserts {
		if _, exists := m.records[rec.ID]; !exists {
			m.order = append(m.order, rec.ID)
		}
		m.records[rec.ID] = rec
	}
	m.notifyLocked()
	m.mu.Unlock()
	return nil
}

func (m *Memory) notifyLocked() {
	for _, ch := range m.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Subscribe delivers the collection now and after every BatchWrite.
func (m *Memory) Subscribe(ctx context.Context, onChange ChangeFunc, onError ErrorFunc) (func(), error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	id := m.nextID
	m.nextID++
	trigger := make(chan struct{}, 1)
	trigger <- struct{}{}
	m.watchers[id] = trigger
	m.mu.Unlock()

	stop := watch(ctx, func(ctx context.Context) {
		for {
			select {
			case <-ctx.Done():
				return
			case <-trigger:
				deliver(ctx, m.ListAll, onChange, onError)
			}
		}
	})
	return func() {
		stop()
		m.mu.Lock()
		delete(m.watchers, id)
		m.mu.Unlock()
	}, nil
}

// Close rejects further use.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
