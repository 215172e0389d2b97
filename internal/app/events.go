package app

import "sync"

// EventKind names a state change.
type EventKind string

const (
	EventChanged        EventKind = "changed"
	EventSnapshot       EventKind = "snapshot"
	EventSnapshotParked EventKind = "snapshot_parked"
	EventSaving         EventKind = "saving"
	EventSaved          EventKind = "saved"
	EventSaveFailed     EventKind = "save_failed"
	EventReverted       EventKind = "reverted"
)

// Event summarizes the state after a change.
type Event struct {
	Kind          EventKind `json:"kind"`
	Revision      uint64    `json:"revision"`
	Dirty         bool      `json:"dirty"`
	Saving        bool      `json:"saving"`
	PendingRemote bool      `json:"pendingRemote"`
	Count         int       `json:"count"`
}

const eventBuffer = 16

type broadcaster struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	next   int
	closed bool
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: map[int]chan Event{}}
}

func (b *broadcaster) subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, eventBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.next
	b.next++
	b.subs[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

func (b *broadcaster) publish(evt Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
