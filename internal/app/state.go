package app

import (
	"time"

	"chromaflow/internal/items"
	"chromaflow/internal/workflow"
)

// State is the application state. Values are immutable from the caller's
// point of view: every transition returns a new State.
type State struct {
	repo *items.Repository
	// remote is the newest collection known to be stored.
	remote []items.Item
	// pending is set when remote holds a snapshot that was not applied
	// because local edits or a save were in the way.
	pending  bool
	saving   bool
	revision uint64
}

// NewState starts from a freshly loaded, clean collection.
func NewState(list []items.Item) State {
	return State{
		repo:   items.NewRepository(list),
		remote: copyItems(list),
	}
}

func copyItems(list []items.Item) []items.Item {
	out := make([]items.Item, len(list))
	copy(out, list)
	return out
}

func (s State) clone() State {
	next := s
	if s.repo == nil {
		next.repo = items.NewRepository(nil)
	} else {
		next.repo = s.repo.Clone()
	}
	return next
}

func (s State) touched() State {
	s.revision++
	return s
}

// Items returns the current items in insertion order.
func (s State) Items() []items.Item {
	if s.repo == nil {
		return nil
	}
	return s.repo.ToList()
}

// Dirty reports unsaved local changes.
func (s State) Dirty() bool { return s.repo != nil && s.repo.Dirty() }

// Saving reports a save in flight.
func (s State) Saving() bool { return s.saving }

// PendingRemote reports a parked remote snapshot that Revert would apply.
func (s State) PendingRemote() bool { return s.pending }

// Revision counts local mutations.
func (s State) Revision() uint64 { return s.revision }

// NeedsShop counts selected items that cannot advance without a shop.
func (s State) NeedsShop(ids items.IDSet) int {
	if s.repo == nil {
		return 0
	}
	return s.repo.NeedsShop(ids)
}

// Advance moves the selection one stage forward.
func Advance(s State, ids items.IDSet, forced workflow.Shop, now time.Time) (State, int) {
	if len(ids) == 0 {
		return s, 0
	}
	next := s.clone()
	n := next.repo.Advance(ids, forced, now)
	return next.touched(), n
}

// SetStatus overrides status, and shop when one is assigned, for the
// selection.
func SetStatus(s State, ids items.IDSet, status workflow.Status, shop workflow.Shop, now time.Time) (State, int) {
	if len(ids) == 0 {
		return s, 0
	}
	next := s.clone()
	n := next.repo.SetStatus(ids, status, shop, now)
	return next.touched(), n
}

// Delete removes the selection.
func Delete(s State, ids items.IDSet) (State, int) {
	if len(ids) == 0 {
		return s, 0
	}
	next := s.clone()
	n := next.repo.Delete(ids)
	return next.touched(), n
}

// Import merges parsed items.
func Import(s State, list []items.Item, mode items.ImportMode) (State, items.ImportResult) {
	next := s.clone()
	result := next.repo.Import(list, mode)
	return next.touched(), result
}

// ApplySnapshot takes a collection pushed by the store. It replaces local
// state only when there is nothing to lose: no unsaved edits and no save in
// flight. Otherwise the snapshot is parked for Revert.
func ApplySnapshot(s State, list []items.Item) (State, bool) {
	next := s
	next.remote = copyItems(list)
	if s.saving || s.Dirty() {
		next.pending = true
		return next, false
	}
	next.repo = items.NewRepository(list)
	next.pending = false
	return next, true
}

// BeginSave marks a save in flight and returns what to persist along with
// the revision it reflects.
func BeginSave(s State) (State, []items.Item, uint64, error) {
	if s.saving {
		return s, nil, 0, ErrSaveInProgress
	}
	if !s.Dirty() {
		return s, nil, 0, ErrNothingToSave
	}
	next := s
	next.saving = true
	return next, s.Items(), s.revision, nil
}

// FinishSave records the outcome of a save started at revision rev. A
// successful save clears the dirty flag unless edits landed meanwhile, and
// discards any parked snapshot because saved now supersedes it.
func FinishSave(s State, saved []items.Item, rev uint64, err error) State {
	next := s
	next.saving = false
	if err != nil {
		return next
	}
	next.remote = copyItems(saved)
	next.pending = false
	if s.revision == rev {
		next = next.clone()
		next.repo.MarkClean()
	}
	return next
}

// Revert discards local edits and shows the newest stored collection.
func Revert(s State) State {
	next := s
	next.repo = items.NewRepository(s.remote)
	next.pending = false
	return next.touched()
}
