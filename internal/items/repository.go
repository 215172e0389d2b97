package items

import (
	"fmt"
	"strings"
	"time"

	"chromaflow/internal/workflow"
)

// ImportMode selects how imported items combine with existing ones.
type ImportMode int

const (
	// ImportOverwrite replaces the whole repository.
	ImportOverwrite ImportMode = iota
	// ImportAppend keeps existing items and adds only unseen ids.
	ImportAppend
)

func (m ImportMode) String() string {
	switch m {
	case ImportOverwrite:
		return "overwrite"
	case ImportAppend:
		return "append"
	default:
		return fmt.Sprintf("ImportMode(%d)", int(m))
	}
}

// ParseImportMode converts "overwrite" or "append" into an ImportMode.
func ParseImportMode(value string) (ImportMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "overwrite", "replace":
		return ImportOverwrite, nil
	case "append", "add", "merge":
		return ImportAppend, nil
	default:
		return ImportOverwrite, fmt.Errorf("unknown import mode %q (want overwrite or append)", value)
	}
}

// ImportResult describes the effect of an Import call.
type ImportResult struct {
	Mode       ImportMode
	Added      int
	Replaced   int
	Duplicates []string
}

// IDSet is a selection of item ids.
type IDSet map[string]struct{}

// NewIDSet builds a selection from ids, ignoring blanks.
func NewIDSet(ids ...string) IDSet {
	set := make(IDSet, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		set[id] = struct{}{}
	}
	return set
}

// Has reports whether id is selected.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Repository is an insertion-ordered collection of items keyed by id.
// It is not safe for concurrent use; the app controller owns it.
type Repository struct {
	items []Item
	index map[string]int
	dirty bool
}

// NewRepository builds a clean repository from list. Later duplicates of an
// id are dropped.
func NewRepository(list []Item) *Repository {
	r := &Repository{}
	r.reset(list)
	return r
}

func (r *Repository) reset(list []Item) []string {
	r.items = make([]Item, 0, len(list))
	r.index = make(map[string]int, len(list))
	var dropped []string
	for _, item := range list {
		if _, exists := r.index[item.ID]; exists {
			dropped = append(dropped, item.ID)
			continue
		}
		r.index[item.ID] = len(r.items)
		r.items = append(r.items, item)
	}
	return dropped
}

func (r *Repository) reindex() {
	r.index = make(map[string]int, len(r.items))
	for i, item := range r.items {
		r.index[item.ID] = i
	}
}

// Len returns the number of items.
func (r *Repository) Len() int { return len(r.items) }

// Dirty reports whether the repository holds unsaved edits.
func (r *Repository) Dirty() bool { return r.dirty }

// MarkDirty flags the repository as holding unsaved edits.
func (r *Repository) MarkDirty() { r.dirty = true }

// MarkClean records that the current contents were persisted.
func (r *Repository) MarkClean() { r.dirty = false }

// Get returns the item with id.
func (r *Repository) Get(id string) (Item, bool) {
	idx, ok := r.index[id]
	if !ok {
		return Item{}, false
	}
	return r.items[idx], true
}

// AllIDs returns item ids in insertion order.
func (r *Repository) AllIDs() []string {
	ids := make([]string, len(r.items))
	for i, item := range r.items {
		ids[i] = item.ID
	}
	return ids
}

// ToList returns a copy of the items in insertion order.
func (r *Repository) ToList() []Item {
	out := make([]Item, len(r.items))
	copy(out, r.items)
	return out
}

// Clone returns an independent copy, including the dirty flag.
func (r *Repository) Clone() *Repository {
	clone := &Repository{
		items: r.ToList(),
		index: make(map[string]int, len(r.index)),
		dirty: r.dirty,
	}
	for id, idx := range r.index {
		clone.index[id] = idx
	}
	return clone
}

// Replace swaps in a snapshot that came from persistent storage. The result
// is clean because it mirrors what is stored.
func (r *Repository) Replace(list []Item) {
	r.reset(list)
	r.dirty = false
}

// Import merges newItems according to mode.
//
// Overwrite discards every existing item. Append keeps existing items and
// adds only items whose id is not present yet; the first occurrence of an id
// wins and later ones are reported as duplicates. Both modes mark the
// repository dirty.
func (r *Repository) Import(newItems []Item, mode ImportMode) ImportResult {
	result := ImportResult{Mode: mode}
	switch mode {
	case ImportAppend:
		for _, item := range newItems {
			if _, exists := r.index[item.ID]; exists {
				result.Duplicates = append(result.Duplicates, item.ID)
				continue
			}
			r.index[item.ID] = len(r.items)
			r.items = append(r.items, item)
			result.Added++
		}
	default:
		result.Mode = ImportOverwrite
		result.Replaced = len(r.items)
		result.Duplicates = r.reset(newItems)
		result.Added = len(r.items)
	}
	r.dirty = true
	return result
}

// Delete removes every selected item and returns how many were removed.
// Ids that are not present are ignored.
func (r *Repository) Delete(selected IDSet) int {
	if len(selected) == 0 {
		return 0
	}
	kept := r.items[:0]
	removed := 0
	for _, item := range r.items {
		if selected.Has(item.ID) {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	r.items = kept
	r.reindex()
	r.dirty = true
	return removed
}

// NeedsShop counts selected items sitting at a branch stage. Callers must
// collect a shop before advancing when the count is non-zero.
func (r *Repository) NeedsShop(selected IDSet) int {
	count := 0
	for _, item := range r.items {
		if selected.Has(item.ID) && workflow.RequiresShop(item.Status) {
			count++
		}
	}
	return count
}

// Advance moves every selected item forward one stage, or straight to
// Painting in the forced shop when it sits at a branch stage and forced is
// assigned. It returns the number of items touched.
func (r *Repository) Advance(selected IDSet, forced workflow.Shop, now time.Time) int {
	if len(selected) == 0 {
		return 0
	}
	touched := 0
	for i := range r.items {
		item := &r.items[i]
		if !selected.Has(item.ID) {
			continue
		}
		item.Status, item.Shop = workflow.Transition(item.Status, item.Shop, forced)
		item.UpdatedAt = now
		touched++
	}
	r.dirty = true
	return touched
}

// SetStatus overrides the status of every selected item regardless of where
// it sits in the sequence. An assigned shop replaces the current one; ShopNone
// leaves it untouched.
func (r *Repository) SetStatus(selected IDSet, status workflow.Status, shop workflow.Shop, now time.Time) int {
	if len(selected) == 0 {
		return 0
	}
	touched := 0
	for i := range r.items {
		item := &r.items[i]
		if !selected.Has(item.ID) {
			continue
		}
		item.Status = status
		if shop.Assigned() {
			item.Shop = shop
		}
		item.UpdatedAt = now
		touched++
	}
	r.dirty = true
	return touched
}
