package app_test

import (
	"errors"
	"testing"
	"time"

	"chromaflow/internal/app"
	"chromaflow/internal/items"
	"chromaflow/internal/workflow"
)

var fixedNow = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

func sampleItems() []items.Item {
	return []items.Item{
		{ID: "1", ItemType: "BEAM", Status: workflow.StatusReceived},
		{ID: "2", ItemType: "COLUMN", Status: workflow.StatusBlasting},
		{ID: "3", ItemType: "PLATE", Status: workflow.StatusShipped},
	}
}

func statusOf(t *testing.T, list []items.Item, id string) items.Item {
	t.Helper()
	for _, item := range list {
		if item.ID == id {
			return item
		}
	}
	t.Fatalf("item %s not found", id)
	return items.Item{}
}

func TestStateReducersDoNotMutateInput(t *testing.T) {
	base := app.NewState(sampleItems())
	next, n := app.Advance(base, items.NewIDSet("1"), workflow.ShopNone, fixedNow)
	if n != 1 {
		t.Fatalf("expected 1 touched, got %d", n)
	}
	if base.Dirty() {
		t.Fatalf("expected original state to stay clean")
	}
	if got := statusOf(t, base.Items(), "1").Status; got != workflow.StatusReceived {
		t.Fatalf("expected original item unchanged, got %s", got)
	}
	if got := statusOf(t, next.Items(), "1").Status; got != workflow.StatusBlasting {
		t.Fatalf("expected advanced item at Blasting, got %s", got)
	}
	if !next.Dirty() || next.Revision() != base.Revision()+1 {
		t.Fatalf("expected dirty state with bumped revision, got dirty=%v rev=%d", next.Dirty(), next.Revision())
	}
}

func TestStateEmptySelectionIsNoop(t *testing.T) {
	base := app.NewState(sampleItems())
	next, n := app.Advance(base, items.NewIDSet(), workflow.ShopA, fixedNow)
	if n != 0 || next.Dirty() || next.Revision() != 0 {
		t.Fatalf("expected untouched state, got n=%d dirty=%v rev=%d", n, next.Dirty(), next.Revision())
	}
	next, n = app.Delete(base, nil)
	if n != 0 || next.Dirty() {
		t.Fatalf("expected delete of nothing to be a noop")
	}
}

func TestApplySnapshotParksWhileDirty(t *testing.T) {
	base := app.NewState(sampleItems())
	dirty, _ := app.Delete(base, items.NewIDSet("3"))

	remote := []items.Item{{ID: "9", Status: workflow.StatusUnreceived}}
	parked, applied := app.ApplySnapshot(dirty, remote)
	if applied {
		t.Fatalf("expected snapshot to be parked while dirty")
	}
	if !parked.PendingRemote() {
		t.Fatalf("expected pending remote flag")
	}
	if len(parked.Items()) != 2 {
		t.Fatalf("expected local edits to survive, got %d items", len(parked.Items()))
	}

	reverted := app.Revert(parked)
	if reverted.Dirty() || reverted.PendingRemote() {
		t.Fatalf("expected clean state after revert")
	}
	if got := reverted.Items(); len(got) != 1 || got[0].ID != "9" {
		t.Fatalf("expected parked snapshot after revert, got %+v", got)
	}
}

func TestApplySnapshotReplacesWhenClean(t *testing.T) {
	base := app.NewState(sampleItems())
	next, applied := app.ApplySnapshot(base, []items.Item{{ID: "x"}})
	if !applied || next.PendingRemote() {
		t.Fatalf("expected snapshot applied")
	}
	if len(next.Items()) != 1 {
		t.Fatalf("expected one item, got %d", len(next.Items()))
	}
}

func TestSaveLifecycle(t *testing.T) {
	base := app.NewState(sampleItems())
	if _, _, _, err := app.BeginSave(base); !errors.Is(err, app.ErrNothingToSave) {
		t.Fatalf("expected ErrNothingToSave, got %v", err)
	}

	dirty, _ := app.Delete(base, items.NewIDSet("1"))
	saving, snapshot, rev, err := app.BeginSave(dirty)
	if err != nil {
		t.Fatalf("BeginSave: %v", err)
	}
	if !saving.Saving() || len(snapshot) != 2 {
		t.Fatalf("expected saving state with 2 items, got saving=%v len=%d", saving.Saving(), len(snapshot))
	}
	if _, _, _, err := app.BeginSave(saving); !errors.Is(err, app.ErrSaveInProgress) {
		t.Fatalf("expected ErrSaveInProgress, got %v", err)
	}

	// A snapshot arriving mid-save is parked then superseded by the save.
	parked, applied := app.ApplySnapshot(saving, []items.Item{{ID: "old"}})
	if applied {
		t.Fatalf("expected snapshot parked during save")
	}
	done := app.FinishSave(parked, snapshot, rev, nil)
	if done.Saving() || done.Dirty() || done.PendingRemote() {
		t.Fatalf("expected clean idle state, got saving=%v dirty=%v pending=%v", done.Saving(), done.Dirty(), done.PendingRemote())
	}
	if got := app.Revert(done).Items(); len(got) != 2 {
		t.Fatalf("expected revert to show saved items, got %d", len(got))
	}
}

func TestFinishSaveKeepsDirtyOnFailureOrNewEdits(t *testing.T) {
	base := app.NewState(sampleItems())
	dirty, _ := app.Delete(base, items.NewIDSet("1"))
	saving, snapshot, rev, err := app.BeginSave(dirty)
	if err != nil {
		t.Fatalf("BeginSave: %v", err)
	}

	failed := app.FinishSave(saving, snapshot, rev, errors.New("offline"))
	if failed.Saving() || !failed.Dirty() {
		t.Fatalf("expected dirty idle state after failure")
	}

	edited, _ := app.Delete(saving, items.NewIDSet("2"))
	done := app.FinishSave(edited, snapshot, rev, nil)
	if !done.Dirty() {
		t.Fatalf("expected edits made during save to stay dirty")
	}
	if len(done.Items()) != 1 {
		t.Fatalf("expected local edit kept, got %d items", len(done.Items()))
	}
}

func TestImportAppendReportsDuplicates(t *testing.T) {
	base := app.NewState(sampleItems())
	next, result := app.Import(base, []items.Item{{ID: "2"}, {ID: "4"}}, items.ImportAppend)
	if result.Added != 1 || len(result.Duplicates) != 1 || result.Duplicates[0] != "2" {
		t.Fatalf("unexpected import result %+v", result)
	}
	if !next.Dirty() || len(next.Items()) != 4 {
		t.Fatalf("expected 4 dirty items, got %d dirty=%v", len(next.Items()), next.Dirty())
	}
}
