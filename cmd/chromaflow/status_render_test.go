package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"chromaflow/internal/items"
	"chromaflow/internal/preflight"
	"chromaflow/internal/workflow"
)

func TestRenderStatusNoColor(t *testing.T) {
	if got := renderStatus(workflow.StatusAwaitingShipment, false); got != "Awaiting Shipment" {
		t.Fatalf("renderStatus = %q", got)
	}
}

func TestRenderStatusWithColor(t *testing.T) {
	got := renderStatus(workflow.StatusPainting, true)
	if !strings.HasPrefix(got, ansiRed) || !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected red status, got %q", got)
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(&bytes.Buffer{}) {
		t.Fatal("buffers are never terminals")
	}
}

func TestRenderItemsFooter(t *testing.T) {
	list := []items.Item{
		{ID: "1", ItemType: "BEAM", Weight: 1.5, Status: workflow.StatusReceived},
		{ID: "2", ItemType: "PLATE", Weight: 2, Status: workflow.StatusPainting, Shop: workflow.ShopC},
	}
	out := renderItems(list, false)
	for _, want := range []string{"2 items", "3.5", "Received (Inbound)", "PLATE"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected table to contain %q:\n%s", want, out)
		}
	}
}

func TestSummaryLine(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	list := []items.Item{
		{ID: "1", Status: workflow.StatusPacking},
		{ID: "2", Status: workflow.StatusShipped},
	}
	got := summaryLine(now, list)
	want := "09:30:00  2 items  received 0  blasting 0  painting 0  packing 1  awaiting 0  shipped 1"
	if got != want {
		t.Fatalf("summaryLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderCheckLine(t *testing.T) {
	got := renderCheckLine(preflight.Result{Name: "Store", Passed: true, Detail: "memory:// (0 documents)"}, false)
	want := "  Store:           [OK] memory:// (0 documents)"
	if got != want {
		t.Fatalf("renderCheckLine mismatch\n got: %q\nwant: %q", got, want)
	}
	failed := renderCheckLine(preflight.Result{Name: "Cache", Detail: "bad"}, true)
	if !strings.HasPrefix(failed, ansiRed) || !strings.Contains(failed, "[ERROR]") {
		t.Fatalf("expected red error line, got %q", failed)
	}
}
