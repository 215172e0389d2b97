package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"chromaflow/internal/items"
)

func TestFileRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewFile(filepath.Join(t.TempDir(), "nested", "items.json"), nil)

	if _, ok, err := c.Get(ctx); err != nil || ok {
		t.Fatalf("expected empty cache, ok=%v err=%v", ok, err)
	}

	records := []items.Record{
		{ID: "1", Item: "BEAM", Length: 1200, Status: "Painting", Shop: "Shop A"},
		{ID: "2", Item: "PLATE", Status: "Unreceived", Shop: "None"},
	}
	if err := c.Set(ctx, records); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, ok, err := c.Get(ctx)
	if err != nil || !ok {
		t.Fatalf("Get failed: ok=%v err=%v", ok, err)
	}
	if len(got) != 2 || got[0].Length != 1200 || got[1].Status != "Unreceived" {
		t.Fatalf("unexpected cached records %+v", got)
	}

	if err := c.Set(ctx, nil); err != nil {
		t.Fatalf("Set(nil) failed: %v", err)
	}
	got, ok, err = c.Get(ctx)
	if err != nil || !ok || len(got) != 0 {
		t.Fatalf("expected cached empty list, got %v ok=%v err=%v", got, ok, err)
	}
}

func TestFileRejectsInvalidDocument(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "items.json")
	c := NewFile(path, nil)

	for _, body := range []string{
		`{"version": 1, "items": [{"item": "missing id", "status": "Painting"}]}`,
		`{"version": 2, "items": []}`,
		`[1, 2, 3]`,
		`not json`,
	} {
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
		if _, _, err := c.Get(ctx); !errors.Is(err, ErrInvalid) {
			t.Fatalf("expected ErrInvalid for %s, got %v", body, err)
		}
	}
}

func TestFileWithoutPathIsNoop(t *testing.T) {
	ctx := context.Background()
	c := NewFile("", nil)
	if err := c.Set(ctx, []items.Record{{ID: "1", Status: "Shipped"}}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, ok, err := c.Get(ctx); ok || err != nil {
		t.Fatalf("expected disabled cache to be empty, ok=%v err=%v", ok, err)
	}
}
