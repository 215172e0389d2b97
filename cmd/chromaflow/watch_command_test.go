package main

import (
	"context"
	"testing"
	"time"

	"chromaflow/internal/csvio"
	"chromaflow/internal/items"
	"chromaflow/internal/store"
	"chromaflow/internal/storeaccess"
)

func TestWatchChangesEmitsSnapshots(t *testing.T) {
	remote := store.NewMemory()
	session := storeaccess.WithRemote(remote, "", nil)
	defer session.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var sizes []int
	err := watchChanges(ctx, session, func(list []items.Item) {
		sizes = append(sizes, len(list))
		switch len(sizes) {
		case 1:
			go func() {
				_ = session.Bridge.Save(ctx, csvio.Parse(csvio.SampleCSV))
			}()
		case 2:
			cancel()
		}
	})
	if err != nil {
		t.Fatalf("watchChanges: %v", err)
	}
	if len(sizes) < 2 || sizes[0] != 0 || sizes[1] != len(csvio.Parse(csvio.SampleCSV)) {
		t.Fatalf("unexpected snapshot sizes %v", sizes)
	}
}
