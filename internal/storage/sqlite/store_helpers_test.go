package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/gather.space/internal/storage"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "gather.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func seedEvent(t *testing.T, store *Store, eventID string, capacity int) storage.Event {
	t.Helper()

	event := storage.Event{
		ID:          eventID,
		Name:        "Event " + eventID,
		StartsAt:    time.Date(2026, time.October, 10, 19, 0, 0, 0, time.UTC),
		Description: "Seeded for tests",
		Capacity:    capacity,
	}
	if err := store.CreateEvent(context.Background(), event); err != nil {
		t.Fatalf("seed event %s: %v", eventID, err)
	}
	return event
}
