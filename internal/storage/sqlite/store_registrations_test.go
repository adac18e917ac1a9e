package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/louisbranch/gather.space/internal/storage"
)

func TestCreateGetRegistrationRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	seedEvent(t, store, "evt-1", 10)

	regID, err := store.CreateRegistration(context.Background(), storage.Registration{
		UserID:  42,
		EventID: "evt-1",
		Status:  storage.StatusRegistered,
	})
	if err != nil {
		t.Fatalf("create registration: %v", err)
	}
	if regID == 0 {
		t.Fatal("expected assigned registration id")
	}

	got, err := store.GetRegistration(context.Background(), 42, "evt-1")
	if err != nil {
		t.Fatalf("get registration: %v", err)
	}
	if got.ID != regID {
		t.Fatalf("id = %d, want %d", got.ID, regID)
	}
	if got.Status != storage.StatusRegistered {
		t.Fatalf("status = %q, want %q", got.Status, storage.StatusRegistered)
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set")
	}
}

func TestCreateRegistrationEnforcesPairUniqueness(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	seedEvent(t, store, "evt-1", 10)

	if _, err := store.CreateRegistration(context.Background(), storage.Registration{
		UserID:  7,
		EventID: "evt-1",
		Status:  storage.StatusRegistered,
	}); err != nil {
		t.Fatalf("create registration: %v", err)
	}
	_, err := store.CreateRegistration(context.Background(), storage.Registration{
		UserID:  7,
		EventID: "evt-1",
		Status:  storage.StatusRegistered,
	})
	if !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("duplicate create error = %v, want %v", err, storage.ErrAlreadyExists)
	}
}

func TestRegistrationIDsAreMonotonic(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	seedEvent(t, store, "evt-1", 10)

	var lastID int64
	for userID := int64(1); userID <= 5; userID++ {
		regID, err := store.CreateRegistration(context.Background(), storage.Registration{
			UserID:  userID,
			EventID: "evt-1",
			Status:  storage.StatusRegistered,
		})
		if err != nil {
			t.Fatalf("create registration for user %d: %v", userID, err)
		}
		if regID <= lastID {
			t.Fatalf("registration id %d not greater than previous %d", regID, lastID)
		}
		lastID = regID
	}
}

func TestUpdateRegistrationStatusOverwrites(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	seedEvent(t, store, "evt-1", 10)
	regID, err := store.CreateRegistration(context.Background(), storage.Registration{
		UserID:  9,
		EventID: "evt-1",
		Status:  storage.StatusRegistered,
	})
	if err != nil {
		t.Fatalf("create registration: %v", err)
	}

	if err := store.UpdateRegistrationStatus(context.Background(), regID, storage.StatusConfirmed); err != nil {
		t.Fatalf("update status: %v", err)
	}
	got, err := store.GetRegistration(context.Background(), 9, "evt-1")
	if err != nil {
		t.Fatalf("get registration: %v", err)
	}
	if got.Status != storage.StatusConfirmed {
		t.Fatalf("status = %q, want %q", got.Status, storage.StatusConfirmed)
	}

	if err := store.UpdateRegistrationStatus(context.Background(), 9999, storage.StatusCancelled); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("missing row error = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestListRegistrationsIncludesCancelledRows(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	seedEvent(t, store, "evt-1", 10)
	seedEvent(t, store, "evt-2", 10)

	for _, seed := range []struct {
		userID  int64
		eventID string
		status  storage.RegistrationStatus
	}{
		{userID: 1, eventID: "evt-1", status: storage.StatusRegistered},
		{userID: 2, eventID: "evt-1", status: storage.StatusCancelled},
		{userID: 1, eventID: "evt-2", status: storage.StatusConfirmed},
	} {
		if _, err := store.CreateRegistration(context.Background(), storage.Registration{
			UserID:  seed.userID,
			EventID: seed.eventID,
			Status:  seed.status,
		}); err != nil {
			t.Fatalf("create registration user=%d event=%s: %v", seed.userID, seed.eventID, err)
		}
	}

	byEvent, err := store.ListRegistrationsByEvent(context.Background(), "evt-1")
	if err != nil {
		t.Fatalf("list by event: %v", err)
	}
	if len(byEvent) != 2 {
		t.Fatalf("by event len = %d, want 2", len(byEvent))
	}

	byUser, err := store.ListRegistrationsByUser(context.Background(), 1)
	if err != nil {
		t.Fatalf("list by user: %v", err)
	}
	if len(byUser) != 2 {
		t.Fatalf("by user len = %d, want 2", len(byUser))
	}
}

func TestDeleteRegistrationsByEventPurgesOnlyThatEvent(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	seedEvent(t, store, "evt-1", 10)
	seedEvent(t, store, "evt-2", 10)
	for _, eventID := range []string{"evt-1", "evt-2"} {
		if _, err := store.CreateRegistration(context.Background(), storage.Registration{
			UserID:  3,
			EventID: eventID,
			Status:  storage.StatusRegistered,
		}); err != nil {
			t.Fatalf("create registration event=%s: %v", eventID, err)
		}
	}

	if err := store.DeleteRegistrationsByEvent(context.Background(), "evt-1"); err != nil {
		t.Fatalf("delete by event: %v", err)
	}
	if _, err := store.GetRegistration(context.Background(), 3, "evt-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("purged row error = %v, want %v", err, storage.ErrNotFound)
	}
	if _, err := store.GetRegistration(context.Background(), 3, "evt-2"); err != nil {
		t.Fatalf("unrelated row lookup: %v", err)
	}
}

func TestCreateRegistrationRejectsUnknownStatus(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	seedEvent(t, store, "evt-1", 10)
	if _, err := store.CreateRegistration(context.Background(), storage.Registration{
		UserID:  5,
		EventID: "evt-1",
		Status:  storage.RegistrationStatus("waitlisted"),
	}); err == nil {
		t.Fatal("expected invalid status error")
	}
}
