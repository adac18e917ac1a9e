package event

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	platformerrors "github.com/louisbranch/gather.space/internal/platform/errors"
	"github.com/louisbranch/gather.space/internal/storage"
	"github.com/louisbranch/gather.space/internal/storage/sqlite"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "gather.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})

	return NewService(store, store).WithClock(func() time.Time {
		return time.Date(2026, time.September, 1, 12, 0, 0, 0, time.UTC)
	})
}

func addEvent(t *testing.T, svc *Service, name string, capacity int) storage.Event {
	t.Helper()

	event, err := svc.Add(context.Background(), name, "2026-10-10 19:00", "Doors open at 18:30", capacity)
	if err != nil {
		t.Fatalf("add event %q: %v", name, err)
	}
	return event
}

func TestAddValidation(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		event    string
		startsAt string
		capacity int
		wantCode platformerrors.Code
	}{
		{"empty name", "   ", "2026-10-10 19:00", 10, platformerrors.CodeEventNameEmpty},
		{"bad schedule", "Meetup", "next tuesday", 10, platformerrors.CodeEventScheduleInvalid},
		{"zero capacity", "Meetup", "2026-10-10 19:00", 0, platformerrors.CodeEventCapacityInvalid},
		{"negative capacity", "Meetup", "2026-10-10 19:00", -3, platformerrors.CodeEventCapacityInvalid},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Add(ctx, tc.event, tc.startsAt, "", tc.capacity)
			if !platformerrors.IsCode(err, tc.wantCode) {
				t.Fatalf("Add() error = %v, want code %s", err, tc.wantCode)
			}
		})
	}
}

func TestAddRoundTrip(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	event := addEvent(t, svc, "  Autumn Meetup  ", 25)

	if event.Name != "Autumn Meetup" {
		t.Errorf("Name = %q, want %q", event.Name, "Autumn Meetup")
	}
	if len(event.ID) != 26 {
		t.Errorf("ID length = %d, want 26", len(event.ID))
	}
	want := time.Date(2026, time.October, 10, 19, 0, 0, 0, time.UTC)
	if !event.StartsAt.Equal(want) {
		t.Errorf("StartsAt = %v, want %v", event.StartsAt, want)
	}
	if event.Capacity != 25 {
		t.Errorf("Capacity = %d, want 25", event.Capacity)
	}
}

func TestListActiveFiltersPastEvents(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	past, err := svc.Add(ctx, "Spring Meetup", "2026-04-01 19:00", "", 10)
	if err != nil {
		t.Fatalf("add past event: %v", err)
	}
	upcoming := addEvent(t, svc, "Autumn Meetup", 10)

	now := time.Date(2026, time.September, 1, 12, 0, 0, 0, time.UTC)
	active, err := svc.ListActive(ctx, now)
	if err != nil {
		t.Fatalf("ListActive() error = %v", err)
	}
	if len(active) != 1 || active[0].ID != upcoming.ID {
		t.Fatalf("ListActive() = %v, want only %s", active, upcoming.ID)
	}

	// Past events stay readable for history.
	if _, err := svc.Get(ctx, past.ID); err != nil {
		t.Errorf("Get(past) error = %v", err)
	}
}

func TestUpdateField(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	event := addEvent(t, svc, "Autumn Meetup", 10)

	updated, err := svc.UpdateField(ctx, event.ID, "max_seats", "40")
	if err != nil {
		t.Fatalf("UpdateField(max_seats) error = %v", err)
	}
	if updated.Capacity != 40 {
		t.Errorf("Capacity = %d, want 40", updated.Capacity)
	}

	updated, err = svc.UpdateField(ctx, event.ID, "starts_at", "2026-11-05 20:30")
	if err != nil {
		t.Fatalf("UpdateField(starts_at) error = %v", err)
	}
	want := time.Date(2026, time.November, 5, 20, 30, 0, 0, time.UTC)
	if !updated.StartsAt.Equal(want) {
		t.Errorf("StartsAt = %v, want %v", updated.StartsAt, want)
	}

	updated, err = svc.UpdateField(ctx, event.ID, "name", "Winter Meetup")
	if err != nil {
		t.Fatalf("UpdateField(name) error = %v", err)
	}
	if updated.Name != "Winter Meetup" {
		t.Errorf("Name = %q, want %q", updated.Name, "Winter Meetup")
	}
}

func TestUpdateFieldRejectsBadValues(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	event := addEvent(t, svc, "Autumn Meetup", 10)

	tests := []struct {
		name     string
		field    string
		value    string
		wantCode platformerrors.Code
	}{
		{"negative seats", "max_seats", "-3", platformerrors.CodeEventCapacityInvalid},
		{"non numeric seats", "max_seats", "plenty", platformerrors.CodeEventCapacityInvalid},
		{"empty name", "name", "  ", platformerrors.CodeEventNameEmpty},
		{"bad schedule", "starts_at", "2026/10/10", platformerrors.CodeEventScheduleInvalid},
		{"unknown field", "venue", "Town Hall", platformerrors.CodeEventFieldUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.UpdateField(ctx, event.ID, tc.field, tc.value)
			if !platformerrors.IsCode(err, tc.wantCode) {
				t.Fatalf("UpdateField(%s, %q) error = %v, want code %s", tc.field, tc.value, err, tc.wantCode)
			}
		})
	}

	// Failed updates leave the event untouched.
	got, err := svc.Get(ctx, event.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Capacity != 10 || got.Name != "Autumn Meetup" {
		t.Errorf("event mutated by rejected update: %+v", got)
	}
}

func TestRegisterLifecycle(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	event := addEvent(t, svc, "Autumn Meetup", 10)
	const userID = int64(101)

	reg, err := svc.Register(ctx, userID, event.ID)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if reg.Status != storage.StatusRegistered {
		t.Errorf("Status = %s, want %s", reg.Status, storage.StatusRegistered)
	}

	_, err = svc.Register(ctx, userID, event.ID)
	if !platformerrors.IsCode(err, platformerrors.CodeAlreadyRegistered) {
		t.Fatalf("second Register() error = %v, want code %s", err, platformerrors.CodeAlreadyRegistered)
	}

	confirmed, err := svc.Confirm(ctx, userID, event.ID)
	if err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if confirmed.Status != storage.StatusConfirmed {
		t.Errorf("Status = %s, want %s", confirmed.Status, storage.StatusConfirmed)
	}

	// Idempotent confirm.
	again, err := svc.Confirm(ctx, userID, event.ID)
	if err != nil || again.Status != storage.StatusConfirmed {
		t.Fatalf("repeat Confirm() = %+v, %v", again, err)
	}

	cancelled, err := svc.Cancel(ctx, userID, event.ID)
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if cancelled.Status != storage.StatusCancelled {
		t.Errorf("Status = %s, want %s", cancelled.Status, storage.StatusCancelled)
	}

	// Re-registering flips the existing row back instead of adding one.
	reReg, err := svc.Register(ctx, userID, event.ID)
	if err != nil {
		t.Fatalf("Register() after cancel error = %v", err)
	}
	if reReg.ID != reg.ID {
		t.Errorf("re-register created row %d, want reuse of %d", reReg.ID, reg.ID)
	}
	if reReg.Status != storage.StatusRegistered {
		t.Errorf("Status = %s, want %s", reReg.Status, storage.StatusRegistered)
	}
}

func TestConfirmWithoutRegistration(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	event := addEvent(t, svc, "Autumn Meetup", 10)

	_, err := svc.Confirm(context.Background(), 999, event.ID)
	if !platformerrors.IsCode(err, platformerrors.CodeRegistrationNotFound) {
		t.Fatalf("Confirm() error = %v, want code %s", err, platformerrors.CodeRegistrationNotFound)
	}
}

func TestRegisterUnknownEvent(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)

	_, err := svc.Register(context.Background(), 101, "nosuchevent")
	if !platformerrors.IsCode(err, platformerrors.CodeEventNotFound) {
		t.Fatalf("Register() error = %v, want code %s", err, platformerrors.CodeEventNotFound)
	}
}

func TestCapacityReleaseAndRebook(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	event := addEvent(t, svc, "Autumn Meetup", 1)

	if _, err := svc.Register(ctx, 1, event.ID); err != nil {
		t.Fatalf("Register(user 1) error = %v", err)
	}

	_, err := svc.Register(ctx, 2, event.ID)
	if !platformerrors.IsCode(err, platformerrors.CodeCapacityExceeded) {
		t.Fatalf("Register(user 2) error = %v, want code %s", err, platformerrors.CodeCapacityExceeded)
	}

	if _, err := svc.Cancel(ctx, 1, event.ID); err != nil {
		t.Fatalf("Cancel(user 1) error = %v", err)
	}
	if _, err := svc.Register(ctx, 2, event.ID); err != nil {
		t.Fatalf("Register(user 2) after cancel error = %v", err)
	}

	occupancy, err := svc.Occupancy(ctx, event.ID)
	if err != nil {
		t.Fatalf("Occupancy() error = %v", err)
	}
	if occupancy != 1 {
		t.Errorf("Occupancy() = %d, want 1", occupancy)
	}
}

func TestConfirmOrRegister(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	event := addEvent(t, svc, "Autumn Meetup", 1)

	// No prior row: a single call yields a confirmed registration.
	reg, err := svc.ConfirmOrRegister(ctx, 1, event.ID)
	if err != nil {
		t.Fatalf("ConfirmOrRegister() error = %v", err)
	}
	if reg.Status != storage.StatusConfirmed {
		t.Errorf("Status = %s, want %s", reg.Status, storage.StatusConfirmed)
	}

	// The holder's own row never counts against them even at full capacity.
	again, err := svc.ConfirmOrRegister(ctx, 1, event.ID)
	if err != nil {
		t.Fatalf("repeat ConfirmOrRegister() error = %v", err)
	}
	if again.ID != reg.ID {
		t.Errorf("repeat created row %d, want reuse of %d", again.ID, reg.ID)
	}

	// A second user still hits the capacity wall.
	_, err = svc.ConfirmOrRegister(ctx, 2, event.ID)
	if !platformerrors.IsCode(err, platformerrors.CodeCapacityExceeded) {
		t.Fatalf("ConfirmOrRegister(user 2) error = %v, want code %s", err, platformerrors.CodeCapacityExceeded)
	}
}

func TestConfirmOrRegisterCancelledRowRespectsCapacity(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	event := addEvent(t, svc, "Autumn Meetup", 1)

	if _, err := svc.Register(ctx, 1, event.ID); err != nil {
		t.Fatalf("Register(user 1) error = %v", err)
	}
	if _, err := svc.Cancel(ctx, 1, event.ID); err != nil {
		t.Fatalf("Cancel(user 1) error = %v", err)
	}
	if _, err := svc.Register(ctx, 2, event.ID); err != nil {
		t.Fatalf("Register(user 2) error = %v", err)
	}

	// The cancelled row must re-book through the capacity check, and the
	// seat is taken now.
	_, err := svc.ConfirmOrRegister(ctx, 1, event.ID)
	if !platformerrors.IsCode(err, platformerrors.CodeCapacityExceeded) {
		t.Fatalf("ConfirmOrRegister(user 1) error = %v, want code %s", err, platformerrors.CodeCapacityExceeded)
	}
}

func TestDeletePurgesRegistrations(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	event := addEvent(t, svc, "Autumn Meetup", 10)
	other := addEvent(t, svc, "Book Club", 10)

	if _, err := svc.Register(ctx, 1, event.ID); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := svc.Register(ctx, 1, other.ID); err != nil {
		t.Fatalf("Register(other) error = %v", err)
	}

	if err := svc.Delete(ctx, event.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := svc.Get(ctx, event.ID); !platformerrors.IsCode(err, platformerrors.CodeEventNotFound) {
		t.Errorf("Get() after delete error = %v, want code %s", err, platformerrors.CodeEventNotFound)
	}
	regs, err := svc.ListUserRegistrations(ctx, 1, false)
	if err != nil {
		t.Fatalf("ListUserRegistrations() error = %v", err)
	}
	if len(regs) != 1 || regs[0].EventID != other.ID {
		t.Errorf("registrations after delete = %v, want only row for %s", regs, other.ID)
	}
}

func TestListUserRegistrationsActiveFilter(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	first := addEvent(t, svc, "Autumn Meetup", 10)
	second := addEvent(t, svc, "Book Club", 10)
	const userID = int64(7)

	if _, err := svc.Register(ctx, userID, first.ID); err != nil {
		t.Fatalf("Register(first) error = %v", err)
	}
	if _, err := svc.Register(ctx, userID, second.ID); err != nil {
		t.Fatalf("Register(second) error = %v", err)
	}
	if _, err := svc.Cancel(ctx, userID, second.ID); err != nil {
		t.Fatalf("Cancel(second) error = %v", err)
	}

	active, err := svc.ListUserRegistrations(ctx, userID, true)
	if err != nil {
		t.Fatalf("ListUserRegistrations(active) error = %v", err)
	}
	if len(active) != 1 || active[0].EventID != first.ID {
		t.Fatalf("active registrations = %v, want only %s", active, first.ID)
	}

	all, err := svc.ListUserRegistrations(ctx, userID, false)
	if err != nil {
		t.Fatalf("ListUserRegistrations(all) error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all registrations = %d rows, want 2", len(all))
	}
}

func TestConcurrentRegistersRespectCapacity(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	const capacity = 5
	const contenders = 20
	event := addEvent(t, svc, "Autumn Meetup", capacity)

	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Register(ctx, int64(i+1), event.ID)
		}(i)
	}
	wg.Wait()

	won := 0
	for i, err := range errs {
		switch {
		case err == nil:
			won++
		case platformerrors.IsCode(err, platformerrors.CodeCapacityExceeded):
		default:
			t.Fatalf("Register(user %d) error = %v", i+1, err)
		}
	}
	if won != capacity {
		t.Errorf("winners = %d, want %d", won, capacity)
	}

	occupancy, err := svc.Occupancy(ctx, event.ID)
	if err != nil {
		t.Fatalf("Occupancy() error = %v", err)
	}
	if occupancy != capacity {
		t.Errorf("Occupancy() = %d, want %d", occupancy, capacity)
	}
}
