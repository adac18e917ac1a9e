// Package event implements the registration engine: the state machine that
// governs a user's relationship to a seat-limited event and enforces the
// capacity invariant under concurrent access.
package event

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	platformerrors "github.com/louisbranch/gather.space/internal/platform/errors"
	"github.com/louisbranch/gather.space/internal/platform/id"
	"github.com/louisbranch/gather.space/internal/storage"
)

// ScheduleLayout is the accepted wire format for event schedules.
const ScheduleLayout = "2006-01-02 15:04"

// Service orchestrates the event and registration stores. All writes to
// registration and event rows flow through here.
type Service struct {
	events storage.EventStore
	regs   storage.RegistrationStore
	clock  func() time.Time
	locks  eventLocks
}

// NewService creates a registration engine over the given stores.
func NewService(events storage.EventStore, regs storage.RegistrationStore) *Service {
	return &Service{
		events: events,
		regs:   regs,
		clock:  time.Now,
	}
}

// WithClock overrides the engine clock. Intended for tests.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

// eventLocks serializes check-then-act sequences per event. Capacity is
// scoped per event, so operations on different events never contend.
type eventLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *eventLocks) acquire(eventID string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	lock, ok := l.locks[eventID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[eventID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// ListActive returns events whose schedule is strictly after now, ordered by
// schedule ascending. Past events stay in the store for history and export.
func (s *Service) ListActive(ctx context.Context, now time.Time) ([]storage.Event, error) {
	events, err := s.events.ListEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	active := make([]storage.Event, 0, len(events))
	for _, event := range events {
		if event.StartsAt.After(now) {
			active = append(active, event)
		}
	}
	return active, nil
}

// Get returns a single event.
func (s *Service) Get(ctx context.Context, eventID string) (storage.Event, error) {
	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		if errorsIsNotFound(err) {
			return storage.Event{}, platformerrors.New(platformerrors.CodeEventNotFound, fmt.Sprintf("event %s not found", eventID))
		}
		return storage.Event{}, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

// Add validates and creates a new event.
func (s *Service) Add(ctx context.Context, name, startsAt, description string, capacity int) (storage.Event, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return storage.Event{}, platformerrors.New(platformerrors.CodeEventNameEmpty, "event name is empty")
	}
	schedule, err := parseSchedule(startsAt)
	if err != nil {
		return storage.Event{}, err
	}
	if capacity <= 0 {
		return storage.Event{}, platformerrors.New(platformerrors.CodeEventCapacityInvalid, fmt.Sprintf("capacity %d is not positive", capacity))
	}

	eventID, err := id.NewID()
	if err != nil {
		return storage.Event{}, fmt.Errorf("generate event id: %w", err)
	}
	event := storage.Event{
		ID:          eventID,
		Name:        name,
		StartsAt:    schedule,
		Description: strings.TrimSpace(description),
		Capacity:    capacity,
		CreatedAt:   s.clock().UTC(),
	}
	if err := s.events.CreateEvent(ctx, event); err != nil {
		return storage.Event{}, fmt.Errorf("create event: %w", err)
	}
	return s.Get(ctx, eventID)
}

// UpdateField validates and overwrites a single mutable event field.
//
// Reducing capacity below current occupancy is deliberately not rejected:
// an over-capacity event drains through natural cancellation attrition.
func (s *Service) UpdateField(ctx context.Context, eventID, field, value string) (storage.Event, error) {
	event, err := s.Get(ctx, eventID)
	if err != nil {
		return storage.Event{}, err
	}

	switch field {
	case "name":
		name := strings.TrimSpace(value)
		if name == "" {
			return storage.Event{}, platformerrors.New(platformerrors.CodeEventNameEmpty, "event name is empty")
		}
		event.Name = name
	case "starts_at":
		schedule, err := parseSchedule(value)
		if err != nil {
			return storage.Event{}, err
		}
		event.StartsAt = schedule
	case "description":
		event.Description = strings.TrimSpace(value)
	case "max_seats":
		seats, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || seats <= 0 {
			return storage.Event{}, platformerrors.New(platformerrors.CodeEventCapacityInvalid, fmt.Sprintf("invalid seat count %q", value))
		}
		event.Capacity = seats
	default:
		return storage.Event{}, platformerrors.New(platformerrors.CodeEventFieldUnknown, fmt.Sprintf("unknown event field %q", field))
	}

	if err := s.events.UpdateEvent(ctx, event); err != nil {
		return storage.Event{}, fmt.Errorf("update event: %w", err)
	}
	return s.Get(ctx, eventID)
}

// Delete removes an event and purges its registrations. Registrations go
// first so the store never holds rows referencing a missing event.
func (s *Service) Delete(ctx context.Context, eventID string) error {
	if _, err := s.Get(ctx, eventID); err != nil {
		return err
	}
	release := s.locks.acquire(eventID)
	defer release()

	if err := s.regs.DeleteRegistrationsByEvent(ctx, eventID); err != nil {
		return fmt.Errorf("purge registrations: %w", err)
	}
	if err := s.events.DeleteEvent(ctx, eventID); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// Register books a seat for the user. The whole check-then-act sequence runs
// under the per-event lock: without it two concurrent calls could both see
// occupancy below capacity and overbook the event.
func (s *Service) Register(ctx context.Context, userID int64, eventID string) (storage.Registration, error) {
	release := s.locks.acquire(eventID)
	defer release()
	return s.registerLocked(ctx, userID, eventID)
}

func (s *Service) registerLocked(ctx context.Context, userID int64, eventID string) (storage.Registration, error) {
	existing, err := s.regs.GetRegistration(ctx, userID, eventID)
	switch {
	case err == nil && existing.Status.Active():
		return storage.Registration{}, platformerrors.WithMetadata(
			platformerrors.CodeAlreadyRegistered,
			fmt.Sprintf("user %d already has an active registration for event %s", userID, eventID),
			s.eventMetadata(ctx, eventID),
		)
	case err != nil && !errorsIsNotFound(err):
		return storage.Registration{}, fmt.Errorf("get registration: %w", err)
	}

	event, err := s.Get(ctx, eventID)
	if err != nil {
		return storage.Registration{}, err
	}

	occupancy, err := s.Occupancy(ctx, eventID)
	if err != nil {
		return storage.Registration{}, err
	}
	if occupancy >= event.Capacity {
		return storage.Registration{}, platformerrors.WithMetadata(
			platformerrors.CodeCapacityExceeded,
			fmt.Sprintf("event %s is full (%d/%d)", eventID, occupancy, event.Capacity),
			map[string]string{"event_id": eventID, "event_name": event.Name},
		)
	}

	// A cancelled row flips back to registered instead of creating a second
	// row: the (user, event) pair owns exactly one row for its whole history.
	if existing.ID != 0 {
		if err := s.regs.UpdateRegistrationStatus(ctx, existing.ID, storage.StatusRegistered); err != nil {
			return storage.Registration{}, fmt.Errorf("reactivate registration: %w", err)
		}
		return s.registration(ctx, userID, eventID)
	}

	regID, err := s.regs.CreateRegistration(ctx, storage.Registration{
		UserID:    userID,
		EventID:   eventID,
		Status:    storage.StatusRegistered,
		CreatedAt: s.clock().UTC(),
	})
	if err != nil {
		return storage.Registration{}, fmt.Errorf("create registration: %w", err)
	}
	reg, err := s.registration(ctx, userID, eventID)
	if err != nil {
		return storage.Registration{}, err
	}
	if reg.ID != regID {
		return storage.Registration{}, fmt.Errorf("registration id mismatch: created %d, read %d", regID, reg.ID)
	}
	return reg, nil
}

// Confirm marks an existing registration as confirmed. Confirming an already
// confirmed registration is a no-op success.
func (s *Service) Confirm(ctx context.Context, userID int64, eventID string) (storage.Registration, error) {
	reg, err := s.registration(ctx, userID, eventID)
	if err != nil {
		return storage.Registration{}, err
	}
	if reg.Status == storage.StatusConfirmed {
		return reg, nil
	}
	if err := s.regs.UpdateRegistrationStatus(ctx, reg.ID, storage.StatusConfirmed); err != nil {
		return storage.Registration{}, fmt.Errorf("confirm registration: %w", err)
	}
	return s.registration(ctx, userID, eventID)
}

// ConfirmOrRegister ensures the user holds a confirmed registration,
// registering them first when no row exists. Reminder links reach users who
// were invited directly and never registered themselves; this path must not
// double-count an existing row against capacity.
func (s *Service) ConfirmOrRegister(ctx context.Context, userID int64, eventID string) (storage.Registration, error) {
	release := s.locks.acquire(eventID)
	defer release()

	reg, err := s.regs.GetRegistration(ctx, userID, eventID)
	switch {
	case err != nil && !errorsIsNotFound(err):
		return storage.Registration{}, fmt.Errorf("get registration: %w", err)
	case err != nil || !reg.Status.Active():
		// No row, or a cancelled one: re-book the seat under the capacity
		// check before confirming.
		reg, err = s.registerLocked(ctx, userID, eventID)
		if err != nil {
			return storage.Registration{}, err
		}
	}
	if reg.Status == storage.StatusConfirmed {
		return reg, nil
	}
	if err := s.regs.UpdateRegistrationStatus(ctx, reg.ID, storage.StatusConfirmed); err != nil {
		return storage.Registration{}, fmt.Errorf("confirm registration: %w", err)
	}
	return s.registration(ctx, userID, eventID)
}

// Cancel releases the user's seat. Cancelling an already cancelled
// registration is a no-op success.
func (s *Service) Cancel(ctx context.Context, userID int64, eventID string) (storage.Registration, error) {
	reg, err := s.registration(ctx, userID, eventID)
	if err != nil {
		return storage.Registration{}, err
	}
	if reg.Status == storage.StatusCancelled {
		return reg, nil
	}
	if err := s.regs.UpdateRegistrationStatus(ctx, reg.ID, storage.StatusCancelled); err != nil {
		return storage.Registration{}, fmt.Errorf("cancel registration: %w", err)
	}
	return s.registration(ctx, userID, eventID)
}

// Registration returns the user's registration for an event, if any.
func (s *Service) Registration(ctx context.Context, userID int64, eventID string) (storage.Registration, error) {
	return s.registration(ctx, userID, eventID)
}

// ListRegistrations returns every historical registration row for an event,
// cancelled ones included. Audit and export views rely on the full history.
func (s *Service) ListRegistrations(ctx context.Context, eventID string) ([]storage.Registration, error) {
	regs, err := s.regs.ListRegistrationsByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return regs, nil
}

// ListUserRegistrations returns the user's registrations. With onlyActive set
// cancelled rows are filtered out, which is what user-facing views show.
func (s *Service) ListUserRegistrations(ctx context.Context, userID int64, onlyActive bool) ([]storage.Registration, error) {
	regs, err := s.regs.ListRegistrationsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user registrations: %w", err)
	}
	if !onlyActive {
		return regs, nil
	}
	active := make([]storage.Registration, 0, len(regs))
	for _, reg := range regs {
		if reg.Status.Active() {
			active = append(active, reg)
		}
	}
	return active, nil
}

// Occupancy counts active registrations for an event. Reads may race with
// writes; the count is authoritative only under the per-event lock.
func (s *Service) Occupancy(ctx context.Context, eventID string) (int, error) {
	regs, err := s.regs.ListRegistrationsByEvent(ctx, eventID)
	if err != nil {
		return 0, fmt.Errorf("count occupancy: %w", err)
	}
	occupancy := 0
	for _, reg := range regs {
		if reg.Status.Active() {
			occupancy++
		}
	}
	return occupancy, nil
}

func (s *Service) registration(ctx context.Context, userID int64, eventID string) (storage.Registration, error) {
	reg, err := s.regs.GetRegistration(ctx, userID, eventID)
	if err != nil {
		if errorsIsNotFound(err) {
			return storage.Registration{}, platformerrors.New(
				platformerrors.CodeRegistrationNotFound,
				fmt.Sprintf("no registration for user %d and event %s", userID, eventID),
			)
		}
		return storage.Registration{}, fmt.Errorf("get registration: %w", err)
	}
	return reg, nil
}

func (s *Service) eventMetadata(ctx context.Context, eventID string) map[string]string {
	metadata := map[string]string{"event_id": eventID}
	if event, err := s.events.GetEvent(ctx, eventID); err == nil {
		metadata["event_name"] = event.Name
	}
	return metadata
}

func parseSchedule(value string) (time.Time, error) {
	schedule, err := time.Parse(ScheduleLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, platformerrors.WithMetadata(
			platformerrors.CodeEventScheduleInvalid,
			fmt.Sprintf("schedule %q does not match %s", value, ScheduleLayout),
			map[string]string{"value": value},
		)
	}
	return schedule.UTC(), nil
}

func errorsIsNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
