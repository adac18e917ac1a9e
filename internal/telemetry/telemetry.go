// Package telemetry records operational events to the store for audit and
// diagnostics. Emission is best effort and never fails the caller.
package telemetry

import (
	"context"
	"log"
	"time"

	"github.com/louisbranch/gather.space/internal/storage"
)

// Event names emitted across the service.
const (
	EventRegistrationCreated   = "registration_created"
	EventRegistrationConfirmed = "registration_confirmed"
	EventRegistrationCancelled = "registration_cancelled"
	EventEventCreated          = "event_created"
	EventEventDeleted          = "event_deleted"
	EventRoleElevated          = "role_elevated"
	EventBroadcastSent         = "broadcast_sent"
	EventReminderSent          = "reminder_sent"
)

// Emitter persists telemetry events.
type Emitter struct {
	store  storage.TelemetryStore
	clock  func() time.Time
	logger *log.Logger
}

// NewEmitter creates an emitter over a telemetry store.
func NewEmitter(store storage.TelemetryStore, logger *log.Logger) *Emitter {
	if logger == nil {
		logger = log.Default()
	}
	return &Emitter{store: store, clock: time.Now, logger: logger}
}

// WithClock overrides the emitter clock. Intended for tests.
func (e *Emitter) WithClock(clock func() time.Time) *Emitter {
	e.clock = clock
	return e
}

// Emit appends one event. Failures are logged and swallowed so a telemetry
// outage never blocks the operation being recorded.
func (e *Emitter) Emit(ctx context.Context, name string, actor int64, attributes map[string]string) {
	err := e.store.AppendTelemetryEvent(ctx, storage.TelemetryEvent{
		Name:       name,
		Actor:      actor,
		Attributes: attributes,
		Timestamp:  e.clock().UTC(),
	})
	if err != nil {
		e.logger.Printf("append telemetry event %s: %v", name, err)
	}
}
