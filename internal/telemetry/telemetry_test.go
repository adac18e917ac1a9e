package telemetry

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/louisbranch/gather.space/internal/storage"
)

type recordingStore struct {
	events []storage.TelemetryEvent
	err    error
}

func (r *recordingStore) AppendTelemetryEvent(ctx context.Context, event storage.TelemetryEvent) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

func TestEmitRecordsEvent(t *testing.T) {
	t.Parallel()

	store := &recordingStore{}
	now := time.Date(2026, time.September, 1, 12, 0, 0, 0, time.UTC)
	emitter := NewEmitter(store, log.New(io.Discard, "", 0)).WithClock(func() time.Time { return now })

	emitter.Emit(context.Background(), EventRegistrationCreated, 42, map[string]string{"event_id": "abc"})

	if len(store.events) != 1 {
		t.Fatalf("recorded %d events, want 1", len(store.events))
	}
	got := store.events[0]
	if got.Name != EventRegistrationCreated || got.Actor != 42 {
		t.Errorf("event = %+v", got)
	}
	if !got.Timestamp.Equal(now) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, now)
	}
}

func TestEmitSwallowsStoreFailure(t *testing.T) {
	t.Parallel()

	var buf strings.Builder
	store := &recordingStore{err: errors.New("disk full")}
	emitter := NewEmitter(store, log.New(&buf, "", 0))

	emitter.Emit(context.Background(), EventBroadcastSent, 1, nil)

	if !strings.Contains(buf.String(), "disk full") {
		t.Errorf("failure not logged: %q", buf.String())
	}
}
