package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/gather.space/internal/storage"
)

// CreateEvent inserts one event record.
func (s *Store) CreateEvent(ctx context.Context, event storage.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	eventID := strings.TrimSpace(event.ID)
	name := strings.TrimSpace(event.Name)
	if eventID == "" {
		return fmt.Errorf("event id is required")
	}
	if name == "" {
		return fmt.Errorf("event name is required")
	}
	if event.Capacity <= 0 {
		return fmt.Errorf("event capacity must be greater than zero")
	}
	createdAt := event.CreatedAt.UTC()
	updatedAt := event.UpdatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO events (id, name, starts_at, description, capacity, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		eventID,
		name,
		toMillis(event.StartsAt),
		strings.TrimSpace(event.Description),
		event.Capacity,
		toMillis(createdAt),
		toMillis(updatedAt),
	)
	if err != nil {
		if isUniqueViolation(err, "events.id") {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// GetEvent returns one event by ID.
func (s *Store) GetEvent(ctx context.Context, eventID string) (storage.Event, error) {
	if err := ctx.Err(); err != nil {
		return storage.Event{}, err
	}
	if err := s.ready(); err != nil {
		return storage.Event{}, err
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return storage.Event{}, fmt.Errorf("event id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, name, starts_at, description, capacity, created_at, updated_at
		   FROM events
		  WHERE id = ?`,
		eventID,
	)
	return scanEvent(row)
}

// UpdateEvent overwrites all mutable fields of an event by ID.
func (s *Store) UpdateEvent(ctx context.Context, event storage.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	eventID := strings.TrimSpace(event.ID)
	if eventID == "" {
		return fmt.Errorf("event id is required")
	}
	if event.Capacity <= 0 {
		return fmt.Errorf("event capacity must be greater than zero")
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE events
		    SET name = ?, starts_at = ?, description = ?, capacity = ?, updated_at = ?
		  WHERE id = ?`,
		strings.TrimSpace(event.Name),
		toMillis(event.StartsAt),
		strings.TrimSpace(event.Description),
		event.Capacity,
		toMillis(time.Now().UTC()),
		eventID,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update event rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteEvent removes one event row. Registration cleanup is sequenced by the
// caller, before this call, so the registrations foreign key never dangles.
func (s *Store) DeleteEvent(ctx context.Context, eventID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return fmt.Errorf("event id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, eventID)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete event rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListEvents returns all events ordered by schedule ascending, ID as tie break.
func (s *Store) ListEvents(ctx context.Context) ([]storage.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, name, starts_at, description, capacity, created_at, updated_at
		   FROM events
		  ORDER BY starts_at ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []storage.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("list events: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (storage.Event, error) {
	var event storage.Event
	var startsAt, createdAt, updatedAt int64
	err := row.Scan(
		&event.ID,
		&event.Name,
		&startsAt,
		&event.Description,
		&event.Capacity,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Event{}, storage.ErrNotFound
		}
		return storage.Event{}, fmt.Errorf("scan event: %w", err)
	}
	event.StartsAt = fromMillis(startsAt)
	event.CreatedAt = fromMillis(createdAt)
	event.UpdatedAt = fromMillis(updatedAt)
	return event, nil
}
