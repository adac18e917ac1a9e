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

// GetRegistration returns the registration for one (user, event) pair.
func (s *Store) GetRegistration(ctx context.Context, userID int64, eventID string) (storage.Registration, error) {
	if err := ctx.Err(); err != nil {
		return storage.Registration{}, err
	}
	if err := s.ready(); err != nil {
		return storage.Registration{}, err
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return storage.Registration{}, fmt.Errorf("event id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, user_id, event_id, status, created_at
		   FROM registrations
		  WHERE user_id = ? AND event_id = ?`,
		userID,
		eventID,
	)
	return scanRegistration(row)
}

// CreateRegistration inserts one registration row and returns its assigned ID.
// The (user_id, event_id) unique constraint is enforced here, not by callers.
func (s *Store) CreateRegistration(ctx context.Context, reg storage.Registration) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := s.ready(); err != nil {
		return 0, err
	}
	eventID := strings.TrimSpace(reg.EventID)
	if eventID == "" {
		return 0, fmt.Errorf("event id is required")
	}
	if !reg.Status.Active() && reg.Status != storage.StatusCancelled {
		return 0, fmt.Errorf("invalid registration status %q", reg.Status)
	}
	createdAt := reg.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO registrations (user_id, event_id, status, created_at)
		 VALUES (?, ?, ?, ?)`,
		reg.UserID,
		eventID,
		string(reg.Status),
		toMillis(createdAt),
	)
	if err != nil {
		if isUniqueViolation(err, "registrations.user_id") {
			return 0, storage.ErrAlreadyExists
		}
		return 0, fmt.Errorf("create registration: %w", err)
	}
	regID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create registration id: %w", err)
	}
	return regID, nil
}

// UpdateRegistrationStatus overwrites the status of one registration row.
func (s *Store) UpdateRegistrationStatus(ctx context.Context, regID int64, status storage.RegistrationStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE registrations SET status = ? WHERE id = ?`,
		string(status),
		regID,
	)
	if err != nil {
		return fmt.Errorf("update registration status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update registration status rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListRegistrationsByEvent returns all historical rows for an event,
// cancelled ones included. Filtering is the caller's job.
func (s *Store) ListRegistrationsByEvent(ctx context.Context, eventID string) ([]storage.Registration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return nil, fmt.Errorf("event id is required")
	}

	return s.listRegistrations(
		ctx,
		`SELECT id, user_id, event_id, status, created_at
		   FROM registrations
		  WHERE event_id = ?`,
		eventID,
	)
}

// ListRegistrationsByUser returns all historical rows for a user.
func (s *Store) ListRegistrationsByUser(ctx context.Context, userID int64) ([]storage.Registration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	return s.listRegistrations(
		ctx,
		`SELECT id, user_id, event_id, status, created_at
		   FROM registrations
		  WHERE user_id = ?`,
		userID,
	)
}

// DeleteRegistrationsByEvent purges all rows for an event. Used during event
// deletion only.
func (s *Store) DeleteRegistrationsByEvent(ctx context.Context, eventID string) error {
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

	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM registrations WHERE event_id = ?`, eventID); err != nil {
		return fmt.Errorf("delete registrations by event: %w", err)
	}
	return nil
}

func (s *Store) listRegistrations(ctx context.Context, query string, arg any) ([]storage.Registration, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var regs []storage.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("list registrations: %w", err)
		}
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return regs, nil
}

func scanRegistration(row rowScanner) (storage.Registration, error) {
	var reg storage.Registration
	var status string
	var createdAt int64
	err := row.Scan(&reg.ID, &reg.UserID, &reg.EventID, &status, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Registration{}, storage.ErrNotFound
		}
		return storage.Registration{}, fmt.Errorf("scan registration: %w", err)
	}
	reg.Status = storage.RegistrationStatus(status)
	reg.CreatedAt = fromMillis(createdAt)
	return reg, nil
}
