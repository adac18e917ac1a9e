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

// UpsertUser creates a profile row on first contact and refreshes the chat
// identity fields on every later one. Email and consent are left untouched.
func (s *Store) UpsertUser(ctx context.Context, userID int64, username, fullName string) (storage.User, error) {
	if err := ctx.Err(); err != nil {
		return storage.User{}, err
	}
	if err := s.ready(); err != nil {
		return storage.User{}, err
	}
	now := toMillis(time.Now().UTC())

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO users (id, username, full_name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   username = excluded.username,
		   full_name = CASE WHEN excluded.full_name != '' THEN excluded.full_name ELSE users.full_name END,
		   updated_at = excluded.updated_at`,
		userID,
		strings.TrimSpace(username),
		strings.TrimSpace(fullName),
		now,
		now,
	)
	if err != nil {
		return storage.User{}, fmt.Errorf("upsert user: %w", err)
	}
	return s.GetUser(ctx, userID)
}

// GetUser returns one profile by ID.
func (s *Store) GetUser(ctx context.Context, userID int64) (storage.User, error) {
	if err := ctx.Err(); err != nil {
		return storage.User{}, err
	}
	if err := s.ready(); err != nil {
		return storage.User{}, err
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, username, full_name, email, consent, consent_at, created_at, updated_at
		   FROM users
		  WHERE id = ?`,
		userID,
	)
	return scanUser(row)
}

// SetUserEmail overwrites the profile email.
func (s *Store) SetUserEmail(ctx context.Context, userID int64, email string) error {
	return s.setUserField(ctx, userID, "email", strings.TrimSpace(email))
}

// SetUserFullName overwrites the profile full name.
func (s *Store) SetUserFullName(ctx context.Context, userID int64, fullName string) error {
	return s.setUserField(ctx, userID, "full_name", strings.TrimSpace(fullName))
}

// SetUserConsent records the personal data consent decision with a timestamp.
func (s *Store) SetUserConsent(ctx context.Context, userID int64, consent bool, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	consentValue := 0
	var consentAt any
	if consent {
		consentValue = 1
		consentAt = toMillis(at)
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE users SET consent = ?, consent_at = ?, updated_at = ? WHERE id = ?`,
		consentValue,
		consentAt,
		toMillis(time.Now().UTC()),
		userID,
	)
	if err != nil {
		return fmt.Errorf("set user consent: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set user consent rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListUsers returns all profiles ordered by ID.
func (s *Store) ListUsers(ctx context.Context) ([]storage.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, username, full_name, email, consent, consent_at, created_at, updated_at
		   FROM users
		  ORDER BY id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []storage.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *Store) setUserField(ctx context.Context, userID int64, column, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		fmt.Sprintf(`UPDATE users SET %s = ?, updated_at = ? WHERE id = ?`, column),
		value,
		toMillis(time.Now().UTC()),
		userID,
	)
	if err != nil {
		return fmt.Errorf("set user %s: %w", column, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set user %s rows affected: %w", column, err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanUser(row rowScanner) (storage.User, error) {
	var user storage.User
	var consent int
	var consentAt sql.NullInt64
	var createdAt, updatedAt int64
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.FullName,
		&user.Email,
		&consent,
		&consentAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.User{}, storage.ErrNotFound
		}
		return storage.User{}, fmt.Errorf("scan user: %w", err)
	}
	user.Consent = consent != 0
	if consentAt.Valid {
		at := fromMillis(consentAt.Int64)
		user.ConsentAt = &at
	}
	user.CreatedAt = fromMillis(createdAt)
	user.UpdatedAt = fromMillis(updatedAt)
	return user, nil
}
