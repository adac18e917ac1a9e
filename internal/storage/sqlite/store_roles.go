package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/louisbranch/gather.space/internal/storage"
)

// GetRole returns the stored role for a user. A missing row means the lowest
// role, never an error.
func (s *Store) GetRole(ctx context.Context, userID int64) (storage.Role, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := s.ready(); err != nil {
		return "", err
	}

	var role string
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT role FROM roles WHERE user_id = ?`,
		userID,
	).Scan(&role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.RoleUser, nil
		}
		return "", fmt.Errorf("get role: %w", err)
	}
	switch storage.Role(role) {
	case storage.RoleUser, storage.RoleModerator, storage.RoleAdmin:
		return storage.Role(role), nil
	default:
		return storage.RoleUser, nil
	}
}

// SetRole assigns a role to a user, overwriting any previous assignment.
func (s *Store) SetRole(ctx context.Context, userID int64, role storage.Role) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	switch role {
	case storage.RoleUser, storage.RoleModerator, storage.RoleAdmin:
	default:
		return fmt.Errorf("invalid role %q", role)
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO roles (user_id, role)
		 VALUES (?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET role = excluded.role`,
		userID,
		string(role),
	)
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	return nil
}

// ListRoles returns all explicit role assignments.
func (s *Store) ListRoles(ctx context.Context) (map[int64]storage.Role, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx, `SELECT user_id, role FROM roles`)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	roles := make(map[int64]storage.Role)
	for rows.Next() {
		var userID int64
		var role string
		if err := rows.Scan(&userID, &role); err != nil {
			return nil, fmt.Errorf("list roles: %w", err)
		}
		roles[userID] = storage.Role(role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}
