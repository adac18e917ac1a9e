// Package profile manages user records: identity upserts on first contact,
// contact details, consent, and role administration.
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/gather.space/internal/access"
	platformerrors "github.com/louisbranch/gather.space/internal/platform/errors"
	"github.com/louisbranch/gather.space/internal/storage"
)

const minFullNameLength = 3

// Service wraps the user and role stores with validation.
type Service struct {
	users storage.UserStore
	roles storage.RoleStore
	clock func() time.Time
}

// NewService creates a profile service over the given stores.
func NewService(users storage.UserStore, roles storage.RoleStore) *Service {
	return &Service{users: users, roles: roles, clock: time.Now}
}

// WithClock overrides the service clock. Intended for tests.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

// EnsureUser records the identity on every contact. Repeat calls refresh the
// username and keep everything the user entered themselves.
func (s *Service) EnsureUser(ctx context.Context, userID int64, username, fullName string) (storage.User, error) {
	user, err := s.users.UpsertUser(ctx, userID, username, fullName)
	if err != nil {
		return storage.User{}, fmt.Errorf("upsert user: %w", err)
	}
	return user, nil
}

// Get returns a user record.
func (s *Service) Get(ctx context.Context, userID int64) (storage.User, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return storage.User{}, platformerrors.New(platformerrors.CodeProfileUserNotFound, fmt.Sprintf("user %d not found", userID))
		}
		return storage.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// UpdateEmail stores the user's email after a structural check. Deliverability
// is out of scope, the check only rejects obvious non-addresses.
func (s *Service) UpdateEmail(ctx context.Context, userID int64, email string) error {
	email = strings.TrimSpace(email)
	at := strings.Index(email, "@")
	if at < 1 || at == len(email)-1 || !strings.Contains(email[at+1:], ".") {
		return platformerrors.New(platformerrors.CodeProfileEmailInvalid, fmt.Sprintf("%q is not an email address", email))
	}
	if err := s.users.SetUserEmail(ctx, userID, email); err != nil {
		if isNotFound(err) {
			return platformerrors.New(platformerrors.CodeProfileUserNotFound, fmt.Sprintf("user %d not found", userID))
		}
		return fmt.Errorf("set email: %w", err)
	}
	return nil
}

// UpdateFullName stores the user's display name.
func (s *Service) UpdateFullName(ctx context.Context, userID int64, fullName string) error {
	fullName = strings.TrimSpace(fullName)
	if len([]rune(fullName)) < minFullNameLength {
		return platformerrors.New(platformerrors.CodeProfileNameTooShort, fmt.Sprintf("name %q is shorter than %d characters", fullName, minFullNameLength))
	}
	if err := s.users.SetUserFullName(ctx, userID, fullName); err != nil {
		if isNotFound(err) {
			return platformerrors.New(platformerrors.CodeProfileUserNotFound, fmt.Sprintf("user %d not found", userID))
		}
		return fmt.Errorf("set full name: %w", err)
	}
	return nil
}

// SetConsent records or revokes data-processing consent. Granting stamps the
// time, revoking clears it.
func (s *Service) SetConsent(ctx context.Context, userID int64, granted bool) error {
	if err := s.users.SetUserConsent(ctx, userID, granted, s.clock().UTC()); err != nil {
		if isNotFound(err) {
			return platformerrors.New(platformerrors.CodeProfileUserNotFound, fmt.Sprintf("user %d not found", userID))
		}
		return fmt.Errorf("set consent: %w", err)
	}
	return nil
}

// ListUsers returns every known user.
func (s *Service) ListUsers(ctx context.Context) ([]storage.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// AssignRole stores a role for a user.
func (s *Service) AssignRole(ctx context.Context, userID int64, role string) error {
	parsed := storage.Role(strings.TrimSpace(strings.ToLower(role)))
	switch parsed {
	case storage.RoleUser, storage.RoleModerator, storage.RoleAdmin:
	default:
		return platformerrors.New(platformerrors.CodeProfileRoleInvalid, fmt.Sprintf("unknown role %q", role))
	}
	if err := s.roles.SetRole(ctx, userID, parsed); err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	return nil
}

// GetRole returns the stored role for a user, the weakest role when no row
// exists.
func (s *Service) GetRole(ctx context.Context, userID int64) (storage.Role, error) {
	role, err := s.roles.GetRole(ctx, userID)
	if err != nil {
		return storage.RoleUser, fmt.Errorf("get role: %w", err)
	}
	return access.ParseRole(string(role)), nil
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
