// Package access decides whether an identity may perform an operation.
// Roles form a total order and every grant flows through the Gate, so a
// handler never inspects roles on its own.
package access

import (
	"context"
	"fmt"
	"log"

	platformerrors "github.com/louisbranch/gather.space/internal/platform/errors"
	"github.com/louisbranch/gather.space/internal/storage"
)

// rank positions a role inside the user < moderator < admin order.
func rank(role storage.Role) int {
	switch role {
	case storage.RoleAdmin:
		return 2
	case storage.RoleModerator:
		return 1
	default:
		return 0
	}
}

// ParseRole maps a raw string to a role. Unknown values degrade to the
// weakest role rather than failing.
func ParseRole(value string) storage.Role {
	switch storage.Role(value) {
	case storage.RoleAdmin:
		return storage.RoleAdmin
	case storage.RoleModerator:
		return storage.RoleModerator
	default:
		return storage.RoleUser
	}
}

// Satisfies reports whether a holder of role may act as required.
func Satisfies(role, required storage.Role) bool {
	return rank(role) >= rank(required)
}

// Gate resolves an identity's effective role and enforces requirements.
type Gate struct {
	roles    storage.RoleStore
	adminIDs map[int64]bool
	logger   *log.Logger
}

// NewGate builds a gate over the role store. adminIDs is the configured
// allow-list of identities that are always admins.
func NewGate(roles storage.RoleStore, adminIDs []int64, logger *log.Logger) *Gate {
	allow := make(map[int64]bool, len(adminIDs))
	for _, id := range adminIDs {
		allow[id] = true
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Gate{roles: roles, adminIDs: allow, logger: logger}
}

// Resolve returns the effective role for an identity. Allow-listed
// identities are admins regardless of the stored row; the elevated role is
// written back so exports and role listings agree with the allow-list. The
// write is best effort, the grant does not depend on it.
func (g *Gate) Resolve(ctx context.Context, userID int64) (storage.Role, error) {
	if userID == 0 {
		return storage.RoleUser, platformerrors.New(platformerrors.CodeIdentityUnknown, "request carries no identity")
	}
	if g.adminIDs[userID] {
		stored, err := g.roles.GetRole(ctx, userID)
		if err != nil || stored != storage.RoleAdmin {
			if err := g.roles.SetRole(ctx, userID, storage.RoleAdmin); err != nil {
				g.logger.Printf("persist elevated role for %d: %v", userID, err)
			}
		}
		return storage.RoleAdmin, nil
	}
	role, err := g.roles.GetRole(ctx, userID)
	if err != nil {
		return storage.RoleUser, fmt.Errorf("get role: %w", err)
	}
	return role, nil
}

// Authorize resolves the identity's role and checks it against required.
func (g *Gate) Authorize(ctx context.Context, userID int64, required storage.Role) error {
	role, err := g.Resolve(ctx, userID)
	if err != nil {
		return err
	}
	if !Satisfies(role, required) {
		return platformerrors.WithMetadata(
			platformerrors.CodePermissionDenied,
			fmt.Sprintf("user %d holds %s, operation requires %s", userID, role, required),
			map[string]string{"required": string(required)},
		)
	}
	return nil
}

// Handler is the unit the gate wraps: an operation bound to an identity.
type Handler func(ctx context.Context, userID int64) error

// Require wraps a handler so it only runs for identities satisfying the
// required role. Composition happens once, at router registration time.
func (g *Gate) Require(required storage.Role, next Handler) Handler {
	return func(ctx context.Context, userID int64) error {
		if err := g.Authorize(ctx, userID, required); err != nil {
			return err
		}
		return next(ctx, userID)
	}
}
