package access

import (
	"context"
	"io"
	"log"
	"path/filepath"
	"testing"

	platformerrors "github.com/louisbranch/gather.space/internal/platform/errors"
	"github.com/louisbranch/gather.space/internal/storage"
	"github.com/louisbranch/gather.space/internal/storage/sqlite"
)

func openTempStore(t *testing.T) *sqlite.Store {
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
	return store
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestSatisfiesOrdering(t *testing.T) {
	t.Parallel()

	tests := []struct {
		role     storage.Role
		required storage.Role
		want     bool
	}{
		{storage.RoleUser, storage.RoleUser, true},
		{storage.RoleUser, storage.RoleModerator, false},
		{storage.RoleUser, storage.RoleAdmin, false},
		{storage.RoleModerator, storage.RoleUser, true},
		{storage.RoleModerator, storage.RoleModerator, true},
		{storage.RoleModerator, storage.RoleAdmin, false},
		{storage.RoleAdmin, storage.RoleUser, true},
		{storage.RoleAdmin, storage.RoleModerator, true},
		{storage.RoleAdmin, storage.RoleAdmin, true},
	}

	for _, tc := range tests {
		if got := Satisfies(tc.role, tc.required); got != tc.want {
			t.Errorf("Satisfies(%s, %s) = %v, want %v", tc.role, tc.required, got, tc.want)
		}
	}
}

func TestParseRole(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value string
		want  storage.Role
	}{
		{"admin", storage.RoleAdmin},
		{"moderator", storage.RoleModerator},
		{"user", storage.RoleUser},
		{"superuser", storage.RoleUser},
		{"", storage.RoleUser},
	}

	for _, tc := range tests {
		if got := ParseRole(tc.value); got != tc.want {
			t.Errorf("ParseRole(%q) = %s, want %s", tc.value, got, tc.want)
		}
	}
}

func TestResolveDefaultsToUser(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	gate := NewGate(store, nil, quietLogger())

	role, err := gate.Resolve(context.Background(), 42)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if role != storage.RoleUser {
		t.Errorf("Resolve() = %s, want %s", role, storage.RoleUser)
	}
}

func TestResolveRejectsMissingIdentity(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	gate := NewGate(store, nil, quietLogger())

	_, err := gate.Resolve(context.Background(), 0)
	if !platformerrors.IsCode(err, platformerrors.CodeIdentityUnknown) {
		t.Fatalf("Resolve(0) error = %v, want code %s", err, platformerrors.CodeIdentityUnknown)
	}
}

func TestAllowListElevationPersists(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	const adminID = int64(7)
	gate := NewGate(store, []int64{adminID}, quietLogger())
	ctx := context.Background()

	role, err := gate.Resolve(ctx, adminID)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if role != storage.RoleAdmin {
		t.Errorf("Resolve() = %s, want %s", role, storage.RoleAdmin)
	}

	// Elevation is visible to anything reading the store directly.
	stored, err := store.GetRole(ctx, adminID)
	if err != nil {
		t.Fatalf("GetRole() error = %v", err)
	}
	if stored != storage.RoleAdmin {
		t.Errorf("stored role = %s, want %s", stored, storage.RoleAdmin)
	}
}

func TestAuthorize(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	if err := store.SetRole(ctx, 2, storage.RoleModerator); err != nil {
		t.Fatalf("SetRole() error = %v", err)
	}
	gate := NewGate(store, []int64{1}, quietLogger())

	if err := gate.Authorize(ctx, 1, storage.RoleAdmin); err != nil {
		t.Errorf("Authorize(admin, admin) error = %v", err)
	}
	if err := gate.Authorize(ctx, 2, storage.RoleModerator); err != nil {
		t.Errorf("Authorize(moderator, moderator) error = %v", err)
	}

	err := gate.Authorize(ctx, 2, storage.RoleAdmin)
	if !platformerrors.IsCode(err, platformerrors.CodePermissionDenied) {
		t.Errorf("Authorize(moderator, admin) error = %v, want code %s", err, platformerrors.CodePermissionDenied)
	}
	err = gate.Authorize(ctx, 3, storage.RoleModerator)
	if !platformerrors.IsCode(err, platformerrors.CodePermissionDenied) {
		t.Errorf("Authorize(user, moderator) error = %v, want code %s", err, platformerrors.CodePermissionDenied)
	}
}

func TestRequireBlocksHandler(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	gate := NewGate(store, []int64{1}, quietLogger())
	ctx := context.Background()

	ran := false
	handler := gate.Require(storage.RoleAdmin, func(ctx context.Context, userID int64) error {
		ran = true
		return nil
	})

	if err := handler(ctx, 2); !platformerrors.IsCode(err, platformerrors.CodePermissionDenied) {
		t.Fatalf("handler(user) error = %v, want code %s", err, platformerrors.CodePermissionDenied)
	}
	if ran {
		t.Fatal("handler ran for denied identity")
	}

	if err := handler(ctx, 1); err != nil {
		t.Fatalf("handler(admin) error = %v", err)
	}
	if !ran {
		t.Fatal("handler did not run for admin")
	}
}
