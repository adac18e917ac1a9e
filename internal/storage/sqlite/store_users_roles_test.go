package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/louisbranch/gather.space/internal/storage"
)

func TestUpsertUserCreatesAndRefreshes(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	created, err := store.UpsertUser(context.Background(), 100, "anna", "Anna K")
	if err != nil {
		t.Fatalf("upsert user: %v", err)
	}
	if created.Username != "anna" {
		t.Fatalf("username = %q, want %q", created.Username, "anna")
	}

	if err := store.SetUserEmail(context.Background(), 100, "anna@example.com"); err != nil {
		t.Fatalf("set email: %v", err)
	}

	// A later upsert refreshes identity fields but must not wipe the email.
	refreshed, err := store.UpsertUser(context.Background(), 100, "anna_k", "Anna K")
	if err != nil {
		t.Fatalf("re-upsert user: %v", err)
	}
	if refreshed.Username != "anna_k" {
		t.Fatalf("username = %q, want %q", refreshed.Username, "anna_k")
	}
	if refreshed.Email != "anna@example.com" {
		t.Fatalf("email = %q, want %q", refreshed.Email, "anna@example.com")
	}
}

func TestUpsertUserKeepsFullNameWhenBlank(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if _, err := store.UpsertUser(context.Background(), 101, "bo", "Bo Chen"); err != nil {
		t.Fatalf("upsert user: %v", err)
	}
	got, err := store.UpsertUser(context.Background(), 101, "bo", "")
	if err != nil {
		t.Fatalf("re-upsert user: %v", err)
	}
	if got.FullName != "Bo Chen" {
		t.Fatalf("full_name = %q, want %q", got.FullName, "Bo Chen")
	}
}

func TestSetUserConsentStoresTimestamp(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if _, err := store.UpsertUser(context.Background(), 102, "kim", "Kim L"); err != nil {
		t.Fatalf("upsert user: %v", err)
	}
	at := time.Date(2026, time.March, 3, 9, 0, 0, 0, time.UTC)
	if err := store.SetUserConsent(context.Background(), 102, true, at); err != nil {
		t.Fatalf("set consent: %v", err)
	}

	got, err := store.GetUser(context.Background(), 102)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if !got.Consent {
		t.Fatal("expected consent to be recorded")
	}
	if got.ConsentAt == nil || !got.ConsentAt.Equal(at) {
		t.Fatalf("consent_at = %v, want %v", got.ConsentAt, at)
	}

	if err := store.SetUserConsent(context.Background(), 102, false, time.Now()); err != nil {
		t.Fatalf("revoke consent: %v", err)
	}
	got, err = store.GetUser(context.Background(), 102)
	if err != nil {
		t.Fatalf("get user after revoke: %v", err)
	}
	if got.Consent || got.ConsentAt != nil {
		t.Fatalf("consent = %v consent_at = %v, want revoked and nil", got.Consent, got.ConsentAt)
	}
}

func TestGetUserNotFound(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if _, err := store.GetUser(context.Background(), 999); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("error = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestGetRoleDefaultsToUser(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	role, err := store.GetRole(context.Background(), 500)
	if err != nil {
		t.Fatalf("get role: %v", err)
	}
	if role != storage.RoleUser {
		t.Fatalf("role = %q, want %q", role, storage.RoleUser)
	}
}

func TestSetRoleUpsertsAssignment(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if err := store.SetRole(context.Background(), 501, storage.RoleModerator); err != nil {
		t.Fatalf("set role: %v", err)
	}
	if err := store.SetRole(context.Background(), 501, storage.RoleAdmin); err != nil {
		t.Fatalf("overwrite role: %v", err)
	}

	role, err := store.GetRole(context.Background(), 501)
	if err != nil {
		t.Fatalf("get role: %v", err)
	}
	if role != storage.RoleAdmin {
		t.Fatalf("role = %q, want %q", role, storage.RoleAdmin)
	}

	roles, err := store.ListRoles(context.Background())
	if err != nil {
		t.Fatalf("list roles: %v", err)
	}
	if len(roles) != 1 || roles[501] != storage.RoleAdmin {
		t.Fatalf("roles = %v, want one admin assignment for 501", roles)
	}
}

func TestSetRoleRejectsUnknownRole(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if err := store.SetRole(context.Background(), 502, storage.Role("owner")); err == nil {
		t.Fatal("expected invalid role error")
	}
}
