// Package storage defines persistence contracts for registration service state.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
	ErrAlreadyExists = errors.New("record already exists")
)

// RegistrationStatus is the lifecycle state of a registration row.
type RegistrationStatus string

const (
	// StatusRegistered marks a seat taken but not yet confirmed.
	StatusRegistered RegistrationStatus = "registered"
	// StatusConfirmed marks a seat the user explicitly confirmed.
	StatusConfirmed RegistrationStatus = "confirmed"
	// StatusCancelled marks a released seat. The row stays for history.
	StatusCancelled RegistrationStatus = "cancelled"
)

// Active reports whether the status counts against event capacity.
func (s RegistrationStatus) Active() bool {
	return s == StatusRegistered || s == StatusConfirmed
}

// Role is a totally ordered privilege level gating administrative operations.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Event stores one seat-limited event record.
type Event struct {
	ID          string
	Name        string
	StartsAt    time.Time
	Description string
	Capacity    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Registration stores one user's relationship to an event. At most one row
// exists per (user, event) pair; status flips in place on re-registration.
type Registration struct {
	ID        int64
	UserID    int64
	EventID   string
	Status    RegistrationStatus
	CreatedAt time.Time
}

// User stores one profile record keyed by the chat identity.
type User struct {
	ID        int64
	Username  string
	FullName  string
	Email     string
	Consent   bool
	ConsentAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ContentSection stores one static informational section.
type ContentSection struct {
	Key   string
	Title string
	Body  string
}

// MenuItem stores one main menu entry.
type MenuItem struct {
	Key      string
	Title    string
	Position int
}

// Template stores one reusable message template.
type Template struct {
	Key  string
	Body string
}

// Node stores one entry of the navigable content tree.
type Node struct {
	ID         int64
	ParentID   *int64
	Key        string
	Title      string
	Content    string
	URL        string
	OrderIndex int
	IsMainMenu bool
}

// TelemetryEvent stores one operational event for audit and diagnostics.
type TelemetryEvent struct {
	Name       string
	Actor      int64
	Attributes map[string]string
	Timestamp  time.Time
}

// EventStore persists event records.
type EventStore interface {
	CreateEvent(ctx context.Context, event Event) error
	GetEvent(ctx context.Context, eventID string) (Event, error)
	UpdateEvent(ctx context.Context, event Event) error
	DeleteEvent(ctx context.Context, eventID string) error
	ListEvents(ctx context.Context) ([]Event, error)
}

// RegistrationStore persists registration records.
type RegistrationStore interface {
	GetRegistration(ctx context.Context, userID int64, eventID string) (Registration, error)
	CreateRegistration(ctx context.Context, reg Registration) (int64, error)
	UpdateRegistrationStatus(ctx context.Context, regID int64, status RegistrationStatus) error
	ListRegistrationsByEvent(ctx context.Context, eventID string) ([]Registration, error)
	ListRegistrationsByUser(ctx context.Context, userID int64) ([]Registration, error)
	DeleteRegistrationsByEvent(ctx context.Context, eventID string) error
}

// UserStore persists profile records.
type UserStore interface {
	UpsertUser(ctx context.Context, userID int64, username, fullName string) (User, error)
	GetUser(ctx context.Context, userID int64) (User, error)
	SetUserEmail(ctx context.Context, userID int64, email string) error
	SetUserFullName(ctx context.Context, userID int64, fullName string) error
	SetUserConsent(ctx context.Context, userID int64, consent bool, at time.Time) error
	ListUsers(ctx context.Context) ([]User, error)
}

// RoleStore persists role assignments. Absence of a row means RoleUser.
type RoleStore interface {
	GetRole(ctx context.Context, userID int64) (Role, error)
	SetRole(ctx context.Context, userID int64, role Role) error
	ListRoles(ctx context.Context) (map[int64]Role, error)
}

// ContentStore persists sections, menu items and message templates.
type ContentStore interface {
	ListSections(ctx context.Context) ([]ContentSection, error)
	GetSection(ctx context.Context, key string) (ContentSection, error)
	UpsertSection(ctx context.Context, section ContentSection) error
	DeleteSection(ctx context.Context, key string) error

	ListMenuItems(ctx context.Context) ([]MenuItem, error)
	UpsertMenuItem(ctx context.Context, item MenuItem) error
	DeleteMenuItem(ctx context.Context, key string) error

	ListTemplates(ctx context.Context) ([]Template, error)
	GetTemplate(ctx context.Context, key string) (Template, error)
	UpsertTemplate(ctx context.Context, tmpl Template) error
}

// NodeStore persists the navigable content tree.
type NodeStore interface {
	GetNode(ctx context.Context, nodeID int64) (Node, error)
	GetNodeByKey(ctx context.Context, key string) (Node, error)
	ListChildren(ctx context.Context, parentID *int64) ([]Node, error)
	ListNodes(ctx context.Context) ([]Node, error)
	ListMainMenuNodes(ctx context.Context) ([]Node, error)
	UpsertNode(ctx context.Context, node Node) (int64, error)
	DeleteNode(ctx context.Context, nodeID int64) error
}

// TelemetryStore persists operational telemetry events.
type TelemetryStore interface {
	AppendTelemetryEvent(ctx context.Context, event TelemetryEvent) error
}
