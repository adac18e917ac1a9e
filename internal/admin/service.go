// Package admin implements organizer operations on top of the registration
// engine: attendance stats, broadcasts, confirmation reminders, and CSV
// exports.
package admin

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/louisbranch/gather.space/internal/content"
	"github.com/louisbranch/gather.space/internal/event"
	"github.com/louisbranch/gather.space/internal/storage"
	"github.com/louisbranch/gather.space/internal/telemetry"
)

// Messenger delivers messages to one chat. The transport implements this;
// tests substitute a fake.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string) error
	// SendConfirmPrompt delivers text with a confirm button for the event,
	// so the recipient can confirm their seat from the message itself.
	SendConfirmPrompt(ctx context.Context, chatID int64, text, eventID string) error
}

// EventStats summarizes attendance for one event.
type EventStats struct {
	Event       storage.Event
	Total       int
	Confirmed   int
	Unconfirmed int
}

// Service bundles the organizer operations.
type Service struct {
	engine    *event.Service
	users     storage.UserStore
	content   *content.Service
	telemetry *telemetry.Emitter
	messenger Messenger
	logger    *log.Logger
	clock     func() time.Time
}

// NewService creates the admin service.
func NewService(engine *event.Service, users storage.UserStore, contentSvc *content.Service, emitter *telemetry.Emitter, messenger Messenger, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		engine:    engine,
		users:     users,
		content:   contentSvc,
		telemetry: emitter,
		messenger: messenger,
		logger:    logger,
		clock:     time.Now,
	}
}

// WithClock overrides the service clock. Intended for tests.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

// Stats returns attendance numbers for every active event.
func (s *Service) Stats(ctx context.Context) ([]EventStats, error) {
	events, err := s.engine.ListActive(ctx, s.clock())
	if err != nil {
		return nil, err
	}
	stats := make([]EventStats, 0, len(events))
	for _, ev := range events {
		regs, err := s.engine.ListRegistrations(ctx, ev.ID)
		if err != nil {
			return nil, err
		}
		entry := EventStats{Event: ev}
		for _, reg := range regs {
			if !reg.Status.Active() {
				continue
			}
			entry.Total++
			if reg.Status == storage.StatusConfirmed {
				entry.Confirmed++
			} else {
				entry.Unconfirmed++
			}
		}
		stats = append(stats, entry)
	}
	return stats, nil
}

// BroadcastAll sends text to every known user. Individual delivery failures
// are logged and skipped; one blocked chat must not stop the rest.
func (s *Service) BroadcastAll(ctx context.Context, actor int64, text string) (sent, failed int, err error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list users: %w", err)
	}
	for _, user := range users {
		if err := s.messenger.SendText(ctx, user.ID, text); err != nil {
			s.logger.Printf("broadcast to %d: %v", user.ID, err)
			failed++
			continue
		}
		sent++
	}
	s.telemetry.Emit(ctx, telemetry.EventBroadcastSent, actor, map[string]string{
		"scope":  "all",
		"sent":   strconv.Itoa(sent),
		"failed": strconv.Itoa(failed),
	})
	return sent, failed, nil
}

// BroadcastEvent sends text to every active registrant of one event.
func (s *Service) BroadcastEvent(ctx context.Context, actor int64, eventID, text string) (sent, failed int, err error) {
	if _, err := s.engine.Get(ctx, eventID); err != nil {
		return 0, 0, err
	}
	regs, err := s.engine.ListRegistrations(ctx, eventID)
	if err != nil {
		return 0, 0, err
	}
	for _, reg := range regs {
		if !reg.Status.Active() {
			continue
		}
		if err := s.messenger.SendText(ctx, reg.UserID, text); err != nil {
			s.logger.Printf("broadcast to %d: %v", reg.UserID, err)
			failed++
			continue
		}
		sent++
	}
	s.telemetry.Emit(ctx, telemetry.EventBroadcastSent, actor, map[string]string{
		"scope":    "event",
		"event_id": eventID,
		"sent":     strconv.Itoa(sent),
		"failed":   strconv.Itoa(failed),
	})
	return sent, failed, nil
}

// RemindUnconfirmed sends the reminder template to registrants who have not
// confirmed yet. The reminder carries a confirm button so one tap settles
// the seat.
func (s *Service) RemindUnconfirmed(ctx context.Context, actor int64, eventID string) (sent int, err error) {
	ev, err := s.engine.Get(ctx, eventID)
	if err != nil {
		return 0, err
	}
	text, err := s.content.RenderTemplate(ctx, "reminder", map[string]string{
		"event_name": ev.Name,
		"event_date": ev.StartsAt.Format(event.ScheduleLayout),
	})
	if err != nil {
		return 0, err
	}
	regs, err := s.engine.ListRegistrations(ctx, eventID)
	if err != nil {
		return 0, err
	}
	for _, reg := range regs {
		if reg.Status != storage.StatusRegistered {
			continue
		}
		if err := s.messenger.SendConfirmPrompt(ctx, reg.UserID, text, eventID); err != nil {
			s.logger.Printf("remind %d: %v", reg.UserID, err)
			continue
		}
		sent++
	}
	s.telemetry.Emit(ctx, telemetry.EventReminderSent, actor, map[string]string{
		"event_id": eventID,
		"sent":     strconv.Itoa(sent),
	})
	return sent, nil
}

// ExportRegistrations renders the full registration history of one event as
// CSV, cancelled rows included.
func (s *Service) ExportRegistrations(ctx context.Context, eventID string) ([]byte, error) {
	if _, err := s.engine.Get(ctx, eventID); err != nil {
		return nil, err
	}
	regs, err := s.engine.ListRegistrations(ctx, eventID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"registration_id", "user_id", "username", "full_name", "email", "status", "created_at"}); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, reg := range regs {
		var username, fullName, email string
		if user, err := s.users.GetUser(ctx, reg.UserID); err == nil {
			username, fullName, email = user.Username, user.FullName, user.Email
		}
		record := []string{
			strconv.FormatInt(reg.ID, 10),
			strconv.FormatInt(reg.UserID, 10),
			username,
			fullName,
			email,
			string(reg.Status),
			reg.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportUsers renders every known user as CSV.
func (s *Service) ExportUsers(ctx context.Context) ([]byte, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"user_id", "username", "full_name", "email", "consent", "consent_at"}); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, user := range users {
		consentAt := ""
		if user.ConsentAt != nil {
			consentAt = user.ConsentAt.UTC().Format(time.RFC3339)
		}
		record := []string{
			strconv.FormatInt(user.ID, 10),
			user.Username,
			user.FullName,
			user.Email,
			strconv.FormatBool(user.Consent),
			consentAt,
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
