package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/louisbranch/gather.space/internal/event"
	"github.com/louisbranch/gather.space/internal/telemetry"
)

func (b *Bot) showAdminPanel(ctx context.Context, chatID int64) {
	events, err := b.engine.ListActive(ctx, b.clock())
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	text := "Organizer panel. Pick an event or an action.\n\n" +
		"Events: /add_event, /update_event, /delete_event, /broadcast, /export_users, /set_role\n" +
		"Content: /set_section, /del_section, /set_menu, /del_menu, /set_template, /set_node, /del_node"
	if err := b.messenger.sendMarkup(ctx, chatID, text, adminPanelKeyboard(events)); err != nil {
		b.logger.Printf("send admin panel to %d: %v", chatID, err)
	}
}

func (b *Bot) showAdminEvent(ctx context.Context, chatID int64, eventID string) {
	ev, err := b.engine.Get(ctx, eventID)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	regs, err := b.engine.ListRegistrations(ctx, eventID)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s — %s\nID: %s\n\n", ev.Name, ev.StartsAt.Format(event.ScheduleLayout), ev.ID)
	active := 0
	for _, reg := range regs {
		if !reg.Status.Active() {
			continue
		}
		active++
		name := strconv.FormatInt(reg.UserID, 10)
		if user, err := b.profiles.Get(ctx, reg.UserID); err == nil && user.FullName != "" {
			name = user.FullName
		}
		fmt.Fprintf(&sb, "- %s (%s)\n", name, reg.Status)
	}
	if active == 0 {
		sb.WriteString("No registrations yet.\n")
	}
	fmt.Fprintf(&sb, "\nSeats: %d/%d", active, ev.Capacity)

	if err := b.messenger.sendMarkup(ctx, chatID, sb.String(), adminEventKeyboard(eventID)); err != nil {
		b.logger.Printf("send admin event to %d: %v", chatID, err)
	}
}

func (b *Bot) showStats(ctx context.Context, chatID int64) {
	stats, err := b.admin.Stats(ctx)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	if len(stats) == 0 {
		b.send(ctx, chatID, "No active events.")
		return
	}
	var sb strings.Builder
	for _, entry := range stats {
		fmt.Fprintf(&sb, "%s — %s\n  total %d, confirmed %d, unconfirmed %d\n",
			entry.Event.Name,
			entry.Event.StartsAt.Format(event.ScheduleLayout),
			entry.Total,
			entry.Confirmed,
			entry.Unconfirmed,
		)
	}
	b.send(ctx, chatID, sb.String())
}

func (b *Bot) startAddEvent(ctx context.Context, chatID int64) {
	b.states.set(chatID, chatState{kind: stateAddEventName})
	b.send(ctx, chatID, "New event. Send the event name:")
}

func (b *Bot) continueAddEvent(ctx context.Context, chatID, userID int64, state chatState, text string) {
	switch state.kind {
	case stateAddEventName:
		state.draftName = text
		state.kind = stateAddEventSchedule
		b.states.set(chatID, state)
		b.send(ctx, chatID, "Send the date and time as YYYY-MM-DD HH:MM:")
	case stateAddEventSchedule:
		state.draftSchedule = text
		state.kind = stateAddEventDescription
		b.states.set(chatID, state)
		b.send(ctx, chatID, "Send a description (or a dash for none):")
	case stateAddEventDescription:
		if strings.TrimSpace(text) != "-" {
			state.draftDescription = text
		}
		state.kind = stateAddEventSeats
		b.states.set(chatID, state)
		b.send(ctx, chatID, "Send the number of seats:")
	case stateAddEventSeats:
		seats, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil {
			b.send(ctx, chatID, "The number of seats must be a positive number.")
			return
		}
		ev, err := b.engine.Add(ctx, state.draftName, state.draftSchedule, state.draftDescription, seats)
		if err != nil {
			// Keep the wizard alive so a typo in one field does not restart it.
			b.replyError(ctx, chatID, err)
			return
		}
		b.states.clear(chatID)
		b.telemetry.Emit(ctx, telemetry.EventEventCreated, userID, map[string]string{"event_id": ev.ID})
		b.send(ctx, chatID, fmt.Sprintf("Event created: %s on %s (%d seats).\nID: %s",
			ev.Name, ev.StartsAt.Format(event.ScheduleLayout), ev.Capacity, ev.ID))
	}
}

// startUpdateEvent expects "<event-id> <field>" and asks for the new value,
// or "<event-id> <field> <value>" to apply immediately.
func (b *Bot) startUpdateEvent(ctx context.Context, chatID int64, args string) {
	parts := strings.Fields(args)
	if len(parts) < 2 {
		b.send(ctx, chatID, "Usage: /update_event <event-id> <name|starts_at|description|max_seats> [value]")
		return
	}
	eventID, field := parts[0], parts[1]
	if len(parts) > 2 {
		b.applyUpdateEvent(ctx, chatID, eventID, field, strings.Join(parts[2:], " "))
		return
	}
	b.states.set(chatID, chatState{kind: stateAwaitUpdateValue, updateEventID: eventID, updateField: field})
	b.send(ctx, chatID, fmt.Sprintf("Send the new value for %s:", field))
}

func (b *Bot) finishUpdateEvent(ctx context.Context, chatID, userID int64, state chatState, text string) {
	b.applyUpdateEvent(ctx, chatID, state.updateEventID, state.updateField, text)
}

func (b *Bot) applyUpdateEvent(ctx context.Context, chatID int64, eventID, field, value string) {
	ev, err := b.engine.UpdateField(ctx, eventID, field, value)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.states.clear(chatID)
	b.send(ctx, chatID, fmt.Sprintf("Updated. %s — %s, %d seats.",
		ev.Name, ev.StartsAt.Format(event.ScheduleLayout), ev.Capacity))
}

func (b *Bot) deleteEvent(ctx context.Context, chatID, userID int64, args string) {
	eventID := strings.TrimSpace(args)
	if eventID == "" {
		b.send(ctx, chatID, "Usage: /delete_event <event-id>")
		return
	}
	if err := b.engine.Delete(ctx, eventID); err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.telemetry.Emit(ctx, telemetry.EventEventDeleted, userID, map[string]string{"event_id": eventID})
	b.send(ctx, chatID, "Event deleted along with its registrations.")
}

// startBroadcast takes an optional event id argument to scope the audience.
func (b *Bot) startBroadcast(ctx context.Context, chatID int64, args string) {
	b.states.set(chatID, chatState{kind: stateAwaitBroadcast, broadcastEventID: strings.TrimSpace(args)})
	if strings.TrimSpace(args) == "" {
		b.send(ctx, chatID, "Send the message to broadcast to everyone:")
	} else {
		b.send(ctx, chatID, "Send the message for the event's registrants:")
	}
}

func (b *Bot) finishBroadcast(ctx context.Context, chatID, userID int64, state chatState, text string) {
	var sent, failed int
	var err error
	if state.broadcastEventID == "" {
		sent, failed, err = b.admin.BroadcastAll(ctx, userID, text)
	} else {
		sent, failed, err = b.admin.BroadcastEvent(ctx, userID, state.broadcastEventID, text)
	}
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.states.clear(chatID)
	b.send(ctx, chatID, fmt.Sprintf("Broadcast done: %d delivered, %d failed.", sent, failed))
}

func (b *Bot) remind(ctx context.Context, chatID, userID int64, args string) {
	eventID := strings.TrimSpace(args)
	if eventID == "" {
		b.send(ctx, chatID, "Usage: /remind <event-id>")
		return
	}
	sent, err := b.admin.RemindUnconfirmed(ctx, userID, eventID)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.send(ctx, chatID, fmt.Sprintf("Reminder sent to %d unconfirmed registrant(s).", sent))
}

func (b *Bot) exportEvent(ctx context.Context, chatID int64, args string) {
	eventID := strings.TrimSpace(args)
	if eventID == "" {
		b.send(ctx, chatID, "Usage: /export <event-id>")
		return
	}
	data, err := b.admin.ExportRegistrations(ctx, eventID)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	name := fmt.Sprintf("registrations-%s.csv", eventID)
	if err := b.messenger.sendDocument(ctx, chatID, name, data); err != nil {
		b.logger.Printf("send export to %d: %v", chatID, err)
	}
}

func (b *Bot) exportUsers(ctx context.Context, chatID int64) {
	data, err := b.admin.ExportUsers(ctx)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	if err := b.messenger.sendDocument(ctx, chatID, "users.csv", data); err != nil {
		b.logger.Printf("send export to %d: %v", chatID, err)
	}
}

// setRole expects "<user-id> <role>".
func (b *Bot) setRole(ctx context.Context, chatID, actorID int64, args string) {
	parts := strings.Fields(args)
	if len(parts) != 2 {
		b.send(ctx, chatID, "Usage: /set_role <user-id> <user|moderator|admin>")
		return
	}
	targetID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		b.send(ctx, chatID, "The user id must be a number.")
		return
	}
	if err := b.profiles.AssignRole(ctx, targetID, parts[1]); err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.telemetry.Emit(ctx, telemetry.EventRoleElevated, actorID, map[string]string{
		"target": parts[0],
		"role":   parts[1],
	})
	b.send(ctx, chatID, fmt.Sprintf("Role of %d set to %s.", targetID, parts[1]))
}
