package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/louisbranch/gather.space/internal/event"
	platformerrors "github.com/louisbranch/gather.space/internal/platform/errors"
	"github.com/louisbranch/gather.space/internal/storage"
	"github.com/louisbranch/gather.space/internal/telemetry"
)

func (b *Bot) showWelcome(ctx context.Context, chatID, userID int64, firstName string) {
	text, err := b.content.RenderTemplate(ctx, "welcome", map[string]string{"first_name": firstName})
	if err != nil {
		b.logger.Printf("render welcome: %v", err)
		text = "Welcome! Pick an option from the menu below."
	}

	items, err := b.content.MenuItems(ctx)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	nodes, err := b.content.MainMenuNodes(ctx)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	if err := b.messenger.sendMarkup(ctx, chatID, text, mainMenuKeyboard(items, nodes)); err != nil {
		b.logger.Printf("send welcome to %d: %v", chatID, err)
		return
	}

	user, err := b.profiles.Get(ctx, userID)
	if err == nil && !user.Consent {
		b.askConsent(ctx, chatID)
	}
}

func (b *Bot) askConsent(ctx context.Context, chatID int64) {
	text, err := b.content.RenderTemplate(ctx, "consent_request", nil)
	if err != nil {
		text = "We store your name and contact details to manage registrations. Do you agree?"
	}
	if err := b.messenger.sendMarkup(ctx, chatID, text, consentKeyboard()); err != nil {
		b.logger.Printf("send consent request to %d: %v", chatID, err)
	}
}

func (b *Bot) showEvents(ctx context.Context, chatID int64) {
	events, err := b.engine.ListActive(ctx, b.clock())
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	if len(events) == 0 {
		b.send(ctx, chatID, "No upcoming events right now. Check back later!")
		return
	}
	if err := b.messenger.sendMarkup(ctx, chatID, "Upcoming events:", eventListKeyboard(events)); err != nil {
		b.logger.Printf("send events to %d: %v", chatID, err)
	}
}

func (b *Bot) showMyRegistrations(ctx context.Context, chatID, userID int64) {
	regs, err := b.engine.ListUserRegistrations(ctx, userID, true)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	if len(regs) == 0 {
		b.send(ctx, chatID, "You have no active registrations. Use /events to find one.")
		return
	}
	for _, reg := range regs {
		ev, err := b.engine.Get(ctx, reg.EventID)
		if err != nil {
			b.logger.Printf("load event %s: %v", reg.EventID, err)
			continue
		}
		text := fmt.Sprintf("%s\n%s\nStatus: %s", ev.Name, ev.StartsAt.Format(event.ScheduleLayout), reg.Status)
		if err := b.messenger.sendMarkup(ctx, chatID, text, eventDetailKeyboard(ev.ID, reg, true)); err != nil {
			b.logger.Printf("send registration to %d: %v", chatID, err)
		}
	}
}

func (b *Bot) showProfile(ctx context.Context, chatID, userID int64) {
	user, err := b.profiles.Get(ctx, userID)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Name: %s\n", valueOrDash(user.FullName))
	fmt.Fprintf(&sb, "Email: %s\n", valueOrDash(user.Email))
	consent := "not given"
	if user.Consent {
		consent = "given"
	}
	fmt.Fprintf(&sb, "Data consent: %s\n\n", consent)
	sb.WriteString("Use /email to change your email and /name to change your name.")
	b.send(ctx, chatID, sb.String())
}

func valueOrDash(value string) string {
	if value == "" {
		return "—"
	}
	return value
}

func (b *Bot) startEmailInput(ctx context.Context, chatID, userID int64, arg string) {
	if arg != "" {
		b.finishEmailInput(ctx, chatID, userID, arg)
		return
	}
	b.states.set(chatID, chatState{kind: stateAwaitEmail})
	b.send(ctx, chatID, "Send your email address:")
}

func (b *Bot) finishEmailInput(ctx context.Context, chatID, userID int64, email string) {
	if err := b.profiles.UpdateEmail(ctx, userID, email); err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.states.clear(chatID)
	b.send(ctx, chatID, "Email saved.")
}

func (b *Bot) startNameInput(ctx context.Context, chatID, userID int64, arg string) {
	if arg != "" {
		b.finishNameInput(ctx, chatID, userID, arg)
		return
	}
	b.states.set(chatID, chatState{kind: stateAwaitFullName})
	b.send(ctx, chatID, "Send your full name:")
}

func (b *Bot) finishNameInput(ctx context.Context, chatID, userID int64, name string) {
	if err := b.profiles.UpdateFullName(ctx, userID, name); err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.states.clear(chatID)
	b.send(ctx, chatID, "Name saved.")
}

func (b *Bot) showSection(ctx context.Context, chatID int64, key string) {
	section, err := b.content.Section(ctx, key)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.send(ctx, chatID, section.Body)
}

// handleMenuText maps a reply keyboard press to its flow. The keyboard is
// editable content, matching runs on the stored titles.
func (b *Bot) handleMenuText(ctx context.Context, chatID, userID int64, text string) {
	items, err := b.content.MenuItems(ctx)
	if err == nil {
		for _, item := range items {
			if item.Title != text {
				continue
			}
			switch item.Key {
			case "events":
				b.showEvents(ctx, chatID)
			case "registrations":
				b.showMyRegistrations(ctx, chatID, userID)
			case "profile":
				b.showProfile(ctx, chatID, userID)
			default:
				b.showSection(ctx, chatID, item.Key)
			}
			return
		}
	}

	nodes, err := b.content.MainMenuNodes(ctx)
	if err == nil {
		for _, node := range nodes {
			if node.Title == text {
				b.showNode(ctx, chatID, node.ID)
				return
			}
		}
	}

	b.send(ctx, chatID, "I did not understand that. Try /events, /my or /help.")
}

func (b *Bot) showNode(ctx context.Context, chatID, nodeID int64) {
	node, err := b.content.Node(ctx, nodeID)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	children, err := b.content.Children(ctx, &node.ID)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}

	text := node.Content
	if text == "" {
		text = node.Title
	}
	if node.URL != "" {
		text += "\n" + node.URL
	}
	if len(children) == 0 {
		b.send(ctx, chatID, text)
		return
	}
	if err := b.messenger.sendMarkup(ctx, chatID, text, nodeKeyboard(children)); err != nil {
		b.logger.Printf("send node to %d: %v", chatID, err)
	}
}

func (b *Bot) handleStateInput(ctx context.Context, chatID, userID int64, state chatState, text string) {
	switch state.kind {
	case stateAwaitEmail:
		b.finishEmailInput(ctx, chatID, userID, text)
	case stateAwaitFullName:
		b.finishNameInput(ctx, chatID, userID, text)
	case stateAwaitBroadcast:
		b.finishBroadcast(ctx, chatID, userID, state, text)
	case stateAwaitUpdateValue:
		b.finishUpdateEvent(ctx, chatID, userID, state, text)
	case stateAddEventName, stateAddEventSchedule, stateAddEventDescription, stateAddEventSeats:
		b.continueAddEvent(ctx, chatID, userID, state, text)
	case stateAwaitSectionBody:
		b.finishSetSection(ctx, chatID, state, text)
	case stateAwaitTemplateBody:
		b.finishSetTemplate(ctx, chatID, state, text)
	case stateAwaitNodeContent:
		b.finishSetNode(ctx, chatID, state, text)
	default:
		b.states.clear(chatID)
	}
}

func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil || callback.From == nil {
		return
	}
	chatID := callback.Message.Chat.ID
	userID := callback.From.ID

	action, err := DecodeAction(callback.Data)
	if err != nil {
		b.logger.Printf("decode callback from %d: %v", userID, err)
		b.messenger.answerCallback(callback.ID, "")
		return
	}

	switch action.Kind {
	case ActionShowEvent:
		b.showEventDetail(ctx, chatID, userID, callback.Message.MessageID, action.EventID)
	case ActionRegister:
		b.register(ctx, chatID, userID, action.EventID)
	case ActionConfirm:
		b.confirm(ctx, chatID, userID, action.EventID)
	case ActionCancel:
		b.cancel(ctx, chatID, userID, action.EventID)
	case ActionShowNode:
		b.showNode(ctx, chatID, action.NodeID)
	case ActionConsentGrant:
		b.setConsent(ctx, chatID, userID, true)
	case ActionConsentDeny:
		b.setConsent(ctx, chatID, userID, false)
	case ActionAdminEvent:
		b.guarded(ctx, chatID, userID, storage.RoleModerator, func() {
			b.showAdminEvent(ctx, chatID, action.EventID)
		})
	case ActionAdminRemind:
		b.guarded(ctx, chatID, userID, storage.RoleModerator, func() {
			b.remind(ctx, chatID, userID, action.EventID)
		})
	case ActionAdminExport:
		b.guarded(ctx, chatID, userID, storage.RoleAdmin, func() {
			b.exportEvent(ctx, chatID, action.EventID)
		})
	case ActionAdminStats:
		b.guarded(ctx, chatID, userID, storage.RoleModerator, func() {
			b.showStats(ctx, chatID)
		})
	}
	b.messenger.answerCallback(callback.ID, "")
}

func (b *Bot) showEventDetail(ctx context.Context, chatID, userID int64, messageID int, eventID string) {
	ev, err := b.engine.Get(ctx, eventID)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	occupancy, err := b.engine.Occupancy(ctx, eventID)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n%s\n", ev.Name, ev.StartsAt.Format(event.ScheduleLayout))
	if ev.Description != "" {
		sb.WriteString(ev.Description + "\n")
	}
	fmt.Fprintf(&sb, "Seats: %d/%d", occupancy, ev.Capacity)

	reg, regErr := b.engine.Registration(ctx, userID, eventID)
	hasSeat := regErr == nil && reg.Status.Active()
	if hasSeat {
		fmt.Fprintf(&sb, "\n\nYour status: %s", reg.Status)
	}

	keyboard := eventDetailKeyboard(eventID, reg, hasSeat)
	if err := b.messenger.editText(ctx, chatID, messageID, sb.String(), &keyboard); err != nil {
		b.logger.Printf("edit event detail in %d: %v", chatID, err)
	}
}

func (b *Bot) register(ctx context.Context, chatID, userID int64, eventID string) {
	user, err := b.profiles.Get(ctx, userID)
	if err == nil && !user.Consent {
		b.replyError(ctx, chatID, platformerrors.New(platformerrors.CodeProfileConsentNeeded, "registration requires consent"))
		b.askConsent(ctx, chatID)
		return
	}

	if _, err := b.engine.Register(ctx, userID, eventID); err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.telemetry.Emit(ctx, telemetry.EventRegistrationCreated, userID, map[string]string{"event_id": eventID})

	ev, err := b.engine.Get(ctx, eventID)
	if err != nil {
		b.send(ctx, chatID, "Seat reserved!")
		return
	}
	text, err := b.content.RenderTemplate(ctx, "registration_created", map[string]string{
		"event_name": ev.Name,
		"event_date": ev.StartsAt.Format(event.ScheduleLayout),
	})
	if err != nil {
		text = "Seat reserved for " + ev.Name + "."
	}
	b.send(ctx, chatID, text)
}

func (b *Bot) confirm(ctx context.Context, chatID, userID int64, eventID string) {
	if _, err := b.engine.ConfirmOrRegister(ctx, userID, eventID); err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.telemetry.Emit(ctx, telemetry.EventRegistrationConfirmed, userID, map[string]string{"event_id": eventID})

	ev, err := b.engine.Get(ctx, eventID)
	if err != nil {
		b.send(ctx, chatID, "Registration confirmed!")
		return
	}
	text, err := b.content.RenderTemplate(ctx, "registration_confirmed", map[string]string{
		"event_name": ev.Name,
		"event_date": ev.StartsAt.Format(event.ScheduleLayout),
	})
	if err != nil {
		text = "You are confirmed for " + ev.Name + "."
	}
	b.send(ctx, chatID, text)
}

func (b *Bot) cancel(ctx context.Context, chatID, userID int64, eventID string) {
	if _, err := b.engine.Cancel(ctx, userID, eventID); err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.telemetry.Emit(ctx, telemetry.EventRegistrationCancelled, userID, map[string]string{"event_id": eventID})

	text := "Registration cancelled."
	if ev, err := b.engine.Get(ctx, eventID); err == nil {
		if rendered, err := b.content.RenderTemplate(ctx, "registration_cancelled", map[string]string{
			"event_name": ev.Name,
		}); err == nil {
			text = rendered
		}
	}
	b.send(ctx, chatID, text)
}

func (b *Bot) setConsent(ctx context.Context, chatID, userID int64, granted bool) {
	if err := b.profiles.SetConsent(ctx, userID, granted); err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	if granted {
		b.send(ctx, chatID, "Thank you! You can now register for events.")
	} else {
		b.send(ctx, chatID, "Understood. You can browse events but registering requires consent.")
	}
}
