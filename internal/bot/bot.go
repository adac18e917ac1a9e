// Package bot is the Telegram transport: it long-polls for updates, decodes
// callbacks into typed actions at the boundary, and routes commands through
// the access gate to the underlying services.
package bot

import (
	"context"
	"log"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/louisbranch/gather.space/internal/access"
	"github.com/louisbranch/gather.space/internal/admin"
	"github.com/louisbranch/gather.space/internal/content"
	"github.com/louisbranch/gather.space/internal/event"
	platformerrors "github.com/louisbranch/gather.space/internal/platform/errors"
	"github.com/louisbranch/gather.space/internal/profile"
	"github.com/louisbranch/gather.space/internal/storage"
	"github.com/louisbranch/gather.space/internal/telemetry"
)

// Bot wires the Telegram client to the services.
type Bot struct {
	api       *tgbotapi.BotAPI
	messenger *Messenger
	engine    *event.Service
	profiles  *profile.Service
	content   *content.Service
	admin     *admin.Service
	gate      *access.Gate
	telemetry *telemetry.Emitter
	logger    *log.Logger
	states    *stateStore
	clock     func() time.Time
}

// Deps bundles everything the transport needs.
type Deps struct {
	API       *tgbotapi.BotAPI
	Engine    *event.Service
	Profiles  *profile.Service
	Content   *content.Service
	Admin     *admin.Service
	Gate      *access.Gate
	Telemetry *telemetry.Emitter
	Logger    *log.Logger
}

// New creates the transport.
func New(deps Deps) *Bot {
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Bot{
		api:       deps.API,
		messenger: NewMessenger(deps.API, logger),
		engine:    deps.Engine,
		profiles:  deps.Profiles,
		content:   deps.Content,
		admin:     deps.Admin,
		gate:      deps.Gate,
		telemetry: deps.Telemetry,
		logger:    logger,
		states:    newStateStore(),
		clock:     time.Now,
	}
}

// Messenger exposes the delivery path so broadcasts and scheduled reminders
// share it.
func (b *Bot) Messenger() *Messenger {
	return b.messenger
}

// SetAdmin attaches the admin service. The admin service broadcasts through
// the transport's messenger, so it is built after the transport.
func (b *Bot) SetAdmin(adminSvc *admin.Service) {
	b.admin = adminSvc
}

// Run long-polls for updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	update := tgbotapi.NewUpdate(0)
	update.Timeout = 30
	updates := b.api.GetUpdatesChan(update)

	b.logger.Printf("bot %s polling for updates", b.api.Self.UserName)
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, upd)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	chatID := msg.Chat.ID
	userID := msg.From.ID

	fullName := msg.From.FirstName
	if msg.From.LastName != "" {
		fullName += " " + msg.From.LastName
	}
	if _, err := b.profiles.EnsureUser(ctx, userID, msg.From.UserName, fullName); err != nil {
		b.logger.Printf("ensure user %d: %v", userID, err)
	}

	if state := b.states.get(chatID); state.kind != stateNone && !msg.IsCommand() {
		b.handleStateInput(ctx, chatID, userID, state, msg.Text)
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, chatID, userID, msg)
		return
	}
	b.handleMenuText(ctx, chatID, userID, msg.Text)
}

func (b *Bot) handleCommand(ctx context.Context, chatID, userID int64, msg *tgbotapi.Message) {
	b.states.clear(chatID)

	switch msg.Command() {
	case "start":
		b.showWelcome(ctx, chatID, userID, msg.From.FirstName)
	case "events":
		b.showEvents(ctx, chatID)
	case "my":
		b.showMyRegistrations(ctx, chatID, userID)
	case "profile":
		b.showProfile(ctx, chatID, userID)
	case "email":
		b.startEmailInput(ctx, chatID, userID, msg.CommandArguments())
	case "name":
		b.startNameInput(ctx, chatID, userID, msg.CommandArguments())
	case "help":
		b.showSection(ctx, chatID, "help")
	case "admin":
		b.guarded(ctx, chatID, userID, storage.RoleAdmin, func() {
			b.showAdminPanel(ctx, chatID)
		})
	case "add_event":
		b.guarded(ctx, chatID, userID, storage.RoleAdmin, func() {
			b.startAddEvent(ctx, chatID)
		})
	case "update_event":
		b.guarded(ctx, chatID, userID, storage.RoleAdmin, func() {
			b.startUpdateEvent(ctx, chatID, msg.CommandArguments())
		})
	case "delete_event":
		b.guarded(ctx, chatID, userID, storage.RoleAdmin, func() {
			b.deleteEvent(ctx, chatID, userID, msg.CommandArguments())
		})
	case "broadcast":
		b.guarded(ctx, chatID, userID, storage.RoleAdmin, func() {
			b.startBroadcast(ctx, chatID, msg.CommandArguments())
		})
	case "remind":
		b.guarded(ctx, chatID, userID, storage.RoleModerator, func() {
			b.remind(ctx, chatID, userID, msg.CommandArguments())
		})
	case "stats":
		b.guarded(ctx, chatID, userID, storage.RoleModerator, func() {
			b.showStats(ctx, chatID)
		})
	case "export":
		b.guarded(ctx, chatID, userID, storage.RoleAdmin, func() {
			b.exportEvent(ctx, chatID, msg.CommandArguments())
		})
	case "export_users":
		b.guarded(ctx, chatID, userID, storage.RoleAdmin, func() {
			b.exportUsers(ctx, chatID)
		})
	case "set_role":
		b.guarded(ctx, chatID, userID, storage.RoleAdmin, func() {
			b.setRole(ctx, chatID, userID, msg.CommandArguments())
		})
	case "set_section":
		b.guarded(ctx, chatID, userID, storage.RoleAdmin, func() {
			b.startSetSection(ctx, chatID, msg.CommandArguments())
		})
	case "del_section":
		b.guarded(ctx, chatID, userID, storage.RoleAdmin, func() {
			b.deleteSection(ctx, chatID, msg.CommandArguments())
		})
	case "set_menu":
		b.guarded(ctx, chatID, userID, storage.RoleAdmin, func() {
			b.setMenuItem(ctx, chatID, msg.CommandArguments())
		})
	case "del_menu":
		b.guarded(ctx, chatID, userID, storage.RoleAdmin, func() {
			b.deleteMenuItem(ctx, chatID, msg.CommandArguments())
		})
	case "set_template":
		b.guarded(ctx, chatID, userID, storage.RoleAdmin, func() {
			b.startSetTemplate(ctx, chatID, msg.CommandArguments())
		})
	case "set_node":
		b.guarded(ctx, chatID, userID, storage.RoleAdmin, func() {
			b.startSetNode(ctx, chatID, msg.CommandArguments())
		})
	case "del_node":
		b.guarded(ctx, chatID, userID, storage.RoleAdmin, func() {
			b.deleteNode(ctx, chatID, msg.CommandArguments())
		})
	default:
		b.send(ctx, chatID, "Unknown command. Try /events, /my or /help.")
	}
}

// guarded runs action only when the identity satisfies the required role.
// The role check composes through the gate middleware, handlers never
// inspect roles themselves.
func (b *Bot) guarded(ctx context.Context, chatID, userID int64, required storage.Role, action func()) {
	handler := b.gate.Require(required, func(ctx context.Context, userID int64) error {
		action()
		return nil
	})
	if err := handler(ctx, userID); err != nil {
		b.replyError(ctx, chatID, err)
	}
}

// send delivers text and logs delivery failures.
func (b *Bot) send(ctx context.Context, chatID int64, text string) {
	if err := b.messenger.SendText(ctx, chatID, text); err != nil {
		b.logger.Printf("send to %d: %v", chatID, err)
	}
}

// replyError renders err for the user. Domain errors carry their catalog
// message; anything else is logged and answered with the generic retry text.
func (b *Bot) replyError(ctx context.Context, chatID int64, err error) {
	if platformerrors.CodeOf(err) == platformerrors.CodeUnknown {
		b.logger.Printf("internal error for chat %d: %v", chatID, err)
	}
	b.send(ctx, chatID, platformerrors.UserMessage(err))
}
