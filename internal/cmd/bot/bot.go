// Package bot wires configuration, storage and services into the runnable
// Telegram bot command.
package bot

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/louisbranch/gather.space/internal/access"
	"github.com/louisbranch/gather.space/internal/admin"
	botransport "github.com/louisbranch/gather.space/internal/bot"
	"github.com/louisbranch/gather.space/internal/bot/schedule"
	"github.com/louisbranch/gather.space/internal/content"
	"github.com/louisbranch/gather.space/internal/event"
	platformcmd "github.com/louisbranch/gather.space/internal/platform/cmd"
	"github.com/louisbranch/gather.space/internal/profile"
	"github.com/louisbranch/gather.space/internal/storage/sqlite"
	"github.com/louisbranch/gather.space/internal/telemetry"
)

// Config holds the bot process configuration. Environment values are the
// defaults, flags override them.
type Config struct {
	Token        string `env:"GATHER_SPACE_BOT_TOKEN"`
	DBPath       string `env:"GATHER_SPACE_DB_PATH" envDefault:"gather.db"`
	AdminIDs     string `env:"GATHER_SPACE_ADMIN_IDS"`
	ReminderCron string `env:"GATHER_SPACE_REMINDER_CRON" envDefault:"0 10 * * *"`
	Debug        bool   `env:"GATHER_SPACE_DEBUG"`
}

// ParseFlags loads the config from the environment and applies flag
// overrides from args.
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	fs := flag.NewFlagSet(platformcmd.ServiceBot, flag.ContinueOnError)
	fs.StringVar(&cfg.Token, "token", "", "Telegram bot token")
	fs.StringVar(&cfg.DBPath, "db", "", "path to the SQLite database file")
	fs.StringVar(&cfg.AdminIDs, "admins", "", "comma-separated Telegram user IDs that are always admins")
	fs.StringVar(&cfg.ReminderCron, "reminder-cron", "", "cron spec for the confirmation reminder job")
	fs.BoolVar(&cfg.Debug, "debug", false, "log Telegram API traffic")
	if err := platformcmd.ParseConfigFromArgs(&cfg, fs, args); err != nil {
		return Config{}, err
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return Config{}, errors.New("a bot token is required (GATHER_SPACE_BOT_TOKEN or -token)")
	}
	return cfg, nil
}

// adminIDs parses the configured allow-list.
func (c Config) adminIDs() ([]int64, error) {
	var ids []int64
	for _, field := range strings.Split(c.AdminIDs, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		id, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("admin id %q is not a number", field)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Run starts the bot and blocks until the context is cancelled.
func Run(ctx context.Context, cfg Config, logger *log.Logger) error {
	if logger == nil {
		logger = log.Default()
	}
	adminIDs, err := cfg.adminIDs()
	if err != nil {
		return err
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Printf("close store: %v", err)
		}
	}()

	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return fmt.Errorf("connect to telegram: %w", err)
	}
	api.Debug = cfg.Debug

	return platformcmd.RunWithTelemetry(ctx, platformcmd.ServiceBot, func(ctx context.Context) error {
		engine := event.NewService(store, store)
		profiles := profile.NewService(store, store)
		contentSvc := content.NewService(store, store)
		if err := contentSvc.EnsureDefaults(ctx); err != nil {
			return fmt.Errorf("seed default content: %w", err)
		}
		emitter := telemetry.NewEmitter(store, logger)
		gate := access.NewGate(store, adminIDs, logger)

		transport := botransport.New(botransport.Deps{
			API:       api,
			Engine:    engine,
			Profiles:  profiles,
			Content:   contentSvc,
			Gate:      gate,
			Telemetry: emitter,
			Logger:    logger,
		})
		adminSvc := admin.NewService(engine, store, contentSvc, emitter, transport.Messenger(), logger)
		transport.SetAdmin(adminSvc)

		reminder := schedule.NewReminder(engine, adminSvc, logger)
		if err := reminder.Start(ctx, cfg.ReminderCron); err != nil {
			return fmt.Errorf("schedule reminders: %w", err)
		}

		if err := transport.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
}
