package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urbantransit/notify/pkg/audit"
	"github.com/urbantransit/notify/pkg/config"
	"github.com/urbantransit/notify/pkg/logger"
	"github.com/urbantransit/notify/pkg/notification"
	"github.com/urbantransit/notify/pkg/pg"
	"github.com/urbantransit/notify/pkg/preference"
	"github.com/urbantransit/notify/pkg/redis"
	"github.com/urbantransit/notify/pkg/scheduler"
	"github.com/urbantransit/notify/pkg/sender"
	"github.com/urbantransit/notify/pkg/storage/postgres"
	"github.com/urbantransit/notify/pkg/template"
)

type appConfig struct {
	Env      string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Storage selects the persistence backend: "memory" or "postgres".
	Storage       string        `env:"STORAGE" envDefault:"memory"`
	CacheEnabled  bool          `env:"CACHE_ENABLED" envDefault:"false"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
	SendTimeout   time.Duration `env:"SEND_TIMEOUT" envDefault:"30s"`
	MaxRetries    int           `env:"MAX_RETRIES" envDefault:"3"`

	// When enabled, channels the user opted out of fail instead of
	// being delivered.
	PreferenceGating bool `env:"PREFERENCE_GATING" envDefault:"false"`

	// DevOutboxDir receives JSON files from the development senders
	// that stand in for providerless channels.
	DevOutboxDir string `env:"DEV_OUTBOX_DIR" envDefault:"./outbox"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cfg appConfig
	config.MustLoad(&cfg)

	log := newLogger(cfg)
	logger.SetAsDefault(log)

	if err := run(ctx, cfg, log); err != nil {
		log.Error("service failed", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	stores, cleanup, err := buildStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	registry := sender.NewRegistry()
	registerSenders(registry, cfg, log)

	svc := notification.NewService(
		stores.notifications,
		stores.channels,
		stores.prefs,
		stores.templates,
		registry,
		notification.WithLogger(log),
		notification.WithAuditLogger(audit.NewLogger(stores.auditLog, audit.WithLogger(log))),
		notification.WithMaxRetries(cfg.MaxRetries),
		notification.WithSendTimeout(cfg.SendTimeout),
		notification.WithPreferenceGating(cfg.PreferenceGating),
	)

	loop, err := scheduler.NewLoop(svc,
		scheduler.WithInterval(cfg.SweepInterval),
		scheduler.WithLogger(log.With(logger.Component("scheduler"))),
	)
	if err != nil {
		return err
	}

	if err := loop.Start(ctx); err != nil {
		return err
	}

	log.Info("notifyd started",
		slog.String("storage", cfg.Storage),
		slog.Duration("sweep_interval", cfg.SweepInterval))

	<-ctx.Done()
	log.Info("shutting down")
	return loop.Stop()
}

type storeSet struct {
	notifications notification.NotificationStore
	channels      notification.ChannelStore
	prefs         preference.Store
	templates     template.Store
	auditLog      audit.Storage
}

func buildStores(ctx context.Context, cfg appConfig, log *slog.Logger) (*storeSet, func(), error) {
	cleanup := func() {}

	var stores *storeSet
	switch cfg.Storage {
	case "postgres":
		var pgCfg pg.Config
		if err := config.Load(&pgCfg); err != nil {
			return nil, nil, err
		}

		pool, err := pg.Connect(ctx, pgCfg)
		if err != nil {
			return nil, nil, err
		}
		cleanup = pool.Close

		if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
			cleanup()
			return nil, nil, err
		}

		store := postgres.NewStore(pool)
		stores = &storeSet{
			notifications: store,
			channels:      store,
			prefs:         postgres.NewPreferenceStore(pool),
			templates:     postgres.NewTemplateStore(pool),
			auditLog:      postgres.NewAuditStorage(pool),
		}
	default:
		store := notification.NewMemoryStore()
		stores = &storeSet{
			notifications: store,
			channels:      store,
			prefs:         preference.NewMemoryStore(),
			templates:     template.NewMemoryStore(),
			auditLog:      audit.NewMemoryStorage(),
		}
	}

	if cfg.CacheEnabled {
		var redisCfg redis.Config
		if err := config.Load(&redisCfg); err != nil {
			cleanup()
			return nil, nil, err
		}

		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			cleanup()
			return nil, nil, err
		}

		stores.notifications = notification.NewCachedNotificationStore(
			stores.notifications, client,
			notification.WithCacheLogger(log.With(logger.Component("cache"))),
		)

		prev := cleanup
		cleanup = func() {
			_ = client.Close()
			prev()
		}
	}

	return stores, cleanup, nil
}

// registerSenders wires one sender per channel type. Email uses
// Postmark when a server token is configured; every other channel, and
// email without credentials, falls back to the development outbox.
func registerSenders(registry *sender.Registry, cfg appConfig, log *slog.Logger) {
	var emailCfg sender.EmailConfig
	config.MustLoad(&emailCfg)

	if emailCfg.PostmarkServerToken != "" {
		email, err := sender.NewEmailSender(emailCfg)
		if err != nil {
			log.Warn("invalid email sender config, using dev outbox", logger.Error(err))
			email = sender.NewDevSender(cfg.DevOutboxDir, "email")
		}
		registry.Register(string(notification.ChannelTypeEmail), email)
	} else {
		registry.Register(string(notification.ChannelTypeEmail),
			sender.NewDevSender(cfg.DevOutboxDir, "email"))
	}

	registry.Register(string(notification.ChannelTypeWebhook), sender.NewWebhookSender())
	registry.Register(string(notification.ChannelTypeSMS),
		sender.NewDevSender(cfg.DevOutboxDir, "sms"))
	registry.Register(string(notification.ChannelTypePush),
		sender.NewDevSender(cfg.DevOutboxDir, "push"))
}

func newLogger(cfg appConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	preset := logger.WithDevelopment("notifyd")
	if cfg.Env == "production" {
		preset = logger.WithProduction("notifyd")
	}

	// The preset sets its own level, so the explicit level comes last.
	return logger.New(preset, logger.WithLevel(level))
}
