package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/support-bot/internal/api/http"
	"github.com/spec-kit/support-bot/internal/api/http/handlers"
	"github.com/spec-kit/support-bot/internal/channel/redisbridge"
	"github.com/spec-kit/support-bot/internal/clock"
	"github.com/spec-kit/support-bot/internal/config"
	"github.com/spec-kit/support-bot/internal/events"
	"github.com/spec-kit/support-bot/internal/intake"
	"github.com/spec-kit/support-bot/internal/notify"
	"github.com/spec-kit/support-bot/internal/observability"
	"github.com/spec-kit/support-bot/internal/persistence"
	"github.com/spec-kit/support-bot/internal/repository"
	"github.com/spec-kit/support-bot/internal/service"
	"github.com/spec-kit/support-bot/internal/worker"
)

type flags struct {
	envFile          string
	scriptFile       string
	initDB           bool
	checkConnections bool
	once             bool
}

func parseFlags() flags {
	var f flags
	pflag.StringVar(&f.envFile, "env-file", "", "load environment from this file instead of ./.env")
	pflag.StringVar(&f.scriptFile, "script", "", "YAML file overriding the bot's messages and categories")
	pflag.BoolVar(&f.initDB, "init-db", false, "create the tickets schema and exit")
	pflag.BoolVar(&f.checkConnections, "check-connections", false, "ping the ticket store and redis, then exit")
	pflag.BoolVar(&f.once, "once", false, "handle at most one unread conversation and exit")
	pflag.Parse()
	return f
}

func main() {
	f := parseFlags()

	cfg, err := config.Load(f.envFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if f.scriptFile != "" {
		cfg.Bot.ScriptFile = f.scriptFile
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, f, logger); err != nil {
		logger.Error("support bot exited", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, f flags, logger *zap.Logger) error {
	clk := clock.Real()

	repo, closeStore, err := openStore(ctx, cfg, f.initDB, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	if f.initDB {
		logger.Info("ticket store initialised", zap.String("driver", cfg.Store.Driver))
		return nil
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: repo,
		Clock:      clk,
		Logger:     logger,
	})

	if f.checkConnections {
		return checkConnections(ctx, logger, map[string]handlers.Pinger{
			"store": ticketService,
			"redis": redis,
		})
	}

	script := intake.DefaultScript()
	if cfg.Bot.ScriptFile != "" {
		if script, err = intake.LoadScript(cfg.Bot.ScriptFile); err != nil {
			return fmt.Errorf("load script: %w", err)
		}
	}

	channel := redisbridge.New(redis.Client, cfg.Channel.KeyPrefix, clk)

	relay := notify.NewRelay(channel, cfg.Bot.SupportDestination, logger)
	notifyHandlers := []events.EventHandler{relay.Handle}
	if cfg.Notification.SlackWebhookURL != "" {
		mirror := notify.NewSlackMirror(notify.SlackConfig{
			WebhookURL:    cfg.Notification.SlackWebhookURL,
			Timeout:       cfg.Notification.SlackTimeout,
			RetryAttempts: cfg.Notification.SlackRetryAttempts,
		}, clk, logger)
		notifyHandlers = append(notifyHandlers, mirror.Handle)
	}
	notificationService := service.NewNotificationService(events.NewInMemoryDispatcher(), clk, logger, notifyHandlers...)
	notificationService.RegisterHandlers()

	router := intake.NewRouter(intake.RouterDependencies{
		Channel:  channel,
		Store:    ticketService,
		Notifier: notificationService,
		Clock:    clk,
		Logger:   logger,
		Script:   script,
		Limits: intake.Limits{
			MaxRetries:         cfg.Bot.MaxRetries,
			MenuTimeout:        cfg.Bot.MenuTimeout,
			DescriptionTimeout: cfg.Bot.DescriptionTimeout,
			SelectionTimeout:   cfg.Bot.SelectionTimeout,
			AbandonAfter:       cfg.Bot.AbandonAfter,
			PollInterval:       cfg.Bot.PollInterval,
		},
		Ignore: cfg.Bot.Ignored(),
	})

	metrics := observability.NewMetrics(clk.Now())
	poller := worker.NewPoller(worker.PollerDependencies{
		Channel:    channel,
		Handler:    router,
		Clock:      clk,
		Metrics:    metrics,
		Logger:     logger,
		BackoffMin: cfg.Bot.IdleBackoffMin,
		BackoffMax: cfg.Bot.IdleBackoffMax,
	})

	if f.once {
		handled, err := poller.Poll(ctx)
		logger.Info("single scan finished", zap.Bool("handled", handled))
		return err
	}

	if cfg.HTTP.Addr != "" {
		app := newOpsApp(cfg, logger, metrics, ticketService, redis)
		go func() {
			if err := app.Listen(cfg.HTTP.Addr); err != nil {
				logger.Error("ops endpoint stopped", zap.Error(err))
			}
		}()
		defer func() {
			if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
				logger.Warn("ops endpoint shutdown", zap.Error(err))
			}
		}()
	}

	logger.Info("support bot running",
		zap.String("store", cfg.Store.Driver),
		zap.Strings("ignored", cfg.Bot.Ignored()),
	)
	err = poller.Run(ctx)
	logger.Info("shutting down")
	return err
}

// openStore connects the configured ticket store and applies its schema.
// migrate forces schema creation even when STORE_RUN_MIGRATIONS is off.
func openStore(ctx context.Context, cfg *config.Config, migrate bool, logger *zap.Logger) (repository.TicketRepository, func(), error) {
	migrate = migrate || cfg.Store.RunMigrations

	switch cfg.Store.Driver {
	case config.DriverPostgres:
		pool, err := persistence.OpenPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, nil, err
		}
		if migrate {
			if err := persistence.RunMigrations(ctx, pool, cfg.Store.MigrationsDir, logger); err != nil {
				pool.Close()
				return nil, nil, err
			}
		}
		return repository.NewPostgresTicketRepository(pool), pool.Close, nil

	case config.DriverMySQL, config.DriverSQLite:
		db, err := persistence.OpenSQL(ctx, cfg.Store, logger)
		if err != nil {
			return nil, nil, err
		}
		if migrate {
			if err := persistence.RunSQLMigrations(ctx, db, cfg.Store.MigrationsDir, cfg.Store.Driver, logger); err != nil {
				_ = db.Close()
				return nil, nil, err
			}
		}
		return repository.NewSQLTicketRepository(db), func() { _ = db.Close() }, nil

	case config.DriverXLSX:
		logger.Info("using workbook ticket store", zap.String("path", cfg.Store.Path), zap.String("sheet", cfg.Store.Sheet))
		return repository.NewWorkbookTicketRepository(cfg.Store.Path, cfg.Store.Sheet), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

func checkConnections(ctx context.Context, logger *zap.Logger, deps map[string]handlers.Pinger) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var errs []error
	for name, dep := range deps {
		if err := dep.Ping(ctx); err != nil {
			logger.Error("connection check failed", zap.String("dependency", name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		logger.Info("connection ok", zap.String("dependency", name))
	}
	return errors.Join(errs...)
}

func newOpsApp(cfg *config.Config, logger *zap.Logger, metrics *observability.Metrics, tickets *service.TicketService, redis *persistence.Redis) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.HTTP.RequestTimeout)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"store": tickets,
			"redis": redis,
		}),
		Stats:   handlers.NewStatsHandler(metrics),
		Tickets: handlers.NewTicketsHandler(tickets),
	})
	return app
}
