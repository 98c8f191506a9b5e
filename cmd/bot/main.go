package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"github.com/Proton-105/bazaar-bot/internal/bot"
	"github.com/Proton-105/bazaar-bot/internal/bot/handlers"
	"github.com/Proton-105/bazaar-bot/internal/catalog"
	"github.com/Proton-105/bazaar-bot/internal/channel"
	"github.com/Proton-105/bazaar-bot/internal/channel/telegram"
	"github.com/Proton-105/bazaar-bot/internal/channel/whapi"
	"github.com/Proton-105/bazaar-bot/internal/database"
	apperrors "github.com/Proton-105/bazaar-bot/internal/errors"
	"github.com/Proton-105/bazaar-bot/internal/events"
	"github.com/Proton-105/bazaar-bot/internal/health"
	"github.com/Proton-105/bazaar-bot/internal/httpapi"
	"github.com/Proton-105/bazaar-bot/internal/i18n"
	"github.com/Proton-105/bazaar-bot/internal/idempotency"
	"github.com/Proton-105/bazaar-bot/internal/jobs"
	jobhandlers "github.com/Proton-105/bazaar-bot/internal/jobs/handlers"
	"github.com/Proton-105/bazaar-bot/internal/language"
	"github.com/Proton-105/bazaar-bot/internal/lifecycle"
	"github.com/Proton-105/bazaar-bot/internal/media"
	"github.com/Proton-105/bazaar-bot/internal/middleware"
	"github.com/Proton-105/bazaar-bot/internal/orders"
	"github.com/Proton-105/bazaar-bot/internal/ratelimit"
	"github.com/Proton-105/bazaar-bot/internal/resolver"
	"github.com/Proton-105/bazaar-bot/internal/state"
	"github.com/Proton-105/bazaar-bot/internal/transcript"
	"github.com/Proton-105/bazaar-bot/pkg/config"
	"github.com/Proton-105/bazaar-bot/pkg/graceful"
	"github.com/Proton-105/bazaar-bot/pkg/logger"
	"github.com/Proton-105/bazaar-bot/pkg/metrics"
	appredis "github.com/Proton-105/bazaar-bot/pkg/redis"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "bazaar-bot: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, v, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			SampleRate:  cfg.Sentry.SampleRate,
		}); err != nil {
			return fmt.Errorf("init sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	appLog := logger.New(logger.Options{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		File:       cfg.Logger.File,
		MaxSizeMB:  cfg.Logger.MaxSizeMB,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAgeDays: cfg.Logger.MaxAgeDays,
		Sentry:     cfg.Sentry.Enabled,
	})
	log := appLog.Logger
	slog.SetDefault(log)

	log.Info("starting bazaar bot",
		slog.String("env", cfg.AppEnv),
		slog.String("channel", cfg.Bot.Channel),
		slog.String("addr", cfg.Server.Addr),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown := lifecycle.NewShutdown(log)
	shutdown.Register(lifecycle.PhaseClients, "logger", func(context.Context) error { return appLog.Close() })

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	shutdown.Register(lifecycle.PhaseClients, "postgres", func(context.Context) error { return db.Close() })

	if cfg.Database.MigrateOnStart {
		if err := database.NewMigrator(db, log).Apply(ctx, database.Migrations(), "."); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		log.Info("database migrations applied")
	}

	var rdb *appredis.Client
	err = apperrors.WithRetry(ctx, func() error {
		var connErr error
		rdb, connErr = appredis.New(ctx, appredis.Config{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			PoolTimeout:  cfg.Redis.PoolTimeout,
			MaxRetries:   cfg.Redis.MaxRetries,
		})
		if connErr != nil {
			return apperrors.NewDependencyError("redis", connErr)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	shutdown.Register(lifecycle.PhaseClients, "redis", func(context.Context) error { return rdb.Close() })

	publisher := openPublisher(ctx, cfg.Events, log)
	shutdown.Register(lifecycle.PhaseClients, "events", func(context.Context) error { return publisher.Close() })

	errHandler := apperrors.NewHandler(log, cfg.Sentry.Enabled)
	errHandler.OnHandled(func(code string, severity apperrors.Severity) {
		metrics.RecordError(code, string(severity))
	})

	msgs, err := i18n.Load("en")
	if err != nil {
		return err
	}

	store := state.NewRedisStore(rdb.Client, log, cfg.State.SessionTTL)
	products := catalog.New(catalog.NewRepository(db, log), catalog.NewCache(rdb.Client), cfg.Catalog.CacheTTL, log)
	orderService := orders.NewService(orders.NewRepository(db, log), publisher, log)

	groq := language.NewGroqClient(language.Config{
		APIKey:       cfg.Language.APIKey,
		BaseURL:      cfg.Language.BaseURL,
		ChatModel:    cfg.Language.ChatModel,
		WhisperModel: cfg.Language.WhisperModel,
		Timeout:      cfg.Language.Timeout,
	}, log)

	proofs, err := media.NewFSStore(cfg.Media.StoragePath, log)
	if err != nil {
		return err
	}

	checker := health.NewChecker(log, 2*time.Second)
	checker.AddCheck("database", health.NewDBChecker(db))
	checker.AddCheck("redis", health.NewRedisChecker(rdb))

	var (
		ch       channel.Channel
		webhook  *whapi.Webhook
		tgBot    *telegram.Adapter
		onEvent  channel.EventHandler
		dispatch = func(ctx context.Context, ev channel.Event) error { return onEvent(ctx, ev) }
	)
	switch cfg.Bot.Channel {
	case "telegram":
		tgBot, err = telegram.New(telegram.Config{
			Token:         cfg.Telegram.Token,
			PollTimeout:   cfg.Telegram.PollTimeout,
			MaxMediaBytes: cfg.Media.MaxBytes,
		}, log)
		if err != nil {
			return err
		}
		ch = tgBot
		checker.AddCheck("telegram", health.CheckFunc(tgBot.HealthCheck))
	default:
		client := whapi.NewClient(whapi.Config{
			BaseURL:       cfg.Whapi.BaseURL,
			Token:         cfg.Whapi.Token,
			Timeout:       cfg.Whapi.Timeout,
			MaxMediaBytes: cfg.Media.MaxBytes,
		}, log)
		ch = client
		webhook = whapi.NewWebhook(whapi.WebhookConfig{
			VerifyToken:  cfg.Whapi.VerifyToken,
			MediaBaseURL: cfg.Whapi.BaseURL,
		}, dispatch, log)
		checker.AddCheck("whapi", client)
	}

	flow := handlers.NewFlow(handlers.Deps{
		Channel:  ch,
		Store:    store,
		Catalog:  products,
		Orders:   orderService,
		Resolver: resolver.New(groq, log),
		Messages: msgs,
		Proofs:   proofs,
		Settings: handlers.Settings{
			BusinessName:          cfg.App.BusinessName,
			BaseURL:               cfg.Bot.BaseURL,
			ConfirmationWaitHours: cfg.Bot.ConfirmationWaitHours,
			EasyPaisa: handlers.EasyPaisa{
				AccountName:   cfg.Payment.EasyPaisa.AccountName,
				AccountNumber: cfg.Payment.EasyPaisa.AccountNumber,
				QRImageURL:    cfg.Payment.EasyPaisa.QRImageURL,
			},
		},
		Log: log,
	})

	memoryLimiter := ratelimit.NewMemoryLimiter(log)
	limiter := ratelimit.NewAdaptiveLimiter(ratelimit.NewRedisLimiter(rdb.Client, log), memoryLimiter, log)

	greetings := bot.NewGreetings(cfg.Bot.Greetings)
	engine := bot.New(bot.Deps{
		Channel:     ch,
		Store:       store,
		Locker:      state.NewLocker(rdb.Client, log, cfg.Bot.LockWait),
		Transcriber: transcript.NewReconciler(groq, log),
		Flow:        flow,
		Greetings:   greetings,
		ErrHandler:  errHandler,
		Idempotency: idempotency.NewManager(idempotency.NewRedisStore(rdb.Client, log), log),
		RateLimit:   middleware.NewRateLimitMiddleware(limiter, ratelimit.NewRules(cfg.RateLimit), log),
		Log:         log,
	})
	onEvent = engine.Handle

	config.Watch(v, func(next *config.Config) {
		appLog.SetLevel(next.Logger.Level)
		greetings.Set(next.Bot.Greetings)
		log.Info("configuration reloaded", slog.String("log_level", next.Logger.Level), slog.Int("greetings", len(next.Bot.Greetings)))
	}, func(err error) {
		log.Warn("ignoring invalid configuration change", slog.Any("error", err))
	})

	probes := lifecycle.NewProbes(log, checker)
	router := httpapi.NewRouter(httpapi.Options{
		Webhook:  optionalWebhook(webhook),
		Checker:  checker,
		Probes:   probes,
		AudioDir: cfg.Media.AudioDir,
		Log:      log,
	})
	server := graceful.NewServer(log, &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, cfg.Server.ShutdownTimeout)

	if webhook != nil {
		shutdown.Register(lifecycle.PhaseWorkers, "webhook deliveries", func(ctx context.Context) error {
			return waitOrTimeout(ctx, webhook.Wait)
		})
	}

	if cfg.Jobs.Enabled {
		if err := startJobs(ctx, cfg, rdb, store, proofs, memoryLimiter, shutdown, log); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.ListenAndServe(gctx)
	})

	g.Go(func() error {
		metrics.NewStateCollector(store).Run(gctx)
		return nil
	})

	if tgBot != nil {
		tgBot.Listen(dispatch)
		g.Go(func() error {
			return tgBot.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		probes.Drain()
		return nil
	})

	runErr := g.Wait()
	if runErr != nil {
		log.Error("bot stopped with error", slog.Any("error", runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := shutdown.Execute(shutdownCtx); err != nil {
		log.Error("shutdown finished with errors", slog.Any("error", err))
	}

	log.Info("bazaar bot stopped")
	return runErr
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	err = apperrors.WithRetry(ctx, func() error {
		if pingErr := db.PingContext(ctx); pingErr != nil {
			return apperrors.NewDatabaseError(pingErr)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

// openPublisher connects to the broker when events are enabled. Events are
// best-effort, so an unreachable broker degrades to the logging publisher.
func openPublisher(ctx context.Context, cfg config.EventsConfig, log *slog.Logger) events.Publisher {
	if !cfg.Enabled {
		return events.NewFallback(log)
	}

	var publisher events.Publisher
	err := apperrors.WithRetry(ctx, func() error {
		var dialErr error
		publisher, dialErr = events.NewAMQP(cfg.URL, cfg.Exchange, log)
		if dialErr != nil {
			return apperrors.NewDependencyError("amqp", dialErr)
		}
		return nil
	})
	if err != nil {
		log.Warn("event broker unavailable, events will be dropped", slog.Any("error", err))
		return events.NewFallback(log)
	}

	return publisher
}

func startJobs(
	ctx context.Context,
	cfg *config.Config,
	rdb *appredis.Client,
	store state.Store,
	proofs *media.FSStore,
	memoryLimiter *ratelimit.MemoryLimiter,
	shutdown *lifecycle.Shutdown,
	log *slog.Logger,
) error {
	redisOpt := asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}

	worker := jobs.NewWorker(redisOpt, jobs.Queues, cfg.Jobs.Concurrency, log)
	worker.RegisterHandler(jobs.TaskTypeMediaCleanup, jobhandlers.NewMediaCleanupHandler(proofs, log))
	worker.RegisterHandler(jobs.TaskTypeConversationCleanup, jobhandlers.NewConversationCleanupHandler(
		state.NewCleaner(store, log, cfg.State.SessionTTL), log))
	worker.RegisterHandler(jobs.TaskTypeKeySweep, jobhandlers.NewKeySweepHandler(map[string]jobhandlers.Sweeper{
		"idempotency": idempotency.NewCleaner(rdb.Client, log, middleware.DeliveryTTL),
		"ratelimit":   ratelimit.NewCleaner(rdb.Client, memoryLimiter, log, cfg.RateLimit.Window),
	}, log))

	if err := worker.Start(); err != nil {
		return fmt.Errorf("start jobs worker: %w", err)
	}
	shutdown.Register(lifecycle.PhaseWorkers, "jobs worker", func(context.Context) error {
		worker.Shutdown()
		return nil
	})

	scheduler := jobs.NewScheduler(redisOpt, log)
	if err := scheduler.RegisterTasks(jobs.Schedule{
		MediaCleanup:        cfg.Jobs.MediaCleanupCron,
		MediaMaxAge:         cfg.Media.MaxAge,
		ConversationCleanup: cfg.Jobs.ConversationCleanupCron,
		KeySweep:            cfg.Jobs.KeySweepCron,
	}); err != nil {
		return fmt.Errorf("register scheduled jobs: %w", err)
	}
	scheduler.Run()
	shutdown.Register(lifecycle.PhaseWorkers, "jobs scheduler", func(context.Context) error {
		scheduler.Shutdown()
		return nil
	})

	// Catch up on media that aged out while the process was down.
	manager := jobs.NewManager(redisOpt, log)
	shutdown.Register(lifecycle.PhaseClients, "jobs client", func(context.Context) error { return manager.Close() })
	if err := manager.EnqueueMediaCleanup(ctx, cfg.Media.MaxAge, time.Hour); err != nil {
		log.Warn("failed to enqueue startup media cleanup", slog.Any("error", err))
	}

	return nil
}

// optionalWebhook keeps a nil *whapi.Webhook from becoming a non-nil interface.
func optionalWebhook(w *whapi.Webhook) httpapi.Webhook {
	if w == nil {
		return nil
	}
	return w
}

func waitOrTimeout(ctx context.Context, wait func()) error {
	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
