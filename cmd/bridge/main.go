package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Spok95/canvas-bridge/internal/app"
	"github.com/Spok95/canvas-bridge/internal/config"
	"github.com/Spok95/canvas-bridge/internal/db"
	"github.com/Spok95/canvas-bridge/internal/grades"
	"github.com/Spok95/canvas-bridge/internal/jobs"
	"github.com/Spok95/canvas-bridge/internal/lms"
	"github.com/Spok95/canvas-bridge/internal/logging"
	"github.com/Spok95/canvas-bridge/internal/observability"
	"github.com/Spok95/canvas-bridge/internal/reconcile"
	"github.com/Spok95/canvas-bridge/internal/tg"
)

var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Closer()
	logger := lg.Base

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, version)
	if err != nil {
		logger.Warn("sentry disabled", zap.Error(err))
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DatabaseDSN(), cfg.Database.PoolSize)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer func() { _ = database.Close() }()

	if err := db.Migrate(database); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}

	client, err := lms.New(lms.Options{
		BaseURL:   cfg.LMS.BaseURL,
		Token:     cfg.LMS.Token,
		AccountID: cfg.LMS.AccountID,
		Timeout:   cfg.LMS.Timeout,
		Retry: lms.RetryPolicy{
			MaxRetries: cfg.LMS.RetryMax,
			BaseDelay:  cfg.LMS.RetryDelay,
		},
		Logger: logger,
	})
	if err != nil {
		logger.Fatal("lms client", zap.Error(err))
	}

	deps := app.Deps{
		Store:      db.NewStore(database),
		Reconciler: reconcile.New(client, logger),
		Aggregator: grades.NewAggregator(client, logger),
		LMS:        client,
		Logger:     logger,
	}
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != 0 {
		n, err := tg.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, "")
		if err != nil {
			logger.Warn("telegram notifications disabled", zap.Error(err))
		} else {
			deps.Notifier = n
		}
	}
	svc := app.NewService(deps)

	srv := app.StartHTTP(ctx, cfg.HTTPAddr, svc, logger)

	if cfg.SyncInterval > 0 {
		jobs.ScheduleSync(jobs.New(ctx, logger), svc, cfg.SyncInterval)
		logger.Info("scheduled sync enabled", zap.Duration("interval", cfg.SyncInterval))
	}

	logger.Info("bridge started",
		zap.String("version", version),
		zap.String("addr", cfg.HTTPAddr),
		zap.String("lms", cfg.LMS.BaseURL))
	<-ctx.Done()
	logger.Info("shutting down")
	<-srv.Done()
	logger.Info("bridge stopped")
}
