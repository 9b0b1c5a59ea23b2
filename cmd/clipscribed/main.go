package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/clipscribe/clipscribe/internal/api"
	"github.com/clipscribe/clipscribe/internal/auth"
	"github.com/clipscribe/clipscribe/internal/billing"
	"github.com/clipscribe/clipscribe/internal/config"
	"github.com/clipscribe/clipscribe/internal/database"
	"github.com/clipscribe/clipscribe/internal/entitlement"
	"github.com/clipscribe/clipscribe/internal/events"
	"github.com/clipscribe/clipscribe/internal/llm"
	"github.com/clipscribe/clipscribe/internal/logger"
	"github.com/clipscribe/clipscribe/internal/media"
	"github.com/clipscribe/clipscribe/internal/observability"
	"github.com/clipscribe/clipscribe/internal/pipeline"
	"github.com/clipscribe/clipscribe/internal/redis"
	"github.com/clipscribe/clipscribe/internal/server"
	"github.com/clipscribe/clipscribe/internal/storage"
	"github.com/clipscribe/clipscribe/internal/transcription/whisper"
	"github.com/clipscribe/clipscribe/internal/version"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var cfg config.Config
	if err := config.Load(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	appLog := logger.New(&cfg.Logger, cfg.AppName)
	logger.SetGlobalLogger(appLog)
	build := version.Get()
	appLog.Info("starting", logger.Fields("version", build.String()))

	shutdownTelemetry, err := observability.Init(ctx, cfg.Observability, cfg.AppName, build.Version, appLog)
	if err != nil {
		appLog.Fatal("init telemetry", logger.Fields("error", err.Error()))
	}

	db, err := database.Open(ctx, cfg.Database, appLog)
	if err != nil {
		appLog.Fatal("open database", logger.Fields("error", err.Error()))
	}
	defer db.Close()
	if cfg.Database.AutoMigrate {
		if err := db.Migrate(); err != nil {
			appLog.Fatal("migrate database", logger.Fields("error", err.Error()))
		}
	}

	users := database.NewUserStore(db)
	projects := database.NewProjectStore(db)
	payments := database.NewPaymentStore(db)

	var reserver entitlement.Reserver
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(cfg.Redis, appLog)
		if err != nil {
			appLog.Fatal("connect redis", logger.Fields("error", err.Error()))
		}
		defer redisClient.Close()
		reserver = redis.NewReservations(redisClient, 0)
	} else {
		// Without Redis the free-tier admission slot is leased on the
		// user row instead, so the gate stays atomic under concurrency.
		reserver = database.NewFreeSlotReserver(db, 0)
	}
	gate := entitlement.NewGate(users, projects, reserver, appLog)

	tokens, err := auth.NewService(cfg.Auth)
	if err != nil {
		appLog.Fatal("init auth", logger.Fields("error", err.Error()))
	}

	extractor, err := media.NewExtractor(cfg.Media, appLog)
	if err != nil {
		appLog.Fatal("init media extractor", logger.Fields("error", err.Error()))
	}
	fetcher := media.NewFetcher(cfg.Media)

	provider, err := whisper.NewProvider(cfg.Whisper)
	if err != nil {
		appLog.Fatal("init transcription provider", logger.Fields("error", err.Error()))
	}

	llmClient, err := llm.NewClient(cfg.LLM)
	if err != nil {
		appLog.Fatal("init llm client", logger.Fields("error", err.Error()))
	}
	rewriter := llm.NewRewriter(llmClient, cfg.LLM)

	publisher, err := events.NewPublisher(cfg.Events, appLog)
	if err != nil {
		appLog.Fatal("init event publisher", logger.Fields("error", err.Error()))
	}
	defer publisher.Close()

	archive, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		appLog.Fatal("init artifact storage", logger.Fields("error", err.Error()))
	}

	var metrics *observability.PipelineMetrics
	if cfg.Observability.Enabled {
		metrics, err = observability.NewPipelineMetrics(observability.Meter("pipeline"))
		if err != nil {
			appLog.Fatal("init pipeline metrics", logger.Fields("error", err.Error()))
		}
	}

	orchestrator := pipeline.New(cfg.Pipeline, extractor, provider, gate, projects, publisher, metrics, appLog)

	billingSvc := billing.New(cfg.Billing, payments, users, appLog)

	handlers := api.New(api.Deps{
		Log:       appLog,
		Tokens:    tokens,
		Hasher:    auth.NewBcryptHasher(cfg.Auth.BcryptCost),
		Users:     users,
		Projects:  projects,
		Usage:     gate,
		Pipeline:  orchestrator,
		Fetcher:   fetcher,
		Extractor: extractor,
		Rewriter:  rewriter,
		Billing:   billingSvc,
		Events:    publisher,
		Archive:   archive,
		TempDir:   cfg.Media.TempDir,
		Version:   build.Version,
	})

	srv := server.New(cfg.Server, appLog)
	srv.ApplyMiddleware()
	handlers.RegisterRoutes(srv.Engine())

	if err := srv.Start(ctx); err != nil {
		appLog.Fatal("start server", logger.Fields("error", err.Error()))
	}
	appLog.Info("listening", logger.Fields("addr", srv.Addr()))

	<-ctx.Done()
	appLog.Info("shutting down")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := srv.Stop(stopCtx); err != nil {
		appLog.Warn("server shutdown", logger.Fields("error", err.Error()))
	}
	if err := shutdownTelemetry(stopCtx); err != nil {
		appLog.Warn("telemetry shutdown", logger.Fields("error", err.Error()))
	}
}
