package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	detectionactivity "github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/activities/detection"
	submissionactivity "github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/activities/submission"
	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/browser"
	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/compliance"
	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/config"
	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/observability"
	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/repository/postgres"
	detectionservice "github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/services/detection"
	submissionservice "github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/services/submission"
	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/storage"
	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/temporal"
	"github.com/hidetoshi-oya/auto-inquiry-form-submitter/internal/workflows"
)

func main() {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.App.Environment)
	defer logger.Sync()

	logger.Info("Starting inquiry worker",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
		zap.String("temporal_address", cfg.Temporal.Addr()),
		zap.String("namespace", cfg.Temporal.Namespace),
		zap.String("task_queue", cfg.Temporal.TaskQueue),
	)

	metrics := observability.InitMetrics("inquiry")

	// Database
	pgDB, err := postgres.New(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pgDB.Close()
	repos := postgres.NewRepositories(pgDB.DB)

	// Screenshot storage
	screenshots, err := storage.NewScreenshotClient(cfg.Storage)
	if err != nil {
		logger.Fatal("Failed to create storage client", zap.Error(err))
	}

	// Browser pool
	pool, err := browser.NewPool(cfg.Browser, logger)
	if err != nil {
		logger.Fatal("Failed to start browser pool", zap.Error(err))
	}
	defer pool.Close()

	// Compliance governor
	governor := compliance.NewGovernor(compliance.Config{
		Level:        cfg.Compliance.Level,
		BotName:      cfg.Compliance.BotName,
		UserAgent:    cfg.Compliance.UserAgent,
		FetchTimeout: cfg.Compliance.FetchTimeout,
		Backoff: compliance.BackoffConfig{
			BaseDelay:  cfg.Compliance.BaseDelay,
			MaxDelay:   cfg.Compliance.MaxDelay,
			Multiplier: cfg.Compliance.BackoffMultiplier,
		},
	}, logger)

	// Services
	detectionSvc := detectionservice.NewService(
		governor,
		pool,
		repos.Companies,
		repos.Forms,
		cfg.Browser,
		cfg.RateLimits,
		logger,
	)
	submissionSvc := submissionservice.NewService(
		repos.Forms,
		repos.Submissions,
		screenshots,
		pool,
		cfg.Browser,
		logger,
	)

	// Temporal client and worker
	tc, err := temporal.NewClient(cfg.Temporal, logger)
	if err != nil {
		logger.Fatal("Failed to create Temporal client", zap.Error(err))
	}
	defer tc.Close()

	logger.Info("Connected to Temporal server",
		zap.String("namespace", tc.Namespace()),
	)

	w := worker.New(tc, tc.TaskQueue(), worker.Options{
		MaxConcurrentActivityExecutionSize: cfg.Browser.PoolSize,
	})

	w.RegisterWorkflow(workflows.DetectFormsWorkflow)
	w.RegisterWorkflow(workflows.SubmitFormWorkflow)
	w.RegisterWorkflow(workflows.BulkSubmissionWorkflow)

	detectionAct := detectionactivity.NewActivity(detectionSvc)
	submissionAct := submissionactivity.NewActivity(submissionSvc)

	w.RegisterActivityWithOptions(detectionAct.Execute, activity.RegisterOptions{
		Name: workflows.DetectFormsActivityName,
	})
	w.RegisterActivityWithOptions(submissionAct.Execute, activity.RegisterOptions{
		Name: workflows.SubmitFormActivityName,
	})
	w.RegisterActivityWithOptions(submissionAct.RenderTemplate, activity.RegisterOptions{
		Name: workflows.RenderTemplateActivityName,
	})

	logger.Info("Registered workflows and activities",
		zap.Int("workflow_count", 3),
		zap.Int("activity_count", 3),
	)

	// Connection pool gauges
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			stats := pgDB.Stats()
			metrics.SetDBStats(stats.InUse, stats.Idle)
		}
	}()

	// Metrics endpoint
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		addr := fmt.Sprintf(":%d", cfg.App.MetricsPort)
		logger.Info("Serving metrics", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Warn("Metrics server stopped", zap.Error(err))
		}
	}()

	workerErrors := make(chan error, 1)
	go func() {
		workerErrors <- w.Run(worker.InterruptCh())
	}()

	logger.Info("Worker started successfully",
		zap.String("task_queue", cfg.Temporal.TaskQueue),
	)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-workerErrors:
		if err != nil {
			logger.Fatal("Worker error", zap.Error(err))
		}

	case sig := <-shutdown:
		logger.Info("Shutdown signal received", zap.String("signal", sig.String()))
		w.Stop()
		logger.Info("Worker stopped gracefully")
	}
}

func initLogger(env string) *zap.Logger {
	var config zap.Config
	if env == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	logger, err := config.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}

	return logger
}
