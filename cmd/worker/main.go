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

	// Embedded tzdata keeps recipient timezone resolution working on hosts
	// without a system zoneinfo database.
	_ "time/tzdata"

	"github.com/robfig/cron/v3"

	pgRepo "birthday-courier/internal/infra/adapter/persistence/postgres"
	sqliteRepo "birthday-courier/internal/infra/adapter/persistence/sqlite"
	"birthday-courier/internal/infra/composer"
	"birthday-courier/internal/infra/db"
	rosterHTTP "birthday-courier/internal/infra/roster"
	"birthday-courier/internal/infra/sms"
	workerPkg "birthday-courier/internal/infra/worker"
	"birthday-courier/internal/observability/logging"
	"birthday-courier/internal/pkg/config"
	"birthday-courier/internal/repository"
	"birthday-courier/internal/usecase/greet"
	rosterUC "birthday-courier/internal/usecase/roster"
)

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	database, driver := db.Open()
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	if err := db.MigrateUp(database, driver); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	workerMetrics := workerPkg.NewWorkerMetrics()
	workerConfig := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	logger.Info("worker configuration loaded",
		slog.String("cron_schedule", workerConfig.CronSchedule),
		slog.String("timezone", workerConfig.Timezone),
		slog.Duration("roster_freshness", workerConfig.RosterFreshness),
		slog.Int("greet_max_concurrent", workerConfig.GreetMaxConcurrent),
		slog.Duration("cycle_timeout", workerConfig.CycleTimeout),
		slog.Int("health_port", workerConfig.HealthPort),
		slog.Int("metrics_port", workerConfig.MetricsPort))

	service := setupGreetService(logger, database, driver, workerConfig)

	startMetricsServer(ctx, logger, workerConfig.MetricsPort)

	healthAddr := fmt.Sprintf(":%d", workerConfig.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()
	logger.Info("health check server started", slog.String("addr", healthAddr))

	// Validate every external connection before arming the schedule. A
	// misconfigured credential must surface at deploy time, not on someone's
	// birthday.
	validateCtx, validateCancel := context.WithTimeout(ctx, 2*time.Minute)
	err := service.ValidateConnections(validateCtx)
	validateCancel()
	if err != nil {
		logger.Error("startup connection validation failed",
			slog.Any("error", err),
			logging.Critical())
		os.Exit(1)
	}
	logger.Info("startup connection validation passed")

	startCronWorker(ctx, logger, service, workerConfig, workerMetrics, healthServer)
}

// setupGreetService wires the roster cache, delivery store, composer, and
// SMS channel into the greeting orchestrator.
func setupGreetService(logger *slog.Logger, database *sql.DB, driver db.Driver, cfg *workerPkg.WorkerConfig) *greet.Service {
	provider, err := rosterHTTP.NewHTTPProvider(rosterHTTP.Config{
		URL:     os.Getenv("ROSTER_URL"),
		Token:   os.Getenv("ROSTER_TOKEN"),
		Timeout: 30 * time.Second,
	})
	if err != nil {
		logger.Error("failed to configure roster provider", slog.Any("error", err))
		os.Exit(1)
	}

	defaultZone, err := time.LoadLocation(config.LoadEnvString("DEFAULT_TIMEZONE", "UTC"))
	if err != nil {
		logger.Error("invalid DEFAULT_TIMEZONE", slog.Any("error", err))
		os.Exit(1)
	}

	cache := rosterUC.NewCache(provider, rosterUC.Config{
		Freshness:   cfg.RosterFreshness,
		DefaultZone: defaultZone,
	})

	composerConfig := composer.LoadConfig()
	gen, err := composer.New(composerConfig)
	if err != nil {
		logger.Error("failed to configure composer", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("composer initialized", slog.String("type", composerConfig.Type))

	channel, err := sms.NewTwilio(sms.Config{
		AccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		AuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		FromNumber: os.Getenv("TWILIO_FROM_NUMBER"),
		Timeout:    30 * time.Second,
	})
	if err != nil {
		logger.Error("failed to configure sms channel", slog.Any("error", err))
		os.Exit(1)
	}

	var deliveries repository.DeliveryRepository
	switch driver {
	case db.DriverSQLite:
		deliveries = sqliteRepo.NewDeliveryRepo(database)
	default:
		deliveries = pgRepo.NewDeliveryRepo(database)
	}

	greetConfig := greet.DefaultConfig()
	greetConfig.MaxConcurrent = cfg.GreetMaxConcurrent

	return greet.NewService(cache, deliveries, gen, channel, greetConfig)
}

// startCronWorker arms the cron schedule and blocks until the context is
// canceled.
func startCronWorker(ctx context.Context, logger *slog.Logger, service *greet.Service, cfg *workerPkg.WorkerConfig, metrics *workerPkg.WorkerMetrics, healthServer *workerPkg.HealthServer) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone, using UTC", slog.String("timezone", cfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))

	_, err = c.AddFunc(cfg.CronSchedule, func() {
		runGreetingCycle(logger, service, cfg, metrics)
	})
	if err != nil {
		logger.Error("failed to add cron job", slog.Any("error", err))
		os.Exit(1)
	}
	c.Start()

	healthServer.SetReady(true)
	logger.Info("worker started",
		slog.String("schedule", cfg.CronSchedule),
		slog.String("timezone", cfg.Timezone))

	<-ctx.Done()
	logger.Info("shutdown signal received")
	healthServer.SetReady(false)

	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
		logger.Info("cron scheduler stopped")
	case <-time.After(cfg.CycleTimeout):
		logger.Warn("cron scheduler stop timed out")
	}
}

// runGreetingCycle executes a single greeting cycle with timeout and
// records its outcome in the worker metrics.
func runGreetingCycle(logger *slog.Logger, service *greet.Service, cfg *workerPkg.WorkerConfig, metrics *workerPkg.WorkerMetrics) {
	startTime := time.Now()
	logger.Info("greeting cycle started")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.CycleTimeout)
	defer cancel()

	stats, err := service.RunCycle(ctx)
	if err != nil {
		logger.Error("greeting cycle failed", slog.Any("error", err), logging.Critical())
		metrics.RecordCycleRun("failure")
		metrics.RecordCycleDuration(time.Since(startTime).Seconds())
		return
	}

	metrics.RecordCycleRun("success")
	metrics.RecordCycleDuration(time.Since(startTime).Seconds())
	metrics.RecordEvaluated(stats.Evaluated)
	metrics.RecordDeliveries("sent", stats.Sent)
	metrics.RecordDeliveries("failed", stats.Failed)
	metrics.RecordDeliveries("skipped", stats.Skipped)
	metrics.RecordLastSuccess()
}
