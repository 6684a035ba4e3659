package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"

	"github.com/careslot/booking-api/internal/cache"
	"github.com/careslot/booking-api/internal/config"
	"github.com/careslot/booking-api/internal/repository/postgres"
	appointmentService "github.com/careslot/booking-api/internal/service/appointment"
	availabilityService "github.com/careslot/booking-api/internal/service/availability"
	scheduleService "github.com/careslot/booking-api/internal/service/schedule"
	"github.com/careslot/booking-api/internal/worker"
	"github.com/careslot/booking-api/pkg/clock"
	"github.com/careslot/booking-api/pkg/logger"
	"github.com/careslot/booking-api/pkg/messaging/redis"
	"github.com/careslot/booking-api/pkg/metrics"
)

// WorkerConfig holds the knobs specific to the background binary.
type WorkerConfig struct {
	SweepInterval     time.Duration `envconfig:"SWEEP_INTERVAL" default:"1m"`
	ReconcileInterval time.Duration `envconfig:"RECONCILE_INTERVAL" default:"5m"`
	HorizonDays       int           `envconfig:"RECONCILE_HORIZON_DAYS" default:"7"`
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	var workerCfg WorkerConfig
	if err := envconfig.Process("WORKER", &workerCfg); err != nil {
		log.Fatal().Err(err).Msg("failed to load worker configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	slotCache, err := cache.NewRedisCache(cfg.Redis, cfg.Cache)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure slot cache")
	}

	initCtx, initCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := slotCache.Init(initCtx); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to slot cache")
	}
	initCancel()

	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, appLogger.Zerolog())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to message broker")
	}
	defer broker.Close()

	userRepo := postgres.NewUserRepository(db)
	scheduleRepo := postgres.NewScheduleRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)

	appMetrics := metrics.NewMetrics("booking_worker")
	clk := clock.New()

	scheduleSvc := scheduleService.NewService(userRepo, scheduleRepo, slotCache, appLogger)
	availabilitySvc := availabilityService.NewService(scheduleSvc, appointmentRepo, slotCache, appMetrics, appLogger)
	appointmentSvc := appointmentService.NewService(
		userRepo,
		appointmentRepo,
		availabilitySvc,
		slotCache,
		broker,
		clk,
		cfg.Booking,
		appMetrics,
		appLogger,
	)

	sweeper := worker.NewExpirySweeper(appointmentSvc, workerCfg.SweepInterval, appMetrics, appLogger)
	reconciler := worker.NewReconciler(
		scheduleSvc,
		availabilitySvc,
		workerCfg.ReconcileInterval,
		workerCfg.HorizonDays,
		clk,
		appMetrics,
		appLogger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		sweeper.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		reconciler.Start(ctx)
	}()

	appLogger.Info("worker started",
		"sweep_interval", workerCfg.SweepInterval,
		"reconcile_interval", workerCfg.ReconcileInterval,
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down worker")
	cancel()
	wg.Wait()

	teardownCtx, teardownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer teardownCancel()
	if err := slotCache.Teardown(teardownCtx); err != nil {
		appLogger.Error(err, "cache teardown failed")
	}

	appLogger.Info("worker stopped")
}
