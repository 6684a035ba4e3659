package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/careslot/booking-api/internal/cache"
	"github.com/careslot/booking-api/internal/config"
	"github.com/careslot/booking-api/internal/email"
	appointmentHandler "github.com/careslot/booking-api/internal/handler/appointment"
	authHandler "github.com/careslot/booking-api/internal/handler/auth"
	"github.com/careslot/booking-api/internal/handler/health"
	providerHandler "github.com/careslot/booking-api/internal/handler/provider"
	"github.com/careslot/booking-api/internal/middleware"
	"github.com/careslot/booking-api/internal/repository/postgres"
	"github.com/careslot/booking-api/internal/router"
	appointmentService "github.com/careslot/booking-api/internal/service/appointment"
	authService "github.com/careslot/booking-api/internal/service/auth"
	availabilityService "github.com/careslot/booking-api/internal/service/availability"
	scheduleService "github.com/careslot/booking-api/internal/service/schedule"
	"github.com/careslot/booking-api/pkg/auth"
	"github.com/careslot/booking-api/pkg/clock"
	"github.com/careslot/booking-api/pkg/logger"
	"github.com/careslot/booking-api/pkg/messaging/redis"
	"github.com/careslot/booking-api/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
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

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := slotCache.Init(ctx); err != nil {
		// The cache is best-effort: reads fall back to the database.
		appLogger.Warn("slot cache unavailable at startup", "error", err)
	}
	cancel()

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
	tokenRepo := postgres.NewTokenRepository(db)

	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, time.Duration(cfg.JWT.AccessExpireMins)*time.Minute)
	emailSvc := email.NewService(cfg.Email, appLogger)
	appMetrics := metrics.NewMetrics("booking")
	clk := clock.New()

	authSvc := authService.NewService(userRepo, tokenRepo, jwtSvc, emailSvc,
		time.Duration(cfg.JWT.ResetExpireHours)*time.Hour, appLogger)
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

	authMw := middleware.NewAuthMiddleware(authSvc)

	r := router.NewRouter(
		authMw,
		authHandler.NewHandler(authSvc),
		providerHandler.NewHandler(scheduleSvc, availabilitySvc, appointmentSvc, authSvc),
		appointmentHandler.NewHandler(appointmentSvc),
		health.NewHandler(db, slotCache),
		router.Config{
			RateLimitRPS:  100,
			RateBurst:     200,
			CORSConfig:    middleware.DefaultCORSConfig(),
			MetricsPrefix: "booking_api",
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		appLogger.Info("starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(err, "forced shutdown")
	}
	if err := slotCache.Teardown(shutdownCtx); err != nil {
		appLogger.Error(err, "cache teardown failed")
	}

	appLogger.Info("server stopped")
}
