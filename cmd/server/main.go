package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/event-seating/internal/cache"
	"github.com/iliyamo/event-seating/internal/config"
	"github.com/iliyamo/event-seating/internal/database"
	"github.com/iliyamo/event-seating/internal/handler"
	"github.com/iliyamo/event-seating/internal/logger"
	"github.com/iliyamo/event-seating/internal/middleware"
	"github.com/iliyamo/event-seating/internal/queue"
	"github.com/iliyamo/event-seating/internal/repository"
	"github.com/iliyamo/event-seating/internal/router"
	"github.com/iliyamo/event-seating/internal/service"
	"github.com/iliyamo/event-seating/internal/venue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	log.Info("starting", zap.String("env", cfg.Env), zap.String("port", cfg.Port))

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()
	if cfg.DBMigrate {
		if err := database.Migrate(db, log); err != nil {
			log.Fatal("database migration failed", zap.Error(err))
		}
	}

	// Redis is optional: without it the seat map is not cached and writes
	// are not rate limited.
	var rdb *redis.Client
	if rdb, err = config.NewRedisClient(config.LoadRedisConfig()); err != nil {
		log.Warn("redis unavailable, running without cache and rate limit", zap.Error(err))
		rdb = nil
	} else {
		defer rdb.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog := venue.Default()
	eventRepo := repository.NewEventRepo(db)
	assignmentRepo := repository.NewSeatAssignmentRepo(db)
	notificationRepo := repository.NewNotificationRepo(db)
	registrationRepo := repository.NewRegistrationRepo(db)

	deps := service.SeatingDeps{
		Catalog:   catalog,
		Store:     assignmentRepo,
		Publisher: queue.NewPublisher(cfg.AMQPURL, log.Named("publisher")),
		Logger:    log.Named("seating"),
	}
	if seatMaps := cache.NewSeatMapCache(config.LoadCacheConfig(), rdb); seatMaps != nil {
		deps.Cache = seatMaps
	}
	seating := service.NewSeatingService(deps)
	events := service.NewEventService(catalog, eventRepo, log.Named("events"))
	registrations := service.NewRegistrationService(registrationRepo, log.Named("registrations"))

	consumer := queue.NewConsumer(cfg.AMQPURL, notificationRepo, log.Named("consumer"))
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("notification consumer stopped", zap.Error(err))
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(log.Named("http")))
	e.Use(echomw.Recover())

	h := router.Handlers{
		Venues:        handler.NewVenueHandler(catalog),
		Events:        handler.NewEventHandler(events, log),
		Assignments:   handler.NewSeatAssignmentHandler(seating, log),
		Registrations: handler.NewRegistrationHandler(registrations, log),
	}
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log.Named("ratelimit"))
	router.RegisterRoutes(e, h)
	router.RegisterReader(e, h, cfg.JWTSecret)
	router.RegisterFaculty(e, h, cfg.JWTSecret, limiter)
	router.RegisterStudent(e, h, cfg.JWTSecret, limiter)

	go func() {
		addr := ":" + cfg.Port
		log.Info("http server listening", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", zap.Error(err))
	}
	select {
	case <-consumerDone:
	case <-shutdownCtx.Done():
		log.Warn("notification consumer did not stop in time")
	}
	log.Info("stopped")
}
