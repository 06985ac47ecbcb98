package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/coworking-space-reservation/internal/config"
	"github.com/iliyamo/coworking-space-reservation/internal/database"
	"github.com/iliyamo/coworking-space-reservation/internal/handler"
	"github.com/iliyamo/coworking-space-reservation/internal/logger"
	"github.com/iliyamo/coworking-space-reservation/internal/middleware"
	"github.com/iliyamo/coworking-space-reservation/internal/model"
	"github.com/iliyamo/coworking-space-reservation/internal/queue"
	"github.com/iliyamo/coworking-space-reservation/internal/repository"
	"github.com/iliyamo/coworking-space-reservation/internal/router"
	"github.com/iliyamo/coworking-space-reservation/internal/service"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, "coworking-api")
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.DBMigrate {
		mctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := database.Migrate(mctx, db)
		cancel()
		if err != nil {
			log.Fatal("migrate schema", zap.Error(err))
		}
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable; cache and rate limiting disabled")
	} else {
		defer rdb.Close()
	}

	var events handler.EventPublisher
	if cfg.EventsEnabled {
		events = service.NewPublisher(cfg.AMQPURL, true, log)
		go func() {
			if err := queue.StartAuditConsumer(ctx, cfg.AMQPURL, cfg.AuditLogDir, log); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit consumer stopped", zap.Error(err))
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = model.Validator{}
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: func() string { return uuid.NewString() }}))
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.Secure())
	e.Use(echomw.CORS())
	e.Use(echomw.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.ReadToken(cfg.JWTSecret))
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log))

	users := repository.NewUserRepo(db)
	spaces := repository.NewCoworkingSpaceRepo(db)
	reservations := repository.NewReservationRepo(db)
	stats := repository.NewReservationStats(db)
	bans := repository.NewBanIssueRepo(db)
	appeals := repository.NewBanAppealRepo(db)

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, bans, log), cfg.JWTSecret)
	router.RegisterUsers(e, handler.NewUserHandler(users, log), cfg.JWTSecret)
	cacheCfg := config.LoadCacheConfig()
	listing := middleware.NewCachePurger(cacheCfg, rdb, router.SpacesPath, log)
	router.RegisterCoworkingSpaces(e, handler.NewCoworkingSpaceHandler(spaces, stats, listing, log), cfg.JWTSecret,
		middleware.NewRedisCache(cacheCfg, rdb, log))
	router.RegisterReservations(e, handler.NewReservationHandler(reservations, spaces, events, log), cfg.JWTSecret)
	router.RegisterBans(e, handler.NewBanHandler(bans, appeals, events, log), cfg.JWTSecret)

	go func() {
		addr := ":" + cfg.Port
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}
