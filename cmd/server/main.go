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
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/iliyamo/agro-operations/internal/config"
	"github.com/iliyamo/agro-operations/internal/database"
	"github.com/iliyamo/agro-operations/internal/handler"
	"github.com/iliyamo/agro-operations/internal/logging"
	"github.com/iliyamo/agro-operations/internal/middleware"
	"github.com/iliyamo/agro-operations/internal/queue"
	"github.com/iliyamo/agro-operations/internal/repository"
	"github.com/iliyamo/agro-operations/internal/router"
	"github.com/iliyamo/agro-operations/internal/service"
	"github.com/iliyamo/agro-operations/internal/telemetry"
	"github.com/iliyamo/agro-operations/internal/utils"
)

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.Env)
	if cfg.UsesDefaultSecret() {
		log.Warn("JWT_SECRET not set, signing tokens with the development default")
	}

	shutdownTelemetry := telemetry.Setup(handler.ServiceName, handler.Version, log)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("db connect")
	}
	defer db.Close()
	if cfg.DBMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err := database.Migrate(ctx, db)
		cancel()
		if err != nil {
			log.WithError(err).Fatal("db migrate")
		}
	}

	rdb, err := config.NewRedisClient(config.LoadRedisConfig())
	if err != nil {
		log.WithError(err).Warn("redis unavailable, rate limiting and response cache disabled")
	} else {
		defer rdb.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	amqpCfg := config.LoadAMQPConfig()
	var events service.EventPublisher = service.NopPublisher{}
	if amqpCfg.Enabled {
		events = service.NewAMQPPublisher(amqpCfg)
		go func() {
			if err := queue.StartAuditConsumer(ctx, amqpCfg, log); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("audit consumer stopped")
			}
		}()
	}

	users := repository.NewUserRepo(db)
	tokens := utils.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	accounts := service.NewAccountService(users, tokens, cfg.BcryptCost, events, log)
	admin := service.NewUserAdminService(users, cfg.BcryptCost, events, log)

	seedCtx, seedCancel := context.WithTimeout(ctx, 10*time.Second)
	if _, err := accounts.EnsureAdministrator(seedCtx, service.AdminSeed{
		Email:          cfg.AdminEmail,
		IdentityNumber: cfg.AdminIdentity,
		Password:       cfg.AdminPassword,
	}); err != nil {
		log.WithError(err).Error("bootstrap administrator")
	}
	seedCancel()

	e := newEcho(cfg, log)
	metrics := middleware.NewMetrics(prometheus.NewRegistry())
	e.Use(metrics.Middleware())
	e.GET("/metrics", metrics.Handler())

	router.Register(e, router.Handlers{
		Auth:      handler.NewAuthHandler(accounts),
		Users:     handler.NewUserHandler(admin),
		Crops:     handler.NewCropHandler(repository.NewCropRepo(db)),
		Livestock: handler.NewLivestockHandler(repository.NewLivestockRepo(db)),
		Entries:   handler.NewLogEntryHandler(repository.NewLogEntryRepo(db)),
	}, router.Gates{
		Tokens:      tokens,
		Users:       users,
		GlobalLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig("RATE_LIMIT", config.GlobalRateLimitDefaults()), rdb, log),
		LoginLimit:  middleware.NewTokenBucket(config.LoadRateLimitConfig("LOGIN_RATE_LIMIT", config.LoginRateLimitDefaults()), rdb, log),
		Cache:       middleware.NewResponseCache(config.LoadCacheConfig(), rdb, log),
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelhttp.NewHandler(e, handler.ServiceName),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{"addr": server.Addr, "env": cfg.Env}).Info("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown")
	}
}

// newEcho builds the Echo instance with the error handler, the validator and
// the global middleware stack.
func newEcho(cfg config.Config, log *logrus.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.HTTPErrorHandler(log)
	e.Validator = handler.NewRequestValidator()

	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.AccessLog(log))
	e.Use(echomw.Recover())
	e.Use(echomw.Secure())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))
	e.Use(echomw.BodyLimit(cfg.BodyLimit))
	return e
}
