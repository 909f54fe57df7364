package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ehr/patientflow/internal/config"
	"github.com/ehr/patientflow/internal/domain/assignment"
	"github.com/ehr/patientflow/internal/domain/audit"
	"github.com/ehr/patientflow/internal/domain/billing"
	"github.com/ehr/patientflow/internal/domain/department"
	"github.com/ehr/patientflow/internal/domain/directory"
	"github.com/ehr/patientflow/internal/domain/flow"
	"github.com/ehr/patientflow/internal/domain/patient"
	"github.com/ehr/patientflow/internal/platform/auth"
	"github.com/ehr/patientflow/internal/platform/db"
	"github.com/ehr/patientflow/internal/platform/middleware"
	"github.com/ehr/patientflow/internal/platform/notification"
	"github.com/ehr/patientflow/internal/platform/telemetry"
	"github.com/ehr/patientflow/internal/platform/websocket"
)

// realtime is the notification transport: the retry queue plus the event
// publisher behind the websocket hub.
type realtime struct {
	queue  notification.Queue
	pub    websocket.EventPublisher
	checks []db.Check
	run    []func(ctx context.Context) error
	close  func() error
}

// newRealtime uses Redis when REDIS_URL is set so queued retries survive
// restarts and events reach clients connected to other instances.
func newRealtime(cfg *config.Config, hub *websocket.Hub, logger zerolog.Logger) (*realtime, error) {
	if cfg.RedisURL == "" {
		logger.Warn().Msg("REDIS_URL not set, using in-process notification queue")
		return &realtime{
			queue: notification.NewMemoryQueue(1024),
			pub:   hub,
			close: func() error { return nil },
		}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	relay := websocket.NewRedisRelay(client, hub, logger.With().Str("component", "relay").Logger())
	return &realtime{
		queue: notification.NewRedisQueue(client),
		pub:   relay,
		checks: []db.Check{{
			Name: "redis",
			Ping: func(ctx context.Context) error { return client.Ping(ctx).Err() },
		}},
		run:   []func(ctx context.Context) error{relay.Run},
		close: client.Close,
	}, nil
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Env)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: cfg.ServiceVersion,
		Endpoint:       cfg.OTLPEndpoint,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up tracing")
	}

	pool, err := db.NewPool(ctx, db.PoolConfig{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	hub := websocket.NewHub(logger)
	rt, err := newRealtime(cfg, hub, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up realtime transport")
	}
	defer rt.close() //nolint:errcheck

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(telemetry.Middleware(telemetry.Tracer()))
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", auth.DevUserHeader},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": cfg.ServiceVersion,
		})
	})
	e.GET("/health/ready", db.HealthHandler(pool, append([]db.Check{db.PoolCheck(pool)}, rt.checks...)...))

	var authn echo.MiddlewareFunc
	if cfg.IsDev() {
		logger.Warn().Msg("development auth enabled: every request runs as super-admin")
		authn = auth.DevAuthMiddleware()
	} else {
		authn = auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			SigningKey: []byte(cfg.AuthSigningKey),
		})
	}
	apiV1 := e.Group("/api/v1", authn)

	dispatcher := registerRoutes(apiV1, pool, rt, logger, cfg)
	websocket.NewHandler(hub, cfg.CORSOrigins).RegisterRoutes(e.Group("", authn))

	workers := cfg.NotifyWorkers
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		w := notification.NewWorker(dispatcher, rt.queue, logger)
		go func() { _ = w.Run(ctx) }()
	}
	for _, run := range rt.run {
		go func(run func(context.Context) error) {
			if err := run(ctx); err != nil {
				logger.Error().Err(err).Msg("background task stopped")
			}
		}(run)
	}

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("tracer shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// registerRoutes builds the Postgres-backed services and mounts their
// handlers. It returns the dispatcher so retry workers can share it.
func registerRoutes(api *echo.Group, pool *pgxpool.Pool, rt *realtime, logger zerolog.Logger, cfg *config.Config) *notification.Dispatcher {
	users := directory.NewService(directory.NewRepoPG(pool))
	registry := department.NewRegistry(department.NewRepoPG(pool), users, db.PoolRunner(pool), logger)
	patients := patient.NewRepoPG(pool)
	bills := billing.NewService(billing.NewRepoPG(pool))
	auditLog := audit.NewLog(audit.NewRepoPG(pool), logger)

	notifications := notification.NewRepo(pool)
	dispatcher := notification.NewDispatcher(notifications, users, rt.pub, rt.queue, cfg.NotifyRetry(), logger)

	engine := flow.NewEngine(flow.Deps{
		Patients:    patients,
		Assignments: assignment.NewRepoPG(pool),
		Departments: registry,
		Users:       users,
		Billing:     bills,
		Audit:       auditLog,
		Notifier:    dispatcher,
		Locker:      flow.NewPGLocker(pool),
		Tracer:      telemetry.Tracer(),
		Logger:      logger,
	})

	directory.NewHandler(users).RegisterRoutes(api)
	department.NewHandler(registry).RegisterRoutes(api)
	patient.NewHandler(patient.NewService(patients)).RegisterRoutes(api)
	billing.NewHandler(bills).RegisterRoutes(api)
	audit.NewHandler(auditLog).RegisterRoutes(api)
	notification.NewHandler(notification.NewService(notifications)).RegisterRoutes(api)
	flow.NewHandler(engine).RegisterRoutes(api)
	return dispatcher
}
