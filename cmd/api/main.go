package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/joho/godotenv"
	"github.com/kursadbilgin/notify-engine/internal/app"
	"github.com/kursadbilgin/notify-engine/internal/config"
	"github.com/kursadbilgin/notify-engine/internal/handler"
	"github.com/kursadbilgin/notify-engine/internal/observability"
	"github.com/kursadbilgin/notify-engine/internal/transport"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger: ", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine, err := app.New(ctx, cfg, logger, app.Options{Migrate: true, Redis: true, RabbitMQ: true})
	if err != nil {
		logger.Fatal("engine initialization failed", zap.Error(err))
	}
	defer engine.Close() //nolint:errcheck

	worker, err := engine.EventWorker()
	if err != nil {
		logger.Fatal("event worker initialization failed", zap.Error(err))
	}
	healthMonitor, err := engine.Monitor()
	if err != nil {
		logger.Fatal("health monitor initialization failed", zap.Error(err))
	}

	server, err := newServer(engine)
	if err != nil {
		logger.Fatal("http server initialization failed", zap.Error(err))
	}

	g, groupCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("notify-engine api started", zap.Int("port", cfg.APIPort))
		return server.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	})
	g.Go(func() error {
		<-groupCtx.Done()
		return server.ShutdownWithTimeout(shutdownTimeout)
	})
	g.Go(func() error {
		return healthMonitor.Start(groupCtx)
	})
	if worker != nil {
		g.Go(func() error {
			return worker.Start(groupCtx)
		})
	} else {
		logger.Info("RABBITMQ_URL not set, queued events are disabled")
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("notify-engine stopped with error", zap.Error(err))
		return
	}
	logger.Info("notify-engine stopped")
}

func newServer(engine *app.Engine) (*fiber.App, error) {
	server := fiber.New(fiber.Config{
		ErrorHandler:          transport.ErrorHandler(engine.Logger),
		DisableStartupMessage: true,
	})
	server.Use(transport.CorrelationID(), engine.Metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(server, engine.SQLDB, engine.Redis)
	server.Get("/metrics", adaptor.HTTPHandler(engine.Metrics.Handler()))

	eventHandler, err := handler.NewEventHandler(engine.Dispatcher, engine.Publisher, engine.Config.EventsQueue)
	if err != nil {
		return nil, err
	}
	endpointHandler, err := handler.NewEndpointHandler(engine.Endpoints, engine.Attempts)
	if err != nil {
		return nil, err
	}

	var v1 fiber.Router
	if secret := engine.Config.AdminJWTSecret; secret != "" {
		v1 = server.Group("/v1", handler.AdminAuth(secret))
	} else {
		engine.Logger.Warn("ADMIN_JWT_SECRET not set, admin routes are unauthenticated")
		v1 = server.Group("/v1")
	}
	handler.RegisterEventRoutes(v1, eventHandler)
	handler.RegisterEndpointRoutes(v1, endpointHandler)

	return server, nil
}
