// Package app wires the engine's collaborators from configuration. It is
// shared by the API server and the notifyctl CLI.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kursadbilgin/notify-engine/internal/config"
	"github.com/kursadbilgin/notify-engine/internal/infra/postgresql"
	"github.com/kursadbilgin/notify-engine/internal/infra/postgresql/migrations"
	infraredis "github.com/kursadbilgin/notify-engine/internal/infra/redis"
	"github.com/kursadbilgin/notify-engine/internal/message"
	"github.com/kursadbilgin/notify-engine/internal/monitor"
	"github.com/kursadbilgin/notify-engine/internal/observability"
	"github.com/kursadbilgin/notify-engine/internal/provider"
	"github.com/kursadbilgin/notify-engine/internal/queue"
	"github.com/kursadbilgin/notify-engine/internal/ratelimit"
	"github.com/kursadbilgin/notify-engine/internal/repository"
	"github.com/kursadbilgin/notify-engine/internal/service"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Engine holds the wired delivery engine and the infrastructure it owns.
type Engine struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *observability.Metrics

	DB    *gorm.DB
	SQLDB *sql.DB
	Redis goredis.UniversalClient
	MQ    *queue.RabbitMQ

	Endpoints  *repository.GormEndpointRepo
	Attempts   *repository.GormAttemptRepo
	Registry   *provider.Registry
	Delivery   *service.DeliveryService
	Dispatcher *service.Dispatcher
	Publisher  queue.Publisher

	monitorState monitor.StateStore
}

// Options selects optional infrastructure. Redis and RabbitMQ are only
// connected when their URL is configured.
type Options struct {
	Migrate  bool
	Redis    bool
	RabbitMQ bool
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Engine{Config: cfg, Logger: logger, Metrics: observability.NewMetrics()}

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	e.DB = db

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres underlying db init failed: %w", err)
	}
	e.SQLDB = sqlDB

	if opts.Migrate {
		if err := migrations.Migrate(db); err != nil {
			_ = e.Close()
			return nil, fmt.Errorf("database migrations failed: %w", err)
		}
	}

	var limiter ratelimit.RateLimiter = ratelimit.NewLocalLimiter(cfg.RateLimitPerSec)
	if opts.Redis && cfg.RedisURL != "" {
		rdb, err := infraredis.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			_ = e.Close()
			return nil, err
		}
		e.Redis = rdb

		redisLimiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.RateLimitPerSec)
		if err != nil {
			_ = e.Close()
			return nil, err
		}
		limiter = redisLimiter

		state, err := infraredis.NewMonitorStateStore(rdb)
		if err != nil {
			_ = e.Close()
			return nil, err
		}
		e.monitorState = state
	}

	if opts.RabbitMQ && cfg.RabbitMQURL != "" {
		mq, err := queue.NewRabbitMQ(ctx, cfg.RabbitMQURL, cfg.EventsQueue)
		if err != nil {
			_ = e.Close()
			return nil, err
		}
		e.MQ = mq
		e.Publisher = queue.NewRabbitMQPublisher(mq)
	}

	e.Endpoints = repository.NewGormEndpointRepo(db)
	e.Attempts = repository.NewGormAttemptRepo(db)

	httpClient := provider.NewHTTPClient(provider.NormalizeTimeout(cfg.AdapterTimeout()))
	e.Registry, err = provider.NewDefaultRegistry(httpClient, limiter)
	if err != nil {
		_ = e.Close()
		return nil, err
	}

	e.Delivery = service.NewDeliveryService(e.Attempts, cfg.RetryPolicy(), logger)
	e.Delivery.SetMetrics(e.Metrics)

	e.Dispatcher, err = service.NewDispatcher(e.Endpoints, e.Registry, e.Delivery, message.NewBuilder(), logger)
	if err != nil {
		_ = e.Close()
		return nil, err
	}
	e.Dispatcher.SetMetrics(e.Metrics)

	return e, nil
}

// EventWorker returns a worker consuming the events queue, or nil when
// RabbitMQ is not connected.
func (e *Engine) EventWorker() (*service.EventWorker, error) {
	if e.MQ == nil {
		return nil, nil
	}

	consumer := queue.NewRabbitMQConsumer(e.MQ, e.Config.EventWorkerConcurrency, e.Logger)
	worker, err := service.NewEventWorker(consumer, e.Dispatcher, e.Config.EventsQueue, e.Config.EventWorkerConcurrency, e.Logger)
	if err != nil {
		return nil, err
	}
	worker.SetMetrics(e.Metrics)
	return worker, nil
}

// Monitor returns the health monitor for the configured targets.
func (e *Engine) Monitor() (*monitor.Monitor, error) {
	configured, err := e.Config.Targets()
	if err != nil {
		return nil, err
	}

	targets := make([]monitor.Target, 0, len(configured))
	for _, t := range configured {
		targets = append(targets, monitor.Target{Name: t.Name, URL: t.URL})
	}

	m, err := monitor.New(e.Config.MonitorSchedule, targets, nil, e.monitorState, e.Dispatcher, e.Logger)
	if err != nil {
		return nil, err
	}
	m.SetMetrics(e.Metrics)
	return m, nil
}

func (e *Engine) Close() error {
	var errs []error
	if e.MQ != nil {
		errs = append(errs, e.MQ.Close())
	}
	if e.Redis != nil {
		errs = append(errs, e.Redis.Close())
	}
	if e.SQLDB != nil {
		errs = append(errs, e.SQLDB.Close())
	}
	return errors.Join(errs...)
}
