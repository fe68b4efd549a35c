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
	"github.com/kursadbilgin/housing-engine/internal/bootstrap"
	"github.com/kursadbilgin/housing-engine/internal/config"
	"github.com/kursadbilgin/housing-engine/internal/handler"
	"github.com/kursadbilgin/housing-engine/internal/infra/postgresql"
	"github.com/kursadbilgin/housing-engine/internal/infra/postgresql/migrations"
	infraredis "github.com/kursadbilgin/housing-engine/internal/infra/redis"
	"github.com/kursadbilgin/housing-engine/internal/observability"
	"github.com/kursadbilgin/housing-engine/internal/queue"
	"github.com/kursadbilgin/housing-engine/internal/repository"
	"github.com/kursadbilgin/housing-engine/internal/service"
	"github.com/kursadbilgin/housing-engine/internal/transport"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel, "api")
	if err != nil {
		log.Fatal("failed to initialize logger: ", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgresql.NewPostgres(ctx, cfg.DatabaseDSN, postgresql.PoolOptions{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
		LogLevel:     cfg.LogLevel,
	})
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	metrics := observability.NewMetrics()
	checks := []handler.ReadinessCheck{handler.PostgresCheck(sqlDB), handler.RedisCheck(rdb)}

	var sender service.Sender
	switch cfg.DispatchMode {
	case config.DispatchQueue:
		broker, err := queue.NewRabbitMQ(cfg.RabbitMQURL, "housing-engine-api")
		if err != nil {
			logger.Fatal("rabbitmq initialization failed", zap.Error(err))
		}
		defer broker.Close()

		sender, err = service.NewQueuedSender(queue.NewRabbitMQPublisher(broker))
		if err != nil {
			logger.Fatal("queued sender init failed", zap.Error(err))
		}
		checks = append(checks, handler.ReadinessCheck{Name: "rabbitmq", Ping: broker.Ping})
	default:
		audits := repository.NewGormUserNotificationRepo(db)
		gateway, err := bootstrap.NewDeliveryGateway(cfg, audits, rdb, logger, metrics)
		if err != nil {
			logger.Fatal("delivery gateway init failed", zap.Error(err))
		}
		sender, err = service.NewInlineSender(gateway)
		if err != nil {
			logger.Fatal("inline sender init failed", zap.Error(err))
		}
	}

	services, err := bootstrap.NewServices(cfg, db, rdb, sender, logger, metrics)
	if err != nil {
		logger.Fatal("service initialization failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		AppName:      "housing-engine",
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(transport.RequestContext())
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, checks...)
	handler.RegisterMetricsRoute(app, metrics)
	if err := handler.RegisterApplicationRoutes(app, services.Lifecycle); err != nil {
		logger.Fatal("application routes init failed", zap.Error(err))
	}
	if err := handler.RegisterNotificationRoutes(app, services.Notifications); err != nil {
		logger.Fatal("notification routes init failed", zap.Error(err))
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	}()

	logger.Info("housing-engine api started",
		zap.Int("port", cfg.APIPort),
		zap.String("dispatchMode", cfg.DispatchMode),
		zap.String("emailTransport", cfg.EmailTransport),
		zap.Bool("emailEnabled", cfg.EmailEnabled),
	)

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("http server stopped", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}
	logger.Info("housing-engine api stopped")
}
