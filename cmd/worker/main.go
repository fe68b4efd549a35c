package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/kursadbilgin/housing-engine/internal/bootstrap"
	"github.com/kursadbilgin/housing-engine/internal/config"
	"github.com/kursadbilgin/housing-engine/internal/infra/postgresql"
	infraredis "github.com/kursadbilgin/housing-engine/internal/infra/redis"
	"github.com/kursadbilgin/housing-engine/internal/observability"
	"github.com/kursadbilgin/housing-engine/internal/queue"
	"github.com/kursadbilgin/housing-engine/internal/repository"
	"github.com/kursadbilgin/housing-engine/internal/service"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	deadlineScanLimit = 100
	shutdownTimeout   = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}
	if err := cfg.ValidateWorker(); err != nil {
		log.Fatal("invalid worker config: ", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel, "worker")
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

	broker, err := queue.NewRabbitMQ(cfg.RabbitMQURL, "housing-engine-worker")
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	defer broker.Close()

	metrics := observability.NewMetrics()

	audits := repository.NewGormUserNotificationRepo(db)
	gateway, err := bootstrap.NewDeliveryGateway(cfg, audits, rdb, logger, metrics)
	if err != nil {
		logger.Fatal("delivery gateway init failed", zap.Error(err))
	}

	worker, err := service.NewDispatchWorker(
		queue.NewRabbitMQConsumer(broker, cfg.WorkerConcurrency, logger),
		gateway,
		cfg.WorkerConcurrency,
		logger,
	)
	if err != nil {
		logger.Fatal("dispatch worker init failed", zap.Error(err))
	}
	worker.SetMetrics(metrics)

	// Expiry notices go straight through the gateway rather than back onto
	// the queue this process drains.
	inline, err := service.NewInlineSender(gateway)
	if err != nil {
		logger.Fatal("inline sender init failed", zap.Error(err))
	}
	services, err := bootstrap.NewServices(cfg, db, rdb, inline, logger, metrics)
	if err != nil {
		logger.Fatal("service initialization failed", zap.Error(err))
	}

	policy, err := service.ParseExpiryPolicy(cfg.DuplicateExpiryPolicy)
	if err != nil {
		logger.Fatal("invalid duplicate expiry policy", zap.Error(err))
	}
	scanner, err := service.NewDuplicateDeadlineScanner(
		repository.NewGormApplicationRepo(db),
		services.Lifecycle,
		policy,
		cfg.DuplicateScanInterval,
		deadlineScanLimit,
		logger,
	)
	if err != nil {
		logger.Fatal("duplicate deadline scanner init failed", zap.Error(err))
	}
	scanner.SetMetrics(metrics)

	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WorkerMetricsPort),
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, groupCtx := errgroup.WithContext(ctx)
	g.Go(func() error { return worker.Start(groupCtx) })
	g.Go(func() error { return scanner.Start(groupCtx) })
	g.Go(func() error {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	logger.Info("housing-engine worker started",
		zap.Int("concurrency", cfg.WorkerConcurrency),
		zap.String("expiryPolicy", cfg.DuplicateExpiryPolicy),
		zap.Duration("scanInterval", cfg.DuplicateScanInterval),
	)

	if err := g.Wait(); err != nil {
		logger.Error("worker stopped with error", zap.Error(err))
	}
	logger.Info("housing-engine worker stopped")
}
