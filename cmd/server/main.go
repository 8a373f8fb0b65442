package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pos-service/config"
	"pos-service/internal/api"
	"pos-service/internal/broker"
	"pos-service/internal/redisclient"
	"pos-service/internal/service"
	"pos-service/internal/storage"
	"pos-service/internal/store"
	"pos-service/internal/util"
	"pos-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Observ.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting POS service", zap.String("env", cfg.Server.Env))

	if cfg.Observ.TracingEnabled {
		tp, err := util.InitTracer("pos-service", cfg.Server.Env, cfg.Observ.JaegerEndpoint)
		if err != nil {
			logger.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				logger.Error("Error shutting down tracer", zap.Error(err))
			}
		}()
	}

	var persister service.Persister
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		db, err := store.NewStore(cfg.Database.URL)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		if err := db.EnsureSchema(context.Background()); err != nil {
			logger.Fatal("Failed to prepare database schema", zap.Error(err))
		}
		logger.Info("Database connected")
		persister = db
	case config.BackendJSON:
		js := storage.NewJSONStore(cfg.Storage.SnapshotPath)
		logger.Info("Using JSON snapshot", zap.String("path", js.Path()))
		persister = js
	default:
		logger.Fatal("Unknown storage backend", zap.String("backend", cfg.Storage.Backend))
	}

	ledgerOpts := []service.Option{}
	handlerOpts := []api.Option{}

	if cfg.Redis.Enabled {
		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		logger.Info("Redis connected")

		ttl := time.Duration(cfg.Business.IdempotencyTTLSeconds) * time.Second
		ledgerOpts = append(ledgerOpts, service.WithStockMirror(redisClient))
		handlerOpts = append(handlerOpts,
			api.WithIdempotency(redisClient, ttl),
			api.WithReadinessCheck(redisClient))
	}

	var producer *broker.Producer
	if cfg.Kafka.Enabled {
		producer = broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicSales)
		defer producer.Close()
		logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicSales))
		ledgerOpts = append(ledgerOpts, service.WithPublisher(broker.NewEventPublisher(producer)))
	}

	ctx := context.Background()
	ledger, err := service.NewLedger(ctx, persister, ledgerOpts...)
	if err != nil {
		logger.Fatal("Failed to load ledger", zap.Error(err))
	}

	if err := ledger.SyncStockMirror(ctx); err != nil {
		logger.Warn("Failed to sync stock to Redis", zap.Error(err))
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var restockWorker *worker.RestockWorker
	if cfg.Kafka.Enabled {
		restockConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicRestock, cfg.Kafka.ConsumerGroup)
		restockWorker = worker.NewRestockWorker(restockConsumer, ledger)
		go func() {
			if err := restockWorker.Start(workerCtx); err != nil {
				logger.Error("Restock worker error", zap.Error(err))
			}
		}()
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(ledger, handlerOpts...)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if restockWorker != nil {
		if err := restockWorker.Stop(); err != nil {
			logger.Error("Failed to stop restock worker", zap.Error(err))
		}
	}

	if err := ledger.Save(shutdownCtx); err != nil {
		logger.Error("Failed to save ledger on exit", zap.Error(err))
	}

	logger.Info("Server exited")
}
