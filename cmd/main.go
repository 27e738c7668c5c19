package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"imagebatch/internal/batch"
	"imagebatch/internal/blob"
	"imagebatch/internal/cache"
	"imagebatch/internal/logger"
	"imagebatch/internal/models"
	"imagebatch/internal/notify"
	"imagebatch/internal/queue"
	"imagebatch/internal/server"
	"imagebatch/internal/storage"
	"imagebatch/internal/transform"
)

const (
	shutdownTimeout = 10 * time.Second
	memoryCacheSize = 10000
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the yaml config file")
	flag.Parse()

	cfg, err := models.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Log.Fatal("failed to init storage", zap.Error(err))
	}
	defer store.Close()

	blobs, err := blob.NewLocalStore(cfg.StoragePath, cfg.BaseURL)
	if err != nil {
		logger.Log.Fatal("failed to init blob store", zap.Error(err))
	}

	unit := transform.NewUnit(blobs, cfg.FetchTimeout)
	rows := batch.NewRowProcessor(unit, store, cfg.URLWorkers)

	var opts batch.Options
	if wh := notify.NewWebhook(cfg.WebhookURL); wh != nil {
		opts.Notifier = wh
	}

	var consumer *queue.Consumer
	if cfg.Async() {
		producer := queue.NewProducer(cfg.KafkaBroker, cfg.KafkaTopic)
		defer producer.Close()
		opts.Queue = producer
		consumer = queue.NewConsumer(cfg.KafkaBroker, cfg.KafkaTopic)
	}

	orch := batch.NewOrchestrator(store, rows, opts)

	// Start Kafka consumer in background
	consumerDone := make(chan struct{})
	if consumer != nil {
		go func() {
			defer close(consumerDone)
			defer consumer.Close()
			if err := consumer.Run(ctx, orch.HandleJob); err != nil {
				logger.Log.Error("consumer stopped", zap.Error(err))
			}
		}()
	} else {
		close(consumerDone)
	}

	srv := server.NewServer(cfg, orch, batch.NewReader(store), store)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Log.Info("shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Log.Error("server shutdown", zap.Error(err))
	}

	cancel()
	<-consumerDone
}

// openStore picks Postgres when a DSN is configured and wraps the result with
// the status cache.
func openStore(ctx context.Context, cfg *models.Config) (storage.Store, error) {
	var inner storage.Store
	if cfg.DatabaseURL != "" {
		pg, err := storage.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		inner = pg
	} else {
		logger.Log.Warn("DATABASE_URL not set, using in-memory storage")
		inner = storage.NewMemory()
	}

	var c cache.Client
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			inner.Close()
			return nil, err
		}
		c = rc
	} else {
		if cfg.Async() {
			logger.Log.Warn("REDIS_ADDR not set in async mode; status reads on other instances may lag by status_cache_ttl")
		}
		c = cache.NewMemoryClient(memoryCacheSize)
	}

	return storage.NewCachedStore(inner, c, cfg.StatusCacheTTL), nil
}
