package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/linker/adapters/authchain"
	"github.com/layer-3/linker/adapters/catalyst"
	"github.com/layer-3/linker/adapters/events"
	"github.com/layer-3/linker/adapters/metrics"
	"github.com/layer-3/linker/internal/config"
	"github.com/layer-3/linker/internal/job"
	"github.com/layer-3/linker/internal/logger"
	"github.com/layer-3/linker/service"
	transport "github.com/layer-3/linker/transport/http"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logs, err := logger.New(logger.Config{Level: cfg.LogLevel, Environment: cfg.Environment})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logs.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis is optional; without it events stay in process
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logs.Fatal("Failed to parse Redis URL", zap.Error(err))
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
	}

	infra, err := newBackends(cfg, redisClient, events.NewZapLoggerAdapter(logs.Named("watermill")))
	if err != nil {
		logs.Fatal("Failed to create backends", zap.Error(err))
	}
	defer infra.publisher.Close()

	eventPub := events.NewWatermillPublisher(infra.publisher)
	promMetrics := metrics.New()

	secretStore, err := newSecretStore(ctx, cfg, logs.Named("secrets"))
	if err != nil {
		logs.Fatal("Failed to create secret store", zap.Error(err))
	}

	registry := service.NewAuthorizationRegistry(
		newGrantsSource(cfg, infra, logs.Named("grants")),
		cfg.Environment,
		logs.Named("authorizations"),
		service.WithRefreshObserver(promMetrics),
		service.WithRefreshPublisher(eventPub),
	)
	if err := registry.Refresh(ctx); err != nil {
		logs.Warn("Initial authorizations load failed, serving with an empty list", zap.Error(err))
	}

	refreshJob := job.NewPeriodic("authorizations", cfg.AuthorizationsRefresh, registry.Refresh, logs.Named("job"))
	refreshJob.Start(ctx)

	content := catalyst.NewClient(cfg.CatalystDomain, logs.Named("catalyst"),
		catalyst.WithUploadTimeout(cfg.UploadTimeout),
		catalyst.WithRequestTimeout(cfg.HTTPClientTimeout),
	)

	proxy := service.NewUploadProxy(secretStore, content, cfg.SecretID, logs.Named("upload")).
		WithTimeouts(cfg.HTTPClientTimeout, cfg.UploadTimeout)

	entities := service.NewEntitiesService(
		service.NewAuthChainValidator(authchain.NewVerifier()),
		registry,
		proxy,
		promMetrics,
		eventPub,
		logs.Named("entities"),
	)

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := transport.SetupRouter(transport.RouterConfig{
		Entities: entities,
		Content:  content,
		Registry: registry,
		Metrics:  promMetrics,
		Logger:   logs.Named("http"),
		Version:  version,
	})

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logs.Info("Starting server", zap.String("addr", server.Addr), zap.String("environment", cfg.Environment))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logs.Error("Server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logs.Info("Shutting down")

	<-refreshJob.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logs.Error("Failed to shut down server", zap.Error(err))
	}
}
