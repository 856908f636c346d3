package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/streadway/amqp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/forthrightphysio-crypto/pushrelay/internal/config"
	"github.com/forthrightphysio-crypto/pushrelay/internal/consumer"
	"github.com/forthrightphysio-crypto/pushrelay/internal/repository"
	"github.com/forthrightphysio-crypto/pushrelay/internal/routes"
	"github.com/forthrightphysio-crypto/pushrelay/internal/services"
	"github.com/forthrightphysio-crypto/pushrelay/internal/storage"
	"github.com/forthrightphysio-crypto/pushrelay/internal/streaming"
	"github.com/forthrightphysio-crypto/pushrelay/pkg/logger"
	"github.com/forthrightphysio-crypto/pushrelay/pkg/metrics"
	"github.com/forthrightphysio-crypto/pushrelay/pkg/retry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logr := logger.New(cfg.LogLevel)
	logr.Info("starting relay service", slog.String("app", cfg.AppName))

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		logr.Error("failed to connect database", slog.Any("error", err))
		os.Exit(1)
	}

	jobStore, err := repository.NewJobStore(db, cfg.JobTable)
	if err != nil {
		logr.Error("failed to prepare job store", slog.Any("error", err))
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
	registry := repository.NewTokenRegistry(rdb)
	defer registry.Close()

	blobStore, err := storage.NewMinioStore(storage.Config{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
	})
	if err != nil {
		logr.Error("failed to construct blob store", slog.Any("error", err))
		os.Exit(1)
	}

	metricsCollector := metrics.New()
	fcmProvider := services.NewFCMProvider(cfg.FCMServerKey, cfg.FCMEndpoint, cfg.ProviderTimeout, logr)
	dispatcher := services.NewDispatcher(fcmProvider, registry, metricsCollector, logr)
	scheduler := services.NewScheduler(jobStore, dispatcher, registry, metricsCollector, logr, cfg.ScheduleZone)
	responder := streaming.NewResponder(blobStore, metricsCollector, logr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Re-arm persisted jobs before accepting traffic. The database may still
	// be coming up alongside us, so the recovery read retries with backoff.
	retryCfg := retry.Config{
		MaxAttempts:    cfg.RetryMaxAttempts,
		InitialBackoff: cfg.RetryInitialBackoff,
		MaxBackoff:     cfg.RetryMaxBackoff,
		OnRetry: func(attempt int, err error) {
			logr.Warn("job recovery retry", slog.Int("attempt", attempt), slog.Any("error", err))
		},
	}
	if err := retry.Do(ctx, retryCfg, scheduler.Recover); err != nil {
		logr.Error("failed to recover scheduled jobs", slog.Any("error", err))
		os.Exit(1)
	}

	handlers := routes.NewHandlers(dispatcher, scheduler, registry, responder, metricsCollector, logr)
	httpSrv := startHTTPServer(cfg.HTTPPort, handlers.NewRouter(), logr)

	if cfg.RabbitURL != "" {
		conn, err := amqp.Dial(cfg.RabbitURL)
		if err != nil {
			logr.Error("failed to connect rabbitmq", slog.Any("error", err))
			os.Exit(1)
		}
		defer conn.Close()

		base := consumer.NewBaseConsumer(conn, cfg.SendQueue, cfg.DeadLetterQueue, cfg.PrefetchCount, cfg.WorkerCount, logr)
		relayConsumer := consumer.NewRelayConsumer(base, dispatcher, scheduler, registry, logr, cfg.RetryMaxAttempts)
		if err := relayConsumer.Start(ctx); err != nil {
			logr.Error("relay consumer exited", slog.Any("error", err))
		}
	} else {
		<-ctx.Done()
	}

	scheduler.Stop()
	shutdownHTTP(httpSrv, logr)
	logr.Info("relay service stopped")
}

func startHTTPServer(port string, handler http.Handler, logr *slog.Logger) *http.Server {
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: handler,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Error("http server error", slog.Any("error", err))
		}
	}()
	return srv
}

func shutdownHTTP(srv *http.Server, logr *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("failed to shutdown http server", slog.Any("error", err))
	}
}
