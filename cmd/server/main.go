package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/notifyhub/notification-dispatch/internal/api"
	"github.com/notifyhub/notification-dispatch/internal/api/handler"
	"github.com/notifyhub/notification-dispatch/internal/channel"
	"github.com/notifyhub/notification-dispatch/internal/config"
	"github.com/notifyhub/notification-dispatch/internal/db"
	"github.com/notifyhub/notification-dispatch/internal/domain"
	"github.com/notifyhub/notification-dispatch/internal/metrics"
	"github.com/notifyhub/notification-dispatch/internal/queue"
	"github.com/notifyhub/notification-dispatch/internal/repository"
	"github.com/notifyhub/notification-dispatch/internal/service"
	"github.com/notifyhub/notification-dispatch/internal/worker"
)

func main() {
	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		boot, _ := zap.NewProduction()
		boot.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		boot, _ := zap.NewProduction()
		boot.Fatal("failed to build logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()
	checks := map[string]handler.Check{}

	// ---- record store ----
	var repo repository.NotificationRepository
	switch cfg.StoreBackend {
	case config.BackendMemory:
		logger.Warn("using in-memory record store; data is lost on restart")
		repo = repository.NewMemoryNotificationRepository()
	default:
		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pool.Close()

		if err := db.Migrate(cfg.DatabaseURL, db.DefaultMigrationsDir); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
		logger.Info("database migrations applied")

		repo = repository.NewPgNotificationRepository(pool)
		checks["database"] = pool.Ping
	}

	// ---- queue transport ----
	var transport queue.Transport
	switch cfg.QueueBackend {
	case config.BackendMemory:
		logger.Warn("using in-memory queue; jobs are lost on restart")
		transport = queue.NewMemoryTransport(queue.DefaultMemoryCapacity)
	default:
		rdb, err := queue.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()

		transport = queue.NewRedisTransport(rdb)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	// ---- metrics ----
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// ---- dispatcher ----
	dispatcher := worker.NewDispatcher(repo, transport, senders(cfg, logger), worker.Config{
		QueueName:   cfg.QueueName,
		MaxAttempts: cfg.MaxAttempts,
		PopTimeout:  cfg.PopTimeout,
	}, logger.Named("dispatcher"), m.WorkerHooks())
	runner := worker.NewRunner(dispatcher)
	runner.Start(ctx)

	svc := service.NewNotificationService(repo, transport, cfg.QueueName, runner, logger.Named("service"))

	// ---- HTTP server ----
	router := api.NewRouter(svc, checks, reg, cfg.JWTSecret, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Stop popping; the in-flight job, if any, runs to completion.
	runner.Stop()
	waitOrTimeout(runner.Wait, cfg.ShutdownTimeout, logger)

	logger.Info("server stopped cleanly")
}

// senders builds the per-type registry. A channel without provider
// settings gets the logging sender so local runs still complete.
func senders(cfg *config.Config, logger *zap.Logger) channel.Registry {
	var email, push channel.Sender

	if cfg.SMTPHost != "" {
		email = channel.NewEmailSender(channel.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			Timeout:  cfg.SMTPTimeout,
		})
	} else {
		logger.Warn("SMTP_HOST not set, email delivery is simulated")
		email = channel.NewLogSender("email", logger)
	}

	if cfg.PushProviderURL != "" {
		push = channel.NewPushSender(cfg.PushProviderURL, cfg.PushProviderKey, cfg.PushTimeout)
	} else {
		logger.Warn("PUSH_PROVIDER_URL not set, push delivery is simulated")
		push = channel.NewLogSender("push", logger)
	}

	return channel.Registry{
		domain.TypeEmail: channel.NewThrottled(email, cfg.SendRateLimit),
		domain.TypePush:  channel.NewThrottled(push, cfg.SendRateLimit),
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

func waitOrTimeout(wait func(), timeout time.Duration, logger *zap.Logger) {
	done := make(chan struct{})
	go func() {
		wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		logger.Warn("dispatcher did not stop before shutdown timeout")
	}
}
