package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	apphttp "fintrack/internal/http"
	applog "fintrack/internal/log"
	"fintrack/internal/store"
)

const loadTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	be := cli.MustOpenBackend(context.Background(), logger, cfg)

	st := store.New(be.Store, store.Config{
		PersistTimeout: cfg.PersistTimeout,
		FailureHistory: cfg.FailureHistory,
		Logger:         logger,
	})

	amqpClient := connectAMQP(logger, cfg)
	if amqpClient != nil {
		st.AddSink(amqpClient)
	}

	events, stopEvents := st.Subscribe(64)
	go logPersistFailures(logger, events)

	// The server starts only after the initial load; failed reads leave
	// defaults in place and are reported here.
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), loadTimeout)
	if err := st.Load(loadCtx); err != nil {
		logger.Warn("Failed to load data from storage, starting with defaults", applog.FieldError, err)
	}
	cancelLoad()

	srv := apphttp.NewServer(":"+cfg.Port, st, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Location:           cfg.Location(),
		Logger:             logger,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 20 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error",
				applog.NewFields().WithOperation(applog.OpShutdown).WithError(err).ToSlice()...)
		}
		// Pending persists still reach the backend and the event sinks.
		if err := st.Close(ctx); err != nil {
			logger.Warn("Persists still in flight at shutdown", applog.FieldError, err)
		}
		stopEvents()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", applog.FieldError, err)
			}
		}
		if err := be.Close(); err != nil {
			logger.Warn("Backend close error", applog.FieldError, err)
		}
	})

	logger.Info("Starting fintrack server",
		"port", cfg.Port,
		applog.FieldBackend, cfg.DataBackend,
		"amqp_enabled", amqpClient != nil)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

// connectAMQP returns nil when AMQP is not configured or unreachable; the
// API keeps working without an event transport.
func connectAMQP(logger *slog.Logger, cfg *config.Config) *amqp.Client {
	logger = applog.WithComponent(logger, applog.ComponentAMQP)
	if cfg.AMQPURL == "" {
		logger.Info("AMQP disabled - no AMQP_URL provided")
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client, persist events stay local", applog.FieldError, err)
		return nil
	}
	logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client
}

func logPersistFailures(logger *slog.Logger, events <-chan store.PersistEvent) {
	logger = applog.WithComponent(logger, applog.ComponentStore)
	for ev := range events {
		if ev.Status != store.StatusFailed {
			continue
		}
		logger.Warn("Data not saved to storage, retry with POST /api/sync/"+ev.Key,
			applog.NewFields().WithPersist(ev.Key, ev.Revision).WithError(ev.Err).ToSlice()...)
	}
}
