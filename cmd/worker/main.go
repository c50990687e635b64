package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/estate-intake/internal/bootstrap"
	"github.com/kirillkom/estate-intake/internal/config"
	"github.com/kirillkom/estate-intake/internal/core/domain"
	"github.com/kirillkom/estate-intake/internal/observability/logging"
	"github.com/kirillkom/estate-intake/internal/observability/metrics"
)

const serviceName = "worker"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, workerMetrics.Registry(), logger)
	if err != nil {
		logger.Error("bootstrap.failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if app.Landed == nil {
		logger.Error("worker.no_event_source", "kb_sync_backend", cfg.KBSyncBackend)
		os.Exit(1)
	}

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker.metrics.failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker.subscribed", "subject", cfg.NATSSubject)
	err = app.Landed.SubscribeDocumentLanded(ctx, func(handlerCtx context.Context, event domain.LandedEvent) error {
		if !event.LandedAt.IsZero() {
			workerMetrics.ObserveQueueLag(serviceName, time.Since(event.LandedAt))
		}
		indexCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()

		workerMetrics.StartIndex()
		start := time.Now()
		err := app.IndexUC.IndexLanded(indexCtx, event)
		workerMetrics.FinishIndex(serviceName, time.Since(start), err)
		return err
	})
	if err != nil {
		logger.Error("worker.subscribe.failed", "error", err)
		os.Exit(1)
	}
}
