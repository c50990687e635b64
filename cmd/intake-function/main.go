package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/estate-intake/internal/adapters/cloudevent"
	"github.com/kirillkom/estate-intake/internal/bootstrap"
	"github.com/kirillkom/estate-intake/internal/config"
	"github.com/kirillkom/estate-intake/internal/infrastructure/storage/gcs"
	"github.com/kirillkom/estate-intake/internal/observability/logging"
)

var (
	handler *cloudevent.Handler
	once    sync.Once
	initErr error
)

func init() {
	functions.CloudEvent("IntakeDocument", intakeDocument)
}

// main serves the function locally. Deployed functions are started by the framework.
func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := funcframework.Start(port); err != nil {
		slog.Error("intake_function.start.failed", "error", err)
		os.Exit(1)
	}
}

func intakeDocument(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		handler, initErr = newHandler(context.Background())
	})
	if initErr != nil {
		slog.Error("intake_function.init.failed", "error", initErr)
		return initErr
	}
	return handler.Handle(ctx, e)
}

func newHandler(ctx context.Context) (*cloudevent.Handler, error) {
	cfg := config.Load()
	logger := logging.NewJSONLogger("intake-function", cfg.LogLevel)
	slog.SetDefault(logger)

	if cfg.StorageBackend != "gcs" {
		return nil, errors.New("intake function requires STORAGE_BACKEND=gcs")
	}
	app, err := bootstrap.New(ctx, cfg, prometheus.NewRegistry(), logger)
	if err != nil {
		return nil, err
	}
	store, ok := app.Storage.(*gcs.Storage)
	if !ok {
		app.Close()
		return nil, errors.New("intake function: storage is not gcs")
	}
	return cloudevent.NewHandler(store, app.Pipeline, store.Bucket(), logger), nil
}
