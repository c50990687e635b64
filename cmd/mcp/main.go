package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/estate-intake/internal/adapters/mcp"
	"github.com/kirillkom/estate-intake/internal/bootstrap"
	"github.com/kirillkom/estate-intake/internal/config"
	"github.com/kirillkom/estate-intake/internal/core/usecase"
	"github.com/kirillkom/estate-intake/internal/observability/logging"
)

const version = "0.1.0"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLoggerTo(os.Stderr, "mcp", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	policy, err := cfg.ClassificationPolicy()
	if err != nil {
		logger.Error("mcp.policy.failed", "error", err)
		os.Exit(1)
	}

	executor := bootstrap.NewExecutor(cfg, logger, nil)
	oracle, closeOracle, err := bootstrap.NewOracle(ctx, cfg, executor)
	if err != nil {
		logger.Error("mcp.oracle.failed", "error", err)
		os.Exit(1)
	}
	defer closeOracle()

	classifier := usecase.NewClassifyTextUseCase(
		usecase.NewClassifyPrompter(oracle),
		usecase.NewValidator(policy, nil),
	)

	logger.Info("mcp.serving", "transport", "stdio", "oracle", cfg.OracleBackend)
	if err := server.ServeStdio(mcpadapter.NewServer(classifier, version)); err != nil {
		logger.Error("mcp.serve.failed", "error", err)
		os.Exit(1)
	}
}
