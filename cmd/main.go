package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"chat-responder/handler"
	"chat-responder/internal/bootstrap"
	"chat-responder/internal/config"
	"chat-responder/internal/logging"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load("")
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	logger, closeLog, err := logging.New(cfg.Log, os.Stdout)
	if err != nil {
		slog.Error("failed to create logger", "err", err)
		os.Exit(1)
	}
	defer closeLog()
	slog.SetDefault(logger)

	// ---- Stores and service ----
	app, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build chat service", "err", err)
		os.Exit(1)
	}
	defer app.Close()

	// ---- Handler ----
	h, err := handler.NewHandler(app.Service)
	if err != nil {
		logger.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.WithLogger(logger).Handle)
}
