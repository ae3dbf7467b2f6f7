// Command chat is an interactive terminal front end for the responder.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"chat-responder/internal/bootstrap"
	"chat-responder/internal/config"
	"chat-responder/internal/logging"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("")
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	if os.Getenv("LOG_FORMAT") == "" {
		cfg.Log.Format = "console"
	}
	if os.Getenv("LOG_LEVEL") == "" {
		cfg.Log.Level = "warn"
	}

	logger, closeLog, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		slog.Error("failed to create logger", "err", err)
		os.Exit(1)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build chat service", "err", err)
		closeLog()
		os.Exit(1)
	}
	defer app.Close()

	if err := newREPL(app.Service, os.Stdout, logger).run(ctx, os.Stdin); err != nil {
		logger.Error("chat ended", "err", err)
	}
}
