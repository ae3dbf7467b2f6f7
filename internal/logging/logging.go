// Package logging builds the process slog.Logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	console "github.com/phsym/console-slog"
	slogmulti "github.com/samber/slog-multi"

	"chat-responder/internal/config"
)

// New returns a logger writing to w in the configured format, plus a JSON
// copy to cfg.File when set. The returned close func releases the file.
func New(cfg config.Log, w io.Writer) (*slog.Logger, func() error, error) {
	level := parseLevel(cfg.Level)

	var primary slog.Handler
	switch cfg.Format {
	case "console":
		primary = console.NewHandler(w, &console.HandlerOptions{
			AddSource: level == slog.LevelDebug,
			Level:     level,
		})
	default:
		primary = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}

	if cfg.File == "" {
		return slog.New(primary), func() error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, nil, fmt.Errorf("logging: create log directory: %w", err)
	}
	file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("logging: open log file: %w", err)
	}

	handler := slogmulti.Fanout(
		primary,
		slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level}),
	)
	return slog.New(handler), file.Close, nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
