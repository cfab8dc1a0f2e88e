package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/kiosk-transaction-orchestrator/internal/config"
)

// NewLogger creates the process logger: JSON to stdout, tagged with the
// service name and the machine it runs on.
func NewLogger(cfg *config.Config) *slog.Logger {
	return newLogger(cfg, os.Stdout)
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level := ParseLevel(cfg.Logging.Level)

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	logger := slog.New(slog.NewJSONHandler(w, opts))
	if cfg.Application.Name != "" {
		logger = logger.With("service", cfg.Application.Name)
	}
	if cfg.Kiosk.MachineID != "" {
		logger = logger.With("machine_id", cfg.Kiosk.MachineID)
	}

	logger.Info("logger initialized", "level", level, "env", cfg.Application.Env)

	return logger
}

// ParseLevel maps a configured level name to a slog.Level, defaulting to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
