package main

import (
	"log/slog"
	"os"
	"strings"

	coreerrors "github.com/davidahmann/jadegate/core/errors"
	"github.com/davidahmann/jadegate/core/projectconfig"
)

// loadProjectConfig reads the explicit --config path, or the default path
// when present. An explicit path that does not exist is an error.
func loadProjectConfig(path string) (projectconfig.Config, error) {
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = projectconfig.DefaultPath
	}
	configuration, err := projectconfig.Load(path, !explicit)
	if err != nil {
		return projectconfig.Config{}, coreerrors.Wrap(err, coreerrors.CategoryInvalidInput, "config_invalid", "fix the project config or JADEGATE_* environment overrides")
	}
	return configuration, nil
}

func newLogger(level string) *slog.Logger {
	var parsed slog.Level
	switch level {
	case "debug":
		parsed = slog.LevelDebug
	case "info":
		parsed = slog.LevelInfo
	case "error":
		parsed = slog.LevelError
	default:
		parsed = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parsed}))
}
