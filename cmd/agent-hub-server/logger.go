package main

import (
	"log/slog"
	"os"
)

type LogConfig struct {
	Level string
}

// initLogger installs the process-wide text logger. Unknown level
// strings fall back to INFO.
func initLogger(logLevel string) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		level = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
