package app

import (
	"fmt"
	"io"
	"log/slog"
)

// parseLevel maps a configured level name to a slog.Level. Names are
// case-insensitive and may carry an offset, as in "warn+2".
func parseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: must be 'debug', 'info', 'warn', or 'error'", name)
	}
	return level, nil
}

// newLogger builds the app's own logger from cfg. The global slog logger is
// left alone. An unparsable level falls back to info.
func newLogger(cfg *Config, outW io.Writer) *slog.Logger {
	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(outW, opts))
	}
	return slog.New(slog.NewTextHandler(outW, opts))
}
