// Package flog wires up feather's single shared slog logger. Every
// component logs through slog.Default() rather than hand-rolling its own
// logger, the way the teacher's util/logutil.go gates a single text handler
// off LOG_LEVEL — feather generalizes that to also pick a JSON handler and
// reads its own environment variable names (spec SPEC_FULL.md "AMBIENT
// STACK / Logging").
package flog

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures slog.Default() from FEATHER_LOG_LEVEL (debug/info/warn/
// error, default info) and FEATHER_LOG_FORMAT (text, the default, or json).
// Call it once, early in a binary's main(); library code never calls this.
func Init() {
	level := parseLevel(os.Getenv("FEATHER_LOG_LEVEL"))
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(os.Getenv("FEATHER_LOG_FORMAT"), "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info", "":
		return slog.LevelInfo
	default:
		return slog.LevelInfo
	}
}
