package flog_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/feathersql/feather/flog"
)

func TestInitDefaultsToInfoLevel(t *testing.T) {
	os.Unsetenv("FEATHER_LOG_LEVEL")
	os.Unsetenv("FEATHER_LOG_FORMAT")
	flog.Init()

	if !slog.Default().Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("expected info level enabled by default")
	}
	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug level disabled by default")
	}
}

func TestInitHonorsLevelEnvVar(t *testing.T) {
	t.Setenv("FEATHER_LOG_LEVEL", "debug")
	flog.Init()

	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug level enabled after FEATHER_LOG_LEVEL=debug")
	}
}
