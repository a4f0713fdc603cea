package cli

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSetupLogger(t *testing.T) {
	logger := SetupLogger("debug")
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected debug level to be enabled")
	}
	logger = SetupLogger("warn")
	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("expected info level to be disabled at warn")
	}
	if logger.Component() != "cli" {
		t.Errorf("unexpected component %q", logger.Component())
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("CAISSE_TEST_VALUE=from-dotenv\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CAISSE_TEST_VALUE", "")
	os.Unsetenv("CAISSE_TEST_VALUE")

	LoadEnvFile(path)
	if got := os.Getenv("CAISSE_TEST_VALUE"); got != "from-dotenv" {
		t.Fatalf("expected value from .env, got %q", got)
	}

	LoadEnvFile(filepath.Join(t.TempDir(), "missing.env"))
}

func TestLoadAndValidateConfig(t *testing.T) {
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("LOG_LEVEL", "info")
	if _, err := LoadAndValidateConfig(SetupLogger("error")); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
	t.Setenv("DATA_BACKEND", "cassandra")
	if _, err := LoadAndValidateConfig(SetupLogger("error")); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestGracefulShutdownOnParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	cleaned := make(chan struct{})
	ctx, done := GracefulShutdown(parent, SetupLogger("error"), time.Second, func(context.Context) {
		close(cleaned)
	})
	cancel()

	finished := make(chan struct{})
	go func() {
		WaitForShutdown(ctx, done)
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not complete")
	}
	select {
	case <-cleaned:
	default:
		t.Fatal("cleanup did not run")
	}
}
