package config

import (
	"log/slog"
	"os"
	"testing"
	"time"
)

var allVariables = []string{
	"HYBRIDWORK_HTTP_PORT",
	"HYBRIDWORK_SQLITE_PATH",
	"HYBRIDWORK_JWT_SECRET",
	"HYBRIDWORK_ACCESS_TOKEN_TTL",
	"HYBRIDWORK_REFRESH_TOKEN_TTL",
	"HYBRIDWORK_RESERVATION_DEFAULT_WINDOW",
	"HYBRIDWORK_REQUEST_DEFAULT_DURATION",
	"HYBRIDWORK_LOG_LEVEL",
	"HYBRIDWORK_SHUTDOWN_TIMEOUT",
	"HYBRIDWORK_ALLOWED_ORIGINS",
}

func clearEnvironment(t *testing.T) {
	t.Helper()
	for _, key := range allVariables {
		// Register restoration first, then unset.
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("failed to unset %s: %v", key, err)
		}
	}
}

func TestLoader_ParseEnvironment(t *testing.T) {
	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		clearEnvironment(t)
		const secret = "super-secret"
		t.Setenv("HYBRIDWORK_JWT_SECRET", secret)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 || cfg.Addr() != ":8080" {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.SQLitePath != "hybridwork.db" {
			t.Fatalf("unexpected default path: %q", cfg.SQLitePath)
		}
		if cfg.JWTSecret != secret {
			t.Fatalf("expected secret %q, got %q", secret, cfg.JWTSecret)
		}
		if cfg.AccessTokenTTL != 15*time.Minute || cfg.RefreshTokenTTL != 168*time.Hour {
			t.Fatalf("unexpected token TTLs: %s %s", cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
		}
		if cfg.ReservationDefaultWindow != 4*time.Hour || cfg.RequestDefaultDuration != 30*time.Minute {
			t.Fatalf("unexpected scheduling defaults: %s %s", cfg.ReservationDefaultWindow, cfg.RequestDefaultDuration)
		}
		if cfg.LogLevel != slog.LevelInfo || cfg.ShutdownTimeout != 10*time.Second || cfg.AllowedOrigins != nil {
			t.Fatalf("unexpected ambient defaults: %#v", cfg)
		}
	})

	t.Run("errors when required values are missing", func(t *testing.T) {
		clearEnvironment(t)

		_, err := Load()
		if err == nil {
			t.Fatalf("expected error when required values are missing")
		}
		expected := "missing required environment variables: HYBRIDWORK_JWT_SECRET"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("parses duration, level and list fields", func(t *testing.T) {
		clearEnvironment(t)
		t.Setenv("HYBRIDWORK_JWT_SECRET", "secret-value")
		t.Setenv("HYBRIDWORK_HTTP_PORT", "9090")
		t.Setenv("HYBRIDWORK_SQLITE_PATH", "/tmp/hybridwork.db")
		t.Setenv("HYBRIDWORK_RESERVATION_DEFAULT_WINDOW", "2h")
		t.Setenv("HYBRIDWORK_REQUEST_DEFAULT_DURATION", "45m")
		t.Setenv("HYBRIDWORK_LOG_LEVEL", "debug")
		t.Setenv("HYBRIDWORK_ALLOWED_ORIGINS", "https://app.acme.com, ,http://localhost:5173")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 9090 || cfg.SQLitePath != "/tmp/hybridwork.db" {
			t.Fatalf("unexpected port or path: %#v", cfg)
		}
		if cfg.ReservationDefaultWindow != 2*time.Hour || cfg.RequestDefaultDuration != 45*time.Minute {
			t.Fatalf("unexpected durations: %s %s", cfg.ReservationDefaultWindow, cfg.RequestDefaultDuration)
		}
		if cfg.LogLevel != slog.LevelDebug {
			t.Fatalf("expected debug level, got %s", cfg.LogLevel)
		}
		if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://localhost:5173" {
			t.Fatalf("unexpected origins: %#v", cfg.AllowedOrigins)
		}
	})

	t.Run("reports every invalid value", func(t *testing.T) {
		clearEnvironment(t)
		t.Setenv("HYBRIDWORK_JWT_SECRET", "secret-value")
		t.Setenv("HYBRIDWORK_HTTP_PORT", "eighty")
		t.Setenv("HYBRIDWORK_ACCESS_TOKEN_TTL", "-5m")
		t.Setenv("HYBRIDWORK_LOG_LEVEL", "chatty")

		_, err := Load()
		expected := "invalid environment variable values: HYBRIDWORK_HTTP_PORT, HYBRIDWORK_ACCESS_TOKEN_TTL, HYBRIDWORK_LOG_LEVEL"
		if err == nil || err.Error() != expected {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}
