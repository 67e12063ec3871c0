package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const envPrefix = "HYBRIDWORK_"

// Config captures environment driven configuration values for the hybrid-work service.
type Config struct {
	HTTPPort                 int
	SQLitePath               string
	JWTSecret                string
	AccessTokenTTL           time.Duration
	RefreshTokenTTL          time.Duration
	ReservationDefaultWindow time.Duration
	RequestDefaultDuration   time.Duration
	LogLevel                 slog.Level
	ShutdownTimeout          time.Duration
	AllowedOrigins           []string
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// Load parses configuration values from the current process environment.
//
// Optional values fall back to defaults. Missing required values and
// unparsable values are collected and reported together.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:                 8080,
		SQLitePath:               "hybridwork.db",
		AccessTokenTTL:           15 * time.Minute,
		RefreshTokenTTL:          7 * 24 * time.Hour,
		ReservationDefaultWindow: 4 * time.Hour,
		RequestDefaultDuration:   30 * time.Minute,
		LogLevel:                 slog.LevelInfo,
		ShutdownTimeout:          10 * time.Second,
	}

	var missing, invalid []string

	if portValue := env("HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, envPrefix+"HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if path := env("SQLITE_PATH"); path != "" {
		cfg.SQLitePath = path
	}

	if secret := env("JWT_SECRET"); secret == "" {
		missing = append(missing, envPrefix+"JWT_SECRET")
	} else {
		cfg.JWTSecret = secret
	}

	durations := []struct {
		name   string
		target *time.Duration
	}{
		{"ACCESS_TOKEN_TTL", &cfg.AccessTokenTTL},
		{"REFRESH_TOKEN_TTL", &cfg.RefreshTokenTTL},
		{"RESERVATION_DEFAULT_WINDOW", &cfg.ReservationDefaultWindow},
		{"REQUEST_DEFAULT_DURATION", &cfg.RequestDefaultDuration},
		{"SHUTDOWN_TIMEOUT", &cfg.ShutdownTimeout},
	}
	for _, d := range durations {
		value := env(d.name)
		if value == "" {
			continue
		}
		parsed, err := time.ParseDuration(value)
		if err != nil || parsed <= 0 {
			invalid = append(invalid, envPrefix+d.name)
			continue
		}
		*d.target = parsed
	}

	if level := env("LOG_LEVEL"); level != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(level)); err != nil {
			invalid = append(invalid, envPrefix+"LOG_LEVEL")
		}
	}

	if origins := env("ALLOWED_ORIGINS"); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
			}
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func env(name string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + name))
}
