package app

import (
	"os"
	"strconv"
	"time"

	"github.com/openshelf/openshelf/pkg/jwtx"
)

type Config struct {
	Issuer string // Issuer claim for access tokens
	Secret string // Required: HMAC signing secret for access tokens

	AccessTTL       time.Duration // Access token lifetime (default: 15m)
	RefreshTTL      time.Duration // Refresh session lifetime (default: 7d)
	LoginStallFloor time.Duration // Minimum wall-clock duration of a login attempt (default: 100ms)
	RateLimitWindow time.Duration // Window for the failed-login budget (default: 5m)

	DefaultProvider string // Provider used when a login names none (default: local)
	DatabaseFile    string // Path to the SQLite database file (default: ./auth.db)
	PepperFile      string // Path to the password-hashing pepper file (default: ./pepper)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	HousekeepingInterval time.Duration // Expired-session sweep interval (default: 1h)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:               getEnvOrDefault("AUTH_ISSUER", "openshelf"),
		Secret:               os.Getenv("AUTH_SECRET"),
		AccessTTL:            getEnvDurationOrDefault("AUTH_ACCESS_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTTL:           getEnvDurationOrDefault("AUTH_REFRESH_TTL", jwtx.DefaultRefreshTokenTTL),
		LoginStallFloor:      getEnvDurationOrDefault("AUTH_LOGIN_STALL_FLOOR", 100*time.Millisecond),
		RateLimitWindow:      getEnvDurationOrDefault("AUTH_RATE_LIMIT_WINDOW", 5*time.Minute),
		DefaultProvider:      getEnvOrDefault("AUTH_DEFAULT_PROVIDER", "local"),
		DatabaseFile:         getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		PepperFile:           getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// "15m", "1h30m", "90s"
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes, for compatibility with older deployments.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
