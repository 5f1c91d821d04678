// Package config loads server and CLI settings from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DB      DBConfig
	Server  ServerConfig
	JWT     JWTConfig
	Ledger  LedgerConfig
	Cleanup CleanupConfig
	Events  EventsConfig
	Log     LogConfig
}

type DBConfig struct {
	Path string
}

type ServerConfig struct {
	Port               string
	CORSAllowedOrigins []string
	ShutdownTimeout    time.Duration
}

type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

// LedgerConfig feeds the engine options and the static feature flags.
type LedgerConfig struct {
	RetentionWindow    time.Duration
	MaxRetries         int
	MaintenanceMode    bool
	MaxGroupsPerUser   int
	MaxExpensesPerUser int
}

type CleanupConfig struct {
	Interval time.Duration
	Enabled  bool
}

type EventsConfig struct {
	QueueSize int
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() *Config {
	return &Config{
		DB: DBConfig{
			Path: getEnv("DB_PATH", "./data/ledger.db"),
		},
		Server: ServerConfig{
			Port:               getEnv("SERVER_PORT", "8080"),
			CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
			ShutdownTimeout:    getEnvAsPositiveDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		JWT: JWTConfig{
			Secret:          getEnv("JWT_SECRET", "change-me-in-production"),
			ExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
		},
		Ledger: LedgerConfig{
			RetentionWindow:    getEnvAsPositiveDuration("RETENTION_WINDOW", 96*time.Hour),
			MaxRetries:         getEnvAsInt("REDISTRIBUTION_MAX_RETRIES", 3),
			MaintenanceMode:    getEnvAsBool("MAINTENANCE_MODE", false),
			MaxGroupsPerUser:   getEnvAsInt("MAX_GROUPS_PER_USER", 0),
			MaxExpensesPerUser: getEnvAsInt("MAX_EXPENSES_PER_USER", 0),
		},
		Cleanup: CleanupConfig{
			Interval: getEnvAsPositiveDuration("CLEANUP_INTERVAL", 24*time.Hour),
			Enabled:  getEnvAsBool("CLEANUP_ENABLED", true),
		},
		Events: EventsConfig{
			QueueSize: getEnvAsInt("EVENT_QUEUE_SIZE", 1000),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

// getEnvAsPositiveDuration is getEnvAsDuration for windows and intervals that
// must be greater than zero.
func getEnvAsPositiveDuration(key string, fallback time.Duration) time.Duration {
	if d := getEnvAsDuration(key, fallback); d > 0 {
		return d
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

// getEnvAsList splits a comma-separated value, dropping empty items.
func getEnvAsList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
