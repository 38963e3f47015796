package api

import (
	"os"
	"strconv"
	"time"
)

// Config holds the server configuration, loaded from environment variables.
type Config struct {
	ListenAddr      string
	ServerDBPath    string
	ShutdownTimeout time.Duration
	LogFormat       string // "json" (default) or "text"
	LogLevel        string // "debug", "info" (default), "warn", "error"
	MaxBodyBytes    int64  // request body size limit
	BeaconMaxItems  int    // max items accepted per beacon batch
}

// LoadConfig reads configuration from environment variables with sensible defaults.
func LoadConfig() Config {
	cfg := Config{
		ListenAddr:      ":8080",
		ServerDBPath:    "./data/compass.db",
		ShutdownTimeout: 30 * time.Second,
		LogFormat:       "json",
		LogLevel:        "info",
		MaxBodyBytes:    1 << 20,
		BeaconMaxItems:  50,
	}

	if v := os.Getenv("COMPASS_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("COMPASS_SERVER_DB_PATH"); v != "" {
		cfg.ServerDBPath = v
	}
	if v := os.Getenv("COMPASS_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ShutdownTimeout = d
		}
	}
	if v := os.Getenv("COMPASS_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("COMPASS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("COMPASS_MAX_BODY_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.MaxBodyBytes = n
		}
	}
	if v := os.Getenv("COMPASS_BEACON_MAX_ITEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.BeaconMaxItems = n
		}
	}

	return cfg
}
