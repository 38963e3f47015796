// Package config manages client configuration and credentials stored under
// the user config directory (~/.config/compass by default).
package config

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SyncConfig holds sync tuning overrides. Zero values mean defaults.
type SyncConfig struct {
	URL         string `json:"url,omitempty"`
	Interval    string `json:"interval,omitempty"`     // drain tick, default "30s"
	Debounce    string `json:"debounce,omitempty"`     // post-enqueue debounce, default "500ms"
	MaxRetries  int    `json:"max_retries,omitempty"`  // retry ceiling, default 3
	BeaconLimit int    `json:"beacon_limit,omitempty"` // flush batch bound, default 5
}

// Config is the global compass config stored at <configdir>/config.json.
type Config struct {
	Sync     SyncConfig `json:"sync"`
	DeviceID string     `json:"device_id,omitempty"`
}

// AuthCredentials stores authentication state at <configdir>/auth.json.
type AuthCredentials struct {
	APIKey    string `json:"api_key"`
	UserID    string `json:"user_id"`
	Email     string `json:"email,omitempty"`
	ServerURL string `json:"server_url"`
	SavedAt   string `json:"saved_at"`
}

const (
	defaultServerURL = "http://localhost:8080"
	defaultInterval  = 30 * time.Second
	defaultDebounce  = 500 * time.Millisecond

	// DefaultMaxRetries is the retry ceiling: items are dropped once their
	// retry count exceeds it.
	DefaultMaxRetries = 3
	// DefaultBeaconLimit bounds the teardown flush batch.
	DefaultBeaconLimit = 5
)

// Dir returns the compass config directory, creating it if necessary.
// COMPASS_CONFIG_DIR overrides the default (used by tests).
func Dir() (string, error) {
	if dir := os.Getenv("COMPASS_CONFIG_DIR"); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("create config dir: %w", err)
		}
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".config", "compass")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return dir, nil
}

// Load reads the global config, returning an empty config when none exists.
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the global config.
func Save(cfg *Config) error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// LoadAuth reads credentials, returning nil when not logged in.
func LoadAuth() (*AuthCredentials, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, "auth.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var creds AuthCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

// SaveAuth writes credentials with owner-only permissions.
func SaveAuth(creds *AuthCredentials) error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "auth.json"), data, 0600)
}

// ClearAuth removes stored credentials.
func ClearAuth() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(dir, "auth.json"))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// IsAuthenticated reports whether credentials are stored.
func IsAuthenticated() bool {
	creds, err := LoadAuth()
	return err == nil && creds != nil && creds.APIKey != ""
}

// ServerURL returns the configured server URL. Auth credentials win over
// config, which wins over the default.
func ServerURL() string {
	if creds, err := LoadAuth(); err == nil && creds != nil && creds.ServerURL != "" {
		return creds.ServerURL
	}
	if cfg, err := Load(); err == nil && cfg.Sync.URL != "" {
		return cfg.Sync.URL
	}
	return defaultServerURL
}

// DeviceID returns the stable device ID, generating and persisting one on
// first use.
func DeviceID() (string, error) {
	cfg, err := Load()
	if err != nil {
		return "", err
	}
	if cfg.DeviceID != "" {
		return cfg.DeviceID, nil
	}

	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate device id: %w", err)
	}
	cfg.DeviceID = "dev_" + hex.EncodeToString(b)
	if err := Save(cfg); err != nil {
		return "", err
	}
	return cfg.DeviceID, nil
}

// Interval returns the drain tick interval.
func (c *Config) Interval() time.Duration {
	if d, err := time.ParseDuration(c.Sync.Interval); err == nil && d > 0 {
		return d
	}
	return defaultInterval
}

// Debounce returns the post-enqueue debounce delay.
func (c *Config) Debounce() time.Duration {
	if d, err := time.ParseDuration(c.Sync.Debounce); err == nil && d > 0 {
		return d
	}
	return defaultDebounce
}

// MaxRetries returns the retry ceiling.
func (c *Config) MaxRetries() int {
	if c.Sync.MaxRetries > 0 {
		return c.Sync.MaxRetries
	}
	return DefaultMaxRetries
}

// BeaconLimit returns the teardown flush batch bound.
func (c *Config) BeaconLimit() int {
	if c.Sync.BeaconLimit > 0 {
		return c.Sync.BeaconLimit
	}
	return DefaultBeaconLimit
}
