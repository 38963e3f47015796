package config

import (
	"testing"
	"time"
)

func setupConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("COMPASS_CONFIG_DIR", dir)
	return dir
}

func TestLoadEmptyConfig(t *testing.T) {
	setupConfigDir(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Interval() != 30*time.Second {
		t.Errorf("Interval = %v, want 30s", cfg.Interval())
	}
	if cfg.Debounce() != 500*time.Millisecond {
		t.Errorf("Debounce = %v, want 500ms", cfg.Debounce())
	}
	if cfg.MaxRetries() != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries())
	}
	if cfg.BeaconLimit() != 5 {
		t.Errorf("BeaconLimit = %d, want 5", cfg.BeaconLimit())
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	setupConfigDir(t)

	in := &Config{Sync: SyncConfig{
		URL:         "https://compass.example.com",
		Interval:    "10s",
		MaxRetries:  5,
		BeaconLimit: 3,
	}}
	if err := Save(in); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	out, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if out.Sync.URL != in.Sync.URL {
		t.Errorf("URL = %q, want %q", out.Sync.URL, in.Sync.URL)
	}
	if out.Interval() != 10*time.Second {
		t.Errorf("Interval = %v, want 10s", out.Interval())
	}
	if out.MaxRetries() != 5 {
		t.Errorf("MaxRetries = %d, want 5", out.MaxRetries())
	}
}

func TestInvalidDurationFallsBack(t *testing.T) {
	cfg := &Config{Sync: SyncConfig{Interval: "not-a-duration", Debounce: "-3s"}}
	if cfg.Interval() != 30*time.Second {
		t.Errorf("Interval = %v, want default", cfg.Interval())
	}
	if cfg.Debounce() != 500*time.Millisecond {
		t.Errorf("Debounce = %v, want default", cfg.Debounce())
	}
}

func TestAuthLifecycle(t *testing.T) {
	setupConfigDir(t)

	if IsAuthenticated() {
		t.Fatal("expected unauthenticated before SaveAuth")
	}
	creds, err := LoadAuth()
	if err != nil {
		t.Fatalf("LoadAuth failed: %v", err)
	}
	if creds != nil {
		t.Fatalf("expected nil creds, got %+v", creds)
	}

	if err := SaveAuth(&AuthCredentials{
		APIKey:    "cc_live_abc",
		UserID:    "u_1",
		ServerURL: "https://compass.example.com",
		SavedAt:   time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		t.Fatalf("SaveAuth failed: %v", err)
	}
	if !IsAuthenticated() {
		t.Fatal("expected authenticated after SaveAuth")
	}

	if err := ClearAuth(); err != nil {
		t.Fatalf("ClearAuth failed: %v", err)
	}
	if IsAuthenticated() {
		t.Fatal("expected unauthenticated after ClearAuth")
	}
	// Clearing twice is fine.
	if err := ClearAuth(); err != nil {
		t.Fatalf("second ClearAuth failed: %v", err)
	}
}

func TestServerURLPrecedence(t *testing.T) {
	setupConfigDir(t)

	if got := ServerURL(); got != "http://localhost:8080" {
		t.Errorf("default ServerURL = %q", got)
	}

	if err := Save(&Config{Sync: SyncConfig{URL: "https://cfg.example.com"}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if got := ServerURL(); got != "https://cfg.example.com" {
		t.Errorf("ServerURL = %q, want config URL", got)
	}

	if err := SaveAuth(&AuthCredentials{APIKey: "k", ServerURL: "https://auth.example.com"}); err != nil {
		t.Fatalf("SaveAuth failed: %v", err)
	}
	if got := ServerURL(); got != "https://auth.example.com" {
		t.Errorf("ServerURL = %q, want auth URL", got)
	}
}

func TestDeviceIDStable(t *testing.T) {
	setupConfigDir(t)

	first, err := DeviceID()
	if err != nil {
		t.Fatalf("DeviceID failed: %v", err)
	}
	if len(first) != len("dev_")+16 {
		t.Errorf("unexpected device ID shape: %q", first)
	}

	second, err := DeviceID()
	if err != nil {
		t.Fatalf("second DeviceID failed: %v", err)
	}
	if first != second {
		t.Errorf("device ID changed: %q then %q", first, second)
	}
}
