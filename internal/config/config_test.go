package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("AUTH_PASSWORD", "secret")
	t.Setenv("USE_MEMORY", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("Expected default HTTP_ADDR :8080, got %s", cfg.HTTPAddr)
	}
	if cfg.RefreshInterval != 5*time.Minute {
		t.Errorf("Expected default refresh interval 5m, got %v", cfg.RefreshInterval)
	}
	if cfg.TopCoinsCount != 200 {
		t.Errorf("Expected default top coins 200, got %d", cfg.TopCoinsCount)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("Expected default session TTL 24h, got %v", cfg.SessionTTL)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("AUTH_PASSWORD", "secret")
	t.Setenv("USE_MEMORY", "true")
	t.Setenv("REFRESH_INTERVAL", "30s")
	t.Setenv("TOP_COINS_COUNT", "100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.RefreshInterval != 30*time.Second {
		t.Errorf("Expected refresh interval 30s, got %v", cfg.RefreshInterval)
	}
	if cfg.TopCoinsCount != 100 {
		t.Errorf("Expected top coins 100, got %d", cfg.TopCoinsCount)
	}
}

func TestValidate_RequiresPassword(t *testing.T) {
	cfg := &Config{UseMemory: true, RefreshInterval: time.Minute}

	if err := cfg.Validate(); err == nil {
		t.Error("Expected error without AUTH_PASSWORD")
	}
}

func TestValidate_RequiresDSNsWithoutMemory(t *testing.T) {
	cfg := &Config{
		AuthPassword:    "secret",
		RefreshInterval: time.Minute,
	}

	if err := cfg.Validate(); err == nil {
		t.Error("Expected error without database DSNs")
	}

	cfg.PostgresDSN = "postgres://localhost/db"
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error without clickhouse DSN")
	}

	cfg.ClickhouseDSN = "clickhouse://localhost:9000/db"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}
