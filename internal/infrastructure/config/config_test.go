package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg = applyDefaults(cfg)

	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("expected :8080, got %s", cfg.HTTP.Addr)
	}
	if cfg.Auth.TokenTTL.Minutes() != 30 {
		t.Errorf("expected 30m, got %v", cfg.Auth.TokenTTL)
	}
	if cfg.Diagnose.CacheTTL != 5*time.Minute {
		t.Errorf("expected 5m cache ttl, got %v", cfg.Diagnose.CacheTTL)
	}
	if cfg.Diagnose.TopK != 5 {
		t.Errorf("expected top_k 5, got %d", cfg.Diagnose.TopK)
	}
	if cfg.Diagnose.DeliveryFeeThreshold != 0.20 {
		t.Errorf("expected delivery fee threshold 0.20, got %v", cfg.Diagnose.DeliveryFeeThreshold)
	}
	if cfg.Diagnose.TrafficShareMin != 0.20 || cfg.Diagnose.TrafficShareMax != 0.60 {
		t.Errorf("expected traffic share band [0.20, 0.60], got [%v, %v]",
			cfg.Diagnose.TrafficShareMin, cfg.Diagnose.TrafficShareMax)
	}
}

func TestConfig_ApplyEnv(t *testing.T) {
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("DELIVERY_FEE_THRESHOLD", "0.25")
	os.Setenv("DIAGNOSE_CACHE_TTL", "90s")
	defer os.Unsetenv("HTTP_ADDR")
	defer os.Unsetenv("DELIVERY_FEE_THRESHOLD")
	defer os.Unsetenv("DIAGNOSE_CACHE_TTL")

	cfg := Config{}
	cfg = applyEnv(cfg)

	if cfg.HTTP.Addr != ":9090" {
		t.Errorf("expected :9090, got %s", cfg.HTTP.Addr)
	}
	if cfg.Diagnose.DeliveryFeeThreshold != 0.25 {
		t.Errorf("expected 0.25, got %v", cfg.Diagnose.DeliveryFeeThreshold)
	}
	if cfg.Diagnose.CacheTTL != 90*time.Second {
		t.Errorf("expected 90s, got %v", cfg.Diagnose.CacheTTL)
	}
}

func TestLoadFromFile_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
http:
  addr: ":3000"
diagnose:
  top_k: 10
  fluctuation_threshold_pct: 80
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HTTP.Addr != ":3000" {
		t.Errorf("expected :3000, got %s", cfg.HTTP.Addr)
	}
	if cfg.Diagnose.TopK != 10 {
		t.Errorf("expected top_k 10, got %d", cfg.Diagnose.TopK)
	}
	if cfg.Diagnose.FluctuationThresholdPct != 80 {
		t.Errorf("expected 80, got %v", cfg.Diagnose.FluctuationThresholdPct)
	}
	// 未覆寫的欄位仍套用預設
	if cfg.Diagnose.CriticalRevenueLoss != 500 {
		t.Errorf("expected default 500, got %v", cfg.Diagnose.CriticalRevenueLoss)
	}
}

func TestLoadFromFile_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("expected defaults, got %s", cfg.HTTP.Addr)
	}
}
