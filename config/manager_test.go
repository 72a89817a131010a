package config

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestManagerCreatesAndUpdates(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(WithConfigDir(dir))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	path := filepath.Join(dir, "config.json")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not created: %v", err)
	}

	cfg := mgr.Get()
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.DBPath = filepath.Join(dir, "data", "sim.db")
	cfg.StrategistMode = StrategistModeRepair

	data, _ := json.Marshal(cfg)
	if err := mgr.UpdateFromJSON(string(data)); err != nil {
		t.Fatalf("UpdateFromJSON: %v", err)
	}

	updated := mgr.Get()
	if updated.StrategistMode != StrategistModeRepair {
		t.Fatalf("expected strategist mode %s, got %s", StrategistModeRepair, updated.StrategistMode)
	}
	if updated.DBPath != cfg.DBPath {
		t.Fatalf("expected db path %s, got %s", cfg.DBPath, updated.DBPath)
	}
}

func TestManagerRejectsInvalidConfig(t *testing.T) {
	mgr, err := NewManager(WithConfigDir(t.TempDir()))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	cfg := mgr.Get()
	cfg.StrategistMode = "guess"
	if err := mgr.Update(cfg); err == nil {
		t.Fatalf("expected validation error for strategist mode")
	}
	if mgr.Get().StrategistMode != StrategistModeReject {
		t.Fatalf("invalid update must not be applied")
	}
}

func TestManagerSet(t *testing.T) {
	mgr, err := NewManager(WithConfigDir(t.TempDir()))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	if err := mgr.Set("strategist_mode", "repair"); err != nil {
		t.Fatalf("Set strategist_mode: %v", err)
	}
	if err := mgr.Set("price_cache_ttl", "30m"); err != nil {
		t.Fatalf("Set price_cache_ttl: %v", err)
	}
	if err := mgr.Set("price_cache_size", "50"); err != nil {
		t.Fatalf("Set price_cache_size: %v", err)
	}
	if err := mgr.Set("metrics_enabled", "true"); err != nil {
		t.Fatalf("Set metrics_enabled: %v", err)
	}

	cfg := mgr.Get()
	if cfg.StrategistMode != StrategistModeRepair {
		t.Fatalf("strategist mode not applied: %s", cfg.StrategistMode)
	}
	if cfg.PriceCacheTTL != 30*time.Minute {
		t.Fatalf("price cache ttl not applied: %v", cfg.PriceCacheTTL)
	}
	if cfg.PriceCacheSize != 50 {
		t.Fatalf("price cache size not applied: %d", cfg.PriceCacheSize)
	}
	if !cfg.MetricsEnabled {
		t.Fatalf("metrics flag not applied")
	}

	if err := mgr.Set("no_such_key", "1"); err == nil {
		t.Fatalf("expected error for unknown key")
	}
}

func TestManagerWatchReloads(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(WithConfigDir(dir))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan struct{}, 1)
	if err := mgr.Watch(ctx, zerolog.Nop(), func(cfg Config) {
		select {
		case reloaded <- struct{}{}:
		default:
		}
	}); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	cfg := mgr.Get()
	cfg.LLMModel = "deepseek-reasoner"

	if err := writeConfigFile(mgr.Path(), cfg); err != nil {
		t.Fatalf("writeConfigFile: %v", err)
	}

	select {
	case <-reloaded:
	case <-time.After(2 * time.Second):
		t.Fatalf("watcher did not fire on config change")
	}
	if got := mgr.Get().LLMModel; got != "deepseek-reasoner" {
		t.Fatalf("expected reloaded model, got %s", got)
	}
}

func TestValidateDefaults(t *testing.T) {
	cfg := DefaultConfigWithRoot(t.TempDir())
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.PriceCacheTTL != time.Hour || cfg.PriceCacheSize != 100 {
		t.Fatalf("unexpected price cache defaults: %v %d", cfg.PriceCacheTTL, cfg.PriceCacheSize)
	}
	cfg.QuoteProvider = "bloomberg"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for unknown quote provider")
	}
}

func TestManagerLoadsExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "finsim.json")
	if err := os.WriteFile(path, []byte(`{"strategist_mode": "repair", "price_cache_size": 25}`), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	mgr, err := NewManager(WithConfigPath(path))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	cfg := mgr.Get()
	if cfg.StrategistMode != StrategistModeRepair {
		t.Fatalf("expected strategist mode from file, got %s", cfg.StrategistMode)
	}
	if cfg.PriceCacheSize != 25 {
		t.Fatalf("expected cache size 25, got %d", cfg.PriceCacheSize)
	}
	if cfg.PriceCacheTTL != time.Hour || cfg.PortfolioRefresh != "@every 60s" {
		t.Fatalf("keys missing from the file should keep defaults: %v %q", cfg.PriceCacheTTL, cfg.PortfolioRefresh)
	}
}

func TestManagerRejectsBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"strategist_mode":`), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := NewManager(WithConfigPath(path)); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestManagerWatchIgnoresInvalidEdit(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(WithConfigDir(dir))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan Config, 4)
	if err := mgr.Watch(ctx, zerolog.Nop(), func(cfg Config) { changes <- cfg }); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if err := mgr.Watch(ctx, zerolog.Nop(), nil); err == nil {
		t.Fatalf("second Watch should fail")
	}

	bad := mgr.Get()
	bad.StrategistMode = "guess"
	if err := writeConfigFile(mgr.Path(), bad); err != nil {
		t.Fatalf("writeConfigFile: %v", err)
	}
	good := mgr.Get()
	good.PortfolioRefresh = "@every 5m"
	time.Sleep(2 * reloadDelay)
	if err := writeConfigFile(mgr.Path(), good); err != nil {
		t.Fatalf("writeConfigFile: %v", err)
	}

	select {
	case cfg := <-changes:
		if cfg.StrategistMode != StrategistModeReject || cfg.PortfolioRefresh != "@every 5m" {
			t.Fatalf("unexpected reloaded config: %s %s", cfg.StrategistMode, cfg.PortfolioRefresh)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("watcher did not report the valid edit")
	}
}
