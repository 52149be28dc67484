package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.Retention != 100 {
		t.Errorf("retention = %d, want 100", cfg.Engine.Retention)
	}
	if cfg.GetHeartbeatInterval() != 60*time.Second {
		t.Errorf("heartbeat = %v, want 60s", cfg.GetHeartbeatInterval())
	}
	if cfg.Logging.DebugMode {
		t.Error("debug mode must default to off")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
engine:
  retention: 25
storage:
  database_path: /tmp/test.db
session:
  heartbeat_interval: 5s
logging:
  debug_mode: true
  categories:
    engine: false
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.Retention != 25 {
		t.Errorf("retention = %d, want 25", cfg.Engine.Retention)
	}
	if cfg.Storage.DatabasePath != "/tmp/test.db" {
		t.Errorf("database_path = %q", cfg.Storage.DatabasePath)
	}
	if cfg.GetHeartbeatInterval() != 5*time.Second {
		t.Errorf("heartbeat = %v, want 5s", cfg.GetHeartbeatInterval())
	}
	if cfg.Logging.IsCategoryEnabled("engine") {
		t.Error("engine category should be disabled")
	}
	if !cfg.Logging.IsCategoryEnabled("trends") {
		t.Error("unlisted categories default to enabled in debug mode")
	}
}

func TestInvalidHeartbeatRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("session:\n  heartbeat_interval: banana\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for bad duration")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ETRACE_DB", "/tmp/override.db")
	t.Setenv("ETRACE_RETENTION", "7")
	t.Setenv("ETRACE_DEBUG", "1")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.DatabasePath != "/tmp/override.db" {
		t.Errorf("database_path = %q, want env override", cfg.Storage.DatabasePath)
	}
	if cfg.Engine.Retention != 7 {
		t.Errorf("retention = %d, want 7", cfg.Engine.Retention)
	}
	if !cfg.Logging.DebugMode {
		t.Error("ETRACE_DEBUG=1 must enable debug mode")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Engine.Retention = 42
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Engine.Retention != 42 {
		t.Errorf("retention = %d, want 42", loaded.Engine.Retention)
	}
}

func TestProductionModeDisablesAllCategories(t *testing.T) {
	cfg := LoggingConfig{DebugMode: false, Categories: map[string]bool{"engine": true}}
	if cfg.IsCategoryEnabled("engine") {
		t.Error("production mode must disable every category")
	}
}
