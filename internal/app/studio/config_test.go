package studio

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_DefaultsWithoutFileOrEnv(t *testing.T) {
	t.Setenv("STUDIO_CONFIG_PATH", "")
	t.Setenv("STUDIO_PORT", "")
	t.Setenv("STUDIO_STORE_DRIVER", "")
	t.Setenv("STUDIO_QUEUE_TICK_INTERVAL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Port != "8090" || cfg.StoreDriver != "sqlite" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.QueueTickInterval != 100*time.Millisecond {
		t.Errorf("unexpected tick interval default: %v", cfg.QueueTickInterval)
	}
}

func TestLoadConfig_YAMLFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studio.yaml")
	content := []byte("port: \"9000\"\nstoreDriver: memory\nthumbnailWidth: 120\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	t.Setenv("STUDIO_CONFIG_PATH", path)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Port != "9000" || cfg.StoreDriver != "memory" || cfg.ThumbnailWidth != 120 {
		t.Errorf("yaml values not applied: %+v", cfg)
	}
	if cfg.IngestBaseURL != "http://localhost:8080" {
		t.Errorf("unset yaml field should keep its default, got %q", cfg.IngestBaseURL)
	}
}

func TestLoadConfig_EnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studio.yaml")
	if err := os.WriteFile(path, []byte("port: \"9000\"\n"), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	t.Setenv("STUDIO_CONFIG_PATH", path)
	t.Setenv("STUDIO_PORT", "9999")
	t.Setenv("STUDIO_QUEUE_TICK_INTERVAL", "250ms")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Port != "9999" {
		t.Errorf("env should win over yaml, got port %q", cfg.Port)
	}
	if cfg.QueueTickInterval != 250*time.Millisecond {
		t.Errorf("duration env not applied: %v", cfg.QueueTickInterval)
	}
}

func TestLoadConfig_MissingConfigFileErrors(t *testing.T) {
	t.Setenv("STUDIO_CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))

	if _, err := LoadConfig(); err == nil {
		t.Error("expected an error for a missing config file")
	}
}
