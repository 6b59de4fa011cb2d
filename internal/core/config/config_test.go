package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadConfig("")
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		def := Default()
		if cfg.Server != def.Server {
			t.Errorf("Server = %+v, want %+v", cfg.Server, def.Server)
		}
		if cfg.Database.URL != "sqlite://cuitarget.db" {
			t.Errorf("Database.URL = %q", cfg.Database.URL)
		}
		if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
			t.Errorf("Log = %+v", cfg.Log)
		}
		if cfg.Selector != nil {
			t.Errorf("Selector = %v, want nil", cfg.Selector)
		}
	})

	t.Run("environment override", func(t *testing.T) {
		t.Setenv("CT_SERVER_PORT", "8080")
		t.Setenv("CT_SERVER_REQUEST_TIMEOUT", "5s")
		t.Setenv("CT_LOG_FORMAT", "text")

		cfg, err := LoadConfig("")
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Server.Port != 8080 {
			t.Errorf("Port = %d, want 8080", cfg.Server.Port)
		}
		if cfg.Server.RequestTimeout != 5*time.Second {
			t.Errorf("RequestTimeout = %v, want 5s", cfg.Server.RequestTimeout)
		}
		if cfg.Log.Format != "text" {
			t.Errorf("Log.Format = %q, want text", cfg.Log.Format)
		}
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("CT_SERVER_PORT", "8080")
		path := writeConfig(t, "server:\n  port: 9090\n  max_results: 50\n")

		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Server.Port != 8080 {
			t.Errorf("Port = %d, want 8080 from environment", cfg.Server.Port)
		}
		if cfg.Server.MaxResults != 50 {
			t.Errorf("MaxResults = %d, want 50 from file", cfg.Server.MaxResults)
		}
	})

	t.Run("invalid port range", func(t *testing.T) {
		t.Setenv("CT_SERVER_PORT", "70000")
		if _, err := LoadConfig(""); err == nil {
			t.Error("expected error for port out of range")
		}
	})

	t.Run("invalid negative values", func(t *testing.T) {
		t.Setenv("CT_SERVER_MAX_RESULTS", "-1")
		if _, err := LoadConfig(""); err == nil {
			t.Error("expected error for negative max_results")
		}
	})

	t.Run("invalid log format", func(t *testing.T) {
		t.Setenv("CT_LOG_FORMAT", "xml")
		if _, err := LoadConfig(""); err == nil {
			t.Error("expected error for unknown log format")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
			t.Error("expected error for missing config file")
		}
	})
}

func TestLoadConfig_Selector(t *testing.T) {
	path := writeConfig(t, `
selector:
  targets:
    TYPE_ID: [T047, T184]
    CUI_AND_CHILDREN:
      depth: 2
      cui: C0011849
  options:
    strategy: any
    prefname-only: "true"
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	targets, ok := cfg.Selector["targets"].(map[string]any)
	if !ok {
		t.Fatalf("selector.targets = %T, want map", cfg.Selector["targets"])
	}
	// viper lower-cases keys
	if _, ok := targets["type_id"]; !ok {
		t.Errorf("targets = %v, want a type_id key", targets)
	}
	child, ok := targets["cui_and_children"].(map[string]any)
	if !ok || child["depth"] != 2 {
		t.Errorf("cui_and_children = %v", targets["cui_and_children"])
	}
}

func TestLoadConfig_RejectsPasswordInFile(t *testing.T) {
	path := writeConfig(t, "database:\n  url: postgres://app:hunter2@db:5432/concepts\n")

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected error for password in config file")
	}
	if !strings.Contains(err.Error(), "CT_DATABASE_URL") {
		t.Errorf("error should point at CT_DATABASE_URL: %v", err)
	}

	t.Run("environment may carry it", func(t *testing.T) {
		t.Setenv("CT_DATABASE_URL", "postgres://app:hunter2@db:5432/concepts")
		cfg, err := LoadConfig(writeConfig(t, "database:\n  url: postgres://app@db:5432/concepts\n"))
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Database.URL != "postgres://app:hunter2@db:5432/concepts" {
			t.Errorf("Database.URL = %q", cfg.Database.URL)
		}
	})
}
