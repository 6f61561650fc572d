package cfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	oldArgs := os.Args
	os.Args = append([]string{"memo-comb"}, args...)
	t.Cleanup(func() { os.Args = oldArgs })
}

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestLoadDefaults(t *testing.T) {
	withArgs(t)
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", cfg.Port)
	}
	if cfg.UserAgent != "MemoComb/1.0" {
		t.Errorf("Expected user agent 'MemoComb/1.0', got '%s'", cfg.UserAgent)
	}
	if cfg.DBPath != ":memory:" {
		t.Errorf("Expected in-memory database, got '%s'", cfg.DBPath)
	}
	if cfg.PageSize != 0 {
		t.Errorf("Expected page size 0, got %d", cfg.PageSize)
	}
	if cfg.GetFetchTimeout() != 15*time.Second {
		t.Errorf("Expected fetch timeout 15s, got %v", cfg.GetFetchTimeout())
	}
	if cfg.GetProbeInterval() != 0 {
		t.Errorf("Expected probing disabled, got %v", cfg.GetProbeInterval())
	}
	if Get() != cfg {
		t.Error("Expected Get to return the loaded configuration")
	}
}

func TestLoadFromFlagsAndEnv(t *testing.T) {
	withArgs(t, "--port", "9090", "--page-size", "20", "--no-defaults")
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("MEMOS_API_URL", "https://memos.example.com")
	t.Setenv("PROBE_INTERVAL", "300")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Expected port '9090', got '%s'", cfg.Port)
	}
	if cfg.PageSize != 20 {
		t.Errorf("Expected page size 20, got %d", cfg.PageSize)
	}
	if !cfg.NoDefaults {
		t.Error("Expected defaults to be disabled")
	}
	if cfg.MemosAPIURL != "https://memos.example.com" {
		t.Errorf("Expected memos API URL from env, got '%s'", cfg.MemosAPIURL)
	}
	if cfg.GetProbeInterval() != 300*time.Second {
		t.Errorf("Expected probe interval 300s, got %v", cfg.GetProbeInterval())
	}
}

func TestLoadEnvFile(t *testing.T) {
	withArgs(t)
	envFile := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(envFile, []byte("FAVICON_SERVICE=https://icons.example.com\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ENV_FILE", envFile)
	t.Cleanup(func() { os.Unsetenv("FAVICON_SERVICE") })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.FaviconService != "https://icons.example.com" {
		t.Errorf("Expected favicon service from env file, got '%s'", cfg.FaviconService)
	}
}

func TestLoadRejectsNegativePageSize(t *testing.T) {
	withArgs(t, "--page-size", "-1")
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	if _, err := Load(); err == nil {
		t.Error("Expected error for negative page size")
	}
}
