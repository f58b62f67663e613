package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Scrape.ImageCap != 60 || cfg.Scrape.PollTimeout != 7*time.Second {
		t.Errorf("single limits: %+v", cfg.Scrape)
	}
	if cfg.History.ImageCap != 15 || cfg.History.PollTimeout != 5*time.Second || cfg.History.Settle != 4*time.Second {
		t.Errorf("history limits: %+v", cfg.History)
	}
	if cfg.Service.URL != "http://localhost:3000" || !cfg.PreflightEnabled() {
		t.Errorf("service: %+v", cfg.Service)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadFile_KeepsExplicitValues(t *testing.T) {
	path := writeFile(t, "sonodraft.yaml", `
browser:
  remote: http://127.0.0.1:9222
  stealth: true
service:
  url: https://reports.internal
  preflight: false
history:
  image_cap: 5
  settle: 2s
log_level: debug
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Browser.Remote != "http://127.0.0.1:9222" || !cfg.Browser.Stealth {
		t.Errorf("browser: %+v", cfg.Browser)
	}
	if cfg.History.ImageCap != 5 || cfg.History.Settle != 2*time.Second || cfg.History.PollTimeout != 5*time.Second {
		t.Errorf("history: %+v", cfg.History)
	}
	if cfg.PreflightEnabled() {
		t.Error("preflight should be disabled")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvServiceURL, "")
	t.Setenv(EnvLogLevel, "warn")
	envFile := writeFile(t, ".env", EnvServiceURL+"=http://from-dotenv:3000\n")
	os.Unsetenv(EnvServiceURL)

	cfg, err := Load("", envFile)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Service.URL != "http://from-dotenv:3000" {
		t.Errorf("service url: %s", cfg.Service.URL)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("log level: %s", cfg.LogLevel)
	}
}

func TestLoad_MissingEnvFileIsFine(t *testing.T) {
	if _, err := Load("", filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "loud"
	if err := cfg.Validate(); err == nil {
		t.Error("expected log level error")
	}
	cfg = Default()
	cfg.History.ImageCap = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected image cap error")
	}
}
