package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load with no file: %v", err)
	}
	if cfg.Provider != "gdrive" {
		t.Errorf("default provider = %q", cfg.Provider)
	}
	if day, err := cfg.WeekStart(); err != nil || day != time.Sunday {
		t.Errorf("default week start = %v, %v", day, err)
	}
	if cfg.Daemon.SyncInterval <= 0 || cfg.Daemon.PollInterval <= 0 {
		t.Error("daemon intervals must default to something positive")
	}
	if cfg.DatabasePath() == "" {
		t.Error("database path must derive from the data dir")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
provider: dropbox
week_start_day: monday
sync:
  unmetered_only: true
  debounce: 5s
dropbox:
  app_key: abc123
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Provider != "dropbox" {
		t.Errorf("provider = %q", cfg.Provider)
	}
	if day, _ := cfg.WeekStart(); day != time.Monday {
		t.Errorf("week start = %v", day)
	}
	if !cfg.Sync.UnmeteredOnly {
		t.Error("unmetered_only not read")
	}
	if cfg.Sync.Debounce != 5*time.Second {
		t.Errorf("debounce = %s", cfg.Sync.Debounce)
	}
	if cfg.Dropbox.AppKey != "abc123" {
		t.Errorf("app key = %q", cfg.Dropbox.AppKey)
	}
	// File values merge over defaults rather than replacing them.
	if cfg.Daemon.SyncInterval <= 0 {
		t.Error("unset daemon settings must keep their defaults")
	}
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("provider: icloud\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("unknown provider must be rejected")
	}
}

func TestWeekStartRejectsGarbage(t *testing.T) {
	cfg := &Config{WeekStartDay: "someday"}
	if _, err := cfg.WeekStart(); err == nil {
		t.Error("unknown weekday must be rejected")
	}
}
