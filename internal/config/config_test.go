package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.WeekStartDay() != time.Sunday {
		t.Errorf("Wrong default week start day: %v", cfg.WeekStartDay())
	}

	if cfg.TimeFormat != "3:04 PM" {
		t.Errorf("Wrong default time format: %s", cfg.TimeFormat)
	}

	if cfg.DateFormat != "Jan 2, 2006" {
		t.Errorf("Wrong default date format: %s", cfg.DateFormat)
	}

	if cfg.Sync.PastMonths != 1 || cfg.Sync.FutureMonths != 3 {
		t.Errorf("Wrong default sync window: %d/%d", cfg.Sync.PastMonths, cfg.Sync.FutureMonths)
	}

	if cfg.Google.Enabled() {
		t.Error("Google sync should be disabled without credentials")
	}

	if cfg.Database.Driver != "mysql" {
		t.Errorf("Wrong default database driver: %s", cfg.Database.Driver)
	}

	if cfg.KeyBindings["quit"] != "q" {
		t.Errorf("Wrong quit key binding: %s", cfg.KeyBindings["quit"])
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	content := `timezone: Africa/Cairo
week_start: monday
time_format: "15:04"
store_path: ~/campus/events.db
log:
  level: debug
sync:
  on_startup: false
  cron: "*/30 * * * *"
  future_months: 6
  timeout: 1m
google:
  credentials_file: /etc/campuscal/google.json
ics:
  - id: uni
    url: https://example.edu/cal.ics
  - url: /srv/feeds/club.ics
json_feeds:
  - ~/feeds/labs.jsonl
key_bindings:
  quit: x
colors:
  today: cyan
`
	if err := os.WriteFile(configFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	cfg, err := Load(configFile)
	if err != nil {
		t.Fatalf("Failed to load config file: %v", err)
	}

	if cfg.Location().String() != "Africa/Cairo" {
		t.Errorf("Wrong timezone: %s", cfg.Location())
	}
	if cfg.WeekStartDay() != time.Monday {
		t.Errorf("Wrong week start day: %v", cfg.WeekStartDay())
	}
	if cfg.TimeFormat != "15:04" {
		t.Errorf("Wrong time format: %s", cfg.TimeFormat)
	}
	if cfg.DateFormat != "Jan 2, 2006" {
		t.Errorf("Date format should keep its default, got %s", cfg.DateFormat)
	}
	if strings.HasPrefix(cfg.StorePath, "~") || !strings.HasSuffix(cfg.StorePath, filepath.Join("campus", "events.db")) {
		t.Errorf("Store path not expanded: %s", cfg.StorePath)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Wrong log level: %s", cfg.Log.Level)
	}
	if cfg.Sync.OnStartup {
		t.Error("Sync on startup should be disabled")
	}
	if cfg.Sync.Cron != "*/30 * * * *" {
		t.Errorf("Wrong cron: %s", cfg.Sync.Cron)
	}
	if cfg.Sync.PastMonths != 1 || cfg.Sync.FutureMonths != 6 {
		t.Errorf("Wrong sync window: %d/%d", cfg.Sync.PastMonths, cfg.Sync.FutureMonths)
	}
	if cfg.Sync.Timeout != time.Minute {
		t.Errorf("Wrong sync timeout: %v", cfg.Sync.Timeout)
	}
	if !cfg.Google.Enabled() || cfg.Google.CalendarID != "primary" {
		t.Errorf("Wrong google config: %+v", cfg.Google)
	}
	if len(cfg.ICS) != 2 {
		t.Fatalf("Wrong number of ics sources: %d", len(cfg.ICS))
	}
	if cfg.ICS[0].ID != "uni" || cfg.ICS[1].ID != "/srv/feeds/club.ics" {
		t.Errorf("Wrong ics ids: %q, %q", cfg.ICS[0].ID, cfg.ICS[1].ID)
	}
	if len(cfg.JSONFeeds) != 1 || strings.HasPrefix(cfg.JSONFeeds[0], "~") {
		t.Errorf("Wrong json feeds: %v", cfg.JSONFeeds)
	}
	if cfg.KeyBindings["quit"] != "x" {
		t.Errorf("Wrong quit binding: %s", cfg.KeyBindings["quit"])
	}
	if cfg.KeyBindings["help"] != "?" {
		t.Errorf("Unset bindings should keep defaults, got help=%q", cfg.KeyBindings["help"])
	}
	if cfg.Colors["today"] != "cyan" {
		t.Errorf("Wrong today color: %s", cfg.Colors["today"])
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CAMPUSCAL_SYNC_CRON", "@every 10m")
	t.Setenv("CAMPUSCAL_WEEK_START", "monday")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load without a config file should succeed: %v", err)
	}
	if cfg.Sync.Cron != "@every 10m" {
		t.Errorf("Env did not override cron: %q", cfg.Sync.Cron)
	}
	if cfg.WeekStartDay() != time.Monday {
		t.Errorf("Env did not override week start: %v", cfg.WeekStartDay())
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for a missing explicit config file")
	}
}

func TestNormalize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WeekStart = "friday"
	cfg.Timezone = "Mars/Olympus"
	cfg.TimeFormat = ""
	cfg.StartupView = "hourly"
	cfg.Sync.PastMonths = -2
	cfg.Sync.Timeout = 0
	cfg.Database.Driver = "POSTGRES"
	cfg.KeyBindings = nil

	cfg.Normalize()

	if cfg.WeekStart != "sunday" {
		t.Errorf("Invalid week start not reset: %s", cfg.WeekStart)
	}
	if cfg.Location() != time.Local {
		t.Errorf("Invalid timezone not reset: %s", cfg.Location())
	}
	if cfg.TimeFormat == "" {
		t.Error("Empty time format not reset")
	}
	if cfg.StartupView != "grid" {
		t.Errorf("Invalid startup view not reset: %s", cfg.StartupView)
	}
	if cfg.Sync.PastMonths != 0 {
		t.Errorf("Negative past months not clamped: %d", cfg.Sync.PastMonths)
	}
	if cfg.Sync.Timeout <= 0 {
		t.Errorf("Zero timeout not reset: %v", cfg.Sync.Timeout)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Driver not lowered: %s", cfg.Database.Driver)
	}
	if cfg.KeyBindings["sync"] != "s" {
		t.Errorf("Missing key bindings not restored: %v", cfg.KeyBindings)
	}
}

func TestParseWeekday(t *testing.T) {
	tests := []struct {
		in       string
		want     time.Weekday
		hasError bool
	}{
		{"Sunday", time.Sunday, false},
		{"mon", time.Monday, false},
		{" 6 ", time.Saturday, false},
		{"friday", time.Sunday, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWeekday(tt.in)
			if tt.hasError != (err != nil) {
				t.Errorf("ParseWeekday(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseWeekday(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
