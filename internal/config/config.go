package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const envPrefix = "CAMPUSCAL"

type Config struct {
	// Display settings
	Timezone   string `mapstructure:"timezone"`
	WeekStart  string `mapstructure:"week_start"`
	TimeFormat string `mapstructure:"time_format"`
	DateFormat string `mapstructure:"date_format"`
	WrapText   bool   `mapstructure:"wrap_text"`

	// StorePath is the bbolt file holding local events. Empty keeps
	// events in memory only.
	StorePath string `mapstructure:"store_path"`

	Log    LogConfig    `mapstructure:"log"`
	Sync   SyncConfig   `mapstructure:"sync"`
	Google GoogleConfig `mapstructure:"google"`

	ICS       []ICSSource `mapstructure:"ics"`
	JSONFeeds []string    `mapstructure:"json_feeds"`

	Database DatabaseConfig `mapstructure:"database"`

	// UI settings
	Colors      map[string]string `mapstructure:"colors"`
	KeyBindings map[string]string `mapstructure:"key_bindings"`
	StartupView string            `mapstructure:"startup_view"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type SyncConfig struct {
	OnStartup    bool          `mapstructure:"on_startup"`
	Cron         string        `mapstructure:"cron"`
	PastMonths   int           `mapstructure:"past_months"`
	FutureMonths int           `mapstructure:"future_months"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type GoogleConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
	TokenFile       string `mapstructure:"token_file"`
	CalendarID      string `mapstructure:"calendar_id"`
}

// Enabled reports whether Google Calendar sync is configured.
func (g GoogleConfig) Enabled() bool {
	return g.CredentialsFile != ""
}

type ICSSource struct {
	ID  string `mapstructure:"id"`
	URL string `mapstructure:"url"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

func DefaultConfig() *Config {
	return &Config{
		Timezone:   "Local",
		WeekStart:  "sunday",
		TimeFormat: "3:04 PM",
		DateFormat: "Jan 2, 2006",
		WrapText:   true,

		StorePath: filepath.Join(dataDir(), "events.db"),

		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(stateDir(), "campuscal.log"),
		},
		Sync: SyncConfig{
			OnStartup:    true,
			PastMonths:   1,
			FutureMonths: 3,
			Timeout:      30 * time.Second,
		},
		Google: GoogleConfig{
			TokenFile:  filepath.Join(configDir(), "google-token.json"),
			CalendarID: "primary",
		},
		Database: DatabaseConfig{
			Driver: "mysql",
		},

		Colors: map[string]string{
			"normal":   "252",
			"today":    "220",
			"selected": "235",
			"weekend":  "39",
			"dimmed":   "241",
			"header":   "220",
			"error":    "196",
		},

		KeyBindings: map[string]string{
			"quit":         "q",
			"help":         "?",
			"today":        "t",
			"sync":         "s",
			"new_event":    "n",
			"delete_event": "d",
			"toggle_view":  "v",
			"next_day":     "l",
			"prev_day":     "h",
			"next_week":    "j",
			"prev_week":    "k",
			"next_month":   ">",
			"prev_month":   "<",
			"goto_date":    "g",
		},

		StartupView: "grid",
	}
}

// Load reads the configuration. An explicit path must exist; otherwise the
// first file found in the search path is used, and having none is fine.
// Environment variables such as CAMPUSCAL_SYNC_CRON override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(expandHome(path))
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(configDir())
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".campuscal"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrap(err, "read config")
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	cfg.Normalize()
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("timezone", d.Timezone)
	v.SetDefault("week_start", d.WeekStart)
	v.SetDefault("time_format", d.TimeFormat)
	v.SetDefault("date_format", d.DateFormat)
	v.SetDefault("wrap_text", d.WrapText)
	v.SetDefault("store_path", d.StorePath)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("sync.on_startup", d.Sync.OnStartup)
	v.SetDefault("sync.cron", d.Sync.Cron)
	v.SetDefault("sync.past_months", d.Sync.PastMonths)
	v.SetDefault("sync.future_months", d.Sync.FutureMonths)
	v.SetDefault("sync.timeout", d.Sync.Timeout)
	v.SetDefault("google.credentials_file", d.Google.CredentialsFile)
	v.SetDefault("google.token_file", d.Google.TokenFile)
	v.SetDefault("google.calendar_id", d.Google.CalendarID)
	v.SetDefault("json_feeds", d.JSONFeeds)
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("colors", d.Colors)
	v.SetDefault("key_bindings", d.KeyBindings)
	v.SetDefault("startup_view", d.StartupView)
}

// Normalize replaces unusable values with defaults and expands "~/" in
// paths.
func (c *Config) Normalize() {
	d := DefaultConfig()

	if _, err := ParseWeekday(c.WeekStart); err != nil {
		c.WeekStart = d.WeekStart
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		c.Timezone = d.Timezone
	}
	if c.TimeFormat == "" {
		c.TimeFormat = d.TimeFormat
	}
	if c.DateFormat == "" {
		c.DateFormat = d.DateFormat
	}
	if c.Sync.PastMonths < 0 {
		c.Sync.PastMonths = 0
	}
	if c.Sync.FutureMonths < 0 {
		c.Sync.FutureMonths = 0
	}
	if c.Sync.Timeout <= 0 {
		c.Sync.Timeout = d.Sync.Timeout
	}
	switch c.StartupView {
	case "grid", "list":
	default:
		c.StartupView = d.StartupView
	}
	switch strings.ToLower(c.Database.Driver) {
	case "mysql", "postgres":
		c.Database.Driver = strings.ToLower(c.Database.Driver)
	default:
		c.Database.Driver = d.Database.Driver
	}
	if c.Colors == nil {
		c.Colors = d.Colors
	}
	for k, val := range d.KeyBindings {
		if c.KeyBindings == nil {
			c.KeyBindings = map[string]string{}
		}
		if c.KeyBindings[k] == "" {
			c.KeyBindings[k] = val
		}
	}

	c.StorePath = expandHome(c.StorePath)
	c.Log.File = expandHome(c.Log.File)
	c.Google.CredentialsFile = expandHome(c.Google.CredentialsFile)
	c.Google.TokenFile = expandHome(c.Google.TokenFile)
	for i, f := range c.JSONFeeds {
		c.JSONFeeds[i] = expandHome(strings.TrimSpace(f))
	}
	// remote feeds without an id are named by host later; their URLs
	// often embed private tokens
	for i, src := range c.ICS {
		if strings.Contains(src.URL, "://") {
			continue
		}
		c.ICS[i].URL = expandHome(src.URL)
		if src.ID == "" {
			c.ICS[i].ID = c.ICS[i].URL
		}
	}
}

// Location resolves Timezone. "Local" and "" mean the system zone.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// WeekStartDay resolves WeekStart, falling back to Sunday.
func (c *Config) WeekStartDay() time.Weekday {
	d, err := ParseWeekday(c.WeekStart)
	if err != nil {
		return time.Sunday
	}
	return d
}

func ParseWeekday(s string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sunday", "sun", "0":
		return time.Sunday, nil
	case "monday", "mon", "1":
		return time.Monday, nil
	case "saturday", "sat", "6":
		return time.Saturday, nil
	default:
		return time.Sunday, errors.Errorf("invalid week start %q", s)
	}
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

func configDir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

func dataDir() string {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

func stateDir() string {
	return xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

func xdgDir(env, fallback string) string {
	base := os.Getenv(env)
	if base == "" {
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, fallback)
	}
	return filepath.Join(base, "campuscal")
}
