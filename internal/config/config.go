// Package config loads the mindsync configuration from file, environment
// and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/NateEaton/mind-pwa-sub000/internal/logging"
)

// Config is the application configuration.
type Config struct {
	Provider     string `mapstructure:"provider"`       // "gdrive" or "dropbox"
	DataDir      string `mapstructure:"data_dir"`       // local store location
	WeekStartDay string `mapstructure:"week_start_day"` // "sunday" .. "saturday"

	GoogleDrive GoogleDriveConfig `mapstructure:"google_drive"`
	Dropbox     DropboxConfig     `mapstructure:"dropbox"`
	Sync        SyncConfig        `mapstructure:"sync"`
	Daemon      DaemonConfig      `mapstructure:"daemon"`
	Logging     logging.Config    `mapstructure:"logging"`
}

// GoogleDriveConfig contains the Drive adapter settings.
type GoogleDriveConfig struct {
	CredentialsPath string   `mapstructure:"credentials_path"`
	TokenPath       string   `mapstructure:"token_path"`
	Scopes          []string `mapstructure:"scopes"`
}

// DropboxConfig contains the Dropbox adapter settings.
type DropboxConfig struct {
	AppKey      string `mapstructure:"app_key"`
	TokenPath   string `mapstructure:"token_path"`
	APIHost     string `mapstructure:"api_host"`
	ContentHost string `mapstructure:"content_host"`
}

// SyncConfig contains the sync engine and trigger settings.
type SyncConfig struct {
	UnmeteredOnly     bool          `mapstructure:"unmetered_only"`
	MeteredInterfaces []string      `mapstructure:"metered_interfaces"`
	Debounce          time.Duration `mapstructure:"debounce"`
	MinInterval       time.Duration `mapstructure:"min_interval"`
	Cooldown          time.Duration `mapstructure:"cooldown"`
}

// DaemonConfig contains the background loop settings.
type DaemonConfig struct {
	SyncInterval time.Duration `mapstructure:"sync_interval"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	PidFile      string        `mapstructure:"pid_file"`
}

// DefaultDir returns the default configuration directory.
func DefaultDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, "mindsync")
}

func setDefaults(v *viper.Viper, dir string) {
	v.SetDefault("provider", "gdrive")
	v.SetDefault("data_dir", dir)
	v.SetDefault("week_start_day", "sunday")

	v.SetDefault("google_drive.credentials_path", filepath.Join(dir, "credentials.json"))
	v.SetDefault("google_drive.token_path", filepath.Join(dir, "gdrive-token.json"))
	v.SetDefault("google_drive.scopes", []string{"https://www.googleapis.com/auth/drive.appdata"})

	v.SetDefault("dropbox.token_path", filepath.Join(dir, "dropbox-token.json"))
	v.SetDefault("dropbox.api_host", "https://api.dropboxapi.com")
	v.SetDefault("dropbox.content_host", "https://content.dropboxapi.com")

	v.SetDefault("sync.unmetered_only", false)
	v.SetDefault("sync.metered_interfaces", []string{"wwan", "ppp", "rmnet"})
	v.SetDefault("sync.debounce", 2*time.Second)
	v.SetDefault("sync.min_interval", 30*time.Second)
	v.SetDefault("sync.cooldown", 5*time.Minute)

	v.SetDefault("daemon.sync_interval", 15*time.Minute)
	v.SetDefault("daemon.poll_interval", 30*time.Second)
	v.SetDefault("daemon.pid_file", filepath.Join(dir, "mindsync.pid"))

	v.SetDefault("logging.level", logging.DefaultConfig.Level)
	v.SetDefault("logging.format", logging.DefaultConfig.Format)
}

// Load reads the configuration. An empty path searches the default
// location; a missing config file is not an error, defaults and
// environment variables still apply.
func Load(path string) (*Config, error) {
	dir := DefaultDir()

	v := viper.New()
	setDefaults(v, dir)
	v.SetEnvPrefix("MINDSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Provider {
	case "gdrive", "dropbox":
	default:
		return fmt.Errorf("unknown provider %q (want gdrive or dropbox)", c.Provider)
	}
	if _, err := c.WeekStart(); err != nil {
		return err
	}
	return nil
}

// WeekStart parses the configured week-start day.
func (c *Config) WeekStart() (time.Weekday, error) {
	days := map[string]time.Weekday{
		"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
		"wednesday": time.Wednesday, "thursday": time.Thursday,
		"friday": time.Friday, "saturday": time.Saturday,
	}
	day, ok := days[strings.ToLower(c.WeekStartDay)]
	if !ok {
		return 0, fmt.Errorf("unknown week_start_day %q", c.WeekStartDay)
	}
	return day, nil
}

// DatabasePath returns the SQLite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "mindsync.db")
}
