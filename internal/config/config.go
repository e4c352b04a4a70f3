package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/julianstephens/constancia/internal/constants"
	"github.com/julianstephens/constancia/internal/utils"
)

// Database backends selectable from config.yaml.
const (
	BackendSQLite   = "sqlite"
	BackendJSON     = "json"
	BackendPostgres = "postgres"
)

// Config holds user preferences read from config.yaml
type Config struct {
	Timezone string `yaml:"timezone"`  // IANA name; empty or "Local" uses the system zone
	LogLevel string `yaml:"log_level"` // debug, info, warn, error
	Database string `yaml:"database"`  // sqlite, json or postgres

	Timer   TimerSettings  `yaml:"timer"`
	Backups BackupSettings `yaml:"backups"`
}

// TimerSettings are the first-run durations; once the timer is configured
// the stored durations win.
type TimerSettings struct {
	FocusMinutes int `yaml:"focus_minutes"`
	BreakMinutes int `yaml:"break_minutes"`
}

type BackupSettings struct {
	Auto bool `yaml:"auto"` // back up the SQLite database before each TUI session
	Keep int  `yaml:"keep"`
}

// DefaultConfig returns default settings
func DefaultConfig() *Config {
	return &Config{
		Timezone: "Local",
		LogLevel: "warn",
		Database: BackendSQLite,
		Timer: TimerSettings{
			FocusMinutes: constants.DefaultFocusSeconds / 60,
			BreakMinutes: constants.DefaultBreakSeconds / 60,
		},
		Backups: BackupSettings{
			Auto: true,
			Keep: constants.MaxBackups,
		},
	}
}

// Path returns the config.yaml location inside configDir.
func Path(configDir string) string {
	return filepath.Join(configDir, constants.ConfigFileName)
}

// Load reads configDir/config.yaml over the defaults, then applies
// CONSTANCIA_* environment overrides. Variables from configDir/.env and
// ./.env are loaded first without replacing ones already set.
func Load(configDir string) (*Config, error) {
	if err := loadDotEnv(filepath.Join(configDir, constants.EnvFileName), constants.EnvFileName); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(Path(configDir))
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDotEnv(paths ...string) error {
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load %s: %w", strings.Join(existing, ", "), err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(constants.EnvTimezone); v != "" {
		c.Timezone = v
	}
	if v := os.Getenv(constants.EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(constants.EnvDatabase); v != "" {
		c.Database = v
	}

	for _, o := range []struct {
		key string
		dst *int
	}{
		{constants.EnvFocusMinutes, &c.Timer.FocusMinutes},
		{constants.EnvBreakMinutes, &c.Timer.BreakMinutes},
	} {
		v := os.Getenv(o.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", o.key, v, err)
		}
		*o.dst = n
	}
	return nil
}

// Validate checks the settings that would otherwise fail late.
func (c *Config) Validate() error {
	if !utils.ValidateTimezone(c.Timezone) {
		return fmt.Errorf("invalid timezone %q", c.Timezone)
	}
	switch c.Database {
	case "", BackendSQLite, BackendJSON, BackendPostgres:
	default:
		return fmt.Errorf("invalid database %q (use sqlite, json or postgres)", c.Database)
	}
	if c.Timer.FocusMinutes <= 0 || c.Timer.BreakMinutes <= 0 {
		return fmt.Errorf("timer durations must be positive, got focus=%d break=%d",
			c.Timer.FocusMinutes, c.Timer.BreakMinutes)
	}
	if c.Backups.Keep < 0 {
		return fmt.Errorf("backups.keep must not be negative")
	}
	return nil
}

// Save writes config.yaml into configDir
func (c *Config) Save(configDir string) error {
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(Path(configDir), data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}
