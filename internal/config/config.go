package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const maxHorizonDays = 1830

type Config struct {
	App struct {
		Name     string `yaml:"name"`
		Port     int    `yaml:"port"`
		Timezone string `yaml:"timezone"`
	} `yaml:"app"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Notice struct {
		SweepSchedule string `yaml:"sweep_schedule"`
		SweepEnabled  bool   `yaml:"sweep_enabled"`
	} `yaml:"notice"`

	Feed struct {
		HorizonDays int `yaml:"horizon_days"`
	} `yaml:"feed"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`

	location *time.Location
}

// Default returns the configuration used when a key is absent from the file.
func Default() *Config {
	var cfg Config
	cfg.App.Name = "opsconsole"
	cfg.App.Port = 8080
	cfg.App.Timezone = "UTC"
	cfg.Database.Path = "opsconsole.db"
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"
	cfg.Notice.SweepSchedule = "5 0 * * *"
	cfg.Notice.SweepEnabled = true
	cfg.Feed.HorizonDays = 365
	cfg.Metrics.Enabled = true
	cfg.Metrics.Path = "/metrics"
	return &cfg
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("OPSCONSOLE_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse OPSCONSOLE_PORT: %w", err)
		}
		c.App.Port = port
	}
	if v := os.Getenv("OPSCONSOLE_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("OPSCONSOLE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port < 1 || c.App.Port > 65535 {
		return fmt.Errorf("app port %d out of range", c.App.Port)
	}
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return fmt.Errorf("unknown timezone %q: %w", c.App.Timezone, err)
	}
	c.location = loc

	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported log level: %s", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format: %s", c.Logging.Format)
	}

	if _, err := cron.ParseStandard(c.Notice.SweepSchedule); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", c.Notice.SweepSchedule, err)
	}

	if c.Feed.HorizonDays < 1 || c.Feed.HorizonDays > maxHorizonDays {
		return fmt.Errorf("feed horizon_days must be between 1 and %d", maxHorizonDays)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics path must start with /")
	}

	return nil
}

// Location is the business timezone. Valid after Validate.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.App.Port)
}
