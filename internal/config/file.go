// CLAUDE:SUMMARY Defines sonodraft config structs, parses YAML with defaults, applies .env and environment overrides.
// Package config handles sonodraft configuration from a YAML file, a .env
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvServiceURL = "SONODRAFT_SERVICE_URL"
	EnvLogLevel   = "LOG_LEVEL"
)

// Config is the top-level sonodraft configuration.
type Config struct {
	Browser   BrowserConfig `yaml:"browser"`
	Service   ServiceConfig `yaml:"service"`
	Scrape    ScrapeConfig  `yaml:"scrape"`
	History   HistoryConfig `yaml:"history"`
	Selectors string        `yaml:"selectors"` // override file, optional
	EventLog  string        `yaml:"event_log"` // sqlite path, empty = disabled
	Artifacts string        `yaml:"artifacts"` // audit report dir, empty = disabled
	Serve     ServeConfig   `yaml:"serve"`
	LogLevel  string        `yaml:"log_level"`
}

// BrowserConfig controls the Chrome session.
type BrowserConfig struct {
	Remote           string        `yaml:"remote"`       // DevTools URL of a running Chrome
	AttachMatch      string        `yaml:"attach_match"` // tab URL substring when attaching
	StartURL         string        `yaml:"start_url"`
	Headless         bool          `yaml:"headless"`
	Stealth          bool          `yaml:"stealth"`
	UserDataDir      string        `yaml:"user_data_dir"`
	ResourceBlocking []string      `yaml:"resource_blocking"`
	XvfbDisplay      string        `yaml:"xvfb_display"`
	NavigateTimeout  time.Duration `yaml:"navigate_timeout"`
}

// ServiceConfig locates the report-generation service.
type ServiceConfig struct {
	URL         string        `yaml:"url"`
	HistoryPath string        `yaml:"history_path"`
	Timeout     time.Duration `yaml:"timeout"`
	Preflight   *bool         `yaml:"preflight"`
}

// ScrapeConfig holds the single-study limits and image handshake timings.
type ScrapeConfig struct {
	ImageCap     int           `yaml:"image_cap"`
	PollTimeout  time.Duration `yaml:"poll_timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

// HistoryConfig holds the longitudinal limits.
type HistoryConfig struct {
	ImageCap    int           `yaml:"image_cap"`
	PollTimeout time.Duration `yaml:"poll_timeout"`
	Settle      time.Duration `yaml:"settle"`
}

// ServeConfig controls the HTTP trigger surface.
type ServeConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Load reads path (when non-empty), then .env files (when present), then
// applies environment overrides. Variables already set in the process
// environment take precedence over .env.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := loadEnvFiles(envFiles...); err != nil {
		return nil, err
	}
	cfg.applyEnv(os.LookupEnv)
	return cfg, cfg.Validate()
}

func loadEnvFiles(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: load %s: %w", f, err)
		}
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvServiceURL); ok && strings.TrimSpace(v) != "" {
		c.Service.URL = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvLogLevel); ok && strings.TrimSpace(v) != "" {
		c.LogLevel = strings.TrimSpace(v)
	}
}

// PreflightEnabled reports whether the health pre-flight runs before a
// longitudinal run. Default: true.
func (c *Config) PreflightEnabled() bool {
	return c.Service.Preflight == nil || *c.Service.Preflight
}

// Validate checks values that have no sensible default.
func (c *Config) Validate() error {
	if c.Service.URL == "" {
		return errors.New("config: service.url is empty")
	}
	if c.Scrape.ImageCap < 0 || c.History.ImageCap < 0 {
		return errors.New("config: image caps must not be negative")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Browser.StartURL == "" {
		c.Browser.StartURL = "https://app.ultralinq.net/"
	}
	if c.Browser.AttachMatch == "" {
		c.Browser.AttachMatch = "ultralinq"
	}
	if c.Browser.NavigateTimeout <= 0 {
		c.Browser.NavigateTimeout = 30 * time.Second
	}
	if c.Service.URL == "" {
		c.Service.URL = "http://localhost:3000"
	}
	if c.Service.HistoryPath == "" {
		c.Service.HistoryPath = "/analyze-patient-history-extension"
	}
	if c.Service.Timeout <= 0 {
		c.Service.Timeout = 3 * time.Minute
	}
	if c.Scrape.ImageCap == 0 {
		c.Scrape.ImageCap = 60
	}
	if c.Scrape.PollTimeout <= 0 {
		c.Scrape.PollTimeout = 7 * time.Second
	}
	if c.Scrape.PollInterval <= 0 {
		c.Scrape.PollInterval = 300 * time.Millisecond
	}
	if c.Scrape.FetchTimeout <= 0 {
		c.Scrape.FetchTimeout = 10 * time.Second
	}
	if c.History.ImageCap == 0 {
		c.History.ImageCap = 15
	}
	if c.History.PollTimeout <= 0 {
		c.History.PollTimeout = 5 * time.Second
	}
	if c.History.Settle <= 0 {
		c.History.Settle = 4 * time.Second
	}
	if c.Serve.Addr == "" {
		c.Serve.Addr = "127.0.0.1:8787"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
