// Package config handles loading and managing application configuration
// from YAML files, .env files and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/openclaw/qrgen/encoder"
)

// MaxScale is the largest accepted pixels-per-module value.
const MaxScale = 256

// Config holds all application configuration values.
type Config struct {
	Port             int      `yaml:"port"`
	DataDir          string   `yaml:"data_dir"`
	LogLevel         string   `yaml:"log_level"`
	LogFormat        string   `yaml:"log_format"`
	Scale            int      `yaml:"scale"`
	ErrorLevel       string   `yaml:"error_level"`
	Foreground       string   `yaml:"foreground"`
	Background       string   `yaml:"background"`
	HistoryEnabled   bool     `yaml:"history_enabled"`
	HistoryRetention Duration `yaml:"history_retention"`
	PruneInterval    Duration `yaml:"prune_interval"`
	WebhookURL       string   `yaml:"webhook_url"`
	MaxTextBytes     int64    `yaml:"max_text_bytes"`
	ReadTimeout      Duration `yaml:"read_timeout"`
	WriteTimeout     Duration `yaml:"write_timeout"`
}

// Duration is a wrapper around time.Duration that supports YAML unmarshalling
// from human-readable strings like "30s", "5m", "1h".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML implements the yaml.Marshaler interface for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// defaults returns a Config populated with sensible default values.
func defaults() *Config {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return &Config{
		Port:             8560,
		DataDir:          filepath.Join(homeDir, ".qrgen"),
		LogLevel:         "info",
		LogFormat:        "text",
		Scale:            5,
		ErrorLevel:       "H",
		Foreground:       "#000000",
		Background:       "#ffffff",
		HistoryEnabled:   true,
		HistoryRetention: Duration{30 * 24 * time.Hour},
		PruneInterval:    Duration{time.Hour},
		MaxTextBytes:     4096,
		ReadTimeout:      Duration{10 * time.Second},
		WriteTimeout:     Duration{30 * time.Second},
	}
}

// Load reads configuration from the YAML file at path, falling back to
// defaults if the file does not exist. A .env file next to the working
// directory is loaded into the environment (without overriding variables
// already set), then QRGEN_* environment variables override file and default
// values.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// File doesn't exist — proceed with defaults.
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies QRGEN_* environment variable overrides to cfg.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("QRGEN_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	if v := os.Getenv("QRGEN_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("QRGEN_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("QRGEN_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("QRGEN_SCALE"); v != "" {
		if s, err := strconv.Atoi(v); err == nil {
			cfg.Scale = s
		}
	}
	if v := os.Getenv("QRGEN_ERROR_LEVEL"); v != "" {
		cfg.ErrorLevel = v
	}
	if v := os.Getenv("QRGEN_FOREGROUND"); v != "" {
		cfg.Foreground = v
	}
	if v := os.Getenv("QRGEN_BACKGROUND"); v != "" {
		cfg.Background = v
	}
	if v := os.Getenv("QRGEN_WEBHOOK_URL"); v != "" {
		cfg.WebhookURL = v
	}
	if v := os.Getenv("QRGEN_MAX_TEXT_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.MaxTextBytes = n
		}
	}
	if v := os.Getenv("QRGEN_HISTORY_RETENTION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HistoryRetention = Duration{d}
		}
	}
	if v := os.Getenv("QRGEN_HISTORY_ENABLED"); v != "" {
		switch strings.ToLower(v) {
		case "true", "1", "yes":
			cfg.HistoryEnabled = true
		case "false", "0", "no":
			cfg.HistoryEnabled = false
		}
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Scale < 1 || c.Scale > MaxScale {
		return fmt.Errorf("invalid scale %d: must be between 1 and %d", c.Scale, MaxScale)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	fg, bg, err := c.Colors()
	if err != nil {
		return err
	}
	if fg == bg {
		return fmt.Errorf("foreground and background are both %s", c.Foreground)
	}
	if c.MaxTextBytes <= 0 {
		return fmt.Errorf("invalid max_text_bytes %d", c.MaxTextBytes)
	}
	return nil
}

// Level returns the parsed error-correction level.
func (c *Config) Level() (encoder.Level, error) {
	return encoder.ParseLevel(c.ErrorLevel)
}

// Colors returns the parsed foreground and background colours.
func (c *Config) Colors() (fg, bg color.NRGBA, err error) {
	if fg, err = ParseHexColor(c.Foreground); err != nil {
		return fg, bg, fmt.Errorf("foreground: %w", err)
	}
	if bg, err = ParseHexColor(c.Background); err != nil {
		return fg, bg, fmt.Errorf("background: %w", err)
	}
	return fg, bg, nil
}

// ParseHexColor parses "#rgb" or "#rrggbb" (the leading # is optional) into
// an opaque colour.
func ParseHexColor(s string) (color.NRGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

// EnsureDataDir creates the DataDir if it does not already exist.
func (c *Config) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir %s: %w", c.DataDir, err)
	}
	return nil
}

// HistoryPath returns the location of the history database.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.DataDir, "history.db")
}
