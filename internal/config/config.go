package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config carries the server settings and the pointer policy constants.
// Precedence: built-in defaults, then the optional config file, then
// command-line flags.
type Config struct {
	Port    int `yaml:"port"`
	WebPort int `yaml:"web_port"`

	// Scroll sensitivity: wheel ticks = clamp(round(delta/divisor), ±limit).
	ScrollDivisor int `yaml:"scroll_divisor"`
	ScrollLimit   int `yaml:"scroll_limit"`

	// Deltas at or below this magnitude are treated as touch jitter and
	// never scrolled.
	JitterThreshold float64 `yaml:"jitter_threshold"`

	MiddleClick      bool `yaml:"middle_click"`
	HorizontalScroll bool `yaml:"horizontal_scroll"`

	// HistoryPath enables the SQLite connection log when non-empty.
	HistoryPath string `yaml:"history_path"`

	ConfigPath string `yaml:"-"`
}

func Default() *Config {
	return &Config{
		Port:             8888,
		WebPort:          0,
		ScrollDivisor:    3,
		ScrollLimit:      15,
		JitterThreshold:  1.0,
		MiddleClick:      true,
		HorizontalScroll: true,
	}
}

func Load() (*Config, error) {
	cfg := Default()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	cfg.ConfigPath = filepath.Join(homeDir, ".config", "remotemouse", "config.yaml")

	if err := cfg.loadFromFile(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	flag.IntVar(&cfg.Port, "port", cfg.Port, "TCP listen port (1-65535)")
	flag.IntVar(&cfg.WebPort, "web-port", cfg.WebPort, "WebSocket bridge port (0 disables)")
	flag.IntVar(&cfg.ScrollDivisor, "scroll-divisor", cfg.ScrollDivisor, "scroll sensitivity divisor")
	flag.IntVar(&cfg.ScrollLimit, "scroll-limit", cfg.ScrollLimit, "max wheel ticks per scroll command")
	flag.StringVar(&cfg.HistoryPath, "history", cfg.HistoryPath, "connection history database path (empty disables)")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 1 and 65535", c.Port)
	}
	if c.WebPort < 0 || c.WebPort > 65535 {
		return fmt.Errorf("invalid web port %d: must be between 0 and 65535", c.WebPort)
	}
	if c.ScrollDivisor < 1 {
		return fmt.Errorf("invalid scroll divisor %d: must be at least 1", c.ScrollDivisor)
	}
	if c.ScrollLimit < 1 {
		return fmt.Errorf("invalid scroll limit %d: must be at least 1", c.ScrollLimit)
	}
	if c.JitterThreshold < 0 {
		return fmt.Errorf("invalid jitter threshold %v: must not be negative", c.JitterThreshold)
	}
	return nil
}

func (c *Config) loadFromFile() error {
	data, err := os.ReadFile(c.ConfigPath)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %q: %w", c.ConfigPath, err)
	}
	return nil
}
