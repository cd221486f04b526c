// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads son1config settings.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// SON1_* environment variables. Command-line flags are applied last by the
// caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v2"
)

// DefaultFile is read when no config path is given and it exists
const DefaultFile = "son1config.yaml"

// Config is the complete tool configuration
type Config struct {
	Serial    SerialConfig    `yaml:"serial"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Catalog   string          `yaml:"catalog" env:"SON1_CATALOG"`
	PacingMs  int             `yaml:"pacingMs" env:"SON1_PACING_MS"`
	Log       LogConfig       `yaml:"log"`
}

// SerialConfig holds the serial line settings
type SerialConfig struct {
	Port     string `yaml:"port" env:"SON1_PORT"`
	Baud     int    `yaml:"baud" env:"SON1_BAUD"`
	Parity   string `yaml:"parity" env:"SON1_PARITY"`
	DataBits int    `yaml:"dataBits" env:"SON1_DATA_BITS"`
	StopBits int    `yaml:"stopBits" env:"SON1_STOP_BITS"`
}

// WebSocketConfig holds the serial bridge settings
type WebSocketConfig struct {
	URL         string `yaml:"url" env:"SON1_URL"`
	Username    string `yaml:"username" env:"SON1_USERNAME"`
	NoSSLVerify bool   `yaml:"noSslVerify" env:"SON1_NO_SSL_VERIFY"`
}

// LogConfig holds the traffic log settings. An empty File disables it.
type LogConfig struct {
	File       string `yaml:"file" env:"SON1_LOG_FILE"`
	MaxSizeMB  int    `yaml:"maxSizeMb" env:"SON1_LOG_MAX_SIZE_MB"`
	MaxBackups int    `yaml:"maxBackups" env:"SON1_LOG_MAX_BACKUPS"`
	MaxAgeDays int    `yaml:"maxAgeDays" env:"SON1_LOG_MAX_AGE_DAYS"`
	Compress   bool   `yaml:"compress" env:"SON1_LOG_COMPRESS"`
}

// Parity names accepted in configuration
var Parities = []string{"none", "even", "odd", "mark", "space"}

// Default returns the built-in configuration: 9600 baud 8E1, 100 ms pacing
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Baud:     9600,
			Parity:   "even",
			DataBits: 8,
			StopBits: 1,
		},
		Catalog:  "commands.json",
		PacingMs: 100,
		Log: LogConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path and the
// environment. An empty path reads DefaultFile if it exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	return yaml.UnmarshalStrict(data, cfg)
}

// Validate checks the serial line and pacing settings
func (c *Config) Validate() error {
	var errs []error
	if c.Serial.Baud <= 0 {
		errs = append(errs, fmt.Errorf("baud must be positive, got %d", c.Serial.Baud))
	}
	if !validParity(c.Serial.Parity) {
		errs = append(errs, fmt.Errorf("parity must be one of %s, got %q", strings.Join(Parities, ", "), c.Serial.Parity))
	}
	if c.Serial.DataBits < 5 || c.Serial.DataBits > 8 {
		errs = append(errs, fmt.Errorf("data bits must be between 5 and 8, got %d", c.Serial.DataBits))
	}
	if c.Serial.StopBits != 1 && c.Serial.StopBits != 2 {
		errs = append(errs, fmt.Errorf("stop bits must be 1 or 2, got %d", c.Serial.StopBits))
	}
	if c.PacingMs < 0 {
		errs = append(errs, fmt.Errorf("pacing must not be negative, got %d ms", c.PacingMs))
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		errs = append(errs, errors.New("log rotation settings must not be negative"))
	}
	return errors.Join(errs...)
}

// Pacing returns the inter-frame delay
func (c *Config) Pacing() time.Duration {
	return time.Duration(c.PacingMs) * time.Millisecond
}

func validParity(p string) bool {
	for _, name := range Parities {
		if strings.EqualFold(p, name) {
			return true
		}
	}
	return false
}
