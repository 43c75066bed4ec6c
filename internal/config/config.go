// Package config loads the server configuration from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the process-wide configuration.
type Config struct {
	DBPath       string        `env:"CHRONOCORE_DB_PATH" envDefault:"data/chronocore.db"`
	Port         int           `env:"CHRONOCORE_PORT" envDefault:"8080"`
	TurnInterval time.Duration `env:"CHRONOCORE_TURN_INTERVAL" envDefault:"0s"`
	TurnsPerEra  int           `env:"CHRONOCORE_TURNS_PER_ERA" envDefault:"10"`
	LogLevel     string        `env:"CHRONOCORE_LOG_LEVEL" envDefault:"info"`
	Seed         int64         `env:"CHRONOCORE_SEED"`

	AnthropicKey string `env:"ANTHROPIC_API_KEY"`
	RandomOrgKey string `env:"RANDOM_ORG_API_KEY"`
	AdminKey     string `env:"CHRONOCORE_ADMIN_KEY"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses and validates the configuration.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the server cannot run with.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("CHRONOCORE_PORT %d out of range", c.Port)
	}
	if c.TurnsPerEra < 1 {
		return fmt.Errorf("CHRONOCORE_TURNS_PER_ERA must be positive, got %d", c.TurnsPerEra)
	}
	if c.TurnInterval < 0 {
		return fmt.Errorf("CHRONOCORE_TURN_INTERVAL must not be negative")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("CHRONOCORE_DB_PATH is required")
	}
	return nil
}

// Level converts LogLevel into a slog level.
func (c Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("CHRONOCORE_LOG_LEVEL: %w", err)
	}
	return lvl, nil
}

// Addr is the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
