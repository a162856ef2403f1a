// Package config loads server and console settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/robalobadob/guessmaster/internal/game"
)

// Ledger backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

type Config struct {
	Port     string `env:"PORT" envDefault:"5175"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	// LogFile adds a size-rotated file sink next to stdout/stderr.
	LogFile       string `env:"LOG_FILE"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"1"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"10"`
	// NodeEnv keeps the deployment switch the web client already sets;
	// "production" turns on Secure cookies.
	NodeEnv      string `env:"NODE_ENV" envDefault:"development"`
	ClientOrigin string `env:"CLIENT_ORIGIN"`

	DataDir       string `env:"DATA_DIR" envDefault:"data"`
	LedgerBackend string `env:"LEDGER_BACKEND" envDefault:"file"`
	DBPath        string `env:"DB_PATH" envDefault:"data/scores.db"`

	SessionSecret  string        `env:"SESSION_SECRET" envDefault:"dev_secret_change_me"`
	SessionTimeout time.Duration `env:"SESSION_TIMEOUT" envDefault:"30m"`
	SweepInterval  time.Duration `env:"SWEEP_INTERVAL" envDefault:"5m"`

	SingleMaxAttempts int    `env:"SINGLE_MAX_ATTEMPTS" envDefault:"0"`
	MultiMaxAttempts  int    `env:"MULTI_MAX_ATTEMPTS" envDefault:"8"`
	MultiRangeMax     int    `env:"MULTI_RANGE_MAX" envDefault:"100"`
	LossPolicy        string `env:"LOSS_POLICY" envDefault:"max_attempts"`
	DailySalt         string `env:"DAILY_SALT" envDefault:"local_dev_salt"`

	// AdminPasswordHash is a bcrypt hash; empty disables the reset endpoint.
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH"`
}

// Load parses the environment and validates the result.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks values the game cannot run with.
func (c *Config) Validate() error {
	switch c.LedgerBackend {
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("LEDGER_BACKEND must be %q or %q, got %q", BackendFile, BackendSQLite, c.LedgerBackend)
	}
	if c.MultiMaxAttempts <= 0 {
		return fmt.Errorf("MULTI_MAX_ATTEMPTS must be > 0")
	}
	if c.MultiRangeMax <= 1 {
		return fmt.Errorf("MULTI_RANGE_MAX must be > 1")
	}
	if c.SessionTimeout <= 0 || c.SweepInterval <= 0 {
		return fmt.Errorf("SESSION_TIMEOUT and SWEEP_INTERVAL must be positive")
	}
	if c.LogFile != "" && (c.LogMaxSizeMB <= 0 || c.LogMaxBackups < 0) {
		return fmt.Errorf("LOG_MAX_SIZE_MB must be > 0 and LOG_MAX_BACKUPS >= 0")
	}
	if _, err := game.ParseLossPolicy(c.LossPolicy); err != nil {
		return fmt.Errorf("LOSS_POLICY: %w", err)
	}
	return nil
}

// IsProduction reports whether cookies should be Secure.
func (c *Config) IsProduction() bool { return c.NodeEnv == "production" }

// Tiers is the difficulty table after applying SINGLE_MAX_ATTEMPTS.
func (c *Config) Tiers() game.Tiers {
	return game.DefaultTiers().WithMaxAttempts(c.SingleMaxAttempts)
}

// MultiRange is the range players choose secret numbers from.
func (c *Config) MultiRange() game.Range {
	return game.Range{Low: 1, High: c.MultiRangeMax}
}

// Policy returns the validated loss policy.
func (c *Config) Policy() game.LossPolicy {
	p, _ := game.ParseLossPolicy(c.LossPolicy)
	return p
}
