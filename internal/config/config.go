// Package config содержит логику чтения конфигурации движка резервации билетов.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации движка резервации билетов.
type Config struct {
	RunAddress        string        `env:"RUN_ADDRESS"`
	DatabaseURI       string        `env:"DATABASE_URI"`
	LedgerAddress     string        `env:"LEDGER_ADDRESS"`
	HoldTTL           time.Duration `env:"HOLD_TTL"`
	SweepInterval     time.Duration `env:"SWEEP_INTERVAL"`
	MaxTicketsPerHold int           `env:"MAX_TICKETS_PER_HOLD"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envLedgerAddress := cfg.LedgerAddress
	envHoldTTL := cfg.HoldTTL
	envSweepInterval := cfg.SweepInterval
	envMaxTickets := cfg.MaxTicketsPerHold

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.LedgerAddress, "l", "", "coupon usage ledger address")
	flag.DurationVar(&cfg.HoldTTL, "t", 15*time.Minute, "default reservation window")
	flag.DurationVar(&cfg.SweepInterval, "s", 5*time.Second, "expiry sweep interval")
	flag.IntVar(&cfg.MaxTicketsPerHold, "m", 1000, "max tickets per hold")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envLedgerAddress != "" {
		cfg.LedgerAddress = envLedgerAddress
	}
	if envHoldTTL != 0 {
		cfg.HoldTTL = envHoldTTL
	}
	if envSweepInterval != 0 {
		cfg.SweepInterval = envSweepInterval
	}
	if envMaxTickets != 0 {
		cfg.MaxTicketsPerHold = envMaxTickets
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.HoldTTL <= 0 {
		cfg.HoldTTL = 15 * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 5 * time.Second
	}
	if cfg.MaxTicketsPerHold <= 0 {
		cfg.MaxTicketsPerHold = 1000
	}

	return cfg, nil
}
