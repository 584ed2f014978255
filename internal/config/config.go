// Package config содержит логику чтения конфигурации сервиса флористики.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса флористики.
type Config struct {
	RunAddress         string        `env:"RUN_ADDRESS"`
	DatabaseURI        string        `env:"DATABASE_URI"`
	OrderSystemAddress string        `env:"ORDER_SYSTEM_ADDRESS"`
	MarginMultiplier   float64       `env:"MARGIN_MULTIPLIER"`
	SessionTTL         time.Duration `env:"SESSION_TTL"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envOrderAddress := cfg.OrderSystemAddress
	envMargin := cfg.MarginMultiplier
	envTTL := cfg.SessionTTL

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.OrderSystemAddress, "r", "", "order system address")
	flag.Float64Var(&cfg.MarginMultiplier, "m", 1.5, "sale price margin multiplier")
	flag.DurationVar(&cfg.SessionTTL, "t", 30*time.Minute, "idle editing session lifetime")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envOrderAddress != "" {
		cfg.OrderSystemAddress = envOrderAddress
	}
	if envMargin != 0 {
		cfg.MarginMultiplier = envMargin
	}
	if envTTL != 0 {
		cfg.SessionTTL = envTTL
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.MarginMultiplier <= 0 {
		return nil, fmt.Errorf("margin multiplier must be positive, got %v", cfg.MarginMultiplier)
	}

	return cfg, nil
}
