package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL string

	// HTTP API configuration
	HTTPBind string

	// Ledger defaults
	DefaultChipsToCashRatio int64 // cash units per chip when a session omits one
	MaxPlayersPerSession    int   // defensive bound on session size

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		HTTPBind:    os.Getenv("HTTP_BIND"),

		// Ledger defaults
		DefaultChipsToCashRatio: 1,
		MaxPlayersPerSession:    64,

		Environment: os.Getenv("ENVIRONMENT"),
	}

	if config.HTTPBind == "" {
		config.HTTPBind = "127.0.0.1:8080"
	}

	// Override defaults if environment variables are set
	if ratio := os.Getenv("DEFAULT_CHIPS_TO_CASH_RATIO"); ratio != "" {
		parsed, err := strconv.ParseInt(ratio, 10, 64)
		if err != nil || parsed < 1 {
			return nil, fmt.Errorf("DEFAULT_CHIPS_TO_CASH_RATIO must be a positive integer, got %q", ratio)
		}
		config.DefaultChipsToCashRatio = parsed
	}
	if limit := os.Getenv("MAX_PLAYERS_PER_SESSION"); limit != "" {
		if parsed, err := strconv.Atoi(limit); err == nil && parsed > 0 {
			config.MaxPlayersPerSession = parsed
		}
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	}

	return config, nil
}
