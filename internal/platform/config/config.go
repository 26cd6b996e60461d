// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, pipeline, reader) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the Tosho API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// LibraryPath is the root of the organized comic library tree.
	LibraryPath string `env:"LIBRARY_PATH,required"`

	// TempPath is where uploads are spooled and ingestion jobs unpack.
	TempPath string `env:"TEMP_PATH,required"`

	// JWTSecret is the shared HS256 secret used to verify bearer tokens.
	// Token issuance happens in the identity service, not here.
	JWTSecret string `env:"JWT_SECRET,required"`

	// AI filename fallback (Ollama-compatible). Empty URL disables it.
	AIURL   string `env:"AI_URL"`
	AIModel string `env:"AI_MODEL" envDefault:"phi3:mini"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct and ensures the
// library and temp directories exist.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	// Both trees must exist before the pipeline or scanner touch them.
	for _, dir := range []string{cfg.LibraryPath, cfg.TempPath} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("config: failed to create directory %s: %w", dir, err)
		}
	}

	return cfg, nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
