// Copyright (c) 2026 Yomira. All rights reserved.
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
  - DI-Friendly: Passed to core components (DB, Redis, signer) via constructors.
  - Fail Fast: Cross-field rules are checked by [Config.Validate] before any wiring.
*/
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store backends accepted by STORE_BACKEND.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// minSecretLength is the shortest HS256 secret accepted.
const minSecretLength = 32

// # Configuration Schema

// Config holds all runtime configuration for the keygate API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// StoreBackend selects the user store implementation.
	StoreBackend string `env:"STORE_BACKEND" envDefault:"postgres"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Store (Redis). Empty keeps refresh families in process memory.
	RedisURL string `env:"REDIS_URL"`

	// Token signing. Either a shared HS256 secret or an RS256 key pair.
	JWTSecret      string        `env:"JWT_SECRET"`
	JWTPrivKeyPath string        `env:"JWT_PRIVATE_KEY_PATH"`
	JWTPubKeyPath  string        `env:"JWT_PUBLIC_KEY_PATH"`
	JWTIssuer      string        `env:"JWT_ISSUER"        envDefault:"keygate"`
	AccessTTL      time.Duration `env:"ACCESS_TOKEN_TTL"  envDefault:"15m"`
	RefreshTTL     time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`

	// Credentials
	BcryptCost   int    `env:"BCRYPT_COST"    envDefault:"12"`
	APIKeyPrefix string `env:"API_KEY_PREFIX" envDefault:"kg_"`

	// Accounts registered with one of these emails receive the admin role.
	AdminEmails []string `env:"ADMIN_EMAILS" envSeparator:","`

	// Per-IP rate limiting
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS"   envDefault:"20"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"40"`

	// Read client IPs from X-Real-IP / X-Forwarded-For. Enable only behind a
	// proxy that overwrites them.
	TrustProxyHeaders bool `env:"TRUST_PROXY_HEADERS" envDefault:"false"`

	// Cross-Origin Resource Sharing. Origins ending with this suffix are
	// allowed outside development.
	AllowedOriginSuffix string `env:"ALLOWED_ORIGIN_SUFFIX"`

	// Gated collaborators
	LLMEndpoint    string `env:"LLM_ENDPOINT"`
	LLMAPIKey      string `env:"LLM_API_KEY"`
	LLMModel       string `env:"LLM_MODEL"        envDefault:"gpt-4o-mini"`
	UploadMaxBytes int64  `env:"UPLOAD_MAX_BYTES" envDefault:"10485760"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct and validates it.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Validate enforces the cross-field rules that struct tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreBackend {
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORE_BACKEND=postgres"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be %q or %q", StorePostgres, StoreMemory))
	}

	if c.UsesRSA() {
		if c.JWTPrivKeyPath == "" || c.JWTPubKeyPath == "" {
			errs = append(errs, errors.New("JWT_PRIVATE_KEY_PATH and JWT_PUBLIC_KEY_PATH must be set together"))
		}
	} else if len(c.JWTSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", minSecretLength))
	}

	if c.AccessTTL <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL must be positive"))
	}
	if c.RefreshTTL <= c.AccessTTL {
		errs = append(errs, errors.New("REFRESH_TOKEN_TTL must be longer than ACCESS_TOKEN_TTL"))
	}

	if strings.TrimSpace(c.APIKeyPrefix) == "" {
		errs = append(errs, errors.New("API_KEY_PREFIX must not be empty"))
	}

	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"))
	}

	if c.UploadMaxBytes <= 0 {
		errs = append(errs, errors.New("UPLOAD_MAX_BYTES must be positive"))
	}

	return errors.Join(errs...)
}

// UsesRSA reports whether an RS256 key pair was configured.
func (c *Config) UsesRSA() bool {
	return c.JWTPrivKeyPath != "" || c.JWTPubKeyPath != ""
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
