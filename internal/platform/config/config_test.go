// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/keygate/internal/platform/config"
)

const testSecret = "0123456789abcdef0123456789abcdef"

/*
TestLoad_Defaults checks the environment defaults with the memory backend.
*/
func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 168*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, "kg_", cfg.APIKeyPrefix)
	assert.Equal(t, "keygate", cfg.JWTIssuer)
	assert.Empty(t, cfg.AdminEmails)
	assert.False(t, cfg.TrustProxyHeaders)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.UsesRSA())
}

/*
TestLoad_RejectsRefreshShorterThanAccess fails fast on inverted lifetimes.
*/
func TestLoad_RejectsRefreshShorterThanAccess(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("ACCESS_TOKEN_TTL", "1h")
	t.Setenv("REFRESH_TOKEN_TTL", "30m")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REFRESH_TOKEN_TTL")
}

/*
TestLoad_AdminEmails splits the comma-separated list.
*/
func TestLoad_AdminEmails(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("ADMIN_EMAILS", "root@example.com,ops@example.com")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"root@example.com", "ops@example.com"}, cfg.AdminEmails)
}

/*
TestConfig_Validate covers the cross-field rules.
*/
func TestConfig_Validate(t *testing.T) {
	valid := func() config.Config {
		return config.Config{
			StoreBackend:   config.StoreMemory,
			JWTSecret:      testSecret,
			AccessTTL:      15 * time.Minute,
			RefreshTTL:     time.Hour,
			APIKeyPrefix:   "kg_",
			RateLimitRPS:   10,
			RateLimitBurst: 10,
			UploadMaxBytes: 1024,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"valid", func(*config.Config) {}, ""},
		{"postgres_without_url", func(c *config.Config) { c.StoreBackend = config.StorePostgres }, "DATABASE_URL"},
		{"unknown_backend", func(c *config.Config) { c.StoreBackend = "sqlite" }, "STORE_BACKEND"},
		{"short_secret", func(c *config.Config) { c.JWTSecret = "short" }, "JWT_SECRET"},
		{"half_rsa_pair", func(c *config.Config) { c.JWTPrivKeyPath = "/keys/private.pem" }, "JWT_PUBLIC_KEY_PATH"},
		{"equal_ttls", func(c *config.Config) { c.RefreshTTL = c.AccessTTL }, "REFRESH_TOKEN_TTL"},
		{"empty_prefix", func(c *config.Config) { c.APIKeyPrefix = " " }, "API_KEY_PREFIX"},
		{"zero_rate", func(c *config.Config) { c.RateLimitRPS = 0 }, "RATE_LIMIT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
