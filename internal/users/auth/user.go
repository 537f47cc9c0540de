// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the identity layer of keygate: accounts, credentials,
token issuance and rotation, and the HTTP endpoints that expose them.

# Architecture

  - user.go: domain entities.
  - store.go: repository contracts; store_postgres.go, store_memory.go and
    store_redis.go implement them.
  - token.go: access/refresh issuance and verification on top of [sec.TokenSigner].
  - service.go: account use cases (register, login, password, API keys).
  - http.go: transport.
*/
package auth

import (
	"time"

	"github.com/taibuivan/keygate/internal/platform/sec"
)

// # Domain Entities

// User is a registered account.
//
// Secret material (password hash, API key hash) is never serialized.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         sec.Role  `json:"role"`
	APIKeyHash   string    `json:"-"`
	APIKeyPrefix string    `json:"-"`
	APIKeyActive bool      `json:"api_key_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasAPIKey reports whether a key was ever issued to the user.
func (u *User) HasAPIKey() bool {
	return u.APIKeyHash != ""
}

// Subject returns the token subject for u.
func (u *User) Subject() sec.Subject {
	return sec.Subject{
		UserID:   u.ID,
		Email:    u.Email,
		Username: u.Username,
		Role:     u.Role,
	}
}

// Identity builds the request principal for u.
func (u *User) Identity(method sec.Method) *sec.Identity {
	return &sec.Identity{
		UserID:   u.ID,
		Email:    u.Email,
		Username: u.Username,
		Role:     u.Role,
		Method:   method,
	}
}

// AdminView is the operator-facing projection of a user. It adds the key's
// display prefix, which ordinary responses omit.
type AdminView struct {
	*User
	HasAPIKey    bool   `json:"has_api_key"`
	APIKeyPrefix string `json:"api_key_prefix,omitempty"`
}

// NewAdminView projects u for operators.
func NewAdminView(u *User) AdminView {
	return AdminView{User: u, HasAPIKey: u.HasAPIKey(), APIKeyPrefix: u.APIKeyPrefix}
}

// # Field Identifiers

// JSON field names used in requests, responses and validation details.
const (
	FieldUsername        = "username"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldCurrentPassword = "current_password"
	FieldNewPassword     = "new_password"
	FieldRefreshToken    = "refresh_token"
)
