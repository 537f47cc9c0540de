// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema names the tables, columns and constraints of the database so
// queries never repeat string literals.
package schema

// UserAccountTable represents the 'users.account' table
type UserAccountTable struct {
	Table        string
	ID           string
	Email        string
	Username     string
	Password     string
	Role         string
	APIKeyHash   string
	APIKeyPrefix string
	APIKeyActive string
	CreatedAt    string
	UpdatedAt    string

	// Unique constraints
	EmailKey      string
	UsernameKey   string
	APIKeyHashKey string
}

// UserAccount is the schema definition for users.account
var UserAccount = UserAccountTable{
	Table:        "users.account",
	ID:           "id",
	Email:        "email",
	Username:     "username",
	Password:     "passwordhash",
	Role:         "role",
	APIKeyHash:   "apikeyhash",
	APIKeyPrefix: "apikeyprefix",
	APIKeyActive: "apikeyactive",
	CreatedAt:    "createdat",
	UpdatedAt:    "updatedat",

	EmailKey:      "account_email_key",
	UsernameKey:   "account_username_key",
	APIKeyHashKey: "account_apikeyhash_key",
}

// Columns returns all column names in declaration order.
func (t UserAccountTable) Columns() []string {
	return []string{
		t.ID, t.Email, t.Username, t.Password, t.Role,
		t.APIKeyHash, t.APIKeyPrefix, t.APIKeyActive, t.CreatedAt, t.UpdatedAt,
	}
}

// Constraints returns the unique constraint names.
func (t UserAccountTable) Constraints() []string {
	return []string{t.EmailKey, t.UsernameKey, t.APIKeyHashKey}
}
