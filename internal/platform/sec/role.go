// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

// # User Roles

// Role represents the authorization level granted to an account.
//
// The set is closed: only the constants below are valid, and [ParseRole]
// rejects anything else.
type Role string

const (
	// Default role for standard registered users
	RoleUser Role = "user"

	// Unrestricted administrative access
	RoleAdmin Role = "admin"
)

// Roles lists every valid role.
var Roles = []Role{RoleUser, RoleAdmin}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// ParseRole converts a stored or signed role string into a [Role].
// Matching is case-sensitive.
func ParseRole(value string) (Role, bool) {
	role := Role(value)
	return role, role.Valid()
}

// # Authenticated Principal

// Method names the credential scheme a request was authenticated with.
type Method string

const (
	MethodJWT    Method = "jwt"
	MethodAPIKey Method = "api_key"
)

// Identity is the authenticated principal attached to a request context.
//
// It never carries secret material (password hash, API key).
type Identity struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Method   Method `json:"method"`
}

// HasRole reports whether the identity's role exactly matches one of allowed.
func (i *Identity) HasRole(allowed ...Role) bool {
	for _, role := range allowed {
		if i.Role == role {
			return true
		}
	}
	return false
}
