// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"time"

	"github.com/taibuivan/keygate/internal/platform/apperr"
)

// ErrStalePassword is returned by [UserRepository.UpdatePasswordHash] when the
// stored hash no longer matches the expected one.
var ErrStalePassword = apperr.Conflict("Password was changed by another request")

// # User Data Access

// UserRepository defines the data access contract for user accounts.
//
// Lookups return an [apperr.AppError] with code NOT_FOUND when the row is
// absent. Emails and usernames are stored and queried in normalized form.
type UserRepository interface {

	/*
		Create persists a brand-new account.

		Parameters:
		  - ctx: context.Context
		  - user: *User (ID, Email, Username, PasswordHash, Role set)

		Returns:
		  - error: apperr.Conflict when the email or username is taken
	*/
	Create(ctx context.Context, user *User) error

	// FindByID returns the account with the given id.
	FindByID(ctx context.Context, id string) (*User, error)

	// FindByEmail returns the account registered under a normalized email.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// FindByUsername returns the account with a normalized username.
	FindByUsername(ctx context.Context, username string) (*User, error)

	// FindByAPIKeyHash returns the account whose current key hashes to keyHash,
	// whether or not the key is active.
	FindByAPIKeyHash(ctx context.Context, keyHash string) (*User, error)

	/*
		UpdatePasswordHash swaps the password hash if it still equals expectedOld.

		Parameters:
		  - ctx: context.Context
		  - id: string
		  - expectedOld: string (hash the caller verified against)
		  - newHash: string

		Returns:
		  - error: ErrStalePassword if another change won the race
	*/
	UpdatePasswordHash(ctx context.Context, id, expectedOld, newHash string) error

	/*
		SetAPIKey replaces the user's key and activates it. The previous key
		stops resolving as soon as this returns.

		Returns:
		  - error: apperr.Conflict if keyHash belongs to another user
	*/
	SetAPIKey(ctx context.Context, id, keyHash, keyPrefix string) error

	// DeactivateAPIKey flags the current key inactive without removing it.
	DeactivateAPIKey(ctx context.Context, id string) error
}

// # Refresh Family Data Access

// FamilyRepository tracks the current refresh-token family of each user.
//
// A refresh token is honoured only while its family id is the stored one;
// each refresh moves the user to a new family, so a replayed token finds a
// stale id.
type FamilyRepository interface {

	// Start makes familyID the user's current family, replacing any other.
	Start(ctx context.Context, userID, familyID string, ttl time.Duration) error

	/*
		Rotate atomically replaces expected with next.

		Returns:
		  - bool: false when expected is no longer current (reuse or revoked)
		  - error: storage failures
	*/
	Rotate(ctx context.Context, userID, expected, next string, ttl time.Duration) (bool, error)

	// Revoke forgets the user's family; all outstanding refresh tokens die.
	Revoke(ctx context.Context, userID string) error
}
