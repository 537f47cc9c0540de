// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/keygate/internal/platform/apperr"
	"github.com/taibuivan/keygate/internal/platform/database/schema"
	"github.com/taibuivan/keygate/internal/platform/dberr"
	"github.com/taibuivan/keygate/pkg/uuid"
)

var accountConflicts = map[string]string{
	schema.UserAccount.EmailKey:      "Email is already registered",
	schema.UserAccount.UsernameKey:   "Username is already taken",
	schema.UserAccount.APIKeyHashKey: "API key collision",
}

// selectAccount reads every column; nullable key columns scan as empty strings.
var selectAccount = fmt.Sprintf(`
	SELECT %s::text, %s, %s, %s, %s,
	       COALESCE(%s, ''), COALESCE(%s, ''), %s,
	       %s, %s
	FROM %s`,
	schema.UserAccount.ID, schema.UserAccount.Email, schema.UserAccount.Username,
	schema.UserAccount.Password, schema.UserAccount.Role,
	schema.UserAccount.APIKeyHash, schema.UserAccount.APIKeyPrefix, schema.UserAccount.APIKeyActive,
	schema.UserAccount.CreatedAt, schema.UserAccount.UpdatedAt,
	schema.UserAccount.Table,
)

// # User Repository

// PostgresUserRepository implements [UserRepository] using pgx.
//
// Uniqueness is enforced by the table's unique constraints, so concurrent
// registrations race inside PostgreSQL and exactly one insert wins.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

/*
Create persists a new user record into the account table.

Parameters:
  - ctx: context.Context
  - user: *User (Entity to persist; timestamps are set here)

Returns:
  - error: apperr.Conflict on duplicate email/username, or database errors
*/
func (repository *PostgresUserRepository) Create(ctx context.Context, user *User) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		schema.UserAccount.Table,
		schema.UserAccount.ID, schema.UserAccount.Email, schema.UserAccount.Username,
		schema.UserAccount.Password, schema.UserAccount.Role,
		schema.UserAccount.CreatedAt, schema.UserAccount.UpdatedAt,
	)

	now := time.Now().UTC()

	_, err := repository.pool.Exec(ctx, query,
		user.ID,
		user.Email,
		user.Username,
		user.PasswordHash,
		user.Role,
		now,
	)
	if err != nil {
		if _, ok := dberr.UniqueViolation(err); ok {
			return dberr.Wrap(err, "User", accountConflicts)
		}
		return fmt.Errorf("postgres_user_repo_create_failed: %w", err)
	}

	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// FindByID retrieves an account by primary key. Ids that are not UUIDs cannot exist.
func (repository *PostgresUserRepository) FindByID(ctx context.Context, id string) (*User, error) {
	if !uuid.Valid(id) {
		return nil, apperr.NotFound("User")
	}
	return repository.findOne(ctx, "find_by_id", selectAccount+where(schema.UserAccount.ID), id)
}

// FindByEmail retrieves an account by its normalized email.
func (repository *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return repository.findOne(ctx, "find_by_email", selectAccount+where(schema.UserAccount.Email), email)
}

// FindByUsername retrieves an account by its normalized username.
func (repository *PostgresUserRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	return repository.findOne(ctx, "find_by_username", selectAccount+where(schema.UserAccount.Username), username)
}

// FindByAPIKeyHash retrieves the owner of an API key hash.
func (repository *PostgresUserRepository) FindByAPIKeyHash(ctx context.Context, keyHash string) (*User, error) {
	return repository.findOne(ctx, "find_by_api_key", selectAccount+where(schema.UserAccount.APIKeyHash), keyHash)
}

/*
UpdatePasswordHash performs a compare-and-swap on the password hash.

Description: The WHERE clause pins the hash the caller verified, so two
concurrent changes cannot both apply.

Returns:
  - error: ErrStalePassword when no row matched
*/
func (repository *PostgresUserRepository) UpdatePasswordHash(ctx context.Context, id, expectedOld, newHash string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $3, %s = NOW()
		WHERE %s = $1 AND %s = $2`,
		schema.UserAccount.Table,
		schema.UserAccount.Password, schema.UserAccount.UpdatedAt,
		schema.UserAccount.ID, schema.UserAccount.Password,
	)

	if !uuid.Valid(id) {
		return apperr.NotFound("User")
	}

	tag, err := repository.pool.Exec(ctx, query, id, expectedOld, newHash)
	if err != nil {
		return fmt.Errorf("postgres_user_repo_update_password_failed: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrStalePassword
	}

	return nil
}

/*
SetAPIKey replaces the stored key hash and display prefix and activates it.

Returns:
  - error: apperr.Conflict if another account holds the hash, apperr.NotFound
    if the user does not exist
*/
func (repository *PostgresUserRepository) SetAPIKey(ctx context.Context, id, keyHash, keyPrefix string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = $3, %s = TRUE, %s = NOW()
		WHERE %s = $1`,
		schema.UserAccount.Table,
		schema.UserAccount.APIKeyHash, schema.UserAccount.APIKeyPrefix,
		schema.UserAccount.APIKeyActive, schema.UserAccount.UpdatedAt,
		schema.UserAccount.ID,
	)

	return repository.execOne(ctx, "set_api_key", query, id, keyHash, keyPrefix)
}

// DeactivateAPIKey clears the active flag of the user's key.
func (repository *PostgresUserRepository) DeactivateAPIKey(ctx context.Context, id string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = FALSE, %s = NOW()
		WHERE %s = $1`,
		schema.UserAccount.Table,
		schema.UserAccount.APIKeyActive, schema.UserAccount.UpdatedAt,
		schema.UserAccount.ID,
	)

	return repository.execOne(ctx, "deactivate_api_key", query, id)
}

// # Helpers

func where(column string) string {
	return " WHERE " + column + " = $1"
}

func (repository *PostgresUserRepository) findOne(ctx context.Context, operation, query string, argument any) (*User, error) {
	user := &User{}
	err := repository.pool.QueryRow(ctx, query, argument).Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.PasswordHash,
		&user.Role,
		&user.APIKeyHash,
		&user.APIKeyPrefix,
		&user.APIKeyActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if dberr.IsNoRows(err) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("postgres_user_repo_%s_failed: %w", operation, err)
	}

	return user, nil
}

// execOne runs a single-row UPDATE keyed by id and classifies the outcome.
func (repository *PostgresUserRepository) execOne(ctx context.Context, operation, query, id string, arguments ...any) error {
	if !uuid.Valid(id) {
		return apperr.NotFound("User")
	}

	tag, err := repository.pool.Exec(ctx, query, append([]any{id}, arguments...)...)
	if err != nil {
		if _, ok := dberr.UniqueViolation(err); ok {
			return dberr.Wrap(err, "User", accountConflicts)
		}
		return fmt.Errorf("postgres_user_repo_%s_failed: %w", operation, err)
	}

	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User")
	}

	return nil
}

// compile-time check
var _ UserRepository = (*PostgresUserRepository)(nil)
