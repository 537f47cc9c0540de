// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taibuivan/keygate/internal/platform/apperr"
	"github.com/taibuivan/keygate/internal/platform/ctxutil"
	"github.com/taibuivan/keygate/internal/platform/metrics"
	"github.com/taibuivan/keygate/internal/platform/sec"
	"github.com/taibuivan/keygate/internal/platform/validate"
	"github.com/taibuivan/keygate/pkg/normalize"
	"github.com/taibuivan/keygate/pkg/uuid"
)

// maxAPIKeyAttempts bounds re-rolls when a generated key collides.
const maxAPIKeyAttempts = 5

// Credential lifecycle events reported to the [EventObserver].
const (
	EventRegister       = "register"
	EventLogin          = "login"
	EventRefresh        = "refresh"
	EventPasswordChange = "password_change"
	EventAPIKeyRotate   = "api_key_rotate"
)

// ErrInvalidCredentials is the single answer to every failed login, so the
// response never reveals whether the email exists.
var ErrInvalidCredentials = apperr.Unauthenticated(apperr.CodeInvalidCredentials, "Invalid email or password")

// EventObserver receives credential lifecycle outcomes. It may be nil.
type EventObserver interface {
	ObserveCredentialEvent(event, outcome string)
}

// Service implements the account use cases.
//
// Passwords reach the repository only as bcrypt hashes and API keys only as
// SHA-256 digests. Every failed login returns [ErrInvalidCredentials].
type Service struct {
	users    UserRepository
	tokens   *TokenService
	hasher   *sec.PasswordHasher
	keys     *sec.APIKeyGenerator
	admins   map[string]struct{}
	observer EventObserver
}

// ServiceOption customises a [Service].
type ServiceOption func(*Service)

// WithAdminEmails grants the admin role to accounts registered with one of
// the given emails.
func WithAdminEmails(emails ...string) ServiceOption {
	return func(service *Service) {
		for _, email := range emails {
			if normalized := normalize.Email(email); normalized != "" {
				service.admins[normalized] = struct{}{}
			}
		}
	}
}

// WithObserver reports lifecycle events to observer.
func WithObserver(observer EventObserver) ServiceOption {
	return func(service *Service) {
		service.observer = observer
	}
}

// NewService constructs a new [Service] with its dependencies.
func NewService(users UserRepository, tokens *TokenService, hasher *sec.PasswordHasher, keys *sec.APIKeyGenerator, opts ...ServiceOption) *Service {
	service := &Service{
		users:  users,
		tokens: tokens,
		hasher: hasher,
		keys:   keys,
		admins: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Session is the result of a successful registration or login.
type Session struct {
	User   *User
	Tokens *TokenPair
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new member.
type RegisterInput struct {
	Email    string
	Username string
	Password string
}

/*
Register validates, hashes, and persists a brand new account, then signs the
user in.

Description: Email and username are normalized before validation and storage.
Uniqueness is left to the repository's atomic insert, so concurrent identical
registrations produce exactly one account.

Parameters:
  - ctx: context.Context
  - input: RegisterInput

Returns:
  - *Session: created user and a token pair
  - error: ValidationError, Conflict, or wrapped infrastructure errors
*/
func (service *Service) Register(ctx context.Context, input RegisterInput) (*Session, error) {
	email := normalize.Email(input.Email)
	username := normalize.Username(input.Username)

	validator := &validate.Validator{}
	err := validator.
		Required(FieldEmail, email).
		Email(FieldEmail, email).
		Required(FieldUsername, username).
		Username(FieldUsername, username).
		Password(FieldPassword, input.Password).
		Err()
	if err != nil {
		service.observe(EventRegister, false)
		return nil, err
	}

	hashedPassword, err := service.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	user := &User{
		ID:           uuid.New(),
		Email:        email,
		Username:     username,
		PasswordHash: hashedPassword,
		Role:         service.roleFor(email),
	}

	if err := service.users.Create(ctx, user); err != nil {
		service.observe(EventRegister, false)
		if apperr.HasCode(err, apperr.CodeConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("auth_service_register_failed: %w", err)
	}

	tokens, err := service.tokens.IssuePair(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("auth_service_register_failed: %w", err)
	}

	service.observe(EventRegister, true)
	ctxutil.GetLogger(ctx).InfoContext(ctx, "user_registered",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)

	return &Session{User: user, Tokens: tokens}, nil
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Email    string
	Password string
}

/*
Login verifies credentials and issues a token pair.

Description: Unknown emails still pay one bcrypt comparison, so response time
does not reveal whether an account exists.

Returns:
  - *Session
  - error: ValidationError for missing fields, ErrInvalidCredentials otherwise
*/
func (service *Service) Login(ctx context.Context, input LoginInput) (*Session, error) {
	email := normalize.Email(input.Email)

	validator := &validate.Validator{}
	if err := validator.
		Required(FieldEmail, email).
		Custom(FieldPassword, input.Password == "", "This field is required").
		Err(); err != nil {
		return nil, err
	}

	user, err := service.users.FindByEmail(ctx, email)
	if err != nil {
		if !apperr.HasCode(err, apperr.CodeNotFound) {
			return nil, fmt.Errorf("auth_service_login_failed: %w", err)
		}
		service.hasher.VerifyDummy(input.Password)
		return nil, service.loginFailed(ctx, "unknown_email")
	}

	matched, err := service.hasher.Verify(input.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("auth_service_login_failed: %w", err)
	}
	if !matched {
		return nil, service.loginFailed(ctx, "wrong_password")
	}

	tokens, err := service.tokens.IssuePair(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("auth_service_login_failed: %w", err)
	}

	service.observe(EventLogin, true)
	return &Session{User: user, Tokens: tokens}, nil
}

func (service *Service) loginFailed(ctx context.Context, reason string) error {
	service.observe(EventLogin, false)
	ctxutil.GetLogger(ctx).InfoContext(ctx, "login_failed", slog.String("reason", reason))
	return ErrInvalidCredentials
}

// Refresh rotates a refresh token into a new pair.
func (service *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, validate.RequiredError(FieldRefreshToken, "This field is required")
	}

	tokens, err := service.tokens.Refresh(ctx, refreshToken)
	if err != nil {
		service.observe(EventRefresh, false)
		if apperr.HasCode(err, apperr.CodeTokenReused) {
			ctxutil.GetLogger(ctx).WarnContext(ctx, "refresh_token_reused")
		}
		return nil, err
	}

	service.observe(EventRefresh, true)
	return tokens, nil
}

// Logout ends the caller's refresh family.
func (service *Service) Logout(ctx context.Context, identity *sec.Identity) error {
	if err := service.tokens.Revoke(ctx, identity.UserID); err != nil {
		return fmt.Errorf("auth_service_logout_failed: %w", err)
	}

	ctxutil.GetLogger(ctx).InfoContext(ctx, "user_logged_out")
	return nil
}

// # Account

// Me returns the caller's current account.
func (service *Service) Me(ctx context.Context, identity *sec.Identity) (*User, error) {
	user, err := service.GetUser(ctx, identity.UserID)
	if apperr.HasCode(err, apperr.CodeNotFound) {
		return nil, apperr.Unauthenticated(apperr.CodeUserNotFound, "User no longer exists")
	}
	return user, err
}

// GetUser returns the account with id. A missing account is USER_NOT_FOUND.
func (service *Service) GetUser(ctx context.Context, id string) (*User, error) {
	user, err := service.users.FindByID(ctx, id)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("auth_service_get_user_failed: %w", err)
	}
	return user, nil
}

// ChangePasswordInput carries the current and desired passwords.
type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
}

/*
ChangePassword replaces the caller's password.

Description: The current password is verified against the stored hash and the
new hash is written with a compare-and-swap on that same hash, so the check and
the write act as one step. All refresh tokens of the user are revoked.

Returns:
  - error: ValidationError for a weak or unchanged password,
    INVALID_CREDENTIALS for a wrong current password, Conflict if another
    change won the race
*/
func (service *Service) ChangePassword(ctx context.Context, identity *sec.Identity, input ChangePasswordInput) error {
	validator := &validate.Validator{}
	err := validator.
		Custom(FieldCurrentPassword, input.CurrentPassword == "", "This field is required").
		Password(FieldNewPassword, input.NewPassword).
		Custom(FieldNewPassword, input.NewPassword != "" && input.NewPassword == input.CurrentPassword,
			"New password must differ from the current one").
		Err()
	if err != nil {
		return err
	}

	user, err := service.GetUser(ctx, identity.UserID)
	if err != nil {
		return err
	}

	matched, err := service.hasher.Verify(input.CurrentPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("auth_service_change_password_failed: %w", err)
	}
	if !matched {
		service.observe(EventPasswordChange, false)
		return ErrInvalidCredentials
	}

	newHash, err := service.hasher.Hash(input.NewPassword)
	if err != nil {
		return fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	if err := service.users.UpdatePasswordHash(ctx, user.ID, user.PasswordHash, newHash); err != nil {
		service.observe(EventPasswordChange, false)
		if apperr.IsAppError(err) {
			return err
		}
		return fmt.Errorf("auth_service_change_password_failed: %w", err)
	}

	if err := service.tokens.Revoke(ctx, user.ID); err != nil {
		return fmt.Errorf("auth_service_change_password_failed: %w", err)
	}

	service.observe(EventPasswordChange, true)
	ctxutil.GetLogger(ctx).InfoContext(ctx, "password_changed")
	return nil
}

// # API Keys

/*
RotateAPIKey issues a new key for userID and supersedes the previous one.

Returns:
  - string: the raw key; it is not stored and cannot be shown again
  - error: NOT_FOUND or wrapped infrastructure errors
*/
func (service *Service) RotateAPIKey(ctx context.Context, userID string) (string, error) {
	for attempt := 1; attempt <= maxAPIKeyAttempts; attempt++ {
		key, err := service.keys.Generate()
		if err != nil {
			return "", fmt.Errorf("auth_service_rotate_api_key_failed: %w", err)
		}

		err = service.users.SetAPIKey(ctx, userID, key.Hash, key.Prefix)
		if err == nil {
			service.observe(EventAPIKeyRotate, true)
			ctxutil.GetLogger(ctx).InfoContext(ctx, "api_key_rotated",
				slog.String("user_id", userID),
				slog.String("key_prefix", key.Prefix),
			)
			return key.Raw, nil
		}

		if !apperr.HasCode(err, apperr.CodeConflict) {
			service.observe(EventAPIKeyRotate, false)
			if apperr.IsAppError(err) {
				return "", err
			}
			return "", fmt.Errorf("auth_service_rotate_api_key_failed: %w", err)
		}

		ctxutil.GetLogger(ctx).WarnContext(ctx, "api_key_collision", slog.Int("attempt", attempt))
	}

	service.observe(EventAPIKeyRotate, false)
	return "", apperr.Internal(fmt.Errorf("auth_service_rotate_api_key_failed: %d collisions", maxAPIKeyAttempts))
}

// DeactivateAPIKey turns off userID's key. Deactivating twice is harmless.
func (service *Service) DeactivateAPIKey(ctx context.Context, userID string) error {
	if err := service.users.DeactivateAPIKey(ctx, userID); err != nil {
		if apperr.IsAppError(err) {
			return err
		}
		return fmt.Errorf("auth_service_deactivate_api_key_failed: %w", err)
	}

	ctxutil.GetLogger(ctx).InfoContext(ctx, "api_key_deactivated", slog.String("user_id", userID))
	return nil
}

/*
ResolveAPIKey maps a raw X-API-Key value to its owner's identity.

Returns:
  - *sec.Identity
  - error: INVALID_API_KEY (malformed or unknown), API_KEY_INACTIVE, or
    VERIFICATION_ERROR when the store fails
*/
func (service *Service) ResolveAPIKey(ctx context.Context, key string) (*sec.Identity, error) {
	if !service.keys.WellFormed(key) {
		return nil, apperr.Unauthenticated(apperr.CodeInvalidAPIKey, "Invalid API key")
	}

	user, err := service.users.FindByAPIKeyHash(ctx, sec.HashAPIKey(key))
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return nil, apperr.Unauthenticated(apperr.CodeInvalidAPIKey, "Invalid API key")
		}
		return nil, apperr.Unauthenticated(apperr.CodeVerificationError, "Unable to verify API key").WithCause(err)
	}

	if !user.APIKeyActive {
		return nil, apperr.Forbidden(apperr.CodeAPIKeyInactive, "API key is inactive")
	}

	return user.Identity(sec.MethodAPIKey), nil
}

// # Helpers

func (service *Service) roleFor(email string) sec.Role {
	if _, ok := service.admins[email]; ok {
		return sec.RoleAdmin
	}
	return sec.RoleUser
}

func (service *Service) observe(event string, success bool) {
	if service.observer == nil {
		return
	}
	outcome := metrics.OutcomeFailure
	if success {
		outcome = metrics.OutcomeSuccess
	}
	service.observer.ObserveCredentialEvent(event, outcome)
}
