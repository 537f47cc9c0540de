// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/taibuivan/keygate/internal/platform/apperr"
	"github.com/taibuivan/keygate/internal/platform/sec"
)

// BearerTokenType is echoed in token responses.
const BearerTokenType = "Bearer"

// TokenPair is a freshly minted access/refresh pair.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	ExpiresIn        int64     `json:"expires_in"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// TokenService issues, verifies and rotates tokens.
//
// Tokens themselves are stateless; the service re-reads the user on every
// verification and consults the [FamilyRepository] on refresh.
type TokenService struct {
	signer     *sec.TokenSigner
	users      UserRepository
	families   FamilyRepository
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenService wires the token service. refreshTTL must exceed accessTTL;
// the configuration layer enforces it before this is called.
func NewTokenService(signer *sec.TokenSigner, users UserRepository, families FamilyRepository, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		signer:     signer,
		users:      users,
		families:   families,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

/*
IssuePair starts a new refresh family for user and mints both tokens.

Any refresh token issued earlier to the same user stops working.

Parameters:
  - ctx: context.Context
  - user: *User

Returns:
  - *TokenPair
  - error: signing or family store failures
*/
func (service *TokenService) IssuePair(ctx context.Context, user *User) (*TokenPair, error) {
	familyID, err := sec.GenerateFamilyID()
	if err != nil {
		return nil, fmt.Errorf("auth_token_issue_failed: %w", err)
	}

	if err := service.families.Start(ctx, user.ID, familyID, service.refreshTTL); err != nil {
		return nil, fmt.Errorf("auth_token_issue_failed: %w", err)
	}

	return service.mint(user, familyID)
}

/*
VerifyAccess validates an access token and re-resolves its user.

Returns:
  - *sec.Identity: built from the current user record
  - error: TOKEN_EXPIRED, INVALID_TOKEN, USER_NOT_FOUND or VERIFICATION_ERROR
*/
func (service *TokenService) VerifyAccess(ctx context.Context, token string) (*sec.Identity, error) {
	claims, err := service.signer.Parse(token, sec.TokenAccess)
	if err != nil {
		// A refresh token is not an access token; it is simply invalid here.
		if errors.Is(err, sec.ErrWrongTokenType) {
			return nil, apperr.Unauthenticated(apperr.CodeInvalidToken, "Invalid token")
		}
		return nil, tokenError(err)
	}

	user, err := service.resolveUser(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	return user.Identity(sec.MethodJWT), nil
}

/*
Refresh exchanges a refresh token for a brand-new pair.

Description: The token's family must still be the user's current one; the
family is swapped atomically, so of two concurrent refreshes with the same
token only one succeeds.

Returns:
  - *TokenPair
  - error: INVALID_TOKEN_TYPE, TOKEN_EXPIRED, INVALID_TOKEN, USER_NOT_FOUND,
    TOKEN_REUSED or VERIFICATION_ERROR
*/
func (service *TokenService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := service.signer.Parse(refreshToken, sec.TokenRefresh)
	if err != nil {
		return nil, tokenError(err)
	}

	if claims.FamilyID == "" {
		return nil, apperr.Unauthenticated(apperr.CodeInvalidToken, "Invalid token")
	}

	user, err := service.resolveUser(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	nextFamily, err := sec.GenerateFamilyID()
	if err != nil {
		return nil, fmt.Errorf("auth_token_refresh_failed: %w", err)
	}

	swapped, err := service.families.Rotate(ctx, user.ID, claims.FamilyID, nextFamily, service.refreshTTL)
	if err != nil {
		return nil, apperr.Unauthenticated(apperr.CodeVerificationError, "Unable to verify token").WithCause(err)
	}
	if !swapped {
		return nil, apperr.Unauthenticated(apperr.CodeTokenReused, "Refresh token has already been used or revoked")
	}

	return service.mint(user, nextFamily)
}

// Revoke ends the user's refresh family. Access tokens stay valid until expiry.
func (service *TokenService) Revoke(ctx context.Context, userID string) error {
	if err := service.families.Revoke(ctx, userID); err != nil {
		return fmt.Errorf("auth_token_revoke_failed: %w", err)
	}
	return nil
}

// # Helpers

func (service *TokenService) mint(user *User, familyID string) (*TokenPair, error) {
	subject := user.Subject()

	accessToken, accessExpiresAt, err := service.signer.Sign(subject, sec.TokenAccess, "", service.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_token_sign_access_failed: %w", err)
	}

	refreshToken, refreshExpiresAt, err := service.signer.Sign(subject, sec.TokenRefresh, familyID, service.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_token_sign_refresh_failed: %w", err)
	}

	return &TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		TokenType:        BearerTokenType,
		ExpiresIn:        int64(service.accessTTL.Seconds()),
		AccessExpiresAt:  accessExpiresAt,
		RefreshExpiresAt: refreshExpiresAt,
	}, nil
}

// resolveUser re-reads the token's user so deleted accounts lose access at once.
func (service *TokenService) resolveUser(ctx context.Context, userID string) (*User, error) {
	user, err := service.users.FindByID(ctx, userID)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return nil, apperr.Unauthenticated(apperr.CodeUserNotFound, "User no longer exists")
		}
		return nil, apperr.Unauthenticated(apperr.CodeVerificationError, "Unable to verify token").WithCause(err)
	}
	return user, nil
}

// tokenError maps signer failures to client-facing codes.
func tokenError(err error) *apperr.AppError {
	switch {
	case errors.Is(err, sec.ErrTokenExpired):
		return apperr.Unauthenticated(apperr.CodeTokenExpired, "Token has expired")
	case errors.Is(err, sec.ErrWrongTokenType):
		return apperr.Unauthenticated(apperr.CodeInvalidTokenType, "Wrong token type")
	default:
		return apperr.Unauthenticated(apperr.CodeInvalidToken, "Invalid token")
	}
}
