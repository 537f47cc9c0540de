// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives: password hashing, JWT signing,
// API key generation and the closed role set.
//
// # Architecture
//
// This package isolates security-sensitive code from the domain logic. The
// identity domain (internal/users/auth) composes these primitives with its
// repositories; nothing in here performs I/O beyond loading key files at startup.
package sec

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taibuivan/keygate/pkg/uuid"
)

// MinSecretLength is the minimum HS256 secret size in bytes.
const MinSecretLength = 32

// TokenType distinguishes access tokens from refresh tokens inside the signed payload.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

var (
	// ErrTokenExpired is returned when the server clock is past the token's expiry.
	ErrTokenExpired = errors.New("sec: token expired")

	// ErrTokenMalformed covers bad encoding, bad signature, wrong issuer or algorithm.
	ErrTokenMalformed = errors.New("sec: token malformed")

	// ErrWrongTokenType is returned when an access token is presented where a
	// refresh token is required, or vice versa.
	ErrWrongTokenType = errors.New("sec: wrong token type")
)

// Claims represents the payload embedded inside every keygate JWT.
//
// Custom claim names are abbreviated to keep the token small. The password hash
// is never part of the payload.
type Claims struct {
	jwt.RegisteredClaims

	UserID   string    `json:"uid"`
	Email    string    `json:"eml"`
	Username string    `json:"unm"`
	Role     Role      `json:"rol"`
	Type     TokenType `json:"typ"`

	// FamilyID links a refresh token to the rotation family it was minted in.
	FamilyID string `json:"fid,omitempty"`
}

// Subject is the user data a token is bound to.
type Subject struct {
	UserID   string
	Email    string
	Username string
	Role     Role
}

// TokenSigner signs and verifies JWTs with either a shared HMAC secret (HS256)
// or an RSA key pair (RS256). Keys are loaded once and never rotated.
type TokenSigner struct {
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
	issuer    string
	now       func() time.Time
}

// SignerOption customises a [TokenSigner].
type SignerOption func(*TokenSigner)

// WithClock overrides the signer's time source. Verification always uses this
// clock, never a client-supplied one.
func WithClock(now func() time.Time) SignerOption {
	return func(signer *TokenSigner) {
		signer.now = now
	}
}

// NewHMACSigner creates an HS256 signer from a shared secret.
func NewHMACSigner(secret []byte, issuer string, opts ...SignerOption) (*TokenSigner, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("sec: jwt secret must be at least %d bytes", MinSecretLength)
	}
	return newSigner(jwt.SigningMethodHS256, secret, secret, issuer, opts), nil
}

// NewRSASigner creates an RS256 signer.
// It reads PEM encoded RSA keys from the provided filesystem paths.
func NewRSASigner(privateKeyPath, publicKeyPath, issuer string, opts ...SignerOption) (*TokenSigner, error) {
	privateKeyData, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to read private key from %s: %w", privateKeyPath, err)
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyData)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to parse private key: %w", err)
	}

	publicKeyData, err := os.ReadFile(publicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to read public key from %s: %w", publicKeyPath, err)
	}

	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyData)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to parse public key: %w", err)
	}

	return NewRSASignerFromKeys(privateKey, publicKey, issuer, opts...), nil
}

// NewRSASignerFromKeys creates an RS256 signer from already parsed keys.
func NewRSASignerFromKeys(privateKey *rsa.PrivateKey, publicKey *rsa.PublicKey, issuer string, opts ...SignerOption) *TokenSigner {
	return newSigner(jwt.SigningMethodRS256, privateKey, publicKey, issuer, opts)
}

func newSigner(method jwt.SigningMethod, signKey, verifyKey any, issuer string, opts []SignerOption) *TokenSigner {
	signer := &TokenSigner{
		method:    method,
		signKey:   signKey,
		verifyKey: verifyKey,
		issuer:    issuer,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(signer)
	}
	return signer
}

// Sign mints a token of the given type for subject, valid for timeToLive.
func (signer *TokenSigner) Sign(subject Subject, tokenType TokenType, familyID string, timeToLive time.Duration) (string, time.Time, error) {
	currentTime := signer.now()
	expiresAt := currentTime.Add(timeToLive)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New(),
			Subject:   subject.UserID,
			Issuer:    signer.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:   subject.UserID,
		Email:    subject.Email,
		Username: subject.Username,
		Role:     subject.Role,
		Type:     tokenType,
		FamilyID: familyID,
	}

	token := jwt.NewWithClaims(signer.method, claims)
	signedToken, err := token.SignedString(signer.signKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, expiresAt, nil
}

// Parse verifies signature, issuer, expiry and token type and returns the claims.
//
// Errors are one of [ErrTokenExpired], [ErrTokenMalformed] or [ErrWrongTokenType].
func (signer *TokenSigner) Parse(tokenString string, expected TokenType) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (any, error) {
			return signer.verifyKey, nil
		},
		jwt.WithValidMethods([]string{signer.method.Alg()}),
		jwt.WithIssuer(signer.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(signer.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}

	if !token.Valid || claims.UserID == "" || !claims.Role.Valid() {
		return nil, ErrTokenMalformed
	}

	if claims.Type != expected {
		return nil, ErrWrongTokenType
	}

	return claims, nil
}
