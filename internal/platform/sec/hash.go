// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is deliberately slow to make offline brute force expensive.
const DefaultBcryptCost = 12

// bcryptInputLimit is the number of password bytes bcrypt actually consumes.
const bcryptInputLimit = 72

// ErrMalformedHash is returned by [PasswordHasher.Verify] when the stored hash is
// empty or not a bcrypt hash. A wrong password is not an error.
var ErrMalformedHash = errors.New("sec: malformed password hash")

// PasswordHasher hashes and verifies passwords with bcrypt at a fixed cost.
type PasswordHasher struct {
	cost int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewPasswordHasher creates a hasher with the given bcrypt cost.
func NewPasswordHasher(cost int) (*PasswordHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("sec: bcrypt cost %d outside [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &PasswordHasher{cost: cost}, nil
}

// Hash produces a self-describing salted bcrypt hash. Every call uses a fresh salt.
func (h *PasswordHasher) Hash(plainTextPassword string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword(prepare(plainTextPassword), h.cost)
	if err != nil {
		return "", fmt.Errorf("sec: failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// Verify compares a plain-text password with a stored hash in constant time.
//
// It returns (false, nil) for a wrong password and (false, [ErrMalformedHash])
// when existingHash cannot be a bcrypt hash.
func (h *PasswordHasher) Verify(plainTextPassword, existingHash string) (bool, error) {
	if existingHash == "" {
		return false, ErrMalformedHash
	}
	if _, err := bcrypt.Cost([]byte(existingHash)); err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}

	err := bcrypt.CompareHashAndPassword([]byte(existingHash), prepare(plainTextPassword))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
}

// VerifyDummy burns the same CPU as a real verification against a throwaway
// hash. Login calls it for unknown accounts so response time does not reveal
// whether an email is registered.
func (h *PasswordHasher) VerifyDummy(plainTextPassword string) {
	h.dummyOnce.Do(func() {
		h.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("keygate-dummy-password"), h.cost)
	})
	_ = bcrypt.CompareHashAndPassword(h.dummyHash, prepare(plainTextPassword))
}

// prepare maps passwords longer than bcrypt's input limit onto a fixed-size
// digest so that no suffix of a long password is silently ignored.
func prepare(plainTextPassword string) []byte {
	if len(plainTextPassword) <= bcryptInputLimit {
		return []byte(plainTextPassword)
	}
	digest := sha256.Sum256([]byte(plainTextPassword))
	return []byte(base64.StdEncoding.EncodeToString(digest[:]))
}
