// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// DefaultAPIKeyPrefix identifies keygate API keys.
	DefaultAPIKeyPrefix = "kg_"

	// APIKeyRandomBytes is the entropy of the key body (48 hex characters).
	APIKeyRandomBytes = 24

	// apiKeyDisplayLength is how many leading characters are kept for display.
	apiKeyDisplayLength = 12
)

// APIKeyGenerator mints and recognises API keys of the form prefix + lowercase hex.
type APIKeyGenerator struct {
	prefix string
}

// NewAPIKeyGenerator creates a generator for the given literal prefix.
func NewAPIKeyGenerator(prefix string) *APIKeyGenerator {
	if prefix == "" {
		prefix = DefaultAPIKeyPrefix
	}
	return &APIKeyGenerator{prefix: prefix}
}

// GeneratedKey is a freshly minted key. Raw is shown to the owner exactly once;
// only Hash and Prefix are persisted.
type GeneratedKey struct {
	Raw    string
	Hash   string
	Prefix string
}

// Generate creates a new key from a cryptographically secure source.
func (generator *APIKeyGenerator) Generate() (*GeneratedKey, error) {
	randomBytes := make([]byte, APIKeyRandomBytes)
	if _, err := rand.Read(randomBytes); err != nil {
		return nil, fmt.Errorf("sec: failed to generate api key: %w", err)
	}

	raw := generator.prefix + hex.EncodeToString(randomBytes)
	return &GeneratedKey{
		Raw:    raw,
		Hash:   HashAPIKey(raw),
		Prefix: raw[:min(apiKeyDisplayLength, len(raw))],
	}, nil
}

// WellFormed reports whether key has the expected prefix and a lowercase hex body
// of the expected length.
func (generator *APIKeyGenerator) WellFormed(key string) bool {
	body, found := strings.CutPrefix(key, generator.prefix)
	if !found || len(body) != APIKeyRandomBytes*2 {
		return false
	}
	for _, r := range body {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

// HashAPIKey computes the SHA-256 lookup hash of an API key.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// GenerateFamilyID returns a random identifier for a refresh-token family.
func GenerateFamilyID() (string, error) {
	randomBytes := make([]byte, 16)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("sec: failed to generate family id: %w", err)
	}
	return hex.EncodeToString(randomBytes), nil
}
