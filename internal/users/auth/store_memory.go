// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"sync"
	"time"

	"github.com/taibuivan/keygate/internal/platform/apperr"
)

// # In-Memory User Repository

// MemoryUserRepository keeps accounts in process memory.
//
// One mutex guards every index, so check-then-insert is atomic. Entities are
// copied in and out; callers never share pointers with the store.
type MemoryUserRepository struct {
	mu         sync.RWMutex
	byID       map[string]*User
	byEmail    map[string]string
	byUsername map[string]string
	byKeyHash  map[string]string
	now        func() time.Time
}

// NewMemoryUserRepository creates an empty store.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:       make(map[string]*User),
		byEmail:    make(map[string]string),
		byUsername: make(map[string]string),
		byKeyHash:  make(map[string]string),
		now:        time.Now,
	}
}

// Create inserts user unless its id, email or username is taken.
func (repository *MemoryUserRepository) Create(_ context.Context, user *User) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	if _, taken := repository.byEmail[user.Email]; taken {
		return apperr.Conflict("Email is already registered")
	}
	if _, taken := repository.byUsername[user.Username]; taken {
		return apperr.Conflict("Username is already taken")
	}
	if _, taken := repository.byID[user.ID]; taken {
		return apperr.Conflict("User already exists")
	}

	now := repository.now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := *user
	stored.APIKeyHash, stored.APIKeyPrefix, stored.APIKeyActive = "", "", false
	repository.byID[stored.ID] = &stored
	repository.byEmail[stored.Email] = stored.ID
	repository.byUsername[stored.Username] = stored.ID

	return nil
}

// FindByID returns a copy of the account with id.
func (repository *MemoryUserRepository) FindByID(_ context.Context, id string) (*User, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()
	return repository.lookup(id)
}

// FindByEmail returns a copy of the account registered under email.
func (repository *MemoryUserRepository) FindByEmail(_ context.Context, email string) (*User, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()
	return repository.lookup(repository.byEmail[email])
}

// FindByUsername returns a copy of the account with username.
func (repository *MemoryUserRepository) FindByUsername(_ context.Context, username string) (*User, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()
	return repository.lookup(repository.byUsername[username])
}

// FindByAPIKeyHash returns a copy of the owner of keyHash.
func (repository *MemoryUserRepository) FindByAPIKeyHash(_ context.Context, keyHash string) (*User, error) {
	repository.mu.RLock()
	defer repository.mu.RUnlock()
	return repository.lookup(repository.byKeyHash[keyHash])
}

// UpdatePasswordHash swaps the hash only if it still equals expectedOld.
func (repository *MemoryUserRepository) UpdatePasswordHash(_ context.Context, id, expectedOld, newHash string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	user, found := repository.byID[id]
	if !found {
		return apperr.NotFound("User")
	}
	if user.PasswordHash != expectedOld {
		return ErrStalePassword
	}

	user.PasswordHash = newHash
	user.UpdatedAt = repository.now().UTC()
	return nil
}

// SetAPIKey replaces the user's key; the old hash is unindexed in the same step.
func (repository *MemoryUserRepository) SetAPIKey(_ context.Context, id, keyHash, keyPrefix string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	user, found := repository.byID[id]
	if !found {
		return apperr.NotFound("User")
	}
	if owner, taken := repository.byKeyHash[keyHash]; taken && owner != id {
		return apperr.Conflict("API key collision")
	}

	if user.APIKeyHash != "" {
		delete(repository.byKeyHash, user.APIKeyHash)
	}

	user.APIKeyHash = keyHash
	user.APIKeyPrefix = keyPrefix
	user.APIKeyActive = true
	user.UpdatedAt = repository.now().UTC()
	repository.byKeyHash[keyHash] = id

	return nil
}

// DeactivateAPIKey flags the user's key inactive.
func (repository *MemoryUserRepository) DeactivateAPIKey(_ context.Context, id string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	user, found := repository.byID[id]
	if !found {
		return apperr.NotFound("User")
	}

	user.APIKeyActive = false
	user.UpdatedAt = repository.now().UTC()
	return nil
}

// lookup copies the user with id. Callers hold the lock.
func (repository *MemoryUserRepository) lookup(id string) (*User, error) {
	user, found := repository.byID[id]
	if id == "" || !found {
		return nil, apperr.NotFound("User")
	}
	clone := *user
	return &clone, nil
}

// # In-Memory Family Repository

type familyEntry struct {
	id        string
	expiresAt time.Time
}

// MemoryFamilyRepository tracks refresh families in process memory. It is
// used when no Redis URL is configured and in tests.
type MemoryFamilyRepository struct {
	mu       sync.Mutex
	families map[string]familyEntry
	now      func() time.Time
}

// NewMemoryFamilyRepository creates an empty family store.
func NewMemoryFamilyRepository() *MemoryFamilyRepository {
	return &MemoryFamilyRepository{
		families: make(map[string]familyEntry),
		now:      time.Now,
	}
}

// Start records familyID as current for userID.
func (repository *MemoryFamilyRepository) Start(_ context.Context, userID, familyID string, ttl time.Duration) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	repository.families[userID] = familyEntry{id: familyID, expiresAt: repository.now().Add(ttl)}
	return nil
}

// Rotate swaps expected for next when expected is still current and unexpired.
func (repository *MemoryFamilyRepository) Rotate(_ context.Context, userID, expected, next string, ttl time.Duration) (bool, error) {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	entry, found := repository.families[userID]
	now := repository.now()
	if !found || entry.id != expected || !now.Before(entry.expiresAt) {
		return false, nil
	}

	repository.families[userID] = familyEntry{id: next, expiresAt: now.Add(ttl)}
	return true, nil
}

// Revoke drops the user's family.
func (repository *MemoryFamilyRepository) Revoke(_ context.Context, userID string) error {
	repository.mu.Lock()
	defer repository.mu.Unlock()

	delete(repository.families, userID)
	return nil
}

var (
	_ UserRepository   = (*MemoryUserRepository)(nil)
	_ FamilyRepository = (*MemoryFamilyRepository)(nil)
)
