// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/keygate/internal/platform/constants"
)

// rotateFamilyScript replaces KEYS[1] with ARGV[2] only while it holds ARGV[1].
// Returns 1 on swap, 0 otherwise.
var rotateFamilyScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
	return 1
end
return 0
`)

// RedisFamilyRepository implements [FamilyRepository] using Redis.
//
// Keys expire with the refresh lifetime, so abandoned families clean up on
// their own.
type RedisFamilyRepository struct {
	client redis.UniversalClient
}

// NewFamilyRepository creates a new Redis-backed FamilyRepository.
func NewFamilyRepository(client redis.UniversalClient) *RedisFamilyRepository {
	return &RedisFamilyRepository{client: client}
}

func familyKey(userID string) string {
	return constants.RedisPrefixTokenFamily + userID
}

/*
Start stores familyID as the user's current family.

Parameters:
  - ctx: context.Context
  - userID: string
  - familyID: string
  - ttl: time.Duration (refresh token lifetime)

Returns:
  - error: Execution errors
*/
func (repository *RedisFamilyRepository) Start(ctx context.Context, userID, familyID string, ttl time.Duration) error {
	if err := repository.client.Set(ctx, familyKey(userID), familyID, ttl).Err(); err != nil {
		return fmt.Errorf("redis_family_start_failed: %w", err)
	}
	return nil
}

/*
Rotate runs the compare-and-swap script.

Returns:
  - bool: true when expected was current and has been replaced by next
  - error: Execution errors
*/
func (repository *RedisFamilyRepository) Rotate(ctx context.Context, userID, expected, next string, ttl time.Duration) (bool, error) {
	swapped, err := rotateFamilyScript.Run(ctx, repository.client,
		[]string{familyKey(userID)},
		expected, next, ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("redis_family_rotate_failed: %w", err)
	}
	return swapped == 1, nil
}

// Revoke deletes the user's family key.
func (repository *RedisFamilyRepository) Revoke(ctx context.Context, userID string) error {
	if err := repository.client.Del(ctx, familyKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis_family_revoke_failed: %w", err)
	}
	return nil
}

var _ FamilyRepository = (*RedisFamilyRepository)(nil)
