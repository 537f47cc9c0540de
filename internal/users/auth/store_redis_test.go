// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/keygate/internal/platform/constants"
)

func newRedisFamilies(t *testing.T) (*RedisFamilyRepository, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewFamilyRepository(client), server
}

/*
TestRedisFamilyRepository_Rotate swaps only the current family.
*/
func TestRedisFamilyRepository_Rotate(t *testing.T) {
	ctx := context.Background()
	repository, server := newRedisFamilies(t)

	require.NoError(t, repository.Start(ctx, "u1", "f1", time.Hour))
	got, err := server.Get(constants.RedisPrefixTokenFamily + "u1")
	require.NoError(t, err)
	assert.Equal(t, "f1", got)

	tests := []struct {
		name     string
		expected string
		next     string
		want     bool
	}{
		{"current_family", "f1", "f2", true},
		{"replayed_family", "f1", "f3", false},
		{"unknown_family", "zz", "f4", false},
		{"next_in_chain", "f2", "f5", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			swapped, err := repository.Rotate(ctx, "u1", tt.expected, tt.next, time.Hour)
			require.NoError(t, err)
			assert.Equal(t, tt.want, swapped)
		})
	}

	assert.Greater(t, server.TTL(constants.RedisPrefixTokenFamily+"u1"), time.Duration(0))
}

/*
TestRedisFamilyRepository_Expiry forgets families after their TTL.
*/
func TestRedisFamilyRepository_Expiry(t *testing.T) {
	ctx := context.Background()
	repository, server := newRedisFamilies(t)

	require.NoError(t, repository.Start(ctx, "u1", "f1", time.Minute))
	server.FastForward(2 * time.Minute)

	swapped, err := repository.Rotate(ctx, "u1", "f1", "f2", time.Minute)
	require.NoError(t, err)
	assert.False(t, swapped)
}

/*
TestRedisFamilyRepository_Revoke deletes the key.
*/
func TestRedisFamilyRepository_Revoke(t *testing.T) {
	ctx := context.Background()
	repository, server := newRedisFamilies(t)

	require.NoError(t, repository.Start(ctx, "u1", "f1", time.Hour))
	require.NoError(t, repository.Revoke(ctx, "u1"))
	assert.False(t, server.Exists(constants.RedisPrefixTokenFamily+"u1"))

	swapped, err := repository.Rotate(ctx, "u1", "f1", "f2", time.Hour)
	require.NoError(t, err)
	assert.False(t, swapped)
}

/*
TestRedisFamilyRepository_ConcurrentRotate lets one of many racing swaps win.
*/
func TestRedisFamilyRepository_ConcurrentRotate(t *testing.T) {
	ctx := context.Background()
	repository, _ := newRedisFamilies(t)
	require.NoError(t, repository.Start(ctx, "u1", "f1", time.Hour))

	const racers = 10
	var wg sync.WaitGroup
	results := make([]bool, racers)
	for i := range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			swapped, err := repository.Rotate(ctx, "u1", "f1", "next", time.Hour)
			assert.NoError(t, err)
			results[i] = swapped
		}()
	}
	wg.Wait()

	wins := 0
	for _, swapped := range results {
		if swapped {
			wins++
		}
	}
	assert.Equal(t, 1, wins)
}

/*
TestRedisFamilyRepository_Unavailable surfaces store failures.
*/
func TestRedisFamilyRepository_Unavailable(t *testing.T) {
	repository, server := newRedisFamilies(t)
	server.Close()

	_, err := repository.Rotate(context.Background(), "u1", "f1", "f2", time.Hour)
	assert.ErrorContains(t, err, "redis_family_rotate_failed")
}
