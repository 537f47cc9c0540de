// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/keygate/internal/platform/sec"
)

func newTestHasher(t *testing.T) *sec.PasswordHasher {
	t.Helper()
	hasher, err := sec.NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)
	return hasher
}

/*
TestPasswordHasher_FreshSalt checks that hashing twice yields distinct outputs
which both verify.
*/
func TestPasswordHasher_FreshSalt(t *testing.T) {
	hasher := newTestHasher(t)

	for _, password := range []string{"Pass123!", "Abcdefg1", "Ünïcødé9a", strings.Repeat("Aa1", 40)} {
		first, err := hasher.Hash(password)
		require.NoError(t, err)
		second, err := hasher.Hash(password)
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
		assert.NotEqual(t, password, first)

		ok, err := hasher.Verify(password, first)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = hasher.Verify(password, second)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

/*
TestPasswordHasher_WrongPassword covers near-miss passwords, which must be
rejected without an error.
*/
func TestPasswordHasher_WrongPassword(t *testing.T) {
	hasher := newTestHasher(t)
	hash, err := hasher.Hash("Pass123!")
	require.NoError(t, err)

	tests := []struct {
		name  string
		wrong string
	}{
		{"case_only", "pass123!"},
		{"leading_whitespace", " Pass123!"},
		{"trailing_whitespace", "Pass123! "},
		{"empty", ""},
		{"different", "Other999"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := hasher.Verify(tt.wrong, hash)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

/*
TestPasswordHasher_LongPasswords ensures bytes past bcrypt's 72 byte window still matter.
*/
func TestPasswordHasher_LongPasswords(t *testing.T) {
	hasher := newTestHasher(t)
	base := strings.Repeat("Ab1", 30)

	hash, err := hasher.Hash(base + "X")
	require.NoError(t, err)

	ok, err := hasher.Verify(base+"X", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = hasher.Verify(base+"Y", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

/*
TestPasswordHasher_MalformedHash expects an error, not a plain false.
*/
func TestPasswordHasher_MalformedHash(t *testing.T) {
	hasher := newTestHasher(t)

	for _, hash := range []string{"", "not-a-hash", "$2a$04$short"} {
		ok, err := hasher.Verify("Pass123!", hash)
		assert.False(t, ok)
		assert.ErrorIs(t, err, sec.ErrMalformedHash, "hash %q", hash)
	}
}

/*
TestNewPasswordHasher_CostBounds rejects out-of-range work factors.
*/
func TestNewPasswordHasher_CostBounds(t *testing.T) {
	_, err := sec.NewPasswordHasher(bcrypt.MinCost - 1)
	assert.Error(t, err)

	_, err = sec.NewPasswordHasher(bcrypt.MaxCost + 1)
	assert.Error(t, err)

	hasher, err := sec.NewPasswordHasher(sec.DefaultBcryptCost)
	require.NoError(t, err)

	hash, err := hasher.Hash("Password1")
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, sec.DefaultBcryptCost, cost)
}
