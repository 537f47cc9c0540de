// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/keygate/internal/platform/sec"
	"github.com/taibuivan/keygate/internal/users/auth"
)

const (
	testSecret  = "test-secret-0123456789-abcdefghij"
	testIssuer  = "keygate-test"
	testAccess  = 15 * time.Minute
	testRefresh = 7 * 24 * time.Hour
)

// clock is a settable time source shared by the signer under test.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Now()}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fixture bundles a service wired to in-memory stores.
type fixture struct {
	clock    *clock
	users    *auth.MemoryUserRepository
	families *auth.MemoryFamilyRepository
	tokens   *auth.TokenService
	service  *auth.Service
}

func newFixture(t *testing.T, opts ...auth.ServiceOption) *fixture {
	t.Helper()

	clk := newClock()
	signer, err := sec.NewHMACSigner([]byte(testSecret), testIssuer, sec.WithClock(clk.Now))
	require.NoError(t, err)

	hasher, err := sec.NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)

	users := auth.NewMemoryUserRepository()
	families := auth.NewMemoryFamilyRepository()
	tokens := auth.NewTokenService(signer, users, families, testAccess, testRefresh)
	service := auth.NewService(users, tokens, hasher, sec.NewAPIKeyGenerator(sec.DefaultAPIKeyPrefix), opts...)

	return &fixture{
		clock:    clk,
		users:    users,
		families: families,
		tokens:   tokens,
		service:  service,
	}
}
