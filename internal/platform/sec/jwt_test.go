// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/keygate/internal/platform/sec"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

var testSubject = sec.Subject{
	UserID:   "user-1",
	Email:    "a@b.com",
	Username: "abcuser",
	Role:     sec.RoleUser,
}

/*
TestTokenSigner_RoundTrip signs and parses an access token.
*/
func TestTokenSigner_RoundTrip(t *testing.T) {
	signer, err := sec.NewHMACSigner(testSecret, "keygate")
	require.NoError(t, err)

	token, expiresAt, err := signer.Sign(testSubject, sec.TokenAccess, "", 15*time.Minute)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 2*time.Second)

	claims, err := signer.Parse(token, sec.TokenAccess)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "a@b.com", claims.Email)
	assert.Equal(t, sec.RoleUser, claims.Role)
}

/*
TestTokenSigner_TypeMismatch rejects tokens used in the wrong slot.
*/
func TestTokenSigner_TypeMismatch(t *testing.T) {
	signer, err := sec.NewHMACSigner(testSecret, "keygate")
	require.NoError(t, err)

	access, _, err := signer.Sign(testSubject, sec.TokenAccess, "", time.Minute)
	require.NoError(t, err)
	refresh, _, err := signer.Sign(testSubject, sec.TokenRefresh, "fam", time.Hour)
	require.NoError(t, err)

	_, err = signer.Parse(access, sec.TokenRefresh)
	assert.ErrorIs(t, err, sec.ErrWrongTokenType)

	_, err = signer.Parse(refresh, sec.TokenAccess)
	assert.ErrorIs(t, err, sec.ErrWrongTokenType)
}

/*
TestTokenSigner_Expired uses the server clock, not the token, to decide expiry.
*/
func TestTokenSigner_Expired(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	issuer, err := sec.NewHMACSigner(testSecret, "keygate", sec.WithClock(func() time.Time { return past }))
	require.NoError(t, err)
	verifier, err := sec.NewHMACSigner(testSecret, "keygate")
	require.NoError(t, err)

	token, _, err := issuer.Sign(testSubject, sec.TokenAccess, "", 15*time.Minute)
	require.NoError(t, err)

	_, err = verifier.Parse(token, sec.TokenAccess)
	assert.ErrorIs(t, err, sec.ErrTokenExpired)
}

/*
TestTokenSigner_Malformed covers tampering, foreign secrets and foreign issuers.
*/
func TestTokenSigner_Malformed(t *testing.T) {
	signer, err := sec.NewHMACSigner(testSecret, "keygate")
	require.NoError(t, err)
	other, err := sec.NewHMACSigner([]byte(strings.Repeat("z", 32)), "keygate")
	require.NoError(t, err)
	foreignIssuer, err := sec.NewHMACSigner(testSecret, "someone-else")
	require.NoError(t, err)

	token, _, err := signer.Sign(testSubject, sec.TokenAccess, "", time.Minute)
	require.NoError(t, err)
	otherToken, _, err := other.Sign(testSubject, sec.TokenAccess, "", time.Minute)
	require.NoError(t, err)
	foreignToken, _, err := foreignIssuer.Sign(testSubject, sec.TokenAccess, "", time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.jwt"},
		{"empty", ""},
		{"tampered", token[:len(token)-2] + "xx"},
		{"foreign_secret", otherToken},
		{"foreign_issuer", foreignToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := signer.Parse(tt.token, sec.TokenAccess)
			assert.ErrorIs(t, err, sec.ErrTokenMalformed)
		})
	}
}

/*
TestNewHMACSigner_ShortSecret refuses weak secrets.
*/
func TestNewHMACSigner_ShortSecret(t *testing.T) {
	_, err := sec.NewHMACSigner([]byte("short"), "keygate")
	assert.Error(t, err)
}

/*
TestNewRSASigner_FromFiles loads a PEM key pair from disk and rejects HS256
tokens signed with the public key material.
*/
func TestNewRSASigner_FromFiles(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privatePath := filepath.Join(dir, "private.pem")
	publicPath := filepath.Join(dir, "public.pem")

	privatePEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privateKey)})
	require.NoError(t, os.WriteFile(privatePath, privatePEM, 0o600))

	publicDER, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	require.NoError(t, err)
	publicPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicDER})
	require.NoError(t, os.WriteFile(publicPath, publicPEM, 0o600))

	signer, err := sec.NewRSASigner(privatePath, publicPath, "keygate")
	require.NoError(t, err)

	token, _, err := signer.Sign(testSubject, sec.TokenRefresh, "family-1", time.Hour)
	require.NoError(t, err)

	claims, err := signer.Parse(token, sec.TokenRefresh)
	require.NoError(t, err)
	assert.Equal(t, "family-1", claims.FamilyID)

	hmacWithPublic, err := sec.NewHMACSigner(publicPEM, "keygate")
	require.NoError(t, err)
	forged, _, err := hmacWithPublic.Sign(testSubject, sec.TokenRefresh, "family-1", time.Hour)
	require.NoError(t, err)

	_, err = signer.Parse(forged, sec.TokenRefresh)
	assert.ErrorIs(t, err, sec.ErrTokenMalformed)

	_, err = sec.NewRSASigner(filepath.Join(dir, "missing.pem"), publicPath, "keygate")
	assert.Error(t, err)
}
