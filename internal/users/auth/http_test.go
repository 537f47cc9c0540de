// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/keygate/internal/platform/apperr"
	"github.com/taibuivan/keygate/internal/platform/constants"
	"github.com/taibuivan/keygate/internal/platform/middleware"
	"github.com/taibuivan/keygate/internal/users/auth"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
	Code  string          `json:"code"`
}

type sessionBody struct {
	User         map[string]any `json:"user"`
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	TokenType    string         `json:"token_type"`
	ExpiresIn    int64          `json:"expires_in"`
}

func newRouter(f *fixture) http.Handler {
	gate := middleware.NewGate(f.tokens, f.service, nil)
	return auth.NewHandler(f.service, gate).Routes()
}

func do(t *testing.T, router http.Handler, method, path string, body any, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}

	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set(constants.HeaderContentType, "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func bearer(token string) map[string]string {
	return map[string]string{constants.HeaderAuthorization: "Bearer " + token}
}

/*
TestHandler_RegisterThenMe registers, then reads the profile with the issued token.
*/
func TestHandler_RegisterThenMe(t *testing.T) {
	f := newFixture(t)
	router := newRouter(f)

	rec, env := do(t, router, http.MethodPost, "/register", map[string]string{
		"email":    "alice@example.com",
		"username": "alice",
		"password": "Pass123!",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var session sessionBody
	require.NoError(t, json.Unmarshal(env.Data, &session))
	assert.Equal(t, "alice", session.User["username"])
	assert.NotContains(t, session.User, "password")
	assert.NotContains(t, session.User, "password_hash")
	assert.NotEmpty(t, session.AccessToken)
	assert.NotEmpty(t, session.RefreshToken)
	assert.Equal(t, "Bearer", session.TokenType)
	assert.EqualValues(t, testAccess.Seconds(), session.ExpiresIn)

	rec, env = do(t, router, http.MethodGet, "/me", nil, bearer(session.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"email":"alice@example.com"`)
}

/*
TestHandler_Register_Errors maps validation and conflicts to status codes.
*/
func TestHandler_Register_Errors(t *testing.T) {
	f := newFixture(t)
	router := newRouter(f)
	registerAlice(t, f)

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"weak_password", map[string]string{"email": "b@example.com", "username": "bobby", "password": "abc"}, http.StatusBadRequest, apperr.CodeValidation},
		{"duplicate_email", map[string]string{"email": "Alice@Example.com", "username": "other", "password": "Pass123!"}, http.StatusConflict, apperr.CodeConflict},
		{"malformed_json", "not-an-object", http.StatusBadRequest, apperr.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := do(t, router, http.MethodPost, "/register", tt.body, nil)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, env.Code)
		})
	}
}

/*
TestHandler_Login answers every credential failure identically.
*/
func TestHandler_Login(t *testing.T) {
	f := newFixture(t)
	router := newRouter(f)
	registerAlice(t, f)

	rec, _ := do(t, router, http.MethodPost, "/login", map[string]string{"email": "alice@example.com", "password": "Pass123!"}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	wrong, wrongEnv := do(t, router, http.MethodPost, "/login", map[string]string{"email": "alice@example.com", "password": "nope"}, nil)
	unknown, unknownEnv := do(t, router, http.MethodPost, "/login", map[string]string{"email": "ghost@example.com", "password": "Pass123!"}, nil)

	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, wrongEnv, unknownEnv)
	assert.Equal(t, apperr.CodeInvalidCredentials, wrongEnv.Code)
}

/*
TestHandler_ExpiredAccessToken reports TOKEN_EXPIRED once the access TTL passes.
*/
func TestHandler_ExpiredAccessToken(t *testing.T) {
	f := newFixture(t)
	router := newRouter(f)
	session := registerAlice(t, f)

	f.clock.Advance(testAccess + 1)

	rec, env := do(t, router, http.MethodGet, "/me", nil, bearer(session.Tokens.AccessToken))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apperr.CodeTokenExpired, env.Code)

	rec, env = do(t, router, http.MethodPost, "/refresh", map[string]string{"refresh_token": session.Tokens.RefreshToken}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var rotated sessionBody
	require.NoError(t, json.Unmarshal(env.Data, &rotated))
	rec, _ = do(t, router, http.MethodGet, "/me", nil, bearer(rotated.AccessToken))
	assert.Equal(t, http.StatusOK, rec.Code)
}

/*
TestHandler_Refresh covers reuse, wrong type and a missing token.
*/
func TestHandler_Refresh(t *testing.T) {
	f := newFixture(t)
	router := newRouter(f)
	session := registerAlice(t, f)

	tests := []struct {
		name       string
		token      string
		wantStatus int
		wantCode   string
	}{
		{"first_use", session.Tokens.RefreshToken, http.StatusOK, ""},
		{"replay", session.Tokens.RefreshToken, http.StatusUnauthorized, apperr.CodeTokenReused},
		{"access_token", session.Tokens.AccessToken, http.StatusUnauthorized, apperr.CodeInvalidTokenType},
		{"garbage", "abc.def.ghi", http.StatusUnauthorized, apperr.CodeInvalidToken},
		{"missing", "", http.StatusBadRequest, apperr.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := do(t, router, http.MethodPost, "/refresh", map[string]string{"refresh_token": tt.token}, nil)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, env.Code)
		})
	}
}

/*
TestHandler_APIKeyLifecycle rotates twice, authenticates with the key and deactivates it.
*/
func TestHandler_APIKeyLifecycle(t *testing.T) {
	f := newFixture(t)
	router := newRouter(f)
	session := registerAlice(t, f)

	rotate := func() string {
		rec, env := do(t, router, http.MethodPost, "/rotate-api-key", nil, bearer(session.Tokens.AccessToken))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

		var body map[string]string
		require.NoError(t, json.Unmarshal(env.Data, &body))
		return body["api_key"]
	}

	first := rotate()
	second := rotate()
	require.NotEqual(t, first, second)

	rec, env := do(t, router, http.MethodGet, "/me", nil, map[string]string{constants.HeaderAPIKey: first})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apperr.CodeInvalidAPIKey, env.Code)

	rec, _ = do(t, router, http.MethodGet, "/me", nil, map[string]string{constants.HeaderAPIKey: second})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, router, http.MethodPost, "/deactivate-api-key", nil, map[string]string{constants.HeaderAPIKey: second})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = do(t, router, http.MethodGet, "/me", nil, map[string]string{constants.HeaderAPIKey: second})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, apperr.CodeAPIKeyInactive, env.Code)
}

/*
TestHandler_ChangePasswordAndLogout revokes refresh tokens.
*/
func TestHandler_ChangePasswordAndLogout(t *testing.T) {
	t.Run("change_password", func(t *testing.T) {
		f := newFixture(t)
		router := newRouter(f)
		session := registerAlice(t, f)

		rec, _ := do(t, router, http.MethodPost, "/change-password", map[string]string{
			"current_password": "Pass123!",
			"new_password":     "Better456",
		}, bearer(session.Tokens.AccessToken))
		require.Equal(t, http.StatusOK, rec.Code)

		rec, env := do(t, router, http.MethodPost, "/refresh", map[string]string{"refresh_token": session.Tokens.RefreshToken}, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, apperr.CodeTokenReused, env.Code)
	})

	t.Run("logout", func(t *testing.T) {
		f := newFixture(t)
		router := newRouter(f)
		session := registerAlice(t, f)

		rec, _ := do(t, router, http.MethodPost, "/logout", nil, bearer(session.Tokens.AccessToken))
		require.Equal(t, http.StatusOK, rec.Code)

		rec, env := do(t, router, http.MethodPost, "/refresh", map[string]string{"refresh_token": session.Tokens.RefreshToken}, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, apperr.CodeTokenReused, env.Code)
	})
}

/*
TestHandler_ProtectedRoutesRequireAuth rejects anonymous callers.
*/
func TestHandler_ProtectedRoutesRequireAuth(t *testing.T) {
	router := newRouter(newFixture(t))

	for _, path := range []string{"/change-password", "/rotate-api-key", "/deactivate-api-key", "/logout"} {
		rec, env := do(t, router, http.MethodPost, path, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.Equal(t, apperr.CodeNoAuth, env.Code, path)
	}
}

/*
TestHandler_PasswordRequirements is public.
*/
func TestHandler_PasswordRequirements(t *testing.T) {
	router := newRouter(newFixture(t))

	rec, env := do(t, router, http.MethodGet, "/password-requirements", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string][]string
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Len(t, body["requirements"], 4)
}
