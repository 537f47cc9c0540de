// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package respond_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/keygate/internal/platform/apperr"
	"github.com/taibuivan/keygate/internal/platform/ctxutil"
	"github.com/taibuivan/keygate/internal/platform/respond"
)

/*
TestError verifies the error envelope for known and unknown errors.
*/
func TestError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantStatus    int
		wantCode      string
		wantCorrelate bool
	}{
		{"app_error_401", apperr.Unauthenticated(apperr.CodeTokenExpired, "Token has expired"), http.StatusUnauthorized, apperr.CodeTokenExpired, false},
		{"wrapped_app_error", errors.Join(errors.New("outer"), apperr.Conflict("Email already registered")), http.StatusConflict, apperr.CodeConflict, false},
		{"plain_error", errors.New("connection reset"), http.StatusInternalServerError, apperr.CodeInternal, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(ctxutil.WithRequestID(req.Context(), "req-123"))
			rec := httptest.NewRecorder()

			respond.Error(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var body respond.ErrorEnvelope
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.wantCode, body.Code)
			assert.NotContains(t, body.Error, "connection reset")
			if tt.wantCorrelate {
				assert.Equal(t, "req-123", body.CorrelationID)
			} else {
				assert.Empty(t, body.CorrelationID)
			}
		})
	}
}

/*
TestCreated verifies the success envelope.
*/
func TestCreated(t *testing.T) {
	rec := httptest.NewRecorder()
	respond.Created(rec, map[string]string{"id": "u1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"data":{"id":"u1"}}`, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
}
