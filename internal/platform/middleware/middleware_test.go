// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/keygate/internal/platform/ctxutil"
	"github.com/taibuivan/keygate/internal/platform/middleware"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

/*
TestRequestID reuses a client id or mints a new one.
*/
func TestRequestID(t *testing.T) {
	var seen string
	handler := middleware.RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ctxutil.GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "client-id")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "client-id", seen)
	assert.Equal(t, "client-id", rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.NotEmpty(t, seen)
	assert.NotEqual(t, "client-id", seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
}

/*
TestRateLimiter rejects requests beyond the burst per IP.
*/
func TestRateLimiter(t *testing.T) {
	limiter := middleware.NewRateLimiter(0.001, 2, false)
	handler := limiter.Middleware()(okHandler)

	statuses := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		statuses = append(statuses, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, statuses)

	// Another client has its own bucket
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

/*
TestRateLimiter_ForwardedHeaders checks that rotating X-Forwarded-For only
yields a fresh bucket when proxy headers are trusted.
*/
func TestRateLimiter_ForwardedHeaders(t *testing.T) {
	tests := []struct {
		name       string
		trustProxy bool
		wantLast   int
	}{
		{"untrusted_headers_share_socket_bucket", false, http.StatusTooManyRequests},
		{"trusted_headers_split_buckets", true, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := middleware.NewRateLimiter(0.001, 1, tt.trustProxy).Middleware()(okHandler)

			var last int
			for i := range 3 {
				req := httptest.NewRequest(http.MethodGet, "/", nil)
				req.RemoteAddr = "10.0.0.9:1234"
				req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
				rec := httptest.NewRecorder()
				handler.ServeHTTP(rec, req)
				last = rec.Code
			}
			assert.Equal(t, tt.wantLast, last)
		})
	}
}

/*
TestPanicRecovery turns a panic into a 500 envelope.
*/
func TestPanicRecovery(t *testing.T) {
	handler := middleware.PanicRecovery()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}

type env bool

func (e env) IsDevelopment() bool { return bool(e) }

/*
TestCORS checks origin filtering and preflight handling.
*/
func TestCORS(t *testing.T) {
	tests := []struct {
		name        string
		development bool
		origin      string
		wantAllowed bool
	}{
		{"dev_any_origin", true, "http://localhost:3000", true},
		{"prod_matching_suffix", false, "https://app.keygate.dev", true},
		{"prod_foreign_origin", false, "https://evil.example", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := middleware.CORS(env(tt.development), "keygate.dev")(okHandler)

			req := httptest.NewRequest(http.MethodOptions, "/auth/login", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusNoContent, rec.Code)
			if tt.wantAllowed {
				assert.Equal(t, tt.origin, rec.Header().Get("Access-Control-Allow-Origin"))
				assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "X-API-Key")
			} else {
				assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

/*
TestRealIP prefers proxy headers over the socket address only when trusted.
*/
func TestRealIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:5555"
	assert.Equal(t, "192.168.1.1", middleware.RealIP(req, true))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", middleware.RealIP(req, true))
	assert.Equal(t, "192.168.1.1", middleware.RealIP(req, false))

	req.Header.Set("X-Real-IP", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", middleware.RealIP(req, true))
	assert.Equal(t, "192.168.1.1", middleware.RealIP(req, false))
}
