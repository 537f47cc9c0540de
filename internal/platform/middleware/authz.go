// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/taibuivan/keygate/internal/platform/apperr"
	"github.com/taibuivan/keygate/internal/platform/constants"
	"github.com/taibuivan/keygate/internal/platform/ctxutil"
	"github.com/taibuivan/keygate/internal/platform/metrics"
	"github.com/taibuivan/keygate/internal/platform/respond"
	"github.com/taibuivan/keygate/internal/platform/sec"
)

// methodNone labels requests that presented no credential at all.
const methodNone = "none"

// # Collaborators

// AccessVerifier verifies bearer access tokens.
//
// Implementations return an [*apperr.AppError] carrying TOKEN_EXPIRED,
// INVALID_TOKEN, USER_NOT_FOUND or VERIFICATION_ERROR.
type AccessVerifier interface {
	VerifyAccess(ctx context.Context, token string) (*sec.Identity, error)
}

// APIKeyResolver resolves a raw X-API-Key value to its owner.
//
// Implementations return INVALID_API_KEY, API_KEY_INACTIVE or
// VERIFICATION_ERROR as an [*apperr.AppError].
type APIKeyResolver interface {
	ResolveAPIKey(ctx context.Context, key string) (*sec.Identity, error)
}

// AuthObserver receives one call per resolution. It may be nil.
type AuthObserver interface {
	ObserveAuth(method, outcome, code string)
}

// # Resolution

// AuthResult is the outcome of resolving a request's credentials.
// Exactly one of Identity and Rejection is set.
type AuthResult struct {
	Method    string
	Identity  *sec.Identity
	Rejection *apperr.AppError
}

// Authenticated reports whether the request resolved to an identity.
func (r AuthResult) Authenticated() bool {
	return r.Identity != nil
}

func accepted(identity *sec.Identity) AuthResult {
	return AuthResult{Method: string(identity.Method), Identity: identity}
}

func rejected(method string, err *apperr.AppError) AuthResult {
	return AuthResult{Method: method, Rejection: err}
}

// Gate resolves bearer tokens and API keys into a single [AuthResult].
type Gate struct {
	verifier AccessVerifier
	keys     APIKeyResolver
	observer AuthObserver
}

// NewGate builds the request-boundary authenticator.
func NewGate(verifier AccessVerifier, keys APIKeyResolver, observer AuthObserver) *Gate {
	return &Gate{verifier: verifier, keys: keys, observer: observer}
}

/*
Resolve inspects the request headers and settles on one credential.

Order:
 1. Authorization with the Bearer scheme (case-insensitive). It wins even
    when an X-API-Key is also present.
 2. X-API-Key.
 3. Nothing usable: NO_AUTH.

An Authorization header with another scheme is ignored.
*/
func (g *Gate) Resolve(request *http.Request) AuthResult {
	ctx := request.Context()

	if token, present := bearerToken(request.Header.Get(constants.HeaderAuthorization)); present {
		if token == "" {
			return rejected(string(sec.MethodJWT), apperr.Unauthenticated(apperr.CodeNoToken, "Bearer token is empty"))
		}

		identity, err := g.verifier.VerifyAccess(ctx, token)
		if err != nil {
			return rejected(string(sec.MethodJWT), asRejection(err))
		}
		return accepted(identity)
	}

	if key := strings.TrimSpace(request.Header.Get(constants.HeaderAPIKey)); key != "" {
		identity, err := g.keys.ResolveAPIKey(ctx, key)
		if err != nil {
			return rejected(string(sec.MethodAPIKey), asRejection(err))
		}
		return accepted(identity)
	}

	return rejected(methodNone, apperr.Unauthenticated(apperr.CodeNoAuth, "Authentication required"))
}

// Authenticate admits only requests that resolve to an identity and attaches
// it to the context. Rejections are rendered with their own status and code.
func (g *Gate) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		result := g.Resolve(request)
		ctx := request.Context()

		if !result.Authenticated() {
			g.observe(result.Method, metrics.OutcomeFailure, result.Rejection.Code)
			ctxutil.GetLogger(ctx).InfoContext(ctx, "auth_rejected",
				slog.String("method", result.Method),
				slog.String("code", result.Rejection.Code),
			)
			respond.Error(writer, request, result.Rejection)
			return
		}

		identity := result.Identity
		g.observe(result.Method, metrics.OutcomeSuccess, "")
		noteUser(ctx, identity.UserID)

		ctx = ctxutil.WithIdentity(ctx, identity)
		ctx = ctxutil.WithLogger(ctx, ctxutil.GetLogger(ctx).With(slog.String("user_id", identity.UserID)))

		next.ServeHTTP(writer, request.WithContext(ctx))
	})
}

func (g *Gate) observe(method, outcome, code string) {
	if g.observer != nil {
		g.observer.ObserveAuth(method, outcome, code)
	}
}

// # Authorization

// RequireRole admits identities whose role exactly matches one of allowed.
//
// # Usage
//
// Must be mounted after [Gate.Authenticate]. Without an identity it answers
// 401 NO_AUTH; with the wrong role 403 INSUFFICIENT_PERMISSIONS.
func RequireRole(allowed ...sec.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			identity := ctxutil.GetIdentity(request.Context())

			if identity == nil {
				respond.Error(writer, request, apperr.Unauthenticated(apperr.CodeNoAuth, "Authentication required"))
				return
			}

			if !identity.HasRole(allowed...) {
				respond.Error(writer, request, apperr.Forbidden(apperr.CodeInsufficientPermissions, "Insufficient permissions"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// # Helpers

// bearerToken extracts the credential from an Authorization value.
// present is false when the scheme is not Bearer.
func bearerToken(header string) (token string, present bool) {
	fields := strings.Fields(header)
	if len(fields) == 0 || !strings.EqualFold(fields[0], constants.BearerScheme) {
		return "", false
	}

	switch len(fields) {
	case 1:
		return "", true
	case 2:
		return fields[1], true
	default:
		// "Bearer a b" is never a valid compact JWS; hand it to the verifier to reject.
		return strings.Join(fields[1:], " "), true
	}
}

// asRejection narrows a collaborator error to a client-safe 401/403.
func asRejection(err error) *apperr.AppError {
	if ae := apperr.As(err); ae != nil && (ae.HTTPStatus == http.StatusUnauthorized || ae.HTTPStatus == http.StatusForbidden) {
		return ae
	}
	return apperr.Unauthenticated(apperr.CodeVerificationError, "Unable to verify credentials").WithCause(err)
}
