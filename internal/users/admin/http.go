// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package admin provides the operator endpoints for account oversight.

# Security

Every route requires an authenticated caller holding the admin role. Both
bearer tokens and API keys are accepted.
*/
package admin

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/keygate/internal/platform/apperr"
	"github.com/taibuivan/keygate/internal/platform/ctxutil"
	"github.com/taibuivan/keygate/internal/platform/middleware"
	requestutil "github.com/taibuivan/keygate/internal/platform/request"
	"github.com/taibuivan/keygate/internal/platform/respond"
	"github.com/taibuivan/keygate/internal/platform/sec"
	"github.com/taibuivan/keygate/internal/users/auth"
)

// Handler implements the /admin endpoints.
type Handler struct {
	accounts *auth.Service
	gate     *middleware.Gate
}

// NewHandler constructs a new admin [Handler].
func NewHandler(accounts *auth.Service, gate *middleware.Gate) *Handler {
	return &Handler{accounts: accounts, gate: gate}
}

// Routes returns a [chi.Router] configured with the admin endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Use(handler.gate.Authenticate)
	router.Use(middleware.RequireRole(sec.RoleAdmin))

	router.Get("/users/{id}", handler.getUser)
	router.Post("/users/{id}/deactivate-api-key", handler.deactivateAPIKey)

	return router
}

/*
GET /admin/users/{id}.

Description: Returns the account with its API key display prefix.

Response:
  - 200: auth.AdminView
  - 401: NO_AUTH or a credential failure
  - 403: INSUFFICIENT_PERMISSIONS
  - 404: NOT_FOUND
*/
func (handler *Handler) getUser(writer http.ResponseWriter, request *http.Request) {
	userID := requestutil.Param(request, "id")
	if userID == "" {
		respond.Error(writer, request, apperr.NotFound("User"))
		return
	}

	user, err := handler.accounts.GetUser(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, auth.NewAdminView(user))
}

/*
POST /admin/users/{id}/deactivate-api-key.

Description: Turns off another user's API key. The owner can issue a new one
with /auth/rotate-api-key.
*/
func (handler *Handler) deactivateAPIKey(writer http.ResponseWriter, request *http.Request) {
	userID := requestutil.Param(request, "id")

	if err := handler.accounts.DeactivateAPIKey(request.Context(), userID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	ctx := request.Context()
	ctxutil.GetLogger(ctx).InfoContext(ctx, "admin_api_key_deactivated", slog.String("target_user_id", userID))
	respond.Success(writer)
}
