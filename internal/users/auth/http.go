// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/keygate/internal/platform/middleware"
	requestutil "github.com/taibuivan/keygate/internal/platform/request"
	"github.com/taibuivan/keygate/internal/platform/respond"
	"github.com/taibuivan/keygate/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements the /auth endpoints.
type Handler struct {
	authService *Service
	gate        *middleware.Gate
}

// NewHandler constructs a new [Handler]. gate protects the authenticated routes.
func NewHandler(service *Service, gate *middleware.Gate) *Handler {
	return &Handler{authService: service, gate: gate}
}

// Routes returns a [chi.Router] configured with authentication-specific routes.
//
// # Endpoints
//   - POST /register, /login, /refresh; GET /password-requirements : public
//   - GET /me; POST /change-password, /rotate-api-key, /deactivate-api-key,
//     /logout : bearer token or API key
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/register", handler.register)
	router.Post("/login", handler.login)
	router.Post("/refresh", handler.refresh)
	router.Get("/password-requirements", handler.passwordRequirements)

	router.Group(func(r chi.Router) {
		r.Use(handler.gate.Authenticate)
		r.Get("/me", handler.me)
		r.Post("/change-password", handler.changePassword)
		r.Post("/rotate-api-key", handler.rotateAPIKey)
		r.Post("/deactivate-api-key", handler.deactivateAPIKey)
		r.Post("/logout", handler.logout)
	})

	return router
}

// # Request & Response Payloads

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type sessionResponse struct {
	User *User `json:"user"`
	*TokenPair
}

type userResponse struct {
	User *User `json:"user"`
}

/*
register creates an account and signs it in.

POST /auth/register

Response:
  - 201: {user, access_token, refresh_token, token_type, expires_in}
  - 400: Invalid JSON or credential rule violations
  - 409: Email or username already exists
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Register(request.Context(), RegisterInput(input))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, sessionResponse{User: session.User, TokenPair: session.Tokens})
}

/*
login authenticates by email and password.

POST /auth/login

Response:
  - 200: {user, access_token, refresh_token, token_type, expires_in}
  - 400: Missing fields
  - 401: INVALID_CREDENTIALS
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Login(request.Context(), LoginInput(input))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, sessionResponse{User: session.User, TokenPair: session.Tokens})
}

/*
refresh rotates a refresh token.

POST /auth/refresh

Response:
  - 200: {access_token, refresh_token, token_type, expires_in}
  - 400: Missing refresh_token
  - 401: INVALID_TOKEN_TYPE, TOKEN_EXPIRED, INVALID_TOKEN, USER_NOT_FOUND, TOKEN_REUSED
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	tokens, err := handler.authService.Refresh(request.Context(), input.RefreshToken)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, tokens)
}

// passwordRequirements lists the password rules. GET /auth/password-requirements
func (handler *Handler) passwordRequirements(writer http.ResponseWriter, _ *http.Request) {
	respond.OK(writer, map[string][]string{"requirements": validate.PasswordRequirements()})
}

// me returns the caller's account. GET /auth/me
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.Me(request.Context(), identity)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, userResponse{User: user})
}

/*
changePassword replaces the caller's password and revokes refresh tokens.

POST /auth/change-password

Response:
  - 200: {success: true}
  - 400: Weak or unchanged new password
  - 401: Wrong current password, or no credentials
*/
func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input changePasswordRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ChangePassword(request.Context(), identity, ChangePasswordInput(input)); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Success(writer)
}

// rotateAPIKey issues a new key and returns it once. POST /auth/rotate-api-key
func (handler *Handler) rotateAPIKey(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	key, err := handler.authService.RotateAPIKey(request.Context(), identity.UserID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	writer.Header().Set("Cache-Control", "no-store")
	respond.OK(writer, map[string]string{"api_key": key})
}

// deactivateAPIKey turns off the caller's key. POST /auth/deactivate-api-key
func (handler *Handler) deactivateAPIKey(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.DeactivateAPIKey(request.Context(), identity.UserID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Success(writer)
}

// logout revokes the caller's refresh tokens. POST /auth/logout
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	identity, err := requestutil.RequiredIdentity(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.Logout(request.Context(), identity); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Success(writer)
}
