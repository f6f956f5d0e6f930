// Package handler contains the JSON HTTP handlers of the AgroScan API.
//
// Each handler type owns one resource and registers its routes on a
// net/http ServeMux. Authentication is supplied by middleware; handlers read
// the caller with auth.GetIdentity.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/25S2-PRT681-Group-D/server/internal/auth"
	"github.com/25S2-PRT681-Group-D/server/internal/domain"
	"github.com/25S2-PRT681-Group-D/server/internal/invite"
	"github.com/25S2-PRT681-Group-D/server/internal/service"
)

// AuthHandler serves registration, login and the current identity.
type AuthHandler struct {
	userService service.UserService
	invites     *invite.Gate
	logger      *slog.Logger
}

// NewAuthHandler creates a new AuthHandler. A nil or open invite gate
// leaves registration open.
func NewAuthHandler(userService service.UserService, invites *invite.Gate, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		invites:     invites,
		logger:      logger,
	}
}

// AuthRouteLimits wraps the credential endpoints with rate limiting. Nil
// fields leave the route unlimited.
type AuthRouteLimits struct {
	Login    func(http.Handler) http.Handler
	Register func(http.Handler) http.Handler
}

// RegisterRoutes registers the auth routes.
//
// Routes:
// - POST /auth/register -> Register
// - POST /auth/login    -> Login
// - GET  /auth/me       -> Me (requires a bearer token)
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler, limits AuthRouteLimits) {
	mux.Handle("POST /auth/register", wrapOptional(limits.Register, http.HandlerFunc(h.Register)))
	mux.Handle("POST /auth/login", wrapOptional(limits.Login, http.HandlerFunc(h.Login)))
	mux.Handle("GET /auth/me", requireUser(http.HandlerFunc(h.Me)))
}

func wrapOptional(mw func(http.Handler) http.Handler, next http.Handler) http.Handler {
	if mw == nil {
		return next
	}
	return mw(next)
}

// registerRequest is the register body. InviteCode only matters when
// registration is gated.
type registerRequest struct {
	domain.RegisterParams
	InviteCode string `json:"inviteCode"`
}

// Register creates an account and answers with a token, like Login.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if !h.invites.Admit(req.InviteCode) {
		h.logger.Warn("registration rejected: invalid invite code", "email", req.Email)
		ErrorResponse(w, r, h.logger, domain.NewValidationError("auth.register", "inviteCode", "A valid invite code is required"))
		return
	}

	result, err := h.userService.Register(r.Context(), req.RegisterParams)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Login exchanges credentials for a token. Unknown email and wrong password
// get the same 401.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var params domain.LoginParams
	if err := decodeJSON(w, r, &params); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.userService.Login(r.Context(), params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if result == nil {
		ErrorResponse(w, r, h.logger, domain.Unauthorized("auth.login", "Invalid email or password"))
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// meResponse mirrors the token claims.
type meResponse struct {
	ID        int64       `json:"id"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
}

// Me returns the identity carried by the bearer token.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetIdentityFromRequest(r)
	if identity == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, meResponse{
		ID:        identity.UserID,
		Email:     identity.Email,
		Role:      identity.Role,
		FirstName: identity.FirstName,
		LastName:  identity.LastName,
	})
}
