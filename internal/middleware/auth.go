// Package middleware contains HTTP middleware for the AgroScan API.
//
// Middleware functions follow the standard Go pattern of wrapping http.Handler.
// They are designed to be composed using a middleware stack approach.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/25S2-PRT681-Group-D/server/internal/auth"
	"github.com/25S2-PRT681-Group-D/server/internal/domain"
	"github.com/25S2-PRT681-Group-D/server/internal/handler"
)

// TokenVerifier turns a bearer token into an identity. service.UserService
// satisfies it.
type TokenVerifier interface {
	VerifyToken(token string) (*domain.Identity, error)
}

// =============================================================================
// Auth Middleware Configuration
// =============================================================================

// AuthMiddleware provides authentication middleware functionality.
//
// Create one instance and use its methods as middleware.
type AuthMiddleware struct {
	verifier TokenVerifier
	logger   *slog.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware instance.
func NewAuthMiddleware(verifier TokenVerifier, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		logger:   logger,
	}
}

// =============================================================================
// WithIdentity Middleware
// =============================================================================

// WithIdentity is middleware that verifies an Authorization bearer token
// when one is present and stores the identity in the request context. It
// also records the client address and user agent for audit entries.
//
// Requests without a token, or with an invalid one, continue anonymously;
// RequireUser decides whether that is acceptable.
//
// The identity can be retrieved in handlers using:
//
//	id := auth.GetIdentity(r.Context())
func (m *AuthMiddleware) WithIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := auth.SetRequestMeta(r.Context(), auth.RequestMeta{
			IPAddress: getClientIP(r),
			UserAgent: r.UserAgent(),
		})

		token := bearerToken(r)
		if token != "" {
			identity, err := m.verifier.VerifyToken(token)
			if err != nil {
				m.logger.Debug("rejected bearer token",
					"path", r.URL.Path,
					"error", err,
				)
			} else {
				ctx = auth.SetIdentity(ctx, identity)
			}
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// =============================================================================
// RequireUser Middleware
// =============================================================================

// RequireUser is middleware that requires an authenticated identity.
//
// IMPORTANT: This middleware must be used AFTER WithIdentity in the chain.
//
// Usage:
//
//	mux.Handle("GET /auth/me", authMw.RequireUser(http.HandlerFunc(h.Me)))
func (m *AuthMiddleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.GetIdentity(r.Context()) == nil {
			m.logger.Debug("unauthenticated request rejected",
				"path", r.URL.Path,
				"method", r.Method,
			)
			handler.UnauthorizedResponse(w, r, m.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole returns middleware that admits only identities holding one of
// roles. Anonymous requests get 401, authenticated ones without the role 403.
func (m *AuthMiddleware) RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := auth.GetIdentity(r.Context())
			if identity == nil {
				handler.UnauthorizedResponse(w, r, m.logger)
				return
			}
			for _, role := range roles {
				if identity.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			m.logger.Info("role check failed",
				"user_id", identity.UserID,
				"role", identity.Role,
				"path", r.URL.Path,
			)
			handler.ForbiddenResponse(w, r, m.logger)
		})
	}
}

// RequireAdmin admits only the admin role.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return m.RequireRole(domain.RoleAdmin)(next)
}

// =============================================================================
// Request Helpers
// =============================================================================

// bearerToken extracts the token from "Authorization: Bearer <token>".
// The scheme is matched case-insensitively.
func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// =============================================================================
// Middleware Stack Helpers
// =============================================================================

// Stack composes multiple middleware functions into a single middleware.
//
// Middleware is applied in the order provided, meaning the first middleware
// is the outermost wrapper.
//
// Example:
//
//	stack := Stack(Logging, Metrics, authMw.WithIdentity)
//	handler := stack(finalHandler)
//
// This is equivalent to:
//
//	handler := Logging(Metrics(authMw.WithIdentity(finalHandler)))
func Stack(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// Compile-time checks
var (
	_ func(http.Handler) http.Handler = (*AuthMiddleware)(nil).WithIdentity
	_ func(http.Handler) http.Handler = (*AuthMiddleware)(nil).RequireUser
	_ func(http.Handler) http.Handler = (*AuthMiddleware)(nil).RequireAdmin
)
