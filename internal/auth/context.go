// Package auth provides identity tokens and authentication context helpers.
//
// This package is designed to be imported by both middleware and handler
// packages without causing import cycles.
package auth

import (
	"context"
	"net/http"

	"github.com/25S2-PRT681-Group-D/server/internal/domain"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	identityContextKey    contextKey = "identity"
	requestMetaContextKey contextKey = "request_meta"
)

// GetIdentity retrieves the authenticated identity from the context.
//
// Returns nil if no valid bearer token was presented.
//
// Usage:
//
//	id := auth.GetIdentity(r.Context())
//	if id == nil {
//	    // Handle unauthenticated request
//	}
func GetIdentity(ctx context.Context) *domain.Identity {
	id, ok := ctx.Value(identityContextKey).(*domain.Identity)
	if !ok {
		return nil
	}
	return id
}

// GetIdentityFromRequest is GetIdentity for a request.
func GetIdentityFromRequest(r *http.Request) *domain.Identity {
	return GetIdentity(r.Context())
}

// SetIdentity stores an identity in the context. Called by the auth
// middleware after a token verifies.
func SetIdentity(ctx context.Context, id *domain.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// RequestMeta is the client information recorded with audit entries.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// SetRequestMeta stores client information in the context.
func SetRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaContextKey, meta)
}

// GetRequestMeta returns the stored client information, or the zero value.
func GetRequestMeta(ctx context.Context) RequestMeta {
	meta, _ := ctx.Value(requestMetaContextKey).(RequestMeta)
	return meta
}
