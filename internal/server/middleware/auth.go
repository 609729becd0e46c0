// Package middleware provides HTTP middleware for funnel session tokens and admin access.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

const (
	sessionIDKey ContextKey = "sessionID"
	entryIDKey   ContextKey = "entryID"
)

// TokenQueryParam carries the token for clients that cannot set headers (EventSource).
const TokenQueryParam = "access_token"

// TokenValidator is an interface for validating session tokens.
// This allows the middleware to work with any JWT service implementation.
type TokenValidator interface {
	ValidateToken(tokenString string) (SessionClaims, error)
}

// SessionClaims exposes the identifiers carried by a session token.
type SessionClaims interface {
	GetSessionID() uuid.UUID
	GetEntryID() uuid.UUID
}

// AuthMiddleware validates the bearer token and adds the session and entry IDs to the request context.
func AuthMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := extractToken(r)
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := validator.ValidateToken(tokenString)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), sessionIDKey, claims.GetSessionID())
			ctx = context.WithValue(ctx, entryIDKey, claims.GetEntryID())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken reads a Bearer token from the Authorization header, falling back
// to the access_token query parameter on GET requests.
func extractToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if r.Method != http.MethodGet {
			return "", false
		}
		token := strings.TrimSpace(r.URL.Query().Get(TokenQueryParam))
		return token, token != ""
	}

	// Handle case-insensitive "Bearer" prefix
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// GetSessionID extracts the authenticated session ID from the request context.
func GetSessionID(r *http.Request) (uuid.UUID, error) {
	id, ok := r.Context().Value(sessionIDKey).(uuid.UUID)
	if !ok {
		return uuid.Nil, fmt.Errorf("session ID not found in request context")
	}
	return id, nil
}

// GetEntryID extracts the waitlist entry ID from the request context.
func GetEntryID(r *http.Request) (uuid.UUID, error) {
	id, ok := r.Context().Value(entryIDKey).(uuid.UUID)
	if !ok {
		return uuid.Nil, fmt.Errorf("entry ID not found in request context")
	}
	return id, nil
}

// SessionIDKey returns the context key for the session ID (for testing purposes).
func SessionIDKey() ContextKey {
	return sessionIDKey
}
