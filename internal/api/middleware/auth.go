// Package middleware provides the HTTP middleware chain.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spellbound-game/spellbound/internal/api/apierr"
)

// TokenValidator resolves a bearer token to the player it was issued for.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (string, error)
}

type contextKey int

const playerIDKey contextKey = iota

// BearerToken extracts the token from the Authorization header.
//
// Postcondition: Returns ("", false) when the header is absent or malformed.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

// Auth rejects requests without a valid bearer token and stores the resolved
// player id in the request context.
func Auth(validator TokenValidator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				apierr.Write(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			playerIDStr, err := validator.Validate(r.Context(), token)
			if err != nil {
				apierr.Write(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			playerID, err := uuid.Parse(playerIDStr)
			if err != nil {
				logger.Error("token resolved to a malformed player id",
					zap.String("player_id", playerIDStr), zap.Error(err))
				apierr.Write(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), playerIDKey, playerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PlayerID returns the authenticated player id stored by Auth.
//
// Precondition: The request must have passed through the Auth middleware.
func PlayerID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(playerIDKey).(uuid.UUID)
	return id, ok
}

// WithPlayerID injects a player id into the context. Used by tests that
// exercise handlers without the middleware chain.
func WithPlayerID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, playerIDKey, id)
}
