// Package auth issues and validates session tokens.
package auth

import (
	"context"
	"errors"
	"time"
)

// ErrTokenNotFound is returned when a token is unknown or has expired.
var ErrTokenNotFound = errors.New("token not found")

// TokenStore persists session tokens with a TTL.
type TokenStore interface {
	// Save stores token -> playerID for ttl.
	Save(ctx context.Context, token, playerID string, ttl time.Duration) error
	// Lookup resolves a token to a playerID, or ErrTokenNotFound.
	Lookup(ctx context.Context, token string) (string, error)
	// Delete removes a token. Deleting an unknown token is not an error.
	Delete(ctx context.Context, token string) error
}
