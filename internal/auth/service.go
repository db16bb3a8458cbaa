package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service issues bearer tokens for authenticated players.
type Service struct {
	store  TokenStore
	ttl    time.Duration
	logger *zap.Logger
}

// NewService creates an auth Service.
//
// Precondition: store and logger must be non-nil, ttl must be positive.
func NewService(store TokenStore, ttl time.Duration, logger *zap.Logger) *Service {
	return &Service{store: store, ttl: ttl, logger: logger}
}

// Issue mints a fresh token bound to playerID.
//
// Postcondition: The returned token validates to playerID until the TTL lapses.
func (s *Service) Issue(ctx context.Context, playerID string) (string, error) {
	token := uuid.NewString()
	if err := s.store.Save(ctx, token, playerID, s.ttl); err != nil {
		return "", fmt.Errorf("issuing token: %w", err)
	}
	s.logger.Debug("session token issued", zap.String("player_id", playerID))
	return token, nil
}

// Validate resolves a token to the playerID it was issued for.
//
// Postcondition: Returns ErrTokenNotFound for unknown or expired tokens.
func (s *Service) Validate(ctx context.Context, token string) (string, error) {
	return s.store.Lookup(ctx, token)
}

// Revoke invalidates a token. Revoking an unknown token succeeds.
func (s *Service) Revoke(ctx context.Context, token string) error {
	return s.store.Delete(ctx, token)
}
