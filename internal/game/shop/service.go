package shop

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PlayerStore is the persistence surface the shop needs.
type PlayerStore interface {
	// Purchase atomically deducts price and adds one unit of itemID,
	// returning the remaining balance.
	Purchase(ctx context.Context, playerID uuid.UUID, itemID string, price int) (int, error)
}

// Receipt summarises a completed purchase.
type Receipt struct {
	Item              Item
	RemainingGalleons int
}

// Service sells catalog items to players.
type Service struct {
	catalog *Catalog
	players PlayerStore
	logger  *zap.Logger
}

// NewService creates a shop Service.
//
// Precondition: catalog, players, and logger must be non-nil.
func NewService(catalog *Catalog, players PlayerStore, logger *zap.Logger) *Service {
	return &Service{catalog: catalog, players: players, logger: logger}
}

// Items returns the purchasable catalog in display order.
func (s *Service) Items() []Item {
	return s.catalog.List()
}

// Purchase sells one unit of itemID to the player.
//
// Postcondition: Returns a Receipt, ErrItemNotFound for unknown items, or the
// store's error (insufficient galleons, missing player) unchanged.
func (s *Service) Purchase(ctx context.Context, playerID uuid.UUID, itemID string) (Receipt, error) {
	item, ok := s.catalog.Get(itemID)
	if !ok {
		return Receipt{}, ErrItemNotFound
	}

	remaining, err := s.players.Purchase(ctx, playerID, item.ID, item.Price)
	if err != nil {
		return Receipt{}, fmt.Errorf("purchasing %s: %w", item.ID, err)
	}

	s.logger.Info("item purchased",
		zap.String("player_id", playerID.String()),
		zap.String("item_id", item.ID),
		zap.Int("price", item.Price),
		zap.Int("remaining", remaining),
	)
	return Receipt{Item: item, RemainingGalleons: remaining}, nil
}
