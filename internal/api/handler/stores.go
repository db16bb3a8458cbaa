// Package handler implements the REST API handlers.
package handler

import (
	"context"

	"github.com/google/uuid"

	"github.com/spellbound-game/spellbound/internal/game/player"
	"github.com/spellbound-game/spellbound/internal/game/progression"
	"github.com/spellbound-game/spellbound/internal/storage/postgres"
)

// AccountStore is the account persistence surface the handlers need.
type AccountStore interface {
	Create(ctx context.Context, username, password string) (postgres.Account, error)
	Authenticate(ctx context.Context, username, password string) (postgres.Account, error)
}

// PlayerStore is the player persistence surface the handlers need.
type PlayerStore interface {
	Create(ctx context.Context, accountID int64, username, house, startingZone string) (*player.Player, error)
	GetByID(ctx context.Context, id uuid.UUID) (*player.Player, error)
	GetByAccount(ctx context.Context, accountID int64) (*player.Player, error)
	SaveState(ctx context.Context, id uuid.UUID, zone string, x, y float64, currentHealth int) error
	GrantExperience(ctx context.Context, id uuid.UUID, amount int) (progression.Result, error)
	Inventory(ctx context.Context, id uuid.UUID) ([]player.InventoryItem, error)
	CompletedQuests(ctx context.Context, id uuid.UUID) ([]string, error)
}

// TokenService issues and revokes bearer tokens.
type TokenService interface {
	Issue(ctx context.Context, playerID string) (string, error)
	Revoke(ctx context.Context, token string) error
}

// playerView is the JSON shape players are rendered as.
type playerView struct {
	ID            string  `json:"id"`
	Username      string  `json:"username"`
	House         string  `json:"house"`
	Level         int     `json:"level"`
	Experience    int     `json:"experience"`
	Galleons      int     `json:"galleons"`
	Zone          string  `json:"zone"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	MaxHealth     int     `json:"maxHealth"`
	CurrentHealth int     `json:"currentHealth"`
}

func viewOf(p *player.Player) playerView {
	return playerView{
		ID:            p.ID.String(),
		Username:      p.Username,
		House:         p.House,
		Level:         p.Level,
		Experience:    p.Experience,
		Galleons:      p.Galleons,
		Zone:          p.ZoneID,
		X:             p.X,
		Y:             p.Y,
		MaxHealth:     p.MaxHealth,
		CurrentHealth: p.CurrentHealth,
	}
}
