// Package quest provides the quest catalog and completion rewards.
package quest

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spellbound-game/spellbound/internal/game/player"
)

// ItemGrant is one item stack awarded by a quest.
type ItemGrant struct {
	ItemID   string `yaml:"item_id"`
	Quantity int    `yaml:"quantity"`
}

// Quest is one completable quest definition.
type Quest struct {
	ID             string      `yaml:"id"`
	Name           string      `yaml:"name"`
	Description    string      `yaml:"description"`
	RewardXP       int         `yaml:"reward_xp"`
	RewardGalleons int         `yaml:"reward_galleons"`
	RewardItems    []ItemGrant `yaml:"reward_items"`
}

// ErrQuestNotFound is returned when a completion names an unknown quest.
var ErrQuestNotFound = errors.New("quest not found")

// yamlCatalogFile is the top-level YAML structure for the quest catalog.
type yamlCatalogFile struct {
	Quests []Quest `yaml:"quests"`
}

// Catalog is the immutable set of quest definitions, loaded once at startup.
type Catalog struct {
	quests map[string]Quest
	sorted []Quest
}

// LoadCatalog reads and validates the quest catalog YAML file.
//
// Precondition: path must point to a valid YAML catalog file.
// Postcondition: Returns a validated Catalog or a non-nil error.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading quest catalog %s: %w", path, err)
	}
	return LoadCatalogFromBytes(data)
}

// LoadCatalogFromBytes parses and validates a catalog from YAML bytes.
//
// Postcondition: Every quest has a unique non-empty id and non-negative rewards.
func LoadCatalogFromBytes(data []byte) (*Catalog, error) {
	var file yamlCatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing quest catalog YAML: %w", err)
	}

	c := &Catalog{quests: make(map[string]Quest, len(file.Quests))}
	for _, q := range file.Quests {
		if q.ID == "" {
			return nil, errors.New("quest with empty id")
		}
		if q.RewardXP < 0 || q.RewardGalleons < 0 {
			return nil, fmt.Errorf("quest %q has negative rewards", q.ID)
		}
		for _, grant := range q.RewardItems {
			if grant.ItemID == "" || grant.Quantity < 1 {
				return nil, fmt.Errorf("quest %q has an invalid item grant", q.ID)
			}
		}
		if _, dup := c.quests[q.ID]; dup {
			return nil, fmt.Errorf("duplicate quest id %q", q.ID)
		}
		c.quests[q.ID] = q
		c.sorted = append(c.sorted, q)
	}
	return c, nil
}

// Get returns the quest with the given id.
func (c *Catalog) Get(id string) (Quest, bool) {
	q, ok := c.quests[id]
	return q, ok
}

// List returns all quests in catalog file order.
func (c *Catalog) List() []Quest {
	out := make([]Quest, len(c.sorted))
	copy(out, c.sorted)
	return out
}

// PlayerStore is the persistence surface quest completion needs.
type PlayerStore interface {
	// CompleteQuest marks a quest done exactly once and applies its rewards.
	CompleteQuest(ctx context.Context, playerID uuid.UUID, questID string, rewardXP, rewardGalleons int, rewardItems []player.InventoryItem) (*player.Player, error)
}

// Service hands out quest rewards.
type Service struct {
	catalog *Catalog
	players PlayerStore
	logger  *zap.Logger
}

// NewService creates a quest Service.
//
// Precondition: catalog, players, and logger must be non-nil.
func NewService(catalog *Catalog, players PlayerStore, logger *zap.Logger) *Service {
	return &Service{catalog: catalog, players: players, logger: logger}
}

// Quests returns the quest definitions in display order.
func (s *Service) Quests() []Quest {
	return s.catalog.List()
}

// Complete awards the quest's rewards to the player, once.
//
// Postcondition: Returns the updated player, ErrQuestNotFound for unknown
// quests, or the store's error (already completed, missing player) unchanged.
func (s *Service) Complete(ctx context.Context, playerID uuid.UUID, questID string) (*player.Player, error) {
	q, ok := s.catalog.Get(questID)
	if !ok {
		return nil, ErrQuestNotFound
	}

	items := make([]player.InventoryItem, 0, len(q.RewardItems))
	for _, grant := range q.RewardItems {
		items = append(items, player.InventoryItem{ItemID: grant.ItemID, Quantity: grant.Quantity})
	}

	updated, err := s.players.CompleteQuest(ctx, playerID, q.ID, q.RewardXP, q.RewardGalleons, items)
	if err != nil {
		return nil, fmt.Errorf("completing %s: %w", q.ID, err)
	}

	s.logger.Info("quest completed",
		zap.String("player_id", playerID.String()),
		zap.String("quest_id", q.ID),
		zap.Int("reward_xp", q.RewardXP),
		zap.Int("reward_galleons", q.RewardGalleons),
	)
	return updated, nil
}
