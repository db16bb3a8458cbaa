package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spellbound-game/spellbound/internal/game/player"
	"github.com/spellbound-game/spellbound/internal/game/progression"
)

// ErrPlayerNotFound is returned when a player lookup yields no results.
var ErrPlayerNotFound = errors.New("player not found")

// ErrInsufficientGalleons is returned when a purchase exceeds the balance.
var ErrInsufficientGalleons = errors.New("insufficient galleons")

// ErrQuestAlreadyCompleted is returned when a quest is completed twice.
var ErrQuestAlreadyCompleted = errors.New("quest already completed")

const playerColumns = `id, account_id, username, house, level, experience, galleons,
	       zone, pos_x, pos_y, max_health, current_health, created_at, updated_at`

// PlayerRepository provides player persistence operations.
type PlayerRepository struct {
	db *pgxpool.Pool
}

// NewPlayerRepository creates a PlayerRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewPlayerRepository(db *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{db: db}
}

// Create inserts a new player for the given account with starting resources.
//
// Precondition: accountID must reference an existing account; username must be
// non-empty; house must pass player.ValidHouse.
// Postcondition: Returns the created player with ID and timestamps set.
func (r *PlayerRepository) Create(ctx context.Context, accountID int64, username, house, startingZone string) (*player.Player, error) {
	var p player.Player
	err := r.db.QueryRow(ctx, `
		INSERT INTO players
			(id, account_id, username, house, level, experience, galleons,
			 zone, pos_x, pos_y, max_health, current_health)
		VALUES ($1, $2, $3, $4, 1, 0, $5, $6, 0, 0, $7, $7)
		RETURNING `+playerColumns,
		uuid.New(), accountID, username, house,
		player.StartingGalleons, startingZone, player.StartingMaxHealth,
	).Scan(scanDest(&p)...)
	if err != nil {
		return nil, fmt.Errorf("inserting player: %w", err)
	}
	return &p, nil
}

// GetByID retrieves a player by its primary key.
//
// Postcondition: Returns the player or ErrPlayerNotFound.
func (r *PlayerRepository) GetByID(ctx context.Context, id uuid.UUID) (*player.Player, error) {
	var p player.Player
	err := r.db.QueryRow(ctx,
		`SELECT `+playerColumns+` FROM players WHERE id = $1`, id,
	).Scan(scanDest(&p)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("querying player: %w", err)
	}
	return &p, nil
}

// GetByAccount retrieves the player owned by the given account.
//
// Postcondition: Returns the player or ErrPlayerNotFound.
func (r *PlayerRepository) GetByAccount(ctx context.Context, accountID int64) (*player.Player, error) {
	var p player.Player
	err := r.db.QueryRow(ctx,
		`SELECT `+playerColumns+` FROM players WHERE account_id = $1`, accountID,
	).Scan(scanDest(&p)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("querying player by account: %w", err)
	}
	return &p, nil
}

// SaveState persists the periodically reported presence state.
//
// Postcondition: Returns nil on success, ErrPlayerNotFound if no row updated.
func (r *PlayerRepository) SaveState(ctx context.Context, id uuid.UUID, zone string, x, y float64, currentHealth int) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE players
		SET zone = $2, pos_x = $3, pos_y = $4, current_health = $5, updated_at = NOW()
		WHERE id = $1`,
		id, zone, x, y, currentHealth,
	)
	if err != nil {
		return fmt.Errorf("saving player state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

// GrantExperience adds experience, recomputes the level, and persists both.
//
// Precondition: amount must be >= 0.
// Postcondition: Returns the progression result, or ErrPlayerNotFound.
func (r *PlayerRepository) GrantExperience(ctx context.Context, id uuid.UUID, amount int) (progression.Result, error) {
	var res progression.Result

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var current int
		err := tx.QueryRow(ctx,
			`SELECT experience FROM players WHERE id = $1 FOR UPDATE`, id,
		).Scan(&current)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrPlayerNotFound
			}
			return fmt.Errorf("locking player row: %w", err)
		}

		res = progression.Grant(current, amount)
		_, err = tx.Exec(ctx, `
			UPDATE players SET experience = $2, level = $3, updated_at = NOW()
			WHERE id = $1`,
			id, res.Experience, res.Level,
		)
		if err != nil {
			return fmt.Errorf("updating progression: %w", err)
		}
		return nil
	})
	if err != nil {
		return progression.Result{}, err
	}
	return res, nil
}

// Purchase atomically deducts the price and adds one unit of the item to the
// player's inventory.
//
// Precondition: price must be >= 0.
// Postcondition: Returns the remaining balance, ErrInsufficientGalleons when
// the balance cannot cover the price, or ErrPlayerNotFound.
func (r *PlayerRepository) Purchase(ctx context.Context, id uuid.UUID, itemID string, price int) (int, error) {
	var remaining int

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			UPDATE players SET galleons = galleons - $2, updated_at = NOW()
			WHERE id = $1 AND galleons >= $2
			RETURNING galleons`,
			id, price,
		).Scan(&remaining)
		if errors.Is(err, pgx.ErrNoRows) {
			// Distinguish a missing player from an empty purse.
			var exists bool
			if probeErr := tx.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM players WHERE id = $1)`, id,
			).Scan(&exists); probeErr != nil {
				return fmt.Errorf("probing player: %w", probeErr)
			}
			if !exists {
				return ErrPlayerNotFound
			}
			return ErrInsufficientGalleons
		}
		if err != nil {
			return fmt.Errorf("deducting galleons: %w", err)
		}

		if err := upsertItem(ctx, tx, id, itemID, 1); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return remaining, nil
}

// CompleteQuest marks a quest done exactly once and applies its rewards in the
// same transaction.
//
// Postcondition: Returns the updated player, ErrQuestAlreadyCompleted on a
// repeat completion, or ErrPlayerNotFound.
func (r *PlayerRepository) CompleteQuest(ctx context.Context, id uuid.UUID, questID string, rewardXP, rewardGalleons int, rewardItems []player.InventoryItem) (*player.Player, error) {
	var p player.Player

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO quest_progress (player_id, quest_id) VALUES ($1, $2)`,
			id, questID,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return ErrQuestAlreadyCompleted
			}
			return fmt.Errorf("recording quest completion: %w", err)
		}

		var experience int
		err = tx.QueryRow(ctx, `
			UPDATE players SET experience = experience + $2, galleons = galleons + $3
			WHERE id = $1
			RETURNING experience`,
			id, rewardXP, rewardGalleons,
		).Scan(&experience)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrPlayerNotFound
			}
			return fmt.Errorf("applying quest rewards: %w", err)
		}

		level := progression.LevelForExperience(experience)
		err = tx.QueryRow(ctx, `
			UPDATE players SET level = $2, updated_at = NOW()
			WHERE id = $1
			RETURNING `+playerColumns,
			id, level,
		).Scan(scanDest(&p)...)
		if err != nil {
			return fmt.Errorf("updating level: %w", err)
		}

		for _, item := range rewardItems {
			if err := upsertItem(ctx, tx, id, item.ItemID, item.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Inventory returns the player's item stacks ordered by item id.
//
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *PlayerRepository) Inventory(ctx context.Context, id uuid.UUID) ([]player.InventoryItem, error) {
	rows, err := r.db.Query(ctx,
		`SELECT item_id, quantity FROM inventory_items WHERE player_id = $1 ORDER BY item_id`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("listing inventory: %w", err)
	}
	defer rows.Close()

	items := make([]player.InventoryItem, 0)
	for rows.Next() {
		var item player.InventoryItem
		if err := rows.Scan(&item.ItemID, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scanning inventory row: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// CompletedQuests returns the ids of quests the player has finished.
//
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *PlayerRepository) CompletedQuests(ctx context.Context, id uuid.UUID) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT quest_id FROM quest_progress WHERE player_id = $1 ORDER BY completed_at`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("listing quest progress: %w", err)
	}
	defer rows.Close()

	quests := make([]string, 0)
	for rows.Next() {
		var questID string
		if err := rows.Scan(&questID); err != nil {
			return nil, fmt.Errorf("scanning quest row: %w", err)
		}
		quests = append(quests, questID)
	}
	return quests, rows.Err()
}

func upsertItem(ctx context.Context, tx pgx.Tx, playerID uuid.UUID, itemID string, quantity int) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO inventory_items (player_id, item_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (player_id, item_id)
		DO UPDATE SET quantity = inventory_items.quantity + EXCLUDED.quantity`,
		playerID, itemID, quantity,
	)
	if err != nil {
		return fmt.Errorf("upserting inventory item %s: %w", itemID, err)
	}
	return nil
}

func scanDest(p *player.Player) []any {
	return []any{
		&p.ID, &p.AccountID, &p.Username, &p.House, &p.Level, &p.Experience,
		&p.Galleons, &p.ZoneID, &p.X, &p.Y, &p.MaxHealth, &p.CurrentHealth,
		&p.CreatedAt, &p.UpdatedAt,
	}
}
