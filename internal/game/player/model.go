// Package player defines the persistent player domain model.
package player

import (
	"time"

	"github.com/google/uuid"
)

// The four houses a player may sort into.
const (
	HouseGryffindor = "Gryffindor"
	HouseSlytherin  = "Slytherin"
	HouseRavenclaw  = "Ravenclaw"
	HouseHufflepuff = "Hufflepuff"
)

// ValidHouse reports whether house is a recognised house name.
func ValidHouse(house string) bool {
	switch house {
	case HouseGryffindor, HouseSlytherin, HouseRavenclaw, HouseHufflepuff:
		return true
	}
	return false
}

// StartingGalleons is the currency balance granted to a new player.
const StartingGalleons = 100

// StartingMaxHealth is the health pool of a new player.
const StartingMaxHealth = 100

// Player represents a player's persistent progression state.
//
// ID and AccountID are set by the persistence layer; zero values indicate an
// unsaved player.
type Player struct {
	ID        uuid.UUID
	AccountID int64

	Username string
	House    string

	Level      int
	Experience int
	Galleons   int

	ZoneID        string
	X             float64
	Y             float64
	MaxHealth     int
	CurrentHealth int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// InventoryItem is one stack of a shop item owned by a player.
type InventoryItem struct {
	ItemID   string
	Quantity int
}
