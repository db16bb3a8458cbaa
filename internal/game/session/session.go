// Package session provides the in-memory registry of connected players and
// their ephemeral presence state, plus the recent-spell buffer.
package session

// DefaultMaxHealth is the health assigned to a freshly registered session.
// Authoritative health lives in the persisted player record; this is only the
// presence-channel snapshot.
const DefaultMaxHealth = 100

// Position is a 2D world coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Session is the ephemeral record of one connected player. It is created on
// join and destroyed on disconnect; nothing here is persisted.
type Session struct {
	// PlayerID is the durable player identity, stable across reconnects.
	PlayerID string
	// ConnID is the transient identity of the live connection.
	ConnID string
	// Username and House are denormalized copies captured at join time and
	// never re-synced from storage.
	Username string
	House    string
	// Position is the last reported location.
	Position Position
	// Health and MaxHealth mirror combat state reported over this channel.
	// The persisted record remains authoritative.
	Health    int
	MaxHealth int
	// ZoneID is the last reported zone.
	ZoneID string
}
