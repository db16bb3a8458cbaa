// Package realtime implements the live-session layer: the WebSocket hub that
// owns client connections and the event relay that fans gameplay events out
// between them.
package realtime

import (
	"encoding/json"

	"github.com/spellbound-game/spellbound/internal/game/session"
)

// Inbound event names (client → server).
const (
	EventJoin        = "join"
	EventMove        = "move"
	EventSpellCast   = "spell-cast"
	EventDamageDealt = "damage-dealt"
	EventPlayerDeath = "player-death"
	EventChat        = "chat-message"
)

// Outbound event names (server → client).
const (
	EventRoster         = "roster"
	EventPlayerJoined   = "player-joined"
	EventPlayerMoved    = "player-moved"
	EventSpellCasted    = "spell-casted"
	EventDamageReceived = "damage-received"
	EventPlayerDied     = "player-died"
	EventPlayerLeft     = "player-left"
)

// Message is the outbound wire envelope.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Envelope is the inbound wire envelope; the payload stays raw until the
// relay demultiplexes on Type.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Direction is a 2D unit-ish vector describing where a spell is headed. The
// server relays it untouched.
type Direction struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// JoinPayload announces a player on a fresh connection. The playerId is
// trusted as supplied; nothing ties it to the credential used on the REST
// side.
type JoinPayload struct {
	PlayerID string            `json:"playerId"`
	Username string            `json:"username"`
	House    string            `json:"house"`
	Position *session.Position `json:"position,omitempty"`
}

// MovePayload reports the sender's new location.
type MovePayload struct {
	Position session.Position `json:"position"`
}

// SpellCastPayload reports a spell cast with its cosmetic parameters.
type SpellCastPayload struct {
	SpellName string           `json:"spellName"`
	Position  session.Position `json:"position"`
	Direction Direction        `json:"direction"`
	Color     string           `json:"color,omitempty"`
	Damage    int              `json:"damage,omitempty"`
	Speed     float64          `json:"speed,omitempty"`
}

// DamageDealtPayload reports damage the sender claims to have dealt.
type DamageDealtPayload struct {
	TargetID string `json:"targetId"`
	Damage   int    `json:"damage"`
	Source   string `json:"source"`
}

// PlayerDeathPayload reports the sender's own death.
type PlayerDeathPayload struct {
	KillerID string `json:"killerId,omitempty"`
}

// ChatPayload carries a chat line.
type ChatPayload struct {
	Message string `json:"message"`
}

// RosterPlayer is one entry in the roster sent to a newly joined client, and
// the body of a player-joined broadcast.
type RosterPlayer struct {
	PlayerID string           `json:"playerId"`
	Username string           `json:"username"`
	House    string           `json:"house"`
	Position session.Position `json:"position"`
}

// RosterPayload lists the other currently connected players.
type RosterPayload struct {
	Players []RosterPlayer `json:"players"`
}

// PlayerMovedPayload broadcasts a position change with a health snapshot.
type PlayerMovedPayload struct {
	PlayerID  string           `json:"playerId"`
	Username  string           `json:"username"`
	House     string           `json:"house"`
	Position  session.Position `json:"position"`
	Health    int              `json:"health"`
	MaxHealth int              `json:"maxHealth"`
}

// SpellCastedPayload broadcasts a spell cast to observers.
type SpellCastedPayload struct {
	CasterID   string           `json:"casterId"`
	CasterName string           `json:"casterName"`
	SpellName  string           `json:"spellName"`
	Position   session.Position `json:"position"`
	Direction  Direction        `json:"direction"`
	Color      string           `json:"color,omitempty"`
	Damage     int              `json:"damage,omitempty"`
	Speed      float64          `json:"speed,omitempty"`
	Timestamp  int64            `json:"timestamp"`
}

// DamageReceivedPayload is delivered only to the victim.
type DamageReceivedPayload struct {
	AttackerID string `json:"attackerId"`
	Damage     int    `json:"damage"`
	Source     string `json:"source"`
}

// PlayerDiedPayload broadcasts a death.
type PlayerDiedPayload struct {
	PlayerID string `json:"playerId"`
	KillerID string `json:"killerId,omitempty"`
}

// ChatBroadcastPayload broadcasts a chat line to everyone, sender included.
type ChatBroadcastPayload struct {
	Username  string `json:"username"`
	House     string `json:"house"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}
