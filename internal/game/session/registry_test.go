package session

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry("hogsmeade")
	_, superseded := r.Register("c1", "p1", "Harry", "Gryffindor", Position{X: 1, Y: 2})
	assert.False(t, superseded)

	sess, ok := r.Get("c1")
	require.True(t, ok)
	assert.Equal(t, "p1", sess.PlayerID)
	assert.Equal(t, "Harry", sess.Username)
	assert.Equal(t, "Gryffindor", sess.House)
	assert.Equal(t, Position{X: 1, Y: 2}, sess.Position)
	assert.Equal(t, DefaultMaxHealth, sess.Health)
	assert.Equal(t, DefaultMaxHealth, sess.MaxHealth)
	assert.Equal(t, "hogsmeade", sess.ZoneID)
	assert.Equal(t, 1, r.Count())
}

func TestRegistry_Register_Overwrite(t *testing.T) {
	r := NewRegistry("hogsmeade")
	r.Register("c1", "p1", "Harry", "Gryffindor", Position{})
	_, superseded := r.Register("c1", "p1", "Harry", "Gryffindor", Position{X: 9, Y: 9})
	assert.False(t, superseded, "rejoin on the same connection is a plain overwrite")

	sess, ok := r.Get("c1")
	require.True(t, ok)
	assert.Equal(t, Position{X: 9, Y: 9}, sess.Position)
	assert.Equal(t, 1, r.Count())
}

func TestRegistry_Register_SupersedesPreviousConnection(t *testing.T) {
	r := NewRegistry("hogsmeade")
	r.Register("c1", "p1", "Harry", "Gryffindor", Position{})
	stale, superseded := r.Register("c2", "p1", "Harry", "Gryffindor", Position{})
	require.True(t, superseded)
	assert.Equal(t, "c1", stale)

	// The stale connection's session is gone; the player resolves to the new one.
	_, ok := r.Get("c1")
	assert.False(t, ok)
	connID, ok := r.Resolve("p1")
	require.True(t, ok)
	assert.Equal(t, "c2", connID)
	assert.Equal(t, 1, r.Count())
}

func TestRegistry_Register_ConnectionSwitchesPlayer(t *testing.T) {
	r := NewRegistry("hogsmeade")
	r.Register("c1", "p1", "Harry", "Gryffindor", Position{})
	r.Register("c1", "p2", "Draco", "Slytherin", Position{})

	_, ok := r.Resolve("p1")
	assert.False(t, ok, "old player mapping must be unlinked")
	connID, ok := r.Resolve("p2")
	require.True(t, ok)
	assert.Equal(t, "c1", connID)
	assert.Equal(t, 1, r.Count())
}

func TestRegistry_Deregister(t *testing.T) {
	r := NewRegistry("hogsmeade")
	r.Register("c1", "p1", "Harry", "Gryffindor", Position{})

	playerID, ok := r.Deregister("c1")
	require.True(t, ok)
	assert.Equal(t, "p1", playerID)

	_, ok = r.Resolve("p1")
	assert.False(t, ok)
	_, ok = r.Get("c1")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Count())
}

func TestRegistry_Deregister_Absent(t *testing.T) {
	r := NewRegistry("hogsmeade")
	_, ok := r.Deregister("ghost")
	assert.False(t, ok)
}

func TestRegistry_Deregister_StaleConnKeepsNewMapping(t *testing.T) {
	r := NewRegistry("hogsmeade")
	r.Register("c1", "p1", "Harry", "Gryffindor", Position{})
	r.Register("c2", "p1", "Harry", "Gryffindor", Position{})

	// Deregistering the superseded connection must not disturb the new one.
	_, ok := r.Deregister("c1")
	assert.False(t, ok)
	connID, ok := r.Resolve("p1")
	require.True(t, ok)
	assert.Equal(t, "c2", connID)
}

func TestRegistry_UpdatePosition(t *testing.T) {
	r := NewRegistry("hogsmeade")
	r.Register("c1", "p1", "Harry", "Gryffindor", Position{})

	r.UpdatePosition("c1", Position{X: 5, Y: 5})
	sess, ok := r.Get("c1")
	require.True(t, ok)
	assert.Equal(t, Position{X: 5, Y: 5}, sess.Position)

	// Unknown connections are dropped silently.
	r.UpdatePosition("ghost", Position{X: 1, Y: 1})
	assert.Equal(t, 1, r.Count())
}

func TestRegistry_ApplyDamage(t *testing.T) {
	r := NewRegistry("hogsmeade")
	r.Register("c1", "p1", "Harry", "Gryffindor", Position{})

	health, ok := r.ApplyDamage("c1", 30)
	require.True(t, ok)
	assert.Equal(t, DefaultMaxHealth-30, health)

	health, ok = r.ApplyDamage("c1", 500)
	require.True(t, ok)
	assert.Equal(t, 0, health, "health clamps at zero")

	_, ok = r.ApplyDamage("ghost", 10)
	assert.False(t, ok)
}

func TestRegistry_ListOthers(t *testing.T) {
	r := NewRegistry("hogsmeade")
	r.Register("c1", "p1", "Harry", "Gryffindor", Position{X: 1})
	r.Register("c2", "p2", "Draco", "Slytherin", Position{X: 2})
	r.Register("c3", "p3", "Luna", "Ravenclaw", Position{X: 3})

	others := r.ListOthers("c2")
	require.Len(t, others, 2)
	for _, sess := range others {
		assert.NotEqual(t, "c2", sess.ConnID)
	}
}

func TestRegistry_ListOthers_Empty(t *testing.T) {
	r := NewRegistry("hogsmeade")
	assert.Empty(t, r.ListOthers("c1"))

	r.Register("c1", "p1", "Harry", "Gryffindor", Position{})
	assert.Empty(t, r.ListOthers("c1"))
}

// Resolve always returns the most recently registered connection for a player,
// no matter the interleaving of registers and deregisters.
func TestRegistry_ResolveLatestWins_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := NewRegistry("hogsmeade")
		lastConn := make(map[string]string) // playerID → latest connID
		connPlayer := make(map[string]string)

		steps := rapid.IntRange(1, 50).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			playerID := fmt.Sprintf("p%d", rapid.IntRange(0, 4).Draw(t, "player"))
			if rapid.Float64().Draw(t, "op") < 0.75 {
				connID := fmt.Sprintf("c%d", i)
				r.Register(connID, playerID, "u", "h", Position{})
				// The new connection supersedes; the old one is gone.
				if prev, ok := lastConn[playerID]; ok {
					delete(connPlayer, prev)
				}
				lastConn[playerID] = connID
				connPlayer[connID] = playerID
			} else if prev, ok := lastConn[playerID]; ok {
				r.Deregister(prev)
				delete(lastConn, playerID)
				delete(connPlayer, prev)
			}
		}

		for playerID, wantConn := range lastConn {
			gotConn, ok := r.Resolve(playerID)
			require.True(t, ok)
			require.Equal(t, wantConn, gotConn)
		}
		require.Equal(t, len(connPlayer), r.Count())
	})
}

// The two registry views must never diverge: every session reachable by
// connection id resolves back to the same connection by player id.
func TestRegistry_ViewsConsistent_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := NewRegistry("hogsmeade")
		steps := rapid.IntRange(1, 60).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			connID := fmt.Sprintf("c%d", rapid.IntRange(0, 9).Draw(t, "conn"))
			playerID := fmt.Sprintf("p%d", rapid.IntRange(0, 4).Draw(t, "player"))
			if rapid.Bool().Draw(t, "register") {
				r.Register(connID, playerID, "u", "h", Position{})
			} else {
				r.Deregister(connID)
			}
		}

		for _, sess := range r.ListOthers("") {
			gotConn, ok := r.Resolve(sess.PlayerID)
			require.True(t, ok, "session for %s has no player mapping", sess.PlayerID)
			require.Equal(t, sess.ConnID, gotConn)
		}
	})
}
