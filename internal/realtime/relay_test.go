package realtime

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spellbound-game/spellbound/internal/game/session"
)

type exceptMessage struct {
	Except string
	Msg    Message
}

// fakeEmitter records every emission instead of touching sockets.
type fakeEmitter struct {
	sends      map[string][]Message
	broadcasts []Message
	excepts    []exceptMessage
	closed     []string
}

func newFakeEmitter() *fakeEmitter {
	return &fakeEmitter{sends: make(map[string][]Message)}
}

func (f *fakeEmitter) Send(connID string, msg Message) {
	f.sends[connID] = append(f.sends[connID], msg)
}

func (f *fakeEmitter) Broadcast(msg Message) {
	f.broadcasts = append(f.broadcasts, msg)
}

func (f *fakeEmitter) BroadcastExcept(exceptConnID string, msg Message) {
	f.excepts = append(f.excepts, exceptMessage{Except: exceptConnID, Msg: msg})
}

func (f *fakeEmitter) CloseConn(connID string) {
	f.closed = append(f.closed, connID)
}

func (f *fakeEmitter) reset() {
	f.sends = make(map[string][]Message)
	f.broadcasts = nil
	f.excepts = nil
	f.closed = nil
}

func newTestRelay(t *testing.T) (*Relay, *fakeEmitter, *session.Registry) {
	t.Helper()
	registry := session.NewRegistry("hogsmeade")
	spells := session.NewSpellBuffer(100, time.Minute)
	emitter := newFakeEmitter()
	relay := NewRelay(registry, spells, emitter, zap.NewNop())
	return relay, emitter, registry
}

func event(t *testing.T, eventType string, payload any) []byte {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	env, err := json.Marshal(Envelope{Type: eventType, Payload: raw})
	require.NoError(t, err)
	return env
}

func join(t *testing.T, r *Relay, connID, playerID, username, house string, pos session.Position) {
	t.Helper()
	r.HandleConnect(connID)
	r.HandleMessage(connID, event(t, EventJoin, JoinPayload{
		PlayerID: playerID,
		Username: username,
		House:    house,
		Position: &pos,
	}))
}

func TestRelay_JoinSendsRosterAndAnnounces(t *testing.T) {
	relay, emitter, _ := newTestRelay(t)

	join(t, relay, "cA", "p1", "Harry", "Gryffindor", session.Position{})

	// First joiner gets an empty roster and everyone else (nobody) is told.
	require.Len(t, emitter.sends["cA"], 1)
	assert.Equal(t, EventRoster, emitter.sends["cA"][0].Type)
	assert.Empty(t, emitter.sends["cA"][0].Payload.(RosterPayload).Players)

	emitter.reset()
	join(t, relay, "cB", "p2", "Draco", "Slytherin", session.Position{X: 3, Y: 4})

	// B's roster contains exactly A's public fields.
	require.Len(t, emitter.sends["cB"], 1)
	roster := emitter.sends["cB"][0].Payload.(RosterPayload)
	require.Len(t, roster.Players, 1)
	assert.Equal(t, RosterPlayer{
		PlayerID: "p1",
		Username: "Harry",
		House:    "Gryffindor",
	}, roster.Players[0])

	// B's arrival is announced to everyone but B.
	require.Len(t, emitter.excepts, 1)
	assert.Equal(t, "cB", emitter.excepts[0].Except)
	assert.Equal(t, EventPlayerJoined, emitter.excepts[0].Msg.Type)
	assert.Equal(t, RosterPlayer{
		PlayerID: "p2",
		Username: "Draco",
		House:    "Slytherin",
		Position: session.Position{X: 3, Y: 4},
	}, emitter.excepts[0].Msg.Payload)
}

func TestRelay_JoinMissingFieldsDropped(t *testing.T) {
	relay, emitter, registry := newTestRelay(t)
	relay.HandleConnect("cA")

	relay.HandleMessage("cA", event(t, EventJoin, JoinPayload{Username: "NoID"}))
	relay.HandleMessage("cA", event(t, EventJoin, JoinPayload{PlayerID: "p1"}))

	assert.Empty(t, emitter.sends)
	assert.Equal(t, 0, registry.Count())
}

func TestRelay_MoveBeforeJoinIgnored(t *testing.T) {
	relay, emitter, _ := newTestRelay(t)
	relay.HandleConnect("cA")

	relay.HandleMessage("cA", event(t, EventMove, MovePayload{Position: session.Position{X: 5, Y: 5}}))

	assert.Empty(t, emitter.broadcasts)
	assert.Empty(t, emitter.excepts)
	assert.Empty(t, emitter.sends)
}

func TestRelay_MoveBroadcastsWithHealthSnapshot(t *testing.T) {
	relay, emitter, registry := newTestRelay(t)
	join(t, relay, "cA", "p1", "Harry", "Gryffindor", session.Position{})
	emitter.reset()

	relay.HandleMessage("cA", event(t, EventMove, MovePayload{Position: session.Position{X: 5, Y: 5}}))

	require.Len(t, emitter.excepts, 1)
	assert.Equal(t, "cA", emitter.excepts[0].Except)
	assert.Equal(t, EventPlayerMoved, emitter.excepts[0].Msg.Type)
	moved := emitter.excepts[0].Msg.Payload.(PlayerMovedPayload)
	assert.Equal(t, "p1", moved.PlayerID)
	assert.Equal(t, session.Position{X: 5, Y: 5}, moved.Position)
	assert.Equal(t, session.DefaultMaxHealth, moved.Health)
	assert.Equal(t, session.DefaultMaxHealth, moved.MaxHealth)

	sess, ok := registry.Get("cA")
	require.True(t, ok)
	assert.Equal(t, session.Position{X: 5, Y: 5}, sess.Position)
}

func TestRelay_SpellCastBuffersAndBroadcasts(t *testing.T) {
	relay, emitter, _ := newTestRelay(t)
	fixed := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	relay.now = func() time.Time { return fixed }

	join(t, relay, "cA", "p1", "Harry", "Gryffindor", session.Position{})
	emitter.reset()

	relay.HandleMessage("cA", event(t, EventSpellCast, SpellCastPayload{
		SpellName: "stupefy",
		Position:  session.Position{X: 1, Y: 2},
		Direction: Direction{X: 0, Y: 1},
		Color:     "#ff0000",
		Damage:    15,
		Speed:     8.5,
	}))

	require.Len(t, emitter.excepts, 1)
	assert.Equal(t, "cA", emitter.excepts[0].Except)
	casted := emitter.excepts[0].Msg.Payload.(SpellCastedPayload)
	assert.Equal(t, "p1", casted.CasterID)
	assert.Equal(t, "Harry", casted.CasterName)
	assert.Equal(t, "stupefy", casted.SpellName)
	assert.Equal(t, fixed.UnixMilli(), casted.Timestamp)

	recent := relay.spells.Recent()
	require.Len(t, recent, 1)
	assert.Equal(t, "stupefy", recent[0].SpellName)
	assert.Equal(t, fixed, recent[0].CastAt)
}

func TestRelay_DamageDealtUnicast(t *testing.T) {
	relay, emitter, registry := newTestRelay(t)
	join(t, relay, "cA", "p1", "Harry", "Gryffindor", session.Position{})
	join(t, relay, "cB", "p2", "Draco", "Slytherin", session.Position{})
	emitter.reset()

	relay.HandleMessage("cA", event(t, EventDamageDealt, DamageDealtPayload{
		TargetID: "p2",
		Damage:   25,
		Source:   "stupefy",
	}))

	// Exactly one delivery, only to the victim's connection.
	require.Len(t, emitter.sends, 1)
	require.Len(t, emitter.sends["cB"], 1)
	assert.Empty(t, emitter.broadcasts)
	assert.Empty(t, emitter.excepts)
	assert.Equal(t, DamageReceivedPayload{
		AttackerID: "p1",
		Damage:     25,
		Source:     "stupefy",
	}, emitter.sends["cB"][0].Payload)

	sess, ok := registry.Get("cB")
	require.True(t, ok)
	assert.Equal(t, session.DefaultMaxHealth-25, sess.Health)
}

func TestRelay_DamageDealtTargetOffline(t *testing.T) {
	relay, emitter, _ := newTestRelay(t)
	join(t, relay, "cA", "p1", "Harry", "Gryffindor", session.Position{})
	join(t, relay, "cB", "p2", "Draco", "Slytherin", session.Position{})
	relay.HandleDisconnect("cB")
	emitter.reset()

	relay.HandleMessage("cA", event(t, EventDamageDealt, DamageDealtPayload{
		TargetID: "p2",
		Damage:   25,
		Source:   "stupefy",
	}))

	assert.Empty(t, emitter.sends, "damage to an offline target is dropped without error")
	assert.Empty(t, emitter.broadcasts)
	assert.Empty(t, emitter.excepts)
}

func TestRelay_PlayerDeathBroadcast(t *testing.T) {
	relay, emitter, _ := newTestRelay(t)
	join(t, relay, "cA", "p1", "Harry", "Gryffindor", session.Position{})
	emitter.reset()

	relay.HandleMessage("cA", event(t, EventPlayerDeath, PlayerDeathPayload{KillerID: "p2"}))

	require.Len(t, emitter.excepts, 1)
	assert.Equal(t, "cA", emitter.excepts[0].Except)
	assert.Equal(t, PlayerDiedPayload{PlayerID: "p1", KillerID: "p2"}, emitter.excepts[0].Msg.Payload)
}

func TestRelay_ChatBroadcastsToEveryone(t *testing.T) {
	relay, emitter, _ := newTestRelay(t)
	fixed := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	relay.now = func() time.Time { return fixed }
	join(t, relay, "cA", "p1", "Harry", "Gryffindor", session.Position{})
	emitter.reset()

	relay.HandleMessage("cA", event(t, EventChat, ChatPayload{Message: "expecto patronum!"}))

	// Chat includes the sender, so it is a full broadcast.
	require.Len(t, emitter.broadcasts, 1)
	assert.Empty(t, emitter.excepts)
	assert.Equal(t, ChatBroadcastPayload{
		Username:  "Harry",
		House:     "Gryffindor",
		Message:   "expecto patronum!",
		Timestamp: fixed.UnixMilli(),
	}, emitter.broadcasts[0].Payload)
}

func TestRelay_EmptyChatDropped(t *testing.T) {
	relay, emitter, _ := newTestRelay(t)
	join(t, relay, "cA", "p1", "Harry", "Gryffindor", session.Position{})
	emitter.reset()

	relay.HandleMessage("cA", event(t, EventChat, ChatPayload{}))
	assert.Empty(t, emitter.broadcasts)
}

func TestRelay_DisconnectAnnouncesDeparture(t *testing.T) {
	relay, emitter, registry := newTestRelay(t)
	join(t, relay, "cA", "p1", "Harry", "Gryffindor", session.Position{})
	join(t, relay, "cB", "p2", "Draco", "Slytherin", session.Position{})
	emitter.reset()

	relay.HandleDisconnect("cA")

	require.Len(t, emitter.excepts, 1)
	assert.Equal(t, "cA", emitter.excepts[0].Except)
	assert.Equal(t, EventPlayerLeft, emitter.excepts[0].Msg.Type)
	// The payload is the bare player id.
	assert.Equal(t, "p1", emitter.excepts[0].Msg.Payload)

	_, ok := registry.Resolve("p1")
	assert.False(t, ok)

	// A second disconnect for the same connection announces nothing.
	emitter.reset()
	relay.HandleDisconnect("cA")
	assert.Empty(t, emitter.excepts)
}

func TestRelay_UnjoinedDisconnectSilent(t *testing.T) {
	relay, emitter, _ := newTestRelay(t)
	relay.HandleConnect("cA")
	relay.HandleDisconnect("cA")
	assert.Empty(t, emitter.excepts)
	assert.Empty(t, emitter.broadcasts)
}

func TestRelay_RejoinEvictsStaleConnection(t *testing.T) {
	relay, emitter, registry := newTestRelay(t)
	join(t, relay, "cOld", "p1", "Harry", "Gryffindor", session.Position{})
	emitter.reset()

	join(t, relay, "cNew", "p1", "Harry", "Gryffindor", session.Position{})

	assert.Equal(t, []string{"cOld"}, emitter.closed)
	connID, ok := registry.Resolve("p1")
	require.True(t, ok)
	assert.Equal(t, "cNew", connID)
	assert.Equal(t, 1, registry.Count())

	// When the evicted socket finally reports its disconnect, nothing is
	// announced: the player never left.
	emitter.reset()
	relay.HandleDisconnect("cOld")
	assert.Empty(t, emitter.excepts)
}

func TestRelay_MalformedAndUnknownEventsDropped(t *testing.T) {
	relay, emitter, _ := newTestRelay(t)
	join(t, relay, "cA", "p1", "Harry", "Gryffindor", session.Position{})
	emitter.reset()

	relay.HandleMessage("cA", []byte("{not json"))
	relay.HandleMessage("cA", event(t, "teleport", struct{}{}))
	relay.HandleMessage("cA", []byte(`{"type":"move","payload":"not-an-object"}`))

	assert.Empty(t, emitter.sends)
	assert.Empty(t, emitter.broadcasts)
	assert.Empty(t, emitter.excepts)
}

func TestRelay_ManyJoinersRosterGrows(t *testing.T) {
	relay, emitter, _ := newTestRelay(t)
	for i := 0; i < 5; i++ {
		connID := fmt.Sprintf("c%d", i)
		join(t, relay, connID, fmt.Sprintf("p%d", i), fmt.Sprintf("u%d", i), "Hufflepuff", session.Position{})
		roster := emitter.sends[connID][0].Payload.(RosterPayload)
		assert.Len(t, roster.Players, i)
	}
}
