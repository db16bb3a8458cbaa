package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spellbound-game/spellbound/internal/game/session"
)

// Emitter is the fan-out surface the relay drives. The Hub implements it; a
// recording fake stands in for tests.
type Emitter interface {
	// Send delivers a message to a single connection. Unknown connections
	// are a silent no-op.
	Send(connID string, msg Message)
	// Broadcast delivers a message to every connection, sender included.
	Broadcast(msg Message)
	// BroadcastExcept delivers a message to every connection but one.
	BroadcastExcept(exceptConnID string, msg Message)
	// CloseConn tears down a connection, e.g. one superseded by a rejoin.
	CloseConn(connID string)
}

// connState is the explicit per-connection lifecycle. A connection starts
// unjoined and becomes joined after a well-formed join event; only joined
// connections may affect the world.
type connState int

const (
	stateUnjoined connState = iota
	stateJoined
)

// Relay consumes inbound real-time events, updates the session registry, and
// fans each event out per its rule. Every failure mode here degrades to "the
// event had no effect": this is a fire-and-forget presence channel, so no
// error is ever surfaced to the sender.
type Relay struct {
	registry *session.Registry
	spells   *session.SpellBuffer
	emitter  Emitter
	logger   *zap.Logger
	now      func() time.Time

	mu     sync.Mutex
	states map[string]connState
}

// NewRelay creates a Relay over the given registry, spell buffer, and emitter.
//
// Precondition: all arguments must be non-nil.
func NewRelay(registry *session.Registry, spells *session.SpellBuffer, emitter Emitter, logger *zap.Logger) *Relay {
	return &Relay{
		registry: registry,
		spells:   spells,
		emitter:  emitter,
		logger:   logger,
		now:      time.Now,
		states:   make(map[string]connState),
	}
}

// HandleConnect registers a fresh, unjoined connection.
func (r *Relay) HandleConnect(connID string) {
	r.mu.Lock()
	r.states[connID] = stateUnjoined
	r.mu.Unlock()
	r.logger.Debug("connection opened", zap.String("conn_id", connID))
}

// HandleMessage demultiplexes one inbound event. Malformed envelopes and
// events from unjoined connections are dropped silently.
func (r *Relay) HandleMessage(connID string, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		r.logger.Debug("dropping malformed envelope",
			zap.String("conn_id", connID), zap.Error(err))
		return
	}

	switch env.Type {
	case EventJoin:
		r.handleJoin(connID, env.Payload)
	case EventMove:
		r.handleMove(connID, env.Payload)
	case EventSpellCast:
		r.handleSpellCast(connID, env.Payload)
	case EventDamageDealt:
		r.handleDamageDealt(connID, env.Payload)
	case EventPlayerDeath:
		r.handlePlayerDeath(connID, env.Payload)
	case EventChat:
		r.handleChat(connID, env.Payload)
	default:
		r.logger.Debug("dropping unknown event",
			zap.String("conn_id", connID), zap.String("type", env.Type))
	}
}

// HandleDisconnect deregisters the session and announces the departure to the
// remaining connections. Unjoined or already-removed connections produce no
// broadcast.
func (r *Relay) HandleDisconnect(connID string) {
	r.mu.Lock()
	delete(r.states, connID)
	r.mu.Unlock()

	playerID, ok := r.registry.Deregister(connID)
	if !ok {
		return
	}

	// player-left carries the bare player id, not an object.
	r.emitter.BroadcastExcept(connID, Message{Type: EventPlayerLeft, Payload: playerID})
	r.logger.Info("player left",
		zap.String("conn_id", connID), zap.String("player_id", playerID))
}

func (r *Relay) handleJoin(connID string, raw json.RawMessage) {
	var p JoinPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.PlayerID == "" || p.Username == "" {
		r.logger.Debug("dropping malformed join", zap.String("conn_id", connID))
		return
	}

	var pos session.Position
	if p.Position != nil {
		pos = *p.Position
	}

	stale, superseded := r.registry.Register(connID, p.PlayerID, p.Username, p.House, pos)
	if superseded {
		// A rejoin from another tab evicts the old connection rather than
		// leaving it to receive events for a player it no longer owns.
		r.mu.Lock()
		delete(r.states, stale)
		r.mu.Unlock()
		r.emitter.CloseConn(stale)
		r.logger.Info("evicted superseded connection",
			zap.String("player_id", p.PlayerID),
			zap.String("stale_conn_id", stale),
			zap.String("conn_id", connID))
	}

	r.mu.Lock()
	r.states[connID] = stateJoined
	r.mu.Unlock()

	others := r.registry.ListOthers(connID)
	roster := RosterPayload{Players: make([]RosterPlayer, 0, len(others))}
	for _, o := range others {
		roster.Players = append(roster.Players, RosterPlayer{
			PlayerID: o.PlayerID,
			Username: o.Username,
			House:    o.House,
			Position: o.Position,
		})
	}
	r.emitter.Send(connID, Message{Type: EventRoster, Payload: roster})

	r.emitter.BroadcastExcept(connID, Message{Type: EventPlayerJoined, Payload: RosterPlayer{
		PlayerID: p.PlayerID,
		Username: p.Username,
		House:    p.House,
		Position: pos,
	}})

	r.logger.Info("player joined",
		zap.String("conn_id", connID),
		zap.String("player_id", p.PlayerID),
		zap.String("username", p.Username),
		zap.String("house", p.House))
}

func (r *Relay) handleMove(connID string, raw json.RawMessage) {
	if !r.joined(connID) {
		return
	}
	var p MovePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}

	r.registry.UpdatePosition(connID, p.Position)
	sess, ok := r.registry.Get(connID)
	if !ok {
		return
	}

	r.emitter.BroadcastExcept(connID, Message{Type: EventPlayerMoved, Payload: PlayerMovedPayload{
		PlayerID:  sess.PlayerID,
		Username:  sess.Username,
		House:     sess.House,
		Position:  sess.Position,
		Health:    sess.Health,
		MaxHealth: sess.MaxHealth,
	}})
}

func (r *Relay) handleSpellCast(connID string, raw json.RawMessage) {
	if !r.joined(connID) {
		return
	}
	var p SpellCastPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.SpellName == "" {
		return
	}
	sess, ok := r.registry.Get(connID)
	if !ok {
		return
	}

	now := r.now()
	r.spells.Append(session.SpellCast{
		CasterID:   sess.PlayerID,
		CasterName: sess.Username,
		SpellName:  p.SpellName,
		Position:   p.Position,
		CastAt:     now,
	})

	r.emitter.BroadcastExcept(connID, Message{Type: EventSpellCasted, Payload: SpellCastedPayload{
		CasterID:   sess.PlayerID,
		CasterName: sess.Username,
		SpellName:  p.SpellName,
		Position:   p.Position,
		Direction:  p.Direction,
		Color:      p.Color,
		Damage:     p.Damage,
		Speed:      p.Speed,
		Timestamp:  now.UnixMilli(),
	}})
}

func (r *Relay) handleDamageDealt(connID string, raw json.RawMessage) {
	if !r.joined(connID) {
		return
	}
	var p DamageDealtPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.TargetID == "" || p.Damage < 0 {
		return
	}
	sess, ok := r.registry.Get(connID)
	if !ok {
		return
	}

	targetConn, ok := r.registry.Resolve(p.TargetID)
	if !ok {
		// Target offline: dropped with no error surfaced to the sender.
		r.logger.Debug("damage target not connected",
			zap.String("target_id", p.TargetID), zap.String("attacker_id", sess.PlayerID))
		return
	}

	r.registry.ApplyDamage(targetConn, p.Damage)
	r.emitter.Send(targetConn, Message{Type: EventDamageReceived, Payload: DamageReceivedPayload{
		AttackerID: sess.PlayerID,
		Damage:     p.Damage,
		Source:     p.Source,
	}})
}

func (r *Relay) handlePlayerDeath(connID string, raw json.RawMessage) {
	if !r.joined(connID) {
		return
	}
	var p PlayerDeathPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	sess, ok := r.registry.Get(connID)
	if !ok {
		return
	}

	r.emitter.BroadcastExcept(connID, Message{Type: EventPlayerDied, Payload: PlayerDiedPayload{
		PlayerID: sess.PlayerID,
		KillerID: p.KillerID,
	}})
}

func (r *Relay) handleChat(connID string, raw json.RawMessage) {
	if !r.joined(connID) {
		return
	}
	var p ChatPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.Message == "" {
		return
	}
	sess, ok := r.registry.Get(connID)
	if !ok {
		return
	}

	// Chat goes to everyone, sender included.
	r.emitter.Broadcast(Message{Type: EventChat, Payload: ChatBroadcastPayload{
		Username:  sess.Username,
		House:     sess.House,
		Message:   p.Message,
		Timestamp: r.now().UnixMilli(),
	}})
}

func (r *Relay) joined(connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states[connID] == stateJoined
}
