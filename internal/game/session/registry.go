package session

import "sync"

// Registry is the authoritative in-process record of who is currently
// connected. It owns two views of the same session set, keyed by connection
// id and by player id, behind a single mutex so the views can never diverge.
// All methods are safe for concurrent use.
type Registry struct {
	mu           sync.RWMutex
	byConn       map[string]*Session // connID → session
	byPlayer     map[string]string   // playerID → connID
	startingZone string
}

// NewRegistry creates an empty Registry. Sessions registered without a zone
// start in startingZone.
//
// Precondition: startingZone must be non-empty.
func NewRegistry(startingZone string) *Registry {
	return &Registry{
		byConn:       make(map[string]*Session),
		byPlayer:     make(map[string]string),
		startingZone: startingZone,
	}
}

// Register creates or replaces the session for the given connection and points
// playerID at it. It always succeeds: an existing session for the connection
// is overwritten, and a prior connection for the same playerID is unlinked.
//
// Postcondition: Returns the connection id previously mapped to playerID when
// that mapping referred to a different, still-registered connection. The
// caller is expected to close that stale connection; its session has already
// been removed here.
func (r *Registry) Register(connID, playerID, username, house string, pos Position) (supersededConnID string, superseded bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// A rejoin from a new tab supersedes the old connection. Drop the old
	// session from both views before installing the new one so the two maps
	// never disagree.
	if prev, ok := r.byPlayer[playerID]; ok && prev != connID {
		delete(r.byConn, prev)
		supersededConnID = prev
		superseded = true
	}

	// If this connection previously carried a different player, unlink it.
	if old, ok := r.byConn[connID]; ok && old.PlayerID != playerID {
		if r.byPlayer[old.PlayerID] == connID {
			delete(r.byPlayer, old.PlayerID)
		}
	}

	r.byConn[connID] = &Session{
		PlayerID:  playerID,
		ConnID:    connID,
		Username:  username,
		House:     house,
		Position:  pos,
		Health:    DefaultMaxHealth,
		MaxHealth: DefaultMaxHealth,
		ZoneID:    r.startingZone,
	}
	r.byPlayer[playerID] = connID
	return supersededConnID, superseded
}

// UpdatePosition mutates the last reported location for the given connection.
// Unknown connections are a silent no-op.
func (r *Registry) UpdatePosition(connID string, pos Position) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sess, ok := r.byConn[connID]; ok {
		sess.Position = pos
	}
}

// ApplyDamage reduces the health snapshot of the given connection, clamped at
// zero. Unknown connections are a silent no-op.
//
// Postcondition: Returns the session's health after the deduction, and whether
// the connection was registered.
func (r *Registry) ApplyDamage(connID string, damage int) (health int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, found := r.byConn[connID]
	if !found {
		return 0, false
	}
	sess.Health -= damage
	if sess.Health < 0 {
		sess.Health = 0
	}
	return sess.Health, true
}

// Resolve returns the live connection id for the given player id.
//
// Postcondition: Returns (connID, true) when the player is connected.
func (r *Registry) Resolve(playerID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	connID, ok := r.byPlayer[playerID]
	return connID, ok
}

// Get returns a snapshot of the session registered under connID.
func (r *Registry) Get(connID string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.byConn[connID]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// Deregister removes both the connection-keyed and player-keyed entries.
// Already-absent connections are a no-op.
//
// Postcondition: Returns the departed player id when a session was removed.
func (r *Registry) Deregister(connID string) (playerID string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, found := r.byConn[connID]
	if !found {
		return "", false
	}
	delete(r.byConn, connID)
	// Only clear the player pointer if it still points here; a superseding
	// join may already have redirected it to a newer connection.
	if r.byPlayer[sess.PlayerID] == connID {
		delete(r.byPlayer, sess.PlayerID)
	}
	return sess.PlayerID, true
}

// ListOthers returns snapshots of every registered session except the one
// under excludeConnID. Used to build the roster for a newly joined client.
//
// Postcondition: The returned slice never contains excludeConnID's session.
func (r *Registry) ListOthers(excludeConnID string) []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	others := make([]Session, 0, len(r.byConn))
	for connID, sess := range r.byConn {
		if connID == excludeConnID {
			continue
		}
		others = append(others, *sess)
	}
	return others
}

// Count returns the number of registered sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}
