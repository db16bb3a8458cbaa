package session

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// SpellCast is one observed spell-cast record. The buffer is observational
// only; nothing reads it to drive gameplay.
type SpellCast struct {
	CasterID   string
	CasterName string
	SpellName  string
	Position   Position
	CastAt     time.Time
}

// SpellBuffer holds the most recent spell casts, bounded by count and by age.
// Appends from event handling and pruning from the sweep timer contend here,
// so all access is serialized on the mutex.
type SpellBuffer struct {
	mu       sync.Mutex
	entries  []SpellCast
	capacity int
	maxAge   time.Duration
	now      func() time.Time
}

// NewSpellBuffer creates a buffer holding at most capacity entries, each kept
// no longer than maxAge.
//
// Precondition: capacity must be >= 1; maxAge must be positive.
func NewSpellBuffer(capacity int, maxAge time.Duration) *SpellBuffer {
	return &SpellBuffer{
		entries:  make([]SpellCast, 0, capacity),
		capacity: capacity,
		maxAge:   maxAge,
		now:      time.Now,
	}
}

// Append records a spell cast, trimming the oldest entries when the buffer
// exceeds capacity.
//
// Postcondition: Len() <= capacity; entries remain in arrival order.
func (b *SpellBuffer) Append(cast SpellCast) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cast.CastAt.IsZero() {
		cast.CastAt = b.now()
	}
	b.entries = append(b.entries, cast)
	if over := len(b.entries) - b.capacity; over > 0 {
		b.entries = append(b.entries[:0], b.entries[over:]...)
	}
}

// Sweep removes every entry older than the age bound.
//
// Postcondition: Returns the number of entries removed.
func (b *SpellBuffer) Sweep() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	cutoff := b.now().Add(-b.maxAge)
	kept := b.entries[:0]
	for _, e := range b.entries {
		if e.CastAt.After(cutoff) {
			kept = append(kept, e)
		}
	}
	removed := len(b.entries) - len(kept)
	b.entries = kept
	return removed
}

// Recent returns a copy of the buffered casts in arrival order.
func (b *SpellBuffer) Recent() []SpellCast {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]SpellCast, len(b.entries))
	copy(out, b.entries)
	return out
}

// Len returns the number of buffered casts.
func (b *SpellBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Sweeper prunes a SpellBuffer by age on a fixed wall-clock interval,
// independent of event traffic. It implements the server.Service interface.
type Sweeper struct {
	buffer   *SpellBuffer
	interval time.Duration
	logger   *zap.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewSweeper creates a Sweeper over the given buffer.
//
// Precondition: buffer and logger must be non-nil; interval must be positive.
func NewSweeper(buffer *SpellBuffer, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		buffer:   buffer,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called.
//
// Postcondition: Returns nil after Stop.
func (s *Sweeper) Start() error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := s.buffer.Sweep(); removed > 0 {
				s.logger.Debug("swept spell buffer", zap.Int("removed", removed))
			}
		case <-s.stopCh:
			return nil
		}
	}
}

// Stop terminates the sweep loop. Safe to call more than once.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}
