package server

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Heartbeat runs a health check on a fixed wall-clock interval until stopped.
// Failures are logged and the loop keeps going. It implements the Service
// interface.
type Heartbeat struct {
	name     string
	interval time.Duration
	check    func() error
	logger   *zap.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewHeartbeat creates a Heartbeat over the given check function.
//
// Precondition: check and logger must be non-nil; interval must be positive.
func NewHeartbeat(name string, interval time.Duration, check func() error, logger *zap.Logger) *Heartbeat {
	return &Heartbeat{
		name:     name,
		interval: interval,
		check:    check,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the check loop until Stop is called.
//
// Postcondition: Returns nil after Stop; no check runs after Start returns.
func (h *Heartbeat) Start() error {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := h.check(); err != nil {
				h.logger.Warn("health check failed",
					zap.String("target", h.name), zap.Error(err))
			}
		case <-h.stopCh:
			return nil
		}
	}
}

// Stop terminates the check loop. Safe to call more than once.
func (h *Heartbeat) Stop() {
	h.stopOnce.Do(func() { close(h.stopCh) })
}
