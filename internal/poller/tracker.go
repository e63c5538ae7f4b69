package poller

import (
	"context"
	"errors"
	"sync"
)

// ErrAlreadyActive means a poll loop is already running for the conversation.
var ErrAlreadyActive = errors.New("a generation is already in progress for this conversation")

// Tracker enforces at most one live poll loop per conversation and lets the
// cancel endpoint reach into a running loop.
type Tracker struct {
	mu     sync.Mutex
	active map[string]context.CancelFunc
}

func NewTracker() *Tracker {
	return &Tracker{active: make(map[string]context.CancelFunc)}
}

// Begin registers a poll loop for the conversation and returns a derived
// context that Cancel aborts. Fails with ErrAlreadyActive when a loop is
// already registered.
func (t *Tracker) Begin(parent context.Context, conversationID string) (context.Context, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.active[conversationID]; exists {
		return nil, ErrAlreadyActive
	}

	ctx, cancel := context.WithCancel(parent)
	t.active[conversationID] = cancel
	return ctx, nil
}

// End releases the conversation's slot. Safe to call whether or not the loop
// was canceled.
func (t *Tracker) End(conversationID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if cancel, exists := t.active[conversationID]; exists {
		cancel()
		delete(t.active, conversationID)
	}
}

// Cancel aborts the conversation's running loop, if any. Reports whether a
// loop was found.
func (t *Tracker) Cancel(conversationID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	cancel, exists := t.active[conversationID]
	if exists {
		cancel()
		delete(t.active, conversationID)
	}
	return exists
}

// IsActive reports whether a poll loop is registered for the conversation.
func (t *Tracker) IsActive(conversationID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, exists := t.active[conversationID]
	return exists
}
