package app

import (
	"context"
	"sync"

	"github.com/fd1az/transfer-dashboard/business/wallet/domain"
	"github.com/fd1az/transfer-dashboard/internal/logger"
)

// SessionListener receives session changes in the order they happened.
type SessionListener func(ctx context.Context, change domain.SessionChange)

// SessionTracker holds the current wallet session and publishes every
// connect, disconnect, account switch and chain switch.
type SessionTracker struct {
	logger logger.LoggerInterface

	mu        sync.Mutex
	current   domain.Session
	listeners []SessionListener

	// pubMu keeps deliveries ordered when updates race.
	pubMu sync.Mutex
}

// NewSessionTracker starts disconnected.
func NewSessionTracker(log logger.LoggerInterface) *SessionTracker {
	return &SessionTracker{logger: log}
}

// OnChange registers a listener.
func (t *SessionTracker) OnChange(fn SessionListener) {
	t.mu.Lock()
	t.listeners = append(t.listeners, fn)
	t.mu.Unlock()
}

// Current returns the active session.
func (t *SessionTracker) Current() domain.Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Update replaces the session and notifies listeners when it changed.
func (t *SessionTracker) Update(ctx context.Context, next domain.Session) (domain.SessionChange, bool) {
	if !next.Connected {
		next = domain.Session{ChainID: next.ChainID}
	}

	t.mu.Lock()
	change, changed := domain.Diff(t.current, next)
	if !changed {
		t.mu.Unlock()
		return domain.SessionChange{}, false
	}
	t.current = next
	listeners := t.listeners
	t.pubMu.Lock()
	t.mu.Unlock()
	defer t.pubMu.Unlock()

	t.logger.Info(ctx, "wallet session changed",
		"kind", string(change.Kind),
		"account", next.Account.Hex(),
		"chain_id", next.ChainID)

	for _, fn := range listeners {
		fn(ctx, change)
	}
	return change, true
}

// Disconnect drops the account and keeps the chain.
func (t *SessionTracker) Disconnect(ctx context.Context) {
	t.Update(ctx, domain.Session{ChainID: t.Current().ChainID})
}
