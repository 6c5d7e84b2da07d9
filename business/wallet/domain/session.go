package domain

import "github.com/ethereum/go-ethereum/common"

// Session is the acting account and the chain it is on.
type Session struct {
	Account   common.Address
	ChainID   uint64
	Connected bool
}

// ChangeKind classifies a session change.
type ChangeKind string

const (
	ChangeConnected      ChangeKind = "connected"
	ChangeDisconnected   ChangeKind = "disconnected"
	ChangeAccountChanged ChangeKind = "account_changed"
	ChangeChainChanged   ChangeKind = "chain_changed"
)

// SessionChange is emitted whenever the session differs from the previous one.
type SessionChange struct {
	Kind     ChangeKind
	Previous Session
	Current  Session
}

// Diff returns the change from prev to next, or false when nothing changed.
// An account and chain switch at once reports the account change.
func Diff(prev, next Session) (SessionChange, bool) {
	change := SessionChange{Previous: prev, Current: next}
	switch {
	case prev == next:
		return SessionChange{}, false
	case !prev.Connected && next.Connected:
		change.Kind = ChangeConnected
	case prev.Connected && !next.Connected:
		change.Kind = ChangeDisconnected
	case prev.Account != next.Account:
		change.Kind = ChangeAccountChanged
	case prev.ChainID != next.ChainID:
		change.Kind = ChangeChainChanged
	default:
		return SessionChange{}, false
	}
	return change, true
}

// Invalidates reports whether in-flight work bound to the previous session
// must be dropped.
func (c SessionChange) Invalidates() bool {
	return c.Kind != ChangeConnected
}
