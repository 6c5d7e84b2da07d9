package ui

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	gasDomain "github.com/fd1az/transfer-dashboard/business/gas/domain"
	transferApp "github.com/fd1az/transfer-dashboard/business/transfer/app"
	walletDomain "github.com/fd1az/transfer-dashboard/business/wallet/domain"
)

// Message types for TUI updates. Lifecycle snapshots and notifications
// arrive as transfer domain.Snapshot and domain.Notification values.

// FeeSnapshotMsg is sent when fee suggestions refresh.
type FeeSnapshotMsg struct {
	Snapshot gasDomain.FeeTierSnapshot
}

// BlockMsg is sent when a new head is seen.
type BlockMsg struct {
	Number    uint64
	Timestamp time.Time
}

// ConnectionStatusMsg is sent when the node connection changes.
type ConnectionStatusMsg struct {
	Name      string
	Connected bool
}

// SessionMsg is sent when the wallet session changes.
type SessionMsg struct {
	Session walletDomain.Session
}

// PortfolioMsg carries a loaded portfolio.
type PortfolioMsg struct {
	Portfolio walletDomain.Portfolio
	Err       error
}

// InputMsg carries the form state after a requirement check.
type InputMsg struct {
	State transferApp.InputState
}

// FillMsg is the outcome of a percentage fill.
type FillMsg struct {
	Amount string
	Err    error
}

// SubmittedMsg is the outcome of a submission.
type SubmittedMsg struct {
	Hash common.Hash
	Err  error
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// LogMsg is sent to display a log message in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}

// TickMsg drives the elapsed timer.
type TickMsg struct {
	At time.Time
}
