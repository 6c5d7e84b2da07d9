package domain

import "github.com/ethereum/go-ethereum/common"

// TxStatus is what the status poller has observed for a hash.
type TxStatus string

const (
	StatusIdle     TxStatus = "idle"
	StatusPending  TxStatus = "pending"
	StatusIncluded TxStatus = "included"
)

// StatusUpdate is published when the poller's view of a hash changes.
type StatusUpdate struct {
	Hash    common.Hash
	ChainID uint64
	Status  TxStatus
	// BlockNumber is set only when Status is StatusIncluded.
	BlockNumber uint64
}
