package domain

import (
	"encoding/json"
	"time"

	"github.com/fd1az/transfer-dashboard/internal/apperror"
)

// Snapshot is the lifecycle as published to reporters and stream clients.
type Snapshot struct {
	TransferID    string
	ChainID       uint64
	State         State
	TxStatus      TxStatus
	IncludedBlock uint64
	ExplorerURL   string
	At            time.Time
}

type estimateView struct {
	Tier     string `json:"tier"`
	WaitMs   int64  `json:"waitMs"`
	CostWei  string `json:"costWei"`
	GasUnits uint64 `json:"gasUnits"`
}

type snapshotView struct {
	TransferID            string        `json:"transferId,omitempty"`
	ChainID               uint64        `json:"chainId"`
	Phase                 Phase         `json:"phase"`
	Hash                  string        `json:"hash,omitempty"`
	Amount                string        `json:"amount,omitempty"`
	Recipient             string        `json:"recipient,omitempty"`
	TokenSymbol           string        `json:"tokenSymbol,omitempty"`
	IsNativeToken         bool          `json:"isNativeToken,omitempty"`
	SubmittedAt           int64         `json:"submittedAt,omitempty"`
	Estimate              *estimateView `json:"estimate,omitempty"`
	TxStatus              TxStatus      `json:"txStatus,omitempty"`
	IncludedBlock         uint64        `json:"includedBlock,omitempty"`
	BlockNumber           uint64        `json:"blockNumber,omitempty"`
	ConfirmedAt           int64         `json:"confirmedAt,omitempty"`
	CompletionTimeSeconds *int64        `json:"completionTimeSeconds,omitempty"`
	ExplorerURL           string        `json:"explorerUrl,omitempty"`
	At                    int64         `json:"at"`
}

// MarshalJSON flattens the state variant into one object keyed by phase.
// Times are unix milliseconds.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	state := s.State
	if state == nil {
		state = Idle{}
	}

	v := snapshotView{
		TransferID:    s.TransferID,
		ChainID:       s.ChainID,
		Phase:         state.Phase(),
		TxStatus:      s.TxStatus,
		IncludedBlock: s.IncludedBlock,
		ExplorerURL:   s.ExplorerURL,
		At:            s.At.UnixMilli(),
	}

	switch st := state.(type) {
	case Pending:
		v.fill(st.Submission)
		if st.Estimate != nil {
			v.Estimate = &estimateView{
				Tier:     string(st.Estimate.Tier),
				WaitMs:   st.Estimate.Wait.Milliseconds(),
				CostWei:  st.Estimate.Cost.String(),
				GasUnits: st.Estimate.GasUnits,
			}
		}
	case Confirmed:
		v.fill(st.Submission)
		v.BlockNumber = st.BlockNumber
		v.ConfirmedAt = st.ConfirmedAt.UnixMilli()
		secs := st.CompletionTimeSeconds
		v.CompletionTimeSeconds = &secs
	}

	return json.Marshal(v)
}

func (v *snapshotView) fill(sub Submission) {
	v.Hash = sub.Hash.Hex()
	v.Amount = sub.Amount
	v.Recipient = sub.Recipient.Hex()
	v.TokenSymbol = sub.TokenSymbol
	v.IsNativeToken = sub.IsNativeToken
	v.SubmittedAt = sub.SubmittedAt.UnixMilli()
}

// NotificationKind is the severity of a user-facing notification.
type NotificationKind string

const (
	NotifySuccess NotificationKind = "success"
	NotifyError   NotificationKind = "error"
	NotifyInfo    NotificationKind = "info"
)

// Notification is a one-off outcome shown to the user.
type Notification struct {
	Kind       NotificationKind `json:"kind"`
	Code       apperror.Code    `json:"code,omitempty"`
	Message    string           `json:"message"`
	TransferID string           `json:"transferId,omitempty"`
	Hash       string           `json:"hash,omitempty"`
	At         time.Time        `json:"at"`
	Err        error            `json:"-"`
}

// FailureNotification builds the error notification for a classified failure.
func FailureNotification(transferID, hash string, err error, at time.Time) Notification {
	code := ClassifyFailure(err)
	return Notification{
		Kind:       NotifyError,
		Code:       code,
		Message:    apperror.Message(code),
		TransferID: transferID,
		Hash:       hash,
		At:         at,
		Err:        err,
	}
}
