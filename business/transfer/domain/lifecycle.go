// Package domain contains the core domain types for the transfer context.
package domain

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	gasDomain "github.com/fd1az/transfer-dashboard/business/gas/domain"
	"github.com/fd1az/transfer-dashboard/internal/apperror"
)

// Phase names a lifecycle variant.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseSigning   Phase = "signing"
	PhasePending   Phase = "pending"
	PhaseConfirmed Phase = "confirmed"
)

// State is one of Idle, Signing, Pending or Confirmed.
type State interface {
	Phase() Phase
	isState()
}

// Idle means no transfer is in flight.
type Idle struct{}

// Signing means a submission was requested and no hash exists yet.
type Signing struct{}

// Submission is the payload fixed when a transaction hash is first known.
type Submission struct {
	Hash          common.Hash
	SubmittedAt   time.Time
	Amount        string
	Recipient     common.Address
	TokenSymbol   string
	IsNativeToken bool
}

// Pending tracks a submitted transaction awaiting its receipt.
type Pending struct {
	Submission
	// Estimate is nil until the estimator finds the transaction.
	Estimate *gasDomain.TransactionEstimate
}

// Confirmed is a transfer whose receipt succeeded at the required depth.
type Confirmed struct {
	Submission
	BlockNumber           uint64
	ConfirmedAt           time.Time
	CompletionTimeSeconds int64
}

func (Idle) Phase() Phase      { return PhaseIdle }
func (Signing) Phase() Phase   { return PhaseSigning }
func (Pending) Phase() Phase   { return PhasePending }
func (Confirmed) Phase() Phase { return PhaseConfirmed }

func (Idle) isState()      {}
func (Signing) isState()   {}
func (Pending) isState()   {}
func (Confirmed) isState() {}

// ActionKind names a lifecycle action.
type ActionKind string

const (
	ActionStartSigning       ActionKind = "START_SIGNING"
	ActionSubmitTransaction  ActionKind = "SUBMIT_TRANSACTION"
	ActionUpdateEstimate     ActionKind = "UPDATE_ESTIMATE"
	ActionConfirmTransaction ActionKind = "CONFIRM_TRANSACTION"
	ActionReset              ActionKind = "RESET"
)

// Action is a request to move the lifecycle.
type Action interface {
	Kind() ActionKind
}

type StartSigning struct{}

type SubmitTransaction struct {
	Submission
}

type UpdateEstimate struct {
	Estimate *gasDomain.TransactionEstimate
}

type ConfirmTransaction struct {
	BlockNumber uint64
	ConfirmedAt time.Time
}

type Reset struct{}

func (StartSigning) Kind() ActionKind       { return ActionStartSigning }
func (SubmitTransaction) Kind() ActionKind  { return ActionSubmitTransaction }
func (UpdateEstimate) Kind() ActionKind     { return ActionUpdateEstimate }
func (ConfirmTransaction) Kind() ActionKind { return ActionConfirmTransaction }
func (Reset) Kind() ActionKind              { return ActionReset }

// Transition applies a to s. An action the current phase does not accept
// leaves the state untouched and returns an INVALID_TRANSITION error; callers
// log it and carry on.
func Transition(s State, a Action) (State, error) {
	if s == nil {
		s = Idle{}
	}

	switch act := a.(type) {
	case StartSigning:
		if _, ok := s.(Idle); ok {
			return Signing{}, nil
		}

	case SubmitTransaction:
		if _, ok := s.(Signing); ok {
			return Pending{Submission: act.Submission}, nil
		}

	case UpdateEstimate:
		if p, ok := s.(Pending); ok {
			p.Estimate = act.Estimate
			return p, nil
		}

	case ConfirmTransaction:
		if p, ok := s.(Pending); ok {
			return Confirmed{
				Submission:            p.Submission,
				BlockNumber:           act.BlockNumber,
				ConfirmedAt:           act.ConfirmedAt,
				CompletionTimeSeconds: CompletionSeconds(p.SubmittedAt, act.ConfirmedAt),
			}, nil
		}

	case Reset:
		return Idle{}, nil

	case nil:
		return s, invalidTransition("<nil>", s.Phase())

	default:
		return s, invalidTransition(string(a.Kind()), s.Phase())
	}

	return s, invalidTransition(string(a.Kind()), s.Phase())
}

// CompletionSeconds is floor((confirmedAt - submittedAt) / 1s).
func CompletionSeconds(submittedAt, confirmedAt time.Time) int64 {
	d := confirmedAt.Sub(submittedAt)
	secs := int64(d / time.Second)
	if d < 0 && d%time.Second != 0 {
		secs--
	}
	return secs
}

func invalidTransition(action string, from Phase) error {
	return apperror.New(apperror.CodeInvalidTransition,
		apperror.WithMessage(fmt.Sprintf("invalid transition: cannot %s from %s", action, from)))
}

// HashOf returns the transaction hash carried by s, if any.
func HashOf(s State) (common.Hash, bool) {
	switch st := s.(type) {
	case Pending:
		return st.Hash, true
	case Confirmed:
		return st.Hash, true
	}
	return common.Hash{}, false
}
