package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/fd1az/transfer-dashboard/business/transfer/domain"
	walletDomain "github.com/fd1az/transfer-dashboard/business/wallet/domain"
	"github.com/fd1az/transfer-dashboard/internal/apperror"
	"github.com/fd1az/transfer-dashboard/internal/asset"
	"github.com/fd1az/transfer-dashboard/internal/logger"
)

// ControllerConfig holds configuration for the lifecycle controller.
type ControllerConfig struct {
	ChainID         uint64
	Confirmations   uint64
	DisplayDuration time.Duration
}

// DefaultControllerConfig waits for 2 confirmations and shows the receipt for 5s.
func DefaultControllerConfig(chainID uint64) ControllerConfig {
	return ControllerConfig{
		ChainID:         chainID,
		Confirmations:   2,
		DisplayDuration: 5 * time.Second,
	}
}

// SnapshotListener receives every published lifecycle snapshot.
type SnapshotListener func(domain.Snapshot)

// NotificationListener receives user-facing outcomes.
type NotificationListener func(domain.Notification)

// Controller owns the transfer lifecycle. At most one transfer is in flight;
// every result that arrives after a reset is dropped by generation.
type Controller struct {
	submitter Submitter
	receipts  ReceiptWaiter
	fees      FeeSource
	estimator *Estimator
	poller    *StatusPoller
	cfg       ControllerConfig
	logger    logger.LoggerInterface
	now       func() time.Time

	mu            sync.Mutex
	state         domain.State
	gen           uint64
	transferID    string
	chainID       uint64
	txStatus      domain.TxStatus
	includedBlock uint64
	cancel        context.CancelFunc
	resetTimer    *time.Timer

	// pubMu is taken before mu is released so listeners see snapshots in
	// the order the state changed.
	pubMu         sync.Mutex
	listenerMu    sync.RWMutex
	snapListeners []SnapshotListener
	noteListeners []NotificationListener
}

// NewController creates a new Controller. submitter may be nil, in which
// case Submit fails with SIGNER_UNAVAILABLE.
func NewController(
	submitter Submitter,
	receipts ReceiptWaiter,
	fees FeeSource,
	estimator *Estimator,
	poller *StatusPoller,
	cfg ControllerConfig,
	log logger.LoggerInterface,
) *Controller {
	if cfg.DisplayDuration <= 0 {
		cfg.DisplayDuration = 5 * time.Second
	}
	c := &Controller{
		submitter: submitter,
		receipts:  receipts,
		fees:      fees,
		estimator: estimator,
		poller:    poller,
		cfg:       cfg,
		logger:    log,
		now:       time.Now,
		state:     domain.Idle{},
		chainID:   cfg.ChainID,
		txStatus:  domain.StatusIdle,
	}
	poller.OnUpdate(c.onStatus)
	return c
}

// OnSnapshot registers a snapshot listener. Listeners must not call Submit,
// Reset or HandleSessionChange synchronously.
func (c *Controller) OnSnapshot(fn SnapshotListener) {
	c.listenerMu.Lock()
	c.snapListeners = append(c.snapListeners, fn)
	c.listenerMu.Unlock()
}

// OnNotification registers a notification listener.
func (c *Controller) OnNotification(fn NotificationListener) {
	c.listenerMu.Lock()
	c.noteListeners = append(c.noteListeners, fn)
	c.listenerMu.Unlock()
}

// State returns the current lifecycle state.
func (c *Controller) State() domain.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns the current lifecycle snapshot.
func (c *Controller) Snapshot() domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// ChainID returns the chain transfers are tracked on.
func (c *Controller) ChainID() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chainID
}

// CanSubmit reports whether a signer is configured.
func (c *Controller) CanSubmit() bool {
	return c.submitter != nil
}

// Submit validates req and sends it. It returns once the node accepted the
// transaction; estimation, inclusion and confirmation continue in the
// background and surface through snapshots and notifications.
func (c *Controller) Submit(ctx context.Context, req domain.Request) (common.Hash, error) {
	tr, err := req.Validate()
	if err != nil {
		return common.Hash{}, err
	}
	if c.submitter == nil {
		return common.Hash{}, apperror.New(apperror.CodeSignerUnavailable)
	}

	c.mu.Lock()
	if _, idle := c.state.(domain.Idle); !idle {
		phase := c.state.Phase()
		c.mu.Unlock()
		return common.Hash{}, apperror.New(apperror.CodeTransferInFlight, apperror.WithContext(string(phase)))
	}
	c.stopLocked()
	c.gen++
	gen := c.gen
	c.transferID = uuid.NewString()
	c.txStatus = domain.StatusIdle
	c.includedBlock = 0
	transferCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	c.dispatchLocked(ctx, domain.StartSigning{})
	id, chainID := c.transferID, c.chainID
	c.unlockAndPublish(c.snapshotRef())

	c.logger.Info(ctx, "submitting transfer",
		"transfer_id", id,
		"token", tr.Token.Symbol(),
		"amount", tr.Amount.Text(),
		"recipient", tr.Recipient.Hex())

	hash, err := c.submitter.SendTransfer(transferCtx, tr.Call())
	if err != nil {
		c.fail(ctx, gen, common.Hash{}, err)
		return common.Hash{}, domain.Failure(err)
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		c.logger.Warn(ctx, "transfer accepted after session reset", "transfer_id", id, "hash", hash.Hex())
		return hash, nil
	}
	c.dispatchLocked(ctx, domain.SubmitTransaction{Submission: tr.Submission(hash, c.now())})
	c.unlockAndPublish(c.snapshotRef())

	c.logger.Info(ctx, "transfer submitted", "transfer_id", id, "hash", hash.Hex())

	c.poller.Track(transferCtx, chainID, hash)
	c.mu.Lock()
	stale := c.gen != gen
	c.mu.Unlock()
	if stale {
		// A reset ran before tracking started and its Clear came too early.
		c.poller.Clear()
		return hash, nil
	}
	go c.estimate(transferCtx, gen, chainID, hash)
	go c.awaitReceipt(transferCtx, gen, hash)

	return hash, nil
}

// Reset returns the lifecycle to idle immediately and drops any in-flight work.
func (c *Controller) Reset(ctx context.Context, reason string) {
	c.mu.Lock()
	wasIdle := c.state.Phase() == domain.PhaseIdle
	c.resetLocked(ctx)
	c.unlockAndPublish(c.snapshotRef())

	c.poller.Clear()
	if !wasIdle {
		c.logger.Info(ctx, "transfer reset", "reason", reason)
	}
}

// HandleSessionChange resets on disconnect, account or chain switch and
// follows the session onto its new chain.
func (c *Controller) HandleSessionChange(ctx context.Context, change walletDomain.SessionChange) {
	if change.Current.ChainID != 0 {
		c.mu.Lock()
		c.chainID = change.Current.ChainID
		c.mu.Unlock()
	}
	if change.Invalidates() {
		c.Reset(ctx, string(change.Kind))
	}
}

// Close drops in-flight work.
func (c *Controller) Close() {
	c.Reset(context.Background(), "shutdown")
}

func (c *Controller) estimate(ctx context.Context, gen, chainID uint64, hash common.Hash) {
	if c.fees == nil || c.estimator == nil {
		return
	}
	snap, ok := c.fees.Latest(chainID)
	if !ok {
		c.logger.Info(ctx, "no fee suggestions yet, skipping estimate", "hash", hash.Hex())
		return
	}

	est := c.estimator.Estimate(ctx, chainID, hash, snap)
	if est == nil {
		return
	}

	c.mu.Lock()
	if c.gen != gen || !c.dispatchLocked(ctx, domain.UpdateEstimate{Estimate: est}) {
		c.mu.Unlock()
		return
	}
	c.unlockAndPublish(c.snapshotRef())
}

func (c *Controller) awaitReceipt(ctx context.Context, gen uint64, hash common.Hash) {
	receipt, err := c.receipts.WaitForReceipt(ctx, hash, c.cfg.Confirmations)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		c.fail(ctx, gen, hash, err)
		return
	}
	if !receipt.Succeeded() {
		c.fail(ctx, gen, hash, apperror.New(apperror.CodeTransactionReverted,
			apperror.WithContext(fmt.Sprintf("block %d", receipt.BlockNumber))))
		return
	}

	c.mu.Lock()
	if c.gen != gen || !c.dispatchLocked(ctx, domain.ConfirmTransaction{BlockNumber: receipt.BlockNumber, ConfirmedAt: c.now()}) {
		c.mu.Unlock()
		return
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.resetTimer = time.AfterFunc(c.cfg.DisplayDuration, func() { c.autoReset(gen) })

	confirmed := c.state.(domain.Confirmed)
	note := domain.Notification{
		Kind:       domain.NotifySuccess,
		Message:    fmt.Sprintf("Transfer confirmed in block %d after %ds", confirmed.BlockNumber, confirmed.CompletionTimeSeconds),
		TransferID: c.transferID,
		Hash:       hash.Hex(),
		At:         confirmed.ConfirmedAt,
	}
	c.logger.Info(ctx, "transfer confirmed",
		"transfer_id", c.transferID,
		"hash", hash.Hex(),
		"block", confirmed.BlockNumber,
		"seconds", confirmed.CompletionTimeSeconds)
	c.unlockAndPublish(c.snapshotRef(), note)
}

func (c *Controller) autoReset(gen uint64) {
	ctx := context.Background()

	c.mu.Lock()
	if _, confirmed := c.state.(domain.Confirmed); c.gen != gen || !confirmed {
		c.mu.Unlock()
		return
	}
	c.resetTimer = nil
	c.resetLocked(ctx)
	c.unlockAndPublish(c.snapshotRef())

	c.poller.Clear()
}

func (c *Controller) fail(ctx context.Context, gen uint64, hash common.Hash, err error) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}

	var hashHex string
	if hash != (common.Hash{}) {
		hashHex = hash.Hex()
	}
	note := domain.FailureNotification(c.transferID, hashHex, err, c.now())
	c.logger.Error(ctx, "transfer failed",
		"transfer_id", c.transferID,
		"hash", hashHex,
		"code", note.Code,
		"error", err)

	c.resetLocked(ctx)
	c.unlockAndPublish(c.snapshotRef(), note)

	c.poller.Clear()
}

// resetLocked dispatches RESET and invalidates every pending result.
func (c *Controller) resetLocked(ctx context.Context) {
	c.stopLocked()
	c.gen++
	c.transferID = ""
	c.txStatus = domain.StatusIdle
	c.includedBlock = 0
	c.dispatchLocked(ctx, domain.Reset{})
}

func (c *Controller) stopLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.resetTimer != nil {
		c.resetTimer.Stop()
		c.resetTimer = nil
	}
}

// dispatchLocked applies a and reports whether the state changed. Rejected
// actions are logged and leave the state as is.
func (c *Controller) dispatchLocked(ctx context.Context, a domain.Action) bool {
	next, err := domain.Transition(c.state, a)
	if err != nil {
		msg := err.Error()
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			msg = appErr.Message
		}
		c.logger.Warn(ctx, msg, "transfer_id", c.transferID)
		return false
	}
	c.state = next
	return true
}

func (c *Controller) onStatus(u domain.StatusUpdate) {
	c.mu.Lock()
	hash, ok := domain.HashOf(c.state)
	if !ok || hash != u.Hash || u.Status == domain.StatusIdle {
		c.mu.Unlock()
		return
	}
	c.txStatus = u.Status
	c.includedBlock = u.BlockNumber
	c.unlockAndPublish(c.snapshotRef())
}

func (c *Controller) snapshotLocked() domain.Snapshot {
	snap := domain.Snapshot{
		TransferID:    c.transferID,
		ChainID:       c.chainID,
		State:         c.state,
		TxStatus:      c.txStatus,
		IncludedBlock: c.includedBlock,
		At:            c.now(),
	}
	if hash, ok := domain.HashOf(c.state); ok {
		snap.ExplorerURL = asset.ExplorerTxURL(c.chainID, hash.Hex())
	}
	return snap
}

func (c *Controller) snapshotRef() *domain.Snapshot {
	snap := c.snapshotLocked()
	return &snap
}

// unlockAndPublish releases mu and delivers snap and notes to listeners in
// state order. It must be called with mu held.
func (c *Controller) unlockAndPublish(snap *domain.Snapshot, notes ...domain.Notification) {
	c.pubMu.Lock()
	c.mu.Unlock()
	defer c.pubMu.Unlock()

	c.listenerMu.RLock()
	snapListeners := c.snapListeners
	noteListeners := c.noteListeners
	c.listenerMu.RUnlock()

	if snap != nil {
		for _, fn := range snapListeners {
			fn(*snap)
		}
	}
	for _, n := range notes {
		for _, fn := range noteListeners {
			fn(n)
		}
	}
}
