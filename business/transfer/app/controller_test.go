package app

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	blockchainDomain "github.com/fd1az/transfer-dashboard/business/blockchain/domain"
	"github.com/fd1az/transfer-dashboard/business/transfer/domain"
	walletDomain "github.com/fd1az/transfer-dashboard/business/wallet/domain"
	"github.com/fd1az/transfer-dashboard/internal/apperror"
	"github.com/fd1az/transfer-dashboard/internal/asset"
	"github.com/fd1az/transfer-dashboard/internal/logger"
	"github.com/fd1az/transfer-dashboard/internal/retry"
)

var sepoliaETH = asset.MustNewAsset(asset.NativeID(sepolia), "ETH", "Sepolia Ether", 18)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	c        *Controller
	sub      *fakeSubmitter
	receipts *fakeReceipts
	lookup   *fakeLookup
	clk      *clock

	mu    sync.Mutex
	snaps []domain.Snapshot
	notes []domain.Notification
}

func newHarness(t *testing.T, sub Submitter) *harness {
	t.Helper()

	h := &harness{
		receipts: newFakeReceipts(),
		lookup: &fakeLookup{fn: func(_ int64, hash common.Hash) (*blockchainDomain.TxDetails, error) {
			return dynamicDetails(hash, nil), nil
		}},
		clk: &clock{now: t0},
	}
	if fs, ok := sub.(*fakeSubmitter); ok {
		h.sub = fs
	}

	estimator := NewEstimator(h.lookup, EstimatorConfig{
		Lookup:     retry.Policy{Attempts: 3, Delay: time.Millisecond},
		WaitPolicy: DefaultEstimatorConfig().WaitPolicy,
	}, testLogger())
	poller := fastPoller(h.lookup)
	cfg := ControllerConfig{ChainID: sepolia, Confirmations: 1, DisplayDuration: 50 * time.Millisecond}

	h.c = NewController(sub, h.receipts, fakeFees{snap: testSnapshot(), ok: true}, estimator, poller, cfg, testLogger())
	h.c.now = h.clk.Now
	h.c.OnSnapshot(func(s domain.Snapshot) {
		h.mu.Lock()
		h.snaps = append(h.snaps, s)
		h.mu.Unlock()
	})
	h.c.OnNotification(func(n domain.Notification) {
		h.mu.Lock()
		h.notes = append(h.notes, n)
		h.mu.Unlock()
	})
	t.Cleanup(h.c.Close)
	return h
}

func (h *harness) phases() []domain.Phase {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []domain.Phase
	for _, s := range h.snaps {
		p := s.State.Phase()
		if len(out) == 0 || out[len(out)-1] != p {
			out = append(out, p)
		}
	}
	return out
}

func (h *harness) notifications() []domain.Notification {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.Notification(nil), h.notes...)
}

func (h *harness) phaseIs(p domain.Phase) func() bool {
	return func() bool { return h.c.State().Phase() == p }
}

func validRequest() domain.Request {
	return domain.Request{Token: sepoliaETH, Amount: "0.1", Recipient: bob.Hex()}
}

func TestController_HappyPath(t *testing.T) {
	hash := common.HexToHash("0xfeed")
	h := newHarness(t, &fakeSubmitter{hash: hash})
	ctx := context.Background()

	got, err := h.c.Submit(ctx, validRequest())
	require.NoError(t, err)
	assert.Equal(t, hash, got)

	pending, ok := h.c.State().(domain.Pending)
	require.True(t, ok)
	assert.Equal(t, hash, pending.Hash)
	assert.Equal(t, t0, pending.SubmittedAt)
	assert.Equal(t, "0.1", pending.Amount)
	assert.Equal(t, "ETH", pending.TokenSymbol)
	assert.True(t, pending.IsNativeToken)

	snap := h.c.Snapshot()
	assert.Equal(t, domain.StatusPending, snap.TxStatus)
	assert.Equal(t, "https://sepolia.etherscan.io/tx/"+hash.Hex(), snap.ExplorerURL)
	assert.NotEmpty(t, snap.TransferID)

	require.Eventually(t, func() bool {
		p, ok := h.c.State().(domain.Pending)
		return ok && p.Estimate != nil
	}, 2*time.Second, time.Millisecond)

	h.clk.Set(t0.Add(4500 * time.Millisecond))
	h.receipts.release <- &blockchainDomain.Receipt{Hash: hash, Status: blockchainDomain.ReceiptSuccess, BlockNumber: 42}

	require.Eventually(t, h.phaseIs(domain.PhaseConfirmed), 2*time.Second, time.Millisecond)
	confirmed := h.c.State().(domain.Confirmed)
	assert.Equal(t, uint64(42), confirmed.BlockNumber)
	assert.Equal(t, int64(4), confirmed.CompletionTimeSeconds)

	// the confirmed view is shown, then dropped
	require.Eventually(t, h.phaseIs(domain.PhaseIdle), 2*time.Second, time.Millisecond)

	assert.Equal(t, []domain.Phase{
		domain.PhaseSigning,
		domain.PhasePending,
		domain.PhaseConfirmed,
		domain.PhaseIdle,
	}, h.phases())

	notes := h.notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, domain.NotifySuccess, notes[0].Kind)
	assert.Equal(t, hash.Hex(), notes[0].Hash)
	assert.Contains(t, notes[0].Message, "block 42")
}

func TestController_RevertedReceipt(t *testing.T) {
	hash := common.HexToHash("0xbad")
	h := newHarness(t, &fakeSubmitter{hash: hash})

	_, err := h.c.Submit(context.Background(), validRequest())
	require.NoError(t, err)

	h.receipts.release <- &blockchainDomain.Receipt{Hash: hash, Status: blockchainDomain.ReceiptReverted, BlockNumber: 42}

	require.Eventually(t, func() bool { return len(h.notifications()) == 1 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, domain.PhaseIdle, h.c.State().Phase())

	note := h.notifications()[0]
	assert.Equal(t, domain.NotifyError, note.Kind)
	assert.Equal(t, apperror.CodeTransactionReverted, note.Code)
	assert.Equal(t, hash.Hex(), note.Hash)
	assert.Equal(t, domain.StatusIdle, h.c.Snapshot().TxStatus)
}

func TestController_SubmitFailureIsClassified(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperror.Code
	}{
		{name: "rejected", err: errors.New("User rejected the request"), want: apperror.CodeUserRejected},
		{name: "funds", err: errors.New("insufficient funds for gas * price + value"), want: apperror.CodeInsufficientFunds},
		{name: "gas", err: errors.New("intrinsic gas too low"), want: apperror.CodeGasEstimationFailed},
		{name: "other", err: errors.New("nonce too low"), want: apperror.CodeUnknownTransferError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, &fakeSubmitter{err: tt.err})

			_, err := h.c.Submit(context.Background(), validRequest())
			require.Error(t, err)
			assert.Equal(t, tt.want, apperror.GetCode(err))
			assert.ErrorIs(t, err, tt.err)

			assert.Equal(t, domain.PhaseIdle, h.c.State().Phase())
			assert.Equal(t, []domain.Phase{domain.PhaseSigning, domain.PhaseIdle}, h.phases())

			notes := h.notifications()
			require.Len(t, notes, 1)
			assert.Equal(t, tt.want, notes[0].Code)
			assert.Empty(t, notes[0].Hash)
		})
	}
}

func TestController_RejectsSecondTransfer(t *testing.T) {
	sub := &fakeSubmitter{hash: common.HexToHash("0x1")}
	h := newHarness(t, sub)
	ctx := context.Background()

	_, err := h.c.Submit(ctx, validRequest())
	require.NoError(t, err)

	_, err = h.c.Submit(ctx, validRequest())
	require.Error(t, err)
	assert.Equal(t, apperror.CodeTransferInFlight, apperror.GetCode(err))
	assert.Equal(t, int64(1), sub.sent.Load())
	assert.Equal(t, domain.PhasePending, h.c.State().Phase())
}

func TestController_InvalidRequest(t *testing.T) {
	sub := &fakeSubmitter{hash: common.HexToHash("0x1")}
	h := newHarness(t, sub)

	req := validRequest()
	req.Amount = "0"
	_, err := h.c.Submit(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeInvalidAmount, apperror.GetCode(err))

	req = validRequest()
	req.Recipient = "bob"
	_, err = h.c.Submit(context.Background(), req)
	assert.Equal(t, apperror.CodeInvalidRecipient, apperror.GetCode(err))

	assert.Zero(t, sub.sent.Load())
	assert.Empty(t, h.phases())
}

func TestController_NoSigner(t *testing.T) {
	h := newHarness(t, nil)

	assert.False(t, h.c.CanSubmit())
	_, err := h.c.Submit(context.Background(), validRequest())
	require.Error(t, err)
	assert.Equal(t, apperror.CodeSignerUnavailable, apperror.GetCode(err))
	assert.Equal(t, domain.PhaseIdle, h.c.State().Phase())
}

func TestController_SessionChangeDropsLateReceipt(t *testing.T) {
	hash := common.HexToHash("0xfeed")
	h := newHarness(t, &fakeSubmitter{hash: hash})
	h.receipts.ignoreCtx = true
	ctx := context.Background()

	_, err := h.c.Submit(ctx, validRequest())
	require.NoError(t, err)

	prev := walletDomain.Session{Account: alice, ChainID: sepolia, Connected: true}
	next := walletDomain.Session{Account: bob, ChainID: sepolia, Connected: true}
	change, ok := walletDomain.Diff(prev, next)
	require.True(t, ok)

	h.c.HandleSessionChange(ctx, change)
	assert.Equal(t, domain.PhaseIdle, h.c.State().Phase())
	assert.Equal(t, domain.StatusIdle, h.c.Snapshot().TxStatus)

	h.receipts.release <- &blockchainDomain.Receipt{Hash: hash, Status: blockchainDomain.ReceiptSuccess, BlockNumber: 42}
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, domain.PhaseIdle, h.c.State().Phase())
	assert.Empty(t, h.notifications())
	assert.NotContains(t, h.phases(), domain.PhaseConfirmed)
}

// hookedLogger runs hook before logging msg at info level.
type hookedLogger struct {
	logger.LoggerInterface
	msg  string
	hook func()
}

func (l *hookedLogger) Info(ctx context.Context, msg string, args ...any) {
	if msg == l.msg && l.hook != nil {
		l.hook()
	}
	l.LoggerInterface.Info(ctx, msg, args...)
}

func TestController_ResetBeforeTrackingStopsPoller(t *testing.T) {
	hash := common.HexToHash("0xfeed")
	h := newHarness(t, &fakeSubmitter{hash: hash})
	ctx := context.Background()

	change, ok := walletDomain.Diff(
		walletDomain.Session{Account: alice, ChainID: sepolia, Connected: true},
		walletDomain.Session{},
	)
	require.True(t, ok)

	// disconnect lands after the pending snapshot, before polling starts
	h.c.logger = &hookedLogger{
		LoggerInterface: testLogger(),
		msg:             "transfer submitted",
		hook:            func() { h.c.HandleSessionChange(ctx, change) },
	}

	_, err := h.c.Submit(ctx, validRequest())
	require.NoError(t, err)

	assert.Equal(t, domain.PhaseIdle, h.c.State().Phase())
	status, _ := h.c.poller.Status()
	assert.Equal(t, domain.StatusIdle, status)

	calls := h.lookup.calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, calls, h.lookup.calls.Load(), "no lookups against the dropped hash")
}

func TestController_ChainChangeFollowsSession(t *testing.T) {
	h := newHarness(t, &fakeSubmitter{hash: common.HexToHash("0x1")})

	change, ok := walletDomain.Diff(
		walletDomain.Session{Account: alice, ChainID: sepolia, Connected: true},
		walletDomain.Session{Account: alice, ChainID: 1, Connected: true},
	)
	require.True(t, ok)

	h.c.HandleSessionChange(context.Background(), change)
	assert.Equal(t, uint64(1), h.c.ChainID())
}

func TestController_ConnectKeepsIdle(t *testing.T) {
	h := newHarness(t, &fakeSubmitter{hash: common.HexToHash("0x1")})

	change, ok := walletDomain.Diff(
		walletDomain.Session{},
		walletDomain.Session{Account: alice, ChainID: sepolia, Connected: true},
	)
	require.True(t, ok)

	h.c.HandleSessionChange(context.Background(), change)
	assert.Empty(t, h.phases())
}

func TestController_InvalidDispatchIsLogged(t *testing.T) {
	var mu sync.Mutex
	var warnings []string
	log := logger.New(io.Discard, logger.LevelDebug, "test", nil)
	log.AddEventHook(func(_ context.Context, r logger.Record) {
		if r.Level == logger.LevelWarn {
			mu.Lock()
			warnings = append(warnings, r.Message)
			mu.Unlock()
		}
	})

	c := NewController(nil, newFakeReceipts(), nil, nil, fastPoller(&fakeLookup{}), DefaultControllerConfig(sepolia), log)

	c.mu.Lock()
	changed := c.dispatchLocked(context.Background(), domain.SubmitTransaction{})
	c.mu.Unlock()

	assert.False(t, changed)
	assert.Equal(t, domain.PhaseIdle, c.State().Phase())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"invalid transition: cannot SUBMIT_TRANSACTION from idle"}, warnings)
}
