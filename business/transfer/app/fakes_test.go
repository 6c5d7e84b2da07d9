package app

import (
	"context"
	"io"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"

	blockchainDomain "github.com/fd1az/transfer-dashboard/business/blockchain/domain"
	gasApp "github.com/fd1az/transfer-dashboard/business/gas/app"
	gasDomain "github.com/fd1az/transfer-dashboard/business/gas/domain"
	"github.com/fd1az/transfer-dashboard/internal/apperror"
	"github.com/fd1az/transfer-dashboard/internal/logger"
)

const sepolia uint64 = 11155111

var (
	alice = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	bob   = common.HexToAddress("0x2222222222222222222222222222222222222222")
	usdc  = common.HexToAddress("0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238")
)

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelDebug, "test", nil)
}

func gwei(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000))
}

// testSnapshot has priority tiers 2/5/10 gwei, max fee tiers 30/40/50 gwei,
// a 20 gwei base fee and 0.5 congestion.
func testSnapshot() gasDomain.FeeTierSnapshot {
	return gasDomain.FeeTierSnapshot{
		ChainID:    sepolia,
		Low:        gasDomain.TierSuggestion{MaxPriorityFee: gwei(2), MaxFee: gwei(30), MinWait: 30 * time.Second, MaxWait: 60 * time.Second},
		Medium:     gasDomain.TierSuggestion{MaxPriorityFee: gwei(5), MaxFee: gwei(40), MinWait: 15 * time.Second, MaxWait: 45 * time.Second},
		High:       gasDomain.TierSuggestion{MaxPriorityFee: gwei(10), MaxFee: gwei(50), MinWait: 5 * time.Second, MaxWait: 15 * time.Second},
		BaseFee:    gwei(20),
		Congestion: 0.5,
		FetchedAt:  time.Now(),
	}
}

func dynamicDetails(hash common.Hash, block *uint64) *blockchainDomain.TxDetails {
	return &blockchainDomain.TxDetails{
		Hash:           hash,
		Type:           2,
		GasLimit:       21000,
		MaxPriorityFee: gwei(3),
		MaxFee:         gwei(40),
		BlockNumber:    block,
	}
}

func blockPtr(n uint64) *uint64 { return &n }

func notFound() error {
	return apperror.New(apperror.CodeTransactionNotFound)
}

// fakeLookup answers with fn, counting calls.
type fakeLookup struct {
	calls atomic.Int64
	mu    sync.Mutex
	fn    func(call int64, hash common.Hash) (*blockchainDomain.TxDetails, error)
}

func (f *fakeLookup) LookupTransaction(_ context.Context, _ uint64, hash common.Hash) (*blockchainDomain.TxDetails, error) {
	n := f.calls.Add(1)
	f.mu.Lock()
	fn := f.fn
	f.mu.Unlock()
	return fn(n, hash)
}

func (f *fakeLookup) set(fn func(call int64, hash common.Hash) (*blockchainDomain.TxDetails, error)) {
	f.mu.Lock()
	f.fn = fn
	f.mu.Unlock()
}

type fakeSubmitter struct {
	hash common.Hash
	err  error
	sent atomic.Int64
}

func (f *fakeSubmitter) SendTransfer(_ context.Context, _ blockchainDomain.TransferCall) (common.Hash, error) {
	f.sent.Add(1)
	return f.hash, f.err
}

func (f *fakeSubmitter) Account() common.Address { return alice }

// fakeReceipts returns whatever is sent on release. Unless ignoreCtx is set
// it gives up when the context ends.
type fakeReceipts struct {
	release   chan *blockchainDomain.Receipt
	ignoreCtx bool
}

func newFakeReceipts() *fakeReceipts {
	return &fakeReceipts{release: make(chan *blockchainDomain.Receipt, 1)}
}

func (f *fakeReceipts) WaitForReceipt(ctx context.Context, _ common.Hash, _ uint64) (*blockchainDomain.Receipt, error) {
	if f.ignoreCtx {
		return <-f.release, nil
	}
	select {
	case r := <-f.release:
		return r, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type fakeFees struct {
	snap gasDomain.FeeTierSnapshot
	ok   bool
}

func (f fakeFees) Latest(uint64) (gasDomain.FeeTierSnapshot, bool) { return f.snap, f.ok }

type fakeChecker struct {
	mu     sync.Mutex
	calls  []gasApp.RequirementInput
	result gasApp.RequirementResult
}

func (f *fakeChecker) Check(_ context.Context, in gasApp.RequirementInput) (gasApp.RequirementResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, in)
	return f.result, nil
}

func (f *fakeChecker) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeChecker) last() gasApp.RequirementInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}
