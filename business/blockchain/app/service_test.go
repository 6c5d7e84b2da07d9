package app

import (
	"context"
	"errors"
	"io"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/transfer-dashboard/business/blockchain/domain"
	"github.com/fd1az/transfer-dashboard/internal/apperror"
	"github.com/fd1az/transfer-dashboard/internal/logger"
)

type fakeHeads struct {
	mu   sync.Mutex
	head uint64
	err  error
}

func (f *fakeHeads) Subscribe(context.Context) (<-chan *domain.Block, error) {
	return make(chan *domain.Block), nil
}

func (f *fakeHeads) LatestBlock(context.Context) (*domain.Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Block{Number: f.head}, nil
}

func (f *fakeHeads) State() domain.ConnectionState { return domain.StateConnected }

func (f *fakeHeads) advance() {
	f.mu.Lock()
	f.head++
	f.mu.Unlock()
}

type fakeTxs struct {
	mu       sync.Mutex
	receipts []*domain.Receipt // served in order, nil = not found
	calls    int
	number   uint64
}

func (f *fakeTxs) TransactionByHash(_ context.Context, hash common.Hash) (*domain.TxDetails, error) {
	return &domain.TxDetails{Hash: hash}, nil
}

func (f *fakeTxs) TransactionReceipt(context.Context, common.Hash) (*domain.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i >= len(f.receipts) {
		i = len(f.receipts) - 1
	}
	if f.receipts[i] == nil {
		return nil, apperror.New(apperror.CodeTransactionNotFound)
	}
	return f.receipts[i], nil
}

func (f *fakeTxs) BalanceAt(context.Context, common.Address) (*big.Int, error) {
	return big.NewInt(42), nil
}

func (f *fakeTxs) BlockNumber(context.Context) (uint64, error) {
	return f.number, nil
}

func testService(heads HeadTracker, txs TxReader) *BlockchainService {
	return NewBlockchainService(heads, nil, txs,
		ServiceConfig{ReceiptPollInterval: 5 * time.Millisecond},
		logger.New(io.Discard, logger.LevelDebug, "test", nil))
}

func TestWaitForReceipt_WaitsForConfirmations(t *testing.T) {
	hash := common.HexToHash("0xabc")
	heads := &fakeHeads{head: 100}
	txs := &fakeTxs{receipts: []*domain.Receipt{
		nil,
		nil,
		{Hash: hash, Status: domain.ReceiptSuccess, BlockNumber: 100},
	}}
	svc := testService(heads, txs)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go func() {
		// head moves one block after the receipt shows up
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(20 * time.Millisecond):
				heads.advance()
			}
		}
	}()

	receipt, err := svc.WaitForReceipt(ctx, hash, 2)
	if err != nil {
		t.Fatalf("WaitForReceipt: %v", err)
	}
	if !receipt.Succeeded() || receipt.BlockNumber != 100 {
		t.Errorf("unexpected receipt %+v", receipt)
	}
	if head, _ := svc.HeadNumber(ctx); head < 102 {
		t.Errorf("returned before second confirmation, head %d", head)
	}
}

func TestWaitForReceipt_OneBlockOnTopIsNotEnough(t *testing.T) {
	hash := common.HexToHash("0xabc")
	txs := &fakeTxs{receipts: []*domain.Receipt{{Hash: hash, Status: domain.ReceiptSuccess, BlockNumber: 100}}}
	svc := testService(&fakeHeads{head: 101}, txs)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	receipt, err := svc.WaitForReceipt(ctx, hash, 2)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected to keep waiting, got receipt %+v err %v", receipt, err)
	}
}

func TestWaitForReceipt_ZeroReturnsOnInclusion(t *testing.T) {
	hash := common.HexToHash("0xabc")
	txs := &fakeTxs{receipts: []*domain.Receipt{{Hash: hash, Status: domain.ReceiptSuccess, BlockNumber: 100}}}
	svc := testService(&fakeHeads{head: 100}, txs)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	receipt, err := svc.WaitForReceipt(ctx, hash, 0)
	if err != nil {
		t.Fatalf("WaitForReceipt: %v", err)
	}
	if receipt.BlockNumber != 100 {
		t.Errorf("block = %d", receipt.BlockNumber)
	}
}

func TestWaitForReceipt_ReturnsReverted(t *testing.T) {
	hash := common.HexToHash("0xdef")
	txs := &fakeTxs{receipts: []*domain.Receipt{{Hash: hash, Status: domain.ReceiptReverted, BlockNumber: 10}}}
	svc := testService(&fakeHeads{head: 20}, txs)

	receipt, err := svc.WaitForReceipt(context.Background(), hash, 2)
	if err != nil {
		t.Fatal(err)
	}
	if receipt.Succeeded() {
		t.Error("expected reverted receipt")
	}
}

func TestWaitForReceipt_ContextCancelled(t *testing.T) {
	svc := testService(&fakeHeads{head: 1}, &fakeTxs{receipts: []*domain.Receipt{nil}})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := svc.WaitForReceipt(ctx, common.HexToHash("0x1"), 2)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestHeadNumber_FallsBackToNode(t *testing.T) {
	svc := testService(&fakeHeads{err: errors.New("ws down")}, &fakeTxs{number: 77})
	n, err := svc.HeadNumber(context.Background())
	if err != nil || n != 77 {
		t.Errorf("HeadNumber = %d, %v", n, err)
	}
}
