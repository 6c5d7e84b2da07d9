package ethereum

import (
	"context"
	"io"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/fd1az/transfer-dashboard/internal/logger"
)

// Hardhat/Anvil account #0, never funded on a real network.
const (
	testKeyHex  = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testKeyAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelDebug, "test", nil)
}

type fakeRPC struct {
	mu sync.Mutex

	gasPrice      *big.Int
	gasPriceCalls int
	gasPriceErr   error
	tipCap        *big.Int
	estimate      uint64
	estimateErr   error
	lastMsg       ethereum.CallMsg

	head    *types.Header
	headErr error
	number  uint64
	nonce   uint64
	balance *big.Int

	txs      map[common.Hash]*types.Transaction
	pending  map[common.Hash]bool
	receipts map[common.Hash]*types.Receipt
	sent     []*types.Transaction
	sendErr  error
}

func newFakeRPC() *fakeRPC {
	return &fakeRPC{
		gasPrice: big.NewInt(20_000_000_000),
		tipCap:   big.NewInt(1_000_000_000),
		estimate: 21000,
		head:     &types.Header{Number: big.NewInt(100), BaseFee: big.NewInt(10_000_000_000)},
		balance:  big.NewInt(0),
		txs:      make(map[common.Hash]*types.Transaction),
		pending:  make(map[common.Hash]bool),
		receipts: make(map[common.Hash]*types.Receipt),
	}
}

func (f *fakeRPC) ChainID(context.Context) (*big.Int, error) { return big.NewInt(11155111), nil }

func (f *fakeRPC) BlockNumber(context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.number, nil
}

func (f *fakeRPC) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.headErr != nil {
		return nil, f.headErr
	}
	h := *f.head
	return &h, nil
}

func (f *fakeRPC) setHead(n int64) {
	f.mu.Lock()
	f.head = &types.Header{Number: big.NewInt(n), BaseFee: f.head.BaseFee}
	f.mu.Unlock()
}

func (f *fakeRPC) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return f.balance, nil
}

func (f *fakeRPC) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return f.nonce, nil
}

func (f *fakeRPC) SuggestGasPrice(context.Context) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gasPriceCalls++
	if f.gasPriceErr != nil {
		return nil, f.gasPriceErr
	}
	return new(big.Int).Set(f.gasPrice), nil
}

func (f *fakeRPC) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return new(big.Int).Set(f.tipCap), nil
}

func (f *fakeRPC) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastMsg = msg
	return f.estimate, f.estimateErr
}

func (f *fakeRPC) TransactionByHash(_ context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	tx, ok := f.txs[hash]
	if !ok {
		return nil, false, ethereum.NotFound
	}
	return tx, f.pending[hash], nil
}

func (f *fakeRPC) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	r, ok := f.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (f *fakeRPC) SendTransaction(_ context.Context, tx *types.Transaction) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, tx)
	return nil
}
