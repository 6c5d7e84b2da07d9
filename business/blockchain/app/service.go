package app

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/transfer-dashboard/business/blockchain/domain"
	"github.com/fd1az/transfer-dashboard/internal/apperror"
	"github.com/fd1az/transfer-dashboard/internal/logger"
)

// ServiceConfig tunes receipt waiting.
type ServiceConfig struct {
	ReceiptPollInterval time.Duration
}

// BlockchainService coordinates node access for the other contexts.
type BlockchainService struct {
	heads  HeadTracker
	oracle GasOracle
	txs    TxReader
	cfg    ServiceConfig
	logger logger.LoggerInterface
}

// NewBlockchainService creates a new BlockchainService.
func NewBlockchainService(heads HeadTracker, oracle GasOracle, txs TxReader, cfg ServiceConfig, log logger.LoggerInterface) *BlockchainService {
	if cfg.ReceiptPollInterval <= 0 {
		cfg.ReceiptPollInterval = 2 * time.Second
	}
	return &BlockchainService{
		heads:  heads,
		oracle: oracle,
		txs:    txs,
		cfg:    cfg,
		logger: log,
	}
}

// SubscribeBlocks starts the head subscription and returns the channel.
func (s *BlockchainService) SubscribeBlocks(ctx context.Context) (<-chan *domain.Block, error) {
	return s.heads.Subscribe(ctx)
}

// ConnectionState returns the current connection state.
func (s *BlockchainService) ConnectionState() domain.ConnectionState {
	return s.heads.State()
}

// GasPrice returns the node's legacy gas price suggestion.
func (s *BlockchainService) GasPrice(ctx context.Context) (*big.Int, error) {
	return s.oracle.GasPrice(ctx)
}

// EstimateTransferGas sizes a native or token transfer.
func (s *BlockchainService) EstimateTransferGas(ctx context.Context, call domain.TransferCall) (uint64, error) {
	return s.oracle.EstimateTransferGas(ctx, call)
}

// NativeBalance returns the native balance of account at the latest block.
func (s *BlockchainService) NativeBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	return s.txs.BalanceAt(ctx, account)
}

// LookupTransaction returns the node's view of hash.
func (s *BlockchainService) LookupTransaction(ctx context.Context, hash common.Hash) (*domain.TxDetails, error) {
	return s.txs.TransactionByHash(ctx, hash)
}

// HeadNumber returns the latest block number, preferring the head tracker.
func (s *BlockchainService) HeadNumber(ctx context.Context) (uint64, error) {
	if s.heads != nil {
		if b, err := s.heads.LatestBlock(ctx); err == nil && b != nil {
			return b.Number, nil
		}
	}
	return s.txs.BlockNumber(ctx)
}

// WaitForReceipt polls until hash is included and at least confirmations
// blocks have been mined on top of its block. Zero returns on inclusion.
// Reverted receipts are returned the same way; callers inspect the status.
// Transient node errors are logged and retried until ctx ends.
func (s *BlockchainService) WaitForReceipt(ctx context.Context, hash common.Hash, confirmations uint64) (*domain.Receipt, error) {
	ticker := time.NewTicker(s.cfg.ReceiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, done, err := s.checkReceipt(ctx, hash, confirmations)
		if err != nil {
			return nil, err
		}
		if done {
			s.logger.Info(ctx, "transaction receipt confirmed",
				"hash", hash.Hex(),
				"block", receipt.BlockNumber,
				"status", receipt.Status.String())
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *BlockchainService) checkReceipt(ctx context.Context, hash common.Hash, confirmations uint64) (*domain.Receipt, bool, error) {
	receipt, err := s.txs.TransactionReceipt(ctx, hash)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		if !errors.Is(err, apperror.Sentinel(apperror.CodeTransactionNotFound)) {
			s.logger.Warn(ctx, "receipt lookup failed", "hash", hash.Hex(), "error", err)
		}
		return nil, false, nil
	}

	head, err := s.HeadNumber(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		s.logger.Warn(ctx, "head lookup failed", "error", err)
		return nil, false, nil
	}

	return receipt, domain.Confirmations(receipt.BlockNumber, head) >= confirmations, nil
}

// FollowHeads subscribes to new heads and calls fn for each one until ctx
// ends or the tracker closes.
func (s *BlockchainService) FollowHeads(ctx context.Context, fn func(*domain.Block)) error {
	blocks, err := s.heads.Subscribe(ctx)
	if err != nil {
		return err
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case b, ok := <-blocks:
				if !ok {
					return
				}
				fn(b)
			}
		}
	}()
	return nil
}
