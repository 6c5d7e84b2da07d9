package ethereum

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/transfer-dashboard/business/blockchain/app"
	"github.com/fd1az/transfer-dashboard/business/blockchain/domain"
	"github.com/fd1az/transfer-dashboard/internal/apperror"
	"github.com/fd1az/transfer-dashboard/internal/logger"
)

var _ app.TxReader = (*TxReader)(nil)

// TxReader maps node transactions and receipts onto domain types.
type TxReader struct {
	rpc    RPC
	logger logger.LoggerInterface
	tracer trace.Tracer
}

// NewTxReader creates a reader over rpc.
func NewTxReader(rpc RPC, log logger.LoggerInterface) *TxReader {
	return &TxReader{
		rpc:    rpc,
		logger: log,
		tracer: otel.Tracer(tracerName),
	}
}

// TransactionByHash returns the transaction with its block number when mined.
func (r *TxReader) TransactionByHash(ctx context.Context, hash common.Hash) (*domain.TxDetails, error) {
	ctx, span := r.tracer.Start(ctx, "eth.tx_by_hash",
		trace.WithAttributes(attribute.String("hash", hash.Hex())),
	)
	defer span.End()

	tx, pending, err := r.rpc.TransactionByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			span.AddEvent("not_found")
			return nil, apperror.New(apperror.CodeTransactionNotFound,
				apperror.WithContext(hash.Hex()))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		return nil, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext("transaction by hash"))
	}

	details := txDetails(tx)

	if !pending {
		receipt, err := r.rpc.TransactionReceipt(ctx, hash)
		switch {
		case err == nil && receipt.BlockNumber != nil:
			n := receipt.BlockNumber.Uint64()
			details.BlockNumber = &n
		case err != nil && !errors.Is(err, ethereum.NotFound):
			r.logger.Warn(ctx, "receipt lookup for mined tx failed", "hash", hash.Hex(), "error", err)
		}
	}

	span.SetAttributes(
		attribute.Bool("pending", pending),
		attribute.Bool("included", details.Included()),
	)
	span.SetStatus(codes.Ok, "fetched")
	return details, nil
}

// TransactionReceipt returns the receipt once the transaction is mined.
func (r *TxReader) TransactionReceipt(ctx context.Context, hash common.Hash) (*domain.Receipt, error) {
	ctx, span := r.tracer.Start(ctx, "eth.tx_receipt",
		trace.WithAttributes(attribute.String("hash", hash.Hex())),
	)
	defer span.End()

	receipt, err := r.rpc.TransactionReceipt(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, apperror.New(apperror.CodeTransactionNotFound,
				apperror.WithContext(hash.Hex()))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "receipt failed")
		return nil, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext("transaction receipt"))
	}

	out := &domain.Receipt{
		Hash:              hash,
		Status:            domain.ReceiptReverted,
		GasUsed:           receipt.GasUsed,
		EffectiveGasPrice: receipt.EffectiveGasPrice,
	}
	if receipt.Status == types.ReceiptStatusSuccessful {
		out.Status = domain.ReceiptSuccess
	}
	if receipt.BlockNumber != nil {
		out.BlockNumber = receipt.BlockNumber.Uint64()
	}

	span.SetAttributes(
		attribute.Int64("block", int64(out.BlockNumber)),
		attribute.String("status", out.Status.String()),
	)
	return out, nil
}

// BalanceAt returns the latest native balance of account.
func (r *TxReader) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	balance, err := r.rpc.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext("balance of "+account.Hex()))
	}
	return balance, nil
}

// BlockNumber returns the latest block number.
func (r *TxReader) BlockNumber(ctx context.Context) (uint64, error) {
	n, err := r.rpc.BlockNumber(ctx)
	if err != nil {
		return 0, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext("block number"))
	}
	return n, nil
}

// txDetails copies fee fields by transaction type. Legacy and access-list
// transactions only carry a gas price.
func txDetails(tx *types.Transaction) *domain.TxDetails {
	d := &domain.TxDetails{
		Hash:     tx.Hash(),
		Type:     tx.Type(),
		GasLimit: tx.Gas(),
	}
	switch tx.Type() {
	case types.LegacyTxType, types.AccessListTxType:
		d.GasPrice = tx.GasPrice()
	default:
		d.MaxPriorityFee = tx.GasTipCap()
		d.MaxFee = tx.GasFeeCap()
	}
	return d
}
