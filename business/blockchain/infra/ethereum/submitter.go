package ethereum

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/transfer-dashboard/business/blockchain/domain"
	"github.com/fd1az/transfer-dashboard/internal/apperror"
	"github.com/fd1az/transfer-dashboard/internal/logger"
)

// Submitter builds, signs and broadcasts transfers from one account.
type Submitter struct {
	rpc     RPC
	signer  *KeySigner
	chainID *big.Int
	logger  logger.LoggerInterface

	tracer    trace.Tracer
	submitted metric.Int64Counter
	failed    metric.Int64Counter
}

// NewSubmitter creates a submitter for chainID.
func NewSubmitter(rpc RPC, signer *KeySigner, chainID uint64, log logger.LoggerInterface) (*Submitter, error) {
	meter := otel.Meter(meterName)

	submitted, err := meter.Int64Counter(
		"transfers_submitted_total",
		metric.WithDescription("Transfers broadcast to the node"),
		metric.WithUnit("{tx}"),
	)
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	failed, err := meter.Int64Counter(
		"transfer_submit_errors_total",
		metric.WithDescription("Transfers that failed before broadcast completed"),
		metric.WithUnit("{tx}"),
	)
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return &Submitter{
		rpc:       rpc,
		signer:    signer,
		chainID:   new(big.Int).SetUint64(chainID),
		logger:    log,
		tracer:    otel.Tracer(tracerName),
		submitted: submitted,
		failed:    failed,
	}, nil
}

// Account returns the sending address.
func (s *Submitter) Account() common.Address {
	return s.signer.Address()
}

// ChainID returns the chain the submitter signs for.
func (s *Submitter) ChainID() uint64 {
	return s.chainID.Uint64()
}

// SendTransfer signs and broadcasts call from the signer's account and
// returns the transaction hash. Node errors keep their message so callers
// can classify them.
func (s *Submitter) SendTransfer(ctx context.Context, call domain.TransferCall) (common.Hash, error) {
	ctx, span := s.tracer.Start(ctx, "eth.send_transfer",
		trace.WithAttributes(
			attribute.String("to", call.To.Hex()),
			attribute.Bool("native", call.IsNative()),
		),
	)
	defer span.End()

	hash, err := s.send(ctx, call)
	if err != nil {
		s.failed.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		return common.Hash{}, err
	}

	s.submitted.Add(ctx, 1)
	span.SetAttributes(attribute.String("hash", hash.Hex()))
	span.SetStatus(codes.Ok, "sent")
	return hash, nil
}

func (s *Submitter) send(ctx context.Context, call domain.TransferCall) (common.Hash, error) {
	call.From = s.signer.Address()

	msg, err := transferMsg(call)
	if err != nil {
		return common.Hash{}, apperror.Wrap(err, apperror.CodeInternalError, "build transfer call")
	}

	nonce, err := s.rpc.PendingNonceAt(ctx, call.From)
	if err != nil {
		return common.Hash{}, apperror.Wrap(err, apperror.CodeEthereumRPCError, "pending nonce")
	}

	gas, err := s.rpc.EstimateGas(ctx, msg)
	if err != nil {
		return common.Hash{}, apperror.Wrap(err, apperror.CodeGasEstimationFailed, "estimate gas")
	}

	head, err := s.rpc.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, apperror.Wrap(err, apperror.CodeEthereumRPCError, "latest header")
	}

	var tx *types.Transaction
	if head.BaseFee != nil {
		tip, err := s.rpc.SuggestGasTipCap(ctx)
		if err != nil {
			return common.Hash{}, apperror.Wrap(err, apperror.CodeEthereumRPCError, "suggest tip")
		}
		tx = types.NewTx(&types.DynamicFeeTx{
			ChainID:   s.chainID,
			Nonce:     nonce,
			GasTipCap: tip,
			GasFeeCap: FeeCap(head.BaseFee, tip),
			Gas:       gas,
			To:        msg.To,
			Value:     valueOrZero(msg.Value),
			Data:      msg.Data,
		})
	} else {
		price, err := s.rpc.SuggestGasPrice(ctx)
		if err != nil {
			return common.Hash{}, apperror.Wrap(err, apperror.CodeEthereumRPCError, "suggest gas price")
		}
		tx = types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			GasPrice: price,
			Gas:      gas,
			To:       msg.To,
			Value:    valueOrZero(msg.Value),
			Data:     msg.Data,
		})
	}

	signed, err := s.signer.Sign(tx, s.chainID)
	if err != nil {
		return common.Hash{}, apperror.Wrap(err, apperror.CodeSignerUnavailable, "sign transfer")
	}

	if err := s.rpc.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, apperror.Wrap(err, apperror.CodeEthereumRPCError, "send transaction")
	}

	s.logger.Info(ctx, "transfer broadcast",
		"hash", signed.Hash().Hex(),
		"nonce", nonce,
		"gas", gas,
		"type", signed.Type())

	return signed.Hash(), nil
}

// FeeCap returns 2*baseFee + tip, leaving room for base fee growth over
// several blocks.
func FeeCap(baseFee, tip *big.Int) *big.Int {
	c := new(big.Int).Mul(baseFee, big.NewInt(2))
	return c.Add(c, tip)
}

func valueOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
