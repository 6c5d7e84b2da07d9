package ethereum

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/transfer-dashboard/business/blockchain/domain"
	"github.com/fd1az/transfer-dashboard/internal/apperror"
)

func dynamicTx(nonce uint64) *types.Transaction {
	to := bob
	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   big.NewInt(11155111),
		Nonce:     nonce,
		GasTipCap: big.NewInt(2_000_000_000),
		GasFeeCap: big.NewInt(40_000_000_000),
		Gas:       21000,
		To:        &to,
		Value:     big.NewInt(1),
	})
}

func TestTxReader_TransactionByHash(t *testing.T) {
	rpc := newFakeRPC()
	reader := NewTxReader(rpc, testLogger())
	ctx := context.Background()

	t.Run("unknown hash", func(t *testing.T) {
		_, err := reader.TransactionByHash(ctx, common.HexToHash("0x01"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperror.Sentinel(apperror.CodeTransactionNotFound)))
	})

	t.Run("pending dynamic fee tx", func(t *testing.T) {
		tx := dynamicTx(1)
		rpc.txs[tx.Hash()] = tx
		rpc.pending[tx.Hash()] = true

		d, err := reader.TransactionByHash(ctx, tx.Hash())
		require.NoError(t, err)
		assert.False(t, d.Included())
		assert.Equal(t, uint64(21000), d.GasLimit)
		assert.Equal(t, "2000000000", d.MaxPriorityFee.String())
		assert.Equal(t, "40000000000", d.MaxFee.String())
		assert.Nil(t, d.GasPrice)
	})

	t.Run("mined tx gets block number from receipt", func(t *testing.T) {
		tx := dynamicTx(2)
		rpc.txs[tx.Hash()] = tx
		rpc.receipts[tx.Hash()] = &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(555)}

		d, err := reader.TransactionByHash(ctx, tx.Hash())
		require.NoError(t, err)
		require.True(t, d.Included())
		assert.Equal(t, uint64(555), *d.BlockNumber)
	})

	t.Run("legacy tx reports gas price only", func(t *testing.T) {
		tx := types.NewTx(&types.LegacyTx{Nonce: 3, GasPrice: big.NewInt(22_000_000_000), Gas: 21000, To: &bob, Value: big.NewInt(1)})
		rpc.txs[tx.Hash()] = tx
		rpc.pending[tx.Hash()] = true

		d, err := reader.TransactionByHash(ctx, tx.Hash())
		require.NoError(t, err)
		assert.Equal(t, "22000000000", d.GasPrice.String())
		assert.Nil(t, d.MaxFee)
		assert.Nil(t, d.MaxPriorityFee)
	})
}

func TestTxReader_TransactionReceipt(t *testing.T) {
	rpc := newFakeRPC()
	reader := NewTxReader(rpc, testLogger())
	ctx := context.Background()

	hash := common.HexToHash("0xbeef")
	_, err := reader.TransactionReceipt(ctx, hash)
	assert.Equal(t, apperror.CodeTransactionNotFound, apperror.GetCode(err))

	rpc.receipts[hash] = &types.Receipt{
		Status:            types.ReceiptStatusFailed,
		BlockNumber:       big.NewInt(9),
		GasUsed:           30000,
		EffectiveGasPrice: big.NewInt(3),
	}
	r, err := reader.TransactionReceipt(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, domain.ReceiptReverted, r.Status)
	assert.Equal(t, uint64(9), r.BlockNumber)
	assert.Equal(t, "90000", r.Fee().String())
}
