package gas

import (
	"context"
	"io"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/transfer-dashboard/business/gas/app"
	"github.com/fd1az/transfer-dashboard/business/gas/domain"
	walletDomain "github.com/fd1az/transfer-dashboard/business/wallet/domain"
	"github.com/fd1az/transfer-dashboard/internal/logger"
)

type countingOracle struct {
	priceCalls atomic.Int32
}

func (o *countingOracle) GasPrice(context.Context) (*big.Int, error) {
	o.priceCalls.Add(1)
	return big.NewInt(20_000_000_000), nil
}

func (o *countingOracle) EstimateTransferGas(context.Context, app.TransferCall) (uint64, error) {
	return 21_000, nil
}

type staticSuggestions struct{}

func (staticSuggestions) Suggest(context.Context, uint64) (*domain.FeeTierSnapshot, error) {
	gwei := func(n int64) *big.Int { return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000)) }
	return &domain.FeeTierSnapshot{
		Low:     domain.TierSuggestion{MaxPriorityFee: gwei(1), MaxFee: gwei(20), MaxWait: time.Second},
		Medium:  domain.TierSuggestion{MaxPriorityFee: gwei(2), MaxFee: gwei(25), MaxWait: time.Second},
		High:    domain.TierSuggestion{MaxPriorityFee: gwei(3), MaxFee: gwei(30), MaxWait: time.Second},
		BaseFee: gwei(15),
	}, nil
}

func TestFollowSession_ChainSwitchDropsCachedGasError(t *testing.T) {
	ctx := context.Background()
	log := logger.New(io.Discard, logger.LevelDebug, "test", nil)

	oracle := &countingOracle{}
	reqs := app.NewRequirementService(oracle, app.DefaultRequirementConfig(), log)
	t.Cleanup(reqs.Close)
	feed := app.NewFeeFeed(staticSuggestions{}, time.Hour, log)
	t.Cleanup(feed.Stop)

	account := common.HexToAddress("0x1111111111111111111111111111111111111111")
	oneEther := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	in := app.RequirementInput{
		ChainID: 11155111, Account: account, Recipient: account, IsNative: true,
		Amount: oneEther, NativeBalance: oneEther,
	}

	first, err := reqs.Check(ctx, in)
	require.NoError(t, err)
	require.True(t, first.GasError)

	cached, err := reqs.Check(ctx, in)
	require.NoError(t, err)
	require.True(t, cached.FromCache)

	change, ok := walletDomain.Diff(
		walletDomain.Session{Account: account, ChainID: 11155111, Connected: true},
		walletDomain.Session{Account: account, ChainID: 1, Connected: true},
	)
	require.True(t, ok)
	followSession(ctx, feed, reqs, log)(ctx, change)

	assert.Equal(t, uint64(1), feed.ActiveChain())

	again, err := reqs.Check(ctx, in)
	require.NoError(t, err)
	assert.False(t, again.FromCache)
	assert.Equal(t, int32(2), oracle.priceCalls.Load())
}
