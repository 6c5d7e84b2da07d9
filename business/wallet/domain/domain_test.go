package domain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/transfer-dashboard/internal/asset"
)

var (
	alice = common.HexToAddress("0x1111111111111111111111111111111111111111")
	bob   = common.HexToAddress("0x2222222222222222222222222222222222222222")
	usdc  = common.HexToAddress("0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238")
)

func TestDiff(t *testing.T) {
	connected := Session{Account: alice, ChainID: 11155111, Connected: true}

	tests := []struct {
		name     string
		prev     Session
		next     Session
		want     ChangeKind
		changed  bool
		invalids bool
	}{
		{"no change", connected, connected, "", false, false},
		{"connect", Session{}, connected, ChangeConnected, true, false},
		{"disconnect", connected, Session{}, ChangeDisconnected, true, true},
		{"account switch", connected, Session{Account: bob, ChainID: 11155111, Connected: true}, ChangeAccountChanged, true, true},
		{"chain switch", connected, Session{Account: alice, ChainID: 1, Connected: true}, ChangeChainChanged, true, true},
		{"both switch reports account", connected, Session{Account: bob, ChainID: 1, Connected: true}, ChangeAccountChanged, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Diff(tt.prev, tt.next)
			assert.Equal(t, tt.changed, ok)
			assert.Equal(t, tt.want, got.Kind)
			if ok {
				assert.Equal(t, tt.invalids, got.Invalidates())
			}
		})
	}
}

func TestPortfolio_Find(t *testing.T) {
	eth := asset.MustNewAsset(asset.NativeID(11155111), "ETH", "Sepolia Ether", 18)
	usdcAsset := asset.MustNewAsset(asset.TokenID(11155111, usdc), "USDC", "USD Coin", 6)

	p := Portfolio{Account: alice, ChainID: 11155111, Tokens: []Token{
		{Asset: eth, Balance: big.NewInt(1)},
		{Asset: usdcAsset, Balance: big.NewInt(2)},
	}}

	tok, ok := p.Find("native")
	require.True(t, ok)
	assert.True(t, tok.IsNative())

	tok, ok = p.Find("usdc")
	require.True(t, ok)
	assert.Equal(t, "USDC", tok.Symbol())

	tok, ok = p.Find(usdc.Hex())
	require.True(t, ok)
	assert.Equal(t, "USDC", tok.Symbol())

	_, ok = p.Find(bob.Hex())
	assert.False(t, ok)
	_, ok = p.Find("DAI")
	assert.False(t, ok)
}

func TestToken_UsdValue(t *testing.T) {
	usdcAsset := asset.MustNewAsset(asset.TokenID(11155111, usdc), "USDC", "USD Coin", 6)
	price := decimal.RequireFromString("0.9998")
	tok := Token{Asset: usdcAsset, Balance: big.NewInt(10_000_000), UsdPrice: &price}

	amt, err := asset.ParseString(usdcAsset, "12.5")
	require.NoError(t, err)
	assert.Equal(t, "12.5", tok.UsdValue(amt).String())

	tok.UsdPrice = nil
	assert.True(t, tok.UsdValue(amt).IsZero())
	assert.Equal(t, "10", tok.BalanceAmount().Text())
}
