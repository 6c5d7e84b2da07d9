package asset_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/transfer-dashboard/internal/asset"
)

var (
	eth  = asset.MustNewAsset(asset.NativeID(asset.ChainIDEthereum), "ETH", "Ether", 18)
	usdc = asset.MustNewAsset(asset.TokenID(asset.ChainIDEthereum,
		common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")), "USDC", "USD Coin", 6)
)

func TestAmount_ParseAndFormat(t *testing.T) {
	amt, err := asset.ParseString(eth, "1.5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if amt.Raw().String() != "1500000000000000000" {
		t.Errorf("raw = %s", amt.Raw())
	}
	if amt.Text() != "1.5" {
		t.Errorf("text = %s", amt.Text())
	}
	if amt.String() != "1.5 ETH" {
		t.Errorf("string = %s", amt.String())
	}
}

func TestAmount_SubFloor(t *testing.T) {
	tests := []struct {
		name    string
		balance int64
		reserve int64
		want    int64
	}{
		{"positive", 1000, 400, 600},
		{"exact", 500, 500, 0},
		{"negative clamps", 100, 500, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := asset.MustAmount(eth, big.NewInt(tt.balance))
			r := asset.MustAmount(eth, big.NewInt(tt.reserve))
			got, err := b.SubFloor(r)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Raw().Int64() != tt.want {
				t.Errorf("got %s, want %d", got.Raw(), tt.want)
			}
		})
	}
}

func TestAmount_AssetMismatch(t *testing.T) {
	a := asset.MustAmount(eth, big.NewInt(1))
	b := asset.MustAmount(usdc, big.NewInt(1))

	if _, err := a.Add(b); !errors.Is(err, asset.ErrAssetMismatch) {
		t.Errorf("Add error = %v", err)
	}
	if a.GreaterThan(b) {
		t.Error("mismatched assets should not compare greater")
	}
}

func TestAmount_PercentAndFiat(t *testing.T) {
	bal := asset.MustAmount(usdc, big.NewInt(1_000_001))

	if got := bal.Percent(25).Raw().Int64(); got != 250_000 {
		t.Errorf("25%% = %d", got)
	}
	if got := bal.Percent(100).Raw().Int64(); got != 1_000_001 {
		t.Errorf("100%% = %d", got)
	}

	value := asset.MustAmount(eth, big.NewInt(2e18)).FiatValue(decimal.RequireFromString("3000.5"))
	if !value.Equal(decimal.RequireFromString("6001")) {
		t.Errorf("fiat value = %s", value)
	}
}

func TestNewAmount_RejectsNegative(t *testing.T) {
	if _, err := asset.NewAmount(eth, big.NewInt(-1)); !errors.Is(err, asset.ErrNegativeAmount) {
		t.Errorf("err = %v", err)
	}
	if _, err := asset.NewAmount(nil, big.NewInt(1)); !errors.Is(err, asset.ErrNilAsset) {
		t.Errorf("err = %v", err)
	}
}

func TestChain_ExplorerAndRPC(t *testing.T) {
	tests := []struct {
		chainID uint64
		want    string
	}{
		{asset.ChainIDEthereum, "https://etherscan.io/tx/0xabc"},
		{asset.ChainIDSepolia, "https://sepolia.etherscan.io/tx/0xabc"},
		{asset.ChainIDGnosis, "https://gnosisscan.io/tx/0xabc"},
		{asset.ChainIDBase, "https://basescan.org/tx/0xabc"},
		{asset.ChainIDBaseSepolia, "https://sepolia.basescan.org/tx/0xabc"},
		{asset.ChainIDArbitrum, ""},
		{999, ""},
	}
	for _, tt := range tests {
		if got := asset.ExplorerTxURL(tt.chainID, "0xabc"); got != tt.want {
			t.Errorf("chain %d: got %q, want %q", tt.chainID, got, tt.want)
		}
	}

	c, err := asset.MustChain(asset.ChainIDSepolia)
	if err != nil {
		t.Fatal(err)
	}
	url, err := c.RPCURL("key")
	if err != nil || url != "https://eth-sepolia.g.alchemy.com/v2/key" {
		t.Errorf("rpc url = %q, %v", url, err)
	}
	if _, err := asset.MustChain(999); err == nil {
		t.Error("unknown chain should fail")
	}
}

func TestRegistry(t *testing.T) {
	r := asset.NewRegistry()
	if _, ok := r.Native(asset.ChainIDGnosis); !ok {
		t.Fatal("native coin of gnosis should be seeded")
	}

	r.Upsert(usdc)
	got, ok := r.BySymbol(asset.ChainIDEthereum, "usdc")
	if !ok || !got.Equals(usdc) {
		t.Errorf("BySymbol = %v, %v", got, ok)
	}
	if _, ok := r.Token(asset.ChainIDEthereum, usdc.Address()); !ok {
		t.Error("Token lookup failed")
	}
}
