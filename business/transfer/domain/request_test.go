package domain

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/transfer-dashboard/internal/apperror"
	"github.com/fd1az/transfer-dashboard/internal/asset"
)

var (
	sepoliaETH  = asset.MustNewAsset(asset.NativeID(asset.ChainIDSepolia), "ETH", "Sepolia Ether", 18)
	sepoliaUSDC = asset.MustNewAsset(
		asset.TokenID(asset.ChainIDSepolia, common.HexToAddress("0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238")),
		"USDC", "USD Coin", 6)
)

const recipientHex = "0x2222222222222222222222222222222222222222"

func TestRequest_Validate(t *testing.T) {
	tests := []struct {
		name     string
		req      Request
		wantCode apperror.Code
		wantRaw  string
	}{
		{"native", Request{Token: sepoliaETH, Amount: "1.5", Recipient: recipientHex}, "", "1500000000000000000"},
		{"token", Request{Token: sepoliaUSDC, Amount: "25.000001", Recipient: recipientHex}, "", "25000001"},
		{"no token", Request{Amount: "1", Recipient: recipientHex}, apperror.CodeInvalidInput, ""},
		{"zero amount", Request{Token: sepoliaETH, Amount: "0", Recipient: recipientHex}, apperror.CodeInvalidAmount, ""},
		{"negative amount", Request{Token: sepoliaETH, Amount: "-1", Recipient: recipientHex}, apperror.CodeInvalidAmount, ""},
		{"too precise", Request{Token: sepoliaUSDC, Amount: "0.0000001", Recipient: recipientHex}, apperror.CodeInvalidAmount, ""},
		{"garbage amount", Request{Token: sepoliaETH, Amount: "abc", Recipient: recipientHex}, apperror.CodeInvalidAmount, ""},
		{"short recipient", Request{Token: sepoliaETH, Amount: "1", Recipient: "0x1234"}, apperror.CodeInvalidRecipient, ""},
		{"unprefixed recipient", Request{Token: sepoliaETH, Amount: "1", Recipient: recipientHex[2:]}, apperror.CodeInvalidRecipient, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.req.Validate()
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, apperror.GetCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRaw, got.Amount.Raw().String())
			assert.Equal(t, common.HexToAddress(recipientHex), got.Recipient)
		})
	}
}

func TestTransfer_Call(t *testing.T) {
	native, err := Request{Token: sepoliaETH, Amount: "0.1", Recipient: recipientHex}.Validate()
	require.NoError(t, err)
	call := native.Call()
	assert.True(t, call.IsNative())
	assert.Equal(t, "100000000000000000", call.Amount.String())

	token, err := Request{Token: sepoliaUSDC, Amount: "3", Recipient: recipientHex}.Validate()
	require.NoError(t, err)
	call = token.Call()
	require.NotNil(t, call.Token)
	assert.Equal(t, sepoliaUSDC.Address(), *call.Token)
	assert.Equal(t, "3000000", call.Amount.String())
}

func TestTransfer_Submission(t *testing.T) {
	tr, err := Request{Token: sepoliaUSDC, Amount: "2.50", Recipient: recipientHex}.Validate()
	require.NoError(t, err)

	at := time.UnixMilli(1234)
	sub := tr.Submission(common.HexToHash("0xabc"), at)
	assert.Equal(t, "2.5", sub.Amount)
	assert.Equal(t, "USDC", sub.TokenSymbol)
	assert.False(t, sub.IsNativeToken)
	assert.Equal(t, at, sub.SubmittedAt)
}
