package domain

import (
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	blockchainDomain "github.com/fd1az/transfer-dashboard/business/blockchain/domain"
	"github.com/fd1az/transfer-dashboard/internal/apperror"
	"github.com/fd1az/transfer-dashboard/internal/asset"
)

// Request is a transfer as entered by the user.
type Request struct {
	Token     *asset.Asset
	Amount    string
	Recipient string
}

// Transfer is a validated request ready for submission.
type Transfer struct {
	Token     *asset.Asset
	Amount    asset.Amount
	Recipient common.Address
}

// Validate checks the recipient is a hex address and the amount a decimal
// greater than zero within the token precision.
func (r Request) Validate() (Transfer, error) {
	if r.Token == nil {
		return Transfer{}, apperror.Validation(apperror.CodeInvalidInput, "no token selected")
	}

	recipient, err := ParseRecipient(r.Recipient)
	if err != nil {
		return Transfer{}, err
	}

	amount, err := asset.ParseString(r.Token, r.Amount)
	if err != nil {
		return Transfer{}, err
	}
	if !amount.IsPositive() {
		return Transfer{}, apperror.Validation(apperror.CodeInvalidAmount, "amount must be greater than zero")
	}

	return Transfer{Token: r.Token, Amount: amount, Recipient: recipient}, nil
}

// ParseRecipient accepts a 0x-prefixed 20 byte hex address.
func ParseRecipient(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return common.Address{}, apperror.Validation(apperror.CodeInvalidRecipient, "missing 0x prefix")
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, apperror.Validation(apperror.CodeInvalidRecipient, s)
	}
	return common.HexToAddress(s), nil
}

// Call converts t into the chain-level transfer call.
func (t Transfer) Call() blockchainDomain.TransferCall {
	call := blockchainDomain.TransferCall{
		To:     t.Recipient,
		Amount: t.Amount.Raw(),
	}
	if !t.Token.IsNative() {
		token := t.Token.Address()
		call.Token = &token
	}
	return call
}

// Submission builds the pending payload for hash.
func (t Transfer) Submission(hash common.Hash, at time.Time) Submission {
	return Submission{
		Hash:          hash,
		SubmittedAt:   at,
		Amount:        t.Amount.Text(),
		Recipient:     t.Recipient,
		TokenSymbol:   t.Token.Symbol(),
		IsNativeToken: t.Token.IsNative(),
	}
}
