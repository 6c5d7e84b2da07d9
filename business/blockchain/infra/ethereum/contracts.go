package ethereum

import (
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/transfer-dashboard/business/blockchain/domain"
)

// ERC20ABI is the subset of the ERC-20 interface used for transfers.
const ERC20ABI = `[
	{
		"constant": false,
		"inputs": [
			{"name": "to", "type": "address"},
			{"name": "value", "type": "uint256"}
		],
		"name": "transfer",
		"outputs": [{"name": "", "type": "bool"}],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [{"name": "owner", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

var (
	erc20Once   sync.Once
	erc20Parsed abi.ABI
	erc20Err    error
)

func erc20() (abi.ABI, error) {
	erc20Once.Do(func() {
		erc20Parsed, erc20Err = abi.JSON(strings.NewReader(ERC20ABI))
	})
	return erc20Parsed, erc20Err
}

// ERC20TransferData packs transfer(to, amount) calldata.
func ERC20TransferData(to common.Address, amount *big.Int) ([]byte, error) {
	parsed, err := erc20()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	return parsed.Pack("transfer", to, amount)
}

// transferMsg builds the call a transfer would make. Native transfers carry
// value; token transfers call the contract with zero value.
func transferMsg(call domain.TransferCall) (ethereum.CallMsg, error) {
	amount := call.Amount
	if amount == nil {
		amount = new(big.Int)
	}

	if call.IsNative() {
		to := call.To
		return ethereum.CallMsg{From: call.From, To: &to, Value: new(big.Int).Set(amount)}, nil
	}

	data, err := ERC20TransferData(call.To, amount)
	if err != nil {
		return ethereum.CallMsg{}, err
	}
	token := *call.Token
	return ethereum.CallMsg{From: call.From, To: &token, Data: data}, nil
}
