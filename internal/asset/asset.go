// Package asset models chain assets and exact minor-unit amounts.
// Amounts are big.Int in the smallest denomination; decimal.Decimal only
// appears when parsing user input or formatting for display.
package asset

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// AssetID identifies an asset by chain and contract address. The zero
// address stands for the chain's native coin.
type AssetID struct {
	chainID uint64
	address common.Address
}

// NativeID returns the id of a chain's native coin.
func NativeID(chainID uint64) AssetID {
	return AssetID{chainID: chainID}
}

// TokenID returns the id of an ERC-20 contract.
func TokenID(chainID uint64, addr common.Address) AssetID {
	return AssetID{chainID: chainID, address: addr}
}

func (id AssetID) ChainID() uint64         { return id.chainID }
func (id AssetID) Address() common.Address { return id.address }
func (id AssetID) IsNative() bool          { return id.address == (common.Address{}) }

func (id AssetID) String() string {
	if id.IsNative() {
		return fmt.Sprintf("chain:%d/native", id.chainID)
	}
	return fmt.Sprintf("chain:%d/%s", id.chainID, strings.ToLower(id.address.Hex()))
}

// Asset is immutable token metadata.
type Asset struct {
	id       AssetID
	symbol   string
	name     string
	decimals uint8
}

// NewAsset creates asset metadata. Decimals above 36 are rejected as bogus.
func NewAsset(id AssetID, symbol, name string, decimals uint8) (*Asset, error) {
	if symbol == "" {
		return nil, fmt.Errorf("asset: empty symbol for %s", id)
	}
	if decimals > 36 {
		return nil, fmt.Errorf("asset: suspicious decimals %d for %s", decimals, symbol)
	}
	return &Asset{id: id, symbol: symbol, name: name, decimals: decimals}, nil
}

// MustNewAsset is NewAsset for static tables.
func MustNewAsset(id AssetID, symbol, name string, decimals uint8) *Asset {
	a, err := NewAsset(id, symbol, name, decimals)
	if err != nil {
		panic(err)
	}
	return a
}

func (a *Asset) ID() AssetID             { return a.id }
func (a *Asset) Symbol() string          { return a.symbol }
func (a *Asset) Decimals() uint8         { return a.decimals }
func (a *Asset) ChainID() uint64         { return a.id.chainID }
func (a *Asset) Address() common.Address { return a.id.address }
func (a *Asset) IsNative() bool          { return a.id.IsNative() }
func (a *Asset) String() string          { return a.symbol }

// Name falls back to the symbol when unset.
func (a *Asset) Name() string {
	if a.name == "" {
		return a.symbol
	}
	return a.name
}

// Equals compares by id.
func (a *Asset) Equals(other *Asset) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.id == other.id
}
