package asset

import (
	"fmt"
	"strings"

	"github.com/fd1az/transfer-dashboard/internal/apperror"
)

// Chain IDs the dashboard knows about.
const (
	ChainIDEthereum      uint64 = 1
	ChainIDOptimism      uint64 = 10
	ChainIDGnosis        uint64 = 100
	ChainIDBase          uint64 = 8453
	ChainIDGnosisChiado  uint64 = 10200
	ChainIDArbitrum      uint64 = 42161
	ChainIDBaseSepolia   uint64 = 84532
	ChainIDSepolia       uint64 = 11155111
	NativeDecimals       uint8  = 18
	nativeSentinelSymbol        = "native"
)

// Chain describes per-network metadata consumed by adapters and the UI.
type Chain struct {
	ID           uint64
	Name         string
	NativeSymbol string
	// Explorer is the block explorer origin, empty when none is known.
	Explorer string
	// AlchemySlug is the subdomain used to build RPC URLs.
	AlchemySlug string
	// MoralisSlug is the chain name the token API expects.
	MoralisSlug string
}

var chains = map[uint64]Chain{
	ChainIDEthereum: {
		ID: ChainIDEthereum, Name: "Ethereum", NativeSymbol: "ETH",
		Explorer: "https://etherscan.io", AlchemySlug: "eth-mainnet", MoralisSlug: "eth",
	},
	ChainIDSepolia: {
		ID: ChainIDSepolia, Name: "Sepolia", NativeSymbol: "ETH",
		Explorer: "https://sepolia.etherscan.io", AlchemySlug: "eth-sepolia", MoralisSlug: "sepolia",
	},
	ChainIDArbitrum: {
		ID: ChainIDArbitrum, Name: "Arbitrum One", NativeSymbol: "ETH",
		AlchemySlug: "arb-mainnet", MoralisSlug: "arbitrum",
	},
	ChainIDOptimism: {
		ID: ChainIDOptimism, Name: "OP Mainnet", NativeSymbol: "ETH",
		AlchemySlug: "opt-mainnet", MoralisSlug: "optimism",
	},
	ChainIDGnosis: {
		ID: ChainIDGnosis, Name: "Gnosis", NativeSymbol: "xDAI",
		Explorer: "https://gnosisscan.io", AlchemySlug: "gnosis-mainnet", MoralisSlug: "gnosis",
	},
	ChainIDGnosisChiado: {
		ID: ChainIDGnosisChiado, Name: "Gnosis Chiado", NativeSymbol: "xDAI",
		MoralisSlug: "gnosis testnet",
	},
	ChainIDBase: {
		ID: ChainIDBase, Name: "Base", NativeSymbol: "ETH",
		Explorer: "https://basescan.org", AlchemySlug: "base-mainnet",
	},
	ChainIDBaseSepolia: {
		ID: ChainIDBaseSepolia, Name: "Base Sepolia", NativeSymbol: "ETH",
		Explorer: "https://sepolia.basescan.org", AlchemySlug: "base-sepolia", MoralisSlug: "base sepolia",
	},
}

// LookupChain returns metadata for id.
func LookupChain(id uint64) (Chain, bool) {
	c, ok := chains[id]
	return c, ok
}

// MustChain returns metadata for id or a CodeUnsupportedChain error.
func MustChain(id uint64) (Chain, error) {
	c, ok := chains[id]
	if !ok {
		return Chain{}, apperror.Validation(apperror.CodeUnsupportedChain, fmt.Sprintf("chain id %d", id))
	}
	return c, nil
}

// Native returns the native coin asset for the chain.
func (c Chain) Native() *Asset {
	symbol := c.NativeSymbol
	if symbol == "" {
		symbol = nativeSentinelSymbol
	}
	return MustNewAsset(NativeID(c.ID), symbol, c.Name+" native", NativeDecimals)
}

// TxURL links to a transaction on the chain's explorer, or "" when unknown.
func (c Chain) TxURL(hash string) string {
	if c.Explorer == "" || hash == "" {
		return ""
	}
	return c.Explorer + "/tx/" + hash
}

// RPCURL builds an Alchemy endpoint for the chain.
func (c Chain) RPCURL(apiKey string) (string, error) {
	if c.AlchemySlug == "" {
		return "", apperror.Validation(apperror.CodeUnsupportedChain,
			fmt.Sprintf("no rpc slug for chain id %d", c.ID))
	}
	return fmt.Sprintf("https://%s.g.alchemy.com/v2/%s", c.AlchemySlug, strings.TrimSpace(apiKey)), nil
}

// ExplorerTxURL is a convenience over LookupChain and TxURL.
func ExplorerTxURL(chainID uint64, hash string) string {
	c, ok := chains[chainID]
	if !ok {
		return ""
	}
	return c.TxURL(hash)
}
