package asset

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Registry remembers asset metadata seen in token lists so amounts can be
// rebuilt from (chain, address) alone.
type Registry struct {
	mu   sync.RWMutex
	byID map[AssetID]*Asset
}

// NewRegistry returns a registry seeded with the native coin of every known chain.
func NewRegistry() *Registry {
	r := &Registry{byID: make(map[AssetID]*Asset)}
	for _, c := range chains {
		r.byID[NativeID(c.ID)] = c.Native()
	}
	return r
}

// Upsert stores a, replacing any previous metadata with the same id.
func (r *Registry) Upsert(a *Asset) {
	if a == nil {
		return
	}
	r.mu.Lock()
	r.byID[a.ID()] = a
	r.mu.Unlock()
}

// Get looks up an asset by id.
func (r *Registry) Get(id AssetID) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	return a, ok
}

// Native returns the native coin of chainID.
func (r *Registry) Native(chainID uint64) (*Asset, bool) {
	return r.Get(NativeID(chainID))
}

// Token looks up an ERC-20 by address.
func (r *Registry) Token(chainID uint64, addr common.Address) (*Asset, bool) {
	return r.Get(TokenID(chainID, addr))
}

// BySymbol finds the first asset on chainID with the symbol, case-insensitively.
func (r *Registry) BySymbol(chainID uint64, symbol string) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, a := range r.byID {
		if id.ChainID() == chainID && strings.EqualFold(a.Symbol(), symbol) {
			return a, true
		}
	}
	return nil, false
}

// Count returns the number of known assets.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
