package app

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	blockchainDomain "github.com/fd1az/transfer-dashboard/business/blockchain/domain"
	"github.com/fd1az/transfer-dashboard/business/transfer/domain"
	"github.com/fd1az/transfer-dashboard/internal/logger"
	"github.com/fd1az/transfer-dashboard/internal/retry"
)

// PollerConfig holds configuration for the status poller.
type PollerConfig struct {
	Interval time.Duration
	Lookup   retry.Policy
}

// DefaultPollerConfig polls every 3s, each cycle retrying 5 times a second apart.
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{Interval: 3 * time.Second, Lookup: retry.LookupPolicy()}
}

// StatusListener receives status changes.
type StatusListener func(domain.StatusUpdate)

type target struct {
	hash    common.Hash
	chainID uint64
}

// StatusPoller tracks one (hash, chain) pair at a time and reports when the
// transaction is first seen in a block. Failed lookups leave the status as is.
type StatusPoller struct {
	lookup TxLookup
	cfg    PollerConfig
	logger logger.LoggerInterface

	mu        sync.Mutex
	target    target
	status    domain.TxStatus
	block     uint64
	gen       uint64
	cancel    context.CancelFunc
	listeners []StatusListener
}

// NewStatusPoller creates an idle poller.
func NewStatusPoller(lookup TxLookup, cfg PollerConfig, log logger.LoggerInterface) *StatusPoller {
	if cfg.Interval <= 0 {
		cfg.Interval = 3 * time.Second
	}
	if cfg.Lookup.Attempts == 0 {
		cfg.Lookup = retry.LookupPolicy()
	}
	return &StatusPoller{
		lookup: lookup,
		cfg:    cfg,
		logger: log,
		status: domain.StatusIdle,
	}
}

// OnUpdate registers a listener. Listeners run on the polling goroutine, or on
// the caller's goroutine for Track and Clear.
func (p *StatusPoller) OnUpdate(fn StatusListener) {
	p.mu.Lock()
	p.listeners = append(p.listeners, fn)
	p.mu.Unlock()
}

// Status returns the current status and, when included, the block number.
func (p *StatusPoller) Status() (domain.TxStatus, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status, p.block
}

// Track starts polling hash on chainID until the pair reaches a terminal
// status, ctx is cancelled or Clear is called. Tracking the pair already
// tracked is a no-op; any other pair replaces it. A zero hash or chain clears
// the poller.
func (p *StatusPoller) Track(ctx context.Context, chainID uint64, hash common.Hash) {
	if hash == (common.Hash{}) || chainID == 0 {
		p.Clear()
		return
	}

	t := target{hash: hash, chainID: chainID}

	p.mu.Lock()
	if p.cancel != nil && p.target == t {
		p.mu.Unlock()
		return
	}
	p.stopLocked()

	loopCtx, cancel := context.WithCancel(ctx)
	p.gen++
	p.target = t
	p.status = domain.StatusPending
	p.block = 0
	p.cancel = cancel
	gen := p.gen
	update := p.updateLocked()
	listeners := p.listeners
	p.mu.Unlock()

	notify(listeners, update)

	go p.loop(loopCtx, gen, t)
}

// Clear stops polling and resets to idle. A lookup already in flight may
// still finish, but it no longer changes the poller's status.
func (p *StatusPoller) Clear() {
	p.mu.Lock()
	wasTracking := p.cancel != nil
	p.stopLocked()
	p.gen++
	p.target = target{}
	p.status = domain.StatusIdle
	p.block = 0
	update := p.updateLocked()
	listeners := p.listeners
	p.mu.Unlock()

	if wasTracking {
		notify(listeners, update)
	}
}

func (p *StatusPoller) stopLocked() {
	if p.cancel != nil {
		p.cancel()
	}
	p.cancel = nil
}

func (p *StatusPoller) updateLocked() domain.StatusUpdate {
	return domain.StatusUpdate{
		Hash:        p.target.hash,
		ChainID:     p.target.chainID,
		Status:      p.status,
		BlockNumber: p.block,
	}
}

func (p *StatusPoller) loop(ctx context.Context, gen uint64, t target) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.check(ctx, gen, t) {
				return
			}
		}
	}
}

// check runs one lookup cycle and reports whether polling can stop.
func (p *StatusPoller) check(ctx context.Context, gen uint64, t target) bool {
	tx, err := retry.Do(ctx, p.cfg.Lookup, func(ctx context.Context) (*blockchainDomain.TxDetails, error) {
		return p.lookup.LookupTransaction(ctx, t.chainID, t.hash)
	})
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Debug(ctx, "status lookup failed", "hash", t.hash.Hex(), "error", err)
		}
		return false
	}
	if tx == nil || !tx.Included() {
		return false
	}

	p.mu.Lock()
	if p.gen != gen {
		p.mu.Unlock()
		return true
	}
	p.status = domain.StatusIncluded
	p.block = *tx.BlockNumber
	update := p.updateLocked()
	listeners := p.listeners
	p.mu.Unlock()

	p.logger.Info(ctx, "transaction included", "hash", t.hash.Hex(), "block", update.BlockNumber)
	notify(listeners, update)
	return true
}

func notify(listeners []StatusListener, u domain.StatusUpdate) {
	for _, fn := range listeners {
		fn(u)
	}
}
