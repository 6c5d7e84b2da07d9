package app

import (
	"context"
	"sync"
	"time"

	"github.com/fd1az/transfer-dashboard/business/gas/domain"
	"github.com/fd1az/transfer-dashboard/internal/logger"
)

// SnapshotListener receives each accepted fee snapshot.
type SnapshotListener func(domain.FeeTierSnapshot)

// FeeFeed keeps the latest fee suggestions for the active chain, refreshing
// on a fixed interval. Invalid or failed fetches keep the previous snapshot.
type FeeFeed struct {
	provider FeeSuggestionProvider
	interval time.Duration
	logger   logger.LoggerInterface

	mu        sync.RWMutex
	latest    map[uint64]domain.FeeTierSnapshot
	chainID   uint64
	cancel    context.CancelFunc
	done      chan struct{}
	listeners []SnapshotListener
	lastErr   error
}

// NewFeeFeed creates a feed. Call SetChain to start refreshing.
func NewFeeFeed(provider FeeSuggestionProvider, interval time.Duration, log logger.LoggerInterface) *FeeFeed {
	if interval <= 0 {
		interval = 12 * time.Second
	}
	return &FeeFeed{
		provider: provider,
		interval: interval,
		logger:   log,
		latest:   make(map[uint64]domain.FeeTierSnapshot),
	}
}

// OnSnapshot registers a listener.
func (f *FeeFeed) OnSnapshot(fn SnapshotListener) {
	f.mu.Lock()
	f.listeners = append(f.listeners, fn)
	f.mu.Unlock()
}

// Latest returns the last good snapshot for chainID.
func (f *FeeFeed) Latest(chainID uint64) (domain.FeeTierSnapshot, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	s, ok := f.latest[chainID]
	return s, ok
}

// ActiveChain returns the chain being refreshed, 0 when stopped.
func (f *FeeFeed) ActiveChain() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.chainID
}

// LastError returns the error of the most recent refresh, if it failed.
func (f *FeeFeed) LastError() error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.lastErr
}

// SetChain switches the refreshed chain. The loop is restarted and fetches
// immediately. chainID 0 stops refreshing.
func (f *FeeFeed) SetChain(ctx context.Context, chainID uint64) {
	f.Stop()
	if chainID == 0 {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	f.mu.Lock()
	f.chainID = chainID
	f.cancel = cancel
	f.done = done
	f.mu.Unlock()

	go f.loop(loopCtx, chainID, done)
}

// Stop halts refreshing and waits for the loop to exit.
func (f *FeeFeed) Stop() {
	f.mu.Lock()
	cancel, done := f.cancel, f.done
	f.cancel, f.done = nil, nil
	f.chainID = 0
	f.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Refresh fetches once for chainID and stores the result when valid.
func (f *FeeFeed) Refresh(ctx context.Context, chainID uint64) (domain.FeeTierSnapshot, error) {
	snap, err := f.provider.Suggest(ctx, chainID)
	if err == nil {
		err = snap.Validate()
	}
	if err != nil {
		f.mu.Lock()
		f.lastErr = err
		f.mu.Unlock()
		f.logger.Warn(ctx, "fee suggestion refresh failed", "chain_id", chainID, "error", err)
		return domain.FeeTierSnapshot{}, err
	}

	s := *snap
	s.ChainID = chainID
	if s.FetchedAt.IsZero() {
		s.FetchedAt = time.Now()
	}

	f.mu.Lock()
	f.latest[chainID] = s
	f.lastErr = nil
	listeners := append([]SnapshotListener(nil), f.listeners...)
	f.mu.Unlock()

	for _, fn := range listeners {
		fn(s)
	}
	return s, nil
}

func (f *FeeFeed) loop(ctx context.Context, chainID uint64, done chan struct{}) {
	defer close(done)

	_, _ = f.Refresh(ctx, chainID)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = f.Refresh(ctx, chainID)
		}
	}
}
