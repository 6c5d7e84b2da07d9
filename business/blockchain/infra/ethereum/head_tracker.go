package ethereum

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/transfer-dashboard/business/blockchain/app"
	"github.com/fd1az/transfer-dashboard/business/blockchain/domain"
	"github.com/fd1az/transfer-dashboard/internal/apperror"
	"github.com/fd1az/transfer-dashboard/internal/circuitbreaker"
	"github.com/fd1az/transfer-dashboard/internal/logger"
)

var _ app.HeadTracker = (*HeadTracker)(nil)

// HeadTrackerConfig holds configuration for the head tracker.
type HeadTrackerConfig struct {
	WSURL          string        // WebSocket endpoint, empty = poll only
	PollInterval   time.Duration // polling interval over HTTP
	ReconnectDelay time.Duration // delay before redialing the WebSocket
	BufferSize     int           // block channel buffer size
}

// DefaultHeadTrackerConfig returns sensible defaults.
func DefaultHeadTrackerConfig(wsURL string) HeadTrackerConfig {
	return HeadTrackerConfig{
		WSURL:          wsURL,
		PollInterval:   4 * time.Second,
		ReconnectDelay: 5 * time.Second,
		BufferSize:     16,
	}
}

type headTrackerMetrics struct {
	blocksReceived   metric.Int64Counter
	subscribeErrors  metric.Int64Counter
	connectionState  metric.Int64Gauge
	httpFallbackUsed metric.Int64Counter
}

// HeadTracker follows new heads over WebSocket and falls back to polling
// the HTTP node when the subscription is unavailable.
type HeadTracker struct {
	config HeadTrackerConfig
	rpc    RPC
	logger logger.LoggerInterface

	wsClient *ethclient.Client
	clientMu sync.RWMutex

	state      domain.ConnectionState
	stateMu    sync.RWMutex
	usingHTTP  atomic.Bool
	lastBlock  atomic.Uint64
	lastUpdate atomic.Int64
	reconnects atomic.Int32

	blocks     chan *domain.Block
	done       chan struct{}
	wg         sync.WaitGroup
	closeOnce  sync.Once
	closed     atomic.Bool
	subscribed atomic.Bool

	httpCB *circuitbreaker.CircuitBreaker[*types.Header]

	tracer  trace.Tracer
	metrics *headTrackerMetrics
}

// NewHeadTracker creates a tracker polling through rpc when needed.
func NewHeadTracker(cfg HeadTrackerConfig, rpc RPC, log logger.LoggerInterface) (*HeadTracker, error) {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 4 * time.Second
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 16
	}

	h := &HeadTracker{
		config: cfg,
		rpc:    rpc,
		logger: log,
		state:  domain.StateDisconnected,
		blocks: make(chan *domain.Block, cfg.BufferSize),
		done:   make(chan struct{}),
		tracer: otel.Tracer(tracerName),
	}

	if err := h.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	cbCfg := circuitbreaker.DefaultConfig("eth-http-heads")
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Info(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	h.httpCB = circuitbreaker.New[*types.Header](cbCfg)

	return h, nil
}

func (h *HeadTracker) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	h.metrics = &headTrackerMetrics{}

	h.metrics.blocksReceived, err = meter.Int64Counter(
		"eth_blocks_received_total",
		metric.WithDescription("Total heads received"),
		metric.WithUnit("{block}"),
	)
	if err != nil {
		return err
	}

	h.metrics.subscribeErrors, err = meter.Int64Counter(
		"eth_subscribe_errors_total",
		metric.WithDescription("Total head subscription errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	h.metrics.connectionState, err = meter.Int64Gauge(
		"eth_connection_state",
		metric.WithDescription("Node connection state (0=disconnected, 1=connecting, 2=connected, 3=reconnecting)"),
		metric.WithUnit("{state}"),
	)
	if err != nil {
		return err
	}

	h.metrics.httpFallbackUsed, err = meter.Int64Counter(
		"eth_http_fallback_total",
		metric.WithDescription("Times HTTP polling replaced the subscription"),
		metric.WithUnit("{fallback}"),
	)
	return err
}

// Subscribe starts following heads. It may be called once.
func (h *HeadTracker) Subscribe(ctx context.Context) (<-chan *domain.Block, error) {
	ctx, span := h.tracer.Start(ctx, "eth.subscribe_heads",
		trace.WithAttributes(attribute.Bool("ws", h.config.WSURL != "")),
	)
	defer span.End()

	if h.closed.Load() {
		err := errors.New("head tracker is closed")
		span.RecordError(err)
		return nil, err
	}
	if !h.subscribed.CompareAndSwap(false, true) {
		return h.blocks, nil
	}

	h.setState(domain.StateConnecting)

	if err := h.connectWS(ctx); err != nil {
		if h.config.WSURL != "" {
			h.logger.Warn(ctx, "ws connection failed, polling over http", "error", err)
			h.metrics.httpFallbackUsed.Add(ctx, 1)
		}
		span.AddEvent("polling_http")
		h.startPoller(ctx)
	} else {
		h.wg.Add(1)
		go h.runWSSubscription(ctx)
	}

	h.setState(domain.StateConnected)
	span.SetStatus(codes.Ok, "subscribed")
	return h.blocks, nil
}

func (h *HeadTracker) connectWS(ctx context.Context) error {
	if h.config.WSURL == "" {
		return errors.New("ws url not configured")
	}

	client, err := ethclient.DialContext(ctx, h.config.WSURL)
	if err != nil {
		return fmt.Errorf("dial ws: %w", err)
	}

	h.clientMu.Lock()
	h.wsClient = client
	h.clientMu.Unlock()
	return nil
}

func (h *HeadTracker) runWSSubscription(ctx context.Context) {
	defer h.wg.Done()

	h.clientMu.RLock()
	client := h.wsClient
	h.clientMu.RUnlock()

	headers := make(chan *types.Header, h.config.BufferSize)
	sub, err := client.SubscribeNewHead(ctx, headers)
	if err != nil {
		h.logger.Error(ctx, "subscribe new head failed", "error", err)
		h.metrics.subscribeErrors.Add(ctx, 1)
		h.handleWSDisconnect(ctx)
		return
	}
	defer sub.Unsubscribe()

	h.logger.Info(ctx, "subscribed to new heads via ws")

	for {
		select {
		case <-h.done:
			return
		case <-ctx.Done():
			return
		case err := <-sub.Err():
			if err != nil {
				h.logger.Error(ctx, "subscription error", "error", err)
				h.metrics.subscribeErrors.Add(ctx, 1)
			}
			h.handleWSDisconnect(ctx)
			return
		case header := <-headers:
			if header != nil {
				h.processHeader(ctx, header, false)
			}
		}
	}
}

// handleWSDisconnect redials once and otherwise switches to polling.
func (h *HeadTracker) handleWSDisconnect(ctx context.Context) {
	if h.closed.Load() {
		return
	}

	h.setState(domain.StateReconnecting)
	h.reconnects.Add(1)

	select {
	case <-h.done:
		return
	case <-ctx.Done():
		return
	case <-time.After(h.config.ReconnectDelay):
	}

	if err := h.connectWS(ctx); err != nil {
		h.logger.Warn(ctx, "ws reconnect failed, switching to http", "error", err)
		h.metrics.httpFallbackUsed.Add(ctx, 1)
		h.setState(domain.StateConnected)
		h.startPoller(ctx)
		return
	}

	h.usingHTTP.Store(false)
	h.setState(domain.StateConnected)
	h.wg.Add(1)
	go h.runWSSubscription(ctx)
}

func (h *HeadTracker) startPoller(ctx context.Context) {
	h.usingHTTP.Store(true)
	h.wg.Add(1)
	go h.runHTTPPoller(ctx)
}

func (h *HeadTracker) runHTTPPoller(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.config.PollInterval)
	defer ticker.Stop()

	h.logger.Info(ctx, "polling heads over http", "interval", h.config.PollInterval)
	h.pollLatestBlock(ctx)

	for {
		select {
		case <-h.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.pollLatestBlock(ctx)
		}
	}
}

func (h *HeadTracker) pollLatestBlock(ctx context.Context) {
	ctx, span := h.tracer.Start(ctx, "eth.poll_head")
	defer span.End()

	header, err := h.httpCB.Execute(func() (*types.Header, error) {
		return h.rpc.HeaderByNumber(ctx, nil)
	})
	if err != nil {
		span.RecordError(err)
		h.logger.Warn(ctx, "http head poll failed", "error", err)
		h.metrics.subscribeErrors.Add(ctx, 1)
		return
	}

	if header.Number.Uint64() <= h.lastBlock.Load() {
		span.AddEvent("duplicate_block")
		return
	}

	h.processHeader(ctx, header, true)
}

// processHeader records and emits a head without blocking.
func (h *HeadTracker) processHeader(ctx context.Context, header *types.Header, fromHTTP bool) {
	block := headerToBlock(header)
	h.lastBlock.Store(block.Number)
	h.lastUpdate.Store(time.Now().UnixNano())

	select {
	case h.blocks <- block:
		h.metrics.blocksReceived.Add(ctx, 1,
			metric.WithAttributes(attribute.Bool("from_http", fromHTTP)))
		h.logger.Debug(ctx, "head received", "number", block.Number, "from_http", fromHTTP)
	default:
		h.logger.Warn(ctx, "head dropped, buffer full", "number", block.Number)
	}
}

func headerToBlock(header *types.Header) *domain.Block {
	return &domain.Block{
		Number:    header.Number.Uint64(),
		Hash:      header.Hash(),
		Timestamp: time.Unix(int64(header.Time), 0),
		BaseFee:   header.BaseFee,
	}
}

// LatestBlock fetches the current head over HTTP.
func (h *HeadTracker) LatestBlock(ctx context.Context) (*domain.Block, error) {
	ctx, span := h.tracer.Start(ctx, "eth.latest_block")
	defer span.End()

	header, err := h.httpCB.Execute(func() (*types.Header, error) {
		return h.rpc.HeaderByNumber(ctx, nil)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext("failed to fetch latest block"))
	}

	block := headerToBlock(header)
	if block.Number > h.lastBlock.Load() {
		h.lastBlock.Store(block.Number)
	}
	return block, nil
}

// State returns the current connection state.
func (h *HeadTracker) State() domain.ConnectionState {
	h.stateMu.RLock()
	defer h.stateMu.RUnlock()
	return h.state
}

// Status returns detailed connection status.
func (h *HeadTracker) Status() domain.ConnectionStatus {
	var last time.Time
	if ns := h.lastUpdate.Load(); ns > 0 {
		last = time.Unix(0, ns)
	}
	return domain.ConnectionStatus{
		State:      h.State(),
		LastBlock:  h.lastBlock.Load(),
		LastUpdate: last,
		Reconnects: int(h.reconnects.Load()),
		UsingHTTP:  h.usingHTTP.Load(),
	}
}

// BlockNumber returns the highest head seen.
func (h *HeadTracker) BlockNumber() uint64 {
	return h.lastBlock.Load()
}

// Close stops the loops and closes the block channel.
func (h *HeadTracker) Close() error {
	h.closeOnce.Do(func() {
		h.logger.Info(context.Background(), "closing head tracker")
		h.closed.Store(true)
		close(h.done)
		h.wg.Wait()

		h.clientMu.Lock()
		if h.wsClient != nil {
			h.wsClient.Close()
			h.wsClient = nil
		}
		h.clientMu.Unlock()

		close(h.blocks)
		h.setState(domain.StateDisconnected)
	})
	return nil
}

func (h *HeadTracker) setState(state domain.ConnectionState) {
	h.stateMu.Lock()
	h.state = state
	h.stateMu.Unlock()

	h.metrics.connectionState.Record(context.Background(), state.Gauge())
}
