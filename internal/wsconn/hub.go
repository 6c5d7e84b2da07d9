// Package wsconn serves WebSocket clients and fans JSON messages out to them.
package wsconn

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/fd1az/transfer-dashboard/internal/apperror"
	"github.com/fd1az/transfer-dashboard/internal/logger"
)

// State represents the hub state.
type State string

const (
	StateOpen   State = "open"
	StateClosed State = "closed"
)

// Config holds hub configuration.
type Config struct {
	WriteTimeout time.Duration
	// ClientBuffer is how many messages may queue per client before it is
	// dropped as a slow consumer.
	ClientBuffer int
	PingInterval time.Duration
	// OriginPatterns are passed to websocket.Accept; empty allows same origin.
	OriginPatterns []string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		WriteTimeout: 5 * time.Second,
		ClientBuffer: 16,
		PingInterval: 30 * time.Second,
	}
}

type client struct {
	send   chan []byte
	cancel context.CancelFunc
}

// Hub accepts WebSocket clients and broadcasts to all of them. New clients
// receive the last broadcast message first.
type Hub struct {
	config Config
	logger logger.LoggerInterface

	mu      sync.Mutex
	clients map[*client]struct{}
	last    []byte
	state   State
	wg      sync.WaitGroup
}

// NewHub creates a new Hub.
func NewHub(config Config, log logger.LoggerInterface) *Hub {
	if config.ClientBuffer <= 0 {
		config.ClientBuffer = 16
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}
	return &Hub{
		config:  config,
		logger:  log,
		clients: make(map[*client]struct{}),
		state:   StateOpen,
	}
}

// ServeHTTP upgrades the request and streams messages until the client goes
// away or the hub closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.config.OriginPatterns})
	if err != nil {
		h.logger.Warn(r.Context(), "websocket accept failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	c := &client{send: make(chan []byte, h.config.ClientBuffer), cancel: cancel}

	h.mu.Lock()
	if h.state == StateClosed {
		h.mu.Unlock()
		cancel()
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	h.clients[c] = struct{}{}
	if h.last != nil {
		c.send <- h.last
	}
	h.wg.Add(1)
	h.mu.Unlock()

	defer h.wg.Done()
	defer h.remove(c)

	h.logger.Debug(ctx, "stream client connected", "remote", r.RemoteAddr)

	// The stream is one way; CloseRead handles control frames and cancels
	// ctx when the peer disconnects.
	ctx = conn.CloseRead(ctx)

	status, reason := h.writeLoop(ctx, conn, c)
	conn.Close(status, reason)
	h.logger.Debug(ctx, "stream client disconnected", "remote", r.RemoteAddr, "reason", reason)
}

func (h *Hub) writeLoop(ctx context.Context, conn *websocket.Conn, c *client) (websocket.StatusCode, string) {
	var ping <-chan time.Time
	if h.config.PingInterval > 0 {
		ticker := time.NewTicker(h.config.PingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return websocket.StatusGoingAway, "closed"
		case msg, ok := <-c.send:
			if !ok {
				return websocket.StatusPolicyViolation, "slow consumer"
			}
			if err := h.write(ctx, conn, msg); err != nil {
				return websocket.StatusInternalError, "write failed"
			}
		case <-ping:
			pctx, cancel := context.WithTimeout(ctx, h.config.WriteTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				return websocket.StatusGoingAway, "ping failed"
			}
		}
	}
}

func (h *Hub) write(ctx context.Context, conn *websocket.Conn, msg []byte) error {
	wctx, cancel := context.WithTimeout(ctx, h.config.WriteTimeout)
	defer cancel()
	if err := conn.Write(wctx, websocket.MessageText, msg); err != nil {
		return apperror.New(apperror.CodeStreamSendError, apperror.WithCause(err))
	}
	return nil
}

// Broadcast marshals v once and queues it for every client. Clients whose
// queue is full are disconnected.
func (h *Hub) Broadcast(v any) error {
	msg, err := json.Marshal(v)
	if err != nil {
		return apperror.New(apperror.CodeStreamSendError, apperror.WithCause(err))
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == StateClosed {
		return nil
	}
	h.last = msg
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			delete(h.clients, c)
			close(c.send)
		}
	}
	return nil
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// State returns the hub state.
func (h *Hub) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Close disconnects every client and waits for their handlers to return.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.state == StateClosed {
		h.mu.Unlock()
		return nil
	}
	h.state = StateClosed
	for c := range h.clients {
		c.cancel()
	}
	h.mu.Unlock()

	h.wg.Wait()
	return nil
}

func (h *Hub) remove(c *client) {
	c.cancel()
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}
