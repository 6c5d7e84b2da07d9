// Package health serves liveness, readiness and dependency status over HTTP.
//
// Checks are either critical or advisory. A failing critical check marks the
// process down and fails readiness; a failing advisory check only degrades
// the reported status.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fd1az/transfer-dashboard/internal/logger"
)

const defaultCheckTimeout = 3 * time.Second

// Overall states reported in Status.Status.
const (
	StateOK       = "ok"
	StateDegraded = "degraded"
	StateDown     = "down"
)

// Status is the /health response body.
type Status struct {
	Status    string           `json:"status"`
	Checks    map[string]Check `json:"checks"`
	Version   string           `json:"version,omitempty"`
	Timestamp string           `json:"timestamp"`
}

// Check is the result of one probe.
type Check struct {
	Healthy   bool   `json:"healthy"`
	Critical  bool   `json:"critical"`
	Message   string `json:"message,omitempty"`
	LatencyMs int64  `json:"latencyMs"`
}

// CheckFunc probes one dependency.
type CheckFunc func(ctx context.Context) (bool, string)

// Ping turns an error-returning probe into a CheckFunc.
func Ping(probe func(ctx context.Context) error) CheckFunc {
	return func(ctx context.Context) (bool, string) {
		if err := probe(ctx); err != nil {
			return false, err.Error()
		}
		return true, ""
	}
}

// Freshness fails when the value reported by last is missing or older than
// maxAge.
func Freshness(last func() (time.Time, bool), maxAge time.Duration, now func() time.Time) CheckFunc {
	if now == nil {
		now = time.Now
	}
	return func(context.Context) (bool, string) {
		at, ok := last()
		if !ok || at.IsZero() {
			return false, "no data yet"
		}
		age := now().Sub(at)
		if age > maxAge {
			return false, fmt.Sprintf("stale for %s", age.Round(time.Second))
		}
		return true, fmt.Sprintf("updated %s ago", age.Round(time.Second))
	}
}

type registered struct {
	fn       CheckFunc
	critical bool
	timeout  time.Duration
}

// CheckOption configures a registered check.
type CheckOption func(*registered)

// Advisory keeps a failing check from marking the process down.
func Advisory() CheckOption {
	return func(r *registered) { r.critical = false }
}

// WithTimeout bounds a single probe.
func WithTimeout(d time.Duration) CheckOption {
	return func(r *registered) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// Server provides the health endpoints.
type Server struct {
	port    int
	version string
	logger  logger.LoggerInterface

	mu     sync.RWMutex
	checks map[string]registered

	server   *http.Server
	listener net.Listener
}

// NewServer creates a health server for port. Port 0 picks a free one.
func NewServer(port int, version string, log logger.LoggerInterface) *Server {
	return &Server{
		port:    port,
		version: version,
		logger:  log,
		checks:  make(map[string]registered),
	}
}

// RegisterCheck adds or replaces a check. Checks are critical by default.
func (s *Server) RegisterCheck(name string, fn CheckFunc, opts ...CheckOption) {
	r := registered{fn: fn, critical: true, timeout: defaultCheckTimeout}
	for _, opt := range opts {
		opt(&r)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = r
}

// Handler returns the endpoint mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.HandleFunc("GET /live", s.handleLive)
	return mux
}

// Start binds the port and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("health listen: %w", err)
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn(context.Background(), "health server stopped", "addr", ln.Addr().String(), "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address, empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Run executes every check concurrently, each under its own timeout.
func (s *Server) Run(ctx context.Context) Status {
	s.mu.RLock()
	checks := make(map[string]registered, len(s.checks))
	for k, v := range s.checks {
		checks[k] = v
	}
	s.mu.RUnlock()

	var (
		mu      sync.Mutex
		results = make(map[string]Check, len(checks))
	)
	g, gctx := errgroup.WithContext(ctx)
	for name, r := range checks {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, r.timeout)
			defer cancel()

			start := time.Now()
			healthy, msg := r.fn(cctx)
			if !healthy && msg == "" && cctx.Err() != nil {
				msg = cctx.Err().Error()
			}

			mu.Lock()
			results[name] = Check{
				Healthy:   healthy,
				Critical:  r.critical,
				Message:   msg,
				LatencyMs: time.Since(start).Milliseconds(),
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	status := Status{
		Status:    StateOK,
		Checks:    results,
		Version:   s.version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := results[name]
		if c.Healthy {
			continue
		}
		s.logger.Debug(ctx, "health check failed", "check", name, "critical", c.Critical, "message", c.Message)
		if c.Critical {
			status.Status = StateDown
		} else if status.Status == StateOK {
			status.Status = StateDegraded
		}
	}
	return status
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.Run(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if status.Status == StateDown {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Debug(r.Context(), "write health response", "error", err)
	}
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.Run(r.Context()).Status == StateDown {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("alive"))
}
