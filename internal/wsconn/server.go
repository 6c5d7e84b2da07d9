package wsconn

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fd1az/transfer-dashboard/internal/logger"
)

// StreamPath is where the hub is mounted.
const StreamPath = "/stream"

// Server serves a Hub on its own port.
type Server struct {
	hub    *Hub
	server *http.Server
	logger logger.LoggerInterface
}

// NewServer mounts hub at StreamPath on port.
func NewServer(port int, hub *Hub, log logger.LoggerInterface) *Server {
	mux := http.NewServeMux()
	mux.Handle(StreamPath, hub)

	return &Server{
		hub: hub,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: log,
	}
}

// Start serves in the background.
func (s *Server) Start() {
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(context.Background(), "stream server stopped", "addr", s.server.Addr, "error", err)
		}
	}()
}

// Stop closes the hub so streaming handlers return, then shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.hub.Close(); err != nil {
		return err
	}
	return s.server.Shutdown(ctx)
}
