package infra

import (
	"context"

	"github.com/fd1az/transfer-dashboard/business/transfer/domain"
	"github.com/fd1az/transfer-dashboard/internal/logger"
)

// Broadcaster is satisfied by *wsconn.Hub.
type Broadcaster interface {
	Broadcast(v any) error
}

// Envelope is the stream message wrapper.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

const (
	EnvelopeSnapshot     = "snapshot"
	EnvelopeNotification = "notification"
)

// StreamReporter implements Reporter by broadcasting to stream clients.
type StreamReporter struct {
	hub    Broadcaster
	logger logger.LoggerInterface
}

// NewStreamReporter creates a new StreamReporter.
func NewStreamReporter(hub Broadcaster, log logger.LoggerInterface) *StreamReporter {
	return &StreamReporter{hub: hub, logger: log}
}

// Start is a no-op; the hub is served by the stream server.
func (r *StreamReporter) Start(ctx context.Context) error {
	return nil
}

// Report broadcasts a snapshot.
func (r *StreamReporter) Report(snap domain.Snapshot) {
	r.broadcast(Envelope{Type: EnvelopeSnapshot, Data: snap})
}

// Notify broadcasts a notification.
func (r *StreamReporter) Notify(n domain.Notification) {
	r.broadcast(Envelope{Type: EnvelopeNotification, Data: n})
}

// Stop is a no-op.
func (r *StreamReporter) Stop() error {
	return nil
}

func (r *StreamReporter) broadcast(e Envelope) {
	if err := r.hub.Broadcast(e); err != nil {
		r.logger.Warn(context.Background(), "stream broadcast failed", "type", e.Type, "error", err)
	}
}
