package infra

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fd1az/transfer-dashboard/business/transfer/domain"
)

// tuiQueueSize bounds messages waiting for the TUI event loop.
const tuiQueueSize = 256

// MessageSender is satisfied by *tea.Program.
type MessageSender interface {
	Send(msg tea.Msg)
}

// TUIReporter implements Reporter for Bubble Tea TUI. Snapshots and
// notifications are forwarded as messages; the model type-switches on
// domain.Snapshot and domain.Notification.
//
// tea.Program.Send blocks until the event loop takes the message, and the
// model calls back into the controller from Update. Messages are therefore
// queued and delivered in order by a single goroutine, and dropped when the
// queue is full.
type TUIReporter struct {
	mu      sync.RWMutex
	program MessageSender

	queue     chan tea.Msg
	stop      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewTUIReporter creates a new TUIReporter. Messages sent before a program
// is attached are dropped.
func NewTUIReporter() *TUIReporter {
	return &TUIReporter{
		queue: make(chan tea.Msg, tuiQueueSize),
		stop:  make(chan struct{}),
	}
}

// Attach sets the program messages are sent to.
func (r *TUIReporter) Attach(p MessageSender) {
	r.mu.Lock()
	r.program = p
	r.mu.Unlock()
}

// Start begins delivering queued messages.
func (r *TUIReporter) Start(ctx context.Context) error {
	r.startOnce.Do(func() {
		go r.pump()
	})
	return nil
}

// Report sends a lifecycle snapshot to the TUI.
func (r *TUIReporter) Report(snap domain.Snapshot) {
	r.Send(snap)
}

// Notify sends a notification to the TUI.
func (r *TUIReporter) Notify(n domain.Notification) {
	r.Send(n)
}

// Send queues any message for the TUI without blocking.
func (r *TUIReporter) Send(msg tea.Msg) {
	r.mu.RLock()
	attached := r.program != nil
	r.mu.RUnlock()
	if !attached {
		return
	}

	select {
	case <-r.stop:
		return
	default:
	}

	select {
	case r.queue <- msg:
	default:
	}
}

// Stop detaches the program and ends delivery.
func (r *TUIReporter) Stop() error {
	r.stopOnce.Do(func() {
		close(r.stop)
	})
	r.Attach(nil)
	return nil
}

func (r *TUIReporter) pump() {
	for {
		select {
		case <-r.stop:
			return
		case msg := <-r.queue:
			r.mu.RLock()
			p := r.program
			r.mu.RUnlock()
			if p != nil {
				p.Send(msg)
			}
		}
	}
}
