// Package bus decouples the Slack socket loop from the dispatcher with an
// in-process event queue.
package bus

import (
	"log/slog"
	"sync"
	"time"

	"esabot/internal/domain"
)

const publishTimeout = 10 * time.Second

// InMemoryBus is a Go-channel based queue for inbound events.
type InMemoryBus struct {
	inbound chan domain.InboundEvent
	mu      sync.RWMutex
	closed  bool
	logger  *slog.Logger
}

// New creates an InMemoryBus with the given buffer size.
func New(bufferSize int, logger *slog.Logger) *InMemoryBus {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &InMemoryBus{
		inbound: make(chan domain.InboundEvent, bufferSize),
		logger:  logger,
	}
}

// Publish enqueues an event. When the queue is full it blocks up to ten
// seconds before dropping; this is a best-effort notification pipeline, not
// a guaranteed-delivery one.
func (b *InMemoryBus) Publish(ev domain.InboundEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		b.logger.Warn("attempted to publish to closed bus")
		return
	}

	select {
	case b.inbound <- ev:
	default:
		b.logger.Warn("inbound bus full, waiting...", "channel", ev.Channel, "ts", ev.Timestamp)
		timer := time.NewTimer(publishTimeout)
		defer timer.Stop()
		select {
		case b.inbound <- ev:
			b.logger.Info("event delivered after wait", "channel", ev.Channel)
		case <-timer.C:
			b.logger.Error("event dropped: bus full",
				"channel", ev.Channel,
				"ts", ev.Timestamp,
			)
		}
	}
}

// Subscribe returns the inbound event stream. The channel closes when the
// bus closes.
func (b *InMemoryBus) Subscribe() <-chan domain.InboundEvent {
	return b.inbound
}

// Close shuts the bus down. Subsequent publishes are dropped.
func (b *InMemoryBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.closed {
		b.closed = true
		close(b.inbound)
	}
}
