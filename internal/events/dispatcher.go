// Package events provides a lightweight synchronous event dispatcher
// used to fan out audit-relevant application events.
package events

import (
	"log/slog"
	"sync"
)

// Event names emitted by the gateway.
const (
	AuthIssued       = "auth.issued"
	AuthRevoked      = "auth.revoked"
	DownloadResolved = "download.resolved"
)

// Listener handles a dispatched event.
type Listener func(event string, payload map[string]any)

// Dispatcher is a simple synchronous dispatcher for application events.
// Listener panics are isolated and logged so one listener cannot break
// another.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners map[string][]Listener
	logger    *slog.Logger
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		listeners: make(map[string][]Listener),
		logger:    logger,
	}
}

// Subscribe registers a listener for the given event.
func (d *Dispatcher) Subscribe(event string, listener Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[event] = append(d.listeners[event], listener)
}

// Dispatch delivers the event to every subscribed listener in order.
func (d *Dispatcher) Dispatch(event string, payload map[string]any) {
	if d == nil {
		return
	}
	d.mu.RLock()
	listeners := d.listeners[event]
	d.mu.RUnlock()

	for _, listener := range listeners {
		d.deliver(event, payload, listener)
	}
}

func (d *Dispatcher) deliver(event string, payload map[string]any, listener Listener) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("event listener panicked", slog.String("event", event), slog.Any("panic", r))
		}
	}()
	listener(event, payload)
}

// AuditListener returns a listener that records events to the logger.
func AuditListener(logger *slog.Logger) Listener {
	return func(event string, payload map[string]any) {
		attrs := make([]any, 0, len(payload)*2)
		for key, value := range payload {
			attrs = append(attrs, slog.Any(key, value))
		}
		logger.Info("audit: "+event, attrs...)
	}
}
