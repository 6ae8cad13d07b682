package events

import (
	"context"
	"log/slog"
	"sync"

	"musicchain/core/types"
)

// Event represents a structured state change emitted by the ledger.
type Event interface {
	EventType() string
}

// Payload is implemented by events that carry a structured attribute map.
type Payload interface {
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

type envelope struct {
	evt *types.Event
}

func (e envelope) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e envelope) Event() *types.Event { return e.evt }

// Wrap converts a raw event payload into the emitter-friendly envelope.
func Wrap(evt *types.Event) Event { return envelope{evt: evt} }

// Recorder keeps every emitted event in memory. Tests use it to assert the
// notifications produced by a call.
type Recorder struct {
	mu     sync.Mutex
	events []*types.Event
}

// Emit implements the Emitter interface.
func (r *Recorder) Emit(evt Event) {
	payload, ok := evt.(Payload)
	if !ok || payload.Event() == nil {
		return
	}
	r.mu.Lock()
	r.events = append(r.events, payload.Event())
	r.mu.Unlock()
}

// Events returns the recorded events in emission order.
func (r *Recorder) Events() []*types.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*types.Event(nil), r.events...)
}

// OfType returns the recorded events matching the supplied type.
func (r *Recorder) OfType(eventType string) []*types.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Event
	for _, evt := range r.events {
		if evt.Type == eventType {
			out = append(out, evt)
		}
	}
	return out
}

// Reset drops all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

// LogEmitter writes every event to a structured logger.
type LogEmitter struct {
	Logger *slog.Logger
}

// Emit implements the Emitter interface.
func (l LogEmitter) Emit(evt Event) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []slog.Attr{slog.String("type", evt.EventType())}
	if payload, ok := evt.(Payload); ok && payload.Event() != nil {
		fields := make([]any, 0, len(payload.Event().Attributes))
		for key, value := range payload.Event().Attributes {
			fields = append(fields, slog.String(key, value))
		}
		attrs = append(attrs, slog.Group("attributes", fields...))
	}
	logger.LogAttrs(context.Background(), slog.LevelInfo, "event", attrs...)
}

// Multi fans events out to every non-nil emitter.
type Multi []Emitter

// Emit implements the Emitter interface.
func (m Multi) Emit(evt Event) {
	for _, emitter := range m {
		if emitter != nil {
			emitter.Emit(evt)
		}
	}
}
