package observability

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"musicchain/core/events"
)

// EventCounter counts committed marketplace events by type. It satisfies
// events.Emitter so it can sit behind events.Multi.
type EventCounter struct {
	emitted *prometheus.CounterVec
}

var (
	eventCounterOnce sync.Once
	eventCounter     *EventCounter
)

// Events returns the lazily-initialised event counter on the default registerer.
func Events() *EventCounter {
	eventCounterOnce.Do(func() {
		eventCounter = NewEventCounter(prometheus.DefaultRegisterer)
	})
	return eventCounter
}

// NewEventCounter builds an event counter registered on reg.
func NewEventCounter(reg prometheus.Registerer) *EventCounter {
	c := &EventCounter{
		emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "music",
			Subsystem: "events",
			Name:      "emitted_total",
			Help:      "Count of committed marketplace events segmented by type.",
		}, []string{"type"}),
	}
	if reg != nil {
		reg.MustRegister(c.emitted)
	}
	return c
}

// Emit implements events.Emitter.
func (c *EventCounter) Emit(evt events.Event) {
	if c == nil || evt == nil {
		return
	}
	kind := strings.TrimSpace(evt.EventType())
	if kind == "" {
		return
	}
	c.emitted.WithLabelValues(kind).Inc()
}
