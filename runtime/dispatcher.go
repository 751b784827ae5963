package runtime

import (
	"log/slog"
	"sync"

	"restaurant-hub/domain/event"
	"restaurant-hub/metrics"

	"github.com/samber/lo"
)

// Dispatcher fans events out to the current members of their target
// rooms. Publishing is serialized, so every connection receives events in
// publish order.
type Dispatcher struct {
	mu       sync.Mutex
	log      *slog.Logger
	registry *Registry
	outbound chan<- event.DomainEvent
}

// NewDispatcher builds a dispatcher. When outbound is not nil every local
// publish is also queued there for the other nodes.
func NewDispatcher(log *slog.Logger, registry *Registry, outbound chan<- event.DomainEvent) *Dispatcher {
	return &Dispatcher{log: log, registry: registry, outbound: outbound}
}

// Publish delivers locally and forwards to the bridge without blocking.
func (d *Dispatcher) Publish(evt event.DomainEvent) {
	d.deliver(evt, "local")
	if d.outbound == nil {
		return
	}
	select {
	case d.outbound <- evt:
	default:
		metrics.BridgeEvents.WithLabelValues("out", "dropped").Inc()
		d.log.Warn("Bridge queue full, event not forwarded", "event_id", evt.ID, "type", string(evt.Type))
	}
}

// PublishLocal delivers to this node only and reports how many
// connections were reached.
func (d *Dispatcher) PublishLocal(evt event.DomainEvent) int {
	return d.deliver(evt, "bridge")
}

func (d *Dispatcher) deliver(evt event.DomainEvent, origin string) int {
	metrics.EventsPublished.WithLabelValues(string(evt.Type), origin).Inc()
	frames, err := event.EncodeFrames(evt)
	if err != nil {
		d.log.Error("Event not encodable, dropped", "event_id", evt.ID, "type", string(evt.Type), "error", err)
		return 0
	}
	rooms := lo.Uniq(evt.TargetRooms)

	d.mu.Lock()
	defer d.mu.Unlock()

	recipients := d.registry.MembersOfAll(rooms)
	for _, id := range recipients {
		for _, frame := range frames {
			d.registry.Deliver(id, frame)
		}
	}
	metrics.EventRecipients.Observe(float64(len(recipients)))
	d.log.Debug("Event dispatched",
		"event_id", evt.ID,
		"type", string(evt.Type),
		"rooms", len(rooms),
		"recipients", len(recipients))
	return len(recipients)
}
