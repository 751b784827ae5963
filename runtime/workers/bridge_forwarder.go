package workers

import (
	"context"
	"log/slog"

	"restaurant-hub/contract"
	"restaurant-hub/domain/event"
	"restaurant-hub/metrics"
)

// BridgeForwarder drains the events published on this node and hands
// them to the bridge. A failed publish is logged and not retried: the
// other nodes miss that event, like an offline client would.
type BridgeForwarder struct {
	log      *slog.Logger
	bridge   contract.Bridge
	origin   string
	outbound <-chan event.DomainEvent
}

func NewBridgeForwarder(log *slog.Logger, bridge contract.Bridge, origin string, outbound <-chan event.DomainEvent) *BridgeForwarder {
	return &BridgeForwarder{log: log, bridge: bridge, origin: origin, outbound: outbound}
}

func (w *BridgeForwarder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping bridge forwarder")
			return nil
		case evt := <-w.outbound:
			if err := w.bridge.Publish(ctx, event.Envelope{Origin: w.origin, Event: evt}); err != nil {
				metrics.BridgeEvents.WithLabelValues("out", "error").Inc()
				w.log.Warn("Bridge publish failed", "event_id", evt.ID, "type", string(evt.Type), "error", err)
				continue
			}
			metrics.BridgeEvents.WithLabelValues("out", "ok").Inc()
		}
	}
}
