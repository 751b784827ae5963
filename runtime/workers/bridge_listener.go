package workers

import (
	"context"
	"log/slog"

	"restaurant-hub/contract"
	"restaurant-hub/domain/event"
	"restaurant-hub/metrics"
)

type localPublisher interface {
	PublishLocal(evt event.DomainEvent) int
}

// BridgeListener delivers events published on other nodes to the
// connections of this node. Copies of our own events are skipped since
// they were already delivered when published.
type BridgeListener struct {
	log    *slog.Logger
	bridge contract.Bridge
	origin string
	local  localPublisher
}

func NewBridgeListener(log *slog.Logger, bridge contract.Bridge, origin string, local localPublisher) *BridgeListener {
	return &BridgeListener{log: log, bridge: bridge, origin: origin, local: local}
}

func (w *BridgeListener) Run(ctx context.Context) error {
	err := w.bridge.Subscribe(ctx, func(env event.Envelope) {
		if env.Origin == w.origin {
			return
		}
		metrics.BridgeEvents.WithLabelValues("in", "ok").Inc()
		recipients := w.local.PublishLocal(env.Event)
		w.log.Debug("Bridge event delivered",
			"origin", env.Origin,
			"event_id", env.Event.ID,
			"type", string(env.Event.Type),
			"recipients", recipients)
	})
	if ctx.Err() != nil {
		return nil
	}
	return err
}
