package stream

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"token-settlement-gateway/internal/core/domain"
	"token-settlement-gateway/internal/core/ports"
	"token-settlement-gateway/pkg/metrics"
)

// Broadcaster fans a lifecycle event out to every observer registered
// against the event's merchant id and/or payment id. An observer subscribed
// to both keys receives exactly one copy. A failed delivery to one observer
// is logged and never aborts delivery to the rest, nor the transition that
// produced the event.
type Broadcaster struct {
	registry *Registry
	log      zerolog.Logger
}

// NewBroadcaster creates a broadcaster over the given registry.
func NewBroadcaster(registry *Registry, log zerolog.Logger) *Broadcaster {
	return &Broadcaster{registry: registry, log: log}
}

// Publish implements ports.EventPublisher.
func (b *Broadcaster) Publish(event domain.Event) {
	targets := make(map[ObserverID]Observer)
	if event.MerchantID != uuid.Nil {
		b.registry.collect(MerchantKey(event.MerchantID.String()), targets)
	}
	if event.PaymentID != uuid.Nil {
		b.registry.collect(PaymentKey(event.PaymentID.String()), targets)
	}

	for id, sink := range targets {
		if err := sink.Deliver(event); err != nil {
			metrics.EventsDroppedTotal.Inc()
			b.log.Warn().
				Err(err).
				Uint64("observer", uint64(id)).
				Str("type", string(event.Type)).
				Str("payment_id", event.PaymentID.String()).
				Msg("event delivery failed for observer")
			continue
		}
		metrics.EventsDeliveredTotal.WithLabelValues(string(event.Type)).Inc()
	}
}

// Fanout publishes each event to every wrapped publisher in order. It lets
// the wiring layer hang the merchant webhook notifier next to the
// broadcaster behind a single ports.EventPublisher.
type Fanout []ports.EventPublisher

// Publish implements ports.EventPublisher.
func (f Fanout) Publish(event domain.Event) {
	for _, p := range f {
		p.Publish(event)
	}
}
