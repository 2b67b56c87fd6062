package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	kafkax "github.com/ariefcatur/hackathon-hardware-desk/internal/kafka"
	"github.com/ariefcatur/hackathon-hardware-desk/internal/orders"
	"github.com/ariefcatur/hackathon-hardware-desk/internal/redisx"
	"github.com/ariefcatur/hackathon-hardware-desk/internal/subscriptions"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
	kafkago "github.com/segmentio/kafka-go"
)

const eventVersion = 1

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// KafkaDispatcher publishes status changes as OrderStatusChanged events for
// the notifier worker to deliver.
type KafkaDispatcher struct {
	Producer Publisher
	Service  string
	Now      func() time.Time
}

func (k *KafkaDispatcher) Send(ctx context.Context, orderID string, status orders.Status, note string) {
	now := time.Now().UTC()
	if k.Now != nil {
		now = k.Now()
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderStatusChanged,
		EventVersion:  eventVersion,
		OccurredAt:    now,
		Producer:      k.Service,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(orders.OrderStatusChangedPayload{OrderID: orderID, Status: status, Note: note}),
	}
	k.Producer.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderStatusChanged)},
		kafkago.Header{Key: "x-event-version", Value: []byte(strconv.Itoa(eventVersion))},
	)
}

// Deduper remembers processed keys; *redisx.Dedup in production.
type Deduper interface {
	FirstSeen(ctx context.Context, key string) (bool, error)
}

// StatusChangedHandler consumes OrderStatusChanged events and delivers them.
type StatusChangedHandler struct {
	Deliverer Deliverer
	// Subs, when set, is reloaded before each delivery to pick up
	// registrations made by the API process.
	Subs *subscriptions.Store
	// Dedup, when set, skips events already handled.
	Dedup Deduper
	// Service namespaces the dedup keys.
	Service string
}

// Handle returns an error only for failures worth redelivering, and only
// before the event is marked as seen. Malformed events and failed pushes are
// logged and committed.
func (h *StatusChangedHandler) Handle(ctx context.Context, m kafkago.Message) error {
	var ev orders.Envelope
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		zlog.Error().Err(err).Int64("offset", m.Offset).Msg("bad envelope, skipping")
		return nil
	}
	if ev.EventType != orders.EventOrderStatusChanged {
		return nil
	}
	p, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](ev.Payload)
	if err != nil {
		zlog.Error().Err(err).Str("event_id", ev.EventID).Msg("bad payload, skipping")
		return nil
	}

	if h.Subs != nil {
		if err := h.Subs.Reload(ctx); err != nil {
			return err
		}
	}

	if h.Dedup != nil {
		first, err := h.Dedup.FirstSeen(ctx, fmt.Sprintf(redisx.KeyDedup, h.Service, ev.EventID))
		if err != nil {
			return err
		}
		if !first {
			zlog.Debug().Str("event_id", ev.EventID).Msg("duplicate event")
			return nil
		}
	}
	if err := h.Deliverer.Deliver(ctx, p.OrderID, p.Status, p.Note); err != nil {
		zlog.Warn().Err(err).Str("order_id", p.OrderID).Str("event_id", ev.EventID).Msg("notification failed")
	}
	return nil
}
