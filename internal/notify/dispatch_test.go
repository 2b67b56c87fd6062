package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/ariefcatur/hackathon-hardware-desk/internal/orders"
	"github.com/ariefcatur/hackathon-hardware-desk/internal/snapshot"
	"github.com/ariefcatur/hackathon-hardware-desk/internal/subscriptions"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type delivery struct {
	OrderID string
	Status  orders.Status
	Note    string
}

type recordingDeliverer struct {
	mu  sync.Mutex
	got []delivery
	err error
}

func (r *recordingDeliverer) Deliver(_ context.Context, orderID string, status orders.Status, note string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, delivery{orderID, status, note})
	return r.err
}

func (r *recordingDeliverer) deliveries() []delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]delivery(nil), r.got...)
}

type capturePublisher struct {
	keys    [][]byte
	values  [][]byte
	headers [][]kafkago.Header
}

func (c *capturePublisher) Publish(key, value []byte, headers ...kafkago.Header) {
	c.keys = append(c.keys, key)
	c.values = append(c.values, value)
	c.headers = append(c.headers, headers)
}

func TestAsyncDispatcher_DeliversInOrder(t *testing.T) {
	d := &recordingDeliverer{}
	a := NewAsyncDispatcher(d, 8)
	a.Start()

	a.Send(context.Background(), "o-1", orders.StatusApproved, "")
	a.Send(context.Background(), "o-2", orders.StatusDenied, "out of stock")
	a.Close()
	a.WaitClosed()

	assert.Equal(t, []delivery{
		{"o-1", orders.StatusApproved, ""},
		{"o-2", orders.StatusDenied, "out of stock"},
	}, d.deliveries())
}

func TestAsyncDispatcher_DropsWhenFull(t *testing.T) {
	d := &recordingDeliverer{}
	a := NewAsyncDispatcher(d, 1)

	// not started yet: the second send finds the queue full
	a.Send(context.Background(), "o-1", orders.StatusApproved, "")
	a.Send(context.Background(), "o-2", orders.StatusApproved, "")

	a.Start()
	a.Close()
	a.WaitClosed()

	got := d.deliveries()
	require.Len(t, got, 1)
	assert.Equal(t, "o-1", got[0].OrderID)
}

func TestAsyncDispatcher_SurvivesCancelledRequest(t *testing.T) {
	d := &recordingDeliverer{err: assert.AnError}
	a := NewAsyncDispatcher(d, 1)
	ctx, cancel := context.WithCancel(context.Background())
	a.Send(ctx, "o-1", orders.StatusCancelled, "")
	cancel()

	a.Start()
	a.Close()
	a.WaitClosed()
	assert.Len(t, d.deliveries(), 1)
}

func TestAsyncDispatcher_SendAfterCloseDrops(t *testing.T) {
	d := &recordingDeliverer{}
	a := NewAsyncDispatcher(d, 4)
	a.Start()
	a.Close()
	a.WaitClosed()

	assert.NotPanics(t, func() {
		a.Send(context.Background(), "late", orders.StatusApproved, "")
	})
	assert.NotPanics(t, a.Close)
	assert.Empty(t, d.deliveries())
}

func TestKafkaDispatcher_PublishesEnvelope(t *testing.T) {
	pub := &capturePublisher{}
	k := &KafkaDispatcher{Producer: pub, Service: "hardware-desk"}

	k.Send(context.Background(), "o-7", orders.StatusApproved, "see you")

	require.Len(t, pub.values, 1)
	assert.Equal(t, []byte("o-7"), pub.keys[0])

	var ev orders.Envelope
	require.NoError(t, json.Unmarshal(pub.values[0], &ev))
	assert.Equal(t, orders.EventOrderStatusChanged, ev.EventType)
	assert.Equal(t, "hardware-desk", ev.Producer)
	assert.Equal(t, "o-7", ev.CorrelationID)
	assert.NotEmpty(t, ev.EventID)
	assert.JSONEq(t, `{"order_id":"o-7","status":"approved","note":"see you"}`, string(ev.Payload))
	assert.Equal(t, "x-event-type", pub.headers[0][0].Key)
}

func TestStatusChangedHandler_DeliversPublishedEvents(t *testing.T) {
	pub := &capturePublisher{}
	k := &KafkaDispatcher{Producer: pub, Service: "hardware-desk"}
	k.Send(context.Background(), "o-1", orders.StatusDenied, "sorry")

	d := &recordingDeliverer{err: assert.AnError}
	h := &StatusChangedHandler{Deliverer: d, Service: "notifier"}

	// a failed delivery is still committed
	require.NoError(t, h.Handle(context.Background(), kafkago.Message{Value: pub.values[0]}))
	assert.Equal(t, []delivery{{"o-1", orders.StatusDenied, "sorry"}}, d.deliveries())
}

type memDedup struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (m *memDedup) FirstSeen(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen == nil {
		m.seen = map[string]bool{}
	}
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	return true, nil
}

func publishedEvent(t *testing.T, orderID string, status orders.Status) kafkago.Message {
	t.Helper()
	pub := &capturePublisher{}
	(&KafkaDispatcher{Producer: pub, Service: "hardware-desk"}).Send(context.Background(), orderID, status, "")
	require.Len(t, pub.values, 1)
	return kafkago.Message{Key: pub.keys[0], Value: pub.values[0]}
}

func TestStatusChangedHandler_DuplicateDeliveredOnce(t *testing.T) {
	d := &recordingDeliverer{}
	h := &StatusChangedHandler{Deliverer: d, Dedup: &memDedup{}, Service: "notifier"}
	m := publishedEvent(t, "o-1", orders.StatusApproved)

	require.NoError(t, h.Handle(context.Background(), m))
	require.NoError(t, h.Handle(context.Background(), m))
	assert.Len(t, d.deliveries(), 1)
}

func TestStatusChangedHandler_ReloadFailureIsRetried(t *testing.T) {
	snap := snapshot.NewMemory()
	snap.FailLoad[snapshot.Subscriptions] = errors.New("db down")
	d := &recordingDeliverer{}
	h := &StatusChangedHandler{
		Deliverer: d,
		Subs:      subscriptions.NewStore(snap),
		Dedup:     &memDedup{},
		Service:   "notifier",
	}
	m := publishedEvent(t, "o-1", orders.StatusDenied)

	assert.Error(t, h.Handle(context.Background(), m))
	assert.Empty(t, d.deliveries())

	delete(snap.FailLoad, snapshot.Subscriptions)
	require.NoError(t, h.Handle(context.Background(), m))
	assert.Equal(t, []delivery{{"o-1", orders.StatusDenied, ""}}, d.deliveries())
}

func TestStatusChangedHandler_SkipsForeignAndMalformed(t *testing.T) {
	d := &recordingDeliverer{}
	h := &StatusChangedHandler{Deliverer: d}

	assert.NoError(t, h.Handle(context.Background(), kafkago.Message{Value: []byte("not json")}))
	assert.NoError(t, h.Handle(context.Background(), kafkago.Message{Value: []byte(`{"event_type":"OrderCreated","payload":{}}`)}))
	assert.NoError(t, h.Handle(context.Background(), kafkago.Message{Value: []byte(`{"event_type":"OrderStatusChanged","payload":"x"}`)}))
	assert.Empty(t, d.deliveries())
}
