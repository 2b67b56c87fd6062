package notify

import (
	"context"
	"sync"
	"time"

	"github.com/ariefcatur/hackathon-hardware-desk/internal/metrics"
	"github.com/ariefcatur/hackathon-hardware-desk/internal/orders"
	zlog "github.com/rs/zerolog/log"
)

type job struct {
	ctx     context.Context
	orderID string
	status  orders.Status
	note    string
}

// AsyncDispatcher hands status changes to a Deliverer on a background
// goroutine so a slow push service never holds up the admin request.
type AsyncDispatcher struct {
	d       Deliverer
	inbox   chan job
	closeCh chan struct{}

	mu     sync.RWMutex
	closed bool

	// Timeout bounds each delivery attempt.
	Timeout time.Duration
}

func NewAsyncDispatcher(d Deliverer, buf int) *AsyncDispatcher {
	if buf <= 0 {
		buf = 1
	}
	return &AsyncDispatcher{
		d:       d,
		inbox:   make(chan job, buf),
		closeCh: make(chan struct{}),
		Timeout: 10 * time.Second,
	}
}

func (a *AsyncDispatcher) Start() {
	go func() {
		defer close(a.closeCh)
		for j := range a.inbox {
			a.deliver(j)
		}
	}()
}

func (a *AsyncDispatcher) deliver(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, a.Timeout)
	defer cancel()
	if err := a.d.Deliver(ctx, j.orderID, j.status, j.note); err != nil {
		zlog.Warn().Err(err).Str("order_id", j.orderID).Str("status", string(j.status)).Msg("notification failed")
	}
}

// Send queues the change. A full queue, or a dispatcher already closed,
// drops it with a warning.
func (a *AsyncDispatcher) Send(ctx context.Context, orderID string, status orders.Status, note string) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		metrics.Notifications.WithLabelValues("dropped").Inc()
		zlog.Warn().Str("order_id", orderID).Str("status", string(status)).Msg("notifier closed, dropping")
		return
	}
	select {
	case a.inbox <- job{ctx: context.WithoutCancel(ctx), orderID: orderID, status: status, note: note}:
	default:
		metrics.Notifications.WithLabelValues("dropped").Inc()
		zlog.Warn().Str("order_id", orderID).Str("status", string(status)).Msg("notification queue full, dropping")
	}
}

// Close stops accepting changes; queued ones are still delivered.
func (a *AsyncDispatcher) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.closed = true
	close(a.inbox)
}

func (a *AsyncDispatcher) WaitClosed() { <-a.closeCh }
