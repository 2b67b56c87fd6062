package orders

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ariefcatur/hackathon-hardware-desk/internal/inventory"
	"github.com/ariefcatur/hackathon-hardware-desk/internal/metrics"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Notifier is told about every actual status change after it is stored.
// Implementations must not block the caller for long and never fail it.
type Notifier interface {
	Send(ctx context.Context, orderID string, status Status, note string)
}

// Service drives the order lifecycle: checkout against the catalog, admin
// status changes and their stock and notification side effects.
//
// Stock policy: stock is reserved when the order is placed. Moving to denied
// or cancelled releases it; approved keeps it.
type Service struct {
	Catalog  *inventory.Store
	Orders   *Store
	Gate     Gate
	Notifier Notifier

	Now   func() time.Time
	NewID func() string

	// serializes order read-modify-write
	mu sync.Mutex
	// status changes held in memory whose write failed; their notification
	// waits for the next successful write of the order
	unsynced map[string]notice
}

type notice struct {
	status Status
	note   string
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC().Round(0)
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func (s *Service) PlaceOrder(ctx context.Context, username string, cart []CartLine) (Order, error) {
	username = strings.TrimSpace(username)
	if err := validateCheckout(username, cart); err != nil {
		return Order{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if av := s.Catalog.CheckAvailability(cart); !av.OK {
		metrics.StockShortfalls.Inc()
		return Order{}, &StockError{Shortfalls: av.Shortfalls}
	}

	// name and price come from the catalog, never from the client
	lines := make([]Line, 0, len(cart))
	total := decimal.Zero
	for _, c := range cart {
		it, _ := s.Catalog.Get(c.ID)
		lines = append(lines, Line{ID: it.ID, Name: it.Name, Price: it.Price, Quantity: c.Quantity})
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(c.Quantity))))
	}

	if err := s.Catalog.Reserve(ctx, cart); err != nil {
		var se *inventory.ShortfallError
		if errors.As(err, &se) {
			metrics.StockShortfalls.Inc()
			return Order{}, &StockError{Shortfalls: se.Shortfalls}
		}
		return Order{}, &PersistenceError{Err: err}
	}

	now := s.now()
	o := Order{
		ID:            s.newID(),
		Username:      username,
		Items:         lines,
		Status:        StatusPending,
		TotalPrice:    total,
		Timestamp:     now,
		StatusHistory: []HistoryEntry{{Status: StatusPending, Timestamp: now, Note: "Order placed"}},
	}
	if err := s.Orders.Put(ctx, o); err != nil {
		// undo so stock and orders stay in lockstep
		if derr := s.Orders.Delete(ctx, o.ID); derr != nil {
			zlog.Error().Err(derr).Str("order_id", o.ID).Msg("rollback: remove order")
		}
		if rerr := s.Catalog.Release(ctx, cart); rerr != nil {
			zlog.Error().Err(rerr).Str("order_id", o.ID).Msg("rollback: release stock")
		}
		return Order{}, &PersistenceError{Err: err}
	}

	metrics.OrdersPlaced.Inc()
	zlog.Info().Str("order_id", o.ID).Str("username", username).Int("lines", len(lines)).
		Str("total", total.String()).Msg("order placed")
	return o, nil
}

func (s *Service) GetOrder(id string) (Order, error) {
	o, ok := s.Orders.Get(id)
	if !ok {
		return Order{}, ErrNotFound
	}
	return o, nil
}

func (s *Service) ListOrders(adminCode string) (map[string]Order, error) {
	if !s.Gate.Allow(adminCode) {
		return nil, ErrForbidden
	}
	return s.Orders.All(), nil
}

// UpdateStatus applies an organizer decision. Setting the current status
// again with a note only appends to the history. A real change releases
// stock when leaving a stock-holding state, is stored, and then notified
// exactly once. If storing the change failed, repeating the same status
// stores it again and sends the notification that was held back.
func (s *Service) UpdateStatus(ctx context.Context, id string, u StatusUpdate) (Order, error) {
	if !s.Gate.Allow(u.AdminCode) {
		return Order{}, ErrForbidden
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.Orders.Get(id)
	if !ok {
		return Order{}, ErrNotFound
	}
	if !u.Status.Valid() {
		return Order{}, &ValidationError{Problems: []string{
			fmt.Sprintf("status must be one of %s, %s, %s, %s", StatusPending, StatusApproved, StatusDenied, StatusCancelled),
		}}
	}
	note := strings.TrimSpace(u.Note)

	if u.Status == o.Status {
		_, pending := s.unsynced[o.ID]
		if note == "" && !pending {
			return o, nil
		}
		if note != "" {
			o.StatusHistory = append(o.StatusHistory, HistoryEntry{Status: o.Status, Timestamp: s.now(), Note: note})
		}
		if err := s.Orders.Put(ctx, o); err != nil {
			return o, &PersistenceError{Err: err}
		}
		if n, ok := s.unsynced[o.ID]; ok {
			delete(s.unsynced, o.ID)
			zlog.Info().Str("order_id", o.ID).Str("status", string(n.status)).Msg("held status change stored")
			s.notify(ctx, o.ID, n)
		}
		return o, nil
	}

	if !CanTransition(o.Status, u.Status) {
		return Order{}, &ConflictError{From: o.Status, To: u.Status}
	}

	var releaseErr error
	if o.Status.HoldsStock() && !u.Status.HoldsStock() {
		if err := s.Catalog.Release(ctx, o.StockLines()); err != nil {
			zlog.Error().Err(err).Str("order_id", o.ID).Msg("release stock")
			releaseErr = err
		}
	}

	from := o.Status
	o.Status = u.Status
	o.StatusHistory = append(o.StatusHistory, HistoryEntry{Status: u.Status, Timestamp: s.now(), Note: note})
	metrics.StatusChanges.WithLabelValues(string(u.Status)).Inc()
	if err := s.Orders.Put(ctx, o); err != nil {
		if s.unsynced == nil {
			s.unsynced = map[string]notice{}
		}
		s.unsynced[o.ID] = notice{status: o.Status, note: note}
		return o, &PersistenceError{Err: err}
	}
	delete(s.unsynced, o.ID)

	zlog.Info().Str("order_id", o.ID).Str("from", string(from)).Str("to", string(u.Status)).Msg("order status changed")
	s.notify(ctx, o.ID, notice{status: o.Status, note: note})
	if releaseErr != nil {
		return o, &PersistenceError{Err: releaseErr}
	}
	return o, nil
}

func (s *Service) notify(ctx context.Context, orderID string, n notice) {
	if s.Notifier != nil {
		s.Notifier.Send(ctx, orderID, n.status, n.note)
	}
}

func validateCheckout(username string, cart []CartLine) error {
	var problems []string
	if username == "" {
		problems = append(problems, "username is required")
	}
	if len(cart) == 0 {
		problems = append(problems, "cart must contain at least one item")
	}
	for i, c := range cart {
		if strings.TrimSpace(c.ID) == "" {
			problems = append(problems, fmt.Sprintf("cart[%d]: id is required", i))
		}
		if c.Quantity <= 0 {
			problems = append(problems, fmt.Sprintf("cart[%d]: quantity must be greater than 0", i))
		}
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
