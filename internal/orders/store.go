package orders

import (
	"context"
	"sync"

	"github.com/ariefcatur/hackathon-hardware-desk/internal/metrics"
	"github.com/ariefcatur/hackathon-hardware-desk/internal/snapshot"
)

// Store holds every order by id and mirrors the whole map to the snapshot
// store after each mutation. Orders are copied in and out.
type Store struct {
	mu     sync.RWMutex
	orders map[string]Order
	snap   snapshot.Store
}

func NewStore(snap snapshot.Store) *Store {
	return &Store{orders: map[string]Order{}, snap: snap}
}

// OpenStore loads the orders snapshot, starting empty when there is none.
func OpenStore(ctx context.Context, snap snapshot.Store) (*Store, error) {
	s := NewStore(snap)
	var loaded map[string]Order
	if _, err := snap.Load(ctx, snapshot.Orders, &loaded); err != nil {
		return nil, err
	}
	for id, o := range loaded {
		s.orders[id] = o
	}
	return s, nil
}

func (s *Store) Get(id string) (Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return Order{}, false
	}
	return o.clone(), true
}

func (s *Store) All() map[string]Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Order, len(s.orders))
	for id, o := range s.orders {
		out[id] = o.clone()
	}
	return out
}

// Put stores o and persists. The in-memory write stands even if persisting fails.
func (s *Store) Put(ctx context.Context, o Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o.clone()
	return s.persistLocked(ctx)
}

// Delete removes id and persists.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.orders, id)
	return s.persistLocked(ctx)
}

func (s *Store) persistLocked(ctx context.Context) error {
	if err := s.snap.Save(ctx, snapshot.Orders, s.orders); err != nil {
		metrics.PersistenceFailures.WithLabelValues(snapshot.Orders).Inc()
		return err
	}
	return nil
}
