// Package subscriptions keeps the push subscription registered for each order.
package subscriptions

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ariefcatur/hackathon-hardware-desk/internal/metrics"
	"github.com/ariefcatur/hackathon-hardware-desk/internal/snapshot"
	"github.com/pkg/errors"
)

type Subscription struct {
	OrderID  string `json:"orderId"`
	Username string `json:"username"`
	// Subscription is the browser's push descriptor, stored as given.
	Subscription json.RawMessage `json:"subscription"`
	Timestamp    time.Time       `json:"timestamp"`
}

type Store struct {
	mu   sync.RWMutex
	subs map[string]Subscription
	snap snapshot.Store
}

func NewStore(snap snapshot.Store) *Store {
	return &Store{subs: map[string]Subscription{}, snap: snap}
}

func Open(ctx context.Context, snap snapshot.Store) (*Store, error) {
	s := NewStore(snap)
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload replaces memory with the persisted snapshot. Used by processes that
// share the snapshot with the API.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloadLocked(ctx)
}

func (s *Store) reloadLocked(ctx context.Context) error {
	loaded := map[string]Subscription{}
	if _, err := s.snap.Load(ctx, snapshot.Subscriptions, &loaded); err != nil {
		return errors.Wrap(err, "reload subscriptions")
	}
	s.subs = loaded
	return nil
}

// Register stores sub for its order, replacing any earlier one. Writes start
// from the persisted document so changes made by another process sharing it
// are kept.
func (s *Store) Register(ctx context.Context, sub Subscription) error {
	if sub.OrderID == "" || len(sub.Subscription) == 0 {
		return errors.New("orderId and subscription are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.reloadLocked(ctx); err != nil {
		return err
	}
	sub.Subscription = append(json.RawMessage(nil), sub.Subscription...)
	s.subs[sub.OrderID] = sub
	return s.persistLocked(ctx)
}

func (s *Store) Get(orderID string) (Subscription, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subs[orderID]
	return sub, ok
}

// Delete drops the subscription for orderID. Deleting a missing one is a no-op.
func (s *Store) Delete(ctx context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.reloadLocked(ctx); err != nil {
		return err
	}
	if _, ok := s.subs[orderID]; !ok {
		return nil
	}
	delete(s.subs, orderID)
	return s.persistLocked(ctx)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

func (s *Store) persistLocked(ctx context.Context) error {
	if err := s.snap.Save(ctx, snapshot.Subscriptions, s.subs); err != nil {
		metrics.PersistenceFailures.WithLabelValues(snapshot.Subscriptions).Inc()
		return err
	}
	return nil
}
