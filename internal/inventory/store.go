package inventory

import (
	"context"
	"sync"

	"github.com/ariefcatur/hackathon-hardware-desk/internal/metrics"
	"github.com/ariefcatur/hackathon-hardware-desk/internal/snapshot"
	"github.com/pkg/errors"
	zlog "github.com/rs/zerolog/log"
)

// Store is the catalog: an ordered list of items whose stock is only changed
// through Reserve and Release. Every mutation is mirrored to the snapshot
// store before the call returns.
type Store struct {
	mu    sync.RWMutex
	items []Item
	index map[string]int
	snap  snapshot.Store
}

func NewStore(snap snapshot.Store, items []Item) *Store {
	s := &Store{snap: snap}
	s.setLocked(items)
	return s
}

// Open loads the catalog snapshot. found is false when none exists yet.
func Open(ctx context.Context, snap snapshot.Store) (s *Store, found bool, err error) {
	var items []Item
	found, err = snap.Load(ctx, snapshot.Items, &items)
	if err != nil {
		return nil, false, err
	}
	return NewStore(snap, items), found, nil
}

func (s *Store) setLocked(items []Item) {
	s.items = make([]Item, 0, len(items))
	s.index = make(map[string]int, len(items))
	for _, it := range items {
		if _, dup := s.index[it.ID]; dup {
			zlog.Warn().Str("item_id", it.ID).Msg("duplicate item id in catalog, keeping first")
			continue
		}
		s.index[it.ID] = len(s.items)
		s.items = append(s.items, it.clone())
	}
}

// Save writes the current catalog snapshot.
func (s *Store) Save(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persistLocked(ctx)
}

func (s *Store) persistLocked(ctx context.Context) error {
	if err := s.snap.Save(ctx, snapshot.Items, s.items); err != nil {
		metrics.PersistenceFailures.WithLabelValues(snapshot.Items).Inc()
		return err
	}
	return nil
}

func (s *Store) List() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Item, len(s.items))
	for i, it := range s.items {
		out[i] = it.clone()
	}
	return out
}

func (s *Store) Get(id string) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return Item{}, false
	}
	return s.items[i].clone(), true
}

// CheckAvailability reports every line that is unknown or exceeds stock.
// Lines with the same id are summed. It never mutates.
func (s *Store) CheckAvailability(lines []Line) Availability {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkLocked(lines)
}

func (s *Store) checkLocked(lines []Line) Availability {
	var short []Shortfall
	for _, l := range merge(lines) {
		i, ok := s.index[l.ID]
		if !ok {
			short = append(short, Shortfall{ID: l.ID, Requested: l.Quantity, Available: 0})
			continue
		}
		if it := s.items[i]; it.Stock < l.Quantity {
			short = append(short, Shortfall{ID: l.ID, Name: it.Name, Requested: l.Quantity, Available: it.Stock})
		}
	}
	return Availability{OK: len(short) == 0, Shortfalls: short}
}

// Reserve takes stock for all lines or for none. The availability check is
// repeated under the write lock. If the snapshot cannot be written the
// decrement is undone and the persistence error returned.
func (s *Store) Reserve(ctx context.Context, lines []Line) error {
	if err := positive(lines); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if av := s.checkLocked(lines); !av.OK {
		return &ShortfallError{Shortfalls: av.Shortfalls}
	}
	merged := merge(lines)
	for _, l := range merged {
		s.items[s.index[l.ID]].Stock -= l.Quantity
	}
	if err := s.persistLocked(ctx); err != nil {
		for _, l := range merged {
			s.items[s.index[l.ID]].Stock += l.Quantity
		}
		return errors.Wrap(err, "persist reservation")
	}
	return nil
}

// Release returns stock for all lines. Unknown ids are skipped. A persistence
// failure is returned but the in-memory release stays applied.
func (s *Store) Release(ctx context.Context, lines []Line) error {
	if err := positive(lines); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range merge(lines) {
		i, ok := s.index[l.ID]
		if !ok {
			zlog.Warn().Str("item_id", l.ID).Int("qty", l.Quantity).Msg("release for unknown item skipped")
			continue
		}
		s.items[i].Stock += l.Quantity
	}
	if err := s.persistLocked(ctx); err != nil {
		return errors.Wrap(err, "persist release")
	}
	return nil
}

func positive(lines []Line) error {
	for _, l := range lines {
		if l.Quantity <= 0 {
			return errors.Errorf("invalid quantity %d for item %s", l.Quantity, l.ID)
		}
	}
	return nil
}
