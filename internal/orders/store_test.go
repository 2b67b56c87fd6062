package orders

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ariefcatur/hackathon-hardware-desk/internal/snapshot"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleOrder(id string, at time.Time) Order {
	return Order{
		ID:       id,
		Username: "lin",
		Items: []Line{
			{ID: "A", Name: "Arduino Uno", Price: decimal.RequireFromString("23.50"), Quantity: 2},
			{ID: "B", Name: "Jumper wires", Price: decimal.RequireFromString("0.10"), Quantity: 40},
		},
		Status:     StatusApproved,
		TotalPrice: decimal.RequireFromString("51.00"),
		Timestamp:  at,
		StatusHistory: []HistoryEntry{
			{Status: StatusPending, Timestamp: at, Note: "Order placed"},
			{Status: StatusPending, Timestamp: at.Add(time.Minute), Note: "checking"},
			{Status: StatusApproved, Timestamp: at.Add(2 * time.Minute), Note: "ready"},
		},
	}
}

func TestStore_RoundTripThroughFileSnapshot(t *testing.T) {
	fs, err := snapshot.NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	at := time.Date(2026, 5, 1, 12, 30, 0, 123456789, time.UTC)

	s := NewStore(fs)
	require.NoError(t, s.Put(ctx, sampleOrder("o-1", at)))
	o2 := sampleOrder("o-2", at.Add(time.Hour))
	o2.Status = StatusPending
	o2.StatusHistory = o2.StatusHistory[:1]
	require.NoError(t, s.Put(ctx, o2))

	reloaded, err := OpenStore(ctx, fs)
	require.NoError(t, err)

	before, after := s.All(), reloaded.All()
	require.Len(t, after, 2)
	for id, o := range before {
		r, ok := after[id]
		require.True(t, ok, id)
		assert.Equal(t, o.ID, r.ID)
		assert.Equal(t, o.Status, r.Status)
		assert.True(t, o.Timestamp.Equal(r.Timestamp))
		require.Len(t, r.StatusHistory, len(o.StatusHistory))
		for i := range o.StatusHistory {
			assert.Equal(t, o.StatusHistory[i].Status, r.StatusHistory[i].Status)
			assert.Equal(t, o.StatusHistory[i].Note, r.StatusHistory[i].Note)
			assert.True(t, o.StatusHistory[i].Timestamp.Equal(r.StatusHistory[i].Timestamp))
		}
	}

	// identical persisted form
	b1, err := json.Marshal(before)
	require.NoError(t, err)
	b2, err := json.Marshal(after)
	require.NoError(t, err)
	assert.JSONEq(t, string(b1), string(b2))
}

func TestStore_OpenWithoutSnapshotIsEmpty(t *testing.T) {
	s, err := OpenStore(context.Background(), snapshot.NewMemory())
	require.NoError(t, err)
	assert.Empty(t, s.All())
}

func TestStore_GetReturnsCopy(t *testing.T) {
	s := NewStore(snapshot.NewMemory())
	require.NoError(t, s.Put(context.Background(), sampleOrder("o-1", time.Now().UTC())))

	o, ok := s.Get("o-1")
	require.True(t, ok)
	o.StatusHistory[0].Note = "tampered"
	o.Items = append(o.Items, Line{ID: "Z"})

	again, _ := s.Get("o-1")
	assert.Equal(t, "Order placed", again.StatusHistory[0].Note)
	assert.Len(t, again.Items, 2)
}

func TestStore_Delete(t *testing.T) {
	snap := snapshot.NewMemory()
	s := NewStore(snap)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, sampleOrder("o-1", time.Now().UTC())))

	require.NoError(t, s.Delete(ctx, "o-1"))

	_, ok := s.Get("o-1")
	assert.False(t, ok)
	assert.JSONEq(t, `{}`, string(snap.Raw(snapshot.Orders)))
}

func TestStatusTable(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusApproved))
	assert.True(t, CanTransition(StatusPending, StatusDenied))
	assert.True(t, CanTransition(StatusPending, StatusCancelled))
	assert.False(t, CanTransition(StatusApproved, StatusCancelled))
	assert.False(t, CanTransition(StatusPending, "shipped"))

	assert.False(t, StatusPending.Terminal())
	for _, s := range []Status{StatusApproved, StatusDenied, StatusCancelled} {
		assert.True(t, s.Terminal(), s)
	}
	assert.False(t, Status("shipped").Valid())
}

func TestGate(t *testing.T) {
	assert.False(t, NewGate("").Allow(""), "empty secret admits nobody")
	assert.True(t, NewGate("abc").Allow("abc"))
	assert.False(t, NewGate("abc").Allow("ab"))
	assert.False(t, NewGate("abc").Allow("abcd"))
}
