package subscriptions

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ariefcatur/hackathon-hardware-desk/internal/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pushDescriptor = json.RawMessage(`{"endpoint":"https://push.example/abc","keys":{"p256dh":"x","auth":"y"}}`)

func TestRegisterGetDelete(t *testing.T) {
	snap := snapshot.NewMemory()
	s := NewStore(snap)
	ctx := context.Background()

	require.NoError(t, s.Register(ctx, Subscription{OrderID: "o-1", Username: "ada", Subscription: pushDescriptor, Timestamp: time.Now().UTC()}))

	got, ok := s.Get("o-1")
	require.True(t, ok)
	assert.Equal(t, "ada", got.Username)
	assert.JSONEq(t, string(pushDescriptor), string(got.Subscription))
	assert.Contains(t, string(snap.Raw(snapshot.Subscriptions)), "o-1")

	require.NoError(t, s.Delete(ctx, "o-1"))
	_, ok = s.Get("o-1")
	assert.False(t, ok)
	assert.JSONEq(t, `{}`, string(snap.Raw(snapshot.Subscriptions)))

	assert.NoError(t, s.Delete(ctx, "never-registered"))
}

func TestRegister_RequiresOrderAndDescriptor(t *testing.T) {
	s := NewStore(snapshot.NewMemory())
	assert.Error(t, s.Register(context.Background(), Subscription{Subscription: pushDescriptor}))
	assert.Error(t, s.Register(context.Background(), Subscription{OrderID: "o-1"}))
	assert.Zero(t, s.Len())
}

func TestRegister_ReplacesPrevious(t *testing.T) {
	s := NewStore(snapshot.NewMemory())
	ctx := context.Background()
	require.NoError(t, s.Register(ctx, Subscription{OrderID: "o-1", Username: "old", Subscription: pushDescriptor}))
	require.NoError(t, s.Register(ctx, Subscription{OrderID: "o-1", Username: "new", Subscription: pushDescriptor}))

	got, _ := s.Get("o-1")
	assert.Equal(t, "new", got.Username)
	assert.Equal(t, 1, s.Len())
}

func TestReloadSeesWritesFromAnotherStore(t *testing.T) {
	snap := snapshot.NewMemory()
	ctx := context.Background()
	api := NewStore(snap)
	worker, err := Open(ctx, snap)
	require.NoError(t, err)

	require.NoError(t, api.Register(ctx, Subscription{OrderID: "o-9", Subscription: pushDescriptor}))
	_, ok := worker.Get("o-9")
	assert.False(t, ok)

	require.NoError(t, worker.Reload(ctx))
	_, ok = worker.Get("o-9")
	assert.True(t, ok)
}

func TestDeleteByWorkerSurvivesLaterRegistration(t *testing.T) {
	snap := snapshot.NewMemory()
	ctx := context.Background()
	api := NewStore(snap)
	worker := NewStore(snap)

	require.NoError(t, api.Register(ctx, Subscription{OrderID: "o1", Subscription: pushDescriptor}))
	require.NoError(t, worker.Reload(ctx))
	require.NoError(t, worker.Delete(ctx, "o1"))
	require.NoError(t, api.Register(ctx, Subscription{OrderID: "o2", Subscription: pushDescriptor}))

	require.NoError(t, worker.Reload(ctx))
	_, ok := worker.Get("o1")
	assert.False(t, ok, "expired subscription must stay deleted")
	_, ok = worker.Get("o2")
	assert.True(t, ok)
}

func TestDeleteKeepsRegistrationMadeSinceLastReload(t *testing.T) {
	snap := snapshot.NewMemory()
	ctx := context.Background()
	api := NewStore(snap)
	worker := NewStore(snap)

	require.NoError(t, api.Register(ctx, Subscription{OrderID: "o1", Subscription: pushDescriptor}))
	require.NoError(t, worker.Reload(ctx))
	require.NoError(t, api.Register(ctx, Subscription{OrderID: "o3", Subscription: pushDescriptor}))
	require.NoError(t, worker.Delete(ctx, "o1"))

	require.NoError(t, api.Reload(ctx))
	_, ok := api.Get("o3")
	assert.True(t, ok)
	_, ok = api.Get("o1")
	assert.False(t, ok)
}

func TestRegisterFailsWhenSnapshotUnreadable(t *testing.T) {
	snap := snapshot.NewMemory()
	snap.FailLoad[snapshot.Subscriptions] = errors.New("db down")
	s := NewStore(snap)

	assert.Error(t, s.Register(context.Background(), Subscription{OrderID: "o1", Subscription: pushDescriptor}))
	assert.Zero(t, s.Len())
}
