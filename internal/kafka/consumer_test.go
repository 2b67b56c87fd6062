package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

func TestHandleWithRetry_RetriesUntilHandled(t *testing.T) {
	retryBackoff, maxRetryBackoff = time.Millisecond, 2*time.Millisecond
	t.Cleanup(func() { retryBackoff, maxRetryBackoff = 200*time.Millisecond, 5*time.Second })

	calls := 0
	h := func(context.Context, kafka.Message) error {
		calls++
		if calls < 3 {
			return errors.New("subscriptions unavailable")
		}
		return nil
	}

	assert.True(t, handleWithRetry(context.Background(), 0, h, kafka.Message{Offset: 7}))
	assert.Equal(t, 3, calls)
}

func TestHandleWithRetry_StopsWhenCancelled(t *testing.T) {
	retryBackoff, maxRetryBackoff = time.Millisecond, 2*time.Millisecond
	t.Cleanup(func() { retryBackoff, maxRetryBackoff = 200*time.Millisecond, 5*time.Second })

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	h := func(context.Context, kafka.Message) error {
		calls++
		cancel()
		return errors.New("boom")
	}

	assert.False(t, handleWithRetry(ctx, 0, h, kafka.Message{}))
	assert.Equal(t, 1, calls)
}
