package pubsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client
}

func TestEvent_OmitEmpty(t *testing.T) {
	evt := &Event{Type: EventClaimRejected, UserID: 1, ClaimID: 9}

	data, err := json.Marshal(evt)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Contains(t, raw, "claim_id")
	assert.NotContains(t, raw, "subscription_id")
	assert.NotContains(t, raw, "end_at")
	assert.NotContains(t, raw, "message")
}

func TestPublisherSubscriber(t *testing.T) {
	client := setupTestRedis(t)
	publisher := NewPublisher(client)
	subscriber := NewSubscriber(client)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan *Event, 1)
	ready := make(chan struct{})
	go func() {
		close(ready)
		_ = subscriber.Subscribe(ctx, func(evt *Event) {
			received <- evt
		})
	}()
	<-ready

	endAt := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	evt := &Event{
		Type:           EventSubscriptionActivated,
		UserID:         123,
		ClaimID:        7,
		SubscriptionID: 3,
		Tier:           "prime_plus",
		EndAt:          &endAt,
	}

	// 订阅建立前发布的消息会丢失，重试直到收到
	deadline := time.After(3 * time.Second)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		require.NoError(t, publisher.Publish(ctx, evt))
		select {
		case got := <-received:
			assert.Equal(t, EventSubscriptionActivated, got.Type)
			assert.Equal(t, int64(123), got.UserID)
			assert.Equal(t, "prime_plus", got.Tier)
			require.NotNil(t, got.EndAt)
			assert.True(t, endAt.Equal(*got.EndAt))
			assert.False(t, got.OccurredAt.IsZero())
			return
		case <-ticker.C:
		case <-deadline:
			t.Fatal("Timeout waiting for event")
		}
	}
}

func TestSubscriber_StopsOnCancel(t *testing.T) {
	client := setupTestRedis(t)
	subscriber := NewSubscriber(client)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- subscriber.Subscribe(ctx, func(*Event) {})
	}()

	cancel()
	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not stop")
	}
}
