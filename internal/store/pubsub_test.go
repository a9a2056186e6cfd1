package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func receive(t *testing.T, sub *Subscription) Message {
	t.Helper()
	select {
	case msg, ok := <-sub.C():
		require.True(t, ok, "subscription closed unexpectedly")
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func TestMemHub_FanOut(t *testing.T) {
	hub := NewMemHub()
	ctx := context.Background()

	a := hub.Subscribe(ctx, "acf:patch:like")
	b := hub.Subscribe(ctx, "acf:patch:like", "acf:patch:share")
	defer a.Close()
	defer b.Close()

	hub.Publish("acf:patch:like", []byte(`{"kind":"like"}`))

	assert.Equal(t, "acf:patch:like", receive(t, a).Channel)
	assert.Equal(t, `{"kind":"like"}`, string(receive(t, b).Payload))
}

func TestMemHub_ChannelIsolation(t *testing.T) {
	hub := NewMemHub()
	sub := hub.Subscribe(context.Background(), "acf:patch:share")
	defer sub.Close()

	hub.Publish("acf:patch:like", []byte("x"))

	select {
	case msg := <-sub.C():
		t.Fatalf("unexpected delivery: %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemHub_CloseEndsSubscription(t *testing.T) {
	hub := NewMemHub()
	sub := hub.Subscribe(context.Background(), "ch")

	sub.Close()

	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-sub.C():
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond, "delivery channel closes after Close")

	// Publishing after close must not panic.
	hub.Publish("ch", []byte("late"))
}

func TestMemHub_ContextCancelEndsSubscription(t *testing.T) {
	hub := NewMemHub()
	ctx, cancel := context.WithCancel(context.Background())
	sub := hub.Subscribe(ctx, "ch")

	cancel()

	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-sub.C():
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestStoresInMemory_PublishSubscribe(t *testing.T) {
	s := NewInMemory(zap.NewNop().Sugar())
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	assert.True(t, s.InMemoryMode())
	require.NoError(t, s.Ping(ctx))

	sub := s.Subscribe(ctx, "acf:patch:comment")
	defer sub.Close()

	require.NoError(t, s.Publish(ctx, "acf:patch:comment", []byte("hello")))
	assert.Equal(t, "hello", string(receive(t, sub).Payload))

	require.NotNil(t, s.KV())
}
