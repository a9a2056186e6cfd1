package kv_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khanhnotech/congdongacf-gateway/pkg/kv"
	"github.com/khanhnotech/congdongacf-gateway/pkg/kv/memory"
)

// flakyStore wraps a memory store and can be toggled unavailable.
type flakyStore struct {
	kv.Store
	mu   sync.Mutex
	down bool
}

func (f *flakyStore) setDown(down bool) {
	f.mu.Lock()
	f.down = down
	f.mu.Unlock()
}

func (f *flakyStore) isDown() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.down
}

func (f *flakyStore) unavailable() error {
	return fmt.Errorf("%w: connection refused", kv.ErrBackendUnavailable)
}

func (f *flakyStore) Set(ctx context.Context, key string, value []byte, ttl ...time.Duration) error {
	if f.isDown() {
		return f.unavailable()
	}
	return f.Store.Set(ctx, key, value, ttl...)
}

func (f *flakyStore) Get(ctx context.Context, key string) ([]byte, error) {
	if f.isDown() {
		return nil, f.unavailable()
	}
	return f.Store.Get(ctx, key)
}

func (f *flakyStore) HSet(ctx context.Context, key string, field string, value []byte) error {
	if f.isDown() {
		return f.unavailable()
	}
	return f.Store.HSet(ctx, key, field, value)
}

func (f *flakyStore) Ping(ctx context.Context) error {
	if f.isDown() {
		return f.unavailable()
	}
	return f.Store.Ping(ctx)
}

func TestFailoverStore_DemotesOnUnavailable(t *testing.T) {
	primary := &flakyStore{Store: memory.NewStore()}
	fallback := memory.NewStore()
	fs := kv.NewFailoverStore(primary, fallback, 10*time.Millisecond, nil)
	defer fs.Close()

	ctx := context.Background()

	require.NoError(t, fs.Set(ctx, "k", []byte("v")))
	assert.False(t, fs.OnFallback())

	primary.setDown(true)

	// The failing write must be retried transparently on the fallback.
	require.NoError(t, fs.Set(ctx, "k2", []byte("v2")))
	assert.True(t, fs.OnFallback())

	got, err := fs.Get(ctx, "k2")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)
}

func TestFailoverStore_PromotesOnRecovery(t *testing.T) {
	primary := &flakyStore{Store: memory.NewStore()}
	fallback := memory.NewStore()
	fs := kv.NewFailoverStore(primary, fallback, 10*time.Millisecond, nil)
	defer fs.Close()

	ctx := context.Background()

	primary.setDown(true)
	require.NoError(t, fs.Set(ctx, "k", []byte("v")))
	require.True(t, fs.OnFallback())

	primary.setDown(false)

	assert.Eventually(t, func() bool {
		return !fs.OnFallback()
	}, time.Second, 10*time.Millisecond, "probe should promote the primary")
}

func TestFailoverStore_NotFoundDoesNotDemote(t *testing.T) {
	primary := &flakyStore{Store: memory.NewStore()}
	fallback := memory.NewStore()
	fs := kv.NewFailoverStore(primary, fallback, 10*time.Millisecond, nil)
	defer fs.Close()

	_, err := fs.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, kv.ErrNotFound)
	assert.False(t, fs.OnFallback())
}
