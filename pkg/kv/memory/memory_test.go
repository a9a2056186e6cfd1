package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khanhnotech/congdongacf-gateway/pkg/kv"
	"github.com/khanhnotech/congdongacf-gateway/pkg/kv/kvtest"
)

func TestConformance(t *testing.T) {
	kvtest.RunConformance(t, func(t *testing.T) kv.Store {
		return NewStore()
	})
}

func TestJanitorEvictsExpired(t *testing.T) {
	s := New(20 * time.Millisecond)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 30*time.Millisecond))

	assert.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		_, exists := s.strings["k"]
		return !exists
	}, time.Second, 10*time.Millisecond, "janitor should evict the expired key")
}
