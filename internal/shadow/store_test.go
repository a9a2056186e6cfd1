package shadow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khanhnotech/congdongacf-gateway/pkg/kv/memory"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	backend := memory.NewStore()
	t.Cleanup(func() { backend.Close() })
	return New(backend)
}

func TestSetAndGetLiked(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	liked, known, err := s.Liked(ctx, "u1", 42)
	require.NoError(t, err)
	assert.False(t, known, "nothing recorded yet")
	assert.False(t, liked)

	require.NoError(t, s.SetLiked(ctx, "u1", 42, true))
	liked, known, err = s.Liked(ctx, "u1", 42)
	require.NoError(t, err)
	assert.True(t, known)
	assert.True(t, liked)

	require.NoError(t, s.SetLiked(ctx, "u1", 42, false))
	liked, known, err = s.Liked(ctx, "u1", 42)
	require.NoError(t, err)
	assert.True(t, known, "an explicit unlike stays recorded")
	assert.False(t, liked)
}

func TestSetLiked_StoredFlagBytes(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()
	t.Cleanup(func() { backend.Close() })
	s := New(backend)

	require.NoError(t, s.SetLiked(ctx, "u1", 42, true))
	raw, err := backend.HGet(ctx, "likes:u1", "42")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), raw)

	require.NoError(t, s.SetLiked(ctx, "u1", 42, false))
	raw, err = backend.HGet(ctx, "likes:u1", "42")
	require.NoError(t, err)
	assert.Equal(t, []byte("0"), raw)
}

func TestSetLiked_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.SetLiked(ctx, "u1", 42, true))
	require.NoError(t, s.SetLiked(ctx, "u1", 42, true))

	all, err := s.All(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, map[int64]bool{42: true}, all)
}

func TestClearUser_IsolatedPerUser(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.SetLiked(ctx, "u1", 1, true))
	require.NoError(t, s.SetLiked(ctx, "u1", 2, false))
	require.NoError(t, s.SetLiked(ctx, "u2", 1, true))

	require.NoError(t, s.ClearUser(ctx, "u1"))

	all, err := s.All(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, all)

	_, known, err := s.Liked(ctx, "u2", 1)
	require.NoError(t, err)
	assert.True(t, known, "clearing one user leaves the other intact")
}

func TestAnonymousUserIsNoop(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.SetLiked(ctx, "", 42, true))
	all, err := s.All(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, all)
}
