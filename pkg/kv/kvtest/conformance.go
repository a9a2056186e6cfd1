// Package kvtest provides a conformance suite shared by every kv.Store
// implementation. New backends run RunConformance against a fresh store to
// prove they honor the interface contract.
package kvtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khanhnotech/congdongacf-gateway/pkg/kv"
)

// Factory returns a fresh, empty store for each subtest.
type Factory func(t *testing.T) kv.Store

// RunConformance exercises the kv.Store contract against stores produced by
// the factory.
func RunConformance(t *testing.T, factory Factory) {
	t.Run("SetGet", func(t *testing.T) { testSetGet(t, factory(t)) })
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, factory(t)) })
	t.Run("SetOverwrite", func(t *testing.T) { testSetOverwrite(t, factory(t)) })
	t.Run("TTLExpiry", func(t *testing.T) { testTTLExpiry(t, factory(t)) })
	t.Run("DelExists", func(t *testing.T) { testDelExists(t, factory(t)) })
	t.Run("Expire", func(t *testing.T) { testExpire(t, factory(t)) })
	t.Run("IncrBy", func(t *testing.T) { testIncrBy(t, factory(t)) })
	t.Run("Hash", func(t *testing.T) { testHash(t, factory(t)) })
	t.Run("HashDelete", func(t *testing.T) { testHashDelete(t, factory(t)) })
	t.Run("Ping", func(t *testing.T) { testPing(t, factory(t)) })
}

func testSetGet(t *testing.T, s kv.Store) {
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v")))
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, s.SetString(ctx, "str", "hello"))
	sv, err := s.GetString(ctx, "str")
	require.NoError(t, err)
	assert.Equal(t, "hello", sv)
}

func testGetMissing(t *testing.T, s kv.Store) {
	defer s.Close()
	ctx := context.Background()

	_, err := s.Get(ctx, "nope")
	assert.ErrorIs(t, err, kv.ErrNotFound)

	_, err = s.HGet(ctx, "nope", "field")
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func testSetOverwrite(t *testing.T, s kv.Store) {
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("a")))
	require.NoError(t, s.Set(ctx, "k", []byte("b")))
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), got)
}

func testTTLExpiry(t *testing.T, s kv.Store) {
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "short", []byte("v"), 50*time.Millisecond))

	got, err := s.Get(ctx, "short")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	time.Sleep(80 * time.Millisecond)

	_, err = s.Get(ctx, "short")
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func testDelExists(t *testing.T, s kv.Store) {
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "a", []byte("1")))
	require.NoError(t, s.Set(ctx, "b", []byte("2")))

	n, err := s.Exists(ctx, "a", "b", "c")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	deleted, err := s.Del(ctx, "a", "c")
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	n, err = s.Exists(ctx, "a")
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func testExpire(t *testing.T, s kv.Store) {
	defer s.Close()
	ctx := context.Background()

	ok, err := s.Expire(ctx, "missing", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "k", []byte("v")))
	ok, err = s.Expire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ttl, err := s.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Greater(t, ttl, 30*time.Second)
}

func testIncrBy(t *testing.T, s kv.Store) {
	defer s.Close()
	ctx := context.Background()

	v, err := s.IncrBy(ctx, "counter", 3)
	require.NoError(t, err)
	assert.EqualValues(t, 3, v)

	v, err = s.IncrBy(ctx, "counter", -1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, v)
}

func testHash(t *testing.T, s kv.Store) {
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.HSet(ctx, "h", "f1", []byte("a")))
	require.NoError(t, s.HSet(ctx, "h", "f2", []byte("b")))
	require.NoError(t, s.HSet(ctx, "h", "f1", []byte("c"))) // overwrite

	got, err := s.HGet(ctx, "h", "f1")
	require.NoError(t, err)
	assert.Equal(t, []byte("c"), got)

	all, err := s.HGetAll(ctx, "h")
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"f1": []byte("c"), "f2": []byte("b")}, all)

	// HGetAll on a missing key is empty, not an error
	all, err = s.HGetAll(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func testHashDelete(t *testing.T, s kv.Store) {
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.HSet(ctx, "h", "f1", []byte("a")))
	require.NoError(t, s.HSet(ctx, "h", "f2", []byte("b")))

	n, err := s.HDel(ctx, "h", "f1", "missing")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = s.HGet(ctx, "h", "f1")
	assert.ErrorIs(t, err, kv.ErrNotFound)

	got, err := s.HGet(ctx, "h", "f2")
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), got)
}

func testPing(t *testing.T, s kv.Store) {
	defer s.Close()
	assert.NoError(t, s.Ping(context.Background()))
}
