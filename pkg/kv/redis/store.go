package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/khanhnotech/congdongacf-gateway/pkg/kv"
)

// Store adapts go-redis/v9 to the kv.Store interface.
type Store struct {
	client *goredis.Client
}

// New creates a Redis-backed store for the given address.
func New(addr string) *Store {
	client := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
	return &Store{client: client}
}

// NewWithClient wraps an existing client; the caller retains ownership.
func NewWithClient(client *goredis.Client) *Store {
	return &Store{client: client}
}

// translate maps go-redis errors onto the kv error vocabulary so the failover
// wrapper can tell "missing key" from "dead backend".
func translate(err error) error {
	if err == nil {
		return nil
	}
	if err == goredis.Nil {
		return kv.ErrNotFound
	}
	return fmt.Errorf("%w: %v", kv.ErrBackendUnavailable, err)
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl ...time.Duration) error {
	var expiry time.Duration
	if len(ttl) > 0 {
		expiry = ttl[0]
	}
	return translate(s.client.Set(ctx, key, value, expiry).Err())
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, translate(err)
	}
	return data, nil
}

func (s *Store) SetString(ctx context.Context, key string, value string, ttl ...time.Duration) error {
	return s.Set(ctx, key, []byte(value), ttl...)
}

func (s *Store) GetString(ctx context.Context, key string) (string, error) {
	data, err := s.Get(ctx, key)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *Store) Del(ctx context.Context, keys ...string) (int64, error) {
	n, err := s.client.Del(ctx, keys...).Result()
	return n, translate(err)
}

func (s *Store) Exists(ctx context.Context, keys ...string) (int64, error) {
	n, err := s.client.Exists(ctx, keys...).Result()
	return n, translate(err)
}

func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.Expire(ctx, key, ttl).Result()
	return ok, translate(err)
}

func (s *Store) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := s.client.TTL(ctx, key).Result()
	return d, translate(err)
}

func (s *Store) IncrBy(ctx context.Context, key string, n int64) (int64, error) {
	v, err := s.client.IncrBy(ctx, key, n).Result()
	return v, translate(err)
}

func (s *Store) HSet(ctx context.Context, key string, field string, value []byte) error {
	return translate(s.client.HSet(ctx, key, field, value).Err())
}

func (s *Store) HGet(ctx context.Context, key string, field string) ([]byte, error) {
	data, err := s.client.HGet(ctx, key, field).Bytes()
	if err != nil {
		return nil, translate(err)
	}
	return data, nil
}

func (s *Store) HDel(ctx context.Context, key string, fields ...string) (int64, error) {
	n, err := s.client.HDel(ctx, key, fields...).Result()
	return n, translate(err)
}

func (s *Store) HGetAll(ctx context.Context, key string) (map[string][]byte, error) {
	m, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, translate(err)
	}
	out := make(map[string][]byte, len(m))
	for field, value := range m {
		out[field] = []byte(value)
	}
	return out, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return translate(s.client.Ping(ctx).Err())
}

func (s *Store) Close() error {
	return s.client.Close()
}

var _ kv.Store = (*Store)(nil)
