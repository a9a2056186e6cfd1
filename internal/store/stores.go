// Package store wires the process-wide shared backends: the kv store that
// persists like flags and listing snapshots, and the pubsub transport that
// fans patch events out to connected clients. Redis backs both when
// reachable; otherwise everything degrades to in-process equivalents and the
// gateway keeps serving.
package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/khanhnotech/congdongacf-gateway/internal/config"
	"github.com/khanhnotech/congdongacf-gateway/pkg/kv"
	_ "github.com/khanhnotech/congdongacf-gateway/pkg/kv/memory"
	_ "github.com/khanhnotech/congdongacf-gateway/pkg/kv/redis"
)

type Stores struct {
	client *redis.Client // nil in memory mode
	kv     kv.Store
	hub    *MemHub
	logger *zap.SugaredLogger
}

// New probes redis at startup and picks the backend set. A dead redis is a
// warning, not a startup failure.
func New(cfg config.CacheConfig, logger *zap.SugaredLogger) (*Stores, error) {
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:         cfg.RedisAddr,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			PoolSize:     10,
			MinIdleConns: 2,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err == nil {
			kvStore, err := kv.NewStoreFromConfig(kv.Config{
				Backend:         kv.BackendRedis,
				RedisAddr:       cfg.RedisAddr,
				FailoverEnabled: true,
				Logger:          logger.Infow,
			})
			if err != nil {
				client.Close()
				return nil, err
			}
			return &Stores{client: client, kv: kvStore, logger: logger}, nil
		}
		logger.Warnw("redis unavailable, using in-process stores", "addr", cfg.RedisAddr)
		client.Close()
	}

	kvStore, err := kv.NewStoreFromConfig(kv.Config{Backend: kv.BackendMemory})
	if err != nil {
		return nil, err
	}
	return &Stores{kv: kvStore, hub: NewMemHub(), logger: logger}, nil
}

// NewInMemory builds a Stores with no redis at all, for tests.
func NewInMemory(logger *zap.SugaredLogger) *Stores {
	kvStore, _ := kv.NewStoreFromConfig(kv.Config{Backend: kv.BackendMemory})
	return &Stores{kv: kvStore, hub: NewMemHub(), logger: logger}
}

// KV returns the durable key-value store.
func (s *Stores) KV() kv.Store {
	return s.kv
}

// InMemoryMode reports whether the process is running without redis.
func (s *Stores) InMemoryMode() bool {
	return s.client == nil
}

// Publish fans a payload out to every subscriber of channel, across
// processes in redis mode and within this one otherwise.
func (s *Stores) Publish(ctx context.Context, channel string, payload []byte) error {
	if s.client != nil {
		return s.client.Publish(ctx, channel, payload).Err()
	}
	s.hub.Publish(channel, payload)
	return nil
}

// Subscribe delivers messages for the given channels until the subscription
// is closed or ctx ends.
func (s *Stores) Subscribe(ctx context.Context, channels ...string) *Subscription {
	if s.client == nil {
		return s.hub.Subscribe(ctx, channels...)
	}

	pubsub := s.client.Subscribe(ctx, channels...)
	sub := newSubscription(64)
	sub.cancel = func() { pubsub.Close() }

	go func() {
		defer sub.finish()
		src := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				sub.Close()
				return
			case <-sub.closed:
				return
			case msg, ok := <-src:
				if !ok {
					return
				}
				sub.deliver(Message{Channel: msg.Channel, Payload: []byte(msg.Payload)})
			}
		}
	}()
	return sub
}

// Ping reports backend health. In-process mode is always healthy.
func (s *Stores) Ping(ctx context.Context) error {
	if s.client != nil {
		return s.client.Ping(ctx).Err()
	}
	return s.kv.Ping(ctx)
}

// Close releases both backends.
func (s *Stores) Close() error {
	var err error
	if s.client != nil {
		err = s.client.Close()
	}
	if s.kv != nil {
		if cerr := s.kv.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
