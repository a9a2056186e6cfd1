package kv

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// FailoverStore wraps a primary and fallback store, automatically failing over
// when the primary becomes unavailable and recovering when it becomes healthy
// again. Only availability errors trigger failover; ErrNotFound and other
// application errors pass through untouched.
type FailoverStore struct {
	primary  Store
	fallback Store
	active   atomic.Value // holds an activeHolder

	probeInterval time.Duration
	logger        LogFunc

	mu        sync.Mutex
	probing   bool
	closed    bool
	probeStop chan struct{}
}

// NewFailoverStore creates a failover store that prefers the primary.
func NewFailoverStore(primary, fallback Store, probeInterval time.Duration, logger LogFunc) *FailoverStore {
	if logger == nil {
		logger = func(msg string, fields ...any) {}
	}

	fs := &FailoverStore{
		primary:       primary,
		fallback:      fallback,
		probeInterval: probeInterval,
		logger:        logger,
	}
	fs.active.Store(activeHolder{primary})
	return fs
}

// activeHolder keeps the concrete type stored in the atomic.Value constant;
// storing the primary and fallback stores directly would panic on the first
// swap when their dynamic types differ.
type activeHolder struct {
	s Store
}

func (fs *FailoverStore) activeStore() Store {
	return fs.active.Load().(activeHolder).s
}

// OnFallback reports whether the store is currently serving from the fallback.
func (fs *FailoverStore) OnFallback() bool {
	return fs.activeStore() == fs.fallback
}

// demote switches to the fallback store and starts probing for recovery.
func (fs *FailoverStore) demote(cause error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.closed || fs.activeStore() == fs.fallback {
		return
	}

	fs.logger("kv primary unavailable; serving from fallback", "error", cause)
	fs.active.Store(activeHolder{fs.fallback})

	if !fs.probing {
		fs.probing = true
		fs.probeStop = make(chan struct{})
		go fs.probe(fs.probeStop)
	}
}

// probe periodically pings the primary and promotes it once healthy.
func (fs *FailoverStore) probe(stop chan struct{}) {
	ticker := time.NewTicker(fs.probeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), fs.probeInterval)
			err := fs.primary.Ping(ctx)
			cancel()
			if err != nil {
				continue
			}

			fs.mu.Lock()
			fs.logger("kv primary recovered; promoting")
			fs.active.Store(activeHolder{fs.primary})
			fs.probing = false
			fs.mu.Unlock()
			return
		}
	}
}

// do runs op against the active store, failing over (and retrying once on the
// fallback) when the primary reports unavailability.
func (fs *FailoverStore) do(op func(s Store) error) error {
	s := fs.activeStore()
	err := op(s)
	if err == nil || s == fs.fallback || !errors.Is(err, ErrBackendUnavailable) {
		return err
	}

	fs.demote(err)
	return op(fs.fallback)
}

func (fs *FailoverStore) Set(ctx context.Context, key string, value []byte, ttl ...time.Duration) error {
	return fs.do(func(s Store) error { return s.Set(ctx, key, value, ttl...) })
}

func (fs *FailoverStore) Get(ctx context.Context, key string) ([]byte, error) {
	var out []byte
	err := fs.do(func(s Store) error {
		var e error
		out, e = s.Get(ctx, key)
		return e
	})
	return out, err
}

func (fs *FailoverStore) SetString(ctx context.Context, key string, value string, ttl ...time.Duration) error {
	return fs.Set(ctx, key, []byte(value), ttl...)
}

func (fs *FailoverStore) GetString(ctx context.Context, key string) (string, error) {
	data, err := fs.Get(ctx, key)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (fs *FailoverStore) Del(ctx context.Context, keys ...string) (int64, error) {
	var out int64
	err := fs.do(func(s Store) error {
		var e error
		out, e = s.Del(ctx, keys...)
		return e
	})
	return out, err
}

func (fs *FailoverStore) Exists(ctx context.Context, keys ...string) (int64, error) {
	var out int64
	err := fs.do(func(s Store) error {
		var e error
		out, e = s.Exists(ctx, keys...)
		return e
	})
	return out, err
}

func (fs *FailoverStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	var out bool
	err := fs.do(func(s Store) error {
		var e error
		out, e = s.Expire(ctx, key, ttl)
		return e
	})
	return out, err
}

func (fs *FailoverStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	var out time.Duration
	err := fs.do(func(s Store) error {
		var e error
		out, e = s.TTL(ctx, key)
		return e
	})
	return out, err
}

func (fs *FailoverStore) IncrBy(ctx context.Context, key string, n int64) (int64, error) {
	var out int64
	err := fs.do(func(s Store) error {
		var e error
		out, e = s.IncrBy(ctx, key, n)
		return e
	})
	return out, err
}

func (fs *FailoverStore) HSet(ctx context.Context, key string, field string, value []byte) error {
	return fs.do(func(s Store) error { return s.HSet(ctx, key, field, value) })
}

func (fs *FailoverStore) HGet(ctx context.Context, key string, field string) ([]byte, error) {
	var out []byte
	err := fs.do(func(s Store) error {
		var e error
		out, e = s.HGet(ctx, key, field)
		return e
	})
	return out, err
}

func (fs *FailoverStore) HDel(ctx context.Context, key string, fields ...string) (int64, error) {
	var out int64
	err := fs.do(func(s Store) error {
		var e error
		out, e = s.HDel(ctx, key, fields...)
		return e
	})
	return out, err
}

func (fs *FailoverStore) HGetAll(ctx context.Context, key string) (map[string][]byte, error) {
	var out map[string][]byte
	err := fs.do(func(s Store) error {
		var e error
		out, e = s.HGetAll(ctx, key)
		return e
	})
	return out, err
}

func (fs *FailoverStore) Ping(ctx context.Context) error {
	return fs.activeStore().Ping(ctx)
}

func (fs *FailoverStore) Close() error {
	fs.mu.Lock()
	fs.closed = true
	if fs.probing {
		close(fs.probeStop)
		fs.probing = false
	}
	fs.mu.Unlock()

	err := fs.primary.Close()
	if ferr := fs.fallback.Close(); err == nil {
		err = ferr
	}
	return err
}

var _ Store = (*FailoverStore)(nil)
