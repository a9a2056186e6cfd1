package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/khanhnotech/congdongacf-gateway/pkg/kv"
)

// Store is an in-memory implementation of the kv.Store interface
type Store struct {
	mu          sync.Mutex
	strings     map[string][]byte
	hashes      map[string]map[string][]byte
	expirations map[string]time.Time

	janitorInterval time.Duration
	janitorStop     chan struct{}
	janitorDone     chan struct{}
	closeOnce       sync.Once
}

// New creates a new in-memory store with an optional janitor for TTL cleanup
func New(janitorInterval time.Duration) *Store {
	s := &Store{
		strings:         make(map[string][]byte),
		hashes:          make(map[string]map[string][]byte),
		expirations:     make(map[string]time.Time),
		janitorInterval: janitorInterval,
		janitorStop:     make(chan struct{}),
		janitorDone:     make(chan struct{}),
	}

	if janitorInterval > 0 {
		go s.janitor()
	} else {
		close(s.janitorDone)
	}

	return s
}

// NewStore creates an in-memory store without a background janitor; expired
// keys are evicted lazily on access. Intended for tests.
func NewStore() *Store {
	return New(0)
}

func (s *Store) janitor() {
	defer close(s.janitorDone)
	ticker := time.NewTicker(s.janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.evictExpired()
		case <-s.janitorStop:
			return
		}
	}
}

func (s *Store) evictExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, expiry := range s.expirations {
		if now.After(expiry) {
			s.deleteKeyLocked(key)
		}
	}
}

// expireIfDue lazily evicts an expired key (must hold lock). Returns true if
// the key was expired and removed.
func (s *Store) expireIfDue(key string) bool {
	if expiry, exists := s.expirations[key]; exists && time.Now().After(expiry) {
		s.deleteKeyLocked(key)
		return true
	}
	return false
}

func (s *Store) setExpiration(key string, ttl time.Duration) {
	if ttl > 0 {
		s.expirations[key] = time.Now().Add(ttl)
	} else {
		delete(s.expirations, key)
	}
}

func (s *Store) deleteKeyLocked(key string) {
	delete(s.strings, key)
	delete(s.hashes, key)
	delete(s.expirations, key)
}

func (s *Store) existsLocked(key string) bool {
	if s.expireIfDue(key) {
		return false
	}
	if _, ok := s.strings[key]; ok {
		return true
	}
	if h, ok := s.hashes[key]; ok && len(h) > 0 {
		return true
	}
	return false
}

// String operations

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl ...time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteKeyLocked(key)
	s.strings[key] = value

	if len(ttl) > 0 && ttl[0] > 0 {
		s.setExpiration(key, ttl[0])
	}

	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.expireIfDue(key) {
		return nil, kv.ErrNotFound
	}

	value, exists := s.strings[key]
	if !exists {
		return nil, kv.ErrNotFound
	}

	return value, nil
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

// Key operations

func (s *Store) Del(ctx context.Context, keys ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for _, key := range keys {
		if s.existsLocked(key) {
			s.deleteKeyLocked(key)
			deleted++
		}
	}
	return deleted, nil
}

func (s *Store) Exists(ctx context.Context, keys ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, key := range keys {
		if s.existsLocked(key) {
			count++
		}
	}
	return count, nil
}

func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.existsLocked(key) {
		return false, nil
	}
	s.setExpiration(key, ttl)
	return true, nil
}

func (s *Store) TTL(ctx context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.existsLocked(key) {
		return -2 * time.Second, nil // matches Redis: key does not exist
	}
	expiry, ok := s.expirations[key]
	if !ok {
		return -1 * time.Second, nil // exists but no TTL
	}
	remaining := time.Until(expiry)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Counter operations

func (s *Store) IncrBy(ctx context.Context, key string, n int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.expireIfDue(key) {
		// counter restarts from zero
	}

	current := int64(0)
	if data, exists := s.strings[key]; exists {
		parsed, err := strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			return 0, err
		}
		current = parsed
	}

	current += n
	s.strings[key] = []byte(strconv.FormatInt(current, 10))
	return current, nil
}

// Hash operations

func (s *Store) HSet(ctx context.Context, key string, field string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfDue(key)

	h, exists := s.hashes[key]
	if !exists {
		h = make(map[string][]byte)
		s.hashes[key] = h
	}
	h[field] = value
	return nil
}

func (s *Store) HGet(ctx context.Context, key string, field string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.expireIfDue(key) {
		return nil, kv.ErrNotFound
	}

	h, exists := s.hashes[key]
	if !exists {
		return nil, kv.ErrNotFound
	}
	value, exists := h[field]
	if !exists {
		return nil, kv.ErrNotFound
	}
	return value, nil
}

func (s *Store) HDel(ctx context.Context, key string, fields ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.expireIfDue(key) {
		return 0, nil
	}

	h, exists := s.hashes[key]
	if !exists {
		return 0, nil
	}

	var deleted int64
	for _, field := range fields {
		if _, ok := h[field]; ok {
			delete(h, field)
			deleted++
		}
	}
	if len(h) == 0 {
		delete(s.hashes, key)
		delete(s.expirations, key)
	}
	return deleted, nil
}

func (s *Store) HGetAll(ctx context.Context, key string) (map[string][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.expireIfDue(key) {
		return map[string][]byte{}, nil
	}

	h, exists := s.hashes[key]
	if !exists {
		return map[string][]byte{}, nil
	}

	out := make(map[string][]byte, len(h))
	for field, value := range h {
		out[field] = value
	}
	return out, nil
}

// Health check

func (s *Store) Ping(ctx context.Context) error {
	return nil
}

// Close stops the janitor. The store remains usable afterwards; only the
// background cleanup stops.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		if s.janitorInterval > 0 {
			close(s.janitorStop)
			<-s.janitorDone
		}
	})
	return nil
}

var _ kv.Store = (*Store)(nil)
