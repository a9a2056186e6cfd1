package kv

import (
	"context"
	"fmt"
	"time"
)

// Backend represents the storage backend type
type Backend string

const (
	// BackendMemory uses the in-memory store
	BackendMemory Backend = "memory"
	// BackendRedis uses Redis as the backend
	BackendRedis Backend = "redis"
)

// LogFunc is a function type for structured logging
type LogFunc func(msg string, fields ...any)

// Config holds configuration for creating a Store instance
type Config struct {
	// Backend specifies which storage backend to use
	Backend Backend

	// RedisAddr is the host:port of the Redis server (required when Backend
	// is "redis")
	RedisAddr string

	// JanitorInterval controls how often the in-memory store cleans up
	// expired keys. Set to 0 to disable background cleanup.
	// Default: 30 seconds
	JanitorInterval time.Duration

	// FailoverEnabled controls whether automatic failover to the in-memory
	// store is enabled when Redis becomes unavailable. Default: true
	FailoverEnabled bool

	// ProbeInterval controls how often to probe Redis for recovery after
	// failover. Default: 5 seconds
	ProbeInterval time.Duration

	// StartupProbeTimeout controls how long to wait for Redis at startup.
	// Default: 1 second
	StartupProbeTimeout time.Duration

	// Logger is used for logging failover events. If nil, no logging occurs.
	Logger LogFunc
}

// StoreFactory defines a function that creates a Store instance
type StoreFactory func(cfg Config) (Store, error)

// factories holds registered store factories
var factories = make(map[Backend]StoreFactory)

// RegisterBackend registers a store factory for a given backend
func RegisterBackend(backend Backend, factory StoreFactory) {
	factories[backend] = factory
}

func (c *Config) applyDefaults() {
	if c.JanitorInterval == 0 {
		c.JanitorInterval = 30 * time.Second
	}
	if c.ProbeInterval == 0 {
		c.ProbeInterval = 5 * time.Second
	}
	if c.StartupProbeTimeout == 0 {
		c.StartupProbeTimeout = time.Second
	}
}

// NewStoreFromConfig creates a Store based on the provided configuration.
//
// For the redis backend with failover enabled (the default for production
// wiring), the returned store automatically serves from an in-memory fallback
// while Redis is unreachable and promotes back once it recovers.
func NewStoreFromConfig(cfg Config) (Store, error) {
	cfg.applyDefaults()

	factory, ok := factories[cfg.Backend]
	if !ok {
		return nil, fmt.Errorf("unknown kv backend %q", cfg.Backend)
	}

	primary, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("create %s store: %w", cfg.Backend, err)
	}

	if cfg.Backend != BackendRedis || !cfg.FailoverEnabled {
		return primary, nil
	}

	memFactory, ok := factories[BackendMemory]
	if !ok {
		return primary, nil
	}
	fallback, err := memFactory(cfg)
	if err != nil {
		return nil, fmt.Errorf("create fallback store: %w", err)
	}

	fs := NewFailoverStore(primary, fallback, cfg.ProbeInterval, cfg.Logger)

	// Probe the primary once at startup so a dead Redis does not block the
	// first real request.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.StartupProbeTimeout)
	defer cancel()
	if err := primary.Ping(ctx); err != nil {
		fs.demote(err)
	}

	return fs, nil
}
