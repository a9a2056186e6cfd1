// Package kv provides a Redis-like key-value store abstraction with in-memory
// and Redis-backed implementations.
//
// The Store interface covers the operations the gateway's durable state needs:
// strings with TTL, hashes, and counters. The in-memory implementation gives a
// first-class development and testing experience with full TTL support and
// background expiration; the Redis adapter wraps go-redis/v9 for production
// use behind the same interface. A failover wrapper keeps the gateway serving
// when Redis drops out and promotes back once it recovers.
//
// Example usage:
//
//	store, err := kv.NewStoreFromConfig(kv.Config{
//		Backend:         kv.BackendMemory,
//		JanitorInterval: 30 * time.Second,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
//
//	ctx := context.Background()
//	if err := store.HSet(ctx, "likes:u1", "42", []byte("1")); err != nil {
//		log.Fatal(err)
//	}
//
//	v, err := store.HGet(ctx, "likes:u1", "42")
//	if errors.Is(err, kv.ErrNotFound) {
//		// never recorded
//	}
package kv
