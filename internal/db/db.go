// Package db defines the storage contract for the shared key-value cache.
package db

import (
	"context"
	"time"
)

// Store is the key-value cache facade. Values are binary-safe;
// per-key TTL is supported on write.
type Store interface {
	Pinger
	KVStore
	ListStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// ListStore provides queue-style list operations for the recompute
// queue.
type ListStore interface {
	// LPush enqueues a value. The engine itself never produces; the
	// case API pushes changed case ids here and the worker's drain
	// loop pops them. The method pins the producer side of that
	// contract.
	LPush(ctx context.Context, key string, value string) error
	RPop(ctx context.Context, key string) (string, error)
}
