// Package kvstore provides a durable-enough key/value store with TTL,
// sorted-set time-indexed history, and publish/subscribe, backed by Redis
// with an in-memory fallback for tests and offline runs.
package kvstore

import (
	"context"
	"time"
)

// Store is the KV surface every other component depends on.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error

	// ZAdd appends a scored member to a sorted set used for time-indexed
	// history, scored by source timestamp (epoch seconds).
	ZAdd(ctx context.Context, key string, score float64, member []byte) error
	ZRangeByScore(ctx context.Context, key string, min, max float64) ([][]byte, error)
	ZRemRangeByScore(ctx context.Context, key string, min, max float64) error

	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe returns a channel of payloads and an unsubscribe func.
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)
}

// NewAuto selects a Redis-backed store when addr is non-empty, otherwise an
// in-memory store - the same selection the teacher's cache package makes
// off REDIS_ADDR, generalized to an explicit argument instead of an env read
// so callers can wire it from loaded Config rather than process globals.
func NewAuto(addr string) Store {
	if addr == "" {
		return newMemoryStore()
	}
	return newRedisStore(addr)
}
