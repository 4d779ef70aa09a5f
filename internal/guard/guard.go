// Package guard implements the concurrent-submission guard: a process-wide
// (or, with redis, deployment-wide) in-flight set keyed by external sale
// reference. The guard is a liveness aid against duplicate racing clients —
// the ledger append itself is still atomic at the store boundary.
//
// Contract: Acquire marks the key in-flight and reports whether the caller
// won it. The winner MUST Release the key before returning, on success and
// error paths alike; a failed append must never leave a reference
// permanently marked in-flight.
package guard

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type Guard interface {
	// Acquire returns true when the key was free and is now held by the caller.
	Acquire(ctx context.Context, key string) (bool, error)
	// Release frees the key. Releasing a key that is not held is a no-op.
	Release(ctx context.Context, key string)
}

// ── In-memory guard ──────────────────────────────────────────────────────────

// MemoryGuard is the single-instance implementation: a mutex-protected set.
type MemoryGuard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{inFlight: make(map[string]struct{})}
}

func (g *MemoryGuard) Acquire(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, held := g.inFlight[key]; held {
		return false, nil
	}
	g.inFlight[key] = struct{}{}
	return true, nil
}

func (g *MemoryGuard) Release(_ context.Context, key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inFlight, key)
}

// ── Redis guard ──────────────────────────────────────────────────────────────

const redisKeyPrefix = "inflight:"

// RedisGuard serializes submissions across multiple terminals sharing one
// redis. The TTL bounds how long a crashed holder can block a reference.
type RedisGuard struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisGuard(rdb *redis.Client, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisGuard{rdb: rdb, ttl: ttl}
}

func (g *RedisGuard) Acquire(ctx context.Context, key string) (bool, error) {
	return g.rdb.SetNX(ctx, redisKeyPrefix+key, "1", g.ttl).Result()
}

func (g *RedisGuard) Release(ctx context.Context, key string) {
	// Best effort: if redis is briefly unreachable the TTL still frees the key.
	_ = g.rdb.Del(ctx, redisKeyPrefix+key).Err()
}

var (
	_ Guard = (*MemoryGuard)(nil)
	_ Guard = (*RedisGuard)(nil)
)
