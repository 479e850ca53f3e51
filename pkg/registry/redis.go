package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores reputation verdicts in Redis with server-side TTL.
// Used when several engine instances should share one reputation view;
// the size bound is delegated to Redis's maxmemory eviction policy.
//
// Keys follow `scamshield:rep:<registry>:<key>` so one Redis instance can
// serve both registries without collisions.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache connects to Redis at addr and verifies reachability with a
// bounded ping. registryName distinguishes the phone and account keyspaces.
func NewRedisCache(addr, registryName string, ttl time.Duration) (*RedisCache, error) {
	if ttl <= 0 {
		ttl = time.Hour
	}
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis unreachable at %s: %w", addr, err)
	}

	return &RedisCache{
		client: client,
		prefix: "scamshield:rep:" + registryName + ":",
		ttl:    ttl,
	}, nil
}

// NewRedisCacheFromClient wraps an existing client (tests use miniredis).
func NewRedisCacheFromClient(client *redis.Client, registryName string, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisCache{
		client: client,
		prefix: "scamshield:rep:" + registryName + ":",
		ttl:    ttl,
	}
}

// Get returns the cached verdict if present. Redis errors degrade to a
// cache miss; the caller then performs the remote lookup as usual.
func (r *RedisCache) Get(ctx context.Context, key string) (Verdict, bool) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[registry] redis get failed: %v", err)
		}
		return Verdict{}, false
	}
	var v Verdict
	if err := json.Unmarshal(data, &v); err != nil {
		log.Printf("[registry] redis entry corrupt, discarding: %v", err)
		return Verdict{}, false
	}
	return v, true
}

// Set stores the verdict with TTL. Write failures are logged and dropped;
// a cache that cannot write only costs a future remote lookup.
func (r *RedisCache) Set(ctx context.Context, key string, v Verdict) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, r.prefix+key, data, r.ttl).Err(); err != nil {
		log.Printf("[registry] redis set failed: %v", err)
	}
}

// Close releases the underlying connection pool.
func (r *RedisCache) Close() error {
	return r.client.Close()
}
