package registry

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisCache(t *testing.T, registryName string, ttl time.Duration) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCacheFromClient(client, registryName, ttl), mr
}

func TestRedisCacheRoundTrip(t *testing.T) {
	ctx := t.Context()
	cache, _ := newTestRedisCache(t, "phone", time.Minute)

	want := Verdict{
		Key:         "01012345678",
		FraudListed: true,
		ReportCount: 4,
		Source:      "phone",
		CheckedAt:   time.Now().UTC().Truncate(time.Second),
	}
	cache.Set(ctx, want.Key, want)

	got, ok := cache.Get(ctx, want.Key)
	if !ok {
		t.Fatal("Get missed a freshly stored verdict")
	}
	if got.FraudListed != want.FraudListed || got.ReportCount != want.ReportCount || got.Source != want.Source {
		t.Errorf("Get = %+v, want %+v", got, want)
	}
}

func TestRedisCacheMiss(t *testing.T) {
	ctx := t.Context()
	cache, _ := newTestRedisCache(t, "phone", time.Minute)

	if _, ok := cache.Get(ctx, "never-stored"); ok {
		t.Error("Get returned ok for a missing key")
	}
}

func TestRedisCacheTTL(t *testing.T) {
	ctx := t.Context()
	cache, mr := newTestRedisCache(t, "phone", time.Minute)

	cache.Set(ctx, "01012345678", Verdict{Key: "01012345678"})

	mr.FastForward(59 * time.Second)
	if _, ok := cache.Get(ctx, "01012345678"); !ok {
		t.Error("entry expired before its TTL")
	}

	mr.FastForward(2 * time.Second)
	if _, ok := cache.Get(ctx, "01012345678"); ok {
		t.Error("entry survived past its TTL")
	}
}

func TestRedisCacheKeyspaceIsolation(t *testing.T) {
	ctx := t.Context()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	phones := NewRedisCacheFromClient(client, "phone", time.Minute)
	accounts := NewRedisCacheFromClient(client, "account", time.Minute)

	phones.Set(ctx, "12345", Verdict{Key: "12345", FraudListed: true, Source: "phone"})

	if _, ok := accounts.Get(ctx, "12345"); ok {
		t.Error("account keyspace sees a phone entry")
	}
	if _, ok := phones.Get(ctx, "12345"); !ok {
		t.Error("phone keyspace lost its own entry")
	}
}

func TestRedisCacheCorruptEntryIsMiss(t *testing.T) {
	ctx := t.Context()
	cache, mr := newTestRedisCache(t, "phone", time.Minute)

	if err := mr.Set("scamshield:rep:phone:bad", "not-json"); err != nil {
		t.Fatalf("seed corrupt entry: %v", err)
	}
	if _, ok := cache.Get(ctx, "bad"); ok {
		t.Error("corrupt entry surfaced as a cache hit")
	}
}
