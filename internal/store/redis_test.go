package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

type failingStore struct {
	*Memory
	err error
}

func (f *failingStore) Save(context.Context, string, []byte) error { return f.err }

func TestRedisRoundTrip(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	s := NewRedis(rdb, "alice")

	data, err := s.Load(ctx, "marketmasters_full_v1")
	if err != nil || data != nil {
		t.Fatalf("empty slot: got %q, %v; want nil, nil", data, err)
	}
	if err := s.Save(ctx, "marketmasters_full_v1", []byte(`{"version":1}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := mr.Get("mm:alice:slot:marketmasters_full_v1")
	if err != nil || got != `{"version":1}` {
		t.Fatalf("stored key = %q, %v", got, err)
	}
	if ttl := mr.TTL("mm:alice:slot:marketmasters_full_v1"); ttl != 0 {
		t.Fatalf("slot key has ttl %s", ttl)
	}
	data, err = s.Load(ctx, "marketmasters_full_v1")
	if err != nil || string(data) != `{"version":1}` {
		t.Fatalf("load = %q, %v", data, err)
	}

	other := NewRedis(rdb, "bob")
	if data, err := other.Load(ctx, "marketmasters_full_v1"); err != nil || data != nil {
		t.Fatalf("profiles leaked into each other: %q, %v", data, err)
	}
	if err := s.Save(ctx, "../x", []byte("{}")); err == nil {
		t.Fatalf("invalid slot accepted")
	}
}

func TestCachedReadThrough(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	primary := NewMemory()
	if err := primary.Save(ctx, "slot", []byte("v1")); err != nil {
		t.Fatalf("seed primary: %v", err)
	}
	s := NewCached(primary, rdb, "alice", time.Minute)

	data, err := s.Load(ctx, "slot")
	if err != nil || string(data) != "v1" {
		t.Fatalf("load = %q, %v", data, err)
	}
	if got, _ := mr.Get("mm:alice:cache:slot"); got != "v1" {
		t.Fatalf("cache not filled, got %q", got)
	}
	if ttl := mr.TTL("mm:alice:cache:slot"); ttl != time.Minute {
		t.Fatalf("cache ttl = %s", ttl)
	}

	if err := primary.Save(ctx, "slot", []byte("v2")); err != nil {
		t.Fatalf("update primary: %v", err)
	}
	if data, _ := s.Load(ctx, "slot"); string(data) != "v1" {
		t.Fatalf("load before expiry = %q, want cached v1", data)
	}
	mr.FastForward(time.Minute + time.Second)
	if data, _ := s.Load(ctx, "slot"); string(data) != "v2" {
		t.Fatalf("load after expiry = %q, want v2", data)
	}

	if data, err := s.Load(ctx, "missing"); err != nil || data != nil {
		t.Fatalf("missing slot = %q, %v", data, err)
	}
	if mr.Exists("mm:alice:cache:missing") {
		t.Fatalf("missing slot was cached")
	}
}

func TestCachedSaveRefreshesCache(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	primary := NewMemory()
	s := NewCached(primary, rdb, "alice", time.Minute)

	mr.Set("mm:alice:cache:slot", "stale")
	if err := s.Save(ctx, "slot", []byte("fresh")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got, _ := mr.Get("mm:alice:cache:slot"); got != "fresh" {
		t.Fatalf("cache = %q, want fresh", got)
	}
	if data, _ := primary.Load(ctx, "slot"); string(data) != "fresh" {
		t.Fatalf("primary = %q, want fresh", data)
	}
}

func TestCachedDropsKeyWhenPrimaryFails(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	boom := errors.New("primary down")
	s := NewCached(&failingStore{Memory: NewMemory(), err: boom}, rdb, "alice", time.Minute)

	mr.Set("mm:alice:cache:slot", "old")
	if err := s.Save(ctx, "slot", []byte("new")); !errors.Is(err, boom) {
		t.Fatalf("save err = %v, want %v", err, boom)
	}
	if mr.Exists("mm:alice:cache:slot") {
		t.Fatalf("cache key kept after primary failure")
	}
}
