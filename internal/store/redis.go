package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

func slotKey(profile, slot string) string { return fmt.Sprintf("mm:%s:slot:%s", profile, slot) }

// Redis stores each slot under its own key with no expiry.
type Redis struct {
	rdb     *redis.Client
	profile string
}

func NewRedis(rdb *redis.Client, profile string) *Redis {
	if profile == "" {
		profile = "default"
	}
	return &Redis{rdb: rdb, profile: profile}
}

func (s *Redis) Load(ctx context.Context, slot string) ([]byte, error) {
	if err := validSlot(slot); err != nil {
		return nil, err
	}
	data, err := s.rdb.Get(ctx, slotKey(s.profile, slot)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load slot %s: %w", slot, err)
	}
	return data, nil
}

func (s *Redis) Save(ctx context.Context, slot string, data []byte) error {
	if err := validSlot(slot); err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, slotKey(s.profile, slot), data, 0).Err(); err != nil {
		return fmt.Errorf("save slot %s: %w", slot, err)
	}
	return nil
}

func (s *Redis) Close() error { return s.rdb.Close() }

// Cached puts a Redis read-through cache in front of a primary store.
// Writes go to the primary first and then refresh the cache entry.
type Cached struct {
	primary Store
	rdb     *redis.Client
	profile string
	ttl     time.Duration
}

func NewCached(primary Store, rdb *redis.Client, profile string, ttl time.Duration) *Cached {
	if profile == "" {
		profile = "default"
	}
	return &Cached{primary: primary, rdb: rdb, profile: profile, ttl: ttl}
}

func cacheKey(profile, slot string) string { return fmt.Sprintf("mm:%s:cache:%s", profile, slot) }

func (s *Cached) Load(ctx context.Context, slot string) ([]byte, error) {
	if err := validSlot(slot); err != nil {
		return nil, err
	}
	if data, err := s.rdb.Get(ctx, cacheKey(s.profile, slot)).Bytes(); err == nil {
		return data, nil
	}
	data, err := s.primary.Load(ctx, slot)
	if err != nil || data == nil {
		return data, err
	}
	s.rdb.Set(ctx, cacheKey(s.profile, slot), data, s.ttl)
	return data, nil
}

func (s *Cached) Save(ctx context.Context, slot string, data []byte) error {
	if err := validSlot(slot); err != nil {
		return err
	}
	if err := s.primary.Save(ctx, slot, data); err != nil {
		s.rdb.Del(ctx, cacheKey(s.profile, slot))
		return err
	}
	s.rdb.Set(ctx, cacheKey(s.profile, slot), data, s.ttl)
	return nil
}

func (s *Cached) Close() error {
	err := s.primary.Close()
	if cerr := s.rdb.Close(); err == nil {
		err = cerr
	}
	return err
}
