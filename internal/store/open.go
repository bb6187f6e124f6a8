package store

import (
	"context"
	"fmt"
	"time"

	"marketmasters/internal/db"
)

type Options struct {
	Kind        Kind
	Profile     string
	Dir         string
	DatabaseURL string
	RedisURL    string
	CacheTTL    time.Duration
}

// Open builds the store named by opts.Kind. An empty Dir for the file store
// means DefaultDir(opts.Profile).
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Kind {
	case "", KindFile:
		dir := opts.Dir
		if dir == "" {
			var err error
			if dir, err = DefaultDir(opts.Profile); err != nil {
				return nil, fmt.Errorf("resolve save dir: %w", err)
			}
		}
		return NewFile(dir)
	case KindMemory:
		return NewMemory(), nil
	case KindPostgres:
		return openPostgres(ctx, opts)
	case KindRedis:
		if opts.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is required for the redis store")
		}
		rdb, err := db.ConnectRedis(ctx, opts.RedisURL)
		if err != nil {
			return nil, err
		}
		return NewRedis(rdb, opts.Profile), nil
	case KindCached:
		if opts.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is required for the cached store")
		}
		pg, err := openPostgres(ctx, opts)
		if err != nil {
			return nil, err
		}
		rdb, err := db.ConnectRedis(ctx, opts.RedisURL)
		if err != nil {
			pg.Close()
			return nil, err
		}
		ttl := opts.CacheTTL
		if ttl <= 0 {
			ttl = 5 * time.Minute
		}
		return NewCached(pg, rdb, opts.Profile, ttl), nil
	default:
		return nil, fmt.Errorf("unknown store %q", opts.Kind)
	}
}

func openPostgres(ctx context.Context, opts Options) (*Postgres, error) {
	if opts.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required for the %s store", opts.Kind)
	}
	pool, err := db.Connect(ctx, opts.DatabaseURL)
	if err != nil {
		return nil, err
	}
	pg := NewPostgres(pool, opts.Profile)
	pg.owned = true
	if err := pg.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pg, nil
}
