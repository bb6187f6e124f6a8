// Package store persists game save slots. Each slot is an opaque JSON blob
// keyed by profile and slot name.
package store

import (
	"context"
	"fmt"
	"strings"
)

type Kind string

const (
	KindFile     Kind = "file"
	KindMemory   Kind = "memory"
	KindPostgres Kind = "postgres"
	KindRedis    Kind = "redis"
	KindCached   Kind = "cached"
)

// Store loads and saves slot payloads. Load returns nil, nil for a slot that
// was never written.
type Store interface {
	Load(ctx context.Context, slot string) ([]byte, error)
	Save(ctx context.Context, slot string, data []byte) error
	Close() error
}

func ParseKind(v string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(v))); k {
	case "":
		return KindFile, nil
	case KindFile, KindMemory, KindPostgres, KindRedis, KindCached:
		return k, nil
	default:
		return "", fmt.Errorf("unknown store %q (want file, memory, postgres, redis or cached)", v)
	}
}

func validSlot(slot string) error {
	if slot == "" || strings.ContainsAny(slot, `/\:`) || strings.Contains(slot, "..") {
		return fmt.Errorf("invalid slot name %q", slot)
	}
	return nil
}
