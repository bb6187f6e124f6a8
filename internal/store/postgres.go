package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores slots as JSONB rows in game.save_slots.
type Postgres struct {
	pool    *pgxpool.Pool
	profile string
	owned   bool
}

func NewPostgres(pool *pgxpool.Pool, profile string) *Postgres {
	if profile == "" {
		profile = "default"
	}
	return &Postgres{pool: pool, profile: profile}
}

// EnsureSchema creates the save table when it is missing.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE SCHEMA IF NOT EXISTS game;
		CREATE TABLE IF NOT EXISTS game.save_slots (
			profile    TEXT        NOT NULL,
			slot       TEXT        NOT NULL,
			data       JSONB       NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (profile, slot)
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure save_slots schema: %w", err)
	}
	return nil
}

func (s *Postgres) Load(ctx context.Context, slot string) ([]byte, error) {
	if err := validSlot(slot); err != nil {
		return nil, err
	}
	var data []byte
	err := s.pool.QueryRow(ctx, `
		SELECT data::TEXT
		FROM game.save_slots
		WHERE profile = $1 AND slot = $2
	`, s.profile, slot).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load slot %s: %w", slot, err)
	}
	return data, nil
}

func (s *Postgres) Save(ctx context.Context, slot string, data []byte) error {
	if err := validSlot(slot); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO game.save_slots (profile, slot, data, updated_at)
		VALUES ($1, $2, $3::JSONB, now())
		ON CONFLICT (profile, slot) DO UPDATE
		SET data = EXCLUDED.data, updated_at = now()
	`, s.profile, slot, string(data))
	if err != nil {
		return fmt.Errorf("save slot %s: %w", slot, err)
	}
	return nil
}

// Close releases the pool only when the store opened it itself.
func (s *Postgres) Close() error {
	if s.owned {
		s.pool.Close()
	}
	return nil
}
