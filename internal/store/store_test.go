package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestStoresRoundTrip(t *testing.T) {
	ctx := context.Background()
	file, err := NewFile(t.TempDir())
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	stores := map[string]Store{
		"file":   file,
		"memory": NewMemory(),
	}
	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			data, err := s.Load(ctx, "marketmasters_full_v1")
			if err != nil || data != nil {
				t.Fatalf("empty slot: got %q, %v; want nil, nil", data, err)
			}
			if err := s.Save(ctx, "marketmasters_full_v1", []byte(`{"version":1}`)); err != nil {
				t.Fatalf("save: %v", err)
			}
			if err := s.Save(ctx, "marketmasters_full_v1", []byte(`{"version":2}`)); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			data, err = s.Load(ctx, "marketmasters_full_v1")
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if string(data) != `{"version":2}` {
				t.Fatalf("got %q", data)
			}
			other, err := s.Load(ctx, "leaderboard_scores")
			if err != nil || other != nil {
				t.Fatalf("slots leaked into each other: %q, %v", other, err)
			}
		})
	}
}

func TestInvalidSlotNames(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	for _, slot := range []string{"", "../etc", "a/b", `a\b`, "mm:x"} {
		if err := s.Save(ctx, slot, []byte("{}")); err == nil {
			t.Fatalf("slot %q accepted", slot)
		}
		if _, err := s.Load(ctx, slot); err == nil {
			t.Fatalf("slot %q accepted on load", slot)
		}
	}
}

func TestFileSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFile(dir)
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	if err := s.Save(context.Background(), "slot", []byte("{}")); err != nil {
		t.Fatalf("save: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "slot.json" {
		t.Fatalf("unexpected dir contents: %v", entries)
	}
	info, err := os.Stat(filepath.Join(dir, "slot.json"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestFileEmptyIsMissing(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "slot.json"), nil, 0o600); err != nil {
		t.Fatal(err)
	}
	s, _ := NewFile(dir)
	data, err := s.Load(context.Background(), "slot")
	if err != nil || data != nil {
		t.Fatalf("got %q, %v", data, err)
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"", KindFile, false},
		{"Postgres", KindPostgres, false},
		{" redis ", KindRedis, false},
		{"cached", KindCached, false},
		{"sqlite", "", true},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseKind(%q) err = %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseKind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOpenMemoryAndFile(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, Options{Kind: KindMemory})
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	if _, ok := s.(*Memory); !ok {
		t.Fatalf("got %T", s)
	}
	s, err = Open(ctx, Options{Kind: KindFile, Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("open file: %v", err)
	}
	if _, ok := s.(*File); !ok {
		t.Fatalf("got %T", s)
	}
	if _, err := Open(ctx, Options{Kind: KindPostgres}); err == nil {
		t.Fatal("postgres without DATABASE_URL should fail")
	}
	if _, err := Open(ctx, Options{Kind: KindRedis}); err == nil {
		t.Fatal("redis without REDIS_URL should fail")
	}
}
