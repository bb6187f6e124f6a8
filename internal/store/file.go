package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// File keeps one <slot>.json per slot under dir.
type File struct {
	dir string
}

// DefaultDir is ~/.mm/<profile>.
func DefaultDir(profile string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if profile == "" {
		profile = "default"
	}
	return filepath.Join(home, ".mm", profile), nil
}

func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create save dir: %w", err)
	}
	return &File{dir: dir}, nil
}

func (f *File) path(slot string) string {
	return filepath.Join(f.dir, slot+".json")
}

func (f *File) Load(_ context.Context, slot string) ([]byte, error) {
	if err := validSlot(slot); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(f.path(slot))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return raw, nil
}

// Save writes to a temp file and renames it over the slot, so a crash never
// leaves a half-written save.
func (f *File) Save(_ context.Context, slot string, data []byte) error {
	if err := validSlot(slot); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.dir, slot+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path(slot))
}

func (f *File) Close() error { return nil }
