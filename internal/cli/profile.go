package cli

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Profile is the local player record: the name used for leaderboard
// entries and when the player last opened the game.
type Profile struct {
	Name       string    `json:"name"`
	LastPlayed time.Time `json:"last_played"`
}

func baseDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv("MM_HOME")); dir != "" {
		return dir, os.MkdirAll(dir, 0o700)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".mm")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}

func profilePath() (string, error) {
	dir, err := baseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "profile.json"), nil
}

func SaveProfile(p Profile) error {
	path, err := profilePath()
	if err != nil {
		return err
	}
	body, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, body, 0o600)
}

// LoadProfile returns an empty profile when none has been saved yet.
func LoadProfile() (Profile, error) {
	path, err := profilePath()
	if err != nil {
		return Profile{}, err
	}
	body, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Profile{}, nil
	}
	if err != nil {
		return Profile{}, err
	}
	var p Profile
	if err := json.Unmarshal(body, &p); err != nil {
		return Profile{}, err
	}
	p.Name = strings.TrimSpace(p.Name)
	return p, nil
}

// DisplayName is the name to put on the leaderboard, falling back to the
// OS user.
func (p Profile) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	if u := strings.TrimSpace(os.Getenv("USER")); u != "" {
		return u
	}
	return "Player"
}

func TouchProfile() (Profile, error) {
	p, err := LoadProfile()
	if err != nil {
		return p, err
	}
	p.LastPlayed = time.Now().UTC()
	return p, SaveProfile(p)
}
