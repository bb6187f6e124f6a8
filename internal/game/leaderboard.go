package game

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LeaderboardEntry struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Value  decimal.Decimal `json:"value"`
	At     time.Time       `json:"at"`
	Season string          `json:"season"`
}

// SeasonID names the ISO week containing t, e.g. "2026-W42".
func SeasonID(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// SeasonEnd is the start of the ISO week following t, in t's location.
func SeasonEnd(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := (int(time.Monday) - int(day.Weekday()) + 7) % 7
	if offset == 0 {
		offset = 7
	}
	return day.AddDate(0, 0, offset)
}

func newLeaderboardEntry(name string, value decimal.Decimal, at time.Time) LeaderboardEntry {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Player"
	}
	if r := []rune(name); len(r) > LeaderboardNameLimit {
		name = strings.TrimSpace(string(r[:LeaderboardNameLimit]))
	}
	return LeaderboardEntry{
		ID:     uuid.NewString(),
		Name:   name,
		Value:  RoundCurrency(value),
		At:     at,
		Season: SeasonID(at),
	}
}

// TopEntries filters to season, orders by value descending (earlier entries
// win ties) and keeps at most LeaderboardTop.
func TopEntries(entries []LeaderboardEntry, season string) []LeaderboardEntry {
	out := make([]LeaderboardEntry, 0, len(entries))
	for _, e := range entries {
		if e.Season == season {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Value.Equal(out[j].Value) {
			return out[i].Value.GreaterThan(out[j].Value)
		}
		return out[i].At.Before(out[j].At)
	})
	if len(out) > LeaderboardTop {
		out = out[:LeaderboardTop]
	}
	return out
}
