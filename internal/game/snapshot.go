package game

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	SaveSlot        = "marketmasters_full_v1"
	LeaderboardSlot = "leaderboard_scores"

	SnapshotVersion = 1
)

// Snapshot is the persisted game, written wholesale to SaveSlot.
type Snapshot struct {
	Version      int           `json:"version"`
	SavedAt      time.Time     `json:"saved_at"`
	Prices       PriceState    `json:"prices"`
	Ledger       Ledger        `json:"ledger"`
	Progression  Progression   `json:"progression"`
	RecentEvents []RecentEvent `json:"recent_events"`
	Chart        []ChartSample `json:"chart"`
}

func NewSnapshot(now time.Time) Snapshot {
	return Snapshot{
		Version:     SnapshotVersion,
		Prices:      make(PriceState),
		Ledger:      *NewLedger(StarterCash),
		Progression: *NewProgression(SeasonID(now)),
	}
}

func EncodeSnapshot(s Snapshot) ([]byte, error) {
	s.Version = SnapshotVersion
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot reads any known snapshot shape and returns it in the
// current schema. Unversioned data is treated as the legacy browser layout.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var header struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}

	var s Snapshot
	switch {
	case header.Version > SnapshotVersion:
		return Snapshot{}, fmt.Errorf("decode snapshot: unsupported version %d", header.Version)
	case header.Version >= 1:
		if err := json.Unmarshal(data, &s); err != nil {
			return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
		}
	default:
		migrated, err := migrateLegacySnapshot(data)
		if err != nil {
			return Snapshot{}, err
		}
		s = migrated
	}
	s.normalize()
	return s, nil
}

func (s *Snapshot) normalize() {
	s.Version = SnapshotVersion
	if s.Prices == nil {
		s.Prices = make(PriceState)
	}
	s.Ledger.ensureMaps()
	if s.Ledger.Cash.IsNegative() {
		s.Ledger.Cash = decimal.Zero
	}
	for sym, h := range s.Ledger.Holdings {
		if _, ok := instrumentIndex[sym]; !ok || h.Shares <= 0 {
			delete(s.Ledger.Holdings, sym)
		}
	}
	if len(s.Ledger.Orders) > OrderHistoryLimit {
		s.Ledger.Orders = s.Ledger.Orders[:OrderHistoryLimit]
	}

	s.Progression.normalize()
	missions := s.Progression.Missions[:0]
	for _, m := range s.Progression.Missions {
		if _, ok := missionTemplateFor(m.Kind); !ok {
			continue
		}
		if m.Baseline.HoldTicks == nil {
			m.Baseline.HoldTicks = make(map[string]int64)
		}
		missions = append(missions, m)
	}
	s.Progression.Missions = missions
	if s.Progression.Boosts.XPMultiplier > 0 && s.Progression.Boosts.ExpiresAt.IsZero() {
		s.Progression.Boosts = Boosts{}
	}

	if len(s.RecentEvents) > RecentEventsLimit {
		s.RecentEvents = s.RecentEvents[:RecentEventsLimit]
	}
	if len(s.Chart) > ChartSampleLimit {
		s.Chart = s.Chart[len(s.Chart)-ChartSampleLimit:]
	}
}

type legacyMission struct {
	ID     string        `json:"id"`
	Text   string        `json:"text"`
	Reward MissionReward `json:"reward"`
	// done is re-judged after load, never carried over.
	Done bool `json:"done"`
	// assignedAt may be missing on saves from before baselines existed.
	AssignedAt *time.Time `json:"assignedAt"`
	Baseline   struct {
		Trades       int64            `json:"trades"`
		HoldCounters map[string]int64 `json:"holdCounters"`
	} `json:"baseline"`
}

type legacySnapshot struct {
	XP           int64                      `json:"xp"`
	Level        int                        `json:"level"`
	Coins        int64                      `json:"coins"`
	Cash         *float64                   `json:"cash"`
	Achievements map[string]json.RawMessage `json:"achievements"`
	Missions     []legacyMission            `json:"missions"`
	MissionsDate *string                    `json:"missionsDate"`
	ShopOwned    map[string]bool            `json:"shopOwned"`
	Prestige     struct {
		Count        int64 `json:"count"`
		LegacyPoints int64 `json:"legacyPoints"`
	} `json:"prestige"`
	SeasonID     string `json:"seasonId"`
	ActiveBoosts struct {
		XPMultiplier float64    `json:"xpMultiplier"`
		ExpiresAt    *time.Time `json:"expiresAt"`
	} `json:"activeBoosts"`
	CumulativeProfit float64 `json:"cumulativeProfit"`
	TickDeltas       []struct {
		TS    time.Time `json:"ts"`
		Delta float64   `json:"delta"`
	} `json:"tickDeltas"`
}

func migrateLegacySnapshot(data []byte) (Snapshot, error) {
	var old legacySnapshot
	if err := json.Unmarshal(data, &old); err != nil {
		return Snapshot{}, fmt.Errorf("migrate legacy snapshot: %w", err)
	}

	s := Snapshot{
		Prices: make(PriceState),
		Ledger: *NewLedger(StarterCash),
	}
	if old.Cash != nil {
		s.Ledger.Cash = RoundCurrency(decimal.NewFromFloat(*old.Cash))
	}

	p := NewProgression(old.SeasonID)
	p.XP = old.XP
	p.Level = old.Level
	p.Coins = old.Coins
	p.LifetimeCoins = old.Coins
	p.Prestige = PrestigeState{Count: old.Prestige.Count, LegacyPoints: old.Prestige.LegacyPoints}
	p.CumulativeProfit = RoundCurrency(decimal.NewFromFloat(old.CumulativeProfit))
	if old.MissionsDate != nil {
		p.MissionsDate = *old.MissionsDate
	}
	for id, owned := range old.ShopOwned {
		if owned {
			p.ShopOwned[id] = true
		}
	}
	if p.ShopOwned["auto_rebuy"] {
		p.AutoRebuy = true
	}
	if p.ShopOwned["chart_skin_neon"] {
		p.Cosmetic = "neon"
	}
	if old.ActiveBoosts.XPMultiplier > 0 && old.ActiveBoosts.ExpiresAt != nil {
		p.Boosts = Boosts{XPMultiplier: old.ActiveBoosts.XPMultiplier, ExpiresAt: *old.ActiveBoosts.ExpiresAt}
	}

	for id, raw := range old.Achievements {
		rec, ok := legacyAchievement(raw)
		if ok {
			p.Achievements[id] = rec
		}
	}
	for _, td := range old.TickDeltas {
		p.TickDeltas = append(p.TickDeltas, TickDelta{At: td.TS, Delta: RoundCurrency(decimal.NewFromFloat(td.Delta))})
	}
	for _, lm := range old.Missions {
		t, ok := missionTemplateFor(MissionKind(lm.ID))
		if !ok {
			continue
		}
		m := Mission{
			Kind:   t.Kind,
			Text:   t.Text,
			Reward: t.Reward,
			Baseline: Baseline{
				TradeCount: lm.Baseline.Trades,
				HoldTicks:  lm.Baseline.HoldCounters,
			},
		}
		if lm.AssignedAt != nil {
			m.AssignedAt = *lm.AssignedAt
		}
		p.Missions = append(p.Missions, m)
	}

	s.Progression = *p
	return s, nil
}

// legacyAchievement accepts both `true` and `{"unlockedAt": ..., "note": ...}`.
func legacyAchievement(raw json.RawMessage) (AchievementRecord, bool) {
	raw = bytes.TrimSpace(raw)
	var flag bool
	if err := json.Unmarshal(raw, &flag); err == nil {
		return AchievementRecord{Note: "migrated"}, flag
	}
	var rec struct {
		UnlockedAt *time.Time `json:"unlockedAt"`
		Note       string     `json:"note"`
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return AchievementRecord{}, false
	}
	out := AchievementRecord{Note: rec.Note}
	if rec.UnlockedAt != nil {
		out.UnlockedAt = *rec.UnlockedAt
	}
	return out, true
}

// DecodeLeaderboard reads the leaderboard slot, accepting the legacy
// {name, value, ts, season} entries as well as the current layout.
func DecodeLeaderboard(data []byte) ([]LeaderboardEntry, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var raw []struct {
		ID     string          `json:"id"`
		Name   string          `json:"name"`
		Value  decimal.Decimal `json:"value"`
		At     *time.Time      `json:"at"`
		TS     *time.Time      `json:"ts"`
		Season string          `json:"season"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode leaderboard: %w", err)
	}
	out := make([]LeaderboardEntry, 0, len(raw))
	for _, r := range raw {
		e := LeaderboardEntry{ID: r.ID, Name: r.Name, Value: r.Value, Season: r.Season}
		switch {
		case r.At != nil:
			e.At = *r.At
		case r.TS != nil:
			e.At = *r.TS
		}
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.Season == "" && !e.At.IsZero() {
			e.Season = SeasonID(e.At)
		}
		out = append(out, e)
	}
	return out, nil
}

func EncodeLeaderboard(entries []LeaderboardEntry) ([]byte, error) {
	if entries == nil {
		entries = []LeaderboardEntry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("encode leaderboard: %w", err)
	}
	return data, nil
}
