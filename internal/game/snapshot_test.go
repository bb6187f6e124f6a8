package game

import (
	"testing"
	"time"
	"unicode/utf8"
)

const legacySave = `{
  "xp": 40,
  "level": 3,
  "coins": 220,
  "cash": 8450.5,
  "achievements": {"first_trade": true, "profit_1000": false, "level_10": {"unlockedAt": "2025-05-01T10:00:00.000Z", "note": "nice"}},
  "missions": [
    {"id": "buy_3", "text": "Buy 3 different stocks", "reward": {"coins": 60, "xp": 20}, "done": false,
     "assignedAt": "2025-05-02T08:00:00.000Z", "baseline": {"dayProfit": 0, "trades": 4, "holdCounters": {"ZOOMX": 3}}},
    {"id": "retired_mission", "text": "gone", "reward": {"coins": 1, "xp": 1}}
  ],
  "missionsDate": "2025-05-02",
  "shopOwned": {"chart_skin_neon": true},
  "prestige": {"count": 1, "legacyPoints": 4},
  "seasonId": "2025-W18",
  "activeBoosts": {"xpMultiplier": 1.5},
  "leaderboard": [],
  "tickDeltas": [{"ts": "2025-05-02T08:00:10.000Z", "delta": 12.34}]
}`

func TestDecodeLegacySnapshot(t *testing.T) {
	s, err := DecodeSnapshot([]byte(legacySave))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.Version != SnapshotVersion {
		t.Fatalf("version = %d", s.Version)
	}
	if !s.Ledger.Cash.Equal(dec("8450.5")) {
		t.Fatalf("cash = %s", s.Ledger.Cash)
	}
	p := s.Progression
	if p.XP != 40 || p.Level != 3 || p.Coins != 220 {
		t.Fatalf("progression = %+v", p)
	}
	if len(p.Achievements) != 2 {
		t.Fatalf("achievements = %+v", p.Achievements)
	}
	if rec := p.Achievements["level_10"]; rec.Note != "nice" || rec.UnlockedAt.IsZero() {
		t.Fatalf("level_10 record = %+v", rec)
	}
	if len(p.Missions) != 1 || p.Missions[0].Kind != MissionBuy3 || p.Missions[0].Baseline.HoldTicks["ZOOMX"] != 3 {
		t.Fatalf("missions = %+v", p.Missions)
	}
	if p.Cosmetic != "neon" || !p.ShopOwned["chart_skin_neon"] {
		t.Fatalf("shop state = %+v / %q", p.ShopOwned, p.Cosmetic)
	}
	if p.Boosts.XPMultiplier != 0 {
		t.Fatalf("boost without expiry should be dropped: %+v", p.Boosts)
	}
	if p.Prestige.LegacyPoints != 4 || p.Prestige.Count != 1 {
		t.Fatalf("prestige = %+v", p.Prestige)
	}
	if len(p.TickDeltas) != 1 || !p.TickDeltas[0].Delta.Equal(dec("12.34")) {
		t.Fatalf("tick deltas = %+v", p.TickDeltas)
	}
}

func TestDecodeSnapshotIsIdempotent(t *testing.T) {
	first, err := DecodeSnapshot([]byte(legacySave))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	data, err := EncodeSnapshot(first)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	second, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("decode again: %v", err)
	}
	again, err := EncodeSnapshot(second)
	if err != nil {
		t.Fatalf("encode again: %v", err)
	}
	if string(data) != string(again) {
		t.Fatalf("migration not idempotent:\n%s\n%s", data, again)
	}
}

func TestDecodeSnapshotRejects(t *testing.T) {
	for _, in := range []string{`{"version": 99}`, `not json`} {
		if _, err := DecodeSnapshot([]byte(in)); err == nil {
			t.Fatalf("expected %q to fail", in)
		}
	}
}

func TestDecodeSnapshotNormalizes(t *testing.T) {
	in := `{"version":1,"ledger":{"cash":"-5","holdings":{"NOPEX":{"shares":3,"cost_basis":"1"}}},"progression":{"level":0,"missions":[{"kind":"mystery"}]}}`
	s, err := DecodeSnapshot([]byte(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !s.Ledger.Cash.IsZero() || len(s.Ledger.Holdings) != 0 {
		t.Fatalf("ledger not normalized: %+v", s.Ledger)
	}
	if s.Progression.Level != 1 || len(s.Progression.Missions) != 0 || s.Progression.Achievements == nil {
		t.Fatalf("progression not normalized: %+v", s.Progression)
	}
}

func TestDecodeLegacyLeaderboard(t *testing.T) {
	in := `[{"name":"ann","value":12000.5,"ts":"2026-10-13T10:00:00.000Z","season":"2026-W42"},{"name":"bo","value":9000}]`
	entries, err := DecodeLeaderboard([]byte(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[0].ID == "" || entries[0].At.IsZero() || !entries[0].Value.Equal(dec("12000.5")) {
		t.Fatalf("entry = %+v", entries[0])
	}
	if entries[1].Season != "" {
		t.Fatalf("undated entry got season %q", entries[1].Season)
	}
}

func TestSeasonID(t *testing.T) {
	tests := []struct {
		at   time.Time
		want string
	}{
		{at: time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC), want: "2026-W42"},
		{at: time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), want: "2026-W53"},
		{at: time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC), want: "2025-W01"},
	}
	for _, tc := range tests {
		if got := SeasonID(tc.at); got != tc.want {
			t.Fatalf("%s: got %s want %s", tc.at, got, tc.want)
		}
	}

	sat := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	if got := SeasonEnd(sat); !got.Equal(time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("season end = %s", got)
	}
	mon := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	if got := SeasonEnd(mon); !got.Equal(time.Date(2026, 10, 26, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("season end from monday = %s", got)
	}
}

func TestTopEntries(t *testing.T) {
	base := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	var entries []LeaderboardEntry
	for i := 0; i < 12; i++ {
		entries = append(entries, LeaderboardEntry{
			Name:   string(rune('a' + i)),
			Value:  dec("1000").Add(dec("10").Mul(dec(string(rune('0' + i%10))))),
			At:     base.Add(time.Duration(i) * time.Minute),
			Season: "2026-W42",
		})
	}
	entries = append(entries, LeaderboardEntry{Name: "old", Value: dec("999999"), Season: "2026-W41"})

	top := TopEntries(entries, "2026-W42")
	if len(top) != LeaderboardTop {
		t.Fatalf("top len = %d", len(top))
	}
	for i := 1; i < len(top); i++ {
		if top[i].Value.GreaterThan(top[i-1].Value) {
			t.Fatalf("not sorted at %d: %+v", i, top)
		}
		if top[i].Name == "old" {
			t.Fatalf("other season leaked in")
		}
	}
	if top[0].Name != "j" {
		t.Fatalf("top entry = %q want j", top[0].Name)
	}
}

func TestNewLeaderboardEntryTruncatesByRune(t *testing.T) {
	at := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "blank", in: "   ", want: "Player"},
		{name: "short", in: " Ana ", want: "Ana"},
		{name: "ascii", in: "abcdefghijklmnopqrstuvwxyz", want: "abcdefghijklmnopqrstuvwx"},
		{name: "multibyte", in: "ééééééééééééééééééééééééé", want: "éééééééééééééééééééééééé"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newLeaderboardEntry(tt.in, dec("1"), at).Name
			if got != tt.want {
				t.Fatalf("name = %q want %q", got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Fatalf("name %q is not valid UTF-8", got)
			}
		})
	}
}

func TestDecodeLegacyMissionsDropDone(t *testing.T) {
	s, err := DecodeSnapshot([]byte(`{"level": 2, "missions": [{"id": "profit_500", "done": true}]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(s.Progression.Missions) != 1 {
		t.Fatalf("missions = %+v", s.Progression.Missions)
	}
	m := s.Progression.Missions[0]
	if m.Done || !m.AssignedAt.IsZero() {
		t.Fatalf("migrated mission = %+v, want not done and undated", m)
	}
}
