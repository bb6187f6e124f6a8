package game

import (
	"fmt"
	mathrand "math/rand"
	"time"

	"github.com/shopspring/decimal"
)

type AchievementRecord struct {
	UnlockedAt time.Time `json:"unlocked_at"`
	Note       string    `json:"note,omitempty"`
}

type Boosts struct {
	XPMultiplier float64   `json:"xp_multiplier,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
}

// Multiplier returns the XP multiplier in force at now, or 0 when none is.
func (b Boosts) Multiplier(now time.Time) float64 {
	if b.XPMultiplier <= 0 {
		return 0
	}
	if !b.ExpiresAt.IsZero() && !now.Before(b.ExpiresAt) {
		return 0
	}
	return b.XPMultiplier
}

type PrestigeState struct {
	Count        int64 `json:"count"`
	LegacyPoints int64 `json:"legacy_points"`
}

type TickDelta struct {
	At    time.Time       `json:"at"`
	Delta decimal.Decimal `json:"delta"`
}

// Progression is everything the gamification layer owns.
type Progression struct {
	XP               int64                        `json:"xp"`
	Level            int                          `json:"level"`
	Coins            int64                        `json:"coins"`
	LifetimeCoins    int64                        `json:"lifetime_coins"`
	Achievements     map[string]AchievementRecord `json:"achievements"`
	Missions         []Mission                    `json:"missions"`
	MissionsDate     string                       `json:"missions_date,omitempty"`
	ShopOwned        map[string]bool              `json:"shop_owned"`
	AutoRebuy        bool                         `json:"auto_rebuy,omitempty"`
	Cosmetic         string                       `json:"cosmetic,omitempty"`
	Boosts           Boosts                       `json:"active_boosts"`
	Prestige         PrestigeState                `json:"prestige"`
	SeasonID         string                       `json:"season_id"`
	CumulativeProfit decimal.Decimal              `json:"cumulative_profit"`
	TickDeltas       []TickDelta                  `json:"tick_deltas"`
	// RunStart is taken at each prestige. Zero before the first one.
	RunStart Baseline `json:"run_start"`
}

func NewProgression(seasonID string) *Progression {
	return &Progression{
		Level:        1,
		Achievements: make(map[string]AchievementRecord),
		ShopOwned:    make(map[string]bool),
		SeasonID:     seasonID,
	}
}

func (p *Progression) normalize() {
	if p.Level < 1 {
		p.Level = 1
	}
	if p.XP < 0 {
		p.XP = 0
	}
	if p.Achievements == nil {
		p.Achievements = make(map[string]AchievementRecord)
	}
	if p.ShopOwned == nil {
		p.ShopOwned = make(map[string]bool)
	}
	if len(p.TickDeltas) > TickDeltaLimit {
		p.TickDeltas = p.TickDeltas[len(p.TickDeltas)-TickDeltaLimit:]
	}
}

func (p *Progression) pushTickDelta(d TickDelta) {
	p.TickDeltas = append(p.TickDeltas, d)
	if len(p.TickDeltas) > TickDeltaLimit {
		p.TickDeltas = p.TickDeltas[len(p.TickDeltas)-TickDeltaLimit:]
	}
}

// ProgressionEngine applies the XP, achievement, mission, shop and prestige
// rules to a Progression it is handed; it keeps no game state of its own.
type ProgressionEngine struct {
	now    func() time.Time
	rand   *mathrand.Rand
	notify func(Notification)
}

func NewProgressionEngine(now func() time.Time, rng *mathrand.Rand, notify func(Notification)) *ProgressionEngine {
	if now == nil {
		now = time.Now
	}
	if notify == nil {
		notify = func(Notification) {}
	}
	return &ProgressionEngine{now: now, rand: rng, notify: notify}
}

func (e *ProgressionEngine) emit(kind NotificationKind, celebrate bool, format string, args ...any) {
	e.notify(Notification{
		Kind:      kind,
		Message:   fmt.Sprintf(format, args...),
		At:        e.now(),
		Celebrate: celebrate,
	})
}

func (e *ProgressionEngine) grantCoins(p *Progression, coins int64) {
	if coins <= 0 {
		return
	}
	p.Coins += coins
	p.LifetimeCoins += coins
}

// AddXP applies any live multiplier, then drains level requirements until
// xp < XPForLevel(level). It returns the number of levels gained.
func (e *ProgressionEngine) AddXP(p *Progression, amount int64) int {
	if amount <= 0 {
		return 0
	}
	if m := p.Boosts.Multiplier(e.now()); m > 0 {
		amount = roundHalf(float64(amount) * m)
	}
	p.XP += amount

	gained := 0
	for p.XP >= XPForLevel(p.Level) {
		p.XP -= XPForLevel(p.Level)
		p.Level++
		gained++
		coins := LevelUpCoins(p.Level)
		e.grantCoins(p, coins)
		e.emit(KindLevelUp, true, "Level up! Now level %d. +%d coins", p.Level, coins)
	}
	if gained > 0 {
		e.CheckAchievements(p, nil)
	}
	return gained
}

// Prestige converts the current level into legacy points and resets the
// rest of progression. Ledger, shop ownership and season are kept; the
// ledger's totals become the new run's baseline.
func (e *ProgressionEngine) Prestige(p *Progression, l *Ledger) (int64, error) {
	if p.Level < PrestigeMinLevel {
		return 0, fmt.Errorf("%w: level %d of %d", ErrPrestigeNotEligible, p.Level, PrestigeMinLevel)
	}
	points := LegacyPointsForLevel(p.Level)
	p.Prestige.Count++
	p.Prestige.LegacyPoints += points

	p.XP = 0
	p.Level = 1
	p.Coins = 0
	p.LifetimeCoins = 0
	p.Achievements = make(map[string]AchievementRecord)
	p.Missions = nil
	p.MissionsDate = ""
	p.RunStart = baselineOf(p, l)

	e.emit(KindPrestige, true, "Prestige %d complete. +%d legacy points", p.Prestige.Count, points)
	return points, nil
}
