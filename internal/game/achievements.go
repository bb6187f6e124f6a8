package game

import (
	"time"

	"github.com/shopspring/decimal"
)

type Achievement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Coins       int64  `json:"coins"`
}

type achievementRule struct {
	Achievement
	// Trade, profit and hold rules count from p.RunStart so a prestige run
	// has to earn them again. A nil ledger means only progression-backed
	// rules can pass.
	met func(p *Progression, l *Ledger) bool
}

var achievementRules = []achievementRule{
	{
		Achievement: Achievement{ID: "first_trade", Name: "First Trade", Description: "Place your first buy order.", Coins: 50},
		met: func(p *Progression, l *Ledger) bool {
			return l != nil && l.TradeCount-p.RunStart.TradeCount >= 1
		},
	},
	{
		Achievement: Achievement{ID: "level_up", Name: "Moving Up", Description: "Reach level 2.", Coins: 25},
		met: func(p *Progression, _ *Ledger) bool {
			return p.Level >= 2
		},
	},
	{
		Achievement: Achievement{ID: "profit_1000", Name: "Profit Maker", Description: "Realize 1000 in total profit.", Coins: 150},
		met: func(p *Progression, _ *Ledger) bool {
			return p.CumulativeProfit.Sub(p.RunStart.CumulativeProfit).GreaterThanOrEqual(decimal.NewFromInt(1000))
		},
	},
	{
		Achievement: Achievement{ID: "hold_50ticks", Name: "Patient Investor", Description: "Hold a stock for 50 ticks in a row.", Coins: 200},
		met: func(p *Progression, l *Ledger) bool {
			return l != nil && p.RunStart.holdGrowth(l) >= 50
		},
	},
	{
		Achievement: Achievement{ID: "level_10", Name: "Rising Star", Description: "Reach level 10.", Coins: 300},
		met: func(p *Progression, _ *Ledger) bool {
			return p.Level >= 10
		},
	},
	{
		Achievement: Achievement{ID: "trader_50", Name: "Floor Regular", Description: "Place 50 buy orders.", Coins: 200},
		met: func(p *Progression, l *Ledger) bool {
			return l != nil && l.TradeCount-p.RunStart.TradeCount >= 50
		},
	},
	{
		Achievement: Achievement{ID: "diversified", Name: "Diversified", Description: "Hold 5 different stocks at once.", Coins: 100},
		met: func(_ *Progression, l *Ledger) bool {
			return l != nil && l.HeldSymbols() >= 5
		},
	},
	{
		Achievement: Achievement{ID: "coin_collector", Name: "Coin Collector", Description: "Earn 2500 coins over a run.", Coins: 250},
		met: func(p *Progression, _ *Ledger) bool {
			return p.LifetimeCoins >= 2500
		},
	},
}

func Achievements() []Achievement {
	out := make([]Achievement, len(achievementRules))
	for i, r := range achievementRules {
		out[i] = r.Achievement
	}
	return out
}

func achievementByID(id string) (Achievement, bool) {
	for _, r := range achievementRules {
		if r.ID == id {
			return r.Achievement, true
		}
	}
	return Achievement{}, false
}

// Unlock marks the achievement unlocked and pays its coins. It reports
// false, changing nothing, when id is unknown or already unlocked.
func (e *ProgressionEngine) Unlock(p *Progression, id, note string) bool {
	a, ok := achievementByID(id)
	if !ok {
		return false
	}
	if _, done := p.Achievements[id]; done {
		return false
	}
	if p.Achievements == nil {
		p.Achievements = make(map[string]AchievementRecord)
	}
	p.Achievements[id] = AchievementRecord{UnlockedAt: e.now(), Note: note}
	e.grantCoins(p, a.Coins)
	e.emit(KindAchievement, true, "Achievement unlocked: %s (+%d coins)", a.Name, a.Coins)
	return true
}

// CheckAchievements unlocks every rule that is newly satisfied. Coins paid
// by one unlock can satisfy coin_collector, so rules are re-run until stable.
func (e *ProgressionEngine) CheckAchievements(p *Progression, l *Ledger) []string {
	var unlocked []string
	for {
		changed := false
		for _, r := range achievementRules {
			if _, done := p.Achievements[r.ID]; done {
				continue
			}
			if !r.met(p, l) {
				continue
			}
			if e.Unlock(p, r.ID, "") {
				unlocked = append(unlocked, r.ID)
				changed = true
			}
		}
		if !changed {
			return unlocked
		}
	}
}

type AchievementView struct {
	Achievement
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

func achievementViews(p *Progression) []AchievementView {
	out := make([]AchievementView, 0, len(achievementRules))
	for _, r := range achievementRules {
		v := AchievementView{Achievement: r.Achievement}
		if rec, ok := p.Achievements[r.ID]; ok {
			at := rec.UnlockedAt
			v.Unlocked = true
			v.UnlockedAt = &at
		}
		out = append(out, v)
	}
	return out
}
