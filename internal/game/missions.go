package game

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type MissionKind string

const (
	MissionBuy3      MissionKind = "buy_3"
	MissionProfit500 MissionKind = "profit_500"
	MissionHold10    MissionKind = "hold_10"
	MissionTrade10   MissionKind = "trade_10"
	MissionBuyFood   MissionKind = "buy_food"
)

type MissionReward struct {
	Coins int64 `json:"coins"`
	XP    int64 `json:"xp"`
}

// Baseline captures the aggregates at one moment so progress counts only
// what happened afterwards. Missions take one when assigned, and each
// prestige run starts from one.
type Baseline struct {
	CumulativeProfit decimal.Decimal  `json:"cumulative_profit"`
	TradeCount       int64            `json:"trade_count"`
	HoldTicks        map[string]int64 `json:"hold_ticks"`
}

func baselineOf(p *Progression, l *Ledger) Baseline {
	return Baseline{
		CumulativeProfit: p.CumulativeProfit,
		TradeCount:       l.TradeCount,
		HoldTicks:        l.cloneHoldTicks(),
	}
}

// holdGrowth is the largest increase of any hold counter since b.
func (b Baseline) holdGrowth(l *Ledger) int64 {
	var best int64
	for sym, ticks := range l.HoldTicks {
		if g := ticks - b.HoldTicks[sym]; g > best {
			best = g
		}
	}
	return best
}

type Mission struct {
	Kind       MissionKind   `json:"kind"`
	Text       string        `json:"text"`
	Reward     MissionReward `json:"reward"`
	AssignedAt time.Time     `json:"assigned_at"`
	Baseline   Baseline      `json:"baseline"`
	Done       bool          `json:"done"`
}

type missionTemplate struct {
	Kind   MissionKind
	Text   string
	Reward MissionReward
	done   func(m Mission, p *Progression, l *Ledger) bool
}

var missionTemplates = []missionTemplate{
	{
		Kind:   MissionBuy3,
		Text:   "Buy 3 different stocks",
		Reward: MissionReward{Coins: 60, XP: 20},
		done: func(m Mission, _ *Progression, l *Ledger) bool {
			seen := make(map[string]struct{})
			for _, o := range ordersAfter(l, m.AssignedAt) {
				if o.Side == SideBuy {
					seen[o.Symbol] = struct{}{}
				}
			}
			return len(seen) >= 3
		},
	},
	{
		Kind:   MissionProfit500,
		Text:   "Make 500 profit in a single tick",
		Reward: MissionReward{Coins: 120, XP: 40},
		done: func(m Mission, p *Progression, _ *Ledger) bool {
			target := decimal.NewFromInt(500)
			for _, d := range p.TickDeltas {
				if d.At.After(m.AssignedAt) && d.Delta.GreaterThanOrEqual(target) {
					return true
				}
			}
			return false
		},
	},
	{
		Kind:   MissionHold10,
		Text:   "Hold a stock for 10 ticks",
		Reward: MissionReward{Coins: 80, XP: 30},
		done: func(m Mission, _ *Progression, l *Ledger) bool {
			return m.Baseline.holdGrowth(l) >= 10
		},
	},
	{
		Kind:   MissionTrade10,
		Text:   "Execute 10 trades",
		Reward: MissionReward{Coins: 70, XP: 25},
		done: func(m Mission, _ *Progression, l *Ledger) bool {
			return len(ordersAfter(l, m.AssignedAt)) >= 10
		},
	},
	{
		Kind:   MissionBuyFood,
		Text:   "Buy a Food stock",
		Reward: MissionReward{Coins: 40, XP: 12},
		done: func(m Mission, _ *Progression, l *Ledger) bool {
			for _, o := range ordersAfter(l, m.AssignedAt) {
				if o.Side != SideBuy {
					continue
				}
				if in, ok := instrumentIndex[o.Symbol]; ok && in.Category == "Food" {
					return true
				}
			}
			return false
		},
	},
}

func missionTemplateFor(kind MissionKind) (missionTemplate, bool) {
	for _, t := range missionTemplates {
		if t.Kind == kind {
			return t, true
		}
	}
	return missionTemplate{}, false
}

// ordersAfter returns orders placed strictly after at.
func ordersAfter(l *Ledger, at time.Time) []Order {
	var out []Order
	for _, o := range l.Orders {
		if o.At.After(at) {
			out = append(out, o)
		}
	}
	return out
}

// MissionComplete is the single completion predicate for a mission.
func MissionComplete(m Mission, p *Progression, l *Ledger) bool {
	t, ok := missionTemplateFor(m.Kind)
	if !ok {
		return false
	}
	return t.done(m, p, l)
}

func (e *ProgressionEngine) newMission(t missionTemplate, p *Progression, l *Ledger) Mission {
	return Mission{
		Kind:       t.Kind,
		Text:       t.Text,
		Reward:     t.Reward,
		AssignedAt: e.now(),
		Baseline:   baselineOf(p, l),
	}
}

// AttachBaselines dates and baselines missions restored without an
// assignment time, and clears their Done flags so completion is judged on
// play from now on. It reports whether any mission changed.
func (e *ProgressionEngine) AttachBaselines(p *Progression, l *Ledger) bool {
	changed := false
	for i := range p.Missions {
		m := &p.Missions[i]
		if !m.AssignedAt.IsZero() {
			continue
		}
		m.AssignedAt = e.now()
		m.Baseline = baselineOf(p, l)
		m.Done = false
		changed = true
	}
	return changed
}

// drawMissions picks up to n templates, without replacement, whose kinds
// are not in exclude and which would not already be complete when assigned.
func (e *ProgressionEngine) drawMissions(n int, exclude map[MissionKind]bool, p *Progression, l *Ledger) []Mission {
	var out []Mission
	for _, i := range e.rand.Perm(len(missionTemplates)) {
		if len(out) == n {
			break
		}
		t := missionTemplates[i]
		if exclude[t.Kind] {
			continue
		}
		m := e.newMission(t, p, l)
		if t.done(m, p, l) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func missionDay(t time.Time) string {
	return t.Format(time.DateOnly)
}

// RegenerateDaily assigns a fresh set of missions once per calendar day.
func (e *ProgressionEngine) RegenerateDaily(p *Progression, l *Ledger) bool {
	today := missionDay(e.now())
	if p.MissionsDate == today && len(p.Missions) == ActiveMissionCount {
		return false
	}
	p.Missions = e.drawMissions(ActiveMissionCount, nil, p, l)
	p.MissionsDate = today
	return true
}

// EvaluateMissions flips Done on newly completed missions and reports
// whether any changed.
func (e *ProgressionEngine) EvaluateMissions(p *Progression, l *Ledger) bool {
	changed := false
	for i := range p.Missions {
		m := &p.Missions[i]
		if m.Done || !MissionComplete(*m, p, l) {
			continue
		}
		m.Done = true
		changed = true
		e.emit(KindMission, false, "Mission complete: %s. Claim your reward!", m.Text)
	}
	return changed
}

// ClaimMission pays a completed mission and refills its slot with a kind
// that is not already active. The slot is dropped when none is left.
func (e *ProgressionEngine) ClaimMission(p *Progression, l *Ledger, index int) (Mission, error) {
	if index < 0 || index >= len(p.Missions) {
		return Mission{}, fmt.Errorf("%w: slot %d", ErrMissionNotFound, index)
	}
	m := p.Missions[index]
	if !m.Done {
		return Mission{}, fmt.Errorf("%w: %s", ErrMissionNotComplete, m.Text)
	}

	e.grantCoins(p, m.Reward.Coins)
	e.emit(KindMission, true, "Mission reward: +%d coins, +%d XP", m.Reward.Coins, m.Reward.XP)
	e.AddXP(p, m.Reward.XP)

	active := make(map[MissionKind]bool, len(p.Missions))
	for _, am := range p.Missions {
		active[am.Kind] = true
	}
	if next := e.drawMissions(1, active, p, l); len(next) == 1 {
		p.Missions[index] = next[0]
	} else {
		p.Missions = append(p.Missions[:index], p.Missions[index+1:]...)
	}
	return m, nil
}
