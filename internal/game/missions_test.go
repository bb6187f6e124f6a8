package game

import (
	"errors"
	"testing"
	"time"
)

func TestRegenerateDaily(t *testing.T) {
	clock := newFakeClock()
	e, _ := newTestEngine(clock)
	p := NewProgression("2026-W42")
	l := NewLedger(StarterCash)

	if !e.RegenerateDaily(p, l) {
		t.Fatalf("expected first regeneration")
	}
	if len(p.Missions) != ActiveMissionCount {
		t.Fatalf("missions = %d want %d", len(p.Missions), ActiveMissionCount)
	}
	kinds := make(map[MissionKind]bool)
	for _, m := range p.Missions {
		if kinds[m.Kind] {
			t.Fatalf("duplicate mission kind %s", m.Kind)
		}
		kinds[m.Kind] = true
		if !m.AssignedAt.Equal(clock.now) || m.Baseline.HoldTicks == nil {
			t.Fatalf("mission missing baseline: %+v", m)
		}
	}
	first := p.Missions

	clock.Advance(time.Hour)
	if e.RegenerateDaily(p, l) {
		t.Fatalf("same-day regeneration should be a no-op")
	}
	if &p.Missions[0] != &first[0] {
		t.Fatalf("same-day regeneration replaced missions")
	}

	clock.Advance(24 * time.Hour)
	if !e.RegenerateDaily(p, l) {
		t.Fatalf("expected regeneration on a new day")
	}
	if p.MissionsDate != "2026-10-15" {
		t.Fatalf("missions date = %q", p.MissionsDate)
	}
}

func TestMissionsAreNotPreSatisfied(t *testing.T) {
	clock := newFakeClock()
	e, _ := newTestEngine(clock)
	p := NewProgression("2026-W42")
	l := NewLedger(dec("100000"))
	for _, sym := range []string{"FRUIQ", "NUTRO", "BERRY", "ZOOMX"} {
		if _, err := l.Buy(sym, 1, dec("10"), clock.now); err != nil {
			t.Fatalf("buy: %v", err)
		}
	}
	for i := 0; i < 30; i++ {
		l.AdvanceHoldTicks()
	}

	for day := 0; day < 10; day++ {
		clock.Advance(24 * time.Hour)
		e.RegenerateDaily(p, l)
		for _, m := range p.Missions {
			if MissionComplete(m, p, l) {
				t.Fatalf("mission %s complete at assignment", m.Kind)
			}
		}
	}
}

func TestMissionPredicatesCountOnlyLaterActivity(t *testing.T) {
	clock := newFakeClock()
	assigned := clock.now
	p := NewProgression("2026-W42")
	l := NewLedger(dec("100000"))
	if _, err := l.Buy("FRUIQ", 1, dec("10"), assigned); err != nil {
		t.Fatalf("buy: %v", err)
	}
	l.AdvanceHoldTicks()

	mission := func(kind MissionKind) Mission {
		return Mission{
			Kind:       kind,
			AssignedAt: assigned,
			Baseline:   Baseline{HoldTicks: l.cloneHoldTicks()},
		}
	}

	if MissionComplete(mission(MissionBuyFood), p, l) {
		t.Fatalf("buy at assignment time must not count")
	}

	later := assigned.Add(time.Second)
	for _, sym := range []string{"ZOOMX", "ROBIX", "NUTRO"} {
		if _, err := l.Buy(sym, 1, dec("10"), later); err != nil {
			t.Fatalf("buy: %v", err)
		}
	}
	for _, kind := range []MissionKind{MissionBuy3, MissionBuyFood} {
		if !MissionComplete(mission(kind), p, l) {
			t.Fatalf("%s should be complete", kind)
		}
	}

	hold := mission(MissionHold10)
	for i := 0; i < 9; i++ {
		l.AdvanceHoldTicks()
	}
	if MissionComplete(hold, p, l) {
		t.Fatalf("hold_10 complete after 9 ticks")
	}
	l.AdvanceHoldTicks()
	if !MissionComplete(hold, p, l) {
		t.Fatalf("hold_10 incomplete after 10 ticks")
	}

	profit := mission(MissionProfit500)
	p.pushTickDelta(TickDelta{At: assigned, Delta: dec("900")})
	p.pushTickDelta(TickDelta{At: later, Delta: dec("499.99")})
	if MissionComplete(profit, p, l) {
		t.Fatalf("profit_500 complete without a qualifying tick")
	}
	p.pushTickDelta(TickDelta{At: later, Delta: dec("500")})
	if !MissionComplete(profit, p, l) {
		t.Fatalf("profit_500 incomplete")
	}

	trades := mission(MissionTrade10)
	for i := 0; i < 6; i++ {
		if _, err := l.Buy("PIXEL", 1, dec("10"), later); err != nil {
			t.Fatalf("buy: %v", err)
		}
	}
	if MissionComplete(trades, p, l) {
		t.Fatalf("trade_10 complete after 9 orders")
	}
	if _, _, err := l.Sell("PIXEL", 1, dec("10"), later); err != nil {
		t.Fatalf("sell: %v", err)
	}
	if !MissionComplete(trades, p, l) {
		t.Fatalf("trade_10 incomplete after 10 orders")
	}
}

func TestClaimMission(t *testing.T) {
	clock := newFakeClock()
	e, _ := newTestEngine(clock)
	p := NewProgression("2026-W42")
	l := NewLedger(dec("100000"))
	e.RegenerateDaily(p, l)

	if _, err := e.ClaimMission(p, l, 7); !errors.Is(err, ErrMissionNotFound) {
		t.Fatalf("expected ErrMissionNotFound, got %v", err)
	}
	if _, err := e.ClaimMission(p, l, 0); !errors.Is(err, ErrMissionNotComplete) {
		t.Fatalf("expected ErrMissionNotComplete, got %v", err)
	}

	p.Missions[0].Done = true
	claimed := p.Missions[0]
	clock.Advance(time.Minute)
	got, err := e.ClaimMission(p, l, 0)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if got.Kind != claimed.Kind {
		t.Fatalf("claimed %s want %s", got.Kind, claimed.Kind)
	}
	if p.Coins != claimed.Reward.Coins || p.XP != claimed.Reward.XP {
		t.Fatalf("coins=%d xp=%d want reward %+v", p.Coins, p.XP, claimed.Reward)
	}
	if len(p.Missions) != ActiveMissionCount {
		t.Fatalf("slot was not refilled: %d missions", len(p.Missions))
	}
	replacement := p.Missions[0]
	if replacement.Done || !replacement.AssignedAt.Equal(clock.now) {
		t.Fatalf("replacement not freshly baselined: %+v", replacement)
	}
	seen := make(map[MissionKind]bool)
	for _, m := range p.Missions {
		if seen[m.Kind] {
			t.Fatalf("duplicate active kind %s", m.Kind)
		}
		seen[m.Kind] = true
	}
	if seen[claimed.Kind] {
		t.Fatalf("claimed kind %s redrawn into the same set", claimed.Kind)
	}
}

func TestClaimMissionDropsSlotWhenPoolExhausted(t *testing.T) {
	e, _ := newTestEngine(newFakeClock())
	p := NewProgression("2026-W42")
	l := NewLedger(StarterCash)
	for _, tmpl := range missionTemplates {
		p.Missions = append(p.Missions, e.newMission(tmpl, p, l))
	}
	p.Missions[2].Done = true
	if _, err := e.ClaimMission(p, l, 2); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(p.Missions) != len(missionTemplates)-1 {
		t.Fatalf("missions = %d want %d", len(p.Missions), len(missionTemplates)-1)
	}
}

func TestEvaluateMissions(t *testing.T) {
	clock := newFakeClock()
	e, sent := newTestEngine(clock)
	p := NewProgression("2026-W42")
	l := NewLedger(dec("100000"))
	p.Missions = []Mission{e.newMission(missionTemplates[4], p, l)}

	if e.EvaluateMissions(p, l) {
		t.Fatalf("nothing should complete yet")
	}
	clock.Advance(time.Second)
	if _, err := l.Buy("BERRY", 1, dec("10"), clock.now); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if !e.EvaluateMissions(p, l) || !p.Missions[0].Done {
		t.Fatalf("buy_food should be done")
	}
	if e.EvaluateMissions(p, l) {
		t.Fatalf("second evaluation should not change anything")
	}
	if len(*sent) != 1 || (*sent)[0].Kind != KindMission {
		t.Fatalf("notifications = %+v", *sent)
	}
}
