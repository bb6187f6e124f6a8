package game

import (
	"math"
	mathrand "math/rand"
	"time"
)

type NewsScope string

const (
	ScopeStock    NewsScope = "stock"
	ScopeCategory NewsScope = "category"
	ScopeMarket   NewsScope = "market"
)

type Mood string

const (
	MoodGood    Mood = "good"
	MoodBad     Mood = "bad"
	MoodNeutral Mood = "neutral"
)

type NewsEvent struct {
	Scope  NewsScope `json:"scope"`
	Target string    `json:"target,omitempty"`
	Text   string    `json:"text"`
	Effect float64   `json:"effect"`
	Mood   Mood      `json:"mood"`
}

// RewardXP is the XP granted to the player when the event fires.
func (n NewsEvent) RewardXP() int64 {
	switch n.Mood {
	case MoodGood:
		return 5 + roundHalf(math.Abs(n.Effect)*100)
	case MoodBad:
		return 2
	default:
		return 0
	}
}

// Bias expands the event into a per-symbol fractional price bias.
func (n NewsEvent) Bias() map[string]float64 {
	out := make(map[string]float64)
	switch n.Scope {
	case ScopeStock:
		if _, ok := instrumentIndex[n.Target]; ok {
			out[n.Target] = n.Effect
		}
	case ScopeCategory:
		for _, sym := range symbolsInCategory(n.Target) {
			out[sym] = n.Effect
		}
	case ScopeMarket:
		for _, in := range instruments {
			out[in.Symbol] = n.Effect
		}
	}
	return out
}

var newsCatalog = []NewsEvent{
	{Scope: ScopeStock, Target: "ZOOMX", Text: "Zoomix launches new AI chip, big upside", Effect: 0.22, Mood: MoodGood},
	{Scope: ScopeStock, Target: "FRUIQ", Text: "FruityQ seasonal recall sparks selloff", Effect: -0.11, Mood: MoodBad},
	{Scope: ScopeCategory, Target: "Energy", Text: "Energy subsidies announced.", Effect: 0.08, Mood: MoodGood},
	{Scope: ScopeMarket, Text: "Market rally: broad gains.", Effect: 0.10, Mood: MoodGood},
	{Scope: ScopeMarket, Text: "Market sell-off: volatility spikes.", Effect: -0.14, Mood: MoodBad},
	{Scope: ScopeMarket, Text: "Analysts shrug: quiet session expected.", Effect: 0.0, Mood: MoodNeutral},
	{Scope: ScopeCategory, Target: "Food", Text: "Snack demand surges across grocers.", Effect: 0.06, Mood: MoodGood},
	{Scope: ScopeStock, Target: "MEDIX", Text: "Medix trial misses its endpoint.", Effect: -0.18, Mood: MoodBad},
}

func NewsCatalog() []NewsEvent {
	out := make([]NewsEvent, len(newsCatalog))
	copy(out, newsCatalog)
	return out
}

type NewsEngine struct {
	catalog []NewsEvent
	rand    *mathrand.Rand
}

func NewNewsEngine(catalog []NewsEvent, rng *mathrand.Rand) *NewsEngine {
	if len(catalog) == 0 {
		catalog = newsCatalog
	}
	return &NewsEngine{catalog: catalog, rand: rng}
}

// Trigger picks an event uniformly from the catalog.
func (e *NewsEngine) Trigger() (NewsEvent, map[string]float64) {
	ev := e.catalog[e.rand.Intn(len(e.catalog))]
	return ev, ev.Bias()
}

type RecentEvent struct {
	Text string    `json:"text"`
	Mood Mood      `json:"mood"`
	At   time.Time `json:"at"`
}

func pushRecentEvent(log []RecentEvent, ev RecentEvent) []RecentEvent {
	out := append([]RecentEvent{ev}, log...)
	if len(out) > RecentEventsLimit {
		out = out[:RecentEventsLimit]
	}
	return out
}
