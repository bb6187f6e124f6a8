package game

import (
	"fmt"
	"time"
)

type EffectKind string

const (
	EffectXPBoost   EffectKind = "xp_boost"
	EffectAutoRebuy EffectKind = "auto_rebuy"
	EffectCosmetic  EffectKind = "cosmetic"
)

type ShopEffect struct {
	Kind       EffectKind    `json:"kind"`
	Multiplier float64       `json:"multiplier,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
	Tag        string        `json:"tag,omitempty"`
}

type ShopItem struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Price       int64      `json:"price"`
	Effect      ShopEffect `json:"effect"`
}

var shopItems = []ShopItem{
	{
		ID:          "xp_boost_1",
		Name:        "XP Boost",
		Description: "1.5x XP for one hour.",
		Price:       300,
		Effect:      ShopEffect{Kind: EffectXPBoost, Multiplier: 1.5, Duration: time.Hour},
	},
	{
		ID:          "auto_rebuy",
		Name:        "Auto Rebuy",
		Description: "Permanent Auto Rebuy badge, shown on your dashboard.",
		Price:       1200,
		Effect:      ShopEffect{Kind: EffectAutoRebuy},
	},
	{
		ID:          "chart_skin_neon",
		Name:        "Neon Chart Skin",
		Description: "A brighter portfolio chart.",
		Price:       200,
		Effect:      ShopEffect{Kind: EffectCosmetic, Tag: "neon"},
	},
}

func ShopItems() []ShopItem {
	out := make([]ShopItem, len(shopItems))
	copy(out, shopItems)
	return out
}

func shopItemByID(id string) (ShopItem, bool) {
	for _, it := range shopItems {
		if it.ID == id {
			return it, true
		}
	}
	return ShopItem{}, false
}

// Purchase spends coins on a one-time item and applies its effect. For a
// timed effect the caller schedules expiry at p.Boosts.ExpiresAt.
func (e *ProgressionEngine) Purchase(p *Progression, id string) (ShopItem, error) {
	item, ok := shopItemByID(id)
	if !ok {
		return ShopItem{}, fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}
	if p.ShopOwned[id] {
		return ShopItem{}, fmt.Errorf("%w: %s", ErrAlreadyOwned, item.Name)
	}
	if p.Coins < item.Price {
		return ShopItem{}, fmt.Errorf("%w: need %d, have %d", ErrInsufficientCoins, item.Price, p.Coins)
	}

	p.Coins -= item.Price
	if p.ShopOwned == nil {
		p.ShopOwned = make(map[string]bool)
	}
	p.ShopOwned[id] = true

	switch item.Effect.Kind {
	case EffectXPBoost:
		p.Boosts = Boosts{
			XPMultiplier: item.Effect.Multiplier,
			ExpiresAt:    e.now().Add(item.Effect.Duration),
		}
	case EffectAutoRebuy:
		p.AutoRebuy = true
	case EffectCosmetic:
		p.Cosmetic = item.Effect.Tag
	}
	e.emit(KindShop, true, "Purchased %s", item.Name)
	return item, nil
}

// ExpireBoost clears a boost whose expiry has passed.
func (e *ProgressionEngine) ExpireBoost(p *Progression) bool {
	if p.Boosts.XPMultiplier <= 0 {
		return false
	}
	if p.Boosts.ExpiresAt.After(e.now()) {
		return false
	}
	p.Boosts = Boosts{}
	e.emit(KindBoost, false, "XP boost expired")
	return true
}

type ShopItemView struct {
	ShopItem
	Owned      bool `json:"owned"`
	Affordable bool `json:"affordable"`
}

func shopViews(p *Progression) []ShopItemView {
	out := make([]ShopItemView, 0, len(shopItems))
	for _, it := range shopItems {
		out = append(out, ShopItemView{
			ShopItem:   it,
			Owned:      p.ShopOwned[it.ID],
			Affordable: p.Coins >= it.Price,
		})
	}
	return out
}
