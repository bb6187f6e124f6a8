package game

import (
	"time"

	"github.com/shopspring/decimal"
)

type NotificationKind string

const (
	KindTrade       NotificationKind = "trade"
	KindLevelUp     NotificationKind = "level_up"
	KindAchievement NotificationKind = "achievement"
	KindMission     NotificationKind = "mission"
	KindShop        NotificationKind = "shop"
	KindBoost       NotificationKind = "boost"
	KindNews        NotificationKind = "news"
	KindPrestige    NotificationKind = "prestige"
	KindLeaderboard NotificationKind = "leaderboard"
	KindReset       NotificationKind = "reset"
	KindError       NotificationKind = "error"
)

// Notification is a user-facing message. Celebrate marks the ones the
// presentation layer should make a fuss about.
type Notification struct {
	Kind      NotificationKind `json:"kind"`
	Message   string           `json:"message"`
	At        time.Time        `json:"at"`
	Celebrate bool             `json:"celebrate,omitempty"`
}

type HoldingView struct {
	Symbol     string          `json:"symbol"`
	Name       string          `json:"name"`
	Shares     int64           `json:"shares"`
	CostBasis  decimal.Decimal `json:"cost_basis"`
	Price      decimal.Decimal `json:"price"`
	Value      decimal.Decimal `json:"value"`
	Unrealized decimal.Decimal `json:"unrealized"`
	HoldTicks  int64           `json:"hold_ticks"`
}

type BoostView struct {
	XPMultiplier float64   `json:"xp_multiplier"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type Dashboard struct {
	Cash             decimal.Decimal `json:"cash"`
	NetWorth         decimal.Decimal `json:"net_worth"`
	Holdings         []HoldingView   `json:"holdings"`
	TradeCount       int64           `json:"trade_count"`
	CumulativeProfit decimal.Decimal `json:"cumulative_profit"`
	XP               int64           `json:"xp"`
	XPToNext         int64           `json:"xp_to_next"`
	Level            int             `json:"level"`
	Coins            int64           `json:"coins"`
	PrestigeCount    int64           `json:"prestige_count"`
	LegacyPoints     int64           `json:"legacy_points"`
	SeasonID         string          `json:"season_id"`
	SeasonEndsIn     time.Duration   `json:"season_ends_in"`
	Boost            *BoostView      `json:"boost,omitempty"`
	AutoRebuy        bool            `json:"auto_rebuy"`
	Cosmetic         string          `json:"cosmetic,omitempty"`
}

type StockView struct {
	Symbol    string          `json:"symbol"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
	Previous  decimal.Decimal `json:"previous"`
	Change    decimal.Decimal `json:"change"`
	ChangePct decimal.Decimal `json:"change_pct"`
	Owned     int64           `json:"owned"`
	Watched   bool            `json:"watched"`
}

type MissionView struct {
	Index  int           `json:"index"`
	Kind   MissionKind   `json:"kind"`
	Text   string        `json:"text"`
	Reward MissionReward `json:"reward"`
	Done   bool          `json:"done"`
}

type ChartSample struct {
	At    time.Time       `json:"at"`
	Value decimal.Decimal `json:"value"`
}

type OrderInput struct {
	Symbol   string `json:"symbol"`
	Side     Side   `json:"side"`
	Quantity int64  `json:"quantity"`
}

type OrderResult struct {
	Order    Order           `json:"order"`
	Realized decimal.Decimal `json:"realized"`
	Cash     decimal.Decimal `json:"cash"`
	XP       int64           `json:"xp"`
	Coins    int64           `json:"coins"`
	Message  string          `json:"message"`
}

type ClaimResult struct {
	Mission MissionView `json:"mission"`
	Message string      `json:"message"`
}

type PurchaseResult struct {
	Item    ShopItem `json:"item"`
	Coins   int64    `json:"coins"`
	Message string   `json:"message"`
}

type PrestigeResult struct {
	LegacyPoints int64  `json:"legacy_points"`
	Count        int64  `json:"count"`
	Message      string `json:"message"`
}

type TickReport struct {
	At       time.Time       `json:"at"`
	NetWorth decimal.Decimal `json:"net_worth"`
	Delta    decimal.Decimal `json:"delta"`
	News     *NewsEvent      `json:"news,omitempty"`
}
