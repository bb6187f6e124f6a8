package game

import (
	mathrand "math/rand"
	"strings"

	"github.com/shopspring/decimal"
)

type Quote struct {
	Price    decimal.Decimal `json:"price"`
	Previous decimal.Decimal `json:"previous"`
}

func (q Quote) Change() decimal.Decimal {
	if q.Previous.IsZero() {
		return decimal.Zero
	}
	return q.Price.Sub(q.Previous)
}

// PriceState maps symbol to its current and previous-tick price.
type PriceState map[string]Quote

func (p PriceState) Price(symbol string) decimal.Decimal {
	return p[symbol].Price
}

func (p PriceState) Clone() PriceState {
	out := make(PriceState, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

type Volatility struct {
	Mode        string
	BaseRange   float64
	SpikeChance float64
	SpikeRange  float64
	MaxMove     float64
}

func VolatilityProfile(mode string) Volatility {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "calm":
		return Volatility{Mode: "calm", BaseRange: 0.020, SpikeChance: 0.05, SpikeRange: 0.04, MaxMove: 0.50}
	case "wild":
		return Volatility{Mode: "wild", BaseRange: 0.060, SpikeChance: 0.18, SpikeRange: 0.12, MaxMove: 0.50}
	default:
		return Volatility{Mode: "normal", BaseRange: 0.035, SpikeChance: 0.10, SpikeRange: 0.06, MaxMove: 0.50}
	}
}

type PriceEngine struct {
	vol  Volatility
	rand *mathrand.Rand
}

func NewPriceEngine(vol Volatility, rng *mathrand.Rand) *PriceEngine {
	if vol.MaxMove <= 0 {
		vol = VolatilityProfile(vol.Mode)
	}
	return &PriceEngine{vol: vol, rand: rng}
}

func (e *PriceEngine) Volatility() Volatility {
	return e.vol
}

// Seed fills in a starting price for every instrument missing from prices.
func (e *PriceEngine) Seed(prices PriceState) {
	for _, in := range instruments {
		q, ok := prices[in.Symbol]
		if ok && q.Price.GreaterThanOrEqual(MinPrice) {
			continue
		}
		if ok && q.Price.IsPositive() {
			q.Price = MinPrice
			prices[in.Symbol] = q
			continue
		}
		prices[in.Symbol] = Quote{Price: e.randomPrice()}
	}
}

// Tick re-prices every instrument in place. The previous price is
// snapshotted before mutation so callers can compute per-tick deltas.
func (e *PriceEngine) Tick(prices PriceState, bias map[string]float64) {
	for _, in := range instruments {
		q, ok := prices[in.Symbol]
		if !ok || q.Price.LessThan(MinPrice) {
			q.Price = e.randomPrice()
		}
		q.Previous = q.Price
		q.Price = applyMove(q.Price, e.move(bias[in.Symbol]), e.vol.MaxMove)
		prices[in.Symbol] = q
	}
}

func (e *PriceEngine) move(bias float64) float64 {
	change := (e.rand.Float64()*2 - 1) * e.vol.BaseRange
	if e.rand.Float64() < e.vol.SpikeChance {
		change += (e.rand.Float64()*2 - 1) * e.vol.SpikeRange
	}
	change += bias
	return clampFloat(change, -e.vol.MaxMove, e.vol.MaxMove)
}

func (e *PriceEngine) randomPrice() decimal.Decimal {
	return RoundCurrency(decimal.NewFromFloat(e.rand.Float64()*900 + 100))
}

// applyMove keeps the rounded result inside the move bounds, so the clamp
// survives currency rounding.
func applyMove(old decimal.Decimal, change, maxMove float64) decimal.Decimal {
	next := RoundCurrency(old.Mul(decimal.NewFromFloat(1 + change)))
	upper := old.Mul(decimal.NewFromFloat(1 + maxMove)).RoundFloor(PriceDecimals)
	lower := old.Mul(decimal.NewFromFloat(1 - maxMove)).RoundCeil(PriceDecimals)
	if next.GreaterThan(upper) {
		next = upper
	}
	if next.LessThan(lower) {
		next = lower
	}
	if next.LessThan(MinPrice) {
		next = MinPrice
	}
	return next
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
