package game

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

type Holding struct {
	Shares    int64           `json:"shares"`
	CostBasis decimal.Decimal `json:"cost_basis"`
}

type Order struct {
	ID       string          `json:"id"`
	Side     Side            `json:"side"`
	Symbol   string          `json:"symbol"`
	Quantity int64           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	At       time.Time       `json:"at"`
}

// Ledger is the player's portfolio: cash, holdings with weighted-average
// cost basis, consecutive hold counters and the recent order log.
type Ledger struct {
	Cash       decimal.Decimal    `json:"cash"`
	Holdings   map[string]Holding `json:"holdings"`
	HoldTicks  map[string]int64   `json:"hold_ticks"`
	Orders     []Order            `json:"orders"`
	TradeCount int64              `json:"trade_count"`
}

func NewLedger(cash decimal.Decimal) *Ledger {
	return &Ledger{
		Cash:      cash,
		Holdings:  make(map[string]Holding),
		HoldTicks: make(map[string]int64),
	}
}

func (l *Ledger) ensureMaps() {
	if l.Holdings == nil {
		l.Holdings = make(map[string]Holding)
	}
	if l.HoldTicks == nil {
		l.HoldTicks = make(map[string]int64)
	}
}

func (l *Ledger) Holding(symbol string) Holding {
	return l.Holdings[symbol]
}

func (l *Ledger) Buy(symbol string, qty int64, price decimal.Decimal, at time.Time) (Order, error) {
	l.ensureMaps()
	if qty < 1 {
		qty = 1
	}
	if !price.IsPositive() {
		return Order{}, fmt.Errorf("%w: no price for %s", ErrUnknownSymbol, symbol)
	}
	cost := price.Mul(decimal.NewFromInt(qty))
	if cost.GreaterThan(l.Cash) {
		return Order{}, ErrInsufficientFunds
	}

	h := l.Holdings[symbol]
	total := h.Shares + qty
	h.CostBasis = h.CostBasis.Mul(decimal.NewFromInt(h.Shares)).
		Add(price.Mul(decimal.NewFromInt(qty))).
		Div(decimal.NewFromInt(total))
	h.Shares = total
	l.Holdings[symbol] = h
	l.Cash = l.Cash.Sub(cost)
	l.TradeCount++

	return l.record(SideBuy, symbol, qty, price, at), nil
}

// Sell returns the realized profit (price - basis) * qty, which may be
// negative. The basis is read before a full exit resets it.
func (l *Ledger) Sell(symbol string, qty int64, price decimal.Decimal, at time.Time) (Order, decimal.Decimal, error) {
	l.ensureMaps()
	if qty < 1 {
		qty = 1
	}
	h := l.Holdings[symbol]
	if qty > h.Shares {
		return Order{}, decimal.Zero, ErrInsufficientShares
	}
	if !price.IsPositive() {
		return Order{}, decimal.Zero, fmt.Errorf("%w: no price for %s", ErrUnknownSymbol, symbol)
	}
	q := decimal.NewFromInt(qty)
	realized := price.Sub(h.CostBasis).Mul(q)
	l.Cash = l.Cash.Add(price.Mul(q))

	h.Shares -= qty
	if h.Shares == 0 {
		delete(l.Holdings, symbol)
		l.HoldTicks[symbol] = 0
	} else {
		l.Holdings[symbol] = h
	}
	return l.record(SideSell, symbol, qty, price, at), realized, nil
}

func (l *Ledger) SellAll(symbol string, price decimal.Decimal, at time.Time) (Order, decimal.Decimal, error) {
	owned := l.Holdings[symbol].Shares
	if owned <= 0 {
		return Order{}, decimal.Zero, ErrInsufficientShares
	}
	return l.Sell(symbol, owned, price, at)
}

func (l *Ledger) record(side Side, symbol string, qty int64, price decimal.Decimal, at time.Time) Order {
	o := Order{
		ID:       uuid.NewString(),
		Side:     side,
		Symbol:   symbol,
		Quantity: qty,
		Price:    price,
		At:       at,
	}
	l.Orders = append([]Order{o}, l.Orders...)
	if len(l.Orders) > OrderHistoryLimit {
		l.Orders = l.Orders[:OrderHistoryLimit]
	}
	return o
}

func (l *Ledger) NetWorth(prices PriceState) decimal.Decimal {
	total := l.Cash
	for sym, h := range l.Holdings {
		total = total.Add(prices.Price(sym).Mul(decimal.NewFromInt(h.Shares)))
	}
	return total
}

// AdvanceHoldTicks bumps the counter of every held symbol and zeroes the rest.
func (l *Ledger) AdvanceHoldTicks() {
	l.ensureMaps()
	for _, in := range instruments {
		if l.Holdings[in.Symbol].Shares > 0 {
			l.HoldTicks[in.Symbol]++
			continue
		}
		l.HoldTicks[in.Symbol] = 0
	}
}

// TickDelta is the change in holdings value caused by the last re-price.
func (l *Ledger) TickDelta(prices PriceState) decimal.Decimal {
	delta := decimal.Zero
	for sym, h := range l.Holdings {
		q := prices[sym]
		before := q.Previous
		if before.IsZero() {
			before = q.Price
		}
		delta = delta.Add(q.Price.Sub(before).Mul(decimal.NewFromInt(h.Shares)))
	}
	return RoundCurrency(delta)
}

func (l *Ledger) HeldSymbols() int {
	n := 0
	for _, h := range l.Holdings {
		if h.Shares > 0 {
			n++
		}
	}
	return n
}

func (l *Ledger) cloneHoldTicks() map[string]int64 {
	out := make(map[string]int64, len(l.HoldTicks))
	for k, v := range l.HoldTicks {
		out[k] = v
	}
	return out
}
