package game

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestLedgerBuySellRoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	l := NewLedger(dec("10000"))

	if _, err := l.Buy("ZOOMX", 10, dec("100"), at); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if !l.Cash.Equal(dec("9000")) {
		t.Fatalf("cash after buy = %s want 9000", l.Cash)
	}
	if h := l.Holding("ZOOMX"); h.Shares != 10 || !h.CostBasis.Equal(dec("100")) {
		t.Fatalf("holding after buy = %+v", h)
	}

	_, realized, err := l.Sell("ZOOMX", 10, dec("120"), at.Add(time.Second))
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if !l.Cash.Equal(dec("10200")) {
		t.Fatalf("cash after sell = %s want 10200", l.Cash)
	}
	if !realized.Equal(dec("200")) {
		t.Fatalf("realized = %s want 200", realized)
	}
	h := l.Holding("ZOOMX")
	if h.Shares != 0 || !h.CostBasis.IsZero() {
		t.Fatalf("holding after full exit = %+v", h)
	}
	if l.HoldTicks["ZOOMX"] != 0 {
		t.Fatalf("hold ticks after full exit = %d", l.HoldTicks["ZOOMX"])
	}
	if len(l.Orders) != 2 || l.Orders[0].Side != SideSell {
		t.Fatalf("orders = %+v", l.Orders)
	}
	if l.TradeCount != 1 {
		t.Fatalf("trade count = %d want 1", l.TradeCount)
	}
}

func TestLedgerWeightedCostBasis(t *testing.T) {
	l := NewLedger(dec("10000"))
	at := time.Now()
	if _, err := l.Buy("AQUIX", 10, dec("100"), at); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if _, err := l.Buy("AQUIX", 30, dec("120"), at); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if got := l.Holding("AQUIX").CostBasis; !got.Equal(dec("115")) {
		t.Fatalf("basis = %s want 115", got)
	}

	_, realized, err := l.Sell("AQUIX", 20, dec("100"), at)
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if !realized.Equal(dec("-300")) {
		t.Fatalf("realized = %s want -300", realized)
	}
	if got := l.Holding("AQUIX").CostBasis; !got.Equal(dec("115")) {
		t.Fatalf("partial sell changed basis to %s", got)
	}
}

func TestLedgerRejectionsLeaveStateUntouched(t *testing.T) {
	l := NewLedger(dec("500"))
	at := time.Now()

	if _, err := l.Buy("ZOOMX", 6, dec("100"), at); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if _, _, err := l.Sell("ZOOMX", 1, dec("100"), at); !errors.Is(err, ErrInsufficientShares) {
		t.Fatalf("expected ErrInsufficientShares, got %v", err)
	}
	if _, _, err := l.SellAll("ZOOMX", dec("100"), at); !errors.Is(err, ErrInsufficientShares) {
		t.Fatalf("expected ErrInsufficientShares from SellAll, got %v", err)
	}
	if !l.Cash.Equal(dec("500")) || len(l.Holdings) != 0 || len(l.Orders) != 0 || l.TradeCount != 0 {
		t.Fatalf("state changed after rejected orders: %+v", l)
	}
}

func TestLedgerQuantityClampedToOne(t *testing.T) {
	l := NewLedger(dec("1000"))
	o, err := l.Buy("ROBIX", 0, dec("50"), time.Now())
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if o.Quantity != 1 || l.Holding("ROBIX").Shares != 1 {
		t.Fatalf("expected qty clamped to 1, got order %+v", o)
	}
}

func TestLedgerOrderHistoryBounded(t *testing.T) {
	l := NewLedger(dec("1000000"))
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < OrderHistoryLimit+15; i++ {
		if _, err := l.Buy("PIXEL", 1, dec("10"), base.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("buy %d: %v", i, err)
		}
	}
	if len(l.Orders) != OrderHistoryLimit {
		t.Fatalf("orders = %d want %d", len(l.Orders), OrderHistoryLimit)
	}
	if !l.Orders[0].At.After(l.Orders[1].At) {
		t.Fatalf("orders are not newest first")
	}
}

func TestAdvanceHoldTicks(t *testing.T) {
	l := NewLedger(dec("10000"))
	at := time.Now()
	if _, err := l.Buy("MEDIX", 2, dec("10"), at); err != nil {
		t.Fatalf("buy: %v", err)
	}
	for i := 0; i < 3; i++ {
		l.AdvanceHoldTicks()
	}
	if l.HoldTicks["MEDIX"] != 3 {
		t.Fatalf("hold ticks = %d want 3", l.HoldTicks["MEDIX"])
	}
	if _, _, err := l.Sell("MEDIX", 1, dec("10"), at); err != nil {
		t.Fatalf("sell: %v", err)
	}
	l.AdvanceHoldTicks()
	if l.HoldTicks["MEDIX"] != 4 {
		t.Fatalf("partial sale reset hold ticks to %d", l.HoldTicks["MEDIX"])
	}
	if _, _, err := l.SellAll("MEDIX", dec("10"), at); err != nil {
		t.Fatalf("sell all: %v", err)
	}
	l.AdvanceHoldTicks()
	if l.HoldTicks["MEDIX"] != 0 {
		t.Fatalf("hold ticks after exit = %d want 0", l.HoldTicks["MEDIX"])
	}
}

func TestNetWorthAndTickDelta(t *testing.T) {
	l := NewLedger(dec("1000"))
	if _, err := l.Buy("TREND", 5, dec("100"), time.Now()); err != nil {
		t.Fatalf("buy: %v", err)
	}
	prices := PriceState{"TREND": {Price: dec("110.50"), Previous: dec("100")}}
	if got := l.NetWorth(prices); !got.Equal(dec("1052.5")) {
		t.Fatalf("net worth = %s want 1052.5", got)
	}
	if got := l.TickDelta(prices); !got.Equal(dec("52.5")) {
		t.Fatalf("tick delta = %s want 52.5", got)
	}
}
