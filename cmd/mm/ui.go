package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"

	"marketmasters/internal/game"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
	muted       = color.New(color.FgHiBlack)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func confirm(label string) bool {
	fmt.Printf("%s [y/N]: ", label)
	text, err := stdinReader.ReadString('\n')
	if err != nil {
		return false
	}
	text = strings.ToLower(strings.TrimSpace(text))
	return text == "y" || text == "yes"
}

func renderDashboard(d game.Dashboard) {
	accent.Println("Market Masters")
	fmt.Printf("Cash        %s\n", money(d.Cash))
	fmt.Printf("Net worth   %s\n", money(d.NetWorth))
	fmt.Printf("Profit      %s\n", colorizeMoney(d.CumulativeProfit))
	fmt.Printf("Level       %d (%d XP, %d to next)\n", d.Level, d.XP, d.XPToNext)
	fmt.Printf("Coins       %d\n", d.Coins)
	if d.PrestigeCount > 0 {
		fmt.Printf("Prestige    %d (%d legacy points)\n", d.PrestigeCount, d.LegacyPoints)
	}
	if d.AutoRebuy {
		fmt.Printf("Badge       %s\n", accent.Sprint("Auto Rebuy"))
	}
	if d.Boost != nil {
		warn.Printf("XP boost    x%.1f until %s\n", d.Boost.XPMultiplier, d.Boost.ExpiresAt.Local().Format(time.Kitchen))
	}
	fmt.Printf("Season      %s, ends in %s\n", d.SeasonID, d.SeasonEndsIn.Truncate(time.Minute))

	if len(d.Holdings) == 0 {
		muted.Println("\nNo holdings.")
		return
	}
	fmt.Println()
	neutral.Printf("%-7s %6s %10s %10s %12s %6s\n", "SYMBOL", "QTY", "BASIS", "PRICE", "P/L", "HELD")
	for _, h := range d.Holdings {
		fmt.Printf("%-7s %6d %10s %10s %12s %6d\n", h.Symbol, h.Shares, money(h.CostBasis), money(h.Price), colorizeMoney(h.Unrealized), h.HoldTicks)
	}
}

func renderStocksList(stocks []game.StockView) {
	if len(stocks) == 0 {
		muted.Println("No stocks.")
		return
	}
	neutral.Printf("  %-7s %-22s %10s %9s %6s\n", "SYMBOL", "NAME", "PRICE", "CHG", "OWNED")
	for _, s := range stocks {
		mark := " "
		if s.Watched {
			mark = "*"
		}
		owned := ""
		if s.Owned > 0 {
			owned = fmt.Sprint(s.Owned)
		}
		fmt.Printf("%s %-7s %-22s %10s %9s %6s\n", mark, s.Symbol, truncate(s.Name, 22), money(s.Price), colorizePercent(s.ChangePct), owned)
	}
}

func renderStockDetail(s game.StockView) {
	accent.Printf("%s  %s\n", s.Symbol, s.Name)
	fmt.Printf("Category  %s\n", s.Category)
	fmt.Printf("Price     %s (prev %s)\n", money(s.Price), money(s.Previous))
	fmt.Printf("Change    %s %s\n", colorizeMoney(s.Change), colorizePercent(s.ChangePct))
	if s.Owned > 0 {
		fmt.Printf("Owned     %d\n", s.Owned)
	}
}

func renderOrderResult(r game.OrderResult) {
	printSuccess(r.Message)
	fmt.Printf("Cash %s", money(r.Cash))
	if r.Realized.IsPositive() || r.Realized.IsNegative() {
		fmt.Printf("  realized %s", colorizeMoney(r.Realized))
	}
	if r.XP > 0 || r.Coins > 0 {
		fmt.Printf("  +%d XP  +%d coins", r.XP, r.Coins)
	}
	fmt.Println()
}

func renderOrders(orders []game.Order) {
	if len(orders) == 0 {
		muted.Println("No orders yet.")
		return
	}
	for _, o := range orders {
		side := success.Sprint("BUY ")
		if o.Side == game.SideSell {
			side = danger.Sprint("SELL")
		}
		fmt.Printf("%s  %s %5d %-7s @ %s\n", o.At.Local().Format("Jan 02 15:04:05"), side, o.Quantity, o.Symbol, money(o.Price))
	}
}

func renderMissions(missions []game.MissionView) {
	if len(missions) == 0 {
		muted.Println("No missions today.")
		return
	}
	for _, m := range missions {
		state := muted.Sprint("[ ]")
		if m.Done {
			state = success.Sprint("[x]")
		}
		fmt.Printf("%d %s %s (+%d coins, +%d XP)\n", m.Index, state, m.Text, m.Reward.Coins, m.Reward.XP)
	}
}

func renderAchievements(list []game.AchievementView) {
	for _, a := range list {
		state := muted.Sprint("locked  ")
		if a.Unlocked {
			state = success.Sprint("unlocked")
		}
		fmt.Printf("%s %-18s %s (+%d coins)\n", state, a.Name, a.Description, a.Coins)
	}
}

func renderShop(items []game.ShopItemView) {
	for _, it := range items {
		price := fmt.Sprintf("%d coins", it.Price)
		switch {
		case it.Owned:
			price = success.Sprint("owned")
		case !it.Affordable:
			price = danger.Sprint(price)
		}
		fmt.Printf("%-16s %-18s %-12s %s\n", it.ID, it.Name, price, it.Description)
	}
}

func renderLeaderboard(entries []game.LeaderboardEntry) {
	if len(entries) == 0 {
		muted.Println("No scores this season.")
		return
	}
	neutral.Printf("%-3s %-24s %12s  %s\n", "#", "NAME", "NET WORTH", "WHEN")
	for i, e := range entries {
		fmt.Printf("%-3d %-24s %12s  %s\n", i+1, e.Name, money(e.Value), e.At.Local().Format("Jan 02 15:04"))
	}
}

func renderNews(events []game.RecentEvent) {
	if len(events) == 0 {
		muted.Println("No news yet.")
		return
	}
	for _, ev := range events {
		text := ev.Text
		switch ev.Mood {
		case game.MoodGood:
			text = success.Sprint(text)
		case game.MoodBad:
			text = danger.Sprint(text)
		}
		fmt.Printf("%s  %s\n", muted.Sprint(ev.At.Local().Format(time.Kitchen)), text)
	}
}

func money(v decimal.Decimal) string {
	return v.StringFixed(game.PriceDecimals)
}

func colorizeMoney(v decimal.Decimal) string {
	switch {
	case v.IsPositive():
		return success.Sprint("+" + money(v))
	case v.IsNegative():
		return danger.Sprint(money(v))
	default:
		return neutral.Sprint(money(v))
	}
}

func colorizePercent(v decimal.Decimal) string {
	text := v.StringFixed(2) + "%"
	switch {
	case v.IsPositive():
		return success.Sprint("+" + text)
	case v.IsNegative():
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
