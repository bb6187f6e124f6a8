package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"marketmasters/internal/game"
)

func (m *Model) View() string {
	d := m.svc.Dashboard()

	var b strings.Builder
	b.WriteString(m.header(d))
	b.WriteString("\n")

	var body string
	switch m.view {
	case viewDashboard:
		body = m.dashboardView(d)
	case viewMarket:
		body = m.marketView()
	case viewMissions:
		body = m.missionsView()
	case viewAchievements:
		body = m.achievementsView()
	case viewShop:
		body = m.shopView()
	case viewLeaderboard:
		body = m.leaderboardView()
	case viewNews:
		body = m.newsView()
	}
	b.WriteString(panelStyle.Render(body))
	b.WriteString("\n")
	b.WriteString(m.footer())
	return b.String()
}

func (m *Model) header(d game.Dashboard) string {
	tabs := make([]string, 0, viewCount)
	for i, name := range viewNames {
		label := fmt.Sprintf("%d %s", i+1, name)
		if view(i) == m.view {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}
	stats := fmt.Sprintf("Cash %s  Net %s  Lv %d  Coins %d  Season %s ends in %s",
		d.Cash.StringFixed(game.PriceDecimals),
		d.NetWorth.StringFixed(game.PriceDecimals),
		d.Level, d.Coins, d.SeasonID, formatCountdown(m.countdown))
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Market Masters"),
		lipgloss.JoinHorizontal(lipgloss.Top, tabs...),
		mutedStyle.Render(stats),
	)
}

func (m *Model) dashboardView(d game.Dashboard) string {
	var b strings.Builder
	need := game.XPForLevel(d.Level)
	fmt.Fprintf(&b, "Level %d  %s  %d/%d XP\n", d.Level, xpBar(need-d.XPToNext, need, 24), need-d.XPToNext, need)
	fmt.Fprintf(&b, "Trades %d  Realized profit %s  Prestige %d (%d legacy pts)\n",
		d.TradeCount, d.CumulativeProfit.StringFixed(game.PriceDecimals), d.PrestigeCount, d.LegacyPoints)
	if d.AutoRebuy {
		fmt.Fprintf(&b, "%s\n", accentStyle.Render("Badge: Auto Rebuy"))
	}
	if d.Boost != nil {
		fmt.Fprintf(&b, "%s\n", accentStyle.Render(fmt.Sprintf("XP boost x%.1f until %s", d.Boost.XPMultiplier, d.Boost.ExpiresAt.Local().Format(time.Kitchen))))
	}
	b.WriteString("\n")
	b.WriteString(chartStyle(d.Cosmetic).Render(sparkline(m.svc.Chart(), max(20, m.width-8))))
	b.WriteString("\n\n")

	if len(d.Holdings) == 0 {
		b.WriteString(mutedStyle.Render("No holdings yet. Press 2 for the market."))
		return b.String()
	}
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-7s %6s %10s %10s %11s %6s", "Symbol", "Qty", "Basis", "Price", "P/L", "Held")))
	b.WriteString("\n")
	for _, h := range d.Holdings {
		fmt.Fprintf(&b, "%-7s %6d %10s %10s %11s %6d\n",
			h.Symbol, h.Shares,
			h.CostBasis.StringFixed(game.PriceDecimals),
			h.Price.StringFixed(game.PriceDecimals),
			colorSigned(h.Unrealized), h.HoldTicks)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) marketView() string {
	out := m.stocks.View()
	symbol := m.selectedSymbol()
	if symbol == "" {
		return out
	}
	v, err := m.svc.Stock(symbol)
	if err != nil {
		return out
	}
	detail := fmt.Sprintf("%s  %s  %s  prev %s  change %s",
		v.Symbol, v.Name, v.Category,
		v.Previous.StringFixed(game.PriceDecimals), colorSigned(v.Change))
	return out + "\n" + detail
}

func (m *Model) missionsView() string {
	missions := m.svc.Missions()
	if len(missions) == 0 {
		return mutedStyle.Render("No missions today.")
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render("Daily missions"))
	b.WriteString("\n")
	for i, ms := range missions {
		state := "[ ]"
		if ms.Done {
			state = gainStyle.Render("[x]")
		}
		line := fmt.Sprintf("%s %s  (+%d coins, +%d XP)", state, ms.Text, ms.Reward.Coins, ms.Reward.XP)
		b.WriteString(m.row(viewMissions, i, line))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) achievementsView() string {
	var b strings.Builder
	for i, a := range m.svc.Achievements() {
		state := mutedStyle.Render("locked")
		if a.Unlocked {
			state = gainStyle.Render("unlocked")
		}
		line := fmt.Sprintf("%-18s %-9s %s (+%d coins)", a.Name, state, a.Description, a.Coins)
		b.WriteString(m.row(viewAchievements, i, line))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) shopView() string {
	var b strings.Builder
	for i, it := range m.svc.Shop() {
		state := fmt.Sprintf("%d coins", it.Price)
		switch {
		case it.Owned:
			state = gainStyle.Render("owned")
		case !it.Affordable:
			state = lossStyle.Render(state)
		}
		line := fmt.Sprintf("%-16s %-12s %s", it.Name, state, it.Description)
		b.WriteString(m.row(viewShop, i, line))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) leaderboardView() string {
	entries := m.svc.Leaderboard()
	if len(entries) == 0 {
		return mutedStyle.Render("No scores this season. Press L to save yours.")
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-3s %-24s %12s  %s", "#", "Name", "Net worth", "When")))
	b.WriteString("\n")
	for i, e := range entries {
		fmt.Fprintf(&b, "%-3d %-24s %12s  %s\n", i+1, e.Name, e.Value.StringFixed(game.PriceDecimals), e.At.Local().Format("Jan 02 15:04"))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) newsView() string {
	events := m.svc.RecentEvents()
	if len(events) == 0 {
		return mutedStyle.Render("Quiet market. News arrives every few minutes.")
	}
	var b strings.Builder
	for _, ev := range events {
		text := ev.Text
		switch ev.Mood {
		case game.MoodGood:
			text = gainStyle.Render(text)
		case game.MoodBad:
			text = lossStyle.Render(text)
		}
		fmt.Fprintf(&b, "%s  %s\n", mutedStyle.Render(ev.At.Local().Format(time.Kitchen)), text)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) footer() string {
	var lines []string
	for _, t := range m.toasts {
		style := toastStyle
		switch {
		case t.n.Kind == game.KindError:
			style = errorStyle
		case t.n.Celebrate:
			style = celebrateStyle
		}
		lines = append(lines, style.Render(t.n.Message))
	}
	if m.mode != inputNone {
		lines = append(lines, m.input.View())
	} else if m.status != "" {
		lines = append(lines, accentStyle.Render(m.status))
	}
	lines = append(lines, mutedStyle.Render(m.help()))
	return strings.Join(lines, "\n")
}

func (m *Model) help() string {
	switch m.view {
	case viewMarket:
		return "b buy • s sell • S sell all • w watch • tab views • q quit"
	case viewMissions:
		return "↑/↓ select • c claim • tab views • q quit"
	case viewShop:
		return "↑/↓ select • enter buy • tab views • q quit"
	default:
		return "P prestige • R new game • L save score • tab views • q quit"
	}
}

func (m *Model) row(v view, i int, line string) string {
	if m.cursor[v] == i {
		return selectedStyle.Render("> "+line) + "\n"
	}
	return "  " + line + "\n"
}

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// sparkline draws the last width samples scaled between their min and max.
func sparkline(samples []game.ChartSample, width int) string {
	if len(samples) == 0 {
		return mutedStyle.Render("Chart fills in as the market ticks.")
	}
	if len(samples) > width {
		samples = samples[len(samples)-width:]
	}
	lo, hi := samples[0].Value, samples[0].Value
	for _, s := range samples {
		lo = decimal.Min(lo, s.Value)
		hi = decimal.Max(hi, s.Value)
	}
	span := hi.Sub(lo)
	top := decimal.NewFromInt(int64(len(sparkRunes) - 1))
	out := make([]rune, len(samples))
	for i, s := range samples {
		idx := 0
		if span.IsPositive() {
			idx = int(s.Value.Sub(lo).Div(span).Mul(top).Round(0).IntPart())
		}
		out[i] = sparkRunes[idx]
	}
	return string(out)
}

func xpBar(have, need int64, width int) string {
	if need <= 0 {
		need = 1
	}
	filled := int(have * int64(width) / need)
	filled = min(max(filled, 0), width)
	return gainStyle.Render(strings.Repeat("█", filled)) + mutedStyle.Render(strings.Repeat("░", width-filled))
}

func colorSigned(v decimal.Decimal) string {
	s := v.StringFixed(game.PriceDecimals)
	switch {
	case v.IsPositive():
		return gainStyle.Render("+" + s)
	case v.IsNegative():
		return lossStyle.Render(s)
	default:
		return s
	}
}

func formatCountdown(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	d = d.Truncate(time.Second)
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	if days > 0 {
		return fmt.Sprintf("%dd %s", days, d)
	}
	return d.String()
}
