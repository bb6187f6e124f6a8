// Package tui is the terminal front end for `mm play`. It renders the game
// state straight from game.Service and forwards key presses to it.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"marketmasters/internal/game"
)

type view int

const (
	viewDashboard view = iota
	viewMarket
	viewMissions
	viewAchievements
	viewShop
	viewLeaderboard
	viewNews
	viewCount
)

var viewNames = [viewCount]string{"Dashboard", "Market", "Missions", "Achievements", "Shop", "Leaderboard", "News"}

type inputMode int

const (
	inputNone inputMode = iota
	inputBuy
	inputSell
	inputName
)

const (
	toastLimit = 4
	toastTTL   = 5 * time.Second
)

type toast struct {
	n     game.Notification
	until time.Time
}

type keyMap struct {
	Quit     key.Binding
	Next     key.Binding
	Prev     key.Binding
	Up       key.Binding
	Down     key.Binding
	Buy      key.Binding
	Sell     key.Binding
	SellAll  key.Binding
	Watch    key.Binding
	Claim    key.Binding
	Purchase key.Binding
	Prestige key.Binding
	Reset    key.Binding
	Save     key.Binding
}

var keys = keyMap{
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Next:     key.NewBinding(key.WithKeys("tab", "right"), key.WithHelp("tab", "next view")),
	Prev:     key.NewBinding(key.WithKeys("shift+tab", "left"), key.WithHelp("shift+tab", "prev view")),
	Up:       key.NewBinding(key.WithKeys("up", "k")),
	Down:     key.NewBinding(key.WithKeys("down", "j")),
	Buy:      key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "buy")),
	Sell:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sell")),
	SellAll:  key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "sell all")),
	Watch:    key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "watch")),
	Claim:    key.NewBinding(key.WithKeys("c", "enter"), key.WithHelp("c", "claim")),
	Purchase: key.NewBinding(key.WithKeys("enter", "p"), key.WithHelp("enter", "buy item")),
	Prestige: key.NewBinding(key.WithKeys("P"), key.WithHelp("P", "prestige")),
	Reset:    key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "new game")),
	Save:     key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "save score")),
}

type Model struct {
	ctx  context.Context
	svc  *game.Service
	feed *Feed
	now  func() time.Time

	view    view
	stocks  table.Model
	symbols []string
	cursor  [viewCount]int

	mode    inputMode
	input   textinput.Model
	confirm string

	toasts    []toast
	countdown time.Duration
	status    string

	width  int
	height int
}

// New builds the model. feed may be nil when nothing pushes events.
func New(ctx context.Context, svc *game.Service, feed *Feed, defaultName string) *Model {
	if feed == nil {
		feed = NewFeed()
	}
	in := textinput.New()
	in.CharLimit = 24
	in.SetValue(defaultName)

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "", Width: 1},
			{Title: "Symbol", Width: 7},
			{Title: "Name", Width: 20},
			{Title: "Price", Width: 10},
			{Title: "Chg %", Width: 8},
			{Title: "Owned", Width: 6},
		}),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	m := &Model{
		ctx:    ctx,
		svc:    svc,
		feed:   feed,
		now:    time.Now,
		stocks: t,
		input:  in,
	}
	m.refreshStocks()
	m.countdown = svc.SeasonCountdown()
	return m
}

func (m *Model) Init() tea.Cmd {
	return m.feed.next()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.stocks.SetHeight(max(5, msg.Height-14))
		return m, nil

	case TickMsg:
		m.refreshStocks()
		return m, m.feed.next()

	case NotificationMsg:
		m.pushToast(msg.Notification)
		return m, m.feed.next()

	case CountdownMsg:
		m.countdown = msg.Left
		m.expireToasts()
		return m, m.feed.next()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.mode != inputNone {
		return m.handleInput(msg)
	}
	if m.confirm != "" {
		action := m.confirm
		m.confirm = ""
		if msg.String() == "y" || msg.String() == "Y" {
			m.runConfirmed(action)
		} else {
			m.status = "Cancelled"
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Next):
		m.view = (m.view + 1) % viewCount
		return m, nil
	case key.Matches(msg, keys.Prev):
		m.view = (m.view + viewCount - 1) % viewCount
		return m, nil
	case key.Matches(msg, keys.Prestige):
		m.confirm = "prestige"
		m.status = "Prestige resets level, XP, coins and achievements for legacy points. Press y to confirm."
		return m, nil
	case key.Matches(msg, keys.Reset):
		m.confirm = "reset"
		m.status = "Start a new game and wipe this save? Press y to confirm."
		return m, nil
	case key.Matches(msg, keys.Save):
		m.startInput(inputName, "Leaderboard name: ", "")
		return m, nil
	}
	if n, err := strconv.Atoi(msg.String()); err == nil && n >= 1 && n <= int(viewCount) {
		m.view = view(n - 1)
		return m, nil
	}

	switch m.view {
	case viewMarket:
		return m.handleMarketKey(msg)
	case viewMissions:
		m.moveCursor(msg, len(m.svc.Missions()))
		if key.Matches(msg, keys.Claim) {
			m.claim()
		}
	case viewShop:
		m.moveCursor(msg, len(m.svc.Shop()))
		if key.Matches(msg, keys.Purchase) {
			m.purchase()
		}
	case viewAchievements:
		m.moveCursor(msg, len(m.svc.Achievements()))
	}
	return m, nil
}

func (m *Model) handleMarketKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	symbol := m.selectedSymbol()
	switch {
	case key.Matches(msg, keys.Buy):
		m.startInput(inputBuy, fmt.Sprintf("Buy %s quantity: ", symbol), "1")
		return m, nil
	case key.Matches(msg, keys.Sell):
		m.startInput(inputSell, fmt.Sprintf("Sell %s quantity: ", symbol), "1")
		return m, nil
	case key.Matches(msg, keys.SellAll):
		if res, err := m.svc.SellAll(m.ctx, symbol); err == nil {
			m.status = res.Message
		} else {
			m.status = err.Error()
		}
		m.refreshStocks()
		return m, nil
	case key.Matches(msg, keys.Watch):
		m.toggleWatch(symbol)
		return m, nil
	}
	var cmd tea.Cmd
	m.stocks, cmd = m.stocks.Update(msg)
	return m, cmd
}

func (m *Model) handleInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.endInput()
		m.status = "Cancelled"
		return m, nil
	case "enter":
		mode, value := m.mode, strings.TrimSpace(m.input.Value())
		m.endInput()
		m.submitInput(mode, value)
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) startInput(mode inputMode, prompt, value string) {
	m.mode = mode
	m.input.Prompt = prompt
	if value != "" || mode != inputName {
		m.input.SetValue(value)
	}
	m.input.CursorEnd()
	m.input.Focus()
}

func (m *Model) endInput() {
	m.mode = inputNone
	m.input.Blur()
}

func (m *Model) submitInput(mode inputMode, value string) {
	switch mode {
	case inputBuy, inputSell:
		qty, err := strconv.ParseInt(value, 10, 64)
		if err != nil || qty < 1 {
			m.status = "Quantity must be a whole number of at least 1"
			return
		}
		var res game.OrderResult
		if mode == inputBuy {
			res, err = m.svc.Buy(m.ctx, m.selectedSymbol(), qty)
		} else {
			res, err = m.svc.Sell(m.ctx, m.selectedSymbol(), qty)
		}
		if err != nil {
			m.status = err.Error()
		} else {
			m.status = res.Message
		}
		m.refreshStocks()
	case inputName:
		entry, err := m.svc.SaveLeaderboardEntry(m.ctx, value)
		if err != nil {
			m.status = err.Error()
			return
		}
		m.input.SetValue(entry.Name)
		m.status = fmt.Sprintf("Saved %s to the leaderboard", entry.Name)
		m.view = viewLeaderboard
	}
}

func (m *Model) runConfirmed(action string) {
	switch action {
	case "prestige":
		res, err := m.svc.Prestige(m.ctx)
		if err != nil {
			m.status = err.Error()
			return
		}
		m.status = res.Message
	case "reset":
		if err := m.svc.ResetToNewGame(m.ctx); err != nil {
			m.status = err.Error()
			return
		}
		m.status = "New game started"
	}
	m.refreshStocks()
}

func (m *Model) claim() {
	res, err := m.svc.ClaimMission(m.ctx, m.cursor[viewMissions])
	if err != nil {
		m.status = err.Error()
		return
	}
	m.status = res.Message
}

func (m *Model) purchase() {
	items := m.svc.Shop()
	i := m.cursor[viewShop]
	if i < 0 || i >= len(items) {
		return
	}
	res, err := m.svc.PurchaseShopItem(m.ctx, items[i].ID)
	if err != nil {
		m.status = err.Error()
		return
	}
	m.status = res.Message
}

func (m *Model) toggleWatch(symbol string) {
	for _, s := range m.svc.Watchlist() {
		if s == symbol {
			m.svc.RemoveFromWatchlist(symbol)
			m.status = "Removed " + symbol + " from watchlist"
			m.refreshStocks()
			return
		}
	}
	if err := m.svc.AddToWatchlist(symbol); err != nil {
		m.status = err.Error()
		return
	}
	m.status = "Watching " + symbol
	m.refreshStocks()
}

func (m *Model) moveCursor(msg tea.KeyMsg, n int) {
	c := &m.cursor[m.view]
	switch {
	case key.Matches(msg, keys.Up):
		if *c > 0 {
			*c--
		}
	case key.Matches(msg, keys.Down):
		if *c < n-1 {
			*c++
		}
	}
}

func (m *Model) selectedSymbol() string {
	i := m.stocks.Cursor()
	if i < 0 || i >= len(m.symbols) {
		return ""
	}
	return m.symbols[i]
}

func (m *Model) refreshStocks() {
	views := m.svc.Stocks()
	rows := make([]table.Row, 0, len(views))
	m.symbols = m.symbols[:0]
	for _, v := range views {
		mark := " "
		if v.Watched {
			mark = "*"
		}
		owned := ""
		if v.Owned > 0 {
			owned = strconv.FormatInt(v.Owned, 10)
		}
		rows = append(rows, table.Row{
			mark,
			v.Symbol,
			v.Name,
			v.Price.StringFixed(game.PriceDecimals),
			v.ChangePct.StringFixed(2),
			owned,
		})
		m.symbols = append(m.symbols, v.Symbol)
	}
	m.stocks.SetRows(rows)
}

func (m *Model) pushToast(n game.Notification) {
	m.toasts = append(m.toasts, toast{n: n, until: m.now().Add(toastTTL)})
	if len(m.toasts) > toastLimit {
		m.toasts = m.toasts[len(m.toasts)-toastLimit:]
	}
}

func (m *Model) expireToasts() {
	now := m.now()
	kept := m.toasts[:0]
	for _, t := range m.toasts {
		if now.Before(t.until) {
			kept = append(kept, t)
		}
	}
	m.toasts = kept
}
