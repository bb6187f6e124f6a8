package game

import (
	"context"
	"fmt"
	"log/slog"
	mathrand "math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Persistence stores opaque slot payloads. Load returns nil data and a nil
// error for a slot that has never been written.
type Persistence interface {
	Load(ctx context.Context, slot string) ([]byte, error)
	Save(ctx context.Context, slot string, data []byte) error
}

// Notifier receives user-facing notifications. Implementations must not
// block and must not call back into the Service.
type Notifier interface {
	Notify(n Notification)
}

type Observer interface {
	TradeExecuted(side Side)
	TickCompleted(kind string, took time.Duration)
	PersistFailed(slot string)
	PortfolioValued(netWorth decimal.Decimal, level int)
}

type Option func(*Service)

func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithObserver(o Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.obs = o
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithRand(r *mathrand.Rand) Option {
	return func(s *Service) {
		if r != nil {
			s.rand = r
		}
	}
}

func WithVolatility(v Volatility) Option {
	return func(s *Service) {
		s.vol = v
	}
}

func WithNewsCatalog(events []NewsEvent) Option {
	return func(s *Service) {
		s.catalog = events
	}
}

// Service owns the whole game. Every exported mutation runs under mu and
// ends by persisting the snapshot, then flushing queued notifications.
type Service struct {
	store    Persistence
	log      *slog.Logger
	notifier Notifier
	obs      Observer
	now      func() time.Time
	vol      Volatility
	catalog  []NewsEvent

	mu   sync.Mutex
	rand *mathrand.Rand

	prices *PriceEngine
	news   *NewsEngine
	prog   *ProgressionEngine

	state       Snapshot
	leaderboard []LeaderboardEntry
	watchlist   map[string]bool
	pending     []Notification
	boostTimer  *time.Timer
}

func NewService(store Persistence, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if store == nil {
		store = nopStore{}
	}
	s := &Service{
		store:     store,
		log:       logger,
		notifier:  nopNotifier{},
		obs:       nopObserver{},
		now:       time.Now,
		vol:       VolatilityProfile("normal"),
		rand:      mathrand.New(mathrand.NewSource(time.Now().UnixNano())),
		watchlist: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.prices = NewPriceEngine(s.vol, s.rand)
	s.news = NewNewsEngine(s.catalog, s.rand)
	s.prog = NewProgressionEngine(s.now, s.rand, s.queue)
	s.state = NewSnapshot(s.now())
	s.prices.Seed(s.state.Prices)
	return s
}

func (s *Service) queue(n Notification) {
	s.pending = append(s.pending, n)
}

func (s *Service) queuef(kind NotificationKind, format string, args ...any) {
	s.queue(Notification{Kind: kind, Message: fmt.Sprintf(format, args...), At: s.now()})
}

func (s *Service) flushLocked() {
	for _, n := range s.pending {
		s.notifier.Notify(n)
	}
	s.pending = s.pending[:0]
}

// fail reports err to the player and returns it unchanged.
func (s *Service) fail(err error) error {
	s.notifier.Notify(Notification{Kind: KindError, Message: err.Error(), At: s.now()})
	s.pending = s.pending[:0]
	return err
}

// persistLocked writes the save slot. Failures are logged and counted only.
func (s *Service) persistLocked(ctx context.Context) {
	s.state.SavedAt = s.now()
	data, err := EncodeSnapshot(s.state)
	if err == nil {
		err = s.store.Save(ctx, SaveSlot, data)
	}
	if err != nil {
		s.obs.PersistFailed(SaveSlot)
		s.log.Warn("persist snapshot failed", "slot", SaveSlot, "err", err)
	}
}

func (s *Service) commitLocked(ctx context.Context) {
	s.persistLocked(ctx)
	s.obs.PortfolioValued(s.state.Ledger.NetWorth(s.state.Prices), s.state.Progression.Level)
	s.flushLocked()
}

// Load restores the save and leaderboard slots. A missing or unreadable save
// leaves a fresh game in place; the error is returned for the caller to log.
func (s *Service) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var loadErr error
	data, err := s.store.Load(ctx, SaveSlot)
	switch {
	case err != nil:
		loadErr = fmt.Errorf("load %s: %w", SaveSlot, err)
	case len(data) > 0:
		snap, err := DecodeSnapshot(data)
		if err != nil {
			loadErr = err
			break
		}
		s.state = snap
	}

	if board, err := s.loadLeaderboardLocked(ctx); err != nil {
		if loadErr == nil {
			loadErr = err
		}
	} else {
		s.leaderboard = board
	}

	s.prepareLocked()
	s.commitLocked(ctx)
	return loadErr
}

// prepareLocked brings a freshly loaded or reset state up to date with the
// clock: prices, season, daily missions and boost timers.
func (s *Service) prepareLocked() {
	now := s.now()
	s.prices.Seed(s.state.Prices)
	if s.state.Progression.SeasonID != SeasonID(now) {
		s.state.Progression.SeasonID = SeasonID(now)
	}
	s.prog.ExpireBoost(&s.state.Progression)
	s.prog.RegenerateDaily(&s.state.Progression, &s.state.Ledger)
	s.prog.AttachBaselines(&s.state.Progression, &s.state.Ledger)
	s.armBoostLocked()
}

func (s *Service) loadLeaderboardLocked(ctx context.Context) ([]LeaderboardEntry, error) {
	data, err := s.store.Load(ctx, LeaderboardSlot)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", LeaderboardSlot, err)
	}
	return DecodeLeaderboard(data)
}

func (s *Service) armBoostLocked() {
	if s.boostTimer != nil {
		s.boostTimer.Stop()
		s.boostTimer = nil
	}
	b := s.state.Progression.Boosts
	if b.Multiplier(s.now()) <= 0 {
		return
	}
	s.boostTimer = time.AfterFunc(b.ExpiresAt.Sub(s.now()), s.expireBoost)
}

func (s *Service) expireBoost() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.prog.ExpireBoost(&s.state.Progression) {
		return
	}
	s.boostTimer = nil
	s.commitLocked(context.Background())
}

// Close stops the boost timer.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.boostTimer != nil {
		s.boostTimer.Stop()
		s.boostTimer = nil
	}
}

func normalizeSymbol(symbol string) (Instrument, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if err := ValidateSymbol(symbol); err != nil {
		return Instrument{}, err
	}
	in, ok := instrumentIndex[symbol]
	if !ok {
		return Instrument{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	return in, nil
}

func (s *Service) PlaceOrder(ctx context.Context, in OrderInput) (OrderResult, error) {
	switch Side(strings.ToLower(string(in.Side))) {
	case SideBuy:
		return s.Buy(ctx, in.Symbol, in.Quantity)
	case SideSell:
		return s.Sell(ctx, in.Symbol, in.Quantity)
	default:
		s.mu.Lock()
		defer s.mu.Unlock()
		return OrderResult{}, s.fail(ErrInvalidSide)
	}
}

func (s *Service) Buy(ctx context.Context, symbol string, qty int64) (OrderResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, err := normalizeSymbol(symbol)
	if err != nil {
		return OrderResult{}, s.fail(err)
	}
	now := s.now()
	price := s.state.Prices.Price(inst.Symbol)
	order, err := s.state.Ledger.Buy(inst.Symbol, qty, price, now)
	if err != nil {
		return OrderResult{}, s.fail(fmt.Errorf("buy %s: %w", inst.Symbol, err))
	}
	s.obs.TradeExecuted(SideBuy)

	p := &s.state.Progression
	cost := order.Price.Mul(decimal.NewFromInt(order.Quantity))
	cf, _ := cost.Float64()
	xp := max(1, roundHalf(cf/200))
	coins := roundHalf(cf / 1000)
	s.prog.grantCoins(p, coins)
	s.prog.AddXP(p, xp)
	s.prog.CheckAchievements(p, &s.state.Ledger)
	s.prog.EvaluateMissions(p, &s.state.Ledger)

	out := OrderResult{
		Order:    order,
		Realized: decimal.Zero,
		Cash:     s.state.Ledger.Cash,
		XP:       xp,
		Coins:    coins,
		Message:  fmt.Sprintf("Bought %d %s @ %s", order.Quantity, order.Symbol, order.Price.StringFixed(PriceDecimals)),
	}
	s.queuef(KindTrade, "%s (+%d XP, +%d coins)", out.Message, xp, coins)
	s.commitLocked(ctx)
	return out, nil
}

func (s *Service) Sell(ctx context.Context, symbol string, qty int64) (OrderResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, err := normalizeSymbol(symbol)
	if err != nil {
		return OrderResult{}, s.fail(err)
	}
	order, realized, err := s.state.Ledger.Sell(inst.Symbol, qty, s.state.Prices.Price(inst.Symbol), s.now())
	if err != nil {
		return OrderResult{}, s.fail(fmt.Errorf("sell %s: %w", inst.Symbol, err))
	}
	return s.settleSaleLocked(ctx, order, realized), nil
}

func (s *Service) SellAll(ctx context.Context, symbol string) (OrderResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, err := normalizeSymbol(symbol)
	if err != nil {
		return OrderResult{}, s.fail(err)
	}
	order, realized, err := s.state.Ledger.SellAll(inst.Symbol, s.state.Prices.Price(inst.Symbol), s.now())
	if err != nil {
		return OrderResult{}, s.fail(fmt.Errorf("sell all %s: %w", inst.Symbol, err))
	}
	return s.settleSaleLocked(ctx, order, realized), nil
}

// settleSaleLocked pays rewards for a profitable sale. Losses earn nothing
// and leave cumulative profit untouched.
func (s *Service) settleSaleLocked(ctx context.Context, order Order, realized decimal.Decimal) OrderResult {
	s.obs.TradeExecuted(SideSell)
	p := &s.state.Progression
	realized = RoundCurrency(realized)

	var xp, coins int64
	if realized.IsPositive() {
		rf, _ := realized.Float64()
		xp = roundHalf(rf / 10)
		coins = roundHalf(rf / 50)
		p.CumulativeProfit = p.CumulativeProfit.Add(realized)
		s.prog.grantCoins(p, coins)
		s.prog.AddXP(p, xp)
	}
	s.prog.CheckAchievements(p, &s.state.Ledger)
	s.prog.EvaluateMissions(p, &s.state.Ledger)

	out := OrderResult{
		Order:    order,
		Realized: realized,
		Cash:     s.state.Ledger.Cash,
		XP:       xp,
		Coins:    coins,
		Message: fmt.Sprintf("Sold %d %s @ %s (P/L %s)", order.Quantity, order.Symbol,
			order.Price.StringFixed(PriceDecimals), realized.StringFixed(PriceDecimals)),
	}
	s.queuef(KindTrade, "%s", out.Message)
	s.commitLocked(ctx)
	return out
}

func (s *Service) ClaimMission(ctx context.Context, index int) (ClaimResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := &s.state.Progression
	m, err := s.prog.ClaimMission(p, &s.state.Ledger, index)
	if err != nil {
		return ClaimResult{}, s.fail(err)
	}
	s.prog.CheckAchievements(p, &s.state.Ledger)
	s.prog.EvaluateMissions(p, &s.state.Ledger)
	s.commitLocked(ctx)
	return ClaimResult{
		Mission: MissionView{Index: index, Kind: m.Kind, Text: m.Text, Reward: m.Reward, Done: true},
		Message: fmt.Sprintf("Claimed %q: +%d coins, +%d XP", m.Text, m.Reward.Coins, m.Reward.XP),
	}, nil
}

func (s *Service) PurchaseShopItem(ctx context.Context, id string) (PurchaseResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := &s.state.Progression
	item, err := s.prog.Purchase(p, strings.TrimSpace(id))
	if err != nil {
		return PurchaseResult{}, s.fail(err)
	}
	if item.Effect.Kind == EffectXPBoost {
		s.armBoostLocked()
	}
	s.commitLocked(ctx)
	return PurchaseResult{Item: item, Coins: p.Coins, Message: "Purchased " + item.Name}, nil
}

func (s *Service) Prestige(ctx context.Context) (PrestigeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := &s.state.Progression
	points, err := s.prog.Prestige(p, &s.state.Ledger)
	if err != nil {
		return PrestigeResult{}, s.fail(err)
	}
	s.prog.RegenerateDaily(p, &s.state.Ledger)
	s.commitLocked(ctx)
	return PrestigeResult{
		LegacyPoints: p.Prestige.LegacyPoints,
		Count:        p.Prestige.Count,
		Message:      fmt.Sprintf("Prestiged! +%d legacy points", points),
	}, nil
}

// SaveLeaderboardEntry appends the current net worth under name. The slot is
// re-read first so entries written by other processes are kept.
func (s *Service) SaveLeaderboardEntry(ctx context.Context, name string) (LeaderboardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if board, err := s.loadLeaderboardLocked(ctx); err == nil {
		s.leaderboard = board
	} else {
		s.log.Warn("reload leaderboard failed", "err", err)
	}

	entry := newLeaderboardEntry(name, s.state.Ledger.NetWorth(s.state.Prices), s.now())
	s.leaderboard = append(s.leaderboard, entry)
	data, err := EncodeLeaderboard(s.leaderboard)
	if err == nil {
		err = s.store.Save(ctx, LeaderboardSlot, data)
	}
	if err != nil {
		s.obs.PersistFailed(LeaderboardSlot)
		s.log.Warn("persist leaderboard failed", "slot", LeaderboardSlot, "err", err)
	}
	s.queuef(KindLeaderboard, "Saved %s with %s", entry.Name, entry.Value.StringFixed(PriceDecimals))
	s.commitLocked(ctx)
	return entry, nil
}

// ResetToNewGame discards the save and starts over. The leaderboard slot
// is kept.
func (s *Service) ResetToNewGame(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = NewSnapshot(s.now())
	s.pending = s.pending[:0]
	s.prepareLocked()
	s.queuef(KindReset, "Started a new game with %s cash", StarterCash.StringFixed(PriceDecimals))
	s.commitLocked(ctx)
	return nil
}

// PriceTick re-prices the market and runs the per-tick bookkeeping.
func (s *Service) PriceTick(ctx context.Context) TickReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	s.prices.Tick(s.state.Prices, nil)
	report := s.afterRepriceLocked(true)
	s.commitLocked(ctx)
	s.obs.TickCompleted("price", time.Since(start))
	return report
}

// NewsTick fires a news event, re-prices with its bias straight away and
// refreshes the leaderboard.
func (s *Service) NewsTick(ctx context.Context) TickReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	ev, bias := s.news.Trigger()
	s.state.RecentEvents = pushRecentEvent(s.state.RecentEvents, RecentEvent{Text: ev.Text, Mood: ev.Mood, At: s.now()})
	s.queuef(KindNews, "%s", ev.Text)
	s.prog.AddXP(&s.state.Progression, ev.RewardXP())

	s.prices.Tick(s.state.Prices, bias)
	report := s.afterRepriceLocked(false)
	report.News = &ev

	if board, err := s.loadLeaderboardLocked(ctx); err == nil {
		s.leaderboard = board
	} else {
		s.log.Warn("refresh leaderboard failed", "err", err)
	}
	s.commitLocked(ctx)
	s.obs.TickCompleted("news", time.Since(start))
	return report
}

func (s *Service) afterRepriceLocked(advanceHolds bool) TickReport {
	now := s.now()
	l := &s.state.Ledger
	p := &s.state.Progression

	if advanceHolds {
		l.AdvanceHoldTicks()
	}
	delta := l.TickDelta(s.state.Prices)
	p.pushTickDelta(TickDelta{At: now, Delta: delta})
	if p.SeasonID != SeasonID(now) {
		p.SeasonID = SeasonID(now)
	}

	s.prog.ExpireBoost(p)
	s.prog.RegenerateDaily(p, l)
	s.prog.CheckAchievements(p, l)
	s.prog.EvaluateMissions(p, l)

	worth := RoundCurrency(l.NetWorth(s.state.Prices))
	s.state.Chart = append(s.state.Chart, ChartSample{At: now, Value: worth})
	if len(s.state.Chart) > ChartSampleLimit {
		s.state.Chart = s.state.Chart[len(s.state.Chart)-ChartSampleLimit:]
	}
	return TickReport{At: now, NetWorth: worth, Delta: delta}
}

func (s *Service) AddToWatchlist(symbol string) error {
	inst, err := normalizeSymbol(symbol)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchlist[inst.Symbol] = true
	return nil
}

func (s *Service) RemoveFromWatchlist(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.watchlist, strings.ToUpper(strings.TrimSpace(symbol)))
}

func (s *Service) Watchlist() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, in := range instruments {
		if s.watchlist[in.Symbol] {
			out = append(out, in.Symbol)
		}
	}
	return out
}

func (s *Service) Dashboard() Dashboard {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	l := &s.state.Ledger
	p := &s.state.Progression
	out := Dashboard{
		Cash:             l.Cash,
		NetWorth:         RoundCurrency(l.NetWorth(s.state.Prices)),
		TradeCount:       l.TradeCount,
		CumulativeProfit: p.CumulativeProfit,
		XP:               p.XP,
		XPToNext:         XPForLevel(p.Level) - p.XP,
		Level:            p.Level,
		Coins:            p.Coins,
		PrestigeCount:    p.Prestige.Count,
		LegacyPoints:     p.Prestige.LegacyPoints,
		SeasonID:         SeasonID(now),
		SeasonEndsIn:     SeasonEnd(now).Sub(now),
		AutoRebuy:        p.AutoRebuy,
		Cosmetic:         p.Cosmetic,
	}
	if m := p.Boosts.Multiplier(now); m > 0 {
		out.Boost = &BoostView{XPMultiplier: m, ExpiresAt: p.Boosts.ExpiresAt}
	}
	for _, in := range instruments {
		h, ok := l.Holdings[in.Symbol]
		if !ok || h.Shares <= 0 {
			continue
		}
		price := s.state.Prices.Price(in.Symbol)
		shares := decimal.NewFromInt(h.Shares)
		value := price.Mul(shares)
		out.Holdings = append(out.Holdings, HoldingView{
			Symbol:     in.Symbol,
			Name:       in.Name,
			Shares:     h.Shares,
			CostBasis:  RoundCurrency(h.CostBasis),
			Price:      price,
			Value:      RoundCurrency(value),
			Unrealized: RoundCurrency(value.Sub(h.CostBasis.Mul(shares))),
			HoldTicks:  l.HoldTicks[in.Symbol],
		})
	}
	return out
}

func (s *Service) stockViewLocked(in Instrument) StockView {
	q := s.state.Prices[in.Symbol]
	v := StockView{
		Symbol:   in.Symbol,
		Name:     in.Name,
		Category: in.Category,
		Price:    q.Price,
		Previous: q.Previous,
		Change:   q.Change(),
		Owned:    s.state.Ledger.Holdings[in.Symbol].Shares,
		Watched:  s.watchlist[in.Symbol],
	}
	if q.Previous.IsPositive() {
		v.ChangePct = v.Change.Div(q.Previous).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return v
}

func (s *Service) Stocks() []StockView {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StockView, 0, len(instruments))
	for _, in := range instruments {
		out = append(out, s.stockViewLocked(in))
	}
	return out
}

func (s *Service) Stock(symbol string) (StockView, error) {
	inst, err := normalizeSymbol(symbol)
	if err != nil {
		return StockView{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stockViewLocked(inst), nil
}

// TopMovers returns the n stocks with the largest absolute change this tick.
func (s *Service) TopMovers(n int) []StockView {
	all := s.Stocks()
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].ChangePct.Abs().GreaterThan(all[j].ChangePct.Abs())
	})
	if n > 0 && len(all) > n {
		all = all[:n]
	}
	return all
}

func (s *Service) Missions() []MissionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]MissionView, 0, len(s.state.Progression.Missions))
	for i, m := range s.state.Progression.Missions {
		out = append(out, MissionView{Index: i, Kind: m.Kind, Text: m.Text, Reward: m.Reward, Done: m.Done})
	}
	return out
}

func (s *Service) Achievements() []AchievementView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return achievementViews(&s.state.Progression)
}

func (s *Service) Shop() []ShopItemView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return shopViews(&s.state.Progression)
}

func (s *Service) Leaderboard() []LeaderboardEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return TopEntries(s.leaderboard, SeasonID(s.now()))
}

func (s *Service) RecentEvents() []RecentEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecentEvent, len(s.state.RecentEvents))
	copy(out, s.state.RecentEvents)
	return out
}

func (s *Service) Chart() []ChartSample {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ChartSample, len(s.state.Chart))
	copy(out, s.state.Chart)
	return out
}

func (s *Service) Orders(limit int) []Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	orders := s.state.Ledger.Orders
	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	out := make([]Order, len(orders))
	copy(out, orders)
	return out
}

func (s *Service) SeasonCountdown() time.Duration {
	now := s.now()
	return SeasonEnd(now).Sub(now)
}

type nopStore struct{}

func (nopStore) Load(context.Context, string) ([]byte, error) { return nil, nil }
func (nopStore) Save(context.Context, string, []byte) error { return nil }

type nopNotifier struct{}

func (nopNotifier) Notify(Notification) {}

type nopObserver struct{}

func (nopObserver) TradeExecuted(Side)                   {}
func (nopObserver) TickCompleted(string, time.Duration)  {}
func (nopObserver) PersistFailed(string)                 {}
func (nopObserver) PortfolioValued(decimal.Decimal, int) {}
