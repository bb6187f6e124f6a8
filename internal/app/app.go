// Package app wires a game session together: store, service, notification
// sinks, metrics and the tick loops. The three binaries share it.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"marketmasters/internal/config"
	"marketmasters/internal/game"
	"marketmasters/internal/metrics"
	"marketmasters/internal/notify"
	"marketmasters/internal/scheduler"
	"marketmasters/internal/store"
)

type Options struct {
	Store   config.StoreConfig
	Game    config.GameConfig
	Discord config.DiscordConfig
	// Sinks receive every notification in addition to the log and Discord.
	Sinks []game.Notifier
	// Quiet drops the slog notification sink, for the TUI.
	Quiet bool
}

type App struct {
	log     *slog.Logger
	cfg     config.GameConfig
	store   store.Store
	discord *notify.Discord

	Game  *game.Service
	Sched *scheduler.Scheduler
}

// Open loads the save and returns a ready service. A corrupt or unreachable
// save is logged and the game starts fresh, matching Service.Load.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	st, err := store.Open(ctx, opts.Store.Options())
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", opts.Store.Kind, err)
	}

	var sinks notify.Multi
	if !opts.Quiet {
		sinks = append(sinks, notify.NewSlog(logger))
	}
	var discord *notify.Discord
	if opts.Discord.Enabled() {
		discord, err = notify.NewDiscord(opts.Discord.WebhookID, opts.Discord.WebhookToken, logger)
		if err != nil {
			logger.Warn("discord notifications disabled", "err", err)
		} else {
			sinks = append(sinks, discord)
		}
	}
	sinks = append(sinks, opts.Sinks...)

	svc := game.NewService(st, logger,
		game.WithNotifier(sinks),
		game.WithObserver(metrics.Observer{}),
		game.WithVolatility(game.VolatilityProfile(opts.Game.Volatility)),
	)
	if err := svc.Load(ctx); err != nil {
		logger.Warn("load save failed, starting fresh", "store", opts.Store.Kind, "profile", opts.Store.Profile, "err", err)
	}

	return &App{
		log:     logger,
		cfg:     opts.Game,
		store:   st,
		discord: discord,
		Game:    svc,
		Sched:   scheduler.New(ctx, logger),
	}, nil
}

// Hooks are optional callbacks run after each tick.
type Hooks struct {
	OnTick      func(game.TickReport)
	OnCountdown func(time.Duration)
}

// StartLoops starts the price and news loops, and the UI loop when
// OnCountdown is set.
func (a *App) StartLoops(h Hooks) error {
	tick := func(run func(context.Context) game.TickReport) scheduler.Func {
		return func(ctx context.Context) {
			report := run(ctx)
			if h.OnTick != nil {
				h.OnTick(report)
			}
		}
	}
	if err := a.Sched.Start(scheduler.KindPrice, a.cfg.PriceTickEvery, tick(a.Game.PriceTick)); err != nil {
		return err
	}
	if err := a.Sched.Start(scheduler.KindNews, a.cfg.NewsTickEvery, tick(a.Game.NewsTick)); err != nil {
		return err
	}
	if h.OnCountdown != nil {
		err := a.Sched.Start(scheduler.KindUI, a.cfg.UITickEvery, func(context.Context) {
			h.OnCountdown(a.Game.SeasonCountdown())
		})
		if err != nil {
			return err
		}
	}
	a.log.Info("tick loops started",
		"price_every", a.cfg.PriceTickEvery.String(),
		"news_every", a.cfg.NewsTickEvery.String(),
		"volatility", a.cfg.Volatility)
	return nil
}

// Close stops the loops, flushes Discord and releases the store.
func (a *App) Close(ctx context.Context) {
	a.Sched.StopAll()
	a.Game.Close()
	if a.discord != nil {
		a.discord.Close(ctx)
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn("close store", "err", err)
	}
}
