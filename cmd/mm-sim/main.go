package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketmasters/internal/app"
	"marketmasters/internal/config"
	"marketmasters/internal/game"
	"marketmasters/internal/scheduler"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	if err := run(logger); err != nil {
		logger.Error("sim failed", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadSimFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	session, err := app.Open(ctx, app.Options{
		Store:   cfg.Store,
		Game:    cfg.Game,
		Discord: cfg.Discord,
	}, logger)
	if err != nil {
		return fmt.Errorf("open game: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		session.Close(closeCtx)
	}()

	logTick := func(kind string, r game.TickReport) {
		attrs := []any{"kind", kind, "net_worth", r.NetWorth.StringFixed(game.PriceDecimals), "delta", r.Delta.StringFixed(game.PriceDecimals)}
		if r.News != nil {
			attrs = append(attrs, "news", r.News.Text)
		}
		logger.Info("tick complete", attrs...)
	}

	if cfg.RunOnce {
		session.Sched.RunNow(ctx, scheduler.KindPrice, func(ctx context.Context) {
			logTick("price", session.Game.PriceTick(ctx))
		})
		session.Sched.RunNow(ctx, scheduler.KindNews, func(ctx context.Context) {
			logTick("news", session.Game.NewsTick(ctx))
		})
		logger.Info("sim run-once completed")
		return nil
	}

	if err := session.StartLoops(app.Hooks{
		OnTick: func(r game.TickReport) {
			kind := "price"
			if r.News != nil {
				kind = "news"
			}
			logTick(kind, r)
		},
	}); err != nil {
		return fmt.Errorf("start tick loops: %w", err)
	}

	<-ctx.Done()
	logger.Info("sim shutdown")
	return nil
}
