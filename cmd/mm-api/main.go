package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"marketmasters/internal/api"
	"marketmasters/internal/app"
	"marketmasters/internal/config"
	"marketmasters/internal/game"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	if err := run(logger); err != nil {
		logger.Error("mm api failed", "err", err)
		os.Exit(1)
	}
	logger.Info("mm api shutdown")
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	hub := api.NewHub(logger)
	session, err := app.Open(ctx, app.Options{
		Store:   cfg.Store,
		Game:    cfg.Game,
		Discord: cfg.Discord,
		Sinks:   []game.Notifier{hub},
	}, logger)
	if err != nil {
		return fmt.Errorf("open game: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		session.Close(closeCtx)
	}()

	if err := session.StartLoops(app.Hooks{
		OnTick:      hub.Tick,
		OnCountdown: hub.Countdown,
	}); err != nil {
		return fmt.Errorf("start tick loops: %w", err)
	}

	server := api.New(logger, session.Game, hub)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		logger.Info("mm api listening", "addr", cfg.Addr, "store", cfg.Store.Kind, "profile", cfg.Store.Profile)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
