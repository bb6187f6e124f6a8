// Package notify delivers game notifications to the log, to Discord and to
// any other sink that implements game.Notifier.
package notify

import (
	"context"
	"log/slog"

	"marketmasters/internal/game"
)

// Multi fans a notification out to every sink in order.
type Multi []game.Notifier

func (m Multi) Notify(n game.Notification) {
	for _, sink := range m {
		if sink != nil {
			sink.Notify(n)
		}
	}
}

// Slog writes each notification as one structured log line. Errors go out
// at warn level.
type Slog struct {
	log *slog.Logger
}

func NewSlog(logger *slog.Logger) *Slog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Slog{log: logger}
}

func (s *Slog) Notify(n game.Notification) {
	level := slog.LevelInfo
	if n.Kind == game.KindError {
		level = slog.LevelWarn
	}
	s.log.Log(context.Background(), level, "notification", "kind", n.Kind, "message", n.Message, "celebrate", n.Celebrate)
}

// Func adapts a plain function to game.Notifier.
type Func func(game.Notification)

func (f Func) Notify(n game.Notification) { f(n) }
