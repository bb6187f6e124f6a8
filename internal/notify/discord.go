package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"marketmasters/internal/game"
)

type webhookExecutor interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

var kindColors = map[game.NotificationKind]int{
	game.KindLevelUp:     0x2ecc71,
	game.KindAchievement: 0xf1c40f,
	game.KindPrestige:    0x9b59b6,
	game.KindLeaderboard: 0x3498db,
	game.KindNews:        0xe67e22,
}

// Discord posts notable notifications to a channel webhook. Notify never
// blocks: messages queue on a small buffer and are dropped when it is full.
type Discord struct {
	exec      webhookExecutor
	webhookID string
	token     string
	log       *slog.Logger

	mu     sync.Mutex
	closed bool
	queue  chan game.Notification
	wg     sync.WaitGroup
}

func NewDiscord(webhookID, token string, logger *slog.Logger) (*Discord, error) {
	session, err := discordgo.New("")
	if err != nil {
		return nil, err
	}
	session.Client.Timeout = 10 * time.Second
	return newDiscord(session, webhookID, token, logger), nil
}

func newDiscord(exec webhookExecutor, webhookID, token string, logger *slog.Logger) *Discord {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Discord{
		exec:      exec,
		webhookID: webhookID,
		token:     token,
		log:       logger,
		queue:     make(chan game.Notification, 32),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// Wants reports whether a notification is worth sending to a shared channel.
func Wants(n game.Notification) bool {
	if n.Celebrate {
		return true
	}
	_, ok := kindColors[n.Kind]
	return ok && n.Kind != game.KindNews
}

func (d *Discord) Notify(n game.Notification) {
	if !Wants(n) {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	select {
	case d.queue <- n:
	default:
		d.log.Warn("discord queue full, dropping notification", "kind", n.Kind)
	}
}

func (d *Discord) run() {
	defer d.wg.Done()
	for n := range d.queue {
		params := &discordgo.WebhookParams{
			Username: "Market Masters",
			Embeds: []*discordgo.MessageEmbed{{
				Title:       title(n.Kind),
				Description: n.Message,
				Color:       kindColors[n.Kind],
				Timestamp:   n.At.UTC().Format(time.RFC3339),
			}},
		}
		if _, err := d.exec.WebhookExecute(d.webhookID, d.token, false, params); err != nil {
			d.log.Warn("discord webhook failed", "kind", n.Kind, "err", err)
		}
	}
}

// Close stops accepting notifications and waits for queued ones to go out,
// or for ctx to end.
func (d *Discord) Close(ctx context.Context) {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

func title(kind game.NotificationKind) string {
	switch kind {
	case game.KindLevelUp:
		return "Level up"
	case game.KindAchievement:
		return "Achievement unlocked"
	case game.KindPrestige:
		return "Prestige"
	case game.KindLeaderboard:
		return "Leaderboard"
	case game.KindMission:
		return "Mission complete"
	default:
		return "Market Masters"
	}
}
