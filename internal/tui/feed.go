package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"marketmasters/internal/game"
)

type TickMsg struct {
	Report game.TickReport
}

type NotificationMsg struct {
	Notification game.Notification
}

type CountdownMsg struct {
	Left time.Duration
}

// Feed carries events from the scheduler and the game into the program.
// Every send is non-blocking; when the buffer is full the event is dropped,
// since the next refresh redraws from the service anyway.
type Feed struct {
	ch chan tea.Msg
}

func NewFeed() *Feed {
	return &Feed{ch: make(chan tea.Msg, 128)}
}

func (f *Feed) send(msg tea.Msg) {
	select {
	case f.ch <- msg:
	default:
	}
}

// Notify makes the feed a game.Notifier.
func (f *Feed) Notify(n game.Notification) { f.send(NotificationMsg{Notification: n}) }

func (f *Feed) Tick(r game.TickReport) { f.send(TickMsg{Report: r}) }

func (f *Feed) Countdown(left time.Duration) { f.send(CountdownMsg{Left: left}) }

// next waits for one event. The model re-arms it after every feed message.
func (f *Feed) next() tea.Cmd {
	return func() tea.Msg {
		return <-f.ch
	}
}
