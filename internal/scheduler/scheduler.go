package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"time"
)

type Kind string

const (
	KindPrice Kind = "price"
	KindNews  Kind = "news"
	KindUI    Kind = "ui"
)

// Func is one tick of work. A panic inside it is logged and the loop keeps
// going.
type Func func(ctx context.Context)

type loop struct {
	cancel context.CancelFunc
	done   chan struct{}
	every  time.Duration
}

// Scheduler runs at most one repeating loop per Kind.
type Scheduler struct {
	log *slog.Logger

	mu    sync.Mutex
	loops map[Kind]*loop
	ctx   context.Context
}

func New(ctx context.Context, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return &Scheduler{log: logger, loops: make(map[Kind]*loop), ctx: ctx}
}

// Start runs fn every interval until stopped. A loop already running for
// kind is stopped and waited for first. The lock is never held while
// waiting, so a tick may start or stop other kinds; it must not start or
// stop its own kind, since that would wait on itself.
func (s *Scheduler) Start(kind Kind, every time.Duration, fn Func) error {
	if every <= 0 {
		return fmt.Errorf("scheduler: %s interval must be > 0", kind)
	}
	if fn == nil {
		return fmt.Errorf("scheduler: %s has no tick func", kind)
	}

	for {
		s.mu.Lock()
		old := s.detachLocked(kind)
		if old == nil {
			ctx, cancel := context.WithCancel(s.ctx)
			l := &loop{cancel: cancel, done: make(chan struct{}), every: every}
			s.loops[kind] = l
			s.mu.Unlock()
			go s.run(ctx, kind, l, fn)
			s.log.Info("scheduler loop started", "kind", kind, "every", every.String())
			return nil
		}
		s.mu.Unlock()
		<-old.done
	}
}

func (s *Scheduler) run(ctx context.Context, kind Kind, l *loop, fn Func) {
	defer close(l.done)
	ticker := time.NewTicker(l.every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			s.safeTick(ctx, kind, fn)
		}
	}
}

func (s *Scheduler) safeTick(ctx context.Context, kind Kind, fn Func) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("scheduler tick panicked", "kind", kind, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	fn(ctx)
}

// RunNow executes fn once on the caller's goroutine with the same panic
// protection as a scheduled tick.
func (s *Scheduler) RunNow(ctx context.Context, kind Kind, fn Func) {
	s.safeTick(ctx, kind, fn)
}

func (s *Scheduler) Stop(kind Kind) {
	s.mu.Lock()
	l := s.detachLocked(kind)
	s.mu.Unlock()
	if l != nil {
		<-l.done
	}
}

// detachLocked cancels the loop for kind and forgets it. The caller waits on
// the returned loop's done channel after releasing the lock.
func (s *Scheduler) detachLocked(kind Kind) *loop {
	l, ok := s.loops[kind]
	if !ok {
		return nil
	}
	delete(s.loops, kind)
	l.cancel()
	return l
}

func (s *Scheduler) StopAll() {
	s.mu.Lock()
	stopped := make([]*loop, 0, len(s.loops))
	for kind := range s.loops {
		stopped = append(stopped, s.detachLocked(kind))
	}
	s.mu.Unlock()
	for _, l := range stopped {
		<-l.done
	}
}

// Running lists the active kinds in name order.
func (s *Scheduler) Running() []Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Kind, 0, len(s.loops))
	for kind := range s.loops {
		out = append(out, kind)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
