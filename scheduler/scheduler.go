package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"portfolio/logging"
)

// Clock is the time source for every scheduled callback in the module.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
	NewTicker(d time.Duration) Ticker
}

// Timer is a pending one-shot callback. Stop reports whether it prevented the call.
type Timer interface {
	Stop() bool
}

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// RealClock is the wall clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

func (RealClock) NewTicker(d time.Duration) Ticker { return realTicker{time.NewTicker(d)} }

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

type Task func(ctx context.Context, now time.Time)

// Interval runs a task at a fixed period until its context ends or Stop is called.
// Ticks that arrive while the task is still running are dropped.
type Interval struct {
	name   string
	every  time.Duration
	task   Task
	clock  Clock
	logger *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewInterval(name string, every time.Duration, task Task, clock Clock, logger *zap.Logger) *Interval {
	if clock == nil {
		clock = RealClock{}
	}
	return &Interval{
		name:   name,
		every:  every,
		task:   task,
		clock:  clock,
		logger: logging.OrNop(logger).Named("scheduler").With(zap.String("task", name)),
	}
}

// Start launches the loop. Calling Start on a running Interval is a no-op.
func (s *Interval) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	ticker := s.clock.NewTicker(s.every)
	done := s.done

	go func() {
		defer close(done)
		defer ticker.Stop()
		s.logger.Info("started", zap.Duration("every", s.every))

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("stopped")
				return
			case now := <-ticker.C():
				s.task(ctx, now)
			}
		}
	}()
}

// Stop cancels the loop and waits for an in-flight task to return.
func (s *Interval) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Slot holds at most one pending timer; scheduling a new one cancels the old.
type Slot struct {
	clock Clock

	mu    sync.Mutex
	timer Timer
	gen   uint64
}

func NewSlot(clock Clock) *Slot {
	if clock == nil {
		clock = RealClock{}
	}
	return &Slot{clock: clock}
}

// Schedule replaces any pending callback with f after d.
// f does not run if the slot is cancelled or rescheduled first.
func (s *Slot) Schedule(d time.Duration, f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.timer = s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		if s.gen != gen {
			s.mu.Unlock()
			return
		}
		s.timer = nil
		s.mu.Unlock()
		f()
	})
}

// Cancel drops the pending callback and reports whether one was pending.
func (s *Slot) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	if s.timer == nil {
		return false
	}
	s.timer.Stop()
	s.timer = nil
	return true
}

// Pending reports whether a callback is scheduled.
func (s *Slot) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}
