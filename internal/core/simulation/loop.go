// Package simulation runs the fixed-rate tick every feature executes in.
//
// All world mutation happens on the goroutine running Loop.Run. Network and
// admin goroutines hand work over with Post or Do.
package simulation

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/zeusync/contentpack/internal/core/observability/log"
)

var ErrStopped = errors.New("simulation loop stopped")

const inboxSize = 1024

type system struct {
	name   string
	update func(dt float64)
}

// Loop ticks registered systems at a fixed rate.
type Loop struct {
	log      log.Log
	interval time.Duration

	systems []system
	tickEnd []func(tick uint64)

	inbox  chan func()
	done   chan struct{}
	paused atomic.Bool
	tick   atomic.Uint64
}

// New creates a loop ticking rate times per second.
func New(rate int, logger log.Log) *Loop {
	if rate <= 0 {
		rate = 30
	}
	return &Loop{
		log:      logger.Named("simulation"),
		interval: time.Second / time.Duration(rate),
		inbox:    make(chan func(), inboxSize),
		done:     make(chan struct{}),
	}
}

// Interval is the wall time between ticks.
func (l *Loop) Interval() time.Duration { return l.interval }

// AddSystem appends a per-tick update. Systems run in registration order.
// Must be called before Run.
func (l *Loop) AddSystem(name string, update func(dt float64)) {
	l.systems = append(l.systems, system{name: name, update: update})
}

// OnTickEnd registers fn to run after the systems of every tick, paused or not.
func (l *Loop) OnTickEnd(fn func(tick uint64)) {
	l.tickEnd = append(l.tickEnd, fn)
}

// SetPaused stops systems from advancing. Posted work still runs.
func (l *Loop) SetPaused(paused bool) { l.paused.Store(paused) }
func (l *Loop) Paused() bool          { return l.paused.Load() }

// Tick returns the number of completed ticks.
func (l *Loop) Tick() uint64 { return l.tick.Load() }

// Post queues fn to run at the start of the next tick.
func (l *Loop) Post(ctx context.Context, fn func()) error {
	select {
	case <-l.done:
		return ErrStopped
	default:
	}
	select {
	case l.inbox <- fn:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do runs fn on the next tick and waits for its result.
func (l *Loop) Do(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	if err := l.Post(ctx, func() { result <- fn() }); err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run ticks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.log.Info("simulation started", log.Duration("interval", l.interval), log.Int("systems", len(l.systems)))
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			l.log.Info("simulation stopped", log.Uint64("ticks", l.Tick()))
			return nil
		case now := <-ticker.C:
			l.Step(now.Sub(last).Seconds())
			last = now
		}
	}
}

// Step runs one tick synchronously: queued work, then systems with dt
// unless paused, then tick-end hooks.
func (l *Loop) Step(dt float64) {
	l.drain()
	if !l.Paused() {
		for _, s := range l.systems {
			s.update(dt)
		}
	}
	n := l.tick.Add(1)
	for _, fn := range l.tickEnd {
		fn(n)
	}
}

func (l *Loop) drain() {
	for {
		select {
		case fn := <-l.inbox:
			fn()
		default:
			return
		}
	}
}
