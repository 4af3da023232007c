// Package gate paces outbound calls to a quota-constrained partner endpoint.
//
// A Gate admits at most Capacity callers per fixed window. Slots are handed
// out under a single mutex in arrival order: a caller arriving while the
// current window is full reserves a slot in the next window that has room
// and sleeps until that window opens. No background goroutine is involved;
// the window resets itself once it lies wholly in the past.
package gate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"youthsessions/internal/ratelimit/metrics"
)

// Gate is a fixed-window admission gate. The zero value is not usable; use New.
type Gate struct {
	name     string
	capacity int
	window   time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu          sync.Mutex
	windowStart time.Time
	used        int
}

type Option func(*Gate)

func WithClock(clock clockwork.Clock) Option {
	return func(g *Gate) {
		g.clock = clock
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		g.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gate) {
		g.metrics = m
	}
}

// New builds a gate that admits capacity callers per window.
// The name labels metrics and logs so gates for different endpoint families can be told apart.
func New(name string, capacity int, window time.Duration, opts ...Option) (*Gate, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("gate %q: capacity must be positive, got %d", name, capacity)
	}
	if window <= 0 {
		return nil, fmt.Errorf("gate %q: window must be positive, got %s", name, window)
	}
	g := &Gate{
		name:     name,
		capacity: capacity,
		window:   window,
		clock:    clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Name returns the label the gate was built with.
func (g *Gate) Name() string { return g.name }

// AwaitTurn blocks until the caller holds a slot in the current window.
//
// The quota itself never produces an error. The only error returned is ctx.Err()
// when the caller abandons the wait; the abandoned slot stays consumed.
func (g *Gate) AwaitTurn(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	wait := g.reserve()
	if wait <= 0 {
		g.recordAdmitted(0)
		return nil
	}

	if g.logger != nil {
		g.logger.DebugContext(ctx, "rate gate full, waiting for next window",
			"gate", g.name,
			"wait_ms", wait.Milliseconds(),
		)
	}
	g.recordQueued(true)
	defer g.recordQueued(false)

	timer := g.clock.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		if g.metrics != nil {
			g.metrics.IncrementAbandoned(g.name)
		}
		return ctx.Err()
	case <-timer.Chan():
		g.recordAdmitted(wait)
		return nil
	}
}

// reserve claims the next free slot and returns how long the caller must wait for it.
func (g *Gate) reserve() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	switch {
	case g.windowStart.IsZero() || !now.Before(g.windowStart.Add(g.window)):
		// Tracked window is over; open a fresh one anchored at now.
		g.windowStart = now
		g.used = 0
	case g.used >= g.capacity:
		g.windowStart = g.windowStart.Add(g.window)
		g.used = 0
	}
	g.used++
	return g.windowStart.Sub(now)
}

func (g *Gate) recordAdmitted(wait time.Duration) {
	if g.metrics == nil {
		return
	}
	g.metrics.ObserveWait(g.name, wait.Seconds())
}

func (g *Gate) recordQueued(entering bool) {
	if g.metrics == nil {
		return
	}
	if entering {
		g.metrics.IncQueued(g.name)
		return
	}
	g.metrics.DecQueued(g.name)
}
