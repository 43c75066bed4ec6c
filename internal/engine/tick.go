package engine

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// pollInterval is how often a paused or idle clock checks for work.
const pollInterval = 100 * time.Millisecond

// TurnFunc advances one game by one turn.
type TurnFunc func(ctx context.Context, gameID string) (TurnSummary, error)

// Clock drives turns for registered games on a fixed interval. Each round
// advances every registered game once, in registration order.
type Clock struct {
	Interval time.Duration // wall time between rounds; zero disables the clock

	// OnTurn is called after each successful turn.
	OnTurn func(sum TurnSummary)

	advance TurnFunc

	mu      sync.Mutex
	round   uint64
	games   []string
	paused  bool
	running bool
	stop    chan struct{}
}

// NewClock creates a clock that calls advance for each registered game.
func NewClock(interval time.Duration, advance TurnFunc) *Clock {
	return &Clock{Interval: interval, advance: advance}
}

// Register adds a game to the clock. Registering twice is a no-op.
func (c *Clock) Register(gameID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !slices.Contains(c.games, gameID) {
		c.games = append(c.games, gameID)
	}
}

// Unregister removes a game from the clock.
func (c *Clock) Unregister(gameID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.games = slices.DeleteFunc(c.games, func(id string) bool { return id == gameID })
}

// Games returns the registered game ids.
func (c *Clock) Games() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.games)
}

// Pause suspends rounds until Resume.
func (c *Clock) Pause() {
	c.mu.Lock()
	c.paused = true
	c.mu.Unlock()
}

// Resume continues after Pause.
func (c *Clock) Resume() {
	c.mu.Lock()
	c.paused = false
	c.mu.Unlock()
}

// Paused reports whether the clock is paused.
func (c *Clock) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// Running reports whether Run is active.
func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Round returns the number of rounds completed.
func (c *Clock) Round() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.round
}

// Run starts the turn loop. Blocks until Stop is called or ctx is done.
func (c *Clock) Run(ctx context.Context) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.stop = make(chan struct{})
	stop := c.stop
	c.mu.Unlock()

	slog.Info("turn clock started", "round", c.Round(), "interval", c.Interval)
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		slog.Info("turn clock stopped", "round", c.Round())
	}()

	for {
		wait := pollInterval
		if c.Interval > 0 && !c.Paused() {
			start := time.Now()
			c.step(ctx)
			wait = max(0, c.Interval-time.Since(start))
		}

		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-time.After(wait):
		}
	}
}

// Stop halts the turn loop after the current round.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running && c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}

// step advances every registered game by one turn. A failing game is
// logged and skipped; the others still advance.
func (c *Clock) step(ctx context.Context) {
	for _, id := range c.Games() {
		if ctx.Err() != nil {
			return
		}
		sum, err := c.advance(ctx, id)
		if err != nil {
			slog.Warn("scheduled turn failed", "game", id, "error", err)
			continue
		}
		if c.OnTurn != nil {
			c.OnTurn(sum)
		}
	}

	c.mu.Lock()
	c.round++
	c.mu.Unlock()
}
