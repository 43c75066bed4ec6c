// Package engine orchestrates ChronoCore games: it loads a game, runs the
// realm, timeline and karma systems over it and persists the result.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/talgya/chronocore/internal/entropy"
	"github.com/talgya/chronocore/internal/game"
	"github.com/talgya/chronocore/internal/karma"
	"github.com/talgya/chronocore/internal/llm"
	"github.com/talgya/chronocore/internal/metrics"
	"github.com/talgya/chronocore/internal/realm"
	"github.com/talgya/chronocore/internal/timeline"
)

// DefaultTurnsPerEra is how many turns each era lasts.
const DefaultTurnsPerEra = 10

// Store loads and saves whole games. persistence.DB implements it.
type Store interface {
	Load(ctx context.Context, gameID string) (*game.State, error)
	Save(ctx context.Context, gs *game.State) error
}

// Deps are the collaborators an Engine is built from. Only Store is
// required.
type Deps struct {
	Store       Store
	Oracle      *llm.Oracle
	Seeds       entropy.Source
	Metrics     *metrics.Metrics
	TurnsPerEra int
}

// Engine runs game operations. Mutating operations on one game are
// serialized; different games proceed in parallel.
type Engine struct {
	Store       Store
	Oracle      *llm.Oracle
	Seeds       entropy.Source
	Karma       *karma.Engine
	Realms      *realm.Simulator
	Clock       *Clock
	Metrics     *metrics.Metrics
	TurnsPerEra int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New wires an engine. Missing optional dependencies get working defaults:
// a crypto seed source, fresh metrics and a disabled oracle.
func New(d Deps) *Engine {
	if d.Seeds == nil {
		d.Seeds = (*entropy.Client)(nil)
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	if d.Oracle == nil {
		d.Oracle = llm.NewOracle(nil)
	}
	if d.TurnsPerEra <= 0 {
		d.TurnsPerEra = DefaultTurnsPerEra
	}
	e := &Engine{
		Store:       d.Store,
		Oracle:      d.Oracle,
		Seeds:       d.Seeds,
		Karma:       karma.NewEngine(),
		Realms:      realm.NewSimulator(d.Oracle),
		Metrics:     d.Metrics,
		TurnsPerEra: d.TurnsPerEra,
		locks:       make(map[string]*sync.Mutex),
	}
	e.Clock = NewClock(0, e.autoTurn)
	return e
}

// lock takes the per-game write lock and returns its release.
func (e *Engine) lock(gameID string) func() {
	e.mu.Lock()
	l, ok := e.locks[gameID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[gameID] = l
	}
	e.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Game loads a game without taking the write lock.
func (e *Engine) Game(ctx context.Context, gameID string) (*game.State, error) {
	return e.load(ctx, gameID)
}

// update runs fn against a freshly loaded game under the game's lock and
// saves the result. Nothing is saved when fn fails.
func (e *Engine) update(ctx context.Context, gameID string, fn func(gs *game.State) error) error {
	defer e.lock(gameID)()

	gs, err := e.load(ctx, gameID)
	if err != nil {
		return err
	}
	if err := fn(gs); err != nil {
		return err
	}
	return e.save(ctx, gs)
}

func (e *Engine) load(ctx context.Context, gameID string) (*game.State, error) {
	if gameID == "" {
		return nil, game.Invalid("game_id", "game id is required")
	}
	gs, err := e.Store.Load(ctx, gameID)
	if err != nil {
		if errors.Is(err, game.ErrStore) {
			e.Metrics.StoreErrors.Inc()
		}
		return nil, fmt.Errorf("load game %s: %w", gameID, err)
	}
	return gs, nil
}

func (e *Engine) save(ctx context.Context, gs *game.State) error {
	gs.UpdatedAt = time.Now().UTC()
	if err := gs.Validate(); err != nil {
		return fmt.Errorf("validate game %s: %w", gs.ID, err)
	}
	if err := e.Store.Save(ctx, gs); err != nil {
		e.Metrics.StoreErrors.Inc()
		return fmt.Errorf("save game %s: %w", gs.ID, err)
	}
	return nil
}

// rng builds the per-call random source. A zero seed draws from Seeds.
func (e *Engine) rng(seed int64) (*rand.Rand, int64) {
	if seed == 0 {
		seed = e.Seeds.Seed()
	}
	return rand.New(rand.NewSource(seed)), seed
}

// autoTurn is the clock's callback: one turn with no player decisions.
func (e *Engine) autoTurn(ctx context.Context, gameID string) (TurnSummary, error) {
	return e.AdvanceTurn(ctx, gameID, nil)
}

// Analyze reports on one timeline. The game is not modified.
func (e *Engine) Analyze(ctx context.Context, gameID, timelineID string) (timeline.Analysis, error) {
	gs, err := e.load(ctx, gameID)
	if err != nil {
		return timeline.Analysis{}, err
	}
	a, err := timeline.Analyze(timelineID, gs)
	if err != nil {
		return timeline.Analysis{}, err
	}
	e.Metrics.Paradoxes.WithLabelValues(gs.ID, a.TimelineID).Set(float64(len(a.Paradoxes)))
	return a, nil
}

// NarrateWorld returns the oracle's overview of the game, or its plain
// summary when the oracle is unavailable.
func (e *Engine) NarrateWorld(ctx context.Context, gameID string) (string, error) {
	gs, err := e.load(ctx, gameID)
	if err != nil {
		return "", err
	}
	return e.Oracle.NarrateWorld(ctx, gs), nil
}
