package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/chronocore/internal/game"
	"github.com/talgya/chronocore/internal/karma"
	"github.com/talgya/chronocore/internal/realm"
	"github.com/talgya/chronocore/internal/timeline"
)

// recentWindow is how much game history a realm sees when drifting its ethics.
const recentWindow = 10

// ResolvedDecision is a player decision whose evaluation is already known.
type ResolvedDecision struct {
	PlayerID   string           `json:"player_id"`
	Decision   string           `json:"decision"`
	Evaluation karma.Evaluation `json:"evaluation"`
}

// RealmEventReport is one realm event that fired during a turn.
type RealmEventReport struct {
	RealmID     string         `json:"realm_id"`
	Type        game.EventType `json:"type"`
	Description string         `json:"description"`
	Effects     map[string]int `json:"effects"`
}

// TimelineReport is the post-turn state of one timeline.
type TimelineReport struct {
	TimelineID string  `json:"timeline_id"`
	Before     float64 `json:"stability_before"`
	Stability  float64 `json:"stability"`
	Paradoxes  int     `json:"paradoxes"`
}

// KarmaChange is the delta applied for one resolved decision.
type KarmaChange struct {
	PlayerID string `json:"player_id"`
	Category string `json:"category"`
	Delta    int    `json:"delta"`
	Karma    int    `json:"karma"`
}

// TurnSummary reports everything one AdvanceTurn call changed.
type TurnSummary struct {
	GameID      string             `json:"game_id"`
	Turn        int                `json:"turn"`
	Era         game.Era           `json:"era"`
	EraAdvanced bool               `json:"era_advanced"`
	Seed        int64              `json:"seed"`
	Realms      []realm.TurnReport `json:"realms"`
	Events      []RealmEventReport `json:"events,omitempty"`
	Timelines   []TimelineReport   `json:"timelines"`
	Karma       []KarmaChange      `json:"karma,omitempty"`
	Rift        *game.TimeRift     `json:"time_rift,omitempty"`
	Duration    time.Duration      `json:"duration_ns"`
}

// AdvanceTurn runs one turn of the game with a seed drawn from the engine's
// seed source.
func (e *Engine) AdvanceTurn(ctx context.Context, gameID string, decisions []ResolvedDecision) (TurnSummary, error) {
	return e.AdvanceTurnSeeded(ctx, gameID, decisions, 0)
}

// AdvanceTurnSeeded runs one turn: realms grow and roll events, timelines
// are rescored, resolved decisions are applied as karma, a time rift may
// open, then the turn counter and era move on and the game is saved. A
// zero seed draws one from the seed source.
func (e *Engine) AdvanceTurnSeeded(ctx context.Context, gameID string, decisions []ResolvedDecision, seed int64) (TurnSummary, error) {
	start := time.Now()
	var sum TurnSummary

	err := e.update(ctx, gameID, func(gs *game.State) error {
		// Reject unknown players before anything moves.
		for _, d := range decisions {
			if _, err := gs.Player(d.PlayerID); err != nil {
				return err
			}
		}

		rng, used := e.rng(seed)
		sum = TurnSummary{GameID: gs.ID, Seed: used}

		before := make(map[string]float64, len(gs.Timelines))
		for _, t := range gs.Timelines {
			before[t.ID] = timeline.CalculateStability(t, gs.RealmsIn(t.ID), gs)
		}

		e.advanceRealms(ctx, gs, before, rng, &sum)
		recorded := e.rescoreTimelines(gs, before, &sum)
		e.applyDecisions(gs, decisions, &sum)
		e.rollRift(ctx, gs, recorded, rng, &sum)

		gs.Turn++
		gs.NextPlayer()
		if gs.Turn%e.TurnsPerEra == 0 {
			if next, ok := gs.Era.Next(); ok {
				if err := gs.AdvanceEra(next); err != nil {
					return err
				}
				sum.EraAdvanced = true
				gs.AddEvent(game.GameEvent{
					ID:          uuid.New().String(),
					Type:        game.KindEraAdvanced,
					Description: fmt.Sprintf("The %s era begins.", next),
				})
			}
		}
		sum.Turn = gs.Turn
		sum.Era = gs.Era
		return nil
	})
	if err != nil {
		return TurnSummary{}, err
	}

	sum.Duration = time.Since(start)
	e.Metrics.Turns.Inc()
	e.Metrics.TurnDuration.Observe(sum.Duration.Seconds())
	for _, t := range sum.Timelines {
		e.Metrics.Stability.WithLabelValues(gameID, t.TimelineID).Set(t.Stability)
		e.Metrics.Paradoxes.WithLabelValues(gameID, t.TimelineID).Set(float64(t.Paradoxes))
	}

	slog.Info("turn advanced",
		"game", gameID,
		"turn", sum.Turn,
		"era", sum.Era,
		"events", len(sum.Events),
		"decisions", len(sum.Karma),
		"rift", sum.Rift != nil,
		"duration", sum.Duration,
	)
	return sum, nil
}

func (e *Engine) advanceRealms(ctx context.Context, gs *game.State, stability map[string]float64, rng *rand.Rand, sum *TurnSummary) {
	recent := gs.RecentEvents(recentWindow)
	for _, r := range gs.Realms {
		var owner *game.Player
		if r.OwnerID != "" {
			owner, _ = gs.Player(r.OwnerID)
		}
		sum.Realms = append(sum.Realms, e.Realms.AdvanceTurn(ctx, r, realm.TurnInput{Owner: owner, RecentEvents: recent}, rng))

		data := realm.GenerateEvent(r, stability[r.TimelineID], rng)
		if data == nil {
			continue
		}
		out, err := e.Realms.ProcessEvent(ctx, r, data.Type, *data, rng)
		if err != nil {
			slog.Warn("realm event rejected", "realm", r.ID, "type", data.Type, "error", err)
			continue
		}
		r.RecordEvent(game.RealmEvent{Type: data.Type, Description: out.Description, Effects: out.Effects, Turn: gs.Turn})
		if t, err := gs.Timeline(r.TimelineID); err == nil {
			t.AppendEvent(game.TimelineEvent{
				Type:        string(data.Type),
				Outcome:     out.Result,
				Description: out.Description,
				RealmIDs:    []string{r.ID},
				Turn:        gs.Turn,
			})
		}
		gs.AddEvent(game.GameEvent{
			ID:              uuid.New().String(),
			Type:            game.KindRealmEvent,
			Description:     out.Description,
			AffectedPlayers: nonEmpty(r.OwnerID),
			AffectedRealms:  []string{r.ID},
		})
		sum.Events = append(sum.Events, RealmEventReport{
			RealmID:     r.ID,
			Type:        data.Type,
			Description: out.Description,
			Effects:     out.Effects,
		})
	}
}

// rescoreTimelines stores each timeline's new stability and returns the
// recorded values by timeline id.
func (e *Engine) rescoreTimelines(gs *game.State, before map[string]float64, sum *TurnSummary) map[string]float64 {
	recorded := make(map[string]float64, len(gs.Timelines))
	for _, t := range gs.Timelines {
		realms := gs.RealmsIn(t.ID)
		stability := timeline.CalculateStability(t, realms, gs)
		paradoxes := timeline.DetectParadoxes(t, realms, gs)
		t.Stability = stability
		recorded[t.ID] = stability
		sum.Timelines = append(sum.Timelines, TimelineReport{
			TimelineID: t.ID,
			Before:     before[t.ID],
			Stability:  stability,
			Paradoxes:  len(paradoxes),
		})
		if len(paradoxes) > 0 {
			slog.Debug("paradoxes detected", "game", gs.ID, "timeline", t.ID, "count", len(paradoxes))
		}
	}
	return recorded
}

func (e *Engine) applyDecisions(gs *game.State, decisions []ResolvedDecision, sum *TurnSummary) {
	for _, d := range decisions {
		p, err := gs.Player(d.PlayerID)
		if err != nil {
			continue
		}
		delta := e.Karma.ApplyDecision(p, d.Evaluation, gs.Era, d.Decision)
		category := karma.Categorize(d.Decision, delta)
		gs.GlobalKarma += delta
		gs.AddEvent(game.GameEvent{
			ID:              uuid.New().String(),
			Type:            game.KindDecision,
			Description:     d.Decision,
			AffectedPlayers: []string{p.ID},
			AffectedRealms:  slices.Clone(p.OwnedRealms),
			KarmaImpact:     delta,
		})
		e.Metrics.Decisions.WithLabelValues(category).Inc()
		sum.Karma = append(sum.Karma, KarmaChange{PlayerID: p.ID, Category: category, Delta: delta, Karma: p.Karma})
	}
}

// rollRift rolls against the stabilities this turn recorded, so the chance
// matches what the summary reports and the store keeps.
func (e *Engine) rollRift(ctx context.Context, gs *game.State, recorded map[string]float64, rng *rand.Rand, sum *TurnSummary) {
	rift := timeline.GenerateTimeRiftFrom(gs, recorded, rng)
	if rift == nil {
		return
	}

	realmName, timelineName := rift.Location.RealmID, rift.Location.TimelineID
	if r, err := gs.Realm(rift.Location.RealmID); err == nil {
		realmName = r.Name
	}
	t, err := gs.Timeline(rift.Location.TimelineID)
	if err == nil {
		timelineName = t.Name
	}
	rift.Description = e.Oracle.NarrateRift(ctx, rift, realmName, timelineName)

	gs.TimeRifts = append(gs.TimeRifts, rift)
	if t != nil {
		t.AppendEvent(game.TimelineEvent{
			Type:        game.KindTimeRift,
			Outcome:     game.OutcomeNegative,
			Description: rift.Description,
			RealmIDs:    nonEmpty(rift.Location.RealmID),
			Turn:        gs.Turn,
		})
	}
	gs.AddEvent(game.GameEvent{
		ID:             uuid.New().String(),
		Type:           game.KindTimeRift,
		Description:    rift.Description,
		AffectedRealms: nonEmpty(rift.Location.RealmID),
	})
	e.Metrics.RiftsOpened.Inc()
	sum.Rift = rift

	slog.Info("time rift opened",
		"game", gs.ID,
		"timeline", rift.Location.TimelineID,
		"realm", rift.Location.RealmID,
		"severity", rift.Severity,
	)
}

func nonEmpty(id string) []string {
	if id == "" {
		return nil
	}
	return []string{id}
}
