package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/talgya/chronocore/internal/game"
	"github.com/talgya/chronocore/internal/karma"
	"github.com/talgya/chronocore/internal/llm"
	"github.com/talgya/chronocore/internal/scoremath"
)

// questEventWindow is how many recent events a quest prompt sees.
const questEventWindow = 5

// DecisionResult is the outcome of evaluating one free-text decision.
type DecisionResult struct {
	Judgement llm.Judgement `json:"judgement"`
	Category  string        `json:"category"`
	Delta     int           `json:"karma_delta"`
	Karma     int           `json:"karma"`
}

// EvaluateDecision asks the oracle to judge a decision and applies the
// resulting karma to the player. An unavailable oracle yields a neutral
// judgement, so the decision is still recorded.
func (e *Engine) EvaluateDecision(ctx context.Context, gameID, playerID, decision string, situation map[string]string) (DecisionResult, error) {
	if strings.TrimSpace(decision) == "" {
		return DecisionResult{}, game.Invalid("decision", "decision text is required")
	}

	var res DecisionResult
	err := e.update(ctx, gameID, func(gs *game.State) error {
		p, err := gs.Player(playerID)
		if err != nil {
			return err
		}

		j := e.Oracle.EvaluateDecision(ctx, llm.DecisionContext{
			Role:     p.Role,
			Karma:    p.Karma,
			Era:      gs.Era,
			Turn:     gs.Turn,
			Decision: decision,
			Context:  situation,
		})
		delta := e.Karma.ApplyDecision(p, j.Evaluation, gs.Era, decision)
		gs.GlobalKarma += delta

		affected := knownRealms(gs, j.AffectedRealms)
		if len(affected) == 0 {
			affected = slices.Clone(p.OwnedRealms)
		}
		gs.AddEvent(game.GameEvent{
			ID:              uuid.New().String(),
			Type:            game.KindDecision,
			Description:     decision,
			AffectedPlayers: []string{p.ID},
			AffectedRealms:  affected,
			KarmaImpact:     delta,
		})

		res = DecisionResult{
			Judgement: j,
			Category:  karma.Categorize(decision, delta),
			Delta:     delta,
			Karma:     p.Karma,
		}
		return nil
	})
	if err != nil {
		return DecisionResult{}, err
	}

	e.Metrics.Decisions.WithLabelValues(res.Category).Inc()
	slog.Info("decision evaluated",
		"game", gameID,
		"player", playerID,
		"delta", res.Delta,
		"category", res.Category,
		"fallback", res.Judgement.Fallback,
	)
	return res, nil
}

// GenerateQuest creates a quest for the player and attaches it as active.
func (e *Engine) GenerateQuest(ctx context.Context, gameID, playerID string) (llm.Quest, error) {
	var q llm.Quest
	err := e.update(ctx, gameID, func(gs *game.State) error {
		p, err := gs.Player(playerID)
		if err != nil {
			return err
		}

		q = e.Oracle.GenerateQuest(ctx, questContext(gs, p))
		p.StartQuest(q.Record(gs.Turn))
		return nil
	})
	if err != nil {
		return llm.Quest{}, err
	}

	slog.Info("quest generated",
		"game", gameID,
		"player", playerID,
		"quest", q.ID,
		"type", q.Type,
		"fallback", q.Fallback,
	)
	return q, nil
}

func questContext(gs *game.State, p *game.Player) llm.QuestContext {
	qc := llm.QuestContext{
		Username:  p.Username,
		Role:      p.Role,
		Karma:     p.Karma,
		Era:       gs.Era,
		Turn:      gs.Turn,
		Stability: game.DefaultStability,
	}

	var stabilities []float64
	seen := make(map[string]bool)
	for _, id := range p.OwnedRealms {
		r, err := gs.Realm(id)
		if err != nil {
			continue
		}
		qc.Realms = append(qc.Realms, r.Name)
		if seen[r.TimelineID] {
			continue
		}
		seen[r.TimelineID] = true
		if t, err := gs.Timeline(r.TimelineID); err == nil {
			stabilities = append(stabilities, t.Stability)
		}
	}
	if len(stabilities) > 0 {
		qc.Stability = scoremath.Mean(stabilities)
	}
	for _, ev := range gs.RecentEvents(questEventWindow) {
		qc.Events = append(qc.Events, ev.Description)
	}
	return qc
}

// QuestResult is the outcome of completing a quest.
type QuestResult struct {
	Outcome llm.QuestOutcome `json:"outcome"`
	Reward  int              `json:"karma_reward"`
	Karma   int              `json:"karma"`
}

// CompleteQuest resolves an active quest with the chosen option. The
// oracle's karma impact becomes the reward, clamped to the karma delta
// bound.
func (e *Engine) CompleteQuest(ctx context.Context, gameID, playerID, questID, optionID string) (QuestResult, error) {
	var res QuestResult
	err := e.update(ctx, gameID, func(gs *game.State) error {
		p, err := gs.Player(playerID)
		if err != nil {
			return err
		}
		q, err := p.Quest(questID)
		if err != nil {
			return err
		}
		if q.Status != game.QuestActive {
			return game.Invalid("quest", "quest %q is %s", questID, q.Status)
		}
		if gs.Turn > q.ExpiresTurn {
			return game.Invalid("quest", "quest %q expired on turn %d", questID, q.ExpiresTurn)
		}
		if _, ok := llm.SelectedOption(*q, optionID); !ok {
			return game.Invalid("option", "quest %q has no option %q", questID, optionID)
		}

		out := e.Oracle.EvaluateQuestOutcome(ctx, llm.OutcomeContext{
			Role:     p.Role,
			Karma:    p.Karma,
			Era:      gs.Era,
			Turn:     gs.Turn,
			Quest:    *q,
			OptionID: optionID,
		})
		title := q.Title
		reward, err := p.CompleteQuest(questID, out.Description, out.KarmaImpact, gs.Turn)
		if err != nil {
			return err
		}
		p.RecordAction(game.HistoryEntry{
			Decision: "quest: " + title,
			Delta:    reward,
			Category: karma.Categorize(title, reward),
		})
		gs.GlobalKarma += reward
		gs.AddEvent(game.GameEvent{
			ID:              uuid.New().String(),
			Type:            game.KindQuestCompleted,
			Description:     fmt.Sprintf("%s completed %q", p.Username, title),
			AffectedPlayers: []string{p.ID},
			AffectedRealms:  slices.Clone(p.OwnedRealms),
			KarmaImpact:     reward,
		})

		res = QuestResult{Outcome: out, Reward: reward, Karma: p.Karma}
		return nil
	})
	if err != nil {
		return QuestResult{}, err
	}

	e.Metrics.QuestsCompleted.Inc()
	slog.Info("quest completed",
		"game", gameID,
		"player", playerID,
		"quest", questID,
		"reward", res.Reward,
		"fallback", res.Outcome.Fallback,
	)
	return res, nil
}

// GenerateDilemma creates an ethical dilemma and attaches it to the realm.
func (e *Engine) GenerateDilemma(ctx context.Context, gameID, realmID string) (game.Dilemma, error) {
	var d game.Dilemma
	err := e.update(ctx, gameID, func(gs *game.State) error {
		r, err := gs.Realm(realmID)
		if err != nil {
			return err
		}
		t, err := gs.Timeline(r.TimelineID)
		if err != nil {
			return err
		}

		d = e.Oracle.GenerateDilemma(ctx, llm.DilemmaContext{
			Realm:     r,
			Timeline:  t.Name,
			Stability: t.Stability,
			Turn:      gs.Turn,
		})
		r.AddDilemma(d)
		gs.AddEvent(game.GameEvent{
			ID:              uuid.New().String(),
			Type:            game.KindDilemma,
			Description:     fmt.Sprintf("%s faces a dilemma: %s", r.Name, d.Title),
			AffectedPlayers: nonEmpty(r.OwnerID),
			AffectedRealms:  []string{r.ID},
		})
		return nil
	})
	if err != nil {
		return game.Dilemma{}, err
	}

	slog.Info("dilemma generated", "game", gameID, "realm", realmID, "dilemma", d.ID, "fallback", d.Fallback)
	return d, nil
}

// DilemmaResult is the outcome of resolving a dilemma.
type DilemmaResult struct {
	Dilemma   game.Dilemma `json:"dilemma"`
	Delta     int          `json:"karma_delta"`
	Karma     int          `json:"karma"`
	Alignment float64      `json:"ethical_alignment"`
}

// ResolveDilemma records the player's choice on an open dilemma. The chosen
// option's karma impact is applied to the player through the karma engine
// and the same delta shifts the realm's ethical alignment.
func (e *Engine) ResolveDilemma(ctx context.Context, gameID, realmID, dilemmaID, playerID, optionID string) (DilemmaResult, error) {
	var res DilemmaResult
	err := e.update(ctx, gameID, func(gs *game.State) error {
		p, err := gs.Player(playerID)
		if err != nil {
			return err
		}
		r, err := gs.Realm(realmID)
		if err != nil {
			return err
		}

		opt := dilemmaOption(r, dilemmaID, optionID)
		d, err := r.ResolveDilemma(dilemmaID, optionID, p.ID, opt.Consequence, gs.Turn)
		if err != nil {
			return err
		}

		delta := e.Karma.ApplyDecision(p, karma.Evaluation{KarmaScore: opt.KarmaImpact}, gs.Era, opt.Text)
		gs.GlobalKarma += delta
		r.EthicalAlignment += float64(delta)
		r.ClampBounds()
		gs.AddEvent(game.GameEvent{
			ID:              uuid.New().String(),
			Type:            game.KindDilemma,
			Description:     fmt.Sprintf("%s resolved %q in %s: %s", p.Username, d.Title, r.Name, opt.Text),
			AffectedPlayers: []string{p.ID},
			AffectedRealms:  []string{r.ID},
			KarmaImpact:     delta,
		})

		res = DilemmaResult{Dilemma: *d, Delta: delta, Karma: p.Karma, Alignment: r.EthicalAlignment}
		return nil
	})
	if err != nil {
		return DilemmaResult{}, err
	}

	e.Metrics.DilemmasResolved.Inc()
	slog.Info("dilemma resolved", "game", gameID, "realm", realmID, "dilemma", dilemmaID, "delta", res.Delta)
	return res, nil
}

func dilemmaOption(r *game.Realm, dilemmaID, optionID string) game.Option {
	for _, d := range r.Dilemmas {
		if d.ID != dilemmaID {
			continue
		}
		for _, o := range d.Options {
			if o.ID == optionID {
				return o
			}
		}
	}
	return game.Option{}
}

// RiftResult is the outcome of resolving a time rift.
type RiftResult struct {
	Rift      game.TimeRift `json:"time_rift"`
	Narration string        `json:"narration"`
}

// ResolveRift closes an open time rift at the current turn and logs the
// player's approach on the rift's timeline.
func (e *Engine) ResolveRift(ctx context.Context, gameID, riftID, playerID, approach string) (RiftResult, error) {
	var res RiftResult
	err := e.update(ctx, gameID, func(gs *game.State) error {
		p, err := gs.Player(playerID)
		if err != nil {
			return err
		}
		rift, err := gs.ResolveRift(riftID)
		if err != nil {
			return err
		}

		narration := e.Oracle.NarrateResolution(ctx, rift, approach)
		if t, err := gs.Timeline(rift.Location.TimelineID); err == nil {
			t.AppendEvent(game.TimelineEvent{
				Type:        game.KindRiftResolved,
				Outcome:     game.OutcomePositive,
				Description: approach,
				RealmIDs:    nonEmpty(rift.Location.RealmID),
				Turn:        gs.Turn,
			})
		}
		gs.AddEvent(game.GameEvent{
			ID:              uuid.New().String(),
			Type:            game.KindRiftResolved,
			Description:     narration,
			AffectedPlayers: []string{p.ID},
			AffectedRealms:  nonEmpty(rift.Location.RealmID),
		})

		res = RiftResult{Rift: *rift, Narration: narration}
		return nil
	})
	if err != nil {
		return RiftResult{}, err
	}

	e.Metrics.RiftsResolved.Inc()
	slog.Info("time rift resolved", "game", gameID, "rift", riftID, "player", playerID)
	return res, nil
}

func knownRealms(gs *game.State, ids []string) []string {
	var out []string
	for _, id := range ids {
		if _, err := gs.Realm(id); err == nil && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
