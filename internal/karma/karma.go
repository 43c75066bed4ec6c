// Package karma converts evaluated player decisions into bounded karma deltas,
// adjusted by role, era and repetition of the same kind of behavior.
package karma

import (
	"log/slog"
	"strings"

	"github.com/talgya/chronocore/internal/game"
	"github.com/talgya/chronocore/internal/scoremath"
)

// Decision buckets.
const (
	EthicalPositive  = "ethical_positive"
	EthicalNegative  = "ethical_negative"
	TechPositive     = "tech_positive"
	TechNegative     = "tech_negative"
	TemporalPositive = "temporal_positive"
	TemporalNegative = "temporal_negative"
	Neutral          = "neutral"
)

// repetitionWindow is how many recent history entries are scanned for a streak.
const repetitionWindow = 5

type bucket struct {
	name     string
	keywords []string
}

// buckets are matched in order; the first keyword hit wins.
var buckets = []bucket{
	{EthicalPositive, []string{"help", "save", "protect", "heal", "share"}},
	{EthicalNegative, []string{"harm", "destroy", "betray", "steal", "lie"}},
	{TechPositive, []string{"research", "develop", "innovate", "build", "upgrade"}},
	{TechNegative, []string{"sabotage", "corrupt", "weaponize", "exploit"}},
	{TemporalPositive, []string{"stabilize", "balance", "harmonize", "connect"}},
	{TemporalNegative, []string{"disrupt", "fracture", "collapse", "sever"}},
}

// RoleModifiers scales a raw score by the impact dimension it touches.
type RoleModifiers struct {
	Ethical       float64
	Technological float64
	Temporal      float64
}

var roleModifiers = map[game.Role]RoleModifiers{
	game.RoleTechnoMonk:     {Ethical: 1.2, Technological: 0.8, Temporal: 1.0},
	game.RoleShadowBroker:   {Ethical: 0.8, Technological: 1.0, Temporal: 1.2},
	game.RoleChronoDiplomat: {Ethical: 1.0, Technological: 0.8, Temporal: 1.2},
	game.RoleBioSmith:       {Ethical: 1.1, Technological: 1.2, Temporal: 0.7},
}

var eraModifiers = map[game.Era]float64{
	game.EraInitiation:  0.8,
	game.EraProgression: 1.0,
	game.EraDistortion:  1.2,
	game.EraEquilibrium: 1.5,
}

// Evaluation is the externally produced judgement of one decision.
type Evaluation struct {
	KarmaScore          int    `json:"karma_score"`
	EthicalImpact       string `json:"ethical_impact"`
	TechnologicalImpact string `json:"technological_impact"`
	TemporalImpact      string `json:"temporal_impact"`
}

// Action is one decision and its evaluation, used by CalculateTotal.
type Action struct {
	Decision   string
	Evaluation Evaluation
}

// RoleModifier picks the role multiplier for the first non-empty impact
// dimension (ethical, then technological, then temporal). Unknown roles and
// evaluations without impacts yield 1.0.
func RoleModifier(role game.Role, ev Evaluation) float64 {
	mods, ok := roleModifiers[role]
	if !ok {
		return 1.0
	}
	switch {
	case ev.EthicalImpact != "":
		return mods.Ethical
	case ev.TechnologicalImpact != "":
		return mods.Technological
	case ev.TemporalImpact != "":
		return mods.Temporal
	}
	return 1.0
}

// EraModifier returns the karma sensitivity of an era, 1.0 if unknown.
func EraModifier(era game.Era) float64 {
	if m, ok := eraModifiers[era]; ok {
		return m
	}
	return 1.0
}

// Categorize classifies a decision into a bucket. Keywords are matched as
// substrings of the lowercased text; without a match the karma magnitude
// decides.
func Categorize(decision string, karma int) string {
	lower := strings.ToLower(decision)
	for _, b := range buckets {
		for _, kw := range b.keywords {
			if strings.Contains(lower, kw) {
				return b.name
			}
		}
	}
	switch {
	case karma > 3:
		return EthicalPositive
	case karma < -3:
		return EthicalNegative
	case karma > 0:
		return TechPositive
	case karma < 0:
		return TechNegative
	}
	return Neutral
}

// Streak counts how many of the most recent history entries (at most the last
// five) share the category, scanning backwards until the first mismatch.
func Streak(history []game.HistoryEntry, category string) int {
	start := max(0, len(history)-repetitionWindow)
	count := 0
	for i := len(history) - 1; i >= start; i-- {
		if history[i].Category != category {
			break
		}
		count++
	}
	return count
}

// Engine applies karma deltas to players. It holds no per-player state; the
// rolling history lives on game.Player.
type Engine struct {
	Decay float64
}

// NewEngine returns an engine using the default decay rate.
func NewEngine() *Engine {
	return &Engine{Decay: scoremath.DefaultDecay}
}

// Delta computes the clamped karma delta for a decision without mutating the
// player.
func (e *Engine) Delta(p *game.Player, ev Evaluation, era game.Era, decision string) int {
	raw := float64(ev.KarmaScore)
	value := raw * RoleModifier(p.Role, ev) * EraModifier(era)

	if len(p.History) > 0 {
		category := Categorize(decision, ev.KarmaScore)
		value *= scoremath.Diminishing(Streak(p.History, category), e.decay())
	}

	return scoremath.Clamp(scoremath.Round(value), -game.MaxKarmaDelta, game.MaxKarmaDelta)
}

// ApplyDecision computes the delta, records it in the player's history and
// adds it to the player's karma.
func (e *Engine) ApplyDecision(p *game.Player, ev Evaluation, era game.Era, decision string) int {
	delta := e.Delta(p, ev, era, decision)
	category := Categorize(decision, delta)
	p.RecordAction(game.HistoryEntry{Decision: decision, Delta: delta, Category: category})
	p.Karma += delta

	slog.Debug("karma applied",
		"player", p.ID,
		"raw", ev.KarmaScore,
		"delta", delta,
		"category", category,
		"karma", p.Karma,
	)
	return delta
}

// CalculateTotal applies each action in turn and sums the individually
// clamped deltas. The sum itself is not clamped.
func (e *Engine) CalculateTotal(p *game.Player, era game.Era, actions []Action) int {
	total := 0
	for _, a := range actions {
		total += e.ApplyDecision(p, a.Evaluation, era, a.Decision)
	}
	return total
}

func (e *Engine) decay() float64 {
	if e == nil || e.Decay <= 0 {
		return scoremath.DefaultDecay
	}
	return e.Decay
}
