// Package realm advances realms turn by turn: resource, population and
// development growth, ethical drift, and the five discrete event models.
package realm

import (
	"context"
	"log/slog"
	"math"
	"math/rand"

	"github.com/talgya/chronocore/internal/game"
	"github.com/talgya/chronocore/internal/scoremath"
)

// Thresholds is the development progress needed to reach each level.
// Level n requires Thresholds[n-1] points.
var Thresholds = [game.MaxDevelopmentLevel]int{0, 100, 250, 500, 1000, 2000, 4000, 8000, 16000, 32000}

type focusImpact struct {
	Resources  float64
	Population float64
	Ethical    float64
}

var focusImpacts = map[game.Focus]focusImpact{
	game.FocusBalanced:   {Resources: 1.0, Population: 1.0, Ethical: 0},
	game.FocusMilitary:   {Resources: 1.2, Population: 0.8, Ethical: -0.5},
	game.FocusScientific: {Resources: 0.9, Population: 1.0, Ethical: 0.2},
	game.FocusCultural:   {Resources: 0.8, Population: 1.2, Ethical: 0.5},
	game.FocusEconomic:   {Resources: 1.5, Population: 0.9, Ethical: -0.2},
	game.FocusSpiritual:  {Resources: 0.7, Population: 1.1, Ethical: 0.7},
	game.FocusEcological: {Resources: 0.9, Population: 1.0, Ethical: 0.6},
}

func impactFor(f game.Focus) focusImpact {
	if fi, ok := focusImpacts[f]; ok {
		return fi
	}
	return focusImpacts[game.FocusBalanced]
}

// Growth constants.
const (
	baseResourceGrowth = 5.0
	baseGrowthRate     = 0.05
	resourceImpact     = 0.02
	techImpact         = 0.03
	baseProgress       = 5.0

	alignmentDrift  = 0.5
	maxOwnerPull    = 2.0
	eventKarmaShare = 0.2
	maxEthicalShift = 5.0
	recentEventSpan = 5
)

// LevelFor returns the development level reached by the given progress. The
// table is scanned from level 1, so a single large gain can jump several
// levels at once.
func LevelFor(progress int) int {
	level := 1
	for i, th := range Thresholds {
		if progress >= th {
			level = i + 1
		} else {
			break
		}
	}
	return level
}

// Describer produces flavor text for a realm, typically backed by the
// narrative oracle.
type Describer interface {
	DescribeRealm(ctx context.Context, r *game.Realm) (string, error)
}

// Simulator advances realms. The zero value is usable and describes realms
// with the built-in template.
type Simulator struct {
	Describer Describer
}

// NewSimulator returns a simulator using d for level-up descriptions.
// d may be nil.
func NewSimulator(d Describer) *Simulator {
	return &Simulator{Describer: d}
}

// TurnInput carries the context a realm needs for one turn.
type TurnInput struct {
	Owner        *game.Player     // nil if unowned
	RecentEvents []game.GameEvent // recent game history, oldest first
}

// TurnReport summarizes what one AdvanceTurn call changed.
type TurnReport struct {
	RealmID         string  `json:"realm_id"`
	ResourceDelta   int     `json:"resource_delta"`
	PopulationDelta int     `json:"population_delta"`
	ProgressDelta   int     `json:"progress_delta"`
	EthicalShift    float64 `json:"ethical_shift"`
	LevelBefore     int     `json:"level_before"`
	LevelAfter      int     `json:"level_after"`
}

// LeveledUp reports whether the turn raised the development level.
func (t TurnReport) LeveledUp() bool {
	return t.LevelAfter > t.LevelBefore
}

// AdvanceTurn applies one turn of growth to r. All three deltas are computed
// from the realm as it stood at the start of the turn.
func (s *Simulator) AdvanceTurn(ctx context.Context, r *game.Realm, in TurnInput, rng *rand.Rand) TurnReport {
	r.ClampBounds()
	seedProgress(r)

	rep := TurnReport{RealmID: r.ID, LevelBefore: r.DevelopmentLevel}
	rep.ResourceDelta = ResourceDelta(r, rng)
	rep.PopulationDelta = PopulationDelta(r, rng)
	rep.ProgressDelta = ProgressDelta(r, rng)

	r.Resources += rep.ResourceDelta
	r.Population += rep.PopulationDelta
	r.DevelopmentProgress += rep.ProgressDelta
	s.applyLevel(ctx, r)

	rep.EthicalShift = EthicalShift(r, in.Owner, in.RecentEvents)
	r.EthicalAlignment += rep.EthicalShift
	r.ClampBounds()

	rep.LevelAfter = r.DevelopmentLevel
	if rep.LeveledUp() {
		slog.Info("realm advanced",
			"realm", r.ID,
			"name", r.Name,
			"from", rep.LevelBefore,
			"to", rep.LevelAfter,
		)
	}
	return rep
}

// ResourceDelta computes one turn of resource growth.
func ResourceDelta(r *game.Realm, rng *rand.Rand) int {
	popFactor := math.Log10(math.Max(1000, float64(r.Population))) - 2
	techFactor := float64(r.DevelopmentLevel) * 0.5
	growth := baseResourceGrowth + popFactor*techFactor*impactFor(r.Focus).Resources
	return int(growth * uniform(rng, 0.8, 1.2))
}

// PopulationDelta computes one turn of population growth. Growth saturates
// at game.MaxPopulation.
func PopulationDelta(r *game.Realm, rng *rand.Rand) int {
	rate := baseGrowthRate
	rate += math.Min(2.0, float64(r.Resources)/50) * resourceImpact
	rate += float64(r.DevelopmentLevel) * techImpact
	rate *= impactFor(r.Focus).Population
	change := math.Trunc(float64(r.Population) * rate)
	delta := math.Trunc(change * uniform(rng, 0.9, 1.1))
	headroom := float64(max(0, game.MaxPopulation-r.Population))
	return int(math.Min(delta, headroom))
}

// ProgressDelta computes one turn of development progress.
func ProgressDelta(r *game.Realm, rng *rand.Rand) int {
	popFactor := math.Log10(math.Max(1000, float64(r.Population))) - 2
	resFactor := math.Sqrt(math.Max(1, float64(r.Resources))) * 0.5
	levelFactor := 1.0 / math.Sqrt(float64(max(1, r.DevelopmentLevel)))
	progress := baseProgress + popFactor*resFactor*levelFactor
	return int(progress * uniform(rng, 0.85, 1.15))
}

// EthicalShift computes the alignment change for one turn: drift toward
// zero, the owner's karma pull, the focus bias, and recent events that
// touched this realm. The total is bounded to ±5.
func EthicalShift(r *game.Realm, owner *game.Player, recent []game.GameEvent) float64 {
	shift := 0.0
	switch {
	case r.EthicalAlignment > 0:
		shift = -alignmentDrift
	case r.EthicalAlignment < 0:
		shift = alignmentDrift
	}

	if owner != nil {
		pull := math.Min(maxOwnerPull, math.Abs(float64(owner.Karma))*0.1)
		switch {
		case owner.Karma > 0:
			shift += pull
		case owner.Karma < 0:
			shift -= pull
		}
	}

	shift += impactFor(r.Focus).Ethical

	if len(recent) > recentEventSpan {
		recent = recent[len(recent)-recentEventSpan:]
	}
	for _, e := range recent {
		for _, id := range e.AffectedRealms {
			if id == r.ID {
				shift += float64(e.KarmaImpact) * eventKarmaShare
				break
			}
		}
	}

	return scoremath.Clamp(shift, -maxEthicalShift, maxEthicalShift)
}

// seedProgress lifts stored progress to at least the current level's
// threshold, so realms created at a higher level do not stall.
func seedProgress(r *game.Realm) {
	floor := Thresholds[scoremath.Clamp(r.DevelopmentLevel, 1, game.MaxDevelopmentLevel)-1]
	if r.DevelopmentProgress < floor {
		r.DevelopmentProgress = floor
	}
}

// applyLevel raises the level to match progress and refreshes the
// description on a level-up. Levels never go down.
func (s *Simulator) applyLevel(ctx context.Context, r *game.Realm) {
	next := LevelFor(r.DevelopmentProgress)
	if next <= r.DevelopmentLevel {
		return
	}
	r.DevelopmentLevel = next
	r.Description = s.describe(ctx, r)
}

func (s *Simulator) describe(ctx context.Context, r *game.Realm) string {
	if s != nil && s.Describer != nil {
		text, err := s.Describer.DescribeRealm(ctx, r)
		if err == nil && text != "" {
			return text
		}
		if err != nil {
			slog.Debug("realm description fallback", "realm", r.ID, "error", err)
		}
	}
	return Describe(r)
}

// TransferOwnership hands r to a new owner, keeping both players' owned
// sets in sync and pulling the alignment toward the new owner's karma.
// A nil to releases the realm.
func TransferOwnership(r *game.Realm, from, to *game.Player) float64 {
	if from != nil {
		from.RemoveRealm(r.ID)
	}
	if to == nil {
		r.OwnerID = ""
		return 0
	}
	r.OwnerID = to.ID
	to.AddRealm(r.ID)
	influence := float64(to.Karma) * 0.1
	r.EthicalAlignment = scoremath.Clamp(r.EthicalAlignment+influence, -game.MaxAlignment, game.MaxAlignment)
	return influence
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// randInt returns a uniform integer in [lo, hi].
func randInt(rng *rand.Rand, lo, hi int) int {
	return lo + rng.Intn(hi-lo+1)
}
