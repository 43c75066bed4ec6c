// Package timeline scores timeline stability, detects paradoxes between
// realms and timelines, forecasts temporal events and rolls for time rifts.
package timeline

import (
	"github.com/talgya/chronocore/internal/game"
	"github.com/talgya/chronocore/internal/scoremath"
)

// Thresholds and weights.
const (
	RiftThreshold      = 30.0
	SplitThreshold     = 40.0
	MergeStability     = 70.0
	MergeSimilarity    = 70.0
	SimilarCutoff      = 50.0
	AmplificationPivot = 50.0

	decisionWindow    = 10
	decisionCap       = 20.0
	contaminationSpan = 15

	weightDecisions = 0.4
	weightAlignment = 0.3
	weightDisparity = 0.2
	weightRifts     = 0.5
	weightParadoxes = 0.7
)

// Analysis is the full read-only report for one timeline.
type Analysis struct {
	TimelineID       string       `json:"timeline_id"`
	Name             string       `json:"name"`
	Stability        float64      `json:"stability"`
	TechDisparity    float64      `json:"tech_disparity"`
	EthicalAlignment float64      `json:"ethical_alignment"`
	Paradoxes        []Paradox    `json:"paradoxes"`
	PotentialEvents  []Prediction `json:"potential_events"`
}

// Analyze reports on the timeline with the given id. The state is not
// modified.
func Analyze(timelineID string, gs *game.State) (Analysis, error) {
	t, err := gs.Timeline(timelineID)
	if err != nil {
		return Analysis{}, err
	}
	realms := gs.RealmsIn(t.ID)
	stability := CalculateStability(t, realms, gs)
	paradoxes := DetectParadoxes(t, realms, gs)
	return Analysis{
		TimelineID:       t.ID,
		Name:             t.Name,
		Stability:        stability,
		TechDisparity:    TechDisparity(realms),
		EthicalAlignment: AverageAlignment(realms),
		Paradoxes:        paradoxes,
		PotentialEvents:  PredictEvents(t, stability, paradoxes, gs),
	}, nil
}

// CalculateStability starts from the timeline's stored stability and adds a
// weighted sum of recent decisions, average alignment, technology disparity,
// active rifts and paradoxes. The result is clamped to [0, 100].
func CalculateStability(t *game.Timeline, realms []*game.Realm, gs *game.State) float64 {
	decisions := 0.0
	for _, e := range gs.RecentEvents(decisionWindow) {
		if touchesTimeline(e, t) {
			decisions += float64(e.KarmaImpact) * 0.5
		}
	}
	decisions = scoremath.Clamp(decisions, -decisionCap, decisionCap)

	rifts := 0.0
	for _, rift := range gs.ActiveRifts(t.ID) {
		rifts -= float64(rift.Severity) * 5
	}

	paradoxes := -float64(len(DetectParadoxes(t, realms, gs))) * 10

	stability := t.Stability + scoremath.WeightedSum([]scoremath.Term{
		{Value: decisions, Weight: weightDecisions},
		{Value: AverageAlignment(realms) / 10, Weight: weightAlignment},
		{Value: -TechDisparity(realms), Weight: weightDisparity},
		{Value: rifts, Weight: weightRifts},
		{Value: paradoxes, Weight: weightParadoxes},
	})
	return scoremath.Clamp(stability, game.MinStability, game.MaxStability)
}

// TechDisparity is twice the population standard deviation of realm
// development levels, capped at 10. Fewer than two realms yields 0.
func TechDisparity(realms []*game.Realm) float64 {
	if len(realms) < 2 {
		return 0
	}
	levels := make([]int, len(realms))
	for i, r := range realms {
		levels[i] = r.DevelopmentLevel
	}
	return min(10, scoremath.StdDev(levels)*2)
}

// AverageAlignment is the mean ethical alignment, 0 for no realms.
func AverageAlignment(realms []*game.Realm) float64 {
	vals := make([]float64, len(realms))
	for i, r := range realms {
		vals[i] = r.EthicalAlignment
	}
	return scoremath.Mean(vals)
}

func averageLevel(realms []*game.Realm) float64 {
	vals := make([]int, len(realms))
	for i, r := range realms {
		vals[i] = r.DevelopmentLevel
	}
	return scoremath.Mean(vals)
}

func touchesTimeline(e game.GameEvent, t *game.Timeline) bool {
	for _, id := range e.AffectedRealms {
		if t.HasRealm(id) {
			return true
		}
	}
	return false
}
