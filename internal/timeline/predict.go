package timeline

import (
	"cmp"
	"fmt"
	"math/rand"
	"slices"

	"github.com/google/uuid"

	"github.com/talgya/chronocore/internal/game"
	"github.com/talgya/chronocore/internal/scoremath"
)

// Prediction types.
const (
	PredictTimeRift       = "time_rift"
	PredictSplit          = "timeline_split"
	PredictMerge          = "timeline_merge"
	PredictAmplification  = "paradox_amplification"
	PredictResolution     = "paradox_resolution"
	splitSurfaceThreshold = 0.3
)

// Prediction is an advisory forecast. Probability is a percentage.
type Prediction struct {
	Type             string  `json:"type"`
	Description      string  `json:"description"`
	Probability      float64 `json:"probability"`
	Severity         float64 `json:"severity"`
	TriggerCondition string  `json:"trigger_condition"`
}

var riftDescriptions = [5]string{
	"A minor temporal distortion causing slight anomalies in local time flow.",
	"A noticeable time rift causing objects to age at different rates.",
	"A significant temporal anomaly creating pockets of accelerated or slowed time.",
	"A major time rift causing temporal echoes and allowing glimpses of alternate timelines.",
	"A critical temporal fracture threatening to tear the fabric of reality in this realm.",
}

// RiftChance is the probability in [0, 1] that a timeline at the given
// stability tears this turn. It is 0 at or above RiftThreshold.
func RiftChance(stability float64) float64 {
	if stability >= RiftThreshold {
		return 0
	}
	return (RiftThreshold - stability) / RiftThreshold
}

// RiftSeverity maps stability to a rift severity in [1, 5].
func RiftSeverity(stability float64) int {
	return scoremath.Clamp(int((RiftThreshold-stability)/5)+1, 1, 5)
}

// RiftDescription returns the stock flavor text for a severity.
func RiftDescription(severity int) string {
	return riftDescriptions[scoremath.Clamp(severity, 1, 5)-1]
}

// PredictEvents lists the events a timeline is heading toward. It is pure:
// the same inputs always give the same forecast and nothing is mutated.
func PredictEvents(t *game.Timeline, stability float64, paradoxes []Paradox, gs *game.State) []Prediction {
	var out []Prediction

	if stability < RiftThreshold {
		out = append(out, Prediction{
			Type:             PredictTimeRift,
			Description:      fmt.Sprintf("Potential time rift forming in timeline %s", t.Name),
			Probability:      RiftChance(stability) * 100,
			Severity:         float64(RiftSeverity(stability)),
			TriggerCondition: fmt.Sprintf("Timeline stability below %.0f", RiftThreshold),
		})
	}

	if stability < SplitThreshold {
		chance := (SplitThreshold - stability) / SplitThreshold
		if len(paradoxes) > 0 {
			chance *= 1.5
		}
		if chance > splitSurfaceThreshold {
			out = append(out, Prediction{
				Type:             PredictSplit,
				Description:      fmt.Sprintf("Timeline %s may split into multiple branches", t.Name),
				Probability:      chance * 100,
				Severity:         4,
				TriggerCondition: fmt.Sprintf("Timeline stability below %.0f with %d paradoxes", SplitThreshold, len(paradoxes)),
			})
		}
	}

	if stability > MergeStability {
		for _, s := range FindSimilarTimelines(t, gs) {
			if s.Similarity <= MergeSimilarity {
				continue
			}
			out = append(out, Prediction{
				Type:             PredictMerge,
				Description:      fmt.Sprintf("Timeline %s may merge with %s", t.Name, s.Name),
				Probability:      s.Similarity,
				Severity:         3,
				TriggerCondition: fmt.Sprintf("Timeline similarity above %.0f%%", MergeSimilarity),
			})
		}
	}

	for _, p := range paradoxes {
		if stability < AmplificationPivot {
			out = append(out, Prediction{
				Type:             PredictAmplification,
				Description:      "Paradox may amplify: " + p.Description,
				Probability:      (AmplificationPivot - stability) * 2,
				Severity:         p.Severity + 1,
				TriggerCondition: "Continued timeline instability",
			})
		} else {
			out = append(out, Prediction{
				Type:             PredictResolution,
				Description:      "Paradox may naturally resolve: " + p.Description,
				Probability:      stability - 30,
				Severity:         1,
				TriggerCondition: "Continued timeline stability",
			})
		}
	}

	return out
}

type riftCandidate struct {
	timeline  *game.Timeline
	realms    []*game.Realm
	stability float64
	chance    float64
}

// GenerateTimeRift rolls for a new rift against freshly calculated
// stabilities. See GenerateTimeRiftFrom.
func GenerateTimeRift(gs *game.State, rng *rand.Rand) *game.TimeRift {
	stabilities := make(map[string]float64, len(gs.Timelines))
	for _, t := range gs.Timelines {
		stabilities[t.ID] = CalculateStability(t, gs.RealmsIn(t.ID), gs)
	}
	return GenerateTimeRiftFrom(gs, stabilities, rng)
}

// GenerateTimeRiftFrom rolls for a new rift using the given stability per
// timeline id; a timeline missing from the map uses its stored Stability.
// Timelines below RiftThreshold are ordered by descending chance and each
// gets one Bernoulli trial in turn; the first success hosts the rift on a
// uniformly chosen member realm. It returns nil when no trial succeeds or
// the winning timeline has no realms. The state is not modified.
func GenerateTimeRiftFrom(gs *game.State, stabilities map[string]float64, rng *rand.Rand) *game.TimeRift {
	var candidates []riftCandidate
	for _, t := range gs.Timelines {
		s, ok := stabilities[t.ID]
		if !ok {
			s = t.Stability
		}
		if s < RiftThreshold {
			realms := gs.RealmsIn(t.ID)
			candidates = append(candidates, riftCandidate{t, realms, s, RiftChance(s)})
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	slices.SortStableFunc(candidates, func(a, b riftCandidate) int {
		return cmp.Compare(b.chance, a.chance)
	})

	var selected *riftCandidate
	for i := range candidates {
		if rng.Float64() < candidates[i].chance {
			selected = &candidates[i]
			break
		}
	}
	if selected == nil || len(selected.realms) == 0 {
		return nil
	}

	host := selected.realms[rng.Intn(len(selected.realms))]
	severity := RiftSeverity(selected.stability)
	return &game.TimeRift{
		ID: uuid.New().String(),
		Location: game.Location{
			TimelineID: selected.timeline.ID,
			RealmID:    host.ID,
			X:          float64(rng.Intn(101)),
			Y:          float64(rng.Intn(101)),
		},
		Severity:    severity,
		Description: RiftDescription(severity),
		CreatedTurn: gs.Turn,
	}
}
