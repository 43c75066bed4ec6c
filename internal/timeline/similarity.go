package timeline

import (
	"cmp"
	"math"
	"slices"

	"github.com/talgya/chronocore/internal/game"
)

// Similar is one timeline found close to another.
type Similar struct {
	TimelineID string  `json:"timeline_id"`
	Name       string  `json:"timeline_name"`
	Similarity float64 `json:"similarity"`
}

// CalculateTimelineSimilarity blends technology, ethics and event-history
// similarity (weights 0.3, 0.4, 0.3) into a score in [0, 100]. A timeline
// without realms is similar to nothing.
func CalculateTimelineSimilarity(a, b *game.Timeline, gs *game.State) float64 {
	ra, rb := gs.RealmsIn(a.ID), gs.RealmsIn(b.ID)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	tech := math.Max(0, 1-math.Abs(averageLevel(ra)-averageLevel(rb))/10)
	ethics := math.Max(0, 1-math.Abs(AverageAlignment(ra)-AverageAlignment(rb))/200)
	events := eventSimilarity(a.Events, b.Events)
	return (tech*0.3 + ethics*0.4 + events*0.3) * 100
}

// eventSimilarity scores shared event types (half credit) and shared
// outcomes on top (full credit) over every pair, normalized by the longer
// log and capped at 1. Either log being empty gives the neutral 0.5.
func eventSimilarity(a, b []game.TimelineEvent) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.5
	}
	common := 0.0
	for _, x := range a {
		for _, y := range b {
			if x.Type != y.Type {
				continue
			}
			common += 0.5
			if x.Outcome == y.Outcome {
				common += 0.5
			}
		}
	}
	return math.Min(1, common/float64(max(len(a), len(b))))
}

// FindSimilarTimelines returns the other timelines scoring above
// SimilarCutoff, most similar first.
func FindSimilarTimelines(t *game.Timeline, gs *game.State) []Similar {
	var out []Similar
	for _, other := range gs.Timelines {
		if other.ID == t.ID {
			continue
		}
		s := CalculateTimelineSimilarity(t, other, gs)
		if s > SimilarCutoff {
			out = append(out, Similar{TimelineID: other.ID, Name: other.Name, Similarity: s})
		}
	}
	slices.SortStableFunc(out, func(x, y Similar) int {
		return cmp.Compare(y.Similarity, x.Similarity)
	})
	return out
}
