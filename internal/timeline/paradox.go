package timeline

import (
	"fmt"
	"math"
	"slices"

	"github.com/talgya/chronocore/internal/game"
)

// ParadoxType names a kind of structural inconsistency.
type ParadoxType string

const (
	TechInversion              ParadoxType = "tech_inversion"
	EthicalContradiction       ParadoxType = "ethical_contradiction"
	CrossTimelineContamination ParadoxType = "cross_timeline_contamination"
)

// Paradox is derived on every analysis and never persisted.
type Paradox struct {
	Type              ParadoxType `json:"type"`
	Severity          float64     `json:"severity"`
	Description       string      `json:"description"`
	AffectedRealms    []string    `json:"affected_realms,omitempty"`
	AffectedTimelines []string    `json:"affected_timelines,omitempty"`
}

const (
	techGap        = 3
	ethicalGap     = 150.0
	ethicalDivisor = 30.0
)

// DetectParadoxes compares every pair of realms in the timeline for tech
// inversions and ethical contradictions, then scans recent game events for
// ones that spanned this timeline and another. Affected id lists are sorted
// so the result does not depend on input order.
func DetectParadoxes(t *game.Timeline, realms []*game.Realm, gs *game.State) []Paradox {
	var out []Paradox

	for i, a := range realms {
		for _, b := range realms[i+1:] {
			diff := a.DevelopmentLevel - b.DevelopmentLevel
			if diff < 0 {
				diff = -diff
			}
			if diff > techGap {
				pair := sortedPair(a.ID, b.ID)
				out = append(out, Paradox{
					Type:           TechInversion,
					Severity:       float64(diff) / 2,
					Description:    fmt.Sprintf("Significant technology disparity between realms %s and %s", pair[0], pair[1]),
					AffectedRealms: pair,
				})
			}
		}
	}

	for i, a := range realms {
		for _, b := range realms[i+1:] {
			v1, v2 := a.EthicalAlignment, b.EthicalAlignment
			diff := math.Abs(v1 - v2)
			if v1*v2 < 0 && diff > ethicalGap {
				pair := sortedPair(a.ID, b.ID)
				out = append(out, Paradox{
					Type:           EthicalContradiction,
					Severity:       diff / ethicalDivisor,
					Description:    fmt.Sprintf("Fundamental ethical contradiction between realms %s and %s", pair[0], pair[1]),
					AffectedRealms: pair,
				})
			}
		}
	}

	timelineOf := make(map[string]string, len(gs.Realms))
	for _, r := range gs.Realms {
		timelineOf[r.ID] = r.TimelineID
	}
	for _, e := range gs.RecentEvents(contaminationSpan) {
		var spans []string
		for _, rid := range e.AffectedRealms {
			if tid, ok := timelineOf[rid]; ok && !slices.Contains(spans, tid) {
				spans = append(spans, tid)
			}
		}
		if len(spans) < 2 || !slices.Contains(spans, t.ID) {
			continue
		}
		slices.Sort(spans)
		desc := e.Description
		if desc == "" {
			desc = "Unknown event"
		}
		out = append(out, Paradox{
			Type:              CrossTimelineContamination,
			Severity:          float64(len(spans)) * 1.5,
			Description:       "Event affecting multiple timelines: " + desc,
			AffectedTimelines: spans,
		})
	}

	return out
}

func sortedPair(a, b string) []string {
	if b < a {
		return []string{b, a}
	}
	return []string{a, b}
}
