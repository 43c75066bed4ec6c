package game

import "slices"

// Stability bounds.
const (
	MinStability     = 0.0
	MaxStability     = 100.0
	DefaultStability = 100.0

	MaxTimelineEvents = 100
)

// Timeline event outcomes. Similarity scoring matches on these.
const (
	OutcomePositive = "positive"
	OutcomeNegative = "negative"
	OutcomeNeutral  = "neutral"
)

// TimelineEvent is one entry in a timeline's log. Outcome is one of the
// Outcome constants.
type TimelineEvent struct {
	Type        string   `json:"type"`
	Outcome     string   `json:"outcome,omitempty"`
	Description string   `json:"description,omitempty"`
	RealmIDs    []string `json:"realm_ids,omitempty"`
	Turn        int      `json:"turn"`
}

// Timeline is a parallel track of history that groups realms.
type Timeline struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Stability float64         `json:"stability"`
	RealmIDs  []string        `json:"realm_ids"`
	Connected []string        `json:"connected_timelines,omitempty"`
	Events    []TimelineEvent `json:"events,omitempty"`
}

// HasRealm reports whether realmID is a member of the timeline.
func (t *Timeline) HasRealm(realmID string) bool {
	return slices.Contains(t.RealmIDs, realmID)
}

// AppendEvent adds to the timeline log, dropping the oldest entries past
// MaxTimelineEvents. Entries are never rewritten.
func (t *Timeline) AppendEvent(e TimelineEvent) {
	t.Events = append(t.Events, e)
	if len(t.Events) > MaxTimelineEvents {
		t.Events = slices.Clone(t.Events[len(t.Events)-MaxTimelineEvents:])
	}
}

// OutcomeOf classifies a signed effect.
func OutcomeOf(effect int) string {
	switch {
	case effect > 0:
		return OutcomePositive
	case effect < 0:
		return OutcomeNegative
	}
	return OutcomeNeutral
}

// Connect links two timelines in both directions.
func Connect(a, b *Timeline) {
	if a.ID == b.ID {
		return
	}
	if !slices.Contains(a.Connected, b.ID) {
		a.Connected = append(a.Connected, b.ID)
	}
	if !slices.Contains(b.Connected, a.ID) {
		b.Connected = append(b.Connected, a.ID)
	}
}

// Location pins a time rift on the board.
type Location struct {
	TimelineID string  `json:"timeline_id"`
	RealmID    string  `json:"realm_id,omitempty"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
}

// TimeRift is a localized instability anomaly.
type TimeRift struct {
	ID           string   `json:"id"`
	Location     Location `json:"location"`
	Severity     int      `json:"severity"`
	Description  string   `json:"description"`
	CreatedTurn  int      `json:"created_turn"`
	Resolved     bool     `json:"resolved"`
	ResolvedTurn int      `json:"resolved_turn,omitempty"`
}
