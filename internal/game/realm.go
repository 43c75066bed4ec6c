package game

import (
	"slices"

	"github.com/talgya/chronocore/internal/scoremath"
	"github.com/talgya/chronocore/internal/world"
)

// Realm bounds.
const (
	MinResources        = 10
	MinPopulation       = 1000
	MaxPopulation       = 1_000_000_000_000_000
	MaxAlignment        = 100.0
	MinDevelopmentLevel = 1
	MaxDevelopmentLevel = 10
	MaxRealmEvents      = 50
)

// Structure is a building placed in a realm.
type Structure struct {
	Type      string         `json:"type"`
	Name      string         `json:"name"`
	Effects   map[string]int `json:"effects,omitempty"`
	BuiltTurn int            `json:"built_turn"`
}

// Dilemma is an ethical choice attached to a realm.
type Dilemma struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Options      []Option `json:"options"`
	Fallback     bool     `json:"fallback,omitempty"`
	CreatedTurn  int      `json:"created_turn"`
	Resolved     bool     `json:"resolved"`
	ResolvedBy   string   `json:"resolved_by,omitempty"`
	ChosenOption string   `json:"chosen_option,omitempty"`
	Outcome      string   `json:"outcome,omitempty"`
	ResolvedTurn int      `json:"resolved_turn,omitempty"`
}

// RealmEvent is one entry of a realm's local log.
type RealmEvent struct {
	Type        EventType      `json:"type"`
	Description string         `json:"description"`
	Effects     map[string]int `json:"effects,omitempty"`
	Turn        int            `json:"turn"`
}

// Realm is one hex tile of the board.
type Realm struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	TimelineID  string         `json:"timeline_id"`
	OwnerID     string         `json:"owner_id,omitempty"`
	Position    world.HexCoord `json:"position"`

	DevelopmentLevel    int `json:"development_level"`
	DevelopmentProgress int `json:"development_progress"`
	Resources           int `json:"resources"`
	Population          int `json:"population"`

	// Held as a float so sub-integer drift accumulates across turns.
	EthicalAlignment float64 `json:"ethical_alignment"`
	Focus            Focus   `json:"technology_focus"`

	Adjacent   []string     `json:"adjacent_realms"`
	Structures []Structure  `json:"structures,omitempty"`
	Dilemmas   []Dilemma    `json:"dilemmas,omitempty"`
	Events     []RealmEvent `json:"events,omitempty"`
}

// ClampBounds enforces the resource floor and the population, alignment and
// level ranges.
func (r *Realm) ClampBounds() {
	r.Resources = max(r.Resources, MinResources)
	r.Population = scoremath.Clamp(r.Population, MinPopulation, MaxPopulation)
	r.EthicalAlignment = scoremath.Clamp(r.EthicalAlignment, -MaxAlignment, MaxAlignment)
	r.DevelopmentLevel = scoremath.Clamp(r.DevelopmentLevel, MinDevelopmentLevel, MaxDevelopmentLevel)
}

// LinkRealms records a symmetric adjacency between a and b.
func LinkRealms(a, b *Realm) {
	if a.ID == b.ID {
		return
	}
	if !slices.Contains(a.Adjacent, b.ID) {
		a.Adjacent = append(a.Adjacent, b.ID)
	}
	if !slices.Contains(b.Adjacent, a.ID) {
		b.Adjacent = append(b.Adjacent, a.ID)
	}
}

// AddStructure places a structure in the realm.
func (r *Realm) AddStructure(s Structure) {
	r.Structures = append(r.Structures, s)
}

// RecordEvent appends to the realm log, keeping the last MaxRealmEvents.
func (r *Realm) RecordEvent(e RealmEvent) {
	r.Events = append(r.Events, e)
	if len(r.Events) > MaxRealmEvents {
		r.Events = slices.Clone(r.Events[len(r.Events)-MaxRealmEvents:])
	}
}

// AddDilemma attaches an unresolved dilemma.
func (r *Realm) AddDilemma(d Dilemma) {
	d.Resolved = false
	r.Dilemmas = append(r.Dilemmas, d)
}

// ResolveDilemma records the chosen option on an open dilemma.
func (r *Realm) ResolveDilemma(dilemmaID, optionID, playerID, outcome string, turn int) (*Dilemma, error) {
	for i := range r.Dilemmas {
		d := &r.Dilemmas[i]
		if d.ID != dilemmaID {
			continue
		}
		if d.Resolved {
			return nil, Invalid("dilemma", "dilemma %q already resolved", dilemmaID)
		}
		if !slices.ContainsFunc(d.Options, func(o Option) bool { return o.ID == optionID }) {
			return nil, Invalid("option", "dilemma %q has no option %q", dilemmaID, optionID)
		}
		d.Resolved = true
		d.ResolvedBy = playerID
		d.ChosenOption = optionID
		d.Outcome = outcome
		d.ResolvedTurn = turn
		return d, nil
	}
	return nil, NotFound("dilemma", dilemmaID)
}
