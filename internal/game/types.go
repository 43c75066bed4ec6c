// Package game holds the ChronoCore world model: players, realms, timelines,
// time rifts and the game state aggregate that owns them.
package game

import "strings"

// Role is a player's archetype. It selects the karma modifiers.
type Role string

const (
	RoleTechnoMonk     Role = "TechnoMonk"
	RoleShadowBroker   Role = "ShadowBroker"
	RoleChronoDiplomat Role = "ChronoDiplomat"
	RoleBioSmith       Role = "BioSmith"
)

// Roles lists every playable role.
var Roles = []Role{RoleTechnoMonk, RoleShadowBroker, RoleChronoDiplomat, RoleBioSmith}

// ParseRole accepts both the canonical names and display forms such as
// "Techno Monk" or "Bio-Smith".
func ParseRole(s string) (Role, error) {
	norm := strings.ToLower(strings.NewReplacer(" ", "", "-", "", "_", "").Replace(s))
	for _, r := range Roles {
		if strings.ToLower(string(r)) == norm {
			return r, nil
		}
	}
	return "", Invalid("role", "unknown role %q", s)
}

// Era is the coarse game phase. Eras only move forward.
type Era string

const (
	EraInitiation  Era = "Initiation"
	EraProgression Era = "Progression"
	EraDistortion  Era = "Distortion"
	EraEquilibrium Era = "Equilibrium"
)

var eraOrder = []Era{EraInitiation, EraProgression, EraDistortion, EraEquilibrium}

// Index returns the era's position in the progression, or -1 if unknown.
func (e Era) Index() int {
	for i, x := range eraOrder {
		if x == e {
			return i
		}
	}
	return -1
}

// Next returns the following era and false when e is the last (or unknown).
func (e Era) Next() (Era, bool) {
	i := e.Index()
	if i < 0 || i == len(eraOrder)-1 {
		return e, false
	}
	return eraOrder[i+1], true
}

// ParseEra validates an era name.
func ParseEra(s string) (Era, error) {
	for _, e := range eraOrder {
		if strings.EqualFold(string(e), s) {
			return e, nil
		}
	}
	return "", Invalid("era", "unknown era %q", s)
}

// Focus is a realm's technology focus. It scales growth and biases ethics.
type Focus string

const (
	FocusBalanced   Focus = "Balanced"
	FocusMilitary   Focus = "Military"
	FocusScientific Focus = "Scientific"
	FocusCultural   Focus = "Cultural"
	FocusEconomic   Focus = "Economic"
	FocusSpiritual  Focus = "Spiritual"
	FocusEcological Focus = "Ecological"
)

// Focuses lists every technology focus.
var Focuses = []Focus{
	FocusBalanced, FocusMilitary, FocusScientific, FocusCultural,
	FocusEconomic, FocusSpiritual, FocusEcological,
}

// ParseFocus validates a focus name. Empty input means Balanced.
func ParseFocus(s string) (Focus, error) {
	if s == "" {
		return FocusBalanced, nil
	}
	for _, f := range Focuses {
		if strings.EqualFold(string(f), s) {
			return f, nil
		}
	}
	return "", Invalid("technology_focus", "unknown focus %q", s)
}

// EventType names one of the discrete realm event models.
type EventType string

const (
	EventDisaster          EventType = "disaster"
	EventDiscovery         EventType = "discovery"
	EventCulturalShift     EventType = "cultural_shift"
	EventResourceDiscovery EventType = "resource_discovery"
	EventPopulationChange  EventType = "population_change"
)

// EventTypes lists realm event types in their sampling order.
var EventTypes = []EventType{
	EventDisaster, EventDiscovery, EventCulturalShift,
	EventResourceDiscovery, EventPopulationChange,
}

// Game-level event kinds recorded in State.History.
const (
	KindDecision       = "decision"
	KindQuestCompleted = "quest_completed"
	KindRealmEvent     = "realm_event"
	KindTimeRift       = "time_rift"
	KindRiftResolved   = "rift_resolved"
	KindEraAdvanced    = "era_advanced"
	KindOwnership      = "ownership_transfer"
	KindDilemma        = "dilemma"
)

// Option is one choice offered by a quest or dilemma.
type Option struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	Consequence string `json:"consequence,omitempty"`
	KarmaImpact int    `json:"karma_impact"`
}
