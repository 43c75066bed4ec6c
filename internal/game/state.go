package game

import (
	"fmt"
	"slices"
	"time"
)

// MaxGameEvents bounds State.History.
const MaxGameEvents = 200

// GameEvent is one entry of the game-wide history log.
type GameEvent struct {
	ID              string    `json:"id"`
	Turn            int       `json:"turn"`
	Type            string    `json:"type"`
	Description     string    `json:"description"`
	AffectedPlayers []string  `json:"affected_players,omitempty"`
	AffectedRealms  []string  `json:"affected_realms,omitempty"`
	KarmaImpact     int       `json:"karma_impact"`
	CreatedAt       time.Time `json:"created_at"`
}

// State aggregates everything that makes up one game.
type State struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Players       []*Player   `json:"players"`
	Realms        []*Realm    `json:"realms"`
	Timelines     []*Timeline `json:"timelines"`
	TimeRifts     []*TimeRift `json:"time_rifts"`
	Turn          int         `json:"turn"`
	CurrentPlayer int         `json:"current_player_index"`
	Era           Era         `json:"era"`
	GlobalKarma   int         `json:"global_karma"`
	History       []GameEvent `json:"events_history"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// Player returns the player with the given id.
func (s *State) Player(id string) (*Player, error) {
	for _, p := range s.Players {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, NotFound("player", id)
}

// Realm returns the realm with the given id.
func (s *State) Realm(id string) (*Realm, error) {
	for _, r := range s.Realms {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, NotFound("realm", id)
}

// Timeline returns the timeline with the given id.
func (s *State) Timeline(id string) (*Timeline, error) {
	for _, t := range s.Timelines {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, NotFound("timeline", id)
}

// RealmsIn returns the realms whose TimelineID is timelineID, in state order.
func (s *State) RealmsIn(timelineID string) []*Realm {
	var out []*Realm
	for _, r := range s.Realms {
		if r.TimelineID == timelineID {
			out = append(out, r)
		}
	}
	return out
}

// ActiveRifts returns unresolved rifts located in the timeline.
func (s *State) ActiveRifts(timelineID string) []*TimeRift {
	var out []*TimeRift
	for _, rift := range s.TimeRifts {
		if !rift.Resolved && rift.Location.TimelineID == timelineID {
			out = append(out, rift)
		}
	}
	return out
}

// RecentEvents returns up to the last n history entries, oldest first.
func (s *State) RecentEvents(n int) []GameEvent {
	if n <= 0 || len(s.History) == 0 {
		return nil
	}
	if n > len(s.History) {
		n = len(s.History)
	}
	return s.History[len(s.History)-n:]
}

// AddEvent appends to the history, trimming to MaxGameEvents.
func (s *State) AddEvent(e GameEvent) {
	if e.Turn == 0 {
		e.Turn = s.Turn
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	s.History = append(s.History, e)
	if len(s.History) > MaxGameEvents {
		s.History = slices.Clone(s.History[len(s.History)-MaxGameEvents:])
	}
}

// ResolveRift marks a rift resolved at the current turn.
func (s *State) ResolveRift(riftID string) (*TimeRift, error) {
	for _, rift := range s.TimeRifts {
		if rift.ID != riftID {
			continue
		}
		if rift.Resolved {
			return nil, Invalid("time_rift", "rift %q already resolved", riftID)
		}
		rift.Resolved = true
		rift.ResolvedTurn = s.Turn
		return rift, nil
	}
	return nil, NotFound("time_rift", riftID)
}

// AdvanceEra moves the game to a later era. Moving sideways or backwards is
// a ValidationError.
func (s *State) AdvanceEra(to Era) error {
	if to.Index() < 0 {
		return Invalid("era", "unknown era %q", to)
	}
	if to.Index() <= s.Era.Index() {
		return Invalid("era", "cannot move from %s to %s", s.Era, to)
	}
	s.Era = to
	return nil
}

// NextPlayer rotates the current player index.
func (s *State) NextPlayer() {
	if len(s.Players) == 0 {
		s.CurrentPlayer = 0
		return
	}
	s.CurrentPlayer = (s.CurrentPlayer + 1) % len(s.Players)
}

// Relink rebuilds every Timeline.RealmIDs from the realms pointing at it.
func (s *State) Relink() {
	for _, t := range s.Timelines {
		t.RealmIDs = t.RealmIDs[:0]
	}
	for _, r := range s.Realms {
		if t, err := s.Timeline(r.TimelineID); err == nil {
			t.RealmIDs = append(t.RealmIDs, r.ID)
		}
	}
}

// Validate checks the referential and range invariants of the state and
// returns the first violation found.
func (s *State) Validate() error {
	if s.ID == "" {
		return Invalid("id", "game id is required")
	}
	if s.Era.Index() < 0 {
		return Invalid("era", "unknown era %q", s.Era)
	}

	timelines := make(map[string]*Timeline, len(s.Timelines))
	for _, t := range s.Timelines {
		if t.ID == "" {
			return Invalid("timeline.id", "timeline id is required")
		}
		if t.Stability < MinStability || t.Stability > MaxStability {
			return Invalid("timeline.stability", "timeline %s stability %.2f out of range", t.ID, t.Stability)
		}
		timelines[t.ID] = t
	}

	realmIDs := make(map[string]bool, len(s.Realms))
	members := make(map[string][]string)
	for _, r := range s.Realms {
		if r.ID == "" {
			return Invalid("realm.id", "realm id is required")
		}
		realmIDs[r.ID] = true
		if _, ok := timelines[r.TimelineID]; !ok {
			return Invalid("realm.timeline_id", "realm %s references missing timeline %q", r.ID, r.TimelineID)
		}
		members[r.TimelineID] = append(members[r.TimelineID], r.ID)
		if r.Resources < MinResources || r.Population < MinPopulation {
			return Invalid("realm", "realm %s below resource or population floor", r.ID)
		}
		if r.Population > MaxPopulation {
			return Invalid("realm.population", "realm %s population %d above ceiling", r.ID, r.Population)
		}
		if r.EthicalAlignment < -MaxAlignment || r.EthicalAlignment > MaxAlignment {
			return Invalid("realm.ethical_alignment", "realm %s alignment %.2f out of range", r.ID, r.EthicalAlignment)
		}
		if r.DevelopmentLevel < MinDevelopmentLevel || r.DevelopmentLevel > MaxDevelopmentLevel {
			return Invalid("realm.development_level", "realm %s level %d out of range", r.ID, r.DevelopmentLevel)
		}
	}

	for id, t := range timelines {
		want := slices.Clone(members[id])
		got := slices.Clone(t.RealmIDs)
		slices.Sort(want)
		slices.Sort(got)
		if !slices.Equal(want, got) {
			return Invalid("timeline.realm_ids", "timeline %s members %v do not match realms %v", id, got, want)
		}
	}

	for _, r := range s.Realms {
		for _, adj := range r.Adjacent {
			other, err := s.Realm(adj)
			if err != nil {
				return Invalid("realm.adjacent_realms", "realm %s adjacent to missing realm %q", r.ID, adj)
			}
			if !slices.Contains(other.Adjacent, r.ID) {
				return Invalid("realm.adjacent_realms", "adjacency %s-%s is not symmetric", r.ID, adj)
			}
		}
	}

	for _, p := range s.Players {
		for _, rid := range p.OwnedRealms {
			if !realmIDs[rid] {
				return Invalid("player.owned_realms", "player %s owns missing realm %q", p.ID, rid)
			}
		}
	}

	for _, rift := range s.TimeRifts {
		if rift.Severity < 1 || rift.Severity > 5 {
			return Invalid("time_rift.severity", "rift %s severity %d out of range", rift.ID, rift.Severity)
		}
		if _, ok := timelines[rift.Location.TimelineID]; !ok {
			return Invalid("time_rift.location", "rift %s in missing timeline %q", rift.ID, rift.Location.TimelineID)
		}
	}
	return nil
}

// Summary is a short human-readable description used in logs and prompts.
func (s *State) Summary() string {
	return fmt.Sprintf("game %s turn %d era %s: %d players, %d timelines, %d realms, %d rifts",
		s.ID, s.Turn, s.Era, len(s.Players), len(s.Timelines), len(s.Realms), len(s.TimeRifts))
}
