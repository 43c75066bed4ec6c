package game

import (
	"errors"
	"fmt"
	"testing"
)

func testState() *State {
	s := &State{
		ID:  "g1",
		Era: EraInitiation,
		Timelines: []*Timeline{
			{ID: "t1", Stability: 80},
			{ID: "t2", Stability: 50},
		},
		Realms: []*Realm{
			{ID: "r1", TimelineID: "t1", DevelopmentLevel: 1, Resources: 50, Population: 5000},
			{ID: "r2", TimelineID: "t1", DevelopmentLevel: 2, Resources: 50, Population: 5000},
			{ID: "r3", TimelineID: "t2", DevelopmentLevel: 1, Resources: 50, Population: 5000},
		},
		Players: []*Player{{ID: "p1", Role: RoleTechnoMonk}},
	}
	LinkRealms(s.Realms[0], s.Realms[1])
	s.Relink()
	return s
}

// TestValidateAcceptsLinkedState ensures a relinked state passes validation.
func TestValidateAcceptsLinkedState(t *testing.T) {
	s := testState()
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejectsBrokenInverse(t *testing.T) {
	s := testState()
	s.Timelines[1].RealmIDs = append(s.Timelines[1].RealmIDs, "r1")
	err := s.Validate()
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestValidateRejectsDanglingTimeline(t *testing.T) {
	s := testState()
	s.Realms[2].TimelineID = "missing"
	if err := s.Validate(); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestValidateRejectsAsymmetricAdjacency(t *testing.T) {
	s := testState()
	s.Realms[2].Adjacent = []string{"r1"}
	if err := s.Validate(); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLookupsReturnNotFound(t *testing.T) {
	s := testState()
	if _, err := s.Realm("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Realm: expected ErrNotFound, got %v", err)
	}
	if _, err := s.Timeline("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Timeline: expected ErrNotFound, got %v", err)
	}
	if _, err := s.Player("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Player: expected ErrNotFound, got %v", err)
	}
}

// TestAdvanceEraForwardOnly ensures eras never move backwards or sideways.
func TestAdvanceEraForwardOnly(t *testing.T) {
	s := testState()
	if err := s.AdvanceEra(EraDistortion); err != nil {
		t.Fatalf("AdvanceEra forward: %v", err)
	}
	if err := s.AdvanceEra(EraProgression); !IsValidation(err) {
		t.Fatalf("expected validation error moving back, got %v", err)
	}
	if err := s.AdvanceEra(EraDistortion); !IsValidation(err) {
		t.Fatalf("expected validation error staying put, got %v", err)
	}
	next, ok := EraEquilibrium.Next()
	if ok || next != EraEquilibrium {
		t.Fatalf("Equilibrium.Next() = %s, %v", next, ok)
	}
}

func TestHistoryBounded(t *testing.T) {
	p := &Player{ID: "p"}
	for i := 0; i < MaxHistory+7; i++ {
		p.RecordAction(HistoryEntry{Decision: fmt.Sprintf("d%d", i), Delta: 1})
	}
	if len(p.History) != MaxHistory {
		t.Fatalf("history length = %d, want %d", len(p.History), MaxHistory)
	}
	if p.History[0].Decision != "d7" {
		t.Fatalf("oldest entry = %s, want d7", p.History[0].Decision)
	}

	s := testState()
	for i := 0; i < MaxGameEvents+5; i++ {
		s.AddEvent(GameEvent{Type: KindDecision})
	}
	if len(s.History) != MaxGameEvents {
		t.Fatalf("game history = %d, want %d", len(s.History), MaxGameEvents)
	}
}

// TestTimelineLogBounded ensures the timeline log keeps only the newest
// MaxTimelineEvents entries.
func TestTimelineLogBounded(t *testing.T) {
	tl := &Timeline{ID: "t1"}
	for i := 0; i < MaxTimelineEvents+15; i++ {
		tl.AppendEvent(TimelineEvent{Type: "discovery", Outcome: OutcomeOf(i % 3), Turn: i})
	}
	if len(tl.Events) != MaxTimelineEvents {
		t.Fatalf("log length = %d", len(tl.Events))
	}
	if tl.Events[0].Turn != 15 || tl.Events[len(tl.Events)-1].Turn != MaxTimelineEvents+14 {
		t.Fatalf("kept turns %d..%d", tl.Events[0].Turn, tl.Events[len(tl.Events)-1].Turn)
	}
	if OutcomeOf(-2) != OutcomeNegative || OutcomeOf(0) != OutcomeNeutral || OutcomeOf(4) != OutcomePositive {
		t.Fatalf("OutcomeOf misclassifies")
	}
}

func TestCompleteQuestClampsReward(t *testing.T) {
	p := &Player{ID: "p", Karma: 3}
	p.StartQuest(QuestRecord{ID: "q1", Title: "Hidden Knowledge"})
	got, err := p.CompleteQuest("q1", "done", 40, 2)
	if err != nil {
		t.Fatalf("CompleteQuest: %v", err)
	}
	if got != 10 || p.Karma != 13 {
		t.Fatalf("reward = %d karma = %d, want 10 and 13", got, p.Karma)
	}
	if _, err := p.CompleteQuest("q1", "again", 1, 3); !IsValidation(err) {
		t.Fatalf("expected validation error on second completion, got %v", err)
	}
	if _, err := p.CompleteQuest("q9", "", 1, 3); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOwnedRealmsSet(t *testing.T) {
	p := &Player{}
	p.AddRealm("b")
	p.AddRealm("a")
	p.AddRealm("b")
	if len(p.OwnedRealms) != 2 || p.OwnedRealms[0] != "a" {
		t.Fatalf("OwnedRealms = %v", p.OwnedRealms)
	}
	p.RemoveRealm("a")
	if p.Owns("a") || !p.Owns("b") {
		t.Fatalf("OwnedRealms after remove = %v", p.OwnedRealms)
	}
}

func TestResolveRift(t *testing.T) {
	s := testState()
	s.Turn = 4
	s.TimeRifts = []*TimeRift{{ID: "x", Severity: 2, Location: Location{TimelineID: "t1"}}}
	if got := len(s.ActiveRifts("t1")); got != 1 {
		t.Fatalf("ActiveRifts = %d, want 1", got)
	}
	rift, err := s.ResolveRift("x")
	if err != nil {
		t.Fatalf("ResolveRift: %v", err)
	}
	if !rift.Resolved || rift.ResolvedTurn != 4 {
		t.Fatalf("rift = %+v", rift)
	}
	if got := len(s.ActiveRifts("t1")); got != 0 {
		t.Fatalf("ActiveRifts after resolve = %d", got)
	}
}

func TestResolveDilemma(t *testing.T) {
	r := &Realm{ID: "r"}
	r.AddDilemma(Dilemma{ID: "d1", Options: []Option{{ID: "a"}, {ID: "b"}}})
	if _, err := r.ResolveDilemma("d1", "z", "p", "", 1); !IsValidation(err) {
		t.Fatalf("expected validation error for unknown option, got %v", err)
	}
	d, err := r.ResolveDilemma("d1", "b", "p", "ok", 1)
	if err != nil || !d.Resolved || d.ChosenOption != "b" {
		t.Fatalf("ResolveDilemma = %+v, %v", d, err)
	}
}

func TestParseRoleDisplayNames(t *testing.T) {
	for in, want := range map[string]Role{
		"Techno Monk": RoleTechnoMonk, "Bio-Smith": RoleBioSmith,
		"shadowbroker": RoleShadowBroker, "Chrono Diplomat": RoleChronoDiplomat,
	} {
		got, err := ParseRole(in)
		if err != nil || got != want {
			t.Fatalf("ParseRole(%q) = %s, %v", in, got, err)
		}
	}
	if _, err := ParseRole("Wizard"); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
