package karma

import (
	"math/rand"
	"testing"

	"github.com/talgya/chronocore/internal/game"
)

// TestDeltaAlwaysBounded ensures every delta lands in [-10, 10] whatever the
// raw score, role or era.
func TestDeltaAlwaysBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	eras := []game.Era{game.EraInitiation, game.EraProgression, game.EraDistortion, game.EraEquilibrium, "Unknown"}
	roles := append([]game.Role{"Wizard"}, game.Roles...)
	e := NewEngine()
	for i := 0; i < 2000; i++ {
		p := &game.Player{ID: "p", Role: roles[rng.Intn(len(roles))]}
		ev := Evaluation{KarmaScore: rng.Intn(61) - 30, EthicalImpact: "x"}
		d := e.ApplyDecision(p, ev, eras[rng.Intn(len(eras))], "protect the archive")
		if d < -10 || d > 10 {
			t.Fatalf("delta %d out of bounds for %+v", d, ev)
		}
	}
}

func TestOutOfRangeScoreClamped(t *testing.T) {
	p := &game.Player{ID: "p", Role: game.RoleTechnoMonk}
	d := NewEngine().ApplyDecision(p, Evaluation{KarmaScore: 15, EthicalImpact: "big"}, game.EraEquilibrium, "help")
	if d != 10 {
		t.Fatalf("delta = %d, want 10", d)
	}
	if p.Karma != 10 {
		t.Fatalf("karma = %d, want 10", p.Karma)
	}
}

// TestRepetitionDiminishes ensures repeating one bucket never increases the
// absolute delta.
func TestRepetitionDiminishes(t *testing.T) {
	p := &game.Player{ID: "p", Role: game.RoleChronoDiplomat}
	e := NewEngine()
	prev := 11
	for n := 0; n < 12; n++ {
		d := e.ApplyDecision(p, Evaluation{KarmaScore: 8, TemporalImpact: "stabilizes"}, game.EraProgression, "stabilize the rift")
		abs := d
		if abs < 0 {
			abs = -abs
		}
		if abs > prev {
			t.Fatalf("repetition %d: |delta| %d grew from %d", n, abs, prev)
		}
		prev = abs
	}
	if prev >= 10 {
		t.Fatalf("expected diminished delta after repetition, got %d", prev)
	}
}

func TestDeltaWorkedExample(t *testing.T) {
	// 6 * 1.2 (TechnoMonk ethical) * 1.2 (Distortion) = 8.64 -> 9 with no history.
	p := &game.Player{ID: "p", Role: game.RoleTechnoMonk}
	e := NewEngine()
	if d := e.ApplyDecision(p, Evaluation{KarmaScore: 6, EthicalImpact: "y"}, game.EraDistortion, "heal the sick"); d != 9 {
		t.Fatalf("first delta = %d, want 9", d)
	}
	// One prior ethical_positive entry: 8.64 / 1.2 = 7.2 -> 7.
	if d := e.ApplyDecision(p, Evaluation{KarmaScore: 6, EthicalImpact: "y"}, game.EraDistortion, "heal again"); d != 7 {
		t.Fatalf("second delta = %d, want 7", d)
	}
	if p.Karma != 16 || len(p.History) != 2 {
		t.Fatalf("karma = %d history = %d", p.Karma, len(p.History))
	}
}

func TestRoleModifierPriority(t *testing.T) {
	ev := Evaluation{TechnologicalImpact: "t", TemporalImpact: "x"}
	if got := RoleModifier(game.RoleBioSmith, ev); got != 1.2 {
		t.Fatalf("technological before temporal: got %v", got)
	}
	ev.EthicalImpact = "e"
	if got := RoleModifier(game.RoleBioSmith, ev); got != 1.1 {
		t.Fatalf("ethical first: got %v", got)
	}
	if got := RoleModifier(game.RoleBioSmith, Evaluation{}); got != 1.0 {
		t.Fatalf("no impacts: got %v", got)
	}
	if got := RoleModifier("Wizard", ev); got != 1.0 {
		t.Fatalf("unknown role: got %v", got)
	}
	if got := EraModifier("Future"); got != 1.0 {
		t.Fatalf("unknown era: got %v", got)
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		text  string
		karma int
		want  string
	}{
		{"We help the refugees", 0, EthicalPositive},
		{"Sabotage and protect", 0, EthicalPositive},
		{"Weaponize the reactor", 5, TechNegative},
		{"Balance the streams", -9, TemporalPositive},
		{"Harmonize the streams", 0, EthicalNegative}, // "harm" is a substring
		{"Sever the link", 0, TemporalNegative},
		{"wait", 4, EthicalPositive},
		{"wait", -4, EthicalNegative},
		{"wait", 3, TechPositive},
		{"wait", -1, TechNegative},
		{"wait", 0, Neutral},
	}
	for _, tt := range tests {
		if got := Categorize(tt.text, tt.karma); got != tt.want {
			t.Fatalf("Categorize(%q, %d) = %s, want %s", tt.text, tt.karma, got, tt.want)
		}
	}
}

func TestStreakWindow(t *testing.T) {
	var h []game.HistoryEntry
	for i := 0; i < 8; i++ {
		h = append(h, game.HistoryEntry{Category: EthicalPositive})
	}
	if got := Streak(h, EthicalPositive); got != 5 {
		t.Fatalf("Streak = %d, want 5", got)
	}
	h = append(h, game.HistoryEntry{Category: TechNegative})
	if got := Streak(h, EthicalPositive); got != 0 {
		t.Fatalf("Streak after break = %d, want 0", got)
	}
}

// TestCalculateTotalSumsClampedDeltas ensures each action is clamped before
// summing and the sum is left unclamped.
func TestCalculateTotalSumsClampedDeltas(t *testing.T) {
	p := &game.Player{ID: "p", Role: game.RoleShadowBroker}
	actions := []Action{
		{Decision: "help", Evaluation: Evaluation{KarmaScore: 30}},
		{Decision: "destroy", Evaluation: Evaluation{KarmaScore: 30}},
	}
	got := NewEngine().CalculateTotal(p, game.EraEquilibrium, actions)
	if got != 20 {
		t.Fatalf("total = %d, want 20", got)
	}
	if p.Karma != 20 {
		t.Fatalf("karma = %d, want 20", p.Karma)
	}
}
