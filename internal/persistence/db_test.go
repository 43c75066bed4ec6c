package persistence

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/talgya/chronocore/internal/game"
	"github.com/talgya/chronocore/internal/world"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "chronocore.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleState() *game.State {
	now := time.Date(2026, 3, 1, 12, 0, 0, 123, time.UTC)
	gs := &game.State{
		ID:          "g1",
		Name:        "First Light",
		Turn:        4,
		Era:         game.EraProgression,
		GlobalKarma: 7,
		CreatedAt:   now,
		UpdatedAt:   now.Add(time.Hour),
		Players: []*game.Player{{
			ID: "p1", Username: "ada", Role: game.RoleBioSmith, Karma: 7,
			OwnedRealms: []string{"r1"},
			History:     []game.HistoryEntry{{Decision: "heal the river", Delta: 7, Category: "ethical_positive"}},
			Quests: []game.QuestRecord{{
				ID: "q1", Title: "Ecological Crisis", Type: "Technical", Difficulty: 2, Status: game.QuestActive,
				Options: []game.Option{{ID: "1", Text: "act", KarmaImpact: 3}}, StartedTurn: 3, ExpiresTurn: 8,
			}},
		}},
		Realms: []*game.Realm{
			{
				ID: "r1", Name: "Verdance", TimelineID: "t1", OwnerID: "p1", Position: world.HexCoord{Q: 0, R: 0},
				DevelopmentLevel: 2, DevelopmentProgress: 120, Resources: 55, Population: 1_200_000,
				EthicalAlignment: 12.5, Focus: game.FocusEcological, Adjacent: []string{"r2"},
				Dilemmas: []game.Dilemma{{ID: "d1", Title: "Dam", Options: []game.Option{{ID: "a"}}}},
				Events:   []game.RealmEvent{{Type: game.EventDiscovery, Description: "found", Effects: map[string]int{"resources": 5}, Turn: 2}},
			},
			{
				ID: "r2", Name: "Ashfall", TimelineID: "t1", Position: world.HexCoord{Q: 1, R: 0},
				DevelopmentLevel: 1, Resources: 40, Population: 900_000, EthicalAlignment: -3,
				Focus: game.FocusMilitary, Adjacent: []string{"r1"},
			},
		},
		Timelines: []*game.Timeline{{
			ID: "t1", Name: "Prime", Stability: 88.5, RealmIDs: []string{"r1", "r2"},
			Events: []game.TimelineEvent{{Type: "decision", Outcome: "good", Turn: 3}},
		}},
		TimeRifts: []*game.TimeRift{{
			ID: "rift1", Location: game.Location{TimelineID: "t1", RealmID: "r2", X: 10, Y: 20},
			Severity: 3, Description: "tear", CreatedTurn: 4,
		}},
		History: []game.GameEvent{{
			ID: "e1", Turn: 3, Type: game.KindDecision, Description: "ada healed the river",
			AffectedPlayers: []string{"p1"}, AffectedRealms: []string{"r1"}, KarmaImpact: 7, CreatedAt: now,
		}},
	}
	return gs
}

// TestSaveLoadRoundTrip ensures a saved game loads back field for field.
func TestSaveLoadRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	want := sampleState()
	if err := db.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := db.Load(ctx, "g1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Name != want.Name || got.Turn != 4 || got.Era != game.EraProgression || got.GlobalKarma != 7 {
		t.Fatalf("game row = %+v", got)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) || !got.UpdatedAt.Equal(want.UpdatedAt) {
		t.Fatalf("timestamps = %v / %v", got.CreatedAt, got.UpdatedAt)
	}
	if len(got.Players) != 1 || got.Players[0].Role != game.RoleBioSmith || len(got.Players[0].History) != 1 {
		t.Fatalf("players = %+v", got.Players)
	}
	if q := got.Players[0].Quests; len(q) != 1 || q[0].ExpiresTurn != 8 || q[0].Options[0].KarmaImpact != 3 {
		t.Fatalf("quests = %+v", q)
	}
	if len(got.Realms) != 2 || got.Realms[0].ID != "r1" || got.Realms[1].ID != "r2" {
		t.Fatalf("realm order = %+v", got.Realms)
	}
	r1 := got.Realms[0]
	if r1.EthicalAlignment != 12.5 || r1.DevelopmentProgress != 120 || r1.Position != (world.HexCoord{}) {
		t.Fatalf("realm r1 = %+v", r1)
	}
	if len(r1.Dilemmas) != 1 || len(r1.Events) != 1 || r1.Events[0].Effects["resources"] != 5 {
		t.Fatalf("realm r1 logs = %+v / %+v", r1.Dilemmas, r1.Events)
	}
	if got.Realms[1].Position != (world.HexCoord{Q: 1}) {
		t.Fatalf("realm r2 position = %+v", got.Realms[1].Position)
	}
	if len(got.Timelines) != 1 || got.Timelines[0].Stability != 88.5 || len(got.Timelines[0].Events) != 1 {
		t.Fatalf("timelines = %+v", got.Timelines)
	}
	if len(got.TimeRifts) != 1 || got.TimeRifts[0].Location.RealmID != "r2" || got.TimeRifts[0].Resolved {
		t.Fatalf("rifts = %+v", got.TimeRifts)
	}
	if len(got.History) != 1 || !got.History[0].CreatedAt.Equal(want.History[0].CreatedAt) {
		t.Fatalf("history = %+v", got.History)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("loaded state invalid: %v", err)
	}
}

// TestSaveReplacesRows ensures a second save drops rows removed from memory.
func TestSaveReplacesRows(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	gs := sampleState()
	if err := db.Save(ctx, gs); err != nil {
		t.Fatalf("save: %v", err)
	}

	gs.TimeRifts[0].Resolved = true
	gs.TimeRifts[0].ResolvedTurn = 5
	gs.History = nil
	gs.Turn = 5
	if err := db.Save(ctx, gs); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, err := db.Load(ctx, "g1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Turn != 5 || len(got.History) != 0 {
		t.Fatalf("turn=%d history=%d", got.Turn, len(got.History))
	}
	if !got.TimeRifts[0].Resolved || got.TimeRifts[0].ResolvedTurn != 5 {
		t.Fatalf("rift = %+v", got.TimeRifts[0])
	}
	if v, err := db.GetMeta("last_saved_game"); err != nil || v != "g1" {
		t.Fatalf("last_saved_game = %q, %v", v, err)
	}
}

func TestLoadMissingGame(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Load(context.Background(), "nope")
	if !errors.Is(err, game.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestStoreFailureIsRetryable(t *testing.T) {
	db := openTestDB(t)
	db.Close()
	err := db.Save(context.Background(), sampleState())
	if !errors.Is(err, game.ErrStore) {
		t.Fatalf("err = %v, want ErrStore", err)
	}
}

// TestLoadSeesWholeSave ensures a Load racing with Saves never mixes rows
// from two different saves of the same game.
func TestLoadSeesWholeSave(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if err := db.Save(ctx, sampleState()); err != nil {
		t.Fatalf("seed save: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for turn := 1; turn <= 60; turn++ {
			gs := sampleState()
			gs.Turn = turn
			gs.Players[0].Karma = turn
			gs.Realms[0].Resources = 1000 + turn
			gs.Timelines[0].Stability = float64(turn)
			if err := db.Save(ctx, gs); err != nil {
				t.Errorf("save turn %d: %v", turn, err)
				return
			}
		}
	}()

	for i := 0; i < 60; i++ {
		gs, err := db.Load(ctx, "g1")
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if gs.Turn == sampleState().Turn {
			continue
		}
		if gs.Players[0].Karma != gs.Turn || gs.Realms[0].Resources != 1000+gs.Turn || gs.Timelines[0].Stability != float64(gs.Turn) {
			t.Fatalf("mixed snapshot: turn %d, karma %d, resources %d, stability %.0f",
				gs.Turn, gs.Players[0].Karma, gs.Realms[0].Resources, gs.Timelines[0].Stability)
		}
	}
	wg.Wait()
}

func TestListGames(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	a := sampleState()
	b := sampleState()
	b.ID, b.Name = "g2", "Second Dawn"
	b.UpdatedAt = a.UpdatedAt.Add(time.Hour)
	for _, gs := range []*game.State{a, b} {
		if err := db.Save(ctx, gs); err != nil {
			t.Fatalf("save %s: %v", gs.ID, err)
		}
	}

	games, err := db.ListGames(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(games) != 2 || games[0].ID != "g2" || games[1].ID != "g1" {
		t.Fatalf("games = %+v", games)
	}
	if v, err := db.GetMeta("schema_version"); err != nil || v != "1" {
		t.Fatalf("schema_version = %q, %v", v, err)
	}
}
