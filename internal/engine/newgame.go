package engine

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/chronocore/internal/game"
	"github.com/talgya/chronocore/internal/realm"
	"github.com/talgya/chronocore/internal/world"
)

// PlayerSpec describes one seat of a new game.
type PlayerSpec struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// NewGameRequest describes a game to create. A zero Seed draws one from the
// seed source; Radius, Timelines and RealmsPerTimeline default to the
// standard board.
type NewGameRequest struct {
	Name              string       `json:"name"`
	Seed              int64        `json:"seed,omitempty"`
	Radius            int          `json:"radius,omitempty"`
	Timelines         int          `json:"timelines,omitempty"`
	RealmsPerTimeline int          `json:"realms_per_timeline,omitempty"`
	Players           []PlayerSpec `json:"players"`
}

func (req NewGameRequest) genConfig(seed int64) world.GenConfig {
	cfg := world.DefaultGenConfig(seed)
	if req.Radius > 0 {
		cfg.Radius = req.Radius
	}
	if req.Timelines > 0 {
		cfg.Timelines = req.Timelines
	}
	if req.RealmsPerTimeline > 0 {
		cfg.RealmsPerTimeline = req.RealmsPerTimeline
	}
	for _, f := range game.Focuses {
		cfg.Focuses = append(cfg.Focuses, string(f))
	}
	return cfg
}

// NewGame generates a board, seats the players on starting realms and
// saves the game.
func (e *Engine) NewGame(ctx context.Context, req NewGameRequest) (*game.State, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, game.Invalid("name", "game name is required")
	}
	if len(req.Players) == 0 {
		return nil, game.Invalid("players", "at least one player is required")
	}
	roles := make([]game.Role, len(req.Players))
	for i, ps := range req.Players {
		if strings.TrimSpace(ps.Username) == "" {
			return nil, game.Invalid("players.username", "player %d has no username", i)
		}
		role, err := game.ParseRole(ps.Role)
		if err != nil {
			return nil, err
		}
		roles[i] = role
	}

	seed := req.Seed
	if seed == 0 {
		seed = e.Seeds.Seed()
	}
	cfg := req.genConfig(seed)
	board := world.Generate(cfg)
	timelineSeeds, realmSeeds := world.PlaceRealms(board, cfg)
	if len(realmSeeds) < len(req.Players) {
		return nil, game.Invalid("players", "board has %d realms for %d players", len(realmSeeds), len(req.Players))
	}

	now := time.Now().UTC()
	gs := &game.State{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Era:       game.EraInitiation,
		CreatedAt: now,
		UpdatedAt: now,
	}
	buildBoard(gs, timelineSeeds, realmSeeds)
	seatPlayers(gs, req.Players, roles)
	gs.AddEvent(game.GameEvent{
		ID:          uuid.New().String(),
		Type:        game.KindEraAdvanced,
		Description: "The Initiation era begins.",
	})

	defer e.lock(gs.ID)()
	if err := e.save(ctx, gs); err != nil {
		return nil, err
	}

	slog.Info("game created",
		"game", gs.ID,
		"name", gs.Name,
		"seed", seed,
		"players", len(gs.Players),
		"timelines", len(gs.Timelines),
		"realms", len(gs.Realms),
	)
	return gs, nil
}

// buildBoard turns placement seeds into timelines and realms. Realms on
// neighboring cells are linked, and timelines that share such a border are
// connected.
func buildBoard(gs *game.State, timelineSeeds []world.TimelineSeed, realmSeeds []world.RealmSeed) {
	for _, ts := range timelineSeeds {
		gs.Timelines = append(gs.Timelines, &game.Timeline{
			ID:        uuid.New().String(),
			Name:      ts.Name,
			Stability: game.DefaultStability,
		})
	}

	for _, rs := range realmSeeds {
		focus, err := game.ParseFocus(rs.Focus)
		if err != nil {
			focus = game.FocusBalanced
		}
		r := &game.Realm{
			ID:               uuid.New().String(),
			Name:             rs.Name,
			TimelineID:       gs.Timelines[rs.Timeline].ID,
			Position:         rs.Coord,
			DevelopmentLevel: game.MinDevelopmentLevel,
			Resources:        rs.Resources,
			Population:       rs.Population,
			EthicalAlignment: rs.Alignment,
			Focus:            focus,
		}
		r.ClampBounds()
		r.Description = realm.Describe(r)
		gs.Realms = append(gs.Realms, r)
	}

	for i, a := range gs.Realms {
		for _, b := range gs.Realms[i+1:] {
			if !world.Adjacent(a.Position, b.Position) {
				continue
			}
			game.LinkRealms(a, b)
			if a.TimelineID != b.TimelineID {
				ta, _ := gs.Timeline(a.TimelineID)
				tb, _ := gs.Timeline(b.TimelineID)
				game.Connect(ta, tb)
			}
		}
	}
	gs.Relink()
}

// seatPlayers gives each player one unowned starting realm, dealing
// timelines round robin so players start spread across the board.
func seatPlayers(gs *game.State, specs []PlayerSpec, roles []game.Role) {
	for i, ps := range specs {
		p := &game.Player{
			ID:       uuid.New().String(),
			Username: ps.Username,
			Role:     roles[i],
		}
		if r := startingRealm(gs, i); r != nil {
			r.OwnerID = p.ID
			p.AddRealm(r.ID)
		}
		gs.Players = append(gs.Players, p)
	}
}

func startingRealm(gs *game.State, seat int) *game.Realm {
	if len(gs.Timelines) > 0 {
		t := gs.Timelines[seat%len(gs.Timelines)]
		for _, r := range gs.RealmsIn(t.ID) {
			if r.OwnerID == "" {
				return r
			}
		}
	}
	for _, r := range gs.Realms {
		if r.OwnerID == "" {
			return r
		}
	}
	return nil
}
