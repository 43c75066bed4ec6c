package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/talgya/chronocore/internal/game"
	"github.com/talgya/chronocore/internal/world"
)

type gameRow struct {
	ID            string `db:"id"`
	Name          string `db:"name"`
	Turn          int    `db:"turn"`
	CurrentPlayer int    `db:"current_player"`
	Era           string `db:"era"`
	GlobalKarma   int    `db:"global_karma"`
	CreatedAt     int64  `db:"created_at"`
	UpdatedAt     int64  `db:"updated_at"`
}

type playerRow struct {
	GameID      string `db:"game_id"`
	Seq         int    `db:"seq"`
	ID          string `db:"id"`
	Username    string `db:"username"`
	Role        string `db:"role"`
	Karma       int    `db:"karma"`
	OwnedJSON   string `db:"owned_json"`
	HistoryJSON string `db:"history_json"`
	QuestsJSON  string `db:"quests_json"`
}

func (row playerRow) player() (*game.Player, error) {
	p := &game.Player{ID: row.ID, Username: row.Username, Role: game.Role(row.Role), Karma: row.Karma}
	if err := decodeColumns(
		column{"player owned_json", row.OwnedJSON, &p.OwnedRealms},
		column{"player history_json", row.HistoryJSON, &p.History},
		column{"player quests_json", row.QuestsJSON, &p.Quests},
	); err != nil {
		return nil, err
	}
	return p, nil
}

type realmRow struct {
	GameID              string  `db:"game_id"`
	Seq                 int     `db:"seq"`
	ID                  string  `db:"id"`
	Name                string  `db:"name"`
	Description         string  `db:"description"`
	TimelineID          string  `db:"timeline_id"`
	OwnerID             string  `db:"owner_id"`
	PosQ                int     `db:"pos_q"`
	PosR                int     `db:"pos_r"`
	DevelopmentLevel    int     `db:"development_level"`
	DevelopmentProgress int     `db:"development_progress"`
	Resources           int     `db:"resources"`
	Population          int     `db:"population"`
	EthicalAlignment    float64 `db:"ethical_alignment"`
	Focus               string  `db:"focus"`
	AdjacentJSON        string  `db:"adjacent_json"`
	StructuresJSON      string  `db:"structures_json"`
	DilemmasJSON        string  `db:"dilemmas_json"`
	EventsJSON          string  `db:"events_json"`
}

func (row realmRow) realm() (*game.Realm, error) {
	r := &game.Realm{
		ID:                  row.ID,
		Name:                row.Name,
		Description:         row.Description,
		TimelineID:          row.TimelineID,
		OwnerID:             row.OwnerID,
		Position:            world.HexCoord{Q: row.PosQ, R: row.PosR},
		DevelopmentLevel:    row.DevelopmentLevel,
		DevelopmentProgress: row.DevelopmentProgress,
		Resources:           row.Resources,
		Population:          row.Population,
		EthicalAlignment:    row.EthicalAlignment,
		Focus:               game.Focus(row.Focus),
	}
	if err := decodeColumns(
		column{"realm adjacent_json", row.AdjacentJSON, &r.Adjacent},
		column{"realm structures_json", row.StructuresJSON, &r.Structures},
		column{"realm dilemmas_json", row.DilemmasJSON, &r.Dilemmas},
		column{"realm events_json", row.EventsJSON, &r.Events},
	); err != nil {
		return nil, err
	}
	return r, nil
}

type timelineRow struct {
	GameID        string  `db:"game_id"`
	Seq           int     `db:"seq"`
	ID            string  `db:"id"`
	Name          string  `db:"name"`
	Stability     float64 `db:"stability"`
	RealmIDsJSON  string  `db:"realm_ids_json"`
	ConnectedJSON string  `db:"connected_json"`
	EventsJSON    string  `db:"events_json"`
}

func (row timelineRow) timeline() (*game.Timeline, error) {
	t := &game.Timeline{ID: row.ID, Name: row.Name, Stability: row.Stability}
	if err := decodeColumns(
		column{"timeline realm_ids_json", row.RealmIDsJSON, &t.RealmIDs},
		column{"timeline connected_json", row.ConnectedJSON, &t.Connected},
		column{"timeline events_json", row.EventsJSON, &t.Events},
	); err != nil {
		return nil, err
	}
	return t, nil
}

type riftRow struct {
	GameID       string  `db:"game_id"`
	Seq          int     `db:"seq"`
	ID           string  `db:"id"`
	TimelineID   string  `db:"timeline_id"`
	RealmID      string  `db:"realm_id"`
	X            float64 `db:"x"`
	Y            float64 `db:"y"`
	Severity     int     `db:"severity"`
	Description  string  `db:"description"`
	CreatedTurn  int     `db:"created_turn"`
	Resolved     int     `db:"resolved"`
	ResolvedTurn int     `db:"resolved_turn"`
}

func (row riftRow) rift() *game.TimeRift {
	return &game.TimeRift{
		ID:           row.ID,
		Location:     game.Location{TimelineID: row.TimelineID, RealmID: row.RealmID, X: row.X, Y: row.Y},
		Severity:     row.Severity,
		Description:  row.Description,
		CreatedTurn:  row.CreatedTurn,
		Resolved:     row.Resolved != 0,
		ResolvedTurn: row.ResolvedTurn,
	}
}

type eventRow struct {
	GameID      string `db:"game_id"`
	Seq         int    `db:"seq"`
	ID          string `db:"id"`
	Turn        int    `db:"turn"`
	Type        string `db:"type"`
	Description string `db:"description"`
	PlayersJSON string `db:"players_json"`
	RealmsJSON  string `db:"realms_json"`
	KarmaImpact int    `db:"karma_impact"`
	CreatedAt   int64  `db:"created_at"`
}

func (row eventRow) event() (game.GameEvent, error) {
	e := game.GameEvent{
		ID:          row.ID,
		Turn:        row.Turn,
		Type:        row.Type,
		Description: row.Description,
		KarmaImpact: row.KarmaImpact,
		CreatedAt:   unixNano(row.CreatedAt),
	}
	err := decodeColumns(
		column{"event players_json", row.PlayersJSON, &e.AffectedPlayers},
		column{"event realms_json", row.RealmsJSON, &e.AffectedRealms},
	)
	return e, err
}

type column struct {
	name string
	raw  string
	dst  any
}

func decodeColumns(cols ...column) error {
	for _, c := range cols {
		if c.raw == "" || c.raw == "null" {
			continue
		}
		if err := json.Unmarshal([]byte(c.raw), c.dst); err != nil {
			return fmt.Errorf("decode %s: %w", c.name, err)
		}
	}
	return nil
}
