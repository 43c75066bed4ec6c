// Package persistence provides SQLite-based game state storage. Each Save
// replaces every row of one game inside a single transaction.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/chronocore/internal/game"
)

const schemaVersion = 1

// DB wraps a SQLite connection for game state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS games (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		turn INTEGER NOT NULL,
		current_player INTEGER NOT NULL,
		era TEXT NOT NULL,
		global_karma INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS players (
		game_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		id TEXT NOT NULL,
		username TEXT NOT NULL,
		role TEXT NOT NULL,
		karma INTEGER NOT NULL,
		owned_json TEXT NOT NULL,
		history_json TEXT NOT NULL,
		quests_json TEXT NOT NULL,
		PRIMARY KEY (game_id, id)
	);

	CREATE TABLE IF NOT EXISTS realms (
		game_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL,
		timeline_id TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		pos_q INTEGER NOT NULL,
		pos_r INTEGER NOT NULL,
		development_level INTEGER NOT NULL,
		development_progress INTEGER NOT NULL,
		resources INTEGER NOT NULL,
		population INTEGER NOT NULL,
		ethical_alignment REAL NOT NULL,
		focus TEXT NOT NULL,
		adjacent_json TEXT NOT NULL,
		structures_json TEXT NOT NULL,
		dilemmas_json TEXT NOT NULL,
		events_json TEXT NOT NULL,
		PRIMARY KEY (game_id, id)
	);

	CREATE TABLE IF NOT EXISTS timelines (
		game_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		id TEXT NOT NULL,
		name TEXT NOT NULL,
		stability REAL NOT NULL,
		realm_ids_json TEXT NOT NULL,
		connected_json TEXT NOT NULL,
		events_json TEXT NOT NULL,
		PRIMARY KEY (game_id, id)
	);

	CREATE TABLE IF NOT EXISTS time_rifts (
		game_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		id TEXT NOT NULL,
		timeline_id TEXT NOT NULL,
		realm_id TEXT NOT NULL,
		x REAL NOT NULL,
		y REAL NOT NULL,
		severity INTEGER NOT NULL,
		description TEXT NOT NULL,
		created_turn INTEGER NOT NULL,
		resolved INTEGER NOT NULL,
		resolved_turn INTEGER NOT NULL,
		PRIMARY KEY (game_id, id)
	);

	CREATE TABLE IF NOT EXISTS events (
		game_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		id TEXT NOT NULL,
		turn INTEGER NOT NULL,
		type TEXT NOT NULL,
		description TEXT NOT NULL,
		players_json TEXT NOT NULL,
		realms_json TEXT NOT NULL,
		karma_impact INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (game_id, seq)
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_turn ON events(game_id, turn);
	CREATE INDEX IF NOT EXISTS idx_realms_timeline ON realms(game_id, timeline_id);
	`
	if _, err := db.conn.Exec(schema); err != nil {
		return err
	}
	return db.SaveMeta("schema_version", strconv.Itoa(schemaVersion))
}

// SaveMeta stores a key-value pair in the metadata table.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

// GameSummary is one row of ListGames.
type GameSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Turn      int       `json:"turn"`
	Era       game.Era  `json:"era"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListGames returns every stored game, most recently updated first.
func (db *DB) ListGames(ctx context.Context) ([]GameSummary, error) {
	var rows []gameRow
	if err := db.conn.SelectContext(ctx, &rows, "SELECT * FROM games ORDER BY updated_at DESC, id"); err != nil {
		return nil, game.StoreFailure("list games", err)
	}
	out := make([]GameSummary, len(rows))
	for i, r := range rows {
		out[i] = GameSummary{ID: r.ID, Name: r.Name, Turn: r.Turn, Era: game.Era(r.Era), UpdatedAt: unixNano(r.UpdatedAt)}
	}
	return out, nil
}

// Save writes the whole game in one transaction, replacing any earlier rows.
func (db *DB) Save(ctx context.Context, gs *game.State) error {
	if err := db.save(ctx, gs); err != nil {
		return game.StoreFailure("save game "+gs.ID, err)
	}
	slog.Debug("game saved", "game", gs.ID, "turn", gs.Turn)
	return nil
}

func (db *DB) save(ctx context.Context, gs *game.State) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO games
		(id, name, turn, current_player, era, global_karma, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		gs.ID, gs.Name, gs.Turn, gs.CurrentPlayer, string(gs.Era), gs.GlobalKarma,
		nanos(gs.CreatedAt), nanos(gs.UpdatedAt),
	); err != nil {
		return fmt.Errorf("upsert game: %w", err)
	}

	for _, table := range []string{"players", "realms", "timelines", "time_rifts", "events"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE game_id = ?", gs.ID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err := insertPlayers(ctx, tx, gs); err != nil {
		return err
	}
	if err := insertRealms(ctx, tx, gs); err != nil {
		return err
	}
	if err := insertTimelines(ctx, tx, gs); err != nil {
		return err
	}
	if err := insertRifts(ctx, tx, gs); err != nil {
		return err
	}
	if err := insertEvents(ctx, tx, gs); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES ('last_saved_game', ?)", gs.ID,
	); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}
	return tx.Commit()
}

func insertPlayers(ctx context.Context, tx *sqlx.Tx, gs *game.State) error {
	stmt, err := tx.PreparexContext(ctx, `INSERT INTO players
		(game_id, seq, id, username, role, karma, owned_json, history_json, quests_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, p := range gs.Players {
		_, err := stmt.ExecContext(ctx,
			gs.ID, i, p.ID, p.Username, string(p.Role), p.Karma,
			mustJSON(p.OwnedRealms), mustJSON(p.History), mustJSON(p.Quests),
		)
		if err != nil {
			return fmt.Errorf("insert player %s: %w", p.ID, err)
		}
	}
	return nil
}

func insertRealms(ctx context.Context, tx *sqlx.Tx, gs *game.State) error {
	stmt, err := tx.PreparexContext(ctx, `INSERT INTO realms
		(game_id, seq, id, name, description, timeline_id, owner_id, pos_q, pos_r,
		 development_level, development_progress, resources, population,
		 ethical_alignment, focus, adjacent_json, structures_json, dilemmas_json, events_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range gs.Realms {
		_, err := stmt.ExecContext(ctx,
			gs.ID, i, r.ID, r.Name, r.Description, r.TimelineID, r.OwnerID,
			r.Position.Q, r.Position.R, r.DevelopmentLevel, r.DevelopmentProgress,
			r.Resources, r.Population, r.EthicalAlignment, string(r.Focus),
			mustJSON(r.Adjacent), mustJSON(r.Structures), mustJSON(r.Dilemmas), mustJSON(r.Events),
		)
		if err != nil {
			return fmt.Errorf("insert realm %s: %w", r.ID, err)
		}
	}
	return nil
}

func insertTimelines(ctx context.Context, tx *sqlx.Tx, gs *game.State) error {
	for i, t := range gs.Timelines {
		_, err := tx.ExecContext(ctx, `INSERT INTO timelines
			(game_id, seq, id, name, stability, realm_ids_json, connected_json, events_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			gs.ID, i, t.ID, t.Name, t.Stability,
			mustJSON(t.RealmIDs), mustJSON(t.Connected), mustJSON(t.Events),
		)
		if err != nil {
			return fmt.Errorf("insert timeline %s: %w", t.ID, err)
		}
	}
	return nil
}

func insertRifts(ctx context.Context, tx *sqlx.Tx, gs *game.State) error {
	for i, r := range gs.TimeRifts {
		_, err := tx.ExecContext(ctx, `INSERT INTO time_rifts
			(game_id, seq, id, timeline_id, realm_id, x, y, severity, description,
			 created_turn, resolved, resolved_turn)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			gs.ID, i, r.ID, r.Location.TimelineID, r.Location.RealmID, r.Location.X, r.Location.Y,
			r.Severity, r.Description, r.CreatedTurn, boolInt(r.Resolved), r.ResolvedTurn,
		)
		if err != nil {
			return fmt.Errorf("insert rift %s: %w", r.ID, err)
		}
	}
	return nil
}

func insertEvents(ctx context.Context, tx *sqlx.Tx, gs *game.State) error {
	stmt, err := tx.PreparexContext(ctx, `INSERT INTO events
		(game_id, seq, id, turn, type, description, players_json, realms_json, karma_impact, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, e := range gs.History {
		_, err := stmt.ExecContext(ctx,
			gs.ID, i, e.ID, e.Turn, e.Type, e.Description,
			mustJSON(e.AffectedPlayers), mustJSON(e.AffectedRealms), e.KarmaImpact, nanos(e.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert event %d: %w", i, err)
		}
	}
	return nil
}

// Load reads a whole game inside one read-only transaction, so a concurrent
// Save is seen either entirely or not at all. A missing game yields an error
// wrapping game.ErrNotFound.
func (db *DB) Load(ctx context.Context, gameID string) (*game.State, error) {
	tx, err := db.conn.BeginTxx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, game.StoreFailure("load game "+gameID, err)
	}
	defer tx.Rollback()

	var g gameRow
	err = tx.GetContext(ctx, &g, "SELECT * FROM games WHERE id = ?", gameID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, game.NotFound("game", gameID)
	}
	if err != nil {
		return nil, game.StoreFailure("load game "+gameID, err)
	}

	gs := &game.State{
		ID:            g.ID,
		Name:          g.Name,
		Turn:          g.Turn,
		CurrentPlayer: g.CurrentPlayer,
		Era:           game.Era(g.Era),
		GlobalKarma:   g.GlobalKarma,
		CreatedAt:     unixNano(g.CreatedAt),
		UpdatedAt:     unixNano(g.UpdatedAt),
	}
	if err := loadChildren(ctx, tx, gs); err != nil {
		return nil, game.StoreFailure("load game "+gameID, err)
	}
	return gs, nil
}

func loadChildren(ctx context.Context, tx *sqlx.Tx, gs *game.State) error {
	var players []playerRow
	if err := tx.SelectContext(ctx, &players, "SELECT * FROM players WHERE game_id = ? ORDER BY seq", gs.ID); err != nil {
		return fmt.Errorf("select players: %w", err)
	}
	for _, row := range players {
		p, err := row.player()
		if err != nil {
			return err
		}
		gs.Players = append(gs.Players, p)
	}

	var realms []realmRow
	if err := tx.SelectContext(ctx, &realms, "SELECT * FROM realms WHERE game_id = ? ORDER BY seq", gs.ID); err != nil {
		return fmt.Errorf("select realms: %w", err)
	}
	for _, row := range realms {
		r, err := row.realm()
		if err != nil {
			return err
		}
		gs.Realms = append(gs.Realms, r)
	}

	var timelines []timelineRow
	if err := tx.SelectContext(ctx, &timelines, "SELECT * FROM timelines WHERE game_id = ? ORDER BY seq", gs.ID); err != nil {
		return fmt.Errorf("select timelines: %w", err)
	}
	for _, row := range timelines {
		t, err := row.timeline()
		if err != nil {
			return err
		}
		gs.Timelines = append(gs.Timelines, t)
	}

	var rifts []riftRow
	if err := tx.SelectContext(ctx, &rifts, "SELECT * FROM time_rifts WHERE game_id = ? ORDER BY seq", gs.ID); err != nil {
		return fmt.Errorf("select rifts: %w", err)
	}
	for _, row := range rifts {
		gs.TimeRifts = append(gs.TimeRifts, row.rift())
	}

	var events []eventRow
	if err := tx.SelectContext(ctx, &events, "SELECT * FROM events WHERE game_id = ? ORDER BY seq", gs.ID); err != nil {
		return fmt.Errorf("select events: %w", err)
	}
	for _, row := range events {
		e, err := row.event()
		if err != nil {
			return err
		}
		gs.History = append(gs.History, e)
	}
	return nil
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		slog.Error("marshal column", "error", err)
		return "null"
	}
	return string(b)
}

// nanos stores a zero time as 0 rather than an out-of-range UnixNano.
func nanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func unixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
