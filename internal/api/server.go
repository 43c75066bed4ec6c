// Package api provides the HTTP API for ChronoCore games.
// GET endpoints and player actions are public. Game creation, turn
// advancement and clock control require a bearer token.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/talgya/chronocore/internal/engine"
	"github.com/talgya/chronocore/internal/game"
	"github.com/talgya/chronocore/internal/persistence"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// GameLister lists stored games. persistence.DB implements it.
type GameLister interface {
	ListGames(ctx context.Context) ([]persistence.GameSummary, error)
}

// Server serves ChronoCore over HTTP.
type Server struct {
	Eng      *engine.Engine
	Games    GameLister   // optional
	Metrics  http.Handler // optional, mounted at /metrics
	AdminKey string       // Bearer token for admin endpoints. Empty = admin endpoints disabled.

	// OracleEnabled is reported by /status.
	OracleEnabled bool

	started time.Time
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	if s.started.IsZero() {
		s.started = time.Now()
	}
	// Limits for endpoints that may call the oracle.
	oracleLimiter := NewRateLimiter(60, time.Hour)
	limited := func(h http.HandlerFunc) http.HandlerFunc { return RateLimitMiddleware(oracleLimiter, h) }

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/games", s.handleListGames)
	mux.HandleFunc("GET /api/v1/games/{id}", s.handleGame)
	mux.HandleFunc("GET /api/v1/games/{id}/timelines/{tid}/analysis", s.handleAnalysis)
	mux.HandleFunc("GET /api/v1/games/{id}/narrative", limited(s.handleNarrative))

	// Player actions.
	mux.HandleFunc("POST /api/v1/games/{id}/decisions", limited(s.handleDecision))
	mux.HandleFunc("POST /api/v1/games/{id}/quests", limited(s.handleGenerateQuest))
	mux.HandleFunc("POST /api/v1/games/{id}/quests/{qid}/complete", limited(s.handleCompleteQuest))
	mux.HandleFunc("POST /api/v1/games/{id}/realms/{rid}/dilemmas", limited(s.handleGenerateDilemma))
	mux.HandleFunc("POST /api/v1/games/{id}/realms/{rid}/dilemmas/{did}/resolve", s.handleResolveDilemma)
	mux.HandleFunc("POST /api/v1/games/{id}/rifts/{rift}/resolve", limited(s.handleResolveRift))

	// Admin endpoints.
	mux.HandleFunc("POST /api/v1/games", s.adminOnly(s.handleCreateGame))
	mux.HandleFunc("POST /api/v1/games/{id}/turns", s.adminOnly(s.handleAdvanceTurn))
	mux.HandleFunc("POST /api/v1/clock", s.adminOnly(s.handleClock))

	if s.Metrics != nil {
		mux.Handle("GET /metrics", s.Metrics)
	}
	return corsMiddleware(mux)
}

// Start serves the API in a goroutine and returns the server for shutdown.
func (s *Server) Start(addr string) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	return srv
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of extra allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for origin := range strings.SplitSeq(env, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkBearerToken(r *http.Request) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && token == s.AdminKey
}

func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no CHRONOCORE_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	clock := s.Eng.Clock
	status := map[string]any{
		"name":           "ChronoCore",
		"uptime_seconds": int(time.Since(s.started).Seconds()),
		"turns_per_era":  s.Eng.TurnsPerEra,
		"oracle_enabled": s.OracleEnabled,
		"clock": map[string]any{
			"running":  clock.Running(),
			"paused":   clock.Paused(),
			"interval": clock.Interval.String(),
			"round":    clock.Round(),
			"games":    clock.Games(),
		},
	}
	if s.Games != nil {
		if games, err := s.Games.ListGames(r.Context()); err == nil {
			status["games"] = len(games)
		}
	}
	writeJSON(w, status)
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	if s.Games == nil {
		writeJSON(w, []persistence.GameSummary{})
		return
	}
	games, err := s.Games.ListGames(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, games)
}

func (s *Server) handleGame(w http.ResponseWriter, r *http.Request) {
	gs, err := s.Eng.Game(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, gs)
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	a, err := s.Eng.Analyze(r.Context(), r.PathValue("id"), r.PathValue("tid"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, a)
}

func (s *Server) handleNarrative(w http.ResponseWriter, r *http.Request) {
	text, err := s.Eng.NarrateWorld(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"narrative": text})
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		engine.NewGameRequest
		Autoplay bool `json:"autoplay"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	gs, err := s.Eng.NewGame(r.Context(), req.NewGameRequest)
	if err != nil {
		writeError(w, err)
		return
	}
	if req.Autoplay {
		s.Eng.Clock.Register(gs.ID)
	}
	writeJSONStatus(w, http.StatusCreated, gs)
}

func (s *Server) handleAdvanceTurn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Decisions []engine.ResolvedDecision `json:"decisions"`
		Seed      int64                     `json:"seed"`
	}
	// An empty body advances with no decisions.
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	sum, err := s.Eng.AdvanceTurnSeeded(r.Context(), r.PathValue("id"), req.Decisions, req.Seed)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, sum)
}

func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID string            `json:"player_id"`
		Decision string            `json:"decision"`
		Context  map[string]string `json:"context"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.Eng.EvaluateDecision(r.Context(), r.PathValue("id"), req.PlayerID, req.Decision, req.Context)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, res)
}

func (s *Server) handleGenerateQuest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID string `json:"player_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	q, err := s.Eng.GenerateQuest(r.Context(), r.PathValue("id"), req.PlayerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, q)
}

func (s *Server) handleCompleteQuest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID string `json:"player_id"`
		OptionID string `json:"option_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.Eng.CompleteQuest(r.Context(), r.PathValue("id"), req.PlayerID, r.PathValue("qid"), req.OptionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, res)
}

func (s *Server) handleGenerateDilemma(w http.ResponseWriter, r *http.Request) {
	d, err := s.Eng.GenerateDilemma(r.Context(), r.PathValue("id"), r.PathValue("rid"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, d)
}

func (s *Server) handleResolveDilemma(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID string `json:"player_id"`
		OptionID string `json:"option_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.Eng.ResolveDilemma(r.Context(), r.PathValue("id"), r.PathValue("rid"), r.PathValue("did"), req.PlayerID, req.OptionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, res)
}

func (s *Server) handleResolveRift(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID string `json:"player_id"`
		Approach string `json:"approach"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.Eng.ResolveRift(r.Context(), r.PathValue("id"), r.PathValue("rift"), req.PlayerID, req.Approach)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, res)
}

// handleClock pauses, resumes or (un)registers games on the turn clock.
func (s *Server) handleClock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Paused     *bool  `json:"paused"`
		Register   string `json:"register"`
		Unregister string `json:"unregister"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	clock := s.Eng.Clock
	if req.Paused != nil {
		if *req.Paused {
			clock.Pause()
		} else {
			clock.Resume()
		}
		slog.Info("clock changed", "paused", *req.Paused)
	}
	if req.Register != "" {
		if _, err := s.Eng.Game(r.Context(), req.Register); err != nil {
			writeError(w, err)
			return
		}
		clock.Register(req.Register)
	}
	if req.Unregister != "" {
		clock.Unregister(req.Unregister)
	}
	writeJSON(w, map[string]any{"paused": clock.Paused(), "games": clock.Games()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return false
	}
	return true
}

// writeError maps the game error taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case game.IsValidation(err):
		status = http.StatusBadRequest
	case errors.Is(err, game.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, game.ErrStore):
		status = http.StatusServiceUnavailable
		w.Header().Set("Retry-After", "1")
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, data any) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
