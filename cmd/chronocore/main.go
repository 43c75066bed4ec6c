// Command chronocore serves ChronoCore games over HTTP and, when a turn
// interval is configured, advances stored games on a clock.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/talgya/chronocore/internal/api"
	"github.com/talgya/chronocore/internal/config"
	"github.com/talgya/chronocore/internal/engine"
	"github.com/talgya/chronocore/internal/entropy"
	"github.com/talgya/chronocore/internal/llm"
	"github.com/talgya/chronocore/internal/metrics"
	"github.com/talgya/chronocore/internal/persistence"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	slog.Info("ChronoCore starting",
		"db", cfg.DBPath,
		"addr", cfg.Addr(),
		"turn_interval", cfg.TurnInterval,
		"turns_per_era", cfg.TurnsPerEra,
	)

	// ── Database ──────────────────────────────────────────────────────
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			slog.Error("failed to create data directory", "dir", dir, "error", err)
			os.Exit(1)
		}
	}
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// ── Metrics ───────────────────────────────────────────────────────
	m := metrics.New()

	// ── Oracle ────────────────────────────────────────────────────────
	llmClient := llm.NewClient(cfg.AnthropicKey)
	var completer llm.Completer
	if llmClient != nil {
		completer = llmClient
		slog.Info("narrative oracle enabled")
	} else {
		slog.Warn("ANTHROPIC_API_KEY not set, narrative content will use fallbacks")
	}
	oracle := llm.NewOracle(completer)
	oracle.OnFallback(m.OracleFallback)

	// ── Seeds ─────────────────────────────────────────────────────────
	var seeds entropy.Source = entropy.NewClient(cfg.RandomOrgKey)
	switch {
	case cfg.Seed != 0:
		seeds = entropy.NewSequence(cfg.Seed)
		slog.Info("using fixed seed sequence", "start", cfg.Seed)
	case cfg.RandomOrgKey == "":
		slog.Info("RANDOM_ORG_API_KEY not set, seeding from crypto/rand")
	}

	eng := engine.New(engine.Deps{
		Store:       db,
		Oracle:      oracle,
		Seeds:       seeds,
		Metrics:     m,
		TurnsPerEra: cfg.TurnsPerEra,
	})
	eng.Clock.Interval = cfg.TurnInterval

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Autoplay ──────────────────────────────────────────────────────
	if cfg.TurnInterval > 0 {
		games, err := db.ListGames(ctx)
		if err != nil {
			slog.Error("failed to list games", "error", err)
			os.Exit(1)
		}
		for _, g := range games {
			eng.Clock.Register(g.ID)
		}
		slog.Info("autoplay enabled", "games", len(games), "interval", cfg.TurnInterval)
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.AdminKey == "" {
		slog.Warn("CHRONOCORE_ADMIN_KEY not set, admin endpoints will be disabled")
	}
	apiServer := &api.Server{
		Eng:           eng,
		Games:         db,
		Metrics:       m.Handler(),
		AdminKey:      cfg.AdminKey,
		OracleEnabled: llmClient.Enabled(),
	}
	srv := apiServer.Start(cfg.Addr())

	fmt.Printf("API: http://localhost%s/api/v1/status\n", cfg.Addr())

	eng.Clock.Run(ctx)

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}
	if v, err := db.GetMeta("last_saved_game"); err == nil && v != "" {
		slog.Info("last saved game", "game", v)
	}
	fmt.Println("ChronoCore stopped.")
}
