package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/talgya/chronocore/internal/game"
)

// DescribeRealm writes fresh flavor text for a realm that has just advanced.
// Unlike the other generators it returns the error, so the caller can pick
// its own fallback.
func (o *Oracle) DescribeRealm(ctx context.Context, r *game.Realm) (string, error) {
	data := struct {
		Name, Description string
		Focus             game.Focus
		Level             int
		Alignment         float64
	}{r.Name, r.Description, r.Focus, r.DevelopmentLevel, r.EthicalAlignment}

	prompt, err := Render(RealmDevelopment, "technological_advancement", data)
	if err != nil {
		return "", err
	}
	resp, err := o.complete(ctx, prompt, 250)
	if err != nil {
		return "", fmt.Errorf("describe realm: %w", err)
	}
	text := strings.TrimSpace(resp)
	if text == "" {
		return "", fmt.Errorf("describe realm: empty text: %w", game.ErrOracleParse)
	}
	return text, nil
}

// NarrateRift describes a freshly opened time rift, falling back to the
// rift's stock description.
func (o *Oracle) NarrateRift(ctx context.Context, rift *game.TimeRift, realmName, timelineName string) string {
	data := struct {
		Severity                     int
		Realm, Timeline, Description string
	}{rift.Severity, realmName, timelineName, rift.Description}

	prompt, err := Render(TimeAnomalies, "rift_generation", data)
	if err != nil {
		o.fallback("rift", err)
		return rift.Description
	}
	resp, err := o.complete(ctx, prompt, 250)
	if err != nil || strings.TrimSpace(resp) == "" {
		o.fallback("rift", err)
		return rift.Description
	}
	return strings.TrimSpace(resp)
}

// NarrateResolution describes the closing of a rift by the given approach.
func (o *Oracle) NarrateResolution(ctx context.Context, rift *game.TimeRift, approach string) string {
	def := fmt.Sprintf("The rift in %s closes and local time settles back into its course.", rift.Location.RealmID)
	if approach == "" {
		approach = "Direct stabilization of the anomaly."
	}
	prompt, err := Render(TimeAnomalies, "paradox_resolution", struct{ Paradox, Approach string }{rift.Description, approach})
	if err != nil {
		o.fallback("resolution", err)
		return def
	}
	resp, err := o.complete(ctx, prompt, 250)
	if err != nil || strings.TrimSpace(resp) == "" {
		o.fallback("resolution", err)
		return def
	}
	return strings.TrimSpace(resp)
}

// NarrateWorld writes a paragraph on the state of the game, falling back to
// the plain state summary.
func (o *Oracle) NarrateWorld(ctx context.Context, gs *game.State) string {
	events := make([]string, 0, 5)
	for _, e := range gs.RecentEvents(5) {
		events = append(events, e.Description)
	}
	data := struct {
		Era     game.Era
		Turn    int
		Summary string
		Events  []string
	}{gs.Era, gs.Turn, gs.Summary(), events}

	prompt, err := Render(StoryGeneration, "world_description", data)
	if err != nil {
		o.fallback("world", err)
		return gs.Summary()
	}
	resp, err := o.complete(ctx, prompt, 400)
	if err != nil || strings.TrimSpace(resp) == "" {
		o.fallback("world", err)
		return gs.Summary()
	}
	return strings.TrimSpace(resp)
}
