package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/talgya/chronocore/internal/game"
)

// DilemmaContext is what the dilemma prompt knows about the realm.
type DilemmaContext struct {
	Realm     *game.Realm
	Timeline  string
	Stability float64
	Turn      int
}

type rawDilemma struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Options     []json.RawMessage `json:"options"`
}

// FallbackDilemma is the stock dilemma offered when generation fails.
func FallbackDilemma(r *game.Realm, turn int) game.Dilemma {
	return game.Dilemma{
		ID:          uuid.New().String(),
		Title:       "Crossroads of " + r.Name,
		Description: fmt.Sprintf("The people of %s are divided over how far to push their %s ambitions. Every path forward helps some and costs others.", r.Name, focusNoun(r.Focus)),
		Options: []game.Option{
			{ID: "1", Text: "Slow down and protect those most at risk.", Consequence: "Growth stalls but trust deepens.", KarmaImpact: 3},
			{ID: "2", Text: "Press ahead and let the realm absorb the cost.", Consequence: "Rapid gains at a human price.", KarmaImpact: -3},
			{ID: "3", Text: "Leave the choice to the realm's own councils.", Consequence: "The outcome is theirs to own.", KarmaImpact: 0},
		},
		Fallback:    true,
		CreatedTurn: turn,
	}
}

func focusNoun(f game.Focus) string {
	switch f {
	case game.FocusMilitary:
		return "military"
	case game.FocusScientific:
		return "scientific"
	case game.FocusCultural:
		return "cultural"
	case game.FocusEconomic:
		return "economic"
	case game.FocusSpiritual:
		return "spiritual"
	case game.FocusEcological:
		return "ecological"
	default:
		return "technological"
	}
}

// GenerateDilemma asks the model for an ethical dilemma fitted to the
// realm's level and culture. It never fails.
func (o *Oracle) GenerateDilemma(ctx context.Context, dc DilemmaContext) game.Dilemma {
	r := dc.Realm
	data := struct {
		Name, Description, Timeline string
		Focus                       game.Focus
		Level                       int
		Alignment, Stability        float64
	}{r.Name, r.Description, dc.Timeline, r.Focus, r.DevelopmentLevel, r.EthicalAlignment, dc.Stability}

	prompt, err := Render(StoryGeneration, "ethical_dilemma", data)
	if err != nil {
		o.fallback("dilemma", err)
		return FallbackDilemma(r, dc.Turn)
	}
	resp, err := o.complete(ctx, prompt, 700)
	if err != nil {
		o.fallback("dilemma", err)
		return FallbackDilemma(r, dc.Turn)
	}
	d, err := parseDilemma(resp)
	if err != nil {
		o.fallback("dilemma", err)
		return FallbackDilemma(r, dc.Turn)
	}
	d.CreatedTurn = dc.Turn
	return d
}

func parseDilemma(resp string) (game.Dilemma, error) {
	var rd rawDilemma
	if err := decodeJSON(resp, &rd); err != nil {
		title, desc, opts := parseOptionLines(resp)
		if title == "" || len(opts) == 0 {
			return game.Dilemma{}, err
		}
		return game.Dilemma{ID: uuid.New().String(), Title: title, Description: desc, Options: opts}, nil
	}
	if rd.Title == "" || rd.Description == "" {
		return game.Dilemma{}, fmt.Errorf("dilemma missing title or description: %w", game.ErrOracleParse)
	}
	return game.Dilemma{
		ID:          uuid.New().String(),
		Title:       rd.Title,
		Description: rd.Description,
		Options:     repairOptions(rd.Options),
	}, nil
}
