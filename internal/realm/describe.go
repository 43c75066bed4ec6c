package realm

import (
	"fmt"
	"strings"

	"github.com/talgya/chronocore/internal/game"
)

var techDescriptions = [game.MaxDevelopmentLevel]string{
	"A primitive realm with basic tools and simple machines.",
	"A pre-industrial realm with early mechanical technologies.",
	"An industrial realm with steam power and mass production.",
	"A modern realm with computers and information technology.",
	"An advanced realm with early AI and automation systems.",
	"A highly advanced realm with quantum computing and advanced AI.",
	"A post-scarcity realm with matter manipulation technology.",
	"A realm with molecular manufacturing and complete resource control.",
	"A realm approaching technological singularity.",
	"A transcendent realm with technologies beyond conventional understanding.",
}

// Describe renders the deterministic description of a realm from its level,
// population, focus and alignment.
func Describe(r *game.Realm) string {
	idx := min(game.MaxDevelopmentLevel-1, max(0, r.DevelopmentLevel-1))
	focus := strings.ToLower(string(r.Focus))
	if focus == "" {
		focus = "balanced"
	}
	return fmt.Sprintf("%s: %s It has a %s population with a %s technology focus and a %s society.",
		r.Name, techDescriptions[idx], populationWord(r.Population), focus, ethicsWord(r.EthicalAlignment))
}

func ethicsWord(alignment float64) string {
	switch {
	case alignment > 70:
		return "highly ethical and altruistic"
	case alignment > 30:
		return "generally ethical and cooperative"
	case alignment > -30:
		return "ethically balanced"
	case alignment > -70:
		return "somewhat unethical and self-interested"
	}
	return "highly unethical and exploitative"
}

func populationWord(pop int) string {
	switch {
	case pop > 10_000_000:
		return "massive"
	case pop > 1_000_000:
		return "large"
	case pop > 100_000:
		return "moderate"
	}
	return "small"
}
