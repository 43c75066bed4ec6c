package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/talgya/chronocore/internal/game"
)

// Quest types.
const (
	QuestEthical    = "Ethical"
	QuestTechnical  = "Technical"
	QuestDiplomatic = "Diplomatic"
	QuestTemporal   = "Temporal"
	QuestGeneral    = "General"
)

var questTypes = []string{QuestEthical, QuestTechnical, QuestDiplomatic, QuestTemporal, QuestGeneral}

// Quest difficulty bounds and lifetime in turns.
const (
	MinDifficulty     = 1
	MaxDifficulty     = 5
	DefaultDifficulty = 2
	QuestLifetime     = 5
)

// Quest is a generated quest before it is attached to a player.
type Quest struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Type        string        `json:"type"`
	Difficulty  int           `json:"difficulty"`
	Options     []game.Option `json:"options"`
	Fallback    bool          `json:"fallback,omitempty"`
}

// Record turns the quest into the player's active quest record.
func (q Quest) Record(turn int) game.QuestRecord {
	return game.QuestRecord{
		ID:          q.ID,
		Title:       q.Title,
		Description: q.Description,
		Type:        q.Type,
		Difficulty:  q.Difficulty,
		Options:     slices.Clone(q.Options),
		Status:      game.QuestActive,
		StartedTurn: turn,
		ExpiresTurn: turn + QuestLifetime,
	}
}

// QuestContext is what the quest prompt knows about the player and world.
type QuestContext struct {
	Username  string
	Role      game.Role
	Karma     int
	Realms    []string
	Era       game.Era
	Turn      int
	Stability float64
	Events    []string
}

type rawQuest struct {
	Title       *string           `json:"title"`
	Description *string           `json:"description"`
	Type        *string           `json:"type"`
	Difficulty  any               `json:"difficulty"`
	Options     []json.RawMessage `json:"options"`
}

var questKeywords = []struct {
	kind  string
	words []string
}{
	{QuestEthical, []string{"ethic", "moral", "right", "wrong", "justice"}},
	{QuestTechnical, []string{"tech", "science", "research", "develop"}},
	{QuestDiplomatic, []string{"diplomat", "negotiate", "alliance", "peace"}},
	{QuestTemporal, []string{"time", "chrono", "paradox", "rift"}},
}

// QuestTypeFor guesses a quest type from free text. Keyword groups are
// checked in order; no hit means General.
func QuestTypeFor(text string) string {
	lower := strings.ToLower(text)
	for _, k := range questKeywords {
		for _, w := range k.words {
			if strings.Contains(lower, w) {
				return k.kind
			}
		}
	}
	return QuestGeneral
}

var roleQuests = map[game.Role]Quest{
	game.RoleTechnoMonk: {
		Title:       "Balance of Innovation",
		Description: "A realm's technological advancement has created unforeseen consequences. You must decide how to guide their development while maintaining ethical balance.",
		Type:        QuestEthical,
	},
	game.RoleShadowBroker: {
		Title:       "Hidden Knowledge",
		Description: "You've discovered information that could destabilize a timeline. Determine how to use this knowledge for your advantage without causing a temporal collapse.",
		Type:        QuestDiplomatic,
	},
	game.RoleChronoDiplomat: {
		Title:       "Timeline Negotiation",
		Description: "Two realms are on the brink of conflict that could create a time rift. Negotiate a resolution that preserves timeline stability.",
		Type:        QuestDiplomatic,
	},
	game.RoleBioSmith: {
		Title:       "Ecological Crisis",
		Description: "A realm faces an ecological disaster that threatens their existence. Develop a solution that balances immediate needs with long-term sustainability.",
		Type:        QuestTechnical,
	},
}

var fallbackQuestOptions = []game.Option{
	{ID: "1", Text: "Take direct action to resolve the issue immediately.", Consequence: "Quick resolution but potential unforeseen consequences."},
	{ID: "2", Text: "Gather more information before deciding on a course of action.", Consequence: "Better understanding but the situation may worsen while you investigate."},
	{ID: "3", Text: "Collaborate with other players to find a solution.", Consequence: "Combined resources but shared responsibility for outcomes."},
}

// FallbackQuest is the stock quest for a role.
func FallbackQuest(role game.Role) Quest {
	q, ok := roleQuests[role]
	if !ok {
		q = Quest{
			Title:       "Temporal Anomaly",
			Description: "A mysterious anomaly has appeared in a nearby realm. Investigate its cause and determine how to address it.",
			Type:        QuestTemporal,
		}
	}
	q.ID = uuid.New().String()
	q.Difficulty = DefaultDifficulty
	q.Options = slices.Clone(fallbackQuestOptions)
	q.Fallback = true
	return q
}

// GenerateQuest asks the model for a quest tailored to the player. It never
// fails: an unusable answer yields the role's fallback quest.
func (o *Oracle) GenerateQuest(ctx context.Context, qc QuestContext) Quest {
	prompt, err := Render(StoryGeneration, "quest_creation", qc)
	if err != nil {
		o.fallback("quest", err)
		return FallbackQuest(qc.Role)
	}
	resp, err := o.complete(ctx, prompt, 800)
	if err != nil {
		o.fallback("quest", err)
		return FallbackQuest(qc.Role)
	}
	q, err := parseQuest(resp)
	if err != nil {
		o.fallback("quest", err)
		return FallbackQuest(qc.Role)
	}
	return q
}

// parseQuest reads a quest from a JSON answer, or from the loose
// title/description/options text layout when no JSON object is present.
func parseQuest(resp string) (Quest, error) {
	var rq rawQuest
	if err := decodeJSON(resp, &rq); err != nil {
		title, desc, opts := parseOptionLines(resp)
		if title == "" || len(opts) == 0 {
			return Quest{}, err
		}
		return Quest{
			ID:          uuid.New().String(),
			Title:       title,
			Description: desc,
			Type:        QuestTypeFor(desc),
			Difficulty:  DefaultDifficulty,
			Options:     opts,
		}, nil
	}
	return repairQuest(rq), nil
}

// repairQuest fills in missing fields and normalizes type, difficulty and
// options.
func repairQuest(rq rawQuest) Quest {
	q := Quest{
		ID:          uuid.New().String(),
		Title:       "Mysterious Quest",
		Description: "A mysterious challenge awaits you.",
		Type:        QuestGeneral,
		Difficulty:  DefaultDifficulty,
	}
	if rq.Title != nil && *rq.Title != "" {
		q.Title = *rq.Title
	}
	if rq.Description != nil && *rq.Description != "" {
		q.Description = *rq.Description
	}
	if rq.Type != nil {
		if t, ok := normalizeQuestType(*rq.Type); ok {
			q.Type = t
		}
	}
	if d, ok := rq.Difficulty.(float64); ok && d == math.Trunc(d) && d >= MinDifficulty && d <= MaxDifficulty {
		q.Difficulty = int(d)
	}
	q.Options = repairOptions(rq.Options)
	return q
}

func normalizeQuestType(s string) (string, bool) {
	for _, t := range questTypes {
		if strings.EqualFold(t, strings.TrimSpace(s)) {
			return t, true
		}
	}
	return "", false
}

// QuestOutcome is the judged result of completing a quest.
type QuestOutcome struct {
	Description     string   `json:"outcome_description"`
	KarmaImpact     int      `json:"karma_impact"`
	RealmEffects    string   `json:"realm_effects"`
	TimelineEffects string   `json:"timeline_effects"`
	Rewards         []string `json:"rewards"`
	Consequences    []string `json:"consequences"`
	Fallback        bool     `json:"fallback,omitempty"`
}

// OutcomeContext describes a quest being completed.
type OutcomeContext struct {
	Role     game.Role
	Karma    int
	Era      game.Era
	Turn     int
	Quest    game.QuestRecord
	OptionID string
}

// SelectedOption finds the chosen option, falling back to the first one.
func SelectedOption(q game.QuestRecord, optionID string) (game.Option, bool) {
	for _, o := range q.Options {
		if o.ID == optionID {
			return o, true
		}
	}
	if len(q.Options) > 0 {
		return q.Options[0], false
	}
	return game.Option{}, false
}

// FallbackOutcome is the neutral outcome used when judging fails.
func FallbackOutcome(q game.QuestRecord, choice string) QuestOutcome {
	if choice == "" {
		choice = "your choice"
	}
	title := q.Title
	if title == "" {
		title = "Unknown Quest"
	}
	return QuestOutcome{
		Description:     fmt.Sprintf("You completed the quest '%s' by choosing to %s. The consequences of your actions will unfold over time.", title, choice),
		RealmEffects:    "The realms continue on their current trajectory.",
		TimelineEffects: "No significant changes to timeline stability detected.",
		Rewards:         []string{"Experience gained from completing the quest"},
		Consequences:    []string{"Your decision will influence future events in ways yet to be seen"},
		Fallback:        true,
	}
}

type rawOutcome struct {
	Description     string   `json:"outcome_description"`
	KarmaImpact     float64  `json:"karma_impact"`
	RealmEffects    string   `json:"realm_effects"`
	TimelineEffects string   `json:"timeline_effects"`
	Rewards         []string `json:"rewards"`
	Consequences    []string `json:"consequences"`
}

// EvaluateQuestOutcome judges the player's chosen option. An unknown option
// id is treated as the first option. Karma is clamped to ±MaxKarmaDelta.
func (o *Oracle) EvaluateQuestOutcome(ctx context.Context, oc OutcomeContext) QuestOutcome {
	opt, _ := SelectedOption(oc.Quest, oc.OptionID)
	data := struct {
		OutcomeContext
		Title, Description, Type, Choice string
		Difficulty                       int
	}{oc, oc.Quest.Title, oc.Quest.Description, oc.Quest.Type, opt.Text, oc.Quest.Difficulty}

	prompt, err := Render(DecisionEvaluation, "quest_outcome", data)
	if err != nil {
		o.fallback("quest_outcome", err)
		return FallbackOutcome(oc.Quest, opt.Text)
	}
	resp, err := o.complete(ctx, prompt, 600)
	if err != nil {
		o.fallback("quest_outcome", err)
		return FallbackOutcome(oc.Quest, opt.Text)
	}
	var ro rawOutcome
	if err := decodeJSON(resp, &ro); err != nil {
		o.fallback("quest_outcome", err)
		return FallbackOutcome(oc.Quest, opt.Text)
	}
	out := QuestOutcome{
		Description:     ro.Description,
		KarmaImpact:     clampKarma(ro.KarmaImpact),
		RealmEffects:    ro.RealmEffects,
		TimelineEffects: ro.TimelineEffects,
		Rewards:         ro.Rewards,
		Consequences:    ro.Consequences,
	}
	if out.Description == "" {
		out.Description = FallbackOutcome(oc.Quest, opt.Text).Description
	}
	return out
}
