package llm

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/talgya/chronocore/internal/game"
	"github.com/talgya/chronocore/internal/scoremath"
)

// extractJSON cuts the first '{' to the last '}' out of a model response,
// ignoring code fences and any prose around the object.
func extractJSON(resp string) (string, error) {
	resp = strings.TrimSpace(resp)
	resp = strings.TrimPrefix(resp, "```json")
	resp = strings.TrimPrefix(resp, "```")
	resp = strings.TrimSuffix(resp, "```")

	start := strings.Index(resp, "{")
	end := strings.LastIndex(resp, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("no JSON object in response: %w", game.ErrOracleParse)
	}
	return resp[start : end+1], nil
}

// decodeJSON extracts and unmarshals the object in resp into v.
func decodeJSON(resp string, v any) error {
	raw, err := extractJSON(resp)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("%w: %w", game.ErrOracleParse, err)
	}
	return nil
}

// rawOption is an option as the model writes it. Ids arrive as numbers or
// strings and karma may be fractional.
type rawOption struct {
	ID          any      `json:"id"`
	Text        string   `json:"text"`
	Outcome     string   `json:"potential_outcome"`
	KarmaImpact *float64 `json:"karma_impact"`
}

var defaultOptions = []game.Option{
	{ID: "1", Text: "Accept the challenge", Consequence: "Unknown consequences await"},
	{ID: "2", Text: "Decline the challenge", Consequence: "Opportunity lost, but safety preserved"},
}

// repairOptions fills in whatever the model left out. Entries that are not
// objects become a generic action; an empty list becomes accept/decline.
func repairOptions(raw []json.RawMessage) []game.Option {
	if len(raw) == 0 {
		return append([]game.Option(nil), defaultOptions...)
	}
	out := make([]game.Option, 0, len(raw))
	for i, msg := range raw {
		n := strconv.Itoa(i + 1)
		var ro rawOption
		if err := json.Unmarshal(msg, &ro); err != nil {
			out = append(out, game.Option{ID: n, Text: "Take action", Consequence: "Unknown consequences"})
			continue
		}
		opt := game.Option{ID: optionID(ro.ID, n), Text: ro.Text, Consequence: ro.Outcome}
		if opt.Text == "" {
			opt.Text = "Option " + n
		}
		if opt.Consequence == "" {
			opt.Consequence = "Unknown consequences"
		}
		if ro.KarmaImpact != nil {
			opt.KarmaImpact = clampKarma(*ro.KarmaImpact)
		}
		out = append(out, opt)
	}
	return out
}

func optionID(v any, def string) string {
	switch id := v.(type) {
	case string:
		if id != "" {
			return id
		}
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	}
	return def
}

func clampKarma(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return scoremath.Clamp(scoremath.Round(v), -game.MaxKarmaDelta, game.MaxKarmaDelta)
}

var (
	optionLine  = regexp.MustCompile(`(?i)^(?:-\s*)?option\s+`)
	karmaSigned = regexp.MustCompile(`(?i)karma[^+\-\d]*([+-])\s*(\d+)`)
)

// parseOptionLines reads the loose plain-text layout models fall back to when
// they ignore the JSON instruction: a title line, description lines, then
// lines starting with "Option". A signed number after the word karma becomes
// the option's karma impact.
func parseOptionLines(resp string) (title, description string, options []game.Option) {
	lines := strings.Split(strings.TrimSpace(resp), "\n")
	if len(lines) == 0 {
		return "", "", nil
	}
	title = strings.Trim(strings.TrimSpace(lines[0]), "#* ")
	var desc []string
	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !optionLine.MatchString(line) {
			if len(options) == 0 {
				desc = append(desc, line)
			}
			continue
		}
		text := line
		if _, after, ok := strings.Cut(line, ":"); ok {
			text = strings.TrimSpace(after)
		}
		opt := game.Option{ID: strconv.Itoa(len(options) + 1), Text: text}
		if m := karmaSigned.FindStringSubmatch(text); m != nil {
			n, _ := strconv.Atoi(m[2])
			if m[1] == "-" {
				n = -n
			}
			opt.KarmaImpact = scoremath.Clamp(n, -game.MaxKarmaDelta, game.MaxKarmaDelta)
		}
		options = append(options, opt)
	}
	return title, strings.Join(desc, " "), options
}
