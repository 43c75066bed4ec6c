package llm

import (
	"context"

	"github.com/talgya/chronocore/internal/game"
	"github.com/talgya/chronocore/internal/karma"
)

// DecisionContext is a free-text decision and the situation it was made in.
type DecisionContext struct {
	Role     game.Role
	Karma    int
	Era      game.Era
	Turn     int
	Decision string
	Context  map[string]string
}

// Judgement is the model's evaluation of a decision.
type Judgement struct {
	karma.Evaluation
	AffectedRealms []string `json:"affected_realms"`
	Explanation    string   `json:"explanation"`
	Fallback       bool     `json:"fallback,omitempty"`
}

// FallbackJudgement is the neutral evaluation used when judging fails.
func FallbackJudgement() Judgement {
	return Judgement{
		Evaluation: karma.Evaluation{
			EthicalImpact:       "Unable to determine ethical impact",
			TechnologicalImpact: "Unable to determine technological impact",
			TemporalImpact:      "Unable to determine temporal impact",
		},
		Explanation: "Unable to evaluate decision",
		Fallback:    true,
	}
}

type rawJudgement struct {
	KarmaImpact         float64  `json:"karma_impact"`
	EthicalImpact       string   `json:"ethical_impact"`
	TechnologicalImpact string   `json:"technological_impact"`
	TemporalImpact      string   `json:"temporal_impact"`
	AffectedRealms      []string `json:"affected_realms"`
	Explanation         string   `json:"explanation"`
}

// EvaluateDecision scores a decision's karma and describes its ethical,
// technological and temporal impact. The karma score is clamped to
// ±MaxKarmaDelta. It never fails.
func (o *Oracle) EvaluateDecision(ctx context.Context, dc DecisionContext) Judgement {
	prompt, err := Render(DecisionEvaluation, "ethical_analysis", dc)
	if err != nil {
		o.fallback("decision", err)
		return FallbackJudgement()
	}
	resp, err := o.complete(ctx, prompt, 600)
	if err != nil {
		o.fallback("decision", err)
		return FallbackJudgement()
	}
	var rj rawJudgement
	if err := decodeJSON(resp, &rj); err != nil {
		o.fallback("decision", err)
		return FallbackJudgement()
	}
	fb := FallbackJudgement()
	j := Judgement{
		Evaluation: karma.Evaluation{
			KarmaScore:          clampKarma(rj.KarmaImpact),
			EthicalImpact:       orDefault(rj.EthicalImpact, fb.EthicalImpact),
			TechnologicalImpact: orDefault(rj.TechnologicalImpact, fb.TechnologicalImpact),
			TemporalImpact:      orDefault(rj.TemporalImpact, fb.TemporalImpact),
		},
		AffectedRealms: rj.AffectedRealms,
		Explanation:    orDefault(rj.Explanation, fb.Explanation),
	}
	return j
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
