package realm

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/talgya/chronocore/internal/game"
	"github.com/talgya/chronocore/internal/scoremath"
)

// EventData parameterizes one realm event. Zero values fall back to the
// defaults of each event model: severity 1, importance 1, magnitude 5,
// resource amount 20, population amount 5000.
type EventData struct {
	Type        game.EventType `json:"type"`
	Name        string         `json:"name,omitempty"`
	Description string         `json:"description,omitempty"`
	Severity    int            `json:"severity,omitempty"`
	Importance  int            `json:"importance,omitempty"`
	Direction   int            `json:"direction,omitempty"`
	Magnitude   int            `json:"magnitude,omitempty"`
	Amount      int            `json:"amount,omitempty"`
}

// Outcome is the readable summary and structured effects of an event.
// Result classifies the event for the timeline log.
type Outcome struct {
	Description string         `json:"description"`
	Effects     map[string]int `json:"effects"`
	Result      string         `json:"result"`
}

var (
	disasterNames  = []string{"natural disaster", "technological failure", "disease outbreak", "social unrest"}
	discoveryNames = []string{"scientific breakthrough", "technological innovation", "cultural renaissance", "resource extraction method"}
	baseWeights    = []float64{0.15, 0.25, 0.2, 0.2, 0.2}
)

// ProcessEvent applies one discrete event to r. Unknown event types are a
// ValidationError and leave r untouched.
func (s *Simulator) ProcessEvent(ctx context.Context, r *game.Realm, eventType game.EventType, data EventData, rng *rand.Rand) (Outcome, error) {
	seedProgress(r)
	var out Outcome

	switch eventType {
	case game.EventDisaster:
		severity := defaultInt(data.Severity, 1)
		resourceImpact := float64(-severity * (10 + randInt(rng, 5, 20)))
		populationImpact := float64(-severity * (1000 + randInt(rng, 500, 2000)))

		mitigation := min(0.8, float64(r.DevelopmentLevel)*0.1)
		res := int(resourceImpact * (1 - mitigation))
		pop := int(populationImpact * (1 - mitigation))

		r.Resources = max(game.MinResources, r.Resources+res)
		r.Population = scoremath.Clamp(r.Population+pop, game.MinPopulation, game.MaxPopulation)

		out.Description = fmt.Sprintf("A %s has struck %s, causing significant damage.", defaultString(data.Name, "disaster"), r.Name)
		// The development figure is reported only; levels never drop.
		out.Effects = map[string]int{"resources": res, "population": pop, "development": -severity}
		out.Result = game.OutcomeNegative

	case game.EventDiscovery:
		importance := defaultInt(data.Importance, 1)
		res := importance * (5 + randInt(rng, 5, 15))
		dev := importance * (10 + randInt(rng, 5, 20))

		r.Resources += res
		r.DevelopmentProgress += dev
		s.applyLevel(ctx, r)

		out.Description = fmt.Sprintf("A significant %s has been made in %s, advancing their technology.", defaultString(data.Name, "discovery"), r.Name)
		out.Effects = map[string]int{"resources": res, "development": dev, "tech_level": r.DevelopmentLevel}
		out.Result = game.OutcomePositive

	case game.EventCulturalShift:
		magnitude := defaultInt(data.Magnitude, 5)
		impact := data.Direction * magnitude
		r.EthicalAlignment = scoremath.Clamp(r.EthicalAlignment+float64(impact), -game.MaxAlignment, game.MaxAlignment)

		out.Description = fmt.Sprintf("A %s cultural shift has occurred in %s, changing their ethical alignment.", shiftWord(data.Direction), r.Name)
		out.Effects = map[string]int{"ethical_alignment": impact}
		out.Result = game.OutcomeOf(impact)

	case game.EventResourceDiscovery:
		amount := defaultInt(data.Amount, 20)
		r.Resources = max(game.MinResources, r.Resources+amount)

		out.Description = fmt.Sprintf("New resources have been discovered in %s, increasing their available resources.", r.Name)
		out.Effects = map[string]int{"resources": amount}
		out.Result = game.OutcomeOf(amount)

	case game.EventPopulationChange:
		amount := defaultInt(data.Amount, 5000)
		r.Population = scoremath.Clamp(r.Population+amount, game.MinPopulation, game.MaxPopulation)

		if amount > 0 {
			out.Description = fmt.Sprintf("A significant population increase has occurred in %s.", r.Name)
		} else {
			out.Description = fmt.Sprintf("A significant population decrease has occurred in %s.", r.Name)
		}
		out.Effects = map[string]int{"population": amount}
		out.Result = game.OutcomeOf(amount)

	default:
		return Outcome{}, game.Invalid("event_type", "unknown event type %q", eventType)
	}

	r.ClampBounds()
	return out, nil
}

// EventChance is the per-turn probability that a realm sees an event.
func EventChance(r *game.Realm, stability float64) float64 {
	return 0.2 + float64(r.DevelopmentLevel)*0.02 + (100-stability)*0.002
}

// EventWeights returns the normalized sampling weights for game.EventTypes
// given the realm's state.
func EventWeights(r *game.Realm) []float64 {
	w := append([]float64(nil), baseWeights...)
	if r.Resources < 30 {
		w[3] += 0.1
	}
	if r.DevelopmentLevel > 5 {
		w[1] += 0.1
		w[0] -= 0.05
	}
	total := 0.0
	for _, x := range w {
		total += x
	}
	for i := range w {
		w[i] /= total
	}
	return w
}

// GenerateEvent rolls for a random event on r. It returns nil when no event
// occurs this turn.
func GenerateEvent(r *game.Realm, stability float64, rng *rand.Rand) *EventData {
	if rng.Float64() > EventChance(r, stability) {
		return nil
	}

	eventType := pick(rng, EventWeights(r))
	data := &EventData{Type: eventType}

	switch eventType {
	case game.EventDisaster:
		data.Severity = randInt(rng, 1, 3)
		data.Name = disasterNames[rng.Intn(len(disasterNames))]
		data.Description = fmt.Sprintf("A %d-level disaster has occurred in %s.", data.Severity, r.Name)

	case game.EventDiscovery:
		data.Importance = randInt(rng, 1, 4)
		data.Name = discoveryNames[rng.Intn(len(discoveryNames))]
		data.Description = fmt.Sprintf("An importance level %d discovery has been made in %s.", data.Importance, r.Name)

	case game.EventCulturalShift:
		data.Direction = rng.Intn(3) - 1
		data.Magnitude = randInt(rng, 3, 10)
		data.Description = fmt.Sprintf("A %s cultural shift of magnitude %d is occurring in %s.", shiftWord(data.Direction), data.Magnitude, r.Name)

	case game.EventResourceDiscovery:
		data.Amount = randInt(rng, 10, 50)
		data.Description = fmt.Sprintf("New resources worth %d units have been discovered in %s.", data.Amount, r.Name)

	case game.EventPopulationChange:
		direction := -1
		if rng.Float64() > 0.3 {
			direction = 1
		}
		data.Amount = direction * randInt(rng, 1000, 10000)
		word := "increase"
		if data.Amount < 0 {
			word = "decrease"
		}
		data.Description = fmt.Sprintf("A population %s of %d is occurring in %s.", word, abs(data.Amount), r.Name)
	}
	return data
}

func pick(rng *rand.Rand, weights []float64) game.EventType {
	x := rng.Float64()
	acc := 0.0
	for i, w := range weights {
		acc += w
		if x < acc {
			return game.EventTypes[i]
		}
	}
	return game.EventTypes[len(game.EventTypes)-1]
}

func shiftWord(direction int) string {
	switch {
	case direction > 0:
		return "positive"
	case direction < 0:
		return "negative"
	}
	return "neutral"
}

func defaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
