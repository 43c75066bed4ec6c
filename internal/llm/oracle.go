package llm

import (
	"context"
	"errors"
	"log/slog"
)

const systemPrompt = `You are the game master of ChronoCore: Path of Realities, a board game about time manipulation, technology and ethical choice. Players steer realms across several timelines; their decisions earn or cost karma and can tear the timelines apart. Stay in the game's world and never mention that it is a simulation.`

// Oracle generates narrative content for the game. A nil or disabled
// Completer is allowed: every method then returns its fallback.
type Oracle struct {
	llm        Completer
	onFallback func(kind string)
}

// NewOracle wraps a Completer.
func NewOracle(c Completer) *Oracle {
	return &Oracle{llm: c}
}

// OnFallback registers a hook called whenever a generator substitutes its
// fallback record. kind names the generator.
func (o *Oracle) OnFallback(fn func(kind string)) {
	o.onFallback = fn
}

func (o *Oracle) complete(ctx context.Context, user string, maxTokens int) (string, error) {
	if o == nil || o.llm == nil {
		return "", ErrDisabled
	}
	return o.llm.Complete(ctx, systemPrompt, user, maxTokens)
}

func (o *Oracle) fallback(kind string, err error) {
	if errors.Is(err, ErrDisabled) {
		slog.Debug("oracle fallback", "kind", kind)
	} else {
		slog.Warn("oracle fallback", "kind", kind, "error", err)
	}
	if o != nil && o.onFallback != nil {
		o.onFallback(kind)
	}
}
