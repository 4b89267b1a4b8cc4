package chat

import (
	"context"
	"strconv"
	"strings"

	"github.com/partdeck/partdeck/pkg/llm"
	"github.com/partdeck/partdeck/pkg/logging"
)

// gateMinScore is the lowest score the gate accepts alongside an ALLOW
// verdict.
const gateMinScore = 70

// GateDecision is the outcome of the pre-flight content check.
type GateDecision struct {
	Allowed bool
	Score   int
}

// Gate screens incoming queries before any retrieval happens. It fails open:
// if the gate model errors or returns garbage the query goes through, the
// grounded system prompt is the backstop.
type Gate struct {
	provider llm.Provider
	logger   logging.Logger
}

func NewGate(provider llm.Provider, logger logging.Logger) *Gate {
	return &Gate{provider: provider, logger: logger}
}

func (g *Gate) Evaluate(ctx context.Context, query string) GateDecision {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: GateSystemPrompt},
		{Role: llm.RoleUser, Content: "Query to evaluate: " + query + "\nProvide score and decision:"},
	}

	completion, err := g.provider.Complete(ctx, messages, nil)
	if err != nil {
		if g.logger != nil {
			g.logger.WithError(err).Warn("Content gate call failed, allowing query through")
		}
		return GateDecision{Allowed: true, Score: gateMinScore}
	}

	score, allowed := parseGateResponse(completion.Content)
	return GateDecision{Allowed: allowed && score >= gateMinScore, Score: score}
}

// parseGateResponse reads a verdict like "85 ALLOW". The verdict counts when
// "allow" appears anywhere; the score is the digits of the first token, with
// a fallback of 80 for allowed verdicts that omit the number.
func parseGateResponse(content string) (score int, allowed bool) {
	text := strings.ToLower(strings.TrimSpace(content))
	allowed = strings.Contains(text, "allow")

	fields := strings.Fields(text)
	if len(fields) > 0 {
		var digits strings.Builder
		for _, r := range fields[0] {
			if r >= '0' && r <= '9' {
				digits.WriteRune(r)
			}
		}
		if digits.Len() > 0 {
			if n, err := strconv.Atoi(digits.String()); err == nil {
				return n, allowed
			}
		}
	}

	if allowed {
		return 80, allowed
	}
	return 0, allowed
}
