// Package gate decides whether a turn is worth remembering at all, before
// any summarization or storage work happens (spec §4.9, C7).
package gate

import (
	"context"
	"strings"

	"github.com/hassan123789/cogmem/internal/cogmem/telemetry"
)

// retentionPhrases trigger the fast path: an explicit ask to remember
// bypasses the generator entirely.
var retentionPhrases = []string{
	"remember this", "don't forget", "take a note", "keep this in mind",
}

const gateSystemPrompt = `You decide whether an exchange between a user and an assistant is worth ` +
	`storing in long-term memory. Answer YES if the exchange contains identity-defining ` +
	`content, high emotional intensity, a decision or commitment, or something relationally ` +
	`significant. Otherwise answer NO. Reply with a single word, YES or NO.`

// Completer is the subset of the generator contract the Gate needs.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, prompt string) (string, error)
}

// Gate is the retention policy described in spec §4.9.
type Gate struct {
	generator Completer
	log       *telemetry.Logger
	enabled   bool
}

// New builds a Gate. When enabled is false, ShouldRemember always returns
// true without consulting the generator — this matches
// memory.enable_gating=false, where every exchange is unconditionally
// considered for storage.
func New(generator Completer, log *telemetry.Logger, enabled bool) *Gate {
	return &Gate{generator: generator, log: log, enabled: enabled}
}

// ShouldRemember runs the three-step decision sequence from spec §4.9: a
// fast keyword path, then a generator yes/no question, then a conservative
// true on generator failure.
func (g *Gate) ShouldRemember(ctx context.Context, userMessage, assistantMessage string) bool {
	lower := strings.ToLower(userMessage)
	for _, phrase := range retentionPhrases {
		if strings.Contains(lower, phrase) {
			g.log.Emit(telemetry.KindGateDecision, map[string]any{
				"decision": true,
				"reason":   "retention_phrase",
			})
			return true
		}
	}

	if !g.enabled {
		g.log.Emit(telemetry.KindGateDecision, map[string]any{
			"decision": true,
			"reason":   "gating_disabled",
		})
		return true
	}

	prompt := "User: " + userMessage + "\nAssistant: " + assistantMessage
	reply, err := g.generator.Complete(ctx, gateSystemPrompt, prompt)
	if err != nil {
		g.log.Emit(telemetry.KindGateError, map[string]any{"error": err.Error()})
		return true
	}

	decision := strings.HasPrefix(strings.ToUpper(strings.TrimSpace(reply)), "YES")
	g.log.Emit(telemetry.KindGateDecision, map[string]any{
		"decision": decision,
		"reason":   "generator",
	})
	return decision
}
