// Package summarizer condenses a single exchange into the 1-2 sentence,
// first-person summary stored on an Episode (spec §4.9, C6).
package summarizer

import (
	"context"
	"strings"
)

const maxPriorTurns = 3

const summarizerSystemPrompt = `Summarize the following exchange in 1-2 sentences, written in the ` +
	`first person from the assistant's point of view. Be concise and concrete. Do not add ` +
	`commentary outside the summary.`

const mechanicalTruncationLimit = 160

// Completer is the subset of the generator contract the Summarizer needs.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, prompt string) (string, error)
}

// Turn is one prior exchange, used as optional context for the summary.
type Turn struct {
	User      string
	Assistant string
}

// Summarizer produces the first-person summary stored on each Episode.
type Summarizer struct {
	generator Completer
}

// New builds a Summarizer.
func New(generator Completer) *Summarizer {
	return &Summarizer{generator: generator}
}

// Summarize asks the generator for a 1-2 sentence first-person summary of
// userMessage/assistantMessage, optionally given up to the last 3 prior
// turns as context. On generator failure it falls back to a mechanical
// truncation of the two strings.
func (s *Summarizer) Summarize(ctx context.Context, userMessage, assistantMessage string, priorTurns []Turn) string {
	prompt := buildPrompt(userMessage, assistantMessage, priorTurns)

	summary, err := s.generator.Complete(ctx, summarizerSystemPrompt, prompt)
	if err != nil || strings.TrimSpace(summary) == "" {
		return mechanicalFallback(userMessage, assistantMessage)
	}

	return strings.TrimSpace(summary)
}

func buildPrompt(userMessage, assistantMessage string, priorTurns []Turn) string {
	var b strings.Builder

	if len(priorTurns) > 0 {
		start := 0
		if len(priorTurns) > maxPriorTurns {
			start = len(priorTurns) - maxPriorTurns
		}
		b.WriteString("Prior context:\n")
		for _, t := range priorTurns[start:] {
			b.WriteString("User: ")
			b.WriteString(t.User)
			b.WriteString("\nAssistant: ")
			b.WriteString(t.Assistant)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("Exchange to summarize:\nUser: ")
	b.WriteString(userMessage)
	b.WriteString("\nAssistant: ")
	b.WriteString(assistantMessage)

	return b.String()
}

// mechanicalFallback builds a deterministic, first-person-flavored summary
// from raw truncation when the generator is unavailable.
func mechanicalFallback(userMessage, assistantMessage string) string {
	return "The user said: " + truncate(userMessage) + " I replied: " + truncate(assistantMessage)
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= mechanicalTruncationLimit {
		return s
	}
	return s[:mechanicalTruncationLimit] + "..."
}
