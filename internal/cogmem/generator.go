package cogmem

import (
	"context"

	"github.com/hassan123789/cogmem/internal/embedding"
)

// Generator is the one external collaborator the memory subsystem
// consumes: chat completion (used by the Gate, Summarizer, semantic
// extraction, and relational analysis) and embedding (used everywhere a
// vector is needed). The memory subsystem owns neither; it is built on
// top of internal/llm.Client and internal/embedding.TaskAwareEmbedder.
type Generator interface {
	embedding.TaskAwareEmbedder

	// Complete asks the generator a free-form question and returns its
	// text response. Used by the Gate, Summarizer, semantic extraction,
	// and relational analysis — none of which need tool calling.
	Complete(ctx context.Context, systemPrompt, prompt string) (string, error)
}
