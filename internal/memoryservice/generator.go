package memoryservice

import (
	"context"

	"github.com/hassan123789/cogmem/internal/embedding"
	"github.com/hassan123789/cogmem/internal/llm"
)

// generatorAdapter implements cogmem.Generator by composing an llm.Client
// (for chat completion) with an embedding.Embedder (for vectors). It is
// the single point translating the memory subsystem's narrow generator
// contract into the application's existing provider clients.
type generatorAdapter struct {
	chat     llm.Client
	embedder embedding.Embedder
	model    string
}

// newGeneratorAdapter builds a generatorAdapter. model is stored as given
// and not sent with requests: Complete uses the model chat was built
// with for gate/summarizer/consolidation prompts. The embedder is
// shared across all task types since the pack carries no asymmetric
// storage/query embedding provider.
func newGeneratorAdapter(chat llm.Client, embedder embedding.Embedder, model string) *generatorAdapter {
	return &generatorAdapter{chat: chat, embedder: embedder, model: model}
}

// Embed degrades to a zero vector (rather than propagating the error) on
// provider failure, per embedding.TaskAwareEmbedder's sentinel contract.
func (g *generatorAdapter) Embed(ctx context.Context, text string, _ embedding.TaskType) (embedding.Vector, error) {
	vec, err := g.embedder.Embed(ctx, text)
	if err != nil {
		return make(embedding.Vector, g.embedder.Dimension()), nil
	}
	return vec, nil
}

// EmbedBatch chunks texts to embedding.MaxEmbedBatchSize before calling
// the underlying provider, and degrades failed chunks to zero vectors so
// one bad chunk doesn't drop the whole batch.
func (g *generatorAdapter) EmbedBatch(ctx context.Context, texts []string, _ embedding.TaskType) ([]embedding.Vector, error) {
	out := make([]embedding.Vector, 0, len(texts))
	for _, chunk := range embedding.ChunkTexts(texts) {
		vecs, err := g.embedder.EmbedBatch(ctx, chunk)
		if err != nil {
			zero := make(embedding.Vector, g.embedder.Dimension())
			for range chunk {
				out = append(out, zero)
			}
			continue
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (g *generatorAdapter) Dimension() int {
	return g.embedder.Dimension()
}

// Complete asks a single yes/no-or-free-text question with no tool
// calling, used by the Gate, Summarizer, consolidator, and relational
// analysis.
func (g *generatorAdapter) Complete(ctx context.Context, systemPrompt, prompt string) (string, error) {
	resp, err := g.chat.Chat(ctx, &llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: prompt},
		},
		MaxTokens:   512,
		Temperature: 0.2,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
