package memoryservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/hassan123789/cogmem/internal/cogmem"
	"github.com/hassan123789/cogmem/internal/cogmem/retriever"
	"github.com/hassan123789/cogmem/internal/embedding"
	"github.com/hassan123789/cogmem/internal/memstore"
	"github.com/hassan123789/cogmem/internal/tools"
)

const (
	minSearchLimit     = 1
	maxSearchLimit     = 10
	defaultSearchLimit = 5

	searchConfidenceFloor = 0.5
)

// queryEmbedder is the subset of the generator contract the search tool
// needs: embedding the query string with the query task type.
type queryEmbedder interface {
	Embed(ctx context.Context, text string, taskType embedding.TaskType) (embedding.Vector, error)
}

// SearchMemoryTool is the Active Memory Search Tool (spec §4.10): an
// on-demand recall path the agent can invoke mid-conversation, distinct
// from the automatic prefetch stream. Its output is returned to the
// calling agent as the tool result; it is not forwarded to the Context
// Builder, whose TOOL_RESULTS section is filled only from the text passed
// to Service.BuildContext (the chat handler passes an empty string).
type SearchMemoryTool struct {
	store     memstore.Store
	retriever *retriever.Retriever
	embedder  queryEmbedder
}

func newSearchMemoryTool(store memstore.Store, r *retriever.Retriever, embedder queryEmbedder) *SearchMemoryTool {
	return &SearchMemoryTool{store: store, retriever: r, embedder: embedder}
}

// Name returns the tool's identifier.
func (t *SearchMemoryTool) Name() string {
	return "search_memory"
}

// Description explains the tool to the LLM.
func (t *SearchMemoryTool) Description() string {
	return "Searches long-term memory for past episodes and known facts relevant to a query. " +
		"Use this when the user references something from an earlier conversation that isn't " +
		"already in the current context."
}

// Parameters describes the tool's JSON Schema input.
func (t *SearchMemoryTool) Parameters() tools.ParameterSchema {
	return tools.ParameterSchema{
		Type: "object",
		Properties: map[string]tools.PropertySchema{
			"query": {
				Type:        "string",
				Description: "What to search for, in natural language.",
			},
			"kind": {
				Type:        "string",
				Description: "Which memory kind to search.",
				Enum:        []string{"episodic", "semantic", "both"},
			},
			"limit": {
				Type:        "integer",
				Description: "Maximum results per kind, 1-10 (default 5).",
			},
		},
		Required: []string{"query"},
	}
}

type searchMemoryArgs struct {
	Query string `json:"query"`
	Kind  string `json:"kind"`
	Limit int    `json:"limit"`
}

// Execute embeds the query, runs SearchMemories with the active/confident
// filter, and formats episodic and semantic hits as text.
func (t *SearchMemoryTool) Execute(ctx context.Context, arguments string) (tools.Result, error) {
	args, err := tools.ParseArguments[searchMemoryArgs](arguments)
	if err != nil {
		return tools.Failure("invalid arguments: " + err.Error()), nil
	}
	if strings.TrimSpace(args.Query) == "" {
		return tools.Failure("query cannot be empty"), nil
	}

	kind := retriever.KindBoth
	switch args.Kind {
	case "episodic":
		kind = retriever.KindEpisodic
	case "semantic":
		kind = retriever.KindSemantic
	case "", "both":
		kind = retriever.KindBoth
	default:
		return tools.Failure("kind must be one of episodic, semantic, both"), nil
	}

	limit := args.Limit
	if limit < minSearchLimit || limit > maxSearchLimit {
		limit = defaultSearchLimit
	}

	vec, err := t.embedder.Embed(ctx, args.Query, embedding.TaskTypeQuery)
	if err != nil {
		return tools.Failure("embedding query failed: " + err.Error()), nil
	}

	filters := cogmem.WithStatus(cogmem.StatusActive).WithConfidenceGT(searchConfidenceFloor)
	result, err := t.retriever.SearchMemories(ctx, vec, kind, limit, filters)
	if err != nil {
		return tools.Failure("memory search failed: " + err.Error()), nil
	}

	if len(result.Episodic) == 0 && len(result.Semantic) == 0 {
		return tools.Success("No relevant memories found."), nil
	}

	var out strings.Builder
	if len(result.Episodic) > 0 {
		out.WriteString("Episodes:\n")
		for _, r := range result.Episodic {
			if r.Row.Episode == nil {
				continue
			}
			ep := r.Row.Episode
			out.WriteString(fmt.Sprintf("- [%s] %s (importance=%.2f, similarity=%.2f)\n",
				ep.Timestamp.Format("2006-01-02"), ep.Summary, ep.Importance, r.Similarity))
		}
	}
	if len(result.Semantic) > 0 {
		out.WriteString("Facts:\n")
		for _, r := range result.Semantic {
			if r.Row.Fact == nil {
				continue
			}
			f := r.Row.Fact
			out.WriteString(fmt.Sprintf("- %s (confidence=%.2f, similarity=%.2f)\n",
				f.Fact, f.Confidence, r.Similarity))
		}
	}

	return tools.Success(strings.TrimRight(out.String(), "\n")), nil
}
