// Package consolidator implements the Consolidator (spec §4.11, C11):
// periodic compression of unconsolidated episodes into clustered batches,
// each distilled into semantic facts by the generator.
package consolidator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hassan123789/cogmem/internal/cogmem"
	"github.com/hassan123789/cogmem/internal/cogmem/cluster"
	"github.com/hassan123789/cogmem/internal/cogmem/telemetry"
	"github.com/hassan123789/cogmem/internal/embedding"
	"github.com/hassan123789/cogmem/internal/memstore"
)

const (
	defaultMinClusterSize = 3
	defaultMaxClusterSize = 50
	clusterEpsilon        = 0.35 // euclidean distance threshold over embeddings

	minFactLineLength = 6

	factConfidence       = 0.7
	relationalConfidence = 0.8
	relationalCategory   = "interaction_style"
)

const extractionSystemPrompt = `Extract durable, first-person facts about the user from these conversation ` +
	`summaries, written from the assistant's point of view (e.g. "The user told me ..." not ` +
	`"The user told Name ..."). One fact per line, no numbering or bullets, each a complete ` +
	`standalone sentence.`

const relationalSystemPrompt = `Summarize the interaction style and tone across these exchanges in 1-2 ` +
	`sentences, from the assistant's point of view.`

// Generator is the subset of the generator contract the Consolidator
// needs: batch embedding for new facts, and chat completion for fact
// extraction and relational analysis.
type Generator interface {
	EmbedBatch(ctx context.Context, texts []string, taskType embedding.TaskType) ([]embedding.Vector, error)
	Complete(ctx context.Context, systemPrompt, prompt string) (string, error)
}

// Consolidator runs perform_consolidation passes.
type Consolidator struct {
	store          memstore.Store
	generator      Generator
	log            *telemetry.Logger
	minClusterSize int
	maxClusterSize int
}

// New builds a Consolidator.
func New(store memstore.Store, generator Generator, log *telemetry.Logger, minClusterSize int) *Consolidator {
	if minClusterSize < 1 {
		minClusterSize = defaultMinClusterSize
	}
	return &Consolidator{
		store:          store,
		generator:      generator,
		log:            log,
		minClusterSize: minClusterSize,
		maxClusterSize: defaultMaxClusterSize,
	}
}

// Result summarizes one perform_consolidation pass.
type Result struct {
	EpisodesConsolidated int
	FactsCreated         int
	BatchesFailed        int
}

// PerformConsolidation runs the full pipeline: load unconsolidated
// episodes, cluster them, split oversized clusters, extract facts per
// batch, mark episodes consolidated, and run a relational analysis pass.
// A single cluster-batch's failure does not abort the others (spec §4.11).
func (c *Consolidator) PerformConsolidation(ctx context.Context) (Result, error) {
	episodes, err := c.store.GetUnconsolidatedEpisodes(ctx)
	if err != nil {
		return Result{}, err
	}
	if len(episodes) == 0 {
		return Result{}, nil
	}

	byID := make(map[string]cogmem.Episode, len(episodes))
	items := make([]cluster.Item, 0, len(episodes))
	for _, ep := range episodes {
		byID[ep.ID] = ep
		items = append(items, cluster.Item{ID: ep.ID, Embedding: ep.Embedding})
	}

	clusters := cluster.DensityCluster(items, c.minClusterSize, clusterEpsilon)
	clusters = cluster.SplitOversized(clusters, c.maxClusterSize, c.minClusterSize, clusterEpsilon)

	var result Result
	var allProcessedIDs []string

	for batchIdx, batch := range clusters {
		batchEpisodes := make([]cogmem.Episode, 0, len(batch))
		for _, item := range batch {
			batchEpisodes = append(batchEpisodes, byID[item.ID])
		}

		factsCreated, err := c.processBatch(ctx, batchEpisodes)
		if err != nil {
			result.BatchesFailed++
			c.log.Emit(telemetry.KindGateError, map[string]any{
				"op":    "consolidation_batch",
				"batch": batchIdx,
				"error": err.Error(),
			})
			continue // affected episodes remain unconsolidated
		}

		result.FactsCreated += factsCreated
		for _, ep := range batchEpisodes {
			allProcessedIDs = append(allProcessedIDs, ep.ID)
		}
	}

	if len(allProcessedIDs) > 0 {
		if _, err := c.store.MarkConsolidated(ctx, allProcessedIDs); err != nil {
			return result, err
		}
		result.EpisodesConsolidated = len(allProcessedIDs)
	}

	if err := c.analyzeRelationalStyle(ctx, episodes); err != nil {
		c.log.Emit(telemetry.KindGateError, map[string]any{
			"op":    "relational_analysis",
			"error": err.Error(),
		})
	}

	return result, nil
}

// processBatch asks the generator for first-person facts grounded in one
// cluster-batch's episode summaries, then embeds and stores them (spec
// §4.11 steps 4-5).
func (c *Consolidator) processBatch(ctx context.Context, batch []cogmem.Episode) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	var prompt strings.Builder
	ids := make([]string, 0, len(batch))
	for _, ep := range batch {
		prompt.WriteString("- ")
		prompt.WriteString(ep.Summary)
		prompt.WriteString("\n")
		ids = append(ids, ep.ID)
	}

	reply, err := c.generator.Complete(ctx, extractionSystemPrompt, prompt.String())
	if err != nil {
		return 0, fmt.Errorf("fact extraction: %w", err)
	}

	facts := parseFactLines(reply)
	if len(facts) == 0 {
		return 0, nil
	}

	vectors, err := c.generator.EmbedBatch(ctx, facts, embedding.TaskTypeStorage)
	if err != nil {
		return 0, fmt.Errorf("fact embedding: %w", err)
	}

	now := time.Now()
	for i, fact := range facts {
		var vec embedding.Vector
		if i < len(vectors) {
			vec = vectors[i]
		}
		_, err := c.store.AddFact(ctx, cogmem.Fact{
			Fact:          fact,
			Confidence:    factConfidence,
			FirstObserved: now,
			LastConfirmed: now,
			Status:        cogmem.FactStable,
			DerivedFrom:   append([]string{}, ids...),
			Embedding:     vec,
		})
		if err != nil {
			return i, fmt.Errorf("store fact: %w", err)
		}
	}

	return len(facts), nil
}

// parseFactLines splits the generator's reply into non-empty lines at
// least minFactLineLength characters, stripping a leading "- " if present
// (spec §4.11 step 4).
func parseFactLines(reply string) []string {
	var facts []string
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "- ")
		line = strings.TrimSpace(line)
		if len(line) >= minFactLineLength {
			facts = append(facts, line)
		}
	}
	return facts
}

// analyzeRelationalStyle summarizes interaction style across all episodes
// in this pass and upserts it under category "interaction_style" (spec
// §4.11 step 7).
func (c *Consolidator) analyzeRelationalStyle(ctx context.Context, episodes []cogmem.Episode) error {
	if len(episodes) == 0 {
		return nil
	}

	var prompt strings.Builder
	for _, ep := range episodes {
		prompt.WriteString("- ")
		prompt.WriteString(ep.Summary)
		prompt.WriteString("\n")
	}

	summary, err := c.generator.Complete(ctx, relationalSystemPrompt, prompt.String())
	if err != nil {
		return err
	}

	return c.store.UpdateRelational(ctx, relationalCategory, map[string]any{
		"summary": strings.TrimSpace(summary),
	}, relationalConfidence)
}
