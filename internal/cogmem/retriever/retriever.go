// Package retriever implements vector search, diversity resampling, and
// the combined memory-search entrypoint the rest of the subsystem calls
// into (spec §4.6, C8).
package retriever

import (
	"context"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/hassan123789/cogmem/internal/cogmem"
	"github.com/hassan123789/cogmem/internal/cogmem/cluster"
	"github.com/hassan123789/cogmem/internal/cogmem/telemetry"
	"github.com/hassan123789/cogmem/internal/embedding"
	"github.com/hassan123789/cogmem/internal/memstore"
)

// Kind selects which store table(s) search_memories queries.
type Kind string

const (
	KindEpisodic Kind = "episodic"
	KindSemantic Kind = "semantic"
	KindBoth     Kind = "both"
)

const overfetchFactor = 3

// Scored pairs a store row with its similarity to the query vector.
type Scored struct {
	Row        memstore.ScoredRow
	Similarity float32
}

// Retriever runs similarity search and diversity sampling over the
// Store's embedding-carrying rows.
type Retriever struct {
	store memstore.Store
	log   *telemetry.Logger
}

// New builds a Retriever over store.
func New(store memstore.Store, log *telemetry.Logger) *Retriever {
	return &Retriever{store: store, log: log}
}

// VectorSearch loads rows matching filters with non-null embeddings,
// scores them by cosine similarity to queryVec, and returns the top
// limit sorted descending (spec §4.6).
func (r *Retriever) VectorSearch(ctx context.Context, queryVec embedding.Vector, table memstore.Table, limit int, filters cogmem.Filters) ([]Scored, error) {
	rows, err := r.store.RawActiveWithEmbeddings(ctx, table, filters)
	if err != nil {
		return nil, err
	}

	scored := make([]Scored, 0, len(rows))
	for _, row := range rows {
		sim := embedding.CosineSimilarity(queryVec, embedding.Vector(row.Embedding))
		if math.IsNaN(float64(sim)) {
			sim = 0
		}
		scored = append(scored, Scored{Row: row, Similarity: sim})
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Similarity > scored[j].Similarity })

	r.log.Emit(telemetry.KindRetrieval, map[string]any{
		"table":     string(table),
		"candidate": len(rows),
		"limit":     limit,
	})

	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// DiversitySample clusters rows into min(k, len(rows)) groups and keeps
// the highest-similarity row per group, sorted by similarity descending
// (spec §4.6). Rows at or under k are returned unchanged.
func (r *Retriever) DiversitySample(rows []Scored, k int) []Scored {
	if len(rows) <= k {
		return rows
	}

	out := cluster.DiversitySample(rows,
		func(s Scored) []float32 { return s.Row.Embedding },
		func(s Scored) float32 { return s.Similarity },
		k,
	)

	r.log.Emit(telemetry.KindDiversitySample, map[string]any{
		"input":  len(rows),
		"output": len(out),
		"k":      k,
	})
	return out
}

// SearchResult groups the episodic and semantic hits from SearchMemories.
type SearchResult struct {
	Episodic []Scored
	Semantic []Scored
}

// SearchMemories over-fetches 3*kPerKind candidates per requested kind via
// VectorSearch, then diversity-samples each down to kPerKind (spec §4.6).
// When both kinds are requested, the two VectorSearch calls run
// concurrently via errgroup since they hit independent store tables.
func (r *Retriever) SearchMemories(ctx context.Context, queryVec embedding.Vector, kind Kind, kPerKind int, filters cogmem.Filters) (SearchResult, error) {
	var result SearchResult

	g, gctx := errgroup.WithContext(ctx)

	if kind == KindEpisodic || kind == KindBoth {
		g.Go(func() error {
			candidates, err := r.VectorSearch(gctx, queryVec, memstore.TableEpisodes, kPerKind*overfetchFactor, filters)
			if err != nil {
				return err
			}
			result.Episodic = r.DiversitySample(candidates, kPerKind)
			return nil
		})
	}

	if kind == KindSemantic || kind == KindBoth {
		g.Go(func() error {
			candidates, err := r.VectorSearch(gctx, queryVec, memstore.TableFacts, kPerKind*overfetchFactor, filters)
			if err != nil {
				return err
			}
			result.Semantic = r.DiversitySample(candidates, kPerKind)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return SearchResult{}, err
	}
	return result, nil
}
