// Package episodic implements the Episodic Manager (spec §4.4, C4): the
// entry point for turning an exchange into a durable, eventually-embedded
// Episode, and the ranked-recall path used when a caller needs episodes
// relevant to a query.
package episodic

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"github.com/hassan123789/cogmem/internal/cogmem"
	"github.com/hassan123789/cogmem/internal/cogmem/executor"
	"github.com/hassan123789/cogmem/internal/cogmem/retriever"
	"github.com/hassan123789/cogmem/internal/cogmem/scorer"
	"github.com/hassan123789/cogmem/internal/cogmem/telemetry"
	"github.com/hassan123789/cogmem/internal/embedding"
	"github.com/hassan123789/cogmem/internal/memstore"
)

// Embedder is the subset of the generator contract the Manager needs.
type Embedder interface {
	Embed(ctx context.Context, text string, taskType embedding.TaskType) (embedding.Vector, error)
}

// BudgetEnforcer is invoked every checkFrequency writes (spec §4.4's
// "invokes Budget every check_frequency writes").
type BudgetEnforcer interface {
	EnforceIfNeeded(ctx context.Context)
}

// Manager is the Episodic Manager.
type Manager struct {
	store     memstore.Store
	embedder  Embedder
	retriever *retriever.Retriever
	exec      *executor.Executor
	budget    BudgetEnforcer
	log       *telemetry.Logger

	checkFrequency int
	writeCount     int64
}

// New builds a Manager. checkFrequency controls how often Budget is
// invoked opportunistically (spec default 50).
func New(store memstore.Store, embedder Embedder, r *retriever.Retriever, exec *executor.Executor, budget BudgetEnforcer, log *telemetry.Logger, checkFrequency int) *Manager {
	if checkFrequency < 1 {
		checkFrequency = 50
	}
	return &Manager{
		store:          store,
		embedder:       embedder,
		retriever:      r,
		exec:           exec,
		budget:         budget,
		log:            log,
		checkFrequency: checkFrequency,
	}
}

// AddEpisode writes the episode immediately with status pending_embedding
// and enqueues its summary for embedding on the background executor. It
// returns the new episode's id once the initial write completes; the
// embedding itself happens asynchronously (spec §4.4).
func (m *Manager) AddEpisode(ctx context.Context, summary string, fullText cogmem.FullText, importance float32) (string, error) {
	id, err := m.store.AddEpisode(ctx, cogmem.Episode{
		Summary:    summary,
		FullText:   fullText,
		Timestamp:  time.Now(),
		Importance: importance,
		Status:     cogmem.StatusPendingEmbedding,
	})
	if err != nil {
		return "", err
	}

	m.exec.Submit(func(bgCtx context.Context) {
		m.embedAndActivate(bgCtx, id, summary)
	})

	count := atomic.AddInt64(&m.writeCount, 1)
	if count%int64(m.checkFrequency) == 0 && m.budget != nil {
		m.exec.Submit(func(bgCtx context.Context) {
			m.budget.EnforceIfNeeded(bgCtx)
		})
	}

	return id, nil
}

func (m *Manager) embedAndActivate(ctx context.Context, id, summary string) {
	vec, err := m.embedder.Embed(ctx, summary, embedding.TaskTypeStorage)
	if err != nil {
		m.log.Emit(telemetry.KindGateError, map[string]any{
			"op":    "embed_episode",
			"id":    id,
			"error": err.Error(),
		})
		return // stays pending_embedding; invisible to retrieval per I2
	}

	active := cogmem.StatusActive
	if _, err := m.store.UpdateEpisode(ctx, id, memstore.EpisodePatch{
		Embedding: &memstore.EmbeddingPatch{Vector: vec},
		Status:    &active,
	}); err != nil {
		m.log.Emit(telemetry.KindGateError, map[string]any{
			"op":    "activate_episode",
			"id":    id,
			"error": err.Error(),
		})
	}
}

// ranked is an episode candidate carrying its combined recall score.
type ranked struct {
	episode cogmem.Episode
	score   float32
}

// RetrieveRelevant embeds q (query task type), asks the Retriever for 4k
// active candidates by similarity, rescoes them by
// 0.5*similarity + 0.3*decayed_importance + 0.2*recency, and returns the
// top k (spec §4.4). Ties break by timestamp desc then id asc.
func (m *Manager) RetrieveRelevant(ctx context.Context, q string, k int) ([]cogmem.Episode, error) {
	vec, err := m.embedder.Embed(ctx, q, embedding.TaskTypeQuery)
	if err != nil {
		return nil, err
	}

	candidates, err := m.retriever.VectorSearch(ctx, vec, memstore.TableEpisodes, 4*k, cogmem.WithStatus(cogmem.StatusActive))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	rankedCandidates := make([]ranked, 0, len(candidates))
	for _, c := range candidates {
		if c.Row.Episode == nil {
			continue
		}
		ep := *c.Row.Episode
		ageDays := now.Sub(ep.Timestamp).Hours() / 24
		decayedImportance := scorer.Decay(ep.Importance, ep.Timestamp, now)
		recency := float32(1 / (1 + ageDays/30))

		score := 0.5*c.Similarity + 0.3*decayedImportance + 0.2*recency
		rankedCandidates = append(rankedCandidates, ranked{episode: ep, score: score})
	}

	sort.Slice(rankedCandidates, func(i, j int) bool {
		a, b := rankedCandidates[i], rankedCandidates[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if !a.episode.Timestamp.Equal(b.episode.Timestamp) {
			return a.episode.Timestamp.After(b.episode.Timestamp)
		}
		return a.episode.ID < b.episode.ID
	})

	if len(rankedCandidates) > k {
		rankedCandidates = rankedCandidates[:k]
	}

	out := make([]cogmem.Episode, len(rankedCandidates))
	for i, r := range rankedCandidates {
		out[i] = r.episode
	}
	return out, nil
}
