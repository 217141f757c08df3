package consolidator

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hassan123789/cogmem/internal/cogmem"
	"github.com/hassan123789/cogmem/internal/cogmem/telemetry"
	"github.com/hassan123789/cogmem/internal/embedding"
	"github.com/hassan123789/cogmem/internal/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	completeReply string
	completeErr   error
	completeCalls int
}

func (s *stubGenerator) EmbedBatch(ctx context.Context, texts []string, taskType embedding.TaskType) ([]embedding.Vector, error) {
	vecs := make([]embedding.Vector, len(texts))
	for i := range texts {
		vecs[i] = embedding.Vector{float32(i), 0}
	}
	return vecs, nil
}

func (s *stubGenerator) Complete(ctx context.Context, systemPrompt, prompt string) (string, error) {
	s.completeCalls++
	if s.completeErr != nil {
		return "", s.completeErr
	}
	return s.completeReply, nil
}

func seedUnconsolidated(t *testing.T, store *memstore.MemStore, n int, embeddingBase float32) []string {
	t.Helper()
	ctx := context.Background()
	var ids []string
	for i := 0; i < n; i++ {
		id, err := store.AddEpisode(ctx, cogmem.Episode{
			Summary:    "episode body",
			Status:     cogmem.StatusActive,
			Importance: 0.6,
			Timestamp:  time.Now(),
			Embedding:  []float32{embeddingBase, embeddingBase},
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func TestPerformConsolidationNoopWhenNothingUnconsolidated(t *testing.T) {
	store := memstore.NewMemStore()
	gen := &stubGenerator{}
	c := New(store, gen, telemetry.NewDevelopment(false), 3)

	result, err := c.PerformConsolidation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.EpisodesConsolidated)
	assert.Equal(t, 0, result.FactsCreated)
	assert.Equal(t, 0, gen.completeCalls)
}

func TestPerformConsolidationExtractsFactsAndMarksConsolidated(t *testing.T) {
	store := memstore.NewMemStore()
	ids := seedUnconsolidated(t, store, 3, 1.0)

	gen := &stubGenerator{completeReply: "The user prefers tea over coffee.\nThe user works remotely.\n"}
	c := New(store, gen, telemetry.NewDevelopment(false), 1)

	result, err := c.PerformConsolidation(context.Background())
	require.NoError(t, err)

	assert.Equal(t, len(ids), result.EpisodesConsolidated)
	assert.True(t, result.FactsCreated > 0)
	assert.Equal(t, 0, result.BatchesFailed)

	facts, err := store.GetFacts(context.Background(), cogmem.Filters{}, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, facts)
	for _, f := range facts {
		assert.Equal(t, cogmem.FactStable, f.Status)
		assert.InDelta(t, float32(0.7), f.Confidence, 0.001)
		assert.NotEmpty(t, f.DerivedFrom)
	}

	for _, id := range ids {
		ep, err := store.GetEpisode(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, cogmem.StatusConsolidated, ep.Status)
	}

	relational, err := store.GetRelational(context.Background(), relationalCategory)
	require.NoError(t, err)
	require.Len(t, relational, 1)
}

func TestPerformConsolidationSkipsShortFactLines(t *testing.T) {
	store := memstore.NewMemStore()
	seedUnconsolidated(t, store, 1, 2.0)

	gen := &stubGenerator{completeReply: "ok\nThis one is long enough to count.\n"}
	c := New(store, gen, telemetry.NewDevelopment(false), 1)

	result, err := c.PerformConsolidation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.FactsCreated)
}

func TestParseFactLinesStripsBulletsAndShortLines(t *testing.T) {
	reply := "- The user likes hiking on weekends.\nok\n  - Another durable fact here.  \n\n"
	facts := parseFactLines(reply)
	require.Len(t, facts, 2)
	assert.True(t, strings.HasPrefix(facts[0], "The user"))
	assert.True(t, strings.HasPrefix(facts[1], "Another"))
}

func TestPerformConsolidationBatchFailureLeavesEpisodesUnconsolidated(t *testing.T) {
	store := memstore.NewMemStore()
	seedUnconsolidated(t, store, 2, 5.0)

	gen := &stubGenerator{completeErr: assertError{}}
	c := New(store, gen, telemetry.NewDevelopment(false), 1)

	result, err := c.PerformConsolidation(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.EpisodesConsolidated)
	assert.True(t, result.BatchesFailed > 0)
}

type assertError struct{}

func (assertError) Error() string { return "generator unavailable" }
