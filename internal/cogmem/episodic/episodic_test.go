package episodic

import (
	"context"
	"testing"
	"time"

	"github.com/hassan123789/cogmem/internal/cogmem"
	"github.com/hassan123789/cogmem/internal/cogmem/executor"
	"github.com/hassan123789/cogmem/internal/cogmem/retriever"
	"github.com/hassan123789/cogmem/internal/cogmem/telemetry"
	"github.com/hassan123789/cogmem/internal/embedding"
	"github.com/hassan123789/cogmem/internal/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	vec embedding.Vector
	err error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string, taskType embedding.TaskType) (embedding.Vector, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.vec, nil
}

type countingBudget struct {
	calls int
}

func (b *countingBudget) EnforceIfNeeded(ctx context.Context) {
	b.calls++
}

func waitForStatus(t *testing.T, store memstore.Store, id string, want cogmem.EpisodeStatus) cogmem.Episode {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		ep, err := store.GetEpisode(context.Background(), id)
		require.NoError(t, err)
		require.NotNil(t, ep)
		if ep.Status == want {
			return *ep
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("episode %s never reached status %s", id, want)
	return cogmem.Episode{}
}

func TestAddEpisodeActivatesAfterBackgroundEmbedding(t *testing.T) {
	store := memstore.NewMemStore()
	exec := executor.New(8)
	defer exec.Stop()
	log := telemetry.NewDevelopment(false)
	embedder := &stubEmbedder{vec: embedding.Vector{1, 0, 0}}

	m := New(store, embedder, retriever.New(store, log), exec, nil, log, 50)

	id, err := m.AddEpisode(context.Background(), "talked about tea", cogmem.FullText{User: "hi", Assistant: "hello"}, 0.5)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	ep := waitForStatus(t, store, id, cogmem.StatusActive)
	assert.Equal(t, embedding.Vector{1, 0, 0}, ep.Embedding)
}

func TestAddEpisodeStaysPendingOnEmbeddingFailure(t *testing.T) {
	store := memstore.NewMemStore()
	exec := executor.New(8)
	defer exec.Stop()
	log := telemetry.NewDevelopment(false)
	embedder := &stubEmbedder{err: assertErr("boom")}

	m := New(store, embedder, retriever.New(store, log), exec, nil, log, 50)

	id, err := m.AddEpisode(context.Background(), "talked about tea", cogmem.FullText{}, 0.5)
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)

	ep, err := store.GetEpisode(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, cogmem.StatusPendingEmbedding, ep.Status)
}

func TestAddEpisodeInvokesBudgetAtCheckFrequency(t *testing.T) {
	store := memstore.NewMemStore()
	exec := executor.New(8)
	defer exec.Stop()
	log := telemetry.NewDevelopment(false)
	embedder := &stubEmbedder{vec: embedding.Vector{1, 0}}
	budget := &countingBudget{}

	m := New(store, embedder, retriever.New(store, log), exec, budget, log, 2)

	for i := 0; i < 4; i++ {
		_, err := m.AddEpisode(context.Background(), "x", cogmem.FullText{}, 0.5)
		require.NoError(t, err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && budget.calls < 2 {
		time.Sleep(time.Millisecond)
	}
	assert.GreaterOrEqual(t, budget.calls, 2)
}

func TestRetrieveRelevantRanksBySimilarityImportanceAndRecency(t *testing.T) {
	store := memstore.NewMemStore()
	exec := executor.New(8)
	defer exec.Stop()
	log := telemetry.NewDevelopment(false)
	embedder := &stubEmbedder{vec: embedding.Vector{1, 0}}

	m := New(store, embedder, retriever.New(store, log), exec, nil, log, 50)

	now := time.Now()
	closeMatch, err := store.AddEpisode(context.Background(), cogmem.Episode{
		Summary:    "close match",
		Status:     cogmem.StatusActive,
		Embedding:  embedding.Vector{1, 0},
		Importance: 0.9,
		Timestamp:  now,
	})
	require.NoError(t, err)

	farMatch, err := store.AddEpisode(context.Background(), cogmem.Episode{
		Summary:    "unrelated",
		Status:     cogmem.StatusActive,
		Embedding:  embedding.Vector{0, 1},
		Importance: 0.9,
		Timestamp:  now,
	})
	require.NoError(t, err)

	out, err := m.RetrieveRelevant(context.Background(), "tea", 2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, closeMatch, out[0].ID)
	assert.Equal(t, farMatch, out[1].ID)
}

func TestRetrieveRelevantLimitsToK(t *testing.T) {
	store := memstore.NewMemStore()
	exec := executor.New(8)
	defer exec.Stop()
	log := telemetry.NewDevelopment(false)
	embedder := &stubEmbedder{vec: embedding.Vector{1, 0}}

	m := New(store, embedder, retriever.New(store, log), exec, nil, log, 50)

	for i := 0; i < 5; i++ {
		_, err := store.AddEpisode(context.Background(), cogmem.Episode{
			Status:     cogmem.StatusActive,
			Embedding:  embedding.Vector{1, 0},
			Importance: 0.5,
			Timestamp:  time.Now(),
		})
		require.NoError(t, err)
	}

	out, err := m.RetrieveRelevant(context.Background(), "tea", 3)
	require.NoError(t, err)
	assert.Len(t, out, 3)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
