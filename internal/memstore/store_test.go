package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/hassan123789/cogmem/internal/cogmem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndGetEpisode(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	id, err := s.AddEpisode(ctx, cogmem.Episode{
		Summary: "talked about tea preferences",
		Status:  cogmem.StatusPendingEmbedding,
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := s.GetEpisode(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "talked about tea preferences", got.Summary)
	assert.Equal(t, cogmem.StatusPendingEmbedding, got.Status)
}

func TestUpdateEpisodeFlipsToActive(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	id, _ := s.AddEpisode(ctx, cogmem.Episode{Status: cogmem.StatusPendingEmbedding})

	active := cogmem.StatusActive
	ok, err := s.UpdateEpisode(ctx, id, EpisodePatch{
		Embedding: &EmbeddingPatch{Vector: []float32{1, 0, 0}},
		Status:    &active,
	})
	require.NoError(t, err)
	assert.True(t, ok)

	got, _ := s.GetEpisode(ctx, id)
	assert.Equal(t, cogmem.StatusActive, got.Status)
	assert.Equal(t, []float32{1, 0, 0}, got.Embedding)
}

func TestSearchEpisodesByFilterStatus(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	s.AddEpisode(ctx, cogmem.Episode{Status: cogmem.StatusActive, Timestamp: time.Now()})
	s.AddEpisode(ctx, cogmem.Episode{Status: cogmem.StatusPendingEmbedding, Timestamp: time.Now()})

	out, err := s.SearchEpisodesByFilter(ctx, cogmem.WithStatus(cogmem.StatusActive), 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, cogmem.StatusActive, out[0].Status)
}

func TestAddFactRejectsEmptyDerivedFrom(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	_, err := s.AddFact(ctx, cogmem.Fact{Fact: "the user likes tea"})
	assert.Error(t, err)
}

func TestUpdateRelationalIncrementsEvidenceCount(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	require.NoError(t, s.UpdateRelational(ctx, "interaction_style", map[string]any{"tone": "warm"}, 0.8))
	require.NoError(t, s.UpdateRelational(ctx, "interaction_style", map[string]any{"tone": "warm"}, 0.85))

	out, err := s.GetRelational(ctx, "interaction_style")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 2, out[0].EvidenceCount)
}

func TestUpdateEmotionalTracksThreadLength(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	require.NoError(t, s.UpdateEmotional(ctx, "anxious"))
	require.NoError(t, s.UpdateEmotional(ctx, "anxious"))
	require.NoError(t, s.UpdateEmotional(ctx, "anxious"))

	got, err := s.GetEmotional(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 3, got.ThreadLength)
	assert.True(t, got.ShouldAcknowledge)
}

func TestUpdateEmotionalResetsOnStateChange(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	s.UpdateEmotional(ctx, "anxious")
	s.UpdateEmotional(ctx, "anxious")
	s.UpdateEmotional(ctx, "content")

	got, _ := s.GetEmotional(ctx)
	assert.Equal(t, "content", got.CurrentState)
	assert.Equal(t, 1, got.ThreadLength)
}

func TestMarkConsolidatedFlipsStatus(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	id, _ := s.AddEpisode(ctx, cogmem.Episode{Status: cogmem.StatusActive})

	ok, err := s.MarkConsolidated(ctx, []string{id})
	require.NoError(t, err)
	assert.True(t, ok)

	got, _ := s.GetEpisode(ctx, id)
	assert.Equal(t, cogmem.StatusConsolidated, got.Status)
}

func TestRawActiveWithEmbeddingsSkipsMissingVectors(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	s.AddEpisode(ctx, cogmem.Episode{Status: cogmem.StatusActive, Embedding: []float32{1, 0}})
	s.AddEpisode(ctx, cogmem.Episode{Status: cogmem.StatusActive})
	s.AddEpisode(ctx, cogmem.Episode{Status: cogmem.StatusPendingEmbedding, Embedding: []float32{1, 0}})

	rows, err := s.RawActiveWithEmbeddings(ctx, TableEpisodes, cogmem.Filters{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestGetUnconsolidatedEpisodesOnlyReturnsActive(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	s.AddEpisode(ctx, cogmem.Episode{Status: cogmem.StatusActive})
	s.AddEpisode(ctx, cogmem.Episode{Status: cogmem.StatusConsolidated})

	out, err := s.GetUnconsolidatedEpisodes(ctx)
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestSchemaVersion(t *testing.T) {
	s := NewMemStore()
	v, err := s.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}
