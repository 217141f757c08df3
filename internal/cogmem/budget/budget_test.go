package budget

import (
	"context"
	"testing"
	"time"

	"github.com/hassan123789/cogmem/internal/cogmem"
	"github.com/hassan123789/cogmem/internal/cogmem/telemetry"
	"github.com/hassan123789/cogmem/internal/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnforceNoopUnderBudget(t *testing.T) {
	store := memstore.NewMemStore()
	ctx := context.Background()
	store.AddEpisode(ctx, cogmem.Episode{Status: cogmem.StatusActive, Importance: 0.5, Timestamp: time.Now()})

	b := New(store, telemetry.NewDevelopment(false), 10)
	require.NoError(t, b.Enforce(ctx))

	active, _ := store.SearchEpisodesByFilter(ctx, cogmem.WithStatus(cogmem.StatusActive), 0)
	assert.Len(t, active, 1)
}

func TestEnforceArchivesLowestRanked(t *testing.T) {
	store := memstore.NewMemStore()
	ctx := context.Background()

	highID, _ := store.AddEpisode(ctx, cogmem.Episode{Status: cogmem.StatusActive, Importance: 0.9, Timestamp: time.Now()})
	lowID, _ := store.AddEpisode(ctx, cogmem.Episode{Status: cogmem.StatusActive, Importance: 0.1, Timestamp: time.Now().Add(-60 * 24 * time.Hour)})

	b := New(store, telemetry.NewDevelopment(false), 1)
	require.NoError(t, b.Enforce(ctx))

	active, _ := store.SearchEpisodesByFilter(ctx, cogmem.WithStatus(cogmem.StatusActive), 0)
	require.Len(t, active, 1)
	assert.Equal(t, highID, active[0].ID)

	archived, _ := store.SearchEpisodesByFilter(ctx, cogmem.WithStatus(cogmem.StatusArchived), 0)
	require.Len(t, archived, 1)
	assert.Equal(t, lowID, archived[0].ID)
}

func TestEnforceIdempotentBackToBack(t *testing.T) {
	store := memstore.NewMemStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		store.AddEpisode(ctx, cogmem.Episode{Status: cogmem.StatusActive, Importance: 0.5, Timestamp: time.Now()})
	}

	b := New(store, telemetry.NewDevelopment(false), 3)
	require.NoError(t, b.Enforce(ctx))
	firstActive, _ := store.SearchEpisodesByFilter(ctx, cogmem.WithStatus(cogmem.StatusActive), 0)

	require.NoError(t, b.Enforce(ctx))
	secondActive, _ := store.SearchEpisodesByFilter(ctx, cogmem.WithStatus(cogmem.StatusActive), 0)

	assert.Equal(t, len(firstActive), len(secondActive))
	assert.Len(t, secondActive, 3)
}
