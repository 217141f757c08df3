package contextbuilder

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hassan123789/cogmem/internal/cogmem"
	"github.com/hassan123789/cogmem/internal/cogmem/telemetry"
	"github.com/hassan123789/cogmem/internal/memstore"
	"github.com/stretchr/testify/assert"
)

func TestBuildFallbackPathFiltersByAgeAndImportance(t *testing.T) {
	store := memstore.NewMemStore()
	ctx := context.Background()

	store.AddEpisode(ctx, cogmem.Episode{
		Status: cogmem.StatusActive, Summary: "recent and important",
		Importance: 0.8, Timestamp: time.Now(),
	})
	store.AddEpisode(ctx, cogmem.Episode{
		Status: cogmem.StatusActive, Summary: "recent but unimportant",
		Importance: 0.2, Timestamp: time.Now(),
	})
	store.AddEpisode(ctx, cogmem.Episode{
		Status: cogmem.StatusActive, Summary: "old and important",
		Importance: 0.9, Timestamp: time.Now().Add(-30 * 24 * time.Hour),
	})

	b := New(store, 1500, telemetry.NewDevelopment(false))
	out := b.Build(ctx, Args{})

	assert.Contains(t, out, "recent and important")
	assert.NotContains(t, out, "recent but unimportant")
	assert.NotContains(t, out, "old and important")
}

func TestBuildSkipsSectionWhenBudgetExhausted(t *testing.T) {
	store := memstore.NewMemStore()
	ctx := context.Background()

	b := New(store, 10, telemetry.NewDevelopment(false))
	longText := strings.Repeat("x", 1000)

	out := b.Build(ctx, Args{ToolResults: longText})

	// remaining budget (10 tokens) is below the truncate-eligibility floor
	// once TOOL_RESULTS doesn't fit whole; but 10 > 50 is false so it skips.
	assert.Equal(t, "", out)
}

func TestBuildTruncatesToWholeLines(t *testing.T) {
	store := memstore.NewMemStore()
	ctx := context.Background()

	b := New(store, 60, telemetry.NewDevelopment(false))
	toolResults := "line one is short\n" + strings.Repeat("y", 400)

	out := b.Build(ctx, Args{ToolResults: toolResults})

	assert.Contains(t, out, "line one is short")
	assert.NotContains(t, out, strings.Repeat("y", 400))
}

func TestBuildTruncatesToolResultsToPerSectionTargetAndStops(t *testing.T) {
	store := memstore.NewMemStore()
	ctx := context.Background()

	store.AddEpisode(ctx, cogmem.Episode{
		Status: cogmem.StatusActive, Summary: "should not appear",
		Importance: 0.9, Timestamp: time.Now(),
	})

	// budget=200 -> TOOL_RESULTS target is min(400, 200/3) = 66 tokens.
	b := New(store, 200, telemetry.NewDevelopment(false))
	line := strings.Repeat("z", 80) // ~20 tokens per line
	toolResults := strings.Join([]string{line, line, line, line, line, line}, "\n") // ~120 tokens, well over 66

	out := b.Build(ctx, Args{ToolResults: toolResults})

	assert.Contains(t, out, "TOOL_RESULTS")
	assert.Equal(t, 3, strings.Count(out, line))
	assert.NotContains(t, out, "EPISODIC")
	assert.NotContains(t, out, "should not appear")
}

func TestBuildIncludesToolResultsAtTopPriority(t *testing.T) {
	store := memstore.NewMemStore()
	ctx := context.Background()
	store.AddEpisode(ctx, cogmem.Episode{Status: cogmem.StatusActive, Summary: "hi", Importance: 0.9, Timestamp: time.Now()})

	b := New(store, 1500, telemetry.NewDevelopment(false))
	out := b.Build(ctx, Args{ToolResults: "tool output here"})

	toolIdx := strings.Index(out, "TOOL_RESULTS")
	episodicIdx := strings.Index(out, "EPISODIC")
	assert.Less(t, toolIdx, episodicIdx)
}
