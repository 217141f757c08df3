// Package budget implements the active-set eviction policy (spec §4.5,
// C5): when the number of active episodes exceeds a ceiling, the lowest
// ranked are archived.
package budget

import (
	"context"
	"sort"
	"time"

	"github.com/hassan123789/cogmem/internal/cogmem"
	"github.com/hassan123789/cogmem/internal/cogmem/scorer"
	"github.com/hassan123789/cogmem/internal/cogmem/telemetry"
	"github.com/hassan123789/cogmem/internal/memstore"
)

// Budget enforces a ceiling on the number of active episodes.
type Budget struct {
	store     memstore.Store
	log       *telemetry.Logger
	maxActive int
}

// New builds a Budget enforcing maxActive active episodes.
func New(store memstore.Store, log *telemetry.Logger, maxActive int) *Budget {
	return &Budget{store: store, log: log, maxActive: maxActive}
}

// EnforceIfNeeded is the opportunistic entrypoint the Episodic Manager
// calls every check_frequency writes; it simply calls Enforce, which is
// itself a no-op when the active set is within budget.
func (b *Budget) EnforceIfNeeded(ctx context.Context) {
	if err := b.Enforce(ctx); err != nil {
		b.log.Emit(telemetry.KindGateError, map[string]any{
			"op":    "budget_enforce",
			"error": err.Error(),
		})
	}
}

type ranked struct {
	id    string
	score float32
}

// Enforce computes a ranking score for every active episode
// (0.6*decayed_importance + 0.4*recency, recency = 1/(1+age_days/30)),
// keeps the top maxActive, and archives the rest. It is idempotent when
// run back-to-back with no intervening writes (spec §4.5, invariant I5).
func (b *Budget) Enforce(ctx context.Context) error {
	active, err := b.store.SearchEpisodesByFilter(ctx, cogmem.WithStatus(cogmem.StatusActive), 0)
	if err != nil {
		return err
	}
	if len(active) <= b.maxActive {
		return nil
	}

	now := time.Now()
	rankedEpisodes := make([]ranked, len(active))
	for i, ep := range active {
		ageDays := now.Sub(ep.Timestamp).Hours() / 24
		decayedImportance := scorer.Decay(ep.Importance, ep.Timestamp, now)
		recency := float32(1 / (1 + ageDays/30))
		rankedEpisodes[i] = ranked{id: ep.ID, score: 0.6*decayedImportance + 0.4*recency}
	}

	sort.Slice(rankedEpisodes, func(i, j int) bool { return rankedEpisodes[i].score > rankedEpisodes[j].score })

	toArchive := rankedEpisodes[b.maxActive:]
	archivedStatus := cogmem.StatusArchived
	for _, r := range toArchive {
		if _, err := b.store.UpdateEpisode(ctx, r.id, memstore.EpisodePatch{Status: &archivedStatus}); err != nil {
			return err
		}
	}

	b.log.Emit(telemetry.KindBudgetPruning, map[string]any{
		"active_before": len(active),
		"archived":      len(toArchive),
		"max_active":    b.maxActive,
	})
	return nil
}
