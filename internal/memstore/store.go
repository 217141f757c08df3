// Package memstore defines the durable-storage contract the memory
// subsystem is built on (spec §4.1, C1) and an in-memory reference
// implementation. Tables: episodes, facts, relational entries, an
// emotional thread, and a schema-version marker.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hassan123789/cogmem/internal/cogmem"
	"github.com/hassan123789/cogmem/internal/cogmem/errs"
)

// EpisodePatch carries the subset of Episode fields UpdateEpisode may
// change; nil fields are left untouched.
type EpisodePatch struct {
	Embedding *EmbeddingPatch
	Status    *cogmem.EpisodeStatus
}

// EmbeddingPatch sets an episode's embedding vector.
type EmbeddingPatch struct {
	Vector []float32
}

// Store is the durable keyed storage contract every backend (the
// in-memory MemStore here, or sqlitestore.SQLiteStore) implements.
type Store interface {
	AddEpisode(ctx context.Context, ep cogmem.Episode) (string, error)
	GetEpisode(ctx context.Context, id string) (*cogmem.Episode, error)
	UpdateEpisode(ctx context.Context, id string, patch EpisodePatch) (bool, error)
	SearchEpisodesByFilter(ctx context.Context, filters cogmem.Filters, limit int) ([]cogmem.Episode, error)

	AddFact(ctx context.Context, f cogmem.Fact) (string, error)
	GetFacts(ctx context.Context, filters cogmem.Filters, limit int) ([]cogmem.Fact, error)

	UpdateRelational(ctx context.Context, category string, data map[string]any, confidence float32) error
	GetRelational(ctx context.Context, category string) ([]cogmem.RelationalEntry, error)

	UpdateEmotional(ctx context.Context, state string) error
	GetEmotional(ctx context.Context) (*cogmem.EmotionalThread, error)

	GetUnconsolidatedEpisodes(ctx context.Context) ([]cogmem.Episode, error)
	MarkConsolidated(ctx context.Context, ids []string) (bool, error)

	// RawActiveWithEmbeddings returns active episodes (or facts, per table)
	// carrying non-null embeddings, for the Retriever's scan-and-score path.
	RawActiveWithEmbeddings(ctx context.Context, table Table, filters cogmem.Filters) ([]ScoredRow, error)

	SchemaVersion(ctx context.Context) (int, error)
}

// Table names the logical table RawActiveWithEmbeddings scans.
type Table string

const (
	TableEpisodes Table = "episodes"
	TableFacts    Table = "facts"
)

// ScoredRow is a uniform view over an episode or fact row carrying an
// embedding, as consumed by the Retriever.
type ScoredRow struct {
	ID         string
	Text       string // episode summary, or fact text
	Embedding  []float32
	Importance float32 // episodes only; zero for facts
	Confidence float32 // facts only; zero for episodes
	Timestamp  time.Time
	Episode    *cogmem.Episode
	Fact       *cogmem.Fact
}

// MemStore is an in-memory Store, guarded by a single RWMutex. It is the
// reference implementation used by tests; memoryservice.New always opens
// the sqlite backend.
type MemStore struct {
	mu sync.RWMutex

	episodes   map[string]*cogmem.Episode
	facts      map[string]*cogmem.Fact
	relational map[string]*cogmem.RelationalEntry
	emotional  *cogmem.EmotionalThread

	schemaVersion int
}

// NewMemStore builds an empty in-memory Store.
func NewMemStore() *MemStore {
	return &MemStore{
		episodes:      make(map[string]*cogmem.Episode),
		facts:         make(map[string]*cogmem.Fact),
		relational:    make(map[string]*cogmem.RelationalEntry),
		schemaVersion: 1,
	}
}

func (m *MemStore) AddEpisode(ctx context.Context, ep cogmem.Episode) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ep.ID == "" {
		ep.ID = uuid.NewString()
	}
	if ep.Timestamp.IsZero() {
		ep.Timestamp = time.Now()
	}
	stored := ep
	m.episodes[ep.ID] = &stored
	return ep.ID, nil
}

func (m *MemStore) GetEpisode(ctx context.Context, id string) (*cogmem.Episode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ep, ok := m.episodes[id]
	if !ok {
		return nil, nil
	}
	cp := *ep
	return &cp, nil
}

func (m *MemStore) UpdateEpisode(ctx context.Context, id string, patch EpisodePatch) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ep, ok := m.episodes[id]
	if !ok {
		return false, nil
	}
	if patch.Embedding != nil {
		ep.Embedding = patch.Embedding.Vector
	}
	if patch.Status != nil {
		ep.Status = *patch.Status
	}
	return true, nil
}

func (m *MemStore) SearchEpisodesByFilter(ctx context.Context, filters cogmem.Filters, limit int) ([]cogmem.Episode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []cogmem.Episode
	for _, ep := range m.episodes {
		if filters.Status != "" && ep.Status != filters.Status {
			continue
		}
		out = append(out, *ep)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemStore) AddFact(ctx context.Context, f cogmem.Fact) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if len(f.DerivedFrom) == 0 {
		return "", errs.NewInvariantViolation("fact-derived-from-nonempty", "fact "+f.ID+" has empty derived_from")
	}
	stored := f
	m.facts[f.ID] = &stored
	return f.ID, nil
}

func (m *MemStore) GetFacts(ctx context.Context, filters cogmem.Filters, limit int) ([]cogmem.Fact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []cogmem.Fact
	for _, f := range m.facts {
		if filters.Status != "" && cogmem.FactStatus(filters.Status) != f.Status {
			continue
		}
		if filters.HasConfidenceGT && !(f.Confidence > *filters.ConfidenceGT) {
			continue
		}
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastConfirmed.After(out[j].LastConfirmed) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemStore) UpdateRelational(ctx context.Context, category string, data map[string]any, confidence float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.relational[category]
	evidence := 1
	if ok {
		evidence = existing.EvidenceCount + 1
	}
	m.relational[category] = &cogmem.RelationalEntry{
		Category:      category,
		Data:          data,
		Confidence:    confidence,
		EvidenceCount: evidence,
		LastUpdated:   time.Now(),
	}
	return nil
}

func (m *MemStore) GetRelational(ctx context.Context, category string) ([]cogmem.RelationalEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if category != "" {
		entry, ok := m.relational[category]
		if !ok {
			return nil, nil
		}
		return []cogmem.RelationalEntry{*entry}, nil
	}

	out := make([]cogmem.RelationalEntry, 0, len(m.relational))
	for _, e := range m.relational {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (m *MemStore) UpdateEmotional(ctx context.Context, state string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	length := 1
	if m.emotional != nil && m.emotional.CurrentState == state {
		length = m.emotional.ThreadLength + 1
	}
	m.emotional = &cogmem.EmotionalThread{
		CurrentState:      state,
		ThreadLength:      length,
		ShouldAcknowledge: length >= 3,
		LastUpdate:        time.Now(),
	}
	return nil
}

func (m *MemStore) GetEmotional(ctx context.Context) (*cogmem.EmotionalThread, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.emotional == nil {
		return nil, nil
	}
	cp := *m.emotional
	return &cp, nil
}

func (m *MemStore) GetUnconsolidatedEpisodes(ctx context.Context) ([]cogmem.Episode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []cogmem.Episode
	for _, ep := range m.episodes {
		if ep.Status == cogmem.StatusActive {
			out = append(out, *ep)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (m *MemStore) MarkConsolidated(ctx context.Context, ids []string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range ids {
		if ep, ok := m.episodes[id]; ok {
			ep.Status = cogmem.StatusConsolidated
		}
	}
	return true, nil
}

func (m *MemStore) RawActiveWithEmbeddings(ctx context.Context, table Table, filters cogmem.Filters) ([]ScoredRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ScoredRow
	switch table {
	case TableEpisodes:
		for _, ep := range m.episodes {
			if ep.Status != cogmem.StatusActive {
				continue
			}
			if len(ep.Embedding) == 0 {
				continue
			}
			epCopy := *ep
			out = append(out, ScoredRow{
				ID:         ep.ID,
				Text:       ep.Summary,
				Embedding:  ep.Embedding,
				Importance: ep.Importance,
				Timestamp:  ep.Timestamp,
				Episode:    &epCopy,
			})
		}
	case TableFacts:
		for _, f := range m.facts {
			if len(f.Embedding) == 0 {
				continue
			}
			if filters.HasConfidenceGT && !(f.Confidence > *filters.ConfidenceGT) {
				continue
			}
			fCopy := *f
			out = append(out, ScoredRow{
				ID:         f.ID,
				Text:       f.Fact,
				Embedding:  f.Embedding,
				Confidence: f.Confidence,
				Timestamp:  f.LastConfirmed,
				Fact:       &fCopy,
			})
		}
	}
	return out, nil
}

func (m *MemStore) SchemaVersion(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.schemaVersion, nil
}
