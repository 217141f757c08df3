// Package prefetch implements the Prefetch Stream (spec §4.7, C9): a
// single-writer, many-reader cache of retrieval results keyed by the last
// few turns, refreshed on a background executor so the foreground turn
// loop never blocks on it.
package prefetch

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hassan123789/cogmem/internal/cogmem"
	"github.com/hassan123789/cogmem/internal/cogmem/executor"
	"github.com/hassan123789/cogmem/internal/cogmem/retriever"
	"github.com/hassan123789/cogmem/internal/cogmem/telemetry"
	"github.com/hassan123789/cogmem/internal/embedding"
	"github.com/hassan123789/cogmem/internal/memstore"
	"golang.org/x/sync/singleflight"
)

const maxRecentTurns = 3

// refreshGroupKey is the single singleflight key refresh calls share: there
// is exactly one cache to refresh, so coalescing is keyed on nothing rather
// than per-turn content.
const refreshGroupKey = "refresh"

// Generator is the subset of the generator contract Refresh needs.
type Generator interface {
	Embed(ctx context.Context, text string, taskType embedding.TaskType) (embedding.Vector, error)
}

// Cache is the immutable snapshot Stream.GetCached returns.
type Cache struct {
	Episodic    []retriever.Scored
	Semantic    []retriever.Scored
	ContextVec  embedding.Vector
	ContextText string
}

// Stream is the Prefetch Stream. All mutation of recentTurns and cache
// happens on the background executor (via Submit), except the FIFO
// append in ObserveTurn which is synchronous and cheap by design (spec
// §4.7: "synchronous from the foreground").
type Stream struct {
	mu          sync.Mutex
	recentTurns []string

	cache atomic.Pointer[Cache]
	group singleflight.Group

	generator Generator
	retriever *retriever.Retriever
	exec      *executor.Executor
	log       *telemetry.Logger
}

// New builds a Stream.
func New(generator Generator, r *retriever.Retriever, exec *executor.Executor, log *telemetry.Logger) *Stream {
	return &Stream{generator: generator, retriever: r, exec: exec, log: log}
}

// ObserveTurn appends the formatted turn to the bounded recent-turns FIFO
// (evicting the oldest past length 3), then schedules a Refresh on the
// background executor without blocking the caller.
func (s *Stream) ObserveTurn(user, assistant string) {
	s.mu.Lock()
	turn := "user: " + user + " assistant: " + assistant
	s.recentTurns = append(s.recentTurns, turn)
	if len(s.recentTurns) > maxRecentTurns {
		s.recentTurns = s.recentTurns[len(s.recentTurns)-maxRecentTurns:]
	}
	turns := append([]string{}, s.recentTurns...)
	s.mu.Unlock()

	s.exec.Submit(func(ctx context.Context) {
		s.refresh(ctx, turns)
	})
}

// GetCached returns a non-blocking snapshot of the current cache, or nil
// if no refresh has completed yet.
func (s *Stream) GetCached() *Cache {
	c := s.cache.Load()
	if c == nil {
		s.log.Emit(telemetry.KindCacheMiss, nil)
		return nil
	}
	s.log.Emit(telemetry.KindCacheHit, nil)
	return c
}

// refresh deduplicates concurrent Submit callbacks through a single
// singleflight key (spec §4.7: "a refresh in flight may complete; the
// newer one enqueues its own"): overlapping calls share the in-flight
// execution's result instead of racing independent cache writes, while a
// call made after the in-flight one completes starts its own fresh
// execution and picks up whatever turns are current by then.
func (s *Stream) refresh(ctx context.Context, turns []string) {
	s.group.Do(refreshGroupKey, func() (any, error) {
		s.doRefresh(ctx, turns)
		return nil, nil
	})
}

func (s *Stream) doRefresh(ctx context.Context, turns []string) {
	contextText := strings.Join(turns, " ")
	if contextText == "" {
		return
	}

	if existing := s.cache.Load(); existing != nil && existing.ContextText == contextText {
		s.log.Emit(telemetry.KindCacheRefreshSkipped, map[string]any{"reason": "unchanged_context"})
		return
	}

	vec, err := s.generator.Embed(ctx, contextText, embedding.TaskTypeStorage)
	if err != nil {
		s.log.Emit(telemetry.KindGateError, map[string]any{"op": "prefetch_embed", "error": err.Error()})
		return
	}

	episodic, err := s.retriever.VectorSearch(ctx, vec, memstore.TableEpisodes, 5, cogmem.WithStatus(cogmem.StatusActive).WithConfidenceGT(0.5))
	if err != nil {
		s.log.Emit(telemetry.KindGateError, map[string]any{"op": "prefetch_episodic", "error": err.Error()})
		return
	}

	semantic, err := s.retriever.VectorSearch(ctx, vec, memstore.TableFacts, 5, cogmem.Filters{})
	if err != nil {
		s.log.Emit(telemetry.KindGateError, map[string]any{"op": "prefetch_semantic", "error": err.Error()})
		return
	}

	s.cache.Store(&Cache{
		Episodic:    episodic,
		Semantic:    semantic,
		ContextVec:  vec,
		ContextText: contextText,
	})

	s.log.Emit(telemetry.KindCacheRefreshed, map[string]any{
		"episodic": len(episodic),
		"semantic": len(semantic),
	})
}
