// Package memoryservice wires the cognitive memory subsystem's components
// (C1-C11) into a single Service per an application config.MemoryConfig,
// and exposes the Active Memory Search Tool for registration into the
// agent's tool registry.
package memoryservice

import (
	"context"

	"github.com/hassan123789/cogmem/internal/cogmem"
	"github.com/hassan123789/cogmem/internal/cogmem/budget"
	"github.com/hassan123789/cogmem/internal/cogmem/consolidator"
	"github.com/hassan123789/cogmem/internal/cogmem/contextbuilder"
	"github.com/hassan123789/cogmem/internal/cogmem/episodic"
	"github.com/hassan123789/cogmem/internal/cogmem/executor"
	"github.com/hassan123789/cogmem/internal/cogmem/gate"
	"github.com/hassan123789/cogmem/internal/cogmem/prefetch"
	"github.com/hassan123789/cogmem/internal/cogmem/retriever"
	"github.com/hassan123789/cogmem/internal/cogmem/scorer"
	"github.com/hassan123789/cogmem/internal/cogmem/summarizer"
	"github.com/hassan123789/cogmem/internal/cogmem/telemetry"
	"github.com/hassan123789/cogmem/internal/config"
	"github.com/hassan123789/cogmem/internal/embedding"
	"github.com/hassan123789/cogmem/internal/llm"
	"github.com/hassan123789/cogmem/internal/memstore"
	"github.com/hassan123789/cogmem/internal/memstore/sqlitestore"
)

// Service owns every cognitive-memory component and the turn-loop
// integration points a handler calls into: ObserveExchange after a turn
// completes, BuildContext before the next generator call, and the
// search_memory Tool for on-demand recall.
type Service struct {
	store        memstore.Store
	gen          *generatorAdapter
	gate         *gate.Gate
	summarizer   *summarizer.Summarizer
	episodic     *episodic.Manager
	budget       *budget.Budget
	retriever    *retriever.Retriever
	prefetch     *prefetch.Stream
	builder      *contextbuilder.Builder
	consolidator *consolidator.Consolidator
	exec         *executor.Executor
	log          *telemetry.Logger

	enabled bool
}

// disabledService is returned when MemoryConfig.Enabled is false or a
// required dependency is missing; every method becomes a documented
// no-op rather than an error, so a handler can call it unconditionally.
func disabledService() *Service {
	return &Service{enabled: false}
}

// New constructs a Service from the application config. It never returns
// an error: a disabled config, a nil chat client or embedder, or a
// database that fails to open degrades to a no-op Service
// (errs.ConfigError's contract — "the rest of the application keeps
// running without recall").
func New(cfg config.MemoryConfig, chat llm.Client, embedder embedding.Embedder) *Service {
	if !cfg.Enabled {
		return disabledService()
	}
	if chat == nil || embedder == nil {
		return disabledService()
	}

	log := telemetry.NewDevelopment(cfg.VerboseLogging)

	store, err := sqlitestore.Open(cfg.DBPath)
	if err != nil {
		log.Emit(telemetry.KindGateError, map[string]any{"op": "open_store", "error": err.Error()})
		return disabledService()
	}

	return newWithStore(cfg, store, chat, embedder, log)
}

// newWithStore builds a Service over an already-open Store, so tests can
// substitute memstore.NewMemStore() for the sqlite backend.
func newWithStore(cfg config.MemoryConfig, store memstore.Store, chat llm.Client, embedder embedding.Embedder, log *telemetry.Logger) *Service {
	gen := newGeneratorAdapter(chat, embedder, cfg.SemanticModel)

	exec := executor.New(64)
	r := retriever.New(store, log)
	g := gate.New(gen, log, cfg.EnableGating)
	s := summarizer.New(gen)
	b := budget.New(store, log, cfg.MaxEpisodicActive)
	em := episodic.New(store, gen, r, exec, b, log, cfg.CheckFrequency)
	ps := prefetch.New(gen, r, exec, log)
	cb := contextbuilder.New(store, cfg.ContextTokenBudget, log)
	con := consolidator.New(store, gen, log, cfg.MinClusterSize)

	return &Service{
		store:        store,
		gen:          gen,
		gate:         g,
		summarizer:   s,
		episodic:     em,
		budget:       b,
		retriever:    r,
		prefetch:     ps,
		builder:      cb,
		consolidator: con,
		exec:         exec,
		log:          log,
		enabled:      true,
	}
}

// Enabled reports whether the subsystem is active.
func (s *Service) Enabled() bool {
	return s != nil && s.enabled
}

// Close stops the background executor. Safe to call on a disabled
// Service.
func (s *Service) Close() {
	if !s.Enabled() {
		return
	}
	s.exec.Stop()
}

// ObserveExchange is the per-turn hook: gate, summarize, store as an
// episode, and feed the prefetch stream. A disabled Service no-ops.
func (s *Service) ObserveExchange(ctx context.Context, userMessage, assistantMessage string) {
	if !s.Enabled() {
		return
	}

	if !s.gate.ShouldRemember(ctx, userMessage, assistantMessage) {
		return
	}

	summary := s.summarizer.Summarize(ctx, userMessage, assistantMessage, nil)
	importance := scorer.Importance(userMessage, assistantMessage)

	if _, err := s.episodic.AddEpisode(ctx, summary, cogmem.FullText{
		User:      userMessage,
		Assistant: assistantMessage,
	}, importance); err != nil {
		s.log.Emit(telemetry.KindGateError, map[string]any{"op": "add_episode", "error": err.Error()})
	}

	s.prefetch.ObserveTurn(userMessage, assistantMessage)
}

// BuildContext assembles the priority-ordered context block to prepend to
// the next generator prompt. toolResults is the last search_memory Tool
// output, if any. A disabled Service returns "".
func (s *Service) BuildContext(ctx context.Context, toolResults string) string {
	if !s.Enabled() {
		return ""
	}
	return s.builder.Build(ctx, contextbuilder.Args{
		ToolResults: toolResults,
		Cache:       s.prefetch.GetCached(),
	})
}

// RunConsolidation triggers one perform_consolidation pass. Intended to
// be called from a periodic background job, not the turn loop.
func (s *Service) RunConsolidation(ctx context.Context) (consolidator.Result, error) {
	if !s.Enabled() {
		return consolidator.Result{}, nil
	}
	return s.consolidator.PerformConsolidation(ctx)
}

// SearchTool returns the Active Memory Search Tool bound to this
// Service's store, retriever, and embedder, or nil if the Service is
// disabled (callers should skip registration in that case).
func (s *Service) SearchTool() *SearchMemoryTool {
	if !s.Enabled() {
		return nil
	}
	return newSearchMemoryTool(s.store, s.retriever, s.gen)
}
