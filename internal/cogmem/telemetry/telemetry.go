// Package telemetry is the memory subsystem's structured event log (spec
// §6 Observability). Every component that makes a decision worth auditing
// — gating, retrieval, caching, budget pruning, consolidation — emits one
// event here instead of writing ad hoc log lines.
package telemetry

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Kind enumerates the event kinds named in spec §6.
type Kind string

const (
	KindGateDecision         Kind = "gate_decision"
	KindGateError            Kind = "gate_error"
	KindRetrieval            Kind = "retrieval"
	KindCacheHit             Kind = "cache_hit"
	KindCacheMiss            Kind = "cache_miss"
	KindCacheRefreshed       Kind = "cache_refreshed"
	KindCacheRefreshSkipped  Kind = "cache_refresh_skipped"
	KindContextSection       Kind = "context_section"
	KindContextSkip          Kind = "context_skip"
	KindContextBuildComplete Kind = "context_build_complete"
	KindBudgetPruning        Kind = "budget_pruning"
	KindDiversitySample      Kind = "diversity_sample"
	KindToolMemorySearch     Kind = "tool_memory_search"
)

// verboseKinds are suppressed unless Logger.verbose is set, matching spec
// §6 ("Verbose events are suppressed unless memory.verbose_logging is
// set"). Decision and error events always surface; the high-volume,
// low-signal ones are gated.
var verboseKinds = map[Kind]bool{
	KindRetrieval:       true,
	KindCacheHit:        true,
	KindCacheMiss:       true,
	KindContextSection:  true,
	KindDiversitySample: true,
}

// Logger is the event sink used throughout the memory subsystem.
type Logger struct {
	zl      *zap.Logger
	verbose bool
}

// New wraps a *zap.Logger. verbose controls whether high-volume event kinds
// are emitted; decision/error kinds are always emitted.
func New(zl *zap.Logger, verbose bool) *Logger {
	if zl == nil {
		zl = zap.NewNop()
	}
	return &Logger{zl: zl, verbose: verbose}
}

// NewDevelopment builds a Logger backed by zap's development config,
// convenient for local runs and tests.
func NewDevelopment(verbose bool) *Logger {
	zl, err := zap.NewDevelopment(zap.IncreaseLevel(zapcore.InfoLevel))
	if err != nil {
		zl = zap.NewNop()
	}
	return New(zl, verbose)
}

// Emit records a structured event. detail values are flattened into zap
// fields via zap.Any, so maps, slices, and scalars are all accepted.
func (l *Logger) Emit(kind Kind, detail map[string]any) {
	if l == nil || l.zl == nil {
		return
	}
	if verboseKinds[kind] && !l.verbose {
		return
	}

	fields := make([]zap.Field, 0, len(detail)+1)
	fields = append(fields, zap.String("event", string(kind)))
	for k, v := range detail {
		fields = append(fields, zap.Any(k, v))
	}
	l.zl.Info("memory_event", fields...)
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	if l == nil || l.zl == nil {
		return nil
	}
	return l.zl.Sync()
}
