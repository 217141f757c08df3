// Package contextbuilder assembles the priority-ordered, token-budgeted
// context block prepended to the next generator prompt (spec §4.8, C10).
package contextbuilder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hassan123789/cogmem/internal/cogmem"
	"github.com/hassan123789/cogmem/internal/cogmem/prefetch"
	"github.com/hassan123789/cogmem/internal/cogmem/retriever"
	"github.com/hassan123789/cogmem/internal/cogmem/telemetry"
	"github.com/hassan123789/cogmem/internal/memstore"
)

const (
	defaultTokenBudget = 1500

	toolResultsTargetFraction = 3 // min(400, budget/3)
	toolResultsTargetCap      = 400
	episodicTargetTokens      = 400
	factsTargetTokens         = 300

	minTruncateRemainder = 50

	fallbackEpisodeMaxAge = 7 * 24 * time.Hour
	fallbackMinImportance = 0.7
	fallbackScanLimit     = 100
	fallbackFactLimit     = 10
)

// section is one candidate block of text with a priority and a per-section
// target token allocation (spec §4.8: TOOL_RESULTS gets min(400,
// budget/3), EPISODIC 400, FACTS 300). The fit policy caps a section at
// min(remaining, target), so a section can be truncated well before the
// overall budget is exhausted.
type section struct {
	name   string
	text   string
	target int
}

// Builder assembles context blocks.
type Builder struct {
	store       memstore.Store
	tokenBudget int
	log         *telemetry.Logger
}

// New builds a Builder. tokenBudget <= 0 uses the spec default of 1500.
func New(store memstore.Store, tokenBudget int, log *telemetry.Logger) *Builder {
	if tokenBudget <= 0 {
		tokenBudget = defaultTokenBudget
	}
	return &Builder{store: store, tokenBudget: tokenBudget, log: log}
}

// Args bundles everything Build needs to assemble a context block.
// ToolResults is the Active Memory Search Tool's last output, if any
// (spec §4.10: privileged, priority-1 placement on the turn after it
// runs). Cache is the Prefetch Stream's current snapshot; nil triggers
// the fallback scan path for EPISODIC and FACTS.
type Args struct {
	ToolResults string
	Cache       *prefetch.Cache
}

// approxTokens is the cheap, language-agnostic chars/4 approximation
// spec §4.8 specifies.
func approxTokens(s string) int {
	return (len(s) + 3) / 4
}

// Build assembles TOOL_RESULTS, EPISODIC, and FACTS in priority order
// under the configured token budget.
func (b *Builder) Build(ctx context.Context, args Args) string {
	toolResultsTarget := min(toolResultsTargetCap, b.tokenBudget/toolResultsTargetFraction)
	sections := []section{
		{name: "TOOL_RESULTS", text: args.ToolResults, target: toolResultsTarget},
		{name: "EPISODIC", text: b.episodicText(ctx, args), target: episodicTargetTokens},
		{name: "FACTS", text: b.factsText(ctx, args), target: factsTargetTokens},
	}

	var out strings.Builder
	remaining := b.tokenBudget

	for _, s := range sections {
		if s.text == "" {
			continue
		}
		included, consumed, stop := fitSection(s, remaining)
		if included == "" {
			b.log.Emit(telemetry.KindContextSkip, map[string]any{"section": s.name, "remaining": remaining})
			if stop {
				break
			}
			continue
		}

		out.WriteString(fmt.Sprintf("[%s]\n%s\n\n", s.name, included))
		remaining -= consumed
		b.log.Emit(telemetry.KindContextSection, map[string]any{
			"section":         s.name,
			"tokens":          consumed,
			"remaining_after": remaining,
		})

		if stop {
			break
		}
	}

	b.log.Emit(telemetry.KindContextBuildComplete, map[string]any{
		"budget":    b.tokenBudget,
		"remaining": remaining,
	})

	return strings.TrimRight(out.String(), "\n")
}

// fitSection applies the fit policy: whole text if it fits within
// min(remaining, s.target); else, provided the overall remaining budget
// still exceeds the 50-token truncate-eligibility floor, a whole-line
// prefix capped at min(remaining, s.target); else skip entirely.
// Truncating or skipping a section always signals the caller to stop
// considering further sections (spec §4.8 scenario 5: a truncated
// section is the last one included) — only a full, untruncated fit lets
// the loop continue.
func fitSection(s section, remaining int) (included string, consumedTokens int, stop bool) {
	sectionCap := remaining
	if s.target > 0 && s.target < sectionCap {
		sectionCap = s.target
	}

	tokens := approxTokens(s.text)
	if tokens <= sectionCap {
		return s.text, tokens, false
	}
	if remaining <= minTruncateRemainder {
		return "", 0, true
	}

	lines := strings.Split(s.text, "\n")
	var kept []string
	used := 0
	for _, line := range lines {
		lineTokens := approxTokens(line)
		if used+lineTokens > sectionCap {
			break
		}
		kept = append(kept, line)
		used += lineTokens
	}
	if len(kept) == 0 {
		return "", 0, true
	}
	return strings.Join(kept, "\n"), used, true
}

func (b *Builder) episodicText(ctx context.Context, args Args) string {
	if args.Cache != nil {
		return formatEpisodicFromScored(args.Cache.Episodic)
	}
	return b.fallbackEpisodicText(ctx)
}

func (b *Builder) factsText(ctx context.Context, args Args) string {
	if args.Cache != nil {
		return formatFactsFromScored(args.Cache.Semantic)
	}
	return b.fallbackFactsText(ctx)
}

func formatEpisodicFromScored(rows []retriever.Scored) string {
	var lines []string
	for _, r := range rows {
		if r.Row.Episode == nil {
			continue
		}
		lines = append(lines, fmt.Sprintf("[%s] %s", r.Row.Episode.Timestamp.Format("2006-01-02"), r.Row.Episode.Summary))
	}
	return strings.Join(lines, "\n")
}

func formatFactsFromScored(rows []retriever.Scored) string {
	var lines []string
	for _, r := range rows {
		if r.Row.Fact == nil {
			continue
		}
		lines = append(lines, "- "+r.Row.Fact.Fact)
	}
	return strings.Join(lines, "\n")
}

func (b *Builder) fallbackEpisodicText(ctx context.Context) string {
	episodes, err := b.store.SearchEpisodesByFilter(ctx, cogmem.WithStatus(cogmem.StatusActive), fallbackScanLimit)
	if err != nil {
		return ""
	}

	now := time.Now()
	var lines []string
	for _, ep := range episodes {
		if now.Sub(ep.Timestamp) > fallbackEpisodeMaxAge {
			continue
		}
		if ep.Importance < fallbackMinImportance {
			continue
		}
		lines = append(lines, fmt.Sprintf("[%s] %s", ep.Timestamp.Format("2006-01-02"), ep.Summary))
	}
	return strings.Join(lines, "\n")
}

func (b *Builder) fallbackFactsText(ctx context.Context) string {
	facts, err := b.store.GetFacts(ctx, cogmem.Filters{}, fallbackFactLimit)
	if err != nil {
		return ""
	}
	var lines []string
	for _, f := range facts {
		lines = append(lines, "- "+f.Fact)
	}
	return strings.Join(lines, "\n")
}
