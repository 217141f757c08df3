package summarizer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubCompleter struct {
	reply      string
	err        error
	lastPrompt string
}

func (s *stubCompleter) Complete(ctx context.Context, systemPrompt, prompt string) (string, error) {
	s.lastPrompt = prompt
	return s.reply, s.err
}

func TestSummarizeUsesGeneratorReply(t *testing.T) {
	stub := &stubCompleter{reply: "I helped the user plan their trip to Kyoto."}
	s := New(stub)

	got := s.Summarize(context.Background(), "Help me plan a trip to Kyoto", "Sure, here's an itinerary...", nil)

	assert.Equal(t, "I helped the user plan their trip to Kyoto.", got)
}

func TestSummarizeFallsBackOnError(t *testing.T) {
	stub := &stubCompleter{err: errors.New("timeout")}
	s := New(stub)

	got := s.Summarize(context.Background(), "hello", "hi there", nil)

	assert.Contains(t, got, "The user said: hello")
	assert.Contains(t, got, "I replied: hi there")
}

func TestSummarizeFallsBackOnEmptyReply(t *testing.T) {
	stub := &stubCompleter{reply: "   "}
	s := New(stub)

	got := s.Summarize(context.Background(), "hello", "hi there", nil)

	assert.Contains(t, got, "The user said")
}

func TestSummarizeIncludesOnlyLastThreePriorTurns(t *testing.T) {
	stub := &stubCompleter{reply: "summary"}
	s := New(stub)

	priors := []Turn{
		{User: "turn1", Assistant: "reply1"},
		{User: "turn2", Assistant: "reply2"},
		{User: "turn3", Assistant: "reply3"},
		{User: "turn4", Assistant: "reply4"},
	}

	s.Summarize(context.Background(), "current", "current reply", priors)

	assert.False(t, strings.Contains(stub.lastPrompt, "turn1"))
	assert.True(t, strings.Contains(stub.lastPrompt, "turn2"))
	assert.True(t, strings.Contains(stub.lastPrompt, "turn4"))
}

func TestTruncateLongStringAddsEllipsis(t *testing.T) {
	long := strings.Repeat("a", 200)
	got := truncate(long)

	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Len(t, got, mechanicalTruncationLimit+3)
}
