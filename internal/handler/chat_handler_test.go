package handler

import (
	"context"
	"testing"

	"github.com/hassan123789/cogmem/internal/llm"
	"github.com/stretchr/testify/assert"
)

func TestPrependMemoryContextPassthroughWhenDisabled(t *testing.T) {
	h := NewChatHandler(nil, nil)
	messages := []llm.Message{{Role: llm.RoleUser, Content: "hi"}}

	out := h.prependMemoryContext(context.Background(), messages)

	assert.Equal(t, messages, out)
}

func TestObserveExchangeNoopWhenDisabled(t *testing.T) {
	h := NewChatHandler(nil, nil)

	// Must not panic even though the memory service is nil.
	h.observeExchange([]MessageRequest{{Role: "user", Content: "hi"}}, "hello")
}
