package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hassan123789/cogmem/internal/llm"
	"github.com/hassan123789/cogmem/internal/memoryservice"
)

// ChatHandler handles chat-related HTTP requests.
type ChatHandler struct {
	llmClient llm.Client
	memory    *memoryservice.Service
}

// NewChatHandler creates a new ChatHandler. memory may be nil or disabled;
// every memory call degrades to a no-op in that case.
func NewChatHandler(client llm.Client, memory *memoryservice.Service) *ChatHandler {
	return &ChatHandler{
		llmClient: client,
		memory:    memory,
	}
}

// ChatRequest represents the request body for chat endpoint.
type ChatRequest struct {
	Messages    []MessageRequest `json:"messages" validate:"required,min=1"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
	Temperature float32          `json:"temperature,omitempty"`
	Stream      bool             `json:"stream,omitempty"`
}

// MessageRequest represents a single message in the request.
type MessageRequest struct {
	Role    string `json:"role" validate:"required,oneof=system user assistant"`
	Content string `json:"content" validate:"required"`
}

// ChatResponse represents the response body for chat endpoint.
type ChatResponse struct {
	Content      string    `json:"content"`
	FinishReason string    `json:"finish_reason"`
	Usage        UsageInfo `json:"usage"`
}

// UsageInfo contains token usage information.
type UsageInfo struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Chat handles POST /api/chat requests.
func (h *ChatHandler) Chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Failed to parse request body",
		})
	}

	if len(req.Messages) == 0 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "At least one message is required",
		})
	}

	// Convert request messages to LLM messages
	messages := make([]llm.Message, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = llm.Message{
			Role:    llm.Role(msg.Role),
			Content: msg.Content,
		}
	}

	messages = h.prependMemoryContext(c.Request().Context(), messages)

	// Handle streaming response
	if req.Stream {
		return h.handleStreamingChat(c, messages, req.Messages, req.MaxTokens, req.Temperature)
	}

	// Non-streaming response
	resp, err := h.llmClient.Chat(c.Request().Context(), &llm.ChatRequest{
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "llm_error",
			Message: err.Error(),
		})
	}

	h.observeExchange(req.Messages, resp.Content)

	return c.JSON(http.StatusOK, ChatResponse{
		Content:      resp.Content,
		FinishReason: resp.FinishReason,
		Usage: UsageInfo{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	})
}

// prependMemoryContext inserts the cognitive memory subsystem's assembled
// context block as a system message ahead of the conversation, if the
// memory service is enabled and has anything to contribute.
func (h *ChatHandler) prependMemoryContext(ctx context.Context, messages []llm.Message) []llm.Message {
	if !h.memory.Enabled() {
		return messages
	}

	block := h.memory.BuildContext(ctx, "")
	if block == "" {
		return messages
	}

	return append([]llm.Message{{Role: llm.RoleSystem, Content: block}}, messages...)
}

// observeExchange feeds the last user message and the assistant's reply to
// the memory subsystem's per-turn hook, off the request's context (which
// is cancelled once the response is written) so gating/summarization and
// the resulting background embedding aren't tied to the HTTP request
// lifetime.
func (h *ChatHandler) observeExchange(reqMessages []MessageRequest, assistantReply string) {
	if !h.memory.Enabled() {
		return
	}

	var lastUser string
	for i := len(reqMessages) - 1; i >= 0; i-- {
		if reqMessages[i].Role == "user" {
			lastUser = reqMessages[i].Content
			break
		}
	}
	if lastUser == "" {
		return
	}

	go h.memory.ObserveExchange(context.Background(), lastUser, assistantReply)
}

// handleStreamingChat handles streaming chat responses using SSE.
func (h *ChatHandler) handleStreamingChat(c echo.Context, messages []llm.Message, reqMessages []MessageRequest, maxTokens int, temperature float32) error {
	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)

	stream, err := h.llmClient.ChatStream(c.Request().Context(), &llm.ChatRequest{
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Stream:      true,
	})
	if err != nil {
		return err
	}

	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "Streaming not supported")
	}

	var assembled strings.Builder
	for chunk := range stream {
		if chunk.Error != nil {
			_, _ = c.Response().Write([]byte("event: error\ndata: " + chunk.Error.Error() + "\n\n"))
			flusher.Flush()
			break
		}

		if chunk.Content != "" {
			assembled.WriteString(chunk.Content)
			_, _ = c.Response().Write([]byte("data: " + chunk.Content + "\n\n"))
			flusher.Flush()
		}

		if chunk.Done {
			_, _ = c.Response().Write([]byte("event: done\ndata: [DONE]\n\n"))
			flusher.Flush()
			h.observeExchange(reqMessages, assembled.String())
			break
		}
	}

	return nil
}

// Health handles GET /health requests.
func (h *ChatHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
