// Package llm defines the provider-agnostic chat/tool-calling contract used
// by the orchestrator, curator, why-streamer, and reflection components.
package llm

import (
	"context"
	"encoding/json"
)

// ToolCall is one function-call the model asked the caller to perform.
type ToolCall struct {
	Name string
	Args json.RawMessage
	ID   string
}

// Message is one turn in a chat-completions-style conversation.
type Message struct {
	Role      string // "system" | "user" | "assistant" | "tool"
	Content   string
	ToolID    string
	ToolCalls []ToolCall // only set on assistant messages
}

// ToolSchema describes a single callable tool in JSON-schema form.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Usage reports token accounting for a single call, when the provider
// returns one.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// StreamHandler receives incremental output from ChatStream.
type StreamHandler interface {
	OnDelta(content string)
	OnToolCall(tc ToolCall)
}

// Provider is the contract any chat-completions-style LLM backend must
// satisfy: tool/function calls, streamed content deltas, optional usage.
// Implementations: internal/llm/openai, internal/llm/anthropic,
// internal/llm/genai.
type Provider interface {
	Chat(ctx context.Context, msgs []Message, tools []ToolSchema, model string) (Message, Usage, error)
	ChatStream(ctx context.Context, msgs []Message, tools []ToolSchema, model string, h StreamHandler) error
}
