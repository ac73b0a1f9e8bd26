package llm

import (
	"context"
	"fmt"

	"sentio/internal/config"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a function invocation requested by the model.
type ToolCall struct {
	ID        string                 `json:"id"`        // Provider-assigned call identifier
	Name      string                 `json:"name"`      // Tool name
	Arguments map[string]interface{} `json:"arguments"` // Decoded call arguments
}

// Message is a single role-tagged turn in a conversation. Assistant turns
// may carry tool calls; tool turns carry the result for one call, matched
// by ToolCallID. Messages are serialized as-is by the Redis-backed
// conversation store, hence the JSON tags.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// Tool describes a callable function the model may invoke. Parameters is a
// JSON-schema object describing the arguments.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// Response is the model's reply to a chat turn: either final text or a
// list of tool calls to execute (never both populated by providers we use).
type Response struct {
	Text      string
	ToolCalls []ToolCall
}

// ModelInfo reports the configured provider and generation settings.
type ModelInfo struct {
	Provider    string  `json:"provider"`
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// LLM is the common interface all language model clients implement.
type LLM interface {
	// Complete issues a single prompt and returns the generated text.
	// One request, one response; no retries, no streaming.
	Complete(ctx context.Context, prompt string) (string, error)

	// Chat sends a conversation with an optional system prompt and tool
	// declarations, returning either final text or tool calls.
	Chat(ctx context.Context, system string, messages []Message, tools []Tool) (*Response, error)

	// ModelInfo returns the configured provider and generation settings.
	ModelInfo() ModelInfo
}

// NewClient is a factory that creates an LLM client for the configured
// provider. Provider selection happens exactly once, here; nothing else in
// the codebase branches on provider identity.
func NewClient(cfg config.LLMConfig) (LLM, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAI(cfg)
	case "bedrock":
		return NewBedrock(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
