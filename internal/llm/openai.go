package llm

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/meguminnnnnnnnn/go-openai"

	"sentio/internal/config"
)

// OpenAI is an LLM client for OpenAI-compatible chat completion endpoints.
type OpenAI struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewOpenAI creates a new OpenAI client from the configuration. A custom
// BaseURL points the client at any OpenAI-compatible server.
func NewOpenAI(cfg config.LLMConfig) (*OpenAI, error) {
	clientCfg := openai.DefaultConfig(cfg.OpenAI.APIKey)
	if cfg.OpenAI.BaseURL != "" {
		clientCfg.BaseURL = cfg.OpenAI.BaseURL
	}
	return &OpenAI{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.OpenAI.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Complete issues a single user prompt and returns the generated text.
func (o *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := o.Chat(ctx, "", []Message{{Role: RoleUser, Content: prompt}}, nil)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// Chat sends a conversation and optional tool declarations to the model.
func (o *OpenAI) Chat(ctx context.Context, system string, messages []Message, tools []Tool) (*Response, error) {
	req := openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: &o.temperature,
		MaxTokens:   o.maxTokens,
	}

	if system != "" {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	for _, msg := range messages {
		converted, err := toOpenAIMessage(msg)
		if err != nil {
			return nil, err
		}
		req.Messages = append(req.Messages, converted)
	}
	for _, tool := range tools {
		req.Tools = append(req.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned")
	}

	choice := resp.Choices[0].Message
	out := &Response{Text: choice.Content}
	for _, tc := range choice.ToolCalls {
		args := map[string]interface{}{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return nil, fmt.Errorf("failed to decode arguments for tool %q: %w", tc.Function.Name, err)
			}
		}
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}
	return out, nil
}

// ModelInfo returns the configured provider and generation settings.
func (o *OpenAI) ModelInfo() ModelInfo {
	return ModelInfo{
		Provider:    "openai",
		Model:       o.model,
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
	}
}

// toOpenAIMessage converts an internal message into the wire format,
// re-encoding tool calls and tool results.
func toOpenAIMessage(msg Message) (openai.ChatCompletionMessage, error) {
	out := openai.ChatCompletionMessage{
		Role:    string(msg.Role),
		Content: msg.Content,
	}
	if msg.Role == RoleTool {
		out.Role = openai.ChatMessageRoleTool
		out.ToolCallID = msg.ToolCallID
		return out, nil
	}
	for _, call := range msg.ToolCalls {
		args, err := json.Marshal(call.Arguments)
		if err != nil {
			return out, fmt.Errorf("failed to encode arguments for tool %q: %w", call.Name, err)
		}
		out.ToolCalls = append(out.ToolCalls, openai.ToolCall{
			ID:   call.ID,
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionCall{
				Name:      call.Name,
				Arguments: string(args),
			},
		})
	}
	return out, nil
}

var _ LLM = (*OpenAI)(nil)
