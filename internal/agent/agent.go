package agent

import (
	"context"
	"errors"
	"fmt"

	"sentio/internal/config"
	"sentio/internal/llm"
	"sentio/pkg/logger"
)

// ErrToolLoopExceeded reports that the model kept requesting tools past the
// configured iteration cap without producing a final answer.
var ErrToolLoopExceeded = errors.New("agent exceeded maximum tool iterations")

const systemPrompt = `You are a product review analyst. You answer questions about mobile apps using a collection of real user reviews, accessed through your tools.

Guidelines:
1. Use tools to look up reviews before answering; never invent review content.
2. If you are unsure which apps exist, call list_available_apps first.
3. For broad analytical questions, prefer the answer_question tool.
4. Base every claim on tool results and mention the apps you drew from.
5. If the tools return nothing relevant, say so plainly.
6. Keep answers concise.`

// Agent is a conversational assistant that answers questions about product
// reviews through a bounded tool-use loop. History is persisted per thread
// only after a turn succeeds, so a failed turn never leaves a thread with a
// question that has no answer.
type Agent struct {
	model         llm.LLM
	toolbox       *Toolbox
	history       ConversationStore
	maxIterations int
	log           *logger.Logger
}

// New creates an Agent over the given model, toolbox and history store.
func New(model llm.LLM, toolbox *Toolbox, history ConversationStore, cfg config.AgentConfig, log *logger.Logger) *Agent {
	return &Agent{
		model:         model,
		toolbox:       toolbox,
		history:       history,
		maxIterations: cfg.MaxIterations,
		log:           log,
	}
}

// Chat runs one conversation turn for the given thread. The model may
// request tools across several iterations; each tool result is fed back as a
// tool message. Tool execution failures are reported to the model rather
// than aborting the turn. Exhausting the iteration cap returns
// ErrToolLoopExceeded.
func (a *Agent) Chat(ctx context.Context, message, threadID string) (string, error) {
	prior, err := a.history.Messages(ctx, threadID)
	if err != nil {
		return "", err
	}

	turn := []llm.Message{{Role: llm.RoleUser, Content: message}}
	tools := a.toolbox.Tools()

	for i := 0; i < a.maxIterations; i++ {
		resp, err := a.model.Chat(ctx, systemPrompt, append(prior, turn...), tools)
		if err != nil {
			return "", fmt.Errorf("chat completion failed: %w", err)
		}

		if len(resp.ToolCalls) == 0 {
			turn = append(turn, llm.Message{Role: llm.RoleAssistant, Content: resp.Text})
			if err := a.history.Append(ctx, threadID, turn...); err != nil {
				return "", err
			}
			return resp.Text, nil
		}

		turn = append(turn, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Text,
			ToolCalls: resp.ToolCalls,
		})

		for _, call := range resp.ToolCalls {
			a.log.WithField("tool", call.Name).Debug("Executing tool call")
			result, err := a.toolbox.Execute(ctx, call)
			if err != nil {
				a.log.WithField("tool", call.Name).WithError(err).Warn("Tool call failed")
				result = fmt.Sprintf("Error executing tool: %v", err)
			}
			turn = append(turn, llm.Message{
				Role:       llm.RoleTool,
				Content:    result,
				ToolCallID: call.ID,
			})
		}
	}

	return "", ErrToolLoopExceeded
}

// History returns a thread's conversation so far. Unknown threads yield an
// empty slice.
func (a *Agent) History(ctx context.Context, threadID string) ([]llm.Message, error) {
	messages, err := a.history.Messages(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []llm.Message{}
	}
	return messages, nil
}
