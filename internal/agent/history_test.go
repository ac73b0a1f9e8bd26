package agent

import (
	"context"
	"testing"

	"sentio/internal/llm"
)

func TestMemoryHistoryAppendAndRead(t *testing.T) {
	h := NewMemoryHistory()
	ctx := context.Background()

	err := h.Append(ctx, "t1",
		llm.Message{Role: llm.RoleUser, Content: "question"},
		llm.Message{Role: llm.RoleAssistant, Content: "answer"},
	)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	messages, err := h.Messages(ctx, "t1")
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Content != "question" || messages[1].Content != "answer" {
		t.Errorf("messages out of order: %+v", messages)
	}
}

func TestMemoryHistoryReturnsCopy(t *testing.T) {
	h := NewMemoryHistory()
	ctx := context.Background()

	if err := h.Append(ctx, "t1", llm.Message{Role: llm.RoleUser, Content: "original"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	first, _ := h.Messages(ctx, "t1")
	first[0].Content = "mutated"

	again, _ := h.Messages(ctx, "t1")
	if again[0].Content != "original" {
		t.Error("stored history was mutated through a returned slice")
	}
}

func TestMemoryHistoryThreadsIndependent(t *testing.T) {
	h := NewMemoryHistory()
	ctx := context.Background()

	h.Append(ctx, "a", llm.Message{Role: llm.RoleUser, Content: "for a"})
	h.Append(ctx, "b", llm.Message{Role: llm.RoleUser, Content: "for b"})

	a, _ := h.Messages(ctx, "a")
	b, _ := h.Messages(ctx, "b")
	if len(a) != 1 || len(b) != 1 {
		t.Fatalf("expected 1 message each, got %d and %d", len(a), len(b))
	}
	if a[0].Content != "for a" || b[0].Content != "for b" {
		t.Errorf("threads mixed: %q / %q", a[0].Content, b[0].Content)
	}
}

func TestMemoryHistoryUnknownThreadIsEmpty(t *testing.T) {
	h := NewMemoryHistory()
	messages, err := h.Messages(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("expected empty history, got %d", len(messages))
	}
}

func TestMemoryHistoryPreservesToolCalls(t *testing.T) {
	h := NewMemoryHistory()
	ctx := context.Background()

	h.Append(ctx, "t1", llm.Message{
		Role: llm.RoleAssistant,
		ToolCalls: []llm.ToolCall{{
			ID:        "call-1",
			Name:      "search_reviews",
			Arguments: map[string]interface{}{"query": "battery"},
		}},
	})

	messages, _ := h.Messages(ctx, "t1")
	if len(messages) != 1 || len(messages[0].ToolCalls) != 1 {
		t.Fatalf("tool calls lost: %+v", messages)
	}
	if messages[0].ToolCalls[0].Name != "search_reviews" {
		t.Errorf("unexpected tool call: %+v", messages[0].ToolCalls[0])
	}
}
