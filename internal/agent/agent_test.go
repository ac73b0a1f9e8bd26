package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"sentio/internal/config"
	"sentio/internal/llm"
	"sentio/internal/rag/pipeline"
	"sentio/internal/rag/schema"
	"sentio/internal/rag/vectorstore"
	"sentio/pkg/logger"
)

// vocabEmbedder embeds text as term counts over a fixed vocabulary.
type vocabEmbedder struct {
	vocab []string
}

func newVocabEmbedder() *vocabEmbedder {
	return &vocabEmbedder{vocab: []string{"battery", "crash", "navigation", "ads"}}
}

func (e *vocabEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, len(e.vocab))
	lower := strings.ToLower(text)
	for i, term := range e.vocab {
		vec[i] = float32(strings.Count(lower, term))
	}
	return vec, nil
}

func (e *vocabEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, _ := e.Embed(ctx, text)
		out[i] = vec
	}
	return out, nil
}

// scriptedModel replays canned chat responses in order and records the
// message lists it was called with.
type scriptedModel struct {
	responses []*llm.Response
	calls     [][]llm.Message
}

func (m *scriptedModel) Complete(ctx context.Context, prompt string) (string, error) {
	return "completion", nil
}

func (m *scriptedModel) Chat(ctx context.Context, system string, messages []llm.Message, tools []llm.Tool) (*llm.Response, error) {
	snapshot := make([]llm.Message, len(messages))
	copy(snapshot, messages)
	m.calls = append(m.calls, snapshot)
	if len(m.responses) == 0 {
		return &llm.Response{Text: "done"}, nil
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, nil
}

func (m *scriptedModel) ModelInfo() llm.ModelInfo {
	return llm.ModelInfo{Provider: "test", Model: "scripted"}
}

var _ llm.LLM = (*scriptedModel)(nil)

func newTestAgent(t *testing.T, model *scriptedModel, maxIterations int) (*Agent, *vectorstore.MemoryStore) {
	t.Helper()
	store := vectorstore.NewMemoryStore(newVocabEmbedder())
	_, err := store.AddDocuments(context.Background(), []schema.Document{
		{ID: "a", Text: "battery drains overnight", Metadata: schema.ReviewMetadata{ReviewID: 1, AppName: "PowerNap", Category: "Health", Rating: 1}},
		{ID: "b", Text: "navigation works offline", Metadata: schema.ReviewMetadata{ReviewID: 2, AppName: "WayFinder", Category: "Travel", Rating: 5}},
	})
	if err != nil {
		t.Fatalf("AddDocuments: %v", err)
	}

	retrieval := config.RetrievalConfig{TopK: 5, Threshold: 1.2}
	rag := pipeline.NewRAG(store, model, retrieval, logger.New("test", ""))
	toolbox := NewToolbox(store, rag, retrieval)
	ag := New(model, toolbox, NewMemoryHistory(), config.AgentConfig{MaxIterations: maxIterations}, logger.New("test", ""))
	return ag, store
}

func TestChatDirectAnswer(t *testing.T) {
	model := &scriptedModel{responses: []*llm.Response{
		{Text: "Hello, ask me about app reviews."},
	}}
	ag, _ := newTestAgent(t, model, 10)

	answer, err := ag.Chat(context.Background(), "hi", "t1")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if answer != "Hello, ask me about app reviews." {
		t.Errorf("unexpected answer: %q", answer)
	}

	history, err := ag.History(context.Background(), "t1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected user + assistant messages, got %d", len(history))
	}
	if history[0].Role != llm.RoleUser || history[1].Role != llm.RoleAssistant {
		t.Errorf("unexpected roles: %v %v", history[0].Role, history[1].Role)
	}
}

func TestChatToolLoop(t *testing.T) {
	model := &scriptedModel{responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{{
			ID:        "call-1",
			Name:      "search_reviews",
			Arguments: map[string]interface{}{"query": "battery"},
		}}},
		{Text: "PowerNap users complain about battery drain."},
	}}
	ag, _ := newTestAgent(t, model, 10)

	answer, err := ag.Chat(context.Background(), "what about battery life?", "t1")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if answer != "PowerNap users complain about battery drain." {
		t.Errorf("unexpected answer: %q", answer)
	}

	// The second model call must carry the tool result back.
	if len(model.calls) != 2 {
		t.Fatalf("expected 2 model calls, got %d", len(model.calls))
	}
	second := model.calls[1]
	last := second[len(second)-1]
	if last.Role != llm.RoleTool || last.ToolCallID != "call-1" {
		t.Fatalf("expected tool result as last message, got %+v", last)
	}
	if !strings.Contains(last.Content, "PowerNap") {
		t.Errorf("tool result missing search hit: %q", last.Content)
	}

	history, _ := ag.History(context.Background(), "t1")
	if len(history) != 4 {
		t.Fatalf("expected user + assistant(tool) + tool + assistant, got %d", len(history))
	}
}

func TestChatToolErrorIsReportedToModel(t *testing.T) {
	model := &scriptedModel{responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{{
			ID:        "call-1",
			Name:      "no_such_tool",
			Arguments: map[string]interface{}{},
		}}},
		{Text: "Sorry, I could not look that up."},
	}}
	ag, _ := newTestAgent(t, model, 10)

	answer, err := ag.Chat(context.Background(), "hm", "t1")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if answer == "" {
		t.Fatal("expected an answer despite the tool error")
	}

	second := model.calls[1]
	last := second[len(second)-1]
	if !strings.Contains(last.Content, "Error executing tool") {
		t.Errorf("tool error not reported to the model: %q", last.Content)
	}
}

func TestChatIterationCap(t *testing.T) {
	// The model keeps requesting tools forever.
	loop := make([]*llm.Response, 0, 5)
	for i := 0; i < 5; i++ {
		loop = append(loop, &llm.Response{ToolCalls: []llm.ToolCall{{
			ID:        "call",
			Name:      "list_available_apps",
			Arguments: map[string]interface{}{},
		}}})
	}
	model := &scriptedModel{responses: loop}
	ag, _ := newTestAgent(t, model, 3)

	_, err := ag.Chat(context.Background(), "loop forever", "t1")
	if !errors.Is(err, ErrToolLoopExceeded) {
		t.Fatalf("expected ErrToolLoopExceeded, got %v", err)
	}

	// A failed turn must leave no trace in the history.
	history, _ := ag.History(context.Background(), "t1")
	if len(history) != 0 {
		t.Errorf("expected empty history after failed turn, got %d messages", len(history))
	}
}

func TestChatThreadsAreIsolated(t *testing.T) {
	model := &scriptedModel{responses: []*llm.Response{
		{Text: "answer one"},
		{Text: "answer two"},
	}}
	ag, _ := newTestAgent(t, model, 10)
	ctx := context.Background()

	if _, err := ag.Chat(ctx, "first", "alpha"); err != nil {
		t.Fatalf("Chat alpha: %v", err)
	}
	if _, err := ag.Chat(ctx, "second", "beta"); err != nil {
		t.Fatalf("Chat beta: %v", err)
	}

	alpha, _ := ag.History(ctx, "alpha")
	beta, _ := ag.History(ctx, "beta")
	if len(alpha) != 2 || len(beta) != 2 {
		t.Fatalf("expected 2 messages per thread, got %d and %d", len(alpha), len(beta))
	}
	if alpha[0].Content != "first" || beta[0].Content != "second" {
		t.Errorf("threads mixed up: %q / %q", alpha[0].Content, beta[0].Content)
	}

	// Prior history must be sent on the next turn of the same thread.
	model.responses = []*llm.Response{{Text: "answer three"}}
	if _, err := ag.Chat(ctx, "third", "alpha"); err != nil {
		t.Fatalf("Chat alpha again: %v", err)
	}
	lastCall := model.calls[len(model.calls)-1]
	if len(lastCall) != 3 {
		t.Errorf("expected prior 2 messages + new user message, got %d", len(lastCall))
	}
}

func TestHistoryUnknownThread(t *testing.T) {
	model := &scriptedModel{}
	ag, _ := newTestAgent(t, model, 10)

	history, err := ag.History(context.Background(), "never-used")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if history == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(history) != 0 {
		t.Fatalf("expected empty history, got %d", len(history))
	}
}
