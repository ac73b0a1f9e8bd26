package pipeline

import (
	"context"
	"strings"

	"sentio/internal/llm"
)

// vocabEmbedder embeds text as term counts over a fixed vocabulary, so
// retrieval behaves predictably in tests.
type vocabEmbedder struct {
	vocab []string
}

func newVocabEmbedder() *vocabEmbedder {
	return &vocabEmbedder{vocab: []string{"battery", "crash", "navigation", "ads", "offline", "playlist"}}
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
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// scriptedLLM returns canned completions in order and records the prompts it
// received.
type scriptedLLM struct {
	replies []string
	prompts []string
}

func (m *scriptedLLM) Complete(ctx context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if len(m.replies) == 0 {
		return "", nil
	}
	reply := m.replies[0]
	m.replies = m.replies[1:]
	return reply, nil
}

func (m *scriptedLLM) Chat(ctx context.Context, system string, messages []llm.Message, tools []llm.Tool) (*llm.Response, error) {
	reply, err := m.Complete(ctx, system)
	if err != nil {
		return nil, err
	}
	return &llm.Response{Text: reply}, nil
}

func (m *scriptedLLM) ModelInfo() llm.ModelInfo {
	return llm.ModelInfo{Provider: "test", Model: "scripted"}
}

var _ llm.LLM = (*scriptedLLM)(nil)
