package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"

	"sentio/internal/llm"
)

// historyKeyPrefix namespaces conversation keys in Redis.
const historyKeyPrefix = "sentio:chat:"

// ConversationStore persists per-thread conversation history. Unknown
// threads read as empty histories, never as errors.
type ConversationStore interface {
	// Append adds messages to the end of a thread's history.
	Append(ctx context.Context, threadID string, messages ...llm.Message) error

	// Messages returns a thread's history in append order. The returned
	// slice is the caller's to keep.
	Messages(ctx context.Context, threadID string) ([]llm.Message, error)
}

// MemoryHistory is an in-process ConversationStore.
type MemoryHistory struct {
	mu      sync.RWMutex
	threads map[string][]llm.Message
}

// NewMemoryHistory creates an empty MemoryHistory.
func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{threads: make(map[string][]llm.Message)}
}

func (h *MemoryHistory) Append(ctx context.Context, threadID string, messages ...llm.Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.threads[threadID] = append(h.threads[threadID], messages...)
	return nil
}

func (h *MemoryHistory) Messages(ctx context.Context, threadID string) ([]llm.Message, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	stored := h.threads[threadID]
	out := make([]llm.Message, len(stored))
	copy(out, stored)
	return out, nil
}

// RedisHistory stores each thread as a Redis list of JSON-encoded messages,
// so histories survive restarts and are shared across replicas.
type RedisHistory struct {
	client *redis.Client
}

// NewRedisHistory creates a ConversationStore over the given Redis client.
func NewRedisHistory(client *redis.Client) *RedisHistory {
	return &RedisHistory{client: client}
}

func (h *RedisHistory) Append(ctx context.Context, threadID string, messages ...llm.Message) error {
	values := make([]interface{}, 0, len(messages))
	for _, msg := range messages {
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to encode message: %w", err)
		}
		values = append(values, data)
	}
	if err := h.client.RPush(ctx, historyKeyPrefix+threadID, values...).Err(); err != nil {
		return fmt.Errorf("failed to append conversation history: %w", err)
	}
	return nil
}

func (h *RedisHistory) Messages(ctx context.Context, threadID string) ([]llm.Message, error) {
	raw, err := h.client.LRange(ctx, historyKeyPrefix+threadID, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read conversation history: %w", err)
	}
	messages := make([]llm.Message, 0, len(raw))
	for _, item := range raw {
		var msg llm.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("failed to decode message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

var (
	_ ConversationStore = (*MemoryHistory)(nil)
	_ ConversationStore = (*RedisHistory)(nil)
)
