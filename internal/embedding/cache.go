package embedding

import (
	"container/list"
	"context"
	"sync"
)

// CachedModel decorates an Embedding with an LRU cache keyed by input text.
// Query texts repeat heavily in interactive use, and every hit saves a
// provider round trip. Batch calls bypass the cache: ingestion texts are
// effectively unique.
type CachedModel struct {
	inner    Embedding
	capacity int

	mu    sync.Mutex
	ll    *list.List
	items map[string]*list.Element
}

type cacheEntry struct {
	key    string
	vector []float32
}

// NewCached wraps inner with an LRU cache holding up to capacity vectors.
func NewCached(inner Embedding, capacity int) *CachedModel {
	if capacity < 1 {
		capacity = 1
	}
	return &CachedModel{
		inner:    inner,
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element),
	}
}

// Embed returns the cached vector for text, calling the inner model on a
// miss.
func (c *CachedModel) Embed(ctx context.Context, text string) ([]float32, error) {
	c.mu.Lock()
	if element, ok := c.items[text]; ok {
		c.ll.MoveToFront(element)
		vector := element.Value.(*cacheEntry).vector
		c.mu.Unlock()
		return vector, nil
	}
	c.mu.Unlock()

	vector, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if element, ok := c.items[text]; ok {
		// A concurrent call beat us to it.
		c.ll.MoveToFront(element)
		return element.Value.(*cacheEntry).vector, nil
	}
	c.items[text] = c.ll.PushFront(&cacheEntry{key: text, vector: vector})
	for c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		c.ll.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).key)
	}
	return vector, nil
}

// EmbedBatch delegates to the inner model without caching.
func (c *CachedModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return c.inner.EmbedBatch(ctx, texts)
}

// Len returns the number of cached vectors.
func (c *CachedModel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

var _ Embedding = (*CachedModel)(nil)
