package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	"sentio/internal/embedding"
	"sentio/internal/rag/schema"
)

// MemoryStore is an in-process ReviewStore using brute-force cosine search.
// It backs development setups and tests, and honors the same contract as
// the Milvus store: batched inserts, threshold filtering, ascending
// distance order. Reads take a shared lock so concurrent queries are safe.
type MemoryStore struct {
	mu       sync.RWMutex
	embedder embedding.Embedding
	docs     []schema.Document
	vectors  [][]float32
}

// NewMemoryStore creates an empty MemoryStore over the given embedder.
func NewMemoryStore(embedder embedding.Embedding) *MemoryStore {
	return &MemoryStore{embedder: embedder}
}

// AddDocuments embeds and stores documents in batches of insertBatchSize.
func (s *MemoryStore) AddDocuments(ctx context.Context, docs []schema.Document) (int, error) {
	total := 0
	for start := 0; start < len(docs); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]

		texts := make([]string, len(batch))
		for i, doc := range batch {
			texts[i] = doc.Text
		}
		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return total, fmt.Errorf("failed to embed documents: %w", err)
		}
		if len(vectors) != len(batch) {
			return total, fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(batch))
		}

		s.mu.Lock()
		for i, doc := range batch {
			if doc.ID == "" {
				doc.ID = uuid.New().String()
			}
			s.docs = append(s.docs, doc)
			s.vectors = append(s.vectors, normalize(vectors[i]))
		}
		s.mu.Unlock()
		total += len(batch)
	}
	return total, nil
}

// Query runs a brute-force cosine search under the optional filter.
func (s *MemoryStore) Query(ctx context.Context, queryText string, nResults int, threshold float32, filter *schema.Filter) ([]schema.ScoredDocument, error) {
	vector, err := s.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	query := normalize(vector)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var candidates []schema.ScoredDocument
	for i, doc := range s.docs {
		if !filter.Matches(doc.Metadata) {
			continue
		}
		distance := 1 - dot(s.vectors[i], query)
		candidates = append(candidates, schema.ScoredDocument{Document: doc, Distance: distance})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Distance < candidates[j].Distance
	})

	// Restrict to the nResults nearest candidates first, then apply the
	// distance threshold, mirroring how a real index behaves.
	if nResults > 0 && len(candidates) > nResults {
		candidates = candidates[:nResults]
	}
	var results []schema.ScoredDocument
	for _, c := range candidates {
		if c.Distance <= threshold {
			results = append(results, c)
		}
	}
	return results, nil
}

// MetadataValues enumerates distinct non-empty values of a string metadata
// field.
func (s *MemoryStore) MetadataValues(ctx context.Context, field string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := map[string]struct{}{}
	for _, doc := range s.docs {
		var v string
		switch field {
		case schema.FieldAppName:
			v = doc.Metadata.AppName
		case schema.FieldCategory:
			v = doc.Metadata.Category
		case schema.FieldDate:
			v = doc.Metadata.Date
		default:
			return nil, fmt.Errorf("unsupported metadata field: %s", field)
		}
		if v != "" {
			seen[v] = struct{}{}
		}
	}

	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)
	return values, nil
}

// Count returns the number of stored chunks.
func (s *MemoryStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.docs)), nil
}

// Clear drops all contents.
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = nil
	s.vectors = nil
	return nil
}

func dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

var _ ReviewStore = (*MemoryStore)(nil)
