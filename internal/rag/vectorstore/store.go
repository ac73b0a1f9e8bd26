package vectorstore

import (
	"context"

	"sentio/internal/rag/schema"
)

// insertBatchSize bounds the number of documents handed to the underlying
// index in a single call. Batching must not lose or duplicate documents;
// the reported insert total is the true number stored.
const insertBatchSize = 500

// ReviewStore is the interface for storing and querying review chunks.
// Implementations embed text themselves, so callers deal only in text.
// Reads are safe for concurrent use; callers must serialize writes
// (AddDocuments, Clear) against in-flight queries.
type ReviewStore interface {
	// AddDocuments inserts documents in internal batches, generating a
	// unique id for any document whose ID is empty. It returns the number
	// of documents actually inserted.
	AddDocuments(ctx context.Context, docs []schema.Document) (int, error)

	// Query embeds queryText, runs a nearest-neighbor search restricted to
	// nResults candidates under the optional metadata filter, and drops any
	// candidate whose cosine distance exceeds threshold. Results come back
	// in ascending distance order. An empty result is a valid outcome, not
	// an error.
	Query(ctx context.Context, queryText string, nResults int, threshold float32, filter *schema.Filter) ([]schema.ScoredDocument, error)

	// MetadataValues returns the sorted distinct non-empty values of a
	// metadata field across the whole collection.
	MetadataValues(ctx context.Context, field string) ([]string, error)

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int64, error)

	// Clear irreversibly drops all contents and recreates the collection
	// under the same name and configuration.
	Clear(ctx context.Context) error
}
