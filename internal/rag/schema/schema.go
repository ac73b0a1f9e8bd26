package schema

// Metadata field names as stored in the vector index. "app_name" is the
// canonical key for the reviewed app everywhere: ingestion, query filters
// and agent tools.
const (
	FieldID           = "id"
	FieldText         = "text"
	FieldEmbedding    = "embedding"
	FieldReviewID     = "review_id"
	FieldAppName      = "app_name"
	FieldCategory     = "category"
	FieldRating       = "rating"
	FieldDate         = "date"
	FieldHelpfulCount = "helpful_count"
	FieldChunkIndex   = "chunk_index"
	FieldTotalChunks  = "total_chunks"
)

// ReviewMetadata is the fixed set of attributes every chunk inherits from
// its source review. All chunks of one review carry identical values except
// for the ordinal fields ChunkIndex and TotalChunks.
type ReviewMetadata struct {
	ReviewID     int64  // Source-stable review identifier
	AppName      string // Reviewed app ("source" in retrieval terms)
	Category     string // App store category
	Rating       int    // Star rating, 1-5
	Date         string // Review date, ISO-like string
	HelpfulCount int64  // Helpful votes on the review
	ChunkIndex   int    // Ordinal of this chunk within the review
	TotalChunks  int    // Number of chunks the review was split into
}

// Document is the central data structure representing one review chunk.
// It is the primary data carrier through ingestion, storage and retrieval.
type Document struct {
	// ID is the unique identifier for this chunk. Deterministic ids use the
	// form "{doc_id}_chunk_{index}"; stores generate a fresh UUID when empty.
	ID string

	// Text is the chunk content.
	Text string

	// Embedding is the vector representation of Text. Populated by the
	// vector store on insert; empty on documents built by the ingestor.
	Embedding []float32

	// Metadata holds the review attributes inherited by this chunk.
	Metadata ReviewMetadata
}

// ScoredDocument is a retrieval result: a document plus its cosine distance
// to the query (0 = identical, 2 = opposite; lower is more similar).
type ScoredDocument struct {
	Document
	Distance float32
}

// Filter is a structured metadata predicate applied by the vector store
// before ranking. Zero-valued fields are ignored; set fields are ANDed.
type Filter struct {
	AppName   string   // Equality on app_name
	AppNames  []string // app_name IN (...)
	Category  string   // Equality on category
	RatingMin int      // rating >= RatingMin (ignored when 0)
	RatingMax int      // rating <= RatingMax (ignored when 0)
}

// IsZero reports whether the filter constrains anything.
func (f *Filter) IsZero() bool {
	return f == nil ||
		(f.AppName == "" && len(f.AppNames) == 0 && f.Category == "" &&
			f.RatingMin == 0 && f.RatingMax == 0)
}

// Matches reports whether the given metadata satisfies the predicate.
// Used by the in-memory store; the Milvus store compiles the same predicate
// into a boolean expression instead.
func (f *Filter) Matches(m ReviewMetadata) bool {
	if f == nil {
		return true
	}
	if f.AppName != "" && m.AppName != f.AppName {
		return false
	}
	if len(f.AppNames) > 0 {
		found := false
		for _, name := range f.AppNames {
			if m.AppName == name {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Category != "" && m.Category != f.Category {
		return false
	}
	if f.RatingMin != 0 && m.Rating < f.RatingMin {
		return false
	}
	if f.RatingMax != 0 && m.Rating > f.RatingMax {
		return false
	}
	return true
}
