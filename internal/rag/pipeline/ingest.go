package pipeline

import (
	"context"
	"fmt"
	"strings"

	"sentio/internal/rag/loaders"
	"sentio/internal/rag/schema"
	"sentio/internal/rag/splitters"
	"sentio/internal/rag/vectorstore"
	"sentio/pkg/logger"
)

// reviewTextMarker separates the enrichment preamble from the user-facing
// review text in the enriched text column. Everything after the marker is
// the review; when the marker is absent the whole field is used.
const reviewTextMarker = "USER REVIEW: "

// docIDPrefix namespaces review document ids in the collection.
const docIDPrefix = "rev."

// IngestOptions tunes a single CSV ingestion run.
type IngestOptions struct {
	BatchSize     int  // Chunks per vector store insert (default 500)
	ClearExisting bool // Drop the collection before inserting (irreversible)
	Limit         int  // Row cap applied after null-dropping (0 = unlimited)
}

// IngestStats reports the outcome of an ingestion run.
type IngestStats struct {
	File            string `json:"file"`
	RowsLoaded      int    `json:"rows_loaded"`
	RowsSkipped     int    `json:"rows_skipped"`
	ChunksAdded     int    `json:"chunks_added"`
	CollectionCount int64  `json:"collection_count"`
}

// CollectionStats summarizes the current collection contents.
type CollectionStats struct {
	TotalDocuments   int64    `json:"total_documents"`
	UniqueCategories int      `json:"unique_categories"`
	UniqueApps       int      `json:"unique_apps"`
	Categories       []string `json:"categories"`
}

// Ingestor chunks review records and loads them into the vector store.
type Ingestor struct {
	store    vectorstore.ReviewStore
	splitter *splitters.RecursiveSplitter
	loader   *loaders.CSVLoader
	log      *logger.Logger
}

// NewIngestor creates an Ingestor over the given store and splitter.
func NewIngestor(store vectorstore.ReviewStore, splitter *splitters.RecursiveSplitter, log *logger.Logger) *Ingestor {
	return &Ingestor{
		store:    store,
		splitter: splitter,
		loader:   loaders.NewCSVLoader(),
		log:      log,
	}
}

// IngestCSV loads a preprocessed CSV file, chunks every review and inserts
// the chunks in batches. Schema validation happens in the loader before any
// row is processed. Rows whose text is empty after preamble stripping are
// skipped and counted, never silently dropped from the totals.
func (ing *Ingestor) IngestCSV(ctx context.Context, path string, opts IngestOptions) (*IngestStats, error) {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 500
	}

	records, err := ing.loader.Load(path, opts.Limit)
	if err != nil {
		return nil, err
	}
	ing.log.Info(fmt.Sprintf("Loaded %d review rows from %s", len(records), path))

	if opts.ClearExisting {
		if err := ing.store.Clear(ctx); err != nil {
			return nil, fmt.Errorf("failed to clear collection: %w", err)
		}
		ing.log.Info("Cleared existing collection")
	}

	stats := &IngestStats{File: path, RowsLoaded: len(records)}

	// Chunks accumulate across rows and flush at row boundaries only, so a
	// review's chunks never land in the store across two partial states.
	var batch []schema.Document
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		added, err := ing.store.AddDocuments(ctx, batch)
		stats.ChunksAdded += added
		batch = batch[:0]
		return err
	}

	for _, rec := range records {
		docs := ing.chunkRecord(rec)
		if len(docs) == 0 {
			stats.RowsSkipped++
			continue
		}
		if len(batch)+len(docs) > batchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
		batch = append(batch, docs...)
	}
	if err := flush(); err != nil {
		return stats, err
	}

	count, err := ing.store.Count(ctx)
	if err != nil {
		return stats, err
	}
	stats.CollectionCount = count

	ing.log.Info(fmt.Sprintf("Ingestion complete: %d chunks from %d rows (%d skipped)",
		stats.ChunksAdded, stats.RowsLoaded, stats.RowsSkipped))
	return stats, nil
}

// IngestText chunks a single text and inserts it with the given metadata,
// generating fresh chunk ids.
func (ing *Ingestor) IngestText(ctx context.Context, text string, meta schema.ReviewMetadata) (int, error) {
	chunks := ing.splitter.SplitText(text)
	docs := make([]schema.Document, 0, len(chunks))
	for i, chunk := range chunks {
		m := meta
		m.ChunkIndex = i
		m.TotalChunks = len(chunks)
		docs = append(docs, schema.Document{Text: chunk, Metadata: m})
	}
	return ing.store.AddDocuments(ctx, docs)
}

// Stats returns collection statistics for the stats endpoint.
func (ing *Ingestor) Stats(ctx context.Context) (*CollectionStats, error) {
	count, err := ing.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := ing.store.MetadataValues(ctx, schema.FieldCategory)
	if err != nil {
		return nil, err
	}
	apps, err := ing.store.MetadataValues(ctx, schema.FieldAppName)
	if err != nil {
		return nil, err
	}
	return &CollectionStats{
		TotalDocuments:   count,
		UniqueCategories: len(categories),
		UniqueApps:       len(apps),
		Categories:       categories,
	}, nil
}

// chunkRecord turns one review row into chunk documents with deterministic
// ids of the form {doc_id}_chunk_{index}. All chunks of a review carry
// identical metadata except the ordinal fields.
func (ing *Ingestor) chunkRecord(rec loaders.ReviewRecord) []schema.Document {
	text := extractReviewText(rec.Text)
	chunks := ing.splitter.SplitText(text)
	if len(chunks) == 0 {
		return nil
	}

	docID := fmt.Sprintf("%s%s_%d", docIDPrefix, rec.AppName, rec.ReviewID)
	docs := make([]schema.Document, 0, len(chunks))
	for i, chunk := range chunks {
		docs = append(docs, schema.Document{
			ID:   fmt.Sprintf("%s_chunk_%d", docID, i),
			Text: chunk,
			Metadata: schema.ReviewMetadata{
				ReviewID:     rec.ReviewID,
				AppName:      rec.AppName,
				Category:     rec.Category,
				Rating:       rec.Rating,
				Date:         rec.Date,
				HelpfulCount: rec.HelpfulCount,
				ChunkIndex:   i,
				TotalChunks:  len(chunks),
			},
		})
	}
	return docs
}

// extractReviewText strips the enrichment preamble, keeping only the text
// after the last marker occurrence. Without a marker the whole field is the
// review.
func extractReviewText(enriched string) string {
	if i := strings.LastIndex(enriched, reviewTextMarker); i >= 0 {
		return strings.TrimSpace(enriched[i+len(reviewTextMarker):])
	}
	return strings.TrimSpace(enriched)
}
