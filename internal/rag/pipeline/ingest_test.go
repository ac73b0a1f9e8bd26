package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"sentio/internal/rag/loaders"
	"sentio/internal/rag/schema"
	"sentio/internal/rag/splitters"
	"sentio/internal/rag/vectorstore"
	"sentio/pkg/logger"
)

const ingestHeader = "review_id,app_name,category,rating,review_date,helpful_count,enriched_text\n"

func newTestIngestor(t *testing.T, chunkSize, overlap int) (*Ingestor, *vectorstore.MemoryStore) {
	t.Helper()
	store := vectorstore.NewMemoryStore(newVocabEmbedder())
	splitter, err := splitters.NewRecursiveSplitter(chunkSize, overlap)
	if err != nil {
		t.Fatalf("NewRecursiveSplitter: %v", err)
	}
	return NewIngestor(store, splitter, logger.New("test", "")), store
}

func writeIngestCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reviews.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing test CSV: %v", err)
	}
	return path
}

func TestIngestCSV(t *testing.T) {
	ing, store := newTestIngestor(t, 500, 100)
	path := writeIngestCSV(t, ingestHeader+
		"101,Maps,Travel,5,2024-01-01,3,Context stuff. USER REVIEW: navigation is excellent\n"+
		"102,TuneBox,Music,2,2024-01-02,0,USER REVIEW: ads ruin every playlist\n")

	stats, err := ing.IngestCSV(context.Background(), path, IngestOptions{})
	if err != nil {
		t.Fatalf("IngestCSV: %v", err)
	}
	if stats.RowsLoaded != 2 {
		t.Errorf("RowsLoaded = %d, want 2", stats.RowsLoaded)
	}
	if stats.RowsSkipped != 0 {
		t.Errorf("RowsSkipped = %d, want 0", stats.RowsSkipped)
	}
	if stats.ChunksAdded != 2 {
		t.Errorf("ChunksAdded = %d, want 2", stats.ChunksAdded)
	}
	if stats.CollectionCount != 2 {
		t.Errorf("CollectionCount = %d, want 2", stats.CollectionCount)
	}

	// The enrichment preamble must not be searchable.
	results, err := store.Query(context.Background(), "navigation", 5, 2, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected the navigation review to be indexed")
	}
	if got := results[0].Text; got != "navigation is excellent" {
		t.Errorf("stored text = %q, preamble not stripped", got)
	}
	meta := results[0].Metadata
	if meta.ReviewID != 101 || meta.AppName != "Maps" || meta.Rating != 5 || meta.HelpfulCount != 3 {
		t.Errorf("unexpected metadata: %+v", meta)
	}
	if meta.ChunkIndex != 0 || meta.TotalChunks != 1 {
		t.Errorf("unexpected chunk ordinals: %+v", meta)
	}
}

func TestIngestCSVSkipsRowsEmptyAfterStripping(t *testing.T) {
	ing, _ := newTestIngestor(t, 500, 100)
	path := writeIngestCSV(t, ingestHeader+
		"101,Maps,Travel,5,2024-01-01,3,Context only. USER REVIEW: \n"+
		"102,Maps,Travel,4,2024-01-02,1,USER REVIEW: works offline\n")

	stats, err := ing.IngestCSV(context.Background(), path, IngestOptions{})
	if err != nil {
		t.Fatalf("IngestCSV: %v", err)
	}
	if stats.RowsLoaded != 2 || stats.RowsSkipped != 1 || stats.ChunksAdded != 1 {
		t.Errorf("stats = %+v, want 2 loaded / 1 skipped / 1 chunk", stats)
	}
}

func TestIngestCSVChunksLongReviews(t *testing.T) {
	ing, store := newTestIngestor(t, 60, 10)

	long := "battery dies quickly. battery drains overnight. battery indicator lies. battery replacement did not help."
	path := writeIngestCSV(t, ingestHeader+
		"101,PowerNap,Health,1,2024-01-01,9,USER REVIEW: "+long+"\n")

	stats, err := ing.IngestCSV(context.Background(), path, IngestOptions{})
	if err != nil {
		t.Fatalf("IngestCSV: %v", err)
	}
	if stats.ChunksAdded < 2 {
		t.Fatalf("expected the long review to split, got %d chunks", stats.ChunksAdded)
	}

	results, err := store.Query(context.Background(), "battery", 10, 2, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	for _, r := range results {
		if r.Metadata.TotalChunks != stats.ChunksAdded {
			t.Errorf("TotalChunks = %d, want %d", r.Metadata.TotalChunks, stats.ChunksAdded)
		}
		if r.Metadata.ReviewID != 101 {
			t.Errorf("chunk lost its review id: %+v", r.Metadata)
		}
	}
}

func TestIngestCSVClearExisting(t *testing.T) {
	ing, store := newTestIngestor(t, 500, 100)
	ctx := context.Background()

	first := writeIngestCSV(t, ingestHeader+"101,Maps,Travel,5,2024-01-01,3,old navigation review\n")
	if _, err := ing.IngestCSV(ctx, first, IngestOptions{}); err != nil {
		t.Fatalf("first IngestCSV: %v", err)
	}

	second := writeIngestCSV(t, ingestHeader+"201,TuneBox,Music,3,2024-02-01,0,new playlist review\n")
	stats, err := ing.IngestCSV(ctx, second, IngestOptions{ClearExisting: true})
	if err != nil {
		t.Fatalf("second IngestCSV: %v", err)
	}
	if stats.CollectionCount != 1 {
		t.Errorf("CollectionCount = %d, want 1 after clear", stats.CollectionCount)
	}

	count, _ := store.Count(ctx)
	if count != 1 {
		t.Errorf("store count = %d, want 1", count)
	}
}

func TestIngestCSVMissingColumns(t *testing.T) {
	ing, _ := newTestIngestor(t, 500, 100)
	path := writeIngestCSV(t, "review_id,enriched_text\n101,hello\n")

	_, err := ing.IngestCSV(context.Background(), path, IngestOptions{})
	var missing *loaders.MissingColumnsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingColumnsError, got %v", err)
	}
}

func TestStats(t *testing.T) {
	ing, _ := newTestIngestor(t, 500, 100)
	ctx := context.Background()
	path := writeIngestCSV(t, ingestHeader+
		"101,Maps,Travel,5,2024-01-01,3,navigation review\n"+
		"102,TuneBox,Music,2,2024-01-02,0,playlist review\n"+
		"103,WayFinder,Travel,4,2024-01-03,1,offline review\n")
	if _, err := ing.IngestCSV(ctx, path, IngestOptions{}); err != nil {
		t.Fatalf("IngestCSV: %v", err)
	}

	stats, err := ing.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalDocuments != 3 {
		t.Errorf("TotalDocuments = %d, want 3", stats.TotalDocuments)
	}
	if stats.UniqueApps != 3 {
		t.Errorf("UniqueApps = %d, want 3", stats.UniqueApps)
	}
	if stats.UniqueCategories != 2 {
		t.Errorf("UniqueCategories = %d, want 2", stats.UniqueCategories)
	}
}

func TestIngestText(t *testing.T) {
	ing, store := newTestIngestor(t, 500, 100)
	ctx := context.Background()

	added, err := ing.IngestText(ctx, "offline maps work great", schema.ReviewMetadata{
		ReviewID: 7, AppName: "WayFinder", Category: "Travel", Rating: 5,
	})
	if err != nil {
		t.Fatalf("IngestText: %v", err)
	}
	if added != 1 {
		t.Errorf("added = %d, want 1", added)
	}
	count, _ := store.Count(ctx)
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}
