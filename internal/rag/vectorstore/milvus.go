package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"sentio/internal/database/milvus"
	"sentio/internal/embedding"
	"sentio/internal/rag/schema"
	"sentio/pkg/logger"
)

// MilvusStore implements ReviewStore on top of Milvus. Embeddings are
// produced by the injected embedding model; the collection uses the cosine
// metric, so reported distances are 1 - similarity, in [0, 2].
type MilvusStore struct {
	client   *milvus.Client
	embedder embedding.Embedding
	log      *logger.Logger
}

// NewMilvusStore creates a MilvusStore adapter over an initialized Milvus
// client.
func NewMilvusStore(client *milvus.Client, embedder embedding.Embedding, log *logger.Logger) (*MilvusStore, error) {
	if client == nil || client.Client == nil {
		return nil, fmt.Errorf("milvus client is not initialized")
	}
	return &MilvusStore{client: client, embedder: embedder, log: log}, nil
}

// AddDocuments embeds and inserts documents in batches of insertBatchSize.
func (s *MilvusStore) AddDocuments(ctx context.Context, docs []schema.Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	total := 0
	for start := 0; start < len(docs); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(docs) {
			end = len(docs)
		}
		if err := s.insertBatch(ctx, docs[start:end]); err != nil {
			return total, err
		}
		total += end - start
		s.log.Debug(fmt.Sprintf("Inserted batch %d:%d into %s", start, end, s.collection()))
	}

	// Flush so counts and follow-up queries see the new rows.
	if err := s.client.Client.Flush(ctx, s.collection(), false); err != nil {
		return total, fmt.Errorf("failed to flush collection: %w", err)
	}

	s.log.Info(fmt.Sprintf("Added %d documents to collection %s", total, s.collection()))
	return total, nil
}

func (s *MilvusStore) insertBatch(ctx context.Context, docs []schema.Document) error {
	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Text
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed documents: %w", err)
	}
	if len(vectors) != len(docs) {
		return fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(docs))
	}

	n := len(docs)
	ids := make([]string, n)
	reviewIDs := make([]int64, n)
	appNames := make([]string, n)
	categories := make([]string, n)
	ratings := make([]int64, n)
	dates := make([]string, n)
	helpfulCounts := make([]int64, n)
	chunkIndexes := make([]int64, n)
	totalChunks := make([]int64, n)

	for i, doc := range docs {
		if doc.ID == "" {
			ids[i] = uuid.New().String()
		} else {
			ids[i] = doc.ID
		}
		m := doc.Metadata
		reviewIDs[i] = m.ReviewID
		appNames[i] = m.AppName
		categories[i] = m.Category
		ratings[i] = int64(m.Rating)
		dates[i] = m.Date
		helpfulCounts[i] = m.HelpfulCount
		chunkIndexes[i] = int64(m.ChunkIndex)
		totalChunks[i] = int64(m.TotalChunks)
	}

	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}

	_, err = s.client.Client.Insert(ctx, s.collection(), "", /* default partition */
		entity.NewColumnVarChar(schema.FieldID, ids),
		entity.NewColumnVarChar(schema.FieldText, texts),
		entity.NewColumnFloatVector(schema.FieldEmbedding, dim, vectors),
		entity.NewColumnInt64(schema.FieldReviewID, reviewIDs),
		entity.NewColumnVarChar(schema.FieldAppName, appNames),
		entity.NewColumnVarChar(schema.FieldCategory, categories),
		entity.NewColumnInt64(schema.FieldRating, ratings),
		entity.NewColumnVarChar(schema.FieldDate, dates),
		entity.NewColumnInt64(schema.FieldHelpfulCount, helpfulCounts),
		entity.NewColumnInt64(schema.FieldChunkIndex, chunkIndexes),
		entity.NewColumnInt64(schema.FieldTotalChunks, totalChunks),
	)
	if err != nil {
		return fmt.Errorf("failed to insert data into Milvus: %w", err)
	}
	return nil
}

// Query embeds the query text and runs a filtered vector search.
func (s *MilvusStore) Query(ctx context.Context, queryText string, nResults int, threshold float32, filter *schema.Filter) ([]schema.ScoredDocument, error) {
	vector, err := s.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	filterExpr := buildFilterExpression(filter)
	outputFields := []string{
		schema.FieldID, schema.FieldText, schema.FieldReviewID, schema.FieldAppName,
		schema.FieldCategory, schema.FieldRating, schema.FieldDate,
		schema.FieldHelpfulCount, schema.FieldChunkIndex, schema.FieldTotalChunks,
	}

	sp, _ := entity.NewIndexHNSWSearchParam(64)
	s.log.Debug(fmt.Sprintf("Searching collection %q with filter %q", s.collection(), filterExpr))

	searchResults, err := s.client.Client.Search(
		ctx, s.collection(), []string{}, filterExpr, outputFields,
		[]entity.Vector{entity.FloatVector(vector)},
		schema.FieldEmbedding, entity.COSINE, nResults, sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search in Milvus: %w", err)
	}

	var results []schema.ScoredDocument
	for _, res := range searchResults {
		docs, err := decodeSearchResult(res.Fields, res.ResultCount)
		if err != nil {
			return nil, err
		}
		for i, doc := range docs {
			// Milvus reports cosine similarity; convert to distance.
			distance := 1 - res.Scores[i]
			if distance > threshold {
				continue
			}
			results = append(results, schema.ScoredDocument{Document: doc, Distance: distance})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	s.log.Debug(fmt.Sprintf("Retrieved %d documents (threshold %.2f)", len(results), threshold))
	return results, nil
}

// MetadataValues enumerates distinct non-empty values of a string metadata
// field across the collection.
func (s *MilvusStore) MetadataValues(ctx context.Context, field string) ([]string, error) {
	switch field {
	case schema.FieldAppName, schema.FieldCategory, schema.FieldDate:
	default:
		return nil, fmt.Errorf("unsupported metadata field: %s", field)
	}

	rs, err := s.client.Client.Query(ctx, s.collection(), nil,
		fmt.Sprintf(`%s != ""`, field), []string{field})
	if err != nil {
		return nil, fmt.Errorf("failed to query metadata values: %w", err)
	}

	seen := map[string]struct{}{}
	for _, col := range rs {
		varcharCol, ok := col.(*entity.ColumnVarChar)
		if !ok || varcharCol.Name() != field {
			continue
		}
		for _, v := range varcharCol.Data() {
			if v != "" {
				seen[v] = struct{}{}
			}
		}
	}

	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)
	return values, nil
}

// Count returns the collection row count.
func (s *MilvusStore) Count(ctx context.Context) (int64, error) {
	stats, err := s.client.Client.GetCollectionStatistics(ctx, s.collection())
	if err != nil {
		return 0, fmt.Errorf("failed to get collection statistics: %w", err)
	}
	count, err := strconv.ParseInt(stats["row_count"], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected row_count value %q: %w", stats["row_count"], err)
	}
	return count, nil
}

// Clear drops the collection and recreates it with the same schema, losing
// all contents irreversibly.
func (s *MilvusStore) Clear(ctx context.Context) error {
	if err := s.client.DropCollection(ctx); err != nil {
		return err
	}
	if err := s.client.EnsureCollection(ctx); err != nil {
		return err
	}
	s.log.Info(fmt.Sprintf("Cleared collection %s", s.collection()))
	return nil
}

func (s *MilvusStore) collection() string {
	return s.client.Config.Collection
}

// buildFilterExpression compiles the structured predicate into a Milvus
// boolean expression.
func buildFilterExpression(filter *schema.Filter) string {
	if filter.IsZero() {
		return ""
	}

	var conditions []string
	if filter.AppName != "" {
		conditions = append(conditions, fmt.Sprintf(`%s == %s`, schema.FieldAppName, quote(filter.AppName)))
	}
	if len(filter.AppNames) > 0 {
		quoted := make([]string, len(filter.AppNames))
		for i, name := range filter.AppNames {
			quoted[i] = quote(name)
		}
		conditions = append(conditions, fmt.Sprintf(`%s in [%s]`, schema.FieldAppName, strings.Join(quoted, ", ")))
	}
	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf(`%s == %s`, schema.FieldCategory, quote(filter.Category)))
	}
	if filter.RatingMin != 0 {
		conditions = append(conditions, fmt.Sprintf(`%s >= %d`, schema.FieldRating, filter.RatingMin))
	}
	if filter.RatingMax != 0 {
		conditions = append(conditions, fmt.Sprintf(`%s <= %d`, schema.FieldRating, filter.RatingMax))
	}
	return strings.Join(conditions, " and ")
}

func quote(v string) string {
	return strconv.Quote(v)
}

// decodeSearchResult converts the output columns of one search result into
// documents, preserving row order.
func decodeSearchResult(fields []entity.Column, count int) ([]schema.Document, error) {
	findColumn := func(name string) entity.Column {
		for _, field := range fields {
			if field.Name() == name {
				return field
			}
		}
		return nil
	}
	varcharData := func(name string) []string {
		if col, ok := findColumn(name).(*entity.ColumnVarChar); ok {
			return col.Data()
		}
		return nil
	}
	int64Data := func(name string) []int64 {
		if col, ok := findColumn(name).(*entity.ColumnInt64); ok {
			return col.Data()
		}
		return nil
	}

	ids := varcharData(schema.FieldID)
	texts := varcharData(schema.FieldText)
	if ids == nil || texts == nil {
		return nil, fmt.Errorf("search result is missing id or text column")
	}

	reviewIDs := int64Data(schema.FieldReviewID)
	appNames := varcharData(schema.FieldAppName)
	categories := varcharData(schema.FieldCategory)
	ratings := int64Data(schema.FieldRating)
	dates := varcharData(schema.FieldDate)
	helpfulCounts := int64Data(schema.FieldHelpfulCount)
	chunkIndexes := int64Data(schema.FieldChunkIndex)
	totalChunks := int64Data(schema.FieldTotalChunks)

	docs := make([]schema.Document, 0, count)
	for i := 0; i < count; i++ {
		doc := schema.Document{ID: ids[i], Text: texts[i]}
		if reviewIDs != nil {
			doc.Metadata.ReviewID = reviewIDs[i]
		}
		if appNames != nil {
			doc.Metadata.AppName = appNames[i]
		}
		if categories != nil {
			doc.Metadata.Category = categories[i]
		}
		if ratings != nil {
			doc.Metadata.Rating = int(ratings[i])
		}
		if dates != nil {
			doc.Metadata.Date = dates[i]
		}
		if helpfulCounts != nil {
			doc.Metadata.HelpfulCount = helpfulCounts[i]
		}
		if chunkIndexes != nil {
			doc.Metadata.ChunkIndex = int(chunkIndexes[i])
		}
		if totalChunks != nil {
			doc.Metadata.TotalChunks = int(totalChunks[i])
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

var _ ReviewStore = (*MilvusStore)(nil)
