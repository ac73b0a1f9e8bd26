package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"sentio/internal/config"
	"sentio/internal/llm"
	"sentio/internal/rag/pipeline"
	"sentio/internal/rag/schema"
	"sentio/internal/rag/vectorstore"
)

const (
	defaultSearchResults = 5
	snippetMaxLen        = 300
)

// Toolbox exposes the review collection to the agent as callable tools. All
// dependencies are injected; the toolbox holds no mutable state of its own
// and is safe for concurrent use.
type Toolbox struct {
	store     vectorstore.ReviewStore
	rag       *pipeline.RAG
	threshold float32
}

// NewToolbox creates a Toolbox over the given store and RAG pipeline. The
// retrieval threshold bounds the cosine distance of search tool results.
func NewToolbox(store vectorstore.ReviewStore, rag *pipeline.RAG, cfg config.RetrievalConfig) *Toolbox {
	return &Toolbox{store: store, rag: rag, threshold: cfg.Threshold}
}

// Tools returns the tool declarations handed to the model.
func (t *Toolbox) Tools() []llm.Tool {
	queryParam := map[string]interface{}{
		"type":        "string",
		"description": "What to search for in the reviews",
	}
	nResultsParam := map[string]interface{}{
		"type":        "integer",
		"description": "Number of results to return (default 5)",
	}

	return []llm.Tool{
		{
			Name:        "search_reviews",
			Description: "Search all product reviews for passages relevant to a query.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query":     queryParam,
					"n_results": nResultsParam,
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        "search_by_app",
			Description: "Search reviews of one specific app. Use list_available_apps first if unsure of the exact name.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": queryParam,
					"app_name": map[string]interface{}{
						"type":        "string",
						"description": "Exact app name to restrict the search to",
					},
					"n_results": nResultsParam,
				},
				"required": []string{"query", "app_name"},
			},
		},
		{
			Name:        "search_by_category",
			Description: "Search reviews within one app category.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": queryParam,
					"category": map[string]interface{}{
						"type":        "string",
						"description": "Exact category name to restrict the search to",
					},
					"n_results": nResultsParam,
				},
				"required": []string{"query", "category"},
			},
		},
		{
			Name:        "search_by_rating",
			Description: "Search reviews whose star rating falls in a range. Useful for complaints (low ratings) or praise (high ratings).",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"query": queryParam,
					"min_rating": map[string]interface{}{
						"type":        "integer",
						"description": "Minimum star rating (1-5)",
					},
					"max_rating": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum star rating (1-5)",
					},
					"n_results": nResultsParam,
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        "list_available_apps",
			Description: "List all app names present in the review collection.",
			Parameters: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "list_categories",
			Description: "List all app categories present in the review collection.",
			Parameters: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "answer_question",
			Description: "Answer a question with a full retrieval-and-generation pass over the reviews. Prefer this for broad analytical questions.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"question": map[string]interface{}{
						"type":        "string",
						"description": "The question to answer from the reviews",
					},
				},
				"required": []string{"question"},
			},
		},
		{
			Name:        "collection_stats",
			Description: "Report how many review chunks are indexed and which categories they cover.",
			Parameters: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}

// Execute runs one tool call and returns its textual result. Unknown tool
// names and bad arguments are errors; the agent loop reports them back to
// the model instead of aborting the conversation.
func (t *Toolbox) Execute(ctx context.Context, call llm.ToolCall) (string, error) {
	switch call.Name {
	case "search_reviews":
		return t.search(ctx, call.Arguments, nil)
	case "search_by_app":
		app, err := stringArg(call.Arguments, "app_name")
		if err != nil {
			return "", err
		}
		return t.search(ctx, call.Arguments, &schema.Filter{AppName: app})
	case "search_by_category":
		category, err := stringArg(call.Arguments, "category")
		if err != nil {
			return "", err
		}
		return t.search(ctx, call.Arguments, &schema.Filter{Category: category})
	case "search_by_rating":
		filter := &schema.Filter{
			RatingMin: intArg(call.Arguments, "min_rating", 0),
			RatingMax: intArg(call.Arguments, "max_rating", 0),
		}
		return t.search(ctx, call.Arguments, filter)
	case "list_available_apps":
		return t.listMetadata(ctx, schema.FieldAppName, "apps")
	case "list_categories":
		return t.listMetadata(ctx, schema.FieldCategory, "categories")
	case "answer_question":
		question, err := stringArg(call.Arguments, "question")
		if err != nil {
			return "", err
		}
		result, err := t.rag.Query(ctx, question, true)
		if err != nil {
			return "", err
		}
		if len(result.Sources) == 0 {
			return result.Answer, nil
		}
		return fmt.Sprintf("%s\n\nSources: %s", result.Answer, strings.Join(result.Sources, ", ")), nil
	case "collection_stats":
		return t.stats(ctx)
	default:
		return "", fmt.Errorf("unknown tool: %s", call.Name)
	}
}

func (t *Toolbox) search(ctx context.Context, args map[string]interface{}, filter *schema.Filter) (string, error) {
	query, err := stringArg(args, "query")
	if err != nil {
		return "", err
	}
	n := intArg(args, "n_results", defaultSearchResults)

	docs, err := t.store.Query(ctx, query, n, t.threshold, filter)
	if err != nil {
		return "", err
	}
	if len(docs) == 0 {
		return "No relevant reviews found.", nil
	}
	return formatResults(docs), nil
}

func (t *Toolbox) listMetadata(ctx context.Context, field, label string) (string, error) {
	values, err := t.store.MetadataValues(ctx, field)
	if err != nil {
		return "", err
	}
	if len(values) == 0 {
		return fmt.Sprintf("No %s in the collection.", label), nil
	}
	return fmt.Sprintf("Available %s (%d):\n%s", label, len(values), strings.Join(values, "\n")), nil
}

func (t *Toolbox) stats(ctx context.Context) (string, error) {
	count, err := t.store.Count(ctx)
	if err != nil {
		return "", err
	}
	categories, err := t.store.MetadataValues(ctx, schema.FieldCategory)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Indexed chunks: %d\nCategories (%d): %s",
		count, len(categories), strings.Join(categories, ", ")), nil
}

// formatResults renders search hits for the model. Chunks of the same review
// are grouped and ordered by chunk index so the model reads each review as
// one contiguous passage. Match percentage maps distance 0 to 100%.
func formatResults(docs []schema.ScoredDocument) string {
	type review struct {
		meta     schema.ReviewMetadata
		chunks   []schema.ScoredDocument
		bestDist float32
	}

	order := []int64{}
	grouped := map[int64]*review{}
	for _, doc := range docs {
		id := doc.Metadata.ReviewID
		r, ok := grouped[id]
		if !ok {
			r = &review{meta: doc.Metadata, bestDist: doc.Distance}
			grouped[id] = r
			order = append(order, id)
		}
		r.chunks = append(r.chunks, doc)
		if doc.Distance < r.bestDist {
			r.bestDist = doc.Distance
		}
	}

	var b strings.Builder
	for i, id := range order {
		r := grouped[id]
		sort.SliceStable(r.chunks, func(a, c int) bool {
			return r.chunks[a].Metadata.ChunkIndex < r.chunks[c].Metadata.ChunkIndex
		})

		var text strings.Builder
		for j, chunk := range r.chunks {
			if j > 0 {
				text.WriteString(" ")
			}
			text.WriteString(chunk.Text)
		}
		snippet := text.String()
		if len(snippet) > snippetMaxLen {
			snippet = snippet[:snippetMaxLen] + "..."
		}

		match := (1 - r.bestDist) * 100
		if match < 0 {
			match = 0
		}
		fmt.Fprintf(&b, "%d. [%s | %s | %d★ | Match: %.0f%%]\n%s\n\n",
			i+1, r.meta.AppName, r.meta.Category, r.meta.Rating, match, snippet)
	}
	return strings.TrimSpace(b.String())
}

func stringArg(args map[string]interface{}, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing required argument: %s", key)
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("argument %s must be a non-empty string", key)
	}
	return s, nil
}

// intArg reads an integer argument, tolerating the float64 that JSON
// decoding produces for numbers.
func intArg(args map[string]interface{}, key string, fallback int) int {
	v, ok := args[key]
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return fallback
	}
}
