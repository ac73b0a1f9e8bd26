package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"sentio/internal/config"
	"sentio/internal/llm"
	"sentio/internal/rag/schema"
	"sentio/internal/rag/vectorstore"
	"sentio/pkg/logger"
)

const noResultsAnswer = "I couldn't find any relevant reviews to answer your question."

// QueryResult is the full outcome of one RAG query.
type QueryResult struct {
	Answer          string   `json:"answer"`
	Sources         []string `json:"sources"`          // Apps the answer actually drew from
	NumDocs         int      `json:"num_docs"`         // Retrieved chunk count
	SelectedSources []string `json:"selected_sources"` // Pre-selection shortlist, nil when disabled
}

// RAG answers questions about product reviews by retrieving relevant chunks
// and generating a grounded answer. Source pre-selection is a soft filter: a
// failed or empty selection falls back to searching everything rather than
// answering nothing.
type RAG struct {
	store     vectorstore.ReviewStore
	model     llm.LLM
	topK      int
	threshold float32
	log       *logger.Logger
}

// NewRAG creates a RAG pipeline over the given store and model.
func NewRAG(store vectorstore.ReviewStore, model llm.LLM, cfg config.RetrievalConfig, log *logger.Logger) *RAG {
	return &RAG{
		store:     store,
		model:     model,
		topK:      cfg.TopK,
		threshold: cfg.Threshold,
		log:       log,
	}
}

// Query answers a question from the indexed reviews. When filterBySource is
// true the model first shortlists relevant apps and retrieval is restricted
// to them. Zero retrieved chunks short-circuits to a fixed answer without a
// generation call.
func (r *RAG) Query(ctx context.Context, question string, filterBySource bool) (*QueryResult, error) {
	result := &QueryResult{}

	var filter *schema.Filter
	if filterBySource {
		selected, err := r.SelectSources(ctx, question)
		if err != nil {
			r.log.WithError(err).Warn("Source selection failed, searching all sources")
		} else if len(selected) > 0 {
			filter = &schema.Filter{AppNames: selected}
			result.SelectedSources = selected
		}
	}

	docs, err := r.store.Query(ctx, question, r.topK, r.threshold, filter)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}
	result.NumDocs = len(docs)

	if len(docs) == 0 {
		result.Answer = noResultsAnswer
		return result, nil
	}

	answer, err := r.model.Complete(ctx, fmt.Sprintf(ragPrompt, formatContext(docs), question))
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}
	result.Answer = strings.TrimSpace(answer)
	result.Sources = distinctApps(docs)
	return result, nil
}

// SelectSources asks the model which indexed apps are relevant to the
// question. An empty collection or a "none" reply yields an empty list,
// which callers treat as "search everything". Names not present in the
// collection are discarded.
func (r *RAG) SelectSources(ctx context.Context, question string) ([]string, error) {
	apps, err := r.store.MetadataValues(ctx, schema.FieldAppName)
	if err != nil {
		return nil, err
	}
	if len(apps) == 0 {
		return nil, nil
	}

	reply, err := r.model.Complete(ctx, fmt.Sprintf(sourceSelectionPrompt, strings.Join(apps, "\n"), question))
	if err != nil {
		return nil, err
	}
	return parseSelectedSources(reply, apps), nil
}

// parseSelectedSources matches the model's comma-separated reply against the
// known app names, case-insensitively. Anything unrecognized is dropped.
func parseSelectedSources(reply string, apps []string) []string {
	reply = strings.TrimSpace(reply)
	if reply == "" || strings.EqualFold(reply, "none") {
		return nil
	}

	known := make(map[string]string, len(apps))
	for _, app := range apps {
		known[strings.ToLower(app)] = app
	}

	var selected []string
	seen := map[string]struct{}{}
	for _, part := range strings.Split(reply, ",") {
		name := strings.TrimSpace(part)
		canonical, ok := known[strings.ToLower(name)]
		if !ok {
			continue
		}
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		selected = append(selected, canonical)
	}
	return selected
}

// formatContext renders retrieved chunks for the generation prompt, each
// prefixed with its app and rating.
func formatContext(docs []schema.ScoredDocument) string {
	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		parts = append(parts, fmt.Sprintf("[%s - %d★]\n%s", doc.Metadata.AppName, doc.Metadata.Rating, doc.Text))
	}
	return strings.Join(parts, "\n\n")
}

// distinctApps returns the sorted distinct app names of the retrieved chunks.
func distinctApps(docs []schema.ScoredDocument) []string {
	seen := map[string]struct{}{}
	for _, doc := range docs {
		seen[doc.Metadata.AppName] = struct{}{}
	}
	apps := make([]string, 0, len(seen))
	for app := range seen {
		apps = append(apps, app)
	}
	sort.Strings(apps)
	return apps
}
