package api

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"sentio/internal/agent"
	"sentio/internal/config"
	"sentio/internal/llm"
	"sentio/internal/rag/loaders"
	"sentio/internal/rag/pipeline"
	"sentio/internal/rag/vectorstore"
	"sentio/pkg/logger"
)

// Handler holds the services behind the HTTP endpoints.
type Handler struct {
	store    vectorstore.ReviewStore
	rag      *pipeline.RAG
	ingestor *pipeline.Ingestor
	agent    *agent.Agent
	model    llm.LLM
	cfg      *config.AppConfig
	log      *logger.Logger
}

// NewHandler wires the services into an HTTP handler set.
func NewHandler(store vectorstore.ReviewStore, rag *pipeline.RAG, ingestor *pipeline.Ingestor, ag *agent.Agent, model llm.LLM, cfg *config.AppConfig, log *logger.Logger) *Handler {
	return &Handler{
		store:    store,
		rag:      rag,
		ingestor: ingestor,
		agent:    ag,
		model:    model,
		cfg:      cfg,
		log:      log,
	}
}

// QueryRequest is the body of POST /api/v1/query. FilterBySource defaults to
// true when omitted, hence the pointer.
type QueryRequest struct {
	Question       string `json:"question" binding:"required"`
	FilterBySource *bool  `json:"filter_by_source"`
}

// IngestRequest is the body of POST /api/v1/ingest. Filename is resolved
// inside the configured data directory, never as an arbitrary path.
type IngestRequest struct {
	Filename      string `json:"filename" binding:"required"`
	ClearExisting bool   `json:"clear_existing"`
	Limit         int    `json:"limit"`
}

// ChatRequest is the body of POST /api/v1/chat.
type ChatRequest struct {
	Message  string `json:"message" binding:"required"`
	ThreadID string `json:"thread_id"`
}

// Health reports service status and the indexed document count.
func (h *Handler) Health(c *gin.Context) {
	count, err := h.store.Count(c.Request.Context())
	if err != nil {
		h.log.WithError(err).Error("Health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": h.cfg.App.Name,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"service":   h.cfg.App.Name,
		"documents": count,
	})
}

// Query answers a question from the indexed reviews.
func (h *Handler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question must not be empty"})
		return
	}

	filterBySource := true
	if req.FilterBySource != nil {
		filterBySource = *req.FilterBySource
	}

	result, err := h.rag.Query(c.Request.Context(), req.Question, filterBySource)
	if err != nil {
		h.log.WithError(err).Error("Query failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// ModelInfo reports the configured LLM provider and generation settings.
func (h *Handler) ModelInfo(c *gin.Context) {
	c.JSON(http.StatusOK, h.model.ModelInfo())
}

// Ingest loads a CSV file from the configured data directory into the
// vector store. The filename is validated against path traversal before any
// filesystem access.
func (h *Handler) Ingest(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := validateFilename(req.Filename); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	path := filepath.Join(h.cfg.Ingestion.DataDir, req.Filename)
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found: " + req.Filename})
		return
	}

	stats, err := h.ingestor.IngestCSV(c.Request.Context(), path, pipeline.IngestOptions{
		BatchSize:     h.cfg.Ingestion.BatchSize,
		ClearExisting: req.ClearExisting,
		Limit:         req.Limit,
	})
	if err != nil {
		var missing *loaders.MissingColumnsError
		if errors.As(err, &missing) {
			c.JSON(http.StatusBadRequest, gin.H{"error": missing.Error()})
			return
		}
		h.log.WithError(err).Error("Ingestion failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ingestion failed"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Stats reports collection statistics.
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.ingestor.Stats(c.Request.Context())
	if err != nil {
		h.log.WithError(err).Error("Stats failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "stats unavailable"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ClearCollection drops and recreates the collection.
func (h *Handler) ClearCollection(c *gin.Context) {
	if err := h.store.Clear(c.Request.Context()); err != nil {
		h.log.WithError(err).Error("Clear collection failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "clear failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

// Chat runs one agent conversation turn.
func (h *Handler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	threadID := req.ThreadID
	if threadID == "" {
		threadID = "default"
	}

	answer, err := h.agent.Chat(c.Request.Context(), req.Message, threadID)
	if err != nil {
		if errors.Is(err, agent.ErrToolLoopExceeded) {
			h.log.WithField("thread_id", threadID).Error("Agent exceeded tool iteration cap")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "agent could not complete the request"})
			return
		}
		h.log.WithError(err).Error("Chat failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "chat failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"answer":    answer,
		"thread_id": threadID,
	})
}

// ChatHistory returns a thread's conversation so far. Unknown threads yield
// an empty list, not a 404.
func (h *Handler) ChatHistory(c *gin.Context) {
	threadID := c.Param("thread_id")
	messages, err := h.agent.History(c.Request.Context(), threadID)
	if err != nil {
		h.log.WithError(err).Error("History read failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"thread_id": threadID,
		"messages":  messages,
		"count":     len(messages),
	})
}

// validateFilename rejects path traversal and non-CSV files before the name
// touches the filesystem.
func validateFilename(name string) error {
	if strings.Contains(name, "/") || strings.Contains(name, "\\") || strings.Contains(name, "..") {
		return errors.New("filename must not contain path separators")
	}
	if !strings.HasSuffix(strings.ToLower(name), ".csv") {
		return errors.New("only .csv files can be ingested")
	}
	return nil
}
