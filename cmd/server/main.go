package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sentio/internal/agent"
	"sentio/internal/api"
	"sentio/internal/config"
	"sentio/internal/database/milvus"
	"sentio/internal/database/redis"
	"sentio/internal/embedding"
	"sentio/internal/llm"
	"sentio/internal/rag/pipeline"
	"sentio/internal/rag/splitters"
	"sentio/internal/rag/vectorstore"
	"sentio/pkg/logger"
	"sentio/pkg/ratelimit"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := "config/config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.ParseLevel(cfg.Logger.Level))
	log := logger.New("server", "")

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("Server exited with error")
	}
}

func run(cfg *config.AppConfig, log *logger.Logger) error {
	ctx := context.Background()

	embedder, err := embedding.NewModel(cfg.Embedding)
	if err != nil {
		return fmt.Errorf("failed to create embedding model: %w", err)
	}
	if cfg.Embedding.CacheSize > 0 {
		embedder = embedding.NewCached(embedder, cfg.Embedding.CacheSize)
	}

	store, cleanup, err := newStore(ctx, cfg, embedder, log)
	if err != nil {
		return fmt.Errorf("failed to create vector store: %w", err)
	}
	defer cleanup()

	model, err := llm.NewClient(cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}

	splitter, err := splitters.NewRecursiveSplitter(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		return fmt.Errorf("failed to create splitter: %w", err)
	}

	ingestor := pipeline.NewIngestor(store, splitter, logger.New("ingestor", ""))
	rag := pipeline.NewRAG(store, model, cfg.Retrieval, logger.New("rag", ""))
	toolbox := agent.NewToolbox(store, rag, cfg.Retrieval)

	history, err := newHistory(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create conversation store: %w", err)
	}
	ag := agent.New(model, toolbox, history, cfg.Agent, logger.New("agent", ""))

	handler := api.NewHandler(store, rag, ingestor, ag, model, cfg, logger.New("api", ""))

	var limiter *ratelimit.Limiter
	if cfg.Server.RateLimit.PerSecond > 0 {
		limiter = ratelimit.New(cfg.Server.RateLimit.PerSecond, cfg.Server.RateLimit.Burst)
	}
	router := api.NewRouter(handler, limiter)

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("address", cfg.Server.Address).Info("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Info("Server stopped")
	return nil
}

// newStore builds the configured vector store backend. The Milvus backend
// creates the collection and index on first start.
func newStore(ctx context.Context, cfg *config.AppConfig, embedder embedding.Embedding, log *logger.Logger) (vectorstore.ReviewStore, func(), error) {
	switch cfg.Store.Backend {
	case "milvus":
		client, err := milvus.NewClient(ctx, cfg.Store.Milvus)
		if err != nil {
			return nil, nil, err
		}
		if err := client.EnsureCollection(ctx); err != nil {
			client.Close()
			return nil, nil, err
		}
		store, err := vectorstore.NewMilvusStore(client, embedder, logger.New("vectorstore", ""))
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		return store, client.Close, nil
	case "memory":
		log.Warn("Using in-memory vector store, contents will not survive a restart")
		return vectorstore.NewMemoryStore(embedder), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store backend: %s", cfg.Store.Backend)
	}
}

// newHistory builds the configured conversation history backend.
func newHistory(ctx context.Context, cfg *config.AppConfig) (agent.ConversationStore, error) {
	switch cfg.Agent.HistoryBackend {
	case "redis":
		client, err := redis.NewClient(ctx, cfg.Agent.Redis)
		if err != nil {
			return nil, err
		}
		return agent.NewRedisHistory(client), nil
	case "memory":
		return agent.NewMemoryHistory(), nil
	default:
		return nil, fmt.Errorf("unsupported history backend: %s", cfg.Agent.HistoryBackend)
	}
}
