package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AppInfo holds basic information about the running application.
type AppInfo struct {
	Name        string `yaml:"name"`        // Application name
	Version     string `yaml:"version"`     // Application version
	Environment string `yaml:"environment"` // Runtime environment ("development", "production")
}

// LoggerConfig configures the structured logger.
type LoggerConfig struct {
	Level string `yaml:"level"` // Log level ("debug", "info", "warn", "error")
}

// ServerConfig configures the HTTP boundary layer.
type ServerConfig struct {
	Address   string          `yaml:"address"`   // Listen address (e.g. ":8080")
	RateLimit RateLimitConfig `yaml:"rateLimit"` // Request rate limiting
}

// RateLimitConfig bounds the request rate on the API. A zero PerSecond
// disables limiting.
type RateLimitConfig struct {
	PerSecond float64 `yaml:"perSecond"` // Sustained requests per second
	Burst     int     `yaml:"burst"`     // Burst size (defaults to PerSecond)
}

// OpenAIConfig configures an OpenAI-compatible chat completion endpoint.
// BaseURL allows pointing the client at any compatible server (vLLM, LM
// Studio, a proxy), not just api.openai.com.
type OpenAIConfig struct {
	Model   string `yaml:"model"`   // Model name (e.g. "gpt-4o-mini")
	APIKey  string `yaml:"apiKey"`  // API key
	BaseURL string `yaml:"baseURL"` // Optional base URL for compatible servers
}

// BedrockConfig configures the AWS Bedrock provider.
type BedrockConfig struct {
	ModelID         string `yaml:"modelID"`         // Bedrock model identifier
	Region          string `yaml:"region"`          // AWS region (e.g. "us-west-2")
	AccessKeyID     string `yaml:"accessKeyID"`     // AWS access key id
	SecretAccessKey string `yaml:"secretAccessKey"` // AWS secret access key
}

// LLMConfig selects and configures the language model provider. The provider
// is chosen once at construction; no code path branches on it afterwards.
type LLMConfig struct {
	Provider    string        `yaml:"provider"`    // "openai" or "bedrock"
	Temperature float32       `yaml:"temperature"` // Sampling temperature
	MaxTokens   int           `yaml:"maxTokens"`   // Response token cap
	OpenAI      OpenAIConfig  `yaml:"openai"`      // OpenAI-compatible settings
	Bedrock     BedrockConfig `yaml:"bedrock"`     // Bedrock settings
}

// OllamaEmbeddingConfig configures a local Ollama embedding backend.
type OllamaEmbeddingConfig struct {
	Model   string `yaml:"model"`   // Embedding model name
	BaseURL string `yaml:"baseURL"` // Ollama server URL (default http://localhost:11434)
}

// GeminiEmbeddingConfig configures the Google GenAI embedding backend.
type GeminiEmbeddingConfig struct {
	Model  string `yaml:"model"`  // Embedding model name
	APIKey string `yaml:"apiKey"` // API key
}

// EmbeddingConfig selects and configures the embedding model provider.
type EmbeddingConfig struct {
	Provider  string                `yaml:"provider"`  // "openai", "ollama" or "gemini"
	CacheSize int                   `yaml:"cacheSize"` // Query embedding LRU cache entries (default 256, negative disables)
	OpenAI    OpenAIConfig          `yaml:"openai"`    // OpenAI-compatible settings
	Ollama    OllamaEmbeddingConfig `yaml:"ollama"`    // Ollama settings
	Gemini    GeminiEmbeddingConfig `yaml:"gemini"`    // Gemini settings
}

// MilvusConfig holds the Milvus connection target and collection layout.
type MilvusConfig struct {
	Address    string `yaml:"address"`    // Milvus service address (e.g. "localhost:19530")
	Collection string `yaml:"collection"` // Collection name for review chunks
	Dim        int    `yaml:"dim"`        // Embedding vector dimension
}

// RedisConfig holds the Redis connection settings used by the Redis-backed
// conversation store.
type RedisConfig struct {
	Address  string `yaml:"address"`  // Redis server address (e.g. "localhost:6379")
	Password string `yaml:"password"` // Redis password
	DB       int    `yaml:"db"`       // Redis database number
}

// StoreConfig selects the vector store backend.
type StoreConfig struct {
	Backend string       `yaml:"backend"` // "milvus" or "memory"
	Milvus  MilvusConfig `yaml:"milvus"`  // Milvus settings
}

// RetrievalConfig tunes similarity search. Threshold is the maximum cosine
// distance (0 = identical, 2 = opposite) a chunk may have to be considered
// relevant; it is a tunable value, not a derived constant.
type RetrievalConfig struct {
	TopK      int     `yaml:"topK"`      // Candidate count per query
	Threshold float32 `yaml:"threshold"` // Maximum cosine distance
}

// ChunkingConfig tunes the text splitter used at ingestion time.
type ChunkingConfig struct {
	Size    int `yaml:"size"`    // Maximum chunk length in characters
	Overlap int `yaml:"overlap"` // Characters shared between consecutive chunks
}

// IngestionConfig configures CSV ingestion.
type IngestionConfig struct {
	DataDir   string `yaml:"dataDir"`   // Directory holding preprocessed CSV files
	BatchSize int    `yaml:"batchSize"` // Documents per vector store insert
	Limit     int    `yaml:"limit"`     // Row cap per ingest run (0 = unlimited)
}

// AgentConfig configures the conversational agent.
type AgentConfig struct {
	MaxIterations  int         `yaml:"maxIterations"`  // Tool-use loop cap
	HistoryBackend string      `yaml:"historyBackend"` // "memory" or "redis"
	Redis          RedisConfig `yaml:"redis"`          // Redis settings for the history store
}

// AppConfig is the root of the YAML configuration file.
type AppConfig struct {
	App       AppInfo         `yaml:"app"`       // Application info
	Logger    LoggerConfig    `yaml:"logger"`    // Logger settings
	Server    ServerConfig    `yaml:"server"`    // HTTP server settings
	LLM       LLMConfig       `yaml:"llm"`       // Language model settings
	Embedding EmbeddingConfig `yaml:"embedding"` // Embedding model settings
	Store     StoreConfig     `yaml:"store"`     // Vector store settings
	Retrieval RetrievalConfig `yaml:"retrieval"` // Retrieval tuning
	Chunking  ChunkingConfig  `yaml:"chunking"`  // Splitter tuning
	Ingestion IngestionConfig `yaml:"ingestion"` // Ingestion settings
	Agent     AgentConfig     `yaml:"agent"`     // Agent settings
}

// LoadConfig reads and parses the YAML configuration file at the given path,
// applies defaults and validates it. Validation failures are configuration
// errors: the service refuses to start rather than failing at query time.
func LoadConfig(path string) (*AppConfig, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(yamlFile, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.RateLimit.PerSecond > 0 && c.Server.RateLimit.Burst == 0 {
		c.Server.RateLimit.Burst = int(c.Server.RateLimit.PerSecond)
	}
	if c.Embedding.CacheSize == 0 {
		c.Embedding.CacheSize = 256
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.1
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 1000
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "milvus"
	}
	if c.Store.Milvus.Collection == "" {
		c.Store.Milvus.Collection = "sentio_reviews"
	}
	if c.Retrieval.TopK == 0 {
		c.Retrieval.TopK = 5
	}
	if c.Retrieval.Threshold == 0 {
		c.Retrieval.Threshold = 1.2
	}
	if c.Chunking.Size == 0 {
		c.Chunking.Size = 500
	}
	if c.Chunking.Overlap == 0 {
		c.Chunking.Overlap = 100
	}
	if c.Ingestion.BatchSize == 0 {
		c.Ingestion.BatchSize = 500
	}
	if c.Ingestion.DataDir == "" {
		c.Ingestion.DataDir = "data/processed"
	}
	if c.Agent.MaxIterations == 0 {
		c.Agent.MaxIterations = 10
	}
	if c.Agent.HistoryBackend == "" {
		c.Agent.HistoryBackend = "memory"
	}
}

// Validate checks that the selected providers have the credentials and
// connection parameters they need.
func (c *AppConfig) Validate() error {
	switch c.LLM.Provider {
	case "openai":
		if c.LLM.OpenAI.Model == "" {
			return fmt.Errorf("llm: openai provider requires a model")
		}
		if c.LLM.OpenAI.APIKey == "" && c.LLM.OpenAI.BaseURL == "" {
			return fmt.Errorf("llm: openai provider requires an apiKey or a baseURL")
		}
	case "bedrock":
		if c.LLM.Bedrock.ModelID == "" {
			return fmt.Errorf("llm: bedrock provider requires a modelID")
		}
		if c.LLM.Bedrock.AccessKeyID == "" || c.LLM.Bedrock.SecretAccessKey == "" {
			return fmt.Errorf("llm: bedrock provider requires AWS credentials")
		}
	default:
		return fmt.Errorf("llm: unsupported provider: %q", c.LLM.Provider)
	}

	switch c.Embedding.Provider {
	case "openai":
		if c.Embedding.OpenAI.Model == "" {
			return fmt.Errorf("embedding: openai provider requires a model")
		}
	case "ollama":
		if c.Embedding.Ollama.Model == "" {
			return fmt.Errorf("embedding: ollama provider requires a model")
		}
	case "gemini":
		if c.Embedding.Gemini.Model == "" || c.Embedding.Gemini.APIKey == "" {
			return fmt.Errorf("embedding: gemini provider requires a model and an apiKey")
		}
	default:
		return fmt.Errorf("embedding: unsupported provider: %q", c.Embedding.Provider)
	}

	if c.Store.Backend == "milvus" {
		if c.Store.Milvus.Address == "" {
			return fmt.Errorf("store: milvus backend requires an address")
		}
		if c.Store.Milvus.Dim <= 0 {
			return fmt.Errorf("store: milvus backend requires a positive embedding dim")
		}
	}

	if c.Agent.HistoryBackend == "redis" && c.Agent.Redis.Address == "" {
		return fmt.Errorf("agent: redis history backend requires an address")
	}

	return nil
}
