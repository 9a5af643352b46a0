package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Storage
	UploadDir string
	DBPath    string

	// Weaviate connection
	WeaviateHost   string
	WeaviateScheme string
	WeaviateAPIKey string

	// Embedding service (OpenAI-compatible)
	EmbeddingBaseURL string
	EmbeddingAPIKey  string
	EmbeddingModel   string
	EmbeddingBatch   int

	// LLM (Groq)
	GroqAPIKey string
	LLMBaseURL string
	LLMModel   string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Chunking
	ChunkSize    int
	ChunkOverlap int

	// Job state
	JobTTL time.Duration
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8000"),

		APIKey: os.Getenv("PAPERQA_API_KEY"),

		UploadDir: envOr("UPLOAD_DIR", "uploads"),
		DBPath:    envOr("DB_PATH", "paperqa.db"),

		WeaviateHost:   envOr("WEAVIATE_HOST", "localhost:8080"),
		WeaviateScheme: envOr("WEAVIATE_SCHEME", "http"),
		WeaviateAPIKey: os.Getenv("WEAVIATE_API_KEY"),

		EmbeddingBaseURL: envOr("EMBEDDING_BASE_URL", "http://localhost:8081/v1"),
		EmbeddingAPIKey:  os.Getenv("EMBEDDING_API_KEY"),
		EmbeddingModel:   envOr("EMBEDDING_MODEL", "BAAI/bge-base-en-v1.5"),
		EmbeddingBatch:   envInt("EMBEDDING_BATCH_SIZE", 32),

		GroqAPIKey: os.Getenv("GROQ_API_KEY"),
		LLMBaseURL: envOr("LLM_BASE_URL", "https://api.groq.com/openai/v1"),
		LLMModel:   envOr("LLM_MODEL", "llama-3.3-70b-versatile"),

		WorkerCount:  envInt("WORKER_COUNT", 2),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 32),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		ChunkSize:    envInt("CHUNK_SIZE", 600),
		ChunkOverlap: envInt("CHUNK_OVERLAP", 100),

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 32
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 600
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 100
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("PAPERQA_API_KEY is required")
	}
	if c.EmbeddingModel == "" {
		return fmt.Errorf("EMBEDDING_MODEL is required")
	}
	if c.EmbeddingAPIKey == "" {
		return fmt.Errorf("EMBEDDING_API_KEY is required")
	}
	if c.GroqAPIKey == "" {
		return fmt.Errorf("GROQ_API_KEY is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
