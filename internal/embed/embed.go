// Package embed generates vector embeddings for chunks and queries
// through an OpenAI-compatible embeddings endpoint serving a BGE model.
package embed

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// BGE models retrieve better when queries carry this instruction prefix.
const queryInstruction = "Represent this sentence for searching relevant passages: "

const defaultBatchSize = 32

// Config holds configuration for the embedding client.
type Config struct {
	BaseURL    string // OpenAI-compatible endpoint
	APIKey     string
	Model      string
	BatchSize  int
	MaxRetries int
	RetryDelay time.Duration
}

// Client wraps the embeddings API with batching and retry logic.
type Client struct {
	client     *openai.Client
	model      string
	batchSize  int
	maxRetries int
	retryDelay time.Duration
}

// New creates an embedding client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embedding API key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("embedding model is required")
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 2 * time.Second
	}

	return &Client{
		client:     openai.NewClientWithConfig(oc),
		model:      cfg.Model,
		batchSize:  batchSize,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}, nil
}

// EmbedTexts embeds chunk texts in order, batching requests. The result
// has one vector per input text.
func (c *Client) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch starting at %d: %w", start, err)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// EmbedQuery embeds a search query with the BGE instruction prefix.
func (c *Client) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := c.embedBatch(ctx, []string{queryInstruction + query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return vectors[0], nil
}

func (c *Client) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff(c.retryDelay, attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
			Input: texts,
			Model: openai.EmbeddingModel(c.model),
		})
		if err != nil {
			lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
			continue
		}
		if len(resp.Data) != len(texts) {
			lastErr = fmt.Errorf("attempt %d: got %d embeddings for %d inputs", attempt+1, len(resp.Data), len(texts))
			continue
		}

		vectors := make([][]float32, len(resp.Data))
		for i, d := range resp.Data {
			vectors[i] = d.Embedding
		}
		return vectors, nil
	}

	return nil, fmt.Errorf("after %d attempts: %w", c.maxRetries+1, lastErr)
}

// backoff doubles the delay each attempt.
func backoff(base time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}
