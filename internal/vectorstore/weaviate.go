// Package vectorstore persists chunk embeddings in Weaviate and runs
// filtered nearest-neighbor queries over them.
package vectorstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/dhalloran/paperqa/internal/paper"
)

const (
	className = "PaperChunk"

	// Weaviate-stored chunk text is capped; retrieval returns this
	// stored copy, so previews and contexts never exceed it.
	metadataTextLimit = 1000

	upsertBatchSize = 100
)

// Config holds Weaviate connection settings.
type Config struct {
	Host   string // host:port
	Scheme string
	APIKey string
}

// Store wraps a Weaviate class holding one object per chunk, vectors
// supplied by the caller (Vectorizer "none").
type Store struct {
	client *weaviate.Client
	logger *slog.Logger
}

// Filter narrows a query to one paper, one group, or a set of papers.
// At most one field is applied, checked in that order.
type Filter struct {
	PaperID  string
	GroupID  string
	PaperIDs []string
}

// New connects to Weaviate.
func New(cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("weaviate host is required")
	}
	scheme := cfg.Scheme
	if scheme == "" {
		scheme = "http"
	}

	var authConfig auth.Config
	if cfg.APIKey != "" {
		authConfig = auth.ApiKey{Value: cfg.APIKey}
	}

	client, err := weaviate.NewClient(weaviate.Config{
		Host:       cfg.Host,
		Scheme:     scheme,
		AuthConfig: authConfig,
	})
	if err != nil {
		return nil, fmt.Errorf("create weaviate client: %w", err)
	}

	return &Store{
		client: client,
		logger: logger.With("component", "vectorstore"),
	}, nil
}

// EnsureSchema creates the chunk class if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	exists, err := s.client.Schema().ClassExistenceChecker().WithClassName(className).Do(ctx)
	if err != nil {
		return fmt.Errorf("check class %s: %w", className, err)
	}
	if exists {
		return nil
	}

	class := &models.Class{
		Class:       className,
		Description: "Token-budgeted chunk of an uploaded research paper",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{Name: "chunkId", DataType: []string{"text"}},
			{Name: "paperId", DataType: []string{"text"}},
			{Name: "section", DataType: []string{"text"}},
			{Name: "page", DataType: []string{"int"}},
			{Name: "text", DataType: []string{"text"}},
			{Name: "groupId", DataType: []string{"text"}},
		},
	}

	if err := s.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("create class %s: %w", className, err)
	}
	s.logger.Info("created weaviate class", "class", className)
	return nil
}

// capChunkText caps stored chunk text at metadataTextLimit characters,
// cutting on rune boundaries so multibyte text stays valid UTF-8.
func capChunkText(s string) string {
	if runes := []rune(s); len(runes) > metadataTextLimit {
		return string(runes[:metadataTextLimit])
	}
	return s
}

// objectID derives a stable Weaviate object ID from a chunk ID, so
// re-ingesting a paper overwrites rather than duplicates.
func objectID(chunkID string) strfmt.UUID {
	return strfmt.UUID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(chunkID)).String())
}

// UpsertChunks stores chunks with their vectors in batches. vectors
// must be positionally aligned with chunks. Returns the number of
// objects written.
func (s *Store) UpsertChunks(ctx context.Context, chunks []paper.Chunk, vectors [][]float32, groupID string) (int, error) {
	if len(chunks) != len(vectors) {
		return 0, fmt.Errorf("got %d chunks but %d vectors", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	objects := make([]*models.Object, len(chunks))
	for i, c := range chunks {
		text := capChunkText(c.Text)
		props := map[string]interface{}{
			"chunkId": c.ID,
			"paperId": c.PaperID,
			"section": c.Section,
			"page":    c.Page,
			"text":    text,
			"groupId": groupID,
		}
		objects[i] = &models.Object{
			Class:      className,
			ID:         objectID(c.ID),
			Properties: props,
			Vector:     models.C11yVector(vectors[i]),
		}
	}

	total := 0
	for start := 0; start < len(objects); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(objects) {
			end = len(objects)
		}
		resp, err := s.client.Batch().ObjectsBatcher().WithObjects(objects[start:end]...).Do(ctx)
		if err != nil {
			return total, fmt.Errorf("upsert batch starting at %d: %w", start, err)
		}
		for _, r := range resp {
			if r.Result != nil && r.Result.Errors != nil && len(r.Result.Errors.Error) > 0 {
				return total, fmt.Errorf("upsert object %s: %s", r.ID, r.Result.Errors.Error[0].Message)
			}
		}
		total += end - start
	}

	s.logger.Info("upserted chunks", "count", total, "paper_id", chunks[0].PaperID)
	return total, nil
}

// Query returns the topK nearest chunks to vector, optionally filtered.
func (s *Store) Query(ctx context.Context, vector []float32, topK int, f Filter) ([]paper.RetrievedChunk, error) {
	fields := []graphql.Field{
		{Name: "chunkId"},
		{Name: "paperId"},
		{Name: "section"},
		{Name: "page"},
		{Name: "text"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "certainty"}}},
	}

	query := s.client.GraphQL().Get().
		WithClassName(className).
		WithNearVector(s.client.GraphQL().NearVectorArgBuilder().WithVector(vector)).
		WithFields(fields...).
		WithLimit(topK)

	if where := whereFilter(f); where != nil {
		query = query.WithWhere(where)
	}

	resp, err := query.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("query weaviate: %w", err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("query weaviate: %s", resp.Errors[0].Message)
	}

	return parseChunks(resp.Data)
}

// DeletePaper removes all chunks belonging to a paper.
func (s *Store) DeletePaper(ctx context.Context, paperID string) error {
	where := filters.Where().
		WithPath([]string{"paperId"}).
		WithOperator(filters.Equal).
		WithValueText(paperID)

	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(className).
		WithWhere(where).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("delete chunks for paper %s: %w", paperID, err)
	}
	s.logger.Info("deleted paper chunks", "paper_id", paperID)
	return nil
}

func whereFilter(f Filter) *filters.WhereBuilder {
	switch {
	case f.PaperID != "":
		return filters.Where().
			WithPath([]string{"paperId"}).
			WithOperator(filters.Equal).
			WithValueText(f.PaperID)
	case f.GroupID != "":
		return filters.Where().
			WithPath([]string{"groupId"}).
			WithOperator(filters.Equal).
			WithValueText(f.GroupID)
	case len(f.PaperIDs) > 0:
		return filters.Where().
			WithPath([]string{"paperId"}).
			WithOperator(filters.ContainsAny).
			WithValueText(f.PaperIDs...)
	}
	return nil
}

func parseChunks(data map[string]models.JSONObject) ([]paper.RetrievedChunk, error) {
	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return nil, nil
	}
	items, ok := get[className].([]interface{})
	if !ok {
		return nil, nil
	}

	chunks := make([]paper.RetrievedChunk, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		var c paper.RetrievedChunk
		if v, ok := m["chunkId"].(string); ok {
			c.ID = v
		}
		if v, ok := m["paperId"].(string); ok {
			c.PaperID = v
		}
		if v, ok := m["section"].(string); ok {
			c.Section = v
		}
		if v, ok := m["page"].(float64); ok {
			c.Page = int(v)
		}
		if v, ok := m["text"].(string); ok {
			c.Text = v
		}
		if add, ok := m["_additional"].(map[string]interface{}); ok {
			if v, ok := add["certainty"].(float64); ok {
				c.Score = v
			}
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}
