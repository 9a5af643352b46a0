// Package rag orchestrates the question-answering flow: embed the
// question, retrieve relevant chunks, build a context prompt, generate
// an answer, and cite the sources.
package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dhalloran/paperqa/internal/paper"
	"github.com/dhalloran/paperqa/internal/prompts"
	"github.com/dhalloran/paperqa/internal/vectorstore"
)

// Retrieval depths.
const (
	DefaultTopK = 5
	MaxTopK     = 10
	// Comparison retrieves a fixed number of chunks per paper so each
	// paper gets equal representation in the context.
	compareTopKPerPaper = 3
)

// Fixed responses when retrieval comes back empty. The generator is
// never called in that case.
const (
	NoInformationMessage = "I couldn't find any relevant information in the uploaded papers to answer this question. Please make sure you've uploaded a paper that covers this topic."
	NoComparisonMessage  = "I couldn't find relevant information in the specified papers for comparison."
)

// Embedder turns a question into a query vector.
type Embedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

// Searcher retrieves the nearest chunks to a vector.
type Searcher interface {
	Query(ctx context.Context, vector []float32, topK int, f vectorstore.Filter) ([]paper.RetrievedChunk, error)
}

// Generator produces an answer from a system and user prompt.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// Options controls a single answer request.
type Options struct {
	PaperID string // restrict retrieval to one paper
	GroupID string // restrict retrieval to a group's papers
	Mode    string // response mode; unknown values fall back to academic
	TopK    int    // 1..MaxTopK; zero means DefaultTopK
}

// Result is a completed answer with its provenance.
type Result struct {
	Answer          string           `json:"answer"`
	Citations       []paper.Citation `json:"citations"`
	Question        string           `json:"question"`
	Mode            string           `json:"mode"`
	RetrievedChunks int              `json:"retrieved_chunks"`
}

// Pipeline wires the retrieval and generation collaborators together.
type Pipeline struct {
	embedder  Embedder
	searcher  Searcher
	generator Generator
	logger    *slog.Logger
}

// New creates a pipeline.
func New(embedder Embedder, searcher Searcher, generator Generator, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		embedder:  embedder,
		searcher:  searcher,
		generator: generator,
		logger:    logger.With("component", "rag"),
	}
}

// Answer runs the full flow for one question.
func (p *Pipeline) Answer(ctx context.Context, question string, opts Options) (*Result, error) {
	mode := normalizeMode(opts.Mode)
	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}

	chunks, err := p.retrieve(ctx, question, topK, vectorstore.Filter{
		PaperID: opts.PaperID,
		GroupID: opts.GroupID,
	})
	if err != nil {
		return nil, err
	}

	if len(chunks) == 0 {
		p.logger.Info("no chunks retrieved", "question_len", len(question))
		return &Result{
			Answer:          NoInformationMessage,
			Citations:       []paper.Citation{},
			Question:        question,
			Mode:            mode,
			RetrievedChunks: 0,
		}, nil
	}

	answer, err := p.generate(ctx, question, chunks, mode)
	if err != nil {
		return nil, err
	}

	return &Result{
		Answer:          answer,
		Citations:       BuildCitations(chunks),
		Question:        question,
		Mode:            mode,
		RetrievedChunks: len(chunks),
	}, nil
}

// Compare answers a question across several papers, retrieving a fixed
// number of chunks per paper and keeping them grouped by paper in the
// context.
func (p *Pipeline) Compare(ctx context.Context, question string, paperIDs []string, mode string) (*Result, error) {
	mode = normalizeMode(mode)

	var all []paper.RetrievedChunk
	for _, paperID := range paperIDs {
		chunks, err := p.retrieve(ctx, question, compareTopKPerPaper, vectorstore.Filter{PaperID: paperID})
		if err != nil {
			return nil, err
		}
		all = append(all, chunks...)
	}

	if len(all) == 0 {
		p.logger.Info("no chunks retrieved for comparison", "papers", len(paperIDs))
		return &Result{
			Answer:          NoComparisonMessage,
			Citations:       []paper.Citation{},
			Question:        question,
			Mode:            mode,
			RetrievedChunks: 0,
		}, nil
	}

	comparison := fmt.Sprintf("Compare and contrast the following papers on this topic: %s", question)
	answer, err := p.generate(ctx, comparison, all, mode)
	if err != nil {
		return nil, err
	}

	return &Result{
		Answer:          answer,
		Citations:       BuildCitations(all),
		Question:        question,
		Mode:            mode,
		RetrievedChunks: len(all),
	}, nil
}

func (p *Pipeline) retrieve(ctx context.Context, question string, topK int, f vectorstore.Filter) ([]paper.RetrievedChunk, error) {
	vector, err := p.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, &ExternalError{Call: "embed query", Err: err}
	}
	chunks, err := p.searcher.Query(ctx, vector, topK, f)
	if err != nil {
		return nil, &ExternalError{Call: "vector search", Err: err}
	}
	return chunks, nil
}

func (p *Pipeline) generate(ctx context.Context, question string, chunks []paper.RetrievedChunk, mode string) (string, error) {
	user := prompts.Build(question, chunks, mode)
	answer, err := p.generator.Generate(ctx, prompts.System, user)
	if err != nil {
		return "", &ExternalError{Call: "generate answer", Err: err}
	}
	return answer, nil
}

func normalizeMode(mode string) string {
	if prompts.IsValidMode(mode) {
		return mode
	}
	return prompts.ModeAcademic
}
