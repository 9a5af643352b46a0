package ingest

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dhalloran/paperqa/internal/chunker"
	"github.com/dhalloran/paperqa/internal/paper"
	"github.com/dhalloran/paperqa/internal/parser"
	"github.com/dhalloran/paperqa/internal/segment"
	"github.com/dhalloran/paperqa/internal/store"
)

// Failure reasons surfaced to clients polling job status.
const (
	reasonNoText   = "could not extract text from document"
	reasonTooShort = "document too short to process"
)

// Embedder turns chunk texts into vectors.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Indexer persists chunks with their vectors.
type Indexer interface {
	UpsertChunks(ctx context.Context, chunks []paper.Chunk, vectors [][]float32, groupID string) (int, error)
}

// MetadataStore records the paper's bookkeeping row once indexing is done.
type MetadataStore interface {
	SavePaper(p *store.Paper) error
}

// Worker processes a single ingestion job: parse, segment, chunk,
// embed, index, record metadata.
type Worker struct {
	embedder Embedder
	indexer  Indexer
	meta     MetadataStore
	chunkCfg chunker.Config
	log      *slog.Logger
}

func NewWorker(embedder Embedder, indexer Indexer, meta MetadataStore, chunkCfg chunker.Config, log *slog.Logger) *Worker {
	return &Worker{
		embedder: embedder,
		indexer:  indexer,
		meta:     meta,
		chunkCfg: chunkCfg,
		log:      log,
	}
}

// Process runs the full ingest pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "paper_id", job.PaperID)

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	p, err := parser.ForFile(job.Filename)
	if err != nil {
		log.Error("unsupported format", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	parsed, err := p.Parse(bytes.NewReader(job.FileData()), job.Filename)
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	if job.Title == "" {
		job.SetTitle(parsed.Title)
	}

	// Phase 2: Segment
	job.SetStatus(StatusSegmenting, "detecting sections")
	spans := segment.Segment(parsed.Pages)
	if len(spans) == 0 {
		log.Warn("no text extracted")
		job.AddError(reasonNoText)
		job.SetStatus(StatusFailed, "segmenting")
		return
	}

	// Phase 3: Chunk
	job.SetStatus(StatusChunking, "chunking")
	chunks := chunker.ChunkSpans(spans, job.PaperID, w.chunkCfg)
	job.SetTotals(len(parsed.Pages), len(chunks))
	log.Info("chunked document", "pages", len(parsed.Pages), "spans", len(spans), "chunks", len(chunks))

	if len(chunks) == 0 {
		log.Warn("no chunks produced")
		job.AddError(reasonTooShort)
		job.SetStatus(StatusFailed, "chunking")
		return
	}

	// Phase 4: Embed
	job.SetStatus(StatusEmbedding, "embedding chunks")
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := w.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		log.Error("embedding failed", "error", err)
		job.AddError(fmt.Sprintf("embed: %s", err))
		job.SetStatus(StatusFailed, "embedding")
		return
	}

	// Phase 5: Index
	job.SetStatus(StatusIndexing, "indexing vectors")
	indexed, err := w.indexer.UpsertChunks(ctx, chunks, vectors, job.GroupID)
	job.AddChunksIndexed(indexed)
	if err != nil {
		log.Error("indexing failed", "error", err, "indexed", indexed)
		job.AddError(fmt.Sprintf("index: %s", err))
		job.SetStatus(StatusFailed, "indexing")
		return
	}

	// Phase 6: Record paper metadata.
	if err := w.meta.SavePaper(&store.Paper{
		ID:          job.PaperID,
		Filename:    job.Filename,
		Title:       job.Title,
		UploadDate:  job.CreatedAt,
		TotalPages:  len(parsed.Pages),
		TotalChunks: len(chunks),
		FilePath:    job.FilePath(),
	}); err != nil {
		log.Error("metadata save failed", "error", err)
		job.AddError(fmt.Sprintf("metadata: %s", err))
		job.SetStatus(StatusFailed, "metadata")
		return
	}

	job.SetStatus(StatusCompleted, "done")
	log.Info("ingestion complete", "chunks", len(chunks), "took", time.Since(job.CreatedAt))
}
