package rag

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/dhalloran/paperqa/internal/paper"
	"github.com/dhalloran/paperqa/internal/vectorstore"
)

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type searchCall struct {
	topK   int
	filter vectorstore.Filter
}

type fakeSearcher struct {
	byPaper map[string][]paper.RetrievedChunk
	results []paper.RetrievedChunk
	err     error
	calls   []searchCall
}

func (f *fakeSearcher) Query(ctx context.Context, vector []float32, topK int, flt vectorstore.Filter) ([]paper.RetrievedChunk, error) {
	f.calls = append(f.calls, searchCall{topK: topK, filter: flt})
	if f.err != nil {
		return nil, f.err
	}
	if f.byPaper != nil {
		return f.byPaper[flt.PaperID], nil
	}
	return f.results, nil
}

type fakeGenerator struct {
	answer string
	err    error
	calls  int
	system string
	user   string
}

func (f *fakeGenerator) Generate(ctx context.Context, system, user string) (string, error) {
	f.calls++
	f.system = system
	f.user = user
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAnswer_EmptyRetrievalShortCircuits(t *testing.T) {
	gen := &fakeGenerator{answer: "should not be used"}
	p := New(&fakeEmbedder{}, &fakeSearcher{}, gen, testLogger())

	res, err := p.Answer(context.Background(), "What is attention?", Options{Mode: "nonsense"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Answer != NoInformationMessage {
		t.Errorf("expected fixed no-information message, got %q", res.Answer)
	}
	if res.Citations == nil || len(res.Citations) != 0 {
		t.Errorf("expected empty non-nil citations, got %#v", res.Citations)
	}
	if res.RetrievedChunks != 0 {
		t.Errorf("expected 0 retrieved chunks, got %d", res.RetrievedChunks)
	}
	if res.Mode != "academic" {
		t.Errorf("expected unknown mode normalized to academic, got %q", res.Mode)
	}
	if gen.calls != 0 {
		t.Errorf("generator must not be called on empty retrieval, got %d calls", gen.calls)
	}
}

func TestAnswer_FullFlow(t *testing.T) {
	searcher := &fakeSearcher{results: []paper.RetrievedChunk{
		{Chunk: paper.Chunk{ID: "p1_chunk_0", PaperID: "p1", Section: "Methods", Page: 4, Text: "We trained a model."}, Score: 0.91},
		{Chunk: paper.Chunk{ID: "p1_chunk_1", PaperID: "p1", Section: "Results", Page: 6, Text: "Accuracy improved."}, Score: 0.88},
	}}
	gen := &fakeGenerator{answer: "The paper trains a model."}
	p := New(&fakeEmbedder{}, searcher, gen, testLogger())

	res, err := p.Answer(context.Background(), "How was the model trained?", Options{
		PaperID: "p1",
		Mode:    "simple",
		TopK:    25, // above the cap
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Answer != "The paper trains a model." {
		t.Errorf("unexpected answer: %q", res.Answer)
	}
	if res.RetrievedChunks != 2 {
		t.Errorf("expected 2 retrieved chunks, got %d", res.RetrievedChunks)
	}
	if len(res.Citations) != 2 {
		t.Errorf("expected 2 citations, got %d", len(res.Citations))
	}
	if res.Mode != "simple" {
		t.Errorf("expected mode passthrough, got %q", res.Mode)
	}

	if len(searcher.calls) != 1 {
		t.Fatalf("expected 1 search, got %d", len(searcher.calls))
	}
	call := searcher.calls[0]
	if call.topK != MaxTopK {
		t.Errorf("expected topK clamped to %d, got %d", MaxTopK, call.topK)
	}
	if call.filter.PaperID != "p1" {
		t.Errorf("expected paper filter passed through, got %+v", call.filter)
	}

	// The generator sees numbered source blocks and the question.
	if !strings.Contains(gen.user, "[Source 1 - Methods, Page 4]") {
		t.Errorf("expected context block in prompt, got %q", gen.user)
	}
	if !strings.Contains(gen.user, "How was the model trained?") {
		t.Errorf("expected question in prompt")
	}
	if gen.system == "" {
		t.Errorf("expected system prompt set")
	}
}

func TestAnswer_DefaultTopK(t *testing.T) {
	searcher := &fakeSearcher{}
	p := New(&fakeEmbedder{}, searcher, &fakeGenerator{}, testLogger())

	if _, err := p.Answer(context.Background(), "q", Options{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if searcher.calls[0].topK != DefaultTopK {
		t.Errorf("expected default topK %d, got %d", DefaultTopK, searcher.calls[0].topK)
	}
}

func TestAnswer_ExternalErrors(t *testing.T) {
	t.Run("embedder failure", func(t *testing.T) {
		p := New(&fakeEmbedder{err: errors.New("upstream down")}, &fakeSearcher{}, &fakeGenerator{}, testLogger())
		_, err := p.Answer(context.Background(), "q", Options{})
		var extErr *ExternalError
		if !errors.As(err, &extErr) {
			t.Fatalf("expected ExternalError, got %v", err)
		}
		if extErr.Call != "embed query" {
			t.Errorf("expected call %q, got %q", "embed query", extErr.Call)
		}
	})

	t.Run("generator failure", func(t *testing.T) {
		searcher := &fakeSearcher{results: []paper.RetrievedChunk{
			{Chunk: paper.Chunk{PaperID: "p1", Section: "Intro", Page: 1, Text: "text"}},
		}}
		p := New(&fakeEmbedder{}, searcher, &fakeGenerator{err: errors.New("rate limited")}, testLogger())
		_, err := p.Answer(context.Background(), "q", Options{})
		var extErr *ExternalError
		if !errors.As(err, &extErr) {
			t.Fatalf("expected ExternalError, got %v", err)
		}
		if extErr.Call != "generate answer" {
			t.Errorf("expected call %q, got %q", "generate answer", extErr.Call)
		}
	})
}

func TestCompare_PerPaperRetrievalGrouped(t *testing.T) {
	searcher := &fakeSearcher{byPaper: map[string][]paper.RetrievedChunk{
		"p1": {
			{Chunk: paper.Chunk{PaperID: "p1", Section: "Methods", Page: 2, Text: "p1 approach"}},
			{Chunk: paper.Chunk{PaperID: "p1", Section: "Results", Page: 5, Text: "p1 results"}},
		},
		"p2": {
			{Chunk: paper.Chunk{PaperID: "p2", Section: "Methods", Page: 3, Text: "p2 approach"}},
		},
	}}
	gen := &fakeGenerator{answer: "They differ."}
	p := New(&fakeEmbedder{}, searcher, gen, testLogger())

	res, err := p.Compare(context.Background(), "How do the approaches differ?", []string{"p1", "p2"}, "academic")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(searcher.calls) != 2 {
		t.Fatalf("expected one search per paper, got %d", len(searcher.calls))
	}
	for i, want := range []string{"p1", "p2"} {
		if searcher.calls[i].filter.PaperID != want {
			t.Errorf("call %d: expected paper filter %q, got %+v", i, want, searcher.calls[i].filter)
		}
		if searcher.calls[i].topK != 3 {
			t.Errorf("call %d: expected per-paper topK 3, got %d", i, searcher.calls[i].topK)
		}
	}

	if res.RetrievedChunks != 3 {
		t.Errorf("expected 3 retrieved chunks, got %d", res.RetrievedChunks)
	}
	// Per-paper grouping is preserved in the context blocks.
	p1Idx := strings.Index(gen.user, "p1 results")
	p2Idx := strings.Index(gen.user, "p2 approach")
	if p1Idx == -1 || p2Idx == -1 || p1Idx > p2Idx {
		t.Errorf("expected p1 chunks before p2 chunks in context")
	}
	if !strings.Contains(gen.user, "Compare and contrast the following papers on this topic: How do the approaches differ?") {
		t.Errorf("expected comparison question rewrite in prompt")
	}
	// The result reports the original question, not the rewrite.
	if res.Question != "How do the approaches differ?" {
		t.Errorf("expected original question, got %q", res.Question)
	}
}

func TestCompare_OnePaperWithoutMatches(t *testing.T) {
	// One paper matching nothing is not an error: the comparison runs
	// on the other paper's chunks alone.
	searcher := &fakeSearcher{byPaper: map[string][]paper.RetrievedChunk{
		"p1": {
			{Chunk: paper.Chunk{PaperID: "p1", Section: "Methods", Page: 2, Text: "p1 approach"}},
			{Chunk: paper.Chunk{PaperID: "p1", Section: "Results", Page: 5, Text: "p1 results"}},
		},
		"p2": nil,
	}}
	gen := &fakeGenerator{answer: "Only the first paper covers this."}
	p := New(&fakeEmbedder{}, searcher, gen, testLogger())

	res, err := p.Compare(context.Background(), "What pretraining data is used?", []string{"p1", "p2"}, "academic")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(searcher.calls) != 2 {
		t.Fatalf("expected both papers searched, got %d calls", len(searcher.calls))
	}
	if res.Answer != "Only the first paper covers this." {
		t.Errorf("expected generated answer, got %q", res.Answer)
	}
	if gen.calls != 1 {
		t.Errorf("expected generator called once, got %d calls", gen.calls)
	}
	if res.RetrievedChunks != 2 {
		t.Errorf("expected chunk count from the matching paper only, got %d", res.RetrievedChunks)
	}
	if !strings.Contains(gen.user, "p1 approach") || strings.Contains(gen.user, "p2") {
		t.Errorf("expected context built from p1's chunks alone, got %q", gen.user)
	}
	for _, c := range res.Citations {
		if c.PaperID != "p1" {
			t.Errorf("expected citations only for p1, got %q", c.PaperID)
		}
	}
}

func TestCompare_EmptyRetrieval(t *testing.T) {
	gen := &fakeGenerator{}
	p := New(&fakeEmbedder{}, &fakeSearcher{}, gen, testLogger())

	res, err := p.Compare(context.Background(), "q", []string{"p1", "p2"}, "eli5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Answer != NoComparisonMessage {
		t.Errorf("expected comparison-specific empty message, got %q", res.Answer)
	}
	if gen.calls != 0 {
		t.Errorf("generator must not be called, got %d calls", gen.calls)
	}
	if res.Mode != "eli5" {
		t.Errorf("expected mode passthrough, got %q", res.Mode)
	}
}
