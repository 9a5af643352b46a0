package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dhalloran/paperqa/internal/config"
	"github.com/dhalloran/paperqa/internal/ingest"
	"github.com/dhalloran/paperqa/internal/rag"
	"github.com/dhalloran/paperqa/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Answerer runs retrieval-augmented answering.
type Answerer interface {
	Answer(ctx context.Context, question string, opts rag.Options) (*rag.Result, error)
	Compare(ctx context.Context, question string, paperIDs []string, mode string) (*rag.Result, error)
}

// VectorIndex is the subset of the vector store the API needs.
type VectorIndex interface {
	DeletePaper(ctx context.Context, paperID string) error
}

// Server is the HTTP API server for paperqa.
type Server struct {
	router       chi.Router
	orchestrator *ingest.Orchestrator
	answerer     Answerer
	store        *store.Store
	vectors      VectorIndex
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *ingest.Orchestrator, answerer Answerer, st *store.Store, vectors VectorIndex, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		answerer:     answerer,
		store:        st,
		vectors:      vectors,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/papers", s.handleUploadPaper)
		r.Get("/api/papers", s.handleListPapers)
		r.Get("/api/papers/{paperID}", s.handleGetPaper)
		r.Delete("/api/papers/{paperID}", s.handleDeletePaper)
		r.Get("/api/papers/{paperID}/groups", s.handlePaperGroups)

		r.Get("/api/ingest/{jobID}/status", s.handleIngestStatus)

		r.Post("/api/ask", s.handleAsk)
		r.Post("/api/compare", s.handleCompare)

		r.Post("/api/groups", s.handleCreateGroup)
		r.Get("/api/groups", s.handleListGroups)
		r.Get("/api/groups/{groupID}", s.handleGetGroup)
		r.Patch("/api/groups/{groupID}", s.handleUpdateGroup)
		r.Delete("/api/groups/{groupID}", s.handleDeleteGroup)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
