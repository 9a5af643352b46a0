package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dhalloran/paperqa/internal/api"
	"github.com/dhalloran/paperqa/internal/chunker"
	"github.com/dhalloran/paperqa/internal/config"
	"github.com/dhalloran/paperqa/internal/embed"
	"github.com/dhalloran/paperqa/internal/ingest"
	"github.com/dhalloran/paperqa/internal/llm"
	"github.com/dhalloran/paperqa/internal/rag"
	"github.com/dhalloran/paperqa/internal/store"
	"github.com/dhalloran/paperqa/internal/vectorstore"
	"github.com/joho/godotenv"
)

func main() {
	godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Paper and group metadata.
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Error("failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Vector index.
	vectors, err := vectorstore.New(vectorstore.Config{
		Host:   cfg.WeaviateHost,
		Scheme: cfg.WeaviateScheme,
		APIKey: cfg.WeaviateAPIKey,
	}, log)
	if err != nil {
		log.Error("failed to connect to weaviate", "host", cfg.WeaviateHost, "error", err)
		os.Exit(1)
	}
	if err := vectors.EnsureSchema(ctx); err != nil {
		log.Error("failed to ensure weaviate schema", "error", err)
		os.Exit(1)
	}

	// Embedding and LLM clients.
	embedder, err := embed.New(embed.Config{
		BaseURL:   cfg.EmbeddingBaseURL,
		APIKey:    cfg.EmbeddingAPIKey,
		Model:     cfg.EmbeddingModel,
		BatchSize: cfg.EmbeddingBatch,
	})
	if err != nil {
		log.Error("failed to create embedding client", "error", err)
		os.Exit(1)
	}
	generator, err := llm.New(llm.Config{
		BaseURL: cfg.LLMBaseURL,
		APIKey:  cfg.GroqAPIKey,
		Model:   cfg.LLMModel,
	})
	if err != nil {
		log.Error("failed to create llm client", "error", err)
		os.Exit(1)
	}

	// Ingestion pipeline.
	orch := ingest.NewOrchestrator(ingest.Config{
		WorkerCount:  cfg.WorkerCount,
		MaxQueueSize: cfg.MaxQueueSize,
		JobTTL:       cfg.JobTTL,
		Chunker: chunker.Config{
			ChunkSize:    cfg.ChunkSize,
			ChunkOverlap: cfg.ChunkOverlap,
		},
	}, embedder, vectors, db, log)
	orch.Start(ctx)

	// Question answering.
	answerer := rag.New(embedder, vectors, generator, log)

	srv := api.NewServer(orch, answerer, db, vectors, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting paperqa", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
