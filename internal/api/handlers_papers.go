package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhalloran/paperqa/internal/ingest"
	"github.com/dhalloran/paperqa/internal/parser"
	"github.com/dhalloran/paperqa/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (s *Server) handleUploadPaper(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	groupID := r.FormValue("group_id")
	if groupID != "" {
		if _, err := s.store.GetGroup(groupID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				jsonError(w, "group not found: "+groupID, http.StatusNotFound)
				return
			}
			jsonError(w, "failed to look up group", http.StatusInternalServerError)
			return
		}
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	paperID := uuid.NewString()[:8]

	// Keep the original upload on disk alongside the index.
	filePath := filepath.Join(s.cfg.UploadDir, paperID+"_"+filename)
	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		jsonError(w, "failed to prepare upload directory", http.StatusInternalServerError)
		return
	}
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		jsonError(w, "failed to save file", http.StatusInternalServerError)
		return
	}

	now := time.Now()
	job := &ingest.Job{
		ID:        uuid.NewString(),
		PaperID:   paperID,
		GroupID:   groupID,
		Status:    ingest.StatusQueued,
		Phase:     "queued",
		Filename:  filename,
		CreatedAt: now,
		UpdatedAt: now,
	}
	job.SetFileData(data)
	job.SetFilePath(filePath)

	if err := s.orchestrator.Submit(job); err != nil {
		os.Remove(filePath)
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":   job.ID,
		"paper_id": paperID,
		"status":   job.Status,
		"poll_url": fmt.Sprintf("/api/ingest/%s/status", job.ID),
	})
}

func (s *Server) handleIngestStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.Snapshot())
}

func (s *Server) handleListPapers(w http.ResponseWriter, r *http.Request) {
	papers, err := s.store.ListPapers()
	if err != nil {
		jsonError(w, "failed to list papers: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"papers": papers,
		"total":  len(papers),
	})
}

func (s *Server) handleGetPaper(w http.ResponseWriter, r *http.Request) {
	paperID := chi.URLParam(r, "paperID")
	p, err := s.store.GetPaper(paperID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, "paper not found: "+paperID, http.StatusNotFound)
			return
		}
		jsonError(w, "failed to get paper: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(p)
}

// handleDeletePaper removes the paper's vectors, metadata row, group
// memberships, and stored upload.
func (s *Server) handleDeletePaper(w http.ResponseWriter, r *http.Request) {
	paperID := chi.URLParam(r, "paperID")

	p, err := s.store.GetPaper(paperID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, "paper not found: "+paperID, http.StatusNotFound)
			return
		}
		jsonError(w, "failed to get paper: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if err := s.vectors.DeletePaper(r.Context(), paperID); err != nil {
		jsonError(w, "failed to delete vectors: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if err := s.store.DeletePaper(paperID); err != nil && !errors.Is(err, store.ErrNotFound) {
		jsonError(w, "failed to delete paper: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if p.FilePath != "" {
		if err := os.Remove(p.FilePath); err != nil && !os.IsNotExist(err) {
			s.log.Warn("failed to remove upload", "paper_id", paperID, "path", p.FilePath, "error", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"deleted":  true,
		"paper_id": paperID,
	})
}

func (s *Server) handlePaperGroups(w http.ResponseWriter, r *http.Request) {
	paperID := chi.URLParam(r, "paperID")
	if _, err := s.store.GetPaper(paperID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, "paper not found: "+paperID, http.StatusNotFound)
			return
		}
		jsonError(w, "failed to get paper: "+err.Error(), http.StatusInternalServerError)
		return
	}

	groups, err := s.store.GroupsForPaper(paperID)
	if err != nil {
		jsonError(w, "failed to list groups: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"groups": groups})
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
