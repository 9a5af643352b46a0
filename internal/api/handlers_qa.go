package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dhalloran/paperqa/internal/rag"
	"github.com/dhalloran/paperqa/internal/store"
)

type askRequest struct {
	Question string `json:"question"`
	PaperID  string `json:"paper_id"`
	GroupID  string `json:"group_id"`
	Mode     string `json:"mode"`
	TopK     int    `json:"top_k"`
}

type compareRequest struct {
	Question string   `json:"question"`
	PaperIDs []string `json:"paper_ids"`
	Mode     string   `json:"mode"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		jsonError(w, "question is required", http.StatusBadRequest)
		return
	}
	if req.PaperID != "" && req.GroupID != "" {
		jsonError(w, "paper_id and group_id are mutually exclusive", http.StatusBadRequest)
		return
	}

	if req.PaperID != "" && !s.paperExists(w, req.PaperID) {
		return
	}
	if req.GroupID != "" && !s.groupExists(w, req.GroupID) {
		return
	}

	result, err := s.answerer.Answer(r.Context(), req.Question, rag.Options{
		PaperID: req.PaperID,
		GroupID: req.GroupID,
		Mode:    req.Mode,
		TopK:    req.TopK,
	})
	if err != nil {
		s.answerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		jsonError(w, "question is required", http.StatusBadRequest)
		return
	}
	if len(req.PaperIDs) < 2 {
		jsonError(w, "at least two paper_ids are required", http.StatusBadRequest)
		return
	}
	for _, id := range req.PaperIDs {
		if !s.paperExists(w, id) {
			return
		}
	}

	result, err := s.answerer.Compare(r.Context(), req.Question, req.PaperIDs, req.Mode)
	if err != nil {
		s.answerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// answerError maps pipeline failures to responses. Upstream failures
// hide their detail behind a generic 502.
func (s *Server) answerError(w http.ResponseWriter, err error) {
	var extErr *rag.ExternalError
	if errors.As(err, &extErr) {
		s.log.Error("upstream call failed", "call", extErr.Call, "error", extErr.Err)
		jsonError(w, "upstream service error", http.StatusBadGateway)
		return
	}
	jsonError(w, err.Error(), http.StatusInternalServerError)
}

func (s *Server) paperExists(w http.ResponseWriter, paperID string) bool {
	if _, err := s.store.GetPaper(paperID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, "paper not found: "+paperID, http.StatusNotFound)
			return false
		}
		jsonError(w, "failed to look up paper", http.StatusInternalServerError)
		return false
	}
	return true
}

func (s *Server) groupExists(w http.ResponseWriter, groupID string) bool {
	if _, err := s.store.GetGroup(groupID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, "group not found: "+groupID, http.StatusNotFound)
			return false
		}
		jsonError(w, "failed to look up group", http.StatusInternalServerError)
		return false
	}
	return true
}
