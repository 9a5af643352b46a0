package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dhalloran/paperqa/internal/store"
	"github.com/go-chi/chi/v5"
)

type createGroupRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	PaperIDs    []string `json:"paper_ids"`
}

type updateGroupRequest struct {
	Name         *string  `json:"name"`
	Description  *string  `json:"description"`
	AddPapers    []string `json:"add_papers"`
	RemovePapers []string `json:"remove_papers"`
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		jsonError(w, "name is required", http.StatusBadRequest)
		return
	}
	for _, id := range req.PaperIDs {
		if !s.paperExists(w, id) {
			return
		}
	}

	group, err := s.store.CreateGroup(req.Name, req.Description, req.PaperIDs)
	if err != nil {
		jsonError(w, "failed to create group: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(group)
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.store.ListGroups()
	if err != nil {
		jsonError(w, "failed to list groups: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"groups": groups,
		"total":  len(groups),
	})
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")
	group, err := s.store.GetGroup(groupID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, "group not found: "+groupID, http.StatusNotFound)
			return
		}
		jsonError(w, "failed to get group: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(group)
}

func (s *Server) handleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")

	var req updateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		jsonError(w, "name must not be empty", http.StatusBadRequest)
		return
	}
	for _, id := range req.AddPapers {
		if !s.paperExists(w, id) {
			return
		}
	}

	group, err := s.store.UpdateGroup(groupID, store.GroupUpdate{
		Name:         req.Name,
		Description:  req.Description,
		AddPapers:    req.AddPapers,
		RemovePapers: req.RemovePapers,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, "group not found: "+groupID, http.StatusNotFound)
			return
		}
		jsonError(w, "failed to update group: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(group)
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")
	if err := s.store.DeleteGroup(groupID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, "group not found: "+groupID, http.StatusNotFound)
			return
		}
		jsonError(w, "failed to delete group: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"deleted":  true,
		"group_id": groupID,
	})
}
