package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/snipvault/snipvault/internal/snippets"
)

type SnippetsService interface {
	Create(ctx context.Context, req snippets.CreateSnippetRequest) (*snippets.Snippet, error)
	GetByID(ctx context.Context, id int64) (*snippets.Snippet, error)
	List(ctx context.Context) ([]*snippets.Snippet, error)
	Update(ctx context.Context, id int64, req snippets.CreateSnippetRequest) (*snippets.Snippet, error)
	Delete(ctx context.Context, id int64) error
}

type SnippetsHandler struct {
	Service SnippetsService
}

func snippetID(r *http.Request) (int64, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, "id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	return id, err == nil && id > 0
}

func (h *SnippetsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req SnippetCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	snippet, err := h.Service.Create(r.Context(), snippets.CreateSnippetRequest{
		Name:  req.Name,
		Desc:  req.Desc,
		Code:  req.Code,
		Scope: req.Scope,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(snippet)
}

func (h *SnippetsHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := snippetID(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	snippet, err := h.Service.GetByID(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(snippet)
}

func (h *SnippetsHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.List(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	if list == nil {
		list = []*snippets.Snippet{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

func (h *SnippetsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := snippetID(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req SnippetCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	snippet, err := h.Service.Update(r.Context(), id, snippets.CreateSnippetRequest{
		Name:  req.Name,
		Desc:  req.Desc,
		Code:  req.Code,
		Scope: req.Scope,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(snippet)
}

func (h *SnippetsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := snippetID(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.Service.Delete(r.Context(), id); err != nil {
		writeAppError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
