package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/snipvault/snipvault/internal/apikeys"
)

type APIKeysService interface {
	Create(ctx context.Context, input apikeys.CreateInput) (*apikeys.Key, string, error)
	List(ctx context.Context) ([]*apikeys.Key, error)
	Revoke(ctx context.Context, id string) error
}

type APIKeysHandler struct {
	Service APIKeysService
}

func (h *APIKeysHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req APIKeyCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	key, token, err := h.Service.Create(r.Context(), apikeys.CreateInput{
		Name:  req.Name,
		Scope: req.Scope,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}

	type resp struct {
		Key   *apikeys.Key `json:"key"`
		Token string       `json:"token"`
	}
	writeJSON(w, http.StatusCreated, resp{Key: key, Token: token})
}

func (h *APIKeysHandler) List(w http.ResponseWriter, r *http.Request) {
	keys, err := h.Service.List(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	if keys == nil {
		keys = []*apikeys.Key{}
	}
	writeJSON(w, http.StatusOK, keys)
}

func (h *APIKeysHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	if err := h.Service.Revoke(r.Context(), id); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
