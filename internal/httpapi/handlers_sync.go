package httpapi

import (
	"encoding/json"
	"net/http"
)

// requireConnection gates every sync operation on a verified cloud
// connection, mirroring the service precondition at the REST edge.
func (h *CloudHandler) requireConnection(w http.ResponseWriter, r *http.Request) bool {
	if h.Service.IsConnectionAvailable(r.Context()) {
		return true
	}
	http.Error(w, "cloud connection is not available", http.StatusConflict)
	return false
}

func (h *CloudHandler) decodeSyncIDs(w http.ResponseWriter, r *http.Request) ([]int64, bool) {
	var req SyncIDsDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return nil, false
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	return req.SnippetIDs, true
}

// SyncUpload stores local snippets in the codevault.
func (h *CloudHandler) SyncUpload(w http.ResponseWriter, r *http.Request) {
	if !h.requireConnection(w, r) {
		return
	}
	ids, ok := h.decodeSyncIDs(w, r)
	if !ok {
		return
	}

	result := h.Service.StoreSnippetsInCloud(r.Context(), ids)
	if !result.Success {
		writeJSON(w, http.StatusBadGateway, result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// SyncPush updates already-stored snippets in the codevault.
func (h *CloudHandler) SyncPush(w http.ResponseWriter, r *http.Request) {
	if !h.requireConnection(w, r) {
		return
	}
	ids, ok := h.decodeSyncIDs(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, h.Service.UpdateSnippetsInCloud(r.Context(), ids))
}

// SyncDownload downloads a cloud snippet as new or pulls its current
// content onto the linked local snippet.
func (h *CloudHandler) SyncDownload(w http.ResponseWriter, r *http.Request) {
	if !h.requireConnection(w, r) {
		return
	}

	var req SyncDownloadDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	page := req.Page
	if page == 0 {
		page = 1
	}

	result := h.Service.DownloadOrUpdateSnippet(r.Context(), req.CloudID, req.Source, req.Action, page)
	if !result.Success {
		status := http.StatusBadGateway
		if result.Error == "Invalid source." || result.Error == "Invalid action." {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// SyncUnsync clears the cloud identity of local snippets.
func (h *CloudHandler) SyncUnsync(w http.ResponseWriter, r *http.Request) {
	if !h.requireConnection(w, r) {
		return
	}
	ids, ok := h.decodeSyncIDs(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, h.Service.RemoveSnippetsFromCloud(r.Context(), ids))
}
