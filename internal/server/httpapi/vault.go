package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hushh-ai/consentvault/internal/consent"
)

type storeRequest struct {
	Data     map[string]any `json:"data"`
	TTLMS    *int64         `json:"ttl_ms,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type updateRequest struct {
	Data     map[string]any `json:"data"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// slotParams pulls the user and scope out of the URL. The scope is not
// validated here; the services own that check.
func slotParams(req *http.Request) (userID string, scope consent.Scope) {
	return chi.URLParam(req, "userID"), consent.Scope(chi.URLParam(req, "scope"))
}

func (r *Router) handleStore(w http.ResponseWriter, req *http.Request) {
	userID, scope := slotParams(req)

	var body storeRequest
	if !decodeJSON(w, req, &body) {
		return
	}
	if len(body.Data) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_request", Message: "data is required"})
		return
	}

	var ttl *time.Duration
	if body.TTLMS != nil {
		d := time.Duration(*body.TTLMS) * time.Millisecond
		ttl = &d
	}

	err := r.med.AuthorizeAndStore(req.Context(), req.Header.Get(TokenHeader), userID, scope, body.Data, ttl, body.Metadata)
	if err != nil {
		kind := r.writeError(w, req, err)
		r.metrics.IncrementVaultOperation("store", kind)
		return
	}
	r.metrics.IncrementVaultOperation("store", "ok")
	writeJSON(w, http.StatusCreated, map[string]string{"status": "stored"})
}

func (r *Router) handleFetch(w http.ResponseWriter, req *http.Request) {
	userID, scope := slotParams(req)

	env, err := r.med.AuthorizeAndFetch(req.Context(), req.Header.Get(TokenHeader), userID, scope)
	if err != nil {
		kind := r.writeError(w, req, err)
		r.metrics.IncrementVaultOperation("retrieve", kind)
		return
	}
	r.metrics.IncrementVaultOperation("retrieve", "ok")
	writeJSON(w, http.StatusOK, env)
}

func (r *Router) handleUpdate(w http.ResponseWriter, req *http.Request) {
	userID, scope := slotParams(req)

	var body updateRequest
	if !decodeJSON(w, req, &body) {
		return
	}
	if len(body.Data) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_request", Message: "data is required"})
		return
	}

	err := r.med.AuthorizeAndUpdate(req.Context(), req.Header.Get(TokenHeader), userID, scope, body.Data, body.Metadata)
	if err != nil {
		kind := r.writeError(w, req, err)
		r.metrics.IncrementVaultOperation("update", kind)
		return
	}
	r.metrics.IncrementVaultOperation("update", "ok")
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (r *Router) handleDelete(w http.ResponseWriter, req *http.Request) {
	userID, scope := slotParams(req)
	hard := req.URL.Query().Get("hard") == "true"

	err := r.med.AuthorizeAndDelete(req.Context(), req.Header.Get(TokenHeader), userID, scope, hard)
	if err != nil {
		kind := r.writeError(w, req, err)
		r.metrics.IncrementVaultOperation("delete", kind)
		return
	}
	r.metrics.IncrementVaultOperation("delete", "ok")
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleListSummaries returns the metadata-only slot listing for a user.
// Summaries never include decrypted content, so no consent token gates
// this read.
func (r *Router) handleListSummaries(w http.ResponseWriter, req *http.Request) {
	userID := chi.URLParam(req, "userID")

	summaries, err := r.store.ListSummaries(req.Context(), userID)
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": userID, "records": summaries})
}

func (r *Router) handleSweep(w http.ResponseWriter, req *http.Request) {
	removed, err := r.store.SweepExpired(req.Context())
	r.metrics.AddRecordsSwept(removed)
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func (r *Router) handleStats(w http.ResponseWriter, req *http.Request) {
	stats, err := r.store.Stats(req.Context())
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
