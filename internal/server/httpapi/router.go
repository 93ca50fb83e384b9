// Package httpapi exposes the consent token service and the mediated
// vault over HTTP/JSON. Every vault route requires a consent token in
// the X-Consent-Token header; the mediator decides whether it opens
// the requested slot.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hushh-ai/consentvault/internal/consent"
	"github.com/hushh-ai/consentvault/internal/logging"
	"github.com/hushh-ai/consentvault/internal/mediator"
	"github.com/hushh-ai/consentvault/internal/server/metrics"
	"github.com/hushh-ai/consentvault/internal/vault"
)

// TokenHeader carries the consent token on vault requests.
const TokenHeader = "X-Consent-Token"

const maxRequestBytes = 1 << 20 // 1 MiB

type Router struct {
	tokens  *consent.Service
	med     *mediator.Mediator
	store   *vault.Service
	logger  logging.Logger
	metrics *metrics.Metrics
}

// NewRouter wires all routes. The gatherer backs the /metrics endpoint
// and is normally the same registry the metrics were registered with.
func NewRouter(tokens *consent.Service, med *mediator.Mediator, store *vault.Service,
	logger logging.Logger, m *metrics.Metrics, gatherer prometheus.Gatherer) http.Handler {

	r := &Router{tokens: tokens, med: med, store: store, logger: logger, metrics: m}
	mux := chi.NewRouter()

	mux.Get("/health", r.handleHealth)
	mux.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	mux.Post("/api/v1/tokens", r.handleIssueToken)
	mux.Post("/api/v1/tokens/verify", r.handleVerifyToken)
	mux.Post("/api/v1/tokens/revoke", r.handleRevokeToken)

	mux.Get("/api/v1/vault/stats", r.handleStats)
	mux.Post("/api/v1/vault/sweep", r.handleSweep)
	mux.Get("/api/v1/vault/{userID}", r.handleListSummaries)
	mux.Post("/api/v1/vault/{userID}/{scope}", r.handleStore)
	mux.Get("/api/v1/vault/{userID}/{scope}", r.handleFetch)
	mux.Patch("/api/v1/vault/{userID}/{scope}", r.handleUpdate)
	mux.Delete("/api/v1/vault/{userID}/{scope}", r.handleDelete)

	return mux
}

func (r *Router) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, req *http.Request, v any) bool {
	req.Body = http.MaxBytesReader(w, req.Body, maxRequestBytes)
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_request", Message: "invalid json body"})
		return false
	}
	return true
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// errorKind maps a service error to an HTTP status and a stable error
// identifier. Tamper detection is deliberately not a 404: an unreadable
// record exists, it just cannot be trusted.
func errorKind(err error) (int, string) {
	switch {
	case errors.Is(err, consent.ErrMalformedToken):
		return http.StatusUnauthorized, "malformed_token"
	case errors.Is(err, consent.ErrInvalidSignature):
		return http.StatusUnauthorized, "invalid_signature"
	case errors.Is(err, consent.ErrTokenExpired):
		return http.StatusUnauthorized, "token_expired"
	case errors.Is(err, consent.ErrTokenRevoked):
		return http.StatusUnauthorized, "token_revoked"
	case errors.Is(err, consent.ErrScopeMismatch):
		return http.StatusForbidden, "scope_mismatch"
	case errors.Is(err, consent.ErrUserMismatch):
		return http.StatusForbidden, "user_mismatch"
	case errors.Is(err, consent.ErrInvalidScope):
		return http.StatusBadRequest, "invalid_scope"
	case errors.Is(err, vault.ErrInvalidTTL):
		return http.StatusBadRequest, "invalid_ttl"
	case errors.Is(err, vault.ErrRecordNotFound):
		return http.StatusNotFound, "record_not_found"
	case errors.Is(err, vault.ErrTamperDetected):
		return http.StatusInternalServerError, "integrity_failure"
	case errors.Is(err, vault.ErrStorageIO):
		return http.StatusServiceUnavailable, "storage_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func (r *Router) writeError(w http.ResponseWriter, req *http.Request, err error) string {
	status, kind := errorKind(err)
	if status >= http.StatusInternalServerError {
		r.logger.Error(req.Context(), "request failed",
			"path", req.URL.Path, "error", err.Error())
	}
	writeJSON(w, status, errorBody{Error: kind, Message: err.Error()})
	return kind
}
