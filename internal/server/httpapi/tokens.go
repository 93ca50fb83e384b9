package httpapi

import (
	"net/http"
	"time"

	"github.com/hushh-ai/consentvault/internal/consent"
)

type issueTokenRequest struct {
	UserID  string `json:"user_id"`
	AgentID string `json:"agent_id"`
	Scope   string `json:"scope"`
	TTLMS   *int64 `json:"ttl_ms,omitempty"`
}

type issueTokenResponse struct {
	Token     string `json:"token"`
	TokenID   string `json:"token_id"`
	UserID    string `json:"user_id"`
	AgentID   string `json:"agent_id"`
	Scope     string `json:"scope"`
	IssuedAt  int64  `json:"issued_at"`
	ExpiresAt *int64 `json:"expires_at,omitempty"`
}

func (r *Router) handleIssueToken(w http.ResponseWriter, req *http.Request) {
	var body issueTokenRequest
	if !decodeJSON(w, req, &body) {
		return
	}
	if body.UserID == "" || body.AgentID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_request", Message: "user_id and agent_id are required"})
		return
	}

	scope, err := consent.ParseScope(body.Scope)
	if err != nil {
		r.writeError(w, req, err)
		return
	}

	var ttl *time.Duration
	if body.TTLMS != nil {
		d := time.Duration(*body.TTLMS) * time.Millisecond
		if d <= 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_request", Message: "ttl_ms must be positive"})
			return
		}
		ttl = &d
	}

	tok, tokenString, err := r.tokens.Issue(body.UserID, body.AgentID, scope, ttl)
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	r.metrics.IncrementTokensIssued()

	writeJSON(w, http.StatusCreated, issueTokenResponse{
		Token:     tokenString,
		TokenID:   tok.ID,
		UserID:    tok.UserID,
		AgentID:   tok.AgentID,
		Scope:     tok.Scope.String(),
		IssuedAt:  tok.IssuedAt,
		ExpiresAt: tok.ExpiresAt,
	})
}

type verifyTokenRequest struct {
	Token          string `json:"token"`
	ExpectedScope  string `json:"expected_scope,omitempty"`
	ExpectedUserID string `json:"expected_user_id,omitempty"`
}

type verifyTokenResponse struct {
	Valid     bool   `json:"valid"`
	TokenID   string `json:"token_id"`
	UserID    string `json:"user_id"`
	AgentID   string `json:"agent_id"`
	Scope     string `json:"scope"`
	IssuedAt  int64  `json:"issued_at"`
	ExpiresAt *int64 `json:"expires_at,omitempty"`
}

func (r *Router) handleVerifyToken(w http.ResponseWriter, req *http.Request) {
	var body verifyTokenRequest
	if !decodeJSON(w, req, &body) {
		return
	}

	var scope consent.Scope
	if body.ExpectedScope != "" {
		s, err := consent.ParseScope(body.ExpectedScope)
		if err != nil {
			r.writeError(w, req, err)
			return
		}
		scope = s
	}

	tok, err := r.tokens.Verify(req.Context(), body.Token, scope, body.ExpectedUserID)
	if err != nil {
		kind := r.writeError(w, req, err)
		r.metrics.IncrementTokenVerification(kind)
		return
	}
	r.metrics.IncrementTokenVerification("ok")

	writeJSON(w, http.StatusOK, verifyTokenResponse{
		Valid:     true,
		TokenID:   tok.ID,
		UserID:    tok.UserID,
		AgentID:   tok.AgentID,
		Scope:     tok.Scope.String(),
		IssuedAt:  tok.IssuedAt,
		ExpiresAt: tok.ExpiresAt,
	})
}

type revokeTokenRequest struct {
	Token string `json:"token"`
}

func (r *Router) handleRevokeToken(w http.ResponseWriter, req *http.Request) {
	var body revokeTokenRequest
	if !decodeJSON(w, req, &body) {
		return
	}

	if err := r.tokens.Revoke(req.Context(), body.Token); err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}
