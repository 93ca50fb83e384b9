// Package mediator is the contract every external agent goes through instead
// of touching the vault store directly: verify the consent token first, then
// delegate to the store. No plaintext ever leaves the store without a prior
// successful, scope-and-user-matched signature verification.
package mediator

import (
	"context"
	"fmt"
	"time"

	"github.com/hushh-ai/consentvault/internal/consent"
	"github.com/hushh-ai/consentvault/internal/logging"
	"github.com/hushh-ai/consentvault/internal/vault"
)

// TokenVerifier is the slice of the consent service the mediator needs.
type TokenVerifier interface {
	Verify(ctx context.Context, tokenString string, expectedScope consent.Scope, expectedUserID string) (*consent.Token, error)
}

// Store is the slice of the vault service the mediator delegates to.
type Store interface {
	Store(ctx context.Context, userID string, scope consent.Scope, data map[string]any, agentID string, ttl *time.Duration, metadata map[string]any) error
	Retrieve(ctx context.Context, userID string, scope consent.Scope, requestingAgent string) (*vault.Envelope, error)
	Update(ctx context.Context, userID string, scope consent.Scope, data map[string]any, agentID string, metadata map[string]any) error
	Delete(ctx context.Context, userID string, scope consent.Scope, agentID string, hard bool) error
}

// Mediator gates vault access behind token verification. It fails closed: on
// any verification failure the specific error is returned and the store is
// never touched.
type Mediator struct {
	tokens    TokenVerifier
	store     Store
	logger    logging.Logger
	resources map[string]consent.Scope
}

func New(tokens TokenVerifier, store Store, logger logging.Logger) *Mediator {
	return &Mediator{
		tokens:    tokens,
		store:     store,
		logger:    logger,
		resources: make(map[string]consent.Scope),
	}
}

// RegisterResource declares the scope required to access a named resource.
// The registry replaces per-caller scope checks with one declarative table.
func (m *Mediator) RegisterResource(name string, required consent.Scope) error {
	if !required.Valid() {
		return fmt.Errorf("%w: %q", consent.ErrInvalidScope, required)
	}
	m.resources[name] = required
	return nil
}

// RequiredScope looks up the scope a named resource demands.
func (m *Mediator) RequiredScope(name string) (consent.Scope, bool) {
	s, ok := m.resources[name]
	return s, ok
}

// AuthorizeAndFetch verifies the token against (userID, scope) and, only on
// success, retrieves the record. The requesting agent recorded in provenance
// is the one named by the verified token, not caller-supplied.
func (m *Mediator) AuthorizeAndFetch(ctx context.Context, tokenString, userID string, scope consent.Scope) (*vault.Envelope, error) {
	tok, err := m.verify(ctx, tokenString, userID, scope, "fetch")
	if err != nil {
		return nil, err
	}
	return m.store.Retrieve(ctx, userID, scope, tok.AgentID)
}

// AuthorizeAndStore verifies the token, then stores data attributed to the
// token's agent.
func (m *Mediator) AuthorizeAndStore(ctx context.Context, tokenString, userID string, scope consent.Scope, data map[string]any, ttl *time.Duration, metadata map[string]any) error {
	tok, err := m.verify(ctx, tokenString, userID, scope, "store")
	if err != nil {
		return err
	}
	return m.store.Store(ctx, userID, scope, data, tok.AgentID, ttl, metadata)
}

// AuthorizeAndUpdate verifies the token, then updates the existing record.
func (m *Mediator) AuthorizeAndUpdate(ctx context.Context, tokenString, userID string, scope consent.Scope, data map[string]any, metadata map[string]any) error {
	tok, err := m.verify(ctx, tokenString, userID, scope, "update")
	if err != nil {
		return err
	}
	return m.store.Update(ctx, userID, scope, data, tok.AgentID, metadata)
}

// AuthorizeAndDelete verifies the token, then deletes the record.
func (m *Mediator) AuthorizeAndDelete(ctx context.Context, tokenString, userID string, scope consent.Scope, hard bool) error {
	tok, err := m.verify(ctx, tokenString, userID, scope, "delete")
	if err != nil {
		return err
	}
	return m.store.Delete(ctx, userID, scope, tok.AgentID, hard)
}

// AuthorizeResource verifies the token against a registered resource's
// declared scope and fetches the backing record.
func (m *Mediator) AuthorizeResource(ctx context.Context, tokenString, userID, resource string) (*vault.Envelope, error) {
	scope, ok := m.resources[resource]
	if !ok {
		return nil, fmt.Errorf("unknown resource %q", resource)
	}
	return m.AuthorizeAndFetch(ctx, tokenString, userID, scope)
}

func (m *Mediator) verify(ctx context.Context, tokenString, userID string, scope consent.Scope, op string) (*consent.Token, error) {
	tok, err := m.tokens.Verify(ctx, tokenString, scope, userID)
	if err != nil {
		m.logger.Warn(ctx, "authorization denied",
			"op", op, "user_id", userID, "scope", scope.String(), "error", err.Error())
		return nil, err
	}
	return tok, nil
}
