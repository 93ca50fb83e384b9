package consent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token is the decoded form of a consent token. Timestamps are epoch
// milliseconds; a nil ExpiresAt means the token never expires.
type Token struct {
	ID        string
	UserID    string
	AgentID   string
	Scope     Scope
	IssuedAt  int64
	ExpiresAt *int64
}

// claims is the JWT claim set carried by the encoded token. The millisecond
// fields are authoritative; the registered claims are second-precision
// mirrors kept for interoperability with standard JWT tooling.
type claims struct {
	jwt.RegisteredClaims
	UserID      string `json:"uid"`
	AgentID     string `json:"agt"`
	Scope       string `json:"scope"`
	IssuedAtMS  int64  `json:"iat_ms"`
	ExpiresAtMS *int64 `json:"exp_ms,omitempty"`
}

// Service issues and verifies consent tokens. Verification is stateless
// apart from an optional revocation-list lookup, so it scales horizontally
// and may run with unlimited concurrency.
type Service struct {
	secret  []byte
	revoked RevocationList
}

// NewService builds a token service signing with secret. The revocation list
// may be nil, in which case revocation checks are skipped.
func NewService(secret []byte, revoked RevocationList) *Service {
	return &Service{secret: secret, revoked: revoked}
}

// Issue creates and signs a token binding (userID, agentID, scope) with
// issued_at = now. A nil ttl produces a token that never expires. A negative
// ttl is allowed and produces an already-expired token; tests rely on this.
func (s *Service) Issue(userID, agentID string, scope Scope, ttl *time.Duration) (*Token, string, error) {
	if !scope.Valid() {
		return nil, "", fmt.Errorf("%w: %q", ErrInvalidScope, scope)
	}

	now := time.Now()
	tok := &Token{
		ID:       uuid.NewString(),
		UserID:   userID,
		AgentID:  agentID,
		Scope:    scope,
		IssuedAt: now.UnixMilli(),
	}

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       tok.ID,
			Subject:  userID,
			IssuedAt: jwt.NewNumericDate(now),
		},
		UserID:     userID,
		AgentID:    agentID,
		Scope:      scope.String(),
		IssuedAtMS: tok.IssuedAt,
	}

	if ttl != nil {
		expMS := now.Add(*ttl).UnixMilli()
		tok.ExpiresAt = &expMS
		c.ExpiresAtMS = &expMS
		c.ExpiresAt = jwt.NewNumericDate(now.Add(*ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return nil, "", fmt.Errorf("signing token: %w", err)
	}
	return tok, signed, nil
}

// Verify decodes tokenString, checks the signature in constant time, and then
// applies expiry, revocation, scope, and user checks. expectedScope and
// expectedUserID are skipped when empty. On success the decoded token fields
// are returned for the caller to use.
func (s *Service) Verify(ctx context.Context, tokenString string, expectedScope Scope, expectedUserID string) (*Token, error) {
	c, err := s.parse(tokenString)
	if err != nil {
		return nil, err
	}

	// The jwt library enforces the second-precision mirror; the millisecond
	// field is authoritative and re-checked here.
	if c.ExpiresAtMS != nil && time.Now().UnixMilli() > *c.ExpiresAtMS {
		return nil, ErrTokenExpired
	}

	if s.revoked != nil && c.ID != "" {
		revoked, err := s.revoked.IsRevoked(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("revocation check: %w", err)
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}

	scope, err := ParseScope(c.Scope)
	if err != nil {
		return nil, err
	}
	if expectedScope != "" && scope != expectedScope {
		return nil, fmt.Errorf("%w: token grants %q, operation requires %q",
			ErrScopeMismatch, scope, expectedScope)
	}
	if expectedUserID != "" && c.UserID != expectedUserID {
		return nil, ErrUserMismatch
	}

	return &Token{
		ID:        c.ID,
		UserID:    c.UserID,
		AgentID:   c.AgentID,
		Scope:     scope,
		IssuedAt:  c.IssuedAtMS,
		ExpiresAt: c.ExpiresAtMS,
	}, nil
}

// Revoke invalidates a token before its natural expiry. The token must still
// verify as authentic; revoking a forged or malformed token is refused. The
// revocation entry is retained until the token would have expired anyway, or
// indefinitely for tokens without an expiry.
func (s *Service) Revoke(ctx context.Context, tokenString string) error {
	if s.revoked == nil {
		return errors.New("no revocation list configured")
	}

	c, err := s.parse(tokenString)
	if err != nil {
		return err
	}
	if c.ID == "" {
		return fmt.Errorf("%w: missing token id", ErrMalformedToken)
	}

	var retain time.Duration
	if c.ExpiresAtMS != nil {
		retain = time.Until(time.UnixMilli(*c.ExpiresAtMS))
		if retain <= 0 {
			// Already expired; nothing to revoke.
			return nil
		}
	}
	return s.revoked.Revoke(ctx, c.ID, retain)
}

// parse deserializes and signature-checks a token string, mapping library
// errors onto the package taxonomy.
func (s *Service) parse(tokenString string) (*claims, error) {
	c := &claims{}
	_, err := jwt.ParseWithClaims(tokenString, c, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	switch {
	case err == nil:
		return c, nil
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, fmt.Errorf("%w: %w", ErrMalformedToken, err)
	default:
		return nil, fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}
}
