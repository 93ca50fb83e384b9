package consent

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ttl(d time.Duration) *time.Duration { return &d }

func newTestService() *Service {
	return NewService([]byte("test-signing-secret"), NewMemoryRevocationList())
}

func TestIssueAndVerify_Success(t *testing.T) {
	t.Parallel()

	s := newTestService()
	issued, tokenString, err := s.Issue("u1", "agent_shopper", ScopeReadEmail, ttl(time.Minute))
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)
	require.NotNil(t, issued.ExpiresAt)

	got, err := s.Verify(context.Background(), tokenString, ScopeReadEmail, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "agent_shopper", got.AgentID)
	assert.Equal(t, ScopeReadEmail, got.Scope)
	assert.Equal(t, issued.IssuedAt, got.IssuedAt)
	assert.Equal(t, *issued.ExpiresAt, *got.ExpiresAt)
	assert.NotEmpty(t, got.ID)
}

func TestIssue_RejectsUnknownScope(t *testing.T) {
	t.Parallel()

	s := newTestService()
	_, _, err := s.Issue("u1", "a1", Scope("vault.read.everything"), nil)
	assert.ErrorIs(t, err, ErrInvalidScope)
}

func TestVerify_NegativeTTLIsExpired(t *testing.T) {
	t.Parallel()

	s := newTestService()
	_, tokenString, err := s.Issue("u1", "a1", ScopeReadEmail, ttl(-time.Second))
	require.NoError(t, err)

	_, err = s.Verify(context.Background(), tokenString, ScopeReadEmail, "u1")
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerify_NilTTLNeverExpires(t *testing.T) {
	t.Parallel()

	s := newTestService()
	issued, tokenString, err := s.Issue("u1", "a1", ScopeReadFinance, nil)
	require.NoError(t, err)
	assert.Nil(t, issued.ExpiresAt)

	got, err := s.Verify(context.Background(), tokenString, ScopeReadFinance, "u1")
	require.NoError(t, err)
	assert.Nil(t, got.ExpiresAt)
}

func TestVerify_ScopeIsolation(t *testing.T) {
	t.Parallel()

	s := newTestService()
	_, tokenString, err := s.Issue("u1", "a1", ScopeReadEmail, ttl(time.Minute))
	require.NoError(t, err)

	for _, other := range AllScopes() {
		if other == ScopeReadEmail {
			continue
		}
		_, err := s.Verify(context.Background(), tokenString, other, "u1")
		assert.ErrorIs(t, err, ErrScopeMismatch, "scope %s", other)
	}
}

func TestVerify_UserMismatch(t *testing.T) {
	t.Parallel()

	s := newTestService()
	_, tokenString, err := s.Issue("u1", "a1", ScopeReadEmail, ttl(time.Minute))
	require.NoError(t, err)

	_, err = s.Verify(context.Background(), tokenString, ScopeReadEmail, "u2")
	assert.ErrorIs(t, err, ErrUserMismatch)
}

func TestVerify_OptionalChecksSkipped(t *testing.T) {
	t.Parallel()

	s := newTestService()
	_, tokenString, err := s.Issue("u1", "a1", ScopeReadEmail, ttl(time.Minute))
	require.NoError(t, err)

	got, err := s.Verify(context.Background(), tokenString, "", "")
	require.NoError(t, err)
	assert.Equal(t, ScopeReadEmail, got.Scope)
}

func TestVerify_WrongSecretIsInvalidSignature(t *testing.T) {
	t.Parallel()

	issuer := NewService([]byte("right-secret"), nil)
	verifier := NewService([]byte("wrong-secret"), nil)

	_, tokenString, err := issuer.Issue("u1", "a1", ScopeReadEmail, ttl(time.Minute))
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), tokenString, ScopeReadEmail, "u1")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerify_TamperedPayloadIsRejected(t *testing.T) {
	t.Parallel()

	s := newTestService()
	_, tokenString, err := s.Issue("u1", "a1", ScopeReadEmail, ttl(time.Minute))
	require.NoError(t, err)

	// Any single-character change in the encoded claims must invalidate the
	// signature (or make the token undecodable).
	parts := strings.Split(tokenString, ".")
	require.Len(t, parts, 3)
	mid := []byte(parts[1])
	if mid[0] == 'A' {
		mid[0] = 'B'
	} else {
		mid[0] = 'A'
	}
	tampered := parts[0] + "." + string(mid) + "." + parts[2]

	_, err = s.Verify(context.Background(), tampered, ScopeReadEmail, "u1")
	if err == nil {
		t.Fatalf("expected error for tampered token, got nil")
	}
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	s := newTestService()
	for _, input := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		_, err := s.Verify(context.Background(), input, ScopeReadEmail, "u1")
		assert.ErrorIs(t, err, ErrMalformedToken, "input %q", input)
	}
}

func TestRevoke(t *testing.T) {
	t.Parallel()

	s := newTestService()
	ctx := context.Background()

	_, tokenString, err := s.Issue("u1", "a1", ScopeReadEmail, ttl(time.Hour))
	require.NoError(t, err)

	_, err = s.Verify(ctx, tokenString, ScopeReadEmail, "u1")
	require.NoError(t, err)

	require.NoError(t, s.Revoke(ctx, tokenString))

	_, err = s.Verify(ctx, tokenString, ScopeReadEmail, "u1")
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestRevoke_ForgedTokenRefused(t *testing.T) {
	t.Parallel()

	s := newTestService()
	other := NewService([]byte("other-secret"), NewMemoryRevocationList())

	_, tokenString, err := other.Issue("u1", "a1", ScopeReadEmail, ttl(time.Hour))
	require.NoError(t, err)

	err = s.Revoke(context.Background(), tokenString)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestParseScope(t *testing.T) {
	t.Parallel()

	for _, scope := range AllScopes() {
		got, err := ParseScope(scope.String())
		require.NoError(t, err)
		assert.Equal(t, scope, got)
	}

	_, err := ParseScope("vault.read.everything")
	assert.ErrorIs(t, err, ErrInvalidScope)
}
