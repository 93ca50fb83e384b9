package consent

import (
	"context"
	"sync"
	"time"
)

// RevocationList records token IDs whose consent was withdrawn before
// natural expiry. Self-contained tokens cannot express revocation, so the
// list is the authority consulted during Verify.
type RevocationList interface {
	// Revoke marks tokenID as revoked. A positive ttl bounds how long the
	// entry needs to be retained (until the token would expire anyway);
	// ttl <= 0 retains it indefinitely.
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error

	// IsRevoked reports whether tokenID has been revoked.
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// MemoryRevocationList is an in-process RevocationList for tests and
// single-node deployments.
type MemoryRevocationList struct {
	mu      sync.RWMutex
	entries map[string]time.Time // zero value = no retention bound
}

func NewMemoryRevocationList() *MemoryRevocationList {
	return &MemoryRevocationList{entries: make(map[string]time.Time)}
}

func (l *MemoryRevocationList) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var until time.Time
	if ttl > 0 {
		until = time.Now().Add(ttl)
	}
	l.entries[tokenID] = until
	return nil
}

func (l *MemoryRevocationList) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	l.mu.RLock()
	until, ok := l.entries[tokenID]
	l.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if !until.IsZero() && time.Now().After(until) {
		// Token has expired on its own; the entry is no longer needed.
		l.mu.Lock()
		delete(l.entries, tokenID)
		l.mu.Unlock()
		return false, nil
	}
	return true, nil
}
