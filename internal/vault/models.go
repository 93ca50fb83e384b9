// Package vault stores one encrypted record per (user, scope) pair with
// lifecycle metadata. Records are encrypted at rest through the cryptox
// codec; the package owns every record exclusively and hands out only
// decrypted copies plus read-only provenance.
package vault

import (
	"github.com/hushh-ai/consentvault/internal/consent"
	"github.com/hushh-ai/consentvault/internal/cryptox"
)

// Key identifies one storage slot. One live record per Key at a time.
type Key struct {
	UserID string        `json:"user_id"`
	Scope  consent.Scope `json:"scope"`
}

// Record is the persisted form of a vault slot. Timestamps are epoch
// milliseconds; nil ExpiresAt means the record never expires.
type Record struct {
	Key       Key                     `json:"key"`
	Data      cryptox.EncryptedPayload `json:"data"`
	AgentID   string                  `json:"agent_id"`
	CreatedAt int64                   `json:"created_at"`
	UpdatedAt int64                   `json:"updated_at"`
	ExpiresAt *int64                  `json:"expires_at,omitempty"`
	Deleted   bool                    `json:"deleted"`
	Metadata  map[string]any          `json:"metadata"`
}

// ExpiredAt reports whether the record's expiry has passed at nowMS.
func (r *Record) ExpiredAt(nowMS int64) bool {
	return r.ExpiresAt != nil && nowMS > *r.ExpiresAt
}

// LiveAt reports whether the record is logically present at nowMS. A record
// that is soft-deleted or past its expiry must never be returned to readers.
func (r *Record) LiveAt(nowMS int64) bool {
	return !r.Deleted && !r.ExpiredAt(nowMS)
}

// Clone returns a deep copy so callers can never alias store-owned state.
func (r *Record) Clone() *Record {
	cp := *r
	if r.ExpiresAt != nil {
		exp := *r.ExpiresAt
		cp.ExpiresAt = &exp
	}
	if r.Metadata != nil {
		cp.Metadata = make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}

// Provenance describes who wrote a record and when. It accompanies every
// retrieved payload for transparency.
type Provenance struct {
	Scope              consent.Scope `json:"scope"`
	CreatedAt          int64         `json:"created_at"`
	UpdatedAt          int64         `json:"updated_at"`
	ExpiresAt          *int64        `json:"expires_at,omitempty"`
	StoredByAgent      string        `json:"stored_by_agent"`
	RequestingAgent    string        `json:"requesting_agent,omitempty"`
	EncryptionVerified bool          `json:"encryption_verified"`
}

// Envelope is the result of a retrieve: decrypted data plus provenance.
type Envelope struct {
	Data       map[string]any `json:"data"`
	Provenance Provenance     `json:"metadata"`
}

// Summary is the metadata-only view returned by ListSummaries. It never
// carries decrypted content.
type Summary struct {
	Scope         consent.Scope  `json:"scope"`
	CreatedAt     int64          `json:"created_at"`
	UpdatedAt     int64          `json:"updated_at"`
	ExpiresAt     *int64         `json:"expires_at,omitempty"`
	StoredByAgent string         `json:"stored_by_agent"`
	Deleted       bool           `json:"deleted"`
	Metadata      map[string]any `json:"metadata"`
	SizeBytes     int64          `json:"size_bytes"`
}

// Stats is an aggregate, read-only view over the whole store.
type Stats struct {
	TotalUsers     int              `json:"total_users"`
	TotalRecords   int              `json:"total_records"`
	TotalSizeBytes int64            `json:"total_size_bytes"`
	Scopes         map[string]int   `json:"scopes"`
	Agents         map[string]int   `json:"agents"`
	ExpiredRecords int              `json:"expired_records"`
	DeletedRecords int              `json:"deleted_records"`
}
