package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hushh-ai/consentvault/internal/consent"
	"github.com/hushh-ai/consentvault/internal/cryptox"
	"github.com/hushh-ai/consentvault/internal/logging"
)

// Service implements the vault semantics on top of a Repository and the
// crypto codec. Writes to the same slot are serialized through a keyed lock;
// the repository makes each persisted write atomic, so readers never observe
// a half-written record.
type Service struct {
	repo   Repository
	key    []byte
	logger logging.Logger
	locks  *keyedMutex
}

// NewService validates the root key and builds a vault service. A missing or
// malformed root key is a construction-time failure, not a runtime one.
func NewService(repo Repository, rootKey []byte, logger logging.Logger) (*Service, error) {
	if len(rootKey) != cryptox.KeySize {
		return nil, fmt.Errorf("%w: need %d bytes, got %d",
			cryptox.ErrInvalidKey, cryptox.KeySize, len(rootKey))
	}
	return &Service{
		repo:   repo,
		key:    rootKey,
		logger: logger,
		locks:  newKeyedMutex(),
	}, nil
}

func nowMS() int64 { return time.Now().UnixMilli() }

// Store encrypts data and persists a fresh record at (userID, scope),
// replacing any existing record at that slot. Store is an upsert:
// re-storing to the same key silently replaces prior content. A nil ttl
// means the record never expires; a non-positive ttl is rejected.
func (s *Service) Store(ctx context.Context, userID string, scope consent.Scope, data map[string]any, agentID string, ttl *time.Duration, metadata map[string]any) error {
	if !scope.Valid() {
		return fmt.Errorf("%w: %q", consent.ErrInvalidScope, scope)
	}
	if ttl != nil && *ttl <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidTTL, *ttl)
	}

	payload, err := s.encrypt(data)
	if err != nil {
		return err
	}

	now := nowMS()
	rec := &Record{
		Key:       Key{UserID: userID, Scope: scope},
		Data:      *payload,
		AgentID:   agentID,
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  metadata,
	}
	if rec.Metadata == nil {
		rec.Metadata = map[string]any{}
	}
	if ttl != nil {
		exp := now + ttl.Milliseconds()
		rec.ExpiresAt = &exp
	}

	unlock := s.locks.lock(rec.Key)
	defer unlock()

	if err := s.repo.Put(ctx, rec); err != nil {
		return err
	}
	s.logger.Info(ctx, "record stored", "user_id", userID, "scope", scope.String(), "agent_id", agentID)
	return nil
}

// Retrieve loads, decrypts, and returns the record at (userID, scope) along
// with read-only provenance. A missing, soft-deleted, or expired record is
// ErrRecordNotFound; a failed authentication tag check is ErrTamperDetected
// and is never converted to not-found.
func (s *Service) Retrieve(ctx context.Context, userID string, scope consent.Scope, requestingAgent string) (*Envelope, error) {
	rec, err := s.repo.Get(ctx, Key{UserID: userID, Scope: scope})
	if err != nil {
		return nil, err
	}
	if !rec.LiveAt(nowMS()) {
		return nil, ErrRecordNotFound
	}

	plaintext, err := cryptox.Decrypt(&rec.Data, s.key)
	if err != nil {
		if errors.Is(err, cryptox.ErrDecryption) {
			s.logger.Error(ctx, "tamper detected on retrieve",
				"user_id", userID, "scope", scope.String(), "error", err.Error())
			return nil, fmt.Errorf("%w: %w", ErrTamperDetected, err)
		}
		return nil, err
	}

	var data map[string]any
	if err := json.Unmarshal(plaintext, &data); err != nil {
		return nil, fmt.Errorf("%w: stored payload is not valid json: %w", ErrTamperDetected, err)
	}

	return &Envelope{
		Data: data,
		Provenance: Provenance{
			Scope:              scope,
			CreatedAt:          rec.CreatedAt,
			UpdatedAt:          rec.UpdatedAt,
			ExpiresAt:          rec.ExpiresAt,
			StoredByAgent:      rec.AgentID,
			RequestingAgent:    requestingAgent,
			EncryptionVerified: true,
		},
	}, nil
}

// Update re-encrypts the record at (userID, scope) in place. Unlike Store it
// requires an existing live record; this asymmetry is intentional. The
// writer attribution moves to agentID and metadata entries are merged over
// the existing ones.
func (s *Service) Update(ctx context.Context, userID string, scope consent.Scope, data map[string]any, agentID string, metadata map[string]any) error {
	key := Key{UserID: userID, Scope: scope}

	unlock := s.locks.lock(key)
	defer unlock()

	rec, err := s.repo.Get(ctx, key)
	if err != nil {
		return err
	}
	if !rec.LiveAt(nowMS()) {
		return ErrRecordNotFound
	}

	payload, err := s.encrypt(data)
	if err != nil {
		return err
	}

	rec.Data = *payload
	rec.UpdatedAt = nowMS()
	rec.AgentID = agentID
	if rec.Metadata == nil {
		rec.Metadata = map[string]any{}
	}
	for k, v := range metadata {
		rec.Metadata[k] = v
	}

	if err := s.repo.Put(ctx, rec); err != nil {
		return err
	}
	s.logger.Info(ctx, "record updated", "user_id", userID, "scope", scope.String(), "agent_id", agentID)
	return nil
}

// Delete removes the record at (userID, scope). With hard=true the slot is
// physically removed, irreversibly. With hard=false the record is flagged
// deleted with attribution stamped into metadata and the ciphertext retained
// for audit. Deleting a nonexistent record reports ErrRecordNotFound.
func (s *Service) Delete(ctx context.Context, userID string, scope consent.Scope, agentID string, hard bool) error {
	key := Key{UserID: userID, Scope: scope}

	unlock := s.locks.lock(key)
	defer unlock()

	if hard {
		if err := s.repo.Delete(ctx, key); err != nil {
			return err
		}
		s.logger.Info(ctx, "record hard deleted", "user_id", userID, "scope", scope.String(), "agent_id", agentID)
		return nil
	}

	rec, err := s.repo.Get(ctx, key)
	if err != nil {
		return err
	}
	if rec.Deleted {
		// Already logically absent.
		return ErrRecordNotFound
	}

	now := nowMS()
	rec.Deleted = true
	rec.UpdatedAt = now
	if rec.Metadata == nil {
		rec.Metadata = map[string]any{}
	}
	rec.Metadata["deleted_by"] = agentID
	rec.Metadata["deletion_timestamp"] = now

	if err := s.repo.Put(ctx, rec); err != nil {
		return err
	}
	s.logger.Info(ctx, "record soft deleted", "user_id", userID, "scope", scope.String(), "agent_id", agentID)
	return nil
}

// ListSummaries returns metadata-only summaries for every scope ever stored
// for the user, including soft-deleted records. Decrypted content is never
// included: this is a discovery/audit operation, not a read.
func (s *Service) ListSummaries(ctx context.Context, userID string) ([]Summary, error) {
	recs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(recs))
	for _, rec := range recs {
		summaries = append(summaries, Summary{
			Scope:         rec.Key.Scope,
			CreatedAt:     rec.CreatedAt,
			UpdatedAt:     rec.UpdatedAt,
			ExpiresAt:     rec.ExpiresAt,
			StoredByAgent: rec.AgentID,
			Deleted:       rec.Deleted,
			Metadata:      rec.Metadata,
			SizeBytes:     recordSize(rec),
		})
	}
	return summaries, nil
}

// SweepExpired physically removes every record past its expiry and returns
// the count removed. Per-record failures are logged, accumulated, and
// returned as a joined error; the sweep continues to the next record rather
// than aborting. Safe to run concurrently with reads: each removal holds the
// slot lock, and a record stays fully visible until its removal completes.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	recs, err := s.repo.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	now := nowMS()
	removed := 0
	var sweepErrs []error

	for _, rec := range recs {
		if !rec.ExpiredAt(now) {
			continue
		}

		err := func() error {
			unlock := s.locks.lock(rec.Key)
			defer unlock()

			// Re-read under the lock: the slot may have been replaced with a
			// fresh record since the scan.
			current, err := s.repo.Get(ctx, rec.Key)
			if errors.Is(err, ErrRecordNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			if !current.ExpiredAt(now) {
				return nil
			}
			if err := s.repo.Delete(ctx, rec.Key); err != nil && !errors.Is(err, ErrRecordNotFound) {
				return err
			}
			removed++
			return nil
		}()
		if err != nil {
			s.logger.Warn(ctx, "sweep failed for record",
				"user_id", rec.Key.UserID, "scope", rec.Key.Scope.String(), "error", err.Error())
			sweepErrs = append(sweepErrs, fmt.Errorf("%s/%s: %w", rec.Key.UserID, rec.Key.Scope, err))
		}
	}

	s.logger.Info(ctx, "expiry sweep completed", "removed", removed, "failures", len(sweepErrs))
	return removed, errors.Join(sweepErrs...)
}

// Stats derives aggregate counts over the whole store. Read-only, no side
// effects.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	recs, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Scopes: make(map[string]int),
		Agents: make(map[string]int),
	}
	users := make(map[string]struct{})
	now := nowMS()

	for _, rec := range recs {
		users[rec.Key.UserID] = struct{}{}
		stats.TotalRecords++
		stats.TotalSizeBytes += recordSize(rec)
		stats.Scopes[rec.Key.Scope.String()]++
		stats.Agents[rec.AgentID]++
		if rec.ExpiredAt(now) {
			stats.ExpiredRecords++
		}
		if rec.Deleted {
			stats.DeletedRecords++
		}
	}
	stats.TotalUsers = len(users)
	return stats, nil
}

func (s *Service) encrypt(data map[string]any) (*cryptox.EncryptedPayload, error) {
	plaintext, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal data: %w", err)
	}
	return cryptox.Encrypt(plaintext, s.key)
}

// recordSize approximates the stored footprint of a record by its
// serialized form.
func recordSize(rec *Record) int64 {
	raw, err := json.Marshal(rec)
	if err != nil {
		return 0
	}
	return int64(len(raw))
}
