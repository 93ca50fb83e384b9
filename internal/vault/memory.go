package vault

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository is an in-process Repository for tests and development.
// Records are deep-copied on the way in and out so no caller ever holds a
// reference to store-owned state.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[Key]*Record
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[Key]*Record)}
}

func (r *MemoryRepository) Get(_ context.Context, key Key) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[key]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return rec.Clone(), nil
}

func (r *MemoryRepository) Put(_ context.Context, record *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.Key] = record.Clone()
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, key Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[key]; !ok {
		return ErrRecordNotFound
	}
	delete(r.records, key)
	return nil
}

func (r *MemoryRepository) ListByUser(_ context.Context, userID string) ([]*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Record
	for key, rec := range r.records {
		if key.UserID == userID {
			out = append(out, rec.Clone())
		}
	}
	sortRecords(out)
	return out, nil
}

func (r *MemoryRepository) ListAll(_ context.Context) ([]*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec.Clone())
	}
	sortRecords(out)
	return out, nil
}

// sortRecords gives listings a stable order regardless of map iteration.
func sortRecords(recs []*Record) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Key.UserID != recs[j].Key.UserID {
			return recs[i].Key.UserID < recs[j].Key.UserID
		}
		return recs[i].Key.Scope < recs[j].Key.Scope
	})
}
