package vault

import "context"

// Repository is the durable key-value substrate beneath the vault service:
// one logical slot per Key, whole-record reads and writes.
//
// Implementations must make Put atomic per slot — a reader never observes a
// half-written record — and must return ErrRecordNotFound from Get and
// Delete when the slot is physically absent. Soft-deleted and expired
// records are still physically present; filtering them is the service's job.
type Repository interface {
	Get(ctx context.Context, key Key) (*Record, error)
	Put(ctx context.Context, record *Record) error
	Delete(ctx context.Context, key Key) error
	ListByUser(ctx context.Context, userID string) ([]*Record, error)
	ListAll(ctx context.Context) ([]*Record, error)
}
