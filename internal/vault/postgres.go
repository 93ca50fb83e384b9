package vault

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/hushh-ai/consentvault/internal/consent"
	"github.com/hushh-ai/consentvault/internal/dbx"
	"github.com/hushh-ai/consentvault/internal/vault/migrations"
)

// PostgresRepository implements slot storage over a dbx.DBTX. Put is a single
// upsert statement, so each write replaces the whole slot atomically.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

const recordColumns = `user_id, scope, algorithm, iv, ciphertext, tag, encoding,
		agent_id, created_at, updated_at, expires_at, deleted, metadata`

func (r *PostgresRepository) Get(ctx context.Context, key Key) (*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM vault_records WHERE user_id=$1 AND scope=$2`
	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, key.UserID, key.Scope.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageIO, err)
	}
	return rec, nil
}

func (r *PostgresRepository) Put(ctx context.Context, record *Record) error {
	meta, err := json.Marshal(metadataOrEmpty(record.Metadata))
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	query := `
		INSERT INTO vault_records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (user_id, scope)
		DO UPDATE SET
			algorithm = EXCLUDED.algorithm,
			iv = EXCLUDED.iv,
			ciphertext = EXCLUDED.ciphertext,
			tag = EXCLUDED.tag,
			encoding = EXCLUDED.encoding,
			agent_id = EXCLUDED.agent_id,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at,
			expires_at = EXCLUDED.expires_at,
			deleted = EXCLUDED.deleted,
			metadata = EXCLUDED.metadata;
	`
	_, err = r.db.ExecContext(ctx, query,
		record.Key.UserID, record.Key.Scope.String(),
		record.Data.Algorithm, record.Data.IV, record.Data.Ciphertext, record.Data.Tag, record.Data.Encoding,
		record.AgentID, record.CreatedAt, record.UpdatedAt, nullableInt64(record.ExpiresAt),
		record.Deleted, meta)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageIO, err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, key Key) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM vault_records WHERE user_id=$1 AND scope=$2`,
		key.UserID, key.Scope.String())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageIO, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %w", ErrStorageIO, err)
	}
	if n == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM vault_records WHERE user_id=$1 ORDER BY scope`
	return r.queryRecords(ctx, query, userID)
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM vault_records ORDER BY user_id, scope`
	return r.queryRecords(ctx, query)
}

func (r *PostgresRepository) queryRecords(ctx context.Context, query string, args ...any) ([]*Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageIO, err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStorageIO, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageIO, err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec      Record
		scope    string
		expires  sql.NullInt64
		metaJSON []byte
	)
	err := row.Scan(
		&rec.Key.UserID, &scope,
		&rec.Data.Algorithm, &rec.Data.IV, &rec.Data.Ciphertext, &rec.Data.Tag, &rec.Data.Encoding,
		&rec.AgentID, &rec.CreatedAt, &rec.UpdatedAt, &expires, &rec.Deleted, &metaJSON,
	)
	if err != nil {
		return nil, err
	}
	rec.Key.Scope = consent.Scope(scope)
	if expires.Valid {
		rec.ExpiresAt = &expires.Int64
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &rec.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return &rec, nil
}

func nullableInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func metadataOrEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
