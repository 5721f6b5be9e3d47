// internal/storage/postgres.go
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"tenant-scraper/internal/model"
)

var (
	// ErrNotFound is returned by point lookups that match no row.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when an insert hits the natural key constraint.
	ErrDuplicate = errors.New("duplicate natural key")
)

const uniqueViolation = "23505"

type Storage struct {
	DB *sql.DB

	opTimeout time.Duration
}

type Option func(*Storage)

// WithOperationTimeout bounds every statement issued by the storage.
func WithOperationTimeout(d time.Duration) Option {
	return func(s *Storage) {
		s.opTimeout = d
	}
}

func NewStorage(dsn string, opts ...Option) (*Storage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	s := &Storage{DB: db, opTimeout: 10 * time.Second}
	for _, opt := range opts {
		opt(s)
	}

	ctx, cancel := s.withTimeout(context.Background())
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	return s, nil
}

func (s *Storage) Close() error {
	return s.DB.Close()
}

func (s *Storage) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.DB.PingContext(ctx)
}

func (s *Storage) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

const schema = `
CREATE TABLE IF NOT EXISTS tenants (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	integrations JSONB NOT NULL DEFAULT '[]',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS scraped_records (
	id BIGSERIAL PRIMARY KEY,
	source TEXT NOT NULL,
	external_id TEXT NOT NULL,
	tenant_id UUID NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	CONSTRAINT scraped_records_natural_key UNIQUE (source, external_id, tenant_id)
);
CREATE INDEX IF NOT EXISTS scraped_records_tenant_idx ON scraped_records (tenant_id, id);
`

// Migrate creates the tables if they do not exist yet.
func (s *Storage) Migrate(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if _, err := s.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Upsert inserts the record or, when the natural key already exists, replaces
// its payload. Both timestamps come from the same now() on insert; on update
// updated_at always moves strictly past its previous value.
func (s *Storage) Upsert(ctx context.Context, key model.NaturalKey, payload json.RawMessage) (model.UpsertResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO scraped_records (source, external_id, tenant_id, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4::jsonb, NOW(), NOW())
		ON CONFLICT (source, external_id, tenant_id) DO UPDATE
		SET payload = EXCLUDED.payload,
		    updated_at = GREATEST(NOW(), scraped_records.updated_at + INTERVAL '1 microsecond')
		RETURNING id, created_at, updated_at
	`
	var res model.UpsertResult
	err := s.DB.QueryRowContext(ctx, query, string(key.Source), key.ExternalID, key.TenantID, string(payload)).
		Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return model.UpsertResult{}, fmt.Errorf("upsert %s: %w", key, err)
	}
	return res, nil
}

func (s *Storage) FindByNaturalKey(ctx context.Context, key model.NaturalKey) (*model.PersistedRecord, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, source, external_id, tenant_id, payload, created_at, updated_at
		FROM scraped_records
		WHERE source = $1 AND external_id = $2 AND tenant_id = $3
	`
	r, err := scanRecord(s.DB.QueryRowContext(ctx, query, string(key.Source), key.ExternalID, key.TenantID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", key, err)
	}
	return r, nil
}

// Save writes the payload of an existing record and advances its updated_at.
func (s *Storage) Save(ctx context.Context, r *model.PersistedRecord) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE scraped_records
		SET payload = $1::jsonb,
		    updated_at = GREATEST(NOW(), updated_at + INTERVAL '1 microsecond')
		WHERE id = $2
		RETURNING updated_at
	`
	err := s.DB.QueryRowContext(ctx, query, string(r.Payload), r.ID).Scan(&r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("save record %d: %w", r.ID, err)
	}
	return nil
}

// Insert creates a new record. It fails with ErrDuplicate if the natural key
// is already taken.
func (s *Storage) Insert(ctx context.Context, r *model.PersistedRecord) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO scraped_records (source, external_id, tenant_id, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4::jsonb, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := s.DB.QueryRowContext(ctx, query, string(r.Source), r.ExternalID, r.TenantID, string(r.Payload)).
		Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("insert %s: %w", r.Key(), ErrDuplicate)
		}
		return fmt.Errorf("insert %s: %w", r.Key(), err)
	}
	return nil
}

// ListRecordsPaginated retrieves a tenant's records using cursor-based pagination.
// The cursor is the last record id of the previous page.
func (s *Storage) ListRecordsPaginated(ctx context.Context, tenantID uuid.UUID, cursor int64, limit int, withPayload bool) ([]model.PersistedRecord, int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	payloadCol := `'null'::jsonb`
	if withPayload {
		payloadCol = "payload"
	}
	query := fmt.Sprintf(`
		SELECT id, source, external_id, tenant_id, %s, created_at, updated_at
		FROM scraped_records
		WHERE tenant_id = $1 AND id > $2
		ORDER BY id
		LIMIT $3
	`, payloadCol)

	rows, err := s.DB.QueryContext(ctx, query, tenantID, cursor, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var records []model.PersistedRecord
	var lastID int64
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan failed: %w", err)
		}
		if !withPayload {
			r.Payload = nil
		}
		lastID = r.ID
		records = append(records, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("query failed: %w", err)
	}

	var next int64
	if len(records) == limit {
		next = lastID
	}
	return records, next, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*model.PersistedRecord, error) {
	var (
		r       model.PersistedRecord
		source  string
		payload []byte
	)
	if err := row.Scan(&r.ID, &source, &r.ExternalID, &r.TenantID, &payload, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Source = model.IntegrationType(source)
	r.Payload = json.RawMessage(payload)
	return &r, nil
}
