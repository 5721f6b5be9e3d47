package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"tenant-scraper/internal/model"
)

func (s *Storage) CreateTenant(ctx context.Context, t *model.Tenant) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	integrations, err := encodeIntegrations(t.Integrations)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO tenants (id, name, integrations)
		VALUES ($1, $2, $3::jsonb)
		RETURNING created_at, updated_at
	`
	if err := s.DB.QueryRowContext(ctx, query, t.ID, t.Name, integrations).Scan(&t.CreatedAt, &t.UpdatedAt); err != nil {
		return fmt.Errorf("failed to save tenant: %w", err)
	}
	return nil
}

func (s *Storage) GetTenant(ctx context.Context, id uuid.UUID) (*model.Tenant, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := s.DB.QueryRowContext(ctx, `
		SELECT id, name, integrations, created_at, updated_at
		FROM tenants WHERE id = $1`, id)
	t, err := scanTenant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant %s: %w", id, err)
	}
	return t, nil
}

func (s *Storage) UpdateTenant(ctx context.Context, t *model.Tenant) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	integrations, err := encodeIntegrations(t.Integrations)
	if err != nil {
		return err
	}
	err = s.DB.QueryRowContext(ctx, `
		UPDATE tenants
		SET name = $1, integrations = $2::jsonb, updated_at = NOW()
		WHERE id = $3
		RETURNING created_at, updated_at
	`, t.Name, integrations, t.ID).Scan(&t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update tenant %s: %w", t.ID, err)
	}
	return nil
}

func (s *Storage) DeleteTenant(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.DB.ExecContext(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete tenant %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListTenants returns every tenant ordered by creation time, which keeps the
// scheduler's grouping stable between cycles.
func (s *Storage) ListTenants(ctx context.Context) ([]model.Tenant, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, name, integrations, created_at, updated_at
		FROM tenants ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	return collectTenants(rows)
}

func (s *Storage) ListTenantsByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Tenant, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, name, integrations, created_at, updated_at
		FROM tenants WHERE id = ANY($1::uuid[]) ORDER BY created_at, id`, pq.Array(strs))
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	return collectTenants(rows)
}

func collectTenants(rows *sql.Rows) ([]model.Tenant, error) {
	defer rows.Close()

	var tenants []model.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, *t)
	}
	return tenants, rows.Err()
}

func scanTenant(row rowScanner) (*model.Tenant, error) {
	var (
		t   model.Tenant
		raw []byte
	)
	if err := row.Scan(&t.ID, &t.Name, &raw, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &t.Integrations); err != nil {
			return nil, fmt.Errorf("decode integrations of tenant %s: %w", t.ID, err)
		}
	}
	return &t, nil
}

func encodeIntegrations(in []model.IntegrationConfig) (string, error) {
	if in == nil {
		in = []model.IntegrationConfig{}
	}
	b, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("encode integrations: %w", err)
	}
	return string(b), nil
}
