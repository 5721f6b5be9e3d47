package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tenant-scraper/internal/model"
)

// MemoryStore keeps tenants and records in process. It honours the same
// natural key and timestamp rules as the Postgres storage and backs the
// run-once command when no database is configured.
type MemoryStore struct {
	mu      sync.Mutex
	now     func() time.Time
	nextID  int64
	tenants []model.Tenant
	records map[model.NaturalKey]*model.PersistedRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:     time.Now,
		records: make(map[model.NaturalKey]*model.PersistedRecord),
	}
}

// SetClock replaces the time source.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *MemoryStore) timestamp() time.Time {
	return m.now().UTC().Truncate(time.Microsecond)
}

// advance mirrors GREATEST(now(), updated_at + 1µs).
func (m *MemoryStore) advance(prev time.Time) time.Time {
	ts := m.timestamp()
	if floor := prev.Add(time.Microsecond); ts.Before(floor) {
		return floor
	}
	return ts
}

func (m *MemoryStore) Upsert(_ context.Context, key model.NaturalKey, payload json.RawMessage) (model.UpsertResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.records[key]; ok {
		r.Payload = clonePayload(payload)
		r.UpdatedAt = m.advance(r.UpdatedAt)
		return model.UpsertResult{ID: r.ID, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}, nil
	}
	r := m.insertLocked(key, payload)
	return model.UpsertResult{ID: r.ID, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}, nil
}

func (m *MemoryStore) FindByNaturalKey(_ context.Context, key model.NaturalKey) (*model.PersistedRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	cp.Payload = clonePayload(r.Payload)
	return &cp, nil
}

func (m *MemoryStore) Save(_ context.Context, r *model.PersistedRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.records[r.Key()]
	if !ok || existing.ID != r.ID {
		return ErrNotFound
	}
	existing.Payload = clonePayload(r.Payload)
	existing.UpdatedAt = m.advance(existing.UpdatedAt)
	r.UpdatedAt = existing.UpdatedAt
	return nil
}

func (m *MemoryStore) Insert(_ context.Context, r *model.PersistedRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[r.Key()]; ok {
		return fmt.Errorf("insert %s: %w", r.Key(), ErrDuplicate)
	}
	created := m.insertLocked(r.Key(), r.Payload)
	r.ID, r.CreatedAt, r.UpdatedAt = created.ID, created.CreatedAt, created.UpdatedAt
	return nil
}

func (m *MemoryStore) insertLocked(key model.NaturalKey, payload json.RawMessage) *model.PersistedRecord {
	m.nextID++
	ts := m.timestamp()
	r := &model.PersistedRecord{
		ID:         m.nextID,
		Source:     key.Source,
		ExternalID: key.ExternalID,
		TenantID:   key.TenantID,
		Payload:    clonePayload(payload),
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}
	m.records[key] = r
	return r
}

// Records returns a snapshot of a tenant's records ordered by id.
func (m *MemoryStore) Records(tenantID uuid.UUID) []model.PersistedRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.PersistedRecord
	for _, r := range m.records {
		if r.TenantID == tenantID {
			cp := *r
			cp.Payload = clonePayload(r.Payload)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AddTenant registers a tenant, assigning an id when it has none.
func (m *MemoryStore) AddTenant(t model.Tenant) model.Tenant {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	ts := m.timestamp()
	t.CreatedAt, t.UpdatedAt = ts, ts
	m.tenants = append(m.tenants, t)
	return t
}

func (m *MemoryStore) ListTenants(_ context.Context) ([]model.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]model.Tenant(nil), m.tenants...), nil
}

func (m *MemoryStore) ListTenantsByIDs(_ context.Context, ids []uuid.UUID) ([]model.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	want := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var out []model.Tenant
	for _, t := range m.tenants {
		if _, ok := want[t.ID]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func clonePayload(p json.RawMessage) json.RawMessage {
	if p == nil {
		return nil
	}
	return append(json.RawMessage(nil), p...)
}
