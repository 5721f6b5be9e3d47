package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"tenant-scraper/internal/model"
	"tenant-scraper/internal/storage"
)

type mockConnector struct {
	mock.Mock
}

func (m *mockConnector) Fetch(ctx context.Context, tenant model.Tenant, cfg model.IntegrationConfig) ([]model.ScrapedRecord, error) {
	args := m.Called(ctx, tenant, cfg)
	records, _ := args.Get(0).([]model.ScrapedRecord)
	return records, args.Error(1)
}

type mockRecordStore struct {
	mock.Mock
}

func (m *mockRecordStore) Upsert(ctx context.Context, key model.NaturalKey, payload json.RawMessage) (model.UpsertResult, error) {
	args := m.Called(ctx, key, payload)
	return args.Get(0).(model.UpsertResult), args.Error(1)
}

func (m *mockRecordStore) FindByNaturalKey(ctx context.Context, key model.NaturalKey) (*model.PersistedRecord, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PersistedRecord), args.Error(1)
}

func (m *mockRecordStore) Save(ctx context.Context, r *model.PersistedRecord) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockRecordStore) Insert(ctx context.Context, r *model.PersistedRecord) error {
	return m.Called(ctx, r).Error(0)
}

// upsertlessStore behaves like a store without a single-step upsert, forcing
// every write down the fallback path.
type upsertlessStore struct {
	*storage.MemoryStore
}

func (upsertlessStore) Upsert(context.Context, model.NaturalKey, json.RawMessage) (model.UpsertResult, error) {
	return model.UpsertResult{}, errors.New("upsert not supported")
}

// recordingStore remembers the order keys were written in.
type recordingStore struct {
	*storage.MemoryStore
	keys []string
}

func (s *recordingStore) Upsert(ctx context.Context, key model.NaturalKey, payload json.RawMessage) (model.UpsertResult, error) {
	s.keys = append(s.keys, key.ExternalID)
	return s.MemoryStore.Upsert(ctx, key, payload)
}

func newTenant(name string, integrations ...model.IntegrationConfig) model.Tenant {
	return model.Tenant{ID: uuid.New(), Name: name, Integrations: integrations}
}

func enabled(t model.IntegrationType) model.IntegrationConfig {
	return model.IntegrationConfig{
		Type:       t,
		Enabled:    true,
		AuthMethod: model.AuthBearer,
		Config:     model.ConnectionConfig{BaseURL: "https://" + string(t) + ".example.com", APIToken: "tok"},
	}
}

func scraped(tenant model.Tenant, source model.IntegrationType, ids ...string) []model.ScrapedRecord {
	out := make([]model.ScrapedRecord, len(ids))
	for i, id := range ids {
		out[i] = model.ScrapedRecord{
			Source:     source,
			ExternalID: id,
			Payload:    json.RawMessage(fmt.Sprintf(`{"id":%q}`, id)),
			TenantID:   tenant.ID,
		}
	}
	return out
}
