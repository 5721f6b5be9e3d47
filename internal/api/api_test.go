package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tenant-scraper/internal/auth"
	"tenant-scraper/internal/model"
	"tenant-scraper/internal/storage"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateTenant(ctx context.Context, t *model.Tenant) error {
	return m.Called(ctx, t).Error(0)
}

func (m *mockStore) GetTenant(ctx context.Context, id uuid.UUID) (*model.Tenant, error) {
	args := m.Called(ctx, id)
	t, _ := args.Get(0).(*model.Tenant)
	return t, args.Error(1)
}

func (m *mockStore) UpdateTenant(ctx context.Context, t *model.Tenant) error {
	return m.Called(ctx, t).Error(0)
}

func (m *mockStore) DeleteTenant(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockStore) ListTenants(ctx context.Context) ([]model.Tenant, error) {
	args := m.Called(ctx)
	tenants, _ := args.Get(0).([]model.Tenant)
	return tenants, args.Error(1)
}

func (m *mockStore) ListRecordsPaginated(ctx context.Context, tenantID uuid.UUID, cursor int64, limit int, withPayload bool) ([]model.PersistedRecord, int64, error) {
	args := m.Called(ctx, tenantID, cursor, limit, withPayload)
	records, _ := args.Get(0).([]model.PersistedRecord)
	return records, args.Get(1).(int64), args.Error(2)
}

type fakePublisher struct {
	requests []model.ScrapeRequest
	err      error
}

func (f *fakePublisher) PublishScrapeRequest(req model.ScrapeRequest) error {
	f.requests = append(f.requests, req)
	return f.err
}

func newTestAPI(t *testing.T, store TenantStore, trigger TriggerPublisher) (*API, http.Handler) {
	t.Helper()
	a, err := NewAPI(store, trigger, auth.NewIssuer("test-secret", time.Hour), nil)
	require.NoError(t, err)
	return a, a.Router()
}

func do(h http.Handler, method, path, body string, header ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateTenant(t *testing.T) {
	store := &mockStore{}
	store.On("CreateTenant", mock.Anything, mock.MatchedBy(func(tn *model.Tenant) bool {
		return tn.Name == "Acme" && len(tn.Integrations) == 1 && tn.ID != uuid.Nil
	})).Return(nil)

	a, h := newTestAPI(t, store, nil)
	rec := do(h, http.MethodPost, "/tenants", `{
		"name": "Acme",
		"integrations": [{"type": "confluence", "enabled": true, "authMethod": "basic",
			"config": {"baseUrl": "https://acme.atlassian.net/wiki", "username": "bot", "apiToken": "secret"}}]
	}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp CreateTenantResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Acme", resp.Tenant.Name)
	assert.Equal(t, "***", resp.Tenant.Integrations[0].Config.APIToken)

	id, err := a.Tokens.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.Tenant.ID, id)
	store.AssertExpectations(t)
}

func TestCreateTenant_RejectsInvalidBodies(t *testing.T) {
	store := &mockStore{}
	_, h := newTestAPI(t, store, nil)

	for name, body := range map[string]string{
		"not json":       `{`,
		"missing name":   `{"integrations": []}`,
		"empty name":     `{"name": ""}`,
		"unknown field":  `{"name": "x", "plan": "gold"}`,
		"missing config": `{"name": "x", "integrations": [{"type": "jira"}]}`,
		"bad auth":       `{"name": "x", "integrations": [{"type": "jira", "authMethod": "kerberos", "config": {"baseUrl": "https://x"}}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := do(h, http.MethodPost, "/tenants", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	store.AssertNotCalled(t, "CreateTenant", mock.Anything, mock.Anything)
}

func TestGetTenant(t *testing.T) {
	store := &mockStore{}
	known := &model.Tenant{ID: uuid.New(), Name: "Acme"}
	missing := uuid.New()
	store.On("GetTenant", mock.Anything, known.ID).Return(known, nil)
	store.On("GetTenant", mock.Anything, missing).Return(nil, storage.ErrNotFound)

	_, h := newTestAPI(t, store, nil)

	rec := do(h, http.MethodGet, "/tenants/"+known.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got model.Tenant
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, known.ID, got.ID)

	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/tenants/"+missing.String(), "").Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/tenants/nope", "").Code)
}

func TestUpdateAndDeleteTenant(t *testing.T) {
	store := &mockStore{}
	id := uuid.New()
	gone := uuid.New()
	store.On("UpdateTenant", mock.Anything, mock.MatchedBy(func(tn *model.Tenant) bool {
		return tn.ID == id && tn.Name == "Acme Corp" && tn.Integrations != nil
	})).Return(nil)
	store.On("DeleteTenant", mock.Anything, id).Return(nil)
	store.On("DeleteTenant", mock.Anything, gone).Return(storage.ErrNotFound)

	_, h := newTestAPI(t, store, nil)

	rec := do(h, http.MethodPut, "/tenants/"+id.String(), `{"name": "Acme Corp"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusNoContent, do(h, http.MethodDelete, "/tenants/"+id.String(), "").Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodDelete, "/tenants/"+gone.String(), "").Code)
	store.AssertExpectations(t)
}

func TestListTenants_StoreError(t *testing.T) {
	store := &mockStore{}
	store.On("ListTenants", mock.Anything).Return(nil, errors.New("db down"))

	_, h := newTestAPI(t, store, nil)
	rec := do(h, http.MethodGet, "/tenants", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db down")
}

func TestListTenantRecords_OmitsPayload(t *testing.T) {
	store := &mockStore{}
	id := uuid.New()
	store.On("ListRecordsPaginated", mock.Anything, id, int64(40), 25, false).
		Return([]model.PersistedRecord{{ID: 41, Source: model.IntegrationJira, ExternalID: "PROJ-1", TenantID: id}}, int64(0), nil)

	_, h := newTestAPI(t, store, nil)
	rec := do(h, http.MethodGet, "/tenants/"+id.String()+"/records?cursor=40&limit=25", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"data":{`)
	assert.NotContains(t, rec.Body.String(), "next_cursor")
	store.AssertExpectations(t)

	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/tenants/"+id.String()+"/records?cursor=x", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/tenants/"+id.String()+"/records?limit=0", "").Code)
}

func TestListRecords_RequiresTenantToken(t *testing.T) {
	store := &mockStore{}
	id := uuid.New()
	store.On("ListRecordsPaginated", mock.Anything, id, int64(0), defaultPageSize, true).
		Return([]model.PersistedRecord{{ID: 1, TenantID: id, Payload: json.RawMessage(`{"k":"v"}`)}}, int64(1), nil)

	a, h := newTestAPI(t, store, nil)
	assert.Equal(t, http.StatusUnauthorized, do(h, http.MethodGet, "/records", "").Code)

	token, err := a.Tokens.GenerateToken(id)
	require.NoError(t, err)
	rec := do(h, http.MethodGet, "/records", "", "Authorization", "Bearer "+token)

	require.Equal(t, http.StatusOK, rec.Code)
	var page RecordPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Data, 1)
	assert.JSONEq(t, `{"k":"v"}`, string(page.Data[0].Payload))
	assert.Equal(t, int64(1), page.NextCursor)
}

func TestTriggerScrape(t *testing.T) {
	pub := &fakePublisher{}
	_, h := newTestAPI(t, &mockStore{}, pub)

	id := uuid.New()
	assert.Equal(t, http.StatusAccepted, do(h, http.MethodPost, "/scrape", "").Code)
	assert.Equal(t, http.StatusAccepted, do(h, http.MethodPost, "/scrape", `{"tenant_ids":["`+id.String()+`"]}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/scrape", `{"tenant_ids":["x"]}`).Code)

	require.Len(t, pub.requests, 2)
	assert.Empty(t, pub.requests[0].TenantIDs)
	assert.Equal(t, []uuid.UUID{id}, pub.requests[1].TenantIDs)

	pub.err = errors.New("channel closed")
	assert.Equal(t, http.StatusInternalServerError, do(h, http.MethodPost, "/scrape", "").Code)
}

func TestTriggerScrape_Unavailable(t *testing.T) {
	_, h := newTestAPI(t, &mockStore{}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, do(h, http.MethodPost, "/scrape", "").Code)
}

func TestMetricsAndSwagger(t *testing.T) {
	_, h := newTestAPI(t, &mockStore{}, nil)
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/metrics", "").Code)

	rec := do(h, http.MethodGet, "/swagger/doc.json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/tenants/{id}/records")
}
