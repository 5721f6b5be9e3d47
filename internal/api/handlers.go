package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"tenant-scraper/internal/auth"
	"tenant-scraper/internal/model"
	"tenant-scraper/internal/storage"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
	maxBodyBytes    = 1 << 20
)

// TenantRequest is the body of tenant create and update calls.
type TenantRequest struct {
	Name         string                    `json:"name"`
	Integrations []model.IntegrationConfig `json:"integrations"`
}

// CreateTenantResponse carries the new tenant and its read token.
type CreateTenantResponse struct {
	Tenant model.Tenant `json:"tenant"`
	Token  string       `json:"token"`
}

// RecordPage is one page of a tenant's records.
type RecordPage struct {
	Data       []model.PersistedRecord `json:"data"`
	NextCursor int64                   `json:"next_cursor,omitempty"`
}

// @Summary List tenants
// @Tags Tenants
// @Produce json
// @Success 200 {array} model.Tenant
// @Router /tenants [get]
func (a *API) ListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := a.Store.ListTenants(r.Context())
	if err != nil {
		a.serverError(w, "list tenants", err)
		return
	}
	out := make([]model.Tenant, len(tenants))
	for i, t := range tenants {
		out[i] = redact(t)
	}
	writeJSON(w, http.StatusOK, out)
}

// @Summary Create a tenant
// @Tags Tenants
// @Accept json
// @Produce json
// @Param body body TenantRequest true "Tenant"
// @Success 201 {object} CreateTenantResponse
// @Failure 400 {string} string
// @Router /tenants [post]
func (a *API) CreateTenant(w http.ResponseWriter, r *http.Request) {
	req, ok := a.decodeTenant(w, r)
	if !ok {
		return
	}

	t := &model.Tenant{ID: uuid.New(), Name: req.Name, Integrations: req.Integrations}
	if t.Integrations == nil {
		t.Integrations = []model.IntegrationConfig{}
	}
	if err := a.Store.CreateTenant(r.Context(), t); err != nil {
		a.serverError(w, "create tenant", err)
		return
	}

	token, err := a.Tokens.GenerateToken(t.ID)
	if err != nil {
		a.serverError(w, "issue token", err)
		return
	}

	a.logger.Info("API: Created tenant", zap.String("tenant_id", t.ID.String()), zap.String("tenant", t.Name))
	writeJSON(w, http.StatusCreated, CreateTenantResponse{Tenant: redact(*t), Token: token})
}

// @Summary Get a tenant
// @Tags Tenants
// @Produce json
// @Param id path string true "Tenant UUID"
// @Success 200 {object} model.Tenant
// @Failure 404 {string} string
// @Router /tenants/{id} [get]
func (a *API) GetTenant(w http.ResponseWriter, r *http.Request) {
	id, ok := tenantID(w, r)
	if !ok {
		return
	}
	t, err := a.Store.GetTenant(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "tenant not found", http.StatusNotFound)
		return
	}
	if err != nil {
		a.serverError(w, "get tenant", err)
		return
	}
	writeJSON(w, http.StatusOK, redact(*t))
}

// @Summary Replace a tenant's name and integrations
// @Tags Tenants
// @Accept json
// @Produce json
// @Param id path string true "Tenant UUID"
// @Param body body TenantRequest true "Tenant"
// @Success 200 {object} model.Tenant
// @Failure 400 {string} string
// @Failure 404 {string} string
// @Router /tenants/{id} [put]
func (a *API) UpdateTenant(w http.ResponseWriter, r *http.Request) {
	id, ok := tenantID(w, r)
	if !ok {
		return
	}
	req, ok := a.decodeTenant(w, r)
	if !ok {
		return
	}

	t := &model.Tenant{ID: id, Name: req.Name, Integrations: req.Integrations}
	if t.Integrations == nil {
		t.Integrations = []model.IntegrationConfig{}
	}
	err := a.Store.UpdateTenant(r.Context(), t)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "tenant not found", http.StatusNotFound)
		return
	}
	if err != nil {
		a.serverError(w, "update tenant", err)
		return
	}

	a.logger.Info("API: Updated tenant", zap.String("tenant_id", id.String()))
	writeJSON(w, http.StatusOK, redact(*t))
}

// @Summary Delete a tenant
// @Tags Tenants
// @Param id path string true "Tenant UUID"
// @Success 204
// @Failure 404 {string} string
// @Router /tenants/{id} [delete]
func (a *API) DeleteTenant(w http.ResponseWriter, r *http.Request) {
	id, ok := tenantID(w, r)
	if !ok {
		return
	}
	err := a.Store.DeleteTenant(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "tenant not found", http.StatusNotFound)
		return
	}
	if err != nil {
		a.serverError(w, "delete tenant", err)
		return
	}

	a.logger.Info("API: Deleted tenant", zap.String("tenant_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}

// @Summary List a tenant's records without payloads
// @Tags Records
// @Produce json
// @Param id path string true "Tenant UUID"
// @Param cursor query int false "Pagination cursor"
// @Param limit query int false "Page size"
// @Success 200 {object} RecordPage
// @Router /tenants/{id}/records [get]
func (a *API) ListTenantRecords(w http.ResponseWriter, r *http.Request) {
	id, ok := tenantID(w, r)
	if !ok {
		return
	}
	a.listRecords(w, r, id, false)
}

// @Summary List the calling tenant's records
// @Tags Records
// @Security ApiKeyAuth
// @Produce json
// @Param cursor query int false "Pagination cursor"
// @Param limit query int false "Page size"
// @Success 200 {object} RecordPage
// @Router /records [get]
func (a *API) ListRecords(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.GetTenantID(r)
	if !ok {
		http.Error(w, "unauthorized tenant", http.StatusUnauthorized)
		return
	}
	a.listRecords(w, r, id, true)
}

func (a *API) listRecords(w http.ResponseWriter, r *http.Request, tenantID uuid.UUID, withPayload bool) {
	cursor, limit, err := pageParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	records, next, err := a.Store.ListRecordsPaginated(r.Context(), tenantID, cursor, limit, withPayload)
	if err != nil {
		a.serverError(w, "list records", err)
		return
	}
	if records == nil {
		records = []model.PersistedRecord{}
	}
	writeJSON(w, http.StatusOK, RecordPage{Data: records, NextCursor: next})
}

// @Summary Request an immediate scrape
// @Tags Scraping
// @Accept json
// @Param body body model.ScrapeRequest false "Tenants to scrape, all when empty"
// @Success 202
// @Failure 400 {string} string
// @Failure 503 {string} string
// @Router /scrape [post]
func (a *API) TriggerScrape(w http.ResponseWriter, r *http.Request) {
	if a.Trigger == nil {
		http.Error(w, "scrape trigger unavailable", http.StatusServiceUnavailable)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	var req model.ScrapeRequest
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, "bad request body", http.StatusBadRequest)
			return
		}
	}

	if err := a.Trigger.PublishScrapeRequest(req); err != nil {
		a.serverError(w, "publish scrape request", err)
		return
	}
	a.logger.Info("API: Scrape requested", zap.Int("tenants", len(req.TenantIDs)))
	w.WriteHeader(http.StatusAccepted)
}

func (a *API) decodeTenant(w http.ResponseWriter, r *http.Request) (TenantRequest, bool) {
	var req TenantRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return req, false
	}
	if err := a.validator.Validate(body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return req, false
	}
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

func (a *API) serverError(w http.ResponseWriter, op string, err error) {
	a.logger.Error("API: "+op+" failed", zap.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func tenantID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid tenant id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func pageParams(r *http.Request) (cursor int64, limit int, err error) {
	q := r.URL.Query()
	limit = defaultPageSize
	if s := q.Get("cursor"); s != "" {
		cursor, err = strconv.ParseInt(s, 10, 64)
		if err != nil || cursor < 0 {
			return 0, 0, errors.New("invalid cursor")
		}
	}
	if s := q.Get("limit"); s != "" {
		limit, err = strconv.Atoi(s)
		if err != nil || limit <= 0 {
			return 0, 0, errors.New("invalid limit")
		}
		if limit > maxPageSize {
			limit = maxPageSize
		}
	}
	return cursor, limit, nil
}

// redact blanks the credentials of a tenant's integrations.
func redact(t model.Tenant) model.Tenant {
	if len(t.Integrations) == 0 {
		return t
	}
	out := make([]model.IntegrationConfig, len(t.Integrations))
	for i, ic := range t.Integrations {
		if ic.Config.APIToken != "" {
			ic.Config.APIToken = "***"
		}
		if _, ok := ic.Config.Extra["accessToken"]; ok {
			extra := make(map[string]any, len(ic.Config.Extra))
			for k, v := range ic.Config.Extra {
				extra[k] = v
			}
			extra["accessToken"] = "***"
			ic.Config.Extra = extra
		}
		out[i] = ic
	}
	t.Integrations = out
	return t
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
