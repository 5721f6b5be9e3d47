package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	_ "tenant-scraper/docs"
	"tenant-scraper/internal/auth"
	"tenant-scraper/internal/metrics"
	"tenant-scraper/internal/model"
)

// TenantStore is the persistence the API reads and writes.
type TenantStore interface {
	CreateTenant(ctx context.Context, t *model.Tenant) error
	GetTenant(ctx context.Context, id uuid.UUID) (*model.Tenant, error)
	UpdateTenant(ctx context.Context, t *model.Tenant) error
	DeleteTenant(ctx context.Context, id uuid.UUID) error
	ListTenants(ctx context.Context) ([]model.Tenant, error)
	ListRecordsPaginated(ctx context.Context, tenantID uuid.UUID, cursor int64, limit int, withPayload bool) ([]model.PersistedRecord, int64, error)
}

// TriggerPublisher enqueues on-demand scrape requests.
type TriggerPublisher interface {
	PublishScrapeRequest(req model.ScrapeRequest) error
}

type API struct {
	Store   TenantStore
	Trigger TriggerPublisher
	Tokens  *auth.Issuer

	validator *bodyValidator
	logger    *zap.Logger
}

// NewAPI wires the HTTP API. trigger may be nil, in which case POST /scrape
// answers 503.
func NewAPI(store TenantStore, trigger TriggerPublisher, tokens *auth.Issuer, logger *zap.Logger) (*API, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	v, err := newTenantValidator()
	if err != nil {
		return nil, err
	}
	return &API{
		Store:     store,
		Trigger:   trigger,
		Tokens:    tokens,
		validator: v,
		logger:    logger,
	}, nil
}

func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/tenants", a.ListTenants)
	r.Post("/tenants", a.CreateTenant)
	r.Get("/tenants/{id}", a.GetTenant)
	r.Put("/tenants/{id}", a.UpdateTenant)
	r.Delete("/tenants/{id}", a.DeleteTenant)
	r.Get("/tenants/{id}/records", a.ListTenantRecords)
	r.Post("/scrape", a.TriggerScrape)

	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// Secured
	r.Group(func(r chi.Router) {
		r.Use(a.Tokens.Middleware)
		r.Get("/records", a.ListRecords)
	})

	return r
}
