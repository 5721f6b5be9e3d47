package scraper

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tenant-scraper/internal/connector"
	"tenant-scraper/internal/metrics"
	"tenant-scraper/internal/model"
)

// ConnectorResolver yields the integrations of a tenant that can be scraped.
type ConnectorResolver interface {
	EnabledConnectors(tenant model.Tenant) []connector.Resolved
}

// TenantReport summarises one tenant scrape.
type TenantReport struct {
	Integrations       int
	FailedIntegrations int
	ReconcileResult
}

// Orchestrator scrapes a single tenant. Integrations of one tenant run one
// after another so a tenant's own systems are never hit concurrently.
type Orchestrator struct {
	resolver     ConnectorResolver
	reconciler   *Reconciler
	fetchTimeout time.Duration
	logger       *zap.Logger
	recorder     metrics.Recorder
}

func NewOrchestrator(resolver ConnectorResolver, reconciler *Reconciler, fetchTimeout time.Duration, logger *zap.Logger, recorder metrics.Recorder) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Orchestrator{
		resolver:     resolver,
		reconciler:   reconciler,
		fetchTimeout: fetchTimeout,
		logger:       logger,
		recorder:     recorder,
	}
}

// ScrapeTenant runs every enabled integration of tenant and reconciles what
// they return. A failing integration is logged and skipped; the returned
// error is only set when ctx ends before all integrations ran.
func (o *Orchestrator) ScrapeTenant(ctx context.Context, tenant model.Tenant) (TenantReport, error) {
	var report TenantReport
	logger := o.logger.With(zap.String("tenant", tenant.Name), zap.String("tenant_id", tenant.ID.String()))
	logger.Info("Starting scraping for tenant")

	integrations := o.resolver.EnabledConnectors(tenant)
	if len(integrations) == 0 {
		logger.Info("No enabled integrations found for tenant")
		return report, nil
	}

	for _, integration := range integrations {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Integrations++

		ilog := logger.With(zap.String("integration", string(integration.Type)))
		ilog.Info("Running integration")

		records, err := o.fetch(ctx, tenant, integration)
		if err != nil {
			report.FailedIntegrations++
			o.recorder.IntegrationFetched(string(integration.Type), false)
			ilog.Error("Error scraping integration", zap.Error(err))
			continue
		}
		o.recorder.IntegrationFetched(string(integration.Type), true)

		if len(records) == 0 {
			ilog.Info("No data found")
			continue
		}

		res := o.reconciler.Reconcile(ctx, records, tenant)
		report.add(res)
		ilog.Info("Processed records",
			zap.Int("records", len(records)),
			zap.Int("inserted", res.Inserted),
			zap.Int("updated", res.Updated),
			zap.Int("failed", res.Failed))
	}
	return report, nil
}

// fetch calls the connector under the fetch timeout, turning a panic into an
// error.
func (o *Orchestrator) fetch(ctx context.Context, tenant model.Tenant, integration connector.Resolved) (records []model.ScrapedRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("connector panicked: %v", r)
		}
	}()

	if o.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.fetchTimeout)
		defer cancel()
	}
	return integration.Connector.Fetch(ctx, tenant, integration.Config)
}
