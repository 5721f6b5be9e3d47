// Package connector holds the source connectors that fetch raw items from
// external systems and the registry that maps integration types to them.
package connector

import (
	"context"

	"tenant-scraper/internal/model"
)

// Connector fetches the records of one integration for one tenant.
//
// Expected transport failures should degrade to an empty result; an error is
// reserved for misconfiguration and other conditions the caller should count
// as a failed integration.
type Connector interface {
	Fetch(ctx context.Context, tenant model.Tenant, cfg model.IntegrationConfig) ([]model.ScrapedRecord, error)
}

// Func adapts a plain function to the Connector interface.
type Func func(ctx context.Context, tenant model.Tenant, cfg model.IntegrationConfig) ([]model.ScrapedRecord, error)

func (f Func) Fetch(ctx context.Context, tenant model.Tenant, cfg model.IntegrationConfig) ([]model.ScrapedRecord, error) {
	return f(ctx, tenant, cfg)
}
