package connector

import (
	"sync"

	"go.uber.org/zap"

	"tenant-scraper/internal/model"
)

// Resolved pairs an enabled integration config with the connector serving it.
type Resolved struct {
	Type      model.IntegrationType
	Config    model.IntegrationConfig
	Connector Connector
}

// Registry maps integration types to connectors.
type Registry struct {
	mu         sync.RWMutex
	connectors map[model.IntegrationType]Connector
	logger     *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		connectors: make(map[model.IntegrationType]Connector),
		logger:     logger,
	}
}

// Register installs c for integrationType, replacing any previous connector.
func (r *Registry) Register(integrationType model.IntegrationType, c Connector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectors[integrationType] = c
}

func (r *Registry) Resolve(integrationType model.IntegrationType) (Connector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.connectors[integrationType]
	return c, ok
}

// Types lists the registered integration types.
func (r *Registry) Types() []model.IntegrationType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.IntegrationType, 0, len(r.connectors))
	for t := range r.connectors {
		out = append(out, t)
	}
	return out
}

// EnabledConnectors returns the tenant's enabled integrations that have a
// registered connector, in configured order. Only the first config of each
// type counts; unknown types are skipped with a warning.
func (r *Registry) EnabledConnectors(tenant model.Tenant) []Resolved {
	var (
		out  []Resolved
		seen = make(map[model.IntegrationType]bool)
	)
	for _, cfg := range tenant.Integrations {
		if !cfg.Enabled {
			continue
		}
		if seen[cfg.Type] {
			r.logger.Warn("Duplicate integration config ignored",
				zap.String("tenant", tenant.Name),
				zap.String("integration", string(cfg.Type)))
			continue
		}
		seen[cfg.Type] = true

		c, ok := r.Resolve(cfg.Type)
		if !ok {
			r.logger.Warn("Unknown integration type",
				zap.String("tenant", tenant.Name),
				zap.String("integration", string(cfg.Type)))
			continue
		}
		out = append(out, Resolved{Type: cfg.Type, Config: cfg, Connector: c})
	}
	return out
}
