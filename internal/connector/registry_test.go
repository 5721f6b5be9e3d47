package connector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"tenant-scraper/internal/model"
)

func noopConnector() Connector {
	return Func(func(context.Context, model.Tenant, model.IntegrationConfig) ([]model.ScrapedRecord, error) {
		return nil, nil
	})
}

func TestRegistry_Resolve(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(model.IntegrationJira, noopConnector())

	_, ok := r.Resolve(model.IntegrationJira)
	assert.True(t, ok)

	_, ok = r.Resolve(model.IntegrationConfluence)
	assert.False(t, ok)
}

func TestRegistry_EnabledConnectors(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	r := NewRegistry(zap.New(core))
	r.Register(model.IntegrationConfluence, noopConnector())
	r.Register(model.IntegrationJira, noopConnector())

	tenant := model.Tenant{
		Name: "Acme",
		Integrations: []model.IntegrationConfig{
			{Type: model.IntegrationJira, Enabled: true, Config: model.ConnectionConfig{BaseURL: "https://jira"}},
			{Type: "github", Enabled: true},
			{Type: model.IntegrationConfluence, Enabled: false},
			{Type: model.IntegrationConfluence, Enabled: true, Config: model.ConnectionConfig{BaseURL: "https://wiki"}},
			{Type: model.IntegrationJira, Enabled: true, Config: model.ConnectionConfig{BaseURL: "https://other-jira"}},
		},
	}

	resolved := r.EnabledConnectors(tenant)
	require.Len(t, resolved, 2)
	assert.Equal(t, model.IntegrationJira, resolved[0].Type)
	assert.Equal(t, "https://jira", resolved[0].Config.Config.BaseURL)
	assert.Equal(t, model.IntegrationConfluence, resolved[1].Type)

	assert.Equal(t, 1, logs.FilterMessage("Unknown integration type").Len())
	assert.Equal(t, 1, logs.FilterMessage("Duplicate integration config ignored").Len())
}

func TestRegistry_NoIntegrations(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(model.IntegrationJira, noopConnector())

	assert.Empty(t, r.EnabledConnectors(model.Tenant{Name: "Empty"}))
	assert.Empty(t, r.EnabledConnectors(model.Tenant{
		Name:         "Disabled",
		Integrations: []model.IntegrationConfig{{Type: model.IntegrationJira, Enabled: false}},
	}))
}
