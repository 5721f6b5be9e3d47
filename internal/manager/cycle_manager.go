package manager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tenant-scraper/internal/model"
	"tenant-scraper/internal/scraper"
)

// ErrMalformedTrigger marks a trigger message that cannot be decoded.
var ErrMalformedTrigger = errors.New("malformed scrape request")

// TenantSource loads the tenants a cycle runs over.
type TenantSource interface {
	ListTenants(ctx context.Context) ([]model.Tenant, error)
	ListTenantsByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Tenant, error)
}

// CycleRunner runs one scrape cycle over a fixed tenant list.
type CycleRunner interface {
	RunCycle(ctx context.Context, tenants []model.Tenant) scraper.CycleReport
}

// CycleManager owns the scrape schedule. Cycles never overlap: a periodic
// tick that finds a cycle running is skipped, an on-demand request waits for
// it.
type CycleManager struct {
	tenants      TenantSource
	runner       CycleRunner
	interval     time.Duration
	runOnStartup bool
	logger       *zap.Logger

	running sync.Mutex
}

func NewCycleManager(tenants TenantSource, runner CycleRunner, interval time.Duration, runOnStartup bool, logger *zap.Logger) *CycleManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CycleManager{
		tenants:      tenants,
		runner:       runner,
		interval:     interval,
		runOnStartup: runOnStartup,
		logger:       logger,
	}
}

// RunCycle scrapes the tenants with the given ids, or every tenant when ids is
// empty. Tenants are loaded fresh for every cycle. The only error is a failure
// to load them.
func (m *CycleManager) RunCycle(ctx context.Context, ids []uuid.UUID) (scraper.CycleReport, error) {
	m.running.Lock()
	defer m.running.Unlock()
	return m.run(ctx, ids)
}

func (m *CycleManager) run(ctx context.Context, ids []uuid.UUID) (scraper.CycleReport, error) {
	var (
		tenants []model.Tenant
		err     error
	)
	if len(ids) == 0 {
		tenants, err = m.tenants.ListTenants(ctx)
	} else {
		tenants, err = m.tenants.ListTenantsByIDs(ctx, ids)
	}
	if err != nil {
		m.logger.Error("Failed to load tenants", zap.Error(err))
		return scraper.CycleReport{}, fmt.Errorf("load tenants: %w", err)
	}
	return m.runner.RunCycle(ctx, tenants), nil
}

// tick runs a full cycle unless one is already in progress.
func (m *CycleManager) tick(ctx context.Context) {
	if !m.running.TryLock() {
		m.logger.Warn("Previous scrape cycle still running, skipping tick")
		return
	}
	defer m.running.Unlock()
	_, _ = m.run(ctx, nil)
}

// Start runs a full cycle every interval until ctx is done.
func (m *CycleManager) Start(ctx context.Context) {
	m.logger.Info("Cycle manager started", zap.Duration("interval", m.interval))
	if m.runOnStartup {
		m.tick(ctx)
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Cycle manager stopped")
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

// HandleTrigger decodes a scrape request message and runs the cycle it asks
// for.
func (m *CycleManager) HandleTrigger(ctx context.Context, body []byte) error {
	var req model.ScrapeRequest
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedTrigger, err)
		}
	}
	m.logger.Info("Scrape requested", zap.Int("tenants", len(req.TenantIDs)))

	_, err := m.RunCycle(ctx, req.TenantIDs)
	return err
}
