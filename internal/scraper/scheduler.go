package scraper

import (
	"context"
	"time"

	"go.uber.org/zap"

	"tenant-scraper/internal/metrics"
	"tenant-scraper/internal/model"
	"tenant-scraper/internal/worker"
)

// DefaultTenantGroupSize is the number of tenants scraped concurrently.
const DefaultTenantGroupSize = 5

// TenantScraper scrapes one tenant.
type TenantScraper interface {
	ScrapeTenant(ctx context.Context, tenant model.Tenant) (TenantReport, error)
}

// CycleReport summarises one run over a tenant list.
type CycleReport struct {
	Tenants   int
	Groups    int
	Succeeded int
	Failed    int
	Inserted  int
	Updated   int
	Duration  time.Duration
}

// Scheduler runs tenant scrapes in fixed-size groups. Tenants of a group run
// concurrently; the next group starts only when every tenant of the current
// one has settled.
type Scheduler struct {
	scraper   TenantScraper
	groupSize int
	pool      *worker.WorkerPool
	logger    *zap.Logger
	recorder  metrics.Recorder
}

func NewScheduler(scraper TenantScraper, groupSize int, logger *zap.Logger, recorder metrics.Recorder) *Scheduler {
	if groupSize <= 0 {
		groupSize = DefaultTenantGroupSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Scheduler{
		scraper:   scraper,
		groupSize: groupSize,
		pool:      worker.NewWorkerPool("tenant-scrapes", groupSize, logger),
		logger:    logger,
		recorder:  recorder,
	}
}

// Partition splits tenants into consecutive groups of at most size tenants.
func Partition(tenants []model.Tenant, size int) [][]model.Tenant {
	if size <= 0 {
		size = DefaultTenantGroupSize
	}
	groups := make([][]model.Tenant, 0, (len(tenants)+size-1)/size)
	for start := 0; start < len(tenants); start += size {
		end := start + size
		if end > len(tenants) {
			end = len(tenants)
		}
		groups = append(groups, tenants[start:end])
	}
	return groups
}

// RunCycle scrapes every tenant. Individual tenant failures are logged and
// counted, never returned.
func (s *Scheduler) RunCycle(ctx context.Context, tenants []model.Tenant) CycleReport {
	report := CycleReport{Tenants: len(tenants)}
	if len(tenants) == 0 {
		s.logger.Info("No tenants to process")
		return report
	}

	start := time.Now()
	groups := Partition(tenants, s.groupSize)
	report.Groups = len(groups)
	s.logger.Info("Starting parallel scraping",
		zap.Int("tenants", len(tenants)),
		zap.Int("groups", len(groups)))

	for i, group := range groups {
		s.runGroup(ctx, i, len(groups), group, &report)
	}

	report.Duration = time.Since(start)
	s.recorder.CycleFinished(report.Duration)
	s.logger.Info("Finished parallel scraping",
		zap.Int("tenants", report.Tenants),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int("inserted", report.Inserted),
		zap.Int("updated", report.Updated),
		zap.Duration("duration", report.Duration))
	return report
}

func (s *Scheduler) runGroup(ctx context.Context, index, total int, group []model.Tenant, report *CycleReport) {
	groupStart := time.Now()
	names := make([]string, len(group))
	for i, t := range group {
		names[i] = t.Name
	}
	glog := s.logger.With(zap.Int("group", index+1), zap.Int("groups", total))
	glog.Info("Processing tenant group", zap.Strings("tenants", names))

	reports := make([]TenantReport, len(group))
	tasks := make([]worker.Task, len(group))
	for i, tenant := range group {
		i, tenant := i, tenant
		tasks[i] = worker.Task{
			ID: tenant.ID.String(),
			Fn: func(ctx context.Context) error {
				s.recorder.TenantScrapeStarted()
				defer s.recorder.TenantScrapeDone()
				r, err := s.scraper.ScrapeTenant(ctx, tenant)
				reports[i] = r
				return err
			},
		}
	}

	results := s.pool.RunGroup(ctx, tasks)

	var succeeded, failed int
	for i, res := range results {
		tenant := group[i]
		if res.Err != nil {
			failed++
			s.recorder.TenantScraped(false)
			glog.Error("Failed to scrape tenant",
				zap.String("tenant", tenant.Name),
				zap.String("tenant_id", tenant.ID.String()),
				zap.Error(res.Err))
			continue
		}
		succeeded++
		s.recorder.TenantScraped(true)
		report.Inserted += reports[i].Inserted
		report.Updated += reports[i].Updated
		glog.Info("Successfully completed scraping for tenant",
			zap.String("tenant", tenant.Name),
			zap.Duration("duration", res.Duration))
	}
	report.Succeeded += succeeded
	report.Failed += failed

	glog.Info("Completed tenant group",
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed),
		zap.Duration("duration", time.Since(groupStart)))
}
