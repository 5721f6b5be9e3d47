package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_cycles_total",
			Help: "Total number of scrape cycles run",
		},
	)

	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_cycle_duration_seconds",
			Help:    "Duration of a full scrape cycle across all tenants",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		},
	)

	TenantScrapes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_tenant_scrapes_total",
			Help: "Total number of tenant scrapes by outcome",
		},
		[]string{"status"},
	)

	IntegrationFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_integration_fetches_total",
			Help: "Total number of connector fetches by source and outcome",
		},
		[]string{"source", "status"},
	)

	RecordsReconciled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_records_reconciled_total",
			Help: "Total number of scraped records written, by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	ReconcileFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_reconcile_fallbacks_total",
			Help: "Total number of records that needed the lookup-then-save fallback",
		},
		[]string{"source"},
	)

	ActiveTenantScrapes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scraper_active_tenant_scrapes",
			Help: "Number of tenant scrapes currently running",
		},
	)

	TriggerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scraper_trigger_queue_depth",
			Help: "Current RabbitMQ depth of the scrape trigger queue",
		},
	)
)

// Init registers metrics with Prometheus
func Init() {
	prometheus.MustRegister(CyclesTotal)
	prometheus.MustRegister(CycleDuration)
	prometheus.MustRegister(TenantScrapes)
	prometheus.MustRegister(IntegrationFetches)
	prometheus.MustRegister(RecordsReconciled)
	prometheus.MustRegister(ReconcileFallbacks)
	prometheus.MustRegister(ActiveTenantScrapes)
	prometheus.MustRegister(TriggerQueueDepth)
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Recorder is the metrics sink the scraping components report into.
type Recorder interface {
	CycleFinished(d time.Duration)
	TenantScraped(ok bool)
	TenantScrapeStarted()
	TenantScrapeDone()
	IntegrationFetched(source string, ok bool)
	RecordReconciled(source, outcome string)
	FallbackUsed(source string)
}

// Record outcomes.
const (
	OutcomeInserted = "inserted"
	OutcomeUpdated  = "updated"
	OutcomeFailed   = "failed"
)

// Prometheus reports into the package level collectors.
type Prometheus struct{}

func (Prometheus) CycleFinished(d time.Duration) {
	CyclesTotal.Inc()
	CycleDuration.Observe(d.Seconds())
}

func (Prometheus) TenantScraped(ok bool) {
	TenantScrapes.WithLabelValues(status(ok)).Inc()
}

func (Prometheus) TenantScrapeStarted() { ActiveTenantScrapes.Inc() }

func (Prometheus) TenantScrapeDone() { ActiveTenantScrapes.Dec() }

func (Prometheus) IntegrationFetched(source string, ok bool) {
	IntegrationFetches.WithLabelValues(source, status(ok)).Inc()
}

func (Prometheus) RecordReconciled(source, outcome string) {
	RecordsReconciled.WithLabelValues(source, outcome).Inc()
}

func (Prometheus) FallbackUsed(source string) {
	ReconcileFallbacks.WithLabelValues(source).Inc()
}

func status(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// Nop discards everything. Used when no recorder is configured.
type Nop struct{}

func (Nop) CycleFinished(time.Duration)     {}
func (Nop) TenantScraped(bool)              {}
func (Nop) TenantScrapeStarted()            {}
func (Nop) TenantScrapeDone()               {}
func (Nop) IntegrationFetched(string, bool) {}
func (Nop) RecordReconciled(string, string) {}
func (Nop) FallbackUsed(string)             {}
