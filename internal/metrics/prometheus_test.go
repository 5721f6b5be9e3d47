package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusRecorder(t *testing.T) {
	var r Recorder = Prometheus{}

	beforeInserted := testutil.ToFloat64(RecordsReconciled.WithLabelValues("jira", OutcomeInserted))
	beforeFailures := testutil.ToFloat64(IntegrationFetches.WithLabelValues("confluence", "failure"))
	beforeCycles := testutil.ToFloat64(CyclesTotal)

	r.RecordReconciled("jira", OutcomeInserted)
	r.RecordReconciled("jira", OutcomeInserted)
	r.IntegrationFetched("confluence", false)
	r.CycleFinished(time.Second)

	assert.Equal(t, beforeInserted+2, testutil.ToFloat64(RecordsReconciled.WithLabelValues("jira", OutcomeInserted)))
	assert.Equal(t, beforeFailures+1, testutil.ToFloat64(IntegrationFetches.WithLabelValues("confluence", "failure")))
	assert.Equal(t, beforeCycles+1, testutil.ToFloat64(CyclesTotal))
}

func TestActiveTenantScrapesGauge(t *testing.T) {
	r := Prometheus{}
	before := testutil.ToFloat64(ActiveTenantScrapes)

	r.TenantScrapeStarted()
	r.TenantScrapeStarted()
	assert.Equal(t, before+2, testutil.ToFloat64(ActiveTenantScrapes))

	r.TenantScrapeDone()
	r.TenantScrapeDone()
	assert.Equal(t, before, testutil.ToFloat64(ActiveTenantScrapes))
}
