package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"azops-hq/sweeper/pkg/config"
	"azops-hq/sweeper/pkg/patterns"
	"azops-hq/sweeper/pkg/retention"
)

var (
	_ config.Observer    = (*Collector)(nil)
	_ patterns.Observer  = (*Collector)(nil)
	_ retention.Observer = (*Collector)(nil)
)

func TestCollector_Evaluated(t *testing.T) {
	c := NewCollector(Config{}, nil)

	result := &retention.Result{Decisions: []retention.Decision{
		{Category: retention.KeptInWindow},
		{Category: retention.WouldDelete, Resource: retention.Resource{SizeBytes: 100}},
		{Category: retention.WouldDelete, Resource: retention.Resource{SizeBytes: 50}},
		{Category: retention.Failed, Resource: retention.Resource{SizeBytes: 999}},
	}}
	c.Evaluated("blob", result, 2*time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.retention.decisionsTotal.WithLabelValues("blob", "would_delete")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.retention.decisionsTotal.WithLabelValues("blob", "failed")))
	assert.Equal(t, 150.0, testutil.ToFloat64(c.retention.bytesReclaimed.WithLabelValues("blob")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.retention.evaluationDuration))
}

func TestCollector_ConfigAndPatterns(t *testing.T) {
	c := NewCollector(Config{}, nil)

	c.ConfigLoaded("azure_resources", false)
	c.ConfigLoaded("azure_resources", true)
	c.ConfigLoaded("azure_resources", true)
	c.ConfigFailed("storage_cleanup", config.KindSchemaViolation)
	c.PatternError("broken")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.config.loadsTotal.WithLabelValues("azure_resources", "loaded")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.config.loadsTotal.WithLabelValues("azure_resources", "cached")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.config.loadsTotal.WithLabelValues("storage_cleanup", "schema_violation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.config.patternErrors.WithLabelValues("broken")))
}

func TestCollector_RecordRun(t *testing.T) {
	c := NewCollector(Config{Namespace: "test"}, nil)

	c.RecordRun("vm", "success")
	c.RecordRun("vm", "pending_confirmation")
	c.RecordRun("vm", "success")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.runs.runsTotal.WithLabelValues("vm", "success")))
	assert.Greater(t, testutil.ToFloat64(c.runs.lastRun.WithLabelValues("vm")), 0.0)
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector(Config{}, nil)
	c.RecordRun("blob", "success")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `sweeper_runs_total{domain="blob",outcome="success"} 1`))

	rec = httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `promhttp_metric_handler_requests_total{code="200"} 1`)
}
