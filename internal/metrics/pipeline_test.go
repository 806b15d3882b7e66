package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/instance-deploy/internal/model"
)

func TestPipeline_RunLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPipeline(reg)

	p.RunStarted()
	p.RunStarted()
	assert.Equal(t, 2.0, testutil.ToFloat64(p.inflight))

	p.ObserveStage(model.StatusResourcesReady, 90*time.Second)
	p.RunFinished(model.StatusCompleted)
	p.RunFinished(model.StatusFailed)

	assert.Equal(t, 0.0, testutil.ToFloat64(p.inflight))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.runs.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.runs.WithLabelValues("failed")))
	assert.Equal(t, 1, testutil.CollectAndCount(p.stageDuration))
}

func TestServer_ServesMetricsAndHealth(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPipeline(reg)
	p.RunStarted()

	srv := NewServer(":0", reg)

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "instance_deploy_inflight 1")
}

func TestNewRegistry_IncludesRuntimeCollectors(t *testing.T) {
	families, err := NewRegistry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["go_goroutines"])
}
