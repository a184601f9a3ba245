package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/obiverse/dojo/pkg/dispatch"
	"github.com/obiverse/dojo/pkg/hokage"
	"github.com/obiverse/dojo/pkg/lane"
	"github.com/obiverse/dojo/pkg/server"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time checks for every observer the dojo exposes
var (
	_ dispatch.Observer      = (*Metrics)(nil)
	_ dispatch.SizeObserver  = (*Metrics)(nil)
	_ lane.Observer          = (*Metrics)(nil)
	_ hokage.SummonObserver  = (*Metrics)(nil)
	_ server.RequestObserver = (*Metrics)(nil)
)

func family(t *testing.T, m *Metrics, name string) *dto.MetricFamily {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func labels(metric *dto.Metric) map[string]string {
	out := make(map[string]string)
	for _, lp := range metric.GetLabel() {
		out[lp.GetName()] = lp.GetValue()
	}
	return out
}

func TestNewMetrics(t *testing.T) {
	m := NewMetrics()
	require.NotNil(t, m)
	assert.NotNil(t, m.Registry())
	assert.NotNil(t, m.InvocationsTotal)
	assert.NotNil(t, m.LaneQueued)
	assert.NotNil(t, m.HTTPRequestsTotal)
}

func TestInvocationCompleted(t *testing.T) {
	m := NewMetrics()

	m.InvocationCompleted(dispatch.Event{Worker: "Parser", Capability: "parse", Elapsed: 200 * time.Millisecond})
	m.InvocationCompleted(dispatch.Event{Worker: "Parser", Capability: "parse", Elapsed: time.Second})
	m.InvocationCompleted(dispatch.Event{Worker: "Parser", Capability: "parse", Err: errors.New("boom")})

	mf := family(t, m, "dojo_invocations_total")
	require.NotNil(t, mf)

	counts := make(map[string]float64)
	for _, metric := range mf.GetMetric() {
		l := labels(metric)
		assert.Equal(t, "Parser", l["worker"])
		assert.Equal(t, "parse", l["capability"])
		counts[l["status"]] = metric.GetCounter().GetValue()
	}
	assert.Equal(t, 2.0, counts["success"])
	assert.Equal(t, 1.0, counts["error"])

	hist := family(t, m, "dojo_invocation_duration_seconds")
	require.NotNil(t, hist)
	require.Len(t, hist.GetMetric(), 1)
	assert.Equal(t, uint64(3), hist.GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestSizeObservers(t *testing.T) {
	m := NewMetrics()

	m.BatchStarted(4)
	m.BatchStarted(8)
	m.ChainStarted(3)

	batch := family(t, m, "dojo_batch_size")
	require.NotNil(t, batch)
	assert.Equal(t, uint64(2), batch.GetMetric()[0].GetHistogram().GetSampleCount())
	assert.Equal(t, 12.0, batch.GetMetric()[0].GetHistogram().GetSampleSum())

	chain := family(t, m, "dojo_chain_steps")
	require.NotNil(t, chain)
	assert.Equal(t, 3.0, chain.GetMetric()[0].GetHistogram().GetSampleSum())
}

func TestLaneChanged(t *testing.T) {
	m := NewMetrics()

	m.LaneChanged("local", 5, 1)
	m.LaneChanged("local", 2, 1)

	queued := family(t, m, "dojo_lane_queued")
	require.NotNil(t, queued)
	require.Len(t, queued.GetMetric(), 1)
	assert.Equal(t, "local", labels(queued.GetMetric()[0])["lane"])
	assert.Equal(t, 2.0, queued.GetMetric()[0].GetGauge().GetValue())

	running := family(t, m, "dojo_lane_running")
	require.NotNil(t, running)
	assert.Equal(t, 1.0, running.GetMetric()[0].GetGauge().GetValue())
}

func TestWorkerSummoned(t *testing.T) {
	m := NewMetrics()

	m.WorkerSummoned("parser")
	m.WorkerSummoned("parser")

	mf := family(t, m, "dojo_workers_summoned_total")
	require.NotNil(t, mf)
	assert.Equal(t, "parser", labels(mf.GetMetric()[0])["contract"])
	assert.Equal(t, 2.0, mf.GetMetric()[0].GetCounter().GetValue())
}

func TestRequestCompleted(t *testing.T) {
	m := NewMetrics()

	m.RequestCompleted("/dispatch", http.MethodPost, http.StatusOK, 10*time.Millisecond)
	m.RequestCompleted("/nope/1", http.MethodGet, http.StatusNotFound, time.Millisecond)
	m.RequestCompleted("/nope/2", http.MethodGet, http.StatusNotFound, time.Millisecond)

	mf := family(t, m, "dojo_http_requests_total")
	require.NotNil(t, mf)

	seen := make(map[string]float64)
	for _, metric := range mf.GetMetric() {
		l := labels(metric)
		seen[l["path"]+" "+l["code"]] = metric.GetCounter().GetValue()
	}
	assert.Equal(t, map[string]float64{
		"/dispatch 200": 1,
		"other 404":     2,
	}, seen)
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()
	m.InvocationCompleted(dispatch.Event{Worker: "Writer", Capability: "summarize"})
	m.LaneChanged("local", 0, 0)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "dojo_invocations_total")
	assert.Contains(t, body, "dojo_lane_queued")
}
