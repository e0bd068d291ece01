package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("scifetch", reg)

	m.RecordRequest("pubmed", "search", "ok", 0.2)
	m.RecordRequest("pubmed", "search", "ok", 0.4)
	m.RecordRequest("arxiv", "fetch", "transient", 1.1)
	m.RecordCacheHit("pubmed")
	m.RecordCacheMiss("pubmed")
	m.RecordCacheMiss("arxiv")
	m.RecordRetry("arxiv")
	m.RecordRateLimited("pubmed")
	m.RecordFlightCoalesced("pubmed")
	m.RecordRecordsFetched("pubmed", 25)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("pubmed", "search", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("arxiv", "fetch", "transient")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHits.WithLabelValues("pubmed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheMisses.WithLabelValues("pubmed"))+
		testutil.ToFloat64(m.CacheMisses.WithLabelValues("arxiv")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RetriesTotal.WithLabelValues("arxiv")))
	assert.Equal(t, 25.0, testutil.ToFloat64(m.RecordsFetched.WithLabelValues("pubmed")))
}

func TestMetrics_Histograms(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("scifetch", reg)

	m.RecordRequest("pubmed", "search", "ok", 0.2)
	m.RecordFanout(1.5)

	families, err := reg.Gather()
	require.NoError(t, err)

	byName := map[string]*dto.MetricFamily{}
	for _, mf := range families {
		byName[mf.GetName()] = mf
	}

	reqDur, ok := byName["scifetch_request_duration_seconds"]
	require.True(t, ok)
	require.NotEmpty(t, reqDur.GetMetric())
	assert.Equal(t, uint64(1), reqDur.GetMetric()[0].GetHistogram().GetSampleCount())

	fanout, ok := byName["scifetch_fanout_duration_seconds"]
	require.True(t, ok)
	require.NotEmpty(t, fanout.GetMetric())
	assert.Equal(t, 1.5, fanout.GetMetric()[0].GetHistogram().GetSampleSum())
}

func TestMetrics_IsolatedRegistries(t *testing.T) {
	// Two instances with separate registries must not collide.
	m1 := NewMetrics("scifetch", prometheus.NewRegistry())
	m2 := NewMetrics("scifetch", prometheus.NewRegistry())

	m1.RecordCacheHit("pubmed")
	assert.Equal(t, 1.0, testutil.ToFloat64(m1.CacheHits.WithLabelValues("pubmed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m2.CacheHits.WithLabelValues("pubmed")))
}
