package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusCollectorSingleton(t *testing.T) {
	assert.Same(t, NewPrometheusCollector(), NewPrometheusCollector())
}

func TestPrometheusParseMetrics(t *testing.T) {
	p := NewPrometheusCollector()

	gamesBefore := testutil.ToFloat64(p.gamesParsedTotal)
	okBefore := testutil.ToFloat64(p.documentsParsedTotal.WithLabelValues("success"))
	tagBefore := testutil.ToFloat64(p.parseErrorsTotal.WithLabelValues("malformed_tag"))

	p.RecordParse(3, 0.002)
	p.RecordParse(2, 0.001)
	p.RecordParseError("malformed_tag")

	assert.Equal(t, gamesBefore+5, testutil.ToFloat64(p.gamesParsedTotal))
	assert.Equal(t, okBefore+2, testutil.ToFloat64(p.documentsParsedTotal.WithLabelValues("success")))
	assert.Equal(t, tagBefore+1, testutil.ToFloat64(p.parseErrorsTotal.WithLabelValues("malformed_tag")))
}

func TestPrometheusComparisonAndStore(t *testing.T) {
	p := NewPrometheusCollector()

	before := testutil.ToFloat64(p.pairsComparedTotal)
	p.RecordComparison(45, 0.01)
	assert.Equal(t, before+45, testutil.ToFloat64(p.pairsComparedTotal))

	p.RecordStoreHealthCheck(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(p.storeUp))
	p.RecordStoreHealthCheck(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(p.storeUp))

	created := testutil.ToFloat64(p.collectionsCreated)
	p.RecordUpload(false)
	p.RecordUpload(true)
	assert.Equal(t, created+1, testutil.ToFloat64(p.collectionsCreated))
}

func TestPrometheusToolAndCacheMetrics(t *testing.T) {
	p := NewPrometheusCollector()

	errs := testutil.ToFloat64(p.toolErrorsTotal.WithLabelValues("parseDocument", "general"))
	p.RecordToolCall("parseDocument", "success", 0.5)
	p.RecordToolCall("parseDocument", "error", 0.1)
	assert.Equal(t, errs+1, testutil.ToFloat64(p.toolErrorsTotal.WithLabelValues("parseDocument", "general")))

	hits := testutil.ToFloat64(p.rateLimitHitsTotal.WithLabelValues("c1", "compareDocument"))
	p.RecordRateLimit("c1", "compareDocument", false)
	p.RecordRateLimit("c1", "compareDocument", true)
	assert.Equal(t, hits+1, testutil.ToFloat64(p.rateLimitHitsTotal.WithLabelValues("c1", "compareDocument")))

	p.SetCacheStats(4, 1024)
	assert.Equal(t, 4.0, testutil.ToFloat64(p.cacheItems))
	assert.Equal(t, 1024.0, testutil.ToFloat64(p.cacheSize))

	p.RecordHTTPRequest("GET", "/health", "200", 0.01)
	assert.GreaterOrEqual(t, testutil.ToFloat64(p.httpRequestsTotal.WithLabelValues("GET", "/health", "200")), 1.0)
}

func TestCollectorSnapshot(t *testing.T) {
	c := NewCollector()
	c.RecordToolCall("parseDocument", "success", 10*time.Millisecond)
	c.RecordToolCall("parseDocument", "error", 30*time.Millisecond)
	c.RecordToolCall("compareDocument", "rate_limited", 0)
	c.RecordParse(4)
	c.RecordParseError("invalid_square_index")
	c.RecordComparison(6)

	s := c.Snapshot()
	require.Contains(t, s.Tools, "parseDocument")
	assert.Equal(t, ToolStats{Calls: 2, Errors: 1, ErrorRate: 0.5, AvgDurationMs: 20}, s.Tools["parseDocument"])
	assert.Equal(t, int64(1), s.RateLimitHits)
	assert.Equal(t, int64(3), s.RateLimitTotal)
	assert.Equal(t, int64(1), s.Documents)
	assert.Equal(t, int64(4), s.Games)
	assert.Equal(t, int64(1), s.ParseErrors["invalid_square_index"])
	assert.Equal(t, int64(6), s.Pairs)
	assert.Equal(t, []string{"compareDocument", "parseDocument"}, c.ToolNames())

	c.Reset()
	assert.Empty(t, c.Snapshot().Tools)
	assert.Zero(t, c.Snapshot().Games)
}

func TestCollectorKeepsRecentDurations(t *testing.T) {
	c := NewCollector()
	for i := 0; i < maxDurations+20; i++ {
		c.RecordToolCall("t", "success", time.Millisecond)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	assert.Len(t, c.toolDurations["t"], maxDurations)
}
