package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusOnce     sync.Once
	prometheusInstance *PrometheusCollector
)

// PrometheusCollector provides Prometheus metrics for the PDN MCP server.
type PrometheusCollector struct {
	// MCP Tool metrics
	toolCallsTotal   *prometheus.CounterVec
	toolErrorsTotal  *prometheus.CounterVec
	toolDurationSecs *prometheus.HistogramVec

	// Rate limit metrics
	rateLimitHitsTotal   *prometheus.CounterVec
	rateLimitChecksTotal prometheus.Counter

	// Parsing metrics
	documentsParsedTotal *prometheus.CounterVec
	gamesParsedTotal     prometheus.Counter
	parseErrorsTotal     *prometheus.CounterVec
	parseDuration        prometheus.Histogram

	// Comparison metrics
	pairsComparedTotal prometheus.Counter
	compareDuration    prometheus.Histogram

	// Library metrics
	uploadsTotal       *prometheus.CounterVec
	collectionsCreated prometheus.Counter
	storeUp            prometheus.Gauge
	healthChecksTotal  *prometheus.CounterVec

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Cache metrics
	cacheHitsTotal   prometheus.Counter
	cacheMissesTotal prometheus.Counter
	cacheSize        prometheus.Gauge
	cacheItems       prometheus.Gauge
}

// NewPrometheusCollector creates a new Prometheus metrics collector (singleton).
func NewPrometheusCollector() *PrometheusCollector {
	prometheusOnce.Do(func() {
		prometheusInstance = &PrometheusCollector{
			toolCallsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pdn_mcp_tool_calls_total",
					Help: "Total number of MCP tool calls",
				},
				[]string{"tool", "status"},
			),
			toolErrorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pdn_mcp_tool_errors_total",
					Help: "Total number of MCP tool errors",
				},
				[]string{"tool", "error_type"},
			),
			toolDurationSecs: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "pdn_mcp_tool_duration_seconds",
					Help:    "Duration of MCP tool calls in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"tool"},
			),

			rateLimitHitsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pdn_mcp_rate_limit_hits_total",
					Help: "Total number of rate limit hits",
				},
				[]string{"client", "tool"},
			),
			rateLimitChecksTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "pdn_mcp_rate_limit_checks_total",
					Help: "Total number of rate limit checks",
				},
			),

			documentsParsedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pdn_documents_parsed_total",
					Help: "Total number of PDN documents parsed",
				},
				[]string{"status"},
			),
			gamesParsedTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "pdn_games_parsed_total",
					Help: "Total number of games produced by the parser",
				},
			),
			parseErrorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pdn_parse_errors_total",
					Help: "Total number of parse failures by kind",
				},
				[]string{"kind"},
			),
			parseDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "pdn_parse_duration_seconds",
					Help:    "Duration of document parsing in seconds",
					Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
				},
			),

			pairsComparedTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "pdn_pairs_compared_total",
					Help: "Total number of fingerprint pairs compared",
				},
			),
			compareDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "pdn_compare_duration_seconds",
					Help:    "Duration of pairwise comparisons in seconds",
					Buckets: []float64{0.001, 0.01, 0.1, 0.25, 0.5, 1, 2.5, 5},
				},
			),

			uploadsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pdn_uploads_total",
					Help: "Total number of collection uploads",
				},
				[]string{"status"},
			),
			collectionsCreated: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "pdn_collections_created_total",
					Help: "Total number of collections stored",
				},
			),
			storeUp: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "pdn_store_up",
					Help: "Status of the collection store (1=reachable, 0=unreachable)",
				},
			),
			healthChecksTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pdn_store_health_checks_total",
					Help: "Total number of store health checks",
				},
				[]string{"status"},
			),

			httpRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pdn_mcp_http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			httpRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "pdn_mcp_http_request_duration_seconds",
					Help:    "Duration of HTTP requests in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"method", "path"},
			),

			cacheHitsTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "pdn_mcp_cache_hits_total",
					Help: "Total number of parse cache hits",
				},
			),
			cacheMissesTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "pdn_mcp_cache_misses_total",
					Help: "Total number of parse cache misses",
				},
			),
			cacheSize: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "pdn_mcp_cache_size_bytes",
					Help: "Current cache size in bytes",
				},
			),
			cacheItems: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "pdn_mcp_cache_items",
					Help: "Current number of items in cache",
				},
			),
		}
	})
	return prometheusInstance
}

// RecordToolCall records a tool call metric.
func (p *PrometheusCollector) RecordToolCall(tool, status string, durationSecs float64) {
	p.toolCallsTotal.WithLabelValues(tool, status).Inc()
	p.toolDurationSecs.WithLabelValues(tool).Observe(durationSecs)

	if status == "error" {
		p.toolErrorsTotal.WithLabelValues(tool, "general").Inc()
	}
}

// RecordToolError records a tool failure with a specific error type.
func (p *PrometheusCollector) RecordToolError(tool, errorType string) {
	p.toolErrorsTotal.WithLabelValues(tool, errorType).Inc()
}

// RecordRateLimit records a rate limit event.
func (p *PrometheusCollector) RecordRateLimit(client, tool string, hit bool) {
	p.rateLimitChecksTotal.Inc()
	if hit {
		p.rateLimitHitsTotal.WithLabelValues(client, tool).Inc()
	}
}

// RecordParse records a successful parse of a document holding games games.
func (p *PrometheusCollector) RecordParse(games int, durationSecs float64) {
	p.documentsParsedTotal.WithLabelValues("success").Inc()
	p.gamesParsedTotal.Add(float64(games))
	p.parseDuration.Observe(durationSecs)
}

// RecordParseError records a failed parse; kind comes from pdn.KindOf.
func (p *PrometheusCollector) RecordParseError(kind string) {
	p.documentsParsedTotal.WithLabelValues("error").Inc()
	p.parseErrorsTotal.WithLabelValues(kind).Inc()
}

// RecordComparison records one run of the pairwise comparator.
func (p *PrometheusCollector) RecordComparison(pairs int, durationSecs float64) {
	p.pairsComparedTotal.Add(float64(pairs))
	p.compareDuration.Observe(durationSecs)
}

// RecordUpload records a collection upload attempt.
func (p *PrometheusCollector) RecordUpload(success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	p.uploadsTotal.WithLabelValues(status).Inc()
	if success {
		p.collectionsCreated.Inc()
	}
}

// RecordStoreHealthCheck records a store health check result.
func (p *PrometheusCollector) RecordStoreHealthCheck(success bool) {
	status := "success"
	value := 1.0
	if !success {
		status = "failure"
		value = 0
	}
	p.healthChecksTotal.WithLabelValues(status).Inc()
	p.storeUp.Set(value)
}

// RecordHTTPRequest records an HTTP request.
func (p *PrometheusCollector) RecordHTTPRequest(method, path, status string, durationSecs float64) {
	p.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	p.httpRequestDuration.WithLabelValues(method, path).Observe(durationSecs)
}

// RecordCacheHit records a cache hit.
func (p *PrometheusCollector) RecordCacheHit() {
	p.cacheHitsTotal.Inc()
}

// RecordCacheMiss records a cache miss.
func (p *PrometheusCollector) RecordCacheMiss() {
	p.cacheMissesTotal.Inc()
}

// SetCacheStats sets the current cache statistics.
func (p *PrometheusCollector) SetCacheStats(items, sizeBytes float64) {
	p.cacheItems.Set(items)
	p.cacheSize.Set(sizeBytes)
}
