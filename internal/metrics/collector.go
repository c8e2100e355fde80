// Package metrics records tool, parse and comparison activity, both in memory
// for status reports and as Prometheus series.
package metrics

import (
	"sort"
	"sync"
	"time"
)

const maxDurations = 100

// Collector keeps recent in-process statistics for status reporting.
type Collector struct {
	mu sync.RWMutex

	toolCalls     map[string]int64
	toolErrors    map[string]int64
	toolDurations map[string][]time.Duration

	rateLimitHits  int64
	rateLimitTotal int64

	documents   int64
	games       int64
	parseErrors map[string]int64
	pairs       int64
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		toolCalls:     make(map[string]int64),
		toolErrors:    make(map[string]int64),
		toolDurations: make(map[string][]time.Duration),
		parseErrors:   make(map[string]int64),
	}
}

// RecordToolCall records a tool call with its status and duration.
func (c *Collector) RecordToolCall(tool, status string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.toolCalls[tool]++
	switch status {
	case "error":
		c.toolErrors[tool]++
	case "rate_limited":
		c.rateLimitHits++
	}
	c.rateLimitTotal++

	durations := append(c.toolDurations[tool], duration)
	if len(durations) > maxDurations {
		durations = durations[1:]
	}
	c.toolDurations[tool] = durations
}

// RecordParse counts a parsed document and its games.
func (c *Collector) RecordParse(games int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.documents++
	c.games += int64(games)
}

// RecordParseError counts a failed parse by error kind.
func (c *Collector) RecordParseError(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.parseErrors[kind]++
}

// RecordComparison counts compared pairs.
func (c *Collector) RecordComparison(pairs int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pairs += int64(pairs)
}

// ToolStats summarizes one tool.
type ToolStats struct {
	Calls         int64   `json:"calls"`
	Errors        int64   `json:"errors"`
	ErrorRate     float64 `json:"error_rate"`
	AvgDurationMs int64   `json:"avg_duration_ms"`
}

// Snapshot is a point-in-time copy of the collector.
type Snapshot struct {
	Tools          map[string]ToolStats `json:"tools"`
	RateLimitHits  int64                `json:"rate_limit_hits"`
	RateLimitTotal int64                `json:"rate_limit_total"`
	Documents      int64                `json:"documents"`
	Games          int64                `json:"games"`
	ParseErrors    map[string]int64     `json:"parse_errors"`
	Pairs          int64                `json:"pairs"`
}

// Snapshot returns current metrics statistics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Tools:          make(map[string]ToolStats, len(c.toolCalls)),
		RateLimitHits:  c.rateLimitHits,
		RateLimitTotal: c.rateLimitTotal,
		Documents:      c.documents,
		Games:          c.games,
		ParseErrors:    make(map[string]int64, len(c.parseErrors)),
		Pairs:          c.pairs,
	}

	for tool, calls := range c.toolCalls {
		errs := c.toolErrors[tool]
		var total time.Duration
		durations := c.toolDurations[tool]
		for _, d := range durations {
			total += d
		}
		var avg time.Duration
		if len(durations) > 0 {
			avg = total / time.Duration(len(durations))
		}
		s.Tools[tool] = ToolStats{
			Calls:         calls,
			Errors:        errs,
			ErrorRate:     float64(errs) / float64(calls),
			AvgDurationMs: avg.Milliseconds(),
		}
	}
	for kind, n := range c.parseErrors {
		s.ParseErrors[kind] = n
	}
	return s
}

// ToolNames returns the tools seen so far, sorted.
func (c *Collector) ToolNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.toolCalls))
	for name := range c.toolCalls {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset clears all metrics.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.toolCalls = make(map[string]int64)
	c.toolErrors = make(map[string]int64)
	c.toolDurations = make(map[string][]time.Duration)
	c.parseErrors = make(map[string]int64)
	c.rateLimitHits = 0
	c.rateLimitTotal = 0
	c.documents = 0
	c.games = 0
	c.pairs = 0
}
