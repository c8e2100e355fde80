// Package ratelimit throttles MCP tool calls with token buckets at global,
// per-tool and per-client scope.
package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmmcquay/pdn-mcp/internal/config"
	"github.com/dmmcquay/pdn-mcp/internal/logging"
)

// ErrRateLimited is matched by every rejection from Allow.
var ErrRateLimited = errors.New("rate limit exceeded")

// LimitError names the scope that rejected a request.
type LimitError struct {
	Scope string // "global", "tool", "client" or "client_tool"
	Tool  string
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%s rate limit exceeded for tool %s", e.Scope, e.Tool)
}

func (e *LimitError) Unwrap() error { return ErrRateLimited }

const (
	cleanupInterval = 5 * time.Minute
	staleTimeout    = 30 * time.Minute
)

// Limiter manages rate limiting for the MCP server.
type Limiter struct {
	logger       logging.ContextLogger
	config       *config.RateLimitConfig
	globalBucket *TokenBucket
	toolBuckets  map[string]*TokenBucket
	clients      map[string]*clientRateLimit
	mu           sync.Mutex

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

type clientRateLimit struct {
	globalBucket *TokenBucket
	toolBuckets  map[string]*TokenBucket
	lastSeen     time.Time
}

// NewLimiter returns nil when rate limiting is disabled; a nil Limiter allows
// everything. Call Close to stop the stale-client sweeper.
func NewLimiter(cfg *config.RateLimitConfig, logger logging.ContextLogger) *Limiter {
	if cfg == nil || !cfg.Enabled {
		return nil
	}

	l := &Limiter{
		logger:       logger,
		config:       cfg,
		globalBucket: NewTokenBucket(cfg.BurstSize, perSecond(cfg.RequestsPerMin)),
		toolBuckets:  make(map[string]*TokenBucket),
		clients:      make(map[string]*clientRateLimit),
		done:         make(chan struct{}),
	}
	for tool, limit := range cfg.PerToolLimits {
		l.toolBuckets[tool] = l.toolBucket(limit)
	}

	l.wg.Add(1)
	go l.sweep()
	return l
}

func perSecond(perMinute int) float64 {
	return float64(perMinute) / 60.0
}

// toolBucket sizes a per-tool bucket with the same burst ratio as the global one.
func (l *Limiter) toolBucket(limit int) *TokenBucket {
	burst := 1
	if l.config.RequestsPerMin > 0 {
		burst = max(1, l.config.BurstSize*limit/l.config.RequestsPerMin)
	}
	return NewTokenBucket(burst, perSecond(limit))
}

// Allow checks the global, tool and client limits in turn. Tokens taken by an
// earlier scope are refunded when a later scope rejects the call.
func (l *Limiter) Allow(clientID, toolName string) error {
	if l == nil {
		return nil
	}

	if !l.globalBucket.Allow() {
		return l.reject("global", clientID, toolName)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	toolBucket, hasToolLimit := l.toolBuckets[toolName]
	if hasToolLimit && !toolBucket.Allow() {
		l.globalBucket.Refund()
		return l.reject("tool", clientID, toolName)
	}

	if clientID == "" {
		return nil
	}
	if scope := l.allowClient(clientID, toolName); scope != "" {
		l.globalBucket.Refund()
		if hasToolLimit {
			toolBucket.Refund()
		}
		return l.reject(scope, clientID, toolName)
	}
	return nil
}

// allowClient returns the rejecting scope, or "" when allowed. Called with mu held.
func (l *Limiter) allowClient(clientID, toolName string) string {
	client, ok := l.clients[clientID]
	if !ok {
		client = &clientRateLimit{
			globalBucket: NewTokenBucket(l.config.BurstSize, perSecond(l.config.RequestsPerMin)),
			toolBuckets:  make(map[string]*TokenBucket),
		}
		l.clients[clientID] = client
	}
	client.lastSeen = time.Now()

	if !client.globalBucket.Allow() {
		return "client"
	}

	limit, ok := l.config.PerToolLimits[toolName]
	if !ok {
		return ""
	}
	bucket, ok := client.toolBuckets[toolName]
	if !ok {
		bucket = l.toolBucket(limit)
		client.toolBuckets[toolName] = bucket
	}
	if !bucket.Allow() {
		client.globalBucket.Refund()
		return "client_tool"
	}
	return ""
}

func (l *Limiter) reject(scope, clientID, toolName string) error {
	l.logger.Warn("Rate limit exceeded", "scope", scope, "client", clientID, "tool", toolName)
	return &LimitError{Scope: scope, Tool: toolName}
}

// Delay returns how long until the global bucket would admit a request.
func (l *Limiter) Delay() time.Duration {
	if l == nil {
		return 0
	}
	return l.globalBucket.Delay()
}

// Reset refills every bucket.
func (l *Limiter) Reset() {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.globalBucket.Reset()
	for _, b := range l.toolBuckets {
		b.Reset()
	}
	for _, c := range l.clients {
		c.globalBucket.Reset()
		for _, b := range c.toolBuckets {
			b.Reset()
		}
	}
}

// Close stops the background sweeper.
func (l *Limiter) Close() {
	if l == nil {
		return
	}
	l.closeOnce.Do(func() { close(l.done) })
	l.wg.Wait()
}

func (l *Limiter) sweep() {
	defer l.wg.Done()
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case now := <-ticker.C:
			l.removeStale(now)
		}
	}
}

func (l *Limiter) removeStale(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for id, c := range l.clients {
		if now.Sub(c.lastSeen) > staleTimeout {
			delete(l.clients, id)
			l.logger.Debug("Removed stale client rate limit tracking", "client", id)
		}
	}
}

// Status is a monitoring snapshot of the limiter.
type Status struct {
	Enabled        bool               `json:"enabled"`
	RequestsPerMin int                `json:"requestsPerMin,omitempty"`
	BurstSize      int                `json:"burstSize,omitempty"`
	GlobalTokens   float64            `json:"globalTokens,omitempty"`
	ActiveClients  int                `json:"activeClients"`
	ToolTokens     map[string]float64 `json:"toolTokens,omitempty"`
}

func (l *Limiter) Status() Status {
	if l == nil {
		return Status{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	s := Status{
		Enabled:        true,
		RequestsPerMin: l.config.RequestsPerMin,
		BurstSize:      l.config.BurstSize,
		GlobalTokens:   l.globalBucket.Tokens(),
		ActiveClients:  len(l.clients),
		ToolTokens:     make(map[string]float64, len(l.toolBuckets)),
	}
	for tool, b := range l.toolBuckets {
		s.ToolTokens[tool] = b.Tokens()
	}
	return s
}
