package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dmmcquay/pdn-mcp/internal/logging"
	"github.com/dmmcquay/pdn-mcp/internal/metrics"
	"github.com/dmmcquay/pdn-mcp/internal/ratelimit"
)

type clientIDKey struct{}

// ContextWithClientID tags ctx with the calling client's identifier.
func ContextWithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, clientIDKey{}, clientID)
}

// Middleware wraps tool handlers with logging, metrics and rate limiting.
type Middleware struct {
	logger      logging.ContextLogger
	metrics     *metrics.Collector
	prometheus  *metrics.PrometheusCollector
	rateLimiter *ratelimit.Limiter
}

// NewMiddleware creates a new middleware. rateLimiter may be nil.
func NewMiddleware(logger logging.ContextLogger, collector *metrics.Collector, rateLimiter *ratelimit.Limiter) *Middleware {
	return &Middleware{
		logger:      logger,
		metrics:     collector,
		prometheus:  metrics.NewPrometheusCollector(),
		rateLimiter: rateLimiter,
	}
}

// ToolHandler is the function signature for MCP tool handlers.
type ToolHandler func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// WrapTool attaches request IDs to ctx, enforces rate limits and records the
// outcome of every call.
func (m *Middleware) WrapTool(toolName string, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		ctx = logging.NewRequestContext(ctx)
		clientID := extractClientID(ctx, request)
		logger := m.logger.WithContext(ctx).WithFields(map[string]interface{}{
			"tool":   toolName,
			"client": clientID,
		})

		logger.Debug("Tool request received")

		if m.rateLimiter != nil {
			err := m.rateLimiter.Allow(clientID, toolName)
			m.prometheus.RecordRateLimit(clientID, toolName, err != nil)
			if err != nil {
				m.record(toolName, "rate_limited", start)
				return nil, fmt.Errorf("tool %s: %w", toolName, err)
			}
		}

		result, err := handler(ctx, request)

		status := "success"
		if err != nil {
			status = "error"
			logger.Error("Tool request failed", "error", err, "duration", time.Since(start))
			if kind := errorType(err); kind != "" {
				m.prometheus.RecordToolError(toolName, kind)
			}
		} else {
			logger.Info("Tool request completed", "duration", time.Since(start))
		}
		m.record(toolName, status, start)
		return result, err
	}
}

func (m *Middleware) record(tool, status string, start time.Time) {
	elapsed := time.Since(start)
	m.metrics.RecordToolCall(tool, status, elapsed)
	m.prometheus.RecordToolCall(tool, status, elapsed.Seconds())
}

// errorType labels well-known failures beyond the generic error count.
func errorType(err error) string {
	var argErr *ArgumentError
	switch {
	case errors.As(err, &argErr):
		return "invalid_argument"
	case isParseError(err):
		return "parse"
	default:
		return ""
	}
}

// extractClientID reads the client from ctx, then from a clientID argument,
// and falls back to "anonymous".
func extractClientID(ctx context.Context, request mcp.CallToolRequest) string {
	if clientID, ok := ctx.Value(clientIDKey{}).(string); ok && clientID != "" {
		return clientID
	}
	if args, ok := request.Params.Arguments.(map[string]interface{}); ok {
		if clientID, ok := args["clientID"].(string); ok && clientID != "" {
			return clientID
		}
	}
	return "anonymous"
}
