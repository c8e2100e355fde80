// Package health runs named component checks and serves liveness and
// readiness endpoints over them.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmmcquay/pdn-mcp/internal/logging"
)

// Status represents the health status of a component.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

const checkTimeout = 5 * time.Second

// Check reports a component failure as a non-nil error.
type Check func(ctx context.Context) error

// Component is the result of one check.
type Component struct {
	Name        string    `json:"name"`
	Status      Status    `json:"status"`
	Message     string    `json:"message,omitempty"`
	LastChecked time.Time `json:"last_checked"`
}

// Response represents the health check response.
type Response struct {
	Status     Status      `json:"status"`
	Timestamp  time.Time   `json:"timestamp"`
	Components []Component `json:"components,omitempty"`
	Version    string      `json:"version,omitempty"`
	GitCommit  string      `json:"git_commit,omitempty"`
}

// Checker manages health checks for the application.
type Checker struct {
	logger    logging.ContextLogger
	checks    map[string]Check
	mu        sync.RWMutex
	version   string
	gitCommit string
}

func NewChecker(logger logging.ContextLogger, version, gitCommit string) *Checker {
	return &Checker{
		logger:    logger,
		checks:    make(map[string]Check),
		version:   version,
		gitCommit: gitCommit,
	}
}

// RegisterCheck adds or replaces the check for name.
func (c *Checker) RegisterCheck(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// CheckHealth runs every registered check concurrently, each with its own
// timeout. Components are reported sorted by name.
func (c *Checker) CheckHealth(ctx context.Context) Response {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	checks := make(map[string]Check, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()
	sort.Strings(names)

	response := Response{
		Status:     StatusHealthy,
		Timestamp:  time.Now().UTC(),
		Version:    c.version,
		GitCommit:  c.gitCommit,
		Components: make([]Component, len(names)),
	}

	// Failures are recorded per component, so the group never sees an error.
	var g errgroup.Group
	for i, name := range names {
		check := checks[name]
		g.Go(func() error {
			response.Components[i] = c.run(ctx, name, check)
			return nil
		})
	}
	_ = g.Wait()

	for _, comp := range response.Components {
		if comp.Status != StatusHealthy {
			response.Status = StatusUnhealthy
		}
	}
	return response
}

func (c *Checker) run(ctx context.Context, name string, check Check) Component {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	comp := Component{Name: name, Status: StatusHealthy, LastChecked: time.Now().UTC()}
	if err := check(ctx); err != nil {
		comp.Status = StatusUnhealthy
		comp.Message = err.Error()
		c.logger.WithField("component", name).Error("Health check failed", "error", err)
	}
	return comp
}

// LivenessHandler reports healthy whenever the process can serve requests.
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.write(w, c.logger, http.StatusOK, Response{
			Status:    StatusHealthy,
			Timestamp: time.Now().UTC(),
			Version:   c.version,
			GitCommit: c.gitCommit,
		})
	}
}

// ReadinessHandler runs all checks and answers 503 if any fail.
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.ContextWithCorrelationID(r.Context(), logging.GenerateCorrelationID())
		logger := c.logger.WithContext(ctx)
		logger.Debug("Performing readiness check")

		response := c.CheckHealth(ctx)
		code := http.StatusOK
		if response.Status != StatusHealthy {
			code = http.StatusServiceUnavailable
		}
		c.write(w, logger, code, response)
	}
}

func (c *Checker) write(w http.ResponseWriter, logger logging.ContextLogger, code int, response Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error("Failed to encode health response", "error", err)
	}
}
