// Package shutdown stops registered components in reverse order when the
// process is asked to exit.
package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/multierr"

	"github.com/dmmcquay/pdn-mcp/internal/logging"
)

// DefaultTimeout bounds a signal-triggered shutdown.
const DefaultTimeout = 30 * time.Second

type component struct {
	name string
	stop func(context.Context) error
}

// Manager coordinates graceful shutdown of multiple components.
type Manager struct {
	logger     logging.ContextLogger
	components []component
	mu         sync.Mutex
	done       chan struct{}
	once       sync.Once
	err        error
}

func NewManager(logger logging.ContextLogger) *Manager {
	return &Manager{
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Register adds a component. Components stop in reverse registration order,
// so the store registered first closes after the servers that use it.
func (m *Manager) Register(name string, fn func(context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components = append(m.components, component{name: name, stop: fn})
}

// HandleSignals shuts down on SIGINT or SIGTERM. The returned func stops
// listening for signals.
func (m *Manager) HandleSignals() func() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	quit := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			m.logger.Info("Received shutdown signal", "signal", sig)
			_ = m.Shutdown(DefaultTimeout)
		case <-quit:
		case <-m.done:
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(sigCh)
			close(quit)
		})
	}
}

// Shutdown stops every component once, within timeout, and returns the
// combined errors. Later calls return the first result.
func (m *Manager) Shutdown(timeout time.Duration) error {
	m.once.Do(func() {
		defer close(m.done)
		m.logger.Info("Starting graceful shutdown", "timeout", timeout)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		m.mu.Lock()
		components := append([]component(nil), m.components...)
		m.mu.Unlock()

		for i := len(components) - 1; i >= 0; i-- {
			if ctx.Err() != nil {
				m.err = multierr.Append(m.err, fmt.Errorf("shutdown timed out before %s", components[i].name))
				continue
			}
			m.err = multierr.Append(m.err, m.stop(ctx, components[i]))
		}

		if m.err != nil {
			m.logger.Error("Graceful shutdown completed with errors", "errors", len(multierr.Errors(m.err)))
		} else {
			m.logger.Info("Graceful shutdown completed successfully")
		}
	})
	<-m.done
	return m.err
}

func (m *Manager) stop(ctx context.Context, c component) error {
	m.logger.Info("Shutting down component", "component", c.name)
	start := time.Now()
	if err := c.stop(ctx); err != nil {
		m.logger.Error("Failed to shutdown component", "component", c.name, "error", err, "elapsed", time.Since(start))
		return fmt.Errorf("%s: %w", c.name, err)
	}
	m.logger.Info("Component shutdown complete", "component", c.name, "elapsed", time.Since(start))
	return nil
}

// Done is closed when shutdown completes.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

func (m *Manager) WaitForShutdown() {
	<-m.done
}
